// Package cli holds the pieces shared by command-line front ends: version
// reporting, leveled logging and diagnostic printing.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"

	"github.com/muesli/termenv"

	"github.com/qython-lang/qython/internal/diagnostic"
	"github.com/qython-lang/qython/internal/position"
)

// Version information for all CLI tools
const (
	Version   = "0.1.0"
	BuildDate = "2026-10-19"
	CommitSHA = "unknown" // Will be set during build
)

// VersionInfo contains version and build information
type VersionInfo struct {
	Version   string `json:"version"`
	BuildDate string `json:"build_date"`
	CommitSHA string `json:"commit_sha"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
	Arch      string `json:"arch"`
}

// GetVersionInfo returns structured version information
func GetVersionInfo() *VersionInfo {
	return &VersionInfo{
		Version:   Version,
		BuildDate: BuildDate,
		CommitSHA: CommitSHA,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// PrintVersion writes version information in a consistent format
func PrintVersion(w io.Writer, toolName string, jsonOutput bool) {
	info := GetVersionInfo()

	if jsonOutput {
		data, err := json.MarshalIndent(map[string]any{
			"tool":         toolName,
			"version_info": info,
		}, "", "  ")
		if err == nil {
			fmt.Fprintln(w, string(data))
			return
		}
		fmt.Fprintf(os.Stderr, "Error: Failed to marshal version info to JSON: %v\n", err)
	}

	fmt.Fprintf(w, "%s v%s\n", toolName, info.Version)
	fmt.Fprintf(w, "Build Date: %s\n", info.BuildDate)
	if info.CommitSHA != "unknown" && info.CommitSHA != "" {
		fmt.Fprintf(w, "Commit: %s\n", info.CommitSHA)
	}
	fmt.Fprintf(w, "Go Version: %s\n", info.GoVersion)
	fmt.Fprintf(w, "Platform: %s/%s\n", info.Platform, info.Arch)
}

// ValidateArgs validates command line arguments
func ValidateArgs(args []string, minArgs int, usage string) error {
	if len(args) < minArgs {
		return fmt.Errorf("insufficient arguments\nUsage: %s", usage)
	}
	return nil
}

// LevelFromFlags maps the -vv, -v and -q flags to a level, checked in that
// order. Without flags only warnings and errors are shown.
func LevelFromFlags(vv, v, q bool) slog.Level {
	switch {
	case vv:
		return slog.LevelDebug
	case v:
		return slog.LevelInfo
	case q:
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// Logger provides leveled logging for CLI tools
type Logger struct {
	*slog.Logger
	level slog.Level
}

// NewLogger creates a logger writing text records at or above level to w.
func NewLogger(w io.Writer, level slog.Level) *Logger {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.String(slog.TimeKey, a.Value.Time().Format("15:04:05"))
			}
			return a
		},
	})
	return &Logger{Logger: slog.New(h), level: level}
}

// Level returns the lowest level written.
func (l *Logger) Level() slog.Level {
	return l.level
}

// Infof logs an info message
func (l *Logger) Infof(format string, args ...any) {
	l.Info(fmt.Sprintf(format, args...))
}

// Debugf logs a debug message
func (l *Logger) Debugf(format string, args ...any) {
	l.Debug(fmt.Sprintf(format, args...))
}

// Warnf logs a warning message
func (l *Logger) Warnf(format string, args ...any) {
	l.Warn(fmt.Sprintf(format, args...))
}

// Errorf logs an error message
func (l *Logger) Errorf(format string, args ...any) {
	l.Error(fmt.Sprintf(format, args...))
}

// DiagnosticPrinter writes diagnostics with their source line. The header
// is coloured when the destination is a colour terminal.
type DiagnosticPrinter struct {
	w   io.Writer
	out *termenv.Output
}

// NewDiagnosticPrinter creates a printer for w.
func NewDiagnosticPrinter(w io.Writer) *DiagnosticPrinter {
	return &DiagnosticPrinter{w: w, out: termenv.NewOutput(w)}
}

// Print writes d followed by the offending line of src, if known.
func (p *DiagnosticPrinter) Print(d *diagnostic.Diagnostic, src *position.SourceFile) {
	header := fmt.Sprintf("%s (%s phase)", d.Error(), d.Phase)
	if p.out.Profile != termenv.Ascii && !p.out.EnvNoColor() {
		header = p.out.String(header).Foreground(p.out.Color(kindColor(d.Kind))).Bold().String()
	}

	fmt.Fprintln(p.w, header)
	if src != nil {
		fmt.Fprint(p.w, src.Snippet(d.Pos))
	}
}

func kindColor(k diagnostic.Kind) string {
	switch k {
	case diagnostic.KindInternal:
		return "5" // magenta
	case diagnostic.KindNameConflict:
		return "3" // yellow
	default:
		return "1" // red
	}
}
