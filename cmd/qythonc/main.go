// Command qythonc compiles Qython source files to q.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/qython-lang/qython"
	"github.com/qython-lang/qython/internal/ast"
	"github.com/qython-lang/qython/internal/cli"
	"github.com/qython-lang/qython/internal/config"
	"github.com/qython-lang/qython/internal/position"
	"github.com/qython-lang/qython/internal/watch"
)

const (
	toolName  = "qythonc"
	usage     = "qythonc [OPTIONS] <FILE.qy>..."
	sourceExt = ".qy"
	targetExt = ".q"
)

// Exit statuses.
const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

var errCompile = errors.New("compilation failed")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	output     string
	configPath string
	tolerance  float64
	maxIter    int
	target     string
	noPrelude  bool

	watch     bool
	tokens    bool
	surface   bool
	canonical bool

	verbose, veryVerbose, quiet bool
	version, jsonOutput         bool
}

func run(args []string, stdout, stderr io.Writer) int {
	var opts options

	fs := flag.NewFlagSet(toolName, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.output, "o", "", "output file (one input) or directory (several inputs)")
	fs.StringVar(&opts.configPath, "config", "", "configuration file (.toml, .yaml or .json)")
	fs.Float64Var(&opts.tolerance, "tolerance", config.DefaultTolerance, "converge tolerance")
	fs.IntVar(&opts.maxIter, "max-iter", config.DefaultMaxIterations, "converge iteration cap")
	fs.StringVar(&opts.target, "target", config.DefaultTarget, "kdb+ version to emit for")
	fs.BoolVar(&opts.noPrelude, "no-prelude", false, "do not emit the .qy converge helper")
	fs.BoolVar(&opts.watch, "watch", false, "recompile inputs when they change")
	fs.BoolVar(&opts.tokens, "tokens", false, "print the token stream and exit")
	fs.BoolVar(&opts.surface, "ast", false, "print the parsed tree and exit")
	fs.BoolVar(&opts.canonical, "canonical", false, "print the desugared tree and exit")
	fs.BoolVar(&opts.verbose, "v", false, "verbose logging")
	fs.BoolVar(&opts.veryVerbose, "vv", false, "debug logging")
	fs.BoolVar(&opts.quiet, "q", false, "only log errors")
	fs.BoolVar(&opts.version, "version", false, "show version information")
	fs.BoolVar(&opts.jsonOutput, "json", false, "print version information as JSON")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: %s\n\nOptions:\n", usage)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	if opts.version {
		cli.PrintVersion(stdout, toolName, opts.jsonOutput)
		return exitOK
	}

	inputs := fs.Args()
	if err := cli.ValidateArgs(inputs, 1, usage); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	log := cli.NewLogger(stderr, cli.LevelFromFlags(opts.veryVerbose, opts.verbose, opts.quiet))

	cfg, err := loadConfig(fs, &opts)
	if err != nil {
		log.Errorf("%v", err)
		return exitUsage
	}
	log.Debug("configuration",
		"tolerance", cfg.FormatTolerance(),
		"max_iterations", cfg.MaxIterations,
		"target", cfg.Target,
		"prelude", cfg.Prelude)

	c := &compiler{
		cfg:     cfg,
		log:     log,
		diags:   cli.NewDiagnosticPrinter(stderr),
		stdout:  stdout,
		outputs: make(map[string]string, len(inputs)),
	}
	if err := c.plan(inputs, opts.output); err != nil {
		log.Errorf("%v", err)
		return exitUsage
	}

	if opts.tokens || opts.surface || opts.canonical {
		if err := c.dump(inputs, opts); err != nil {
			return exitFailed
		}
		return exitOK
	}

	status := exitOK
	if err := c.compileAll(inputs); err != nil {
		status = exitFailed
	}
	if !opts.watch {
		return status
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := c.watch(ctx, inputs); err != nil {
		log.Errorf("%v", err)
		return exitFailed
	}
	return exitOK
}

// loadConfig layers the configuration file, the environment and the
// flags given on the command line, in that order.
func loadConfig(fs *flag.FlagSet, opts *options) (config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			return cfg, err
		}
	}

	cfg, err := cfg.FromEnv()
	if err != nil {
		return cfg, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "tolerance":
			cfg.Tolerance = opts.tolerance
		case "max-iter":
			cfg.MaxIterations = opts.maxIter
		case "target":
			cfg.Target = opts.target
		case "no-prelude":
			cfg.Prelude = !opts.noPrelude
		}
	})

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

type compiler struct {
	cfg    config.Config
	log    *cli.Logger
	diags  *cli.DiagnosticPrinter
	stdout io.Writer

	// outputs maps each input to its destination; "" is stdout.
	outputs map[string]string

	// inputs maps absolute paths back to inputs as given.
	inputs map[string]string

	mu sync.Mutex // guards diags and stdout
}

// plan decides where each input is written. A single input goes to stdout
// unless -o names a file; with several inputs -o names a directory and
// x.qy becomes x.q.
func (c *compiler) plan(inputs []string, output string) error {
	c.inputs = make(map[string]string, len(inputs))

	for _, in := range inputs {
		if filepath.Ext(in) != sourceExt {
			return fmt.Errorf("%s: expected a %s file", in, sourceExt)
		}
		abs, err := filepath.Abs(in)
		if err != nil {
			return err
		}
		if _, dup := c.inputs[abs]; dup {
			return fmt.Errorf("%s: given more than once", in)
		}
		c.inputs[abs] = in

		switch {
		case len(inputs) == 1:
			c.outputs[in] = output
		case output != "":
			c.outputs[in] = filepath.Join(output, strings.TrimSuffix(filepath.Base(in), sourceExt)+targetExt)
		default:
			c.outputs[in] = strings.TrimSuffix(in, sourceExt) + targetExt
		}
	}
	return nil
}

// compileAll compiles every input concurrently. All diagnostics are
// reported; the result is non-nil if any input failed.
func (c *compiler) compileAll(inputs []string) error {
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))

	for _, in := range inputs {
		in := in
		g.Go(func() error { return c.compile(in) })
	}
	return g.Wait()
}

func (c *compiler) compile(in string) error {
	data, err := os.ReadFile(in)
	if err != nil {
		c.log.Errorf("failed to read %s: %v", in, err)
		return err
	}
	src := string(data)

	out, diag := qython.CompileFile(in, src, c.cfg)
	if diag != nil {
		c.mu.Lock()
		c.diags.Print(diag, position.NewSourceFile(in, src))
		c.mu.Unlock()
		return errCompile
	}

	dest := c.outputs[in]
	if dest == "" {
		c.mu.Lock()
		defer c.mu.Unlock()
		_, err := io.WriteString(c.stdout, out)
		return err
	}

	if dir := filepath.Dir(dest); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			c.log.Errorf("failed to create %s: %v", dir, err)
			return err
		}
	}
	if err := os.WriteFile(dest, []byte(out), 0o644); err != nil {
		c.log.Errorf("failed to write %s: %v", dest, err)
		return err
	}
	c.log.Infof("compiled %s -> %s", in, dest)
	return nil
}

// dump prints the requested intermediate forms of each input.
func (c *compiler) dump(inputs []string, opts options) error {
	failed := false
	for _, in := range inputs {
		data, err := os.ReadFile(in)
		if err != nil {
			c.log.Errorf("failed to read %s: %v", in, err)
			failed = true
			continue
		}
		src := string(data)
		if len(inputs) > 1 {
			fmt.Fprintf(c.stdout, "== %s\n", in)
		}

		if err := c.dumpOne(in, src, opts); err != nil {
			failed = true
		}
	}
	if failed {
		return errCompile
	}
	return nil
}

func (c *compiler) dumpOne(in, src string, opts options) error {
	if opts.tokens {
		tokens, diag := qython.Tokens(in, src)
		if diag != nil {
			c.diags.Print(diag, position.NewSourceFile(in, src))
			return errCompile
		}
		for _, tok := range tokens {
			fmt.Fprintf(c.stdout, "%d:%d\t%s\t%q\n", tok.Pos.Line, tok.Pos.Column, tok.Type, tok.Literal)
		}
	}

	if opts.surface {
		program, diag := qython.Parse(in, src)
		if diag != nil {
			c.diags.Print(diag, position.NewSourceFile(in, src))
			return errCompile
		}
		fmt.Fprint(c.stdout, ast.Dump(program))
	}

	if opts.canonical {
		program, diag := qython.Desugar(in, src)
		if diag != nil {
			c.diags.Print(diag, position.NewSourceFile(in, src))
			return errCompile
		}
		fmt.Fprint(c.stdout, ast.Dump(program))
	}
	return nil
}

// watch recompiles inputs as they change until ctx is done.
func (c *compiler) watch(ctx context.Context, inputs []string) error {
	w, err := watch.New(inputs...)
	if err != nil {
		return err
	}
	defer w.Close()

	c.log.Infof("watching %d file(s)", len(inputs))
	return w.Run(ctx, func(path string) {
		in, ok := c.inputs[path]
		if !ok {
			return
		}
		c.log.Debugf("%s changed", in)
		_ = c.compile(in)
	})
}
