// Diagnostic reporting for the Qython compiler.
// A compilation yields either emitted text or exactly one Diagnostic.

package diagnostic

import (
	"fmt"
	"strings"

	"github.com/qython-lang/qython/internal/position"
)

// Phase identifies the pipeline stage that produced a diagnostic.
type Phase int

const (
	PhaseLex Phase = iota
	PhaseParse
	PhaseDesugar
	PhaseCodegen
	PhaseConfig
)

func (p Phase) String() string {
	switch p {
	case PhaseLex:
		return "lex"
	case PhaseParse:
		return "parse"
	case PhaseDesugar:
		return "desugar"
	case PhaseCodegen:
		return "codegen"
	case PhaseConfig:
		return "config"
	default:
		return "unknown"
	}
}

// Kind represents the category of diagnostic.
type Kind int

const (
	KindLexical Kind = iota
	KindSyntax
	KindNameConflict
	KindSemantic
	KindInternal
	KindConfig
)

func (k Kind) String() string {
	switch k {
	case KindLexical:
		return "lexical error"
	case KindSyntax:
		return "syntax error"
	case KindNameConflict:
		return "name conflict"
	case KindSemantic:
		return "semantic error"
	case KindInternal:
		return "internal error"
	case KindConfig:
		return "configuration error"
	default:
		return "error"
	}
}

// Diagnostic represents a single compilation failure.
type Diagnostic struct {
	Code     string
	Message  string
	Expected []string // tokens that would have been accepted (syntax errors)
	Pos      position.Position
	Phase    Phase
	Kind     Kind
}

// Error implements the error interface.
func (d *Diagnostic) Error() string {
	msg := d.Message
	if len(d.Expected) > 0 {
		msg = fmt.Sprintf("%s (expected %s)", msg, strings.Join(d.Expected, ", "))
	}
	if d.Pos.IsValid() {
		return fmt.Sprintf("%s: %s[%s]: %s", d.Pos, d.Kind, d.Code, msg)
	}
	return fmt.Sprintf("%s[%s]: %s", d.Kind, d.Code, msg)
}

// Format renders the diagnostic with the offending source line and a caret.
func (d *Diagnostic) Format(src *position.SourceFile) string {
	var result strings.Builder

	result.WriteString(fmt.Sprintf("%s (%s phase)\n", d.Error(), d.Phase))
	if src != nil {
		result.WriteString(src.Snippet(d.Pos))
	}

	return result.String()
}

// DiagnosticBuilder helps construct diagnostic messages with fluent API.
type DiagnosticBuilder struct {
	diagnostic *Diagnostic
}

// NewDiagnostic creates a new diagnostic builder.
func NewDiagnostic() *DiagnosticBuilder {
	return &DiagnosticBuilder{diagnostic: &Diagnostic{}}
}

func (db *DiagnosticBuilder) Lexical() *DiagnosticBuilder {
	db.diagnostic.Kind = KindLexical
	db.diagnostic.Phase = PhaseLex

	return db
}

func (db *DiagnosticBuilder) Syntax() *DiagnosticBuilder {
	db.diagnostic.Kind = KindSyntax
	db.diagnostic.Phase = PhaseParse

	return db
}

func (db *DiagnosticBuilder) NameConflict() *DiagnosticBuilder {
	db.diagnostic.Kind = KindNameConflict
	db.diagnostic.Phase = PhaseDesugar

	return db
}

func (db *DiagnosticBuilder) Semantic() *DiagnosticBuilder {
	db.diagnostic.Kind = KindSemantic
	db.diagnostic.Phase = PhaseDesugar

	return db
}

func (db *DiagnosticBuilder) Internal() *DiagnosticBuilder {
	db.diagnostic.Kind = KindInternal
	db.diagnostic.Phase = PhaseCodegen

	return db
}

// Config marks settings rejected before any source is read.
func (db *DiagnosticBuilder) Config() *DiagnosticBuilder {
	db.diagnostic.Kind = KindConfig
	db.diagnostic.Phase = PhaseConfig

	return db
}

// In overrides the phase implied by the kind.
func (db *DiagnosticBuilder) In(phase Phase) *DiagnosticBuilder {
	db.diagnostic.Phase = phase

	return db
}

func (db *DiagnosticBuilder) Code(code string) *DiagnosticBuilder {
	db.diagnostic.Code = code

	return db
}

func (db *DiagnosticBuilder) Message(format string, args ...any) *DiagnosticBuilder {
	db.diagnostic.Message = fmt.Sprintf(format, args...)

	return db
}

func (db *DiagnosticBuilder) At(pos position.Position) *DiagnosticBuilder {
	db.diagnostic.Pos = pos

	return db
}

func (db *DiagnosticBuilder) Expect(expected ...string) *DiagnosticBuilder {
	db.diagnostic.Expected = append(db.diagnostic.Expected, expected...)

	return db
}

func (db *DiagnosticBuilder) Build() *Diagnostic {
	return db.diagnostic
}
