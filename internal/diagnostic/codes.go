package diagnostic

import (
	"github.com/qython-lang/qython/internal/position"
)

// Diagnostic codes. The leading digit selects the kind.
const (
	CodeIllegalChar        = "E1001"
	CodeMalformedNumber    = "E1002"
	CodeUnterminatedString = "E1003"
	CodeMixedIndent        = "E1004"
	CodeUnmatchedDedent    = "E1005"

	CodeUnexpectedToken   = "E2001"
	CodeUnsupported       = "E2002"
	CodeChainedCompare    = "E2003"
	CodeInvalidTarget     = "E2004"
	CodeMalformedExtended = "E2005"

	CodeShadowedBuiltin = "E3001"
	CodeReservedWord    = "E3002"

	CodeStepArity        = "E4001"
	CodeMissingRebind    = "E4002"
	CodeEmptyState       = "E4003"
	CodeEscapingName     = "E4004"
	CodeReturnInBlock    = "E4005"
	CodeUnknownStep      = "E4006"
	CodeReduceArity      = "E4007"
	CodeRangeArgs        = "E4008"
	CodeTooManyParams    = "E4009"
	CodeBadKeyword       = "E4010"
	CodeRecordArity      = "E4011"
	CodeNestedRecursion  = "E4012"
	CodeDuplicateFunc    = "E4013"
	CodeConvergeArgs     = "E4014"
	CodeDuplicateParam   = "E4015"
	CodeIndexOutOfRecord = "E4016"
	CodeOuterRebind      = "E4017"
	CodeBuiltinValue     = "E4018"
	CodeNegativeIndex    = "E4019"

	CodeInvalidConfig = "E5001"

	CodeInternal = "E9001"
	CodeNoRule   = "E9002"
)

// CommonDiagnostics provides constructors for frequently raised diagnostics.
type CommonDiagnostics struct{}

// Common is the shared constructor set.
var Common CommonDiagnostics

// UnexpectedToken reports a token outside the grammar together with the
// tokens that would have been accepted.
func (cd CommonDiagnostics) UnexpectedToken(pos position.Position, actual string, expected ...string) *Diagnostic {
	return NewDiagnostic().
		Syntax().
		Code(CodeUnexpectedToken).
		Message("unexpected %s", actual).
		At(pos).
		Expect(expected...).
		Build()
}

// Unsupported reports a construct the restricted grammar rejects.
func (cd CommonDiagnostics) Unsupported(pos position.Position, construct string, expected ...string) *Diagnostic {
	return NewDiagnostic().
		Syntax().
		Code(CodeUnsupported).
		Message("%s is not supported", construct).
		At(pos).
		Expect(expected...).
		Build()
}

// ShadowedBuiltin reports a user binding that collides with a builtin name.
func (cd CommonDiagnostics) ShadowedBuiltin(pos position.Position, what, name string) *Diagnostic {
	return NewDiagnostic().
		NameConflict().
		Code(CodeShadowedBuiltin).
		Message("%s %q shadows the builtin %s", what, name, name).
		At(pos).
		Build()
}

// ReservedWord reports a user binding that q would refuse to assign.
func (cd CommonDiagnostics) ReservedWord(pos position.Position, what, name string) *Diagnostic {
	return NewDiagnostic().
		NameConflict().
		Code(CodeReservedWord).
		Message("%s %q is a reserved word in q", what, name).
		At(pos).
		Build()
}

// Semantic reports a shape violation found while desugaring.
func (cd CommonDiagnostics) Semantic(pos position.Position, code, format string, args ...any) *Diagnostic {
	return NewDiagnostic().
		Semantic().
		Code(code).
		Message(format, args...).
		At(pos).
		Build()
}

// NoRule reports a canonical node the code generator has no emission rule for.
func (cd CommonDiagnostics) NoRule(pos position.Position, kind string) *Diagnostic {
	return NewDiagnostic().
		Internal().
		Code(CodeNoRule).
		Message("no emission rule for %s node", kind).
		At(pos).
		Build()
}

// InvalidConfig reports compilation settings the code generator cannot
// honour. It carries no position.
func (cd CommonDiagnostics) InvalidConfig(err error) *Diagnostic {
	return NewDiagnostic().
		Config().
		Code(CodeInvalidConfig).
		Message("%v", err).
		Build()
}
