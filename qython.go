// Package qython compiles Qython, a restricted Python-like surface language,
// into q source text for kdb+.
//
// A compilation runs four phases in order: lexing, parsing, desugaring and
// code generation. It produces either the complete q text or exactly one
// diagnostic, never both.
package qython

import (
	"github.com/qython-lang/qython/internal/ast"
	"github.com/qython-lang/qython/internal/codegen"
	"github.com/qython-lang/qython/internal/config"
	"github.com/qython-lang/qython/internal/desugar"
	"github.com/qython-lang/qython/internal/diagnostic"
	"github.com/qython-lang/qython/internal/lexer"
	"github.com/qython-lang/qython/internal/parser"
)

// Compile translates src to q text.
func Compile(src string, cfg config.Config) (string, *diagnostic.Diagnostic) {
	return CompileFile("", src, cfg)
}

// CompileFile is Compile with positions reported against filename. An
// invalid cfg is reported as a configuration diagnostic before src is read.
func CompileFile(filename, src string, cfg config.Config) (string, *diagnostic.Diagnostic) {
	if err := cfg.Validate(); err != nil {
		return "", diagnostic.Common.InvalidConfig(err)
	}

	program, diag := Desugar(filename, src)
	if diag != nil {
		return "", diag
	}

	out, diag := codegen.Generate(program, cfg)
	if diag != nil {
		return "", diag
	}
	return out, nil
}

// Tokens runs the lexer alone.
func Tokens(filename, src string) ([]lexer.Token, *diagnostic.Diagnostic) {
	return lexer.Tokenize(src, filename)
}

// Parse returns the surface tree.
func Parse(filename, src string) (*ast.Program, *diagnostic.Diagnostic) {
	return parser.Parse(src, filename)
}

// Desugar returns the canonical tree the code generator consumes.
func Desugar(filename, src string) (*ast.Program, *diagnostic.Diagnostic) {
	program, diag := parser.Parse(src, filename)
	if diag != nil {
		return nil, diag
	}
	return desugar.Desugar(program)
}
