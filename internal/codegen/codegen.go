// Package codegen emits q source text for a desugared program. Emission is
// table driven: every canonical node kind has exactly one rule, and a node
// without a rule is reported as an internal error.
package codegen

import (
	"strings"

	"github.com/qython-lang/qython/internal/ast"
	"github.com/qython-lang/qython/internal/config"
	"github.com/qython-lang/qython/internal/diagnostic"
)

type (
	exprRule func(g *generator, e ast.Expression) string
	stmtRule func(g *generator, s ast.Statement) string
)

var (
	exprRules map[ast.Kind]exprRule
	stmtRules map[ast.Kind]stmtRule
)

func init() {
	exprRules = map[ast.Kind]exprRule{
		ast.KindName:          emitName,
		ast.KindNumber:        emitNumber,
		ast.KindString:        emitString,
		ast.KindBool:          emitBool,
		ast.KindNone:          emitNone,
		ast.KindList:          emitList,
		ast.KindBinaryOp:      emitBinaryOp,
		ast.KindUnaryOp:       emitUnaryOp,
		ast.KindCall:          emitCall,
		ast.KindIndex:         emitIndex,
		ast.KindLambda:        emitLambda,
		ast.KindBoundedRepeat: emitBoundedRepeat,
		ast.KindConvergeOp:    emitConvergeOp,
		ast.KindReduceOp:      emitReduceOp,
		ast.KindRangeOp:       emitRangeOp,
	}

	stmtRules = map[ast.Kind]stmtRule{
		ast.KindAssign:      emitAssign,
		ast.KindDestructure: emitDestructure,
		ast.KindIf:          emitIf,
		ast.KindWhile:       emitWhile,
		ast.KindReturn:      emitReturn,
		ast.KindExprStmt:    emitExprStmt,
		ast.KindRaise:       emitRaise,
		ast.KindFunctionDef: emitNestedDef,
	}
}

type generator struct {
	indent  string
	pattern bool // (a;b):x unpacking is available
	err     *diagnostic.Diagnostic
}

// Generate renders program as q. The converge prelude is written once,
// ahead of the first definition, when the program uses converge and
// cfg.Prelude is set.
func Generate(program *ast.Program, cfg config.Config) (string, *diagnostic.Diagnostic) {
	if cfg.Indent == "" {
		cfg.Indent = config.DefaultIndent
	}
	g := &generator{indent: cfg.Indent, pattern: cfg.PatternAssign()}

	var parts []string
	if cfg.Prelude && usesConverge(program) {
		parts = append(parts, GeneratePrelude(cfg))
	}
	for _, fn := range program.Functions {
		parts = append(parts, g.function(fn))
		if g.err != nil {
			return "", g.err
		}
	}

	return strings.Join(parts, "\n"), nil
}

func usesConverge(program *ast.Program) bool {
	found := false
	ast.Inspect(program, func(n ast.Node) bool {
		if n.Kind() == ast.KindConvergeOp {
			found = true
		}
		return !found
	})
	return found
}

func (g *generator) fail(diag *diagnostic.Diagnostic) {
	if g.err == nil {
		g.err = diag
	}
}

func (g *generator) noRule(n ast.Node, what string) string {
	g.fail(diagnostic.Common.NoRule(n.GetPos(), what))
	return ""
}

func (g *generator) expr(e ast.Expression) string {
	if g.err != nil {
		return ""
	}
	rule, ok := exprRules[e.Kind()]
	if !ok {
		return g.noRule(e, string(e.Kind()))
	}
	return rule(g, e)
}

func (g *generator) stmt(s ast.Statement) string {
	if g.err != nil {
		return ""
	}
	rule, ok := stmtRules[s.Kind()]
	if !ok {
		return g.noRule(s, string(s.Kind()))
	}
	return rule(g, s)
}

// function renders a top-level definition over several lines. q requires
// continuation lines, including the closing brace, to be indented.
func (g *generator) function(fn *ast.FunctionDef) string {
	lines, result := g.body(fn.Body)

	var b strings.Builder
	b.WriteString(fn.Name + ":{" + params(fn.Params) + "\n")
	for i, line := range lines {
		b.WriteString(g.indent + line)
		if i < len(lines)-1 || !result {
			b.WriteString(";")
		}
		b.WriteString("\n")
	}
	b.WriteString(g.indent + "}\n")

	return b.String()
}

// body renders a lambda body. A final return becomes the bare result
// expression; otherwise every statement is terminated and the lambda
// yields the generic null.
func (g *generator) body(stmts []ast.Statement) (lines []string, result bool) {
	if len(stmts) == 0 {
		return []string{"(::)"}, true
	}

	for i, s := range stmts {
		if ret, ok := s.(*ast.Return); ok && i == len(stmts)-1 {
			if ret.Value == nil {
				return append(lines, "(::)"), true
			}
			return append(lines, g.expr(ret.Value)), true
		}
		lines = append(lines, g.stmt(s))
	}
	return lines, false
}

// inline renders a lambda body on one line.
func (g *generator) inline(stmts []ast.Statement) string {
	lines, result := g.body(stmts)
	text := strings.Join(lines, ";")
	if !result {
		text += ";"
	}
	return text
}

// block renders statements nested in a conditional or loop.
func (g *generator) block(stmts []ast.Statement) string {
	lines := make([]string, len(stmts))
	for i, s := range stmts {
		lines[i] = g.stmt(s)
	}
	return strings.Join(lines, ";")
}

func params(names []string) string {
	return "[" + strings.Join(names, ";") + "]"
}

// project binds captured names by projection.
func project(lambda string, captures []string) string {
	if len(captures) == 0 {
		return lambda
	}
	return lambda + params(captures)
}
