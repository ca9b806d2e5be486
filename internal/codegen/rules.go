package codegen

import (
	"fmt"
	"strings"

	"github.com/qython-lang/qython/internal/ast"
)

// binaryOps maps surface operators to q. Word operators carry their spaces.
var binaryOps = map[string]string{
	"+":   "+",
	"-":   "-",
	"*":   "*",
	"/":   "%",
	"//":  " div ",
	"%":   " mod ",
	"**":  " xexp ",
	"==":  "=",
	"!=":  "<>",
	"<":   "<",
	"<=":  "<=",
	">":   ">",
	">=":  ">=",
	"and": "&",
	"or":  "|",
}

// precedence is the surface binding strength, used only to decide where
// parentheses make the right-to-left q reading match the source.
func precedence(op string) int {
	switch op {
	case "or":
		return 1
	case "and":
		return 2
	case "==", "!=", "<", "<=", ">", ">=":
		return 4
	case "+", "-":
		return 5
	case "*", "/", "//", "%":
		return 6
	case "**":
		return 8
	}
	return 0
}

// ====== Expressions ======

func emitName(g *generator, e ast.Expression) string {
	return e.(*ast.Name).Value
}

// q only reads a lowercase exponent marker.
func emitNumber(g *generator, e ast.Expression) string {
	return strings.Replace(e.(*ast.Number).Literal, "E", "e", 1)
}

func emitString(g *generator, e ast.Expression) string {
	s := e.(*ast.String).Value
	if len([]rune(s)) == 1 {
		return "enlist " + quote(s)
	}
	return quote(s)
}

func emitBool(g *generator, e ast.Expression) string {
	if e.(*ast.Bool).Value {
		return "1b"
	}
	return "0b"
}

func emitNone(g *generator, e ast.Expression) string {
	return "(::)"
}

func emitList(g *generator, e ast.Expression) string {
	elems := e.(*ast.List).Elements
	switch len(elems) {
	case 0:
		return "()"
	case 1:
		return "enlist " + g.expr(elems[0])
	}
	return "(" + g.exprs(elems) + ")"
}

func emitBinaryOp(g *generator, e ast.Expression) string {
	n := e.(*ast.BinaryOp)
	op, ok := binaryOps[n.Op]
	if !ok {
		return g.noRule(n, "BinaryOp "+n.Op)
	}
	return g.left(n.Left) + op + g.right(n.Right, n.Op)
}

func emitUnaryOp(g *generator, e ast.Expression) string {
	n := e.(*ast.UnaryOp)
	switch n.Op {
	case "-":
		return "neg " + g.expr(n.Operand)
	case "not":
		return "not " + g.expr(n.Operand)
	case "+":
		return g.expr(n.Operand)
	}
	return g.noRule(n, "UnaryOp "+n.Op)
}

func emitCall(g *generator, e ast.Expression) string {
	n := e.(*ast.Call)

	name := n.Callee()
	switch name {
	case "converge", "reduce", "range":
		return g.noRule(n, "Call "+name)
	}
	if len(n.Kwargs) > 0 {
		return g.noRule(n.Kwargs[0], "Keyword")
	}

	if fn, ok := GetBuiltinFunction(name); ok {
		if fn.Aggregate && len(n.Args) > 1 {
			return fn.QName + "(" + g.exprs(n.Args) + ")"
		}
		return fn.QName + "[" + g.exprs(n.Args) + "]"
	}
	return g.left(n.Func) + "[" + g.exprs(n.Args) + "]"
}

func emitIndex(g *generator, e ast.Expression) string {
	n := e.(*ast.Index)
	return g.left(n.Target) + "[" + g.expr(n.Index) + "]"
}

func emitLambda(g *generator, e ast.Expression) string {
	n := e.(*ast.Lambda)

	parts := make([]string, 0, len(n.Body)+1)
	for _, s := range n.Body {
		parts = append(parts, g.stmt(s))
	}
	parts = append(parts, g.expr(n.Result))

	all := append(append([]string{}, n.Captures...), n.Params...)
	return project("{"+params(all)+" "+strings.Join(parts, ";")+"}", n.Captures)
}

func emitBoundedRepeat(g *generator, e ast.Expression) string {
	n := e.(*ast.BoundedRepeat)
	return g.expr(n.Step) + "/[" + g.expr(n.Count) + ";" + g.expr(n.Seed) + "]"
}

func emitConvergeOp(g *generator, e ast.Expression) string {
	n := e.(*ast.ConvergeOp)
	return ".qy.converge[" + g.expr(n.Step) + ";" + g.expr(n.Start) + "]"
}

func emitReduceOp(g *generator, e ast.Expression) string {
	n := e.(*ast.ReduceOp)
	if n.Init != nil {
		return g.left(n.Func) + "/[" + g.expr(n.Init) + ";" + g.expr(n.Iterable) + "]"
	}
	return g.left(n.Func) + "/[" + g.expr(n.Iterable) + "]"
}

func emitRangeOp(g *generator, e ast.Expression) string {
	n := e.(*ast.RangeOp)
	if n.Start == nil {
		return "til " + g.expr(n.Stop)
	}
	return g.left(n.Start) + "+til " + g.left(n.Stop) + "-" + g.right(n.Start, "-")
}

func (g *generator) exprs(list []ast.Expression) string {
	parts := make([]string, len(list))
	for i, e := range list {
		parts[i] = g.expr(e)
	}
	return strings.Join(parts, ";")
}

// left parenthesizes an operand that q would otherwise extend rightwards.
func (g *generator) left(e ast.Expression) string {
	if atomic(e) {
		return g.expr(e)
	}
	return "(" + g.expr(e) + ")"
}

// right parenthesizes a binary operand that binds no tighter than op.
func (g *generator) right(e ast.Expression, op string) string {
	if b, ok := e.(*ast.BinaryOp); ok && precedence(b.Op) <= precedence(op) {
		return "(" + g.expr(e) + ")"
	}
	return g.expr(e)
}

// atomic reports whether e renders as a single q noun.
func atomic(e ast.Expression) bool {
	switch n := e.(type) {
	case *ast.Name, *ast.Number, *ast.Bool, *ast.Call, *ast.Index,
		*ast.ConvergeOp, *ast.ReduceOp, *ast.BoundedRepeat, *ast.Lambda:
		return true
	case *ast.String:
		return len([]rune(n.Value)) != 1
	case *ast.List:
		return len(n.Elements) != 1
	}
	return false
}

// quote renders s as a q string literal.
func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if c < 0x20 || c == 0x7f {
				fmt.Fprintf(&b, `\%03o`, c)
			} else {
				b.WriteByte(c)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}

// ====== Statements ======

func emitAssign(g *generator, s ast.Statement) string {
	n := s.(*ast.Assign)
	return n.Target + ":" + g.expr(n.Value)
}

func emitDestructure(g *generator, s ast.Statement) string {
	n := s.(*ast.Destructure)
	value := g.left(n.Value)

	if g.pattern {
		return "(" + strings.Join(n.Names, ";") + "):" + value
	}

	parts := make([]string, len(n.Names))
	for i, name := range n.Names {
		parts[i] = fmt.Sprintf("%s:%s %d", name, value, i)
	}
	return strings.Join(parts, ";")
}

// emitIf never merges conditionals; each gets an explicit null alternative.
func emitIf(g *generator, s ast.Statement) string {
	n := s.(*ast.If)
	return "$[" + g.expr(n.Cond) + ";[" + g.block(n.Body) + "];::]"
}

func emitWhile(g *generator, s ast.Statement) string {
	n := s.(*ast.While)
	return "while[" + g.expr(n.Cond) + ";" + g.block(n.Body) + "]"
}

// emitReturn handles returns outside tail position as an early exit.
func emitReturn(g *generator, s ast.Statement) string {
	n := s.(*ast.Return)
	if n.Value == nil {
		return ":(::)"
	}
	return ":" + g.expr(n.Value)
}

func emitExprStmt(g *generator, s ast.Statement) string {
	return g.expr(s.(*ast.ExprStmt).X)
}

func emitRaise(g *generator, s ast.Statement) string {
	n := s.(*ast.Raise)
	if msg, ok := n.Message.(*ast.String); ok && len([]rune(msg.Value)) != 1 {
		return "'" + quote(msg.Value)
	}
	return "'" + g.left(n.Message)
}

func emitNestedDef(g *generator, s ast.Statement) string {
	n := s.(*ast.FunctionDef)
	all := append(append([]string{}, n.Captures...), n.Params...)
	return n.Name + ":" + project("{"+params(all)+" "+g.inline(n.Body)+"}", n.Captures)
}
