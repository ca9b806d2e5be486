// Package ast defines the Qython syntax tree. The parser produces surface
// nodes; the desugarer replaces the extension forms (RepeatStmt,
// ConvergeStmt and calls to converge, reduce and range) with canonical
// nodes, and the code generator reads only the canonical set.
package ast

import (
	"fmt"
	"strings"

	"github.com/qython-lang/qython/internal/position"
)

// Kind names a node type. The code generator keys its emission table on it.
type Kind string

const (
	KindProgram       Kind = "Program"
	KindFunctionDef   Kind = "FunctionDef"
	KindAssign        Kind = "Assign"
	KindDestructure   Kind = "Destructure"
	KindIf            Kind = "If"
	KindWhile         Kind = "While"
	KindReturn        Kind = "Return"
	KindExprStmt      Kind = "ExprStmt"
	KindRaise         Kind = "Raise"
	KindRepeatStmt    Kind = "RepeatStmt"
	KindConvergeStmt  Kind = "ConvergeStmt"
	KindName          Kind = "Name"
	KindNumber        Kind = "Number"
	KindString        Kind = "String"
	KindBool          Kind = "Bool"
	KindNone          Kind = "None"
	KindList          Kind = "List"
	KindBinaryOp      Kind = "BinaryOp"
	KindUnaryOp       Kind = "UnaryOp"
	KindCall          Kind = "Call"
	KindKeyword       Kind = "Keyword"
	KindIndex         Kind = "Index"
	KindLambda        Kind = "Lambda"
	KindBoundedRepeat Kind = "BoundedRepeat"
	KindConvergeOp    Kind = "ConvergeOp"
	KindReduceOp      Kind = "ReduceOp"
	KindRangeOp       Kind = "RangeOp"
)

// Node represents the base interface for all AST nodes
type Node interface {
	// GetPos returns the source position the node starts at
	GetPos() position.Position
	// Kind returns the node type tag
	Kind() Kind
	// String returns a short description of the node
	String() string
}

// Statement represents all statement nodes
type Statement interface {
	Node
	statementNode()
}

// Expression represents all expression nodes
type Expression interface {
	Node
	expressionNode()
}

// ====== Program and definitions ======

// Program represents the root of the AST
type Program struct {
	Functions []*FunctionDef
	Pos       position.Position
}

func (p *Program) GetPos() position.Position { return p.Pos }
func (p *Program) Kind() Kind                { return KindProgram }
func (p *Program) String() string            { return "Program" }

// FunctionDef is a named definition. Top-level definitions have no
// captures; a nested definition lists the enclosing names it reads.
type FunctionDef struct {
	Name      string
	Docstring string
	Params    []string
	Captures  []string
	Body      []Statement
	Pos       position.Position
}

func (f *FunctionDef) GetPos() position.Position { return f.Pos }
func (f *FunctionDef) Kind() Kind                { return KindFunctionDef }
func (f *FunctionDef) String() string {
	if len(f.Captures) > 0 {
		return fmt.Sprintf("def %s[%s](%s)", f.Name, strings.Join(f.Captures, ", "), strings.Join(f.Params, ", "))
	}
	return fmt.Sprintf("def %s(%s)", f.Name, strings.Join(f.Params, ", "))
}
func (f *FunctionDef) statementNode() {}

// ====== Statements ======

// Assign binds Value to the name Target.
type Assign struct {
	Value  Expression
	Target string
	Pos    position.Position
}

func (a *Assign) GetPos() position.Position { return a.Pos }
func (a *Assign) Kind() Kind                { return KindAssign }
func (a *Assign) String() string            { return fmt.Sprintf("Assign %s", a.Target) }
func (a *Assign) statementNode()            {}

// Destructure unpacks a fixed-arity record into Names, in order.
type Destructure struct {
	Value Expression
	Names []string
	Pos   position.Position
}

func (d *Destructure) GetPos() position.Position { return d.Pos }
func (d *Destructure) Kind() Kind                { return KindDestructure }
func (d *Destructure) String() string {
	return fmt.Sprintf("Destructure %s", strings.Join(d.Names, ", "))
}
func (d *Destructure) statementNode() {}

// If runs Body when Cond holds. There is no alternative branch.
type If struct {
	Cond Expression
	Body []Statement
	Pos  position.Position
}

func (i *If) GetPos() position.Position { return i.Pos }
func (i *If) Kind() Kind                { return KindIf }
func (i *If) String() string            { return "If" }
func (i *If) statementNode()            {}

// While represents a while loop
type While struct {
	Cond Expression
	Body []Statement
	Pos  position.Position
}

func (w *While) GetPos() position.Position { return w.Pos }
func (w *While) Kind() Kind                { return KindWhile }
func (w *While) String() string            { return "While" }
func (w *While) statementNode()            {}

// Return represents a return statement. Value is nil for a bare return.
type Return struct {
	Value Expression
	Pos   position.Position
}

func (r *Return) GetPos() position.Position { return r.Pos }
func (r *Return) Kind() Kind                { return KindReturn }
func (r *Return) String() string            { return "Return" }
func (r *Return) statementNode()            {}

// ExprStmt represents an expression used as a statement
type ExprStmt struct {
	X   Expression
	Pos position.Position
}

func (e *ExprStmt) GetPos() position.Position { return e.Pos }
func (e *ExprStmt) Kind() Kind                { return KindExprStmt }
func (e *ExprStmt) String() string            { return "ExprStmt" }
func (e *ExprStmt) statementNode()            {}

// Raise signals an error carrying Message.
type Raise struct {
	Message Expression
	Pos     position.Position
}

func (r *Raise) GetPos() position.Position { return r.Pos }
func (r *Raise) Kind() Kind                { return KindRaise }
func (r *Raise) String() string            { return "Raise" }
func (r *Raise) statementNode()            {}

// RepeatStmt is the surface form `do N times:`.
type RepeatStmt struct {
	Count Expression
	Body  []Statement
	Pos   position.Position
}

func (r *RepeatStmt) GetPos() position.Position { return r.Pos }
func (r *RepeatStmt) Kind() Kind                { return KindRepeatStmt }
func (r *RepeatStmt) String() string            { return "RepeatStmt" }
func (r *RepeatStmt) statementNode()            {}

// ConvergeStmt is the surface form `converge on V starting from E:`.
type ConvergeStmt struct {
	Start Expression
	Var   string
	Body  []Statement
	Pos   position.Position
}

func (c *ConvergeStmt) GetPos() position.Position { return c.Pos }
func (c *ConvergeStmt) Kind() Kind                { return KindConvergeStmt }
func (c *ConvergeStmt) String() string            { return fmt.Sprintf("ConvergeStmt on %s", c.Var) }
func (c *ConvergeStmt) statementNode()            {}

// ====== Expressions ======

// Name is an identifier reference
type Name struct {
	Value string
	Pos   position.Position
}

func (n *Name) GetPos() position.Position { return n.Pos }
func (n *Name) Kind() Kind                { return KindName }
func (n *Name) String() string            { return fmt.Sprintf("Name %s", n.Value) }
func (n *Name) expressionNode()           {}

// Number keeps the literal text as written.
type Number struct {
	Literal string
	IsFloat bool
	Pos     position.Position
}

func (n *Number) GetPos() position.Position { return n.Pos }
func (n *Number) Kind() Kind                { return KindNumber }
func (n *Number) String() string            { return fmt.Sprintf("Number %s", n.Literal) }
func (n *Number) expressionNode()           {}

// String holds the decoded string value.
type String struct {
	Value string
	Pos   position.Position
}

func (s *String) GetPos() position.Position { return s.Pos }
func (s *String) Kind() Kind                { return KindString }
func (s *String) String() string            { return fmt.Sprintf("String %q", s.Value) }
func (s *String) expressionNode()           {}

type Bool struct {
	Value bool
	Pos   position.Position
}

func (b *Bool) GetPos() position.Position { return b.Pos }
func (b *Bool) Kind() Kind                { return KindBool }
func (b *Bool) String() string            { return fmt.Sprintf("Bool %t", b.Value) }
func (b *Bool) expressionNode()           {}

type None struct {
	Pos position.Position
}

func (n *None) GetPos() position.Position { return n.Pos }
func (n *None) Kind() Kind                { return KindNone }
func (n *None) String() string            { return "None" }
func (n *None) expressionNode()           {}

// List is a list literal. It also models fixed-arity loop state records.
type List struct {
	Elements []Expression
	Pos      position.Position
}

func (l *List) GetPos() position.Position { return l.Pos }
func (l *List) Kind() Kind                { return KindList }
func (l *List) String() string            { return fmt.Sprintf("List[%d]", len(l.Elements)) }
func (l *List) expressionNode()           {}

// BinaryOp carries the surface operator spelling ("+", "//", "and", ...).
type BinaryOp struct {
	Left  Expression
	Right Expression
	Op    string
	Pos   position.Position
}

func (b *BinaryOp) GetPos() position.Position { return b.Pos }
func (b *BinaryOp) Kind() Kind                { return KindBinaryOp }
func (b *BinaryOp) String() string            { return fmt.Sprintf("BinaryOp %s", b.Op) }
func (b *BinaryOp) expressionNode()           {}

// UnaryOp is "-", "+" or "not".
type UnaryOp struct {
	Operand Expression
	Op      string
	Pos     position.Position
}

func (u *UnaryOp) GetPos() position.Position { return u.Pos }
func (u *UnaryOp) Kind() Kind                { return KindUnaryOp }
func (u *UnaryOp) String() string            { return fmt.Sprintf("UnaryOp %s", u.Op) }
func (u *UnaryOp) expressionNode()           {}

// Call applies Func to positional Args and keyword arguments.
type Call struct {
	Func   Expression
	Args   []Expression
	Kwargs []*Keyword
	Pos    position.Position
}

func (c *Call) GetPos() position.Position { return c.Pos }
func (c *Call) Kind() Kind                { return KindCall }
func (c *Call) String() string {
	if n, ok := c.Func.(*Name); ok {
		return fmt.Sprintf("Call %s", n.Value)
	}
	return "Call"
}
func (c *Call) expressionNode() {}

// Callee returns the called name, or "" when the callee is not a plain name.
func (c *Call) Callee() string {
	if n, ok := c.Func.(*Name); ok {
		return n.Value
	}
	return ""
}

// Keyword is a `name=value` call argument.
type Keyword struct {
	Value Expression
	Name  string
	Pos   position.Position
}

func (k *Keyword) GetPos() position.Position { return k.Pos }
func (k *Keyword) Kind() Kind                { return KindKeyword }
func (k *Keyword) String() string            { return fmt.Sprintf("Keyword %s", k.Name) }

// Index is a subscript `Target[Index]`.
type Index struct {
	Target Expression
	Index  Expression
	Pos    position.Position
}

func (i *Index) GetPos() position.Position { return i.Pos }
func (i *Index) Kind() Kind                { return KindIndex }
func (i *Index) String() string            { return "Index" }
func (i *Index) expressionNode()           {}

// ====== Canonical extension nodes ======

// Lambda is a synthesized step function. Captures are passed first and
// bound by projection; Result is the value the lambda yields.
type Lambda struct {
	Result   Expression
	Captures []string
	Params   []string
	Body     []Statement
	Pos      position.Position
}

func (l *Lambda) GetPos() position.Position { return l.Pos }
func (l *Lambda) Kind() Kind                { return KindLambda }
func (l *Lambda) String() string {
	return fmt.Sprintf("Lambda [%s](%s)", strings.Join(l.Captures, ", "), strings.Join(l.Params, ", "))
}
func (l *Lambda) expressionNode() {}

// BoundedRepeat applies Step exactly Count times starting from Seed.
type BoundedRepeat struct {
	Count Expression
	Step  *Lambda
	Seed  Expression
	Pos   position.Position
}

func (b *BoundedRepeat) GetPos() position.Position { return b.Pos }
func (b *BoundedRepeat) Kind() Kind                { return KindBoundedRepeat }
func (b *BoundedRepeat) String() string            { return "BoundedRepeat" }
func (b *BoundedRepeat) expressionNode()           {}

// ConvergeOp iterates Step from Start until a fixed point is reached. Step
// is either a *Lambda or a *Name referring to a one-parameter function.
type ConvergeOp struct {
	Step  Expression
	Start Expression
	Pos   position.Position
}

func (c *ConvergeOp) GetPos() position.Position { return c.Pos }
func (c *ConvergeOp) Kind() Kind                { return KindConvergeOp }
func (c *ConvergeOp) String() string            { return "ConvergeOp" }
func (c *ConvergeOp) expressionNode()           {}

// ReduceOp is a left fold of Func over Iterable, seeded by Init when set.
type ReduceOp struct {
	Func     Expression
	Iterable Expression
	Init     Expression
	Pos      position.Position
}

func (r *ReduceOp) GetPos() position.Position { return r.Pos }
func (r *ReduceOp) Kind() Kind                { return KindReduceOp }
func (r *ReduceOp) String() string            { return "ReduceOp" }
func (r *ReduceOp) expressionNode()           {}

// RangeOp yields the integers Start (default 0) up to, not including, Stop.
type RangeOp struct {
	Start Expression
	Stop  Expression
	Pos   position.Position
}

func (r *RangeOp) GetPos() position.Position { return r.Pos }
func (r *RangeOp) Kind() Kind                { return KindRangeOp }
func (r *RangeOp) String() string            { return "RangeOp" }
func (r *RangeOp) expressionNode()           {}
