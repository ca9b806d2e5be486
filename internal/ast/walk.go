package ast

import (
	"strings"
)

// Children returns the direct child nodes of node in source order.
func Children(node Node) []Node {
	var out []Node

	add := func(nodes ...Node) {
		for _, n := range nodes {
			if n != nil {
				out = append(out, n)
			}
		}
	}
	addStmts := func(stmts []Statement) {
		for _, s := range stmts {
			add(s)
		}
	}
	addExprs := func(exprs []Expression) {
		for _, e := range exprs {
			add(e)
		}
	}

	switch n := node.(type) {
	case *Program:
		for _, fn := range n.Functions {
			add(fn)
		}
	case *FunctionDef:
		addStmts(n.Body)
	case *Assign:
		add(n.Value)
	case *Destructure:
		add(n.Value)
	case *If:
		add(n.Cond)
		addStmts(n.Body)
	case *While:
		add(n.Cond)
		addStmts(n.Body)
	case *Return:
		add(n.Value)
	case *ExprStmt:
		add(n.X)
	case *Raise:
		add(n.Message)
	case *RepeatStmt:
		add(n.Count)
		addStmts(n.Body)
	case *ConvergeStmt:
		add(n.Start)
		addStmts(n.Body)
	case *List:
		addExprs(n.Elements)
	case *BinaryOp:
		add(n.Left, n.Right)
	case *UnaryOp:
		add(n.Operand)
	case *Call:
		add(n.Func)
		addExprs(n.Args)
		for _, kw := range n.Kwargs {
			add(kw)
		}
	case *Keyword:
		add(n.Value)
	case *Index:
		add(n.Target, n.Index)
	case *Lambda:
		addStmts(n.Body)
		add(n.Result)
	case *BoundedRepeat:
		add(n.Count)
		if n.Step != nil {
			add(n.Step)
		}
		add(n.Seed)
	case *ConvergeOp:
		add(n.Step, n.Start)
	case *ReduceOp:
		add(n.Func, n.Init, n.Iterable)
	case *RangeOp:
		add(n.Start, n.Stop)
	}

	return out
}

// Inspect traverses the tree depth-first, calling f for each node. When f
// returns false the children of that node are skipped.
func Inspect(node Node, f func(Node) bool) {
	if node == nil || !f(node) {
		return
	}
	for _, child := range Children(node) {
		Inspect(child, f)
	}
}

// Dump returns an indented rendering of the tree, one node per line.
func Dump(node Node) string {
	printer := &astPrinter{}
	printer.print(node)
	return printer.out.String()
}

type astPrinter struct {
	out    strings.Builder
	indent int
}

func (p *astPrinter) print(node Node) {
	if node == nil {
		p.out.WriteString(strings.Repeat("  ", p.indent))
		p.out.WriteString("<nil>\n")
		return
	}

	p.out.WriteString(strings.Repeat("  ", p.indent))
	p.out.WriteString(node.String())
	p.out.WriteString("\n")

	p.indent++
	for _, child := range Children(node) {
		p.print(child)
	}
	p.indent--
}
