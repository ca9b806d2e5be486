// Package desugar rewrites the surface extensions of a parsed program into
// canonical nodes. `do n times:` becomes a BoundedRepeat, both converge
// notations become a ConvergeOp, and calls to reduce and range become
// ReduceOp and RangeOp. Along the way it resolves which enclosing names each
// synthesized lambda or nested definition captures, since q lambdas do not
// close over locals.
package desugar

import (
	"slices"
	"strconv"

	"github.com/qython-lang/qython/internal/ast"
	"github.com/qython-lang/qython/internal/diagnostic"
	"github.com/qython-lang/qython/internal/position"
)

type desugarer struct {
	globals map[string]int    // top-level functions by arity
	rest    [][]ast.Statement // statements following the current one, per block level
	names   *namer
	err     *diagnostic.Diagnostic
}

// Desugar rewrites program in place and returns it, or the first
// diagnostic encountered.
func Desugar(program *ast.Program) (*ast.Program, *diagnostic.Diagnostic) {
	d := &desugarer{globals: make(map[string]int)}

	for _, fn := range program.Functions {
		if !d.checkName(fn.Pos, "function", fn.Name) {
			return nil, d.err
		}
		if _, dup := d.globals[fn.Name]; dup {
			return nil, diagnostic.Common.Semantic(fn.Pos, diagnostic.CodeDuplicateFunc,
				"function %q is defined more than once", fn.Name)
		}
		d.globals[fn.Name] = len(fn.Params)
	}

	for _, fn := range program.Functions {
		d.function(fn)
		if d.err != nil {
			return nil, d.err
		}
	}

	return program, nil
}

func (d *desugarer) fail(diag *diagnostic.Diagnostic) {
	if d.err == nil {
		d.err = diag
	}
}

func (d *desugarer) semantic(pos position.Position, code, format string, args ...any) {
	d.fail(diagnostic.Common.Semantic(pos, code, format, args...))
}

func (d *desugarer) function(fn *ast.FunctionDef) {
	d.names = newNamer(fn, d.globals)
	d.rest = nil

	if !d.checkParams(fn, nil) {
		return
	}

	sc := newScope(nil)
	sc.bind(fn.Params...)
	fn.Body = d.block(fn.Body, sc)
}

func (d *desugarer) checkParams(fn *ast.FunctionDef, captures []string) bool {
	for i, p := range fn.Params {
		if !d.checkName(fn.Pos, "parameter", p) {
			return false
		}
		if slices.Contains(fn.Params[:i], p) {
			d.semantic(fn.Pos, diagnostic.CodeDuplicateParam,
				"duplicate parameter %q in definition of %s", p, fn.Name)
			return false
		}
	}

	if n := len(captures) + len(fn.Params); n > maxParams {
		d.semantic(fn.Pos, diagnostic.CodeTooManyParams,
			"%s needs %d parameters including captured names, q allows %d", fn.Name, n, maxParams)
		return false
	}
	return true
}

// block desugars stmts in sc. A statement may expand to several.
func (d *desugarer) block(stmts []ast.Statement, sc *scope) []ast.Statement {
	out := make([]ast.Statement, 0, len(stmts))

	for i, stmt := range stmts {
		d.rest = append(d.rest, stmts[i+1:])
		out = append(out, d.statement(stmt, sc)...)
		d.rest = d.rest[:len(d.rest)-1]

		if d.err != nil {
			return nil
		}
	}
	return out
}

func (d *desugarer) statement(stmt ast.Statement, sc *scope) []ast.Statement {
	switch n := stmt.(type) {
	case *ast.Assign:
		n.Value = d.expr(n.Value, sc)
		if d.checkName(n.Pos, "assignment target", n.Target) {
			sc.bind(n.Target)
		}
	case *ast.ExprStmt:
		n.X = d.expr(n.X, sc)
	case *ast.If:
		n.Cond = d.expr(n.Cond, sc)
		n.Body = d.block(n.Body, sc)
	case *ast.While:
		n.Cond = d.expr(n.Cond, sc)
		n.Body = d.block(n.Body, sc)
	case *ast.Return:
		if sc.inBlock != "" {
			d.semantic(n.Pos, diagnostic.CodeReturnInBlock,
				"return inside a %s body would only leave the step function", sc.inBlock)
			break
		}
		if n.Value != nil {
			n.Value = d.expr(n.Value, sc)
		}
	case *ast.Raise:
		n.Message = d.raiseMessage(n.Message, sc)
	case *ast.RepeatStmt:
		return d.repeat(n, sc)
	case *ast.ConvergeStmt:
		return d.convergeStmt(n, sc)
	case *ast.FunctionDef:
		d.nestedDef(n, sc)
	default:
		d.fail(diagnostic.NewDiagnostic().
			Internal().
			In(diagnostic.PhaseDesugar).
			Code(diagnostic.CodeInternal).
			Message("unexpected %s statement", stmt.Kind()).
			At(stmt.GetPos()).
			Build())
	}

	return []ast.Statement{stmt}
}

// raiseMessage reduces `raise E("msg")`, `raise E()` and `raise E` to the
// message signalled. A call to a user function is kept as an expression.
func (d *desugarer) raiseMessage(e ast.Expression, sc *scope) ast.Expression {
	switch n := e.(type) {
	case *ast.Name:
		if _, ok := sc.arity(n.Value, d.globals); !ok && !sc.isBound(n.Value) {
			return &ast.String{Value: n.Value, Pos: n.Pos}
		}
	case *ast.Call:
		name := n.Callee()
		if _, user := sc.arity(name, d.globals); name == "" || user || sc.isBound(name) || builtins[name] {
			break
		}
		if len(n.Kwargs) > 0 {
			d.semantic(n.Kwargs[0].Pos, diagnostic.CodeBadKeyword,
				"keyword argument %q is not supported when raising %s", n.Kwargs[0].Name, name)
			return e
		}
		if len(n.Args) == 0 {
			return &ast.String{Value: name, Pos: n.Pos}
		}
		return d.expr(n.Args[0], sc)
	}
	return d.expr(e, sc)
}

func (d *desugarer) expr(e ast.Expression, sc *scope) ast.Expression {
	switch n := e.(type) {
	case *ast.Name:
		// builtins only exist as callees; q has no value of that name
		if builtins[n.Value] {
			d.semantic(n.Pos, diagnostic.CodeBuiltinValue,
				"builtin %s can only be called, not used as a value", n.Value)
		}
	case *ast.List:
		for i, el := range n.Elements {
			n.Elements[i] = d.expr(el, sc)
		}
	case *ast.BinaryOp:
		n.Left = d.expr(n.Left, sc)
		n.Right = d.expr(n.Right, sc)
	case *ast.UnaryOp:
		n.Operand = d.expr(n.Operand, sc)
	case *ast.Index:
		if i, ok := constIndex(n.Index); ok && i < 0 {
			d.semantic(n.Index.GetPos(), diagnostic.CodeNegativeIndex,
				"negative subscript %d is not supported; q indexes from 0 and yields null", i)
			return e
		}
		n.Target = d.expr(n.Target, sc)
		n.Index = d.expr(n.Index, sc)
	case *ast.Call:
		return d.call(n, sc)
	}
	return e
}

func (d *desugarer) call(c *ast.Call, sc *scope) ast.Expression {
	callee := c.Callee()
	if callee != "" && sc.selves[callee] && !sc.isBound(callee) {
		d.semantic(c.Pos, diagnostic.CodeNestedRecursion,
			"nested function %q calls itself; define it at the top level to recurse", callee)
		return c
	}

	switch callee {
	case "converge":
		return d.convergeCall(c, sc)
	case "reduce":
		return d.reduce(c, sc)
	case "range":
		return d.rangeCall(c, sc)
	}

	if len(c.Kwargs) > 0 {
		d.semantic(c.Kwargs[0].Pos, diagnostic.CodeBadKeyword,
			"keyword argument %q is not supported outside converge", c.Kwargs[0].Name)
		return c
	}

	if _, named := c.Func.(*ast.Name); !named {
		c.Func = d.expr(c.Func, sc)
	}
	for i, arg := range c.Args {
		c.Args[i] = d.expr(arg, sc)
	}
	return c
}

// convergeCall handles converge(step, starting_from=e) and converge(step, e).
func (d *desugarer) convergeCall(c *ast.Call, sc *scope) ast.Expression {
	for _, kw := range c.Kwargs {
		if kw.Name != "starting_from" {
			d.semantic(kw.Pos, diagnostic.CodeBadKeyword,
				"converge does not accept keyword argument %q", kw.Name)
			return c
		}
	}

	var start ast.Expression
	switch {
	case len(c.Args) == 1 && len(c.Kwargs) == 1:
		start = c.Kwargs[0].Value
	case len(c.Args) == 2 && len(c.Kwargs) == 0:
		start = c.Args[1]
	default:
		d.semantic(c.Pos, diagnostic.CodeConvergeArgs,
			"converge takes a step function and a starting value")
		return c
	}

	step, ok := c.Args[0].(*ast.Name)
	if !ok {
		d.semantic(c.Args[0].GetPos(), diagnostic.CodeUnknownStep,
			"converge step must name a function")
		return c
	}
	arity, ok := sc.arity(step.Value, d.globals)
	if !ok {
		d.semantic(step.Pos, diagnostic.CodeUnknownStep,
			"converge step %q is not a function defined in this program", step.Value)
		return c
	}
	if arity != 1 {
		d.semantic(step.Pos, diagnostic.CodeStepArity,
			"converge step %q takes %d parameters, want 1", step.Value, arity)
		return c
	}

	return &ast.ConvergeOp{
		Step:  step,
		Start: d.expr(start, sc),
		Pos:   c.Pos,
	}
}

func (d *desugarer) reduce(c *ast.Call, sc *scope) ast.Expression {
	if len(c.Kwargs) > 0 {
		d.semantic(c.Kwargs[0].Pos, diagnostic.CodeBadKeyword,
			"reduce does not accept keyword argument %q", c.Kwargs[0].Name)
		return c
	}
	if len(c.Args) < 2 || len(c.Args) > 3 {
		d.semantic(c.Pos, diagnostic.CodeReduceArity,
			"reduce takes a function, an iterable and an optional initial value, got %d arguments", len(c.Args))
		return c
	}

	fn, ok := c.Args[0].(*ast.Name)
	if !ok {
		d.semantic(c.Args[0].GetPos(), diagnostic.CodeReduceArity,
			"reduce function must be a name")
		return c
	}
	if arity, user := sc.arity(fn.Value, d.globals); user && arity != 2 {
		d.semantic(fn.Pos, diagnostic.CodeReduceArity,
			"reduce function %q takes %d parameters, want 2", fn.Value, arity)
		return c
	}

	op := &ast.ReduceOp{Func: fn, Iterable: d.expr(c.Args[1], sc), Pos: c.Pos}
	if len(c.Args) == 3 {
		op.Init = d.expr(c.Args[2], sc)
	}
	return op
}

func (d *desugarer) rangeCall(c *ast.Call, sc *scope) ast.Expression {
	if len(c.Kwargs) > 0 {
		d.semantic(c.Kwargs[0].Pos, diagnostic.CodeBadKeyword,
			"range does not accept keyword argument %q", c.Kwargs[0].Name)
		return c
	}

	switch len(c.Args) {
	case 1:
		return &ast.RangeOp{Stop: d.expr(c.Args[0], sc), Pos: c.Pos}
	case 2:
		return &ast.RangeOp{Start: d.expr(c.Args[0], sc), Stop: d.expr(c.Args[1], sc), Pos: c.Pos}
	case 3:
		d.semantic(c.Args[2].GetPos(), diagnostic.CodeRangeArgs, "range step argument is not supported")
	default:
		d.semantic(c.Pos, diagnostic.CodeRangeArgs, "range takes one or two arguments, got %d", len(c.Args))
	}
	return c
}

// repeat lowers `do n times:`. The names the body rebinds that were bound
// before the block are the loop state; one name is threaded as a scalar,
// several as a record that is unpacked again after the loop.
func (d *desugarer) repeat(n *ast.RepeatStmt, sc *scope) []ast.Statement {
	count := d.expr(n.Count, sc)

	var state, locals []string
	for _, name := range assignedNames(n.Body) {
		if sc.isBound(name) {
			state = append(state, name)
		} else {
			locals = append(locals, name)
		}
	}
	if len(state) == 0 {
		d.semantic(n.Pos, diagnostic.CodeEmptyState,
			"do block rebinds no variable bound before it, so it has no effect")
		return nil
	}
	if !d.checkEscapes(n.Pos, "do", locals) {
		return nil
	}

	caps := captures(n.Body, sc, state...)
	if len(caps)+1 > maxParams {
		d.semantic(n.Pos, diagnostic.CodeTooManyParams,
			"do body captures %d names, q allows %d parameters", len(caps), maxParams)
		return nil
	}

	child := newScope(sc)
	child.inBlock = "do"
	child.capture(sc, caps)
	child.bind(state...)

	if len(state) == 1 {
		v := state[0]
		step := &ast.Lambda{
			Captures: caps,
			Params:   []string{v},
			Body:     d.block(n.Body, child),
			Result:   &ast.Name{Value: v, Pos: n.Pos},
			Pos:      n.Pos,
		}
		return []ast.Statement{&ast.Assign{
			Target: v,
			Value: &ast.BoundedRepeat{
				Count: count,
				Step:  step,
				Seed:  &ast.Name{Value: v, Pos: n.Pos},
				Pos:   n.Pos,
			},
			Pos: n.Pos,
		}}
	}

	rec := d.names.fresh("s")
	tmp := d.names.fresh("state")

	body := d.block(n.Body, child)
	step := &ast.Lambda{
		Captures: caps,
		Params:   []string{rec},
		Body: append([]ast.Statement{&ast.Destructure{
			Names: state,
			Value: &ast.Name{Value: rec, Pos: n.Pos},
			Pos:   n.Pos,
		}}, body...),
		Result: nameList(state, n.Pos),
		Pos:    n.Pos,
	}

	sc.bind(tmp)
	return []ast.Statement{
		&ast.Assign{
			Target: tmp,
			Value: &ast.BoundedRepeat{
				Count: count,
				Step:  step,
				Seed:  nameList(state, n.Pos),
				Pos:   n.Pos,
			},
			Pos: n.Pos,
		},
		&ast.Destructure{
			Names: state,
			Value: &ast.Name{Value: tmp, Pos: n.Pos},
			Pos:   n.Pos,
		},
	}
}

// convergeStmt lowers `converge on v starting from e:` to
// v = ConvergeOp(step, e) with a synthesized step over v.
func (d *desugarer) convergeStmt(n *ast.ConvergeStmt, sc *scope) []ast.Statement {
	if !d.checkName(n.Pos, "converge variable", n.Var) {
		return nil
	}
	start := d.expr(n.Start, sc)

	last, ok := n.Body[len(n.Body)-1].(*ast.Assign)
	if !ok || last.Target != n.Var {
		d.semantic(n.Body[len(n.Body)-1].GetPos(), diagnostic.CodeMissingRebind,
			"converge body must rebind %q as its last statement", n.Var)
		return nil
	}

	var locals []string
	for _, name := range assignedNames(n.Body) {
		switch {
		case name == n.Var:
		case sc.isBound(name):
			d.semantic(n.Pos, diagnostic.CodeOuterRebind,
				"converge body rebinds %q from the enclosing function; only %q carries across iterations", name, n.Var)
			return nil
		default:
			locals = append(locals, name)
		}
	}
	if !d.checkEscapes(n.Pos, "converge", locals) {
		return nil
	}

	if arity := recordArity(n.Start); arity > 0 && !d.checkRecord(n, last, arity) {
		return nil
	}

	caps := captures(n.Body, sc, n.Var)
	if len(caps)+1 > maxParams {
		d.semantic(n.Pos, diagnostic.CodeTooManyParams,
			"converge body captures %d names, q allows %d parameters", len(caps), maxParams)
		return nil
	}

	child := newScope(sc)
	child.inBlock = "converge"
	child.capture(sc, caps)
	child.bind(n.Var)

	step := &ast.Lambda{
		Captures: caps,
		Params:   []string{n.Var},
		Body:     d.block(n.Body, child),
		Result:   &ast.Name{Value: n.Var, Pos: n.Pos},
		Pos:      n.Pos,
	}

	sc.bind(n.Var)
	return []ast.Statement{&ast.Assign{
		Target: n.Var,
		Value:  &ast.ConvergeOp{Step: step, Start: start, Pos: n.Pos},
		Pos:    n.Pos,
	}}
}

// checkRecord verifies a converge body keeps the record width of its
// starting list.
func (d *desugarer) checkRecord(n *ast.ConvergeStmt, last *ast.Assign, arity int) bool {
	if list, ok := last.Value.(*ast.List); ok && len(list.Elements) != arity {
		d.semantic(last.Pos, diagnostic.CodeRecordArity,
			"%q is rebound to %d values but starts with %d", n.Var, len(list.Elements), arity)
		return false
	}

	for _, stmt := range n.Body {
		ast.Inspect(stmt, func(node ast.Node) bool {
			ix, ok := node.(*ast.Index)
			if !ok || d.err != nil {
				return d.err == nil
			}
			if target, ok := ix.Target.(*ast.Name); !ok || target.Value != n.Var {
				return true
			}
			if i, ok := constIndex(ix.Index); ok && (i < 0 || i >= arity) {
				d.semantic(ix.Index.GetPos(), diagnostic.CodeIndexOutOfRecord,
					"%s[%d] is outside the %d-value record", n.Var, i, arity)
			}
			return true
		})
	}
	return d.err == nil
}

func (d *desugarer) checkEscapes(pos position.Position, form string, locals []string) bool {
	for _, name := range locals {
		if d.readLater(name) {
			d.semantic(pos, diagnostic.CodeEscapingName,
				"%q is first bound inside a %s body and read after it", name, form)
			return false
		}
	}
	return true
}

// nestedDef resolves the enclosing names a nested definition reads. They
// become leading parameters bound by projection.
func (d *desugarer) nestedDef(fn *ast.FunctionDef, sc *scope) {
	if !d.checkName(fn.Pos, "function", fn.Name) {
		return
	}

	exclude := append(slices.Clone(fn.Params), assignedNames(fn.Body)...)
	exclude = append(exclude, fn.Name)
	caps := captures(fn.Body, sc, exclude...)

	if !d.checkParams(fn, caps) {
		return
	}

	child := newScope(sc)
	child.inBlock = ""
	child.capture(sc, caps)
	child.bind(fn.Params...)
	child.selves[fn.Name] = true

	saved := d.rest
	d.rest = nil
	fn.Body = d.block(fn.Body, child)
	d.rest = saved

	fn.Captures = caps
	sc.define(fn.Name, len(fn.Params))
}

func recordArity(e ast.Expression) int {
	if list, ok := e.(*ast.List); ok {
		return len(list.Elements)
	}
	return 0
}

func constIndex(e ast.Expression) (int, bool) {
	switch n := e.(type) {
	case *ast.Number:
		if n.IsFloat {
			return 0, false
		}
		i, err := strconv.Atoi(n.Literal)
		return i, err == nil
	case *ast.UnaryOp:
		if n.Op == "-" {
			if i, ok := constIndex(n.Operand); ok {
				return -i, true
			}
		}
	}
	return 0, false
}

func nameList(names []string, pos position.Position) *ast.List {
	list := &ast.List{Pos: pos}
	for _, name := range names {
		list.Elements = append(list.Elements, &ast.Name{Value: name, Pos: pos})
	}
	return list
}
