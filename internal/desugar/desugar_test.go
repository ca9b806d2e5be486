package desugar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qython-lang/qython/internal/ast"
	"github.com/qython-lang/qython/internal/diagnostic"
	"github.com/qython-lang/qython/internal/parser"
)

func desugar(t *testing.T, src string) *ast.Program {
	t.Helper()

	program, diag := parser.Parse(src, "test.qy")
	require.Nil(t, diag, "parse failed: %v", diag)

	program, diag = Desugar(program)
	require.Nil(t, diag, "desugar failed: %v", diag)
	return program
}

func noSurfaceNodes(t *testing.T, program *ast.Program) {
	t.Helper()

	ast.Inspect(program, func(n ast.Node) bool {
		switch v := n.(type) {
		case *ast.RepeatStmt, *ast.ConvergeStmt:
			t.Errorf("surface node %s survived desugaring", n)
		case *ast.Call:
			switch v.Callee() {
			case "converge", "reduce", "range":
				t.Errorf("call to %s survived desugaring", v.Callee())
			}
		}
		return true
	})
}

func TestConvergeStatement(t *testing.T) {
	input := `def nmsq(x):
    converge on guess starting from x / 2:
        new_guess = (guess + x / guess) / 2
        guess = new_guess
    return guess
`
	want := `Program
  def nmsq(x)
    Assign guess
      ConvergeOp
        Lambda [x](guess)
          Assign new_guess
            BinaryOp /
              BinaryOp +
                Name guess
                BinaryOp /
                  Name x
                  Name guess
              Number 2
          Assign guess
            Name new_guess
          Name guess
        BinaryOp /
          Name x
          Number 2
    Return
      Name guess
`
	program := desugar(t, input)
	assert.Equal(t, want, ast.Dump(program))
	noSurfaceNodes(t, program)
}

func TestConvergeCall(t *testing.T) {
	tests := []struct {
		name  string
		input string
		arity int
	}{
		{"keyword start", `def step(g):
    return g / 2

def f(x):
    return converge(step, starting_from=x)
`, 0},
		{"positional start", `def step(g):
    return g / 2

def f(x):
    return converge(step, x)
`, 0},
		{"record start", `def step(s):
    return [s[1], s[0]]

def f(a, b):
    return converge(step, starting_from=[a, b])
`, 2},
		{"nested step", `def f(x):
    def step(g):
        return (g + x / g) / 2
    return converge(step, starting_from=x)
`, 0},
	}

	for i, tt := range tests {
		program := desugar(t, tt.input)
		fn := program.Functions[len(program.Functions)-1]
		ret, ok := fn.Body[len(fn.Body)-1].(*ast.Return)
		require.True(t, ok, "tests[%d] %s", i, tt.name)

		op, ok := ret.Value.(*ast.ConvergeOp)
		require.True(t, ok, "tests[%d] %s - return value is %T", i, tt.name, ret.Value)
		step, ok := op.Step.(*ast.Name)
		require.True(t, ok, "tests[%d] %s - step is %T", i, tt.name, op.Step)
		assert.Equal(t, "step", step.Value, "tests[%d] %s", i, tt.name)
		width := 0
		if start, ok := op.Start.(*ast.List); ok {
			width = len(start.Elements)
		}
		assert.Equal(t, tt.arity, width, "tests[%d] %s", i, tt.name)
		noSurfaceNodes(t, program)
	}
}

func TestRepeatSingleState(t *testing.T) {
	input := `def double(x, n):
    do n times:
        x = x * 2
    return x
`
	want := `Program
  def double(x, n)
    Assign x
      BoundedRepeat
        Name n
        Lambda [](x)
          Assign x
            BinaryOp *
              Name x
              Number 2
          Name x
        Name x
    Return
      Name x
`
	program := desugar(t, input)
	assert.Equal(t, want, ast.Dump(program))
}

func TestRepeatRecordState(t *testing.T) {
	input := `def fib(n):
    a = 0
    b = 1
    do n times:
        t = a + b
        a = b
        b = t
    return a
`
	program := desugar(t, input)
	body := program.Functions[0].Body
	require.Len(t, body, 5)

	assign, ok := body[2].(*ast.Assign)
	require.True(t, ok, "body[2] is %T", body[2])
	assert.Equal(t, "state", assign.Target)

	loop, ok := assign.Value.(*ast.BoundedRepeat)
	require.True(t, ok, "loop is %T", assign.Value)
	assert.Equal(t, []string{"s"}, loop.Step.Params)
	assert.Empty(t, loop.Step.Captures)
	assert.Equal(t, "List[2]", loop.Seed.String())
	assert.Equal(t, "List[2]", loop.Step.Result.String())

	unpack, ok := loop.Step.Body[0].(*ast.Destructure)
	require.True(t, ok, "step body starts with %T", loop.Step.Body[0])
	assert.Equal(t, []string{"a", "b"}, unpack.Names)

	after, ok := body[3].(*ast.Destructure)
	require.True(t, ok, "body[3] is %T", body[3])
	assert.Equal(t, []string{"a", "b"}, after.Names)
	assert.Equal(t, "Name state", after.Value.String())
}

func TestRepeatCaptures(t *testing.T) {
	input := `def scale(x, k, n):
    do n times:
        x = x * k
    return x
`
	program := desugar(t, input)
	assign := program.Functions[0].Body[0].(*ast.Assign)
	loop := assign.Value.(*ast.BoundedRepeat)
	assert.Equal(t, []string{"k"}, loop.Step.Captures)
	assert.Equal(t, []string{"x"}, loop.Step.Params)
}

func TestFreshNamesAvoidUserNames(t *testing.T) {
	input := `def f(s, state, n):
    a = s
    b = state
    do n times:
        a = a + b
        b = a
    return a
`
	program := desugar(t, input)
	assign := program.Functions[0].Body[2].(*ast.Assign)
	assert.Equal(t, "state1", assign.Target)
	assert.Equal(t, []string{"s1"}, assign.Value.(*ast.BoundedRepeat).Step.Params)
}

func TestReduceAndRange(t *testing.T) {
	input := `def add(a, b):
    return a + b

def total(xs):
    return reduce(add, xs)

def seeded(xs):
    return reduce(add, xs, 10)

def upto(n):
    return range(n)

def between(a, b):
    return range(a, b)
`
	program := desugar(t, input)
	noSurfaceNodes(t, program)

	value := func(i int) ast.Expression {
		return program.Functions[i].Body[0].(*ast.Return).Value
	}

	r1, ok := value(1).(*ast.ReduceOp)
	require.True(t, ok)
	assert.Nil(t, r1.Init)
	assert.Equal(t, "Name add", r1.Func.String())

	r2, ok := value(2).(*ast.ReduceOp)
	require.True(t, ok)
	assert.Equal(t, "Number 10", r2.Init.String())

	g1, ok := value(3).(*ast.RangeOp)
	require.True(t, ok)
	assert.Nil(t, g1.Start)
	assert.Equal(t, "Name n", g1.Stop.String())

	g2, ok := value(4).(*ast.RangeOp)
	require.True(t, ok)
	assert.Equal(t, "Name a", g2.Start.String())
	assert.Equal(t, "Name b", g2.Stop.String())
}

func TestNestedDefCaptures(t *testing.T) {
	input := `def outer(x, y):
    k = x * 2
    def inner(z):
        w = z + k
        return w * y
    return inner(1)
`
	program := desugar(t, input)
	inner, ok := program.Functions[0].Body[1].(*ast.FunctionDef)
	require.True(t, ok)
	assert.Equal(t, []string{"k", "y"}, inner.Captures)
	assert.Equal(t, []string{"z"}, inner.Params)
}

func TestRaiseMessages(t *testing.T) {
	input := `def f(x, msg):
    if x < 0:
        raise ValueError("negative")
    if x == 0:
        raise ZeroDivisionError
    if x == 1:
        raise RuntimeError()
    raise ValueError(msg)
`
	program := desugar(t, input)
	body := program.Functions[0].Body

	message := func(stmt ast.Statement) string {
		switch s := stmt.(type) {
		case *ast.If:
			return s.Body[0].(*ast.Raise).Message.String()
		case *ast.Raise:
			return s.Message.String()
		}
		return ""
	}

	assert.Equal(t, `String "negative"`, message(body[0]))
	assert.Equal(t, `String "ZeroDivisionError"`, message(body[1]))
	assert.Equal(t, `String "RuntimeError"`, message(body[2]))
	assert.Equal(t, "Name msg", message(body[3]))
}

func TestNameConflicts(t *testing.T) {
	tests := []struct {
		name  string
		input string
		code  string
	}{
		{"function named range", "def range(n):\n    return n\n", diagnostic.CodeShadowedBuiltin},
		{"function named converge", "def converge(f, x):\n    return x\n", diagnostic.CodeShadowedBuiltin},
		{"parameter named reduce", "def f(reduce):\n    return reduce\n", diagnostic.CodeShadowedBuiltin},
		{"assignment to len", "def f(xs):\n    len = 1\n    return len\n", diagnostic.CodeShadowedBuiltin},
		{"parameter named til", "def f(til):\n    return til\n", diagnostic.CodeReservedWord},
		{"assignment to count", "def f(xs):\n    count = 0\n    return count\n", diagnostic.CodeReservedWord},
		{"converge variable named sum", "def f(x):\n    converge on sum starting from x:\n        sum = sum / 2\n    return sum\n", diagnostic.CodeReservedWord},
		{"nested def named neg", "def f(x):\n    def neg(y):\n        return 0 - y\n    return neg(x)\n", diagnostic.CodeReservedWord},
		{"leading underscore", "def _helper(x):\n    return x\n", diagnostic.CodeReservedWord},
	}

	for i, tt := range tests {
		program, diag := parser.Parse(tt.input, "conflict.qy")
		require.Nil(t, diag, "tests[%d] %s - parse failed: %v", i, tt.name, diag)

		_, diag = Desugar(program)
		require.NotNil(t, diag, "tests[%d] %s - expected a name conflict", i, tt.name)
		assert.Equal(t, tt.code, diag.Code, "tests[%d] %s - %v", i, tt.name, diag)
		assert.Equal(t, diagnostic.KindNameConflict, diag.Kind, "tests[%d] %s", i, tt.name)
		assert.Equal(t, diagnostic.PhaseDesugar, diag.Phase, "tests[%d] %s", i, tt.name)
	}
}

func TestSemanticErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		code  string
		line  int
	}{
		{"step arity", `def step(a, b):
    return a

def f(x):
    return converge(step, starting_from=x)
`, diagnostic.CodeStepArity, 5},
		{"unknown step", `def f(x):
    return converge(abs, starting_from=x)
`, diagnostic.CodeUnknownStep, 2},
		{"step not a name", `def f(x):
    return converge(x + 1, starting_from=x)
`, diagnostic.CodeUnknownStep, 2},
		{"converge keyword", `def step(g):
    return g

def f(x):
    return converge(step, start=x)
`, diagnostic.CodeBadKeyword, 5},
		{"converge without start", `def step(g):
    return g

def f(x):
    return converge(step)
`, diagnostic.CodeConvergeArgs, 5},
		{"missing rebind", `def f(x):
    converge on g starting from x:
        g = g / 2
        h = g
    return g
`, diagnostic.CodeMissingRebind, 4},
		{"range as value", `def f(n):
    g = range
    return g(n)
`, diagnostic.CodeBuiltinValue, 2},
		{"reduce returned", `def f(xs):
    return reduce
`, diagnostic.CodeBuiltinValue, 2},
		{"negative subscript", `def f(xs):
    return xs[-1]
`, diagnostic.CodeNegativeIndex, 2},
		{"empty state", `def f(n):
    do n times:
        y = 1
    return n
`, diagnostic.CodeEmptyState, 2},
		{"escaping do local", `def f(x, n):
    do n times:
        x = x + 1
        y = x
    return y
`, diagnostic.CodeEscapingName, 2},
		{"escaping converge local", `def f(x):
    converge on g starting from x:
        h = g / 2
        g = h
    return h
`, diagnostic.CodeEscapingName, 2},
		{"return in do", `def f(x, n):
    do n times:
        x = x + 1
        if x > 10:
            return x
    return x
`, diagnostic.CodeReturnInBlock, 5},
		{"return in converge", `def f(x):
    converge on g starting from x:
        if g > 1:
            return g
        g = g / 2
    return g
`, diagnostic.CodeReturnInBlock, 4},
		{"record arity", `def f(a, b):
    converge on s starting from [a, b]:
        s = [s[0], s[1], 1]
    return s
`, diagnostic.CodeRecordArity, 3},
		{"index out of record", `def f(a, b):
    converge on s starting from [a, b]:
        s = [s[0], s[2]]
    return s
`, diagnostic.CodeIndexOutOfRecord, 3},
		{"negative record index", `def f(a, b):
    converge on s starting from [a, b]:
        s = [s[-1], s[0]]
    return s
`, diagnostic.CodeIndexOutOfRecord, 3},
		{"outer rebind", `def f(x):
    t = 0
    converge on g starting from x:
        t = g / 2
        g = t
    return g + t
`, diagnostic.CodeOuterRebind, 3},
		{"too many captures", `def f(a, b, c, d, e, g, h, i):
    def inner(y):
        return a + b + c + d + e + g + h + i + y
    return inner(1)
`, diagnostic.CodeTooManyParams, 2},
		{"too many parameters", `def f(a, b, c, d, e, g, h, i, j):
    return a
`, diagnostic.CodeTooManyParams, 1},
		{"nested recursion", `def f(x):
    def g(n):
        return g(n - 1)
    return g(x)
`, diagnostic.CodeNestedRecursion, 3},
		{"duplicate function", `def f(x):
    return x

def f(y):
    return y
`, diagnostic.CodeDuplicateFunc, 4},
		{"duplicate parameter", `def f(x, x):
    return x
`, diagnostic.CodeDuplicateParam, 1},
		{"reduce arity", `def inc(a):
    return a + 1

def f(xs):
    return reduce(inc, xs)
`, diagnostic.CodeReduceArity, 5},
		{"reduce argument count", `def f(xs):
    return reduce(xs)
`, diagnostic.CodeReduceArity, 2},
		{"range step", `def f():
    return range(0, 10, 2)
`, diagnostic.CodeRangeArgs, 2},
		{"keyword on plain call", `def f(x):
    return g(a=1)
`, diagnostic.CodeBadKeyword, 2},
	}

	for i, tt := range tests {
		program, diag := parser.Parse(tt.input, "bad.qy")
		require.Nil(t, diag, "tests[%d] %s - parse failed: %v", i, tt.name, diag)

		_, diag = Desugar(program)
		require.NotNil(t, diag, "tests[%d] %s - expected a diagnostic", i, tt.name)
		assert.Equal(t, tt.code, diag.Code, "tests[%d] %s - %v", i, tt.name, diag)
		assert.Equal(t, diagnostic.KindSemantic, diag.Kind, "tests[%d] %s", i, tt.name)
		assert.Equal(t, diagnostic.PhaseDesugar, diag.Phase, "tests[%d] %s", i, tt.name)
		assert.Equal(t, tt.line, diag.Pos.Line, "tests[%d] %s - %v", i, tt.name, diag)
	}
}
