package desugar

import (
	"fmt"
	"strings"

	"github.com/qython-lang/qython/internal/ast"
	"github.com/qython-lang/qython/internal/diagnostic"
	"github.com/qython-lang/qython/internal/position"
)

// builtins are resolved by name at desugar time or renamed by the code
// generator, so user bindings may not reuse them.
var builtins = map[string]bool{
	"converge": true,
	"reduce":   true,
	"range":    true,
	"len":      true,
	"print":    true,
}

// qReserved lists the q keywords and primitives that cannot be assigned.
var qReserved = map[string]bool{}

func init() {
	for _, w := range strings.Fields(`
		abs acos aj aj0 ajf ajf0 all and any asc asin asof atan attr avg avgs
		bin binr by ceiling cols cor cos count cov cross csv cut delete deltas
		desc dev differ distinct div do dsave each ej ema enlist eval except
		exec exit exp fby fills first fkeys flip floor from get getenv group
		gtime hclose hcount hdel hopen hsym iasc idesc if ij ijf in insert
		inter inv key keys last like lj ljf load log lower lsq ltime ltrim mavg
		max maxs mcount md5 mdev med meta min mins mmax mmin mmu mod msum neg
		next not null or over parse peach pj prd prds prev prior rand rank
		ratios raze read0 read1 reciprocal reval reverse rload rotate rsave
		rtrim save scan scov sdev select set setenv show signum sin sqrt ss
		ssr string sublist sum sums sv svar system tables tan til trim type uj
		ujf ungroup union update upper upsert value var view views vs wavg
		where while within wj wj1 wsum ww xasc xbar xcol xcols xdesc xexp
		xgroup xkey xlog xprev xrank`) {
		qReserved[w] = true
	}
}

// checkName rejects a binding of name that would shadow a builtin or that q
// cannot assign.
func (d *desugarer) checkName(pos position.Position, what, name string) bool {
	switch {
	case builtins[name]:
		d.fail(diagnostic.Common.ShadowedBuiltin(pos, what, name))
	case qReserved[name]:
		d.fail(diagnostic.Common.ReservedWord(pos, what, name))
	case strings.HasPrefix(name, "_"):
		d.fail(diagnostic.NewDiagnostic().
			NameConflict().
			Code(diagnostic.CodeReservedWord).
			Message("%s %q: q names must start with a letter", what, name).
			At(pos).
			Build())
	default:
		return true
	}
	return false
}

// namer hands out temporaries that collide with no name used in a function.
type namer struct {
	used map[string]bool
}

func newNamer(fn *ast.FunctionDef, globals map[string]int) *namer {
	nm := &namer{used: make(map[string]bool)}
	for name := range globals {
		nm.used[name] = true
	}

	ast.Inspect(fn, func(n ast.Node) bool {
		switch v := n.(type) {
		case *ast.FunctionDef:
			nm.used[v.Name] = true
			for _, p := range v.Params {
				nm.used[p] = true
			}
		case *ast.Assign:
			nm.used[v.Target] = true
		case *ast.ConvergeStmt:
			nm.used[v.Var] = true
		case *ast.Name:
			nm.used[v.Value] = true
		}
		return true
	})

	return nm
}

func (nm *namer) fresh(base string) string {
	name := base
	for i := 1; nm.used[name] || qReserved[name] || builtins[name]; i++ {
		name = fmt.Sprintf("%s%d", base, i)
	}
	nm.used[name] = true
	return name
}
