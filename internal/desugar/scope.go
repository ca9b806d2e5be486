package desugar

import (
	"slices"

	"github.com/qython-lang/qython/internal/ast"
)

// maxParams is the q limit on lambda parameters.
const maxParams = 8

// scope tracks the names bound so far in one q lambda body. Blocks that
// compile inline (if, while) share their enclosing scope; do and converge
// bodies and nested definitions get a child scope that sees only what it
// captures.
type scope struct {
	bound   map[string]bool
	funcs   map[string]int  // nested definitions in reach, by arity
	selves  map[string]bool // nested definitions being compiled
	inBlock string          // "do" or "converge" inside a step body
}

func newScope(parent *scope) *scope {
	sc := &scope{
		bound:  make(map[string]bool),
		funcs:  make(map[string]int),
		selves: make(map[string]bool),
	}
	if parent != nil {
		for k := range parent.selves {
			sc.selves[k] = true
		}
		sc.inBlock = parent.inBlock
	}
	return sc
}

// capture binds names taken over from parent, keeping the arity of
// captured nested definitions.
func (sc *scope) capture(parent *scope, names []string) {
	for _, name := range names {
		sc.bound[name] = true
		if n, ok := parent.funcs[name]; ok {
			sc.funcs[name] = n
		}
	}
}

func (sc *scope) bind(names ...string) {
	for _, name := range names {
		sc.bound[name] = true
		delete(sc.funcs, name)
	}
}

func (sc *scope) define(name string, arity int) {
	sc.bound[name] = true
	sc.funcs[name] = arity
}

func (sc *scope) isBound(name string) bool {
	return sc.bound[name]
}

// arity resolves name to a user function. A local binding that is not a
// nested definition hides a global function of the same name.
func (sc *scope) arity(name string, globals map[string]int) (int, bool) {
	if n, ok := sc.funcs[name]; ok {
		return n, true
	}
	if sc.bound[name] {
		return 0, false
	}
	n, ok := globals[name]
	return n, ok
}

// readNames lists the names referenced in stmts, in order of first reference.
func readNames(stmts []ast.Statement) []string {
	var names []string
	seen := make(map[string]bool)

	for _, stmt := range stmts {
		ast.Inspect(stmt, func(n ast.Node) bool {
			if name, ok := n.(*ast.Name); ok && !seen[name.Value] {
				seen[name.Value] = true
				names = append(names, name.Value)
			}
			return true
		})
	}
	return names
}

// assignedNames lists the names stmts bind in the enclosing lambda, in order
// of first binding. Nested definitions and converge bodies are separate
// lambdas, so only their own name or rolling variable counts.
func assignedNames(stmts []ast.Statement) []string {
	var names []string
	add := func(name string) {
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}

	var walk func([]ast.Statement)
	walk = func(stmts []ast.Statement) {
		for _, stmt := range stmts {
			switch n := stmt.(type) {
			case *ast.Assign:
				add(n.Target)
			case *ast.FunctionDef:
				add(n.Name)
			case *ast.ConvergeStmt:
				add(n.Var)
			case *ast.If:
				walk(n.Body)
			case *ast.While:
				walk(n.Body)
			case *ast.RepeatStmt:
				walk(n.Body)
			}
		}
	}
	walk(stmts)

	return names
}

func reads(node ast.Node, name string) bool {
	found := false
	ast.Inspect(node, func(n ast.Node) bool {
		if v, ok := n.(*ast.Name); ok && v.Value == name {
			found = true
		}
		return !found
	})
	return found
}

// scanReads reports whether stmts read name before rebinding it
// unconditionally.
func scanReads(stmts []ast.Statement, name string) (read, killed bool) {
	for _, stmt := range stmts {
		switch n := stmt.(type) {
		case *ast.Assign:
			if reads(n.Value, name) {
				return true, false
			}
			if n.Target == name {
				return false, true
			}
		case *ast.FunctionDef:
			if reads(n, name) {
				return true, false
			}
			if n.Name == name {
				return false, true
			}
		case *ast.ConvergeStmt:
			if reads(n, name) {
				return true, false
			}
			if n.Var == name {
				return false, true
			}
		default:
			if reads(stmt, name) {
				return true, false
			}
		}
	}
	return false, false
}

// readLater reports whether name is read after the statement being
// desugared, before anything rebinds it.
func (d *desugarer) readLater(name string) bool {
	for i := len(d.rest) - 1; i >= 0; i-- {
		read, killed := scanReads(d.rest[i], name)
		if read {
			return true
		}
		if killed {
			return false
		}
	}
	return false
}

// captures lists the names body reads that sc binds, excluding state, in
// order of first reference.
func captures(body []ast.Statement, sc *scope, exclude ...string) []string {
	var caps []string
	for _, name := range readNames(body) {
		if sc.isBound(name) && !slices.Contains(exclude, name) {
			caps = append(caps, name)
		}
	}
	return caps
}
