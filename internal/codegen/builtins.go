package codegen

import (
	"fmt"
	"strings"

	"github.com/qython-lang/qython/internal/config"
)

// BuiltinFunctions maps surface builtins to their q spelling. Only names a
// program cannot rebind are listed, so a rename never hits a user function.
var BuiltinFunctions = map[string]BuiltinFunction{
	"len": {
		Name:  "len",
		QName: "count",
	},
	"print": {
		Name:  "print",
		QName: "show",
	},
	"min": {
		Name:      "min",
		QName:     "min",
		Aggregate: true,
	},
	"max": {
		Name:      "max",
		QName:     "max",
		Aggregate: true,
	},
}

// BuiltinFunction represents a built-in function definition
type BuiltinFunction struct {
	Name  string
	QName string
	// Aggregate builtins take one list in q; several surface arguments are
	// collected into a general list first.
	Aggregate bool
}

// GetBuiltinFunction returns the built-in function definition
func GetBuiltinFunction(name string) (BuiltinFunction, bool) {
	fn, exists := BuiltinFunctions[name]
	return fn, exists
}

// GeneratePrelude returns the .qy namespace definitions that ConvergeOp
// relies on. The helper iterates (current;previous;count) with the while
// form of / and signals when the cap is hit before the tolerance is met.
func GeneratePrelude(cfg config.Config) string {
	var b strings.Builder
	indent := cfg.Indent

	fmt.Fprintf(&b, ".qy.tol:%s;\n", cfg.FormatTolerance())
	fmt.Fprintf(&b, ".qy.maxIter:%d;\n", cfg.MaxIterations)
	b.WriteString(".qy.converge:{[f;x]\n")
	b.WriteString(indent + "s:{[f;s] y:s 0;(f y;y;1+s 2)}[f]/[{(.qy.maxIter>x 2)&.qy.tol<max abs raze x[0]-x 1};(f x;x;1)];\n")
	b.WriteString(indent + "$[.qy.tol<max abs raze s[0]-s 1;'\"" + NoFixedPoint + "\";s 0]\n")
	b.WriteString(indent + "}\n")

	return b.String()
}

// NoFixedPoint is the q signal raised when converge exhausts .qy.maxIter.
const NoFixedPoint = "converge: no fixed point"
