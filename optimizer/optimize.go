// Package optimizer rewrites a lowered program into an equivalent, smaller one.
//
// The passes run in a fixed order; each may rely on the shapes left by the
// ones before it.  Every pass preserves the rendered output.
package optimizer

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/robfig/htmling/ast"
)

// ErrInvariant is wrapped by the error returned when the program does not
// have a shape a pass relies on.  It indicates a bug in lowering or in an
// earlier pass.
var ErrInvariant = errors.New("optimizer invariant violated")

// Pass is a single transformation.  A fixpoint pass is repeated until it
// makes no further change.
type Pass struct {
	Name     string
	Fixpoint bool
	run      func(o *optimizer) bool
}

// Passes lists the passes in the order they run.
var Passes = []Pass{
	{"flatten blocks", true, flattenBlocks},
	{"hoist functions", false, hoistFunctions},
	{"remove dead assignments", false, removeDeadAssignments},
	{"normalize context", false, normalizeContext},
	{"cache references", false, cacheReferences},
	{"remove unused declarators", false, removeUnusedDeclarators},
	{"fuse outputs", false, fuseOutputs},
	{"fold literals", true, foldLiterals},
	{"assign first output", false, assignFirstOutput},
	{"return directly", false, returnDirectly},
}

// maxIterations bounds a fixpoint pass.
const maxIterations = 100

type optimizer struct {
	prog   *ast.Program
	caches int // last cache$N allocated
}

// Optimize applies every pass to prog, which is modified in place.
func Optimize(prog *ast.Program) (_ *ast.Program, err error) {
	defer errRecover(&err)
	var o = newOptimizer(prog)
	for _, pass := range Passes {
		o.apply(pass)
	}
	return prog, nil
}

func newOptimizer(prog *ast.Program) *optimizer {
	return &optimizer{prog: prog, caches: maxSuffix(prog, cachePrefix)}
}

func (o *optimizer) apply(pass Pass) {
	if !pass.Fixpoint {
		pass.run(o)
		return
	}
	for i := 0; pass.run(o); i++ {
		if i == maxIterations {
			invariant("%s did not converge", pass.Name)
		}
	}
}

// invariant aborts optimization.
func invariant(format string, args ...interface{}) {
	panic(fmt.Errorf("%w: "+format, append([]interface{}{ErrInvariant}, args...)...))
}

// errRecover is the handler that turns panics into returns from Optimize.
func errRecover(errp *error) {
	e := recover()
	if e == nil {
		return
	}
	switch err := e.(type) {
	case runtime.Error:
		panic(e)
	case error:
		*errp = err
	default:
		*errp = fmt.Errorf("%v", e)
	}
}
