package optimizer

import (
	"strings"

	"github.com/robfig/htmling/ast"
)

// flattenBlocks splices every block found directly in a statement list into
// that list.
func flattenBlocks(o *optimizer) bool {
	var changed bool
	ast.Bodies(o.prog, func(body *[]ast.Node) {
		var flat []ast.Node
		for _, stmt := range *body {
			if block, ok := stmt.(*ast.Block); ok {
				flat = append(flat, block.Body...)
				changed = true
				continue
			}
			flat = append(flat, stmt)
		}
		*body = flat
	})
	return changed
}

// synthesized reports whether n declares a function created during lowering.
func synthesized(n ast.Node) bool {
	fn, ok := n.(*ast.Function)
	return ok && fn.Decl && strings.Contains(fn.Name, "$")
}

// hoistFunctions moves every synthesized function declaration to the start
// of the program, in the order they are encountered.
func hoistFunctions(o *optimizer) bool {
	var hoisted []ast.Node
	var names = make(map[string]bool)
	ast.Walk(o.prog, func(n, _ ast.Node) ast.Visit {
		if synthesized(n) {
			var name = n.(*ast.Function).Name
			if names[name] {
				invariant("function %s is declared twice", name)
			}
			names[name] = true
			hoisted = append(hoisted, n)
		}
		return ast.Continue
	})
	if len(hoisted) == 0 {
		return false
	}

	ast.Bodies(o.prog, func(body *[]ast.Node) {
		var kept = (*body)[:0]
		for _, stmt := range *body {
			if !synthesized(stmt) {
				kept = append(kept, stmt)
			}
		}
		*body = kept
	})
	o.prog.Body = append(hoisted, o.prog.Body...)
	return true
}
