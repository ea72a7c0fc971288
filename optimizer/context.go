package optimizer

import "github.com/robfig/htmling/ast"

const contextIdent = "context"

// normalizeContext replaces references to the render context with this, in
// every function expression that declares context = this.  Nested functions
// are left alone; their receiver differs.  A declarator initialized to
// context itself is kept as written.
func normalizeContext(o *optimizer) bool {
	var changed bool
	functions(o.prog, func(fn *ast.Function) {
		if fn.Decl || !aliasesThis(fn) {
			return
		}
		for i := range fn.Body {
			fn.Body[i] = ast.Rewrite(fn.Body[i], func(n ast.Node) (ast.Node, ast.Visit) {
				switch n := n.(type) {
				case *ast.Function:
					return n, ast.Skip
				case *ast.Declarator:
					if ast.IsIdent(n.Init, contextIdent) {
						return n, ast.Skip
					}
				case *ast.Identifier:
					if n.Name == contextIdent {
						changed = true
						return &ast.This{Pos: n.Pos}, ast.Continue
					}
				}
				return n, ast.Continue
			})
		}
	})
	return changed
}

// aliasesThis reports whether the function's only binding of context is a
// declarator initialized to this, and context is never reassigned.
func aliasesThis(fn *ast.Function) bool {
	for _, p := range fn.Params {
		if p == contextIdent {
			return false
		}
	}
	var decls, aliases int
	walkOwn(fn, func(n ast.Node) {
		if d, ok := n.(*ast.Declarator); ok && d.Name == contextIdent {
			decls++
			if _, ok := d.Init.(*ast.This); ok {
				aliases++
			}
		}
	})
	return decls == 1 && aliases == 1 && !assigned(fn, contextIdent)
}
