package optimizer

import "github.com/robfig/htmling/ast"

// removeDeadAssignments drops statements of the form x = e, where e is pure
// and x is a local of the enclosing function referenced nowhere else.
func removeDeadAssignments(o *optimizer) bool {
	var changed bool
	functions(o.prog, func(fn *ast.Function) {
		ownBodies(fn, func(body *[]ast.Node) {
			var kept []ast.Node
			for _, stmt := range *body {
				if deadAssignment(fn, stmt) {
					changed = true
					continue
				}
				kept = append(kept, stmt)
			}
			*body = kept
		})
	})
	return changed
}

func deadAssignment(fn *ast.Function, stmt ast.Node) bool {
	es, ok := stmt.(*ast.ExprStmt)
	if !ok {
		return false
	}
	assign, ok := es.Expr.(*ast.Assign)
	if !ok || assign.Op != "=" || !pure(assign.Right) {
		return false
	}
	target, ok := assign.Left.(*ast.Identifier)
	if !ok || !isLocal(fn, target.Name) {
		return false
	}
	return references(fn, target.Name) == references(stmt, target.Name)
}

// removeUnusedDeclarators drops declarators whose variable is never
// referenced, provided their initializer is pure.  A declaration left empty is
// removed.
func removeUnusedDeclarators(o *optimizer) bool {
	var changed bool
	functions(o.prog, func(fn *ast.Function) {
		ownBodies(fn, func(body *[]ast.Node) {
			var kept []ast.Node
			for _, stmt := range *body {
				if decl, ok := stmt.(*ast.VarDecl); ok {
					var decls []*ast.Declarator
					for _, d := range decl.Decls {
						if pure(d.Init) && references(fn, d.Name) == 0 {
							changed = true
							continue
						}
						decls = append(decls, d)
					}
					decl.Decls = decls
					if len(decls) == 0 {
						continue
					}
				}
				kept = append(kept, stmt)
			}
			*body = kept
		})
	})
	return changed
}
