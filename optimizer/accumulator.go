package optimizer

import "github.com/robfig/htmling/ast"

const htmlIdent = "html"

// accumulator returns the declarator of html in the function's top-level
// statement list, and the index of the declaration holding it.
func accumulator(fn *ast.Function) (*ast.Declarator, int) {
	for i, stmt := range fn.Body {
		if decl, ok := stmt.(*ast.VarDecl); ok {
			for _, d := range decl.Decls {
				if d.Name == htmlIdent {
					return d, i
				}
			}
		}
	}
	return nil, -1
}

// assignFirstOutput turns the first append to the accumulator into an
// assignment when it is unconditional, dropping the accumulator's initial
// empty string.
func assignFirstOutput(o *optimizer) bool {
	var changed bool
	functions(o.prog, func(fn *ast.Function) {
		var decl, at = accumulator(fn)
		if decl == nil || !isEmptyString(decl.Init) {
			return
		}
		for _, stmt := range fn.Body[at+1:] {
			if references(stmt, htmlIdent) == 0 {
				continue
			}
			var target, value = appendTarget(stmt)
			if target != htmlIdent || references(value, htmlIdent) > 0 {
				return
			}
			var assign = stmt.(*ast.ExprStmt).Expr.(*ast.Assign)
			assign.Op = "="
			if !stringValued(value) {
				assign.Right = ast.Bin("+", ast.Str(""), value)
			}
			decl.Init = nil
			changed = true
			return
		}
	})
	return changed
}

func isEmptyString(n ast.Node) bool {
	lit, ok := n.(*ast.Literal)
	return ok && lit.Value == ""
}

// returnDirectly reduces a function expression consisting of
//   var html; [html = x;] return html;
// to
//   return x;
// A function of that shape that appends instead of assigning, or does not
// return the accumulator, violates an invariant of the earlier passes.
func returnDirectly(o *optimizer) bool {
	var changed bool
	functions(o.prog, func(fn *ast.Function) {
		if fn.Decl || len(fn.Body) == 0 {
			return
		}
		decl, ok := fn.Body[0].(*ast.VarDecl)
		if !ok || len(decl.Decls) != 1 || decl.Decls[0].Name != htmlIdent {
			return
		}
		for _, stmt := range fn.Body[1:] {
			switch stmt.(type) {
			case *ast.ExprStmt, *ast.Return:
			default:
				return
			}
		}
		var nested bool
		ast.Walk(&ast.Block{Body: fn.Body}, func(n, _ ast.Node) ast.Visit {
			switch n.(type) {
			case *ast.Function, *ast.If, *ast.For:
				nested = true
				return ast.Break
			}
			return ast.Continue
		})
		if nested {
			return
		}

		var rest = fn.Body[1:]
		var value = decl.Decls[0].Init
		if len(rest) > 0 {
			if es, ok := rest[0].(*ast.ExprStmt); ok {
				assign, ok := es.Expr.(*ast.Assign)
				if !ok || !ast.IsIdent(assign.Left, htmlIdent) {
					return
				}
				if assign.Op != "=" {
					invariant("accumulator is appended to with %s after the first output", assign.Op)
				}
				if references(assign.Right, htmlIdent) > 0 {
					return
				}
				value = assign.Right
				rest = rest[1:]
			}
		}
		if len(rest) == 0 {
			invariant("function %q does not return its accumulator", fn.Name)
		}
		ret, ok := rest[0].(*ast.Return)
		if !ok {
			return
		}
		if len(rest) != 1 || !ast.IsIdent(ret.Arg, htmlIdent) {
			invariant("function %q does not end by returning its accumulator", fn.Name)
		}
		if value == nil {
			return
		}
		fn.Body = []ast.Node{&ast.Return{Arg: value}}
		changed = true
	})
	return changed
}
