package optimizer

import (
	"strconv"
	"strings"

	"github.com/robfig/htmling/ast"
)

// functions calls fn for every function in the tree, outermost first.
func functions(n ast.Node, fn func(*ast.Function)) {
	ast.Walk(n, func(n, _ ast.Node) ast.Visit {
		if f, ok := n.(*ast.Function); ok {
			fn(f)
		}
		return ast.Continue
	})
}

// ownBodies calls fn with every statement list belonging to the function
// itself, excluding those of nested functions.  fn may replace the list.
func ownBodies(f *ast.Function, fn func(*[]ast.Node)) {
	fn(&f.Body)
	ast.Walk(f, func(n, _ ast.Node) ast.Visit {
		switch n := n.(type) {
		case *ast.Function:
			if n != f {
				return ast.Skip
			}
		case *ast.Block:
			fn(&n.Body)
		}
		return ast.Continue
	})
}

// walkOwn walks the function's own nodes, not descending into nested
// functions.
func walkOwn(f *ast.Function, fn func(n ast.Node)) {
	ast.Walk(f, func(n, _ ast.Node) ast.Visit {
		if n != ast.Node(f) && ast.IsFunction(n) {
			return ast.Skip
		}
		fn(n)
		return ast.Continue
	})
}

// declared returns the names the function binds: its parameters, its own
// name if it is an expression, and the variables and functions declared in
// its body.
func declared(f *ast.Function) map[string]bool {
	var names = make(map[string]bool)
	for _, p := range f.Params {
		names[p] = true
	}
	if !f.Decl && f.Name != "" {
		names[f.Name] = true
	}
	ast.Walk(f, func(n, _ ast.Node) ast.Visit {
		switch n := n.(type) {
		case *ast.Declarator:
			names[n.Name] = true
		case *ast.Function:
			if n != f {
				if n.Decl {
					names[n.Name] = true
				}
				return ast.Skip
			}
		}
		return ast.Continue
	})
	return names
}

// isLocal reports whether name is a parameter or variable of f.
func isLocal(f *ast.Function, name string) bool {
	for _, p := range f.Params {
		if p == name {
			return true
		}
	}
	var found bool
	walkOwn(f, func(n ast.Node) {
		if d, ok := n.(*ast.Declarator); ok && d.Name == name {
			found = true
		}
	})
	return found
}

// references counts the identifiers named name within n, assignment targets
// included.  Nested functions are searched unless they bind the name
// themselves.
func references(n ast.Node, name string) int {
	var count int
	ast.Walk(n, func(child, _ ast.Node) ast.Visit {
		switch child := child.(type) {
		case *ast.Identifier:
			if child.Name == name {
				count++
			}
		case *ast.Function:
			if child != n && declared(child)[name] {
				return ast.Skip
			}
		}
		return ast.Continue
	})
	return count
}

// assigned reports whether name is the target of an assignment or update
// within n, searching nested functions that do not bind it.
func assigned(n ast.Node, name string) bool {
	var found bool
	ast.Walk(n, func(child, _ ast.Node) ast.Visit {
		switch child := child.(type) {
		case *ast.Assign:
			found = found || ast.IsIdent(child.Left, name)
		case *ast.Update:
			found = found || ast.IsIdent(child.Arg, name)
		case *ast.Function:
			if child != n && declared(child)[name] {
				return ast.Skip
			}
		}
		if found {
			return ast.Break
		}
		return ast.Continue
	})
	return found
}

// pure reports whether evaluating n can neither fail nor have an effect.
// Property access is not pure: it fails on null.
func pure(n ast.Node) bool {
	switch n := n.(type) {
	case nil, *ast.Literal, *ast.Identifier, *ast.This, *ast.Function:
		return true
	case *ast.Unary:
		return n.Op != "delete" && pure(n.Arg)
	case *ast.Binary:
		return pure(n.Left) && pure(n.Right)
	case *ast.Logical:
		return pure(n.Left) && pure(n.Right)
	case *ast.Conditional:
		return pure(n.Test) && pure(n.Consequent) && pure(n.Alternate)
	case *ast.Sequence:
		return allPure(n.Exprs)
	case *ast.Array:
		return allPure(n.Elements)
	case *ast.Object:
		for _, p := range n.Props {
			if !pure(p.Value) {
				return false
			}
		}
		return true
	}
	return false
}

func allPure(nodes []ast.Node) bool {
	for _, n := range nodes {
		if !pure(n) {
			return false
		}
	}
	return true
}

// renderMethods return rendered markup.
var renderMethods = map[string]bool{
	"include":       true,
	"layout":        true,
	"customElement": true,
}

// stringValued reports whether n always evaluates to a string.
func stringValued(n ast.Node) bool {
	switch n := n.(type) {
	case *ast.Literal:
		return n.IsString()
	case *ast.Binary:
		return n.Op == "+" && (stringValued(n.Left) || stringValued(n.Right))
	case *ast.Call:
		switch callee := n.Callee.(type) {
		case *ast.Identifier:
			// synthesized rendering functions
			return strings.Contains(callee.Name, "$")
		case *ast.Member:
			prop, ok := callee.Property.(*ast.Identifier)
			if !ok || callee.Computed || !renderMethods[prop.Name] {
				return false
			}
			_, isThis := callee.Object.(*ast.This)
			return isThis || ast.IsIdent(callee.Object, "context")
		}
	}
	return false
}

// maxSuffix returns the largest N among names of the form prefix+N in the
// tree.
func maxSuffix(n ast.Node, prefix string) int {
	var max int
	var check = func(name string) {
		if !strings.HasPrefix(name, prefix) {
			return
		}
		if i, err := strconv.Atoi(name[len(prefix):]); err == nil && i > max {
			max = i
		}
	}
	ast.Walk(n, func(n, _ ast.Node) ast.Visit {
		switch n := n.(type) {
		case *ast.Identifier:
			check(n.Name)
		case *ast.Declarator:
			check(n.Name)
		}
		return ast.Continue
	})
	return max
}
