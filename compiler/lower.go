package compiler

import (
	"fmt"
	"strings"

	"github.com/robfig/htmling/ast"
)

// Lower converts the template into a program that assigns its render routine
// to exports.render.  Standard nodes pass through unchanged, apart from data
// paths, which become null-safe.
func (s *Session) Lower(tmpl *ast.Template) (prog *ast.Program, err error) {
	defer errRecover(&err)
	return ast.Rewrite(tmpl, s.lower).(*ast.Program), nil
}

func (s *Session) lower(n ast.Node) (ast.Node, ast.Visit) {
	switch n := n.(type) {
	case *ast.Template:
		return renderSkeleton.instantiate(fill{"$body": n.Body}), ast.Continue
	case *ast.Output:
		return s.lowerOutput(n), ast.Continue
	case *ast.ContentSlot:
		if len(n.Body) == 0 {
			return contentSkeleton.instantiate(nil), ast.Continue
		}
		return contentDefaultSkeleton.instantiate(fill{"$default": n.Body}), ast.Continue
	case *ast.Bind:
		return s.lowerBind(n), ast.Continue
	case *ast.Repeat:
		return s.lowerRepeat(n), ast.Continue
	case *ast.Include:
		return s.lowerInclude(n), ast.Continue
	case *ast.CustomElement:
		return s.lowerElement(n), ast.Continue
	case *ast.Layout:
		return layoutSkeleton.instantiate(fill{"$src": n.Src, "$body": n.Body}), ast.Continue
	case *ast.Alias:
		panic(fmt.Errorf("alias %q outside of a binding", n.Name))
	case *ast.Iterate:
		panic(fmt.Errorf("iteration over %q outside of a repeat", n.Item))
	case *ast.Call:
		// Keep the receiver of a method call on a data path.
		if m, ok := n.Callee.(*ast.Member); ok {
			if path := dataPath(m.Object); path != nil {
				m.Object = path
			}
		}
	case *ast.Member:
		if path := dataPath(n); path != nil {
			return path, ast.Continue
		}
	}
	return n, ast.Continue
}

func (s *Session) lowerOutput(n *ast.Output) ast.Node {
	if lit, ok := n.Expr.(*ast.Literal); ok && lit.Value != nil {
		return verbatimOutputSkeleton.instantiate(fill{"$value": lit})
	}
	if n.Raw {
		return rawOutputSkeleton.instantiate(fill{"$expr": n.Expr})
	}
	return escapedOutputSkeleton.instantiate(fill{"$expr": n.Expr})
}

func (s *Session) lowerBind(n *ast.Bind) ast.Node {
	if alias, ok := n.Expr.(*ast.Alias); ok {
		return aliasSkeleton.instantiate(fill{
			"$subject": alias.Subject,
			"$alias":   ast.Str(alias.Name),
			"$body":    n.Body,
		})
	}
	return bindSkeleton.instantiate(fill{
		"$expr":  n.Expr,
		"$saved": s.fresh("bind"),
		"$body":  n.Body,
	})
}

func (s *Session) lowerRepeat(n *ast.Repeat) ast.Node {
	iter, ok := n.Expr.(*ast.Iterate)
	if !ok {
		return repeatSkeleton.instantiate(fill{
			"$name": s.fresh("repeat"),
			"$expr": n.Expr,
			"$body": n.Body,
		})
	}
	var f = fill{
		"$scope": s.fresh("scope"),
		"$value": s.fresh("value"),
		"$item":  ast.Str(iter.Item),
		"$expr":  iter.Expr,
		"$body":  n.Body,
	}
	if iter.Index == "" {
		return iterateSkeleton.instantiate(f)
	}
	f["$index"] = ast.Str(iter.Index)
	return iterateIndexSkeleton.instantiate(f)
}

// lowerInclude selects the skeleton matching the include's static shape.  The
// result is a block: the function rendering the include's body, if any,
// followed by the statements rendering the include itself.
func (s *Session) lowerInclude(n *ast.Include) ast.Node {
	var stmts []ast.Node
	var content ast.Node = ast.Ident("undefined")
	if len(n.Body) > 0 {
		var name = s.fresh("include")
		stmts = append(stmts, includeBodySkeleton.instantiate(fill{"$name": name, "$body": n.Body}))
		content = includeContentSkeleton.instantiate(fill{"$name": name})
	}

	var f = fill{"$path": n.Src, "$content": content}
	switch {
	case n.Bind != nil:
		f["$bound"] = s.fresh("bound")
		if alias, ok := n.Bind.(*ast.Alias); ok {
			f["$subject"] = alias.Subject
			f["$alias"] = ast.Str(alias.Name)
			stmts = append(stmts, includeAliasSkeleton.statements(f)...)
		} else {
			f["$expr"] = n.Bind
			stmts = append(stmts, includeBindSkeleton.statements(f)...)
		}

	case n.Repeat != nil:
		var sk = repeatIncludeSkeleton
		switch repeat := n.Repeat.(type) {
		case *ast.Iterate:
			f["$name"] = s.fresh("iterateInclude")
			f["$item"] = ast.Str(repeat.Item)
			f["$expr"] = repeat.Expr
			sk = iterateIncludeSkeleton
			if repeat.Index != "" {
				f["$index"] = ast.Str(repeat.Index)
				sk = iterateIndexIncludeSkeleton
			}
		case *ast.Array:
			f["$name"] = s.fresh("repeatArray")
			sk = repeatArrayIncludeSkeleton
		case *ast.Object:
			f["$name"] = s.fresh("repeatObject")
			sk = repeatObjectIncludeSkeleton
		default:
			f["$name"] = s.fresh("repeatInclude")
		}
		if _, ok := f["$expr"]; !ok {
			f["$expr"] = n.Repeat
		}
		f["$value"] = s.fresh("value")
		stmts = append(stmts, sk.statements(f)...)

	default:
		stmts = append(stmts, includeSkeleton.instantiate(f))
	}
	return &ast.Block{Pos: n.Pos, Body: stmts}
}

func (s *Session) lowerElement(n *ast.CustomElement) ast.Node {
	var f = fill{
		"$name":  ast.Str(n.Name),
		"$attrs": &ast.Object{Pos: n.Pos, Props: n.Attrs},
	}
	switch {
	case n.SelfClosing:
		return elementSelfClosingSkeleton.instantiate(f)
	case len(n.Body) == 0:
		return elementEmptySkeleton.instantiate(f)
	}
	f["$body"] = n.Body
	return elementSkeleton.instantiate(f)
}

// dataPath returns the null-safe form of a member chain rooted at the data
// scope with at least two steps, or nil.  Each step is taken only if the
// value so far is not null or undefined:
//   (ref = object.a, ref = ref == null ? ref : ref.b, ref == null ? ref : ref.c)
// A chain made only of named steps is marked with its dotted path.
func dataPath(n ast.Node) ast.Node {
	var steps []*ast.Member
	for {
		m, ok := n.(*ast.Member)
		if !ok {
			break
		}
		steps = append(steps, m)
		n = m.Object
	}
	if len(steps) < 2 || !ast.IsIdent(n, objectIdent) {
		return nil
	}

	var names = []string{objectIdent}
	var exprs []ast.Node
	var step = func(obj ast.Node, m *ast.Member) ast.Node {
		if prop, ok := m.Property.(*ast.Identifier); ok && !m.Computed && names != nil {
			names = append(names, prop.Name)
		} else {
			names = nil
		}
		return &ast.Member{Pos: m.Pos, Object: obj, Property: m.Property, Computed: m.Computed}
	}
	var guarded = func(m *ast.Member) ast.Node {
		return ast.Cond(ast.Bin("==", id(refIdent), ast.Null()), id(refIdent), step(id(refIdent), m))
	}

	var last = len(steps) - 1
	exprs = append(exprs, ast.Set(id(refIdent), step(n, steps[last])))
	for i := last - 1; i > 0; i-- {
		exprs = append(exprs, ast.Set(id(refIdent), guarded(steps[i])))
	}
	exprs = append(exprs, guarded(steps[0]))

	var seq = &ast.Sequence{Pos: steps[0].Pos, Exprs: exprs}
	if names != nil {
		seq.Marker = strings.Join(names, ".")
	}
	return seq
}
