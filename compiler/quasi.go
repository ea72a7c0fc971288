package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/robfig/htmling/ast"
)

// A skeleton is a fragment of standard nodes containing holes.  A hole is an
// identifier whose name begins with "$".  Function names, parameters,
// declarator names and object keys may also be holes, in which case they are
// filled with a plain name.
type skeleton struct {
	name string
	root ast.Node
}

func newSkeleton(name string, root ast.Node) *skeleton {
	return &skeleton{name, root}
}

// fill maps each hole to its value:
//   ast.Node   substituted in place of the hole identifier
//   []ast.Node spliced into the enclosing statement list (statement holes only)
//   string     an identifier, or a name in a naming position
type fill map[string]interface{}

func isHole(name string) bool {
	return strings.HasPrefix(name, "$")
}

// instantiate returns a fresh copy of the skeleton with every hole filled.
// Every hole must be filled and every value in f must be used.
func (s *skeleton) instantiate(f fill) ast.Node {
	var sub = &substitution{skeleton: s, fill: f, used: make(map[string]bool)}
	var root = ast.Rewrite(ast.Clone(s.root), sub.visit)
	if len(sub.used) != len(f) {
		var unused []string
		for name := range f {
			if !sub.used[name] {
				unused = append(unused, name)
			}
		}
		sort.Strings(unused)
		panic(fmt.Errorf("skeleton %s: no hole for %v", s.name, unused))
	}
	return root
}

// statements instantiates a skeleton whose root is a block, returning its
// statements.
func (s *skeleton) statements(f fill) []ast.Node {
	return s.instantiate(f).(*ast.Block).Body
}

type substitution struct {
	skeleton *skeleton
	fill fill
	used map[string]bool
}

func (s *substitution) visit(n ast.Node) (ast.Node, ast.Visit) {
	switch n := n.(type) {
	case *ast.Identifier:
		if isHole(n.Name) {
			return s.node(n.Name), ast.Skip
		}
	case *ast.Program:
		n.Body = s.list(n.Body)
	case *ast.Block:
		n.Body = s.list(n.Body)
	case *ast.Function:
		n.Name = s.rename(n.Name)
		for i, p := range n.Params {
			n.Params[i] = s.rename(p)
		}
		n.Body = s.list(n.Body)
	case *ast.Declarator:
		n.Name = s.rename(n.Name)
	case *ast.Object:
		for i := range n.Props {
			n.Props[i].Key = s.rename(n.Props[i].Key)
		}
	}
	return n, ast.Continue
}

func (s *substitution) lookup(hole string) interface{} {
	var value, ok = s.fill[hole]
	if !ok {
		panic(fmt.Errorf("skeleton %s: hole %s is not filled", s.skeleton.name, hole))
	}
	return value
}

// node returns the value for a hole in expression position.  A sub-tree used
// more than once is copied after its first use.
func (s *substitution) node(hole string) ast.Node {
	var value = s.lookup(hole)
	var seen = s.used[hole]
	s.used[hole] = true
	switch value := value.(type) {
	case string:
		return ast.Ident(value)
	case ast.Node:
		if seen {
			return ast.Clone(value)
		}
		return value
	}
	panic(fmt.Errorf("skeleton %s: hole %s cannot take %T", s.skeleton.name, hole, value))
}

func (s *substitution) rename(name string) string {
	if !isHole(name) {
		return name
	}
	value, ok := s.lookup(name).(string)
	if !ok {
		panic(fmt.Errorf("skeleton %s: hole %s requires a name", s.skeleton.name, name))
	}
	s.used[name] = true
	return value
}

// list splices statement holes.
func (s *substitution) list(body []ast.Node) []ast.Node {
	var result = make([]ast.Node, 0, len(body))
	for _, stmt := range body {
		if es, ok := stmt.(*ast.ExprStmt); ok {
			if id, ok := es.Expr.(*ast.Identifier); ok && isHole(id.Name) {
				if nodes, ok := s.lookup(id.Name).([]ast.Node); ok {
					s.used[id.Name] = true
					result = append(result, nodes...)
					continue
				}
			}
		}
		result = append(result, stmt)
	}
	return result
}
