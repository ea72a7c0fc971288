package optimizer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/robfig/htmling/ast"
)

const (
	cachePrefix = "cache$"
	refIdent    = "ref"
)

// cacheReferences collapses repeated data paths within a function.
//
// Lowering marks each null-safe path sequence with its dotted path.  Paths
// sharing a prefix of at least one property are grouped under the longest
// prefix shared with another path; a group whose prefix extends another's is
// merged into the shorter.  For each group of two or more paths, the prefix is
// dereferenced once, into a cache$N variable declared after the function's
// first declaration, and every path in the group continues from it.
//
// The root of a cached path must not be assigned anywhere in the function, or
// the cached value could go stale.
func cacheReferences(o *optimizer) bool {
	var changed bool
	functions(o.prog, func(fn *ast.Function) {
		if o.cacheFunction(fn) {
			changed = true
		}
	})
	return changed
}

type pathGroup struct {
	prefix []string
	count  int
	cache  string
}

func (g *pathGroup) key() string {
	return strings.Join(g.prefix, ".")
}

func (o *optimizer) cacheFunction(fn *ast.Function) bool {
	var first = -1
	for i, stmt := range fn.Body {
		if _, ok := stmt.(*ast.VarDecl); ok {
			first = i
			break
		}
	}
	if first < 0 {
		return false
	}

	// Only paths evaluated after the caches are declared may use them.
	var paths [][]string
	for _, stmt := range fn.Body[first+1:] {
		ast.Walk(stmt, func(n, _ ast.Node) ast.Visit {
			switch n := n.(type) {
			case *ast.Function:
				return ast.Skip
			case *ast.Sequence:
				if n.Marker == "" {
					break
				}
				var path = strings.Split(n.Marker, ".")
				if !assigned(fn, path[0]) {
					paths = append(paths, path)
				}
			}
			return ast.Continue
		})
	}
	var groups = groupPaths(paths)
	if len(groups) == 0 {
		return false
	}

	// Declare the caches, shortest prefix first for a stable order.
	var inits []ast.Node
	for _, g := range groups {
		o.caches++
		g.cache = fmt.Sprintf("%s%d", cachePrefix, o.caches)
		inits = append(inits, cacheInit(g.cache, g.prefix)...)
	}
	var body = append([]ast.Node{}, fn.Body[:first+1]...)
	body = append(body, inits...)
	fn.Body = append(body, fn.Body[first+1:]...)

	var replace = func(n ast.Node) (ast.Node, ast.Visit) {
		switch n := n.(type) {
		case *ast.Function:
			return n, ast.Skip
		case *ast.Sequence:
			if n.Marker == "" {
				break
			}
			var path = strings.Split(n.Marker, ".")
			for _, g := range groups {
				if hasPrefix(path, g.prefix) {
					return continuePath(g.cache, path[len(g.prefix):]), ast.Skip
				}
			}
		}
		return n, ast.Continue
	}
	for i := first + 1 + len(inits); i < len(fn.Body); i++ {
		fn.Body[i] = ast.Rewrite(fn.Body[i], replace)
	}
	return true
}

// groupPaths returns the prefixes worth caching, shortest first.
func groupPaths(paths [][]string) []*pathGroup {
	var byKey = make(map[string]*pathGroup)
	for i, path := range paths {
		var longest int
		for j, other := range paths {
			if i != j {
				if n := commonPrefix(path, other); n > longest {
					longest = n
				}
			}
		}
		if longest < 2 {
			continue
		}
		var g = &pathGroup{prefix: path[:longest]}
		if existing, ok := byKey[g.key()]; ok {
			g = existing
		} else {
			byKey[g.key()] = g
		}
		g.count++
	}

	var groups []*pathGroup
	for _, g := range byKey {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool {
		if len(groups[i].prefix) != len(groups[j].prefix) {
			return len(groups[i].prefix) < len(groups[j].prefix)
		}
		return groups[i].key() < groups[j].key()
	})

	var merged []*pathGroup
outer:
	for _, g := range groups {
		for _, m := range merged {
			if hasPrefix(g.prefix, m.prefix) {
				m.count += g.count
				continue outer
			}
		}
		merged = append(merged, g)
	}

	var result []*pathGroup
	for _, g := range merged {
		if g.count >= 2 {
			result = append(result, g)
		}
	}
	return result
}

func commonPrefix(a, b []string) int {
	var n int
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

func hasPrefix(path, prefix []string) bool {
	return len(path) >= len(prefix) && commonPrefix(path, prefix) == len(prefix)
}

// guarded builds x == null ? x : x.name.
func guarded(x func() ast.Node, name string) ast.Node {
	return ast.Cond(ast.Bin("==", x(), ast.Null()), x(), ast.Dot(x(), name))
}

// cacheInit declares name and dereferences the prefix into it, one step per
// statement.
func cacheInit(name string, prefix []string) []ast.Node {
	var root = prefix[0]
	var stmts = []ast.Node{
		ast.Var(ast.Decl(name, guarded(func() ast.Node { return ast.Ident(root) }, prefix[1]))),
	}
	for _, step := range prefix[2:] {
		stmts = append(stmts, ast.Stmt(ast.Set(ast.Ident(name),
			guarded(func() ast.Node { return ast.Ident(name) }, step))))
	}
	return stmts
}

// continuePath dereferences the remaining steps of a path from a cache.
func continuePath(cache string, rest []string) ast.Node {
	var ref = func() ast.Node { return ast.Ident(refIdent) }
	switch len(rest) {
	case 0:
		return ast.Ident(cache)
	case 1:
		return guarded(func() ast.Node { return ast.Ident(cache) }, rest[0])
	}
	var exprs = []ast.Node{ast.Set(ref(), guarded(func() ast.Node { return ast.Ident(cache) }, rest[0]))}
	for _, step := range rest[1 : len(rest)-1] {
		exprs = append(exprs, ast.Set(ref(), guarded(ref, step)))
	}
	exprs = append(exprs, guarded(ref, rest[len(rest)-1]))
	return &ast.Sequence{Exprs: exprs}
}
