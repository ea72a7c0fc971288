package ast

// Visit controls how a traversal proceeds after visiting a node.
type Visit int

const (
	Continue Visit = iota // descend into the node's children
	Skip                  // do not descend, but keep walking siblings
	Break                 // stop the traversal entirely
)

// slots calls fn with the address of every child slot of n, in source order.
// Non-computed member properties are names, not children, and are omitted.
func slots(n Node, fn func(*Node)) {
	switch n := n.(type) {
	case *Program:
		list(n.Body, fn)
	case *Member:
		fn(&n.Object)
		if n.Computed {
			fn(&n.Property)
		}
	case *Call:
		fn(&n.Callee)
		list(n.Args, fn)
	case *Binary:
		fn(&n.Left)
		fn(&n.Right)
	case *Logical:
		fn(&n.Left)
		fn(&n.Right)
	case *Conditional:
		fn(&n.Test)
		fn(&n.Consequent)
		fn(&n.Alternate)
	case *Unary:
		fn(&n.Arg)
	case *Update:
		fn(&n.Arg)
	case *Assign:
		fn(&n.Left)
		fn(&n.Right)
	case *Sequence:
		list(n.Exprs, fn)
	case *Array:
		list(n.Elements, fn)
	case *Object:
		props(n.Props, fn)
	case *Function:
		list(n.Body, fn)
	case *VarDecl:
		for _, d := range n.Decls {
			var node Node = d
			fn(&node)
		}
	case *Declarator:
		opt(&n.Init, fn)
	case *Block:
		list(n.Body, fn)
	case *If:
		fn(&n.Test)
		fn(&n.Consequent)
		opt(&n.Alternate, fn)
	case *For:
		opt(&n.Init, fn)
		opt(&n.Test, fn)
		opt(&n.Update, fn)
		fn(&n.Body)
	case *Return:
		opt(&n.Arg, fn)
	case *ExprStmt:
		fn(&n.Expr)
	case *Template:
		list(n.Body, fn)
	case *Output:
		fn(&n.Expr)
	case *ContentSlot:
		list(n.Body, fn)
	case *Include:
		fn(&n.Src)
		list(n.Body, fn)
		opt(&n.Bind, fn)
		opt(&n.Repeat, fn)
	case *Repeat:
		fn(&n.Expr)
		list(n.Body, fn)
	case *Iterate:
		fn(&n.Expr)
	case *Bind:
		fn(&n.Expr)
		list(n.Body, fn)
	case *Alias:
		fn(&n.Subject)
	case *CustomElement:
		props(n.Attrs, fn)
		list(n.Body, fn)
	case *Layout:
		fn(&n.Src)
		list(n.Body, fn)
	}
}

func list(nodes []Node, fn func(*Node)) {
	for i := range nodes {
		fn(&nodes[i])
	}
}

func props(ps []Property, fn func(*Node)) {
	for i := range ps {
		fn(&ps[i].Value)
	}
}

func opt(slot *Node, fn func(*Node)) {
	if *slot != nil {
		fn(slot)
	}
}

// Walk traverses the tree rooted at n in depth-first order, calling fn with
// each node and its parent.  It reports false if the walk was broken off.
func Walk(n Node, fn func(n, parent Node) Visit) bool {
	return walk(n, nil, fn)
}

func walk(n, parent Node, fn func(n, parent Node) Visit) bool {
	switch fn(n, parent) {
	case Break:
		return false
	case Skip:
		return true
	}
	var ok = true
	slots(n, func(child *Node) {
		if ok {
			ok = walk(*child, n, fn)
		}
	})
	return ok
}

// Rewrite performs a top-down rewrite of the tree rooted at n.  fn returns
// the replacement for each node it is given; the children of the replacement
// are then rewritten in turn unless fn returned Skip.  The replacement itself
// is not passed to fn again.  Declarators are never replaced.
func Rewrite(n Node, fn func(n Node) (Node, Visit)) Node {
	var stop bool
	return rewrite(n, fn, &stop)
}

func rewrite(n Node, fn func(Node) (Node, Visit), stop *bool) Node {
	var repl, visit = fn(n)
	switch visit {
	case Break:
		*stop = true
		return repl
	case Skip:
		return repl
	}
	slots(repl, func(child *Node) {
		if *stop {
			return
		}
		var next = rewrite(*child, fn, stop)
		if _, isDecl := (*child).(*Declarator); !isDecl {
			*child = next
		}
	})
	return repl
}

// IsFunction reports whether n opens a new scope.
func IsFunction(n Node) bool {
	_, ok := n.(*Function)
	return ok
}

// Bodies calls fn with the address of every statement list in the tree rooted
// at n, innermost first.
func Bodies(n Node, fn func(body *[]Node)) {
	slots(n, func(child *Node) {
		Bodies(*child, fn)
	})
	switch n := n.(type) {
	case *Program:
		fn(&n.Body)
	case *Block:
		fn(&n.Body)
	case *Function:
		fn(&n.Body)
	}
}
