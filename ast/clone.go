package ast

import "fmt"

// Clone returns a deep copy of the tree rooted at n.
func Clone(n Node) Node {
	if n == nil {
		return nil
	}
	switch n := n.(type) {
	case *Program:
		return &Program{n.Pos, CloneList(n.Body)}
	case *Literal:
		return &Literal{n.Pos, n.Value}
	case *Identifier:
		return &Identifier{n.Pos, n.Name}
	case *This:
		return &This{n.Pos}
	case *Member:
		return &Member{n.Pos, Clone(n.Object), Clone(n.Property), n.Computed}
	case *Call:
		return &Call{n.Pos, Clone(n.Callee), CloneList(n.Args)}
	case *Binary:
		return &Binary{n.Pos, n.Op, Clone(n.Left), Clone(n.Right)}
	case *Logical:
		return &Logical{n.Pos, n.Op, Clone(n.Left), Clone(n.Right)}
	case *Conditional:
		return &Conditional{n.Pos, Clone(n.Test), Clone(n.Consequent), Clone(n.Alternate)}
	case *Unary:
		return &Unary{n.Pos, n.Op, Clone(n.Arg)}
	case *Update:
		return &Update{n.Pos, n.Op, n.Prefix, Clone(n.Arg)}
	case *Assign:
		return &Assign{n.Pos, n.Op, Clone(n.Left), Clone(n.Right)}
	case *Sequence:
		return &Sequence{n.Pos, CloneList(n.Exprs), n.Marker}
	case *Array:
		return &Array{n.Pos, CloneList(n.Elements)}
	case *Object:
		return &Object{n.Pos, cloneProps(n.Props)}
	case *Function:
		return &Function{n.Pos, n.Name, append([]string(nil), n.Params...), CloneList(n.Body), n.Decl}
	case *VarDecl:
		var decls = make([]*Declarator, len(n.Decls))
		for i, d := range n.Decls {
			decls[i] = Clone(d).(*Declarator)
		}
		return &VarDecl{n.Pos, decls}
	case *Declarator:
		return &Declarator{n.Pos, n.Name, Clone(n.Init)}
	case *Block:
		return &Block{n.Pos, CloneList(n.Body)}
	case *If:
		return &If{n.Pos, Clone(n.Test), Clone(n.Consequent), Clone(n.Alternate)}
	case *For:
		return &For{n.Pos, Clone(n.Init), Clone(n.Test), Clone(n.Update), Clone(n.Body)}
	case *Return:
		return &Return{n.Pos, Clone(n.Arg)}
	case *ContinueStmt:
		return &ContinueStmt{n.Pos}
	case *ExprStmt:
		return &ExprStmt{n.Pos, Clone(n.Expr)}
	case *Template:
		return &Template{n.Pos, n.Name, CloneList(n.Body)}
	case *Output:
		return &Output{n.Pos, Clone(n.Expr), n.Raw}
	case *ContentSlot:
		return &ContentSlot{n.Pos, CloneList(n.Body)}
	case *Include:
		return &Include{n.Pos, Clone(n.Src), CloneList(n.Body), Clone(n.Bind), Clone(n.Repeat)}
	case *Repeat:
		return &Repeat{n.Pos, Clone(n.Expr), CloneList(n.Body)}
	case *Iterate:
		return &Iterate{n.Pos, Clone(n.Expr), n.Item, n.Index}
	case *Bind:
		return &Bind{n.Pos, Clone(n.Expr), CloneList(n.Body)}
	case *Alias:
		return &Alias{n.Pos, Clone(n.Subject), n.Name}
	case *CustomElement:
		return &CustomElement{n.Pos, n.Name, cloneProps(n.Attrs), CloneList(n.Body), n.SelfClosing}
	case *Layout:
		return &Layout{n.Pos, Clone(n.Src), CloneList(n.Body)}
	}
	panic(fmt.Sprintf("ast: cannot clone %T", n))
}

// CloneList deep-copies a statement or expression list.
func CloneList(nodes []Node) []Node {
	if nodes == nil {
		return nil
	}
	var out = make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = Clone(n)
	}
	return out
}

func cloneProps(ps []Property) []Property {
	if ps == nil {
		return nil
	}
	var out = make([]Property, len(ps))
	for i, p := range ps {
		out[i] = Property{p.Key, Clone(p.Value)}
	}
	return out
}
