package ast

// Constructors for synthesized nodes.  They carry no source position.

func Ident(name string) *Identifier { return &Identifier{Name: name} }

func Str(s string) *Literal { return &Literal{Value: s} }

func Num(f float64) *Literal { return &Literal{Value: f} }

func Bool(b bool) *Literal { return &Literal{Value: b} }

func Null() *Literal { return &Literal{} }

// Dot builds the member chain obj.name1.name2...
func Dot(obj Node, names ...string) Node {
	for _, name := range names {
		obj = &Member{Object: obj, Property: Ident(name)}
	}
	return obj
}

// Index builds obj[key].
func Index(obj, key Node) *Member {
	return &Member{Object: obj, Property: key, Computed: true}
}

func CallOf(callee Node, args ...Node) *Call {
	return &Call{Callee: callee, Args: args}
}

func Bin(op string, left, right Node) *Binary {
	return &Binary{Op: op, Left: left, Right: right}
}

func Or(left, right Node) *Logical {
	return &Logical{Op: "||", Left: left, Right: right}
}

func Cond(test, consequent, alternate Node) *Conditional {
	return &Conditional{Test: test, Consequent: consequent, Alternate: alternate}
}

func Not(arg Node) *Unary {
	return &Unary{Op: "!", Arg: arg}
}

func Set(left, right Node) *Assign {
	return &Assign{Op: "=", Left: left, Right: right}
}

func Append(left, right Node) *Assign {
	return &Assign{Op: "+=", Left: left, Right: right}
}

func Stmt(expr Node) *ExprStmt {
	return &ExprStmt{Expr: expr}
}

func Decl(name string, init Node) *Declarator {
	return &Declarator{Name: name, Init: init}
}

func Var(decls ...*Declarator) *VarDecl {
	return &VarDecl{Decls: decls}
}

func Func(name string, params []string, body ...Node) *Function {
	return &Function{Name: name, Params: params, Body: body}
}

func FuncDecl(name string, params []string, body ...Node) *Function {
	return &Function{Name: name, Params: params, Body: body, Decl: true}
}

func Ret(arg Node) *Return {
	return &Return{Arg: arg}
}

func IfThen(test, consequent, alternate Node) *If {
	return &If{Test: test, Consequent: consequent, Alternate: alternate}
}

func BlockOf(body ...Node) *Block {
	return &Block{Body: body}
}

// IsIdent reports whether n is an identifier with the given name.
func IsIdent(n Node, name string) bool {
	id, ok := n.(*Identifier)
	return ok && id.Name == name
}
