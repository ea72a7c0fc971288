// Package ast contains definitions for the in-memory representation of an
// htmling template, both before lowering (template kinds) and after (the
// standard imperative kinds that the code generator serializes).
package ast

import (
	"bytes"
	"fmt"
	"strconv"
)

// Node represents any singular piece of a template or of the program it is
// lowered into.
type Node interface {
	Position() Pos // byte position of start of node in full original input string
}

// Pos represents a byte position in the original input text from which this
// template was parsed.  Nodes synthesized during lowering have position 0.
type Pos int

// Position returns this position.  It is implemented as a method so that Nodes
// may embed a Pos and fulfill this part of the Node interface for free.
func (p Pos) Position() Pos {
	return p
}

// Standard kinds -------------------------------------------------------------

// Program is the compile unit produced by lowering.
type Program struct {
	Pos
	Body []Node
}

// Literal is a string, number (float64), boolean or null (nil) constant.
type Literal struct {
	Pos
	Value interface{}
}

// IsString reports whether the literal holds a string.
func (n *Literal) IsString() bool {
	_, ok := n.Value.(string)
	return ok
}

func (n *Literal) String() string {
	switch v := n.Value.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(v)
	}
	return fmt.Sprint(n.Value)
}

type Identifier struct {
	Pos
	Name string
}

func (n *Identifier) String() string {
	return n.Name
}

// This is the implicit receiver of the enclosing function.
type This struct {
	Pos
}

// Member is a property access.  When Computed is false, Property is an
// *Identifier naming the property and is not itself a reference.
type Member struct {
	Pos
	Object   Node
	Property Node
	Computed bool
}

type Call struct {
	Pos
	Callee Node
	Args   []Node
}

// Binary covers arithmetic, equality and relational operators.
type Binary struct {
	Pos
	Op          string
	Left, Right Node
}

// Logical is a short-circuiting && or ||.
type Logical struct {
	Pos
	Op          string
	Left, Right Node
}

type Conditional struct {
	Pos
	Test, Consequent, Alternate Node
}

type Unary struct {
	Pos
	Op  string
	Arg Node
}

type Update struct {
	Pos
	Op     string // "++" or "--"
	Prefix bool
	Arg    Node
}

// Assign is an assignment expression: "=" or a compound operator like "+=".
type Assign struct {
	Pos
	Op          string
	Left, Right Node
}

// Sequence evaluates each expression in order, yielding the last.  Marker,
// when set, records the dotted access path the sequence dereferences.
type Sequence struct {
	Pos
	Exprs  []Node
	Marker string
}

type Array struct {
	Pos
	Elements []Node
}

// Property is a single key/value pair of an Object or of a custom element's
// attribute map.
type Property struct {
	Key   string
	Value Node
}

type Object struct {
	Pos
	Props []Property
}

// Function is a named or anonymous function.  Decl distinguishes a function
// declaration statement from a function expression.
type Function struct {
	Pos
	Name   string
	Params []string
	Body   []Node
	Decl   bool
}

type VarDecl struct {
	Pos
	Decls []*Declarator
}

// Declarator introduces a single local; Init may be nil.
type Declarator struct {
	Pos
	Name string
	Init Node
}

type Block struct {
	Pos
	Body []Node
}

type If struct {
	Pos
	Test       Node
	Consequent Node
	Alternate  Node // may be nil
}

type For struct {
	Pos
	Init, Test, Update Node // each may be nil
	Body               Node
}

type Return struct {
	Pos
	Arg Node // may be nil
}

type ContinueStmt struct {
	Pos
}

type ExprStmt struct {
	Pos
	Expr Node
}

// Template kinds -------------------------------------------------------------

// Template is the root of a parsed template.
type Template struct {
	Pos
	Name string
	Body []Node
}

// Output appends the value of Expr to the rendered result.  Raw output is not
// escaped.
type Output struct {
	Pos
	Expr Node
	Raw  bool
}

// ContentSlot renders caller-supplied content, or its default body.
type ContentSlot struct {
	Pos
	Body []Node // default content; may be empty
}

// Include renders another template in place.  Bind may hold an *Alias and
// Repeat an *Iterate; at most one of the two is set.
type Include struct {
	Pos
	Src    Node
	Body   []Node
	Bind   Node
	Repeat Node
}

// Repeat renders Body once per truthy item of Expr.  Expr may be an *Iterate.
type Repeat struct {
	Pos
	Expr Node
	Body []Node
}

// Iterate names the item (and optionally the index or key) of a repetition.
type Iterate struct {
	Pos
	Expr  Node
	Item  string
	Index string
}

// Bind renders Body with Expr as the current data scope.  Expr may be an
// *Alias, in which case the scope is extended instead of replaced.
type Bind struct {
	Pos
	Expr Node
	Body []Node
}

// Alias exposes Subject under Name.
type Alias struct {
	Pos
	Subject Node
	Name    string
}

type CustomElement struct {
	Pos
	Name        string
	Attrs       []Property
	Body        []Node
	SelfClosing bool
}

// Layout renders Body and hands the result as content to the template at Src.
type Layout struct {
	Pos
	Src  Node
	Body []Node
}

// IsTemplateKind reports whether n must be replaced during lowering.
func IsTemplateKind(n Node) bool {
	switch n.(type) {
	case *Template, *Output, *ContentSlot, *Include, *Repeat, *Iterate,
		*Bind, *Alias, *CustomElement, *Layout:
		return true
	}
	return false
}

func (n *Template) String() string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "template %s (%d statements)", n.Name, len(n.Body))
	return b.String()
}
