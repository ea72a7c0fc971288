// Package parse converts htmling markup into its in-memory representation (AST).
//
// Text outside of interpolations is kept verbatim.  Data names in expressions
// resolve against the current data scope, which the tree refers to by the
// identifier "object"; the keyword "this" denotes the scope itself.  Filters
// are calls on the identifier "filters".
package parse

import (
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/robfig/htmling/ast"
	"github.com/robfig/htmling/errortypes"
)

// Identifiers the parser emits for the data scope and the filter context.
const (
	ScopeIdent   = "object"
	FiltersIdent = "filters"
)

// tree is the parsed representation of a single template.
type tree struct {
	name      string  // name provided for the input
	text      string  // the full input text
	lex       *lexer  // lexer provides a sequence of tokens
	token     [2]item // two-token lookahead
	peekCount int     // how many tokens have we backed up?
}

// attr is an attribute of an element, in source order.
type attr struct {
	name, value string
	pos         ast.Pos
}

// Template parses the input into a template tree named name.
func Template(name, text string) (node *ast.Template, err error) {
	var t = &tree{
		name: name,
		text: text,
		lex:  lex(name, text),
	}
	defer t.recover(&err)
	var body = t.itemList("")
	t.lex = nil
	return &ast.Template{Name: name, Body: body}, nil
}

// Expr parses a single expression, with optional filters.
func Expr(str string) (node ast.Node, err error) {
	var t = &tree{name: "expr", text: str, lex: lexExpr("expr", str, 0)}
	defer t.recover(&err)
	node = t.parseFiltered()
	t.expect(itemEOF, "expression")
	return node, nil
}

// itemList:
//	(text | interpolation | element)*
// Terminates at the closing tag named until, or at EOF if until is empty.
func (t *tree) itemList(until string) []ast.Node {
	var nodes []ast.Node
	for {
		switch token := t.next(); token.typ {
		case itemEOF:
			if until != "" {
				t.errorf("unexpected EOF, expected </%s>", until)
			}
			return nodes
		case itemTagClose:
			if token.val != until {
				t.unexpected(token, "template body")
			}
			return nodes
		case itemText:
			nodes = append(nodes, &ast.Output{Pos: token.pos, Expr: &ast.Literal{Pos: token.pos, Value: token.val}})
		case itemLeftDelim, itemLeftRawDelim:
			nodes = append(nodes, t.parseOutput(token))
		case itemTagOpen:
			nodes = append(nodes, t.parseElement(token))
		default:
			t.unexpected(token, "template body")
		}
	}
}

// parseOutput parses an interpolation.  The left delimiter has been read.
func (t *tree) parseOutput(open item) ast.Node {
	var raw = open.typ == itemLeftRawDelim
	var expr = t.parseFiltered()
	if raw {
		t.expect(itemRightRawDelim, "raw interpolation")
	} else {
		t.expect(itemRightDelim, "interpolation")
	}
	return &ast.Output{Pos: open.pos, Expr: expr, Raw: raw}
}

// Elements -------------------------------------------------------------------

// parseElement parses one of the understood elements.  The "<name" has been read.
func (t *tree) parseElement(open item) ast.Node {
	var attrs, selfClosing = t.parseAttrs()
	var body []ast.Node
	if !selfClosing {
		body = t.itemList(open.val)
	}

	switch open.val {
	case "template":
		return t.parseTemplateElement(open, attrs, body)
	case "content":
		t.checkAttrs(open, attrs)
		return &ast.ContentSlot{Pos: open.pos, Body: body}
	case "include":
		return t.parseInclude(open, attrs, body)
	}

	var elem = &ast.CustomElement{
		Pos:         open.pos,
		Name:        open.val,
		Body:        body,
		SelfClosing: selfClosing,
	}
	for _, a := range attrs {
		elem.Attrs = append(elem.Attrs, ast.Property{Key: a.name, Value: t.interpolated(a)})
	}
	return elem
}

// parseAttrs reads attributes up to the end of the opening tag, reporting
// whether the element was self-closing.
func (t *tree) parseAttrs() (attrs []attr, selfClosing bool) {
	for {
		switch token := t.next(); token.typ {
		case itemTagEnd:
			return attrs, false
		case itemTagSelfClose:
			return attrs, true
		case itemAttrName:
			var a = attr{name: token.val, pos: token.pos}
			if next := t.next(); next.typ == itemAttrValue {
				a.value, a.pos = next.val, next.pos
			} else {
				t.backup()
			}
			for _, existing := range attrs {
				if existing.name == a.name {
					t.errorf("duplicate attribute %q", a.name)
				}
			}
			attrs = append(attrs, a)
		default:
			t.unexpected(token, "element attributes")
		}
	}
}

// checkAttrs fails if any attribute is not in allowed.
func (t *tree) checkAttrs(open item, attrs []attr, allowed ...string) {
	for _, a := range attrs {
		if !inStringSlice(a.name, allowed) {
			t.errorAt(open.pos, "unexpected attribute %q on <%s>", a.name, open.val)
		}
	}
}

func (t *tree) parseTemplateElement(open item, attrs []attr, body []ast.Node) ast.Node {
	t.checkAttrs(open, attrs, "bind", "repeat", "if", "layout")
	if len(attrs) > 1 {
		t.errorAt(open.pos, "<template> takes at most one of bind, repeat, if, layout")
	}
	if len(attrs) == 0 {
		return &ast.Block{Pos: open.pos, Body: body}
	}
	switch a := attrs[0]; a.name {
	case "bind":
		return &ast.Bind{Pos: open.pos, Expr: t.binding(a, false), Body: body}
	case "repeat":
		return &ast.Repeat{Pos: open.pos, Expr: t.binding(a, true), Body: body}
	case "if":
		return &ast.If{Pos: open.pos, Test: t.attrExpr(a), Consequent: &ast.Block{Body: body}}
	default:
		return &ast.Layout{Pos: open.pos, Src: t.interpolated(a), Body: body}
	}
}

func (t *tree) parseInclude(open item, attrs []attr, body []ast.Node) ast.Node {
	t.checkAttrs(open, attrs, "src", "bind", "repeat")
	var include = &ast.Include{Pos: open.pos, Body: body}
	for _, a := range attrs {
		switch a.name {
		case "src":
			include.Src = t.interpolated(a)
		case "bind":
			include.Bind = t.binding(a, false)
		case "repeat":
			include.Repeat = t.binding(a, true)
		}
	}
	if include.Src == nil {
		t.errorAt(open.pos, "<include> requires a src attribute")
	}
	if include.Bind != nil && include.Repeat != nil {
		t.errorAt(open.pos, "<include> cannot both bind and repeat")
	}
	return include
}

// Attribute values -----------------------------------------------------------

// withLexer runs fn with tokens drawn from l, restoring the enclosing lexer
// afterwards.
func (t *tree) withLexer(l *lexer, fn func()) {
	var saved, savedToken, savedPeek = t.lex, t.token, t.peekCount
	defer func() {
		if e := recover(); e != nil {
			l.drain()
			t.lex = saved
			panic(e)
		}
		t.lex, t.token, t.peekCount = saved, savedToken, savedPeek
	}()
	t.lex, t.peekCount = l, 0
	fn()
}

// attrExpr parses an attribute holding a single expression, written either as
// one interpolation or bare.
func (t *tree) attrExpr(a attr) (node ast.Node) {
	t.attrBody(a, func() {
		node = t.parseFiltered()
	})
	return node
}

// binding parses the value of a bind or repeat attribute, which may name its
// subject with "as".
func (t *tree) binding(a attr, repeat bool) (node ast.Node) {
	t.attrBody(a, func() {
		var pos = t.peek().pos
		node = t.parseFiltered()
		if t.peek().typ != itemAs {
			return
		}
		t.next()
		var name = t.expect(itemIdent, "alias").val
		if !repeat {
			node = &ast.Alias{Pos: pos, Subject: node, Name: name}
			return
		}
		var iter = &ast.Iterate{Pos: pos, Expr: node, Item: name}
		if t.peek().typ == itemComma {
			t.next()
			iter.Index = t.expect(itemIdent, "index name").val
		}
		node = iter
	})
	return node
}

func (t *tree) attrBody(a attr, fn func()) {
	var value = strings.TrimSpace(a.value)
	if value == "" {
		t.errorf("attribute %q requires an expression", a.name)
	}
	var offset = a.pos + ast.Pos(strings.Index(a.value, value))
	if !strings.HasPrefix(value, "{{") {
		t.withLexer(lexExpr(t.name, value, offset), func() {
			fn()
			t.expect(itemEOF, "attribute "+a.name)
		})
		return
	}
	t.withLexer(lexAttr(t.name, value, offset), func() {
		var open = t.next()
		if open.typ != itemLeftDelim {
			t.unexpected(open, "attribute "+a.name)
		}
		fn()
		t.expect(itemRightDelim, "attribute "+a.name)
		t.expect(itemEOF, "attribute "+a.name)
	})
}

// interpolated parses an attribute value of text mixed with interpolations.
// A value that is a single interpolation keeps the type of its expression;
// anything else becomes a string concatenation.
func (t *tree) interpolated(a attr) (node ast.Node) {
	var parts []ast.Node
	t.withLexer(lexAttr(t.name, a.value, a.pos), func() {
		for {
			switch token := t.next(); token.typ {
			case itemEOF:
				return
			case itemText:
				parts = append(parts, &ast.Literal{Pos: token.pos, Value: token.val})
			case itemLeftDelim, itemLeftRawDelim:
				parts = append(parts, t.parseOutput(token).(*ast.Output).Expr)
			default:
				t.unexpected(token, "attribute "+a.name)
			}
		}
	})
	switch len(parts) {
	case 0:
		return &ast.Literal{Pos: a.pos, Value: ""}
	case 1:
		return parts[0]
	}
	node = parts[0]
	if lit, ok := node.(*ast.Literal); !ok || !lit.IsString() {
		node = &ast.Binary{Pos: a.pos, Op: "+", Left: ast.Str(""), Right: node}
	}
	for _, part := range parts[1:] {
		node = &ast.Binary{Pos: part.Position(), Op: "+", Left: node, Right: part}
	}
	return node
}

// Expressions ----------------------------------------------------------------

// parseFiltered parses an expression followed by any number of filters:
//	Expr ( "|" Ident [ "(" Args ")" ] )*
func (t *tree) parseFiltered() ast.Node {
	var n = t.parseExpr(0)
	for t.peek().typ == itemPipe {
		var pipe = t.next()
		var name = t.expect(itemIdent, "filter")
		var args = []ast.Node{n}
		if t.peek().typ == itemLeftParen {
			t.next()
			args = append(args, t.parseArgs()...)
		}
		n = &ast.Call{
			Pos:    pipe.pos,
			Callee: ast.Dot(&ast.Identifier{Pos: name.pos, Name: FiltersIdent}, name.val),
			Args:   args,
		}
	}
	return n
}

// Expr ->   Primary
//         | Expr BinaryOp Expr
//         | Expr "?" Expr ":" Expr
func (t *tree) parseExpr(prec int) ast.Node {
	n := t.parseUnary()
	var tok item
	for {
		tok = t.next()
		q := precedence[tok.typ]
		if !isBinaryOp(tok.typ) || q < prec {
			break
		}
		n = newBinaryNode(tok, n, t.parseExpr(q+1))
	}
	if prec == 0 && tok.typ == itemTernIf {
		return t.parseTernary(tok, n)
	}
	t.backup()
	return n
}

// parseUnary parses a unary operator application or a postfix expression.
func (t *tree) parseUnary() ast.Node {
	switch tok := t.next(); tok.typ {
	case itemNot, itemSub, itemAdd:
		return &ast.Unary{Pos: tok.pos, Op: tok.val, Arg: t.parseExpr(unaryPrecedence)}
	default:
		t.backup()
		return t.parsePostfix(t.parsePrimary())
	}
}

// Primary ->   "(" Expr ")" | Literal | Ident
func (t *tree) parsePrimary() ast.Node {
	switch tok := t.next(); tok.typ {
	case itemLeftParen:
		n := t.parseExpr(0)
		t.expect(itemRightParen, "expression")
		return n
	case itemNull:
		return &ast.Literal{Pos: tok.pos}
	case itemBool:
		return &ast.Literal{Pos: tok.pos, Value: tok.val == "true"}
	case itemNumber:
		f, err := strconv.ParseFloat(tok.val, 64)
		if err != nil {
			t.error(err)
		}
		return &ast.Literal{Pos: tok.pos, Value: f}
	case itemString:
		s, err := unquoteString(tok.val)
		if err != nil {
			t.error(err)
		}
		return &ast.Literal{Pos: tok.pos, Value: s}
	case itemIdent:
		var scope = &ast.Identifier{Pos: tok.pos, Name: ScopeIdent}
		if tok.val == "this" {
			return scope
		}
		return &ast.Member{Pos: tok.pos, Object: scope, Property: &ast.Identifier{Pos: tok.pos, Name: tok.val}}
	default:
		t.unexpected(tok, "expression")
	}
	return nil
}

// Postfix ->  Primary ( "." Ident | "[" Expr "]" | "(" Args ")" )*
func (t *tree) parsePostfix(n ast.Node) ast.Node {
	for {
		switch tok := t.next(); tok.typ {
		case itemDot:
			var name = t.expect(itemIdent, "property access")
			n = &ast.Member{Pos: tok.pos, Object: n, Property: &ast.Identifier{Pos: name.pos, Name: name.val}}
		case itemLeftBracket:
			var key = t.parseExpr(0)
			t.expect(itemRightBracket, "index")
			n = &ast.Member{Pos: tok.pos, Object: n, Property: key, Computed: true}
		case itemLeftParen:
			n = &ast.Call{Pos: tok.pos, Callee: n, Args: t.parseArgs()}
		default:
			t.backup()
			return n
		}
	}
}

// parseArgs parses a comma-separated argument list.  "(" has been read.
func (t *tree) parseArgs() []ast.Node {
	var args []ast.Node
	if t.peek().typ == itemRightParen {
		t.next()
		return args
	}
	for {
		args = append(args, t.parseExpr(0))
		switch tok := t.next(); tok.typ {
		case itemRightParen:
			return args
		case itemComma:
		default:
			t.unexpected(tok, "argument list")
		}
	}
}

// "?" has just been read.
func (t *tree) parseTernary(tok item, cond ast.Node) ast.Node {
	n1 := t.parseExpr(0)
	t.expect(itemColon, "ternary")
	n2 := t.parseExpr(0)
	return &ast.Conditional{Pos: tok.pos, Test: cond, Consequent: n1, Alternate: n2}
}

func newBinaryNode(t item, n1, n2 ast.Node) ast.Node {
	switch t.typ {
	case itemAnd, itemOr:
		return &ast.Logical{Pos: t.pos, Op: t.val, Left: n1, Right: n2}
	}
	return &ast.Binary{Pos: t.pos, Op: t.val, Left: n1, Right: n2}
}

func inStringSlice(item string, group []string) bool {
	for _, x := range group {
		if x == item {
			return true
		}
	}
	return false
}

// Token stream ---------------------------------------------------------------

func (t *tree) next() item {
	if t.peekCount > 0 {
		t.peekCount--
	} else {
		t.token[0] = t.lex.nextItem()
	}
	return t.token[t.peekCount]
}

// backup backs the input stream up one token.
func (t *tree) backup() {
	t.peekCount++
}

// peek returns but does not consume the next token.
func (t *tree) peek() item {
	if t.peekCount > 0 {
		return t.token[t.peekCount-1]
	}
	t.peekCount = 1
	t.token[0] = t.lex.nextItem()
	return t.token[0]
}

// recover is the handler that turns panics into returns from the top level of Parse.
func (t *tree) recover(errp *error) {
	e := recover()
	if e == nil {
		return
	}
	if _, ok := e.(runtime.Error); ok {
		panic(e)
	}
	if t.lex != nil {
		t.lex.drain()
		t.lex = nil
	}
	if str, ok := e.(string); ok {
		*errp = errors.New(str)
	} else {
		*errp = e.(error)
	}
}

// expect consumes the next token and guarantees it has the required type.
func (t *tree) expect(expected itemType, context string) item {
	token := t.next()
	if token.typ != expected {
		t.unexpected(token, fmt.Sprintf("%v (expected %v)", context, expected))
	}
	return token
}

// unexpected complains about the token and terminates processing.
func (t *tree) unexpected(token item, context string) {
	if token.typ == itemError {
		t.errorf("lexical error: %v", token)
	}
	t.errorf("unexpected %v in %s", token, context)
}

// errorf formats the error and terminates processing.
func (t *tree) errorf(format string, args ...interface{}) {
	// get current token (taking account of backups)
	var tok = t.token[0]
	if t.peekCount > 0 {
		tok = t.token[t.peekCount-1]
	}
	t.errorAt(tok.pos, format, args...)
}

// errorAt terminates processing with an error located at pos.
func (t *tree) errorAt(pos ast.Pos, format string, args ...interface{}) {
	panic(errortypes.NewErrFilePosf(t.name,
		lineNumber(t.text, pos), columnNumber(t.text, pos), format, args...))
}

// error terminates processing.
func (t *tree) error(err error) {
	t.errorf("%s", err)
}

// lineNumber reports which line pos falls on.
func lineNumber(text string, pos ast.Pos) int {
	if int(pos) > len(text) {
		pos = ast.Pos(len(text))
	}
	return 1 + strings.Count(text[:pos], "\n")
}

// columnNumber reports the column of pos within its line, starting at 1.
func columnNumber(text string, pos ast.Pos) int {
	if int(pos) > len(text) {
		pos = ast.Pos(len(text))
	}
	return int(pos) - strings.LastIndex(text[:pos], "\n")
}
