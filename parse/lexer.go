package parse

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/robfig/htmling/ast"
)

// Lexer design from text/template

// Tokens ---------------------------------------------------------------------

// item represents a token or text string returned from the scanner.
type item struct {
	typ itemType // The type of this item.
	pos ast.Pos  // The starting position, in bytes, of this item in the input string.
	val string   // The value of this item.
}

func (i item) String() string {
	switch {
	case i.typ == itemEOF:
		return "EOF"
	case i.typ == itemError:
		return i.val
	case i.typ == itemTagOpen:
		return fmt.Sprintf("<%s", i.val)
	case i.typ == itemTagClose:
		return fmt.Sprintf("</%s>", i.val)
	case len(i.val) > 10:
		return fmt.Sprintf("%.10q...", i.val)
	}
	return fmt.Sprintf("%q", i.val)
}

// itemType identifies the type of lexical items.
type itemType int

// All items.
const (
	itemInvalid itemType = iota // not used
	itemEOF                     // EOF
	itemError                   // error occurred; value is text of error
	itemText                    // plain text

	// Interpolation delimiters
	itemLeftDelim     // {{
	itemRightDelim    // }}
	itemLeftRawDelim  // {{{
	itemRightRawDelim // }}}

	// Markup of the elements the parser understands
	itemTagOpen      // <name
	itemTagClose     // </name>
	itemTagEnd       // >
	itemTagSelfClose // />
	itemAttrName     // name in name="value"
	itemAttrValue    // value in name="value", without the quotes

	// Expression values
	itemNull   // null
	itemBool   // true, false
	itemNumber // 42, 1.5, 1e3
	itemString // 'hello', "hello"
	itemIdent  // name
	itemAs     // as

	// Punctuation
	itemDot          // .
	itemComma        // ,
	itemColon        // :
	itemPipe         // |
	itemTernIf       // ?
	itemLeftParen    // (
	itemRightParen   // )
	itemLeftBracket  // [
	itemRightBracket // ]

	// Operators
	itemNot         // !
	itemMul         // *
	itemDiv         // /
	itemMod         // %
	itemAdd         // +
	itemSub         // -
	itemEq          // ==
	itemNotEq       // !=
	itemStrictEq    // ===
	itemStrictNotEq // !==
	itemLt          // <
	itemLte         // <=
	itemGt          // >
	itemGte         // >=
	itemAnd         // &&
	itemOr          // ||
)

var itemNames = map[itemType]string{
	itemEOF:           "EOF",
	itemError:         "error",
	itemText:          "text",
	itemLeftDelim:     "{{",
	itemRightDelim:    "}}",
	itemLeftRawDelim:  "{{{",
	itemRightRawDelim: "}}}",
	itemTagOpen:       "<tag",
	itemTagClose:      "</tag>",
	itemTagEnd:        ">",
	itemTagSelfClose:  "/>",
	itemAttrName:      "attribute",
	itemAttrValue:     "attribute value",
	itemNull:          "null",
	itemBool:          "bool",
	itemNumber:        "number",
	itemString:        "string",
	itemIdent:         "identifier",
	itemAs:            "as",
	itemDot:           ".",
	itemComma:         ",",
	itemColon:         ":",
	itemPipe:          "|",
	itemTernIf:        "?",
	itemLeftParen:     "(",
	itemRightParen:    ")",
	itemLeftBracket:   "[",
	itemRightBracket:  "]",
	itemNot:           "!",
	itemMul:           "*",
	itemDiv:           "/",
	itemMod:           "%",
	itemAdd:           "+",
	itemSub:           "-",
	itemEq:            "==",
	itemNotEq:         "!=",
	itemStrictEq:      "===",
	itemStrictNotEq:   "!==",
	itemLt:            "<",
	itemLte:           "<=",
	itemGt:            ">",
	itemGte:           ">=",
	itemAnd:           "&&",
	itemOr:            "||",
}

func (t itemType) String() string {
	if s, ok := itemNames[t]; ok {
		return s
	}
	return fmt.Sprintf("item%d", int(t))
}

// precedence of the binary operators; higher binds tighter.
var precedence = map[itemType]int{
	itemOr:          1,
	itemAnd:         2,
	itemEq:          3,
	itemNotEq:       3,
	itemStrictEq:    3,
	itemStrictNotEq: 3,
	itemLt:          4,
	itemLte:         4,
	itemGt:          4,
	itemGte:         4,
	itemAdd:         5,
	itemSub:         5,
	itemMul:         6,
	itemDiv:         6,
	itemMod:         6,
	itemNot:         7, // unary
}

const unaryPrecedence = 7

func isBinaryOp(typ itemType) bool {
	_, ok := precedence[typ]
	return ok && typ != itemNot
}

// elements the parser treats specially; any tag containing a hyphen is a
// custom element.
var builtinTags = map[string]bool{
	"template": true,
	"content":  true,
	"include":  true,
}

// Lexer ----------------------------------------------------------------------

const eof = -1

// stateFn represents the state of the scanner as a function that returns the next state.
type stateFn func(*lexer) stateFn

// lexer holds the state of the scanner.
type lexer struct {
	name   string    // the name of the input; used only for error reports.
	input  string    // the string being scanned.
	offset ast.Pos   // position of input within the enclosing template
	state  stateFn   // the next lexing function to enter
	pos    ast.Pos   // current position in the input.
	start  ast.Pos   // start position of this item.
	width  ast.Pos   // width of last rune read from input.
	items  chan item // channel of scanned items.
	inAttr bool      // scanning an attribute value: tags are text
	bare   bool      // scanning a single expression without delimiters
	raw    bool      // inside {{{ }}}
}

// nextItem returns the next item from the input.
func (l *lexer) nextItem() item {
	return <-l.items
}

// lex creates a new scanner for the input string.
func lex(name, input string) *lexer {
	l := &lexer{
		name:  name,
		input: input,
		items: make(chan item),
		state: lexText,
	}
	go l.run()
	return l
}

// lexAttr scans an attribute value found at offset within the template.
// Markup is plain text there; only interpolations are recognized.
func lexAttr(name, input string, offset ast.Pos) *lexer {
	l := &lexer{
		name:   name,
		input:  input,
		offset: offset,
		items:  make(chan item),
		state:  lexText,
		inAttr: true,
	}
	go l.run()
	return l
}

// lexExpr lexes a single bare expression.
func lexExpr(name, input string, offset ast.Pos) *lexer {
	l := &lexer{
		name:   name,
		input:  input,
		offset: offset,
		items:  make(chan item),
		state:  lexInsideDelim,
		inAttr: true,
		bare:   true,
	}
	go l.run()
	return l
}

// run runs the state machine for the lexer.
func (l *lexer) run() {
	for l.state != nil {
		l.state = l.state(l)
	}
	close(l.items)
}

// drain consumes the remaining items so the lexing goroutine exits.
func (l *lexer) drain() {
	for range l.items {
	}
}

// next returns the next rune in the input.
func (l *lexer) next() (r rune) {
	if l.pos >= ast.Pos(len(l.input)) {
		l.width = 0
		return eof
	}
	var w int
	r, w = utf8.DecodeRuneInString(l.input[l.pos:])
	l.width = ast.Pos(w)
	l.pos += l.width
	return r
}

// peek returns but does not consume the next rune in the input.
func (l *lexer) peek() rune {
	r := l.next()
	l.backup()
	return r
}

// backup steps back one rune. Can only be called once per call of next.
func (l *lexer) backup() {
	l.pos -= l.width
}

// emit passes an item back to the client.
func (l *lexer) emit(t itemType) {
	l.emitValue(t, l.input[l.start:l.pos])
}

// emitValue passes an item with an explicit value back to the client.
func (l *lexer) emitValue(t itemType, val string) {
	l.items <- item{t, l.offset + l.start, val}
	l.start = l.pos
}

// ignore skips over the pending input before this point.
func (l *lexer) ignore() {
	l.start = l.pos
}

// accept consumes the next rune if it's from the valid set.
func (l *lexer) accept(valid string) bool {
	if strings.ContainsRune(valid, l.next()) {
		return true
	}
	l.backup()
	return false
}

// acceptRun consumes a run of runes from the valid set.
func (l *lexer) acceptRun(valid string) bool {
	pos := l.pos
	for strings.ContainsRune(valid, l.next()) {
	}
	l.backup()
	return l.pos > pos
}

func (l *lexer) hasPrefix(prefix string) bool {
	return strings.HasPrefix(l.input[l.pos:], prefix)
}

// errorf returns an error item and terminates the scan by passing
// back a nil pointer that will be the next state, terminating l.nextItem.
func (l *lexer) errorf(format string, args ...interface{}) stateFn {
	l.items <- item{itemError, l.offset + l.pos, fmt.Sprintf(format, args...)}
	return nil
}

// State functions ------------------------------------------------------------

// lexText scans until an interpolation or the start of an element the parser
// understands.
func lexText(l *lexer) stateFn {
	for {
		if l.hasPrefix("{{") {
			emitText(l)
			return lexLeftDelim
		}
		if !l.inAttr && l.hasPrefix("<") {
			if _, ok := tagName(l.input[l.pos:]); ok {
				emitText(l)
				return lexTagOpen
			}
		}
		if l.next() == eof {
			break
		}
	}
	emitText(l)
	l.emit(itemEOF)
	return nil
}

func emitText(l *lexer) {
	if l.pos > l.start {
		l.emit(itemText)
	}
}

// tagName reports the name of the opening or closing tag at the start of s,
// if it is one the parser handles.
func tagName(s string) (string, bool) {
	s = strings.TrimPrefix(s[1:], "/")
	var i = 0
	for i < len(s) && (isAlphaNumeric(rune(s[i])) || s[i] == '-' || s[i] == ':') {
		i++
	}
	if i == 0 || !unicode.IsLetter(rune(s[0])) {
		return "", false
	}
	if i < len(s) && !strings.ContainsRune(" \t\r\n/>", rune(s[i])) {
		return "", false
	}
	var name = s[:i]
	return name, builtinTags[name] || strings.Contains(name, "-")
}

func lexLeftDelim(l *lexer) stateFn {
	if l.hasPrefix("{{{") {
		l.pos += 3
		l.raw = true
		l.emit(itemLeftRawDelim)
	} else {
		l.pos += 2
		l.emit(itemLeftDelim)
	}
	return lexInsideDelim
}

// lexInsideDelim scans the elements inside an interpolation.
func lexInsideDelim(l *lexer) stateFn {
	switch r := l.next(); {
	case r == eof:
		if l.bare {
			l.emit(itemEOF)
			return nil
		}
		return l.errorf("unclosed interpolation")
	case isSpaceEOL(r):
		l.ignore()
	case r == '}':
		l.backup()
		return lexRightDelim
	case r == '"' || r == '\'':
		return stringLexer(r)
	case isDigit(r):
		l.backup()
		return lexNumber
	case isLetterOrUnderscore(r):
		l.backup()
		return lexIdent
	case r == '.':
		if isDigit(l.peek()) {
			l.backup()
			return lexNumber
		}
		l.emit(itemDot)
	case r == ',':
		l.emit(itemComma)
	case r == ':':
		l.emit(itemColon)
	case r == '?':
		l.emit(itemTernIf)
	case r == '(':
		l.emit(itemLeftParen)
	case r == ')':
		l.emit(itemRightParen)
	case r == '[':
		l.emit(itemLeftBracket)
	case r == ']':
		l.emit(itemRightBracket)
	case r == '|':
		if l.accept("|") {
			l.emit(itemOr)
		} else {
			l.emit(itemPipe)
		}
	case r == '&':
		if !l.accept("&") {
			return l.errorf("unexpected '&', expected '&&'")
		}
		l.emit(itemAnd)
	case r == '!':
		switch {
		case l.accept("="):
			if l.accept("=") {
				l.emit(itemStrictNotEq)
			} else {
				l.emit(itemNotEq)
			}
		default:
			l.emit(itemNot)
		}
	case r == '=':
		if !l.accept("=") {
			return l.errorf("assignment is not allowed in templates")
		}
		if l.accept("=") {
			l.emit(itemStrictEq)
		} else {
			l.emit(itemEq)
		}
	case r == '<':
		if l.accept("=") {
			l.emit(itemLte)
		} else {
			l.emit(itemLt)
		}
	case r == '>':
		if l.accept("=") {
			l.emit(itemGte)
		} else {
			l.emit(itemGt)
		}
	case r == '+':
		l.emit(itemAdd)
	case r == '-':
		l.emit(itemSub)
	case r == '*':
		l.emit(itemMul)
	case r == '/':
		l.emit(itemDiv)
	case r == '%':
		l.emit(itemMod)
	default:
		return l.errorf("unrecognized character in expression: %#U", r)
	}
	return lexInsideDelim
}

func lexRightDelim(l *lexer) stateFn {
	switch {
	case l.raw && l.hasPrefix("}}}"):
		l.pos += 3
		l.raw = false
		l.emit(itemRightRawDelim)
	case !l.raw && l.hasPrefix("}}"):
		l.pos += 2
		l.emit(itemRightDelim)
	default:
		return l.errorf("unexpected '}' in expression")
	}
	return lexText
}

// lexIdent scans an identifier or keyword.
func lexIdent(l *lexer) stateFn {
	for isAlphaNumeric(l.next()) {
	}
	l.backup()
	switch l.input[l.start:l.pos] {
	case "true", "false":
		l.emit(itemBool)
	case "null":
		l.emit(itemNull)
	case "as":
		l.emit(itemAs)
	default:
		l.emit(itemIdent)
	}
	return lexInsideDelim
}

// lexNumber scans a decimal number with optional fraction and exponent.
func lexNumber(l *lexer) stateFn {
	const digits = "0123456789"
	l.acceptRun(digits)
	if l.accept(".") {
		if !l.acceptRun(digits) {
			return l.errorf("bad number syntax: %q", l.input[l.start:l.pos])
		}
	}
	if l.accept("eE") {
		l.accept("+-")
		if !l.acceptRun(digits) {
			return l.errorf("bad number syntax: %q", l.input[l.start:l.pos])
		}
	}
	if isAlphaNumeric(l.peek()) {
		l.next()
		return l.errorf("bad number syntax: %q", l.input[l.start:l.pos])
	}
	l.emit(itemNumber)
	return lexInsideDelim
}

// stringLexer returns a stateFn that scans a string terminated by quoteChar.
func stringLexer(quoteChar rune) stateFn {
	return func(l *lexer) stateFn {
		var escaped bool
		for {
			switch r := l.next(); {
			case r == eof || isEndOfLine(r):
				return l.errorf("unterminated string")
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == quoteChar:
				l.emit(itemString)
				return lexInsideDelim
			}
		}
	}
}

// lexTagOpen scans "<name" or "</name>".
func lexTagOpen(l *lexer) stateFn {
	var closing = l.hasPrefix("</")
	var name, _ = tagName(l.input[l.pos:])
	if closing {
		l.pos += ast.Pos(2 + len(name))
		l.acceptRun(" \t\r\n")
		if !l.accept(">") {
			return l.errorf("malformed closing tag </%s", name)
		}
		l.emitValue(itemTagClose, name)
		return lexText
	}
	l.pos += ast.Pos(1 + len(name))
	l.emitValue(itemTagOpen, name)
	return lexInsideTag
}

// lexInsideTag scans the attributes of an element up to its ">" or "/>".
func lexInsideTag(l *lexer) stateFn {
	l.acceptRun(" \t\r\n")
	l.ignore()
	switch {
	case l.hasPrefix("/>"):
		l.pos += 2
		l.emit(itemTagSelfClose)
		return lexText
	case l.hasPrefix(">"):
		l.pos++
		l.emit(itemTagEnd)
		return lexText
	case l.pos >= ast.Pos(len(l.input)):
		return l.errorf("unclosed tag")
	}
	for {
		r := l.next()
		if r == eof || r == '=' || r == '>' || isSpaceEOL(r) || (r == '/' && l.peek() == '>') {
			l.backup()
			break
		}
	}
	if l.pos == l.start {
		return l.errorf("malformed attribute")
	}
	l.emit(itemAttrName)
	l.acceptRun(" \t\r\n")
	if !l.accept("=") {
		l.ignore()
		return lexInsideTag
	}
	l.acceptRun(" \t\r\n")
	l.ignore()
	return lexAttrValue
}

// lexAttrValue scans a quoted or unquoted attribute value.  Interpolations
// inside the value may contain the quote character.
func lexAttrValue(l *lexer) stateFn {
	var quote = l.peek()
	if quote != '"' && quote != '\'' {
		for {
			r := l.next()
			if r == eof || r == '>' || isSpaceEOL(r) || (r == '/' && l.peek() == '>') {
				l.backup()
				break
			}
		}
		l.emit(itemAttrValue)
		return lexInsideTag
	}
	l.next()
	l.ignore()
	for {
		if l.hasPrefix("{{") {
			var end = strings.Index(l.input[l.pos:], "}}")
			if end < 0 {
				return l.errorf("unclosed interpolation in attribute")
			}
			l.pos += ast.Pos(end + 2)
			continue
		}
		switch r := l.next(); r {
		case eof:
			return l.errorf("unterminated attribute value")
		case quote:
			l.backup()
			l.emit(itemAttrValue)
			l.next()
			l.ignore()
			return lexInsideTag
		}
	}
}

// isSpace reports whether r is a space character.
func isSpace(r rune) bool {
	return r == ' ' || r == '\t'
}

// isEndOfLine reports whether r is an end-of-line character.
func isEndOfLine(r rune) bool {
	return r == '\r' || r == '\n'
}

func isSpaceEOL(r rune) bool {
	return isSpace(r) || isEndOfLine(r)
}

// isAlphaNumeric reports whether r is an alphabetic, digit, or underscore.
func isAlphaNumeric(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isLetterOrUnderscore(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isDigit(r rune) bool {
	return '0' <= r && r <= '9'
}
