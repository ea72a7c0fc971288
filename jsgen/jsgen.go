// Package jsgen serializes a lowered program to ES5 source.
//
// Only standard node kinds may appear in the tree; template kinds must have
// been lowered first.
package jsgen

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"runtime"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/robfig/htmling/ast"
)

// Operator precedence, loosest first.
const (
	precSequence = iota
	precAssign
	precConditional
	precOr
	precAnd
	precEquality
	precRelational
	precAdditive
	precMultiplicative
	precUnary
	precPostfix
	precMember
	precPrimary
)

var binaryPrecedence = map[string]int{
	"||":         precOr,
	"&&":         precAnd,
	"==":         precEquality,
	"!=":         precEquality,
	"===":        precEquality,
	"!==":        precEquality,
	"<":          precRelational,
	">":          precRelational,
	"<=":         precRelational,
	">=":         precRelational,
	"in":         precRelational,
	"instanceof": precRelational,
	"+":          precAdditive,
	"-":          precAdditive,
	"*":          precMultiplicative,
	"/":          precMultiplicative,
	"%":          precMultiplicative,
}

type state struct {
	wr           io.Writer
	node         ast.Node // current node, for errors
	indentLevels int
}

// Write writes the JavaScript source for the given program, statement, or
// expression to out.
func Write(out io.Writer, node ast.Node) (err error) {
	defer errRecover(&err)
	var s = &state{wr: out}
	if isExpression(node) {
		s.js(s.expr(node, precSequence))
		return nil
	}
	s.stmt(node)
	return nil
}

// String returns the source for node, or the error text if it cannot be
// generated.
func String(node ast.Node) string {
	var buf bytes.Buffer
	if err := Write(&buf, node); err != nil {
		return err.Error()
	}
	return buf.String()
}

// at marks the state to be on node n, for error reporting.
func (s *state) at(node ast.Node) {
	s.node = node
}

// errorf formats the error and terminates processing.
func (s *state) errorf(format string, args ...interface{}) {
	panic(fmt.Sprintf(format, args...))
}

// errRecover is the handler that turns panics into returns from the top
// level of Write.  Runtime errors are not ours to handle.
func errRecover(errp *error) {
	e := recover()
	if e == nil {
		return
	}
	if _, ok := e.(runtime.Error); ok {
		panic(e)
	}
	*errp = fmt.Errorf("jsgen: %v", e)
}

func isExpression(n ast.Node) bool {
	switch n.(type) {
	case *ast.Program, *ast.VarDecl, *ast.Block, *ast.If, *ast.For, *ast.Return,
		*ast.ContinueStmt, *ast.ExprStmt:
		return false
	case *ast.Function:
		return !n.(*ast.Function).Decl
	}
	return !ast.IsTemplateKind(n)
}

// Statements -----------------------------------------------------------------

func (s *state) stmt(node ast.Node) {
	s.at(node)
	switch node := node.(type) {
	case *ast.Program:
		s.stmts(node.Body)
	case *ast.ExprStmt:
		var src = s.expr(node.Expr, precSequence)
		switch node.Expr.(type) {
		case *ast.Function, *ast.Object:
			src = "(" + src + ")"
		}
		s.jsln(src, ";")
	case *ast.VarDecl:
		s.jsln(s.varDecl(node), ";")
	case *ast.Function:
		s.indent()
		s.js(s.function(node), "\n")
	case *ast.Block:
		s.indent()
		s.clause(node)
		s.js("\n")
	case *ast.If:
		s.indent()
		s.ifStmt(node)
		s.js("\n")
	case *ast.For:
		s.indent()
		s.js("for (", s.forInit(node.Init), "; ", s.optExpr(node.Test), "; ", s.optExpr(node.Update), ") ")
		s.clause(node.Body)
		s.js("\n")
	case *ast.Return:
		if node.Arg == nil {
			s.jsln("return;")
		} else {
			s.jsln("return ", s.expr(node.Arg, precSequence), ";")
		}
	case *ast.ContinueStmt:
		s.jsln("continue;")
	default:
		if ast.IsTemplateKind(node) {
			s.errorf("%T must be lowered before code generation", node)
		}
		s.errorf("unexpected statement %T", node)
	}
}

func (s *state) stmts(nodes []ast.Node) {
	for _, n := range nodes {
		s.stmt(n)
	}
}

func (s *state) ifStmt(node *ast.If) {
	s.js("if (", s.expr(node.Test, precSequence), ") ")
	s.clause(node.Consequent)
	switch alt := node.Alternate.(type) {
	case nil:
	case *ast.If:
		s.js(" else ")
		s.ifStmt(alt)
	default:
		s.js(" else ")
		s.clause(alt)
	}
}

// clause writes a braced statement list, leaving the cursor after the
// closing brace.
func (s *state) clause(node ast.Node) {
	s.js("{\n")
	s.indentLevels++
	if block, ok := node.(*ast.Block); ok {
		s.stmts(block.Body)
	} else {
		s.stmt(node)
	}
	s.indentLevels--
	s.indent()
	s.js("}")
}

func (s *state) varDecl(node *ast.VarDecl) string {
	var decls = make([]string, len(node.Decls))
	for i, d := range node.Decls {
		decls[i] = d.Name
		if d.Init != nil {
			decls[i] += " = " + s.expr(d.Init, precAssign)
		}
	}
	return "var " + strings.Join(decls, ", ")
}

func (s *state) forInit(n ast.Node) string {
	if decl, ok := n.(*ast.VarDecl); ok {
		return s.varDecl(decl)
	}
	return s.optExpr(n)
}

func (s *state) optExpr(n ast.Node) string {
	if n == nil {
		return ""
	}
	return s.expr(n, precSequence)
}

// function returns the source of a function, with its body indented one
// level deeper than the current statement.
func (s *state) function(fn *ast.Function) string {
	var buf bytes.Buffer
	var inner = &state{wr: &buf, indentLevels: s.indentLevels + 1}
	inner.stmts(fn.Body)
	var head = "function "
	if fn.Name != "" {
		head += fn.Name
	}
	return head + "(" + strings.Join(fn.Params, ", ") + ") {\n" +
		buf.String() + strings.Repeat("  ", s.indentLevels) + "}"
}

// Expressions ----------------------------------------------------------------

// expr returns the source for n, parenthesized if it binds more loosely than
// prec.
func (s *state) expr(n ast.Node, prec int) string {
	s.at(n)
	var src, p = s.exprPrec(n)
	if p < prec {
		return "(" + src + ")"
	}
	return src
}

func (s *state) exprPrec(n ast.Node) (string, int) {
	switch n := n.(type) {
	case *ast.Literal:
		return literal(n)
	case *ast.Identifier:
		return n.Name, precPrimary
	case *ast.This:
		return "this", precPrimary
	case *ast.Member:
		var obj = s.expr(n.Object, precMember)
		if lit, ok := n.Object.(*ast.Literal); ok {
			if _, isNum := lit.Value.(float64); isNum {
				obj = "(" + obj + ")"
			}
		}
		if n.Computed {
			return obj + "[" + s.expr(n.Property, precSequence) + "]", precMember
		}
		prop, ok := n.Property.(*ast.Identifier)
		if !ok {
			s.errorf("non-computed member with %T property", n.Property)
		}
		return obj + "." + prop.Name, precMember
	case *ast.Call:
		var callee string
		if fn, ok := n.Callee.(*ast.Function); ok {
			callee = "(" + s.function(fn) + ")"
		} else {
			callee = s.expr(n.Callee, precMember)
		}
		return callee + "(" + s.list(n.Args) + ")", precMember
	case *ast.Binary:
		var p, ok = binaryPrecedence[n.Op]
		if !ok {
			s.errorf("unknown binary operator %q", n.Op)
		}
		return s.expr(n.Left, p) + " " + n.Op + " " + s.expr(n.Right, p+1), p
	case *ast.Logical:
		var p = binaryPrecedence[n.Op]
		return s.expr(n.Left, p) + " " + n.Op + " " + s.expr(n.Right, p+1), p
	case *ast.Conditional:
		return s.expr(n.Test, precOr) + " ? " + s.expr(n.Consequent, precAssign) +
			" : " + s.expr(n.Alternate, precAssign), precConditional
	case *ast.Unary:
		var arg = s.expr(n.Arg, precUnary)
		switch {
		case len(n.Op) > 1:
			return n.Op + " " + arg, precUnary
		case (n.Op == "-" || n.Op == "+") && (strings.HasPrefix(arg, "-") || strings.HasPrefix(arg, "+")):
			return n.Op + " " + arg, precUnary
		}
		return n.Op + arg, precUnary
	case *ast.Update:
		if n.Prefix {
			return n.Op + s.expr(n.Arg, precUnary), precUnary
		}
		return s.expr(n.Arg, precPostfix) + n.Op, precPostfix
	case *ast.Assign:
		return s.expr(n.Left, precConditional+1) + " " + n.Op + " " + s.expr(n.Right, precAssign), precAssign
	case *ast.Sequence:
		var parts = make([]string, len(n.Exprs))
		for i, e := range n.Exprs {
			parts[i] = s.expr(e, precAssign)
		}
		return strings.Join(parts, ", "), precSequence
	case *ast.Array:
		return "[" + s.list(n.Elements) + "]", precPrimary
	case *ast.Object:
		var props = make([]string, len(n.Props))
		for i, p := range n.Props {
			props[i] = Quote(p.Key) + ": " + s.expr(p.Value, precAssign)
		}
		return "{" + strings.Join(props, ", ") + "}", precPrimary
	case *ast.Function:
		return s.function(n), precPrimary
	}
	if ast.IsTemplateKind(n) {
		s.errorf("%T must be lowered before code generation", n)
	}
	s.errorf("unexpected expression %T", n)
	return "", 0
}

func (s *state) list(nodes []ast.Node) string {
	var parts = make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = s.expr(n, precAssign)
	}
	return strings.Join(parts, ", ")
}

func literal(n *ast.Literal) (string, int) {
	switch v := n.Value.(type) {
	case nil:
		return "null", precPrimary
	case bool:
		return strconv.FormatBool(v), precPrimary
	case string:
		return Quote(v), precPrimary
	case float64:
		if v < 0 || math.IsInf(v, -1) {
			return FormatNumber(v), precUnary
		}
		return FormatNumber(v), precPrimary
	}
	panic(fmt.Sprintf("unexpected literal of type %T", n.Value))
}

// FormatNumber returns the JavaScript source for f.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Quote returns s as a double-quoted JavaScript string literal.  Besides the
// usual escapes, "</" is written as "<\/" so that the source may be embedded
// in a script element.
func Quote(s string) string {
	var buf bytes.Buffer
	buf.WriteByte('"')
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case r == utf8.RuneError && size == 1:
			buf.WriteString(`\ufffd`)
		case r == '"':
			buf.WriteString(`\"`)
		case r == '\\':
			buf.WriteString(`\\`)
		case r == '\n':
			buf.WriteString(`\n`)
		case r == '\r':
			buf.WriteString(`\r`)
		case r == '\t':
			buf.WriteString(`\t`)
		case r == '/' && i > 0 && s[i-1] == '<':
			buf.WriteString(`\/`)
		case r < 0x20 || r == 0x7f || r == '\u2028' || r == '\u2029':
			fmt.Fprintf(&buf, `\u%04x`, r)
		default:
			buf.WriteRune(r)
		}
		i += size
	}
	buf.WriteByte('"')
	return buf.String()
}

// Output ---------------------------------------------------------------------

func (s *state) js(args ...string) {
	for _, arg := range args {
		s.wr.Write([]byte(arg))
	}
}

func (s *state) indent() {
	for i := 0; i < s.indentLevels; i++ {
		s.wr.Write([]byte("  "))
	}
}

func (s *state) jsln(args ...string) {
	s.indent()
	for _, arg := range args {
		s.wr.Write([]byte(arg))
	}
	s.wr.Write([]byte("\n"))
}
