package parse

import (
	"fmt"
	"strings"
	"testing"

	"github.com/robfig/htmling/ast"
	"github.com/robfig/htmling/errortypes"
)

type parseTest struct {
	name  string
	input string
	tree  string
}

var parseTests = []parseTest{
	{"empty", "", ""},
	{"text", "<p>Hello world!</p>", `(out "<p>Hello world!</p>")`},
	{"interpolation", "Hello {{name}}!", `(out "Hello ") (out object.name) (out "!")`},
	{"raw", "{{{ body }}}", `(raw object.body)`},
	{"this", "{{ this }}", `(out object)`},
	{"path", "{{ user.name.first }}", `(out object.user.name.first)`},
	{"index", "{{ rows[0].cells[i] }}", `(out object.rows[0].cells[object.i])`},
	{"precedence", "{{ a + b * c - d }}", `(out ((object.a + (object.b * object.c)) - object.d))`},
	{"logical", "{{ a && b || !c }}", `(out ((object.a && object.b) || (! object.c)))`},
	{"ternary", "{{ n > 1 ? 'many' : 'one' }}", `(out ((object.n > 1) ? "many" : "one"))`},
	{"filters", "{{ name | upper | truncate(3, '…') }}", `(out filters.truncate(filters.upper(object.name), 3, "…"))`},
	{"call", "{{ user.greet('hi') }}", `(out object.user.greet("hi"))`},
	{"content", "<content></content><content>none</content>", `(content) (content (out "none"))`},
	{"content self-closing", "<content/>", `(content)`},
	{"bind", `<template bind="{{ user }}">{{ name }}</template>`, `(bind object.user (out object.name))`},
	{"bind alias", `<template bind="{{ user as u }}">{{ u.name }}</template>`,
		`(bind (alias object.user u) (out object.u.name))`},
	{"repeat", `<template repeat="{{ items }}"><li>{{ this }}</li></template>`,
		`(repeat object.items (out "<li>") (out object) (out "</li>"))`},
	{"iterate", `<template repeat="{{ items as item, i }}">{{ i }}</template>`,
		`(repeat (iterate object.items item i) (out object.i))`},
	{"iterate no index", `<template repeat="items as item">x</template>`,
		`(repeat (iterate object.items item) (out "x"))`},
	{"if", `<template if="{{ a }}">yes</template>`, `(if object.a (out "yes"))`},
	{"block", `<template>x</template>`, `(block (out "x"))`},
	{"layout", `<template layout="base.html">page</template>`, `(layout "base.html" (out "page"))`},
	{"include", `<include src="header.html"/>`, `(include "header.html")`},
	{"include dynamic", `<include src="partials/{{ kind }}.html"></include>`,
		`(include (("partials/" + object.kind) + ".html"))`},
	{"include bind", `<include src="user.html" bind="{{ user as u }}">body</include>`,
		`(include "user.html" bind=(alias object.user u) (out "body"))`},
	{"include repeat", `<include src="row.html" repeat="{{ rows }}"/>`,
		`(include "row.html" repeat=object.rows)`},
	{"custom element", `<x-card title="Hi {{ name }}" size="{{ n }}" open>body</x-card>`,
		`(element x-card title=("Hi " + object.name) size=object.n open="" (out "body"))`},
	{"custom element self-closing", `<x-icon name="star"/>`, `(element/ x-icon name="star")`},
	{"nested", `<template repeat="{{ a }}"><template repeat="{{ b }}">x</template></template>`,
		`(repeat object.a (repeat object.b (out "x")))`},
}

func TestParse(t *testing.T) {
	for _, test := range parseTests {
		tmpl, err := Template(test.name, test.input)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", test.name, err)
			continue
		}
		if tmpl.Name != test.name {
			t.Errorf("%s: template name %q", test.name, tmpl.Name)
		}
		if got := dumpList(tmpl.Body); got != test.tree {
			t.Errorf("%s:\ngot      %s\nexpected %s", test.name, got, test.tree)
		}
	}
}

func TestParseCustomElementAttrs(t *testing.T) {
	tmpl, err := Template("elem", `<x-card title="Hi {{ name }}" size="{{ n }}" open>body</x-card>`)
	if err != nil {
		t.Fatal(err)
	}
	var elem = tmpl.Body[0].(*ast.CustomElement)
	var got []string
	for _, a := range elem.Attrs {
		got = append(got, a.Key+"="+dump(a.Value))
	}
	var expected = `title=("Hi " + object.name) size=object.n open=""`
	if strings.Join(got, " ") != expected {
		t.Errorf("got %s, expected %s", strings.Join(got, " "), expected)
	}
	if elem.SelfClosing {
		t.Errorf("expected a body")
	}
}

func TestParseErrors(t *testing.T) {
	var tests = []struct {
		name, input string
		line, col   int
		msg         string
	}{
		{"unclosed element", "<template>\n  x", 2, 4, "unexpected EOF, expected </template>"},
		{"stray close", "a</include>", 1, 2, "unexpected </include> in template body"},
		{"unclosed interpolation", "x {{ y", 1, 7, "unclosed interpolation"},
		{"include without src", `<include bind="{{ a }}"/>`, 1, 1, "requires a src attribute"},
		{"include bind and repeat", `<include src="a" bind="{{ a }}" repeat="{{ b }}"/>`, 1, 1, "cannot both bind and repeat"},
		{"unknown template attribute", `<template foo="1"></template>`, 1, 1, `unexpected attribute "foo" on <template>`},
		{"two template attributes", `<template bind="{{a}}" if="{{b}}"></template>`, 1, 1, "at most one of"},
		{"bad expression", `{{ a + }}`, 1, 8, "unexpected"},
		{"bad binding", `<template repeat="{{ a as }}"></template>`, 1, 27, "alias"},
	}
	for _, test := range tests {
		_, err := Template("page.html", test.input)
		if err == nil {
			t.Errorf("%s: expected an error", test.name)
			continue
		}
		if !strings.Contains(err.Error(), test.msg) {
			t.Errorf("%s: error %q does not mention %q", test.name, err, test.msg)
		}
		var pos = errortypes.ToErrFilePos(err)
		if pos == nil {
			t.Errorf("%s: expected a positioned error, got %T", test.name, err)
			continue
		}
		if pos.File() != "page.html" || pos.Line() != test.line || pos.Col() != test.col {
			t.Errorf("%s: position %s:%d:%d, expected page.html:%d:%d",
				test.name, pos.File(), pos.Line(), pos.Col(), test.line, test.col)
		}
	}
}

func TestExpr(t *testing.T) {
	var tests = []struct{ input, expected string }{
		{"a", "object.a"},
		{"-a.b", "(- object.a.b)"},
		{"'x' + 1.5e2", `("x" + 150)`},
		{"(a || b) && c", "((object.a || object.b) && object.c)"},
		{"a === null", "(object.a === null)"},
		{"x | json", "filters.json(object.x)"},
	}
	for _, test := range tests {
		node, err := Expr(test.input)
		if err != nil {
			t.Errorf("%s: %v", test.input, err)
			continue
		}
		if got := dump(node); got != test.expected {
			t.Errorf("%s: got %s, expected %s", test.input, got, test.expected)
		}
	}
	if _, err := Expr("a b"); err == nil {
		t.Errorf("expected an error for trailing input")
	}
}

// dump renders a node as a compact s-expression.
func dump(n ast.Node) string {
	switch n := n.(type) {
	case nil:
		return "nil"
	case *ast.Literal:
		return n.String()
	case *ast.Identifier:
		return n.Name
	case *ast.Member:
		if n.Computed {
			return fmt.Sprintf("%s[%s]", dump(n.Object), dump(n.Property))
		}
		return dump(n.Object) + "." + dump(n.Property)
	case *ast.Call:
		var args []string
		for _, a := range n.Args {
			args = append(args, dump(a))
		}
		return fmt.Sprintf("%s(%s)", dump(n.Callee), strings.Join(args, ", "))
	case *ast.Binary:
		return fmt.Sprintf("(%s %s %s)", dump(n.Left), n.Op, dump(n.Right))
	case *ast.Logical:
		return fmt.Sprintf("(%s %s %s)", dump(n.Left), n.Op, dump(n.Right))
	case *ast.Unary:
		return fmt.Sprintf("(%s %s)", n.Op, dump(n.Arg))
	case *ast.Conditional:
		return fmt.Sprintf("(%s ? %s : %s)", dump(n.Test), dump(n.Consequent), dump(n.Alternate))
	case *ast.Output:
		if n.Raw {
			return "(raw " + dump(n.Expr) + ")"
		}
		return "(out " + dump(n.Expr) + ")"
	case *ast.ContentSlot:
		return sexpr("content", n.Body)
	case *ast.Bind:
		return sexpr("bind "+dump(n.Expr), n.Body)
	case *ast.Alias:
		return fmt.Sprintf("(alias %s %s)", dump(n.Subject), n.Name)
	case *ast.Repeat:
		return sexpr("repeat "+dump(n.Expr), n.Body)
	case *ast.Iterate:
		return strings.TrimSpace(fmt.Sprintf("(iterate %s %s %s", dump(n.Expr), n.Item, n.Index)) + ")"
	case *ast.If:
		return sexpr("if "+dump(n.Test), n.Consequent.(*ast.Block).Body)
	case *ast.Block:
		return sexpr("block", n.Body)
	case *ast.Layout:
		return sexpr("layout "+dump(n.Src), n.Body)
	case *ast.Include:
		var head = "include " + dump(n.Src)
		if n.Bind != nil {
			head += " bind=" + dump(n.Bind)
		}
		if n.Repeat != nil {
			head += " repeat=" + dump(n.Repeat)
		}
		return sexpr(head, n.Body)
	case *ast.CustomElement:
		var head = "element"
		if n.SelfClosing {
			head += "/"
		}
		head += " " + n.Name
		for _, a := range n.Attrs {
			head += " " + a.Key + "=" + dump(a.Value)
		}
		return sexpr(head, n.Body)
	}
	return fmt.Sprintf("<%T>", n)
}

func sexpr(head string, body []ast.Node) string {
	if len(body) == 0 {
		return "(" + head + ")"
	}
	return "(" + head + " " + dumpList(body) + ")"
}

func dumpList(nodes []ast.Node) string {
	var parts []string
	for _, n := range nodes {
		parts = append(parts, dump(n))
	}
	return strings.Join(parts, " ")
}
