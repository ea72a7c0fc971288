package compiler

import (
	"sort"
	"strings"
	"testing"

	"github.com/andreyvit/diff"
	"github.com/robfig/htmling/ast"
	"github.com/robfig/htmling/jsgen"
	"github.com/robfig/htmling/parse"
)

func lower(t *testing.T, src string) *ast.Program {
	t.Helper()
	tmpl, err := parse.Template("test.html", src)
	if err != nil {
		t.Fatal(err)
	}
	prog, err := Lower(tmpl)
	if err != nil {
		t.Fatal(err)
	}
	return prog
}

const renderHead = `exports.render = function render(object, content, filters) {
  var context = this, html = "", ref;
  filters = filters || context;
`

const renderTail = `  return html;
};
`

func TestLowerSource(t *testing.T) {
	var tests = []struct {
		name, input, body string
	}{
		{"text and output", "Hello {{name}}!", `  html += "Hello ";
  html += context.escape(object.name);
  html += "!";
`},
		{"raw", "{{{ body }}}", `  html += (ref = object.body) == null ? "" : ref;
`},
		{"number literal", "{{ 5 }}", `  html += 5;
`},
		{"data path", "{{ user.name.first }}",
			`  html += context.escape((ref = object.user, ref = ref == null ? ref : ref.name, ref == null ? ref : ref.first));
`},
		{"content", "<content>none</content>", `  if (content) {
    html += content;
  } else {
    html += "none";
  }
`},
		{"bind", `<template bind="{{ user }}">{{ name }}</template>`, `  if (ref = object.user) {
    var bind$1 = object;
    object = ref;
    html += context.escape(object.name);
    object = bind$1;
  }
`},
		{"bind alias", `<template bind="{{ user as u }}">x</template>`, `  if (ref = object.user) {
    html += (function (object) {
      var html = "", ref;
      html += "x";
      return html;
    })(context.rescope(object, "u", ref));
  }
`},
		{"self-closing element", `<x-icon name="star"/>`, `  html += context.customElement("x-icon", {"name": "star"});
`},
		{"empty element", `<x-icon name="{{ n }}"></x-icon>`, `  html += context.customElement("x-icon", {"name": object.n}, "");
`},
		{"include", `<include src="a.html"/>`, `  {
    html += context.include("a.html", object, undefined);
  }
`},
	}
	for _, test := range tests {
		var got = jsgen.String(lower(t, test.input))
		var expected = renderHead + test.body + renderTail
		if got != expected {
			t.Errorf("%s:\n%s", test.name, diff.LineDiff(expected, got))
		}
	}
}

func TestDataPathMarker(t *testing.T) {
	var markers []string
	ast.Walk(lower(t, "{{ a.b }}{{ a.b.c }}{{ a.x[0].y }}{{ a }}"), func(n, _ ast.Node) ast.Visit {
		if seq, ok := n.(*ast.Sequence); ok {
			markers = append(markers, seq.Marker)
		}
		return ast.Continue
	})
	var expected = []string{"object.a.b", "object.a.b.c", ""}
	if strings.Join(markers, ",") != strings.Join(expected, ",") {
		t.Errorf("got %q, expected %q", markers, expected)
	}
}

func TestMethodCallKeepsReceiver(t *testing.T) {
	var got = jsgen.String(lower(t, "{{ a.b.c('x') }}"))
	var expected = `html += context.escape((ref = object.a, ref == null ? ref : ref.b).c("x"));`
	if !strings.Contains(got, expected) {
		t.Errorf("expected %s in:\n%s", expected, got)
	}
}

const everything = `
<content>default</content>
<template repeat="{{ items }}">
  <template repeat="{{ this.children as child, i }}">{{ child.name }}{{ i }}</template>
  <template bind="{{ owner }}">{{ name }}</template>
</template>
<template repeat="{{ rows as row }}"><template bind="{{ row as r }}">{{ r.id }}</template></template>
<include src="a.html">body</include>
<include src="b.html" bind="{{ user }}"/>
<include src="c.html" bind="{{ user as u }}">{{ u }}</include>
<include src="d.html" repeat="{{ items }}"/>
<include src="e.html" repeat="{{ items as item }}"/>
<include src="f.html" repeat="{{ items as item, index }}">x</include>
<x-a/><x-b></x-b><x-c title="{{ t }}">in {{ t }}</x-c>
<template layout="base.html">page</template>
<template if="{{ flag }}"><template bind="{{ a }}"><template bind="{{ b }}">{{ c }}</template></template></template>
`

func synthesizedNames(prog ast.Node) []string {
	var names []string
	ast.Walk(prog, func(n, _ ast.Node) ast.Visit {
		switch n := n.(type) {
		case *ast.Function:
			if strings.Contains(n.Name, "$") {
				names = append(names, n.Name)
			}
			for _, p := range n.Params {
				if strings.Contains(p, "$") {
					names = append(names, p)
				}
			}
		case *ast.Declarator:
			if strings.Contains(n.Name, "$") {
				names = append(names, n.Name)
			}
		}
		return ast.Continue
	})
	sort.Strings(names)
	return names
}

func TestLowerIsTotal(t *testing.T) {
	var prog = lower(t, everything)
	ast.Walk(prog, func(n, _ ast.Node) ast.Visit {
		if ast.IsTemplateKind(n) {
			t.Errorf("%T survived lowering", n)
		}
		if id, ok := n.(*ast.Identifier); ok && isHole(id.Name) {
			t.Errorf("unfilled hole %s", id.Name)
		}
		return ast.Continue
	})
	if err := jsgen.Write(&strings.Builder{}, prog); err != nil {
		t.Error(err)
	}
}

func TestFreshNamesAreUnique(t *testing.T) {
	var names = synthesizedNames(lower(t, everything))
	if len(names) == 0 {
		t.Fatal("expected synthesized names")
	}
	for i := 1; i < len(names); i++ {
		if names[i] == names[i-1] {
			t.Errorf("name %s declared twice", names[i])
		}
	}
	for _, expected := range []string{
		"bind$1", "bind$2", "bind$3", "bound$1", "bound$2", "include$1", "include$2", "include$3",
		"iterateInclude$1", "iterateInclude$2", "repeat$1", "repeatInclude$1", "scope$1", "scope$2",
	} {
		var i = sort.SearchStrings(names, expected)
		if i == len(names) || names[i] != expected {
			t.Errorf("expected %s among %v", expected, names)
		}
	}
}

// Each compile starts its counters afresh.
func TestSessionsAreIndependent(t *testing.T) {
	var a = synthesizedNames(lower(t, everything))
	var b = synthesizedNames(lower(t, everything))
	if strings.Join(a, " ") != strings.Join(b, " ") {
		t.Errorf("compiles differ:\n%v\n%v", a, b)
	}
}

func TestIncludeRepeatLiterals(t *testing.T) {
	var tmpl = &ast.Template{Name: "t", Body: []ast.Node{
		&ast.Include{Src: ast.Str("row.html"), Repeat: &ast.Array{Elements: []ast.Node{ast.Str("a")}}},
		&ast.Include{Src: ast.Str("row.html"), Repeat: &ast.Object{Props: []ast.Property{{Key: "k", Value: ast.Num(1)}}}},
	}}
	prog, err := Lower(tmpl)
	if err != nil {
		t.Fatal(err)
	}
	var src = jsgen.String(prog)
	for _, expected := range []string{
		`function repeatArray$1(context, path, items, content) {`,
		`html += repeatArray$1(context, "row.html", ["a"], undefined);`,
		`function repeatObject$1(context, path, items, content) {`,
		`html += repeatObject$1(context, "row.html", {"k": 1}, undefined);`,
	} {
		if !strings.Contains(src, expected) {
			t.Errorf("expected %s in:\n%s", expected, src)
		}
	}
}

func TestStrayBindings(t *testing.T) {
	for _, n := range []ast.Node{
		&ast.Output{Expr: &ast.Alias{Subject: ast.Ident("object"), Name: "x"}},
		&ast.Bind{Expr: &ast.Iterate{Expr: ast.Ident("object"), Item: "x"}},
	} {
		if _, err := Lower(&ast.Template{Body: []ast.Node{n}}); err == nil {
			t.Errorf("%T: expected an error", n)
		}
	}
}

func TestSkeletonHoles(t *testing.T) {
	var sk = newSkeleton("test", ast.BlockOf(
		ast.Var(ast.Decl("$name", ast.Ident("$init"))),
		hole("$body"),
		ast.Stmt(ast.CallOf(ast.Ident("f"), ast.Ident("$init"))),
	))
	var init = ast.Dot(ast.Ident("object"), "a")
	var block = sk.instantiate(fill{
		"$name": "v$1",
		"$init": init,
		"$body": []ast.Node{ast.Stmt(ast.Ident("x")), ast.Stmt(ast.Ident("y"))},
	}).(*ast.Block)

	var expected = "{\n  var v$1 = object.a;\n  x;\n  y;\n  f(object.a);\n}\n"
	if got := jsgen.String(block); got != expected {
		t.Errorf("%s", diff.LineDiff(expected, got))
	}
	if block.Body[0].(*ast.VarDecl).Decls[0].Init != init {
		t.Errorf("first use should take the value itself")
	}
	if block.Body[3].(*ast.ExprStmt).Expr.(*ast.Call).Args[0] == init {
		t.Errorf("second use should take a copy")
	}

	// The skeleton itself is untouched.
	if got := jsgen.String(sk.root); !strings.Contains(got, "var $name = $init;") {
		t.Errorf("skeleton was modified:\n%s", got)
	}

	var panics = func(f fill) (ok bool) {
		defer func() { ok = recover() != nil }()
		sk.instantiate(f)
		return false
	}
	if !panics(fill{"$name": "v", "$init": init}) {
		t.Errorf("expected a panic for an unfilled hole")
	}
	if !panics(fill{"$name": "v", "$init": init, "$body": []ast.Node(nil), "$other": "x"}) {
		t.Errorf("expected a panic for an unused value")
	}
	if !panics(fill{"$name": init, "$init": init, "$body": []ast.Node(nil)}) {
		t.Errorf("expected a panic for a node in a naming position")
	}
}
