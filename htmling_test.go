package htmling

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/andreyvit/diff"
	"github.com/robfig/htmling/ast"
	"github.com/robfig/htmling/errortypes"
)

type d map[string]interface{}

type renderTest struct {
	name    string
	input   string
	data    interface{}
	content string
	output  string
}

// partials are compiled next to every page under test.
var partials = map[string]string{
	"box.html":    "[<content>empty</content>]",
	"card.html":   "<b>{{ title }}</b><content></content>",
	"card2.html":  "{{ u.title }}/{{ site }}",
	"item.html":   "<li>{{ this }}</li>",
	"idx.html":    "{{ i }}{{ r }};",
	"layout.html": "<main><content></content></main>",
}

var compileModes = []struct {
	name string
	opts CompileOptions
}{
	{"optimized", CompileOptions{Optimize: true}},
	{"unoptimized", CompileOptions{Optimize: false}},
}

func shout(attrs map[string]interface{}, content string) (string, error) {
	return strings.ToUpper(content) + "!", nil
}

func twice(value interface{}, args ...interface{}) (interface{}, error) {
	var s = stringify(value)
	return s + s, nil
}

func testCollection(t *testing.T, opts CompileOptions, pages map[string]string) *Collection {
	t.Helper()
	var b = NewBundle().
		SetCompileOptions(opts).
		AddElements(Elements{
			"x-card":  {Path: "card.html"},
			"x-shout": {Func: shout},
		}).
		AddFilters(Filters{"twice": twice})
	for name, src := range partials {
		b.AddTemplateString(name, src)
	}
	for name, src := range pages {
		b.AddTemplateString(name, src)
	}
	var c, err = b.Compile()
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func runRenderTests(t *testing.T, tests []renderTest) {
	for _, mode := range compileModes {
		for _, test := range tests {
			var c = testCollection(t, mode.opts, map[string]string{"page.html": test.input})
			var actual, err = c.Render("page.html", test.data, test.content)
			if err != nil {
				t.Errorf("%s/%s: %v", mode.name, test.name, err)
				continue
			}
			if actual != test.output {
				t.Errorf("%s/%s: %s\n%v", mode.name, test.name, test.input,
					diff.LineDiff(test.output, actual))
			}
		}
	}
}

func TestOutput(t *testing.T) {
	runRenderTests(t, []renderTest{
		{"text", "<p>static</p>", nil, "", "<p>static</p>"},
		{"escaped", "Hello {{name}}!", d{"name": "<b>"}, "", "Hello &lt;b&gt;!"},
		{"falsy values", "{{ n }}|{{ z }}|{{ missing }}", d{"n": 0, "z": ""}, "", "0||"},
		{"raw", "{{{ html }}}{{{ missing }}}", d{"html": "<i>"}, "", "<i>"},
		{"missing path", "[{{ a.b.c }}]", nil, "", "[]"},
		{"path", "{{ a.b.c }}", d{"a": d{"b": d{"c": "<"}}}, "", "&lt;"},
		{"shared prefix", "{{ user.name }} {{ user.age }}", d{"user": d{"name": "A", "age": 3}}, "", "A 3"},
		{"shared prefix missing", "{{ user.name }} {{ user.age }}", nil, "", " "},
		{"if", `<template if="{{ show }}">yes</template>`, d{"show": true}, "", "yes"},
		{"if false", `<template if="{{ show }}">yes</template>`, d{"show": false}, "", ""},
	})
}

func TestContent(t *testing.T) {
	runRenderTests(t, []renderTest{
		{"given", "<content>default</content>", nil, "given", "given"},
		{"default", "<content>default</content>", nil, "", "default"},
		{"none", "a<content></content>b", nil, "", "ab"},
	})
}

func TestInclude(t *testing.T) {
	runRenderTests(t, []renderTest{
		{"plain", `<include src="box.html"></include>`, nil, "", "[empty]"},
		{"body", `<include src="box.html">hi {{ name }}</include>`, d{"name": "Al"}, "", "[hi Al]"},
		{"bind", `<include src="card.html" bind="{{ user }}"></include>`,
			d{"user": d{"title": "T"}}, "", "<b>T</b>"},
		{"bind missing", `<include src="card.html" bind="{{ missing }}"></include>`, nil, "", ""},
		{"bind alias", `<include src="card2.html" bind="{{ user as u }}"></include>`,
			d{"user": d{"title": "T"}, "site": "S"}, "", "T/S"},
		{"repeat array", `<include src="item.html" repeat="{{ items }}"></include>`,
			d{"items": []interface{}{"x", nil, "y"}}, "", "<li>x</li><li>y</li>"},
		{"repeat object", `<include src="item.html" repeat="{{ items }}"></include>`,
			d{"items": d{"a": "1", "b": "", "c": "3"}}, "", "<li>1</li><li>3</li>"},
		{"repeat alias", `<include src="card2.html" repeat="{{ items as u }}"></include>`,
			d{"items": []interface{}{d{"title": "A"}, nil, d{"title": "B"}}, "site": "S"}, "", "A/SB/S"},
		{"repeat index", `<include src="idx.html" repeat="{{ items as r, i }}"></include>`,
			d{"items": []interface{}{"x", nil, "y"}}, "", "0x;2y;"},
		{"missing with body", `<include src="nope.html">fallback</include><include src="nope.html"></include>`,
			nil, "", "fallback"},
		{"dynamic src", `<include src="{{ kind }}.html">x</include>`, d{"kind": "box"}, "", "[x]"},
		{"absolute", `<include src="/box.html"></include>`, nil, "", "[empty]"},
	})
}

func TestRepeat(t *testing.T) {
	var items = []interface{}{"x", nil, "y"}
	var object = d{"a": "1", "b": "", "c": "3"}
	runRenderTests(t, []renderTest{
		{"array", `<template repeat="{{ items }}">[{{ this }}]</template>`, d{"items": items}, "", "[x][y]"},
		{"object", `<template repeat="{{ items }}">[{{ this }}]</template>`, d{"items": object}, "", "[1][3]"},
		{"not iterable", `<template repeat="{{ items }}">x</template>`, d{"items": "abc"}, "", ""},
		{"index", `<template repeat="{{ items as item, i }}">{{ i }}={{ item }};</template>`,
			d{"items": items}, "", "0=x;2=y;"},
		{"scope", `<template repeat="{{ items as v }}">{{ v }}{{ sep }}</template>`,
			d{"items": []interface{}{"x", "y"}, "sep": ","}, "", "x,y,"},
		{"key", `<template repeat="{{ items as v, k }}">{{ k }}:{{ v }} </template>`,
			d{"items": object}, "", "a:1 c:3 "},
		{"nested", `<template repeat="{{ groups as g }}"><template repeat="{{ g.items }}">{{ this }}</template>;</template>`,
			d{"groups": []interface{}{d{"items": []interface{}{"a", "b"}}, d{"items": []interface{}{"c"}}}}, "", "ab;c;"},
	})
}

func TestBind(t *testing.T) {
	var input = d{"user": d{"name": "in"}, "name": "out"}
	runRenderTests(t, []renderTest{
		{"plain", `<template bind="{{ user }}">{{ name }}</template>{{ name }}`, input, "", "inout"},
		{"alias", `<template bind="{{ user as u }}">{{ u.name }}-{{ name }}</template>`, input, "", "in-out"},
		{"missing", `<template bind="{{ missing }}">x</template>y`, input, "", "y"},
	})
}

func TestCustomElements(t *testing.T) {
	runRenderTests(t, []renderTest{
		{"body", `<x-card title="Hi {{ name }}">body</x-card>`, d{"name": "Al"}, "", "<b>Hi Al</b>body"},
		{"self-closing", `<x-card title="a"/>`, nil, "", "<b>a</b>"},
		{"empty", `<x-card title="a"></x-card>`, nil, "", "<b>a</b>"},
		{"func", `<x-shout>hey {{ name }}</x-shout>`, d{"name": "al"}, "", "HEY AL!"},
		{"undefined", `<x-none a="1"/><x-none></x-none>`, nil, "", `<x-none a="1" /><x-none></x-none>`},
	})
}

func TestLayout(t *testing.T) {
	runRenderTests(t, []renderTest{
		{"layout", `<template layout="layout.html">inner {{ name }}</template>`, d{"name": "Al"}, "", "<main>inner Al</main>"},
		{"missing", `<template layout="nope.html">inner</template>`, nil, "", "inner"},
	})
}

func TestFilters(t *testing.T) {
	runRenderTests(t, []renderTest{
		{"builtin", `{{ name | upper }} {{ name | trim("*") }}`, d{"name": "*al*"}, "", "*AL* al"},
		{"custom", `{{ name | twice }}`, d{"name": "*al*"}, "", "*al**al*"},
		{"chained", `{{ name | trim("*") | upper }}`, d{"name": "*al*"}, "", "AL"},
		{"length", `{{ items | length }}`, d{"items": []interface{}{1, 2, 3}}, "", "3"},
	})
}

func TestRelativeInclude(t *testing.T) {
	for _, mode := range compileModes {
		var c = testCollection(t, mode.opts, map[string]string{
			"dir/page.html": `<include src="../box.html">x</include> <include src="row.html"></include>`,
			"dir/row.html":  "row",
		})
		var actual, err = c.Render("dir/page.html", nil, "")
		if err != nil {
			t.Fatalf("%s: %v", mode.name, err)
		}
		if actual != "[x] row" {
			t.Errorf("%s: got %q", mode.name, actual)
		}
	}
}

func TestIncludeLiteralRepeat(t *testing.T) {
	var tree = &ast.Template{Name: "page.html", Body: []ast.Node{
		&ast.Include{Src: ast.Str("item.html"), Repeat: &ast.Array{Elements: []ast.Node{
			ast.Str("a"), ast.Null(), ast.Str("b"),
		}}},
		&ast.Include{Src: ast.Str("item.html"), Repeat: &ast.Object{Props: []ast.Property{
			{Key: "x", Value: ast.Str("c")},
			{Key: "y", Value: ast.Str("")},
		}}},
	}}
	for _, mode := range compileModes {
		var c = testCollection(t, mode.opts, nil)
		var page, err = mode.opts.compileTree("page.html", tree)
		if err != nil {
			t.Fatalf("%s: %v", mode.name, err)
		}
		c.Set(page)
		actual, err := page.Render(nil, "")
		if err != nil {
			t.Fatalf("%s: %v", mode.name, err)
		}
		if expected := "<li>a</li><li>b</li><li>c</li>"; actual != expected {
			t.Errorf("%s: got %q, expected %q", mode.name, actual, expected)
		}
	}
}

func TestCompileErrors(t *testing.T) {
	for _, input := range []string{
		"{{ x",
		`<include></include>`,
		`<template bind="{{ a }}" repeat="{{ b }}"></template>`,
	} {
		var _, err = Compile("bad.html", input)
		if err == nil {
			t.Errorf("%q: expected an error", input)
			continue
		}
		if !errortypes.IsErrFilePos(err) {
			t.Errorf("%q: expected a positioned error, got %v", input, err)
		}
	}
}

func TestOptimizeShrinks(t *testing.T) {
	const input = `<p>{{ user.name }}</p><template repeat="{{ items }}">{{ this }}</template>`
	var opt, err = Compile("a.html", input)
	if err != nil {
		t.Fatal(err)
	}
	plain, err := CompileWith(CompileOptions{}, "a.html", input)
	if err != nil {
		t.Fatal(err)
	}
	if len(opt.Source) >= len(plain.Source) {
		t.Errorf("optimized source is not smaller:\n%s\n---\n%s", opt.Source, plain.Source)
	}
}

func TestCompileNormalizesName(t *testing.T) {
	var tmpl, err = Compile("/café.html", "x")
	if err != nil {
		t.Fatal(err)
	}
	if tmpl.Name != "café.html" {
		t.Errorf("got %q", tmpl.Name)
	}
}

func TestRenderStandalone(t *testing.T) {
	var tmpl, err = Compile("a.html", `{{ a }}<include src="b.html">none</include>`)
	if err != nil {
		t.Fatal(err)
	}
	actual, err := tmpl.Render(d{"a": 1}, "")
	if err != nil {
		t.Fatal(err)
	}
	if actual != "1none" {
		t.Errorf("got %q", actual)
	}
}

func TestRenderErrors(t *testing.T) {
	var c = testCollection(t, DefaultCompileOptions, map[string]string{
		"loop.html": `<include src="loop.html"></include>`,
		"bad.html":  `{{ a | nope }}`,
	})
	for _, name := range []string{"loop.html", "bad.html"} {
		if _, err := c.Render(name, nil, ""); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}

	var _, err = c.Render("absent.html", nil, "")
	if !errors.Is(err, ErrMissingTemplate) {
		t.Errorf("expected ErrMissingTemplate, got %v", err)
	}

	// The session survives a failed render.
	actual, err := c.Render("box.html", nil, "ok")
	if err != nil || actual != "[ok]" {
		t.Errorf("got %q, %v", actual, err)
	}
}

func TestConcurrentRender(t *testing.T) {
	var c = testCollection(t, DefaultCompileOptions, map[string]string{
		"page.html": `<template repeat="{{ items as v, i }}"><include src="box.html">{{ i }}{{ v }}</include></template>`,
	})
	var data = d{"items": []interface{}{"a", "b", "c"}}
	const expected = "[0a][1b][2c]"

	var wg sync.WaitGroup
	var errs = make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				var actual, err = c.Render("page.html", data, "")
				if err != nil {
					errs <- err
					return
				}
				if actual != expected {
					errs <- errors.New("got " + actual)
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestObjectRepeatOrder(t *testing.T) {
	var items = d{"g": "7", "c": "3", "e": "5", "a": "1", "f": "6", "b": "2", "h": "8", "d": "4"}
	var input = d{"items": items}
	const expected = "a1b2c3d4e5f6g7h8|a1b2c3d4e5f6g7h8|<li>1</li><li>2</li><li>3</li><li>4</li><li>5</li><li>6</li><li>7</li><li>8</li>"
	for _, mode := range compileModes {
		var c = testCollection(t, mode.opts, map[string]string{
			"page.html": `<template repeat="{{ items as v, k }}">{{ k }}{{ v }}</template>|` +
				`<include src="kv.html" repeat="{{ items as v, k }}"></include>|` +
				`<include src="item.html" repeat="{{ items }}"></include>`,
			"kv.html": "{{ k }}{{ v }}",
		})
		var page = c.Get("page.html")
		for i := 0; i < 30; i++ {
			var actual, err = newSession().renderGo(page, input, "")
			if err != nil {
				t.Fatalf("%s: %v", mode.name, err)
			}
			if actual != expected {
				t.Fatalf("%s: render %d: expected %q, got %q", mode.name, i, expected, actual)
			}
		}
	}
}

func TestRenderDataErrors(t *testing.T) {
	var tmpl = mustCompile(t, "a.html", "{{ a }}")
	if _, err := tmpl.Render(map[int]string{1: "a"}, ""); err == nil {
		t.Error("expected an error for a map with int keys")
	}
	if _, err := tmpl.Render(d{"a": make(chan int)}, ""); err == nil {
		t.Error("expected an error for a channel")
	}
}
