package htmling

import (
	"reflect"
	"testing"

	"github.com/robertkrimen/otto"
)

func mustCompile(t *testing.T, name, text string) *Template {
	t.Helper()
	var tmpl, err = Compile(name, text)
	if err != nil {
		t.Fatal(err)
	}
	return tmpl
}

func TestCollectionSetDelete(t *testing.T) {
	var c = NewCollection(nil, nil)
	var a, b = mustCompile(t, "a.html", "a"), mustCompile(t, "b.html", "b")
	c.Set(a).Set(b)

	if c.Len() != 2 {
		t.Errorf("expected 2 templates, got %d", c.Len())
	}
	if !reflect.DeepEqual(c.Names(), []string{"a.html", "b.html"}) {
		t.Errorf("got names %v", c.Names())
	}
	if c.Get("/a.html") != a || a.Collection() != c {
		t.Error("a.html not registered")
	}

	var a2 = mustCompile(t, "a.html", "a2")
	c.Set(a2)
	if c.Get("a.html") != a2 || a.Collection() != nil || a2.Collection() != c {
		t.Error("a.html not replaced")
	}

	if !c.Delete("b.html") || c.Delete("b.html") {
		t.Error("expected exactly one delete")
	}
	if b.Collection() != nil || c.Get("b.html") != nil {
		t.Error("b.html not removed")
	}
}

func TestCollectionMove(t *testing.T) {
	var c1, c2 = NewCollection(nil, nil), NewCollection(nil, nil)
	var a = mustCompile(t, "a.html", "a")
	c1.Set(a)
	c2.Set(a)
	if c1.Get("a.html") != nil || c1.Len() != 0 {
		t.Error("template still in its first collection")
	}
	if c2.Get("a.html") != a || a.Collection() != c2 {
		t.Error("template not in its second collection")
	}
}

func TestCollectionReplace(t *testing.T) {
	var c = NewCollection(nil, nil)
	var a, b = mustCompile(t, "a.html", "a"), mustCompile(t, "b.html", "b")
	c.replace([]*Template{a, b})

	var b2 = mustCompile(t, "b.html", "b2")
	c.replace([]*Template{b2})
	if a.Collection() != nil || b.Collection() != nil || b2.Collection() != c {
		t.Error("back-references not updated")
	}
	if !reflect.DeepEqual(c.Names(), []string{"b.html"}) {
		t.Errorf("got names %v", c.Names())
	}

	var visited []string
	c.ForEach(func(name string, t *Template) { visited = append(visited, name) })
	if !reflect.DeepEqual(visited, []string{"b.html"}) {
		t.Errorf("visited %v", visited)
	}
}

func TestCollectionWriteTo(t *testing.T) {
	var c = NewCollection(nil, nil)
	c.Set(mustCompile(t, "b.html", "static"))
	c.Set(mustCompile(t, "a.html", "{{ x }}"))

	var vm = otto.New()
	if _, err := vm.Run("var bundle = " + c.String()); err != nil {
		t.Fatalf("%v\n%s", err, c.String())
	}

	var tests = []struct{ expr, expected string }{
		{`Object.keys(bundle).join(",")`, "a.html,b.html"},
		{`bundle["a.html"].name`, "a.html"},
		{`typeof bundle["a.html"].render`, "function"},
		{`bundle["b.html"].render.call({}, {})`, "static"},
		{`bundle["a.html"].render.call({escape: String}, {x: 1})`, "1"},
	}
	for _, test := range tests {
		var v, err = vm.Run(test.expr)
		if err != nil {
			t.Errorf("%s: %v", test.expr, err)
			continue
		}
		if v.String() != test.expected {
			t.Errorf("%s: expected %q, got %q", test.expr, test.expected, v.String())
		}
	}
}
