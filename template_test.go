package htmling

import "testing"

func TestResolvePath(t *testing.T) {
	var tests = []struct {
		from, name, expected string
	}{
		{"dir/page.html", "/a/b", "a/b"},
		{"dir/page.html", "x", "dir/x"},
		{"dir/page.html", "./x", "dir/x"},
		{"dir/page.html", "../x", "x"},
		{"dir/page.html", "../../x", "x"},
		{"a/b/c.html", "../x", "a/x"},
		{"a/b/c.html", "../../x", "x"},
		{"a/b/c.html", "./../x", "a/x"},
		{"a/b/c.html", "y/x", "a/b/y/x"},
		{"page.html", "x", "x"},
		{"page.html", "../x", "x"},
		{"page.html", "/x", "x"},
	}

	for _, test := range tests {
		var tmpl = &Template{Name: test.from}
		for i := 0; i < 2; i++ {
			if actual := tmpl.ResolvePath(test.name); actual != test.expected {
				t.Errorf("%s from %s: expected %q, got %q", test.name, test.from, test.expected, actual)
			}
		}
		if _, ok := tmpl.paths.Load(test.name); !ok {
			t.Errorf("%s from %s: not memoized", test.name, test.from)
		}
	}
}

func TestTemplateString(t *testing.T) {
	var tmpl, err = Compile("a.html", "x")
	if err != nil {
		t.Fatal(err)
	}
	var expected = "exports.name = \"a.html\";\n" + tmpl.Source
	if tmpl.String() != expected {
		t.Errorf("got %q", tmpl.String())
	}
}
