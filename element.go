package htmling

import (
	"fmt"
	"sort"
	"strings"
)

// Element is the definition of a custom element: either the path of the
// template rendering it, or a Go function.
type Element struct {
	Path string
	Func func(attrs map[string]interface{}, content string) (string, error)
}

// Elements maps custom element names, such as "x-card", to their
// definitions.
type Elements map[string]Element

// ElementPaths builds an element table of templates.
func ElementPaths(paths map[string]string) Elements {
	var elements = make(Elements, len(paths))
	for name, path := range paths {
		elements[name] = Element{Path: path}
	}
	return elements
}

// markup renders an element that has no definition as written, with its
// attributes escaped.  A nil content renders a self-closing tag.
func markup(name string, attrs map[string]interface{}, content *string) string {
	var keys []string
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf strings.Builder
	buf.WriteString("<" + name)
	for _, k := range keys {
		fmt.Fprintf(&buf, ` %s="%s"`, k, Escape(stringify(attrs[k])))
	}
	if content == nil {
		buf.WriteString(" />")
		return buf.String()
	}
	buf.WriteString(">" + *content + "</" + name + ">")
	return buf.String()
}
