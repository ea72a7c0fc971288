package htmling

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/robfig/htmling/jsgen"
)

// Collection is a set of compiled templates keyed by name, together with the
// custom elements and filters they share.  Lookups never block; changes
// publish a new copy of the template table.
type Collection struct {
	mu        sync.Mutex   // serializes changes
	templates atomic.Value // map[string]*Template, never modified once stored
	elements  Elements
	filters   Filters
}

// NewCollection returns an empty collection using the given element table and
// filters.  Either may be nil.
func NewCollection(elements Elements, filters Filters) *Collection {
	var c = &Collection{elements: elements, filters: filters}
	c.templates.Store(map[string]*Template{})
	return c
}

func (c *Collection) table() map[string]*Template {
	return c.templates.Load().(map[string]*Template)
}

// Get returns the template with the given name, or nil.
func (c *Collection) Get(name string) *Template {
	return c.table()[normalize(name)]
}

// Set adds the template under its name, replacing any template of the same
// name.  A template belongs to one collection at a time: it is removed from
// the one it was in.
func (c *Collection) Set(t *Template) *Collection {
	if prev := t.Collection(); prev != nil && prev != c {
		prev.remove(t.Name, t)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	var next = c.copyTable()
	if old, ok := next[t.Name]; ok && old != t {
		old.setCollection(nil)
	}
	next[t.Name] = t
	t.setCollection(c)
	c.templates.Store(next)
	return c
}

// Delete removes the named template, reporting whether it was present.
func (c *Collection) Delete(name string) bool {
	return c.remove(normalize(name), nil)
}

// remove deletes name if it maps to t, or to anything when t is nil.
func (c *Collection) remove(name string, t *Template) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	var old, ok = c.table()[name]
	if !ok || t != nil && old != t {
		return false
	}
	var next = c.copyTable()
	delete(next, name)
	old.setCollection(nil)
	c.templates.Store(next)
	return true
}

// replace swaps in a whole new set of templates.
func (c *Collection) replace(templates []*Template) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var next = make(map[string]*Template, len(templates))
	for _, t := range templates {
		t.setCollection(c)
		next[t.Name] = t
	}
	for name, old := range c.table() {
		if next[name] != old {
			old.setCollection(nil)
		}
	}
	c.templates.Store(next)
}

func (c *Collection) copyTable() map[string]*Template {
	var table = c.table()
	var next = make(map[string]*Template, len(table)+1)
	for k, v := range table {
		next[k] = v
	}
	return next
}

// Len returns the number of templates.
func (c *Collection) Len() int {
	return len(c.table())
}

// Names returns the template names in sorted order.
func (c *Collection) Names() []string {
	var table = c.table()
	var names = make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ForEach calls fn for every template, in name order.
func (c *Collection) ForEach(fn func(name string, t *Template)) {
	var table = c.table()
	for _, name := range c.Names() {
		if t, ok := table[name]; ok {
			fn(name, t)
		}
	}
}

// Elements returns the custom element table.
func (c *Collection) Elements() Elements {
	return c.elements
}

// Render renders the named template.  Unlike an include, naming a template
// that does not exist is an error.
func (c *Collection) Render(name string, data interface{}, content string) (string, error) {
	var t = c.Get(name)
	if t == nil {
		return "", fmt.Errorf("%w: %s", ErrMissingTemplate, name)
	}
	return t.Render(data, content)
}

// WriteTo writes every template as one script, which evaluates to an object
// mapping each template name to its exports.
func (c *Collection) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	buf.WriteString("(function (templates) {\n")
	c.ForEach(func(name string, t *Template) {
		fmt.Fprintf(&buf, "  templates[%s] = %s;\n", jsgen.Quote(name), indent(module(t.String()))[2:])
	})
	buf.WriteString("  return templates;\n})({});\n")
	return buf.WriteTo(w)
}

// String returns the script written by WriteTo.
func (c *Collection) String() string {
	var buf bytes.Buffer
	c.WriteTo(&buf)
	return buf.String()
}
