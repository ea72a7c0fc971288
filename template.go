package htmling

import (
	"fmt"
	"path"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/robertkrimen/otto"
	"github.com/robfig/htmling/jsgen"
)

// Template is a compiled template.  It is safe for concurrent use.
type Template struct {
	Name   string // key within a collection; includes resolve relative to it
	Source string // the generated program

	script     *otto.Script
	collection atomic.Value // *Collection
	paths      sync.Map     // name => resolved path
}

// Collection returns the collection the template belongs to, if any.
func (t *Template) Collection() *Collection {
	c, _ := t.collection.Load().(*Collection)
	return c
}

func (t *Template) setCollection(c *Collection) {
	t.collection.Store(c)
}

// Render renders the template with the given data.  Content, if not empty,
// is rendered in place of the template's <content> slot.
func (t *Template) Render(data interface{}, content string) (html string, err error) {
	var s = sessions.Get().(*session)
	defer sessions.Put(s)
	return s.renderGo(t, data, content)
}

// ResolvePath returns the collection key named by name, as referenced from
// this template:
//   "/a/b"     => "a/b", from the root
//   "x"        => the template's directory + "/x"
//   "./x"      => the same
//   "../x"     => the parent directory + "/x", stopping at the root
// The result is memoized per name.
func (t *Template) ResolvePath(name string) string {
	if resolved, ok := t.paths.Load(name); ok {
		return resolved.(string)
	}
	var resolved = resolvePath(path.Dir(t.Name), name)
	t.paths.Store(name, resolved)
	return resolved
}

func resolvePath(dir, name string) string {
	if strings.HasPrefix(name, "/") {
		return normalize(name)
	}
	if dir == "." {
		dir = ""
	}
	for {
		if strings.HasPrefix(name, "./") {
			name = name[2:]
		} else if strings.HasPrefix(name, "../") {
			name = name[3:]
			if i := strings.LastIndex(dir, "/"); i >= 0 {
				dir = dir[:i]
			} else {
				dir = ""
			}
		} else {
			break
		}
	}
	if dir == "" {
		return normalize(name)
	}
	return normalize(dir + "/" + name)
}

// String returns the template as a standalone module, assigning its name and
// render routine to exports.
func (t *Template) String() string {
	return fmt.Sprintf("exports.name = %s;\n%s", jsgen.Quote(t.Name), t.Source)
}
