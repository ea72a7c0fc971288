package htmling

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/robertkrimen/otto"
	"github.com/robfig/htmling/data"
)

// maxDepth bounds nested includes, layouts and custom elements.
const maxDepth = 100

// rescopeSource defines the derived scopes used by aliases and iteration: an
// object inheriting every property of data, with name set to value when
// given.
const rescopeSource = `(function rescope(data, name, value) {
  var scope = Object.create(data !== null && typeof data === "object" ? data : null);
  if (arguments.length > 1) {
    scope[name] = value;
  }
  return scope;
})`

var rescopeScript *otto.Script

func init() {
	var err error
	if rescopeScript, err = compileScript("rescope", rescopeSource); err != nil {
		panic(err)
	}
}

// sessions holds interpreters for reuse.  A render, with everything it
// includes, runs on one session.
var sessions = sync.Pool{
	New: func() interface{} { return newSession() },
}

// session is an interpreter along with the render routines and contexts
// already instantiated in it.
type session struct {
	vm        *otto.Otto
	rescope   otto.Value
	renderers map[*Template]otto.Value
	contexts  map[*Template]otto.Value
	depth     int
}

func newSession() *session {
	var vm = otto.New()
	var rescope, err = vm.Run(rescopeScript)
	if err != nil {
		panic(err)
	}
	return &session{
		vm:        vm,
		rescope:   rescope,
		renderers: make(map[*Template]otto.Value),
		contexts:  make(map[*Template]otto.Value),
	}
}

// renderGo renders t with Go data.
func (s *session) renderGo(t *Template, value interface{}, content string) (html string, err error) {
	if value == nil {
		value = data.Map{}
	}
	object, err := s.convert(value)
	if err != nil {
		return "", fmt.Errorf("%s: %w", t.Name, err)
	}
	var slot = otto.UndefinedValue()
	if content != "" {
		slot = s.value(content)
	}
	return s.render(t, object, slot)
}

// convert builds the interpreter's copy of Go data.
func (s *session) convert(value interface{}) (result otto.Value, err error) {
	defer func() {
		if e := recover(); e != nil {
			if er, ok := e.(error); ok {
				err = er
			} else {
				err = fmt.Errorf("%v", e)
			}
		}
	}()
	return s.jsValue(data.New(value))
}

// jsValue creates the JS value for converted data.  Object properties are
// defined in sorted key order, which is the order repeats visit them.
func (s *session) jsValue(value interface{}) (otto.Value, error) {
	switch v := value.(type) {
	case nil:
		return otto.NullValue(), nil
	case data.List:
		var arr, err = s.vm.Object("([])")
		if err != nil {
			return otto.Value{}, err
		}
		for _, item := range v {
			elem, err := s.jsValue(item)
			if err != nil {
				return otto.Value{}, err
			}
			if _, err = arr.Call("push", elem); err != nil {
				return otto.Value{}, err
			}
		}
		return arr.Value(), nil
	case data.Map:
		var obj, err = s.vm.Object("({})")
		if err != nil {
			return otto.Value{}, err
		}
		for _, key := range v.Keys() {
			elem, err := s.jsValue(v[key])
			if err != nil {
				return otto.Value{}, err
			}
			if err = obj.Set(key, elem); err != nil {
				return otto.Value{}, err
			}
		}
		return obj.Value(), nil
	}
	return s.vm.ToValue(value)
}

// render calls the template's render routine with its context as receiver.
func (s *session) render(t *Template, object, content otto.Value) (string, error) {
	if s.depth == maxDepth {
		return "", fmt.Errorf("%s: templates nested more than %d deep", t.Name, maxDepth)
	}
	s.depth++
	defer func() { s.depth-- }()

	var fn, ok = s.renderers[t]
	if !ok {
		var err error
		if fn, err = s.vm.Run(t.script); err != nil {
			return "", fmt.Errorf("%s: %w", t.Name, err)
		}
		s.renderers[t] = fn
	}
	var result, err = fn.Call(s.context(t), object, content)
	if err != nil {
		return "", fmt.Errorf("%s: %w", t.Name, err)
	}
	return result.String(), nil
}

// context returns the receiver of t's render routine.
func (s *session) context(t *Template) otto.Value {
	if ctx, ok := s.contexts[t]; ok {
		return ctx
	}
	var obj, _ = s.vm.Object(`({})`)
	var c = t.Collection()
	var filters Filters
	if c != nil {
		filters = c.filters
	}
	for _, name := range filterNames(filters) {
		var filter, _ = filters.lookup(name)
		obj.Set(name, s.filter(name, filter))
	}
	obj.Set("escape", s.escape)
	obj.Set("rescope", s.rescope)
	obj.Set("resolvePath", func(call otto.FunctionCall) otto.Value {
		return s.value(t.ResolvePath(call.Argument(0).String()))
	})
	obj.Set("include", func(call otto.FunctionCall) otto.Value {
		return s.include(t, call.Argument(0), call.Argument(1), call.Argument(2))
	})
	obj.Set("layout", func(call otto.FunctionCall) otto.Value {
		return s.include(t, call.Argument(0), call.Argument(1), call.Argument(2))
	})
	obj.Set("customElement", func(call otto.FunctionCall) otto.Value {
		return s.customElement(t, call)
	})
	var ctx = obj.Value()
	s.contexts[t] = ctx
	return ctx
}

func filterNames(filters Filters) []string {
	var seen = make(map[string]bool)
	var names []string
	for _, table := range []Filters{DefaultFilters, filters} {
		for name := range table {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}

func (s *session) value(v interface{}) otto.Value {
	var result, err = s.vm.ToValue(v)
	if err != nil {
		s.throw(err)
	}
	return result
}

// throw raises err as an exception in the running script.
func (s *session) throw(err error) {
	panic(s.vm.MakeCustomError("RenderError", err.Error()))
}

// escape is the context's escape method.  Null and undefined render as
// nothing; numbers need no escaping.
func (s *session) escape(call otto.FunctionCall) otto.Value {
	var v = call.Argument(0)
	switch {
	case v.IsUndefined() || v.IsNull():
		return s.value("")
	case v.IsNumber():
		return v
	}
	return s.value(Escape(v.String()))
}

// include renders the template at name in the given scope.  A missing
// template renders the slot content instead.
func (s *session) include(from *Template, name, object, content otto.Value) otto.Value {
	if name.IsFunction() {
		var result, err = name.Call(otto.UndefinedValue(), object, content)
		if err != nil {
			s.throw(err)
		}
		return result
	}

	var target *Template
	if c := from.Collection(); c != nil {
		target = c.Get(from.ResolvePath(name.String()))
	}
	if target == nil {
		return fallback(s, content)
	}
	var html, err = s.render(target, object, content)
	if err != nil {
		s.throw(err)
	}
	return s.value(html)
}

// fallback returns content || "".
func fallback(s *session, content otto.Value) otto.Value {
	if ok, _ := content.ToBoolean(); ok {
		return content
	}
	return s.value("")
}

// customElement renders the element named by the first argument, with the
// attributes in the second.  A third argument holds the body: a string, or a
// function rendering it, called with the remaining arguments.  Elements
// without a definition are written out as markup.
func (s *session) customElement(from *Template, call otto.FunctionCall) otto.Value {
	var name = call.Argument(0).String()
	var attrs = call.Argument(1)
	var content = call.Argument(2)
	if content.IsFunction() {
		var err error
		content, err = content.Call(otto.UndefinedValue(), call.Argument(3), call.Argument(4))
		if err != nil {
			s.throw(err)
		}
	}

	var element Element
	var defined bool
	if c := from.Collection(); c != nil {
		element, defined = c.elements[name]
	}
	switch {
	case !defined:
		var body *string
		if !content.IsUndefined() {
			var str = content.String()
			body = &str
		}
		return s.value(markup(name, s.export(attrs), body))

	case element.Func != nil:
		var str string
		if !content.IsUndefined() {
			str = content.String()
		}
		var html, err = element.Func(s.export(attrs), str)
		if err != nil {
			s.throw(fmt.Errorf("<%s>: %w", name, err))
		}
		return s.value(html)
	}
	return s.include(from, s.value("/"+strings.TrimPrefix(element.Path, "/")), attrs, content)
}

// export converts an attribute object to Go.
func (s *session) export(attrs otto.Value) map[string]interface{} {
	var v, err = attrs.Export()
	if err != nil {
		s.throw(err)
	}
	m, _ := v.(map[string]interface{})
	return m
}

// filter adapts a Filter to a context method.
func (s *session) filter(name string, f Filter) func(otto.FunctionCall) otto.Value {
	return func(call otto.FunctionCall) otto.Value {
		var args []interface{}
		for _, arg := range call.ArgumentList {
			var v, err = arg.Export()
			if err != nil {
				s.throw(err)
			}
			args = append(args, v)
		}
		if len(args) == 0 {
			args = append(args, nil)
		}
		var result, err = f(args[0], args[1:]...)
		if err != nil {
			s.throw(fmt.Errorf("filter %s: %w", name, err))
		}
		return s.value(result)
	}
}
