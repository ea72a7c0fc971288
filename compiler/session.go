// Package compiler lowers a parsed template into a render routine built from
// standard nodes only.
//
// Each template construct is lowered by instantiating a fixed skeleton (see
// skeletons.go) with the construct's sub-trees.  Names synthesized along the
// way take the form kind$N, drawn from counters held by a Session; they never
// collide with each other or with the identifiers a template can produce.
package compiler

import (
	"fmt"
	"runtime"

	"github.com/robfig/htmling/ast"
)

// Session holds the state of a single compile.  A Session must not be shared
// between goroutines, and should not be reused for independent compiles.
type Session struct {
	counters map[string]int
}

// NewSession returns a session with all counters at zero.
func NewSession() *Session {
	return &Session{counters: make(map[string]int)}
}

// Lower converts the template into a program exporting its render routine,
// using a fresh Session.
func Lower(tmpl *ast.Template) (*ast.Program, error) {
	return NewSession().Lower(tmpl)
}

// fresh returns a new name of the given kind.
func (s *Session) fresh(kind string) string {
	s.counters[kind]++
	return fmt.Sprintf("%s$%d", kind, s.counters[kind])
}

// errRecover is the handler that turns panics into returns.
func errRecover(errp *error) {
	e := recover()
	if e == nil {
		return
	}
	switch err := e.(type) {
	case runtime.Error:
		panic(e)
	case error:
		*errp = err
	default:
		*errp = fmt.Errorf("%v", e)
	}
}
