package htmling

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/robertkrimen/otto"
	"github.com/robfig/htmling/ast"
	"github.com/robfig/htmling/compiler"
	"github.com/robfig/htmling/jsgen"
	"github.com/robfig/htmling/optimizer"
	"github.com/robfig/htmling/parse"
	"golang.org/x/text/unicode/norm"
)

// Logger is used to print notifications and compile errors when using the
// "WatchFiles" feature.
var Logger = log.New(os.Stderr, "[htmling] ", 0)

// ErrMissingTemplate is returned by Collection.Render for a name that is not
// in the collection.
var ErrMissingTemplate = errors.New("cannot render missing template")

// CompileOptions controls how template source is compiled.
type CompileOptions struct {
	Optimize bool // run the optimizer over the lowered program
}

// DefaultCompileOptions are used by Compile.
var DefaultCompileOptions = CompileOptions{Optimize: true}

// Compile compiles the template text using DefaultCompileOptions.  The name
// is the template's key within a collection, e.g. "account/overview.html".
func Compile(name, text string) (*Template, error) {
	return CompileWith(DefaultCompileOptions, name, text)
}

// CompileWith compiles the template text using the given options.
func CompileWith(opts CompileOptions, name, text string) (*Template, error) {
	name = normalize(name)
	var tree, err = parse.Template(name, text)
	if err != nil {
		return nil, err
	}
	return opts.compileTree(name, tree)
}

func (opts CompileOptions) compileTree(name string, tree *ast.Template) (*Template, error) {
	var src, err = opts.generate(name, tree)
	if err != nil {
		return nil, err
	}
	script, err := compileScript(name, module(src)+".render;\n")
	if err != nil {
		return nil, fmt.Errorf("%s: generated invalid code: %w", name, err)
	}
	return &Template{Name: name, Source: src, script: script}, nil
}

// Generate returns the JavaScript program for the template text: a module
// assigning exports.render.
func (opts CompileOptions) Generate(name, text string) (string, error) {
	var tree, err = parse.Template(name, text)
	if err != nil {
		return "", err
	}
	return opts.generate(name, tree)
}

func (opts CompileOptions) generate(name string, tree *ast.Template) (string, error) {
	prog, err := compiler.Lower(tree)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	if opts.Optimize {
		if prog, err = optimizer.Optimize(prog); err != nil {
			return "", fmt.Errorf("%s: %w", name, err)
		}
	}
	var buf bytes.Buffer
	if err = jsgen.Write(&buf, prog); err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return buf.String(), nil
}

var (
	scriptMu sync.Mutex
	scriptVM = otto.New()
)

func compileScript(name, src string) (*otto.Script, error) {
	scriptMu.Lock()
	defer scriptMu.Unlock()
	return scriptVM.Compile(name, src)
}

// module wraps a template program so that it evaluates to its exports.
func module(src string) string {
	return "(function (exports) {\n" + indent(src) + "  return exports;\n})({})"
}

func indent(src string) string {
	var lines = strings.SplitAfter(src, "\n")
	var buf strings.Builder
	for _, line := range lines {
		if line != "" && line != "\n" {
			buf.WriteString("  ")
		}
		buf.WriteString(line)
	}
	return buf.String()
}

// normalize returns the collection key for a template name.
func normalize(name string) string {
	return norm.NFC.String(strings.TrimPrefix(name, "/"))
}
