package htmling

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

type templateFile struct{ name, filename, content string }

// Bundle is a set of template sources along with the custom elements and
// filters they use.  It acts as input for the compiler.
type Bundle struct {
	files                 []templateFile
	elements              Elements
	filters               Filters
	options               CompileOptions
	err                   error
	watcher               *fsnotify.Watcher
	recompilationCallback func(*Collection)
}

// NewBundle returns an empty bundle.
func NewBundle() *Bundle {
	return &Bundle{
		elements: make(Elements),
		filters:  make(Filters),
		options:  DefaultCompileOptions,
	}
}

// WatchFiles tells htmling to watch any template files added to this bundle,
// re-compile as necessary, and propagate the updates to the collection.  It
// should be called once, before adding any files.
func (b *Bundle) WatchFiles(watch bool) *Bundle {
	if watch && b.err == nil && b.watcher == nil {
		b.watcher, b.err = fsnotify.NewWatcher()
	}
	return b
}

// SetCompileOptions replaces DefaultCompileOptions for this bundle.
func (b *Bundle) SetCompileOptions(opts CompileOptions) *Bundle {
	b.options = opts
	return b
}

// AddTemplateDir adds all *.html files found within the given directory
// (including sub-directories) to the bundle.  Each is named by its path
// relative to root.
func (b *Bundle) AddTemplateDir(root string) *Bundle {
	var err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, ".html") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		b.addFile(filepath.ToSlash(rel), path)
		return nil
	})
	if err != nil {
		b.err = err
	}
	return b
}

// AddTemplateFile adds the given template file to this bundle, named by its
// path.  If WatchFiles is on, it will be subsequently watched for updates.
func (b *Bundle) AddTemplateFile(filename string) *Bundle {
	return b.addFile(filepath.ToSlash(filename), filename)
}

func (b *Bundle) addFile(name, filename string) *Bundle {
	content, err := ioutil.ReadFile(filename)
	if err != nil {
		b.err = err
	}
	if b.err == nil && b.watcher != nil {
		b.err = b.watcher.Add(filename)
	}
	b.files = append(b.files, templateFile{normalize(name), filename, string(content)})
	return b
}

// AddTemplateString adds the given template to the bundle under the given
// name.
func (b *Bundle) AddTemplateString(name, text string) *Bundle {
	b.files = append(b.files, templateFile{normalize(name), "", text})
	return b
}

// AddElementsFile reads a YAML map of custom element names to template paths:
//   x-card: partials/card.html
//   x-icon: /icons/icon.html
func (b *Bundle) AddElementsFile(filename string) *Bundle {
	var content, err = ioutil.ReadFile(filename)
	if err != nil {
		b.err = err
		return b
	}
	var paths map[string]string
	if err = yaml.Unmarshal(content, &paths); err != nil {
		b.err = fmt.Errorf("%s: %w", filename, err)
		return b
	}
	return b.AddElements(ElementPaths(paths))
}

// AddElements adds custom element definitions.  Defining an element twice is
// an error.
func (b *Bundle) AddElements(elements Elements) *Bundle {
	for name, el := range elements {
		if !strings.Contains(name, "-") {
			b.err = fmt.Errorf("element %q: custom element names contain a hyphen", name)
			return b
		}
		if existing, ok := b.elements[name]; ok {
			b.err = fmt.Errorf("element %q already defined as %q", name, existing.Path)
			return b
		}
		b.elements[name] = el
	}
	return b
}

// AddFilters adds filters, replacing any of the same name.
func (b *Bundle) AddFilters(filters Filters) *Bundle {
	for name, f := range filters {
		b.filters[name] = f
	}
	return b
}

// SetRecompilationCallback assigns the bundle a function to call after
// recompilation.  This is called before updating the in-use collection.
func (b *Bundle) SetRecompilationCallback(c func(*Collection)) *Bundle {
	b.recompilationCallback = c
	return b
}

// Compile compiles all of the templates in this bundle and returns them as a
// collection.
func (b *Bundle) Compile() (*Collection, error) {
	if b.err != nil {
		return nil, b.err
	}
	var templates, err = b.compileAll()
	if err != nil {
		return nil, err
	}
	var collection = NewCollection(b.elements, b.filters)
	collection.replace(templates)

	if b.watcher != nil {
		go b.recompiler(collection)
	}
	return collection, nil
}

func (b *Bundle) compileAll() ([]*Template, error) {
	var templates []*Template
	var seen = make(map[string]bool)
	for _, file := range b.files {
		if seen[file.name] {
			return nil, fmt.Errorf("template %q added twice", file.name)
		}
		seen[file.name] = true
		var t, err = CompileWith(b.options, file.name, file.content)
		if err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return templates, nil
}

func (b *Bundle) recompiler(collection *Collection) {
	for {
		select {
		case ev, ok := <-b.watcher.Events:
			if !ok {
				return
			}
			// If it's a rename, then fsnotify has removed the watch.
			// Add it back, after a delay.
			if ev.Op&(fsnotify.Rename|fsnotify.Remove) != 0 {
				time.Sleep(10 * time.Millisecond)
				if err := b.watcher.Add(ev.Name); err != nil {
					Logger.Println(err)
				}
			}

			// Re-read and recompile all the templates.
			var bundle = NewBundle().
				SetCompileOptions(b.options)
			for _, file := range b.files {
				if file.filename == "" {
					bundle.AddTemplateString(file.name, file.content)
				} else {
					bundle.addFile(file.name, file.filename)
				}
			}
			if bundle.err != nil {
				Logger.Println(bundle.err)
				continue
			}
			var templates, err = bundle.compileAll()
			if err != nil {
				Logger.Println(err)
				continue
			}

			if b.recompilationCallback != nil {
				var preview = NewCollection(b.elements, b.filters)
				preview.replace(templates)
				b.recompilationCallback(preview)
			}

			// Publish the new templates; renders in progress finish with the
			// ones they started with.
			collection.replace(templates)
			Logger.Printf("update successful (%v)", ev)

		case err, ok := <-b.watcher.Errors:
			if !ok {
				return
			}
			Logger.Println(err)
		}
	}
}

// Close stops watching files.
func (b *Bundle) Close() error {
	if b.watcher == nil {
		return nil
	}
	return b.watcher.Close()
}
