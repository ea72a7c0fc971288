/*
Package htmling compiles HTML templates into JavaScript render routines and
executes them.

Templates are plain HTML with a few additions:

  Hello {{ user.name | title }}!           escaped output, with a filter
  {{{ trusted }}}                          raw output
  <template bind="{{ user as u }}">...     rebind the data scope
  <template repeat="{{ items as item, i }}">...
  <include src="partials/row.html" bind="{{ row }}">slot</include>
  <content>default</content>               slot content from the includer
  <x-card title="{{ title }}">body</x-card> custom elements

Each template is parsed, lowered into a JavaScript program, optimized and run
in an embedded interpreter.  Usage example

On startup:

  collection, err := htmling.NewBundle().
      WatchFiles(mode == "dev").             // recompile on changes (in dev)
      AddElementsFile("views/elements.yaml"). // custom element table
      AddTemplateDir("views").               // load *.html in all sub-directories
      Compile()

To render a page:

  html, err := collection.Render("account/overview.html", map[string]interface{}{
    "user":    user,
    "account": account,
  }, "")

Data is converted with the data package: structs become maps with lowerCamel
keys.

Advanced Usage

The sub-packages expose each stage: parse produces the template tree,
compiler lowers it, optimizer rewrites the result and jsgen prints it.
*/
package htmling
