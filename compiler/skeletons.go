package compiler

import "github.com/robfig/htmling/ast"

// Every rendering function declares these.  html accumulates the output and
// ref holds the value of the last conditional test or path step.
const (
	htmlIdent    = "html"
	refIdent     = "ref"
	contextIdent = "context"
	objectIdent  = "object"
	contentIdent = "content"
	filtersIdent = "filters"
)

var id = ast.Ident

// hole is a statement hole.
func hole(name string) ast.Node {
	return ast.Stmt(id(name))
}

func appendHTML(x ast.Node) ast.Node {
	return ast.Stmt(ast.Append(id(htmlIdent), x))
}

func contextCall(method string, args ...ast.Node) ast.Node {
	return ast.CallOf(ast.Dot(id(contextIdent), method), args...)
}

// locals declares the accumulator followed by the named variables.
func locals(names ...string) *ast.VarDecl {
	var decl = ast.Var(ast.Decl(htmlIdent, ast.Str("")))
	for _, name := range names {
		decl.Decls = append(decl.Decls, ast.Decl(name, nil))
	}
	return decl
}

// renderer builds a function rendering $body with its own accumulator.
func renderer(name string, decl bool, params ...string) *ast.Function {
	var fn = ast.Func(name, params,
		locals(refIdent),
		hole("$body"),
		ast.Ret(id(htmlIdent)),
	)
	fn.Decl = decl
	return fn
}

func args(names ...string) []ast.Node {
	var nodes []ast.Node
	for _, name := range names {
		nodes = append(nodes, id(name))
	}
	return nodes
}

var loopLocals = []string{"isArray", "keys", "total", "i", "key"}

// loop renders body once per truthy item of iterable, which may be an array
// or an object whose own enumerable keys are visited.  Anything else renders
// nothing.  The item is assigned to value.
func loop(iterable, value string, body ...ast.Node) []ast.Node {
	return []ast.Node{
		ast.IfThen(
			ast.Or(
				ast.Bin("!==", &ast.Unary{Op: "typeof", Arg: id(iterable)}, ast.Str("object")),
				ast.Not(id(iterable))),
			ast.Ret(id(htmlIdent)), nil),
		ast.Stmt(ast.Set(id("isArray"), ast.CallOf(ast.Dot(id("Array"), "isArray"), id(iterable)))),
		ast.Stmt(ast.Set(id("keys"), ast.Cond(id("isArray"),
			&ast.Array{}, ast.CallOf(ast.Dot(id("Object"), "keys"), id(iterable))))),
		ast.Stmt(ast.Set(id("total"), ast.Cond(id("isArray"),
			ast.Dot(id(iterable), "length"), ast.Dot(id("keys"), "length")))),
		&ast.For{
			Init:   ast.Set(id("i"), ast.Num(0)),
			Test:   ast.Bin("<", id("i"), id("total")),
			Update: &ast.Update{Op: "++", Arg: id("i")},
			Body: ast.BlockOf(append([]ast.Node{
				ast.Stmt(ast.Set(id("key"), ast.Cond(id("isArray"), id("i"), ast.Index(id("keys"), id("i"))))),
				ast.Stmt(ast.Set(id(value), ast.Index(id(iterable), id("key")))),
				ast.IfThen(ast.Not(id(value)), &ast.ContinueStmt{}, nil),
			}, body...)...),
		},
	}
}

// indexLoop is loop specialized for a collection known to be an array.
func indexLoop(items, value string, body ...ast.Node) ast.Node {
	return &ast.For{
		Init:   ast.Set(id("i"), ast.Num(0)),
		Test:   ast.Bin("<", id("i"), ast.Dot(id(items), "length")),
		Update: &ast.Update{Op: "++", Arg: id("i")},
		Body: ast.BlockOf(append([]ast.Node{
			ast.Stmt(ast.Set(id(value), ast.Index(id(items), id("i")))),
			ast.IfThen(ast.Not(id(value)), &ast.ContinueStmt{}, nil),
		}, body...)...),
	}
}

func body(stmts ...ast.Node) []ast.Node {
	return stmts
}

var (
	// exports.render = function render(object, content, filters) {...}
	renderSkeleton = newSkeleton("render", &ast.Program{Body: body(
		ast.Stmt(ast.Set(ast.Dot(id("exports"), "render"),
			ast.Func("render", []string{objectIdent, contentIdent, filtersIdent},
				ast.Var(
					ast.Decl(contextIdent, &ast.This{}),
					ast.Decl(htmlIdent, ast.Str("")),
					ast.Decl(refIdent, nil)),
				ast.Stmt(ast.Set(id(filtersIdent), ast.Or(id(filtersIdent), id(contextIdent)))),
				hole("$body"),
				ast.Ret(id(htmlIdent)),
			))),
	)})

	verbatimOutputSkeleton = newSkeleton("verbatim output", appendHTML(id("$value")))

	escapedOutputSkeleton = newSkeleton("escaped output",
		appendHTML(contextCall("escape", id("$expr"))))

	rawOutputSkeleton = newSkeleton("raw output",
		appendHTML(ast.Cond(
			ast.Bin("==", ast.Set(id(refIdent), id("$expr")), ast.Null()),
			ast.Str(""),
			id(refIdent))))

	contentSkeleton = newSkeleton("content",
		ast.IfThen(id(contentIdent), ast.BlockOf(appendHTML(id(contentIdent))), nil))

	contentDefaultSkeleton = newSkeleton("content with default",
		ast.IfThen(id(contentIdent),
			ast.BlockOf(appendHTML(id(contentIdent))),
			ast.BlockOf(hole("$default"))))

	bindSkeleton = newSkeleton("bind",
		ast.IfThen(ast.Set(id(refIdent), id("$expr")), ast.BlockOf(
			ast.Var(ast.Decl("$saved", id(objectIdent))),
			ast.Stmt(ast.Set(id(objectIdent), id(refIdent))),
			hole("$body"),
			ast.Stmt(ast.Set(id(objectIdent), id("$saved"))),
		), nil))

	aliasSkeleton = newSkeleton("bind alias",
		ast.IfThen(ast.Set(id(refIdent), id("$subject")),
			appendHTML(ast.CallOf(renderer("", false, objectIdent),
				contextCall("rescope", id(objectIdent), id("$alias"), id(refIdent)))),
			nil))

	repeatSkeleton = newSkeleton("repeat", ast.BlockOf(
		ast.FuncDecl("$name", []string{contextIdent, "iterable", contentIdent, filtersIdent}, append(append(
			body(locals(append([]string{refIdent, objectIdent}, loopLocals...)...)),
			loop("iterable", objectIdent, hole("$body"))...),
			ast.Ret(id(htmlIdent)))...),
		appendHTML(ast.CallOf(id("$name"), id(contextIdent), id("$expr"), id(contentIdent), id(filtersIdent))),
	))

	iterateSkeleton      = newIterateSkeleton(false)
	iterateIndexSkeleton = newIterateSkeleton(true)

	layoutSkeleton = newSkeleton("layout",
		appendHTML(contextCall("layout", id("$src"), id(objectIdent),
			ast.CallOf(renderer("", false)))))

	elementSelfClosingSkeleton = newSkeleton("self-closing element",
		appendHTML(contextCall("customElement", id("$name"), id("$attrs"))))

	elementEmptySkeleton = newSkeleton("empty element",
		appendHTML(contextCall("customElement", id("$name"), id("$attrs"), ast.Str(""))))

	elementSkeleton = newSkeleton("element",
		appendHTML(contextCall("customElement", id("$name"), id("$attrs"),
			renderer("", false, contextIdent, objectIdent),
			id(contextIdent), id(objectIdent))))
)

// newIterateSkeleton renders $body once per item of $expr, each time in a
// scope derived from the current one that exposes the item, and optionally
// its index or key, under the given names.
func newIterateSkeleton(index bool) *skeleton {
	var each = body(ast.Stmt(ast.Set(id(objectIdent),
		contextCall("rescope", id("$scope"), id("$item"), id("$value")))))
	var name = "iterate"
	if index {
		each = append(each, ast.Stmt(ast.Set(ast.Index(id(objectIdent), id("$index")), id("key"))))
		name = "iterate with index"
	}
	each = append(each, hole("$body"))

	var fn = ast.Func("", []string{"$scope", "iterable"}, append(append(
		body(locals(append(append([]string{refIdent, objectIdent}, loopLocals...), "$value")...)),
		loop("iterable", "$value", each...)...),
		ast.Ret(id(htmlIdent)))...)
	return newSkeleton(name, appendHTML(ast.CallOf(fn, id(objectIdent), id("$expr"))))
}

// Includes -------------------------------------------------------------------

var (
	// The body of an include renders in the including scope; the result is the
	// content handed to the included template.
	includeBodySkeleton = newSkeleton("include body",
		renderer("$name", true, contextIdent, objectIdent, contentIdent, filtersIdent))

	includeContentSkeleton = newSkeleton("include content",
		ast.CallOf(id("$name"), args(contextIdent, objectIdent, contentIdent, filtersIdent)...))

	includeSkeleton = newSkeleton("include",
		appendHTML(contextCall("include", id("$path"), id(objectIdent), id("$content"))))

	includeBindSkeleton = newSkeleton("include bind", ast.BlockOf(
		ast.Var(ast.Decl("$bound", id("$expr"))),
		ast.IfThen(id("$bound"),
			appendHTML(contextCall("include", id("$path"), id("$bound"), id("$content"))), nil),
	))

	includeAliasSkeleton = newSkeleton("include alias", ast.BlockOf(
		ast.Var(ast.Decl("$bound", id("$subject"))),
		ast.IfThen(id("$bound"),
			appendHTML(contextCall("include", id("$path"),
				contextCall("rescope", id(objectIdent), id("$alias"), id("$bound")),
				id("$content"))), nil),
	))

	repeatIncludeSkeleton = newSkeleton("include repeat", ast.BlockOf(
		ast.FuncDecl("$name", []string{contextIdent, "path", "iterable", contentIdent}, append(append(
			body(locals(append(append([]string{}, loopLocals...), "$value")...)),
			loop("iterable", "$value",
				appendHTML(contextCall("include", id("path"), id("$value"), id(contentIdent))))...),
			ast.Ret(id(htmlIdent)))...),
		appendHTML(ast.CallOf(id("$name"), id(contextIdent), id("$path"), id("$expr"), id("$content"))),
	))

	repeatArrayIncludeSkeleton = newSkeleton("include repeat array", ast.BlockOf(
		ast.FuncDecl("$name", []string{contextIdent, "path", "items", contentIdent},
			locals("i", "$value"),
			indexLoop("items", "$value",
				appendHTML(contextCall("include", id("path"), id("$value"), id(contentIdent)))),
			ast.Ret(id(htmlIdent))),
		appendHTML(ast.CallOf(id("$name"), id(contextIdent), id("$path"), id("$expr"), id("$content"))),
	))

	repeatObjectIncludeSkeleton = newSkeleton("include repeat object", ast.BlockOf(
		ast.FuncDecl("$name", []string{contextIdent, "path", "items", contentIdent},
			ast.Var(
				ast.Decl(htmlIdent, ast.Str("")),
				ast.Decl("keys", ast.CallOf(ast.Dot(id("Object"), "keys"), id("items"))),
				ast.Decl("i", nil),
				ast.Decl("$value", nil)),
			&ast.For{
				Init:   ast.Set(id("i"), ast.Num(0)),
				Test:   ast.Bin("<", id("i"), ast.Dot(id("keys"), "length")),
				Update: &ast.Update{Op: "++", Arg: id("i")},
				Body: ast.BlockOf(
					ast.Stmt(ast.Set(id("$value"), ast.Index(id("items"), ast.Index(id("keys"), id("i"))))),
					ast.IfThen(ast.Not(id("$value")), &ast.ContinueStmt{}, nil),
					appendHTML(contextCall("include", id("path"), id("$value"), id(contentIdent))),
				),
			},
			ast.Ret(id(htmlIdent))),
		appendHTML(ast.CallOf(id("$name"), id(contextIdent), id("$path"), id("$expr"), id("$content"))),
	))

	iterateIncludeSkeleton      = newIterateIncludeSkeleton(false)
	iterateIndexIncludeSkeleton = newIterateIncludeSkeleton(true)
)

func newIterateIncludeSkeleton(index bool) *skeleton {
	var each = body(ast.Stmt(ast.Set(id("item"),
		contextCall("rescope", id("scope"), id("$item"), id("$value")))))
	var name = "include iterate"
	if index {
		each = append(each, ast.Stmt(ast.Set(ast.Index(id("item"), id("$index")), id("key"))))
		name = "include iterate with index"
	}
	each = append(each, appendHTML(contextCall("include", id("path"), id("item"), id(contentIdent))))

	return newSkeleton(name, ast.BlockOf(
		ast.FuncDecl("$name", []string{contextIdent, "path", "scope", "iterable", contentIdent}, append(append(
			body(locals(append(append([]string{}, loopLocals...), "$value", "item")...)),
			loop("iterable", "$value", each...)...),
			ast.Ret(id(htmlIdent)))...),
		appendHTML(ast.CallOf(id("$name"),
			id(contextIdent), id("$path"), id(objectIdent), id("$expr"), id("$content"))),
	))
}
