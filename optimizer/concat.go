package optimizer

import (
	"math"
	"strconv"

	"github.com/robfig/htmling/ast"
)

// appendTarget returns the variable stmt appends to with +=, and the
// appended value.
func appendTarget(stmt ast.Node) (string, ast.Node) {
	es, ok := stmt.(*ast.ExprStmt)
	if !ok {
		return "", nil
	}
	assign, ok := es.Expr.(*ast.Assign)
	if !ok || assign.Op != "+=" {
		return "", nil
	}
	target, ok := assign.Left.(*ast.Identifier)
	if !ok {
		return "", nil
	}
	return target.Name, assign.Right
}

// concat joins a and b with +, as string concatenation.
func concat(a, b ast.Node) ast.Node {
	if !stringValued(a) && !stringValued(b) {
		a = ast.Bin("+", ast.Str(""), a)
	}
	return ast.Bin("+", a, b)
}

// fuseOutputs merges consecutive appends to the same variable into one.
func fuseOutputs(o *optimizer) bool {
	var changed bool
	ast.Bodies(o.prog, func(body *[]ast.Node) {
		var fused []ast.Node
		var last *ast.Assign
		for _, stmt := range *body {
			var target, value = appendTarget(stmt)
			if last != nil && target != "" && ast.IsIdent(last.Left, target) && references(value, target) == 0 {
				last.Right = concat(last.Right, value)
				changed = true
				continue
			}
			last = nil
			if target != "" && references(value, target) == 0 {
				last = stmt.(*ast.ExprStmt).Expr.(*ast.Assign)
			}
			fused = append(fused, stmt)
		}
		*body = fused
	})
	return changed
}

// foldLiterals joins adjacent literals in concatenations:
//   "a" + "b"        => "ab"
//   (x + "a") + "b"  => x + "ab"
//   "a" + ("b" + x)  => "ab" + x
// Non-string literals are folded only next to a string, and only when their
// string form is known.
func foldLiterals(o *optimizer) bool {
	var changed bool
	o.prog.Body = ast.Rewrite(o.prog, func(n ast.Node) (ast.Node, ast.Visit) {
		bin, ok := n.(*ast.Binary)
		if !ok || bin.Op != "+" {
			return n, ast.Continue
		}
		if folded := fold(bin); folded != nil {
			changed = true
			return folded, ast.Continue
		}
		return n, ast.Continue
	}).(*ast.Program).Body
	return changed
}

func fold(bin *ast.Binary) ast.Node {
	var left, _ = bin.Left.(*ast.Literal)
	var right, _ = bin.Right.(*ast.Literal)
	switch {
	case left != nil && right != nil:
		if left.IsString() || right.IsString() {
			if s, ok := joinLiterals(left, right); ok {
				return &ast.Literal{Pos: bin.Pos, Value: s}
			}
		}
	case right != nil:
		// (x + "a") + lit
		if inner, ok := bin.Left.(*ast.Binary); ok && inner.Op == "+" {
			if lit, ok := inner.Right.(*ast.Literal); ok && lit.IsString() {
				if s, ok := joinLiterals(lit, right); ok {
					return &ast.Binary{Pos: bin.Pos, Op: "+", Left: inner.Left, Right: ast.Str(s)}
				}
			}
		}
	case left != nil:
		// lit + ("b" + x)
		if inner, ok := bin.Right.(*ast.Binary); ok && inner.Op == "+" {
			if lit, ok := inner.Left.(*ast.Literal); ok && lit.IsString() {
				if s, ok := joinLiterals(left, lit); ok {
					return &ast.Binary{Pos: bin.Pos, Op: "+", Left: ast.Str(s), Right: inner.Right}
				}
			}
		}
	}
	return nil
}

func joinLiterals(a, b *ast.Literal) (string, bool) {
	sa, ok := toString(a)
	if !ok {
		return "", false
	}
	sb, ok := toString(b)
	if !ok {
		return "", false
	}
	return sa + sb, true
}

// maxSafeInteger is the largest integer a float64 represents exactly, along
// with all smaller ones.
const maxSafeInteger = 1<<53 - 1

// toString returns the string a literal converts to when concatenated.
func toString(lit *ast.Literal) (string, bool) {
	switch v := lit.Value.(type) {
	case nil:
		return "null", true
	case string:
		return v, true
	case bool:
		return strconv.FormatBool(v), true
	case float64:
		switch {
		case math.IsNaN(v) || math.IsInf(v, 0):
			return "", false
		case v == math.Trunc(v) && math.Abs(v) <= maxSafeInteger:
			return strconv.FormatInt(int64(v), 10), true
		case math.Abs(v) >= 1e-6 && math.Abs(v) < 1e21:
			return strconv.FormatFloat(v, 'f', -1, 64), true
		}
	}
	return "", false
}
