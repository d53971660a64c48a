package check

import (
	"lexenv/internal/ast"
	"lexenv/internal/diag"
	"lexenv/internal/env"
	"lexenv/internal/token"
	"strings"
)

// checkExpr returns the type of expr, or the zero Type when it could not be
// determined. A zero operand never produces a second diagnostic.
func (c *Checker) checkExpr(expr ast.Expr) ast.Type {
	switch e := expr.(type) {
	case nil:
		return ast.Type{}
	case *ast.IntLiteral:
		return ast.IntType
	case *ast.FloatLiteral:
		return ast.FloatType
	case *ast.StringLiteral:
		return ast.StringType
	case *ast.BoolLiteral:
		return ast.BoolType
	case *ast.IdentExpr:
		return c.checkIdent(e)
	case *ast.UnaryExpr:
		return c.checkUnary(e)
	case *ast.BinaryExpr:
		return c.checkBinary(e)
	case *ast.CallExpr:
		return c.checkCall(e)
	case *ast.ConstructExpr:
		return c.checkConstruct(e)
	}
	return ast.Type{}
}

func (c *Checker) checkIdent(e *ast.IdentExpr) ast.Type {
	r, ok := c.env.LookupVarOrFunc(e.Name)
	if !ok {
		c.errorf(diag.UndefinedName, e.GetSpan(), "undefined name '%s'", e.Name)
		return ast.Type{}
	}
	if r.IsFunction() {
		c.errorf(diag.TypeMismatch, e.GetSpan(), "function '%s' cannot be used as a value", e.Name)
		return ast.Type{}
	}
	return r.Binding.Value
}

func (c *Checker) checkUnary(e *ast.UnaryExpr) ast.Type {
	t := c.checkExpr(e.Operand)
	if t.IsZero() {
		return t
	}
	switch e.Op {
	case token.MINUS:
		if t.IsNumeric() {
			return t
		}
	case token.BANG:
		if t == ast.BoolType {
			return t
		}
	}
	c.errorf(diag.TypeMismatch, e.GetSpan(), "operator '%s' cannot be applied to %s", e.Op, t)
	return ast.Type{}
}

func (c *Checker) checkBinary(e *ast.BinaryExpr) ast.Type {
	left := c.checkExpr(e.Left)
	right := c.checkExpr(e.Right)

	var result ast.Type
	switch e.Op {
	case token.AND, token.OR:
		result = ast.BoolType
		if left.IsZero() || right.IsZero() || (left == ast.BoolType && right == ast.BoolType) {
			return result
		}
	case token.EQ, token.NEQ:
		result = ast.BoolType
		if left.IsZero() || right.IsZero() || left == right {
			return result
		}
	case token.LT, token.LTE, token.GT, token.GTE:
		result = ast.BoolType
		if left.IsZero() || right.IsZero() || (left == right && (left.IsNumeric() || left == ast.StringType)) {
			return result
		}
	case token.PLUS:
		if left.IsZero() || right.IsZero() {
			return ast.Type{}
		}
		if left == right && (left.IsNumeric() || left == ast.StringType) {
			return left
		}
	default: // - * / %
		if left.IsZero() || right.IsZero() {
			return ast.Type{}
		}
		if left == right && left.IsNumeric() {
			return left
		}
	}
	c.errorf(diag.TypeMismatch, e.GetSpan(), "operator '%s' cannot be applied to %s and %s", e.Op, left, right)
	return result
}

func (c *Checker) checkCall(e *ast.CallExpr) ast.Type {
	name := e.Callee.Name
	args := make([]ast.Type, len(e.Args))
	unresolved := false
	for i, arg := range e.Args {
		args[i] = c.checkExpr(arg)
		unresolved = unresolved || args[i].IsZero()
	}

	if !unresolved {
		if fn, ok := c.env.LookupFunction(env.NewSignature(name, args...)); ok {
			return fn.Result
		}
	}

	r, ok := c.env.LookupVarOrFunc(name)
	switch {
	case !ok:
		c.errorf(diag.UndefinedName, e.Callee.GetSpan(), "undefined function '%s'", name)
	case !r.IsFunction():
		c.errorf(diag.NotAFunction, e.Callee.GetSpan(), "'%s' is a variable of type %s, not a function", name, r.Binding.Value)
	case unresolved:
		// An argument already failed; guess the result from any overload.
		if fn, ok := c.env.LookupFunctionByName(name); ok {
			return fn.Result
		}
	default:
		d := diag.Errorf(diag.NoMatchingOverload, e.GetSpan(), "no overload of '%s' accepts (%s)", name, ast.TypeList(args))
		if candidates := c.overloads(name); len(candidates) > 0 {
			d = d.WithHint("candidates: " + strings.Join(candidates, ", "))
		}
		c.diags = append(c.diags, d)
	}
	return ast.Type{}
}

// overloads lists the visible signatures named name.
func (c *Checker) overloads(name string) []string {
	var out []string
	for _, fe := range c.env.AllFunctions() {
		if fe.Signature.Name == name {
			out = append(out, fe.Signature.String())
		}
	}
	return out
}

func (c *Checker) checkConstruct(e *ast.ConstructExpr) ast.Type {
	args := make([]ast.Type, len(e.Args))
	for i, arg := range e.Args {
		args[i] = c.checkExpr(arg)
	}

	ctors, ok := c.env.LookupADT(e.TypeName)
	if !ok {
		c.errorf(diag.UnknownConstructor, e.GetSpan(), "unknown type '%s'", e.TypeName)
		return ast.Type{}
	}
	adt := ast.Named(e.TypeName)
	ctor, ok := ast.FindConstructor(ctors, e.Tag)
	if !ok {
		c.errorf(diag.UnknownConstructor, e.GetSpan(), "type '%s' has no constructor '%s'", e.TypeName, e.Tag)
		return adt
	}
	if len(args) != len(ctor.Fields) {
		c.errorf(diag.ArityMismatch, e.GetSpan(), "constructor '%s.%s' takes %d arguments, got %d", e.TypeName, e.Tag, len(ctor.Fields), len(args))
		return adt
	}
	for i, want := range ctor.Fields {
		if !args[i].IsZero() && args[i] != want {
			c.errorf(diag.TypeMismatch, e.Args[i].GetSpan(), "field %d of '%s.%s' expects %s, got %s", i+1, e.TypeName, e.Tag, want, args[i])
		}
	}
	return adt
}
