// Package check resolves names and types of a parsed program against an
// env.Environment whose bindings are ast.Type values.
package check

import (
	"errors"
	"lexenv/internal/ast"
	"lexenv/internal/diag"
	"lexenv/internal/env"
	"lexenv/internal/prelude"
	"lexenv/internal/span"
	"strings"
)

// Checker keeps one environment across calls to Check, so a REPL can feed it
// one input at a time. Top-level statements run in a session scope pushed
// above the globals.
type Checker struct {
	env   *env.Environment[ast.Type]
	diags []diag.Diagnostic

	result ast.Type // declared result of the function being checked
	inFunc bool
}

// New creates a checker whose globals hold the prelude p.
func New(ids env.IDGenerator, p *prelude.Prelude, opts ...env.Option) *Checker {
	e := env.New[ast.Type](ids, opts...)
	if err := prelude.Install(e, p, func(c prelude.Constant) ast.Type { return c.Type }); err != nil {
		panic(err) // fresh environment has no open scope
	}
	e.Push()
	return &Checker{env: e}
}

// CheckFile checks a whole program with a fresh checker.
func CheckFile(file *ast.File, p *prelude.Prelude, opts ...env.Option) []diag.Diagnostic {
	return New(nil, p, opts...).Check(file)
}

// Env exposes the checker's environment, e.g. for printing scopes.
func (c *Checker) Env() *env.Environment[ast.Type] { return c.env }

// Check hoists top-level types and functions into the globals, then checks
// every statement. It returns the diagnostics of this call, sorted by position.
func (c *Checker) Check(file *ast.File) []diag.Diagnostic {
	c.diags = nil
	c.hoist(file.Body)
	for _, stmt := range file.Body {
		switch s := stmt.(type) {
		case *ast.TypeDecl:
			// hoisted
		case *ast.FuncDecl:
			c.checkFuncBody(s)
		default:
			c.checkStmt(s)
		}
	}
	diag.Sort(c.diags)
	return c.diags
}

func (c *Checker) errorf(code string, s span.Span, format string, args ...interface{}) {
	c.diags = append(c.diags, diag.Errorf(code, s, format, args...))
}

func (c *Checker) warnf(code string, s span.Span, format string, args ...interface{}) {
	c.diags = append(c.diags, diag.Warningf(code, s, format, args...))
}

// hoist registers top-level declarations in the globals so that they are
// visible to every statement regardless of order. Types go first because
// function signatures refer to them.
func (c *Checker) hoist(body []ast.Stmt) {
	saved := c.env.DetachStack()
	defer c.env.RestoreStack(saved)

	for _, stmt := range body {
		if td, ok := stmt.(*ast.TypeDecl); ok {
			c.declareType(td)
		}
	}
	for _, stmt := range body {
		if td, ok := stmt.(*ast.TypeDecl); ok {
			c.validateConstructors(td)
		}
	}
	for _, stmt := range body {
		if fn, ok := stmt.(*ast.FuncDecl); ok {
			c.declareFunc(fn)
		}
	}
}

func (c *Checker) declareType(td *ast.TypeDecl) {
	if ast.Named(td.Name).IsPrimitive() {
		c.errorf(diag.InvalidTypeDecl, td.GetSpan(), "cannot redefine built-in type '%s'", td.Name)
		return
	}
	if _, exists := c.env.CurrentScope().LookupADT(td.Name); exists {
		c.warnf(diag.Redefinition, td.GetSpan(), "type '%s' redefined in the same scope", td.Name)
	}
	seen := make(map[string]bool)
	for _, ctor := range td.Constructors {
		if seen[ctor.Name] {
			c.errorf(diag.InvalidTypeDecl, ctor.Span, "constructor '%s' declared twice in type '%s'", ctor.Name, td.Name)
		}
		seen[ctor.Name] = true
	}
	c.env.MapADT(td.Name, td.Constructors)
}

func (c *Checker) validateConstructors(td *ast.TypeDecl) {
	for _, ctor := range td.Constructors {
		for _, f := range ctor.Fields {
			c.requireKnownType(f, ctor.Span)
		}
	}
}

func (c *Checker) declareFunc(fn *ast.FuncDecl) {
	for _, p := range fn.Params {
		c.requireKnownType(p.Type, p.Span)
	}
	c.requireKnownType(fn.Result, fn.GetSpan())

	sig := env.SignatureOf(fn)
	if prev, exists := c.env.CurrentScope().LookupFunction(sig); exists {
		what := "function"
		if prev.IsNative() {
			what = "built-in function"
		}
		c.warnf(diag.Redefinition, fn.GetSpan(), "%s '%s' redefined in the same scope", what, sig)
	}
	c.env.MapFunction(fn)
}

// knownType reports whether t names a built-in or a visible ADT.
func (c *Checker) knownType(t ast.Type) bool {
	if t.IsPrimitive() {
		return true
	}
	_, ok := c.env.LookupADT(t.Name)
	return ok
}

func (c *Checker) requireKnownType(t ast.Type, s span.Span) bool {
	if t.IsZero() || c.knownType(t) {
		return true
	}
	c.errorf(diag.UnknownType, s, "unknown type '%s'", t)
	return false
}

// ============================================================
// Statements
// ============================================================

func (c *Checker) checkStmts(stmts []ast.Stmt) {
	for _, stmt := range stmts {
		c.checkStmt(stmt)
	}
}

func (c *Checker) checkStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.ExprStmt:
		c.checkExpr(s.Expr)
	case *ast.VarDeclStmt:
		c.checkVarDecl(s)
	case *ast.AssignStmt:
		c.checkAssign(s)
	case *ast.ReturnStmt:
		c.checkReturn(s)
	case *ast.BlockStmt:
		c.checkBlock(s)
	case *ast.IfStmt:
		c.requireBool(s.Condition, "if")
		c.checkBlock(s.Body)
		if s.Else != nil {
			c.checkBlock(s.Else)
		}
	case *ast.WhileStmt:
		c.requireBool(s.Condition, "while")
		c.checkBlock(s.Body)
	case *ast.MatchStmt:
		c.checkMatch(s)
	case *ast.TypeDecl:
		c.declareType(s)
		c.validateConstructors(s)
	case *ast.FuncDecl:
		c.declareFunc(s)
		c.checkFuncBody(s)
	}
}

func (c *Checker) checkBlock(b *ast.BlockStmt) {
	c.env.Push()
	defer c.env.Pop()
	c.checkStmts(b.Stmts)
}

func (c *Checker) checkVarDecl(s *ast.VarDeclStmt) {
	declared := c.checkExpr(s.Init)
	if !s.Type.IsZero() {
		if c.requireKnownType(s.Type, s.TypeSpan) && !declared.IsZero() && declared != s.Type {
			c.errorf(diag.TypeMismatch, s.Init.GetSpan(), "cannot initialize '%s' of type %s with a value of type %s", s.Name, s.Type, declared)
		}
		declared = s.Type
	}
	if err := c.env.CreateVariable(s.Name, s.Mutable, declared); err != nil {
		c.reportEnvError(err, s.GetSpan())
	}
}

func (c *Checker) checkAssign(s *ast.AssignStmt) {
	valueType := c.checkExpr(s.Value)
	binding, visible := c.env.Lookup(s.Name)
	target := valueType
	if visible {
		target = binding.Value
	}
	if err := c.env.ChangeVariableValue(s.Name, target); err != nil {
		d := c.envDiagnostic(err, s.NameSpan)
		if errors.Is(err, env.ErrUndeclaredVariable) && visible {
			d = d.WithHint("globals cannot be reassigned; declare a local with var")
		}
		c.diags = append(c.diags, d)
		return
	}
	if !valueType.IsZero() && !target.IsZero() && valueType != target {
		c.errorf(diag.TypeMismatch, s.Value.GetSpan(), "cannot assign a value of type %s to '%s' of type %s", valueType, s.Name, target)
	}
}

func (c *Checker) checkReturn(s *ast.ReturnStmt) {
	got := ast.UnitType
	if s.Value != nil {
		got = c.checkExpr(s.Value)
	}
	if !c.inFunc {
		c.errorf(diag.MisplacedReturn, s.GetSpan(), "return outside of a function")
		return
	}
	if !got.IsZero() && got != c.result {
		c.errorf(diag.TypeMismatch, s.GetSpan(), "function '%s' returns %s, not %s", c.env.CurrentFunction(), c.result, got)
	}
}

func (c *Checker) requireBool(cond ast.Expr, what string) {
	if t := c.checkExpr(cond); !t.IsZero() && t != ast.BoolType {
		c.errorf(diag.TypeMismatch, cond.GetSpan(), "%s condition must be Bool, got %s", what, t)
	}
}

// checkFuncBody checks fn with only the globals and its parameters visible.
func (c *Checker) checkFuncBody(fn *ast.FuncDecl) {
	saved := c.env.DetachStack()
	prevFn := c.env.CurrentFunction()
	prevResult, prevIn := c.result, c.inFunc
	defer func() {
		c.env.RestoreStack(saved)
		c.env.SetCurrentFunction(prevFn)
		c.result, c.inFunc = prevResult, prevIn
	}()

	c.env.SetCurrentFunction(env.SignatureOf(fn))
	c.result, c.inFunc = fn.Result, true

	c.env.Push()
	defer c.env.Pop()
	for _, p := range fn.Params {
		if err := c.env.CreateVariable(p.Name, false, p.Type); err != nil {
			c.reportEnvError(err, p.Span)
		}
	}
	c.checkStmts(fn.Body.Stmts)

	if fn.Result != ast.UnitType && !alwaysReturns(fn.Body.Stmts) {
		c.errorf(diag.MissingReturn, fn.GetSpan(), "function '%s' must return a value of type %s on every path", env.SignatureOf(fn), fn.Result)
	}
}

func (c *Checker) checkMatch(s *ast.MatchStmt) {
	subject := c.checkExpr(s.Subject)
	var ctors []ast.Constructor
	known := false
	if !subject.IsZero() {
		ctors, known = c.env.LookupADT(subject.Name)
		if !known {
			c.errorf(diag.TypeMismatch, s.Subject.GetSpan(), "cannot match on a value of type %s", subject)
		}
	}

	covered := make(map[string]bool)
	for _, arm := range s.Arms {
		var fields []ast.Type
		if known {
			ctor, ok := ast.FindConstructor(ctors, arm.Tag)
			switch {
			case !ok:
				c.errorf(diag.UnknownConstructor, arm.Span, "type '%s' has no constructor '%s'", subject, arm.Tag)
			case len(arm.Binders) != len(ctor.Fields):
				c.errorf(diag.ArityMismatch, arm.Span, "constructor '%s' has %d fields, pattern binds %d", arm.Tag, len(ctor.Fields), len(arm.Binders))
			default:
				fields = ctor.Fields
			}
			covered[arm.Tag] = true
		}
		c.checkArm(arm, fields)
	}

	if known {
		var missing []string
		for _, ctor := range ctors {
			if !covered[ctor.Name] {
				missing = append(missing, ctor.Name)
			}
		}
		if len(missing) > 0 {
			c.warnf(diag.NonExhaustiveMatch, s.GetSpan(), "match on %s does not cover: %s", subject, strings.Join(missing, ", "))
		}
	}
}

// checkArm binds the pattern variables and the arm body in one scope.
// fields is nil when the pattern could not be resolved.
func (c *Checker) checkArm(arm ast.MatchArm, fields []ast.Type) {
	c.env.Push()
	defer c.env.Pop()
	for i, name := range arm.Binders {
		if name == "_" {
			continue
		}
		var t ast.Type
		if i < len(fields) {
			t = fields[i]
		}
		if err := c.env.CreateVariable(name, false, t); err != nil {
			c.reportEnvError(err, arm.Span)
		}
	}
	c.checkStmts(arm.Body.Stmts)
}

// ============================================================
// Environment errors
// ============================================================

func (c *Checker) envDiagnostic(err error, s span.Span) diag.Diagnostic {
	var (
		dup *env.DuplicateDeclarationError
		imm *env.ImmutableAssignmentError
		und *env.UndeclaredVariableError
	)
	switch {
	case errors.As(err, &dup):
		return diag.Errorf(diag.DuplicateDeclaration, s, "%s", dup)
	case errors.As(err, &imm):
		return diag.Errorf(diag.ImmutableAssignment, s, "%s", imm).WithHint("declare it with var to allow assignment")
	case errors.As(err, &und):
		return diag.Errorf(diag.UndeclaredVariable, s, "%s", und)
	}
	return diag.Errorf(diag.UndefinedName, s, "%s", err)
}

func (c *Checker) reportEnvError(err error, s span.Span) {
	c.diags = append(c.diags, c.envDiagnostic(err, s))
}

// alwaysReturns reports whether every path through stmts ends in a return.
func alwaysReturns(stmts []ast.Stmt) bool {
	if len(stmts) == 0 {
		return false
	}
	switch s := stmts[len(stmts)-1].(type) {
	case *ast.ReturnStmt:
		return true
	case *ast.BlockStmt:
		return alwaysReturns(s.Stmts)
	case *ast.IfStmt:
		return s.Else != nil && alwaysReturns(s.Body.Stmts) && alwaysReturns(s.Else.Stmts)
	case *ast.MatchStmt:
		if len(s.Arms) == 0 {
			return false
		}
		for _, arm := range s.Arms {
			if !alwaysReturns(arm.Body.Stmts) {
				return false
			}
		}
		return true
	}
	return false
}
