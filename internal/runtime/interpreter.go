package runtime

import (
	"fmt"
	"io"
	"lexenv/internal/ast"
	"lexenv/internal/env"
	"lexenv/internal/prelude"
	"lexenv/internal/span"
	"lexenv/internal/token"
	"log/slog"
	"math"
	"strings"
)

// ============================================================
// Control flow signals
// ============================================================

// ExecSignal represents a control flow signal from statement execution.
type ExecSignal int

const (
	SigNone   ExecSignal = iota
	SigReturn            // return from function
)

// ExecResult carries a control flow signal and an optional value (for return).
type ExecResult struct {
	Signal ExecSignal
	Value  Value
}

var resultNone = ExecResult{Signal: SigNone}

// maxCallDepth bounds recursion so runaway programs fail with an error
// instead of exhausting the Go stack.
const maxCallDepth = 10000

// ============================================================
// Runtime error
// ============================================================

// RuntimeError represents an error during interpretation. Err holds the
// underlying env error, if any.
type RuntimeError struct {
	Message string
	Span    span.Span
	Err     error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error at %d:%d: %s", e.Span.Start.Line, e.Span.Start.Column, e.Message)
}

func (e *RuntimeError) Unwrap() error { return e.Err }

func runtimeErr(s span.Span, format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{Message: fmt.Sprintf(format, args...), Span: s}
}

func envErr(s span.Span, err error) *RuntimeError {
	return &RuntimeError{Message: err.Error(), Span: s, Err: err}
}

// ============================================================
// Interpreter
// ============================================================

// Config customizes a new Interpreter. The zero value uses the default
// prelude and logs nowhere.
type Config struct {
	Prelude *prelude.Prelude
	IDs     env.IDGenerator
	Logger  *slog.Logger
	Natives Natives // extra native implementations, merged over the built-ins
}

// Interpreter walks the AST and executes it against an env.Environment.
type Interpreter struct {
	env     *env.Environment[Value]
	natives Natives
	output  io.Writer
	depth   int
}

// NewInterpreter creates an interpreter with the prelude installed in its
// globals and a session scope opened for top-level statements.
func NewInterpreter(output io.Writer, cfg Config) *Interpreter {
	p := cfg.Prelude
	if p == nil {
		p = prelude.Default()
	}
	e := env.New[Value](cfg.IDs, env.WithLogger(cfg.Logger))
	if err := prelude.Install(e, p, constantValue); err != nil {
		panic(err) // fresh environment has no open scope
	}
	e.Push()

	natives := RegisterBuiltins(output)
	for key, fn := range cfg.Natives {
		natives[key] = fn
	}
	return &Interpreter{env: e, natives: natives, output: output}
}

func constantValue(c prelude.Constant) Value {
	switch v := c.Value.(type) {
	case int64:
		return IntVal(v)
	case float64:
		return FloatVal(v)
	case bool:
		return BoolVal(v)
	case string:
		return StringVal(v)
	}
	return UnitVal{}
}

// Env returns the interpreter's environment (useful for REPL).
func (i *Interpreter) Env() *env.Environment[Value] {
	return i.env
}

// Run hoists the file's top-level types and functions into the globals and
// executes its statements in the session scope.
func (i *Interpreter) Run(file *ast.File) error {
	i.hoist(file.Body)
	for _, stmt := range file.Body {
		switch stmt.(type) {
		case *ast.FuncDecl, *ast.TypeDecl:
			continue
		}
		result, err := i.execStmt(stmt)
		if err != nil {
			return err
		}
		if result.Signal == SigReturn {
			return runtimeErr(stmt.GetSpan(), "return outside of function")
		}
	}
	return nil
}

func (i *Interpreter) hoist(body []ast.Stmt) {
	saved := i.env.DetachStack()
	defer i.env.RestoreStack(saved)
	for _, stmt := range body {
		switch s := stmt.(type) {
		case *ast.TypeDecl:
			i.env.MapADT(s.Name, s.Constructors)
		case *ast.FuncDecl:
			i.env.MapFunction(s)
		}
	}
}

// ============================================================
// Statement execution
// ============================================================

func (i *Interpreter) execStmt(stmt ast.Stmt) (ExecResult, error) {
	switch s := stmt.(type) {
	case *ast.ExprStmt:
		_, err := i.evalExpr(s.Expr)
		return resultNone, err

	case *ast.VarDeclStmt:
		return i.execVarDecl(s)

	case *ast.AssignStmt:
		return i.execAssign(s)

	case *ast.ReturnStmt:
		var val Value = UnitVal{}
		if s.Value != nil {
			v, err := i.evalExpr(s.Value)
			if err != nil {
				return resultNone, err
			}
			val = v
		}
		return ExecResult{Signal: SigReturn, Value: val}, nil

	case *ast.IfStmt:
		return i.execIf(s)

	case *ast.WhileStmt:
		return i.execWhile(s)

	case *ast.MatchStmt:
		return i.execMatch(s)

	case *ast.BlockStmt:
		return i.execBlock(s)

	case *ast.FuncDecl:
		i.env.MapFunction(s)
		return resultNone, nil

	case *ast.TypeDecl:
		i.env.MapADT(s.Name, s.Constructors)
		return resultNone, nil

	default:
		return resultNone, runtimeErr(stmt.GetSpan(), "unhandled statement type: %T", stmt)
	}
}

func (i *Interpreter) execStmts(stmts []ast.Stmt) (ExecResult, error) {
	for _, stmt := range stmts {
		result, err := i.execStmt(stmt)
		if err != nil {
			return resultNone, err
		}
		if result.Signal != SigNone {
			return result, nil // propagate signal
		}
	}
	return resultNone, nil
}

func (i *Interpreter) execVarDecl(s *ast.VarDeclStmt) (ExecResult, error) {
	val, err := i.evalExpr(s.Init)
	if err != nil {
		return resultNone, err
	}
	if err := i.env.CreateVariable(s.Name, s.Mutable, val); err != nil {
		return resultNone, envErr(s.GetSpan(), err)
	}
	return resultNone, nil
}

func (i *Interpreter) execAssign(s *ast.AssignStmt) (ExecResult, error) {
	val, err := i.evalExpr(s.Value)
	if err != nil {
		return resultNone, err
	}
	if err := i.env.ChangeVariableValue(s.Name, val); err != nil {
		return resultNone, envErr(s.NameSpan, err)
	}
	return resultNone, nil
}

func (i *Interpreter) condition(expr ast.Expr, what string) (bool, error) {
	val, err := i.evalExpr(expr)
	if err != nil {
		return false, err
	}
	b, ok := val.(BoolVal)
	if !ok {
		return false, runtimeErr(expr.GetSpan(), "%s condition must be Bool, got %s", what, val.Type())
	}
	return bool(b), nil
}

func (i *Interpreter) execIf(s *ast.IfStmt) (ExecResult, error) {
	cond, err := i.condition(s.Condition, "if")
	if err != nil {
		return resultNone, err
	}
	if cond {
		return i.execBlock(s.Body)
	}
	if s.Else != nil {
		return i.execBlock(s.Else)
	}
	return resultNone, nil
}

func (i *Interpreter) execWhile(s *ast.WhileStmt) (ExecResult, error) {
	for {
		cond, err := i.condition(s.Condition, "while")
		if err != nil {
			return resultNone, err
		}
		if !cond {
			break
		}

		result, err := i.execBlock(s.Body)
		if err != nil {
			return resultNone, err
		}
		if result.Signal == SigReturn {
			return result, nil // propagate return
		}
	}
	return resultNone, nil
}

// execBlock runs block in a fresh scope.
func (i *Interpreter) execBlock(block *ast.BlockStmt) (ExecResult, error) {
	i.env.Push()
	defer i.env.Pop()
	return i.execStmts(block.Stmts)
}

func (i *Interpreter) execMatch(s *ast.MatchStmt) (ExecResult, error) {
	subject, err := i.evalExpr(s.Subject)
	if err != nil {
		return resultNone, err
	}
	adt, ok := subject.(*AdtVal)
	if !ok {
		return resultNone, runtimeErr(s.Subject.GetSpan(), "cannot match on a value of type %s", subject.Type())
	}

	for _, arm := range s.Arms {
		if arm.Tag != adt.Tag {
			continue
		}
		if len(arm.Binders) != len(adt.Fields) {
			return resultNone, runtimeErr(arm.Span, "pattern %s binds %d fields, value has %d", arm.Tag, len(arm.Binders), len(adt.Fields))
		}
		return i.execArm(arm, adt)
	}
	return resultNone, runtimeErr(s.GetSpan(), "no match arm for %s", adt)
}

// execArm binds the pattern variables and runs the arm body in one scope.
func (i *Interpreter) execArm(arm ast.MatchArm, adt *AdtVal) (ExecResult, error) {
	i.env.Push()
	defer i.env.Pop()
	for idx, name := range arm.Binders {
		if name == "_" {
			continue
		}
		if err := i.env.CreateVariable(name, false, adt.Fields[idx]); err != nil {
			return resultNone, envErr(arm.Span, err)
		}
	}
	return i.execStmts(arm.Body.Stmts)
}

// ============================================================
// Expression evaluation
// ============================================================

func (i *Interpreter) evalExpr(expr ast.Expr) (Value, error) {
	switch e := expr.(type) {
	case *ast.IntLiteral:
		return IntVal(e.Value), nil
	case *ast.FloatLiteral:
		return FloatVal(e.Value), nil
	case *ast.StringLiteral:
		return StringVal(e.Value), nil
	case *ast.BoolLiteral:
		return BoolVal(e.Value), nil
	case *ast.IdentExpr:
		return i.evalIdent(e)
	case *ast.UnaryExpr:
		return i.evalUnary(e)
	case *ast.BinaryExpr:
		return i.evalBinary(e)
	case *ast.CallExpr:
		return i.evalCall(e)
	case *ast.ConstructExpr:
		return i.evalConstruct(e)
	case nil:
		return nil, runtimeErr(span.Span{}, "missing expression")
	default:
		return nil, runtimeErr(expr.GetSpan(), "unhandled expression type: %T", expr)
	}
}

func (i *Interpreter) evalIdent(e *ast.IdentExpr) (Value, error) {
	r, ok := i.env.LookupVarOrFunc(e.Name)
	if !ok {
		return nil, runtimeErr(e.GetSpan(), "undefined name '%s'", e.Name)
	}
	if r.IsFunction() {
		return nil, runtimeErr(e.GetSpan(), "function '%s' cannot be used as a value", e.Name)
	}
	return r.Binding.Value, nil
}

func (i *Interpreter) evalUnary(e *ast.UnaryExpr) (Value, error) {
	operand, err := i.evalExpr(e.Operand)
	if err != nil {
		return nil, err
	}

	switch e.Op {
	case token.MINUS:
		switch v := operand.(type) {
		case IntVal:
			return -v, nil
		case FloatVal:
			return -v, nil
		}
	case token.BANG:
		if v, ok := operand.(BoolVal); ok {
			return !v, nil
		}
	}
	return nil, runtimeErr(e.GetSpan(), "operator '%s' cannot be applied to %s", e.Op, operand.Type())
}

func (i *Interpreter) evalBinary(e *ast.BinaryExpr) (Value, error) {
	if e.Op == token.AND || e.Op == token.OR {
		return i.evalLogical(e)
	}

	left, err := i.evalExpr(e.Left)
	if err != nil {
		return nil, err
	}
	right, err := i.evalExpr(e.Right)
	if err != nil {
		return nil, err
	}

	switch e.Op {
	case token.EQ:
		return BoolVal(valuesEqual(left, right)), nil
	case token.NEQ:
		return BoolVal(!valuesEqual(left, right)), nil
	}

	switch l := left.(type) {
	case IntVal:
		if r, ok := right.(IntVal); ok {
			return intOp(e, l, r)
		}
	case FloatVal:
		if r, ok := right.(FloatVal); ok {
			return floatOp(e, l, r)
		}
	case StringVal:
		if r, ok := right.(StringVal); ok {
			return stringOp(e, l, r)
		}
	}
	return nil, runtimeErr(e.GetSpan(), "operator '%s' cannot be applied to %s and %s", e.Op, left.Type(), right.Type())
}

func intOp(e *ast.BinaryExpr, l, r IntVal) (Value, error) {
	switch e.Op {
	case token.PLUS:
		return l + r, nil
	case token.MINUS:
		return l - r, nil
	case token.STAR:
		return l * r, nil
	case token.SLASH, token.PERCENT:
		if r == 0 {
			return nil, runtimeErr(e.GetSpan(), "division by zero")
		}
		if e.Op == token.SLASH {
			return l / r, nil
		}
		return l % r, nil
	case token.LT:
		return BoolVal(l < r), nil
	case token.LTE:
		return BoolVal(l <= r), nil
	case token.GT:
		return BoolVal(l > r), nil
	case token.GTE:
		return BoolVal(l >= r), nil
	}
	return nil, runtimeErr(e.GetSpan(), "operator '%s' cannot be applied to Int", e.Op)
}

func floatOp(e *ast.BinaryExpr, l, r FloatVal) (Value, error) {
	switch e.Op {
	case token.PLUS:
		return l + r, nil
	case token.MINUS:
		return l - r, nil
	case token.STAR:
		return l * r, nil
	case token.SLASH:
		return l / r, nil
	case token.PERCENT:
		return FloatVal(math.Mod(float64(l), float64(r))), nil
	case token.LT:
		return BoolVal(l < r), nil
	case token.LTE:
		return BoolVal(l <= r), nil
	case token.GT:
		return BoolVal(l > r), nil
	case token.GTE:
		return BoolVal(l >= r), nil
	}
	return nil, runtimeErr(e.GetSpan(), "operator '%s' cannot be applied to Float", e.Op)
}

func stringOp(e *ast.BinaryExpr, l, r StringVal) (Value, error) {
	switch e.Op {
	case token.PLUS:
		return l + r, nil
	case token.LT:
		return BoolVal(l < r), nil
	case token.LTE:
		return BoolVal(l <= r), nil
	case token.GT:
		return BoolVal(l > r), nil
	case token.GTE:
		return BoolVal(l >= r), nil
	}
	return nil, runtimeErr(e.GetSpan(), "operator '%s' cannot be applied to String", e.Op)
}

func (i *Interpreter) evalLogical(e *ast.BinaryExpr) (Value, error) {
	left, err := i.evalExpr(e.Left)
	if err != nil {
		return nil, err
	}
	l, ok := left.(BoolVal)
	if !ok {
		return nil, runtimeErr(e.Left.GetSpan(), "operator '%s' expects Bool, got %s", e.Op, left.Type())
	}
	if (e.Op == token.OR && bool(l)) || (e.Op == token.AND && !bool(l)) {
		return l, nil // short-circuit
	}
	right, err := i.evalExpr(e.Right)
	if err != nil {
		return nil, err
	}
	if _, ok := right.(BoolVal); !ok {
		return nil, runtimeErr(e.Right.GetSpan(), "operator '%s' expects Bool, got %s", e.Op, right.Type())
	}
	return right, nil
}

// ============================================================
// Calls
// ============================================================

func (i *Interpreter) evalCall(e *ast.CallExpr) (Value, error) {
	args := make([]Value, len(e.Args))
	for idx, argExpr := range e.Args {
		val, err := i.evalExpr(argExpr)
		if err != nil {
			return nil, err
		}
		args[idx] = val
	}

	sig := env.NewSignature(e.Callee.Name, TypesOf(args)...)
	fn, ok := i.env.LookupFunction(sig)
	if !ok {
		return nil, i.unresolvedCall(e, sig)
	}
	return i.callFunction(fn, args, e.GetSpan())
}

func (i *Interpreter) unresolvedCall(e *ast.CallExpr, sig env.Signature) error {
	r, ok := i.env.LookupVarOrFunc(sig.Name)
	switch {
	case !ok:
		return runtimeErr(e.GetSpan(), "undefined function '%s'", sig.Name)
	case !r.IsFunction():
		return runtimeErr(e.GetSpan(), "'%s' is a variable of type %s, not a function", sig.Name, r.Binding.Value.Type())
	}
	var candidates []string
	for _, fe := range i.env.AllFunctions() {
		if fe.Signature.Name == sig.Name {
			candidates = append(candidates, fe.Signature.String())
		}
	}
	return runtimeErr(e.GetSpan(), "no overload matches %s (candidates: %s)", sig, strings.Join(candidates, ", "))
}

// callFunction runs fn with only the globals and its parameters visible.
// The caller's scopes and current function are restored afterwards.
func (i *Interpreter) callFunction(fn *ast.FuncDecl, args []Value, s span.Span) (Value, error) {
	sig := env.SignatureOf(fn)
	if fn.IsNative() {
		native, ok := i.natives[sig.Key()]
		if !ok {
			return nil, runtimeErr(s, "native function %s has no implementation", sig)
		}
		val, err := native(args)
		if err != nil {
			return nil, runtimeErr(s, "%s", err)
		}
		return val, nil
	}

	if i.depth >= maxCallDepth {
		return nil, runtimeErr(s, "maximum call depth %d exceeded in %s", maxCallDepth, sig)
	}
	i.depth++

	saved := i.env.DetachStack()
	prevFn := i.env.CurrentFunction()
	defer func() {
		i.depth--
		i.env.RestoreStack(saved)
		i.env.SetCurrentFunction(prevFn)
	}()
	i.env.SetCurrentFunction(sig)

	i.env.Push()
	defer i.env.Pop()
	for idx, param := range fn.Params {
		if err := i.env.CreateVariable(param.Name, false, args[idx]); err != nil {
			return nil, envErr(param.Span, err)
		}
	}

	result, err := i.execStmts(fn.Body.Stmts)
	if err != nil {
		return nil, err
	}
	if result.Signal == SigReturn {
		return result.Value, nil
	}
	return UnitVal{}, nil
}

// ============================================================
// Constructors
// ============================================================

func (i *Interpreter) evalConstruct(e *ast.ConstructExpr) (Value, error) {
	ctors, ok := i.env.LookupADT(e.TypeName)
	if !ok {
		return nil, runtimeErr(e.GetSpan(), "unknown type '%s'", e.TypeName)
	}
	ctor, ok := ast.FindConstructor(ctors, e.Tag)
	if !ok {
		return nil, runtimeErr(e.GetSpan(), "type '%s' has no constructor '%s'", e.TypeName, e.Tag)
	}
	if len(e.Args) != len(ctor.Fields) {
		return nil, runtimeErr(e.GetSpan(), "constructor '%s.%s' takes %d arguments, got %d",
			e.TypeName, e.Tag, len(ctor.Fields), len(e.Args))
	}

	val := &AdtVal{TypeName: e.TypeName, Tag: e.Tag}
	for idx, argExpr := range e.Args {
		field, err := i.evalExpr(argExpr)
		if err != nil {
			return nil, err
		}
		if field.Type() != ctor.Fields[idx] {
			return nil, runtimeErr(argExpr.GetSpan(), "field %d of '%s.%s' expects %s, got %s",
				idx+1, e.TypeName, e.Tag, ctor.Fields[idx], field.Type())
		}
		val.Fields = append(val.Fields, field)
	}
	return val, nil
}
