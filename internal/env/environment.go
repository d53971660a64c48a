// Package env implements the lexical environment shared by the checker and
// the interpreter: a global scope plus a stack of block scopes, with
// overloaded function lookup by signature.
//
// The environment is generic over the value it binds to names. The checker
// instantiates it with ast.Type and the interpreter with runtime.Value.
// It is not safe for concurrent use.
package env

import (
	"lexenv/internal/ast"
	"log/slog"
)

// Environment holds the globals scope and the stack of block scopes. The last
// element of the stack is the innermost scope.
type Environment[A any] struct {
	id      int
	current Signature
	globals *Scope[A]
	stack   []*Scope[A]
	log     *slog.Logger
}

// New creates an environment with empty globals and an empty stack. The id is
// drawn from ids; a nil generator yields id 0.
func New[A any](ids IDGenerator, opts ...Option) *Environment[A] {
	o := buildOptions(opts)
	id := 0
	if ids != nil {
		id = ids.NextID()
	}
	e := &Environment[A]{
		id:      id,
		globals: NewScope[A](),
		log:     o.logger.With(slog.String("channel", "env"), slog.Int("env", id)),
	}
	e.log.Debug("new environment")
	return e
}

// ID returns the identifier assigned at construction.
func (e *Environment[A]) ID() int { return e.id }

// Depth returns the number of block scopes on the stack.
func (e *Environment[A]) Depth() int { return len(e.stack) }

// InScope reports whether at least one block scope is active.
func (e *Environment[A]) InScope() bool { return len(e.stack) > 0 }

// Globals returns the globals scope.
func (e *Environment[A]) Globals() *Scope[A] { return e.globals }

// CurrentScope returns the innermost block scope, or globals when the stack
// is empty. All declarations go here.
func (e *Environment[A]) CurrentScope() *Scope[A] {
	if len(e.stack) == 0 {
		return e.globals
	}
	return e.stack[len(e.stack)-1]
}

// Scopes returns the open block scopes, outermost first.
func (e *Environment[A]) Scopes() []*Scope[A] {
	return append([]*Scope[A](nil), e.stack...)
}

// Push opens a new empty innermost scope.
func (e *Environment[A]) Push() {
	e.stack = append(e.stack, NewScope[A]())
	e.log.Debug("push scope", slog.Int("depth", len(e.stack)))
}

// Pop discards the innermost scope and everything declared in it. Popping
// with no active block scope is a bracket error in the caller and panics.
func (e *Environment[A]) Pop() {
	if len(e.stack) == 0 {
		panic("env: pop on empty scope stack")
	}
	top := e.stack[len(e.stack)-1]
	e.stack[len(e.stack)-1] = nil
	e.stack = e.stack[:len(e.stack)-1]
	e.log.Debug("pop scope", slog.Int("depth", len(e.stack)), slog.Int("discarded", top.Len()))
}

// DetachStack removes every block scope and returns them, leaving only the
// globals visible. Function calls use it so a body cannot see its caller's
// locals. Hand the result back to RestoreStack afterwards.
func (e *Environment[A]) DetachStack() []*Scope[A] {
	saved := e.stack
	e.stack = nil
	e.log.Debug("detach stack", slog.Int("saved", len(saved)))
	return saved
}

// RestoreStack replaces the block stack with scopes, typically the value
// previously returned by DetachStack.
func (e *Environment[A]) RestoreStack(scopes []*Scope[A]) {
	e.stack = scopes
	e.log.Debug("restore stack", slog.Int("depth", len(scopes)))
}

// Snapshot is a detached copy of an environment's scopes and current
// function, taken by Environment.Snapshot.
type Snapshot[A any] struct {
	current Signature
	globals *Scope[A]
	stack   []*Scope[A]
}

// Snapshot copies the globals, every block scope and the current function.
// Later changes to e do not affect the snapshot.
func (e *Environment[A]) Snapshot() Snapshot[A] {
	snap := Snapshot[A]{current: e.CurrentFunction(), globals: e.globals.clone()}
	for _, s := range e.stack {
		snap.stack = append(snap.stack, s.clone())
	}
	return snap
}

// Restore puts e back into the state captured by snap. The snapshot stays
// valid and can be restored again.
func (e *Environment[A]) Restore(snap Snapshot[A]) {
	e.current = NewSignature(snap.current.Name, snap.current.Params...)
	e.globals = snap.globals.clone()
	e.stack = nil
	for _, s := range snap.stack {
		e.stack = append(e.stack, s.clone())
	}
	e.log.Debug("restore snapshot", slog.Int("depth", len(e.stack)))
}

// CreateVariable declares name in the current scope. Shadowing an outer
// declaration is allowed, redeclaring within the same scope is not.
func (e *Environment[A]) CreateVariable(name string, mutable bool, value A) error {
	scope := e.CurrentScope()
	if scope.HasVariable(name) {
		e.log.Debug("duplicate declaration", slog.String("name", name), slog.String("function", e.current.String()))
		return &DuplicateDeclarationError{Name: name, Function: e.CurrentFunction()}
	}
	scope.DeclareVariable(name, mutable, value)
	e.log.Debug("create variable", slog.String("name", name), slog.Bool("mutable", mutable), slog.Int("depth", len(e.stack)))
	return nil
}

// ChangeVariableValue assigns to the innermost block-scope binding of name.
// Globals are never searched, so they cannot be reassigned.
func (e *Environment[A]) ChangeVariableValue(name string, value A) error {
	for i := len(e.stack) - 1; i >= 0; i-- {
		scope := e.stack[i]
		b, ok := scope.vars.get(name)
		if !ok {
			continue
		}
		if !b.Mutable {
			e.log.Debug("assignment rejected", slog.String("name", name), slog.String("reason", "immutable"))
			return &ImmutableAssignmentError{Name: name}
		}
		scope.DeclareVariable(name, true, value)
		e.log.Debug("change variable", slog.String("name", name), slog.Int("depth", i+1))
		return nil
	}
	e.log.Debug("assignment rejected", slog.String("name", name), slog.String("reason", "undeclared"))
	return &UndeclaredVariableError{Name: name, Function: e.CurrentFunction()}
}

// MapVariable inserts or overwrites a binding in the current scope without
// any duplicate or mutability checks.
func (e *Environment[A]) MapVariable(name string, mutable bool, value A) {
	e.CurrentScope().DeclareVariable(name, mutable, value)
}

// MapFunction registers fn in the current scope under its own signature,
// replacing any function with an equal signature there.
func (e *Environment[A]) MapFunction(fn *ast.FuncDecl) {
	sig := SignatureOf(fn)
	e.CurrentScope().DeclareFunction(sig, fn)
	e.log.Debug("map function", slog.String("signature", sig.String()), slog.Int("depth", len(e.stack)))
}

// MapADT registers a type's constructors in the current scope.
func (e *Environment[A]) MapADT(name string, ctors []ast.Constructor) {
	e.CurrentScope().DeclareADT(name, ctors)
	e.log.Debug("map adt", slog.String("name", name), slog.Int("constructors", len(ctors)))
}

// scopes yields every scope from innermost to outermost, ending with globals.
func (e *Environment[A]) scopes(fn func(*Scope[A]) bool) {
	for i := len(e.stack) - 1; i >= 0; i-- {
		if !fn(e.stack[i]) {
			return
		}
	}
	fn(e.globals)
}

// Lookup resolves a variable, innermost scope first.
func (e *Environment[A]) Lookup(name string) (Binding[A], bool) {
	var (
		out   Binding[A]
		found bool
	)
	e.scopes(func(s *Scope[A]) bool {
		out, found = s.LookupVariable(name)
		return !found
	})
	return out, found
}

// LookupFunction resolves a function by exact signature, innermost scope first.
func (e *Environment[A]) LookupFunction(sig Signature) (*ast.FuncDecl, bool) {
	var (
		out   *ast.FuncDecl
		found bool
	)
	e.scopes(func(s *Scope[A]) bool {
		out, found = s.LookupFunction(sig)
		return !found
	})
	return out, found
}

// LookupFunctionByName resolves any function called name. Within a scope the
// earliest declared overload wins.
func (e *Environment[A]) LookupFunctionByName(name string) (*ast.FuncDecl, bool) {
	var (
		out   *ast.FuncDecl
		found bool
	)
	e.scopes(func(s *Scope[A]) bool {
		out, found = s.LookupFunctionByName(name)
		return !found
	})
	return out, found
}

// VarOrFunc is the result of LookupVarOrFunc. Function is non-nil when the
// name resolved to a function; otherwise Binding holds the variable.
type VarOrFunc[A any] struct {
	Binding  Binding[A]
	Function *ast.FuncDecl
}

// IsFunction reports whether the name resolved to a function.
func (r VarOrFunc[A]) IsFunction() bool { return r.Function != nil }

// LookupVarOrFunc resolves name as a variable or a function. At each level a
// variable takes precedence over a function of the same name, and an inner
// function hides an outer variable.
func (e *Environment[A]) LookupVarOrFunc(name string) (VarOrFunc[A], bool) {
	var (
		out   VarOrFunc[A]
		found bool
	)
	e.scopes(func(s *Scope[A]) bool {
		if b, ok := s.LookupVariable(name); ok {
			out, found = VarOrFunc[A]{Binding: b}, true
			return false
		}
		if fn, ok := s.LookupFunctionByName(name); ok {
			out, found = VarOrFunc[A]{Function: fn}, true
			return false
		}
		return true
	})
	return out, found
}

// LookupADT resolves a type's constructors, innermost scope first.
func (e *Environment[A]) LookupADT(name string) ([]ast.Constructor, bool) {
	var (
		out   []ast.Constructor
		found bool
	)
	e.scopes(func(s *Scope[A]) bool {
		out, found = s.LookupADT(name)
		return !found
	})
	return out, found
}

// AllVariables lists every visible variable, innermost scope first. A name
// appears once, with the binding that Lookup would return.
func (e *Environment[A]) AllVariables() []NamedBinding[A] {
	var out []NamedBinding[A]
	seen := make(map[string]bool)
	e.scopes(func(s *Scope[A]) bool {
		for _, nb := range s.Variables() {
			if seen[nb.Name] {
				continue
			}
			seen[nb.Name] = true
			out = append(out, nb)
		}
		return true
	})
	return out
}

// AllFunctions lists every visible function. Globals come first, then each
// block scope from outermost to innermost; an inner scope's entry replaces
// an outer one with the same signature in place.
func (e *Environment[A]) AllFunctions() []FunctionEntry {
	var out []FunctionEntry
	index := make(map[string]int)
	overlay := func(s *Scope[A]) {
		for _, fe := range s.Functions() {
			key := fe.Signature.Key()
			if i, ok := index[key]; ok {
				out[i] = fe
				continue
			}
			index[key] = len(out)
			out = append(out, fe)
		}
	}
	overlay(e.globals)
	for _, s := range e.stack {
		overlay(s)
	}
	return out
}

// CurrentFunction returns the signature of the function being processed, or
// the zero Signature at top level.
func (e *Environment[A]) CurrentFunction() Signature {
	return NewSignature(e.current.Name, e.current.Params...)
}

// SetCurrentFunction records the function being processed. Pass the zero
// Signature to return to top level.
func (e *Environment[A]) SetCurrentFunction(sig Signature) {
	e.current = NewSignature(sig.Name, sig.Params...)
	e.log.Debug("enter function", slog.String("function", e.current.String()))
}
