package env

import "lexenv/internal/ast"

// Binding is a variable's mutability flag and current value.
type Binding[A any] struct {
	Mutable bool
	Value   A
}

// NamedBinding pairs a variable name with its binding.
type NamedBinding[A any] struct {
	Name string
	Binding[A]
}

// FunctionEntry pairs a signature with the declaration registered under it.
type FunctionEntry struct {
	Signature Signature
	Function  *ast.FuncDecl
}

// ADTEntry pairs an algebraic data type name with its constructors.
type ADTEntry struct {
	Name         string
	Constructors []ast.Constructor
}

// Cloner is implemented by values that must be deep-copied whenever they are
// stored in or read out of a scope.
type Cloner[A any] interface {
	Clone() A
}

func cloneValue[A any](v A) A {
	if c, ok := any(v).(Cloner[A]); ok {
		return c.Clone()
	}
	return v
}

// table is a map that remembers first-insertion order. Replacing an entry
// keeps its first position.
type table[V any] struct {
	items map[string]V
	keys  []string
}

func (t *table[V]) put(key string, v V) {
	if t.items == nil {
		t.items = make(map[string]V)
	}
	if _, exists := t.items[key]; !exists {
		t.keys = append(t.keys, key)
	}
	t.items[key] = v
}

func (t *table[V]) get(key string) (V, bool) {
	v, ok := t.items[key]
	return v, ok
}

func (t *table[V]) each(fn func(key string, v V) bool) {
	for _, k := range t.keys {
		if !fn(k, t.items[k]) {
			return
		}
	}
}

// Scope is one level of the environment: the variables, functions and
// algebraic data types declared at that level.
type Scope[A any] struct {
	vars  table[Binding[A]]
	funcs table[FunctionEntry]
	adts  table[[]ast.Constructor]
}

// NewScope returns an empty scope.
func NewScope[A any]() *Scope[A] {
	return &Scope[A]{}
}

// DeclareVariable inserts or replaces a variable binding in this scope.
func (s *Scope[A]) DeclareVariable(name string, mutable bool, value A) {
	s.vars.put(name, Binding[A]{Mutable: mutable, Value: cloneValue(value)})
}

// DeclareFunction inserts or replaces the function registered under sig.
func (s *Scope[A]) DeclareFunction(sig Signature, fn *ast.FuncDecl) {
	s.funcs.put(sig.Key(), FunctionEntry{Signature: NewSignature(sig.Name, sig.Params...), Function: fn})
}

// DeclareADT inserts or replaces a type's constructor list.
func (s *Scope[A]) DeclareADT(name string, ctors []ast.Constructor) {
	s.adts.put(name, copyConstructors(ctors))
}

// copyConstructors copies the list and each constructor's field types.
func copyConstructors(ctors []ast.Constructor) []ast.Constructor {
	out := make([]ast.Constructor, len(ctors))
	for i, c := range ctors {
		c.Fields = append([]ast.Type(nil), c.Fields...)
		out[i] = c
	}
	return out
}

// LookupVariable returns the binding declared under name in this scope only.
func (s *Scope[A]) LookupVariable(name string) (Binding[A], bool) {
	b, ok := s.vars.get(name)
	if ok {
		b.Value = cloneValue(b.Value)
	}
	return b, ok
}

// HasVariable reports whether name is declared in this scope.
func (s *Scope[A]) HasVariable(name string) bool {
	_, ok := s.vars.get(name)
	return ok
}

// LookupFunction returns the function registered here under exactly sig.
func (s *Scope[A]) LookupFunction(sig Signature) (*ast.FuncDecl, bool) {
	fe, ok := s.funcs.get(sig.Key())
	return fe.Function, ok
}

// LookupFunctionByName returns the first function declared here under name,
// in declaration order.
func (s *Scope[A]) LookupFunctionByName(name string) (*ast.FuncDecl, bool) {
	var found *ast.FuncDecl
	s.funcs.each(func(_ string, fe FunctionEntry) bool {
		if fe.Signature.Name == name {
			found = fe.Function
			return false
		}
		return true
	})
	return found, found != nil
}

// LookupADT returns a copy of the constructors declared here for name.
func (s *Scope[A]) LookupADT(name string) ([]ast.Constructor, bool) {
	ctors, ok := s.adts.get(name)
	if !ok {
		return nil, false
	}
	return copyConstructors(ctors), true
}

// Variables lists this scope's bindings in declaration order.
func (s *Scope[A]) Variables() []NamedBinding[A] {
	out := make([]NamedBinding[A], 0, len(s.vars.keys))
	s.vars.each(func(name string, b Binding[A]) bool {
		b.Value = cloneValue(b.Value)
		out = append(out, NamedBinding[A]{Name: name, Binding: b})
		return true
	})
	return out
}

// Functions lists this scope's functions in declaration order.
func (s *Scope[A]) Functions() []FunctionEntry {
	out := make([]FunctionEntry, 0, len(s.funcs.keys))
	s.funcs.each(func(_ string, fe FunctionEntry) bool {
		out = append(out, fe)
		return true
	})
	return out
}

// ADTs lists this scope's types in declaration order.
func (s *Scope[A]) ADTs() []ADTEntry {
	out := make([]ADTEntry, 0, len(s.adts.keys))
	s.adts.each(func(name string, ctors []ast.Constructor) bool {
		out = append(out, ADTEntry{Name: name, Constructors: copyConstructors(ctors)})
		return true
	})
	return out
}

// clone copies the tables of s. Values are copied with cloneValue.
func (s *Scope[A]) clone() *Scope[A] {
	c := NewScope[A]()
	s.vars.each(func(name string, b Binding[A]) bool {
		b.Value = cloneValue(b.Value)
		c.vars.put(name, b)
		return true
	})
	s.funcs.each(func(key string, fe FunctionEntry) bool {
		c.funcs.put(key, fe)
		return true
	})
	s.adts.each(func(name string, ctors []ast.Constructor) bool {
		c.adts.put(name, copyConstructors(ctors))
		return true
	})
	return c
}

// Len returns the total number of entries declared in this scope.
func (s *Scope[A]) Len() int {
	return len(s.vars.keys) + len(s.funcs.keys) + len(s.adts.keys)
}
