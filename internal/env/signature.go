package env

import (
	"lexenv/internal/ast"
	"strconv"
	"strings"
)

// Signature identifies a function by name and ordered parameter types, so
// functions can be overloaded by arity and type rather than by name alone.
type Signature struct {
	Name   string
	Params []ast.Type
}

// NewSignature builds a signature. The parameter slice is copied.
func NewSignature(name string, params ...ast.Type) Signature {
	return Signature{Name: name, Params: append([]ast.Type(nil), params...)}
}

// SignatureOf extracts the signature of a function declaration.
func SignatureOf(fn *ast.FuncDecl) Signature {
	return Signature{Name: fn.Name, Params: fn.ParamTypes()}
}

// Equal reports whether both signatures have the same name and the same
// parameter types in the same order.
func (s Signature) Equal(o Signature) bool {
	if s.Name != o.Name || len(s.Params) != len(o.Params) {
		return false
	}
	for i := range s.Params {
		if s.Params[i] != o.Params[i] {
			return false
		}
	}
	return true
}

// Key renders the canonical map key, e.g. `"f"("Int","String")`. Every name
// is quoted so separators inside a name cannot collide with the list syntax.
// Key(a) == Key(b) exactly when a.Equal(b).
func (s Signature) Key() string {
	var b strings.Builder
	b.WriteString(strconv.Quote(s.Name))
	b.WriteByte('(')
	for i, p := range s.Params {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(p.Name))
	}
	b.WriteByte(')')
	return b.String()
}

// IsZero reports whether s is the empty signature, used as "no current function".
func (s Signature) IsZero() bool {
	return s.Name == "" && len(s.Params) == 0
}

func (s Signature) String() string {
	return s.Name + "(" + ast.TypeList(s.Params) + ")"
}
