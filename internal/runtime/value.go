// Package runtime implements the tree-walking interpreter and its values.
package runtime

import (
	"fmt"
	"lexenv/internal/ast"
	"strings"
)

// Value is the interface for all runtime values. Type reports the nominal
// type used to build call signatures.
type Value interface {
	Type() ast.Type
	String() string
}

// ---- Primitive values ----

// IntVal represents an integer value.
type IntVal int64

func (v IntVal) Type() ast.Type  { return ast.IntType }
func (v IntVal) String() string { return fmt.Sprintf("%d", int64(v)) }

// FloatVal represents a floating-point value.
type FloatVal float64

func (v FloatVal) Type() ast.Type  { return ast.FloatType }
func (v FloatVal) String() string { return fmt.Sprintf("%g", float64(v)) }

// StringVal represents a string value.
type StringVal string

func (v StringVal) Type() ast.Type  { return ast.StringType }
func (v StringVal) String() string { return string(v) }

// BoolVal represents a boolean value.
type BoolVal bool

func (v BoolVal) Type() ast.Type  { return ast.BoolType }
func (v BoolVal) String() string { return fmt.Sprintf("%t", bool(v)) }

// UnitVal is the result of functions that return nothing.
type UnitVal struct{}

func (v UnitVal) Type() ast.Type  { return ast.UnitType }
func (v UnitVal) String() string { return "()" }

// ---- Algebraic data values ----

// AdtVal is a constructed value such as Shape.Rect(2.0, 3.0).
type AdtVal struct {
	TypeName string
	Tag      string
	Fields   []Value
}

func (v *AdtVal) Type() ast.Type { return ast.Named(v.TypeName) }

func (v *AdtVal) String() string {
	if len(v.Fields) == 0 {
		return v.TypeName + "." + v.Tag
	}
	return v.TypeName + "." + v.Tag + "(" + ValuesString(v.Fields, ", ") + ")"
}

// Clone copies v and every nested constructed value, so bindings never share
// field storage.
func (v *AdtVal) Clone() Value {
	out := &AdtVal{TypeName: v.TypeName, Tag: v.Tag}
	if v.Fields != nil {
		out.Fields = make([]Value, len(v.Fields))
		for i, f := range v.Fields {
			if nested, ok := f.(*AdtVal); ok {
				out.Fields[i] = nested.Clone()
			} else {
				out.Fields[i] = f
			}
		}
	}
	return out
}

// ---- Helpers ----

// ValuesString formats a slice of values with a separator.
func ValuesString(vals []Value, sep string) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = v.String()
	}
	return strings.Join(parts, sep)
}

// TypesOf returns the runtime types of vals, in order.
func TypesOf(vals []Value) []ast.Type {
	out := make([]ast.Type, len(vals))
	for i, v := range vals {
		out[i] = v.Type()
	}
	return out
}

// valuesEqual compares by type and content; constructed values compare
// structurally.
func valuesEqual(a, b Value) bool {
	if a.Type() != b.Type() {
		return false
	}
	switch av := a.(type) {
	case *AdtVal:
		bv := b.(*AdtVal)
		if av.Tag != bv.Tag || len(av.Fields) != len(bv.Fields) {
			return false
		}
		for i := range av.Fields {
			if !valuesEqual(av.Fields[i], bv.Fields[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}
