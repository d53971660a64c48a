package runtime

import (
	"fmt"
	"io"
	"lexenv/internal/ast"
	"lexenv/internal/env"
	"math"
	"unicode/utf8"
)

// NativeFn is the Go implementation of a prelude function. Arguments have
// already been matched against the function's signature.
type NativeFn func(args []Value) (Value, error)

// Natives maps signature keys (see env.Signature.Key) to implementations.
type Natives map[string]NativeFn

// Register binds fn to the signature name(params...).
func (n Natives) Register(fn NativeFn, name string, params ...ast.Type) {
	n[env.NewSignature(name, params...).Key()] = fn
}

// RegisterBuiltins returns the implementations of the default prelude's
// functions. print writes to w.
func RegisterBuiltins(w io.Writer) Natives {
	n := make(Natives)

	printLine := func(args []Value) (Value, error) {
		fmt.Fprintln(w, args[0].String())
		return UnitVal{}, nil
	}
	for _, t := range []ast.Type{ast.IntType, ast.FloatType, ast.StringType, ast.BoolType} {
		n.Register(printLine, "print", t)
	}

	n.Register(func(args []Value) (Value, error) {
		return IntVal(utf8.RuneCountInString(string(args[0].(StringVal)))), nil
	}, "len", ast.StringType)

	toString := func(args []Value) (Value, error) {
		return StringVal(args[0].String()), nil
	}
	for _, t := range []ast.Type{ast.IntType, ast.FloatType, ast.BoolType} {
		n.Register(toString, "str", t)
	}

	n.Register(func(args []Value) (Value, error) {
		return FloatVal(float64(args[0].(IntVal))), nil
	}, "toFloat", ast.IntType)

	n.Register(func(args []Value) (Value, error) {
		f := float64(args[0].(FloatVal))
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("toInt() cannot convert %g", f)
		}
		return IntVal(int64(f)), nil
	}, "toInt", ast.FloatType)

	n.Register(func(args []Value) (Value, error) {
		v := args[0].(IntVal)
		if v < 0 {
			return -v, nil
		}
		return v, nil
	}, "abs", ast.IntType)

	n.Register(func(args []Value) (Value, error) {
		return FloatVal(math.Abs(float64(args[0].(FloatVal)))), nil
	}, "abs", ast.FloatType)

	n.Register(func(args []Value) (Value, error) {
		a, b := args[0].(IntVal), args[1].(IntVal)
		tag := "Equal"
		switch {
		case a < b:
			tag = "Less"
		case a > b:
			tag = "Greater"
		}
		return &AdtVal{TypeName: "Ordering", Tag: tag}, nil
	}, "compare", ast.IntType, ast.IntType)

	return n
}
