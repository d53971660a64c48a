// Package prelude loads the built-in types, native function signatures and
// constants that are installed into an environment's globals scope.
package prelude

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"lexenv/internal/ast"
	"lexenv/internal/env"
	"lexenv/internal/lexer"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed prelude.yaml
var defaultSource []byte

// Prelude is a decoded and validated prelude file.
type Prelude struct {
	Path      string
	Types     []*ast.TypeDecl
	Functions []*ast.FuncDecl // native: Body is nil
	Constants []Constant
}

// Constant is a typed global value. Value holds an int64, float64, string
// or bool matching Type.
type Constant struct {
	Name  string
	Type  ast.Type
	Value any
}

type preludeDisk struct {
	Types     []typeDisk     `yaml:"types"`
	Functions []functionDisk `yaml:"functions"`
	Constants []constantDisk `yaml:"constants"`
}

type typeDisk struct {
	Name         string            `yaml:"name"`
	Constructors []constructorDisk `yaml:"constructors"`
}

type constructorDisk struct {
	Name   string   `yaml:"name"`
	Fields []string `yaml:"fields"`
}

type functionDisk struct {
	Name   string   `yaml:"name"`
	Params []string `yaml:"params"`
	Result string   `yaml:"result"`
}

type constantDisk struct {
	Name  string `yaml:"name"`
	Type  string `yaml:"type"`
	Value string `yaml:"value"`
}

// Default returns the embedded prelude. It panics if the embedded file is
// invalid, which only a broken build can cause.
func Default() *Prelude {
	p, err := Parse(bytes.NewReader(defaultSource), "<builtin>")
	if err != nil {
		panic(err)
	}
	return p
}

// Load reads and validates a prelude file from disk.
func Load(path string) (*Prelude, error) {
	if path == "" {
		return nil, fmt.Errorf("prelude: empty path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("prelude: resolve %s: %w", path, err)
	}
	file, err := os.Open(abs)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Parse(file, abs)
}

// Parse decodes a prelude from r. Unknown keys are rejected.
func Parse(r io.Reader, path string) (*Prelude, error) {
	var raw preludeDisk
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("prelude: parse %s: %w", path, err)
	}
	p, err := raw.toPrelude()
	if err != nil {
		return nil, fmt.Errorf("prelude: %s: %w", path, err)
	}
	p.Path = path
	return p, nil
}

func (raw preludeDisk) toPrelude() (*Prelude, error) {
	known := make(map[string]bool)
	for _, td := range raw.Types {
		if td.Name == "" {
			return nil, fmt.Errorf("type without a name")
		}
		if err := checkName("type", td.Name); err != nil {
			return nil, err
		}
		if known[td.Name] || ast.Named(td.Name).IsPrimitive() {
			return nil, fmt.Errorf("type %s declared twice", td.Name)
		}
		known[td.Name] = true
	}
	resolve := func(name, where string) (ast.Type, error) {
		t := ast.Named(name)
		if t.IsPrimitive() || known[name] {
			return t, nil
		}
		return ast.Type{}, fmt.Errorf("%s: unknown type %q", where, name)
	}

	p := &Prelude{}
	for _, td := range raw.Types {
		decl := &ast.TypeDecl{Name: td.Name}
		if len(td.Constructors) == 0 {
			return nil, fmt.Errorf("type %s has no constructors", td.Name)
		}
		for _, cd := range td.Constructors {
			if err := checkName("constructor", cd.Name); err != nil {
				return nil, err
			}
			ctor := ast.Constructor{Name: cd.Name}
			for _, f := range cd.Fields {
				ft, err := resolve(f, td.Name+"."+cd.Name)
				if err != nil {
					return nil, err
				}
				ctor.Fields = append(ctor.Fields, ft)
			}
			decl.Constructors = append(decl.Constructors, ctor)
		}
		p.Types = append(p.Types, decl)
	}

	seen := make(map[string]bool)
	for _, fd := range raw.Functions {
		if fd.Name == "" {
			return nil, fmt.Errorf("function without a name")
		}
		if err := checkName("function", fd.Name); err != nil {
			return nil, err
		}
		fn := &ast.FuncDecl{Name: fd.Name, Result: ast.UnitType}
		for i, name := range fd.Params {
			pt, err := resolve(name, fd.Name)
			if err != nil {
				return nil, err
			}
			fn.Params = append(fn.Params, ast.Param{Name: "p" + strconv.Itoa(i), Type: pt})
		}
		if fd.Result != "" {
			rt, err := resolve(fd.Result, fd.Name)
			if err != nil {
				return nil, err
			}
			fn.Result = rt
		}
		key := env.SignatureOf(fn).Key()
		if seen[key] {
			return nil, fmt.Errorf("function %s declared twice", env.SignatureOf(fn))
		}
		seen[key] = true
		p.Functions = append(p.Functions, fn)
	}

	for _, cd := range raw.Constants {
		c, err := cd.toConstant()
		if err != nil {
			return nil, err
		}
		p.Constants = append(p.Constants, c)
	}
	return p, nil
}

// checkName rejects names a program could never spell.
func checkName(what, name string) error {
	if !lexer.IsIdentifier(name) {
		return fmt.Errorf("%s name %q is not an identifier", what, name)
	}
	return nil
}

func (cd constantDisk) toConstant() (Constant, error) {
	c := Constant{Name: cd.Name, Type: ast.Named(cd.Type)}
	if cd.Name == "" {
		return c, fmt.Errorf("constant without a name")
	}
	if err := checkName("constant", cd.Name); err != nil {
		return c, err
	}
	var err error
	switch c.Type {
	case ast.IntType:
		c.Value, err = strconv.ParseInt(cd.Value, 10, 64)
	case ast.FloatType:
		c.Value, err = strconv.ParseFloat(cd.Value, 64)
	case ast.BoolType:
		c.Value, err = strconv.ParseBool(cd.Value)
	case ast.StringType:
		c.Value = cd.Value
	default:
		return c, fmt.Errorf("constant %s: unsupported type %q", cd.Name, cd.Type)
	}
	if err != nil {
		return c, fmt.Errorf("constant %s: %w", cd.Name, err)
	}
	return c, nil
}

// Install registers every type, native function and constant into the
// globals of e. Constants are converted with value and bound immutably.
// It must run before any block scope is pushed.
func Install[A any](e *env.Environment[A], p *Prelude, value func(Constant) A) error {
	if e.InScope() {
		return fmt.Errorf("prelude: install with %d open scopes", e.Depth())
	}
	for _, td := range p.Types {
		e.MapADT(td.Name, td.Constructors)
	}
	for _, fn := range p.Functions {
		e.MapFunction(fn)
	}
	for _, c := range p.Constants {
		e.MapVariable(c.Name, false, value(c))
	}
	return nil
}
