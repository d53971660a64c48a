package prelude

import (
	"lexenv/internal/ast"
	"lexenv/internal/env"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultPrelude(t *testing.T) {
	p := Default()
	if p.Path != "<builtin>" {
		t.Errorf("unexpected path %q", p.Path)
	}
	var prints int
	for _, fn := range p.Functions {
		if !fn.IsNative() {
			t.Errorf("%s must be native", fn.Name)
		}
		if fn.Name == "print" {
			prints++
		}
	}
	if prints != 4 {
		t.Errorf("expected 4 print overloads, got %d", prints)
	}
}

func TestInstall(t *testing.T) {
	e := env.New[ast.Type](nil)
	if err := Install(e, Default(), func(c Constant) ast.Type { return c.Type }); err != nil {
		t.Fatal(err)
	}
	if _, ok := e.LookupFunction(env.NewSignature("print", ast.StringType)); !ok {
		t.Error("expected print(String)")
	}
	cmp, ok := e.LookupFunction(env.NewSignature("compare", ast.IntType, ast.IntType))
	if !ok || cmp.Result != ast.Named("Ordering") {
		t.Errorf("expected compare(Int, Int): Ordering, got %v", cmp)
	}
	if ctors, ok := e.LookupADT("Ordering"); !ok || len(ctors) != 3 {
		t.Errorf("expected Ordering with 3 constructors, got %v", ctors)
	}
	pi, ok := e.Lookup("PI")
	if !ok || pi.Value != ast.FloatType || pi.Mutable {
		t.Errorf("expected immutable PI: Float, got %+v", pi)
	}
	if _, ok := e.Globals().LookupVariable("VERSION"); !ok {
		t.Error("constants must live in globals")
	}
}

func TestInstallRejectsOpenScope(t *testing.T) {
	e := env.New[ast.Type](nil)
	e.Push()
	if err := Install(e, Default(), func(c Constant) ast.Type { return c.Type }); err == nil {
		t.Error("expected an error when a scope is open")
	}
}

func TestParseConstants(t *testing.T) {
	src := `
constants:
  - name: N
    type: Int
    value: "42"
  - name: ON
    type: Bool
    value: "true"
`
	p, err := Parse(strings.NewReader(src), "test.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if p.Constants[0].Value != int64(42) {
		t.Errorf("expected int64 42, got %#v", p.Constants[0].Value)
	}
	if p.Constants[1].Value != true {
		t.Errorf("expected true, got %#v", p.Constants[1].Value)
	}
}

func TestParseEmpty(t *testing.T) {
	p, err := Parse(strings.NewReader(""), "empty.yaml")
	if err != nil {
		t.Fatalf("empty prelude must be valid: %v", err)
	}
	if len(p.Functions) != 0 || len(p.Types) != 0 {
		t.Error("expected nothing declared")
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name, src, want string
	}{
		{"unknown key", "extras: []\n", "field extras not found"},
		{"unknown type", "functions:\n  - name: f\n    params: [Nope]\n", `unknown type "Nope"`},
		{"duplicate signature", "functions:\n  - name: f\n    params: [Int]\n  - name: f\n    params: [Int]\n", "declared twice"},
		{"bad constant", "constants:\n  - name: N\n    type: Int\n    value: \"x\"\n", "constant N"},
		{"unsupported constant", "constants:\n  - name: N\n    type: Unit\n    value: \"\"\n", "unsupported type"},
		{"empty type", "types:\n  - name: T\n", "no constructors"},
		{"type name with comma", "types:\n  - name: \"A,B\"\n    constructors:\n      - name: C\n", `type name "A,B" is not an identifier`},
		{"keyword constructor", "types:\n  - name: T\n    constructors:\n      - name: match\n", `constructor name "match"`},
		{"function name", "functions:\n  - name: \"f(x)\"\n", `function name "f(x)"`},
		{"constant name", "constants:\n  - name: \"1st\"\n    type: Int\n    value: \"1\"\n", `constant name "1st"`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(c.src), "bad.yaml")
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), c.want) {
				t.Errorf("expected %q in %q", c.want, err.Error())
			}
			if !strings.HasPrefix(err.Error(), "prelude: ") {
				t.Errorf("expected prelude prefix, got %q", err.Error())
			}
		})
	}
}

func TestLoadFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	src := "types:\n  - name: Color\n    constructors:\n      - name: Red\n      - name: Rgb\n        fields: [Int, Int, Int]\n"
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	p, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Types) != 1 || len(p.Types[0].Constructors[1].Fields) != 3 {
		t.Errorf("unexpected types %+v", p.Types)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
