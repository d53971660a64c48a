package check

import (
	"lexenv/internal/ast"
	"lexenv/internal/diag"
	"lexenv/internal/lexer"
	"lexenv/internal/parser"
	"lexenv/internal/prelude"
	"strings"
	"testing"
)

func parse(t *testing.T, source string) *ast.File {
	t.Helper()
	tokens, lexDiags := lexer.New(source, "test.lx").Tokenize()
	if len(lexDiags) > 0 {
		t.Fatalf("lex errors: %v", lexDiags)
	}
	file, parseDiags := parser.New(tokens).ParseFile()
	if len(parseDiags) > 0 {
		t.Fatalf("parse errors: %v", parseDiags)
	}
	return file
}

func checkSource(t *testing.T, source string) []diag.Diagnostic {
	t.Helper()
	return CheckFile(parse(t, source), prelude.Default())
}

func expectClean(t *testing.T, source string) {
	t.Helper()
	if diags := checkSource(t, source); len(diags) > 0 {
		t.Fatalf("expected no diagnostics, got %v", diags)
	}
}

// expectCode asserts that the first diagnostic has the given code and that
// its message contains every fragment.
func expectCode(t *testing.T, source, code string, fragments ...string) diag.Diagnostic {
	t.Helper()
	diags := checkSource(t, source)
	if len(diags) == 0 {
		t.Fatalf("expected %s, got no diagnostics", code)
	}
	d := diags[0]
	if d.Code != code {
		t.Fatalf("expected %s, got %v", code, diags)
	}
	for _, f := range fragments {
		if !strings.Contains(d.Message, f) {
			t.Errorf("expected %q in %q", f, d.Message)
		}
	}
	return d
}

func TestCheckProgram(t *testing.T) {
	expectClean(t, `
type Shape = Circle(Float) | Rect(Float, Float) | Empty
fn area(s: Shape): Float {
  match s {
    Circle(r) => { return 3.14 * r * r }
    Rect(w, h) => { return w * h }
    Empty => { return 0.0 }
  }
}
fn describe(x: Int): String { return "int" }
fn describe(x: String): String { return "string" }
var total = 0
val limit = 3
while total < limit { total = total + 1 }
{
  var total = "shadow"
  print(total)
}
print(area(Shape.Rect(2.0, 3.0)))
print(describe(1) + describe("a"))
`)
}

func TestHoistingAllowsForwardReferences(t *testing.T) {
	expectClean(t, `
print(twice(2))
fn twice(n: Int): Int { return helper(n) * 2 }
fn helper(n: Int): Int { return n }
val c = Color.Red
type Color = Red | Green
`)
}

func TestDuplicateDeclaration(t *testing.T) {
	expectCode(t, "var x = 1\nvar x = 2", diag.DuplicateDeclaration,
		"variable 'x' was declared multiple times at top level")
}

func TestShadowingInNestedBlock(t *testing.T) {
	expectClean(t, "var x = 1\n{ var x = \"inner\" }\nx = 2")
}

func TestParamDuplicateInFunction(t *testing.T) {
	expectCode(t, "fn f(a: Int) { var a = 2 }", diag.DuplicateDeclaration, "in function 'f(Int)'")
}

func TestImmutableAssignment(t *testing.T) {
	d := expectCode(t, "val c = 10\nc = 20", diag.ImmutableAssignment, "'c'", "immutable")
	if d.Hint == "" {
		t.Error("expected a hint")
	}
}

func TestAssignToGlobalConstant(t *testing.T) {
	d := expectCode(t, "PI = 3.0", diag.UndeclaredVariable, "'PI' was never declared")
	if !strings.Contains(d.Hint, "globals cannot be reassigned") {
		t.Errorf("unexpected hint %q", d.Hint)
	}
}

func TestAssignUndeclared(t *testing.T) {
	expectCode(t, "y = 1", diag.UndeclaredVariable, "variable 'y' was never declared at top level")
	expectCode(t, "fn f(n: Int) { missing = n }", diag.UndeclaredVariable, "in function 'f(Int)'")
}

func TestFunctionCannotSeeCallerLocals(t *testing.T) {
	expectCode(t, "var secret = 1\nfn peek(): Int { return secret }", diag.UndefinedName, "secret")
}

func TestFunctionSeesGlobals(t *testing.T) {
	expectClean(t, "fn circumference(r: Float): Float { return 2.0 * PI * r }")
}

func TestUndefinedName(t *testing.T) {
	expectCode(t, "print(nope)", diag.UndefinedName, "nope")
	expectCode(t, "nothing(1)", diag.UndefinedName, "undefined function 'nothing'")
}

func TestNoMatchingOverload(t *testing.T) {
	d := expectCode(t, "print(1, 2)", diag.NoMatchingOverload, "no overload of 'print' accepts (Int, Int)")
	for _, c := range []string{"print(Int)", "print(Float)", "print(String)", "print(Bool)"} {
		if !strings.Contains(d.Hint, c) {
			t.Errorf("expected candidate %s in hint %q", c, d.Hint)
		}
	}
}

func TestOverloadResultTypes(t *testing.T) {
	expectCode(t, `
fn pick(x: Int): String { return "i" }
fn pick(x: Bool): Int { return 1 }
val n: Int = pick(3)
`, diag.TypeMismatch, "of type Int with a value of type String")
}

func TestNotAFunction(t *testing.T) {
	expectCode(t, "val x = 1\nx(2)", diag.NotAFunction, "'x' is a variable of type Int")
}

func TestFunctionAsValue(t *testing.T) {
	expectCode(t, "fn f() {}\nval g = f", diag.TypeMismatch, "cannot be used as a value")
}

func TestConstructorErrors(t *testing.T) {
	expectCode(t, "val s = Nope.A", diag.UnknownConstructor, "unknown type 'Nope'")
	expectCode(t, "type T = A | B\nval t = T.C", diag.UnknownConstructor, "no constructor 'C'")
	expectCode(t, "type T = A(Int)\nval t = T.A(1, 2)", diag.ArityMismatch, "takes 1 arguments, got 2")
	expectCode(t, "type T = A(Int)\nval t = T.A(\"s\")", diag.TypeMismatch, "expects Int, got String")
}

func TestMatchErrors(t *testing.T) {
	expectCode(t, "type T = A(Int) | B\nval t = T.B\nmatch t { A => {} B => {} }", diag.ArityMismatch, "pattern binds 0")
	expectCode(t, "type T = A | B\nval t = T.B\nmatch t { C => {} A => {} B => {} }", diag.UnknownConstructor, "no constructor 'C'")
	expectCode(t, "match 1 { A => {} }", diag.TypeMismatch, "cannot match on a value of type Int")
}

func TestMatchBindersAreScopedToArm(t *testing.T) {
	expectCode(t, `
type Box = Full(Int) | Empty
val b = Box.Full(1)
match b {
  Full(n) => { print(n) }
  Empty => { print(n) }
}
`, diag.UndefinedName, "undefined name 'n'")
}

func TestNonExhaustiveMatch(t *testing.T) {
	diags := checkSource(t, "type T = A | B | C\nval t = T.A\nmatch t { A => {} }")
	if len(diags) != 1 || diags[0].Code != diag.NonExhaustiveMatch || diags[0].Severity != diag.Warning {
		t.Fatalf("expected a single W3002 warning, got %v", diags)
	}
	if !strings.Contains(diags[0].Message, "B, C") {
		t.Errorf("expected missing constructors listed, got %q", diags[0].Message)
	}
}

func TestTypeMismatches(t *testing.T) {
	cases := []struct {
		source, fragment string
	}{
		{`val x: Int = "a"`, "cannot initialize 'x'"},
		{"var x = 1\nx = \"s\"", "cannot assign a value of type String to 'x' of type Int"},
		{`if 1 { }`, "if condition must be Bool"},
		{`while "s" { }`, "while condition must be Bool"},
		{`val x = 1 + 2.0`, "operator '+' cannot be applied to Int and Float"},
		{`val x = !3`, "operator '!' cannot be applied to Int"},
		{`val x = true < false`, "operator '<' cannot be applied to Bool and Bool"},
		{`fn f(): Int { return "s" }`, "returns Int, not String"},
	}
	for _, c := range cases {
		expectCode(t, c.source, diag.TypeMismatch, c.fragment)
	}
}

func TestUnknownType(t *testing.T) {
	expectCode(t, "val x: Widget = 1", diag.UnknownType, "unknown type 'Widget'")
	expectCode(t, "fn f(w: Widget) {}", diag.UnknownType, "unknown type 'Widget'")
	expectCode(t, "type T = A(Widget)", diag.UnknownType, "unknown type 'Widget'")
}

func TestReturnOutsideFunction(t *testing.T) {
	expectCode(t, "return 1", diag.MisplacedReturn)
}

func TestMissingReturn(t *testing.T) {
	expectCode(t, "fn f(b: Bool): Int { if b { return 1 } }", diag.MissingReturn, "f(Bool)")
	expectClean(t, "fn f(b: Bool): Int { if b { return 1 } else { return 2 } }")
}

func TestRedefinitionWarning(t *testing.T) {
	diags := checkSource(t, "fn f() {}\nfn f() {}\nfn print(s: String) {}")
	if len(diags) != 2 {
		t.Fatalf("expected 2 warnings, got %v", diags)
	}
	for _, d := range diags {
		if d.Code != diag.Redefinition || d.Severity != diag.Warning {
			t.Errorf("unexpected diagnostic %v", d)
		}
	}
	if !strings.Contains(diags[1].Message, "built-in function 'print(String)'") {
		t.Errorf("unexpected message %q", diags[1].Message)
	}
}

func TestLocalFunctionShadowsGlobal(t *testing.T) {
	expectCode(t, `
fn pick(): Int { return 1 }
{
  fn pick(): String { return "inner" }
  val s: String = pick()
}
val n: String = pick()
`, diag.TypeMismatch, "cannot initialize 'n' of type String with a value of type Int")
}

func TestSessionAcrossInputs(t *testing.T) {
	c := New(nil, prelude.Default())
	if diags := c.Check(parse(t, "var count = 1\nfn inc(n: Int): Int { return n + 1 }")); len(diags) > 0 {
		t.Fatalf("first input: %v", diags)
	}
	if diags := c.Check(parse(t, "count = inc(count)")); len(diags) > 0 {
		t.Fatalf("second input: %v", diags)
	}
	if diags := c.Check(parse(t, "var count = 2")); len(diags) != 1 || diags[0].Code != diag.DuplicateDeclaration {
		t.Fatalf("expected duplicate in session scope, got %v", diags)
	}
	if depth := c.Env().Depth(); depth != 1 {
		t.Errorf("expected only the session scope open, got depth %d", depth)
	}
	if !c.Env().CurrentFunction().IsZero() {
		t.Error("current function must be restored after checking bodies")
	}
}
