package parser

import (
	"encoding/json"
	"lexenv/internal/ast"
	"lexenv/internal/diag"
	"lexenv/internal/lexer"
	"lexenv/internal/token"
	"strings"
	"testing"
)

// helper: parse source and fail on any diagnostics
func parseOK(t *testing.T, source string) *ast.File {
	t.Helper()
	tokens, lexDiags := lexer.New(source, "test.lx").Tokenize()
	if len(lexDiags) > 0 {
		t.Fatalf("lex errors: %v", lexDiags)
	}
	file, parseDiags := New(tokens).ParseFile()
	if len(parseDiags) > 0 {
		t.Fatalf("parse errors: %v", parseDiags)
	}
	return file
}

func parseDiags(t *testing.T, source string) []diag.Diagnostic {
	t.Helper()
	tokens, _ := lexer.New(source, "test.lx").Tokenize()
	_, diags := New(tokens).ParseFile()
	return diags
}

func TestParseVarDecl(t *testing.T) {
	file := parseOK(t, `var x: Int = 42`)
	if len(file.Body) != 1 {
		t.Fatalf("expected 1 node, got %d", len(file.Body))
	}
	decl, ok := file.Body[0].(*ast.VarDeclStmt)
	if !ok {
		t.Fatalf("expected VarDeclStmt, got %T", file.Body[0])
	}
	if decl.Name != "x" || !decl.Mutable {
		t.Errorf("expected mutable x, got %q mutable=%v", decl.Name, decl.Mutable)
	}
	if decl.Type != ast.IntType {
		t.Errorf("expected Int annotation, got %s", decl.Type)
	}
}

func TestParseValDeclInferred(t *testing.T) {
	file := parseOK(t, `val c = "hi"`)
	decl := file.Body[0].(*ast.VarDeclStmt)
	if decl.Mutable {
		t.Error("val must be immutable")
	}
	if !decl.Type.IsZero() {
		t.Errorf("expected no annotation, got %s", decl.Type)
	}
	if _, ok := decl.Init.(*ast.StringLiteral); !ok {
		t.Errorf("expected StringLiteral init, got %T", decl.Init)
	}
}

func TestParseBinaryPrecedence(t *testing.T) {
	file := parseOK(t, `val z = 1 + 2 * 3`)
	bin, ok := file.Body[0].(*ast.VarDeclStmt).Init.(*ast.BinaryExpr)
	if !ok || bin.Op != token.PLUS {
		t.Fatalf("expected '+' at the root, got %#v", file.Body[0].(*ast.VarDeclStmt).Init)
	}
	right, ok := bin.Right.(*ast.BinaryExpr)
	if !ok || right.Op != token.STAR {
		t.Fatalf("expected '*' on the right, got %T", bin.Right)
	}
}

func TestParseFuncDecl(t *testing.T) {
	file := parseOK(t, `
fn describe(x: Int, label: String): String {
  return label
}
`)
	fn, ok := file.Body[0].(*ast.FuncDecl)
	if !ok {
		t.Fatalf("expected FuncDecl, got %T", file.Body[0])
	}
	if fn.Name != "describe" {
		t.Errorf("expected describe, got %q", fn.Name)
	}
	if got := ast.TypeList(fn.ParamTypes()); got != "Int, String" {
		t.Errorf("expected params Int, String, got %s", got)
	}
	if fn.Result != ast.StringType {
		t.Errorf("expected String result, got %s", fn.Result)
	}
	if fn.IsNative() {
		t.Error("declared function must have a body")
	}
}

func TestParseFuncDefaultsToUnit(t *testing.T) {
	file := parseOK(t, `fn noop() {}`)
	fn := file.Body[0].(*ast.FuncDecl)
	if fn.Result != ast.UnitType {
		t.Errorf("expected Unit result, got %s", fn.Result)
	}
	if len(fn.Params) != 0 {
		t.Errorf("expected no params, got %d", len(fn.Params))
	}
}

func TestParseTypeDeclMultiline(t *testing.T) {
	file := parseOK(t, `
type Shape =
  | Circle(Float)
  | Rect(Float, Float)
  | Empty
val s = Shape.Empty
`)
	decl, ok := file.Body[0].(*ast.TypeDecl)
	if !ok {
		t.Fatalf("expected TypeDecl, got %T", file.Body[0])
	}
	if len(decl.Constructors) != 3 {
		t.Fatalf("expected 3 constructors, got %d", len(decl.Constructors))
	}
	rect := decl.Constructors[1]
	if rect.Name != "Rect" || len(rect.Fields) != 2 {
		t.Errorf("unexpected constructor %+v", rect)
	}
	if len(file.Body) != 2 {
		t.Errorf("expected the val after the type, got %d nodes", len(file.Body))
	}
}

func TestParseConstructExpr(t *testing.T) {
	file := parseOK(t, `val r = Shape.Rect(2.0, 3.0)`)
	ce, ok := file.Body[0].(*ast.VarDeclStmt).Init.(*ast.ConstructExpr)
	if !ok {
		t.Fatalf("expected ConstructExpr, got %T", file.Body[0].(*ast.VarDeclStmt).Init)
	}
	if ce.TypeName != "Shape" || ce.Tag != "Rect" || len(ce.Args) != 2 {
		t.Errorf("unexpected construct %+v", ce)
	}
}

func TestParseMatch(t *testing.T) {
	file := parseOK(t, `
match s {
  Circle(r) => { print(r) }
  Rect(w, _) => { print(w) }
  Empty => {}
}
`)
	ms, ok := file.Body[0].(*ast.MatchStmt)
	if !ok {
		t.Fatalf("expected MatchStmt, got %T", file.Body[0])
	}
	if len(ms.Arms) != 3 {
		t.Fatalf("expected 3 arms, got %d", len(ms.Arms))
	}
	if got := strings.Join(ms.Arms[1].Binders, ","); got != "w,_" {
		t.Errorf("expected binders w,_ got %s", got)
	}
	if len(ms.Arms[2].Binders) != 0 {
		t.Errorf("expected no binders for Empty")
	}
}

func TestParseIfElseChain(t *testing.T) {
	file := parseOK(t, `if a { x = 1 } else if b { x = 2 } else { x = 3 }`)
	stmt := file.Body[0].(*ast.IfStmt)
	if stmt.Else == nil || len(stmt.Else.Stmts) != 1 {
		t.Fatalf("expected else block wrapping nested if")
	}
	nested, ok := stmt.Else.Stmts[0].(*ast.IfStmt)
	if !ok {
		t.Fatalf("expected nested IfStmt, got %T", stmt.Else.Stmts[0])
	}
	if nested.Else == nil {
		t.Error("expected final else")
	}
}

func TestParseAssignAndCall(t *testing.T) {
	file := parseOK(t, "x = f(1, \"a\")\nprint(x)")
	assign, ok := file.Body[0].(*ast.AssignStmt)
	if !ok {
		t.Fatalf("expected AssignStmt, got %T", file.Body[0])
	}
	call, ok := assign.Value.(*ast.CallExpr)
	if !ok || call.Callee.Name != "f" || len(call.Args) != 2 {
		t.Fatalf("unexpected call %#v", assign.Value)
	}
	if _, ok := file.Body[1].(*ast.ExprStmt); !ok {
		t.Errorf("expected ExprStmt, got %T", file.Body[1])
	}
}

func TestParseNestedBlocks(t *testing.T) {
	file := parseOK(t, `{ var x = 1 { var x = 2 } }`)
	outer := file.Body[0].(*ast.BlockStmt)
	if len(outer.Stmts) != 2 {
		t.Fatalf("expected 2 statements in outer block, got %d", len(outer.Stmts))
	}
	if _, ok := outer.Stmts[1].(*ast.BlockStmt); !ok {
		t.Errorf("expected inner block, got %T", outer.Stmts[1])
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		source string
		code   string
	}{
		{`var = 1`, diag.ExpectedToken},
		{`val x 1`, diag.ExpectedToken},
		{`)`, diag.UnexpectedToken},
		{`type T =`, diag.ExpectedToken},
		{`fn f(x Int) {}`, diag.ExpectedToken},
	}
	for _, c := range cases {
		diags := parseDiags(t, c.source)
		if len(diags) == 0 {
			t.Errorf("%q: expected diagnostics", c.source)
			continue
		}
		if diags[0].Code != c.code {
			t.Errorf("%q: expected %s, got %s (%s)", c.source, c.code, diags[0].Code, diags[0].Message)
		}
	}
}

func TestNodeToMapJSON(t *testing.T) {
	file := parseOK(t, `fn f(a: Int): Int { return a }`)
	data, err := json.Marshal(ast.NodeToMap(file))
	if err != nil {
		t.Fatalf("json error: %v", err)
	}
	out := string(data)
	for _, want := range []string{`"kind":"FuncDecl"`, `"result":"Int"`, `"kind":"ReturnStmt"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in %s", want, out)
		}
	}
}
