package lexer

import (
	"lexenv/internal/diag"
	"lexenv/internal/token"
	"testing"
)

func kindsOf(t *testing.T, source string) []token.Kind {
	t.Helper()
	tokens, diags := New(source, "test.lx").Tokenize()
	if len(diags) > 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	kinds := make([]token.Kind, len(tokens))
	for i, tok := range tokens {
		kinds[i] = tok.Kind
	}
	return kinds
}

func expectKinds(t *testing.T, source string, expected ...token.Kind) {
	t.Helper()
	got := kindsOf(t, source)
	if len(got) != len(expected) {
		t.Fatalf("expected %d tokens, got %d: %v", len(expected), len(got), got)
	}
	for i, exp := range expected {
		if got[i] != exp {
			t.Errorf("token[%d]: expected %s, got %s", i, exp, got[i])
		}
	}
}

func TestTokenizeDeclaration(t *testing.T) {
	expectKinds(t, `var x: Int = 1 + 2`,
		token.KW_VAR, token.IDENT, token.COLON, token.IDENT, token.ASSIGN,
		token.INT, token.PLUS, token.INT, token.EOF)
}

func TestTokenizeKeywords(t *testing.T) {
	expectKinds(t, `fn type var val if else while return match true false`,
		token.KW_FN, token.KW_TYPE, token.KW_VAR, token.KW_VAL, token.KW_IF,
		token.KW_ELSE, token.KW_WHILE, token.KW_RETURN, token.KW_MATCH,
		token.KW_TRUE, token.KW_FALSE, token.EOF)
}

func TestTokenizeOperators(t *testing.T) {
	expectKinds(t, `= == != < <= > >= + - * / % ! && || | =>`,
		token.ASSIGN, token.EQ, token.NEQ,
		token.LT, token.LTE, token.GT, token.GTE,
		token.PLUS, token.MINUS, token.STAR, token.SLASH, token.PERCENT,
		token.BANG, token.AND, token.OR, token.PIPE, token.ARROW,
		token.EOF)
}

func TestTokenizeTypeDecl(t *testing.T) {
	expectKinds(t, `type Shape = Circle(Float) | Empty`,
		token.KW_TYPE, token.IDENT, token.ASSIGN,
		token.IDENT, token.LPAREN, token.IDENT, token.RPAREN,
		token.PIPE, token.IDENT, token.EOF)
}

func TestTokenizeNumbers(t *testing.T) {
	tokens, _ := New(`42 3.14 7.`, "test.lx").Tokenize()
	cases := []struct {
		kind   token.Kind
		lexeme string
	}{
		{token.INT, "42"},
		{token.FLOAT, "3.14"},
		{token.INT, "7"},
		{token.DOT, "."},
	}
	for i, c := range cases {
		if tokens[i].Kind != c.kind || tokens[i].Lexeme != c.lexeme {
			t.Errorf("token[%d]: expected %s %q, got %s %q", i, c.kind, c.lexeme, tokens[i].Kind, tokens[i].Lexeme)
		}
	}
}

func TestTokenizeStringEscapes(t *testing.T) {
	tokens, diags := New(`"a\tb\n\"c\""`, "test.lx").Tokenize()
	if len(diags) > 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if tokens[0].Kind != token.STRING {
		t.Fatalf("expected STRING, got %s", tokens[0].Kind)
	}
	if want := "a\tb\n\"c\""; tokens[0].Lexeme != want {
		t.Errorf("expected %q, got %q", want, tokens[0].Lexeme)
	}
}

func TestTokenizeComments(t *testing.T) {
	expectKinds(t, "x // trailing\n# whole line\ny",
		token.IDENT, token.NEWLINE, token.NEWLINE, token.IDENT, token.EOF)
}

func TestTokenPositions(t *testing.T) {
	tokens, _ := New("val a = 1\n  b", "test.lx").Tokenize()
	last := tokens[len(tokens)-2]
	if last.Lexeme != "b" {
		t.Fatalf("expected 'b', got %q", last.Lexeme)
	}
	if last.Span.Start.Line != 2 || last.Span.Start.Column != 3 {
		t.Errorf("expected 2:3, got %s", last.Span.Start)
	}
}

func TestTokenizeErrors(t *testing.T) {
	cases := []struct {
		source string
		code   string
	}{
		{`"open`, diag.UnterminatedString},
		{`"bad \q"`, diag.UnknownEscape},
		{`a & b`, diag.UnexpectedChar},
		{`@`, diag.UnexpectedChar},
	}
	for _, c := range cases {
		_, diags := New(c.source, "test.lx").Tokenize()
		if len(diags) == 0 {
			t.Errorf("%q: expected diagnostic %s, got none", c.source, c.code)
			continue
		}
		if diags[0].Code != c.code {
			t.Errorf("%q: expected %s, got %s", c.source, c.code, diags[0].Code)
		}
	}
}

func TestIsIdentifier(t *testing.T) {
	cases := map[string]bool{
		"x":        true,
		"_tmp":     true,
		"Shape2":   true,
		"":         false,
		"2d":       false,
		"A,B":      false,
		"a b":      false,
		"match":    false,
		"Ordering": true,
	}
	for name, want := range cases {
		if got := IsIdentifier(name); got != want {
			t.Errorf("IsIdentifier(%q) = %v, want %v", name, got, want)
		}
	}
}
