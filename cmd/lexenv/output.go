package main

import (
	"encoding/json"
	"fmt"
	"io"
	"lexenv/internal/ast"
	"lexenv/internal/diag"
	"lexenv/internal/env"
	"lexenv/internal/token"
	"os"
	"strings"
)

// ---- output helpers ----

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "error: JSON encoding failed: %v\n", err)
		os.Exit(1)
	}
}

func printDiagsText(diags []diag.Diagnostic) {
	for _, d := range diags {
		fmt.Fprintln(os.Stderr, d.String())
	}
}

func diagsToSlice(diags []diag.Diagnostic) []map[string]interface{} {
	result := make([]map[string]interface{}, len(diags))
	for i, d := range diags {
		result[i] = map[string]interface{}{
			"code":     d.Code,
			"severity": d.Severity.String(),
			"message":  d.Message,
			"line":     d.Span.Start.Line,
			"column":   d.Span.Start.Column,
			"offset":   d.Span.Start.Offset,
		}
		if d.Hint != "" {
			result[i]["hint"] = d.Hint
		}
	}
	return result
}

// ---- token output helpers ----

func printTokensText(tokens []token.Token, diags []diag.Diagnostic) {
	for _, tok := range tokens {
		lexeme := tok.Lexeme
		if tok.Kind == token.NEWLINE {
			lexeme = "\\n"
		}
		fmt.Printf("%-12s %-20s %d:%d\n", tok.Kind, lexeme, tok.Span.Start.Line, tok.Span.Start.Column)
	}
	printDiagsText(diags)
}

func printTokensJSON(tokens []token.Token, diags []diag.Diagnostic) {
	type tokenJSON struct {
		Kind   string `json:"kind"`
		Lexeme string `json:"lexeme"`
		Line   int    `json:"line"`
		Column int    `json:"column"`
		Offset int    `json:"offset"`
	}

	var toks []tokenJSON
	for _, tok := range tokens {
		toks = append(toks, tokenJSON{
			Kind:   tok.Kind.String(),
			Lexeme: tok.Lexeme,
			Line:   tok.Span.Start.Line,
			Column: tok.Span.Start.Column,
			Offset: tok.Span.Start.Offset,
		})
	}

	output := map[string]interface{}{
		"tokens":      toks,
		"diagnostics": diagsToSlice(diags),
	}
	printJSON(output)
}

// ---- scope output helpers ----

func bindingKeyword(mutable bool) string {
	if mutable {
		return "var"
	}
	return "val"
}

// describeFunction renders "fn name(A, B): R", marking prelude natives.
func describeFunction(fe env.FunctionEntry) string {
	s := fmt.Sprintf("fn %s: %s", fe.Signature, fe.Function.Result)
	if fe.Function.IsNative() {
		s += "  [native]"
	}
	return s
}

func describeADT(entry env.ADTEntry) string {
	parts := make([]string, len(entry.Constructors))
	for i, c := range entry.Constructors {
		parts[i] = c.Name
		if len(c.Fields) > 0 {
			parts[i] += "(" + ast.TypeList(c.Fields) + ")"
		}
	}
	return fmt.Sprintf("type %s = %s", entry.Name, strings.Join(parts, " | "))
}

// writeBindings prints one "var name: desc" line per binding.
func writeBindings[A any](w io.Writer, indent string, bindings []env.NamedBinding[A], describe func(A) string) {
	for _, b := range bindings {
		fmt.Fprintf(w, "%s%s %s: %s\n", indent, bindingKeyword(b.Mutable), b.Name, describe(b.Value))
	}
}

// printScopesText prints the globals and every open block scope of a
// checker environment, outermost first.
func printScopesText(w io.Writer, e *env.Environment[ast.Type]) {
	g := e.Globals()
	fmt.Fprintf(w, "globals (env %d):\n", e.ID())
	for _, adt := range g.ADTs() {
		fmt.Fprintf(w, "  %s\n", describeADT(adt))
	}
	for _, fe := range g.Functions() {
		fmt.Fprintf(w, "  %s\n", describeFunction(fe))
	}
	writeBindings(w, "  ", g.Variables(), ast.Type.String)

	for depth, scope := range e.Scopes() {
		fmt.Fprintf(w, "scope %d:\n", depth+1)
		for _, adt := range scope.ADTs() {
			fmt.Fprintf(w, "  %s\n", describeADT(adt))
		}
		for _, fe := range scope.Functions() {
			fmt.Fprintf(w, "  %s\n", describeFunction(fe))
		}
		writeBindings(w, "  ", scope.Variables(), ast.Type.String)
	}
}

func scopeToMap(s *env.Scope[ast.Type]) map[string]interface{} {
	vars := []map[string]interface{}{}
	for _, b := range s.Variables() {
		vars = append(vars, map[string]interface{}{
			"name":    b.Name,
			"mutable": b.Mutable,
			"type":    b.Value.String(),
		})
	}
	fns := []map[string]interface{}{}
	for _, fe := range s.Functions() {
		fns = append(fns, map[string]interface{}{
			"signature": fe.Signature.String(),
			"result":    fe.Function.Result.String(),
			"native":    fe.Function.IsNative(),
		})
	}
	adts := []map[string]interface{}{}
	for _, adt := range s.ADTs() {
		ctors := []map[string]interface{}{}
		for _, c := range adt.Constructors {
			ctors = append(ctors, map[string]interface{}{"name": c.Name, "fields": typeNames(c.Fields)})
		}
		adts = append(adts, map[string]interface{}{"name": adt.Name, "constructors": ctors})
	}
	return map[string]interface{}{
		"variables": vars,
		"functions": fns,
		"types":     adts,
	}
}

func scopesToMap(e *env.Environment[ast.Type]) map[string]interface{} {
	open := e.Scopes()
	scopes := make([]map[string]interface{}, len(open))
	for i, s := range open {
		scopes[i] = scopeToMap(s)
	}
	return map[string]interface{}{
		"id":      e.ID(),
		"globals": scopeToMap(e.Globals()),
		"scopes":  scopes,
	}
}

func typeNames(ts []ast.Type) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.String()
	}
	return out
}
