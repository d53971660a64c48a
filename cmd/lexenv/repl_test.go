package main

import (
	"bytes"
	"lexenv/internal/env"
	"lexenv/internal/prelude"
	"log/slog"
	"strings"
	"testing"
)

func newTestSession(t *testing.T) (*session, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	opts := options{
		prelude: prelude.Default(),
		logger:  slog.New(slog.DiscardHandler),
		ids:     env.NewSequence(1),
	}
	return newSession(opts, &out), &out
}

func TestSessionDropsInputThatFailsToCheck(t *testing.T) {
	s, out := newTestSession(t)
	var errOut bytes.Buffer

	if s.eval(&errOut, "var x = 1\nprint(nope)\n") {
		t.Fatal("expected the input to be rejected")
	}
	errOut.Reset()
	if s.eval(&errOut, "print(x)\n") {
		t.Fatalf("x from a rejected input must stay undeclared, output %q", out.String())
	}
	if !strings.Contains(errOut.String(), "E3004") {
		t.Errorf("expected an undefined name diagnostic, got %q", errOut.String())
	}
	if out.Len() != 0 {
		t.Errorf("nothing should have run, got %q", out.String())
	}

	errOut.Reset()
	if !s.eval(&errOut, "var x = 2\nprint(x)\n") {
		t.Fatalf("redeclaring x should succeed: %s", errOut.String())
	}
	if out.String() != "2\n" {
		t.Errorf("expected 2, got %q", out.String())
	}
}

func TestSessionDropsInputThatFailsToRun(t *testing.T) {
	s, out := newTestSession(t)
	var errOut bytes.Buffer

	if s.eval(&errOut, "var a = 1\nvar y = 1 / 0\n") {
		t.Fatal("expected a runtime failure")
	}
	if !strings.Contains(errOut.String(), "division by zero") {
		t.Errorf("expected division by zero, got %q", errOut.String())
	}

	errOut.Reset()
	if !s.eval(&errOut, "var a = 3\nvar y = 2\nprint(a + y)\n") {
		t.Fatalf("declarations from the failed input must be gone: %s", errOut.String())
	}
	if out.String() != "5\n" {
		t.Errorf("expected 5, got %q", out.String())
	}
	if s.checker.Env().Depth() != 1 || s.interp.Env().Depth() != 1 {
		t.Errorf("expected only the session scope, got %d and %d",
			s.checker.Env().Depth(), s.interp.Env().Depth())
	}
}

func TestSessionKeepsSuccessfulInput(t *testing.T) {
	s, out := newTestSession(t)
	var errOut bytes.Buffer

	inputs := []string{
		"fn double(n: Int): Int { return n * 2 }\n",
		"var total = double(4)\n",
		"total = total + 1\n",
		"print(total)\n",
	}
	for _, in := range inputs {
		if !s.eval(&errOut, in) {
			t.Fatalf("input %q failed: %s", in, errOut.String())
		}
	}
	if out.String() != "9\n" {
		t.Errorf("expected 9, got %q", out.String())
	}
}
