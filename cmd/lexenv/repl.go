package main

import (
	"fmt"
	"io"
	"lexenv/internal/check"
	"lexenv/internal/diag"
	"lexenv/internal/env"
	"lexenv/internal/lexer"
	"lexenv/internal/parser"
	"lexenv/internal/runtime"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
)

// ---- ANSI colors ----

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

const promptMain = colorGreen + "lexenv> " + colorReset

// ---- repl command ----

// session keeps one checker and one interpreter alive across inputs, so
// declarations made in one line stay visible in the next. An input either
// commits to both environments or to neither.
type session struct {
	checker *check.Checker
	interp  *runtime.Interpreter
	noCheck bool
}

func newSession(opts options, out io.Writer) *session {
	return &session{
		checker: opts.newChecker(),
		interp: runtime.NewInterpreter(out, runtime.Config{
			Prelude: opts.prelude,
			IDs:     opts.ids,
			Logger:  opts.logger,
		}),
		noCheck: opts.noCheck,
	}
}

func cmdRepl(opts options) {
	historyFile := ""
	if home, err := os.UserHomeDir(); err == nil {
		historyFile = filepath.Join(home, ".lexenv_history")
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            promptMain,
		HistoryFile:       historyFile,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "readline init failed: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	fmt.Fprintf(rl.Stdout(), "%s%slexenv REPL%s %s(type ':scopes' to list bindings, 'exit' or Ctrl+D to quit)%s\n\n",
		colorBold, colorCyan, colorReset, colorGray, colorReset)

	s := newSession(opts, rl.Stdout())

	var accumulated strings.Builder
	braceDepth := 0

	for {
		if braceDepth > 0 {
			rl.SetPrompt(colorGray + "...     " + colorReset)
		} else {
			rl.SetPrompt(promptMain)
		}

		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				if braceDepth > 0 {
					accumulated.Reset()
					braceDepth = 0
					continue
				}
				fmt.Fprintf(rl.Stdout(), "\n%s(use 'exit' or Ctrl+D to quit)%s\n", colorGray, colorReset)
				continue
			}
			if err == io.EOF {
				fmt.Fprintln(rl.Stdout())
			}
			break
		}

		if braceDepth == 0 {
			switch strings.TrimSpace(line) {
			case "exit":
				return
			case ":scopes":
				printVisible(rl.Stdout(), s.interp.Env())
				continue
			}
		}

		// Count braces for multi-line input
		braceDepth += strings.Count(line, "{") - strings.Count(line, "}")
		accumulated.WriteString(line)
		accumulated.WriteString("\n")
		if braceDepth > 0 {
			continue
		}
		braceDepth = 0

		source := accumulated.String()
		accumulated.Reset()
		if strings.TrimSpace(source) == "" {
			continue
		}
		s.eval(rl.Stderr(), source)
	}
}

// eval checks and runs one complete input and reports whether it succeeded.
// On any error both environments go back to their state before the input.
func (s *session) eval(errOut io.Writer, source string) bool {
	checked := s.checker.Env().Snapshot()
	ran := s.interp.Env().Snapshot()
	if s.evalInput(errOut, source) {
		return true
	}
	s.checker.Env().Restore(checked)
	s.interp.Env().Restore(ran)
	return false
}

func (s *session) evalInput(errOut io.Writer, source string) bool {
	tokens, lexDiags := lexer.New(source, "<repl>").Tokenize()
	if len(lexDiags) > 0 {
		printDiagsColored(errOut, lexDiags)
		return false
	}

	file, parseDiags := parser.New(tokens).ParseFile()
	if len(parseDiags) > 0 {
		printDiagsColored(errOut, parseDiags)
		return false
	}

	if !s.noCheck {
		diags := s.checker.Check(file)
		printDiagsColored(errOut, diags)
		if diag.HasErrors(diags) {
			return false
		}
	}

	if err := s.interp.Run(file); err != nil {
		fmt.Fprintf(errOut, "%serror: %s%s\n", colorRed, err, colorReset)
		return false
	}
	return true
}

// printDiagsColored prints errors in red and warnings in yellow.
func printDiagsColored(w io.Writer, diags []diag.Diagnostic) {
	for _, d := range diags {
		color := colorRed
		if d.Severity == diag.Warning {
			color = colorYellow
		}
		fmt.Fprintf(w, "%s%s%s\n", color, d.String(), colorReset)
	}
}

// printVisible lists every binding and function the interpreter can see
// right now, innermost first for variables.
func printVisible(w io.Writer, e *env.Environment[runtime.Value]) {
	fmt.Fprintf(w, "%svariables:%s\n", colorBold, colorReset)
	writeBindings(w, "  ", e.AllVariables(), func(v runtime.Value) string {
		return fmt.Sprintf("%s = %s", v.Type(), v)
	})
	fmt.Fprintf(w, "%sfunctions:%s\n", colorBold, colorReset)
	for _, fe := range e.AllFunctions() {
		fmt.Fprintf(w, "  %s\n", describeFunction(fe))
	}
}
