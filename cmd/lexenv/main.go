// Command lexenv is the CLI entry point for the lexenv toolchain.
//
// Usage:
//
//	lexenv tokens <file> [--json]       Print tokens
//	lexenv parse  <file>                Print AST as JSON
//	lexenv check  <file> [--json]       Resolve names and types
//	lexenv run    <file> [--no-check]   Check and run a source file
//	lexenv scopes <file> [--json]       Print the scopes left after checking
//	lexenv repl                         Start interactive REPL
//
// Every command accepts --prelude FILE to replace the built-in prelude and
// --trace to log scope operations to stderr.
package main

import (
	"fmt"
	"lexenv/internal/ast"
	"lexenv/internal/check"
	"lexenv/internal/diag"
	"lexenv/internal/env"
	"lexenv/internal/lexer"
	"lexenv/internal/parser"
	"lexenv/internal/prelude"
	"lexenv/internal/runtime"
	"log/slog"
	"os"
)

// options holds the flags shared by every command.
type options struct {
	json    bool
	noCheck bool
	prelude *prelude.Prelude
	logger  *slog.Logger
	ids     *env.Sequence // shared by the checker and interpreter environments
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	command := os.Args[1]
	opts := loadOptions()

	switch command {
	case "tokens":
		filename := fileArg()
		cmdTokens(readFile(filename), filename, opts.json)
	case "parse":
		filename := fileArg()
		cmdParse(readFile(filename), filename)
	case "check":
		filename := fileArg()
		cmdCheck(readFile(filename), filename, opts)
	case "run":
		filename := fileArg()
		cmdRun(readFile(filename), filename, opts)
	case "scopes":
		filename := fileArg()
		cmdScopes(readFile(filename), filename, opts)
	case "repl":
		cmdRepl(opts)
	default:
		fmt.Fprintf(os.Stderr, "error: unknown command '%s'\n", command)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  lexenv tokens <file> [--json]       Tokenize and print tokens")
	fmt.Fprintln(os.Stderr, "  lexenv parse  <file>                Parse and print AST (JSON)")
	fmt.Fprintln(os.Stderr, "  lexenv check  <file> [--json]       Resolve names and types")
	fmt.Fprintln(os.Stderr, "  lexenv run    <file> [--no-check]   Check and run a source file")
	fmt.Fprintln(os.Stderr, "  lexenv scopes <file> [--json]       Print scopes after checking")
	fmt.Fprintln(os.Stderr, "  lexenv repl                         Start interactive REPL")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Flags:")
	fmt.Fprintln(os.Stderr, "  --prelude FILE   Load built-ins from a YAML file")
	fmt.Fprintln(os.Stderr, "  --trace          Log scope operations to stderr")
}

func fileArg() string {
	if len(os.Args) < 3 || isFlag(os.Args[2]) {
		fmt.Fprintln(os.Stderr, "error: missing file argument")
		os.Exit(1)
	}
	return os.Args[2]
}

func readFile(filename string) string {
	source, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot read file %s: %v\n", filename, err)
		os.Exit(1)
	}
	return string(source)
}

func isFlag(arg string) bool {
	return len(arg) > 2 && arg[:2] == "--"
}

func hasFlag(flag string) bool {
	for _, arg := range os.Args[2:] {
		if arg == flag {
			return true
		}
	}
	return false
}

// flagValue returns the argument following flag, or "" if flag is absent.
func flagValue(flag string) string {
	args := os.Args[2:]
	for i, arg := range args {
		if arg == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func loadOptions() options {
	opts := options{
		json:    hasFlag("--json"),
		noCheck: hasFlag("--no-check"),
		prelude: prelude.Default(),
		logger:  slog.New(slog.DiscardHandler),
		ids:     env.NewSequence(1),
	}
	if path := flagValue("--prelude"); path != "" {
		p, err := prelude.Load(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		opts.prelude = p
	}
	if hasFlag("--trace") {
		opts.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return opts
}

func (o options) newChecker() *check.Checker {
	return check.New(o.ids, o.prelude, env.WithLogger(o.logger))
}

func (o options) newInterpreter() *runtime.Interpreter {
	return runtime.NewInterpreter(os.Stdout, runtime.Config{
		Prelude: o.prelude,
		IDs:     o.ids,
		Logger:  o.logger,
	})
}

// parseOrExit lexes and parses source, printing diagnostics and exiting on error.
func parseOrExit(source, filename string) *ast.File {
	l := lexer.New(source, filename)
	tokens, lexDiags := l.Tokenize()
	if len(lexDiags) > 0 {
		printDiagsText(lexDiags)
		os.Exit(1)
	}

	p := parser.New(tokens)
	file, parseDiags := p.ParseFile()
	if len(parseDiags) > 0 {
		printDiagsText(parseDiags)
		os.Exit(1)
	}
	return file
}

// ---- tokens command ----

func cmdTokens(source, filename string, jsonMode bool) {
	l := lexer.New(source, filename)
	tokens, diags := l.Tokenize()

	if jsonMode {
		printTokensJSON(tokens, diags)
	} else {
		printTokensText(tokens, diags)
	}

	if len(diags) > 0 {
		os.Exit(1)
	}
}

// ---- parse command ----

func cmdParse(source, filename string) {
	l := lexer.New(source, filename)
	tokens, lexDiags := l.Tokenize()

	p := parser.New(tokens)
	file, parseDiags := p.ParseFile()

	allDiags := append(lexDiags, parseDiags...)

	output := map[string]interface{}{
		"ast":         ast.NodeToMap(file),
		"diagnostics": diagsToSlice(allDiags),
	}
	printJSON(output)

	if len(allDiags) > 0 {
		os.Exit(1)
	}
}

// ---- check command ----

func cmdCheck(source, filename string, opts options) {
	file := parseOrExit(source, filename)
	diags := opts.newChecker().Check(file)

	if opts.json {
		printJSON(map[string]interface{}{"diagnostics": diagsToSlice(diags)})
	} else {
		printDiagsText(diags)
	}
	if diag.HasErrors(diags) {
		os.Exit(1)
	}
}

// ---- run command ----

func cmdRun(source, filename string, opts options) {
	file := parseOrExit(source, filename)

	if !opts.noCheck {
		diags := opts.newChecker().Check(file)
		printDiagsText(diags)
		if diag.HasErrors(diags) {
			os.Exit(1)
		}
	}

	interp := opts.newInterpreter()
	if err := interp.Run(file); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// ---- scopes command ----

func cmdScopes(source, filename string, opts options) {
	file := parseOrExit(source, filename)
	checker := opts.newChecker()
	diags := checker.Check(file)
	printDiagsText(diags)

	if opts.json {
		printJSON(scopesToMap(checker.Env()))
	} else {
		printScopesText(os.Stdout, checker.Env())
	}
	if diag.HasErrors(diags) {
		os.Exit(1)
	}
}
