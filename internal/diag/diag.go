// Package diag provides diagnostic (error/warning) types for the lexenv front end.
package diag

import (
	"fmt"
	"lexenv/internal/span"
	"sort"
)

// Severity indicates the severity of a diagnostic.
type Severity int

const (
	Error Severity = iota
	Warning
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	default:
		return "unknown"
	}
}

// Stable diagnostic codes. E1xxx come from the lexer, E2xxx from the parser and
// E3xxx/W3xxx from the checker.
const (
	UnterminatedString = "E1001"
	UnknownEscape      = "E1002"
	UnexpectedChar     = "E1003"

	ExpectedToken   = "E2001"
	UnexpectedToken = "E2002"
	InvalidTypeDecl = "E2003"
	InvalidPattern  = "E2004"

	DuplicateDeclaration = "E3001"
	ImmutableAssignment  = "E3002"
	UndeclaredVariable   = "E3003"
	UndefinedName        = "E3004"
	NoMatchingOverload   = "E3005"
	NotAFunction         = "E3006"
	UnknownConstructor   = "E3007"
	ArityMismatch        = "E3008"
	TypeMismatch         = "E3009"
	UnknownType          = "E3010"
	MisplacedReturn      = "E3011"
	MissingReturn        = "E3012"

	Redefinition       = "W3001"
	NonExhaustiveMatch = "W3002"
)

// Diagnostic represents a front-end diagnostic message.
type Diagnostic struct {
	Code     string    `json:"code"`           // stable error code, e.g. "E3001"
	Severity Severity  `json:"severity"`       // error or warning
	Message  string    `json:"message"`        // human-readable description
	Span     span.Span `json:"span"`           // source location
	Hint     string    `json:"hint,omitempty"` // optional hint
}

// String returns a human-readable representation of the diagnostic.
func (d Diagnostic) String() string {
	msg := fmt.Sprintf("[%s] %s at %s: %s", d.Code, d.Severity, d.Span.Start, d.Message)
	if d.Hint != "" {
		msg += " (hint: " + d.Hint + ")"
	}
	return msg
}

// WithHint returns a copy of d carrying the given hint.
func (d Diagnostic) WithHint(hint string) Diagnostic {
	d.Hint = hint
	return d
}

// Errorf creates an error diagnostic at the given span.
func Errorf(code string, s span.Span, format string, args ...interface{}) Diagnostic {
	return Diagnostic{
		Code:     code,
		Severity: Error,
		Message:  fmt.Sprintf(format, args...),
		Span:     s,
	}
}

// Warningf creates a warning diagnostic at the given span.
func Warningf(code string, s span.Span, format string, args ...interface{}) Diagnostic {
	return Diagnostic{
		Code:     code,
		Severity: Warning,
		Message:  fmt.Sprintf(format, args...),
		Span:     s,
	}
}

// HasErrors reports whether any diagnostic in diags is an error.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

// Sort orders diagnostics by source offset, keeping the emission order for ties.
func Sort(diags []Diagnostic) {
	sort.SliceStable(diags, func(i, j int) bool {
		return diags[i].Span.Start.Offset < diags[j].Span.Start.Offset
	})
}
