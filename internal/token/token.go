// Package token defines the token types produced by the lexer.
package token

import (
	"fmt"
	"lexenv/internal/span"
)

// Kind represents the type of a token.
type Kind int

const (
	// Special tokens
	ILLEGAL Kind = iota
	EOF
	NEWLINE

	// Literals
	IDENT  // identifiers: x, area, Shape
	INT    // integer literals: 123
	FLOAT  // float literals: 3.14
	STRING // string literals: "hello"

	// Operators
	ASSIGN  // =
	PLUS    // +
	MINUS   // -
	STAR    // *
	SLASH   // /
	PERCENT // %
	BANG    // !

	EQ  // ==
	NEQ // !=
	LT  // <
	LTE // <=
	GT  // >
	GTE // >=

	AND // &&
	OR  // ||

	PIPE  // |
	ARROW // =>

	// Delimiters
	LPAREN    // (
	RPAREN    // )
	LBRACE    // {
	RBRACE    // }
	COMMA     // ,
	DOT       // .
	SEMICOLON // ;
	COLON     // :

	// Keywords
	KW_FN
	KW_TYPE
	KW_VAR
	KW_VAL
	KW_IF
	KW_ELSE
	KW_WHILE
	KW_RETURN
	KW_MATCH
	KW_TRUE
	KW_FALSE
)

var kindNames = map[Kind]string{
	ILLEGAL: "ILLEGAL",
	EOF:     "EOF",
	NEWLINE: "NEWLINE",

	IDENT:  "IDENT",
	INT:    "INT",
	FLOAT:  "FLOAT",
	STRING: "STRING",

	ASSIGN:  "=",
	PLUS:    "+",
	MINUS:   "-",
	STAR:    "*",
	SLASH:   "/",
	PERCENT: "%",
	BANG:    "!",
	EQ:      "==",
	NEQ:     "!=",
	LT:      "<",
	LTE:     "<=",
	GT:      ">",
	GTE:     ">=",
	AND:     "&&",
	OR:      "||",
	PIPE:    "|",
	ARROW:   "=>",

	LPAREN:    "(",
	RPAREN:    ")",
	LBRACE:    "{",
	RBRACE:    "}",
	COMMA:     ",",
	DOT:       ".",
	SEMICOLON: ";",
	COLON:     ":",

	KW_FN:     "fn",
	KW_TYPE:   "type",
	KW_VAR:    "var",
	KW_VAL:    "val",
	KW_IF:     "if",
	KW_ELSE:   "else",
	KW_WHILE:  "while",
	KW_RETURN: "return",
	KW_MATCH:  "match",
	KW_TRUE:   "true",
	KW_FALSE:  "false",
}

// String returns the human-readable name for a token kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsKeyword returns true if the kind is a keyword.
func (k Kind) IsKeyword() bool {
	return k >= KW_FN && k <= KW_FALSE
}

var keywords = map[string]Kind{
	"fn":     KW_FN,
	"type":   KW_TYPE,
	"var":    KW_VAR,
	"val":    KW_VAL,
	"if":     KW_IF,
	"else":   KW_ELSE,
	"while":  KW_WHILE,
	"return": KW_RETURN,
	"match":  KW_MATCH,
	"true":   KW_TRUE,
	"false":  KW_FALSE,
}

// LookupIdent returns the keyword Kind for ident, or IDENT if it is not a keyword.
func LookupIdent(ident string) Kind {
	if kind, ok := keywords[ident]; ok {
		return kind
	}
	return IDENT
}

// Token is a lexical token with its kind, text, and source location.
type Token struct {
	Kind   Kind      `json:"kind"`
	Lexeme string    `json:"lexeme"`
	Span   span.Span `json:"span"`
}

func (t Token) String() string {
	return fmt.Sprintf("%s %q %s", t.Kind, t.Lexeme, t.Span.Start)
}
