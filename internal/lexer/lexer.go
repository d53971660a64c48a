// Package lexer turns lexenv source text into tokens.
package lexer

import (
	"fmt"
	"lexenv/internal/diag"
	"lexenv/internal/span"
	"lexenv/internal/token"
	"unicode"
	"unicode/utf8"
)

// Lexer tokenizes source code into a sequence of tokens.
type Lexer struct {
	source   string
	filename string

	pos  int // current read position in source
	line int // current line (1-based)
	col  int // current column (1-based)

	diags []diag.Diagnostic
}

// New creates a new Lexer for the given source text.
func New(source, filename string) *Lexer {
	return &Lexer{
		source:   source,
		filename: filename,
		line:     1,
		col:      1,
	}
}

// Tokenize scans the entire source and returns all tokens and diagnostics.
// The last token is always EOF.
func (l *Lexer) Tokenize() ([]token.Token, []diag.Diagnostic) {
	var tokens []token.Token
	for {
		tok := l.nextToken()
		tokens = append(tokens, tok)
		if tok.Kind == token.EOF {
			break
		}
	}
	return tokens, l.diags
}

// ---- internal helpers ----

func (l *Lexer) peek() byte {
	if l.pos >= len(l.source) {
		return 0
	}
	return l.source[l.pos]
}

func (l *Lexer) peekNext() byte {
	if l.pos+1 >= len(l.source) {
		return 0
	}
	return l.source[l.pos+1]
}

// advance consumes the current byte and returns it.
func (l *Lexer) advance() byte {
	ch := l.source[l.pos]
	l.pos++
	if ch == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return ch
}

func (l *Lexer) curPos() span.Position {
	return span.Position{Offset: l.pos, Line: l.line, Column: l.col}
}

func (l *Lexer) makeSpan(start span.Position) span.Span {
	return span.Span{Start: start, End: l.curPos()}
}

func (l *Lexer) emit(kind token.Kind, lexeme string, start span.Position) token.Token {
	return token.Token{Kind: kind, Lexeme: lexeme, Span: l.makeSpan(start)}
}

// skipBlank skips spaces, tabs and comments but not newlines, which are separators.
func (l *Lexer) skipBlank() {
	for l.pos < len(l.source) {
		ch := l.peek()
		switch {
		case ch == ' ' || ch == '\t' || ch == '\r':
			l.advance()
		case ch == '#' || (ch == '/' && l.peekNext() == '/'):
			for l.pos < len(l.source) && l.peek() != '\n' {
				l.advance()
			}
		default:
			return
		}
	}
}

func (l *Lexer) addError(code string, s span.Span, format string, args ...interface{}) {
	l.diags = append(l.diags, diag.Errorf(code, s, format, args...))
}

// ---- token reading ----

func (l *Lexer) nextToken() token.Token {
	l.skipBlank()

	start := l.curPos()
	if l.pos >= len(l.source) {
		return l.emit(token.EOF, "", start)
	}

	ch := l.peek()
	switch {
	case ch == '\n':
		l.advance()
		return l.emit(token.NEWLINE, "\\n", start)
	case ch == '"':
		return l.readString(start)
	case isDigit(ch):
		return l.readNumber(start)
	case isIdentStart(ch):
		return l.readIdentifier(start)
	}
	return l.readOperator(start)
}

// readString reads a double-quoted string literal with \n \t \\ \" escapes.
func (l *Lexer) readString(start span.Position) token.Token {
	l.advance() // opening "
	var value []byte

	for l.pos < len(l.source) {
		ch := l.peek()
		switch ch {
		case '"':
			l.advance()
			return l.emit(token.STRING, string(value), start)
		case '\n':
			l.addError(diag.UnterminatedString, l.makeSpan(start), "unterminated string literal")
			return l.emit(token.STRING, string(value), start)
		case '\\':
			l.advance()
			esc := l.peek()
			switch esc {
			case 'n':
				value = append(value, '\n')
			case 't':
				value = append(value, '\t')
			case '\\', '"':
				value = append(value, esc)
			default:
				l.addError(diag.UnknownEscape, l.makeSpan(start), "unknown escape sequence: \\%c", esc)
				value = append(value, esc)
			}
			if l.pos < len(l.source) {
				l.advance()
			}
		default:
			value = append(value, ch)
			l.advance()
		}
	}

	l.addError(diag.UnterminatedString, l.makeSpan(start), "unterminated string literal")
	return l.emit(token.STRING, string(value), start)
}

// readNumber reads an integer or float literal. A float needs digits on both sides of the dot.
func (l *Lexer) readNumber(start span.Position) token.Token {
	numStart := l.pos
	kind := token.INT

	for isDigit(l.peek()) {
		l.advance()
	}
	if l.peek() == '.' && isDigit(l.peekNext()) {
		kind = token.FLOAT
		l.advance()
		for isDigit(l.peek()) {
			l.advance()
		}
	}
	return l.emit(kind, l.source[numStart:l.pos], start)
}

func (l *Lexer) readIdentifier(start span.Position) token.Token {
	identStart := l.pos
	for l.pos < len(l.source) && isIdentPart(l.peek()) {
		l.advance()
	}
	lexeme := l.source[identStart:l.pos]
	return l.emit(token.LookupIdent(lexeme), lexeme, start)
}

// twoCharOps are matched before single-character operators.
var twoCharOps = map[string]token.Kind{
	"==": token.EQ,
	"!=": token.NEQ,
	"<=": token.LTE,
	">=": token.GTE,
	"&&": token.AND,
	"||": token.OR,
	"=>": token.ARROW,
}

var oneCharOps = map[byte]token.Kind{
	'=': token.ASSIGN,
	'+': token.PLUS,
	'-': token.MINUS,
	'*': token.STAR,
	'/': token.SLASH,
	'%': token.PERCENT,
	'!': token.BANG,
	'<': token.LT,
	'>': token.GT,
	'|': token.PIPE,
	'(': token.LPAREN,
	')': token.RPAREN,
	'{': token.LBRACE,
	'}': token.RBRACE,
	',': token.COMMA,
	'.': token.DOT,
	';': token.SEMICOLON,
	':': token.COLON,
}

func (l *Lexer) readOperator(start span.Position) token.Token {
	if l.pos+1 < len(l.source) {
		pair := l.source[l.pos : l.pos+2]
		if kind, ok := twoCharOps[pair]; ok {
			l.advance()
			l.advance()
			return l.emit(kind, pair, start)
		}
	}

	ch := l.advance()
	if kind, ok := oneCharOps[ch]; ok {
		return l.emit(kind, string(ch), start)
	}

	msg := fmt.Sprintf("unexpected character: '%c'", ch)
	if ch == '&' {
		msg += ", did you mean '&&'?"
	}
	l.addError(diag.UnexpectedChar, l.makeSpan(start), "%s", msg)
	return l.emit(token.ILLEGAL, string(ch), start)
}

// ---- character classification ----

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch byte) bool {
	if ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') {
		return true
	}
	if ch >= 0x80 {
		r, _ := utf8.DecodeRuneInString(string(ch))
		return unicode.IsLetter(r)
	}
	return false
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}

// IsIdentifier reports whether name would scan as a single non-keyword
// identifier token.
func IsIdentifier(name string) bool {
	if name == "" || !isIdentStart(name[0]) {
		return false
	}
	for i := 1; i < len(name); i++ {
		if !isIdentPart(name[i]) {
			return false
		}
	}
	return token.LookupIdent(name) == token.IDENT
}
