// Package parser implements the syntax analysis for lexenv source files.
// It uses Pratt parsing for expressions and recursive descent for statements/declarations.
package parser

import (
	"fmt"
	"lexenv/internal/ast"
	"lexenv/internal/diag"
	"lexenv/internal/span"
	"lexenv/internal/token"
	"strconv"
)

// ============================================================
// Binding power (precedence) levels
// ============================================================

const (
	bpNone       = 0
	bpOr         = 10 // ||
	bpAnd        = 20 // &&
	bpEquality   = 30 // == !=
	bpComparison = 40 // < <= > >=
	bpAdditive   = 50 // + -
	bpMultiply   = 60 // * / %
	bpPrefix     = 70 // ! -
)

// infixBP returns the left binding power for an infix operator.
func infixBP(kind token.Kind) int {
	switch kind {
	case token.OR:
		return bpOr
	case token.AND:
		return bpAnd
	case token.EQ, token.NEQ:
		return bpEquality
	case token.LT, token.LTE, token.GT, token.GTE:
		return bpComparison
	case token.PLUS, token.MINUS:
		return bpAdditive
	case token.STAR, token.SLASH, token.PERCENT:
		return bpMultiply
	default:
		return bpNone
	}
}

// ============================================================
// Parser
// ============================================================

// Parser performs syntax analysis on a stream of tokens.
type Parser struct {
	tokens []token.Token
	pos    int
	diags  []diag.Diagnostic
}

// New creates a new parser from a token slice.
func New(tokens []token.Token) *Parser {
	return &Parser{tokens: tokens}
}

// ParseFile parses the entire file and returns the AST root and diagnostics.
func (p *Parser) ParseFile() (*ast.File, []diag.Diagnostic) {
	file := &ast.File{}
	startPos := p.peek().Span.Start

	p.skipSep()
	for !p.isAtEnd() {
		if stmt := p.parseStmt(); stmt != nil {
			file.Body = append(file.Body, stmt)
		}
		p.skipSep()
	}

	file.Span = span.Span{Start: startPos, End: p.peek().Span.End}
	return file, p.diags
}

// ---- navigation helpers ----

func (p *Parser) peek() token.Token {
	if p.pos >= len(p.tokens) {
		return token.Token{Kind: token.EOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) peekKind() token.Kind {
	return p.peek().Kind
}

// peekAt returns the kind of the token n positions ahead.
func (p *Parser) peekAt(n int) token.Kind {
	if p.pos+n >= len(p.tokens) {
		return token.EOF
	}
	return p.tokens[p.pos+n].Kind
}

func (p *Parser) advance() token.Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *Parser) check(kind token.Kind) bool {
	return p.peekKind() == kind
}

func (p *Parser) match(kinds ...token.Kind) bool {
	for _, k := range kinds {
		if p.check(k) {
			return true
		}
	}
	return false
}

func (p *Parser) expect(kind token.Kind) (token.Token, bool) {
	if p.check(kind) {
		return p.advance(), true
	}
	tok := p.peek()
	p.error(diag.ExpectedToken, tok.Span, fmt.Sprintf("expected '%s', got '%s'", kind, tok.Kind))
	return tok, false
}

func (p *Parser) isAtEnd() bool {
	return p.peekKind() == token.EOF
}

// skipSep skips NEWLINE and SEMICOLON tokens (separators).
func (p *Parser) skipSep() {
	for p.match(token.NEWLINE, token.SEMICOLON) {
		p.advance()
	}
}

func (p *Parser) skipNewlines() {
	for p.check(token.NEWLINE) {
		p.advance()
	}
}

// nextAfterNewlines returns the first non-NEWLINE token kind without consuming anything.
func (p *Parser) nextAfterNewlines() token.Kind {
	for i := 0; ; i++ {
		if k := p.peekAt(i); k != token.NEWLINE {
			return k
		}
	}
}

func (p *Parser) error(code string, s span.Span, msg string) {
	p.diags = append(p.diags, diag.Errorf(code, s, "%s", msg))
}

func (p *Parser) prevEnd() span.Position {
	if p.pos > 0 && p.pos-1 < len(p.tokens) {
		return p.tokens[p.pos-1].Span.End
	}
	return p.peek().Span.Start
}

func (p *Parser) makeSpan(start span.Position) span.Span {
	return span.Span{Start: start, End: p.prevEnd()}
}

func makeExprBase(start, end span.Position) ast.ExprBase {
	return ast.ExprBase{NodeBase: ast.NodeBase{Span: span.Span{Start: start, End: end}}}
}

func makeStmtBase(start, end span.Position) ast.StmtBase {
	return ast.StmtBase{NodeBase: ast.NodeBase{Span: span.Span{Start: start, End: end}}}
}

// ============================================================
// Error recovery
// ============================================================

// synchronize skips tokens until a likely statement boundary.
func (p *Parser) synchronize() {
	for !p.isAtEnd() {
		if p.match(token.NEWLINE, token.SEMICOLON) {
			p.advance()
			return
		}
		if p.check(token.RBRACE) {
			return
		}
		if p.match(token.KW_FN, token.KW_TYPE, token.KW_VAR, token.KW_VAL, token.KW_IF,
			token.KW_WHILE, token.KW_RETURN, token.KW_MATCH) {
			return
		}
		p.advance()
	}
}

// ============================================================
// Statement parsing
// ============================================================

func (p *Parser) parseStmt() ast.Stmt {
	switch p.peekKind() {
	case token.KW_FN:
		return p.parseFuncDecl()
	case token.KW_TYPE:
		return p.parseTypeDecl()
	case token.KW_VAR, token.KW_VAL:
		return p.parseVarDecl()
	case token.KW_IF:
		return p.parseIfStmt()
	case token.KW_WHILE:
		return p.parseWhileStmt()
	case token.KW_RETURN:
		return p.parseReturnStmt()
	case token.KW_MATCH:
		return p.parseMatchStmt()
	case token.LBRACE:
		return p.parseBlock()
	case token.IDENT:
		if p.peekAt(1) == token.ASSIGN {
			return p.parseAssign()
		}
	}
	return p.parseExprStmt()
}

// parseVarDecl parses: (var | val) IDENT [: Type] = expr
func (p *Parser) parseVarDecl() ast.Stmt {
	start := p.advance() // 'var' or 'val'
	stmt := &ast.VarDeclStmt{Mutable: start.Kind == token.KW_VAR}

	nameTok, ok := p.expect(token.IDENT)
	if !ok {
		p.synchronize()
		stmt.Span = p.makeSpan(start.Span.Start)
		return stmt
	}
	stmt.Name = nameTok.Lexeme

	if p.check(token.COLON) {
		p.advance()
		stmt.Type, stmt.TypeSpan = p.parseType()
	}

	if _, ok := p.expect(token.ASSIGN); !ok {
		p.synchronize()
		stmt.Span = p.makeSpan(start.Span.Start)
		return stmt
	}
	stmt.Init = p.parseRequiredExpr()
	stmt.Span = p.makeSpan(start.Span.Start)
	return stmt
}

// parseAssign parses: IDENT = expr
func (p *Parser) parseAssign() ast.Stmt {
	nameTok := p.advance()
	p.advance() // '='
	value := p.parseRequiredExpr()
	return &ast.AssignStmt{
		StmtBase: makeStmtBase(nameTok.Span.Start, p.prevEnd()),
		Name:     nameTok.Lexeme,
		NameSpan: nameTok.Span,
		Value:    value,
	}
}

func (p *Parser) parseExprStmt() ast.Stmt {
	tok := p.peek()
	expr := p.parseExpr(bpNone)
	if expr == nil {
		p.error(diag.UnexpectedToken, tok.Span, fmt.Sprintf("unexpected token: '%s'", tok.Lexeme))
		p.advance()
		p.synchronize()
		return nil
	}
	return &ast.ExprStmt{
		StmtBase: makeStmtBase(expr.GetSpan().Start, expr.GetSpan().End),
		Expr:     expr,
	}
}

// parseIfStmt parses: if expr block [else (if ... | block)]
func (p *Parser) parseIfStmt() *ast.IfStmt {
	start := p.advance() // 'if'
	stmt := &ast.IfStmt{}
	stmt.Condition = p.parseRequiredExpr()
	stmt.Body = p.parseBlock()

	if p.check(token.KW_ELSE) {
		p.advance()
		if p.check(token.KW_IF) {
			nested := p.parseIfStmt()
			stmt.Else = &ast.BlockStmt{
				StmtBase: makeStmtBase(nested.Span.Start, nested.Span.End),
				Stmts:    []ast.Stmt{nested},
			}
		} else {
			stmt.Else = p.parseBlock()
		}
	}

	stmt.Span = p.makeSpan(start.Span.Start)
	return stmt
}

// parseWhileStmt parses: while expr block
func (p *Parser) parseWhileStmt() *ast.WhileStmt {
	start := p.advance() // 'while'
	stmt := &ast.WhileStmt{}
	stmt.Condition = p.parseRequiredExpr()
	stmt.Body = p.parseBlock()
	stmt.Span = p.makeSpan(start.Span.Start)
	return stmt
}

// parseReturnStmt parses: return [expr]
func (p *Parser) parseReturnStmt() *ast.ReturnStmt {
	start := p.advance() // 'return'
	stmt := &ast.ReturnStmt{}
	if !p.match(token.NEWLINE, token.SEMICOLON, token.RBRACE, token.EOF) {
		stmt.Value = p.parseRequiredExpr()
	}
	stmt.Span = p.makeSpan(start.Span.Start)
	return stmt
}

// parseMatchStmt parses: match expr { Tag(binders) => block ... }
func (p *Parser) parseMatchStmt() *ast.MatchStmt {
	start := p.advance() // 'match'
	stmt := &ast.MatchStmt{}
	stmt.Subject = p.parseRequiredExpr()

	if _, ok := p.expect(token.LBRACE); !ok {
		p.synchronize()
		stmt.Span = p.makeSpan(start.Span.Start)
		return stmt
	}
	p.skipSep()
	for !p.check(token.RBRACE) && !p.isAtEnd() {
		if arm, ok := p.parseMatchArm(); ok {
			stmt.Arms = append(stmt.Arms, arm)
		} else {
			p.synchronize()
		}
		p.skipSep()
	}
	p.expect(token.RBRACE)
	stmt.Span = p.makeSpan(start.Span.Start)
	return stmt
}

func (p *Parser) parseMatchArm() (ast.MatchArm, bool) {
	arm := ast.MatchArm{}
	tagTok, ok := p.expect(token.IDENT)
	if !ok {
		return arm, false
	}
	arm.Tag = tagTok.Lexeme

	if p.check(token.LPAREN) {
		p.advance()
		for !p.check(token.RPAREN) {
			binder, ok := p.expect(token.IDENT)
			if !ok {
				p.error(diag.InvalidPattern, binder.Span, "constructor patterns bind plain names")
				return arm, false
			}
			arm.Binders = append(arm.Binders, binder.Lexeme)
			if !p.check(token.COMMA) {
				break
			}
			p.advance()
		}
		if _, ok := p.expect(token.RPAREN); !ok {
			return arm, false
		}
	}

	if _, ok := p.expect(token.ARROW); !ok {
		return arm, false
	}
	arm.Body = p.parseBlock()
	arm.Span = p.makeSpan(tagTok.Span.Start)
	return arm, true
}

// parseBlock parses: { stmts }
func (p *Parser) parseBlock() *ast.BlockStmt {
	start := p.peek()
	block := &ast.BlockStmt{}

	if _, ok := p.expect(token.LBRACE); !ok {
		p.synchronize()
		block.Span = p.makeSpan(start.Span.Start)
		return block
	}

	p.skipSep()
	for !p.check(token.RBRACE) && !p.isAtEnd() {
		if stmt := p.parseStmt(); stmt != nil {
			block.Stmts = append(block.Stmts, stmt)
		}
		p.skipSep()
	}

	p.expect(token.RBRACE)
	block.Span = p.makeSpan(start.Span.Start)
	return block
}

// ============================================================
// Declaration parsing
// ============================================================

// parseFuncDecl parses: fn IDENT ( name: Type, ... ) [: Type] block
func (p *Parser) parseFuncDecl() ast.Stmt {
	start := p.advance() // 'fn'
	decl := &ast.FuncDecl{Result: ast.UnitType}

	nameTok, ok := p.expect(token.IDENT)
	if !ok {
		p.synchronize()
		decl.Span = p.makeSpan(start.Span.Start)
		return decl
	}
	decl.Name = nameTok.Lexeme
	decl.Params = p.parseParamList()

	if p.check(token.COLON) {
		p.advance()
		decl.Result, _ = p.parseType()
	}

	decl.Body = p.parseBlock()
	decl.Span = p.makeSpan(start.Span.Start)
	return decl
}

// parseParamList parses: ( name: Type, ... )
func (p *Parser) parseParamList() []ast.Param {
	var params []ast.Param

	if _, ok := p.expect(token.LPAREN); !ok {
		return params
	}
	p.skipNewlines()
	for !p.check(token.RPAREN) && !p.isAtEnd() {
		nameTok, ok := p.expect(token.IDENT)
		if !ok {
			break
		}
		param := ast.Param{Name: nameTok.Lexeme}
		if _, ok := p.expect(token.COLON); ok {
			param.Type, _ = p.parseType()
		}
		param.Span = p.makeSpan(nameTok.Span.Start)
		params = append(params, param)

		p.skipNewlines()
		if !p.check(token.COMMA) {
			break
		}
		p.advance()
		p.skipNewlines()
	}
	p.expect(token.RPAREN)
	return params
}

// parseType parses a type name.
func (p *Parser) parseType() (ast.Type, span.Span) {
	tok, ok := p.expect(token.IDENT)
	if !ok {
		return ast.Type{}, tok.Span
	}
	return ast.Named(tok.Lexeme), tok.Span
}

// parseTypeDecl parses: type IDENT = [|] Ctor { | Ctor }
// Constructors may continue on following lines when the line starts with '|'.
func (p *Parser) parseTypeDecl() ast.Stmt {
	start := p.advance() // 'type'
	decl := &ast.TypeDecl{}

	nameTok, ok := p.expect(token.IDENT)
	if !ok {
		p.synchronize()
		decl.Span = p.makeSpan(start.Span.Start)
		return decl
	}
	decl.Name = nameTok.Lexeme

	if _, ok := p.expect(token.ASSIGN); !ok {
		p.synchronize()
		decl.Span = p.makeSpan(start.Span.Start)
		return decl
	}
	p.skipNewlines()
	if p.check(token.PIPE) {
		p.advance()
	}

	for {
		ctor, ok := p.parseConstructor()
		if !ok {
			p.synchronize()
			break
		}
		decl.Constructors = append(decl.Constructors, ctor)
		if p.nextAfterNewlines() != token.PIPE {
			break
		}
		p.skipNewlines()
		p.advance() // '|'
		p.skipNewlines()
	}

	if len(decl.Constructors) == 0 {
		p.error(diag.InvalidTypeDecl, nameTok.Span, fmt.Sprintf("type '%s' declares no constructors", decl.Name))
	}
	decl.Span = p.makeSpan(start.Span.Start)
	return decl
}

func (p *Parser) parseConstructor() (ast.Constructor, bool) {
	tagTok, ok := p.expect(token.IDENT)
	if !ok {
		return ast.Constructor{}, false
	}
	ctor := ast.Constructor{Name: tagTok.Lexeme}
	if p.check(token.LPAREN) {
		p.advance()
		for !p.check(token.RPAREN) && !p.isAtEnd() {
			field, _ := p.parseType()
			if field.IsZero() {
				return ctor, false
			}
			ctor.Fields = append(ctor.Fields, field)
			if !p.check(token.COMMA) {
				break
			}
			p.advance()
		}
		if _, ok := p.expect(token.RPAREN); !ok {
			return ctor, false
		}
	}
	ctor.Span = p.makeSpan(tagTok.Span.Start)
	return ctor, true
}

// ============================================================
// Expression parsing (Pratt / precedence climbing)
// ============================================================

// parseRequiredExpr parses an expression and reports an error when none is present.
func (p *Parser) parseRequiredExpr() ast.Expr {
	tok := p.peek()
	expr := p.parseExpr(bpNone)
	if expr == nil {
		p.error(diag.UnexpectedToken, tok.Span, fmt.Sprintf("expected expression, got '%s'", tok.Kind))
	}
	return expr
}

// parseExpr parses an expression with the given minimum binding power.
func (p *Parser) parseExpr(minBP int) ast.Expr {
	left := p.nud()
	if left == nil {
		return nil
	}

	for {
		bp := infixBP(p.peekKind())
		if bp <= minBP {
			break
		}
		opTok := p.advance()
		p.skipNewlines() // allow continuation on next line after operator
		right := p.parseExpr(bp)
		if right == nil {
			p.error(diag.UnexpectedToken, p.peek().Span,
				fmt.Sprintf("expected operand after '%s'", opTok.Kind))
			return left
		}
		left = &ast.BinaryExpr{
			ExprBase: makeExprBase(left.GetSpan().Start, right.GetSpan().End),
			Op:       opTok.Kind,
			Left:     left,
			Right:    right,
		}
	}
	return left
}

// nud handles prefix (null denotation) parsing.
func (p *Parser) nud() ast.Expr {
	tok := p.peek()

	switch tok.Kind {
	case token.INT:
		p.advance()
		val, err := strconv.ParseInt(tok.Lexeme, 10, 64)
		if err != nil {
			p.error(diag.UnexpectedToken, tok.Span, fmt.Sprintf("integer literal out of range: %s", tok.Lexeme))
		}
		return &ast.IntLiteral{ExprBase: makeExprBase(tok.Span.Start, tok.Span.End), Value: val}

	case token.FLOAT:
		p.advance()
		val, _ := strconv.ParseFloat(tok.Lexeme, 64)
		return &ast.FloatLiteral{ExprBase: makeExprBase(tok.Span.Start, tok.Span.End), Value: val}

	case token.STRING:
		p.advance()
		return &ast.StringLiteral{ExprBase: makeExprBase(tok.Span.Start, tok.Span.End), Value: tok.Lexeme}

	case token.KW_TRUE, token.KW_FALSE:
		p.advance()
		return &ast.BoolLiteral{
			ExprBase: makeExprBase(tok.Span.Start, tok.Span.End),
			Value:    tok.Kind == token.KW_TRUE,
		}

	case token.IDENT:
		p.advance()
		ident := &ast.IdentExpr{ExprBase: makeExprBase(tok.Span.Start, tok.Span.End), Name: tok.Lexeme}
		switch p.peekKind() {
		case token.LPAREN:
			args := p.parseArgs()
			return &ast.CallExpr{
				ExprBase: makeExprBase(tok.Span.Start, p.prevEnd()),
				Callee:   ident,
				Args:     args,
			}
		case token.DOT:
			return p.parseConstruct(tok)
		}
		return ident

	case token.LPAREN:
		p.advance()
		p.skipNewlines()
		expr := p.parseExpr(bpNone)
		p.skipNewlines()
		p.expect(token.RPAREN)
		return expr

	case token.BANG, token.MINUS:
		p.advance()
		operand := p.parseExpr(bpPrefix)
		if operand == nil {
			p.error(diag.UnexpectedToken, p.peek().Span, fmt.Sprintf("expected operand after '%s'", tok.Kind))
			return nil
		}
		return &ast.UnaryExpr{
			ExprBase: makeExprBase(tok.Span.Start, operand.GetSpan().End),
			Op:       tok.Kind,
			Operand:  operand,
		}

	default:
		return nil
	}
}

// parseConstruct parses the rest of: TypeName . Tag [ ( args ) ]
func (p *Parser) parseConstruct(typeTok token.Token) ast.Expr {
	p.advance() // '.'
	tagTok, ok := p.expect(token.IDENT)
	expr := &ast.ConstructExpr{TypeName: typeTok.Lexeme}
	if ok {
		expr.Tag = tagTok.Lexeme
		if p.check(token.LPAREN) {
			expr.Args = p.parseArgs()
		}
	}
	expr.ExprBase = makeExprBase(typeTok.Span.Start, p.prevEnd())
	return expr
}

// parseArgs parses: ( expr, ... )
func (p *Parser) parseArgs() []ast.Expr {
	p.advance() // '('
	var args []ast.Expr

	p.skipNewlines()
	for !p.check(token.RPAREN) && !p.isAtEnd() {
		arg := p.parseRequiredExpr()
		if arg == nil {
			break
		}
		args = append(args, arg)
		p.skipNewlines()
		if !p.check(token.COMMA) {
			break
		}
		p.advance()
		p.skipNewlines()
	}
	p.expect(token.RPAREN)
	return args
}
