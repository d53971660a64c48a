// Package ast defines the abstract syntax tree for lexenv source files.
package ast

import (
	"lexenv/internal/span"
	"lexenv/internal/token"
	"strings"
)

// ============================================================
// Node interfaces
// ============================================================

// Node is the interface implemented by all AST nodes.
type Node interface {
	nodeNode()
	GetSpan() span.Span
}

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	exprNode()
}

// Stmt is the interface for statement nodes.
type Stmt interface {
	Node
	stmtNode()
}

// ============================================================
// Base types (embedded to provide common fields)
// ============================================================

// NodeBase provides the common Span field for all AST nodes.
type NodeBase struct {
	Span span.Span
}

func (n NodeBase) nodeNode()          {}
func (n NodeBase) GetSpan() span.Span { return n.Span }

// ExprBase is embedded by all expression nodes.
type ExprBase struct{ NodeBase }

func (ExprBase) exprNode() {}

// StmtBase is embedded by all statement nodes.
type StmtBase struct{ NodeBase }

func (StmtBase) stmtNode() {}

// ============================================================
// Types
// ============================================================

// Type names a type. Types are nominal: two types are the same iff their names are.
type Type struct {
	Name string
}

// Built-in types.
var (
	IntType    = Type{Name: "Int"}
	FloatType  = Type{Name: "Float"}
	StringType = Type{Name: "String"}
	BoolType   = Type{Name: "Bool"}
	UnitType   = Type{Name: "Unit"}
)

// Named returns the type with the given name.
func Named(name string) Type { return Type{Name: name} }

func (t Type) String() string {
	if t.Name == "" {
		return "<unknown>"
	}
	return t.Name
}

// IsZero reports whether t is the unset type.
func (t Type) IsZero() bool { return t.Name == "" }

// IsPrimitive reports whether t is one of the built-in types.
func (t Type) IsPrimitive() bool {
	switch t {
	case IntType, FloatType, StringType, BoolType, UnitType:
		return true
	}
	return false
}

// IsNumeric reports whether t supports arithmetic.
func (t Type) IsNumeric() bool {
	return t == IntType || t == FloatType
}

// TypeList renders ts as "A, B, C".
func TypeList(ts []Type) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}

// ============================================================
// File (top-level AST root)
// ============================================================

// File represents an entire source file.
type File struct {
	NodeBase
	Body []Stmt // top-level statements and declarations
}

// ============================================================
// Expressions
// ============================================================

// IdentExpr represents an identifier reference.
type IdentExpr struct {
	ExprBase
	Name string
}

// IntLiteral represents an integer literal.
type IntLiteral struct {
	ExprBase
	Value int64
}

// FloatLiteral represents a floating-point literal.
type FloatLiteral struct {
	ExprBase
	Value float64
}

// StringLiteral represents a string literal.
type StringLiteral struct {
	ExprBase
	Value string
}

// BoolLiteral represents true or false.
type BoolLiteral struct {
	ExprBase
	Value bool
}

// UnaryExpr represents a unary operation: !x, -x.
type UnaryExpr struct {
	ExprBase
	Op      token.Kind
	Operand Expr
}

// BinaryExpr represents a binary operation: a + b, x == y.
type BinaryExpr struct {
	ExprBase
	Op    token.Kind
	Left  Expr
	Right Expr
}

// CallExpr represents a call of a named function: f(a, b).
// Functions are first-order, so the callee is always an identifier.
type CallExpr struct {
	ExprBase
	Callee *IdentExpr
	Args   []Expr
}

// ConstructExpr applies a value constructor: Shape.Circle(1.0) or Shape.Empty.
type ConstructExpr struct {
	ExprBase
	TypeName string
	Tag      string
	Args     []Expr
}

// ============================================================
// Statements
// ============================================================

// ExprStmt is an expression evaluated for its effect.
type ExprStmt struct {
	StmtBase
	Expr Expr
}

// VarDeclStmt represents: (var | val) name [: Type] = init.
type VarDeclStmt struct {
	StmtBase
	Name     string
	Mutable  bool // var is mutable, val is not
	Type     Type // zero when inferred from Init
	TypeSpan span.Span
	Init     Expr
}

// AssignStmt represents: name = value.
type AssignStmt struct {
	StmtBase
	Name     string
	NameSpan span.Span
	Value    Expr
}

// ReturnStmt represents: return [value].
type ReturnStmt struct {
	StmtBase
	Value Expr // may be nil
}

// BlockStmt represents: { stmts }. Every block opens a scope.
type BlockStmt struct {
	StmtBase
	Stmts []Stmt
}

// IfStmt represents: if cond { ... } [else { ... }].
// "else if" is parsed as an Else block holding a single IfStmt.
type IfStmt struct {
	StmtBase
	Condition Expr
	Body      *BlockStmt
	Else      *BlockStmt // may be nil
}

// WhileStmt represents: while cond { ... }.
type WhileStmt struct {
	StmtBase
	Condition Expr
	Body      *BlockStmt
}

// MatchStmt represents: match subject { Tag(a, b) => { ... } ... }.
type MatchStmt struct {
	StmtBase
	Subject Expr
	Arms    []MatchArm
}

// MatchArm is one constructor pattern with its body.
type MatchArm struct {
	Span    span.Span
	Tag     string
	Binders []string // one name per constructor field; "_" discards
	Body    *BlockStmt
}

// ============================================================
// Declarations (also implement Stmt for block-level use)
// ============================================================

// Param is a typed function parameter.
type Param struct {
	Name string    `json:"name"`
	Type Type      `json:"type"`
	Span span.Span `json:"-"`
}

// FuncDecl represents: fn name(params) [: Result] { ... }.
// A nil Body marks a native function supplied by the host (see internal/prelude).
type FuncDecl struct {
	StmtBase
	Name   string
	Params []Param
	Result Type // UnitType when omitted
	Body   *BlockStmt
}

// ParamTypes returns the declared parameter types in order.
func (f *FuncDecl) ParamTypes() []Type {
	out := make([]Type, len(f.Params))
	for i, p := range f.Params {
		out[i] = p.Type
	}
	return out
}

// IsNative reports whether the function has no source body.
func (f *FuncDecl) IsNative() bool { return f.Body == nil }

// Constructor is one value constructor of an algebraic data type.
type Constructor struct {
	Name   string    `json:"name"`
	Fields []Type    `json:"fields"`
	Span   span.Span `json:"-"`
}

// TypeDecl represents: type Name = Tag(Fields) | Tag | ...
type TypeDecl struct {
	StmtBase
	Name         string
	Constructors []Constructor
}

// FindConstructor returns the constructor named tag within ctors.
func FindConstructor(ctors []Constructor, tag string) (Constructor, bool) {
	for _, c := range ctors {
		if c.Name == tag {
			return c, true
		}
	}
	return Constructor{}, false
}
