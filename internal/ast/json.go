package ast

import (
	"lexenv/internal/span"
	"lexenv/internal/token"
)

// NodeToMap converts an AST node to a map suitable for JSON serialization.
// Every node becomes a tagged union with a "kind" field.
func NodeToMap(node Node) map[string]interface{} {
	if node == nil {
		return nil
	}

	switch n := node.(type) {
	case *File:
		return m("File", n.Span, "body", stmtSlice(n.Body))

	// ---- Expressions ----
	case *IdentExpr:
		return m("IdentExpr", n.Span, "name", n.Name)
	case *IntLiteral:
		return m("IntLiteral", n.Span, "value", n.Value)
	case *FloatLiteral:
		return m("FloatLiteral", n.Span, "value", n.Value)
	case *StringLiteral:
		return m("StringLiteral", n.Span, "value", n.Value)
	case *BoolLiteral:
		return m("BoolLiteral", n.Span, "value", n.Value)
	case *UnaryExpr:
		return m("UnaryExpr", n.Span, "op", opStr(n.Op), "operand", NodeToMap(n.Operand))
	case *BinaryExpr:
		return m("BinaryExpr", n.Span,
			"op", opStr(n.Op),
			"left", NodeToMap(n.Left),
			"right", NodeToMap(n.Right))
	case *CallExpr:
		return m("CallExpr", n.Span,
			"callee", n.Callee.Name,
			"args", exprSlice(n.Args))
	case *ConstructExpr:
		return m("ConstructExpr", n.Span,
			"type", n.TypeName,
			"tag", n.Tag,
			"args", exprSlice(n.Args))

	// ---- Statements ----
	case *ExprStmt:
		return m("ExprStmt", n.Span, "expr", NodeToMap(n.Expr))
	case *AssignStmt:
		return m("AssignStmt", n.Span, "name", n.Name, "value", NodeToMap(n.Value))
	case *VarDeclStmt:
		result := m("VarDeclStmt", n.Span, "name", n.Name, "mutable", n.Mutable)
		if !n.Type.IsZero() {
			result["type"] = n.Type.Name
		}
		if n.Init != nil {
			result["init"] = NodeToMap(n.Init)
		}
		return result
	case *ReturnStmt:
		result := m("ReturnStmt", n.Span)
		if n.Value != nil {
			result["value"] = NodeToMap(n.Value)
		}
		return result
	case *BlockStmt:
		return m("BlockStmt", n.Span, "stmts", stmtSlice(n.Stmts))
	case *IfStmt:
		result := m("IfStmt", n.Span,
			"condition", NodeToMap(n.Condition),
			"body", NodeToMap(n.Body))
		if n.Else != nil {
			result["else"] = NodeToMap(n.Else)
		}
		return result
	case *WhileStmt:
		return m("WhileStmt", n.Span,
			"condition", NodeToMap(n.Condition),
			"body", NodeToMap(n.Body))
	case *MatchStmt:
		arms := make([]interface{}, len(n.Arms))
		for i, arm := range n.Arms {
			arms[i] = map[string]interface{}{
				"kind":    "MatchArm",
				"span":    spanToMap(arm.Span),
				"tag":     arm.Tag,
				"binders": arm.Binders,
				"body":    NodeToMap(arm.Body),
			}
		}
		return m("MatchStmt", n.Span, "subject", NodeToMap(n.Subject), "arms", arms)

	// ---- Declarations ----
	case *FuncDecl:
		params := make([]interface{}, len(n.Params))
		for i, p := range n.Params {
			params[i] = map[string]interface{}{"name": p.Name, "type": p.Type.Name}
		}
		result := m("FuncDecl", n.Span,
			"name", n.Name,
			"params", params,
			"result", n.Result.Name)
		if n.Body != nil {
			result["body"] = NodeToMap(n.Body)
		}
		return result
	case *TypeDecl:
		ctors := make([]interface{}, len(n.Constructors))
		for i, c := range n.Constructors {
			fields := make([]string, len(c.Fields))
			for j, f := range c.Fields {
				fields[j] = f.Name
			}
			ctors[i] = map[string]interface{}{"name": c.Name, "fields": fields}
		}
		return m("TypeDecl", n.Span, "name", n.Name, "constructors", ctors)

	default:
		return map[string]interface{}{"kind": "Unknown"}
	}
}

// ---- helpers ----

// m builds a map with kind, span, and extra key-value pairs.
func m(kind string, s span.Span, kvs ...interface{}) map[string]interface{} {
	result := map[string]interface{}{
		"kind": kind,
		"span": spanToMap(s),
	}
	for i := 0; i+1 < len(kvs); i += 2 {
		key := kvs[i].(string)
		result[key] = kvs[i+1]
	}
	return result
}

func spanToMap(s span.Span) map[string]interface{} {
	return map[string]interface{}{
		"start": map[string]interface{}{
			"line":   s.Start.Line,
			"column": s.Start.Column,
		},
		"end": map[string]interface{}{
			"line":   s.End.Line,
			"column": s.End.Column,
		},
	}
}

func stmtSlice(stmts []Stmt) []interface{} {
	result := make([]interface{}, len(stmts))
	for i, s := range stmts {
		result[i] = NodeToMap(s)
	}
	return result
}

func exprSlice(exprs []Expr) []interface{} {
	result := make([]interface{}, len(exprs))
	for i, e := range exprs {
		result[i] = NodeToMap(e)
	}
	return result
}

func opStr(kind token.Kind) string {
	return kind.String()
}
