package instrument

import (
	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/token"
)

// kindName returns the conventional (ESTree) name of a node kind. The empty
// string means the kind is unknown to the compiler.
func kindName(n ast.Node) string {
	switch n := n.(type) {
	case *ast.Program:
		return "Program"
	case *ast.BlockStatement:
		return "BlockStatement"
	case *ast.ExpressionStatement:
		return "ExpressionStatement"
	case *ast.VariableStatement, *ast.LexicalDeclaration:
		return "VariableDeclaration"
	case *ast.FunctionDeclaration:
		return "FunctionDeclaration"
	case *ast.IfStatement:
		return "IfStatement"
	case *ast.ReturnStatement:
		return "ReturnStatement"
	case *ast.WhileStatement:
		return "WhileStatement"
	case *ast.DoWhileStatement:
		return "DoWhileStatement"
	case *ast.ForStatement:
		return "ForStatement"
	case *ast.ForInStatement:
		return "ForInStatement"
	case *ast.ForOfStatement:
		return "ForOfStatement"
	case *ast.BranchStatement:
		if n.Token == token.CONTINUE {
			return "ContinueStatement"
		}
		return "BreakStatement"
	case *ast.ThrowStatement:
		return "ThrowStatement"
	case *ast.TryStatement:
		return "TryStatement"
	case *ast.CatchStatement:
		return "CatchClause"
	case *ast.SwitchStatement:
		return "SwitchStatement"
	case *ast.CaseStatement:
		return "SwitchCase"
	case *ast.LabelledStatement:
		return "LabeledStatement"
	case *ast.EmptyStatement:
		return "EmptyStatement"
	case *ast.DebuggerStatement:
		return "DebuggerStatement"

	case *ast.Identifier:
		return "Identifier"
	case *ast.NumberLiteral:
		return "NumericLiteral"
	case *ast.StringLiteral:
		return "StringLiteral"
	case *ast.BooleanLiteral:
		return "BooleanLiteral"
	case *ast.NullLiteral:
		return "NullLiteral"
	case *ast.RegExpLiteral:
		return "RegExpLiteral"
	case *ast.TemplateLiteral:
		return "TemplateLiteral"
	case *ast.ThisExpression:
		return "ThisExpression"
	case *ast.ArrayLiteral:
		return "ArrayExpression"
	case *ast.ObjectLiteral:
		return "ObjectExpression"
	case *ast.FunctionLiteral:
		return "FunctionExpression"
	case *ast.ArrowFunctionLiteral:
		return "ArrowFunctionExpression"
	case *ast.CallExpression:
		return "CallExpression"
	case *ast.NewExpression:
		return "NewExpression"
	case *ast.DotExpression, *ast.BracketExpression:
		return "MemberExpression"
	case *ast.AssignExpression:
		return "AssignmentExpression"
	case *ast.BinaryExpression:
		switch n.Operator {
		case token.LOGICAL_AND, token.LOGICAL_OR, token.COALESCE:
			return "LogicalExpression"
		}
		return "BinaryExpression"
	case *ast.UnaryExpression:
		if n.Operator == token.INCREMENT || n.Operator == token.DECREMENT {
			return "UpdateExpression"
		}
		return "UnaryExpression"
	case *ast.ConditionalExpression:
		return "ConditionalExpression"
	case *ast.SequenceExpression:
		return "SequenceExpression"
	case *ast.SpreadElement:
		return "SpreadElement"
	case *ast.AwaitExpression:
		return "AwaitExpression"
	}
	return ""
}
