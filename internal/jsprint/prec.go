package jsprint

import (
	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/token"
)

// Operator precedence, loosest first.
const (
	precSequence = iota
	precAssign
	precConditional
	precCoalesce
	precOr
	precAnd
	precBitOr
	precBitXor
	precBitAnd
	precEquality
	precRelational
	precShift
	precAdditive
	precMultiplicative
	precExponent
	precUnary
	precPostfix
	precCall
	precPrimary
)

func binaryPrec(op token.Token) int {
	switch op {
	case token.COALESCE:
		return precCoalesce
	case token.LOGICAL_OR:
		return precOr
	case token.LOGICAL_AND:
		return precAnd
	case token.OR:
		return precBitOr
	case token.EXCLUSIVE_OR:
		return precBitXor
	case token.AND:
		return precBitAnd
	case token.EQUAL, token.NOT_EQUAL, token.STRICT_EQUAL, token.STRICT_NOT_EQUAL:
		return precEquality
	case token.LESS, token.GREATER, token.LESS_OR_EQUAL, token.GREATER_OR_EQUAL, token.IN, token.INSTANCEOF:
		return precRelational
	case token.SHIFT_LEFT, token.SHIFT_RIGHT, token.UNSIGNED_SHIFT_RIGHT:
		return precShift
	case token.PLUS, token.MINUS:
		return precAdditive
	case token.MULTIPLY, token.SLASH, token.REMAINDER:
		return precMultiplicative
	case token.EXPONENT:
		return precExponent
	}
	return precRelational
}

func prec(e ast.Expression) int {
	switch e := e.(type) {
	case *ast.SequenceExpression:
		return precSequence
	case *ast.AssignExpression, *ast.ArrowFunctionLiteral, *ast.YieldExpression, *ast.SpreadElement:
		return precAssign
	case *ast.ConditionalExpression:
		return precConditional
	case *ast.BinaryExpression:
		return binaryPrec(e.Operator)
	case *ast.UnaryExpression:
		if e.Postfix {
			return precPostfix
		}
		return precUnary
	case *ast.AwaitExpression:
		return precUnary
	case *ast.CallExpression, *ast.NewExpression, *ast.DotExpression, *ast.BracketExpression,
		*ast.OptionalChain, *ast.Optional:
		return precCall
	}
	return precPrimary
}

func isLogical(op token.Token) bool {
	return op == token.LOGICAL_AND || op == token.LOGICAL_OR
}

// leftmost returns the expression whose text starts e.
func leftmost(e ast.Expression) ast.Expression {
	for {
		switch x := e.(type) {
		case *ast.BinaryExpression:
			e = x.Left
		case *ast.AssignExpression:
			e = x.Left
		case *ast.ConditionalExpression:
			e = x.Test
		case *ast.SequenceExpression:
			if len(x.Sequence) == 0 {
				return e
			}
			e = x.Sequence[0]
		case *ast.CallExpression:
			e = x.Callee
		case *ast.DotExpression:
			e = x.Left
		case *ast.BracketExpression:
			e = x.Left
		case *ast.UnaryExpression:
			if !x.Postfix {
				return e
			}
			e = x.Operand
		default:
			return e
		}
	}
}

// needsStatementParens reports whether an expression statement would be
// misread as a block, a declaration or a let declaration.
func needsStatementParens(e ast.Expression) bool {
	switch x := leftmost(e).(type) {
	case *ast.ObjectLiteral, *ast.FunctionLiteral, *ast.ClassLiteral, *ast.ObjectPattern:
		return true
	case *ast.Identifier:
		return x.Name == "let"
	}
	return false
}
