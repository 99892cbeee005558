package instrument

import (
	"strconv"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/file"
	"github.com/dop251/goja/token"
	"github.com/dop251/goja/unistring"

	"stepper/internal/value"
)

// mk builds synthetic nodes. Every node it makes carries the position of the
// source node it stands in for, so engine errors still point somewhere sane.
type mk struct {
	at file.Idx
}

func at(n ast.Node) mk {
	return mk{at: n.Idx0()}
}

func (m mk) ident(name string) *ast.Identifier {
	return &ast.Identifier{Name: unistring.NewFromString(name), Idx: m.at}
}

func (m mk) num(n int) *ast.NumberLiteral {
	return &ast.NumberLiteral{Idx: m.at, Literal: strconv.Itoa(n), Value: int64(n)}
}

func (m mk) str(s string) *ast.StringLiteral {
	return &ast.StringLiteral{Idx: m.at, Literal: value.Quote(s), Value: unistring.NewFromString(s)}
}

func (m mk) boolean(v bool) *ast.BooleanLiteral {
	return &ast.BooleanLiteral{Idx: m.at, Literal: strconv.FormatBool(v), Value: v}
}

func (m mk) void0() ast.Expression {
	return &ast.UnaryExpression{Operator: token.VOID, Idx: m.at, Operand: m.num(0)}
}

func (m mk) not(x ast.Expression) ast.Expression {
	return &ast.UnaryExpression{Operator: token.NOT, Idx: m.at, Operand: x}
}

func (m mk) plus(x ast.Expression) ast.Expression {
	return &ast.UnaryExpression{Operator: token.PLUS, Idx: m.at, Operand: x}
}

func (m mk) binary(op token.Token, l, r ast.Expression) ast.Expression {
	return &ast.BinaryExpression{Operator: op, Left: l, Right: r}
}

func (m mk) assign(target, v ast.Expression) ast.Expression {
	return &ast.AssignExpression{Operator: token.ASSIGN, Left: target, Right: v}
}

func (m mk) dot(left ast.Expression, name string) *ast.DotExpression {
	return &ast.DotExpression{Left: left, Identifier: ast.Identifier{Name: unistring.NewFromString(name), Idx: m.at}}
}

func (m mk) member(left ast.Expression, name ast.Identifier) *ast.DotExpression {
	return &ast.DotExpression{Left: left, Identifier: ast.Identifier{Name: name.Name, Idx: name.Idx}}
}

func (m mk) index(left, key ast.Expression) *ast.BracketExpression {
	return &ast.BracketExpression{Left: left, Member: key, LeftBracket: m.at, RightBracket: m.at}
}

func (m mk) call(callee ast.Expression, args ...ast.Expression) *ast.CallExpression {
	return &ast.CallExpression{Callee: callee, LeftParenthesis: m.at, ArgumentList: args, RightParenthesis: m.at}
}

func (m mk) seq(list ...ast.Expression) ast.Expression {
	if len(list) == 1 {
		return list[0]
	}
	return &ast.SequenceExpression{Sequence: list}
}

func (m mk) array(elems ...ast.Expression) *ast.ArrayLiteral {
	return &ast.ArrayLiteral{LeftBracket: m.at, RightBracket: m.at, Value: elems}
}

func (m mk) object(props ...ast.Property) *ast.ObjectLiteral {
	return &ast.ObjectLiteral{LeftBrace: m.at, RightBrace: m.at, Value: props}
}

func (m mk) prop(key string, v ast.Expression) *ast.PropertyKeyed {
	return &ast.PropertyKeyed{Key: m.str(key), Kind: ast.PropertyKindValue, Value: v}
}

func (m mk) exprStmt(x ast.Expression) ast.Statement {
	return &ast.ExpressionStatement{Expression: x}
}

func (m mk) block(list ...ast.Statement) *ast.BlockStatement {
	return &ast.BlockStatement{LeftBrace: m.at, List: list, RightBrace: m.at}
}

func (m mk) breakIfNot(x ast.Expression) ast.Statement {
	return &ast.IfStatement{
		If:         m.at,
		Test:       m.not(x),
		Consequent: &ast.BranchStatement{Idx: m.at, Token: token.BREAK},
	}
}

func (m mk) vars(names ...string) *ast.VariableDeclaration {
	list := make([]*ast.Binding, 0, len(names))
	for _, n := range names {
		list = append(list, &ast.Binding{Target: m.ident(n)})
	}
	return &ast.VariableDeclaration{Var: m.at, List: list}
}

// detach clones an identifier so the copy is never mistaken for a source
// node by the visited set or the scope table.
func detach(id *ast.Identifier) *ast.Identifier {
	return &ast.Identifier{Name: id.Name, Idx: id.Idx}
}
