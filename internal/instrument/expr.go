package instrument

import (
	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/token"

	"stepper/internal/diag"
	"stepper/internal/step"
)

// after reports the value of v as the result of source node n.
func (c *compiler) after(v ast.Expression, n ast.Node) ast.Expression {
	if c.quiet() {
		return v
	}
	return c.report(v, step.CategoryExpression, step.TimeAfter, n, c.scopeOf(n))
}

func (c *compiler) exprs(list []ast.Expression) {
	for i, e := range list {
		list[i] = c.expr(e)
	}
}

func (c *compiler) expr(e ast.Expression) ast.Expression {
	if e == nil {
		return nil
	}
	if c.visit(e) {
		return e
	}

	switch e := e.(type) {
	case *ast.Identifier, *ast.NumberLiteral, *ast.StringLiteral, *ast.BooleanLiteral,
		*ast.NullLiteral, *ast.RegExpLiteral, *ast.ThisExpression:
		return c.after(e, e)

	case *ast.TemplateLiteral:
		c.exprs(e.Expressions)
		return c.after(e, e)

	case *ast.ArrayLiteral:
		c.exprs(e.Value)
		return c.after(e, e)

	case *ast.ObjectLiteral:
		c.object(e)
		return c.after(e, e)

	case *ast.FunctionLiteral:
		c.function(e)
		return c.after(e, e)

	case *ast.ArrowFunctionLiteral:
		c.arrow(e)
		return c.after(e, e)

	case *ast.CallExpression:
		return c.call(e)

	case *ast.NewExpression:
		e.Callee = c.expr(e.Callee)
		c.exprs(e.ArgumentList)
		return c.after(e, e)

	case *ast.DotExpression:
		e.Left = c.expr(e.Left)
		return c.after(e, e)

	case *ast.BracketExpression:
		e.Left = c.expr(e.Left)
		e.Member = c.expr(e.Member)
		return c.after(e, e)

	case *ast.AssignExpression:
		e.Left = c.target(e.Left)
		e.Right = c.expr(e.Right)
		return c.after(e, e)

	case *ast.BinaryExpression:
		e.Left = c.expr(e.Left)
		e.Right = c.expr(e.Right)
		return c.after(e, e)

	case *ast.UnaryExpression:
		return c.unary(e)

	case *ast.ConditionalExpression:
		e.Test = c.expr(e.Test)
		e.Consequent = c.expr(e.Consequent)
		e.Alternate = c.expr(e.Alternate)
		return c.after(e, e)

	case *ast.SequenceExpression:
		c.exprs(e.Sequence)
		return c.after(e, e)

	case *ast.SpreadElement:
		e.Expression = c.expr(e.Expression)
		return e

	case *ast.AwaitExpression:
		e.Argument = c.expr(e.Argument)
		return c.after(e, e)
	}

	c.errorf(diag.InsUnknownNode, e, "cannot instrument %T", e)
	return e
}

func (c *compiler) unary(e *ast.UnaryExpression) ast.Expression {
	switch e.Operator {
	case token.INCREMENT, token.DECREMENT:
		return c.update(e)
	case token.TYPEOF:
		// typeof of an undeclared name must not throw.
		if id, ok := e.Operand.(*ast.Identifier); ok && c.table.Resolve(id) == nil {
			c.visit(id)
			return c.after(e, e)
		}
	case token.DELETE:
		e.Operand = c.reference(e.Operand)
		return c.after(e, e)
	}
	e.Operand = c.expr(e.Operand)
	return c.after(e, e)
}

// reference rewrites the parts of a delete operand without turning the
// operand itself into a value.
func (c *compiler) reference(e ast.Expression) ast.Expression {
	switch r := e.(type) {
	case *ast.Identifier:
		c.visit(r)
		return r
	case *ast.DotExpression:
		c.visit(r)
		r.Left = c.expr(r.Left)
		return r
	case *ast.BracketExpression:
		c.visit(r)
		r.Left = c.expr(r.Left)
		r.Member = c.expr(r.Member)
		return r
	}
	return c.expr(e)
}

// target rewrites an assignment target. Only the key of a computed member
// target is reported.
func (c *compiler) target(e ast.Expression) ast.Expression {
	if c.visit(e) {
		return e
	}
	switch t := e.(type) {
	case *ast.DotExpression:
		c.mute++
		t.Left = c.expr(t.Left)
		c.mute--
	case *ast.BracketExpression:
		c.mute++
		t.Left = c.expr(t.Left)
		c.mute--
		t.Member = c.expr(t.Member)
	}
	return e
}

// call keeps the receiver of a member callee: the object goes through a
// slot and the reported callee is invoked with .call(slot, ...).
func (c *compiler) call(e *ast.CallExpression) ast.Expression {
	if c.quiet() {
		e.Callee = c.expr(e.Callee)
		c.exprs(e.ArgumentList)
		return e
	}

	var member ast.Expression
	m := at(e.Callee)
	recv := ""
	switch callee := e.Callee.(type) {
	case *ast.DotExpression:
		c.visit(callee)
		recv = c.slot()
		member = m.member(m.assign(m.ident(recv), c.expr(callee.Left)), callee.Identifier)
	case *ast.BracketExpression:
		c.visit(callee)
		recv = c.slot()
		member = m.index(m.assign(m.ident(recv), c.expr(callee.Left)), c.expr(callee.Member))
	default:
		e.Callee = c.expr(e.Callee)
		c.exprs(e.ArgumentList)
		return c.after(e, e)
	}

	callee := c.after(member, e.Callee)
	c.exprs(e.ArgumentList)
	args := append([]ast.Expression{m.ident(recv)}, e.ArgumentList...)
	call := &ast.CallExpression{
		Callee:           m.dot(callee, "call"),
		LeftParenthesis:  e.LeftParenthesis,
		ArgumentList:     args,
		RightParenthesis: e.RightParenthesis,
	}
	return c.after(call, e)
}

// update evaluates the target's object and key once, converting a computed
// key to a property key before the read, reports the read and then reports
// the update's own value. The write goes to fresh nodes so it
// is never instrumented.
func (c *compiler) update(e *ast.UnaryExpression) ast.Expression {
	if c.quiet() {
		e.Operand = c.target(e.Operand)
		return e
	}

	m := at(e)
	var read, write ast.Expression
	switch t := e.Operand.(type) {
	case *ast.Identifier:
		c.visit(t)
		read = c.after(t, t)
		write = detach(t)
	case *ast.DotExpression:
		c.visit(t)
		obj := c.slot()
		read = c.after(m.member(m.assign(m.ident(obj), c.expr(t.Left)), t.Identifier), t)
		write = m.member(m.ident(obj), t.Identifier)
	case *ast.BracketExpression:
		c.visit(t)
		obj, key := c.slot(), c.slot()
		conv := m.call(m.dot(m.ident(c.opts.Namespace), KeyHelper), c.expr(t.Member))
		read = c.after(m.index(m.assign(m.ident(obj), c.expr(t.Left)), m.assign(m.ident(key), conv)), t)
		write = m.index(m.ident(obj), m.ident(key))
	default:
		c.errorf(diag.InsUnsupportedTarget, e.Operand, "invalid update target %T", e.Operand)
		return e
	}

	op := token.PLUS
	if e.Operator == token.DECREMENT {
		op = token.MINUS
	}
	v := c.slot()
	if !e.Postfix {
		return m.seq(
			m.assign(m.ident(v), m.binary(op, m.plus(read), m.num(1))),
			c.after(m.assign(write, m.ident(v)), e),
		)
	}
	return m.seq(
		m.assign(m.ident(v), m.plus(read)),
		m.assign(write, m.binary(op, m.ident(v), m.num(1))),
		c.after(m.ident(v), e),
	)
}

func (c *compiler) object(o *ast.ObjectLiteral) {
	for i, p := range o.Value {
		switch p := p.(type) {
		case *ast.PropertyShort:
			name := p.Name.Name.String()
			if b := c.table.Resolve(&p.Name); b != nil {
				name = b.Name
			}
			o.Value[i] = &ast.PropertyKeyed{
				Key:   at(&p.Name).str(name),
				Kind:  ast.PropertyKindValue,
				Value: c.expr(&p.Name),
			}
		case *ast.PropertyKeyed:
			if p.Computed {
				p.Key = c.expr(p.Key)
			}
			if fn, ok := p.Value.(*ast.FunctionLiteral); ok && p.Kind != ast.PropertyKindValue {
				c.function(fn)
				continue
			}
			p.Value = c.expr(p.Value)
		case *ast.SpreadElement:
			c.visit(p)
			p.Expression = c.expr(p.Expression)
		}
	}
}
