package instrument

import (
	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/file"

	"stepper/internal/diag"
	"stepper/internal/scope"
	"stepper/internal/step"
)

// body rewrites a function or program body. The directive prologue stays in
// front and unreported.
func (c *compiler) body(list []ast.Statement) []ast.Statement {
	out := make([]ast.Statement, 0, 3*len(list))
	i := 0
	for ; i < len(list); i++ {
		es, ok := list[i].(*ast.ExpressionStatement)
		if !ok {
			break
		}
		if _, ok := es.Expression.(*ast.StringLiteral); !ok {
			break
		}
		c.visit(es)
		c.visit(es.Expression)
		out = append(out, es)
	}
	return append(out, c.list(list[i:])...)
}

func (c *compiler) list(list []ast.Statement) []ast.Statement {
	out := make([]ast.Statement, 0, 3*len(list))
	for _, s := range list {
		out = append(out, c.stmt(s)...)
	}
	return out
}

// single rewrites s into one statement, grouping the reports into a block.
func (c *compiler) single(s ast.Statement) ast.Statement {
	if s == nil {
		return nil
	}
	out := c.stmt(s)
	if len(out) == 1 {
		if blk, ok := out[0].(*ast.BlockStatement); ok {
			return blk
		}
	}
	return at(s).block(out...)
}

func (c *compiler) stmt(s ast.Statement) []ast.Statement {
	if s == nil {
		return nil
	}
	if c.visit(s) {
		return []ast.Statement{s}
	}
	switch s := s.(type) {
	case *ast.BlockStatement:
		s.List = c.list(s.List)
		return []ast.Statement{s}
	case *ast.LabelledStatement:
		return c.labelled(s)
	}
	return c.rewrite(s, nil)
}

// around brackets stmts with the before and after reports of n.
func (c *compiler) around(n ast.Node, sid scope.ScopeID, stmts ...ast.Statement) []ast.Statement {
	m := at(n)
	out := make([]ast.Statement, 0, len(stmts)+2)
	out = append(out, m.exprStmt(c.report(nil, step.CategoryStatement, step.TimeBefore, n, sid)))
	out = append(out, stmts...)
	return append(out, m.exprStmt(c.report(nil, step.CategoryStatement, step.TimeAfter, n, sid)))
}

// labelled makes labels transparent: a loop keeps its labels on the
// rewritten loop, anything else gets them on a block around its reports.
func (c *compiler) labelled(s *ast.LabelledStatement) []ast.Statement {
	labels := []*ast.Identifier{s.Label}
	inner := s.Statement
	for {
		l, ok := inner.(*ast.LabelledStatement)
		if !ok {
			break
		}
		c.visit(l)
		labels = append(labels, l.Label)
		inner = l.Statement
	}

	switch inner.(type) {
	case *ast.WhileStatement, *ast.DoWhileStatement, *ast.ForStatement, *ast.ForInStatement, *ast.ForOfStatement:
		if !c.visit(inner) {
			return c.rewrite(inner, labels)
		}
		return []ast.Statement{relabel(labels, inner)}
	}
	return []ast.Statement{relabel(labels, c.single(inner))}
}

func relabel(labels []*ast.Identifier, s ast.Statement) ast.Statement {
	for i := len(labels) - 1; i >= 0; i-- {
		s = &ast.LabelledStatement{Label: labels[i], Colon: labels[i].Idx1(), Statement: s}
	}
	return s
}

// rewrite handles every statement that gets reports of its own.
func (c *compiler) rewrite(s ast.Statement, labels []*ast.Identifier) []ast.Statement {
	sid := c.scopeOf(s)
	m := at(s)

	switch s := s.(type) {
	case *ast.EmptyStatement, *ast.DebuggerStatement:
		return c.around(s, sid, s)

	case *ast.ExpressionStatement:
		s.Expression = c.expr(s.Expression)
		return c.around(s, sid, s)

	case *ast.VariableStatement:
		for _, b := range s.List {
			b.Initializer = c.expr(b.Initializer)
		}
		return c.around(s, sid, s)

	case *ast.LexicalDeclaration:
		return c.around(s, sid, c.declare(s.Idx, s.List))

	case *ast.FunctionDeclaration:
		c.function(s.Function)
		return c.around(s, sid, s)

	case *ast.IfStatement:
		s.Test = c.expr(s.Test)
		s.Consequent = c.single(s.Consequent)
		s.Alternate = c.single(s.Alternate)
		return c.around(s, sid, s)

	case *ast.ReturnStatement:
		v := c.slot()
		arg := s.Argument
		if arg == nil {
			arg = m.void0()
		} else {
			arg = c.expr(arg)
		}
		out := c.around(s, sid, m.exprStmt(m.assign(m.ident(v), arg)))
		return append(out, &ast.ReturnStatement{Return: s.Return, Argument: m.ident(v)})

	case *ast.ThrowStatement:
		v := c.slot()
		out := c.around(s, sid, m.exprStmt(m.assign(m.ident(v), c.expr(s.Argument))))
		return append(out, &ast.ThrowStatement{Throw: s.Throw, Argument: m.ident(v)})

	case *ast.BranchStatement:
		return append(c.around(s, sid), s)

	case *ast.WhileStatement:
		return c.around(s, sid, relabel(labels, c.while(s)))

	case *ast.DoWhileStatement:
		s.Body = c.single(s.Body)
		s.Test = c.expr(s.Test)
		return c.around(s, sid, relabel(labels, s))

	case *ast.ForStatement:
		init := c.forInit(s)
		loop := relabel(labels, c.forLoop(s))
		return c.around(s, sid, append(init, loop)...)

	case *ast.ForInStatement:
		s.Source = c.expr(s.Source)
		s.Into = c.forInto(s.Into)
		s.Body = c.single(s.Body)
		return c.around(s, sid, relabel(labels, s))

	case *ast.ForOfStatement:
		s.Source = c.expr(s.Source)
		s.Into = c.forInto(s.Into)
		s.Body = c.single(s.Body)
		return c.around(s, sid, relabel(labels, s))

	case *ast.SwitchStatement:
		s.Discriminant = c.expr(s.Discriminant)
		for _, cs := range s.Body {
			c.visit(cs)
			cs.Test = c.expr(cs.Test)
			cs.Consequent = c.list(cs.Consequent)
		}
		return c.around(s, sid, s)

	case *ast.TryStatement:
		c.visit(s.Body)
		s.Body.List = c.list(s.Body.List)
		if s.Catch != nil {
			c.visit(s.Catch)
			c.visit(s.Catch.Body)
			s.Catch.Body.List = c.list(s.Catch.Body.List)
		}
		if s.Finally != nil {
			c.visit(s.Finally)
			s.Finally.List = c.list(s.Finally.List)
		}
		return c.around(s, sid, s)
	}

	c.errorf(diag.InsUnknownNode, s, "cannot instrument %T", s)
	return []ast.Statement{s}
}

// declare turns a let or const list into var assignments. A binding without
// initializer is reset to undefined so a loop body starts fresh each pass.
func (c *compiler) declare(idx file.Idx, list []*ast.Binding) *ast.VariableStatement {
	m := mk{at: idx}
	for _, b := range list {
		if b.Initializer == nil {
			b.Initializer = m.void0()
			continue
		}
		b.Initializer = c.expr(b.Initializer)
	}
	return &ast.VariableStatement{Var: idx, List: list}
}

// beforeExpr reports that expression e is about to be evaluated.
func (c *compiler) beforeExpr(e ast.Expression) ast.Expression {
	return c.report(nil, step.CategoryExpression, step.TimeBefore, e, c.scopeOf(e))
}

// while becomes while (true) { report; if (!test) break; body } so the test
// gets a report before every evaluation.
func (c *compiler) while(s *ast.WhileStatement) ast.Statement {
	m := at(s)
	test := s.Test
	var pre []ast.Statement
	if !c.quiet() {
		pre = append(pre, m.exprStmt(c.beforeExpr(test)))
	}
	pre = append(pre, at(test).breakIfNot(c.expr(test)))
	body := c.single(s.Body)
	return &ast.WhileStatement{
		While: s.While,
		Test:  m.boolean(true),
		Body:  m.block(append(pre, body)...),
	}
}

// forInit hoists the initializer out of the loop head as its own statement.
func (c *compiler) forInit(s *ast.ForStatement) []ast.Statement {
	m := at(s)
	switch init := s.Initializer.(type) {
	case *ast.ForLoopInitializerExpression:
		s.Initializer = nil
		return []ast.Statement{m.exprStmt(c.expr(init.Expression))}
	case *ast.ForLoopInitializerVarDeclList:
		s.Initializer = nil
		vs := &ast.VariableStatement{Var: init.Var, List: init.List}
		c.visit(vs)
		for _, b := range vs.List {
			b.Initializer = c.expr(b.Initializer)
		}
		return c.around(vs, c.scopeOf(s), vs)
	case *ast.ForLoopInitializerLexicalDecl:
		// The hoisted var is one binding for the whole loop, not one per
		// iteration: closures created in the body all see its final value.
		s.Initializer = nil
		decl := &init.LexicalDeclaration
		c.visit(decl)
		return c.around(decl, c.scopeOf(decl), c.declare(decl.Idx, decl.List))
	}
	return nil
}

// forLoop reports the test and the update before each evaluation; the
// update stays in the head so continue still runs it.
func (c *compiler) forLoop(s *ast.ForStatement) ast.Statement {
	if s.Test != nil {
		test := c.expr(s.Test)
		if !c.quiet() {
			test = at(s.Test).seq(c.beforeExpr(s.Test), test)
		}
		s.Test = test
	}
	if s.Update != nil {
		update := c.expr(s.Update)
		if !c.quiet() {
			update = at(s.Update).seq(c.beforeExpr(s.Update), update)
		}
		s.Update = update
	}
	s.Body = c.single(s.Body)
	return s
}

func (c *compiler) forInto(into ast.ForInto) ast.ForInto {
	switch into := into.(type) {
	case *ast.ForDeclaration:
		return &ast.ForIntoVar{Binding: &ast.Binding{Target: into.Target}}
	case *ast.ForIntoVar:
		into.Binding.Initializer = c.expr(into.Binding.Initializer)
		return into
	case *ast.ForIntoExpression:
		into.Expression = c.target(into.Expression)
		return into
	}
	return into
}

// function rewrites a function body in a frame of its own. Parameter
// defaults run before the body's variables exist, so they stay unreported.
func (c *compiler) function(f *ast.FunctionLiteral) {
	c.visit(f)
	outer, mute := c.fn, c.mute
	fr := &frame{at: f.Idx0()}
	c.fn = fr

	c.mute = 1
	c.params(f.ParameterList)
	c.mute = 0
	c.visit(f.Body)
	f.Body.List = c.body(f.Body.List)

	if sid, ok := c.table.Owned(f); ok {
		f.DeclarationList = c.declarations(sid, fr, f.DeclarationList)
	}
	c.fn, c.mute = outer, mute
}

func (c *compiler) arrow(f *ast.ArrowFunctionLiteral) {
	c.visit(f)
	outer, mute := c.fn, c.mute
	fr := &frame{at: f.Idx0()}
	c.fn = fr

	c.mute = 1
	c.params(f.ParameterList)
	c.mute = 0
	switch body := f.Body.(type) {
	case *ast.BlockStatement:
		c.visit(body)
		body.List = c.body(body.List)
	case *ast.ExpressionBody:
		body.Expression = c.expr(body.Expression)
	}

	if sid, ok := c.table.Owned(f); ok {
		f.DeclarationList = c.declarations(sid, fr, f.DeclarationList)
	}
	c.fn, c.mute = outer, mute
}

func (c *compiler) params(pl *ast.ParameterList) {
	if pl == nil {
		return
	}
	for _, p := range pl.List {
		p.Initializer = c.expr(p.Initializer)
	}
}
