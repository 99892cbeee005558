// Package jsprint turns a goja syntax tree back into JavaScript text.
// The output is meant for reading: it reparses to an equivalent tree but
// does not preserve the original layout or comments.
package jsprint

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/token"

	"stepper/internal/value"
)

// Options tune the output.
type Options struct {
	Indent string // one level of indentation; empty means two spaces
}

type printer struct {
	sb     strings.Builder
	indent string
	depth  int
}

// Print renders a whole program.
func Print(prog *ast.Program) string {
	return PrintWith(prog, Options{})
}

// PrintWith renders a whole program with the given options.
func PrintWith(prog *ast.Program, opts Options) string {
	p := newPrinter(opts)
	body := prog.Body
	n := prologue(body)
	for _, s := range body[:n] {
		p.stmt(s)
		p.newline()
	}
	if names := hoisted(prog.DeclarationList, body); len(names) > 0 {
		p.write("var ", strings.Join(names, ", "), ";")
		p.newline()
	}
	for _, s := range body[n:] {
		p.stmt(s)
		p.newline()
	}
	return p.sb.String()
}

// Expression renders a single expression.
func Expression(e ast.Expression) string {
	p := newPrinter(Options{})
	p.expr(e, precSequence)
	return p.sb.String()
}

func newPrinter(opts Options) *printer {
	if opts.Indent == "" {
		opts.Indent = "  "
	}
	return &printer{indent: opts.Indent}
}

func (p *printer) write(parts ...string) {
	for _, s := range parts {
		p.sb.WriteString(s)
	}
}

func (p *printer) newline() {
	p.sb.WriteByte('\n')
	p.sb.WriteString(strings.Repeat(p.indent, p.depth))
}

// ---- statements ----

func (p *printer) block(b *ast.BlockStatement) {
	p.funcBody(b, nil)
}

// funcBody prints a block, declaring hoisted names after any directives.
func (p *printer) funcBody(b *ast.BlockStatement, decls []*ast.VariableDeclaration) {
	names := hoisted(decls, b.List)
	if len(b.List) == 0 && len(names) == 0 {
		p.write("{}")
		return
	}
	n := prologue(b.List)
	p.write("{")
	p.depth++
	for _, s := range b.List[:n] {
		p.newline()
		p.stmt(s)
	}
	if len(names) > 0 {
		p.newline()
		p.write("var ", strings.Join(names, ", "), ";")
	}
	for _, s := range b.List[n:] {
		p.newline()
		p.stmt(s)
	}
	p.depth--
	p.newline()
	p.write("}")
}

// body prints a statement that follows a header such as if (...) or else.
func (p *printer) body(s ast.Statement) {
	if b, ok := s.(*ast.BlockStatement); ok {
		p.write(" ")
		p.block(b)
		return
	}
	p.depth++
	p.newline()
	p.stmt(s)
	p.depth--
}

func (p *printer) stmt(s ast.Statement) {
	switch s := s.(type) {
	case nil:
		p.write(";")
	case *ast.BlockStatement:
		p.block(s)
	case *ast.EmptyStatement:
		p.write(";")
	case *ast.DebuggerStatement:
		p.write("debugger;")
	case *ast.ExpressionStatement:
		if needsStatementParens(s.Expression) {
			p.write("(")
			p.expr(s.Expression, precSequence)
			p.write(");")
			return
		}
		p.expr(s.Expression, precSequence)
		p.write(";")
	case *ast.VariableStatement:
		p.write("var ")
		p.bindings(s.List)
		p.write(";")
	case *ast.LexicalDeclaration:
		p.write(s.Token.String(), " ")
		p.bindings(s.List)
		p.write(";")
	case *ast.FunctionDeclaration:
		p.function(s.Function)
	case *ast.ClassDeclaration:
		p.class(s.Class)
	case *ast.IfStatement:
		p.ifStmt(s)
	case *ast.ReturnStatement:
		p.write("return")
		if s.Argument != nil {
			p.write(" ")
			p.expr(s.Argument, precSequence)
		}
		p.write(";")
	case *ast.ThrowStatement:
		p.write("throw ")
		p.expr(s.Argument, precSequence)
		p.write(";")
	case *ast.BranchStatement:
		p.write(s.Token.String())
		if s.Label != nil {
			p.write(" ", s.Label.Name.String())
		}
		p.write(";")
	case *ast.LabelledStatement:
		p.write(s.Label.Name.String(), ": ")
		p.stmt(s.Statement)
	case *ast.WhileStatement:
		p.write("while (")
		p.expr(s.Test, precSequence)
		p.write(")")
		p.body(s.Body)
	case *ast.DoWhileStatement:
		p.write("do")
		p.body(s.Body)
		if _, ok := s.Body.(*ast.BlockStatement); ok {
			p.write(" ")
		} else {
			p.newline()
		}
		p.write("while (")
		p.expr(s.Test, precSequence)
		p.write(");")
	case *ast.ForStatement:
		p.forStmt(s)
	case *ast.ForInStatement:
		p.write("for (")
		p.forInto(s.Into)
		p.write(" in ")
		p.expr(s.Source, precSequence)
		p.write(")")
		p.body(s.Body)
	case *ast.ForOfStatement:
		p.write("for (")
		p.forInto(s.Into)
		p.write(" of ")
		p.expr(s.Source, precAssign)
		p.write(")")
		p.body(s.Body)
	case *ast.SwitchStatement:
		p.switchStmt(s)
	case *ast.TryStatement:
		p.write("try ")
		p.block(s.Body)
		if s.Catch != nil {
			p.write(" catch ")
			if s.Catch.Parameter != nil {
				p.write("(")
				p.target(s.Catch.Parameter)
				p.write(") ")
			}
			p.block(s.Catch.Body)
		}
		if s.Finally != nil {
			p.write(" finally ")
			p.block(s.Finally)
		}
	case *ast.WithStatement:
		p.write("with (")
		p.expr(s.Object, precSequence)
		p.write(")")
		p.body(s.Body)
	default:
		p.write(fmt.Sprintf("/* %T */;", s))
	}
}

func (p *printer) ifStmt(s *ast.IfStatement) {
	p.write("if (")
	p.expr(s.Test, precSequence)
	p.write(")")
	cons := s.Consequent
	if _, ok := cons.(*ast.BlockStatement); !ok && s.Alternate != nil {
		// keep a following else from attaching to a nested if
		cons = &ast.BlockStatement{List: []ast.Statement{cons}}
	}
	p.body(cons)
	if s.Alternate == nil {
		return
	}
	if _, ok := cons.(*ast.BlockStatement); ok {
		p.write(" ")
	} else {
		p.newline()
	}
	p.write("else")
	if alt, ok := s.Alternate.(*ast.IfStatement); ok {
		p.write(" ")
		p.ifStmt(alt)
		return
	}
	p.body(s.Alternate)
}

func (p *printer) forStmt(s *ast.ForStatement) {
	p.write("for (")
	switch init := s.Initializer.(type) {
	case nil:
	case *ast.ForLoopInitializerExpression:
		p.noIn(init.Expression)
	case *ast.ForLoopInitializerVarDeclList:
		p.write("var ")
		p.bindings(init.List)
	case *ast.ForLoopInitializerLexicalDecl:
		p.write(init.LexicalDeclaration.Token.String(), " ")
		p.bindings(init.LexicalDeclaration.List)
	}
	p.write(";")
	if s.Test != nil {
		p.write(" ")
		p.expr(s.Test, precSequence)
	}
	p.write(";")
	if s.Update != nil {
		p.write(" ")
		p.expr(s.Update, precSequence)
	}
	p.write(")")
	p.body(s.Body)
}

// noIn prints a for-initializer expression; a top-level in operator would
// turn the loop into a for-in.
func (p *printer) noIn(e ast.Expression) {
	if b, ok := e.(*ast.BinaryExpression); ok && b.Operator == token.IN {
		p.write("(")
		p.expr(e, precSequence)
		p.write(")")
		return
	}
	p.expr(e, precSequence)
}

func (p *printer) forInto(into ast.ForInto) {
	switch into := into.(type) {
	case *ast.ForIntoVar:
		p.write("var ")
		p.binding(into.Binding)
	case *ast.ForDeclaration:
		if into.IsConst {
			p.write("const ")
		} else {
			p.write("let ")
		}
		p.target(into.Target)
	case *ast.ForIntoExpression:
		p.expr(into.Expression, precCall)
	}
}

func (p *printer) switchStmt(s *ast.SwitchStatement) {
	p.write("switch (")
	p.expr(s.Discriminant, precSequence)
	p.write(") {")
	p.depth++
	for _, cs := range s.Body {
		p.newline()
		if cs.Test == nil {
			p.write("default:")
		} else {
			p.write("case ")
			p.expr(cs.Test, precSequence)
			p.write(":")
		}
		p.depth++
		for _, st := range cs.Consequent {
			p.newline()
			p.stmt(st)
		}
		p.depth--
	}
	p.depth--
	p.newline()
	p.write("}")
}

func (p *printer) bindings(list []*ast.Binding) {
	for i, b := range list {
		if i > 0 {
			p.write(", ")
		}
		p.binding(b)
	}
}

func (p *printer) binding(b *ast.Binding) {
	p.target(b.Target)
	if b.Initializer != nil {
		p.write(" = ")
		p.expr(b.Initializer, precAssign)
	}
}

func (p *printer) target(t ast.Expression) {
	p.expr(t, precAssign)
}

func (p *printer) params(pl *ast.ParameterList) {
	p.write("(")
	if pl != nil {
		p.bindings(pl.List)
		if pl.Rest != nil {
			if len(pl.List) > 0 {
				p.write(", ")
			}
			p.write("...")
			p.target(pl.Rest)
		}
	}
	p.write(")")
}

func (p *printer) function(f *ast.FunctionLiteral) {
	if f.Async {
		p.write("async ")
	}
	p.write("function")
	if f.Generator {
		p.write("*")
	}
	if f.Name != nil {
		p.write(" ", f.Name.Name.String())
	}
	p.params(f.ParameterList)
	p.write(" ")
	p.funcBody(f.Body, f.DeclarationList)
}

func (p *printer) arrow(f *ast.ArrowFunctionLiteral) {
	if f.Async {
		p.write("async ")
	}
	p.params(f.ParameterList)
	p.write(" => ")
	switch body := f.Body.(type) {
	case *ast.BlockStatement:
		p.funcBody(body, f.DeclarationList)
	case *ast.ExpressionBody:
		if len(hoisted(f.DeclarationList, nil)) > 0 {
			ret := &ast.ReturnStatement{Argument: body.Expression}
			p.funcBody(&ast.BlockStatement{List: []ast.Statement{ret}}, f.DeclarationList)
			return
		}
		if _, ok := leftmost(body.Expression).(*ast.ObjectLiteral); ok {
			p.write("(")
			p.expr(body.Expression, precSequence)
			p.write(")")
			return
		}
		p.expr(body.Expression, precAssign)
	}
}

func (p *printer) class(c *ast.ClassLiteral) {
	p.write("class")
	if c.Name != nil {
		p.write(" ", c.Name.Name.String())
	}
	if c.SuperClass != nil {
		p.write(" extends ")
		p.expr(c.SuperClass, precCall)
	}
	p.write(" { /* ... */ }")
}

// ---- expressions ----

// expr prints e, parenthesised when it binds looser than min.
func (p *printer) expr(e ast.Expression, min int) {
	if e == nil {
		return
	}
	if prec(e) < min {
		p.write("(")
		p.exprBare(e)
		p.write(")")
		return
	}
	p.exprBare(e)
}

func (p *printer) exprBare(e ast.Expression) {
	switch e := e.(type) {
	case *ast.Identifier:
		p.write(e.Name.String())
	case *ast.NumberLiteral:
		p.write(numberText(e))
	case *ast.StringLiteral:
		if e.Literal != "" {
			p.write(e.Literal)
		} else {
			p.write(value.Quote(e.Value.String()))
		}
	case *ast.BooleanLiteral:
		p.write(strconv.FormatBool(e.Value))
	case *ast.NullLiteral:
		p.write("null")
	case *ast.RegExpLiteral:
		p.write(e.Literal)
	case *ast.ThisExpression:
		p.write("this")
	case *ast.SuperExpression:
		p.write("super")
	case *ast.TemplateLiteral:
		p.template(e)
	case *ast.ArrayLiteral:
		p.write("[")
		for i, el := range e.Value {
			if i > 0 {
				p.write(", ")
			}
			p.expr(el, precAssign)
		}
		if n := len(e.Value); n > 0 && e.Value[n-1] == nil {
			p.write(",")
		}
		p.write("]")
	case *ast.ObjectLiteral:
		p.object(e.Value)
	case *ast.FunctionLiteral:
		p.function(e)
	case *ast.ArrowFunctionLiteral:
		p.arrow(e)
	case *ast.ClassLiteral:
		p.class(e)
	case *ast.CallExpression:
		p.expr(e.Callee, precCall)
		p.optionalDot(e.Callee)
		p.args(e.ArgumentList)
	case *ast.NewExpression:
		p.write("new ")
		p.newCallee(e.Callee)
		p.args(e.ArgumentList)
	case *ast.DotExpression:
		p.memberObject(e.Left)
		p.write(".", e.Identifier.Name.String())
	case *ast.PrivateDotExpression:
		p.memberObject(e.Left)
		p.write(".#", e.Identifier.Name.String())
	case *ast.BracketExpression:
		p.memberObject(e.Left)
		p.optionalDot(e.Left)
		p.write("[")
		p.expr(e.Member, precSequence)
		p.write("]")
	case *ast.AssignExpression:
		p.expr(e.Left, precCall)
		if e.Operator == token.ASSIGN {
			p.write(" = ")
		} else {
			p.write(" ", e.Operator.String(), "= ")
		}
		p.expr(e.Right, precAssign)
	case *ast.BinaryExpression:
		p.binary(e)
	case *ast.UnaryExpression:
		p.unary(e)
	case *ast.ConditionalExpression:
		p.expr(e.Test, precCoalesce)
		p.write(" ? ")
		p.expr(e.Consequent, precAssign)
		p.write(" : ")
		p.expr(e.Alternate, precAssign)
	case *ast.SequenceExpression:
		for i, x := range e.Sequence {
			if i > 0 {
				p.write(", ")
			}
			p.expr(x, precAssign)
		}
	case *ast.SpreadElement:
		p.write("...")
		p.expr(e.Expression, precAssign)
	case *ast.AwaitExpression:
		p.write("await ")
		p.expr(e.Argument, precUnary)
	case *ast.YieldExpression:
		p.write("yield")
		if e.Delegate {
			p.write("*")
		}
		if e.Argument != nil {
			p.write(" ")
			p.expr(e.Argument, precAssign)
		}
	case *ast.OptionalChain:
		p.exprBare(e.Expression)
	case *ast.Optional:
		// the member or call that follows supplies the rest of "?."
		p.expr(e.Expression, precCall)
		p.write("?")
	case *ast.ArrayPattern:
		p.write("[")
		for i, el := range e.Elements {
			if i > 0 {
				p.write(", ")
			}
			p.expr(el, precAssign)
		}
		if e.Rest != nil {
			if len(e.Elements) > 0 {
				p.write(", ")
			}
			p.write("...")
			p.expr(e.Rest, precAssign)
		}
		p.write("]")
	case *ast.ObjectPattern:
		props := e.Properties
		if e.Rest != nil {
			props = append(props[:len(props):len(props)], &ast.SpreadElement{Expression: e.Rest})
		}
		p.object(props)
	default:
		p.write(fmt.Sprintf("/* %T */", e))
	}
}

func numberText(n *ast.NumberLiteral) string {
	if n.Literal != "" {
		return n.Literal
	}
	switch v := n.Value.(type) {
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return value.FormatNumber(v)
	}
	return fmt.Sprint(n.Value)
}

func (p *printer) optionalDot(left ast.Expression) {
	if _, ok := left.(*ast.Optional); ok {
		p.write(".")
	}
}

func (p *printer) memberObject(left ast.Expression) {
	if n, ok := left.(*ast.NumberLiteral); ok {
		if text := numberText(n); !strings.ContainsAny(text, ".eExXoObB") || strings.HasPrefix(text, "-") {
			p.write("(", text, ")")
			return
		}
	}
	p.expr(left, precCall)
}

// newCallee parenthesises callees that contain a call, so the arguments of
// the new expression do not bind to the inner call.
func (p *printer) newCallee(e ast.Expression) {
	for x := e; ; {
		switch y := x.(type) {
		case *ast.CallExpression:
			p.write("(")
			p.exprBare(e)
			p.write(")")
			return
		case *ast.DotExpression:
			x = y.Left
			continue
		case *ast.BracketExpression:
			x = y.Left
			continue
		}
		break
	}
	p.expr(e, precCall)
}

func (p *printer) args(list []ast.Expression) {
	p.write("(")
	for i, a := range list {
		if i > 0 {
			p.write(", ")
		}
		p.expr(a, precAssign)
	}
	p.write(")")
}

func (p *printer) template(t *ast.TemplateLiteral) {
	if t.Tag != nil {
		p.expr(t.Tag, precCall)
	}
	p.write("`")
	for i, el := range t.Elements {
		p.write(el.Literal)
		if i < len(t.Expressions) {
			p.write("${")
			p.expr(t.Expressions[i], precSequence)
			p.write("}")
		}
	}
	p.write("`")
}

func (p *printer) object(props []ast.Property) {
	if len(props) == 0 {
		p.write("{}")
		return
	}
	p.write("{")
	for i, prop := range props {
		if i > 0 {
			p.write(",")
		}
		p.write(" ")
		p.property(prop)
	}
	p.write(" }")
}

func (p *printer) property(prop ast.Property) {
	switch pr := prop.(type) {
	case *ast.PropertyShort:
		p.write(pr.Name.Name.String())
		if pr.Initializer != nil {
			p.write(" = ")
			p.expr(pr.Initializer, precAssign)
		}
	case *ast.PropertyKeyed:
		fn, isFn := pr.Value.(*ast.FunctionLiteral)
		switch {
		case pr.Kind == ast.PropertyKindGet && isFn:
			p.write("get ")
			p.key(pr)
			p.method(fn)
		case pr.Kind == ast.PropertyKindSet && isFn:
			p.write("set ")
			p.key(pr)
			p.method(fn)
		case pr.Kind == ast.PropertyKindMethod && isFn:
			if fn.Async {
				p.write("async ")
			}
			if fn.Generator {
				p.write("*")
			}
			p.key(pr)
			p.method(fn)
		default:
			p.key(pr)
			p.write(": ")
			p.expr(pr.Value, precAssign)
		}
	case *ast.SpreadElement:
		p.write("...")
		p.expr(pr.Expression, precAssign)
	default:
		p.write(fmt.Sprintf("/* %T */", prop))
	}
}

func (p *printer) key(pr *ast.PropertyKeyed) {
	if pr.Computed {
		p.write("[")
		p.expr(pr.Key, precAssign)
		p.write("]")
		return
	}
	if s, ok := pr.Key.(*ast.StringLiteral); ok {
		name := s.Value.String()
		if value.IsIdentifierName(name) {
			p.write(name)
			return
		}
	}
	p.expr(pr.Key, precPrimary)
}

func (p *printer) method(fn *ast.FunctionLiteral) {
	p.params(fn.ParameterList)
	p.write(" ")
	p.funcBody(fn.Body, fn.DeclarationList)
}

func (p *printer) binary(e *ast.BinaryExpression) {
	pr := binaryPrec(e.Operator)
	left, right := pr, pr+1
	if e.Operator == token.EXPONENT {
		left, right = precPostfix, pr
	}

	p.operand(e.Left, left, e.Operator)
	p.write(" ", e.Operator.String(), " ")
	p.operand(e.Right, right, e.Operator)
}

// operand prints one side of a binary expression. ?? cannot be mixed with
// && or || without parentheses.
func (p *printer) operand(x ast.Expression, min int, op token.Token) {
	if b, ok := x.(*ast.BinaryExpression); ok {
		if (op == token.COALESCE && isLogical(b.Operator)) || (isLogical(op) && b.Operator == token.COALESCE) {
			p.write("(")
			p.exprBare(x)
			p.write(")")
			return
		}
	}
	p.expr(x, min)
}

func (p *printer) unary(e *ast.UnaryExpression) {
	op := e.Operator.String()
	if e.Postfix {
		p.expr(e.Operand, precPostfix)
		p.write(op)
		return
	}
	p.write(op)
	switch e.Operator {
	case token.TYPEOF, token.VOID, token.DELETE:
		p.write(" ")
	case token.PLUS, token.MINUS, token.INCREMENT, token.DECREMENT:
		// keep "- -x" and "+ +x" from fusing into "--x" and "++x"
		if u, ok := e.Operand.(*ast.UnaryExpression); ok && !u.Postfix {
			if s := u.Operator.String(); s != "" && s[0] == op[0] {
				p.write(" ")
			}
		}
		if n, ok := e.Operand.(*ast.NumberLiteral); ok && strings.HasPrefix(numberText(n), op[:1]) {
			p.write(" ")
		}
	}
	p.expr(e.Operand, precUnary)
}
