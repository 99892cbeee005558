package scope

import (
	"strconv"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/token"
)

type ref struct {
	id    *ast.Identifier
	scope ScopeID
}

type builder struct {
	t     *Table
	cur   ScopeID
	names map[ScopeID]map[string]*Binding
	refs  []ref
	all   map[string]struct{}
}

// Build analyses prog without modifying it. Constructs the analysis cannot
// model are listed in Table.Unsupported rather than failing the pass.
func Build(prog *ast.Program) *Table {
	b := &builder{
		t: &Table{
			nodes:   make(map[ast.Node]ScopeID),
			owners:  make(map[ast.Node]ScopeID),
			idents:  make(map[*ast.Identifier]*Binding),
			hoisted: make(map[ScopeID][]*Binding),
		},
		names: make(map[ScopeID]map[string]*Binding),
		all:   make(map[string]struct{}),
	}

	b.push(KindProgram, nil)
	b.hoistFunctions(prog.Body)
	b.stmts(prog.Body)
	b.pop()

	b.resolve()
	b.assignStorage()
	return b.t
}

func (b *builder) push(kind Kind, n ast.Node) ScopeID {
	id := ScopeID(len(b.t.scopes) + 1)
	s := &Scope{ID: id, Kind: kind, Parent: b.cur, Node: n}
	if s.IsFunction() {
		s.Function = id
	} else {
		s.Function = b.t.Scope(b.cur).Function
	}
	b.t.scopes = append(b.t.scopes, s)
	if n != nil {
		b.t.owners[n] = id
	}
	b.names[id] = make(map[string]*Binding)
	b.cur = id
	return id
}

func (b *builder) pop() {
	b.cur = b.t.Scope(b.cur).Parent
}

func (b *builder) mark(n ast.Node) {
	b.t.nodes[n] = b.cur
}

func (b *builder) unsupported(n ast.Node, what string) {
	b.t.unsupported = append(b.t.unsupported, Unsupported{Node: n, What: what})
}

func (b *builder) declare(scope ScopeID, id *ast.Identifier, kind BindingKind) {
	name := id.Name.String()
	b.all[name] = struct{}{}
	if existing, ok := b.names[scope][name]; ok {
		b.t.idents[id] = existing
		return
	}
	bd := &Binding{Name: name, Storage: name, Kind: kind, Scope: scope}
	s := b.t.Scope(scope)
	s.Bindings = append(s.Bindings, bd)
	b.names[scope][name] = bd
	b.t.idents[id] = bd
}

func (b *builder) ref(id *ast.Identifier) {
	b.all[id.Name.String()] = struct{}{}
	b.refs = append(b.refs, ref{id: id, scope: b.cur})
}

// hoistFunctions declares the function declarations of a statement list in
// the current scope before any statement of the list is walked.
func (b *builder) hoistFunctions(list []ast.Statement) {
	for _, s := range list {
		if fd, ok := s.(*ast.FunctionDeclaration); ok && fd.Function.Name != nil {
			b.declare(b.cur, fd.Function.Name, BindFunction)
		}
	}
}

func (b *builder) stmts(list []ast.Statement) {
	for _, s := range list {
		b.stmt(s)
	}
}

func (b *builder) block(blk *ast.BlockStatement) {
	b.push(KindBlock, blk)
	b.hoistFunctions(blk.List)
	b.stmts(blk.List)
	b.pop()
}

func (b *builder) stmt(s ast.Statement) {
	if s == nil {
		return
	}
	b.mark(s)
	switch s := s.(type) {
	case *ast.BlockStatement:
		b.block(s)
	case *ast.EmptyStatement, *ast.DebuggerStatement, *ast.BranchStatement:
	case *ast.ExpressionStatement:
		b.expr(s.Expression)
	case *ast.VariableStatement:
		b.bindings(s.List, BindVar)
	case *ast.LexicalDeclaration:
		b.bindings(s.List, lexicalKind(s.Token))
	case *ast.FunctionDeclaration:
		b.function(s.Function, false)
	case *ast.IfStatement:
		b.expr(s.Test)
		b.stmt(s.Consequent)
		b.stmt(s.Alternate)
	case *ast.WhileStatement:
		b.expr(s.Test)
		b.stmt(s.Body)
	case *ast.DoWhileStatement:
		b.stmt(s.Body)
		b.expr(s.Test)
	case *ast.ForStatement:
		b.forStmt(s)
	case *ast.ForInStatement:
		b.forInto(s, s.Into, s.Source, s.Body)
	case *ast.ForOfStatement:
		b.forInto(s, s.Into, s.Source, s.Body)
	case *ast.ReturnStatement:
		b.expr(s.Argument)
	case *ast.ThrowStatement:
		b.expr(s.Argument)
	case *ast.LabelledStatement:
		b.stmt(s.Statement)
	case *ast.SwitchStatement:
		b.expr(s.Discriminant)
		b.push(KindSwitch, s)
		for _, cs := range s.Body {
			b.hoistFunctions(cs.Consequent)
		}
		for _, cs := range s.Body {
			b.mark(cs)
			b.expr(cs.Test)
			b.stmts(cs.Consequent)
		}
		b.pop()
	case *ast.TryStatement:
		b.mark(s.Body)
		b.block(s.Body)
		if s.Catch != nil {
			b.catch(s.Catch)
		}
		if s.Finally != nil {
			b.mark(s.Finally)
			b.block(s.Finally)
		}
	case *ast.WithStatement:
		b.unsupported(s, "with statement")
	case *ast.ClassDeclaration:
		b.unsupported(s, "class declaration")
	default:
		b.unsupported(s, "statement")
	}
}

func lexicalKind(tok token.Token) BindingKind {
	if tok == token.CONST {
		return BindConst
	}
	return BindLet
}

func (b *builder) catch(c *ast.CatchStatement) {
	b.mark(c)
	b.push(KindCatch, c)
	switch p := c.Parameter.(type) {
	case nil:
	case *ast.Identifier:
		b.declare(b.cur, p, BindCatch)
	default:
		b.unsupported(c.Parameter, "destructuring catch parameter")
	}
	b.mark(c.Body)
	b.hoistFunctions(c.Body.List)
	b.stmts(c.Body.List)
	b.pop()
}

func (b *builder) bindings(list []*ast.Binding, kind BindingKind) {
	scope := b.cur
	if kind == BindVar {
		scope = b.t.Scope(b.cur).Function
	}
	for _, bd := range list {
		if id, ok := bd.Target.(*ast.Identifier); ok {
			b.declare(scope, id, kind)
		} else {
			b.unsupported(bd.Target, "destructuring declaration")
		}
		b.expr(bd.Initializer)
	}
}

func (b *builder) forStmt(s *ast.ForStatement) {
	lex, lexical := s.Initializer.(*ast.ForLoopInitializerLexicalDecl)
	if lexical {
		b.push(KindLoop, s)
	}
	switch init := s.Initializer.(type) {
	case nil:
	case *ast.ForLoopInitializerExpression:
		b.expr(init.Expression)
	case *ast.ForLoopInitializerVarDeclList:
		b.bindings(init.List, BindVar)
	case *ast.ForLoopInitializerLexicalDecl:
		b.mark(&lex.LexicalDeclaration)
		b.bindings(init.LexicalDeclaration.List, lexicalKind(init.LexicalDeclaration.Token))
	}
	b.expr(s.Test)
	b.expr(s.Update)
	b.stmt(s.Body)
	if lexical {
		b.pop()
	}
}

func (b *builder) forInto(s ast.Statement, into ast.ForInto, source ast.Expression, body ast.Statement) {
	b.expr(source)
	pushed := false
	switch into := into.(type) {
	case *ast.ForIntoVar:
		if id, ok := into.Binding.Target.(*ast.Identifier); ok {
			b.declare(b.t.Scope(b.cur).Function, id, BindVar)
		} else {
			b.unsupported(into.Binding.Target, "destructuring loop variable")
		}
		b.expr(into.Binding.Initializer)
	case *ast.ForDeclaration:
		b.push(KindLoop, s)
		pushed = true
		kind := BindLet
		if into.IsConst {
			kind = BindConst
		}
		if id, ok := into.Target.(*ast.Identifier); ok {
			b.declare(b.cur, id, kind)
		} else {
			b.unsupported(into.Target, "destructuring loop variable")
		}
	case *ast.ForIntoExpression:
		b.target(into.Expression)
	}
	b.stmt(body)
	if pushed {
		b.pop()
	}
}

func (b *builder) params(pl *ast.ParameterList) {
	if pl == nil {
		return
	}
	for _, p := range pl.List {
		if id, ok := p.Target.(*ast.Identifier); ok {
			b.declare(b.cur, id, BindParam)
		} else {
			b.unsupported(p.Target, "destructuring parameter")
		}
		b.expr(p.Initializer)
	}
	switch rest := pl.Rest.(type) {
	case nil:
	case *ast.Identifier:
		b.declare(b.cur, rest, BindParam)
	default:
		b.unsupported(rest, "destructuring rest parameter")
	}
}

func (b *builder) function(f *ast.FunctionLiteral, expression bool) {
	if f.Generator {
		b.unsupported(f, "generator function")
	}
	b.push(KindFunction, f)
	if expression && f.Name != nil {
		b.declare(b.cur, f.Name, BindSelf)
	}
	b.params(f.ParameterList)
	b.mark(f.Body)
	b.hoistFunctions(f.Body.List)
	b.stmts(f.Body.List)
	b.pop()
}

func (b *builder) arrow(f *ast.ArrowFunctionLiteral) {
	b.push(KindFunction, f)
	b.params(f.ParameterList)
	switch body := f.Body.(type) {
	case *ast.BlockStatement:
		b.mark(body)
		b.hoistFunctions(body.List)
		b.stmts(body.List)
	case *ast.ExpressionBody:
		b.expr(body.Expression)
	}
	b.pop()
}

func (b *builder) exprs(list []ast.Expression) {
	for _, e := range list {
		b.expr(e)
	}
}

func (b *builder) expr(e ast.Expression) {
	if e == nil {
		return
	}
	b.mark(e)
	switch e := e.(type) {
	case *ast.Identifier:
		b.ref(e)
	case *ast.NumberLiteral, *ast.StringLiteral, *ast.BooleanLiteral, *ast.NullLiteral,
		*ast.RegExpLiteral, *ast.ThisExpression:
	case *ast.TemplateLiteral:
		if e.Tag != nil {
			b.unsupported(e, "tagged template")
		}
		b.exprs(e.Expressions)
	case *ast.ArrayLiteral:
		b.exprs(e.Value)
	case *ast.ObjectLiteral:
		b.object(e)
	case *ast.FunctionLiteral:
		b.function(e, true)
	case *ast.ArrowFunctionLiteral:
		b.arrow(e)
	case *ast.CallExpression:
		b.expr(e.Callee)
		b.exprs(e.ArgumentList)
	case *ast.NewExpression:
		b.expr(e.Callee)
		b.exprs(e.ArgumentList)
	case *ast.DotExpression:
		b.expr(e.Left)
	case *ast.BracketExpression:
		b.expr(e.Left)
		b.expr(e.Member)
	case *ast.AssignExpression:
		b.target(e.Left)
		b.expr(e.Right)
	case *ast.BinaryExpression:
		b.expr(e.Left)
		b.expr(e.Right)
	case *ast.UnaryExpression:
		if e.Operator == token.INCREMENT || e.Operator == token.DECREMENT {
			b.target(e.Operand)
		} else {
			b.expr(e.Operand)
		}
	case *ast.ConditionalExpression:
		b.expr(e.Test)
		b.expr(e.Consequent)
		b.expr(e.Alternate)
	case *ast.SequenceExpression:
		b.exprs(e.Sequence)
	case *ast.SpreadElement:
		b.expr(e.Expression)
	case *ast.AwaitExpression:
		b.expr(e.Argument)
	case *ast.ArrayPattern, *ast.ObjectPattern:
		b.unsupported(e, "destructuring pattern")
	case *ast.YieldExpression:
		b.unsupported(e, "yield expression")
	case *ast.ClassLiteral:
		b.unsupported(e, "class expression")
	case *ast.OptionalChain, *ast.Optional:
		b.unsupported(e, "optional chaining")
	case *ast.SuperExpression:
		b.unsupported(e, "super")
	default:
		b.unsupported(e, "expression")
	}
}

func (b *builder) object(o *ast.ObjectLiteral) {
	for _, p := range o.Value {
		switch p := p.(type) {
		case *ast.PropertyShort:
			if p.Initializer != nil {
				b.unsupported(p, "shorthand initializer")
			}
			b.mark(&p.Name)
			b.ref(&p.Name)
		case *ast.PropertyKeyed:
			if p.Computed {
				b.expr(p.Key)
			}
			if fn, ok := p.Value.(*ast.FunctionLiteral); ok && p.Kind != ast.PropertyKindValue {
				b.mark(fn)
				b.function(fn, false)
				continue
			}
			b.expr(p.Value)
		case *ast.SpreadElement:
			b.mark(p)
			b.expr(p.Expression)
		default:
			b.unsupported(p, "object property")
		}
	}
}

// target walks an assignment or update target.
func (b *builder) target(e ast.Expression) {
	b.mark(e)
	switch e := e.(type) {
	case *ast.Identifier:
		b.ref(e)
	case *ast.DotExpression:
		b.expr(e.Left)
	case *ast.BracketExpression:
		b.expr(e.Left)
		b.expr(e.Member)
	case *ast.ArrayPattern, *ast.ObjectPattern:
		b.unsupported(e, "destructuring assignment")
	default:
		b.unsupported(e, "assignment target")
	}
}

func (b *builder) resolve() {
	for _, r := range b.refs {
		name := r.id.Name.String()
		for s := r.scope; s != NoScopeID; s = b.t.Scope(s).Parent {
			if bd, ok := b.names[s][name]; ok {
				b.t.idents[r.id] = bd
				break
			}
		}
	}
}

// assignStorage gives every lexical binding a var name unique within its
// function. Function-level bindings keep their names; a nested lexical
// binding is renamed when its name is already taken by a function-level or
// non-hoisted binding of the same function, by the storage of any binding
// in a scope enclosing the function, or by a global that code inside the
// function refers to. Scopes are created outside-in, so enclosing storage
// is always assigned first.
func (b *builder) assignStorage() {
	under := make(map[ScopeID][]ref)
	for _, r := range b.refs {
		for fn := b.t.Scope(r.scope).Function; fn != NoScopeID; {
			under[fn] = append(under[fn], r)
			parent := b.t.Scope(fn).Parent
			if parent == NoScopeID {
				break
			}
			fn = b.t.Scope(parent).Function
		}
	}

	for _, fs := range b.t.scopes {
		if !fs.IsFunction() {
			continue
		}
		reserved := make(map[string]bool)
		var region []*Scope
		for _, s := range b.t.scopes {
			if s.Function == fs.ID && s.ID != fs.ID {
				region = append(region, s)
			}
		}

		for _, bd := range fs.Bindings {
			reserved[bd.Name] = true
		}
		for _, s := range region {
			for _, bd := range s.Bindings {
				if !bd.Kind.Lexical() {
					reserved[bd.Name] = true
				}
			}
		}
		for s := fs.Parent; s != NoScopeID; s = b.t.Scope(s).Parent {
			for _, bd := range b.t.Scope(s).Bindings {
				reserved[bd.Storage] = true
			}
		}
		for _, r := range under[fs.ID] {
			if b.t.idents[r.id] == nil {
				reserved[r.id.Name.String()] = true
			}
		}

		var hoisted []*Binding
		for _, bd := range fs.Bindings {
			if bd.Kind.Lexical() {
				hoisted = append(hoisted, bd)
			}
		}
		for _, s := range region {
			for _, bd := range s.Bindings {
				if !bd.Kind.Lexical() {
					continue
				}
				bd.Storage = b.fresh(bd.Name, reserved)
				reserved[bd.Storage] = true
				hoisted = append(hoisted, bd)
			}
		}
		if len(hoisted) > 0 {
			b.t.hoisted[fs.ID] = hoisted
		}
	}
}

func (b *builder) fresh(name string, reserved map[string]bool) string {
	if !reserved[name] {
		return name
	}
	for n := 1; ; n++ {
		candidate := name + "$" + strconv.Itoa(n)
		if reserved[candidate] {
			continue
		}
		if _, used := b.all[candidate]; used {
			continue
		}
		return candidate
	}
}
