package instrument

import (
	"fmt"
	"strconv"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/file"
	"github.com/dop251/goja/unistring"

	"stepper/internal/diag"
	"stepper/internal/scope"
	"stepper/internal/source"
	"stepper/internal/step"
)

// frame collects the hidden variables of one function (or of the program).
type frame struct {
	at    file.Idx
	slots []string
}

type compiler struct {
	opts  Options
	table *scope.Table
	file  *file.File
	bag   *diag.Bag
	sites []Site
	slots int
	seen  map[ast.Node]bool
	mute  int
	fn    *frame
}

// Compile rewrites prog in place so that running it reports every statement
// and, with Options.Detail, every expression to the reporter global.
// prog must not be used for anything else afterwards.
func Compile(prog *ast.Program, opts Options) (*Program, error) {
	if prog == nil {
		return nil, &CompileError{Diagnostics: []diag.Diagnostic{
			diag.NewError(diag.SynBadProgram, source.Loc{}, "no program"),
		}}
	}
	opts = opts.withDefaults()
	c := &compiler{
		opts:  opts,
		table: scope.Build(prog),
		file:  prog.File,
		bag:   diag.NewBag(64),
		seen:  make(map[ast.Node]bool),
	}

	for _, u := range c.table.Unsupported() {
		c.errorf(diag.InsUnsupportedSyntax, u.Node, "unsupported syntax: %s", u.What)
	}
	if c.bag.HasErrors() {
		return nil, c.failure()
	}

	c.rename()

	top := &frame{at: 1}
	if len(prog.Body) > 0 {
		top.at = prog.Body[0].Idx0()
	}
	c.fn = top
	prog.Body = c.body(prog.Body)
	prog.DeclarationList = c.declarations(c.table.Root(), top, prog.DeclarationList)

	if c.bag.HasErrors() {
		return nil, c.failure()
	}
	return &Program{
		AST:       prog,
		Sites:     c.sites,
		Slots:     c.slots,
		Namespace: opts.Namespace,
		Scopes:    c.table,
	}, nil
}

func (c *compiler) failure() error {
	c.bag.Sort()
	return &CompileError{Diagnostics: append([]diag.Diagnostic(nil), c.bag.Items()...)}
}

func (c *compiler) loc(n ast.Node) *source.Loc {
	return source.LocOf(c.file, n.Idx0(), n.Idx1())
}

func (c *compiler) errorf(code diag.Code, n ast.Node, format string, args ...any) {
	var loc source.Loc
	if l := c.loc(n); l != nil {
		loc = *l
	}
	c.bag.Add(diag.NewError(code, loc, fmt.Sprintf(format, args...)))
}

// rename points every bound identifier at its storage name.
func (c *compiler) rename() {
	for id, b := range c.table.Identifiers() {
		if b.Storage != b.Name {
			id.Name = unistring.NewFromString(b.Storage)
		}
	}
}

// declarations appends the var storage of hoisted lexical bindings and the
// hidden slots of f to list.
func (c *compiler) declarations(fn scope.ScopeID, f *frame, list []*ast.VariableDeclaration) []*ast.VariableDeclaration {
	m := mk{at: f.at}
	var names []string
	for _, b := range c.table.Hoisted(fn) {
		names = append(names, b.Storage)
	}
	names = append(names, f.slots...)
	if len(names) == 0 {
		return list
	}
	return append(list, m.vars(names...))
}

// slot reserves a hidden variable in the current function.
func (c *compiler) slot() string {
	name := c.opts.Namespace + "$" + strconv.Itoa(c.slots)
	c.slots++
	c.fn.slots = append(c.fn.slots, name)
	return name
}

func (c *compiler) quiet() bool {
	return !c.opts.Detail || c.mute > 0
}

// visit marks n as rewritten and reports whether it was seen before.
func (c *compiler) visit(n ast.Node) bool {
	if c.seen[n] {
		return true
	}
	c.seen[n] = true
	return false
}

func (c *compiler) site(category step.Category, time step.Time, n ast.Node) int {
	c.sites = append(c.sites, Site{
		Category: category,
		Time:     time,
		Type:     kindName(n),
		Loc:      c.loc(n),
	})
	return len(c.sites) - 1
}

// report builds NS.report(v, site, scopes) for node n seen from scope sid.
func (c *compiler) report(v ast.Expression, category step.Category, time step.Time, n ast.Node, sid scope.ScopeID) ast.Expression {
	m := at(n)
	if v == nil {
		v = m.void0()
	}
	id := c.site(category, time, n)
	return m.call(m.dot(m.ident(c.opts.Namespace), "report"), v, m.num(id), c.snapshot(m, sid))
}

func (c *compiler) scopeOf(n ast.Node) scope.ScopeID {
	if id, ok := c.table.ScopeOf(n); ok {
		return id
	}
	return c.table.Root()
}

// snapshot lists the visible bindings of every scope from sid outwards.
// A binding whose storage is shadowed by a nearer one is left out since its
// value cannot be read from here.
func (c *compiler) snapshot(m mk, sid scope.ScopeID) ast.Expression {
	shadow := make(map[string]bool)
	arr := m.array()
	for _, id := range c.table.Chain(sid) {
		s := c.table.Scope(id)
		obj := m.object()
		for _, b := range s.Bindings {
			if shadow[b.Storage] {
				continue
			}
			obj.Value = append(obj.Value, m.prop(b.Name, m.ident(b.Storage)))
		}
		for _, b := range s.Bindings {
			shadow[b.Storage] = true
		}
		if s.IsFunction() {
			for _, b := range c.table.Hoisted(id) {
				shadow[b.Storage] = true
			}
		}
		arr.Value = append(arr.Value, obj)
	}
	return arr
}
