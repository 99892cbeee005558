package scope

import (
	"fmt"

	"github.com/dop251/goja/ast"
)

// ScopeID identifies a scope inside a Table. Zero means "no scope".
type ScopeID uint32

const NoScopeID ScopeID = 0

// Kind classifies a source scope.
type Kind uint8

const (
	KindProgram Kind = iota + 1
	KindFunction
	KindBlock
	KindLoop   // for / for-in / for-of head with let or const
	KindCatch  // catch parameter and catch body
	KindSwitch // case clauses of a switch
)

func (k Kind) String() string {
	switch k {
	case KindProgram:
		return "program"
	case KindFunction:
		return "function"
	case KindBlock:
		return "block"
	case KindLoop:
		return "loop"
	case KindCatch:
		return "catch"
	case KindSwitch:
		return "switch"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// BindingKind records how a name was declared.
type BindingKind uint8

const (
	BindVar BindingKind = iota + 1
	BindLet
	BindConst
	BindParam
	BindFunction
	BindCatch
	BindSelf // name of a named function expression
)

func (k BindingKind) String() string {
	switch k {
	case BindVar:
		return "var"
	case BindLet:
		return "let"
	case BindConst:
		return "const"
	case BindParam:
		return "param"
	case BindFunction:
		return "function"
	case BindCatch:
		return "catch"
	case BindSelf:
		return "self"
	default:
		return fmt.Sprintf("BindingKind(%d)", k)
	}
}

// Lexical reports whether the binding is block scoped in the source and so
// needs function-level var storage after rewriting.
func (k BindingKind) Lexical() bool {
	return k == BindLet || k == BindConst
}

// Binding is one declared name.
type Binding struct {
	Name    string // name in the source
	Storage string // name after hoisting; differs from Name only on collision
	Kind    BindingKind
	Scope   ScopeID
}

// Scope is one node of the scope tree.
type Scope struct {
	ID       ScopeID
	Kind     Kind
	Parent   ScopeID
	Function ScopeID    // owning function or program scope; itself for those
	Node     ast.Node   // nil for the program scope
	Bindings []*Binding // declaration order
}

// IsFunction reports whether s owns var storage.
func (s *Scope) IsFunction() bool {
	return s.Kind == KindFunction || s.Kind == KindProgram
}

// Unsupported is a construct the analysis refused to model.
type Unsupported struct {
	Node ast.Node
	What string
}

// Table is the immutable result of Build. Slices returned by its methods
// are shared and must not be modified.
type Table struct {
	scopes      []*Scope
	nodes       map[ast.Node]ScopeID
	owners      map[ast.Node]ScopeID
	idents      map[*ast.Identifier]*Binding
	hoisted     map[ScopeID][]*Binding
	unsupported []Unsupported
}

// Root returns the program scope.
func (t *Table) Root() ScopeID {
	return 1
}

// Len returns the number of scopes.
func (t *Table) Len() int {
	return len(t.scopes)
}

// Scope returns the scope with the given id, or nil.
func (t *Table) Scope(id ScopeID) *Scope {
	if id == NoScopeID || int(id) > len(t.scopes) {
		return nil
	}
	return t.scopes[id-1]
}

// ScopeOf returns the scope governing a statement or expression node.
func (t *Table) ScopeOf(n ast.Node) (ScopeID, bool) {
	id, ok := t.nodes[n]
	return id, ok
}

// Owned returns the scope created by a function, block, loop,
// catch clause or switch node.
func (t *Table) Owned(n ast.Node) (ScopeID, bool) {
	id, ok := t.owners[n]
	return id, ok
}

// Identifiers returns every identifier the analysis bound, declarations and
// references alike.
func (t *Table) Identifiers() map[*ast.Identifier]*Binding {
	return t.idents
}

// Resolve returns the binding an identifier refers to or declares.
// Nil means the identifier is global or undeclared.
func (t *Table) Resolve(id *ast.Identifier) *Binding {
	return t.idents[id]
}

// Hoisted returns the lexical bindings that get var storage in function fn,
// in declaration order.
func (t *Table) Hoisted(fn ScopeID) []*Binding {
	return t.hoisted[fn]
}

// Chain returns id and its ancestors, innermost first.
func (t *Table) Chain(id ScopeID) []ScopeID {
	var out []ScopeID
	for s := t.Scope(id); s != nil; s = t.Scope(s.Parent) {
		out = append(out, s.ID)
	}
	return out
}

// Unsupported lists constructs found during analysis that cannot be traced.
func (t *Table) Unsupported() []Unsupported {
	return t.unsupported
}

// Lookup finds the binding named name visible from scope id.
func (t *Table) Lookup(id ScopeID, name string) *Binding {
	for s := t.Scope(id); s != nil; s = t.Scope(s.Parent) {
		for _, b := range s.Bindings {
			if b.Name == name {
				return b
			}
		}
	}
	return nil
}
