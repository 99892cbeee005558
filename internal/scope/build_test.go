package scope

import (
	"testing"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/parser"
)

func parse(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, err := parser.ParseFile(nil, "test.js", src, 0)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return prog
}

func storages(bs []*Binding) []string {
	out := make([]string, 0, len(bs))
	for _, b := range bs {
		out = append(out, b.Name+"="+b.Storage)
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestStorageNames(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			name: "no collision keeps names",
			src:  "{ let y = 1; }",
			want: []string{"y=y"},
		},
		{
			name: "shadowed block binding renamed",
			src:  "let x = 1; { let x = 2; }",
			want: []string{"x=x", "x=x$1"},
		},
		{
			name: "sibling blocks get distinct storage",
			src:  "{ let a = 1; } { const a = 2; }",
			want: []string{"a=a", "a=a$1"},
		},
		{
			name: "unresolved global is reserved",
			src:  "{ let console = 1; } console.log(2);",
			want: []string{"console=console$1"},
		},
		{
			name: "generated name avoids existing identifiers",
			src:  "var x$1 = 0; let x = 1; { let x = 2; }",
			want: []string{"x=x", "x=x$2"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tab := Build(parse(t, tt.src))
			if got := storages(tab.Hoisted(tab.Root())); !equal(got, tt.want) {
				t.Errorf("hoisted = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOuterReferenceReservesName(t *testing.T) {
	src := `var n = 1;
function f() {
  { let n = 2; }
  return n;
}`
	p := parse(t, src)
	tab := Build(p)
	fn := tab.Scope(2)
	if fn == nil || fn.Kind != KindFunction {
		t.Fatalf("scope 2 = %+v, want function", fn)
	}
	if got := storages(tab.Hoisted(fn.ID)); !equal(got, []string{"n=n$1"}) {
		t.Errorf("hoisted in f = %v", got)
	}

	ret := p.Body[1].(*ast.FunctionDeclaration).Function.Body.List[1].(*ast.ReturnStatement)
	b := tab.Resolve(ret.Argument.(*ast.Identifier))
	if b == nil || b.Scope != tab.Root() {
		t.Errorf("return n resolves to %+v, want program binding", b)
	}
}

func TestEnclosingBindingReservesName(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			name: "unreferenced program binding",
			src:  "let x = 1;\nfunction f() {\n  { let x = 2; }\n  0;\n}",
			want: []string{"x=x$1"},
		},
		{
			name: "unreferenced binding of enclosing function",
			src:  "function g() {\n  let y = 2;\n  function f() { { let y = 3; } }\n}",
			want: []string{"y=y$1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tab := Build(parse(t, tt.src))
			var fn *Scope
			for id := tab.Root(); tab.Scope(id) != nil; id++ {
				if s := tab.Scope(id); s.Kind == KindFunction {
					fn = s
				}
			}
			if fn == nil {
				t.Fatal("no function scope")
			}
			if got := storages(tab.Hoisted(fn.ID)); !equal(got, tt.want) {
				t.Errorf("hoisted in f = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestForLoopScopes(t *testing.T) {
	p := parse(t, "for (let i = 0; i < 3; i++) { let j = i; }")
	tab := Build(p)

	loop := p.Body[0].(*ast.ForStatement)
	if id, _ := tab.ScopeOf(loop); id != tab.Root() {
		t.Errorf("for statement governed by %d, want root", id)
	}
	test := loop.Test.(*ast.BinaryExpression)
	loopScope, _ := tab.ScopeOf(test)
	if k := tab.Scope(loopScope).Kind; k != KindLoop {
		t.Fatalf("test governed by %v, want loop", k)
	}
	body := loop.Body.(*ast.BlockStatement)
	decl := body.List[0]
	inner, _ := tab.ScopeOf(decl)
	chain := tab.Chain(inner)
	if len(chain) != 3 || chain[1] != loopScope || chain[2] != tab.Root() {
		t.Errorf("chain = %v", chain)
	}
	if got := storages(tab.Hoisted(tab.Root())); !equal(got, []string{"i=i", "j=j"}) {
		t.Errorf("hoisted = %v", got)
	}

	ref := decl.(*ast.LexicalDeclaration).List[0].Initializer.(*ast.Identifier)
	if b := tab.Resolve(ref); b == nil || b.Scope != loopScope {
		t.Errorf("i in body resolves to %+v", b)
	}
}

func TestFunctionBindings(t *testing.T) {
	p := parse(t, "var g = function fact(n, ...rest) { var acc = 1; function h() {} return fact; };")
	tab := Build(p)
	fn := tab.Scope(2)
	var names []string
	for _, b := range fn.Bindings {
		names = append(names, b.Name+":"+b.Kind.String())
	}
	want := []string{"fact:self", "n:param", "rest:param", "h:function", "acc:var"}
	if !equal(names, want) {
		t.Errorf("bindings = %v, want %v", names, want)
	}
	if len(tab.Hoisted(fn.ID)) != 0 {
		t.Error("function without lexical bindings hoists nothing")
	}
}

func TestCatchAndSwitchScopes(t *testing.T) {
	p := parse(t, `try { f(); } catch (e) { let m = e; }
switch (1) { case 1: let k = 2; }`)
	tab := Build(p)
	kinds := map[Kind]int{}
	for i := 1; i <= tab.Len(); i++ {
		kinds[tab.Scope(ScopeID(i)).Kind]++
	}
	if kinds[KindCatch] != 1 || kinds[KindSwitch] != 1 || kinds[KindBlock] != 1 {
		t.Errorf("scope kinds = %v", kinds)
	}
	if got := storages(tab.Hoisted(tab.Root())); !equal(got, []string{"m=m", "k=k"}) {
		t.Errorf("hoisted = %v", got)
	}
}

func TestUnsupportedConstructs(t *testing.T) {
	p := parse(t, "let {a} = o; class C {} function* g() {}")
	tab := Build(p)
	var what []string
	for _, u := range tab.Unsupported() {
		what = append(what, u.What)
	}
	want := []string{"destructuring declaration", "class declaration", "generator function"}
	if !equal(what, want) {
		t.Errorf("unsupported = %v, want %v", what, want)
	}
}

func TestBuildIsPure(t *testing.T) {
	p := parse(t, "let x = 1; { let x = 2; x++; }")
	Build(p)
	blk := p.Body[1].(*ast.BlockStatement)
	id := blk.List[0].(*ast.LexicalDeclaration).List[0].Target.(*ast.Identifier)
	if id.Name.String() != "x" {
		t.Errorf("Build renamed the source identifier to %q", id.Name)
	}
}
