package instrument

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dop251/goja"

	"stepper/internal/diag"
	"stepper/internal/step"
)

type record struct {
	site   Site
	value  goja.Value
	scopes []map[string]any
}

func (r record) is(cat step.Category, time step.Time, typ string) bool {
	return r.site.Category == cat && r.site.Time == time && r.site.Type == typ
}

// run instruments src, executes it and returns the reports in order.
func run(t *testing.T, src string, detail bool) ([]record, *goja.Runtime) {
	t.Helper()
	p, err := CompileSource("test.js", src, Options{Detail: detail})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	exe, err := p.Executable()
	if err != nil {
		t.Fatalf("executable: %v", err)
	}

	vm := goja.New()
	var recs []record
	ns := vm.NewObject()
	if err := ns.Set("report", func(call goja.FunctionCall) goja.Value {
		r := record{site: p.Sites[call.Argument(1).ToInteger()], value: call.Argument(0)}
		if list, ok := call.Argument(2).Export().([]any); ok {
			for _, s := range list {
				m, _ := s.(map[string]any)
				r.scopes = append(r.scopes, m)
			}
		}
		recs = append(recs, r)
		return call.Argument(0)
	}); err != nil {
		t.Fatal(err)
	}
	if err := ns.Set(KeyHelper, PropertyKey); err != nil {
		t.Fatal(err)
	}
	if err := vm.Set(p.Namespace, ns); err != nil {
		t.Fatal(err)
	}
	if _, err := vm.RunProgram(exe); err != nil {
		t.Fatalf("run: %v", err)
	}
	return recs, vm
}

func global(vm *goja.Runtime, name string) string {
	return vm.Get(name).String()
}

func find(recs []record, cat step.Category, time step.Time, typ string) []record {
	var out []record
	for _, r := range recs {
		if r.is(cat, time, typ) {
			out = append(out, r)
		}
	}
	return out
}

func TestStatementsReportedBeforeAndAfter(t *testing.T) {
	recs, vm := run(t, "let a = 1;\na = a + 1;", false)
	want := []struct {
		time step.Time
		typ  string
	}{
		{step.TimeBefore, "VariableDeclaration"},
		{step.TimeAfter, "VariableDeclaration"},
		{step.TimeBefore, "ExpressionStatement"},
		{step.TimeAfter, "ExpressionStatement"},
	}
	if len(recs) != len(want) {
		t.Fatalf("got %d reports, want %d", len(recs), len(want))
	}
	for i, w := range want {
		if !recs[i].is(step.CategoryStatement, w.time, w.typ) {
			t.Fatalf("report %d = %+v, want %s %s", i, recs[i].site, w.time, w.typ)
		}
	}
	if got := global(vm, "a"); got != "2" {
		t.Fatalf("a = %s, want 2", got)
	}
	last := recs[len(recs)-1]
	if got := fmt.Sprint(last.scopes[0]["a"]); got != "2" {
		t.Fatalf("snapshot a = %s, want 2", got)
	}
	if loc := recs[2].site.Loc; loc == nil || loc.Start.Line != 2 || loc.Start.Column != 0 {
		t.Fatalf("second statement loc = %v", loc)
	}
}

func TestExpressionOrder(t *testing.T) {
	recs, _ := run(t, "let x = 1 + 2;", true)
	var got []string
	for _, r := range recs {
		if r.site.Category == step.CategoryExpression {
			got = append(got, r.site.Type+"="+r.value.String())
		}
	}
	want := []string{"NumericLiteral=1", "NumericLiteral=2", "BinaryExpression=3"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("expression reports = %v, want %v", got, want)
	}
}

func TestDetailOffDropsExpressions(t *testing.T) {
	recs, _ := run(t, "let i = 0; while (i < 3) { i++; } let o = {f() { return 1; }}; o.f();", false)
	for _, r := range recs {
		if r.site.Category != step.CategoryStatement {
			t.Fatalf("unexpected %+v without detail", r.site)
		}
	}
}

func TestPrograms(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		global string
		want   string
	}{
		{"recursion", "function fact(n) { if (n <= 1) return 1; return n * fact(n - 1); } var r = fact(5);", "r", "120"},
		{"receiver kept", "const o = {v: 2, get() { return this.v; }}; var r = o.get();", "r", "2"},
		{"computed receiver", "const o = {v: 3, get() { return this.v; }}; const k = 'get'; var r = o[k]();", "r", "3"},
		{"continue runs update", "let s = 0; for (let i = 0; i < 5; i++) { if (i % 2) continue; s += i; } var r = s;", "r", "6"},
		{"labelled loops", "var r = ''; outer: for (let i = 0; i < 3; i++) { for (let j = 0; j < 3; j++) { if (j == 1) continue outer; if (i == 2) break outer; r += i + '' + j + ','; } }", "r", "00,10,"},
		{"labelled block", "var r = 1; blk: { r = 2; break blk; r = 3; }", "r", "2"},
		{"for of const", "const out = []; for (const v of [1, 2]) out.push(v * 2); var r = out.join();", "r", "2,4"},
		{"for in", "const o = {a: 1, b: 2}; var r = ''; for (let k in o) r += k;", "r", "ab"},
		{"do while", "let n = 0; do { n++; } while (n < 4); var r = n;", "r", "4"},
		{"try catch finally", "var r; try { throw new Error('boom'); } catch (e) { r = e.message; } finally { r += '!'; }", "r", "boom!"},
		{"switch", "var r; switch (2) { case 1: r = 'a'; break; case 2: { let q = 'b'; r = q; } break; default: r = 'c'; }", "r", "b"},
		{"typeof undeclared", "var r = typeof nope;", "r", "undefined"},
		{"delete member", "const o = {a: 1}; delete o.a; var r = 'a' in o;", "r", "false"},
		{"shorthand keeps source name", "let a = 1; { let a = 2; var o = {a}; } var r = Object.keys(o)[0] + o.a;", "r", "a2"},
		{"block let resets each pass", "var r = ''; for (let i = 0; i < 2; i++) { let u; r += u; u = i; }", "r", "undefinedundefined"},
		{"arrow this", "var r; const o = {v: 7, f() { const g = () => this.v; r = g(); }}; o.f();", "r", "7"},
		{"arrow expression body", "const sq = x => x * x; var r = [1, 2, 3].map(sq).join();", "r", "1,4,9"},
		{"assignment key reported once", "const a = [0, 0]; let i = 0; a[i++] = 5; var r = a.join() + i;", "r", "5,01"},
		{"compound assignment", "let x = 2; x *= 3; var r = x;", "r", "6"},
		{"update converts key once", "let n = 0; const k = {toString() { n++; return 'a'; }}; const o = {a: 1}; o[k]++; ++o[k]; var r = n + ':' + o.a;", "r", "2:3"},
		{"update symbol key", "const s = Symbol('s'); const o = {[s]: 1}; o[s]++; var r = o[s];", "r", "2"},
		{"logical short circuit", "let n = 0; const f = () => ++n; false && f(); true || f(); var r = n;", "r", "0"},
		{"spread call", "const o = {m(a, b) { return a + b; }}; const xs = [1, 2]; var r = o.m(...xs);", "r", "3"},
		{"directive prologue", "'use strict'; var r = (function () { return this === undefined; })();", "r", "true"},
		{"template", "const n = 3; var r = `n=${n}`;", "r", "n=3"},
		{"new", "function P(x) { this.x = x; } var r = new P(4).x;", "r", "4"},
		{"default params", "function f(a, b = a + 1) { return b; } var r = f(1);", "r", "2"},
		{"closure", "function mk() { let c = 0; return () => ++c; } const inc = mk(); inc(); var r = inc();", "r", "2"},
		{"missing method throws TypeError", "const o = {}; var r; try { o.x(); } catch (e) { r = e instanceof TypeError; }", "r", "true"},
		{"loop closures share one binding", "const fs = []; for (let i = 0; i < 3; i++) fs.push(() => i); var r = fs.map(f => f()).join();", "r", "3,3,3"},
	}
	for _, detail := range []bool{false, true} {
		for _, tt := range tests {
			t.Run(fmt.Sprintf("%s/detail=%v", tt.name, detail), func(t *testing.T) {
				_, vm := run(t, tt.src, detail)
				if got := global(vm, tt.global); got != tt.want {
					t.Fatalf("%s = %q, want %q", tt.global, got, tt.want)
				}
			})
		}
	}
}

func TestUpdateExpressions(t *testing.T) {
	recs, vm := run(t, "let i = 5; let a = i++; let b = ++i; const arr = [1]; let k = 0; arr[k++]++; let d = i--;", true)
	if got := global(vm, "a") + global(vm, "b") + global(vm, "k") + global(vm, "d"); got != "5717" {
		t.Fatalf("a b k d = %s", got)
	}
	if got := vm.Get("arr").Export().([]any)[0]; fmt.Sprint(got) != "2" {
		t.Fatalf("arr[0] = %v, want 2", got)
	}
	updates := find(recs, step.CategoryExpression, step.TimeAfter, "UpdateExpression")
	var vals []string
	for _, r := range updates {
		vals = append(vals, r.value.String())
	}
	if fmt.Sprint(vals) != "[5 7 0 1 7]" {
		t.Fatalf("update values = %v", vals)
	}
}

func TestWhileTestReportedEachPass(t *testing.T) {
	recs, _ := run(t, "let n = 0;\nwhile (n < 3) n++;", true)
	if got := len(find(recs, step.CategoryExpression, step.TimeBefore, "BinaryExpression")); got != 4 {
		t.Fatalf("test before-reports = %d, want 4", got)
	}
	if got := len(find(recs, step.CategoryExpression, step.TimeAfter, "BinaryExpression")); got != 4 {
		t.Fatalf("test after-reports = %d, want 4", got)
	}
}

func TestForReportsTestAndUpdate(t *testing.T) {
	recs, _ := run(t, "for (let i = 0; i < 2; i++) {}", true)
	if got := len(find(recs, step.CategoryExpression, step.TimeBefore, "BinaryExpression")); got != 3 {
		t.Fatalf("test before-reports = %d, want 3", got)
	}
	if got := len(find(recs, step.CategoryExpression, step.TimeBefore, "UpdateExpression")); got != 2 {
		t.Fatalf("update before-reports = %d, want 2", got)
	}
	if got := len(find(recs, step.CategoryStatement, step.TimeAfter, "ForStatement")); got != 1 {
		t.Fatalf("for after-reports = %d, want 1", got)
	}
}

func TestMemberCallReportsCallee(t *testing.T) {
	recs, _ := run(t, "const o = {f() { return 1; }}; o.f();", true)
	callee := find(recs, step.CategoryExpression, step.TimeAfter, "MemberExpression")
	if len(callee) != 1 {
		t.Fatalf("member reports = %d, want 1", len(callee))
	}
	if _, ok := goja.AssertFunction(callee[0].value); !ok {
		t.Fatalf("callee report is %v, want a function", callee[0].value)
	}
	calls := find(recs, step.CategoryExpression, step.TimeAfter, "CallExpression")
	if len(calls) != 1 || calls[0].value.String() != "1" {
		t.Fatalf("call reports = %+v", calls)
	}
}

func TestSnapshots(t *testing.T) {
	t.Run("block scope first", func(t *testing.T) {
		recs, _ := run(t, "let x = 1; { let x = 2; x; }", false)
		inner := find(recs, step.CategoryStatement, step.TimeAfter, "ExpressionStatement")
		if len(inner) != 1 {
			t.Fatalf("got %d inner reports", len(inner))
		}
		sc := inner[0].scopes
		if len(sc) != 2 || fmt.Sprint(sc[0]["x"]) != "2" || fmt.Sprint(sc[1]["x"]) != "1" {
			t.Fatalf("scopes = %v", sc)
		}
	})
	t.Run("outer binding visible beside inner block binding", func(t *testing.T) {
		recs, _ := run(t, "let y = 1; function f() { { let y = 2; } return 0; } f();", false)
		ret := find(recs, step.CategoryStatement, step.TimeBefore, "ReturnStatement")
		if len(ret) != 1 || len(ret[0].scopes) != 2 {
			t.Fatalf("return reports = %+v", ret)
		}
		if got := fmt.Sprint(ret[0].scopes[1]["y"]); got != "1" {
			t.Fatalf("program y = %s, want 1: %v", got, ret[0].scopes)
		}
		if _, ok := ret[0].scopes[0]["y"]; ok {
			t.Fatalf("block y leaked into function scope: %v", ret[0].scopes)
		}
	})
	t.Run("function binding shadows outer binding", func(t *testing.T) {
		recs, _ := run(t, "let y = 1; function f() { let y = 2; return 0; } f();", false)
		ret := find(recs, step.CategoryStatement, step.TimeBefore, "ReturnStatement")
		if len(ret) != 1 || len(ret[0].scopes) != 2 {
			t.Fatalf("return reports = %+v", ret)
		}
		if got := fmt.Sprint(ret[0].scopes[0]["y"]); got != "2" {
			t.Fatalf("function y = %s, want 2", got)
		}
		if _, ok := ret[0].scopes[1]["y"]; ok {
			t.Fatalf("program y visible under function y: %v", ret[0].scopes)
		}
	})
	t.Run("function value uses enclosing scope", func(t *testing.T) {
		recs, _ := run(t, "let z = 3; const f = function (p) { return p; };", true)
		fns := find(recs, step.CategoryExpression, step.TimeAfter, "FunctionExpression")
		if len(fns) != 1 || len(fns[0].scopes) != 1 {
			t.Fatalf("function reports = %+v", fns)
		}
		if _, ok := fns[0].scopes[0]["p"]; ok {
			t.Fatal("parameter leaked into enclosing snapshot")
		}
	})
	t.Run("empty scopes kept", func(t *testing.T) {
		recs, _ := run(t, "if (true) { 1; }", false)
		inner := find(recs, step.CategoryStatement, step.TimeBefore, "ExpressionStatement")
		if len(inner) != 1 || len(inner[0].scopes) != 2 {
			t.Fatalf("scopes = %+v", inner)
		}
	})
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		code   diag.Code
		syntax bool
	}{
		{"syntax", "let = ;", diag.SynError, true},
		{"class", "class A {}", diag.InsUnsupportedSyntax, false},
		{"destructuring", "const {a} = {a: 1};", diag.InsUnsupportedSyntax, false},
		{"generator", "function* g() {}", diag.InsUnsupportedSyntax, false},
		{"optional chain", "const o = null; o?.x;", diag.InsUnsupportedSyntax, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileSource("test.js", tt.src, Options{Detail: true})
			var ce *CompileError
			if !errors.As(err, &ce) {
				t.Fatalf("err = %v, want *CompileError", err)
			}
			if ce.Diagnostics[0].Code != tt.code {
				t.Fatalf("code = %s, want %s", ce.Diagnostics[0].Code.ID(), tt.code.ID())
			}
			if ce.IsSyntax() != tt.syntax {
				t.Fatalf("IsSyntax = %v", ce.IsSyntax())
			}
			if ce.Diagnostics[0].Loc.Start.Line != 1 {
				t.Fatalf("loc = %v", ce.Diagnostics[0].Loc)
			}
		})
	}
}

func TestSitesHaveLocations(t *testing.T) {
	p, err := CompileSource("test.js", "let a = 1;\nif (a) {\n  a++;\n}", Options{Detail: true})
	if err != nil {
		t.Fatal(err)
	}
	for i, s := range p.Sites {
		if s.Loc == nil {
			t.Fatalf("site %d (%s) has no location", i, s.Type)
		}
		if s.Type == "" {
			t.Fatalf("site %d has no type", i)
		}
	}
	if p.Slots == 0 {
		t.Fatal("update should use slots")
	}
}
