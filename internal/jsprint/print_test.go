package jsprint_test

import (
	"strings"
	"testing"

	"github.com/dop251/goja"
	"github.com/dop251/goja/parser"

	"stepper/internal/instrument"
	"stepper/internal/jsprint"
)

func mustPrint(t *testing.T, src string) string {
	t.Helper()
	prog, err := parser.ParseFile(nil, "test.js", src, 0, parser.WithDisableSourceMaps)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	return jsprint.Print(prog)
}

func TestPrintExact(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"a+b*c", "a + b * c;\n"},
		{"(a+b)*c", "(a + b) * c;\n"},
		{"a-(b-c)", "a - (b - c);\n"},
		{"(a-b)-c", "a - b - c;\n"},
		{"x = y = 1", "x = y = 1;\n"},
		{"f((a, b))", "f((a, b));\n"},
		{"(-2) ** 2", "(-2) ** 2;\n"},
		{"2 ** 3 ** 2", "2 ** 3 ** 2;\n"},
		{"(2 ** 3) ** 2", "(2 ** 3) ** 2;\n"},
		{"(a ?? b) || c", "(a ?? b) || c;\n"},
		{"- -x", "- -x;\n"},
		{"-(-x)", "- -x;\n"},
		{"typeof x === 'u'", "typeof x === 'u';\n"},
		{"({}).a", "({}.a);\n"},
		{"(function(){})()", "(function() {}());\n"},
		{"new (f())()", "new (f())();\n"},
		{"new a.b()", "new a.b();\n"},
		{"(a, b) ? c : d", "(a, b) ? c : d;\n"},
		{"a ? b : c ? d : e", "a ? b : c ? d : e;\n"},
		{"x => ({})", "(x) => ({});\n"},
		{"[1,,2,,]", "[1, , 2, ,];\n"},
		{"var a = 1, b;", "var a = 1, b;\n"},
		{"let {a, b: c} = o;", "let { a, b: c } = o;\n"},
		{"for (var i = 0; i < 3; i++) ;", "for (var i = 0; i < 3; i++)\n  ;\n"},
		{"for (const k in o) {}", "for (const k in o) {}\n"},
		{"if (a) b(); else c();", "if (a) {\n  b();\n} else\n  c();\n"},
		{"l: while (a) break l;", "l: while (a)\n  break l;\n"},
		{"do x++; while (x < 3)", "do\n  x++;\nwhile (x < 3);\n"},
		{"try { a } catch (e) { b } finally { c }", "try {\n  a;\n} catch (e) {\n  b;\n} finally {\n  c;\n}\n"},
		{"switch (x) { case 1: a; default: b }", "switch (x) {\n  case 1:\n    a;\n  default:\n    b;\n}\n"},
		{"o = {a, 'b-c': 1, [k]: 2, m() {}, get g() { return 1 }}", "o = { a, 'b-c': 1, [k]: 2, m() {}, get g() {\n  return 1;\n} };\n"},
		{"`a${b}c`", "`a${b}c`;\n"},
		{"1..toString()", "1..toString();\n"},
		{"(1).toString()", "(1).toString();\n"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			if got := mustPrint(t, tt.src); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPrintIsStable(t *testing.T) {
	sources := []string{
		"'use strict';\nvar x = 1;\nfunction f(a, b = 2, ...c) { 'use strict'; return a + b + c.length; }",
		"async function g() { await p; for (const v of [1, 2]) { if (!v) continue; } }",
		"label: for (let i = 0, j = 1; i < 3; i += 1, j *= 2) { if (i & 1) continue label; }",
		"const o = { a: 1, ...rest, async m() {}, set s(v) {} }; delete o.a; void 0;",
		"x = a ? b ? 1 : 2 : (c, d); y = (!(a && b) || c) ?? 0;",
		"try { throw new Error('x'); } catch { } new Date().getTime();",
		"var re = /a+b/g; var s = 'it\\'s'; var n = 0x1F + 1e3 + .5;",
		"for (x in o) ; for (a.b of c) {} while (1) { do { break; } while (0); }",
	}
	for _, src := range sources {
		first := mustPrint(t, src)
		second := mustPrint(t, first)
		if first != second {
			t.Errorf("printing is not stable for %q\nfirst:\n%s\nsecond:\n%s", src, first, second)
		}
	}
}

func TestPrintDeclaresHoistedNames(t *testing.T) {
	p, err := instrument.CompileSource("test.js", "function f(n) { return n < 2 ? 1 : n * f(n - 1); }\nvar r = f(5);", instrument.Options{Detail: true})
	if err != nil {
		t.Fatal(err)
	}
	out := jsprint.Print(p.AST)
	if !strings.Contains(out, "var "+p.Namespace+"$") {
		t.Fatalf("hidden slots are not declared:\n%s", out)
	}
	if _, err := parser.ParseFile(nil, "out.js", out, 0); err != nil {
		t.Fatalf("printed program does not parse: %v\n%s", err, out)
	}
}

// TestPrintedProgramRunsTheSame executes the instrumented tree and its
// printed text and compares the reports they make.
func TestPrintedProgramRunsTheSame(t *testing.T) {
	sources := []string{
		"let a = 1;\nfor (let i = 0; i < 4; i++) { a = a * 2 + i; }\nvar out = a;",
		"function f(n) { return n < 2 ? 1 : n * f(n - 1); }\nvar out = f(6);",
		"var o = { n: 1, inc() { return ++this.n; } };\no.inc(); o.inc();\nvar out = o.n;",
		"var out = '';\nouter: for (var i = 0; i < 3; i++) { for (var j = 0; j < 3; j++) { if (j == 1) continue outer; out += i + '' + j; } }",
		"var out = 0;\ntry { null.x; } catch (e) { out = e instanceof TypeError ? 1 : 2; }",
		"var xs = [3, 1, 2];\nvar out = xs.map(x => x * 2).join(',');",
		"var out = (function () { var k = 0; while (k < 5) k += 2; return k; })();",
	}
	for _, src := range sources {
		for _, detail := range []bool{false, true} {
			p, err := instrument.CompileSource("test.js", src, instrument.Options{Detail: detail})
			if err != nil {
				t.Fatalf("compile %q: %v", src, err)
			}
			exe, err := p.Executable()
			if err != nil {
				t.Fatal(err)
			}
			text := jsprint.Print(p.AST)

			direct, outDirect := execute(t, p.Namespace, func(vm *goja.Runtime) error {
				_, err := vm.RunProgram(exe)
				return err
			})
			printed, outPrinted := execute(t, p.Namespace, func(vm *goja.Runtime) error {
				_, err := vm.RunString(text)
				return err
			})
			if outDirect != outPrinted {
				t.Errorf("%q detail=%v: out %q vs %q\n%s", src, detail, outDirect, outPrinted, text)
			}
			if strings.Join(direct, ",") != strings.Join(printed, ",") {
				t.Errorf("%q detail=%v: sites differ\n%v\n%v\n%s", src, detail, direct, printed, text)
			}
		}
	}
}

func execute(t *testing.T, ns string, run func(*goja.Runtime) error) ([]string, string) {
	t.Helper()
	vm := goja.New()
	var sites []string
	reporter := vm.NewObject()
	if err := reporter.Set("report", func(call goja.FunctionCall) goja.Value {
		sites = append(sites, call.Argument(1).String())
		return call.Argument(0)
	}); err != nil {
		t.Fatal(err)
	}
	if err := reporter.Set(instrument.KeyHelper, instrument.PropertyKey); err != nil {
		t.Fatal(err)
	}
	if err := vm.Set(ns, reporter); err != nil {
		t.Fatal(err)
	}
	if err := run(vm); err != nil {
		t.Fatalf("run: %v", err)
	}
	return sites, vm.Get("out").String()
}
