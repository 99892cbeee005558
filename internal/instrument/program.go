package instrument

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dop251/goja"
	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/parser"

	"stepper/internal/diag"
	"stepper/internal/scope"
	"stepper/internal/source"
	"stepper/internal/step"
)

// DefaultNamespace is the global through which instrumented code reaches the
// reporter.
const DefaultNamespace = "__V__"

// KeyHelper is the member of the namespace object that turns a computed
// key into a property key. Rewrites that read and then write the same
// member convert the key once through it.
const KeyHelper = "key"

// PropertyKey implements KeyHelper: symbols pass through, anything else
// goes through ToString.
func PropertyKey(call goja.FunctionCall) goja.Value {
	k := call.Argument(0)
	if _, ok := k.(*goja.Symbol); ok {
		return k
	}
	return k.ToString()
}

// Options control what the compiler emits.
type Options struct {
	// Detail keeps expression-level reports. Without it only statements are
	// reported.
	Detail bool
	// Namespace is the name of the reporter global; empty means DefaultNamespace.
	Namespace string
}

func (o Options) withDefaults() Options {
	if o.Namespace == "" {
		o.Namespace = DefaultNamespace
	}
	return o
}

// Site describes one report point. The report call passes the site index
// instead of repeating this data at run time.
type Site struct {
	Category step.Category
	Time     step.Time
	Type     string
	Loc      *source.Loc
}

// Program is an instrumented program ready to run.
type Program struct {
	AST       *ast.Program
	Sites     []Site
	Slots     int
	Namespace string
	Scopes    *scope.Table
}

// CompileError reports why a program could not be instrumented.
type CompileError struct {
	Diagnostics []diag.Diagnostic
}

func (e *CompileError) Error() string {
	if len(e.Diagnostics) == 0 {
		return "compile failed"
	}
	msg := e.Diagnostics[0].String()
	if n := len(e.Diagnostics) - 1; n > 0 {
		msg = fmt.Sprintf("%s (and %d more)", msg, n)
	}
	return msg
}

// IsSyntax reports whether the failure happened while parsing.
func (e *CompileError) IsSyntax() bool {
	for _, d := range e.Diagnostics {
		if d.Code == diag.SynError || d.Code == diag.SynBadProgram {
			return true
		}
	}
	return false
}

// Parse parses program text in script mode.
func Parse(name, src string) (*ast.Program, error) {
	prog, err := parser.ParseFile(nil, name, src, 0, parser.WithDisableSourceMaps)
	if err == nil {
		return prog, nil
	}

	var list parser.ErrorList
	if errors.As(err, &list) && len(list) > 0 {
		ce := &CompileError{}
		for _, e := range list {
			pos := source.FromPosition(e.Position)
			ce.Diagnostics = append(ce.Diagnostics, diag.NewError(diag.SynError, source.Loc{Start: pos, End: pos}, e.Message))
		}
		return nil, ce
	}
	return nil, &CompileError{Diagnostics: []diag.Diagnostic{
		diag.NewError(diag.SynBadProgram, source.Loc{}, strings.TrimSpace(err.Error())),
	}}
}

// CompileSource parses and instruments src.
func CompileSource(name, src string, opts Options) (*Program, error) {
	prog, err := Parse(name, src)
	if err != nil {
		return nil, err
	}
	return Compile(prog, opts)
}

// Executable hands the instrumented AST to the engine.
func (p *Program) Executable() (*goja.Program, error) {
	compiled, err := goja.CompileAST(p.AST, false)
	if err != nil {
		return nil, &CompileError{Diagnostics: []diag.Diagnostic{
			diag.NewError(diag.InsBackendRejected, source.Loc{}, err.Error()),
		}}
	}
	return compiled, nil
}
