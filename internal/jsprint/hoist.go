package jsprint

import "github.com/dop251/goja/ast"

// hoisted returns the names a function declares only through its
// declaration list. Rewritten programs can register variables there without
// a var statement in the body; they are printed as a leading var.
func hoisted(list []*ast.VariableDeclaration, body []ast.Statement) []string {
	if len(list) == 0 {
		return nil
	}
	have := map[string]bool{}
	for _, s := range body {
		varNames(s, have)
	}
	var out []string
	for _, decl := range list {
		for _, b := range decl.List {
			id, ok := b.Target.(*ast.Identifier)
			if !ok {
				continue
			}
			name := id.Name.String()
			if have[name] {
				continue
			}
			have[name] = true
			out = append(out, name)
		}
	}
	return out
}

// varNames collects var-declared identifiers without entering nested
// functions.
func varNames(s ast.Statement, into map[string]bool) {
	add := func(list []*ast.Binding) {
		for _, b := range list {
			if id, ok := b.Target.(*ast.Identifier); ok {
				into[id.Name.String()] = true
			}
		}
	}
	switch s := s.(type) {
	case *ast.VariableStatement:
		add(s.List)
	case *ast.BlockStatement:
		for _, x := range s.List {
			varNames(x, into)
		}
	case *ast.IfStatement:
		varNames(s.Consequent, into)
		varNames(s.Alternate, into)
	case *ast.LabelledStatement:
		varNames(s.Statement, into)
	case *ast.WhileStatement:
		varNames(s.Body, into)
	case *ast.DoWhileStatement:
		varNames(s.Body, into)
	case *ast.WithStatement:
		varNames(s.Body, into)
	case *ast.ForStatement:
		if init, ok := s.Initializer.(*ast.ForLoopInitializerVarDeclList); ok {
			add(init.List)
		}
		varNames(s.Body, into)
	case *ast.ForInStatement:
		if v, ok := s.Into.(*ast.ForIntoVar); ok {
			add([]*ast.Binding{v.Binding})
		}
		varNames(s.Body, into)
	case *ast.ForOfStatement:
		if v, ok := s.Into.(*ast.ForIntoVar); ok {
			add([]*ast.Binding{v.Binding})
		}
		varNames(s.Body, into)
	case *ast.SwitchStatement:
		for _, cs := range s.Body {
			for _, x := range cs.Consequent {
				varNames(x, into)
			}
		}
	case *ast.TryStatement:
		varNames(s.Body, into)
		if s.Catch != nil {
			varNames(s.Catch.Body, into)
		}
		if s.Finally != nil {
			varNames(s.Finally, into)
		}
	}
}

// prologue counts the leading directive statements.
func prologue(body []ast.Statement) int {
	n := 0
	for _, s := range body {
		es, ok := s.(*ast.ExpressionStatement)
		if !ok {
			break
		}
		if _, ok := es.Expression.(*ast.StringLiteral); !ok {
			break
		}
		n++
	}
	return n
}
