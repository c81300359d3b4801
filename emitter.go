package jbst

import (
	"io"
	"strings"
)

// Template is the compiled program of one template file.
type Template struct {
	// Name is the dot-qualified JavaScript name the tree is assigned to.
	Name       string
	FilePath   string
	AutoMarkup AutoMarkup
	// Imports lists the external namespaces the program expects.
	Imports []string
	// Globals is Imports reduced to unique top-level identifiers.
	Globals []string
	// Namespaces lists the namespace objects Name needs, outermost first.
	Namespaces []string
	// References names the templates invoked by reference or wrapper commands.
	References []string
	// Body is the program without its global comment and namespace guards.
	Body string
	// Script is the complete program.
	Script string
}

func (t *Template) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, t.Script)
	return int64(n), err
}

// emit assembles the program of a root unit.
func (ctx *CompileContext) emit(tree string, empty bool) *Template {
	name := ctx.Name()
	t := &Template{
		Name:       name,
		FilePath:   ctx.FilePath,
		AutoMarkup: ctx.AutoMarkup,
		Namespaces: namespacesOf(name),
		References: append([]string(nil), ctx.units.references...),
	}
	if !empty {
		t.Imports = append(t.Imports, runtimeGlobal)
	}
	for _, imp := range ctx.imports.names {
		if imp != runtimeGlobal {
			t.Imports = append(t.Imports, imp)
		}
	}
	t.Globals = globalsOf(t.Imports)

	var body strings.Builder
	if empty {
		writeAssignment(&body, name, noopScript)
	} else {
		writeAssignment(&body, name, runtimeTemplate+"("+tree+")")
	}
	for _, u := range ctx.units.hoisted {
		writeAssignment(&body, u.ctx.name, u.value)
		writeDeclarations(&body, u.ctx)
	}
	writeDeclarations(&body, ctx)
	t.Body = body.String()

	var b strings.Builder
	writeGlobals(&b, t.Globals)
	writeNamespaces(&b, t.Namespaces, nil)
	b.WriteString(t.Body)
	t.Script = b.String()
	return t
}

// globalsOf keeps the part of each import before the first '.', once.
func globalsOf(imports []string) []string {
	var globals []string
	seen := map[string]bool{}
	for _, imp := range imports {
		top, _, _ := strings.Cut(imp, ".")
		if top == "" || seen[top] {
			continue
		}
		seen[top] = true
		globals = append(globals, top)
	}
	return globals
}

// namespacesOf returns "A", "A.B" for the name "A.B.C".
func namespacesOf(name string) []string {
	segments := strings.Split(name, ".")
	var namespaces []string
	for i := 1; i < len(segments); i++ {
		namespaces = append(namespaces, strings.Join(segments[:i], "."))
	}
	return namespaces
}

func writeGlobals(b *strings.Builder, globals []string) {
	if len(globals) == 0 {
		return
	}
	b.WriteString("/*global ")
	b.WriteString(strings.Join(globals, ", "))
	b.WriteString(" */\n")
}

// writeNamespaces guards every namespace not yet in declared, recording it.
func writeNamespaces(b *strings.Builder, namespaces []string, declared map[string]bool) {
	for _, ns := range namespaces {
		if declared != nil {
			if declared[ns] {
				continue
			}
			declared[ns] = true
		}
		if !strings.Contains(ns, ".") {
			b.WriteString("var " + ns + "; ")
		}
		b.WriteString(`if ("undefined" === typeof ` + ns + `) { ` + ns + " = {}; }\n")
	}
}

func writeAssignment(b *strings.Builder, name, value string) {
	if !strings.Contains(name, ".") {
		b.WriteString("var ")
	}
	b.WriteString(name + " = " + value + ";\n")
}

func writeDeclarations(b *strings.Builder, ctx *CompileContext) {
	if len(ctx.declarations) == 0 {
		return
	}
	b.WriteString("(function() {\n")
	b.WriteString(ctx.Declarations())
	b.WriteString("\n}).call(" + ctx.name + ");\n")
}
