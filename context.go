package jbst

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/dangdungcntt/go-jbst/markup"
)

// CompileContext is the mutable state of one template unit: the root file or
// one nested inline or wrapper template.
type CompileContext struct {
	// FilePath is the source identity, used for naming and resource keys.
	FilePath string
	// Namespace is the default namespace prefixed to path-derived names.
	Namespace  string
	AutoMarkup AutoMarkup
	// NamedTemplates holds the slot content a wrapper unit passes to its target.
	NamedTemplates *NamedTemplates

	name     string
	nameRead bool

	// nested is set for inline and wrapper units, whose names are generated.
	nested bool

	declarations []string

	// imports and units are shared by reference with every nested unit.
	imports *importSet
	units   *unitTable

	compiler *Compiler
}

func newCompileContext(c *Compiler, filePath string) *CompileContext {
	ctx := &CompileContext{
		FilePath:       filePath,
		Namespace:      c.Namespace,
		NamedTemplates: newNamedTemplates(),
		imports:        &importSet{},
		compiler:       c,
	}
	ctx.units = &unitTable{rootName: ctx.Name}
	return ctx
}

// child opens the state of a nested template unit.
func (ctx *CompileContext) child() *CompileContext {
	return &CompileContext{
		FilePath:       ctx.FilePath,
		Namespace:      ctx.Namespace,
		AutoMarkup:     ctx.AutoMarkup,
		NamedTemplates: newNamedTemplates(),
		nested:         true,
		imports:        ctx.imports,
		units:          ctx.units,
		compiler:       ctx.compiler,
	}
}

// Name returns the dot-qualified template name. The first call fixes it.
func (ctx *CompileContext) Name() string {
	if !ctx.nameRead {
		ctx.nameRead = true
		if ctx.name == "" {
			ctx.name = defaultName(ctx.FilePath, ctx.Namespace)
		}
	}
	return ctx.name
}

// SetName overrides the path-derived name. It fails once the name was read.
func (ctx *CompileContext) SetName(name string) error {
	if ctx.nameRead {
		return errNameFixed
	}
	ctx.name = sanitizeName(name)
	return nil
}

// AddImport declares namespaces the template expects as external globals.
func (ctx *CompileContext) AddImport(namespaces ...string) {
	ctx.imports.add(namespaces...)
}

// Imports lists the declared namespaces in declaration order.
func (ctx *CompileContext) Imports() []string {
	return append([]string(nil), ctx.imports.names...)
}

// AppendDeclaration adds one-time initialization script.
func (ctx *CompileContext) AppendDeclaration(script string) {
	if script = strings.TrimSpace(script); script != "" {
		ctx.declarations = append(ctx.declarations, script)
	}
}

// Declarations returns the accumulated initialization script.
func (ctx *CompileContext) Declarations() string {
	return strings.Join(ctx.declarations, "\n")
}

// Setting looks up an app setting.
func (ctx *CompileContext) Setting(key string) (string, bool) {
	v, ok := ctx.compiler.Settings[key]
	return v, ok
}

func (ctx *CompileContext) logger() *slog.Logger {
	return ctx.compiler.logger()
}

type importSet struct {
	names []string
}

func (s *importSet) add(names ...string) {
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		found := false
		for _, n := range s.names {
			if n == name {
				found = true
				break
			}
		}
		if !found {
			s.names = append(s.names, name)
		}
	}
}

// unitTable collects what nested units contribute to the root output.
type unitTable struct {
	rootName   func() string
	count      int
	hoisted    []hoistedUnit
	references []string
}

type hoistedUnit struct {
	ctx   *CompileContext
	value string
}

// hoist names ctx after the root template and schedules value to be assigned
// to that name next to the root assignment.
func (u *unitTable) hoist(ctx *CompileContext, value string) string {
	u.count++
	ctx.name = u.rootName() + "$" + strconv.Itoa(u.count)
	ctx.nameRead = true
	u.hoisted = append(u.hoisted, hoistedUnit{ctx: ctx, value: value})
	return ctx.name
}

func (u *unitTable) reference(name string) {
	for _, n := range u.references {
		if n == name {
			return
		}
	}
	u.references = append(u.references, name)
}

// NamedTemplates maps slot names to captured tokens, keeping slot order.
type NamedTemplates struct {
	names []string
	slots map[string][]markup.Token
}

func newNamedTemplates() *NamedTemplates {
	return &NamedTemplates{slots: map[string][]markup.Token{}}
}

// Append adds tokens to a slot, creating it on first use.
func (n *NamedTemplates) Append(name string, tokens ...markup.Token) {
	if _, ok := n.slots[name]; !ok {
		n.names = append(n.names, name)
	}
	n.slots[name] = append(n.slots[name], tokens...)
}

func (n *NamedTemplates) Names() []string {
	return n.names
}

func (n *NamedTemplates) Get(name string) []markup.Token {
	return n.slots[name]
}

func (n *NamedTemplates) Len() int {
	return len(n.names)
}
