package jbst

import (
	"strings"
	"sync"

	"golang.org/x/text/cases"

	"github.com/dangdungcntt/go-jbst/jsliteral"
)

// resourceLookup is the runtime object resolving localized strings.
const resourceLookup = "JsonFx.Lang"

// ExtensionInvocation is a parsed <%$ Prefix: value %> block.
type ExtensionInvocation struct {
	Prefix string
	Value  string
	// Raw is the untouched block interior.
	Raw string
}

// Extension renders one extension block.
type Extension interface {
	Render(ctx *CompileContext) (Script, error)
}

// ExtensionFactory builds the Extension for an invocation.
type ExtensionFactory func(inv ExtensionInvocation) Extension

// ExtensionRegistry resolves extension prefixes, ignoring case. Unknown
// prefixes resolve to a pass-through extension re-emitting the block as text.
type ExtensionRegistry struct {
	mu        sync.RWMutex
	factories map[string]ExtensionFactory
	fallback  ExtensionFactory
}

// NewExtensionRegistry returns a registry seeded with the AppSettings and
// Resources extensions.
func NewExtensionRegistry() *ExtensionRegistry {
	r := &ExtensionRegistry{
		factories: map[string]ExtensionFactory{},
		fallback:  newLiteralExtension,
	}
	r.Register("AppSettings", newAppSettingsExtension)
	r.Register("Resources", newResourceExtension)
	return r
}

func normalizePrefix(prefix string) string {
	return cases.Fold().String(strings.TrimSpace(prefix))
}

// Register binds prefix to f, replacing any previous binding.
func (r *ExtensionRegistry) Register(prefix string, f ExtensionFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[normalizePrefix(prefix)] = f
}

// Resolve splits raw on its first ':' and looks up the prefix. known is false
// when the fallback was used.
func (r *ExtensionRegistry) Resolve(raw string) (ext Extension, known bool) {
	prefix, value, _ := strings.Cut(raw, ":")
	inv := ExtensionInvocation{
		Prefix: strings.TrimSpace(prefix),
		Value:  strings.TrimSpace(value),
		Raw:    raw,
	}
	r.mu.RLock()
	f, ok := r.factories[normalizePrefix(prefix)]
	r.mu.RUnlock()
	if !ok {
		return r.fallback(inv), false
	}
	return f(inv), true
}

type literalExtension struct {
	raw string
}

func newLiteralExtension(inv ExtensionInvocation) Extension {
	return literalExtension{raw: inv.Raw}
}

func (x literalExtension) Render(*CompileContext) (Script, error) {
	return Script{JS: jsliteral.String("<%$" + x.raw + "%>")}, nil
}

// appSettingsExtension inlines a configuration value at compile time.
type appSettingsExtension struct {
	key string
}

func newAppSettingsExtension(inv ExtensionInvocation) Extension {
	return appSettingsExtension{key: inv.Value}
}

func (x appSettingsExtension) Render(ctx *CompileContext) (Script, error) {
	v, ok := ctx.Setting(x.key)
	if !ok {
		ctx.logger().Warn("app setting not defined", "file", ctx.FilePath, "key", x.key)
		return Script{JS: noopScript}, nil
	}
	return Script{JS: jsliteral.String(v)}, nil
}

// resourceExtension looks up a localized string at bind time.
type resourceExtension struct {
	value string
}

func newResourceExtension(inv ExtensionInvocation) Extension {
	return resourceExtension{value: inv.Value}
}

func (x resourceExtension) Render(ctx *CompileContext) (Script, error) {
	ctx.AddImport(resourceLookup)
	key := ResourceKey(ctx.FilePath, x.value)
	return Script{
		JS:       "function(){return " + resourceLookup + ".get(" + jsliteral.String(key) + ");}",
		Callable: true,
	}, nil
}

// ResourceKey composes the lookup key of a resource value. An explicit
// "Class, Key" pair is kept as written; a bare key is qualified with the
// app-relative file path: "~/Foo.jbst" and "key" give "/Foo.jbst,key".
func ResourceKey(filePath, value string) string {
	if strings.Contains(value, ",") {
		return value
	}
	p := strings.TrimPrefix(strings.ReplaceAll(filePath, `\`, "/"), "~")
	return p + "," + value
}
