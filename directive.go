package jbst

import (
	"fmt"
	"strings"

	"github.com/dangdungcntt/go-jbst/markup"
)

// AutoMarkup is the implicit markup mode of a template.
type AutoMarkup int

const (
	AutoMarkupNone AutoMarkup = iota
	AutoMarkupData
	AutoMarkupAuto
)

var autoMarkupNames = []string{
	AutoMarkupNone: "None",
	AutoMarkupData: "Data",
	AutoMarkupAuto: "Auto",
}

func (a AutoMarkup) String() string {
	if int(a) >= 0 && int(a) < len(autoMarkupNames) {
		return autoMarkupNames[a]
	}
	return fmt.Sprintf("AutoMarkup(%d)", int(a))
}

// ParseAutoMarkup parses a mode name, ignoring case.
func ParseAutoMarkup(s string) (AutoMarkup, error) {
	s = strings.TrimSpace(s)
	for i, name := range autoMarkupNames {
		if strings.EqualFold(s, name) {
			return AutoMarkup(i), nil
		}
	}
	return AutoMarkupNone, fmt.Errorf("invalid automarkup value %q", s)
}

// processDirective applies a <%@ ... %> block. The interior is read as a
// single element tag so its attributes come from the markup tokenizer.
func (ctx *CompileContext) processDirective(cb CodeBlock) error {
	text := strings.TrimSpace(cb.Text)
	pos := cb.Source.Pos
	tokens, err := markup.Tokenize("<" + text + " />")
	if err != nil || len(tokens) == 0 || tokens[0].Kind != markup.ElementStart {
		return ctx.errorf(Structural, pos, "malformed directive %q", text)
	}

	var attrs []markup.Token
	for _, tok := range tokens[1:] {
		if tok.Kind != markup.Attribute {
			break
		}
		attrs = append(attrs, tok)
	}

	switch directive := strings.ToLower(tokens[0].Name); directive {
	case "page", "control":
		for _, a := range attrs {
			value := directiveValue(a.Value)
			switch strings.ToLower(a.Name) {
			case "name":
				if ctx.nested {
					ctx.logger().Debug("ignoring name of nested template", "file", ctx.FilePath, "name", value)
					continue
				}
				if err := ctx.SetName(value); err != nil {
					return ctx.errorf(Structural, pos, "name %q set after template name %q was referenced", value, ctx.Name())
				}
			case "automarkup":
				mode, err := ParseAutoMarkup(value)
				if err != nil {
					return ctx.errorf(Semantic, pos, "%s", err)
				}
				ctx.AutoMarkup = mode
			case "import":
				ctx.AddImport(splitList(value)...)
			}
		}
	case "import":
		for _, a := range attrs {
			if strings.EqualFold(a.Name, "namespace") {
				ctx.AddImport(directiveValue(a.Value))
			}
		}
	default:
		ctx.logger().Debug("ignoring directive", "file", ctx.FilePath, "directive", directive)
	}
	return nil
}

func directiveValue(v any) string {
	switch v := v.(type) {
	case string:
		return strings.TrimSpace(v)
	case markup.Block:
		return v.String()
	case []any:
		var b strings.Builder
		for _, part := range v {
			b.WriteString(directiveValue(part))
		}
		return b.String()
	}
	return ""
}

// splitList splits a space or comma delimited list.
func splitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
}
