package jbst

import (
	"strings"

	"github.com/dangdungcntt/go-jbst/jsliteral"
	"github.com/dangdungcntt/go-jbst/markup"
)

const (
	tagPrefix      = "jbst:"
	controlTag     = tagPrefix + "control"
	placeholderTag = tagPrefix + "placeholder"

	// DefaultSlot names the unnamed placeholder.
	DefaultSlot = "$"

	// slotArgs is the slot bag of the enclosing wrapper target. Reference and
	// inline commands pass it on.
	slotArgs = "this.args"
)

// CommandKind selects the template command variant.
type CommandKind int

const (
	ReferenceCommand CommandKind = iota
	InlineCommand
	WrapperCommand
	PlaceholderCommand
)

// TemplateCommand is a composition element compiled to a bound call.
type TemplateCommand struct {
	Kind CommandKind
	// Name is the template expression for Reference and Wrapper commands and
	// the slot name for Placeholder commands.
	Name               string
	Data, Index, Count string
	// Template is the tree literal, or hoisted name, of an Inline command.
	Template string
	// Slots is the named-content bag literal, or hoisted name, of a Wrapper.
	Slots string
}

func newTemplateCommand(kind CommandKind) TemplateCommand {
	return TemplateCommand{Kind: kind, Data: "this.data", Index: "this.index", Count: "this.count"}
}

// Render returns the command as a function literal.
func (c TemplateCommand) Render() string {
	args := c.Data + "," + c.Index + "," + c.Count
	switch c.Kind {
	case ReferenceCommand:
		return "function(){return " + runtimeTemplate + "(" + c.Name + ").dataBind(" + args + "," + slotArgs + ");}"
	case InlineCommand:
		return "function(){return " + runtimeTemplate + "(" + c.Template + ").dataBind(" + args + "," + slotArgs + ");}"
	case WrapperCommand:
		return "function(){return " + runtimeTemplate + "(" + c.Name + ").dataBind(" + args + "," + c.Slots + ");}"
	case PlaceholderCommand:
		return "function(){var t=" + slotArgs + "&&" + slotArgs + "[" + jsliteral.String(c.Name) + "];return t?t.dataBind(" + args + "):null;}"
	}
	return noopScript
}

func isCompositionTag(name string) bool {
	return name == controlTag || name == placeholderTag
}

// matchEnd returns the index of the ElementEnd closing the element at start.
func matchEnd(tokens []markup.Token, start int) int {
	depth := 0
	for i := start; i < len(tokens); i++ {
		switch tokens[i].Kind {
		case markup.ElementStart:
			depth++
		case markup.ElementEnd:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitElement separates a whole element into its attributes and its body.
func splitElement(tokens []markup.Token) (attrs, body []markup.Token) {
	i := 1
	for i < len(tokens) && tokens[i].Kind == markup.Attribute {
		i++
	}
	return tokens[1:i], tokens[i : len(tokens)-1]
}

func isBlankBody(body []markup.Token) bool {
	for _, tok := range body {
		if tok.Kind != markup.Primitive {
			return false
		}
		switch v := tok.Value.(type) {
		case string:
			if !isBlank(v) {
				return false
			}
		case markup.Block:
			if Classify(v.Begin) != ServerCommentBlock {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// compose compiles a whole jbst:control or jbst:placeholder element. Whether
// a control is a wrapper or an inline template is decided by its name
// attribute only; a named control with a blank body is a reference.
func (ctx *CompileContext) compose(tokens []markup.Token) (string, error) {
	attrs, body := splitElement(tokens)

	var (
		name    string
		hasName bool
		cmd     = newTemplateCommand(ReferenceCommand)
	)
	for _, a := range attrs {
		v, err := ctx.commandExpression(a.Value)
		if err != nil {
			return "", err
		}
		switch strings.ToLower(a.Name) {
		case "name":
			name, hasName = v, v != ""
		case "data":
			if v != "" {
				cmd.Data = v
			}
		case "index":
			if v != "" {
				cmd.Index = v
			}
		case "count":
			if v != "" {
				cmd.Count = v
			}
		}
	}

	if tokens[0].Name == placeholderTag {
		cmd.Kind = PlaceholderCommand
		cmd.Name = DefaultSlot
		if hasName {
			cmd.Name = name
		}
		return cmd.Render(), nil
	}

	switch {
	case !hasName:
		cmd.Kind = InlineCommand
		child := ctx.child()
		tree, empty, err := child.compileUnit(body)
		if err != nil {
			return "", err
		}
		if empty {
			tree = noopScript
		}
		cmd.Template = tree
		if len(child.declarations) > 0 {
			cmd.Template = ctx.units.hoist(child, runtimeTemplate+"("+tree+")")
		}
	case isBlankBody(body):
		cmd.Kind = ReferenceCommand
		cmd.Name = name
		ctx.addReference(name)
	default:
		cmd.Kind = WrapperCommand
		cmd.Name = name
		ctx.addReference(name)
		child := ctx.child()
		child.captureSlots(body)
		slots, err := child.slotBag()
		if err != nil {
			return "", err
		}
		cmd.Slots = slots
		if len(child.declarations) > 0 {
			cmd.Slots = ctx.units.hoist(child, slots)
		}
	}
	return cmd.Render(), nil
}

func (ctx *CompileContext) addReference(name string) {
	if isIdentifierPath(name) {
		ctx.units.reference(name)
	}
}

// commandExpression reads a composition attribute as a JavaScript expression.
func (ctx *CompileContext) commandExpression(v any) (string, error) {
	switch v := v.(type) {
	case string:
		return strings.TrimSpace(v), nil
	case markup.Block:
		if Classify(v.Begin) == ExpressionBlock {
			return strings.TrimSpace(v.Text), nil
		}
		js, _, err := ctx.inlineValue(v)
		return js, err
	}
	compiled, err := ctx.attributeValue(v)
	if err != nil {
		return "", err
	}
	switch c := compiled.(type) {
	case jsliteral.Fragment:
		return "(" + string(c) + ").call(this)", nil
	case string:
		return c, nil
	}
	return "", nil
}

// captureSlots partitions a wrapper body into named slots. Top-level
// jbst:placeholder elements fill the slot they name; everything else goes to
// the default slot.
func (ctx *CompileContext) captureSlots(body []markup.Token) {
	for i := 0; i < len(body); i++ {
		tok := body[i]
		if tok.Kind != markup.ElementStart {
			if tok.Kind == markup.Primitive {
				if s, ok := tok.Value.(string); ok && isBlank(s) && ctx.NamedTemplates.Get(DefaultSlot) == nil {
					continue
				}
			}
			ctx.NamedTemplates.Append(DefaultSlot, tok)
			continue
		}
		end := matchEnd(body, i)
		if end < 0 {
			end = len(body) - 1
		}
		element := body[i : end+1]
		i = end
		if tok.Name != placeholderTag {
			ctx.NamedTemplates.Append(DefaultSlot, element...)
			continue
		}
		attrs, inner := splitElement(element)
		slot := DefaultSlot
		for _, a := range attrs {
			if strings.EqualFold(a.Name, "name") {
				if v := directiveValue(a.Value); v != "" {
					slot = v
				}
			}
		}
		ctx.NamedTemplates.Append(slot, inner...)
	}
}

// slotBag compiles every captured slot into a {"slot":JsonML.BST(...)} literal.
func (ctx *CompileContext) slotBag() (string, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, slot := range ctx.NamedTemplates.Names() {
		tree, empty, err := ctx.compileUnit(ctx.NamedTemplates.Get(slot))
		if err != nil {
			return "", err
		}
		if empty {
			tree = noopScript
		}
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(jsliteral.String(slot))
		b.WriteByte(':')
		b.WriteString(runtimeTemplate + "(" + tree + ")")
	}
	b.WriteByte('}')
	return b.String(), nil
}
