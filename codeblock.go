package jbst

import (
	"strings"

	"github.com/dangdungcntt/go-jbst/jsliteral"
	"github.com/dangdungcntt/go-jbst/markup"
)

// Runtime identifiers referenced by compiled output.
const (
	runtimeGlobal   = "JsonML"
	runtimeTemplate = runtimeGlobal + ".BST"
	runtimeRaw      = runtimeGlobal + ".raw"
	noopScript      = "null"
)

// BlockKind is the kind of a code block, fixed by its opening delimiter.
type BlockKind int

const (
	// LiteralBlock is any unrecognized delimiter; it is re-emitted as text.
	LiteralBlock BlockKind = iota
	CommentBlock
	ExpressionBlock
	StatementBlock
	UnparsedBlock
	ExtensionBlock
	DeclarationBlock
	DirectiveBlock
	ServerCommentBlock
)

var blockKindNames = [...]string{
	LiteralBlock:       "Literal",
	CommentBlock:       "Comment",
	ExpressionBlock:    "Expression",
	StatementBlock:     "Statement",
	UnparsedBlock:      "Unparsed",
	ExtensionBlock:     "Extension",
	DeclarationBlock:   "Declaration",
	DirectiveBlock:     "Directive",
	ServerCommentBlock: "ServerComment",
}

func (k BlockKind) String() string {
	if int(k) < len(blockKindNames) {
		return blockKindNames[k]
	}
	return "BlockKind(?)"
}

var blockKinds = map[string]BlockKind{
	"%@":  DirectiveBlock,
	"%!":  DeclarationBlock,
	"%#":  UnparsedBlock,
	"%=":  ExpressionBlock,
	"%$":  ExtensionBlock,
	"%":   StatementBlock,
	"%--": ServerCommentBlock,
	"!--": CommentBlock,
}

// Classify maps an opening delimiter to its block kind.
func Classify(begin string) BlockKind {
	if k, ok := blockKinds[begin]; ok {
		return k
	}
	return LiteralBlock
}

// CodeBlock is a classified code block. Text is the author's script, verbatim.
type CodeBlock struct {
	Kind   BlockKind
	Text   string
	Source markup.Block
}

func NewCodeBlock(b markup.Block) CodeBlock {
	return CodeBlock{Kind: Classify(b.Begin), Text: b.Text, Source: b}
}

// Script is rendered JavaScript. Callable is set when JS is a function
// literal the client invokes at bind time.
type Script struct {
	JS       string
	Callable bool
}

// renderBlock renders b for inline use. ok is false for blocks that produce
// no inline output: directives, declarations and server comments.
func (ctx *CompileContext) renderBlock(b markup.Block) (s Script, ok bool, err error) {
	cb := NewCodeBlock(b)
	switch cb.Kind {
	case DirectiveBlock:
		return Script{}, false, ctx.processDirective(cb)
	case DeclarationBlock:
		ctx.AppendDeclaration(cb.Text)
		return Script{}, false, nil
	case ServerCommentBlock:
		return Script{}, false, nil
	case ExtensionBlock:
		ext, known := ctx.compiler.extensions().Resolve(cb.Text)
		if !known {
			ctx.logger().Debug("unknown extension, emitting as text", "file", ctx.FilePath, "block", b.String())
		}
		s, err = ext.Render(ctx)
		if err != nil {
			return Script{}, false, err
		}
		return s, true, nil
	}
	return FormatBlock(cb), true, nil
}

// FormatBlock renders the context-free block kinds.
func FormatBlock(cb CodeBlock) Script {
	text := strings.TrimSpace(cb.Text)
	switch cb.Kind {
	case CommentBlock:
		if text == "" {
			return Script{JS: noopScript}
		}
		return Script{JS: `"" /* ` + strings.ReplaceAll(text, "*/", "* /") + ` */`}
	case ExpressionBlock:
		if text == "" {
			return Script{JS: noopScript}
		}
		return Script{JS: "function(){return " + text + ";}", Callable: true}
	case StatementBlock:
		if text == "" {
			return Script{JS: noopScript}
		}
		return Script{JS: "function(){" + text + "}", Callable: true}
	case UnparsedBlock:
		if text == "" {
			return Script{JS: noopScript}
		}
		return Script{JS: "function(){return " + runtimeRaw + "(" + jsliteral.String(text) + ");}", Callable: true}
	}
	return Script{JS: jsliteral.String(cb.Source.String())}
}

// attributeValue compiles an attribute value: a string, a code block, or a
// []any of both. Multi-part values become one concatenating function.
func (ctx *CompileContext) attributeValue(v any) (any, error) {
	switch v := v.(type) {
	case markup.Block:
		s, ok, err := ctx.renderBlock(v)
		if err != nil {
			return nil, err
		}
		if !ok {
			return "", nil
		}
		return jsliteral.Fragment(s.JS), nil
	case []any:
		var parts []string
		for _, part := range v {
			switch p := part.(type) {
			case string:
				if p != "" {
					parts = append(parts, jsliteral.String(p))
				}
			case markup.Block:
				js, ok, err := ctx.inlineValue(p)
				if err != nil {
					return nil, err
				}
				if ok {
					parts = append(parts, js)
				}
			}
		}
		switch len(parts) {
		case 0:
			return "", nil
		case 1:
			if strings.HasPrefix(parts[0], `"`) {
				return jsliteral.Fragment(parts[0]), nil
			}
		}
		return jsliteral.Fragment("function(){return " + strings.Join(parts, "+") + ";}"), nil
	}
	return v, nil
}

// inlineValue renders b as a value expression usable inside another
// expression.
func (ctx *CompileContext) inlineValue(b markup.Block) (string, bool, error) {
	if Classify(b.Begin) == ExpressionBlock {
		if text := strings.TrimSpace(b.Text); text != "" {
			return "(" + text + ")", true, nil
		}
		return "", false, nil
	}
	s, ok, err := ctx.renderBlock(b)
	if err != nil || !ok {
		return "", false, err
	}
	if s.Callable {
		return "(" + s.JS + ").call(this)", true, nil
	}
	return s.JS, true, nil
}
