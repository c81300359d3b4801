package jbst

import (
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/dangdungcntt/go-jbst/jsliteral"
	"github.com/dangdungcntt/go-jbst/markup"
)

var (
	defaultExtensions = NewExtensionRegistry()
	discardLogger     = slog.New(slog.NewTextHandler(io.Discard, nil))
)

// Compiler turns JBST templates into JavaScript. A Compiler holds
// configuration only; every compilation builds its own state, so one Compiler
// may be used from several goroutines.
type Compiler struct {
	// Namespace prefixes names derived from file paths.
	Namespace string
	// Settings backs the AppSettings extension.
	Settings Settings
	// Extensions resolves <%$ ... %> prefixes. Nil uses the built-in registry.
	Extensions *ExtensionRegistry
	// Indent pretty-prints tree literals when non-empty.
	Indent string
	Logger *slog.Logger
}

// NewCompiler returns a compiler with the built-in extensions.
func NewCompiler() *Compiler {
	return &Compiler{Extensions: NewExtensionRegistry()}
}

func (c *Compiler) extensions() *ExtensionRegistry {
	if c.Extensions == nil {
		return defaultExtensions
	}
	return c.Extensions
}

func (c *Compiler) logger() *slog.Logger {
	if c.Logger == nil {
		return discardLogger
	}
	return c.Logger
}

// Parse reads and tokenizes a template. filePath only names the template.
func (c *Compiler) Parse(filePath string, r io.Reader) (*ParsedFile, error) {
	if r == nil {
		return nil, ErrNilInput
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "[%s] read template", filePath)
	}
	tokens, err := markup.Tokenize(string(raw))
	if err != nil {
		var syntaxErr *markup.SyntaxError
		if errors.As(err, &syntaxErr) {
			return nil, &CompileError{
				Kind:    Structural,
				File:    filePath,
				Line:    syntaxErr.Pos.Line,
				Column:  syntaxErr.Pos.Column,
				Message: syntaxErr.Msg,
			}
		}
		return nil, &CompileError{Kind: Structural, File: filePath, Message: err.Error()}
	}
	return &ParsedFile{
		Path:     filePath,
		Raw:      string(raw),
		Tokens:   tokens,
		ParsedAt: time.Now().UnixMilli(),
	}, nil
}

// CompileParsed compiles a parsed template with a fresh compilation state.
func (c *Compiler) CompileParsed(p *ParsedFile) (*Template, error) {
	ctx := newCompileContext(c, p.Path)
	tree, empty, err := ctx.compileUnit(p.Tokens)
	if err != nil {
		return nil, err
	}
	t := ctx.emit(tree, empty)
	c.logger().Debug("compiled template", "file", p.Path, "name", t.Name)
	return t, nil
}

// Compile compiles the template read from r and writes the program to w.
// Nothing is written when compilation fails.
func (c *Compiler) Compile(w io.Writer, filePath string, r io.Reader) error {
	p, err := c.Parse(filePath, r)
	if err != nil {
		return err
	}
	t, err := c.CompileParsed(p)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, t.Script)
	return errors.Wrapf(err, "[%s] write program", filePath)
}

// CompileString compiles src and returns the program.
func (c *Compiler) CompileString(filePath, src string) (string, error) {
	var b strings.Builder
	if err := c.Compile(&b, filePath, strings.NewReader(src)); err != nil {
		return "", err
	}
	return b.String(), nil
}

// compileUnit compiles the tokens of one template unit into a tree literal.
// empty reports a unit without root nodes.
func (ctx *CompileContext) compileUnit(tokens []markup.Token) (tree string, empty bool, err error) {
	out, err := ctx.translate(tokens)
	if err != nil {
		return "", false, err
	}
	out = trimRootWhitespace(out)
	if len(out) == 0 {
		return noopScript, true, nil
	}
	tree, err = jsliteral.Marshal(out, ctx.compiler.Indent)
	if err != nil {
		return "", false, ctx.errorf(Structural, markup.Position{}, "%s", err)
	}
	return tree, false, nil
}

// translate replaces code blocks and composition elements with rendered
// script and collapses whitespace in text.
func (ctx *CompileContext) translate(tokens []markup.Token) ([]markup.Token, error) {
	var (
		out  []markup.Token
		open []string
	)
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		switch tok.Kind {
		case markup.ElementStart:
			if isCompositionTag(tok.Name) {
				end := matchEnd(tokens, i)
				if end < 0 {
					return nil, ctx.errorf(Structural, markup.Position{}, "unclosed <%s>", tok.Name)
				}
				js, err := ctx.compose(tokens[i : end+1])
				if err != nil {
					return nil, err
				}
				out = append(out, markup.PrimitiveToken(jsliteral.Fragment(js)))
				i = end
				continue
			}
			open = append(open, tok.Name)
			out = append(out, tok)
		case markup.ElementEnd:
			if len(open) > 0 {
				open = open[:len(open)-1]
			}
			out = append(out, tok)
		case markup.Attribute:
			v, err := ctx.attributeValue(tok.Value)
			if err != nil {
				return nil, err
			}
			out = append(out, markup.AttrToken(tok.Name, v))
		case markup.Primitive:
			switch v := tok.Value.(type) {
			case string:
				if !preservesWhitespace(open) {
					tok = normalizeText(tok)
				}
				out = append(out, tok)
			case markup.Block:
				s, ok, err := ctx.renderBlock(v)
				if err != nil {
					return nil, err
				}
				if ok {
					out = append(out, markup.PrimitiveToken(jsliteral.Fragment(s.JS)))
				}
			default:
				out = append(out, tok)
			}
		}
	}
	return out, nil
}
