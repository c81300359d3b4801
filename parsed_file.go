package jbst

import "github.com/dangdungcntt/go-jbst/markup"

type ParsedFile struct {
	// Name is the engine entry name, empty outside an engine
	Name string
	// Path is the app-relative path the template is compiled under
	Path string
	// Raw is the raw file content
	Raw string
	// Tokens is the markup token stream, with code blocks as primitives
	Tokens []markup.Token
	// ParsedAt is the time when the file was parsed in unix milliseconds
	ParsedAt int64
}

// CodeBlocks returns the classified code blocks of the file in document
// order, attribute values included.
func (p *ParsedFile) CodeBlocks() []CodeBlock {
	var blocks []CodeBlock
	var visit func(v any)
	visit = func(v any) {
		switch v := v.(type) {
		case markup.Block:
			blocks = append(blocks, NewCodeBlock(v))
		case []any:
			for _, part := range v {
				visit(part)
			}
		}
	}
	for _, tok := range p.Tokens {
		if tok.Kind == markup.Primitive || tok.Kind == markup.Attribute {
			visit(tok.Value)
		}
	}
	return blocks
}
