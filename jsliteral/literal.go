// Package jsliteral serializes markup token streams as JsonML array literals.
package jsliteral

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/dangdungcntt/go-jbst/markup"
)

// Fragment is pre-rendered JavaScript written into the literal verbatim.
type Fragment string

var lineSeparators = strings.NewReplacer("\u2028", `\u2028`, "\u2029", `\u2029`)

// String returns s as a JavaScript string literal.
func String(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return strconv.Quote(s)
	}
	return lineSeparators.Replace(strings.TrimSuffix(buf.String(), "\n"))
}

type element struct {
	name     string
	attrs    []markup.Token
	children []any
}

// Marshal writes the tokens as a JsonML literal: an element becomes
// ["name",{attrs},children...], text becomes a string literal and a Fragment
// is inserted as is. No root nodes give null, several root nodes are wrapped
// in a ["",...] document fragment. A non-empty indent pretty-prints the result.
func Marshal(tokens []markup.Token, indent string) (string, error) {
	roots, err := build(tokens)
	if err != nil {
		return "", err
	}
	var root any
	switch len(roots) {
	case 0:
		return "null", nil
	case 1:
		root = roots[0]
	default:
		root = &element{children: roots}
	}
	e := &encoder{indent: indent}
	if err := e.value(root, 0); err != nil {
		return "", err
	}
	return e.buf.String(), nil
}

func build(tokens []markup.Token) ([]any, error) {
	var (
		roots []any
		stack []*element
	)
	add := func(v any) {
		if len(stack) == 0 {
			roots = append(roots, v)
			return
		}
		top := stack[len(stack)-1]
		top.children = append(top.children, v)
	}
	for _, tok := range tokens {
		switch tok.Kind {
		case markup.ElementStart:
			el := &element{name: tok.Name}
			add(el)
			stack = append(stack, el)
		case markup.Attribute:
			if len(stack) == 0 {
				return nil, fmt.Errorf("attribute %q outside of an element", tok.Name)
			}
			top := stack[len(stack)-1]
			if len(top.children) > 0 {
				return nil, fmt.Errorf("attribute %q after content of <%s>", tok.Name, top.name)
			}
			top.attrs = append(top.attrs, tok)
		case markup.ElementEnd:
			if len(stack) == 0 || stack[len(stack)-1].name != tok.Name {
				return nil, fmt.Errorf("unbalanced end of <%s>", tok.Name)
			}
			stack = stack[:len(stack)-1]
		case markup.Primitive:
			add(tok.Value)
		}
	}
	if len(stack) > 0 {
		return nil, fmt.Errorf("unclosed <%s>", stack[len(stack)-1].name)
	}
	return roots, nil
}

type encoder struct {
	buf    strings.Builder
	indent string
}

func (e *encoder) newline(depth int) {
	if e.indent == "" {
		return
	}
	e.buf.WriteByte('\n')
	e.buf.WriteString(strings.Repeat(e.indent, depth))
}

func (e *encoder) value(v any, depth int) error {
	switch v := v.(type) {
	case nil:
		e.buf.WriteString("null")
	case Fragment:
		e.buf.WriteString(string(v))
	case string:
		e.buf.WriteString(String(v))
	case *element:
		return e.element(v, depth)
	case markup.Block:
		e.buf.WriteString(String(v.String()))
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		e.buf.Write(b)
	}
	return nil
}

func (e *encoder) element(el *element, depth int) error {
	e.buf.WriteByte('[')
	e.newline(depth + 1)
	e.buf.WriteString(String(el.name))
	if len(el.attrs) > 0 {
		e.buf.WriteByte(',')
		e.newline(depth + 1)
		if err := e.attributes(el.attrs, depth+1); err != nil {
			return err
		}
	}
	for _, child := range el.children {
		e.buf.WriteByte(',')
		e.newline(depth + 1)
		if err := e.value(child, depth+1); err != nil {
			return err
		}
	}
	e.newline(depth)
	e.buf.WriteByte(']')
	return nil
}

func (e *encoder) attributes(attrs []markup.Token, depth int) error {
	sep := ":"
	if e.indent != "" {
		sep = ": "
	}
	e.buf.WriteByte('{')
	for i, a := range attrs {
		if i > 0 {
			e.buf.WriteByte(',')
		}
		e.newline(depth + 1)
		e.buf.WriteString(String(a.Name))
		e.buf.WriteString(sep)
		if err := e.value(a.Value, depth+1); err != nil {
			return err
		}
	}
	e.newline(depth)
	e.buf.WriteByte('}')
	return nil
}
