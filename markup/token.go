package markup

import "fmt"

// Kind identifies a markup event.
type Kind int

const (
	ElementStart Kind = iota
	Attribute
	ElementEnd
	Primitive
)

func (k Kind) String() string {
	switch k {
	case ElementStart:
		return "ElementStart"
	case Attribute:
		return "Attribute"
	case ElementEnd:
		return "ElementEnd"
	case Primitive:
		return "Primitive"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Token is one markup event. Tokens are kept in document order.
//
// Value is set for Attribute and Primitive tokens. It holds a string, a Block,
// or a []any mixing both when an attribute value interleaves text and code.
// Later stages may store their own values (pre-rendered script) in Primitive
// and Attribute tokens.
type Token struct {
	Kind  Kind
	Name  string
	Value any
}

func StartToken(name string) Token {
	return Token{Kind: ElementStart, Name: name}
}

func AttrToken(name string, value any) Token {
	return Token{Kind: Attribute, Name: name, Value: value}
}

func EndToken(name string) Token {
	return Token{Kind: ElementEnd, Name: name}
}

func PrimitiveToken(value any) Token {
	return Token{Kind: Primitive, Value: value}
}

// Position is a 1-based location in source text.
type Position struct {
	Line   int
	Column int
}

// Block is an opaque code-delimiter span such as <%= ... %> or <!-- ... -->.
// Begin is the delimiter following '<' ("%=", "%", "%--", "!--") and End the
// delimiter preceding '>' ("%", "--%", "--").
type Block struct {
	Begin string
	End   string
	Text  string
	Pos   Position
}

// String reproduces the block as it was written.
func (b Block) String() string {
	return "<" + b.Begin + b.Text + b.End + ">"
}

// SyntaxError reports input the tokenizer cannot split into tokens.
type SyntaxError struct {
	Pos Position
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Pos.Line, e.Pos.Column, e.Msg)
}
