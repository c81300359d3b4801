package markup

import (
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// Code blocks are swapped for sentinels made of private-use runes before the
// text reaches the HTML tokenizer, so script inside them is never read as markup.
const (
	sentinelOpen  = "\uE000"
	sentinelClose = "\uE001"

	serverCommentBegin = "%--"
)

// Tokenize splits src into markup tokens.
//
// Code-delimiter spans (<%...%>, <%--...--%>) and markup comments become values
// of type Block. End tags are balanced: an end tag with no open element is
// dropped, an end tag closes every element opened after its match, and open
// elements are closed at the end of input. Void elements are closed at once.
func Tokenize(src string) ([]Token, error) {
	text, blocks, err := extractBlocks(src)
	if err != nil {
		return nil, err
	}
	t := &tokenizer{blocks: blocks}
	z := html.NewTokenizer(strings.NewReader(text))
	for {
		if z.Next() == html.ErrorToken {
			if err := z.Err(); err != io.EOF {
				return nil, err
			}
			break
		}
		t.token(z.Token())
	}
	t.closeAll()
	return t.out, nil
}

type tokenizer struct {
	blocks []Block
	open   []string
	out    []Token
}

func (t *tokenizer) emit(tok Token) {
	t.out = append(t.out, tok)
}

func (t *tokenizer) token(tok html.Token) {
	switch tok.Type {
	case html.TextToken:
		for _, part := range t.split(tok.Data) {
			t.emit(PrimitiveToken(part))
		}
	case html.StartTagToken:
		t.start(tok)
		if IsVoid(tok.Data) {
			t.emit(EndToken(tok.Data))
			return
		}
		t.open = append(t.open, tok.Data)
	case html.SelfClosingTagToken:
		t.start(tok)
		t.emit(EndToken(tok.Data))
	case html.EndTagToken:
		t.end(tok.Data)
	case html.CommentToken:
		t.emit(PrimitiveToken(Block{Begin: "!--", End: "--", Text: t.restore(tok.Data)}))
	case html.DoctypeToken:
		t.emit(PrimitiveToken(Block{Begin: "!DOCTYPE ", Text: strings.TrimSpace(t.restore(tok.Data))}))
	}
}

func (t *tokenizer) start(tok html.Token) {
	t.emit(StartToken(tok.Data))
	for _, a := range tok.Attr {
		// code in attribute-name position has no token form
		if strings.Contains(a.Key, sentinelOpen) {
			continue
		}
		parts := t.split(a.Val)
		var v any
		switch len(parts) {
		case 0:
			v = ""
		case 1:
			v = parts[0]
		default:
			v = parts
		}
		t.emit(AttrToken(a.Key, v))
	}
}

func (t *tokenizer) end(name string) {
	for i := len(t.open) - 1; i >= 0; i-- {
		if t.open[i] != name {
			continue
		}
		for j := len(t.open) - 1; j >= i; j-- {
			t.emit(EndToken(t.open[j]))
		}
		t.open = t.open[:i]
		return
	}
}

func (t *tokenizer) closeAll() {
	for i := len(t.open) - 1; i >= 0; i-- {
		t.emit(EndToken(t.open[i]))
	}
	t.open = nil
}

// split cuts s at block sentinels, returning strings and Blocks in order.
func (t *tokenizer) split(s string) []any {
	var (
		parts []any
		lit   strings.Builder
	)
	for s != "" {
		i := strings.Index(s, sentinelOpen)
		if i < 0 {
			break
		}
		rest := s[i+len(sentinelOpen):]
		j := strings.Index(rest, sentinelClose)
		n, err := strconv.Atoi(rest[:max(j, 0)])
		if j < 0 || err != nil || n < 0 || n >= len(t.blocks) {
			lit.WriteString(s[:i+len(sentinelOpen)])
			s = rest
			continue
		}
		lit.WriteString(s[:i])
		if lit.Len() > 0 {
			parts = append(parts, lit.String())
			lit.Reset()
		}
		parts = append(parts, t.blocks[n])
		s = rest[j+len(sentinelClose):]
	}
	lit.WriteString(s)
	if lit.Len() > 0 {
		parts = append(parts, lit.String())
	}
	return parts
}

// restore puts the original block text back in place of its sentinels.
// Server comments are dropped.
func (t *tokenizer) restore(s string) string {
	if !strings.Contains(s, sentinelOpen) {
		return s
	}
	var b strings.Builder
	for _, part := range t.split(s) {
		switch v := part.(type) {
		case string:
			b.WriteString(v)
		case Block:
			if v.Begin != serverCommentBegin {
				b.WriteString(v.String())
			}
		}
	}
	return b.String()
}

// extractBlocks replaces every <% ... %> span in src with a sentinel and
// returns the spans in document order.
func extractBlocks(src string) (string, []Block, error) {
	var (
		b        strings.Builder
		blocks   []Block
		rest     = src
		consumed = 0
	)
	for {
		i := strings.Index(rest, "<%")
		if i < 0 {
			b.WriteString(rest)
			break
		}
		b.WriteString(rest[:i])
		pos := position(src, consumed+i)

		body := rest[i+2:]
		begin, end := "%", "%"
		switch {
		case strings.HasPrefix(body, "--"):
			begin, end = serverCommentBegin, "--%"
		case body != "" && strings.IndexByte("@!#=$", body[0]) >= 0:
			begin = "%" + body[:1]
		}
		body = body[len(begin)-1:]

		k := strings.Index(body, end+">")
		if k < 0 {
			return "", nil, &SyntaxError{Pos: pos, Msg: "unterminated code block <" + begin}
		}
		blocks = append(blocks, Block{Begin: begin, End: end, Text: body[:k], Pos: pos})
		b.WriteString(sentinelOpen + strconv.Itoa(len(blocks)-1) + sentinelClose)

		next := i + 2 + len(begin) - 1 + k + len(end) + 1
		consumed += next
		rest = rest[next:]
	}
	return b.String(), blocks, nil
}

func position(src string, offset int) Position {
	head := src[:offset]
	line := strings.Count(head, "\n") + 1
	col := utf8.RuneCountInString(head[strings.LastIndexByte(head, '\n')+1:]) + 1
	return Position{Line: line, Column: col}
}
