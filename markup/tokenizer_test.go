package markup

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []Token
	}{
		{
			name: "element with attribute and text",
			src:  `<div class="box">hi</div>`,
			want: []Token{
				StartToken("div"),
				AttrToken("class", "box"),
				PrimitiveToken("hi"),
				EndToken("div"),
			},
		},
		{
			name: "void and self-closing elements",
			src:  `<br><jbst:control name="Foo" />`,
			want: []Token{
				StartToken("br"),
				EndToken("br"),
				StartToken("jbst:control"),
				AttrToken("name", "Foo"),
				EndToken("jbst:control"),
			},
		},
		{
			name: "unclosed elements are balanced",
			src:  `<ul><li>a<li>b</ul></p>`,
			want: []Token{
				StartToken("ul"),
				StartToken("li"),
				PrimitiveToken("a"),
				StartToken("li"),
				PrimitiveToken("b"),
				EndToken("li"),
				EndToken("li"),
				EndToken("ul"),
			},
		},
		{
			name: "expression block in text",
			src:  `<p>Hello <%= this.data.name %>!</p>`,
			want: []Token{
				StartToken("p"),
				PrimitiveToken("Hello "),
				PrimitiveToken(Block{Begin: "%=", End: "%", Text: " this.data.name ", Pos: Position{Line: 1, Column: 10}}),
				PrimitiveToken("!"),
				EndToken("p"),
			},
		},
		{
			name: "markup inside script is not parsed",
			src:  "<% for (var i=0; i<n; i++) { %>",
			want: []Token{
				PrimitiveToken(Block{Begin: "%", End: "%", Text: " for (var i=0; i<n; i++) { ", Pos: Position{Line: 1, Column: 1}}),
			},
		},
		{
			name: "server comment and markup comment",
			src:  "<%-- gone --%>\n<!-- kept -->",
			want: []Token{
				PrimitiveToken(Block{Begin: "%--", End: "--%", Text: " gone ", Pos: Position{Line: 1, Column: 1}}),
				PrimitiveToken("\n"),
				PrimitiveToken(Block{Begin: "!--", End: "--", Text: " kept "}),
			},
		},
		{
			name: "mixed attribute value",
			src:  `<a href="/item/<%= this.data.id %>">x</a>`,
			want: []Token{
				StartToken("a"),
				AttrToken("href", []any{
					"/item/",
					Block{Begin: "%=", End: "%", Text: " this.data.id ", Pos: Position{Line: 1, Column: 16}},
				}),
				PrimitiveToken("x"),
				EndToken("a"),
			},
		},
		{
			name: "directive position on later line",
			src:  "\n  <%@ Page Name=\"Foo\" %>",
			want: []Token{
				PrimitiveToken("\n  "),
				PrimitiveToken(Block{Begin: "%@", End: "%", Text: ` Page Name="Foo" `, Pos: Position{Line: 2, Column: 3}}),
			},
		},
		{
			name: "doctype",
			src:  `<!DOCTYPE html>`,
			want: []Token{
				PrimitiveToken(Block{Begin: "!DOCTYPE ", Text: "html"}),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Tokenize(tt.src)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Tokenize() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTokenizeUnterminatedBlock(t *testing.T) {
	_, err := Tokenize("<p>\n  <%= this.data </p>")
	require.Error(t, err)

	var syntaxErr *SyntaxError
	require.ErrorAs(t, err, &syntaxErr)
	require.Equal(t, Position{Line: 2, Column: 3}, syntaxErr.Pos)
}

func TestBlockString(t *testing.T) {
	b := Block{Begin: "%$", End: "%", Text: " Foo: bar "}
	require.Equal(t, "<%$ Foo: bar %>", b.String())
}

func TestRestoreInComment(t *testing.T) {
	got, err := Tokenize("<!-- <%= x %> -->")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, Block{Begin: "!--", End: "--", Text: " <%= x %> "}, got[0].Value)
}

func TestRestoreDropsServerComments(t *testing.T) {
	got, err := Tokenize("<!-- a <%-- secret --%> b --><!DOCTYPE html<%-- x --%>>")
	require.NoError(t, err)
	want := []Token{
		PrimitiveToken(Block{Begin: "!--", End: "--", Text: " a  b "}),
		PrimitiveToken(Block{Begin: "!DOCTYPE ", Text: "html"}),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Tokenize() mismatch (-want +got):\n%s", diff)
	}
}
