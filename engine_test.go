package jbst

import (
	"bytes"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"pages/Home.jbst": {Data: []byte(`<%@ Control Name="App.Home" %>` + "\n" + `<div><jbst:control name="App.Item" /></div>`)},
		"partials/Item.jbst": {Data: []byte(`<%@ Control Name="App.Item" %>` + "\n" +
			`<li><jbst:control name="App.Item" data="<%= this.data.children %>" /></li>`)},
		"readme.txt": {Data: []byte("not a template")},
	}
}

func TestEngineLoad(t *testing.T) {
	e := NewEngineFS(testFS())
	require.NoError(t, e.Load())

	assert.Equal(t, []string{"pages/Home", "partials/Item"}, e.Entries())

	home, ok := e.Template("pages/Home.jbst")
	require.True(t, ok)
	assert.Equal(t, "App.Home", home.Name)
	assert.Equal(t, "~/pages/Home.jbst", home.FilePath)
	assert.Equal(t, []string{"App.Item"}, home.References)

	var buf bytes.Buffer
	require.NoError(t, e.Render(&buf, "pages/Home"))
	assert.Equal(t, home.Script, buf.String())
	assert.Equal(t, home.Script, e.GetDebugTemplates()["pages/Home"])

	assert.Error(t, e.Render(&buf, "pages/Missing"))
}

func TestEngineCycles(t *testing.T) {
	e := NewEngineFS(testFS())
	require.NoError(t, e.Load())
	assert.Equal(t, [][]string{{"partials/Item", "partials/Item"}}, e.Cycles())

	fsys := fstest.MapFS{
		"A.jbst": {Data: []byte(`<%@ Control Name="A" %><jbst:control name="B" />`)},
		"B.jbst": {Data: []byte(`<%@ Control Name="B" %><jbst:control name="A"><p>x</p></jbst:control>`)},
		"C.jbst": {Data: []byte(`<%@ Control Name="C" %><jbst:control name="A" />`)},
	}
	e = NewEngineFS(fsys)
	require.NoError(t, e.Load())
	assert.Equal(t, [][]string{{"A", "B", "A"}}, e.Cycles())
}

func TestEngineReload(t *testing.T) {
	fsys := testFS()
	e := NewEngineFS(fsys)
	require.NoError(t, e.Load())
	before, _ := e.Template("pages/Home")

	require.NoError(t, e.Load())
	unchanged, _ := e.Template("pages/Home")
	assert.Same(t, before, unchanged, "nothing changed, nothing recompiled")

	fsys["pages/Home.jbst"] = &fstest.MapFile{
		Data:    []byte(`<%@ Control Name="App.Home" %><p>new</p>`),
		ModTime: time.Now().Add(time.Hour),
	}
	require.NoError(t, e.Load())
	changed, _ := e.Template("pages/Home")
	assert.Contains(t, changed.Script, `["p","new"]`)

	delete(fsys, "partials/Item.jbst")
	require.NoError(t, e.Load())
	_, ok := e.Template("partials/Item")
	assert.False(t, ok)
	assert.Empty(t, e.Cycles())
}

func TestEngineLoadError(t *testing.T) {
	e := NewEngineFS(fstest.MapFS{
		"Bad.jbst": {Data: []byte("<p><%= x </p>")},
	})
	err := e.Load()
	var cerr *CompileError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "~/Bad.jbst", cerr.File)
}

func TestEnginePrefix(t *testing.T) {
	e := NewEngineFS(fstest.MapFS{
		"views/pages/Home.jbst": {Data: []byte("<p>home</p>")},
	}, "views")
	e.Compiler.Namespace = "App"
	require.NoError(t, e.Load())

	home, ok := e.Template("pages/Home")
	require.True(t, ok)
	assert.Equal(t, "App.Home", home.Name)
	assert.Equal(t, "~/pages/Home.jbst", home.FilePath)
}

func TestEngineBundle(t *testing.T) {
	e := NewEngineFS(testFS())
	require.NoError(t, e.Load())

	var buf bytes.Buffer
	require.NoError(t, e.Bundle(&buf))
	out := buf.String()

	home, _ := e.Template("pages/Home")
	item, _ := e.Template("partials/Item")
	assert.True(t, strings.HasPrefix(out, "/*global JsonML */\n"))
	assert.Equal(t, 1, strings.Count(out, "/*global"))
	assert.Equal(t, 1, strings.Count(out, `var App; if ("undefined" === typeof App) { App = {}; }`))
	assert.Less(t, strings.Index(out, home.Body), strings.Index(out, item.Body))
}

func TestEngineMinify(t *testing.T) {
	e := NewEngineFS(testFS())
	e.Minify = true
	require.NoError(t, e.Load())

	home, _ := e.Template("pages/Home")
	assert.NotContains(t, home.Script, "/*global")
	assert.Contains(t, home.Script, "JsonML.BST(")
	assert.Contains(t, e.GetDebugTemplates()["pages/Home"], "/*global JsonML */")
}
