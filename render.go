package jbst

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
)

const scriptContentType = scriptMediaType + "; charset=utf-8"

// bundleEntry is the request path serving Engine.Bundle.
const bundleEntry = "_bundle"

var _ render.Render = (*Render)(nil)

// ScriptRender creates renders for compiled template programs.
type ScriptRender struct {
	e *Engine
}

// NewScriptRender create a new ScriptRender
func NewScriptRender(e *Engine) *ScriptRender {
	return &ScriptRender{e: e}
}

// Instance returns a new render.Render writing the program of entry
func (s *ScriptRender) Instance(entry string) render.Render {
	return &Render{e: s.e, entry: entry}
}

// Render writes a compiled template program
type Render struct {
	e     *Engine
	entry string
}

// Render writes the program of the entry, or the bundle of all programs, to w
func (r *Render) Render(w http.ResponseWriter) error {
	r.WriteContentType(w)
	if r.entry == bundleEntry {
		return r.e.Bundle(w)
	}
	return r.e.Render(w, r.entry)
}

// WriteContentType write a JavaScript content type to the response header if not set
func (r *Render) WriteContentType(w http.ResponseWriter) {
	header := w.Header()
	if val := header["Content-Type"]; len(val) == 0 {
		header["Content-Type"] = []string{scriptContentType}
	}
}

// Handler serves "<entry>.js" from the wildcard parameter named "entry", as
// in router.GET("/jbst/*entry", e.Handler()). "_bundle.js" serves every
// template at once.
func (e *Engine) Handler() gin.HandlerFunc {
	scripts := NewScriptRender(e)
	return func(c *gin.Context) {
		entry := strings.TrimPrefix(c.Param("entry"), "/")
		if !strings.HasSuffix(entry, ".js") {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		entry = normalizeName(entry)
		if _, ok := e.Template(entry); !ok && entry != bundleEntry {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		c.Render(http.StatusOK, scripts.Instance(entry))
	}
}
