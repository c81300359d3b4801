package jbst

import (
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/js"
)

var ValidFileExtensions = []string{".jbst"}

const scriptMediaType = "application/javascript"

// Engine holds loaded templates.
type Engine struct {
	// Compiler compiles every loaded file. NewEngineFS sets a default one.
	Compiler *Compiler
	// Minify runs compiled programs through a JavaScript minifier.
	Minify bool
	Logger *slog.Logger

	dirPrefix       string
	fs              fs.FS
	parsedFiles     map[string]*ParsedFile
	debugTemplates  map[string]string
	templates       map[string]*Template
	cycles          [][]string
	lastCompileTime int64
	mu              sync.RWMutex
}

// NewEngine creates a new engine pointing to a directory with files.
func NewEngine(dir string) *Engine {
	return NewEngineFS(os.DirFS(dir))
}

// NewEngineFS creates a new engine pointing to a filesystem.
// When using embed.Fs, pass the embedded folder as prefix.
func NewEngineFS(fs fs.FS, prefix ...string) *Engine {
	var dirPrefix string
	if len(prefix) > 0 {
		dirPrefix = prefix[0]
	}
	return &Engine{
		Compiler:        NewCompiler(),
		dirPrefix:       dirPrefix,
		fs:              fs,
		parsedFiles:     map[string]*ParsedFile{},
		debugTemplates:  map[string]string{},
		templates:       map[string]*Template{},
		lastCompileTime: -1,
	}
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger == nil {
		return discardLogger
	}
	return e.Logger
}

// Load reads all .jbst files from the fs and compiles them.
// It will only recompile if a file was added, modified or removed since the
// last successful compile.
func (e *Engine) Load() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	needCompile := e.lastCompileTime < 0
	startedAt := time.Now().UnixMilli()
	seen := map[string]bool{}

	err := fs.WalkDir(e.fs, ".", func(path string, info fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if !slices.Contains(ValidFileExtensions, ext) {
			return nil
		}
		name := e.nameFromPath(path)
		seen[name] = true

		stats, err := info.Info()
		if err != nil {
			return err
		}
		if _, loaded := e.parsedFiles[name]; loaded && stats.ModTime().UnixMilli() <= e.lastCompileTime {
			return nil
		}

		needCompile = true

		f, err := e.fs.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		parsedFile, err := e.Compiler.Parse(e.appPath(path), f)
		if err != nil {
			return err
		}
		parsedFile.Name = name
		e.parsedFiles[name] = parsedFile
		e.logger().Debug("parsed template", "entry", name, "path", path)
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "load templates")
	}

	for name := range e.parsedFiles {
		if !seen[name] {
			delete(e.parsedFiles, name)
			needCompile = true
		}
	}

	if !needCompile {
		return nil
	}

	templates := make(map[string]*Template, len(e.parsedFiles))
	debugTemplates := make(map[string]string, len(e.parsedFiles))
	for name, f := range e.parsedFiles {
		t, err := e.Compiler.CompileParsed(f)
		if err != nil {
			return err
		}
		debugTemplates[name] = t.Script
		if e.Minify {
			if t, err = minifyTemplate(t); err != nil {
				return errors.Wrapf(err, "[%s] minify", name)
			}
		}
		templates[name] = t
	}

	e.templates = templates
	e.debugTemplates = debugTemplates
	e.cycles = findCycles(templates)
	for _, c := range e.cycles {
		e.logger().Warn("template reference cycle", "cycle", strings.Join(c, " -> "))
	}
	e.lastCompileTime = startedAt
	e.logger().Info("compiled templates", "count", len(templates))
	return nil
}

// appPath gives the app-relative path a file is compiled under, "~/pages/home.jbst".
func (e *Engine) appPath(path string) string {
	rel, err := filepath.Rel(e.dirPrefix, path)
	if err != nil {
		rel = path
	}
	return "~/" + filepath.ToSlash(rel)
}

func minifyScript(script string) (string, error) {
	m := minify.New()
	m.AddFunc(scriptMediaType, js.Minify)
	return m.String(scriptMediaType, script)
}

func minifyTemplate(t *Template) (*Template, error) {
	script, err := minifyScript(t.Script)
	if err != nil {
		return nil, err
	}
	out := *t
	out.Script = script
	return &out, nil
}

// Render writes the program of the template identified by entry (e.g., "pages/home").
func (e *Engine) Render(w io.Writer, entry string) error {
	t, ok := e.Template(entry)
	if !ok {
		return errors.Errorf("template %s not loaded", normalizeName(entry))
	}
	_, err := t.WriteTo(w)
	return err
}

// Template returns the compiled template identified by entry.
func (e *Engine) Template(entry string) (*Template, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	t, ok := e.templates[normalizeName(entry)]
	return t, ok
}

// Entries lists the loaded entry names in order.
func (e *Engine) Entries() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.templates))
	for name := range e.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Bundle writes every loaded template as one program ordered by entry name.
// The global comment and namespace guards are emitted once.
func (e *Engine) Bundle(w io.Writer) error {
	entries := e.Entries()

	e.mu.RLock()
	var (
		b        strings.Builder
		globals  []string
		declared = map[string]bool{}
	)
	for _, name := range entries {
		globals = append(globals, e.templates[name].Globals...)
	}
	writeGlobals(&b, globalsOf(globals))
	for _, name := range entries {
		t := e.templates[name]
		writeNamespaces(&b, t.Namespaces, declared)
		b.WriteString(t.Body)
	}
	e.mu.RUnlock()

	script := b.String()
	if e.Minify {
		var err error
		if script, err = minifyScript(script); err != nil {
			return errors.Wrap(err, "minify bundle")
		}
	}
	_, err := io.WriteString(w, script)
	return err
}

// GetDebugTemplates returns a map of all loaded templates and their unminified programs.
func (e *Engine) GetDebugTemplates() map[string]string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.debugTemplates
}

// Cycles returns the reference cycles found among loaded templates, as entry
// names with the first entry repeated at the end.
func (e *Engine) Cycles() [][]string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cycles
}

// findCycles walks the reference graph in entry order.
func findCycles(templates map[string]*Template) [][]string {
	byName := map[string]string{}
	var entries []string
	for entry := range templates {
		entries = append(entries, entry)
	}
	sort.Strings(entries)
	for _, entry := range entries {
		if _, ok := byName[templates[entry].Name]; !ok {
			byName[templates[entry].Name] = entry
		}
	}

	const (
		unvisited = iota
		visiting
		done
	)
	var (
		cycles [][]string
		state  = map[string]int{}
		stack  []string
		visit  func(entry string)
	)
	visit = func(entry string) {
		state[entry] = visiting
		stack = append(stack, entry)
		for _, ref := range templates[entry].References {
			next, ok := byName[ref]
			if !ok {
				continue
			}
			switch state[next] {
			case unvisited:
				visit(next)
			case visiting:
				i := slices.Index(stack, next)
				cycle := append(slices.Clone(stack[i:]), next)
				cycles = append(cycles, cycle)
			}
		}
		stack = stack[:len(stack)-1]
		state[entry] = done
	}
	for _, entry := range entries {
		if state[entry] == unvisited {
			visit(entry)
		}
	}
	return cycles
}

// nameFromPath converts a filesystem path to an entry name, relative to engine dir.
func (e *Engine) nameFromPath(path string) string {
	rel, err := filepath.Rel(e.dirPrefix, path)
	if err != nil {
		return filepath.Base(path)
	}
	// normalize separators and drop extension
	rel = filepath.ToSlash(rel)
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	return normalizeName(rel)
}

// normalizeName: remove quotes/spaces and extensions, normalize slashes
func normalizeName(n string) string {
	n = strings.TrimSpace(n)
	n = strings.Trim(n, `"' `)
	// remove ext if present
	n = strings.TrimSuffix(n, filepath.Ext(n))
	n = filepath.ToSlash(n)
	return n
}
