package template

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"warren/internal/erlang"
)

// Engine renders named text templates with the sprig function library plus
// a few Erlang term helpers. Templates are parsed once and cached.
type Engine struct {
	mu        sync.RWMutex
	funcs     template.FuncMap
	templates map[string]*template.Template
}

// New creates a new template engine
func New() *Engine {
	funcs := sprig.TxtFuncMap()
	funcs["erlAtom"] = erlang.Atom
	funcs["erlString"] = erlang.String
	funcs["erlBinary"] = erlang.Binary
	funcs["shellQuote"] = ShellQuote

	return &Engine{
		funcs:     funcs,
		templates: make(map[string]*template.Template),
	}
}

// Parse registers a template under name, replacing any previous one.
// Missing map keys are errors at execution time.
func (e *Engine) Parse(name, text string) error {
	t, err := template.New(name).
		Option("missingkey=error").
		Funcs(e.funcs).
		Parse(text)
	if err != nil {
		return fmt.Errorf("parse template %s: %w", name, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[name] = t
	return nil
}

// MustParse is like Parse but panics on error. It is meant for templates
// compiled into the binary.
func (e *Engine) MustParse(name, text string) *Engine {
	if err := e.Parse(name, text); err != nil {
		panic(err)
	}
	return e
}

// Render executes the named template against data.
func (e *Engine) Render(name string, data interface{}) (string, error) {
	e.mu.RLock()
	t, ok := e.templates[name]
	e.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("template %s is not registered", name)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render template %s: %w", name, err)
	}
	return buf.String(), nil
}

// Names returns the registered template names in sorted order.
func (e *Engine) Names() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := make([]string, 0, len(e.templates))
	for name := range e.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var shellSafe = regexp.MustCompile(`^[A-Za-z0-9_@%+=:,./-]*$`)

// ShellQuote renders v as a single sh word. Values made only of safe
// characters are returned as is; anything else is single-quoted, with
// embedded single quotes written as '\''.
func ShellQuote(v string) string {
	if shellSafe.MatchString(v) {
		return v
	}
	return "'" + strings.ReplaceAll(v, "'", `'\''`) + "'"
}
