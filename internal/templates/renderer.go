package templates

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	sprig "github.com/Masterminds/sprig/v3"
)

// blockedFuncs are sprig helpers that reach the filesystem, the network or
// the process environment. Copy must render the same on every host.
var blockedFuncs = []string{
	"env",
	"expandenv",
	"readDir",
	"mustReadDir",
	"readFile",
	"mustReadFile",
	"glob",
	"getHostByName",
}

// Renderer compiles catalog strings against the sprig function set.
type Renderer struct {
	sandbox *Sandbox
	funcs   template.FuncMap
}

// Template is a compiled catalog string, safe for concurrent use.
type Template struct {
	name string
	tmpl *template.Template
}

// NewRenderer returns a renderer. Without a sandbox only inline strings
// compile.
func NewRenderer(sandbox *Sandbox) *Renderer {
	funcs := sprig.TxtFuncMap()
	for _, name := range blockedFuncs {
		delete(funcs, name)
	}
	// env and expandenv stay callable so shared strings still parse.
	funcs["env"] = func(string) string { return "" }
	funcs["expandenv"] = func(s string) string {
		return os.Expand(s, func(string) string { return "" })
	}
	return &Renderer{sandbox: sandbox, funcs: funcs}
}

// CompileInline parses source. A blank source yields a nil Template so
// optional overrides can be skipped.
func (r *Renderer) CompileInline(name, source string) (*Template, error) {
	if strings.TrimSpace(source) == "" {
		return nil, nil
	}
	if name == "" {
		name = "inline"
	}
	tmpl, err := template.New(name).Funcs(r.funcs).Option("missingkey=zero").Parse(source)
	if err != nil {
		return nil, fmt.Errorf("templates: compile %q: %w", name, err)
	}
	return &Template{name: name, tmpl: tmpl}, nil
}

// CompileFile parses a string file read through the sandbox.
func (r *Renderer) CompileFile(path string) (*Template, error) {
	if r == nil || r.sandbox == nil {
		return nil, errors.New("templates: file strings need a sandbox; set server.templates.templatesFolder")
	}
	source, err := r.sandbox.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return r.CompileInline(filepath.Base(path), source)
}

// Render executes t with data.
func (t *Template) Render(data any) (string, error) {
	if t == nil {
		return "", errors.New("templates: nil template")
	}
	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("templates: execute %q: %w", t.name, err)
	}
	// Absent map keys print "<no value>" even with missingkey=zero.
	return strings.ReplaceAll(buf.String(), "<no value>", ""), nil
}

func (t *Template) Name() string {
	if t == nil {
		return ""
	}
	return t.name
}
