package templates

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// Message names the localized strings the generators render.
const (
	MsgUntitled   = "untitled"
	MsgProtected  = "protected"
	MsgPrivate    = "private"
	MsgPage       = "page"
	MsgAdditions  = "additions"
	MsgSearch     = "search"
	MsgNotFound   = "notFound"
	MsgCategory   = "category"
	MsgTag        = "tag"
	MsgTaxonomy   = "taxonomy"
	MsgAuthor     = "author"
	MsgYear       = "year"
	MsgMonth      = "month"
	MsgDay        = "day"
	filePrefix    = "file:"
	catalogPrefix = "catalog."
)

// DefaultStrings returns the built-in English copy keyed by message name.
func DefaultStrings() map[string]string {
	return map[string]string{
		MsgUntitled:  "Untitled",
		MsgProtected: "Protected: {{ .Title }}",
		MsgPrivate:   "Private: {{ .Title }}",
		MsgPage:      "Page {{ .Number }}",
		MsgAdditions: "{{ .Title }} on {{ .BlogName }}",
		MsgSearch:    "Search results for: {{ .Query }}",
		MsgNotFound:  "404",
		MsgCategory:  "Category: {{ .Name }}",
		MsgTag:       "Tag: {{ .Name }}",
		MsgTaxonomy:  `{{ .Taxonomy | replace "_" " " | title }}: {{ .Name }}`,
		MsgAuthor:    "Author: {{ .Name }}",
		MsgYear:      `Year: {{ .Date.Format "2006" }}`,
		MsgMonth:     `Month: {{ .Date.Format "January 2006" }}`,
		MsgDay:       `Day: {{ .Date.Format "January 2, 2006" }}`,
	}
}

// Catalog holds the compiled copy templates. A Catalog is immutable once
// built and safe for concurrent use.
type Catalog struct {
	entries  map[string]*Template
	defaults map[string]*Template
	logger   *slog.Logger
}

// NewCatalog compiles the default strings with overrides applied on top.
// Override values starting with "file:" load the template from the sandbox.
func NewCatalog(renderer *Renderer, overrides map[string]string, logger *slog.Logger) (*Catalog, error) {
	if renderer == nil {
		renderer = NewRenderer(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultStrings()
	c := &Catalog{
		entries:  make(map[string]*Template, len(defaults)),
		defaults: make(map[string]*Template, len(defaults)),
		logger:   logger,
	}
	for _, name := range sortedKeys(defaults) {
		tmpl, err := renderer.CompileInline(catalogPrefix+name, defaults[name])
		if err != nil {
			return nil, err
		}
		c.defaults[name] = tmpl
		c.entries[name] = tmpl
	}
	for _, name := range sortedKeys(overrides) {
		if _, known := defaults[name]; !known {
			return nil, fmt.Errorf("templates: unknown catalog message %q", name)
		}
		source := overrides[name]
		var (
			tmpl *Template
			err  error
		)
		if path, ok := strings.CutPrefix(strings.TrimSpace(source), filePrefix); ok {
			tmpl, err = renderer.CompileFile(strings.TrimSpace(path))
		} else {
			tmpl, err = renderer.CompileInline(catalogPrefix+name, source)
		}
		if err != nil {
			return nil, fmt.Errorf("templates: catalog message %q: %w", name, err)
		}
		if tmpl == nil {
			continue
		}
		c.entries[name] = tmpl
	}
	return c, nil
}

// Text renders the named message. A failing override falls back to the
// built-in copy; an unknown name renders empty.
func (c *Catalog) Text(name string, data map[string]any) string {
	if c == nil {
		return ""
	}
	tmpl, ok := c.entries[name]
	if !ok {
		return ""
	}
	out, err := tmpl.Render(data)
	if err == nil {
		return out
	}
	c.logger.Warn("catalog message failed to render", slog.String("message", name), slog.Any("error", err))
	fallback := c.defaults[name]
	if fallback == nil || fallback == tmpl {
		return ""
	}
	out, err = fallback.Render(data)
	if err != nil {
		return ""
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
