// Package extension holds the named override points the builders consult.
package extension

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/spf13/cast"

	"github.com/l0p7/seometa/internal/expr"
	"github.com/l0p7/seometa/internal/page"
)

// Point names an extension point.
type Point string

const (
	// PointDescriptionAdditions decides whether "<Title> on <BlogName>" is
	// prefixed to generated descriptions.
	PointDescriptionAdditions Point = "descriptionAdditions"
	// PointSpecialTitle supplies a title from an alternate identity source
	// before algorithmic generation runs.
	PointSpecialTitle Point = "specialTitle"
	// PointAppendSiteName decides whether the site name is spliced into
	// non-front-page titles.
	PointAppendSiteName Point = "appendSiteName"
)

var pointResults = map[Point]expr.Result{
	PointDescriptionAdditions: expr.BoolResult,
	PointSpecialTitle:         expr.StringResult,
	PointAppendSiteName:       expr.BoolResult,
}

// Input is what an override sees about the text being produced.
type Input struct {
	Context         page.Context
	SiteName        string
	SiteDescription string
	Title           string
	Excerpt         string
}

// BoolHook overrides a boolean point. def is the built-in decision.
type BoolHook func(in Input, def bool) bool

// StringHook overrides a string point. def is the built-in value.
type StringHook func(in Input, def string) string

// Registry maps points to overrides. Points without an override return the
// built-in default. A Registry is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	bools   map[Point]BoolHook
	strings map[Point]StringHook
}

// NewRegistry returns a registry with no overrides.
func NewRegistry() *Registry {
	return &Registry{
		bools:   make(map[Point]BoolHook),
		strings: make(map[Point]StringHook),
	}
}

// SetBool installs hook for p. A nil hook restores the default.
func (r *Registry) SetBool(p Point, hook BoolHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if hook == nil {
		delete(r.bools, p)
		return
	}
	r.bools[p] = hook
}

// SetString installs hook for p. A nil hook restores the default.
func (r *Registry) SetString(p Point, hook StringHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if hook == nil {
		delete(r.strings, p)
		return
	}
	r.strings[p] = hook
}

// Bool resolves a boolean point.
func (r *Registry) Bool(p Point, in Input, def bool) bool {
	if r == nil {
		return def
	}
	r.mu.RLock()
	hook := r.bools[p]
	r.mu.RUnlock()
	if hook == nil {
		return def
	}
	return hook(in, def)
}

// String resolves a string point.
func (r *Registry) String(p Point, in Input, def string) string {
	if r == nil {
		return def
	}
	r.mu.RLock()
	hook := r.strings[p]
	r.mu.RUnlock()
	if hook == nil {
		return def
	}
	return hook(in, def)
}

// Points lists the points with an installed override.
func (r *Registry) Points() []Point {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Point, 0, len(r.bools)+len(r.strings))
	for p := range r.bools {
		out = append(out, p)
	}
	for p := range r.strings {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// FromExpressions builds a registry whose overrides are CEL expressions or
// templates keyed by point name. An override that fails at evaluation time
// logs and yields the default.
func FromExpressions(evaluator *expr.HybridEvaluator, expressions map[string]string, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	reg := NewRegistry()
	if len(expressions) == 0 {
		return reg, nil
	}
	if evaluator == nil {
		var err error
		evaluator, err = expr.NewHybridEvaluator(nil)
		if err != nil {
			return nil, fmt.Errorf("extension: %w", err)
		}
	}
	for name, source := range expressions {
		point := Point(name)
		want, ok := pointResults[point]
		if !ok {
			return nil, fmt.Errorf("extension: unknown point %q", name)
		}
		compiled, err := evaluator.Compile(name, source, want)
		if err != nil {
			return nil, fmt.Errorf("extension: point %q: %w", name, err)
		}
		log := logger.With(slog.String("point", name), slog.String("expression", compiled.Source()))
		switch want {
		case expr.BoolResult:
			reg.SetBool(point, func(in Input, def bool) bool {
				out, err := compiled.Evaluate(activation(in, def))
				if err != nil {
					log.Warn("extension override failed", slog.Any("error", err))
					return def
				}
				b, err := cast.ToBoolE(out)
				if err != nil {
					log.Warn("extension override returned non-boolean", slog.Any("error", err))
					return def
				}
				return b
			})
		case expr.StringResult:
			reg.SetString(point, func(in Input, def string) string {
				out, err := compiled.Evaluate(activation(in, def))
				if err != nil {
					log.Warn("extension override failed", slog.Any("error", err))
					return def
				}
				s, err := cast.ToStringE(out)
				if err != nil {
					log.Warn("extension override returned non-string", slog.Any("error", err))
					return def
				}
				return s
			})
		}
	}
	return reg, nil
}

func activation(in Input, def any) map[string]any {
	ctx := in.Context
	return map[string]any{
		"page": map[string]any{
			"kind":       ctx.Kind.String(),
			"id":         ctx.ID,
			"taxonomy":   ctx.Taxonomy,
			"locale":     ctx.Locale,
			"blogId":     ctx.BlogID,
			"pageNumber": ctx.PageNumber,
			"query":      ctx.Query,
		},
		"site": map[string]any{
			"name":        in.SiteName,
			"description": in.SiteDescription,
		},
		"subject": map[string]any{
			"title":   in.Title,
			"excerpt": in.Excerpt,
		},
		"value": def,
	}
}
