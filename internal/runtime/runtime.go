package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/l0p7/seometa/internal/host"
	"github.com/l0p7/seometa/internal/metrics"
	"github.com/l0p7/seometa/internal/page"
	"github.com/l0p7/seometa/internal/runtime/cache"
	"github.com/l0p7/seometa/internal/runtime/cachekey"
	"github.com/l0p7/seometa/internal/runtime/compat"
	"github.com/l0p7/seometa/internal/runtime/description"
	"github.com/l0p7/seometa/internal/runtime/extension"
	"github.com/l0p7/seometa/internal/runtime/generation"
	"github.com/l0p7/seometa/internal/runtime/invalidation"
	"github.com/l0p7/seometa/internal/runtime/pipeline"
	"github.com/l0p7/seometa/internal/runtime/title"
	"github.com/l0p7/seometa/internal/templates"
)

const maxEventBody = 1 << 20

// ResolverFunc turns an HTTP request into the page predicates it asks about.
type ResolverFunc func(*http.Request) (host.ContextResolver, error)

type GeneratorOptions struct {
	Content    host.ContentProvider
	Options    host.OptionProvider
	Store      *cache.Store
	CacheTTL   time.Duration
	Catalog    *templates.Catalog
	Extensions *extension.Registry
	Metrics    *metrics.Recorder
	// Resolver backs the HTTP surface; Begin does not need it.
	Resolver          ResolverFunc
	CorrelationHeader string
	Now               func() time.Time
}

// Generator wires the title and description builders, the cache store and
// the invalidation hooks behind one facade. It is safe for concurrent use;
// per-request state lives in Request.
type Generator struct {
	logger            *slog.Logger
	store             *cache.Store
	keys              *cachekey.Deriver
	services          *generation.Services
	titles            *title.Builder
	descriptions      *description.Builder
	hooks             *invalidation.Hooks
	resolver          ResolverFunc
	correlationHeader string
	metrics           *metrics.Recorder
	now               func() time.Time
}

func NewGenerator(logger *slog.Logger, opts GeneratorOptions) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	store := opts.Store
	if store == nil {
		store = cache.NewStore(cache.Options{
			Backend: cache.NewMemory(opts.CacheTTL),
			Enabled: func() bool {
				if opts.Options == nil {
					return true
				}
				return opts.Options.GetOption(host.OptionCacheEnabled).BoolOr(true)
			},
			Logger:  logger,
			Metrics: opts.Metrics,
		})
	}
	catalog := opts.Catalog
	if catalog == nil {
		var err error
		catalog, err = templates.NewCatalog(templates.NewRenderer(nil), nil, logger)
		if err != nil {
			logger.Error("default string catalog failed", slog.Any("error", err))
		}
	}
	keys := cachekey.NewWithClock(now)
	detector := compat.NewDetector(logger)

	services := &generation.Services{
		Content:     opts.Content,
		Options:     opts.Options,
		Catalog:     catalog,
		Extensions:  opts.Extensions,
		Compat:      detector,
		Diagnostics: generation.NewDiagnostics(logger.With(slog.String("agent", "diagnostics")), opts.Metrics),
		Metrics:     opts.Metrics,
		Logger:      logger,
	}
	titles := title.New(services)

	return &Generator{
		logger:   logger.With(slog.String("agent", "generator")),
		store:    store,
		keys:     keys,
		services: services,
		titles:   titles,
		descriptions: description.New(services, titles, description.Options{
			Store: store,
			Keys:  keys,
			TTL:   opts.CacheTTL,
		}),
		hooks: invalidation.New(invalidation.Options{
			Store:   store,
			Keys:    keys,
			Options: opts.Options,
			Compat:  detector,
			Logger:  logger,
			Metrics: opts.Metrics,
		}),
		resolver:          opts.Resolver,
		correlationHeader: strings.TrimSpace(opts.CorrelationHeader),
		metrics:           opts.Metrics,
		now:               now,
	}
}

// Request is one rendering pass. Titles and descriptions produced through the
// same Request share memoized values; a Request must not outlive the page
// render it was begun for and is not safe for concurrent use.
type Request struct {
	g     *Generator
	state *pipeline.State
}

// Begin snapshots resolver into a fresh request scope.
func (g *Generator) Begin(resolver host.ContextResolver, correlationID string) *Request {
	return &Request{g: g, state: pipeline.NewState(page.Resolve(resolver), correlationID)}
}

// Context returns the page the request renders.
func (r *Request) Context() page.Context { return r.state.Context }

// State exposes the request memo for diagnostics.
func (r *Request) State() *pipeline.State { return r.state }

// Title returns the document or meta title. It never returns "".
func (r *Request) Title(rawHint, sep, loc string, args generation.Args) string {
	return r.g.titles.Build(r.state, rawHint, sep, loc, args)
}

// TitleText is Title with provenance.
func (r *Request) TitleText(rawHint, sep, loc string, args generation.Args) generation.GeneratedText {
	return r.g.titles.Generate(r.state, rawHint, sep, loc, args)
}

// Description returns the meta description, possibly "".
func (r *Request) Description(ctx context.Context, rawHint string, args generation.Args) string {
	return r.g.descriptions.Build(ctx, r.state, rawHint, args)
}

// DescriptionText is Description with provenance.
func (r *Request) DescriptionText(ctx context.Context, rawHint string, args generation.Args) generation.GeneratedText {
	return r.g.descriptions.Generate(ctx, r.state, rawHint, args)
}

// Invalidate applies a content mutation to the description cache.
func (g *Generator) Invalidate(ctx context.Context, ev invalidation.MutationEvent) error {
	return g.hooks.Handle(ctx, ev)
}

// InvalidateAll applies events in order and joins their failures.
func (g *Generator) InvalidateAll(ctx context.Context, events []invalidation.MutationEvent) error {
	var errs []error
	for _, ev := range events {
		if err := g.hooks.Handle(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close releases the cache backend.
func (g *Generator) Close(ctx context.Context) error {
	return g.store.Close(ctx)
}

type textResponse struct {
	Value         string               `json:"value"`
	Source        string               `json:"source"`
	Context       string               `json:"context"`
	CorrelationID string               `json:"correlationId"`
	Cache         *pipeline.CacheState `json:"cache,omitempty"`
}

// ServeTitle renders GET /title.
func (g *Generator) ServeTitle(w http.ResponseWriter, r *http.Request) {
	g.instrument("title", w, r, func(w http.ResponseWriter, r *http.Request) {
		req, args, ok := g.beginHTTP(w, r)
		if !ok {
			return
		}
		q := r.URL.Query()
		text := req.TitleText(q.Get("hint"), q.Get("sep"), q.Get("loc"), args)
		g.writeJSON(w, http.StatusOK, textResponse{
			Value:         text.Value,
			Source:        text.Source.String(),
			Context:       req.Context().Kind.String(),
			CorrelationID: req.state.CorrelationID,
		})
	})
}

// ServeDescription renders GET /description.
func (g *Generator) ServeDescription(w http.ResponseWriter, r *http.Request) {
	g.instrument("description", w, r, func(w http.ResponseWriter, r *http.Request) {
		req, args, ok := g.beginHTTP(w, r)
		if !ok {
			return
		}
		text := req.DescriptionText(r.Context(), r.URL.Query().Get("hint"), args)
		cacheState := req.state.Cache
		g.writeJSON(w, http.StatusOK, textResponse{
			Value:         text.Value,
			Source:        text.Source.String(),
			Context:       req.Context().Kind.String(),
			CorrelationID: req.state.CorrelationID,
			Cache:         &cacheState,
		})
	})
}

// ServeEvents applies POST /events. The body is one MutationEvent or an
// array of them.
func (g *Generator) ServeEvents(w http.ResponseWriter, r *http.Request) {
	g.instrument("events", w, r, func(w http.ResponseWriter, r *http.Request) {
		events, err := decodeEvents(io.LimitReader(r.Body, maxEventBody))
		if err != nil {
			g.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		for _, ev := range events {
			if err := ev.Validate(); err != nil {
				g.WriteError(w, http.StatusBadRequest, err.Error())
				return
			}
		}
		if err := g.InvalidateAll(r.Context(), events); err != nil {
			g.WriteError(w, http.StatusBadGateway, err.Error())
			return
		}
		g.writeJSON(w, http.StatusAccepted, map[string]any{"applied": len(events)})
	})
}

// ServeHealth reports cache participation and size.
func (g *Generator) ServeHealth(w http.ResponseWriter, r *http.Request) {
	cacheSize, err := g.store.Size(r.Context())
	status := "ok"
	if err != nil {
		g.logger.Error("cache size query failed", slog.Any("error", err))
		status = "degraded"
		cacheSize = 0
	}
	g.writeJSON(w, http.StatusOK, map[string]any{
		"status":       status,
		"cacheEnabled": g.store.Enabled(),
		"cacheEntries": cacheSize,
		"observedAt":   g.now().UTC(),
	})
}

// WriteError emits a JSON error payload.
func (g *Generator) WriteError(w http.ResponseWriter, status int, message string) {
	if status <= 0 {
		status = http.StatusInternalServerError
	}
	g.writeJSON(w, status, map[string]any{"error": message})
}

func (g *Generator) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		g.logger.Error("response encode failed", slog.Any("error", err))
	}
}

func (g *Generator) beginHTTP(w http.ResponseWriter, r *http.Request) (*Request, generation.Args, bool) {
	if g.resolver == nil {
		g.WriteError(w, http.StatusServiceUnavailable, "no context resolver configured")
		return nil, generation.Args{}, false
	}
	resolver, err := g.resolver(r)
	if err != nil {
		g.WriteError(w, http.StatusBadRequest, err.Error())
		return nil, generation.Args{}, false
	}
	args, err := argsFromQuery(r.URL.Query())
	if err != nil {
		g.WriteError(w, http.StatusBadRequest, err.Error())
		return nil, generation.Args{}, false
	}
	correlationID := g.requestCorrelationID(r)
	if g.correlationHeader != "" {
		w.Header().Set(g.correlationHeader, correlationID)
	}
	return g.Begin(resolver, correlationID), args, true
}

func decodeEvents(body io.Reader) ([]invalidation.MutationEvent, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return nil, errors.New("empty event body")
	}
	if strings.HasPrefix(trimmed, "[") {
		var events []invalidation.MutationEvent
		if err := json.Unmarshal([]byte(trimmed), &events); err != nil {
			return nil, fmt.Errorf("decode events: %w", err)
		}
		return events, nil
	}
	var ev invalidation.MutationEvent
	if err := json.Unmarshal([]byte(trimmed), &ev); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return []invalidation.MutationEvent{ev}, nil
}
