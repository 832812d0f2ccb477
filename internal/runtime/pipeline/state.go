package pipeline

import (
	"github.com/l0p7/seometa/internal/page"
)

// keyScope identifies a memoized cache key within one request.
type keyScope struct {
	id       int
	taxonomy string
}

type memoizedKey struct {
	key       string
	cacheable bool
}

// CacheState captures cache participation for the request's description.
type CacheState struct {
	Key      string `json:"key"`
	Hit      bool   `json:"hit"`
	Stored   bool   `json:"stored"`
	Disabled bool   `json:"disabled"`
}

// State is the request-scoped memo table threaded through title and
// description generation. A State is created at the start of a request and
// dropped at its end; it is not safe for concurrent use and must never be
// shared between requests.
type State struct {
	Context       page.Context `json:"context"`
	CorrelationID string       `json:"correlationId"`
	Cache         CacheState   `json:"cache"`

	values      map[string]string
	keys        map[keyScope]memoizedKey
	uncacheable map[string]struct{}
}

// NewState initializes a fresh memo scope for ctx.
func NewState(ctx page.Context, correlationID string) *State {
	return &State{
		Context:       ctx,
		CorrelationID: correlationID,
		values:        make(map[string]string),
		keys:          make(map[keyScope]memoizedKey),
		uncacheable:   make(map[string]struct{}),
	}
}

// Remember returns the memoized value for name, computing it on first use.
func (s *State) Remember(name string, compute func() string) string {
	if v, ok := s.values[name]; ok {
		return v
	}
	v := compute()
	s.values[name] = v
	return v
}

// CacheKey returns the memoized key for (id, taxonomy), deriving it on first use.
func (s *State) CacheKey(id int, taxonomy string, derive func() (string, bool)) (string, bool) {
	scope := keyScope{id: id, taxonomy: taxonomy}
	if m, ok := s.keys[scope]; ok {
		return m.key, m.cacheable && s.Cacheable(m.key)
	}
	key, cacheable := derive()
	s.keys[scope] = memoizedKey{key: key, cacheable: cacheable}
	if !cacheable {
		s.DisableCaching(key)
	}
	return key, cacheable
}

// DisableCaching stops reads and writes of key for the remainder of the request.
func (s *State) DisableCaching(key string) {
	s.uncacheable[key] = struct{}{}
}

// Cacheable reports whether key may be read from or written to the cache.
func (s *State) Cacheable(key string) bool {
	_, off := s.uncacheable[key]
	return !off
}
