// Package cache stores generated description pairs behind a global switch.
package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/l0p7/seometa/internal/metrics"
)

const (
	// DefaultTTL is how long a description pair lives without invalidation.
	DefaultTTL = 7 * 24 * time.Hour
	// DefaultNamespace prefixes every key written to the backend.
	DefaultNamespace = "seometa:desc:"
)

// Options configures a Store.
type Options struct {
	Backend   Backend
	Namespace string
	// Enabled is consulted on every Get and Set so the switch can flip at
	// runtime. A nil func means always enabled.
	Enabled func() bool
	Logger  *slog.Logger
	Metrics *metrics.Recorder
	Now     func() time.Time
}

// Store fronts a Backend with namespacing and the global enable switch. Get
// and Set do nothing while the switch is off; Delete and Flush always run so
// re-enabling never resurrects stale entries. Backend failures degrade to
// misses and are logged, never returned to the generation path.
type Store struct {
	backend   Backend
	namespace string
	enabled   func() bool
	logger    *slog.Logger
	metrics   *metrics.Recorder
	now       func() time.Time
}

// NewStore builds a Store. A nil backend stores nothing.
func NewStore(opts Options) *Store {
	backend := opts.Backend
	if backend == nil {
		backend = NewNoop()
	}
	namespace := opts.Namespace
	if namespace == "" {
		namespace = DefaultNamespace
	}
	enabled := opts.Enabled
	if enabled == nil {
		enabled = func() bool { return true }
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		backend:   backend,
		namespace: namespace,
		enabled:   enabled,
		logger:    logger.With(slog.String("agent", "cache_store")),
		metrics:   opts.Metrics,
		now:       now,
	}
}

// Enabled reports the current value of the global switch.
func (s *Store) Enabled() bool {
	return s != nil && s.enabled()
}

// Get returns the pair stored under key.
func (s *Store) Get(ctx context.Context, key string) (Value, bool) {
	if s == nil {
		return Value{}, false
	}
	start := time.Now()
	if !s.enabled() {
		s.metrics.ObserveCache(metrics.CacheOperationGet, metrics.CacheSkipped, time.Since(start))
		return Value{}, false
	}
	if err := ValidateKey(key); err != nil {
		s.logger.Warn("cache key rejected", slog.String("key", key), slog.Any("error", err))
		s.metrics.ObserveCache(metrics.CacheOperationGet, metrics.CacheError, time.Since(start))
		return Value{}, false
	}
	entry, ok, err := s.backend.Lookup(ctx, s.namespace+key)
	if err != nil {
		s.logger.Warn("cache lookup failed", slog.String("key", key), slog.Any("error", err))
		s.metrics.ObserveCache(metrics.CacheOperationGet, metrics.CacheError, time.Since(start))
		return Value{}, false
	}
	if !ok {
		s.metrics.ObserveCache(metrics.CacheOperationGet, metrics.CacheMiss, time.Since(start))
		return Value{}, false
	}
	s.logger.Debug("cache hit", slog.String("key", key))
	s.metrics.ObserveCache(metrics.CacheOperationGet, metrics.CacheHit, time.Since(start))
	return entry.Value, true
}

// Set replaces the pair under key. A non-positive ttl uses DefaultTTL. It
// reports whether the entry was persisted.
func (s *Store) Set(ctx context.Context, key string, value Value, ttl time.Duration) bool {
	if s == nil {
		return false
	}
	start := time.Now()
	if !s.enabled() {
		s.metrics.ObserveCache(metrics.CacheOperationSet, metrics.CacheSkipped, time.Since(start))
		return false
	}
	if err := ValidateKey(key); err != nil {
		s.logger.Warn("cache key rejected", slog.String("key", key), slog.Any("error", err))
		s.metrics.ObserveCache(metrics.CacheOperationSet, metrics.CacheError, time.Since(start))
		return false
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	storedAt := s.now().UTC()
	entry := Entry{Value: value, StoredAt: storedAt, ExpiresAt: storedAt.Add(ttl)}
	if err := s.backend.Store(ctx, s.namespace+key, entry); err != nil {
		s.logger.Warn("cache store failed", slog.String("key", key), slog.Any("error", err))
		s.metrics.ObserveCache(metrics.CacheOperationSet, metrics.CacheError, time.Since(start))
		return false
	}
	s.metrics.ObserveCache(metrics.CacheOperationSet, metrics.CacheStored, time.Since(start))
	return true
}

// Delete removes key regardless of the switch.
func (s *Store) Delete(ctx context.Context, key string) error {
	if s == nil {
		return nil
	}
	start := time.Now()
	if err := ValidateKey(key); err != nil {
		s.metrics.ObserveCache(metrics.CacheOperationDelete, metrics.CacheError, time.Since(start))
		return err
	}
	if err := s.backend.Delete(ctx, s.namespace+key); err != nil {
		s.logger.Warn("cache delete failed", slog.String("key", key), slog.Any("error", err))
		s.metrics.ObserveCache(metrics.CacheOperationDelete, metrics.CacheError, time.Since(start))
		return err
	}
	s.logger.Debug("cache entry deleted", slog.String("key", key))
	s.metrics.ObserveCache(metrics.CacheOperationDelete, metrics.CacheDeleted, time.Since(start))
	return nil
}

// DeletePrefix removes every key starting with prefix regardless of the
// switch.
func (s *Store) DeletePrefix(ctx context.Context, prefix string) error {
	if s == nil {
		return nil
	}
	start := time.Now()
	if err := ValidateKey(prefix); err != nil {
		s.metrics.ObserveCache(metrics.CacheOperationDelete, metrics.CacheError, time.Since(start))
		return err
	}
	if err := s.backend.DeletePrefix(ctx, s.namespace+prefix); err != nil {
		s.logger.Warn("cache prefix delete failed", slog.String("prefix", prefix), slog.Any("error", err))
		s.metrics.ObserveCache(metrics.CacheOperationDelete, metrics.CacheError, time.Since(start))
		return err
	}
	s.logger.Debug("cache prefix deleted", slog.String("prefix", prefix))
	s.metrics.ObserveCache(metrics.CacheOperationDelete, metrics.CacheDeleted, time.Since(start))
	return nil
}

// Flush removes every entry in the store's namespace regardless of the switch.
func (s *Store) Flush(ctx context.Context) error {
	if s == nil {
		return nil
	}
	start := time.Now()
	if err := s.backend.DeletePrefix(ctx, s.namespace); err != nil {
		s.logger.Warn("cache flush failed", slog.Any("error", err))
		s.metrics.ObserveCache(metrics.CacheOperationFlush, metrics.CacheError, time.Since(start))
		return err
	}
	s.logger.Info("cache flushed", slog.String("namespace", s.namespace))
	s.metrics.ObserveCache(metrics.CacheOperationFlush, metrics.CacheDeleted, time.Since(start))
	return nil
}

// Size reports the backend's entry count.
func (s *Store) Size(ctx context.Context) (int64, error) {
	if s == nil {
		return 0, nil
	}
	return s.backend.Size(ctx)
}

// Close releases the backend.
func (s *Store) Close(ctx context.Context) error {
	if s == nil {
		return nil
	}
	return s.backend.Close(ctx)
}
