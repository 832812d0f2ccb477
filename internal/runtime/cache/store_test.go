package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/l0p7/seometa/internal/metrics"
)

type failingBackend struct {
	Backend
	err error
}

func (f failingBackend) Lookup(context.Context, string) (Entry, bool, error) {
	return Entry{}, false, f.err
}

func (f failingBackend) Store(context.Context, string, Entry) error { return f.err }

func TestStoreRoundTripUsesNamespace(t *testing.T) {
	backend := NewMemory(time.Minute)
	store := NewStore(Options{Backend: backend, Namespace: "site:"})
	ctx := context.Background()

	value := Value{Normal: "normal", Social: "social"}
	require.True(t, store.Set(ctx, "post_1_1en", value, time.Minute))

	got, ok := store.Get(ctx, "post_1_1en")
	require.True(t, ok)
	require.Equal(t, value, got)

	_, ok, err := backend.Lookup(ctx, "site:post_1_1en")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestStoreSwitchGatesGetAndSetButNotDelete(t *testing.T) {
	var enabled atomic.Bool
	enabled.Store(true)
	backend := NewMemory(time.Minute)
	store := NewStore(Options{Backend: backend, Enabled: enabled.Load})
	ctx := context.Background()

	require.True(t, store.Set(ctx, "k", Value{Normal: "stale"}, 0))

	enabled.Store(false)
	require.False(t, store.Enabled())
	_, ok := store.Get(ctx, "k")
	require.False(t, ok, "get must report not found while disabled")
	require.False(t, store.Set(ctx, "other", Value{Normal: "x"}, 0))
	size, err := backend.Size(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, size)

	require.NoError(t, store.Delete(ctx, "k"))

	enabled.Store(true)
	_, ok = store.Get(ctx, "k")
	require.False(t, ok, "re-enabling must not resurrect deleted data")
}

func TestStoreReplacesEntriesWholesale(t *testing.T) {
	store := NewStore(Options{Backend: NewMemory(time.Minute)})
	ctx := context.Background()

	require.True(t, store.Set(ctx, "k", Value{Normal: "a", Social: "b"}, 0))
	require.True(t, store.Set(ctx, "k", Value{Normal: "c"}, 0))

	got, ok := store.Get(ctx, "k")
	require.True(t, ok)
	require.Equal(t, Value{Normal: "c"}, got)
}

func TestStoreBackendErrorsDegradeToMiss(t *testing.T) {
	rec := metrics.NewRecorder(nil)
	store := NewStore(Options{
		Backend: failingBackend{Backend: NewNoop(), err: errors.New("boom")},
		Metrics: rec,
	})
	ctx := context.Background()

	_, ok := store.Get(ctx, "k")
	require.False(t, ok)
	require.False(t, store.Set(ctx, "k", Value{Normal: "x"}, 0))
}

func TestStoreRejectsInvalidKeys(t *testing.T) {
	store := NewStore(Options{Backend: NewMemory(time.Minute)})
	ctx := context.Background()

	require.False(t, store.Set(ctx, "bad key", Value{Normal: "x"}, 0))
	_, ok := store.Get(ctx, "")
	require.False(t, ok)
	require.ErrorIs(t, store.Delete(ctx, ""), ErrInvalidKey)
}

func TestStoreFlushRemovesNamespaceOnRedis(t *testing.T) {
	server := miniredis.RunT(t)
	backend, err := NewRedis(RedisConfig{Address: server.Addr()})
	require.NoError(t, err)
	store := NewStore(Options{Backend: backend})
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	ctx := context.Background()

	require.True(t, store.Set(ctx, "post_1_1en", Value{Normal: "a"}, time.Hour))
	require.True(t, store.Set(ctx, "post_2_1en", Value{Normal: "b"}, time.Hour))
	require.NoError(t, server.Set("unrelated", "x"))

	require.NoError(t, store.Flush(ctx))

	_, ok := store.Get(ctx, "post_1_1en")
	require.False(t, ok)
	require.True(t, server.Exists("unrelated"))
	size, err := store.Size(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, size)
}

func TestStoreDeletePrefixSpansLocales(t *testing.T) {
	server := miniredis.RunT(t)
	backend, err := NewRedis(RedisConfig{Address: server.Addr()})
	require.NoError(t, err)
	store := NewStore(Options{Backend: backend})
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	ctx := context.Background()

	require.True(t, store.Set(ctx, "post_42_1en_us", Value{Normal: "a"}, time.Hour))
	require.True(t, store.Set(ctx, "post_42_1fr_fr", Value{Normal: "b"}, time.Hour))
	require.True(t, store.Set(ctx, "post_420_1en_us", Value{Normal: "c"}, time.Hour))

	require.NoError(t, store.DeletePrefix(ctx, "post_42_1"))

	for _, key := range []string{"post_42_1en_us", "post_42_1fr_fr"} {
		_, ok := store.Get(ctx, key)
		require.False(t, ok, key)
	}
	_, ok := store.Get(ctx, "post_420_1en_us")
	require.True(t, ok)
	require.ErrorIs(t, store.DeletePrefix(ctx, ""), ErrInvalidKey)
}

func TestNilStoreIsInert(t *testing.T) {
	var store *Store
	ctx := context.Background()

	_, ok := store.Get(ctx, "k")
	require.False(t, ok)
	require.False(t, store.Set(ctx, "k", Value{}, 0))
	require.NoError(t, store.Delete(ctx, "k"))
	require.NoError(t, store.Flush(ctx))
	require.NoError(t, store.DeletePrefix(ctx, "k"))
	require.False(t, store.Enabled())
}
