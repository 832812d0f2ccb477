package cache

import "context"

type noopCache struct{}

// NewNoop returns a backend that stores nothing, used when caching is
// configured off.
func NewNoop() Backend { return noopCache{} }

func (noopCache) Lookup(context.Context, string) (Entry, bool, error) { return Entry{}, false, nil }
func (noopCache) Store(context.Context, string, Entry) error          { return nil }
func (noopCache) Delete(context.Context, string) error                { return nil }
func (noopCache) DeletePrefix(context.Context, string) error          { return nil }
func (noopCache) Size(context.Context) (int64, error)                 { return 0, nil }
func (noopCache) Close(context.Context) error                         { return nil }
