package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidKey reports a key the store refuses to address.
var ErrInvalidKey = errors.New("cache: invalid key")

const maxKeyLength = 512

// Value is the cached description pair for one page context.
type Value struct {
	Normal string `json:"normal"`
	Social string `json:"social"`
}

// Entry wraps a Value with its storage timestamps. Entries are always
// replaced whole.
type Entry struct {
	Value     Value     `json:"value"`
	StoredAt  time.Time `json:"storedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// stamped fills missing timestamps. An expiry before StoredAt is replaced
// by StoredAt plus ttl.
func (e Entry) stamped(now time.Time, ttl time.Duration) Entry {
	if e.StoredAt.IsZero() {
		e.StoredAt = now.UTC()
	}
	if e.ExpiresAt.IsZero() || e.ExpiresAt.Before(e.StoredAt) {
		e.ExpiresAt = e.StoredAt.Add(ttl)
	}
	return e
}

// Backend is a key-value store holding description entries.
type Backend interface {
	Lookup(ctx context.Context, key string) (Entry, bool, error)
	Store(ctx context.Context, key string, entry Entry) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
	Size(ctx context.Context) (int64, error)
	Close(ctx context.Context) error
}

// ValidateKey rejects keys that are empty, oversized or contain whitespace or
// control characters.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	if len(key) > maxKeyLength {
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidKey, maxKeyLength)
	}
	if strings.IndexFunc(key, func(r rune) bool { return r <= ' ' || r == 0x7f }) >= 0 {
		return fmt.Errorf("%w: %q contains whitespace or control characters", ErrInvalidKey, key)
	}
	return nil
}
