package cache

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	valkey "github.com/valkey-io/valkey-go"
)

type RedisTLSConfig struct {
	Enabled bool
	CAFile  string
}

type RedisConfig struct {
	Address  string
	Username string
	Password string
	DB       int
	TLS      RedisTLSConfig
	// TTL applies to entries stored without an explicit expiry.
	TTL time.Duration
}

// Hash fields of a stored entry.
const (
	fieldNormal    = "normal"
	fieldSocial    = "social"
	fieldStoredAt  = "stored_at"
	fieldExpiresAt = "expires_at"
)

const (
	scanBatch   = 100
	pingTimeout = 5 * time.Second
)

// redisCache keeps each entry as a hash so the description pair can be read
// with redis-cli. Expiry is delegated to the server.
type redisCache struct {
	client valkey.Client
	ttl    time.Duration
}

// NewRedis connects to a Redis-compatible server and verifies it with PING.
func NewRedis(cfg RedisConfig) (Backend, error) {
	if strings.TrimSpace(cfg.Address) == "" {
		return nil, errors.New("cache: redis address required")
	}
	tlsConfig, err := redisTLS(cfg.TLS)
	if err != nil {
		return nil, err
	}

	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress:       []string{cfg.Address},
		Username:          cfg.Username,
		Password:          cfg.Password,
		SelectDB:          cfg.DB,
		TLSConfig:         tlsConfig,
		AlwaysRESP2:       true,
		ForceSingleClient: true,
		DisableCache:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("cache: redis client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("cache: redis ping %s: %w", cfg.Address, err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &redisCache{client: client, ttl: ttl}, nil
}

func redisTLS(cfg RedisTLSConfig) (*tls.Config, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	out := &tls.Config{MinVersion: tls.VersionTLS12}
	if cfg.CAFile == "" {
		return out, nil
	}
	pem, err := os.ReadFile(cfg.CAFile)
	if err != nil {
		return nil, fmt.Errorf("cache: redis ca file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("cache: redis ca file %q contains no certificates", cfg.CAFile)
	}
	out.RootCAs = pool
	return out, nil
}

func (c *redisCache) Lookup(ctx context.Context, key string) (Entry, bool, error) {
	fields, err := c.client.Do(ctx, c.client.B().Hgetall().Key(key).Build()).AsStrMap()
	if err != nil {
		return Entry{}, false, fmt.Errorf("cache: redis hgetall: %w", err)
	}
	if len(fields) == 0 {
		return Entry{}, false, nil
	}
	entry := Entry{Value: Value{Normal: fields[fieldNormal], Social: fields[fieldSocial]}}
	if entry.StoredAt, err = time.Parse(time.RFC3339Nano, fields[fieldStoredAt]); err != nil {
		return Entry{}, false, fmt.Errorf("cache: redis entry %q: %w", key, err)
	}
	if entry.ExpiresAt, err = time.Parse(time.RFC3339Nano, fields[fieldExpiresAt]); err != nil {
		return Entry{}, false, fmt.Errorf("cache: redis entry %q: %w", key, err)
	}
	return entry, true, nil
}

// Store replaces key in one pipelined round trip. HSET writes every field at
// once, so readers see either no entry or a whole one.
func (c *redisCache) Store(ctx context.Context, key string, entry Entry) error {
	entry = entry.stamped(time.Now(), c.ttl)
	ttl := time.Until(entry.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	b := c.client.B()
	results := c.client.DoMulti(ctx,
		b.Del().Key(key).Build(),
		b.Hset().Key(key).FieldValue().
			FieldValue(fieldNormal, entry.Value.Normal).
			FieldValue(fieldSocial, entry.Value.Social).
			FieldValue(fieldStoredAt, entry.StoredAt.Format(time.RFC3339Nano)).
			FieldValue(fieldExpiresAt, entry.ExpiresAt.Format(time.RFC3339Nano)).
			Build(),
		b.Pexpire().Key(key).Milliseconds(ttl.Milliseconds()).Build(),
	)
	for _, res := range results {
		if err := res.Error(); err != nil {
			return fmt.Errorf("cache: redis store %q: %w", key, err)
		}
	}
	return nil
}

func (c *redisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Do(ctx, c.client.B().Del().Key(key).Build()).Error(); err != nil {
		return fmt.Errorf("cache: redis del: %w", err)
	}
	return nil
}

// DeletePrefix walks the keyspace with SCAN rather than KEYS.
func (c *redisCache) DeletePrefix(ctx context.Context, prefix string) error {
	if prefix == "" {
		return nil
	}
	pattern := globEscaper.Replace(prefix) + "*"
	cursor := uint64(0)
	for {
		page, err := c.client.Do(ctx, c.client.B().Scan().Cursor(cursor).Match(pattern).Count(scanBatch).Build()).AsScanEntry()
		if err != nil {
			return fmt.Errorf("cache: redis scan: %w", err)
		}
		if len(page.Elements) > 0 {
			if err := c.client.Do(ctx, c.client.B().Unlink().Key(page.Elements...).Build()).Error(); err != nil {
				return fmt.Errorf("cache: redis unlink: %w", err)
			}
		}
		if cursor = page.Cursor; cursor == 0 {
			return nil
		}
	}
}

var globEscaper = strings.NewReplacer(`\`, `\\`, "*", `\*`, "?", `\?`, "[", `\[`, "]", `\]`)

// Size reports DBSIZE, which includes keys outside the cache namespace.
func (c *redisCache) Size(ctx context.Context) (int64, error) {
	size, err := c.client.Do(ctx, c.client.B().Dbsize().Build()).AsInt64()
	if err != nil {
		return 0, fmt.Errorf("cache: redis dbsize: %w", err)
	}
	return size, nil
}

func (c *redisCache) Close(context.Context) error {
	c.client.Close()
	return nil
}
