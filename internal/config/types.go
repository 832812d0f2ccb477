package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config holds every server-level option plus the localized strings and
// extension overrides consumed by the generator.
type Config struct {
	Server     ServerConfig      `koanf:"server"`
	Site       SiteConfig        `koanf:"site"`
	Strings    map[string]string `koanf:"strings"`
	Extensions map[string]string `koanf:"extensions"`
}

// ServerConfig collects the bootstrap knobs owned by the service lifecycle.
type ServerConfig struct {
	Listen    ListenConfig      `koanf:"listen"`
	Logging   LoggingConfig     `koanf:"logging"`
	Templates TemplatesConfig   `koanf:"templates"`
	Cache     ServerCacheConfig `koanf:"cache"`
}

// ListenConfig instructs the HTTP listener about bind address and port.
type ListenConfig struct {
	Address string `koanf:"address"`
	Port    int    `koanf:"port"`
}

// LoggingConfig expresses log level, format, and correlation ID wiring.
type LoggingConfig struct {
	Level             string `koanf:"level"`
	Format            string `koanf:"format"`
	CorrelationHeader string `koanf:"correlationHeader"`
}

// TemplatesConfig captures the template sandbox root used by file-backed strings.
type TemplatesConfig struct {
	TemplatesFolder string `koanf:"templatesFolder"`
}

type ServerCacheConfig struct {
	Backend    string                 `koanf:"backend"`
	TTLSeconds int                    `koanf:"ttlSeconds"`
	Namespace  string                 `koanf:"namespace"`
	Redis      ServerRedisCacheConfig `koanf:"redis"`
}

type ServerRedisCacheConfig struct {
	Address  string               `koanf:"address"`
	Username string               `koanf:"username"`
	Password string               `koanf:"password"`
	DB       int                  `koanf:"db"`
	TLS      ServerRedisTLSConfig `koanf:"tls"`
}

type ServerRedisTLSConfig struct {
	Enabled bool   `koanf:"enabled"`
	CAFile  string `koanf:"caFile"`
}

// SiteConfig points at the content and options document served by internal/site.
type SiteConfig struct {
	File string `koanf:"file"`
	// Watch reloads File when it changes. Ignored without a File.
	Watch bool `koanf:"watch"`
}

// Cache backend names accepted by server.cache.backend.
const (
	CacheBackendMemory   = "memory"
	CacheBackendRedis    = "redis"
	CacheBackendDisabled = "disabled"
)

// BackendName normalizes the configured backend, defaulting to memory.
func (c ServerCacheConfig) BackendName() string {
	backend := strings.TrimSpace(strings.ToLower(c.Backend))
	if backend == "" {
		return CacheBackendMemory
	}
	return backend
}

// TTL converts ttlSeconds into a duration. Zero means the store default.
func (c ServerCacheConfig) TTL() time.Duration {
	if c.TTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.TTLSeconds) * time.Second
}

// Validate enforces invariants that keep the runtime predictable before serving traffic.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config: nil")
	}
	if c.Server.Listen.Port <= 0 || c.Server.Listen.Port > 65535 {
		return fmt.Errorf("config: listen.port invalid: %d", c.Server.Listen.Port)
	}
	if c.Server.Cache.TTLSeconds < 0 {
		return fmt.Errorf("config: server.cache.ttlSeconds invalid: %d", c.Server.Cache.TTLSeconds)
	}
	switch c.Server.Cache.BackendName() {
	case CacheBackendMemory, CacheBackendDisabled:
	case CacheBackendRedis:
		if strings.TrimSpace(c.Server.Cache.Redis.Address) == "" {
			return errors.New("config: server.cache.redis.address required for redis backend")
		}
	default:
		return fmt.Errorf("config: server.cache.backend unsupported: %s", c.Server.Cache.Backend)
	}
	if c.Server.Cache.Redis.TLS.CAFile != "" && !c.Server.Cache.Redis.TLS.Enabled {
		return errors.New("config: server.cache.redis.tls.caFile set without tls.enabled")
	}
	if c.Site.File != "" && !IsSupportedFile(c.Site.File) {
		return fmt.Errorf("config: site.file unsupported extension: %s", c.Site.File)
	}
	for name, expression := range c.Extensions {
		if strings.TrimSpace(expression) == "" {
			return fmt.Errorf("config: extensions.%s empty", name)
		}
	}
	return nil
}

// DefaultConfig returns the baseline values that align with the design defaults.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Listen: ListenConfig{
				Address: "0.0.0.0",
				Port:    8080,
			},
			Logging: LoggingConfig{
				Level:             "info",
				Format:            "json",
				CorrelationHeader: "X-Request-ID",
			},
			Templates: TemplatesConfig{
				TemplatesFolder: "./templates",
			},
			Cache: ServerCacheConfig{
				Backend:    CacheBackendMemory,
				TTLSeconds: 604800,
				Namespace:  "seometa:desc:",
			},
		},
		Site: SiteConfig{
			Watch: true,
		},
	}
}
