package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Loader resolves the effective Config. Later sources win: defaults, then
// each file in order, then the environment.
type Loader struct {
	envPrefix string
	files     []string
}

func NewLoader(envPrefix string, files ...string) *Loader {
	return &Loader{envPrefix: envPrefix, files: files}
}

// Load merges every source and validates the result.
func (l *Loader) Load(ctx context.Context) (Config, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaultPaths(), "."), nil); err != nil {
		return Config{}, fmt.Errorf("config: load defaults: %w", err)
	}

	for _, path := range l.files {
		if path == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return Config{}, err
		}
		parser, err := ParserFor(path)
		if err != nil {
			return Config{}, err
		}
		if err := ensureFileExists(path); err != nil {
			return Config{}, err
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return Config{}, fmt.Errorf("config: load file %s: %w", path, err)
		}
	}

	if l.envPrefix != "" {
		if err := k.Load(env.Provider(l.envPrefix, ".", envKeyMapper(l.envPrefix)), nil); err != nil {
			return Config{}, fmt.Errorf("config: load env: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envKeyMapper turns PREFIX_SERVER__CACHE__TTLSECONDS into
// server.cache.ttlSeconds. Environment names are case-insensitive, so the
// camelCase spelling is recovered from the Config struct tags.
func envKeyMapper(prefix string) func(string) string {
	canonical := make(map[string]string)
	walkConfig(reflect.ValueOf(DefaultConfig()), "", func(path string, _ reflect.Value) {
		canonical[strings.ToLower(path)] = path
	})
	return func(name string) string {
		key := strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(name, prefix+"_"), "__", "."))
		if mapped, ok := canonical[key]; ok {
			return mapped
		}
		// Strings and extension names pass through lowercased.
		return strings.ReplaceAll(key, "_", "")
	}
}

// defaultPaths flattens DefaultConfig into dotted koanf paths.
func defaultPaths() map[string]any {
	out := make(map[string]any)
	walkConfig(reflect.ValueOf(DefaultConfig()), "", func(path string, v reflect.Value) {
		if v.Kind() == reflect.Map && v.Len() == 0 {
			return
		}
		out[path] = v.Interface()
	})
	return out
}

// walkConfig visits every koanf-tagged leaf of v. Nested structs are
// descended; maps count as leaves.
func walkConfig(v reflect.Value, prefix string, visit func(path string, v reflect.Value)) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("koanf")
		if tag == "" || tag == "-" {
			continue
		}
		path := tag
		if prefix != "" {
			path = prefix + "." + tag
		}
		field := v.Field(i)
		if field.Kind() == reflect.Struct {
			walkConfig(field, path, visit)
			continue
		}
		visit(path, field)
	}
}

func ensureFileExists(path string) error {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("config: file %s not found", path)
	default:
		return fmt.Errorf("config: stat %s: %w", path, err)
	}
}
