package config

import (
	"fmt"
	"path/filepath"
	"strings"

	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ParserFor selects the koanf parser matching the document extension.
func ParserFor(path string) (koanf.Parser, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".json":
		return kjson.Parser(), nil
	case ".toml", ".tml":
		return toml.Parser(), nil
	default:
		return nil, fmt.Errorf("config: unsupported file extension %s", ext)
	}
}

// IsSupportedFile reports whether ParserFor understands path.
func IsSupportedFile(path string) bool {
	_, err := ParserFor(path)
	return err == nil
}

// LoadDocument parses a single YAML/JSON/TOML document into a fresh koanf tree.
func LoadDocument(path string) (*koanf.Koanf, error) {
	parser, err := ParserFor(path)
	if err != nil {
		return nil, err
	}
	if err := ensureFileExists(path); err != nil {
		return nil, err
	}
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("config: load file %s: %w", path, err)
	}
	return k, nil
}
