package generation

import (
	"strings"

	"golang.org/x/net/html"
)

// Source records where a piece of generated text came from.
type Source int

const (
	SourceFallback Source = iota
	SourceCustomField
	SourceGenerated
	SourcePlaceholder
)

func (s Source) String() string {
	switch s {
	case SourceCustomField:
		return "custom_field"
	case SourceGenerated:
		return "generated"
	case SourcePlaceholder:
		return "placeholder"
	default:
		return "fallback"
	}
}

// GeneratedText is a value with its provenance.
type GeneratedText struct {
	Value  string `json:"value"`
	Source Source `json:"source"`
}

// Empty reports whether no text was produced.
func (g GeneratedText) Empty() bool { return g.Value == "" }

// Escape decodes entities left behind by stored content, collapses runs of
// whitespace and trims the result.
func Escape(s string) string {
	if s == "" {
		return ""
	}
	if strings.IndexByte(s, '&') >= 0 {
		s = html.UnescapeString(s)
	}
	return strings.Join(strings.Fields(s), " ")
}
