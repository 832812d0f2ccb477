package title

import (
	"strings"

	"github.com/l0p7/seometa/internal/page"
	"github.com/l0p7/seometa/internal/runtime/generation"
	"github.com/l0p7/seometa/internal/runtime/pipeline"
)

// compatible assembles the title for themes that pre-format it: the theme
// appends the site name itself, so the result carries only the title and a
// single separator on the requested side.
func (b *Builder) compatible(st *pipeline.State, target page.Context, rawHint, sep, loc string, args generation.Args) generation.GeneratedText {
	sep = strings.TrimSpace(sep)
	hint := stripSeparator(rawHint, sep)

	var text generation.GeneratedText
	if isHome(target, args) {
		// Never both halves here; the theme adds the site name.
		if tagline := b.svc.SiteDescription(st); tagline != "" {
			text = generation.GeneratedText{Value: tagline, Source: generation.SourceGenerated}
		} else {
			text = generation.GeneratedText{Value: b.svc.SiteName(st), Source: generation.SourceGenerated}
		}
	} else {
		text = b.resolve(st, target, args)
		if text.Empty() && hint != "" {
			text = generation.GeneratedText{Value: hint, Source: generation.SourceFallback}
		}
	}
	if text.Empty() {
		text = generation.GeneratedText{Value: b.untitled(), Source: generation.SourceFallback}
	}
	text.Value = b.decorate(st, target, text.Value, args)
	text = b.escape(text, args)

	if sep == "" {
		return text
	}
	if normalizeLocation(loc) == LocationLeft {
		if !strings.HasPrefix(text.Value, sep) {
			text.Value = " " + sep + " " + text.Value
		}
		return text
	}
	if !strings.HasSuffix(text.Value, sep) {
		text.Value = text.Value + " " + sep + " "
	}
	return text
}

// stripSeparator removes separators and spaces a theme left around the hint.
func stripSeparator(hint, sep string) string {
	hint = strings.TrimSpace(hint)
	if sep == "" {
		return hint
	}
	for {
		trimmed := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(hint, sep), sep))
		if trimmed == hint {
			return hint
		}
		hint = trimmed
	}
}
