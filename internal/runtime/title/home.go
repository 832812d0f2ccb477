package title

import (
	"strings"

	"github.com/l0p7/seometa/internal/host"
	"github.com/l0p7/seometa/internal/page"
	"github.com/l0p7/seometa/internal/runtime/generation"
	"github.com/l0p7/seometa/internal/runtime/pipeline"
)

// home composes the front page title: the home name, optionally joined with
// the tagline on the configured side.
func (b *Builder) home(st *pipeline.State, target page.Context, sep, loc string, args generation.Args) generation.GeneratedText {
	text := b.homeName(st, target, args)
	if text.Empty() {
		text = generation.GeneratedText{Value: b.untitled(), Source: generation.SourceFallback}
	}
	text.Value = b.paginate(st, target, text.Value)

	if b.svc.BoolOption(host.OptionHomeTaglineEnabled) {
		if tagline := b.homeTagline(st, args); tagline != "" {
			homeLoc := normalizeLocation(loc)
			if homeLoc == "" {
				homeLoc = normalizeLocation(b.svc.Option(host.OptionHomeTitleLocation).String())
			}
			text.Value = join(text.Value, tagline, b.separator(st, sep), homeLoc)
		}
	}
	return b.escape(text, args)
}

// homeName resolves the primary half of the home title: the home-title
// option, then the static front page's custom field, then the site name.
func (b *Builder) homeName(st *pipeline.State, target page.Context, args generation.Args) generation.GeneratedText {
	if args.Placeholder {
		return generation.GeneratedText{Value: b.svc.SiteName(st), Source: generation.SourcePlaceholder}
	}
	if args.CustomField() {
		if v := b.svc.Option(host.OptionHomeTitle).String(); v != "" {
			return generation.GeneratedText{Value: v, Source: generation.SourceCustomField}
		}
		if target.StaticFront && target.ID > 0 {
			if v := strings.TrimSpace(b.svc.Content.GetCustomField(host.FieldTitle, target.ID)); v != "" {
				return generation.GeneratedText{Value: v, Source: generation.SourceCustomField}
			}
		}
	}
	return generation.GeneratedText{Value: b.svc.SiteName(st), Source: generation.SourceGenerated}
}

func (b *Builder) homeTagline(st *pipeline.State, args generation.Args) string {
	if !args.Placeholder {
		if v := generation.Escape(b.svc.Option(host.OptionHomeTagline).String()); v != "" {
			return v
		}
	}
	return b.svc.SiteDescription(st)
}
