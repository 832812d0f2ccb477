// Package title resolves document titles.
package title

import (
	"strings"

	"github.com/l0p7/seometa/internal/host"
	"github.com/l0p7/seometa/internal/page"
	"github.com/l0p7/seometa/internal/runtime/compat"
	"github.com/l0p7/seometa/internal/runtime/extension"
	"github.com/l0p7/seometa/internal/runtime/generation"
	"github.com/l0p7/seometa/internal/runtime/pipeline"
	"github.com/l0p7/seometa/internal/templates"
)

const (
	LocationRight = "right"
	LocationLeft  = "left"

	output = "title"
)

// Builder produces titles. It holds no request state and is safe to share;
// everything request scoped lives in the pipeline.State passed to each call.
type Builder struct {
	svc *generation.Services
}

// New returns a Builder over svc.
func New(svc *generation.Services) *Builder {
	return &Builder{svc: svc}
}

// Build returns the title for the request. The result is never empty.
func (b *Builder) Build(st *pipeline.State, rawHint, sep, loc string, args generation.Args) string {
	return b.generate(st, rawHint, sep, loc, args).Value
}

// Generate is Build with provenance.
func (b *Builder) Generate(st *pipeline.State, rawHint, sep, loc string, args generation.Args) generation.GeneratedText {
	return b.generate(st, rawHint, sep, loc, args)
}

func (b *Builder) generate(st *pipeline.State, rawHint, sep, loc string, args generation.Args) generation.GeneratedText {
	ctx := st.Context
	if ctx.Feed {
		text := generation.GeneratedText{Value: strings.TrimSpace(rawHint), Source: generation.SourceFallback}
		if text.Empty() {
			text.Value = b.untitled()
		}
		return text
	}

	args, err := args.Normalize(ctx)
	if err != nil {
		b.svc.Diagnostics.InvalidArgs(2, output, err)
	}
	target := args.Target(ctx, b.svc.Content)

	var text generation.GeneratedText
	switch {
	case args.NoTagline:
		text = b.bare(st, target, args)
	case b.legacy(sep, loc, args):
		text = b.compatible(st, target, rawHint, sep, loc, args)
	default:
		text = b.standard(st, target, sep, loc, args)
	}
	if text.Empty() {
		text = generation.GeneratedText{Value: b.untitled(), Source: generation.SourceFallback}
	}
	b.svc.Observe(output, text)
	return text
}

// bare resolves the title alone, with no site name and no decoration.
func (b *Builder) bare(st *pipeline.State, target page.Context, args generation.Args) generation.GeneratedText {
	var text generation.GeneratedText
	if isHome(target, args) {
		text = b.homeName(st, target, args)
	} else {
		text = b.resolve(st, target, args)
	}
	return b.escape(text, args)
}

func (b *Builder) standard(st *pipeline.State, target page.Context, sep, loc string, args generation.Args) generation.GeneratedText {
	if isHome(target, args) {
		return b.home(st, target, sep, loc, args)
	}

	text := b.resolve(st, target, args)
	if text.Empty() {
		text = generation.GeneratedText{Value: b.untitled(), Source: generation.SourceFallback}
	}
	text.Value = b.decorate(st, target, text.Value, args)

	if b.appendSiteName(st, target, text.Value) {
		if name := b.svc.SiteName(st); name != "" {
			text.Value = join(text.Value, name, b.separator(st, sep), b.location(st, loc))
		}
	}
	return b.escape(text, args)
}

// resolve walks custom field, special source and generation in order.
func (b *Builder) resolve(st *pipeline.State, target page.Context, args generation.Args) generation.GeneratedText {
	if args.Placeholder {
		return generation.GeneratedText{Value: b.generated(st, target), Source: generation.SourcePlaceholder}
	}
	if args.CustomField() {
		if v := strings.TrimSpace(b.customField(target)); v != "" {
			return generation.GeneratedText{Value: v, Source: generation.SourceCustomField}
		}
	}
	if v := strings.TrimSpace(b.special(st, target)); v != "" {
		return generation.GeneratedText{Value: v, Source: generation.SourceGenerated}
	}
	if v := strings.TrimSpace(b.generated(st, target)); v != "" {
		return generation.GeneratedText{Value: v, Source: generation.SourceGenerated}
	}
	return generation.GeneratedText{}
}

// decorate applies visibility prefixes and the pagination suffix.
func (b *Builder) decorate(st *pipeline.State, target page.Context, title string, args generation.Args) string {
	if !args.Description && target.HasPost() {
		switch b.svc.Content.GetPostVisibility(target.ID) {
		case host.VisibilityProtected:
			title = b.svc.Text(templates.MsgProtected, map[string]any{"Title": title})
		case host.VisibilityPrivate:
			title = b.svc.Text(templates.MsgPrivate, map[string]any{"Title": title})
		}
	}
	return b.paginate(st, target, title)
}

func (b *Builder) paginate(st *pipeline.State, target page.Context, title string) string {
	ctx := st.Context
	if !ctx.Paginated() || ctx.Kind == page.KindNotFound || target.ID != ctx.ID || target.Kind != ctx.Kind {
		return title
	}
	return title + " " + b.svc.Text(templates.MsgPage, map[string]any{"Number": ctx.PageNumber})
}

func (b *Builder) appendSiteName(st *pipeline.State, target page.Context, title string) bool {
	def := b.svc.BoolOption(host.OptionTitleAppendSiteName)
	if st.Context.Preview && b.svc.Compat.KnownWrong(b.theme(st)) {
		def = true
	}
	return b.svc.Extensions.Bool(extension.PointAppendSiteName, b.svc.ExtensionInput(st, target, title, ""), def)
}

func (b *Builder) legacy(sep, loc string, args generation.Args) bool {
	call := compat.Call{
		Theme:            b.svc.Option(host.OptionTheme).String(),
		Separator:        sep,
		Location:         loc,
		Meta:             args.Meta,
		SupportsTitleTag: b.svc.BoolOption(host.OptionThemeSupportsTitleTag),
	}
	return b.svc.Compat.Observe(call)
}

func (b *Builder) escape(text generation.GeneratedText, args generation.Args) generation.GeneratedText {
	if args.Escaped() {
		text.Value = generation.Escape(text.Value)
	}
	return text
}

func (b *Builder) untitled() string {
	if v := b.svc.Text(templates.MsgUntitled, nil); v != "" {
		return v
	}
	return "Untitled"
}

func (b *Builder) theme(st *pipeline.State) string {
	return st.Remember("site.theme", func() string {
		return b.svc.Option(host.OptionTheme).String()
	})
}

// separator returns sep, or the configured separator when sep is empty.
func (b *Builder) separator(st *pipeline.State, sep string) string {
	if sep = strings.TrimSpace(sep); sep != "" {
		return sep
	}
	return st.Remember("title.separator", func() string {
		return host.Separator(b.svc.Option(host.OptionTitleSeparator).String())
	})
}

func (b *Builder) location(st *pipeline.State, loc string) string {
	if loc = normalizeLocation(loc); loc != "" {
		return loc
	}
	return st.Remember("title.location", func() string {
		if l := normalizeLocation(b.svc.Option(host.OptionTitleLocation).String()); l != "" {
			return l
		}
		return LocationRight
	})
}

func normalizeLocation(loc string) string {
	switch strings.ToLower(strings.TrimSpace(loc)) {
	case LocationLeft:
		return LocationLeft
	case LocationRight:
		return LocationRight
	default:
		return ""
	}
}

// join places other beside title on the side loc names for other.
func join(title, other, sep, loc string) string {
	if title == "" {
		return other
	}
	if other == "" {
		return title
	}
	glue := " " + sep + " "
	if sep == "" {
		glue = " "
	}
	if loc == LocationLeft {
		return other + glue + title
	}
	return title + glue + other
}

func isHome(target page.Context, args generation.Args) bool {
	return target.Kind == page.KindFrontPage || (args.IsHome && target.Kind != page.KindSingular)
}
