// Package description resolves meta descriptions and caches the generated
// excerpt pair per page context.
package description

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/singleflight"

	"github.com/l0p7/seometa/internal/host"
	"github.com/l0p7/seometa/internal/page"
	"github.com/l0p7/seometa/internal/runtime/cache"
	"github.com/l0p7/seometa/internal/runtime/cachekey"
	"github.com/l0p7/seometa/internal/runtime/excerpt"
	"github.com/l0p7/seometa/internal/runtime/extension"
	"github.com/l0p7/seometa/internal/runtime/generation"
	"github.com/l0p7/seometa/internal/runtime/pipeline"
	"github.com/l0p7/seometa/internal/runtime/title"
	"github.com/l0p7/seometa/internal/templates"
)

const (
	// NormalBudget bounds the normal variant before additions are counted.
	NormalBudget = 155
	// SocialBudget bounds the social variant.
	SocialBudget = 200

	output = "description"
)

// Options configures a Builder.
type Options struct {
	Store *cache.Store
	Keys  *cachekey.Deriver
	// TTL defaults to cache.DefaultTTL.
	TTL time.Duration
}

// Builder produces descriptions. Like the title builder it keeps no request
// state of its own. Concurrent misses on one key share a single computation.
type Builder struct {
	svc    *generation.Services
	titles *title.Builder
	store  *cache.Store
	keys   *cachekey.Deriver
	ttl    time.Duration
	flight singleflight.Group
}

type computed struct {
	value  cache.Value
	stored bool
}

// New returns a Builder. A nil store disables caching; a nil deriver uses the
// wall clock.
func New(svc *generation.Services, titles *title.Builder, opts Options) *Builder {
	keys := opts.Keys
	if keys == nil {
		keys = cachekey.New()
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	if titles == nil {
		titles = title.New(svc)
	}
	return &Builder{svc: svc, titles: titles, store: opts.Store, keys: keys, ttl: ttl}
}

// Build returns the description for the request, possibly empty.
func (b *Builder) Build(ctx context.Context, st *pipeline.State, rawHint string, args generation.Args) string {
	return b.generate(ctx, st, rawHint, args).Value
}

// Generate is Build with provenance.
func (b *Builder) Generate(ctx context.Context, st *pipeline.State, rawHint string, args generation.Args) generation.GeneratedText {
	return b.generate(ctx, st, rawHint, args)
}

func (b *Builder) generate(ctx context.Context, st *pipeline.State, rawHint string, args generation.Args) generation.GeneratedText {
	args, err := args.Normalize(st.Context)
	if err != nil {
		b.svc.Diagnostics.InvalidArgs(2, output, err)
	}
	target := args.Target(st.Context, b.svc.Content)

	var text generation.GeneratedText
	if args.CustomField() && !args.Placeholder {
		if v := strings.TrimSpace(b.customField(target, args)); v != "" {
			text = generation.GeneratedText{Value: v, Source: generation.SourceCustomField}
		}
	}
	if text.Empty() {
		text = b.generated(ctx, st, target, args)
	}
	if text.Empty() && b.svc.BoolOption(host.OptionAutoDescription) {
		text = generation.GeneratedText{Value: strings.TrimSpace(rawHint), Source: generation.SourceFallback}
	}
	if args.Escaped() {
		text.Value = generation.Escape(text.Value)
	}
	b.svc.Observe(output, text)
	return text
}

func (b *Builder) customField(target page.Context, args generation.Args) string {
	content := b.svc.Content
	if isHome(target, args) {
		if v := b.svc.Option(host.OptionHomeDescription).String(); v != "" {
			return v
		}
		if target.StaticFront && target.ID > 0 {
			return content.GetCustomField(host.FieldDescription, target.ID)
		}
		return ""
	}
	switch {
	case target.HasPost():
		return content.GetCustomField(host.FieldDescription, target.ID)
	case target.Kind == page.KindTermArchive:
		return content.GetTermMeta(termOf(target))[host.TermMetaDescription]
	case target.Kind == page.KindAuthorArchive:
		return content.GetAuthorMeta(target.ID, host.AuthorMetaDescription)
	}
	return ""
}

func (b *Builder) generated(ctx context.Context, st *pipeline.State, target page.Context, args generation.Args) generation.GeneratedText {
	source := generation.SourceGenerated
	if args.Placeholder {
		source = generation.SourcePlaceholder
	}
	if !b.svc.BoolOption(host.OptionAutoDescription) {
		return generation.GeneratedText{Source: source}
	}
	if isHome(target, args) {
		tagline := ""
		if !args.Placeholder {
			tagline = generation.Escape(b.svc.Option(host.OptionHomeTagline).String())
		}
		if tagline == "" {
			tagline = b.svc.SiteDescription(st)
		}
		return generation.GeneratedText{Value: tagline, Source: source}
	}

	manual := b.manualExcerpt(target)
	additions := b.additions(st, target, manual != "", false)
	pair := b.excerpts(ctx, st, target, manual, additions)

	if args.Social {
		return generation.GeneratedText{Value: pair.Social, Source: source}
	}
	sep := b.separator(st)
	switch {
	case pair.Normal != "" && additions != "":
		return generation.GeneratedText{Value: additions + sep + pair.Normal, Source: source}
	case pair.Normal != "":
		return generation.GeneratedText{Value: pair.Normal, Source: source}
	case additions == "":
		// A title exists even when the toggles say otherwise; never go blank.
		return generation.GeneratedText{Value: b.additions(st, target, manual != "", true), Source: source}
	default:
		return generation.GeneratedText{Value: additions, Source: source}
	}
}

// excerpts returns the cached pair for target, computing and storing it on a
// miss. Keys that cannot be cached are neither read nor written.
func (b *Builder) excerpts(ctx context.Context, st *pipeline.State, target page.Context, manual, additions string) cache.Value {
	var (
		key       string
		cacheable bool
	)
	if target.ID == st.Context.ID && target.Kind == st.Context.Kind {
		key, cacheable = b.keys.ForRequest(st)
	} else {
		key, cacheable = st.CacheKey(target.ID, target.Taxonomy, func() (string, bool) {
			return b.keys.Resolve(target)
		})
	}
	log := b.svc.Log().With(slog.String("key", key), slog.String("correlation_id", st.CorrelationID))
	st.Cache.Key = key
	st.Cache.Disabled = !cacheable || !b.store.Enabled()

	if !cacheable {
		log.Debug("description generated", slog.Bool("stored", false))
		return b.compute(st, target, manual, additions)
	}
	if value, ok := b.store.Get(ctx, key); ok {
		st.Cache.Hit = true
		log.Debug("description cache hit")
		return value
	}

	leader := false
	res, _, _ := b.flight.Do(key, func() (any, error) {
		leader = true
		value := b.compute(st, target, manual, additions)
		return computed{value: value, stored: b.store.Set(ctx, key, value, b.ttl)}, nil
	})
	out := res.(computed)
	st.Cache.Stored = out.stored && leader
	log.Debug("description generated", slog.Bool("stored", st.Cache.Stored), slog.Bool("shared", !leader))
	return out.value
}

func (b *Builder) compute(st *pipeline.State, target page.Context, manual, additions string) cache.Value {
	text := manual
	if text == "" {
		text = b.excerptSource(target)
	}
	budget := NormalBudget
	if additions != "" {
		budget -= utf8.RuneCountInString(additions + b.separator(st))
	}
	return cache.Value{
		Normal: excerpt.Trim(text, budget),
		Social: excerpt.Trim(text, SocialBudget),
	}
}

// additions renders "<Title> on <BlogName>". Unless forced it is gated by the
// additions option, the absence of a manual excerpt and the extension point.
func (b *Builder) additions(st *pipeline.State, target page.Context, manual, force bool) string {
	name := st.Remember("description.additions."+target.Kind.String()+"."+target.Taxonomy+"."+strconv.Itoa(target.ID), func() string {
		t := b.titles.Generate(st, "", "", "", generation.Args{
			ID:          target.ID,
			Taxonomy:    target.Taxonomy,
			NoTagline:   true,
			Description: true,
		})
		if t.Source == generation.SourceFallback {
			return ""
		}
		return t.Value
	})
	if name == "" {
		return ""
	}
	if !force {
		if manual || !b.svc.BoolOption(host.OptionDescriptionAdditions) {
			return ""
		}
		in := b.svc.ExtensionInput(st, target, name, "")
		if !b.svc.Extensions.Bool(extension.PointDescriptionAdditions, in, true) {
			return ""
		}
	}
	blog := b.svc.SiteName(st)
	if blog == "" {
		return name
	}
	return b.svc.Text(templates.MsgAdditions, map[string]any{"Title": name, "BlogName": blog})
}

func (b *Builder) separator(st *pipeline.State) string {
	return st.Remember("description.separator", func() string {
		return " " + host.Separator(b.svc.Option(host.OptionDescriptionSeparator).String()) + " "
	})
}

// manualExcerpt is the human-authored excerpt of singular content.
func (b *Builder) manualExcerpt(target page.Context) string {
	if !target.HasPost() {
		return ""
	}
	return excerpt.Plain(b.svc.Content.GetExcerptSource(target.ID))
}

// excerptSource reads the text the generated excerpt is cut from.
func (b *Builder) excerptSource(target page.Context) string {
	content := b.svc.Content
	switch {
	case target.HasPost():
		return excerpt.Plain(content.GetPostContent(target.ID))
	case target.Kind == page.KindTermArchive:
		return excerpt.Plain(content.GetTermDescription(termOf(target)))
	case target.Kind == page.KindAuthorArchive:
		return excerpt.Plain(content.GetAuthorMeta(target.ID, host.AuthorMetaBio))
	}
	return ""
}

func termOf(target page.Context) host.TermRef {
	if !target.Term.IsZero() {
		return target.Term
	}
	return host.TermRef{ID: target.ID, Taxonomy: target.Taxonomy}
}

func isHome(target page.Context, args generation.Args) bool {
	return target.Kind == page.KindFrontPage || (args.IsHome && target.Kind != page.KindSingular)
}
