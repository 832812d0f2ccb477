// Package cachekey maps page contexts to stable cache keys.
package cachekey

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/l0p7/seometa/internal/host"
	"github.com/l0p7/seometa/internal/page"
	"github.com/l0p7/seometa/internal/runtime/pipeline"
)

const searchQueryChars = 10

// Deriver computes cache keys. It is total: every Context, including ones no
// rule maps, yields a non-empty key. Identical contexts always yield identical
// keys except for date archives with nothing to date from, which fall back to a
// clock-derived key that is reported as not cacheable.
type Deriver struct {
	now func() time.Time
}

// New returns a Deriver using the wall clock for the date-archive fallback.
func New() *Deriver {
	return &Deriver{now: time.Now}
}

// NewWithClock returns a Deriver with an injected clock.
func NewWithClock(now func() time.Time) *Deriver {
	if now == nil {
		now = time.Now
	}
	return &Deriver{now: now}
}

// Derive returns the cache key for ctx.
func (d *Deriver) Derive(ctx page.Context) string {
	key, _ := d.Resolve(ctx)
	return key
}

// Resolve returns the cache key for ctx and whether it may be used for caching.
func (d *Deriver) Resolve(ctx page.Context) (string, bool) {
	computed, cacheable := d.computed(ctx)
	return computed + "_" + strconv.Itoa(ctx.BlogID) + strings.ToLower(ctx.Locale), cacheable
}

// Prefix is the key for ctx without its locale suffix. Every locale's key for
// ctx starts with it.
func (d *Deriver) Prefix(ctx page.Context) string {
	computed, _ := d.computed(ctx)
	return computed + "_" + strconv.Itoa(ctx.BlogID)
}

// ForRequest resolves the key for the request's context, memoized per
// (id, taxonomy) in the request state. A non-cacheable key stays disabled for
// the rest of the request.
func (d *Deriver) ForRequest(state *pipeline.State) (string, bool) {
	ctx := state.Context
	return state.CacheKey(ctx.ID, ctx.Taxonomy, func() (string, bool) {
		return d.Resolve(ctx)
	})
}

func (d *Deriver) computed(ctx page.Context) (string, bool) {
	id := strconv.Itoa(ctx.ID)
	switch ctx.Kind {
	case page.KindNotFound:
		return "_404_", true
	case page.KindSingular:
		return singularPrefix(ctx.Singular) + "_" + id, true
	case page.KindSearch:
		return id + "_s_" + normalizeQuery(ctx.Query), true
	case page.KindTermArchive:
		taxonomy := ctx.Taxonomy
		if taxonomy == "" {
			taxonomy = ctx.Term.Taxonomy
		}
		if taxonomy == "" {
			break
		}
		key := taxonomyKey(taxonomy, ctx.ID)
		if !builtinTaxonomy(taxonomy) {
			key = "archives_" + key
		}
		return key, true
	case page.KindDateArchive:
		if ctx.Date == host.DateNone {
			break
		}
		if ctx.ArchivedDate.IsZero() {
			// Nothing to date from: a per-second key keeps the lookup well formed
			// but must never be cached, or keys would grow without bound.
			return "unix_" + strconv.FormatInt(d.now().Unix(), 10), false
		}
		return dateKey(ctx.Date, ctx.ArchivedDate), true
	case page.KindAuthorArchive:
		return "author_" + id, true
	case page.KindFrontPage, page.KindPostsPage:
		if ctx.StaticFront {
			return "hpage_" + id, true
		}
		return "hblog_" + id, true
	}
	return "noob_" + id + "_" + ctx.Taxonomy, true
}

func singularPrefix(typ host.SingularType) string {
	switch typ {
	case host.SingularPage:
		return "page"
	case host.SingularPost:
		return "post"
	case host.SingularAttachment:
		return "attachment"
	default:
		return "singular"
	}
}

func builtinTaxonomy(taxonomy string) bool {
	return taxonomy == "category" || taxonomy == "post_tag"
}

// taxonomyKey abbreviates each underscore-separated segment of the taxonomy to
// its first three characters: "product_cat" and id 9 become "pro_cat_9".
func taxonomyKey(taxonomy string, id int) string {
	var b strings.Builder
	for _, segment := range strings.Split(strings.ToLower(taxonomy), "_") {
		if segment == "" {
			continue
		}
		runes := []rune(segment)
		if len(runes) > 3 {
			runes = runes[:3]
		}
		b.WriteString(string(runes))
		b.WriteByte('_')
	}
	return strings.TrimRight(b.String(), "_") + "_" + strconv.Itoa(id)
}

func dateKey(granularity host.DateGranularity, date time.Time) string {
	switch granularity {
	case host.DateYear:
		return "year_" + date.Format("06")
	case host.DateMonth:
		return "month_" + date.Format("01_06")
	default:
		return "day_" + date.Format("02_01_06")
	}
}

// normalizeQuery folds the search query to at most ten lowercase letters and
// digits so arbitrary user input cannot leak separators into the key.
func normalizeQuery(query string) string {
	folded := strings.ToLower(norm.NFKC.String(query))
	out := make([]rune, 0, searchQueryChars)
	for _, r := range folded {
		if len(out) == searchQueryChars {
			break
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			out = append(out, r)
		}
	}
	return string(out)
}
