package site

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/l0p7/seometa/internal/host"
)

// Request kinds accepted in the "kind" query parameter.
const (
	KindSingular = "singular"
	KindFront    = "front"
	KindPosts    = "posts"
	KindCategory = "category"
	KindTag      = "tag"
	KindTax      = "tax"
	KindAuthor   = "author"
	KindSearch   = "search"
	KindNotFound = "404"
	KindDate     = "date"
	KindOther    = "other"
)

// Request is a ContextResolver answering from query parameters against a site.
//
//	kind      one of the Kind* constants (default "front")
//	id        post, term or author id
//	taxonomy  term taxonomy for kind=tax
//	q         search query
//	date      2006, 2006-01 or 2006-01-02 for kind=date
//	paged     page number
//	locale    one of the configured locales; others fall back to the locale option
//	feed, preview  boolean flags
type Request struct {
	site     *Live
	kind     string
	id       int
	taxonomy string
	query    string
	date     host.DateGranularity
	archived time.Time
	paged    int
	locale   string
	feed     bool
	preview  bool
}

// ParseRequest validates query parameters into a Request.
func ParseRequest(s *Live, values url.Values) (*Request, error) {
	if s == nil {
		s = NewLive(nil)
	}
	r := &Request{
		site:     s,
		kind:     strings.ToLower(strings.TrimSpace(values.Get("kind"))),
		taxonomy: strings.TrimSpace(values.Get("taxonomy")),
		query:    values.Get("q"),
		locale:   strings.TrimSpace(values.Get("locale")),
	}
	if r.kind == "" {
		r.kind = KindFront
	}

	var err error
	if r.id, err = intParam(values, "id"); err != nil {
		return nil, err
	}
	if r.paged, err = intParam(values, "paged"); err != nil {
		return nil, err
	}
	if r.feed, err = boolParam(values, "feed"); err != nil {
		return nil, err
	}
	if r.preview, err = boolParam(values, "preview"); err != nil {
		return nil, err
	}

	switch r.kind {
	case KindSingular, KindAuthor:
		if r.id <= 0 {
			return nil, fmt.Errorf("site: kind %s requires id", r.kind)
		}
	case KindCategory:
		r.taxonomy = "category"
	case KindTag:
		r.taxonomy = "post_tag"
	case KindTax:
		if r.taxonomy == "" {
			return nil, fmt.Errorf("site: kind tax requires taxonomy")
		}
	case KindDate:
		if r.date, r.archived, err = parseDate(values.Get("date")); err != nil {
			return nil, err
		}
	case KindFront, KindPosts, KindSearch, KindNotFound, KindOther:
	default:
		return nil, fmt.Errorf("site: unknown kind %q", r.kind)
	}
	return r, nil
}

func intParam(values url.Values, name string) (int, error) {
	raw := strings.TrimSpace(values.Get(name))
	if raw == "" {
		return 0, nil
	}
	v, err := cast.ToIntE(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("site: invalid %s %q", name, raw)
	}
	return v, nil
}

func boolParam(values url.Values, name string) (bool, error) {
	raw := strings.TrimSpace(values.Get(name))
	if raw == "" {
		return false, nil
	}
	v, err := cast.ToBoolE(raw)
	if err != nil {
		return false, fmt.Errorf("site: invalid %s %q", name, raw)
	}
	return v, nil
}

func parseDate(raw string) (host.DateGranularity, time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		// An archive with no dated content.
		return host.DateYear, time.Time{}, nil
	}
	layouts := []struct {
		layout string
		gran   host.DateGranularity
	}{
		{"2006-01-02", host.DateDay},
		{"2006-01", host.DateMonth},
		{"2006", host.DateYear},
	}
	for _, l := range layouts {
		if t, err := time.Parse(l.layout, raw); err == nil {
			return l.gran, t, nil
		}
	}
	return host.DateNone, time.Time{}, fmt.Errorf("site: invalid date %q", raw)
}

func (r *Request) staticFront() bool {
	return r.site.GetOption(host.OptionShowOnFront).String() == "page" && r.frontID() > 0
}

func (r *Request) frontID() int { return r.site.GetOption(host.OptionPageOnFront).Int() }
func (r *Request) postsID() int { return r.site.GetOption(host.OptionPageForPosts).Int() }

// GetRealID resolves the front and posts pages to their configured ids.
func (r *Request) GetRealID() int {
	switch r.kind {
	case KindFront:
		if r.staticFront() {
			return r.frontID()
		}
		return 0
	case KindPosts:
		return r.postsID()
	}
	return r.id
}

func (r *Request) IsFrontPage(id int) bool {
	if r.kind == KindFront {
		return true
	}
	return r.kind == KindSingular && r.staticFront() && id == r.frontID()
}

func (r *Request) IsPostsPage(id int) bool {
	if r.kind == KindPosts {
		return true
	}
	return r.kind == KindSingular && r.staticFront() && id > 0 && id == r.postsID()
}

func (r *Request) IsSingular(int) bool { return r.kind == KindSingular }

func (r *Request) IsArchive() bool {
	switch r.kind {
	case KindCategory, KindTag, KindTax, KindAuthor, KindDate:
		return true
	}
	return false
}

func (r *Request) IsCategory() bool { return r.kind == KindCategory }
func (r *Request) IsTag() bool      { return r.kind == KindTag }
func (r *Request) IsTax() bool      { return r.kind == KindTax }
func (r *Request) IsAuthor() bool   { return r.kind == KindAuthor }
func (r *Request) IsSearch() bool   { return r.kind == KindSearch }
func (r *Request) Is404() bool      { return r.kind == KindNotFound }
func (r *Request) IsFeed() bool     { return r.feed }
func (r *Request) IsPreview() bool  { return r.preview }

func (r *Request) SearchQuery() string { return r.query }
func (r *Request) Paged() int          { return r.paged }

func (r *Request) DateArchive() host.DateGranularity {
	if r.kind != KindDate {
		return host.DateNone
	}
	return r.date
}

func (r *Request) ArchivedDate() (time.Time, bool) {
	return r.archived, r.kind == KindDate && !r.archived.IsZero()
}

func (r *Request) SingularType(id int) host.SingularType {
	if id <= 0 {
		return host.SingularOther
	}
	if _, ok := r.site.Snapshot().Post(id); !ok {
		return host.SingularOther
	}
	return r.site.GetPostType(id)
}

func (r *Request) CurrentTerm() host.TermRef {
	if r.taxonomy == "" {
		return host.TermRef{}
	}
	if ref, ok := r.site.GetTerm(r.id, r.taxonomy); ok {
		return ref
	}
	return host.TermRef{ID: r.id, Taxonomy: r.taxonomy}
}

// Locale only honours locales the site lists, so clients cannot mint cache
// keys that invalidation never visits.
func (r *Request) Locale() string {
	fallback := r.site.GetOption(host.OptionLocale).String()
	if r.locale == "" || strings.EqualFold(r.locale, fallback) {
		return fallback
	}
	for _, l := range r.site.GetOption(host.OptionLocales).Strings() {
		if l = strings.TrimSpace(l); strings.EqualFold(l, r.locale) {
			return l
		}
	}
	return fallback
}

func (r *Request) BlogID() int { return r.site.GetOption(host.OptionBlogID).Int() }

var _ host.ContextResolver = (*Request)(nil)
