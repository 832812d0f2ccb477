// Package page describes the page being rendered as an immutable value.
package page

import (
	"strings"
	"time"

	"github.com/l0p7/seometa/internal/host"
)

// Kind classifies the rendered page.
type Kind int

const (
	KindOther Kind = iota
	KindSingular
	KindTermArchive
	KindDateArchive
	KindAuthorArchive
	KindSearch
	KindFrontPage
	KindPostsPage
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindSingular:
		return "singular"
	case KindTermArchive:
		return "term"
	case KindDateArchive:
		return "date"
	case KindAuthorArchive:
		return "author"
	case KindSearch:
		return "search"
	case KindFrontPage:
		return "front"
	case KindPostsPage:
		return "posts"
	case KindNotFound:
		return "404"
	default:
		return "other"
	}
}

// Context is built once per request and never mutated afterwards.
type Context struct {
	Kind       Kind
	ID         int
	Taxonomy   string
	Locale     string
	BlogID     int
	PageNumber int

	Singular host.SingularType
	Date     host.DateGranularity
	// ArchivedDate is zero when a date archive has no content to date from.
	ArchivedDate time.Time
	Query        string
	Term         host.TermRef
	// StaticFront is set when the site front page is a static page.
	StaticFront bool
	Feed        bool
	Preview     bool
}

// IsHome reports whether the context is the site front page.
func (c Context) IsHome() bool { return c.Kind == KindFrontPage }

// HasPost reports whether the context renders one stored content item: a
// singular view, the posts page, or a static front page.
func (c Context) HasPost() bool {
	switch c.Kind {
	case KindSingular, KindPostsPage:
		return true
	case KindFrontPage:
		return c.StaticFront
	}
	return false
}

// Paginated reports pagination beyond the first page.
func (c Context) Paginated() bool { return c.PageNumber > 1 }

// Resolve snapshots the resolver's predicates into a Context. The first
// matching predicate wins, so a 404 is never also reported as an archive.
func Resolve(r host.ContextResolver) Context {
	id := r.GetRealID()
	ctx := Context{
		ID:         id,
		Locale:     strings.TrimSpace(r.Locale()),
		BlogID:     r.BlogID(),
		PageNumber: r.Paged(),
		Feed:       r.IsFeed(),
		Preview:    r.IsPreview(),
	}

	switch {
	case r.Is404():
		ctx.Kind = KindNotFound
	case r.IsFrontPage(id):
		ctx.Kind = KindFrontPage
		ctx.StaticFront = r.SingularType(id) == host.SingularPage && id > 0
	case r.IsPostsPage(id):
		ctx.Kind = KindPostsPage
		ctx.StaticFront = true
	case r.IsSingular(id):
		ctx.Kind = KindSingular
		ctx.Singular = r.SingularType(id)
	case r.IsSearch():
		ctx.Kind = KindSearch
		ctx.Query = r.SearchQuery()
	case r.IsCategory() || r.IsTag() || r.IsTax():
		term := r.CurrentTerm()
		ctx.Kind = KindTermArchive
		ctx.Term = term
		ctx.Taxonomy = term.Taxonomy
		if term.ID != 0 {
			ctx.ID = term.ID
		}
	case r.IsAuthor():
		ctx.Kind = KindAuthorArchive
	case r.DateArchive() != host.DateNone:
		ctx.Kind = KindDateArchive
		ctx.Date = r.DateArchive()
		if date, ok := r.ArchivedDate(); ok {
			ctx.ArchivedDate = date
		}
	default:
		ctx.Kind = KindOther
		if r.IsArchive() {
			ctx.Taxonomy = r.CurrentTerm().Taxonomy
		}
	}
	return ctx
}

// Singular returns the context for a single content item, used when deriving
// keys outside of a request.
func Singular(id int, typ host.SingularType, locale string, blogID int) Context {
	return Context{Kind: KindSingular, ID: id, Singular: typ, Locale: locale, BlogID: blogID}
}

// Term returns the context for a taxonomy term archive.
func Term(id int, taxonomy, locale string, blogID int) Context {
	return Context{
		Kind:     KindTermArchive,
		ID:       id,
		Taxonomy: taxonomy,
		Term:     host.TermRef{ID: id, Taxonomy: taxonomy},
		Locale:   locale,
		BlogID:   blogID,
	}
}
