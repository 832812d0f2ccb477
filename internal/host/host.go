// Package host declares the collaborators the metadata pipeline consumes from the
// surrounding application: request predicates, stored content and user options.
package host

import "time"

// Visibility describes who may read a piece of content.
type Visibility int

const (
	VisibilityPublic Visibility = iota
	VisibilityProtected
	VisibilityPrivate
)

// SingularType sub-classifies singular content.
type SingularType string

const (
	SingularPage       SingularType = "page"
	SingularPost       SingularType = "post"
	SingularAttachment SingularType = "attachment"
	SingularOther      SingularType = ""
)

// DateGranularity identifies which date archive is being rendered.
type DateGranularity int

const (
	DateNone DateGranularity = iota
	DateYear
	DateMonth
	DateDay
)

// TermRef identifies a taxonomy term.
type TermRef struct {
	ID       int
	Taxonomy string
	Name     string
}

// IsZero reports whether the reference points at no term.
func (t TermRef) IsZero() bool { return t.ID == 0 && t.Taxonomy == "" }

// ContextResolver answers read-only questions about the request being rendered.
type ContextResolver interface {
	IsSingular(id int) bool
	IsArchive() bool
	IsFrontPage(id int) bool
	IsPostsPage(id int) bool
	IsCategory() bool
	IsTag() bool
	IsTax() bool
	IsAuthor() bool
	IsSearch() bool
	Is404() bool
	IsFeed() bool
	// IsPreview reports editor or admin preview rendering.
	IsPreview() bool
	DateArchive() DateGranularity
	// ArchivedDate is the date of the first content item in a date archive.
	ArchivedDate() (time.Time, bool)
	SingularType(id int) SingularType
	GetRealID() int
	CurrentTerm() TermRef
	SearchQuery() string
	Paged() int
	Locale() string
	BlogID() int
}

// ContentProvider exposes stored content and per-object overrides.
type ContentProvider interface {
	GetCustomField(name string, id int) string
	// GetExcerptSource returns the human-authored excerpt, if any.
	GetExcerptSource(id int) string
	GetPostContent(id int) string
	GetPostTitle(id int) string
	GetPostType(id int) SingularType
	GetPostVisibility(id int) Visibility
	GetTerm(id int, taxonomy string) (TermRef, bool)
	GetTermMeta(term TermRef) map[string]string
	GetTermDescription(term TermRef) string
	GetAuthorName(id int) string
	GetAuthorMeta(id int, key string) string
}

// OptionProvider supplies user-configurable toggles.
type OptionProvider interface {
	GetOption(name string) Value
}
