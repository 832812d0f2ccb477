// Package hosttest provides in-memory host collaborators for tests.
package hosttest

import (
	"sync"
	"time"

	"github.com/l0p7/seometa/internal/host"
)

// Options is a mutable OptionProvider layered over host.DefaultOptions.
type Options struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewOptions returns defaults overlaid with overrides.
func NewOptions(overrides map[string]any) *Options {
	values := host.DefaultOptions()
	for k, v := range overrides {
		values[k] = v
	}
	return &Options{values: values}
}

func (o *Options) GetOption(name string) host.Value {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return host.NewValue(o.values[name])
}

// Set replaces one option.
func (o *Options) Set(name string, value any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.values[name] = value
}

// Post is stored singular content.
type Post struct {
	Title      string
	Type       host.SingularType
	Visibility host.Visibility
	Excerpt    string
	Content    string
	Fields     map[string]string
}

// Author is a stored author profile.
type Author struct {
	Name string
	Meta map[string]string
}

// Term is a stored taxonomy term.
type Term struct {
	Name        string
	Description string
	Meta        map[string]string
}

// Content is a mutable ContentProvider.
type Content struct {
	mu      sync.RWMutex
	Posts   map[int]Post
	Terms   map[host.TermRef]Term
	Authors map[int]Author
	reads   map[int]int
}

// NewContent returns empty content.
func NewContent() *Content {
	return &Content{
		Posts:   make(map[int]Post),
		Terms:   make(map[host.TermRef]Term),
		Authors: make(map[int]Author),
		reads:   make(map[int]int),
	}
}

// PutPost stores p under id.
func (c *Content) PutPost(id int, p Post) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Posts[id] = p
}

// PutTerm stores t under (id, taxonomy).
func (c *Content) PutTerm(id int, taxonomy string, t Term) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Terms[host.TermRef{ID: id, Taxonomy: taxonomy}] = t
}

// PutAuthor stores a under id.
func (c *Content) PutAuthor(id int, a Author) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Authors[id] = a
}

// ContentReads reports how often the content of post id was read.
func (c *Content) ContentReads(id int) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.reads[id]
}

func (c *Content) post(id int) Post {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Posts[id]
}

func (c *Content) GetCustomField(name string, id int) string { return c.post(id).Fields[name] }
func (c *Content) GetExcerptSource(id int) string            { return c.post(id).Excerpt }
func (c *Content) GetPostTitle(id int) string                { return c.post(id).Title }
func (c *Content) GetPostType(id int) host.SingularType      { return c.post(id).Type }
func (c *Content) GetPostVisibility(id int) host.Visibility  { return c.post(id).Visibility }

func (c *Content) GetPostContent(id int) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reads[id]++
	return c.Posts[id].Content
}

func (c *Content) GetTerm(id int, taxonomy string) (host.TermRef, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ref := host.TermRef{ID: id, Taxonomy: taxonomy}
	t, ok := c.Terms[ref]
	if !ok {
		return host.TermRef{}, false
	}
	ref.Name = t.Name
	return ref, true
}

func (c *Content) term(ref host.TermRef) Term {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Terms[host.TermRef{ID: ref.ID, Taxonomy: ref.Taxonomy}]
}

func (c *Content) GetTermMeta(ref host.TermRef) map[string]string { return c.term(ref).Meta }
func (c *Content) GetTermDescription(ref host.TermRef) string     { return c.term(ref).Description }

func (c *Content) GetAuthorName(id int) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Authors[id].Name
}

func (c *Content) GetAuthorMeta(id int, key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Authors[id].Meta[key]
}

// Resolver is a ContextResolver with every predicate as a field.
type Resolver struct {
	ID         int
	Singular   bool
	Type       host.SingularType
	Front      bool
	PostsPage  bool
	Category   bool
	Tag        bool
	Tax        bool
	Author     bool
	Search     bool
	NotFound   bool
	Feed       bool
	Preview    bool
	Date       host.DateGranularity
	Archived   time.Time
	Term       host.TermRef
	Query      string
	Page       int
	LocaleName string
	Blog       int
}

func (r Resolver) IsSingular(int) bool { return r.Singular }
func (r Resolver) IsArchive() bool {
	return r.Category || r.Tag || r.Tax || r.Author || r.Date != host.DateNone
}
func (r Resolver) IsFrontPage(int) bool                   { return r.Front }
func (r Resolver) IsPostsPage(int) bool                   { return r.PostsPage }
func (r Resolver) IsCategory() bool                       { return r.Category }
func (r Resolver) IsTag() bool                            { return r.Tag }
func (r Resolver) IsTax() bool                            { return r.Tax }
func (r Resolver) IsAuthor() bool                         { return r.Author }
func (r Resolver) IsSearch() bool                         { return r.Search }
func (r Resolver) Is404() bool                            { return r.NotFound }
func (r Resolver) IsFeed() bool                           { return r.Feed }
func (r Resolver) IsPreview() bool                        { return r.Preview }
func (r Resolver) DateArchive() host.DateGranularity      { return r.Date }
func (r Resolver) ArchivedDate() (time.Time, bool)        { return r.Archived, !r.Archived.IsZero() }
func (r Resolver) SingularType(int) host.SingularType     { return r.Type }
func (r Resolver) GetRealID() int                         { return r.ID }
func (r Resolver) CurrentTerm() host.TermRef              { return r.Term }
func (r Resolver) SearchQuery() string                    { return r.Query }
func (r Resolver) Paged() int                             { return r.Page }
func (r Resolver) Locale() string                         { return r.LocaleName }
func (r Resolver) BlogID() int                            { return r.Blog }

var (
	_ host.OptionProvider  = (*Options)(nil)
	_ host.ContentProvider = (*Content)(nil)
	_ host.ContextResolver = Resolver{}
)
