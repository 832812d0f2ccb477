// Package invalidation turns content mutations into cache deletions.
package invalidation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/l0p7/seometa/internal/host"
	"github.com/l0p7/seometa/internal/metrics"
	"github.com/l0p7/seometa/internal/page"
	"github.com/l0p7/seometa/internal/runtime/cache"
	"github.com/l0p7/seometa/internal/runtime/cachekey"
	"github.com/l0p7/seometa/internal/runtime/compat"
)

// EventType names a content mutation.
type EventType string

const (
	PostPublished            EventType = "post_published"
	PostUpdated              EventType = "post_updated"
	PostDeleted              EventType = "post_deleted"
	TermEdited               EventType = "term_edited"
	TermDeleted              EventType = "term_deleted"
	PermalinkSettingsChanged EventType = "permalink_settings_changed"
	BlogDescriptionChanged   EventType = "blog_description_changed"
	ThemeSwitched            EventType = "theme_switched"
)

// ErrInvalidEvent marks an event that names no valid subject.
var ErrInvalidEvent = errors.New("invalidation: invalid event")

// MutationEvent is consumed once by Handle.
type MutationEvent struct {
	Type      EventType `json:"type"`
	SubjectID int       `json:"subjectId,omitempty"`
	Taxonomy  string    `json:"taxonomy,omitempty"`
	// Revision marks autosaves and revision snapshots, which never change
	// published text.
	Revision bool `json:"revision,omitempty"`
}

// Validate checks that the event carries the subject its type needs.
func (e MutationEvent) Validate() error {
	switch e.Type {
	case PostPublished, PostUpdated, PostDeleted:
		if e.SubjectID <= 0 {
			return fmt.Errorf("%w: %s requires a post id", ErrInvalidEvent, e.Type)
		}
	case TermEdited, TermDeleted:
		if e.SubjectID <= 0 || strings.TrimSpace(e.Taxonomy) == "" {
			return fmt.Errorf("%w: %s requires a term id and taxonomy", ErrInvalidEvent, e.Type)
		}
	case PermalinkSettingsChanged, BlogDescriptionChanged, ThemeSwitched:
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, e.Type)
	}
	return nil
}

// Options configures Hooks.
type Options struct {
	Store   *cache.Store
	Keys    *cachekey.Deriver
	Options host.OptionProvider
	Compat  *compat.Detector
	Logger  *slog.Logger
	Metrics *metrics.Recorder
}

// Hooks binds mutation events to cache deletions. Deletions run whether or
// not caching is enabled and succeed when nothing is stored.
type Hooks struct {
	store   *cache.Store
	keys    *cachekey.Deriver
	options host.OptionProvider
	compat  *compat.Detector
	logger  *slog.Logger
	metrics *metrics.Recorder
}

// New returns Hooks over opts.
func New(opts Options) *Hooks {
	keys := opts.Keys
	if keys == nil {
		keys = cachekey.New()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Hooks{
		store:   opts.Store,
		keys:    keys,
		options: opts.Options,
		compat:  opts.Compat,
		logger:  logger.With(slog.String("agent", "invalidation")),
		metrics: opts.Metrics,
	}
}

// Handle applies ev. It reports invalid events and backend delete failures.
func (h *Hooks) Handle(ctx context.Context, ev MutationEvent) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	log := h.logger.With(slog.String("event", string(ev.Type)), slog.Int("subject_id", ev.SubjectID))
	if ev.Revision {
		log.Debug("revision save ignored")
		return nil
	}
	h.metrics.ObserveInvalidation(string(ev.Type))

	var errs []error
	switch ev.Type {
	case PermalinkSettingsChanged:
		h.compat.Reset()
		if err := h.store.Flush(ctx); err != nil {
			errs = append(errs, err)
		}
	case ThemeSwitched:
		h.compat.Reset()
	}
	prefixes := h.Prefixes(ev)
	for _, prefix := range prefixes {
		if err := h.store.DeletePrefix(ctx, prefix); err != nil {
			errs = append(errs, fmt.Errorf("invalidation: delete %q: %w", prefix, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		log.Warn("invalidation incomplete", slog.Any("error", err))
		return err
	}
	log.Info("invalidation applied", slog.Int("prefixes", len(prefixes)))
	return nil
}

// Prefixes lists the key prefixes ev deletes. Keys end in the request
// locale, so deleting by prefix reaches every locale an entry was cached
// under. A prefix for blog 1 also covers blogs 10-19; those entries are
// simply recomputed.
func (h *Hooks) Prefixes(ev MutationEvent) []string {
	var contexts []page.Context
	switch ev.Type {
	case PostPublished, PostUpdated, PostDeleted:
		contexts = h.postContexts(ev.SubjectID)
	case TermEdited, TermDeleted:
		contexts = []page.Context{page.Term(ev.SubjectID, strings.TrimSpace(ev.Taxonomy), "", 0)}
	case BlogDescriptionChanged:
		contexts = []page.Context{h.postsPageContext()}
	default:
		return nil
	}

	blogID := h.option(host.OptionBlogID).Int()
	prefixes := make([]string, 0, len(contexts))
	seen := make(map[string]struct{}, len(contexts))
	for _, c := range contexts {
		c.BlogID = blogID
		prefix := h.keys.Prefix(c)
		if _, dup := seen[prefix]; dup {
			continue
		}
		seen[prefix] = struct{}{}
		prefixes = append(prefixes, prefix)
	}
	return prefixes
}

// postContexts covers every singular subtype, since a deleted post's type
// may no longer be known, plus the front and posts page when id is either.
func (h *Hooks) postContexts(id int) []page.Context {
	contexts := []page.Context{
		page.Singular(id, host.SingularPost, "", 0),
		page.Singular(id, host.SingularPage, "", 0),
		page.Singular(id, host.SingularAttachment, "", 0),
		page.Singular(id, host.SingularOther, "", 0),
	}
	if front := h.staticFrontID(); front > 0 && front == id {
		contexts = append(contexts, page.Context{Kind: page.KindFrontPage, ID: id, StaticFront: true})
	}
	if posts := h.postsPageID(); posts > 0 && posts == id {
		contexts = append(contexts, page.Context{Kind: page.KindPostsPage, ID: id, StaticFront: true})
	}
	return contexts
}

// postsPageContext is the context listing the latest posts: the configured
// posts page under a static front page, otherwise the front page itself.
func (h *Hooks) postsPageContext() page.Context {
	if posts := h.postsPageID(); posts > 0 {
		return page.Context{Kind: page.KindPostsPage, ID: posts, StaticFront: true}
	}
	return page.Context{Kind: page.KindFrontPage}
}

func (h *Hooks) staticFrontID() int {
	if h.option(host.OptionShowOnFront).String() != "page" {
		return 0
	}
	return h.option(host.OptionPageOnFront).Int()
}

func (h *Hooks) postsPageID() int {
	if h.staticFrontID() == 0 {
		return 0
	}
	return h.option(host.OptionPageForPosts).Int()
}

func (h *Hooks) option(name string) host.Value {
	if h.options == nil {
		return host.NewValue(host.DefaultOptions()[name])
	}
	return h.options.GetOption(name)
}
