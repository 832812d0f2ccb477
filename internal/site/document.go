// Package site serves the host collaborators from a YAML, JSON or TOML
// document so the generator can run outside of a content management system.
package site

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cast"

	"github.com/l0p7/seometa/internal/host"
)

type postDoc struct {
	Title      string            `koanf:"title"`
	Type       string            `koanf:"type"`
	Visibility string            `koanf:"visibility"`
	Excerpt    string            `koanf:"excerpt"`
	Content    string            `koanf:"content"`
	Fields     map[string]string `koanf:"fields"`
}

type termDoc struct {
	Name        string            `koanf:"name"`
	Description string            `koanf:"description"`
	Meta        map[string]string `koanf:"meta"`
	// LegacyMeta holds values imported from the previous SEO plugin.
	LegacyMeta map[string]string `koanf:"legacyMeta"`
}

type authorDoc struct {
	Name string            `koanf:"name"`
	Meta map[string]string `koanf:"meta"`
}

// Post is one stored content item.
type Post struct {
	Title      string
	Type       host.SingularType
	Visibility host.Visibility
	Excerpt    string
	Content    string
	Fields     map[string]string
}

// Term is one taxonomy term with its merged meta.
type Term struct {
	Name        string
	Description string
	Meta        map[string]string
}

// Author is one author profile.
type Author struct {
	Name string
	Meta map[string]string
}

// Snapshot is an immutable view of a parsed site document.
type Snapshot struct {
	options map[string]any
	posts   map[int]Post
	terms   map[host.TermRef]Term
	authors map[int]Author
}

// Empty returns a snapshot carrying only the default options.
func Empty() *Snapshot {
	return &Snapshot{
		options: host.DefaultOptions(),
		posts:   map[int]Post{},
		terms:   map[host.TermRef]Term{},
		authors: map[int]Author{},
	}
}

// Parse converts a koanf tree with options, posts, terms and authors sections
// into a Snapshot. Options are layered over host.DefaultOptions.
func Parse(k *koanf.Koanf) (*Snapshot, error) {
	if k == nil {
		return Empty(), nil
	}

	opts := koanf.New(".")
	if err := opts.Load(confmap.Provider(host.DefaultOptions(), "."), nil); err != nil {
		return nil, fmt.Errorf("site: load default options: %w", err)
	}
	if err := opts.Merge(k.Cut("options")); err != nil {
		return nil, fmt.Errorf("site: merge options: %w", err)
	}

	snap := &Snapshot{
		options: opts.Raw(),
		posts:   map[int]Post{},
		terms:   map[host.TermRef]Term{},
		authors: map[int]Author{},
	}

	var posts map[string]postDoc
	if err := k.Unmarshal("posts", &posts); err != nil {
		return nil, fmt.Errorf("site: unmarshal posts: %w", err)
	}
	for rawID, doc := range posts {
		id, err := parseID("posts", rawID)
		if err != nil {
			return nil, err
		}
		visibility, err := parseVisibility(doc.Visibility)
		if err != nil {
			return nil, fmt.Errorf("site: posts.%s: %w", rawID, err)
		}
		snap.posts[id] = Post{
			Title:      doc.Title,
			Type:       parseSingularType(doc.Type),
			Visibility: visibility,
			Excerpt:    doc.Excerpt,
			Content:    doc.Content,
			Fields:     doc.Fields,
		}
	}

	var terms map[string]map[string]termDoc
	if err := k.Unmarshal("terms", &terms); err != nil {
		return nil, fmt.Errorf("site: unmarshal terms: %w", err)
	}
	for taxonomy, byID := range terms {
		for rawID, doc := range byID {
			id, err := parseID("terms."+taxonomy, rawID)
			if err != nil {
				return nil, err
			}
			snap.terms[host.TermRef{ID: id, Taxonomy: taxonomy}] = Term{
				Name:        doc.Name,
				Description: doc.Description,
				Meta:        host.MergeTermMeta(doc.Meta, doc.LegacyMeta),
			}
		}
	}

	var authors map[string]authorDoc
	if err := k.Unmarshal("authors", &authors); err != nil {
		return nil, fmt.Errorf("site: unmarshal authors: %w", err)
	}
	for rawID, doc := range authors {
		id, err := parseID("authors", rawID)
		if err != nil {
			return nil, err
		}
		snap.authors[id] = Author{Name: doc.Name, Meta: doc.Meta}
	}
	return snap, nil
}

// Option returns the raw option value.
func (s *Snapshot) Option(name string) any { return s.options[name] }

// Post returns the stored post under id.
func (s *Snapshot) Post(id int) (Post, bool) {
	p, ok := s.posts[id]
	return p, ok
}

func parseID(section, raw string) (int, error) {
	id, err := cast.ToIntE(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("site: %s: invalid id %q", section, raw)
	}
	return id, nil
}

func parseVisibility(raw string) (host.Visibility, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "public", "publish":
		return host.VisibilityPublic, nil
	case "protected", "password":
		return host.VisibilityProtected, nil
	case "private":
		return host.VisibilityPrivate, nil
	default:
		return host.VisibilityPublic, fmt.Errorf("unknown visibility %q", raw)
	}
}

func parseSingularType(raw string) host.SingularType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "post":
		return host.SingularPost
	case "page":
		return host.SingularPage
	case "attachment":
		return host.SingularAttachment
	default:
		return host.SingularOther
	}
}
