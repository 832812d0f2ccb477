// Package generation holds the argument, provenance and service types shared
// by the title and description builders.
package generation

import (
	"errors"
	"fmt"

	"github.com/l0p7/seometa/internal/host"
	"github.com/l0p7/seometa/internal/page"
)

// ErrInvalidArgs marks a structurally invalid Args value.
var ErrInvalidArgs = errors.New("generation: invalid arguments supplied")

// Args configures one Build call. The zero value is valid and means: the
// current page, custom fields honored, output escaped.
type Args struct {
	// ID and Taxonomy select the object to describe. Zero means the current
	// page. A taxonomy requires an id.
	ID       int    `json:"id,omitempty"`
	Taxonomy string `json:"taxonomy,omitempty"`

	// UseCustomField defaults to true when nil.
	UseCustomField *bool `json:"useCustomField,omitempty"`
	IsHome         bool  `json:"isHome,omitempty"`
	Social         bool  `json:"social,omitempty"`
	NoTagline      bool  `json:"notagline,omitempty"`
	// Meta marks calls made for metadata output rather than the document
	// title, which never take the legacy compatibility path.
	Meta bool `json:"meta,omitempty"`
	// Escape defaults to true when nil.
	Escape *bool `json:"escape,omitempty"`
	// Placeholder generates the text an editor shows before anything is
	// saved: custom fields and home overrides are ignored.
	Placeholder bool `json:"placeholder,omitempty"`
	// Description marks title text destined for a description, which never
	// carries visibility prefixes.
	Description bool `json:"description,omitempty"`
}

// Bool returns a pointer to v for the optional Args fields.
func Bool(v bool) *bool { return &v }

// CustomField reports whether custom fields are consulted.
func (a Args) CustomField() bool {
	return a.UseCustomField == nil || *a.UseCustomField
}

// Escaped reports whether output is normalized before returning.
func (a Args) Escaped() bool {
	return a.Escape == nil || *a.Escape
}

// Validate reports structural problems with a.
func (a Args) Validate() error {
	if a.ID < 0 {
		return fmt.Errorf("%w: negative id %d", ErrInvalidArgs, a.ID)
	}
	if a.Taxonomy != "" && a.ID == 0 {
		return fmt.Errorf("%w: taxonomy %q without term id", ErrInvalidArgs, a.Taxonomy)
	}
	return nil
}

// Normalize fills the object selection from ctx. Invalid arguments are
// replaced by the defaults; the returned error is for diagnostics only.
func (a Args) Normalize(ctx page.Context) (Args, error) {
	err := a.Validate()
	if err != nil {
		a = Args{}
	}
	if a.ID == 0 {
		a.ID = ctx.ID
		a.Taxonomy = ctx.Taxonomy
	}
	return a, err
}

// Current reports whether a addresses the page being rendered.
func (a Args) Current(ctx page.Context) bool {
	return a.ID == ctx.ID && a.Taxonomy == ctx.Taxonomy
}

// Target returns the context a describes. For the current page that is ctx
// itself; for another object a context is synthesized from stored content.
func (a Args) Target(ctx page.Context, content host.ContentProvider) page.Context {
	if a.Current(ctx) {
		return ctx
	}
	if a.Taxonomy != "" {
		target := page.Term(a.ID, a.Taxonomy, ctx.Locale, ctx.BlogID)
		if content != nil {
			if term, ok := content.GetTerm(a.ID, a.Taxonomy); ok {
				target.Term = term
			}
		}
		return target
	}
	typ := host.SingularOther
	if content != nil {
		typ = content.GetPostType(a.ID)
	}
	target := page.Singular(a.ID, typ, ctx.Locale, ctx.BlogID)
	target.Preview = ctx.Preview
	return target
}
