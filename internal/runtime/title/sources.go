package title

import (
	"strings"

	"github.com/l0p7/seometa/internal/host"
	"github.com/l0p7/seometa/internal/page"
	"github.com/l0p7/seometa/internal/runtime/extension"
	"github.com/l0p7/seometa/internal/runtime/pipeline"
	"github.com/l0p7/seometa/internal/templates"
)

func (b *Builder) customField(target page.Context) string {
	content := b.svc.Content
	switch {
	case target.HasPost():
		return content.GetCustomField(host.FieldTitle, target.ID)
	case target.Kind == page.KindTermArchive:
		return content.GetTermMeta(b.term(target))[host.TermMetaTitle]
	case target.Kind == page.KindAuthorArchive:
		return content.GetAuthorMeta(target.ID, host.AuthorMetaTitle)
	}
	return ""
}

// special consults the special-title extension point. Without an override
// the posts page keeps its stored page title.
func (b *Builder) special(st *pipeline.State, target page.Context) string {
	def := ""
	if target.Kind == page.KindPostsPage {
		def = b.svc.Content.GetPostTitle(target.ID)
	}
	return b.svc.Extensions.String(extension.PointSpecialTitle, b.svc.ExtensionInput(st, target, "", ""), def)
}

// generated derives a title from the content itself.
func (b *Builder) generated(st *pipeline.State, target page.Context) string {
	bare := b.svc.BoolOption(host.OptionTitleRemovePrefixes)
	switch target.Kind {
	case page.KindSingular, page.KindPostsPage:
		return b.svc.Content.GetPostTitle(target.ID)
	case page.KindFrontPage:
		if target.StaticFront {
			if t := b.svc.Content.GetPostTitle(target.ID); t != "" {
				return t
			}
		}
		return b.svc.SiteName(st)
	case page.KindTermArchive:
		term := b.term(target)
		if term.Name == "" {
			return ""
		}
		if bare {
			return term.Name
		}
		msg := templates.MsgTaxonomy
		switch term.Taxonomy {
		case "category":
			msg = templates.MsgCategory
		case "post_tag":
			msg = templates.MsgTag
		}
		return b.svc.Text(msg, map[string]any{"Name": term.Name, "Taxonomy": term.Taxonomy})
	case page.KindAuthorArchive:
		name := b.svc.Content.GetAuthorName(target.ID)
		if name == "" || bare {
			return name
		}
		return b.svc.Text(templates.MsgAuthor, map[string]any{"Name": name})
	case page.KindDateArchive:
		return b.dateTitle(target, bare)
	case page.KindSearch:
		return b.svc.Text(templates.MsgSearch, map[string]any{"Query": strings.TrimSpace(target.Query)})
	case page.KindNotFound:
		return b.svc.Text(templates.MsgNotFound, nil)
	}
	return ""
}

func (b *Builder) dateTitle(target page.Context, bare bool) string {
	date := target.ArchivedDate
	if date.IsZero() {
		return ""
	}
	var msg, layout string
	switch target.Date {
	case host.DateYear:
		msg, layout = templates.MsgYear, "2006"
	case host.DateMonth:
		msg, layout = templates.MsgMonth, "January 2006"
	case host.DateDay:
		msg, layout = templates.MsgDay, "January 2, 2006"
	default:
		return ""
	}
	if bare {
		return date.Format(layout)
	}
	return b.svc.Text(msg, map[string]any{"Date": date})
}

// term fills in the term name when the context only carries its id.
func (b *Builder) term(target page.Context) host.TermRef {
	term := target.Term
	if term.IsZero() {
		term = host.TermRef{ID: target.ID, Taxonomy: target.Taxonomy}
	}
	if term.Name == "" {
		if stored, ok := b.svc.Content.GetTerm(term.ID, term.Taxonomy); ok {
			term.Name = stored.Name
		}
	}
	return term
}
