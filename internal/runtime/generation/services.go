package generation

import (
	"log/slog"

	"github.com/l0p7/seometa/internal/host"
	"github.com/l0p7/seometa/internal/metrics"
	"github.com/l0p7/seometa/internal/page"
	"github.com/l0p7/seometa/internal/runtime/compat"
	"github.com/l0p7/seometa/internal/runtime/extension"
	"github.com/l0p7/seometa/internal/runtime/pipeline"
	"github.com/l0p7/seometa/internal/templates"
)

// Services bundles the collaborators every builder needs. Builders share one
// Services value; nothing in it is request scoped.
type Services struct {
	Content     host.ContentProvider
	Options     host.OptionProvider
	Catalog     *templates.Catalog
	Extensions  *extension.Registry
	Compat      *compat.Detector
	Diagnostics *Diagnostics
	Metrics     *metrics.Recorder
	Logger      *slog.Logger
}

// Option reads name from the option provider.
func (s *Services) Option(name string) host.Value {
	if s == nil || s.Options == nil {
		return host.Value{}
	}
	return s.Options.GetOption(name)
}

// BoolOption reads a toggle, falling back to its documented default.
func (s *Services) BoolOption(name string) bool {
	def, _ := host.DefaultOptions()[name].(bool)
	return s.Option(name).BoolOr(def)
}

// SiteName is the escaped site name, memoized for the request.
func (s *Services) SiteName(st *pipeline.State) string {
	return st.Remember("site.name", func() string {
		return Escape(s.Option(host.OptionBlogName).String())
	})
}

// SiteDescription is the escaped site tagline, memoized for the request.
func (s *Services) SiteDescription(st *pipeline.State) string {
	return st.Remember("site.description", func() string {
		return Escape(s.Option(host.OptionBlogDescription).String())
	})
}

// Text renders a catalog message.
func (s *Services) Text(name string, data map[string]any) string {
	if s == nil {
		return ""
	}
	return s.Catalog.Text(name, data)
}

// ExtensionInput assembles what an override sees for ctx.
func (s *Services) ExtensionInput(st *pipeline.State, ctx page.Context, title, excerpt string) extension.Input {
	return extension.Input{
		Context:         ctx,
		SiteName:        s.SiteName(st),
		SiteDescription: s.SiteDescription(st),
		Title:           title,
		Excerpt:         excerpt,
	}
}

// StaticFrontID returns the static front page id, or 0 when the front page
// lists posts.
func (s *Services) StaticFrontID() int {
	if s.Option(host.OptionShowOnFront).String() != "page" {
		return 0
	}
	return s.Option(host.OptionPageOnFront).Int()
}

// PostsPageID returns the page configured to list posts, or 0.
func (s *Services) PostsPageID() int {
	if s.StaticFrontID() == 0 {
		return 0
	}
	return s.Option(host.OptionPageForPosts).Int()
}

// Observe counts a produced text by output and source.
func (s *Services) Observe(output string, text GeneratedText) {
	if s == nil {
		return
	}
	s.Metrics.ObserveGeneration(output, text.Source.String())
}

// Log returns the services logger.
func (s *Services) Log() *slog.Logger {
	if s == nil || s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
