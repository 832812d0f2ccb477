package site

import (
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/l0p7/seometa/internal/config"
	"github.com/l0p7/seometa/internal/host"
	"github.com/l0p7/seometa/internal/page"
	"github.com/l0p7/seometa/internal/runtime/invalidation"
)

const siteYAML = `
options:
  blogname: Site Name
  blogdescription: Just another site
  title_separator: dash
  show_on_front: page
  page_on_front: 2
  page_for_posts: 3
  locales: [en_US, de_DE]
posts:
  "42":
    title: My Post
    excerpt: Hand written
    content: "<p>Body &amp; soul</p>"
    fields:
      _seo_title: Custom
  "2":
    title: Welcome
    type: page
  "3":
    title: Blog
    type: page
  "7":
    title: Secret
    visibility: private
terms:
  category:
    "9":
      name: News
      description: All the news
      meta:
        description: native
      legacyMeta:
        description: legacy
        doctitle: Legacy Title
  genre:
    "4":
      name: Jazz
      meta:
        saved_flag: "1"
        description: native only
      legacyMeta:
        description: ignored
authors:
  "5":
    name: Ada
    meta:
      seo_description: Writes things
`

func parseYAML(t *testing.T, doc string) *Snapshot {
	t.Helper()
	snap, err := parseYAMLErr(t, doc)
	require.NoError(t, err)
	return snap
}

func parseYAMLErr(t *testing.T, doc string) (*Snapshot, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "site.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	k, err := config.LoadDocument(path)
	require.NoError(t, err)
	return Parse(k)
}

func TestParseDocument(t *testing.T) {
	live := NewLive(parseYAML(t, siteYAML))

	require.Equal(t, "Site Name", live.GetOption(host.OptionBlogName).String())
	require.Equal(t, "-", host.Separator(live.GetOption(host.OptionTitleSeparator).String()))
	require.Equal(t, []string{"en_US", "de_DE"}, live.GetOption(host.OptionLocales).Strings())
	require.True(t, live.GetOption(host.OptionAutoDescription).Bool(), "defaults fill unset options")
	require.Equal(t, 1, live.GetOption(host.OptionBlogID).Int())

	require.Equal(t, "My Post", live.GetPostTitle(42))
	require.Equal(t, host.SingularPost, live.GetPostType(42))
	require.Equal(t, host.SingularPage, live.GetPostType(2))
	require.Equal(t, host.VisibilityPrivate, live.GetPostVisibility(7))
	require.Equal(t, "Custom", live.GetCustomField(host.FieldTitle, 42))
	require.Equal(t, "Hand written", live.GetExcerptSource(42))
	require.Equal(t, "<p>Body &amp; soul</p>", live.GetPostContent(42))
	require.Empty(t, live.GetPostTitle(1000))

	ref, ok := live.GetTerm(9, "category")
	require.True(t, ok)
	require.Equal(t, "News", ref.Name)
	require.Equal(t, "All the news", live.GetTermDescription(ref))
	_, ok = live.GetTerm(9, "post_tag")
	require.False(t, ok)

	require.Equal(t, "Ada", live.GetAuthorName(5))
	require.Equal(t, "Writes things", live.GetAuthorMeta(5, host.AuthorMetaDescription))
}

func TestParseMergesLegacyTermMeta(t *testing.T) {
	live := NewLive(parseYAML(t, siteYAML))

	news := live.GetTermMeta(host.TermRef{ID: 9, Taxonomy: "category"})
	require.Equal(t, "legacy", news["description"], "legacy wins until the native store is saved")
	require.Equal(t, "Legacy Title", news["doctitle"])

	jazz := live.GetTermMeta(host.TermRef{ID: 4, Taxonomy: "genre"})
	require.Equal(t, "native only", jazz["description"])
}

func TestParseRejectsBadDocuments(t *testing.T) {
	bad := []string{
		"posts:\n  abc:\n    title: x\n",
		"posts:\n  \"-1\":\n    title: x\n",
		"posts:\n  \"1\":\n    visibility: hidden\n",
		"terms:\n  category:\n    zero:\n      name: x\n",
	}
	for _, doc := range bad {
		_, err := parseYAMLErr(t, doc)
		require.Error(t, err, doc)
	}
}

func TestParseNilYieldsDefaults(t *testing.T) {
	snap, err := Parse(nil)
	require.NoError(t, err)
	require.Equal(t, "en_US", NewLive(snap).GetOption(host.OptionLocale).String())
}

func TestParseFromDocumentFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"options":{"blogname":"Json Site"},"posts":{"1":{"title":"Hello"}}}`), 0o600))
	k, err := config.LoadDocument(path)
	require.NoError(t, err)
	snap, err := Parse(k)
	require.NoError(t, err)

	live := NewLive(snap)
	require.Equal(t, "Json Site", live.GetOption(host.OptionBlogName).String())
	require.Equal(t, "Hello", live.GetPostTitle(1))
}

func TestReplaceReportsEvents(t *testing.T) {
	live := NewLive(parseYAML(t, siteYAML))

	next := parseYAML(t, `
options:
  blogname: Site Name
  blogdescription: A brand new tagline
  title_separator: dash
  show_on_front: page
  page_on_front: 2
  page_for_posts: 3
  locales: [en_US, de_DE]
  permalink_structure: /%postname%/
posts:
  "42":
    title: My Post (edited)
    excerpt: Hand written
    content: "<p>Body &amp; soul</p>"
    fields:
      _seo_title: Custom
  "2":
    title: Welcome
    type: page
  "3":
    title: Blog
    type: page
  "8":
    title: Fresh
terms:
  category:
    "9":
      name: News
      description: All the news
      meta:
        description: native
      legacyMeta:
        description: legacy
        doctitle: Legacy Title
  genre:
    "4":
      name: Jazz
      description: now described
      meta:
        saved_flag: "1"
        description: native only
authors:
  "5":
    name: Ada
`)

	events := live.Replace(next)
	require.Equal(t, []invalidation.MutationEvent{
		{Type: invalidation.BlogDescriptionChanged},
		{Type: invalidation.PermalinkSettingsChanged},
		{Type: invalidation.PostDeleted, SubjectID: 7},
		{Type: invalidation.PostPublished, SubjectID: 8},
		{Type: invalidation.PostUpdated, SubjectID: 42},
		{Type: invalidation.TermEdited, SubjectID: 4, Taxonomy: "genre"},
	}, events)
	require.Equal(t, "My Post (edited)", live.GetPostTitle(42))
	require.Same(t, next, live.Snapshot())

	require.Empty(t, live.Replace(next))
}

func TestReplaceReportsThemeAndTermDeletion(t *testing.T) {
	live := NewLive(parseYAML(t, "options:\n  theme: classic\nterms:\n  post_tag:\n    \"3\":\n      name: go\n"))
	events := live.Replace(parseYAML(t, "options:\n  theme: modern\n"))
	require.Equal(t, []invalidation.MutationEvent{
		{Type: invalidation.ThemeSwitched},
		{Type: invalidation.TermDeleted, SubjectID: 3, Taxonomy: "post_tag"},
	}, events)
	for _, ev := range events {
		require.NoError(t, ev.Validate())
	}
}

func TestParseRequestResolvesContexts(t *testing.T) {
	live := NewLive(parseYAML(t, siteYAML))

	resolve := func(query string) page.Context {
		t.Helper()
		values, err := url.ParseQuery(query)
		require.NoError(t, err)
		req, err := ParseRequest(live, values)
		require.NoError(t, err)
		return page.Resolve(req)
	}

	singular := resolve("kind=singular&id=42")
	require.Equal(t, page.KindSingular, singular.Kind)
	require.Equal(t, host.SingularPost, singular.Singular)
	require.Equal(t, "en_US", singular.Locale)
	require.Equal(t, 1, singular.BlogID)

	front := resolve("")
	require.Equal(t, page.KindFrontPage, front.Kind)
	require.Equal(t, 2, front.ID)
	require.True(t, front.StaticFront)

	frontBySingular := resolve("kind=singular&id=2")
	require.Equal(t, page.KindFrontPage, frontBySingular.Kind)

	posts := resolve("kind=posts&paged=2")
	require.Equal(t, page.KindPostsPage, posts.Kind)
	require.Equal(t, 3, posts.ID)
	require.Equal(t, 2, posts.PageNumber)

	category := resolve("kind=category&id=9")
	require.Equal(t, page.KindTermArchive, category.Kind)
	require.Equal(t, "category", category.Taxonomy)
	require.Equal(t, "News", category.Term.Name)

	tax := resolve("kind=tax&taxonomy=genre&id=4&locale=de_DE")
	require.Equal(t, "genre", tax.Taxonomy)
	require.Equal(t, "de_DE", tax.Locale)
	require.Equal(t, "de_DE", resolve("kind=singular&id=42&locale=de_de").Locale)
	require.Equal(t, "en_US", resolve("kind=singular&id=42&locale=fr_FR").Locale, "unlisted locales fall back")

	search := resolve("kind=search&q=Hello+World")
	require.Equal(t, page.KindSearch, search.Kind)
	require.Equal(t, "Hello World", search.Query)

	month := resolve("kind=date&date=2024-03")
	require.Equal(t, page.KindDateArchive, month.Kind)
	require.Equal(t, host.DateMonth, month.Date)
	require.Equal(t, 2024, month.ArchivedDate.Year())

	undated := resolve("kind=date")
	require.True(t, undated.ArchivedDate.IsZero())

	notFound := resolve("kind=404")
	require.Equal(t, page.KindNotFound, notFound.Kind)

	feed := resolve("kind=singular&id=42&feed=1&preview=true")
	require.True(t, feed.Feed)
	require.True(t, feed.Preview)
}

func TestParseRequestRejectsInvalidInput(t *testing.T) {
	live := NewLive(nil)
	bad := []string{
		"kind=unknown",
		"kind=singular",
		"kind=singular&id=abc",
		"kind=author&id=-3",
		"kind=tax&id=4",
		"kind=date&date=March",
		"paged=x",
		"feed=maybe",
	}
	for _, query := range bad {
		values, err := url.ParseQuery(query)
		require.NoError(t, err)
		_, err = ParseRequest(live, values)
		require.Error(t, err, query)
	}
}
