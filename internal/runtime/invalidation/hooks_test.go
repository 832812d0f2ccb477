package invalidation

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/l0p7/seometa/internal/host"
	"github.com/l0p7/seometa/internal/host/hosttest"
	"github.com/l0p7/seometa/internal/page"
	"github.com/l0p7/seometa/internal/runtime/cache"
	"github.com/l0p7/seometa/internal/runtime/cachekey"
	"github.com/l0p7/seometa/internal/runtime/compat"
	"github.com/l0p7/seometa/internal/runtime/description"
	"github.com/l0p7/seometa/internal/runtime/generation"
	"github.com/l0p7/seometa/internal/runtime/pipeline"
	"github.com/l0p7/seometa/internal/runtime/title"
	"github.com/l0p7/seometa/internal/templates"
)

func newHooks(t *testing.T, options map[string]any) (*Hooks, *cache.Store, *hosttest.Options, *compat.Detector) {
	t.Helper()
	opts := hosttest.NewOptions(options)
	store := cache.NewStore(cache.Options{
		Backend: cache.NewMemory(time.Hour),
		Enabled: func() bool { return opts.GetOption(host.OptionCacheEnabled).Bool() },
	})
	detector := compat.NewDetector(nil)
	hooks := New(Options{Store: store, Keys: cachekey.New(), Options: opts, Compat: detector})
	return hooks, store, opts, detector
}

func TestMutationEventValidate(t *testing.T) {
	valid := []MutationEvent{
		{Type: PostUpdated, SubjectID: 1},
		{Type: TermDeleted, SubjectID: 2, Taxonomy: "category"},
		{Type: ThemeSwitched},
		{Type: BlogDescriptionChanged},
	}
	for _, ev := range valid {
		require.NoError(t, ev.Validate(), ev.Type)
	}
	invalid := []MutationEvent{
		{Type: PostPublished},
		{Type: TermEdited, SubjectID: 2},
		{Type: "renamed"},
	}
	for _, ev := range invalid {
		require.ErrorIs(t, ev.Validate(), ErrInvalidEvent, ev.Type)
	}
}

func TestPrefixesForPostEvents(t *testing.T) {
	hooks, _, _, _ := newHooks(t, map[string]any{host.OptionLocales: []string{"en_US", "de_DE"}})

	prefixes := hooks.Prefixes(MutationEvent{Type: PostUpdated, SubjectID: 42})

	require.Equal(t, []string{"post_42_1", "page_42_1", "attachment_42_1", "singular_42_1"}, prefixes)
}

func TestPrefixesForStaticPages(t *testing.T) {
	hooks, _, _, _ := newHooks(t, map[string]any{
		host.OptionShowOnFront:  "page",
		host.OptionPageOnFront:  10,
		host.OptionPageForPosts: 11,
	})

	require.Contains(t, hooks.Prefixes(MutationEvent{Type: PostUpdated, SubjectID: 10}), "hpage_10_1")
	require.Contains(t, hooks.Prefixes(MutationEvent{Type: PostUpdated, SubjectID: 11}), "hpage_11_1")
	require.Equal(t, []string{"hpage_11_1"}, hooks.Prefixes(MutationEvent{Type: BlogDescriptionChanged}))
}

func TestPrefixesForBlogDescriptionWithoutStaticFront(t *testing.T) {
	hooks, _, _, _ := newHooks(t, map[string]any{host.OptionBlogID: 3, host.OptionLocale: "fr_FR"})

	require.Equal(t, []string{"hblog_0_3"}, hooks.Prefixes(MutationEvent{Type: BlogDescriptionChanged}))
	require.Nil(t, hooks.Prefixes(MutationEvent{Type: ThemeSwitched}))
}

func TestHandleDeletesEveryLocale(t *testing.T) {
	hooks, store, _, _ := newHooks(t, nil)
	ctx := context.Background()
	for _, key := range []string{"post_42_1en_us", "post_42_1fr_fr", "page_42_1xx", "post_420_1en_us"} {
		require.True(t, store.Set(ctx, key, cache.Value{Normal: key}, 0))
	}

	require.NoError(t, hooks.Handle(ctx, MutationEvent{Type: PostUpdated, SubjectID: 42}))

	for _, key := range []string{"post_42_1en_us", "post_42_1fr_fr", "page_42_1xx"} {
		_, ok := store.Get(ctx, key)
		require.False(t, ok, key)
	}
	_, ok := store.Get(ctx, "post_420_1en_us")
	require.True(t, ok, "other posts keep their entries")
}

func TestHandleTermEventDeletesTermKey(t *testing.T) {
	hooks, store, _, _ := newHooks(t, nil)
	ctx := context.Background()
	require.True(t, store.Set(ctx, "cat_12_1en_us", cache.Value{Normal: "x"}, 0))
	require.True(t, store.Set(ctx, "archives_pro_cat_5_1en_us", cache.Value{Normal: "y"}, 0))

	require.NoError(t, hooks.Handle(ctx, MutationEvent{Type: TermEdited, SubjectID: 12, Taxonomy: "category"}))
	require.NoError(t, hooks.Handle(ctx, MutationEvent{Type: TermDeleted, SubjectID: 5, Taxonomy: "product_cat"}))

	_, ok := store.Get(ctx, "cat_12_1en_us")
	require.False(t, ok)
	_, ok = store.Get(ctx, "archives_pro_cat_5_1en_us")
	require.False(t, ok)
}

func TestHandleDeletesEvenWhenCacheDisabled(t *testing.T) {
	hooks, store, opts, _ := newHooks(t, nil)
	ctx := context.Background()
	require.True(t, store.Set(ctx, "post_42_1en_us", cache.Value{Normal: "stale"}, 0))

	opts.Set(host.OptionCacheEnabled, false)
	require.NoError(t, hooks.Handle(ctx, MutationEvent{Type: PostDeleted, SubjectID: 42}))
	opts.Set(host.OptionCacheEnabled, true)

	_, ok := store.Get(ctx, "post_42_1en_us")
	require.False(t, ok)
}

func TestHandleIsIdempotent(t *testing.T) {
	hooks, _, _, _ := newHooks(t, nil)
	ev := MutationEvent{Type: PostUpdated, SubjectID: 7}

	require.NoError(t, hooks.Handle(context.Background(), ev))
	require.NoError(t, hooks.Handle(context.Background(), ev))
}

func TestHandleIgnoresRevisions(t *testing.T) {
	hooks, store, _, _ := newHooks(t, nil)
	ctx := context.Background()
	require.True(t, store.Set(ctx, "post_42_1en_us", cache.Value{Normal: "kept"}, 0))

	require.NoError(t, hooks.Handle(ctx, MutationEvent{Type: PostUpdated, SubjectID: 42, Revision: true}))

	_, ok := store.Get(ctx, "post_42_1en_us")
	require.True(t, ok)
}

func TestHandleResetsCompatibilityState(t *testing.T) {
	hooks, store, _, detector := newHooks(t, nil)
	ctx := context.Background()

	detector.Observe(compat.Call{Theme: "legacy", Separator: "|"})
	require.NoError(t, hooks.Handle(ctx, MutationEvent{Type: ThemeSwitched}))
	require.False(t, detector.KnownWrong("legacy"))

	detector.Observe(compat.Call{Theme: "legacy", Separator: "|"})
	require.True(t, store.Set(ctx, "post_1_1en_us", cache.Value{Normal: "a"}, 0))
	require.NoError(t, hooks.Handle(ctx, MutationEvent{Type: PermalinkSettingsChanged}))
	require.False(t, detector.KnownWrong("legacy"))
	_, ok := store.Get(ctx, "post_1_1en_us")
	require.False(t, ok, "permalink changes flush the namespace")
}

func TestHandleRejectsInvalidEvents(t *testing.T) {
	hooks, _, _, _ := newHooks(t, nil)
	err := hooks.Handle(context.Background(), MutationEvent{Type: PostUpdated})
	require.True(t, errors.Is(err, ErrInvalidEvent))
}

func TestHandleReportsBackendFailures(t *testing.T) {
	server := miniredis.RunT(t)
	backend, err := cache.NewRedis(cache.RedisConfig{Address: server.Addr()})
	require.NoError(t, err)
	store := cache.NewStore(cache.Options{Backend: backend})
	hooks := New(Options{Store: store, Options: hosttest.NewOptions(nil)})

	server.SetError("READONLY")
	require.Error(t, hooks.Handle(context.Background(), MutationEvent{Type: PostUpdated, SubjectID: 1}))
	server.SetError("")
	require.NoError(t, hooks.Handle(context.Background(), MutationEvent{Type: PostUpdated, SubjectID: 1}))
	require.NoError(t, store.Close(context.Background()))
}

func TestPostUpdatedForcesDescriptionRecompute(t *testing.T) {
	for _, locale := range []string{"en_US", "fr_FR"} {
		t.Run(locale, func(t *testing.T) { assertRecomputeAfterUpdate(t, locale) })
	}
}

// assertRecomputeAfterUpdate caches post 42 under locale, which the site
// options never list unless it is the default, then updates it.
func assertRecomputeAfterUpdate(t *testing.T, locale string) {
	t.Helper()
	opts := hosttest.NewOptions(map[string]any{host.OptionBlogName: "Site Name"})
	content := hosttest.NewContent()
	content.PutPost(42, hosttest.Post{Title: "Post", Type: host.SingularPost, Content: "First draft."})
	catalog, err := templates.NewCatalog(nil, nil, nil)
	require.NoError(t, err)
	svc := &generation.Services{Content: content, Options: opts, Catalog: catalog}
	store := cache.NewStore(cache.Options{Backend: cache.NewMemory(time.Hour)})
	keys := cachekey.New()
	builder := description.New(svc, title.New(svc), description.Options{Store: store, Keys: keys})
	hooks := New(Options{Store: store, Keys: keys, Options: opts})
	ctx := context.Background()
	state := func() *pipeline.State {
		return pipeline.NewState(page.Singular(42, host.SingularPost, locale, 1), "")
	}

	require.Equal(t, "Post on Site Name | First draft.", builder.Build(ctx, state(), "", generation.Args{}))

	content.PutPost(42, hosttest.Post{Title: "Post", Type: host.SingularPost, Content: "Second draft."})
	require.NoError(t, hooks.Handle(ctx, MutationEvent{Type: PostUpdated, SubjectID: 42}))

	st := state()
	require.Equal(t, "Post on Site Name | Second draft.", builder.Build(ctx, st, "", generation.Args{}))
	require.False(t, st.Cache.Hit)
	require.Equal(t, 2, content.ContentReads(42))
}
