package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gavv/httpexpect/v2"
	"github.com/stretchr/testify/require"

	"github.com/l0p7/seometa/internal/config"
	"github.com/l0p7/seometa/internal/logging"
	"github.com/l0p7/seometa/internal/runtime"
	"github.com/l0p7/seometa/internal/runtime/cache"
	"github.com/l0p7/seometa/internal/server"
	"github.com/l0p7/seometa/internal/site"
)

const testSiteDocument = `
options:
  blogname: Site Name
  blogdescription: Just words
posts:
  "42":
    title: My Post
    content: Old words.
`

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestBuildCacheBackend(t *testing.T) {
	tests := []struct {
		name   string
		cfg    func(t *testing.T) config.ServerCacheConfig
		verify func(t *testing.T, backend cache.Backend)
	}{
		{
			name: "defaults to memory",
			cfg: func(t *testing.T) config.ServerCacheConfig {
				return config.ServerCacheConfig{TTLSeconds: 1}
			},
			verify: func(t *testing.T, backend cache.Backend) {
				requireRoundTrip(t, backend)
			},
		},
		{
			name: "disabled stores nothing",
			cfg: func(t *testing.T) config.ServerCacheConfig {
				return config.ServerCacheConfig{Backend: "disabled"}
			},
			verify: func(t *testing.T, backend cache.Backend) {
				ctx := context.Background()
				require.NoError(t, backend.Store(ctx, "post_1_1en_us", cacheEntry()))
				_, ok, err := backend.Lookup(ctx, "post_1_1en_us")
				require.NoError(t, err)
				require.False(t, ok)
			},
		},
		{
			name: "constructs redis cache",
			cfg: func(t *testing.T) config.ServerCacheConfig {
				srv, err := miniredis.Run()
				if err != nil {
					if strings.Contains(err.Error(), "operation not permitted") {
						t.Skip("miniredis unavailable in sandbox")
					}
					require.NoError(t, err)
				}
				t.Cleanup(srv.Close)
				return config.ServerCacheConfig{
					Backend:    "redis",
					TTLSeconds: 60,
					Redis: config.ServerRedisCacheConfig{
						Address: srv.Addr(),
					},
				}
			},
			verify: func(t *testing.T, backend cache.Backend) {
				requireRoundTrip(t, backend)
				size, err := backend.Size(context.Background())
				require.NoError(t, err)
				require.EqualValues(t, 1, size)
			},
		},
		{
			name: "unreachable redis falls back to memory",
			cfg: func(t *testing.T) config.ServerCacheConfig {
				return config.ServerCacheConfig{
					Backend: "redis",
					Redis:   config.ServerRedisCacheConfig{Address: "127.0.0.1:1"},
				}
			},
			verify: func(t *testing.T, backend cache.Backend) {
				requireRoundTrip(t, backend)
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := tc.cfg(t)
			backend := buildCacheBackend(newTestLogger(), cfg)
			t.Cleanup(func() {
				require.NoError(t, backend.Close(context.Background()))
			})

			tc.verify(t, backend)
		})
	}
}

func requireRoundTrip(t *testing.T, backend cache.Backend) {
	t.Helper()
	ctx := context.Background()
	require.NotNil(t, backend)
	require.NoError(t, backend.Store(ctx, "post_1_1en_us", cacheEntry()))
	got, ok, err := backend.Lookup(ctx, "post_1_1en_us")
	require.NoError(t, err)
	require.True(t, ok, "expected lookup to succeed")
	require.Equal(t, "normal", got.Value.Normal)
}

func cacheEntry() cache.Entry {
	now := time.Now().UTC()
	return cache.Entry{
		Value:     cache.Value{Normal: "normal", Social: "social"},
		StoredAt:  now,
		ExpiresAt: now.Add(time.Minute),
	}
}

func TestRunLoaderError(t *testing.T) {
	overrideConfigLoader(t, func(_, _ string) configLoader {
		return &fakeLoader{loadErr: errors.New("boom")}
	})

	err := run(context.Background(), "SEOMETA", "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "load configuration")
}

func TestRunServerConstructorError(t *testing.T) {
	overrideConfigLoader(t, func(_, _ string) configLoader {
		return &fakeLoader{cfg: testConfig(t, "")}
	})

	overrideHTTPServer(t, func(config.Config, *slog.Logger, http.Handler) (runnableServer, error) {
		return nil, errors.New("construct failed")
	})

	err := run(context.Background(), "SEOMETA", "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "construct failed")
}

func TestRunServerRunError(t *testing.T) {
	overrideConfigLoader(t, func(_, _ string) configLoader {
		return &fakeLoader{cfg: testConfig(t, "")}
	})

	overrideHTTPServer(t, func(config.Config, *slog.Logger, http.Handler) (runnableServer, error) {
		return &stubServer{err: errors.New("run failed")}, nil
	})

	err := run(context.Background(), "SEOMETA", "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "run failed")
}

func TestRunRejectsInvalidSiteDocument(t *testing.T) {
	path := writeSiteDocument(t, t.TempDir(), "posts:\n  nope:\n    title: x\n")
	for _, watch := range []bool{false, true} {
		cfg := testConfig(t, path)
		cfg.Site.Watch = watch
		overrideConfigLoader(t, func(_, _ string) configLoader {
			return &fakeLoader{cfg: cfg}
		})
		overrideHTTPServer(t, func(config.Config, *slog.Logger, http.Handler) (runnableServer, error) {
			t.Fatal("server must not be constructed for an invalid site")
			return nil, nil
		})

		err := run(context.Background(), "SEOMETA", "")
		require.Error(t, err)
		require.Contains(t, err.Error(), "site document")
	}
}

func TestRunServesAndReloadsSite(t *testing.T) {
	dir := t.TempDir()
	path := writeSiteDocument(t, dir, testSiteDocument)
	cfg := testConfig(t, path)
	cfg.Site.Watch = true

	overrideConfigLoader(t, func(_, _ string) configLoader {
		return &fakeLoader{cfg: cfg}
	})
	servers := make(chan *server.Server, 1)
	overrideHTTPServer(t, func(cfg config.Config, logger *slog.Logger, handler http.Handler) (runnableServer, error) {
		srv, err := server.New(cfg, logger, handler)
		if err == nil {
			servers <- srv
		}
		return srv, err
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, "SEOMETA", "") }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(10 * time.Second):
			t.Error("run did not return after cancellation")
		}
	})

	var srv *server.Server
	select {
	case srv = <-servers:
	case err := <-done:
		t.Fatalf("run exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server was never constructed")
	}
	select {
	case <-srv.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("server never became ready")
	}

	baseURL := "http://" + srv.Addr()
	client := &http.Client{Timeout: 5 * time.Second}
	e := httpexpect.WithConfig(httpexpect.Config{
		BaseURL:  baseURL,
		Reporter: httpexpect.NewRequireReporter(t),
		Client:   client,
	})

	title := e.GET("/title").
		WithQuery("kind", "singular").
		WithQuery("id", 42).
		WithHeader("X-Request-ID", "run-test").
		Expect()
	title.Status(http.StatusOK)
	title.Header("X-Request-ID").IsEqual("run-test")
	title.JSON().Object().Value("value").String().IsEqual("My Post | Site Name")

	e.GET("/description").WithQuery("kind", "singular").WithQuery("id", 42).
		Expect().
		Status(http.StatusOK).
		JSON().Object().Value("value").String().IsEqual("My Post on Site Name | Old words.")

	e.GET("/healthz").Expect().Status(http.StatusOK).
		JSON().Object().Value("cacheEntries").Number().IsEqual(1)
	e.GET("/metrics").Expect().Status(http.StatusOK).Body().Contains("seometa_")
	e.POST("/title").Expect().Status(http.StatusMethodNotAllowed)

	writeSiteDocument(t, dir, strings.Replace(testSiteDocument, "Old words.", "New words.", 1))
	require.Eventually(t, func() bool {
		return fetchValue(client, baseURL+"/description?kind=singular&id=42") == "My Post on Site Name | New words."
	}, 5*time.Second, 50*time.Millisecond, "edited site document should invalidate the cached description")
}

func TestApplySiteDocumentKeepsPreviousOnError(t *testing.T) {
	live := site.NewLive(nil)
	gen := runtime.NewGenerator(logging.Discard(), runtime.GeneratorOptions{Content: live, Options: live})

	good, err := config.LoadDocument(writeSiteDocument(t, t.TempDir(), testSiteDocument))
	require.NoError(t, err)
	require.True(t, applySiteDocument(context.Background(), logging.Discard(), live, gen, good))
	require.Equal(t, "My Post", live.GetPostTitle(42))

	bad, err := config.LoadDocument(writeSiteDocument(t, t.TempDir(), "posts:\n  \"1\":\n    visibility: hidden\n"))
	require.NoError(t, err)
	require.False(t, applySiteDocument(context.Background(), logging.Discard(), live, gen, bad))
	require.Equal(t, "My Post", live.GetPostTitle(42))
}

type httpDoer interface {
	Do(*http.Request) (*http.Response, error)
}

func fetchValue(client httpDoer, target string) string {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, target, nil)
	if err != nil {
		return ""
	}
	resp, err := client.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()
	var body struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return ""
	}
	return body.Value
}

func testConfig(t *testing.T, siteFile string) config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Server.Listen.Address = "127.0.0.1"
	cfg.Server.Listen.Port = 0
	cfg.Server.Logging.Level = "error"
	cfg.Server.Templates.TemplatesFolder = ""
	cfg.Site.File = siteFile
	cfg.Site.Watch = false
	return cfg
}

func writeSiteDocument(t *testing.T, dir, contents string) string {
	t.Helper()
	path := filepath.Join(dir, "site.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func overrideConfigLoader(t *testing.T, fn func(string, string) configLoader) {
	original := newConfigLoader
	newConfigLoader = fn
	t.Cleanup(func() { newConfigLoader = original })
}

func overrideHTTPServer(t *testing.T, fn func(config.Config, *slog.Logger, http.Handler) (runnableServer, error)) {
	original := newHTTPServer
	newHTTPServer = fn
	t.Cleanup(func() { newHTTPServer = original })
}

type fakeLoader struct {
	cfg     config.Config
	loadErr error
}

func (f *fakeLoader) Load(context.Context) (config.Config, error) {
	if f.loadErr != nil {
		return config.Config{}, f.loadErr
	}
	return f.cfg, nil
}

type stubServer struct {
	err error
}

func (s *stubServer) Run(context.Context) error {
	return s.err
}
