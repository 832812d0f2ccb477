package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/knadh/koanf/v2"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/l0p7/seometa/internal/config"
	"github.com/l0p7/seometa/internal/expr"
	"github.com/l0p7/seometa/internal/host"
	"github.com/l0p7/seometa/internal/logging"
	"github.com/l0p7/seometa/internal/metrics"
	"github.com/l0p7/seometa/internal/runtime"
	"github.com/l0p7/seometa/internal/runtime/cache"
	"github.com/l0p7/seometa/internal/runtime/extension"
	"github.com/l0p7/seometa/internal/server"
	"github.com/l0p7/seometa/internal/site"
	"github.com/l0p7/seometa/internal/templates"
)

type configLoader interface {
	Load(context.Context) (config.Config, error)
}

type runnableServer interface {
	Run(context.Context) error
}

var (
	newConfigLoader = func(envPrefix, path string) configLoader {
		return config.NewLoader(envPrefix, path)
	}
	newHTTPServer = func(cfg config.Config, logger *slog.Logger, handler http.Handler) (runnableServer, error) {
		return server.New(cfg, logger, handler)
	}
)

func main() {
	var (
		configFile = flag.String("config", "", "path to server configuration file")
		envPrefix  = flag.String("env-prefix", "SEOMETA", "environment variable prefix")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *envPrefix, *configFile); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, envPrefix, configFile string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg, err := newConfigLoader(envPrefix, configFile).Load(ctx)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger, err := logging.New(cfg.Server.Logging)
	if err != nil {
		return fmt.Errorf("configure logger: %w", err)
	}

	metricsRecorder := metrics.NewRecorder(prometheus.NewRegistry())

	renderer := templates.NewRenderer(buildSandbox(logger, cfg.Server.Templates))
	catalog, err := templates.NewCatalog(renderer, cfg.Strings, logger)
	if err != nil {
		return fmt.Errorf("compile strings: %w", err)
	}
	evaluator, err := expr.NewHybridEvaluator(renderer)
	if err != nil {
		return fmt.Errorf("expression environment: %w", err)
	}
	extensions, err := extension.FromExpressions(evaluator, cfg.Extensions, logger)
	if err != nil {
		return fmt.Errorf("compile extensions: %w", err)
	}

	live := site.NewLive(nil)
	store := cache.NewStore(cache.Options{
		Backend:   buildCacheBackend(logger.With(slog.String("agent", "cache_factory")), cfg.Server.Cache),
		Namespace: cfg.Server.Cache.Namespace,
		Enabled: func() bool {
			return live.GetOption(host.OptionCacheEnabled).BoolOr(true)
		},
		Logger:  logger,
		Metrics: metricsRecorder,
	})

	gen := runtime.NewGenerator(logger, runtime.GeneratorOptions{
		Content:    live,
		Options:    live,
		Store:      store,
		CacheTTL:   cfg.Server.Cache.TTL(),
		Catalog:    catalog,
		Extensions: extensions,
		Metrics:    metricsRecorder,
		Resolver: func(r *http.Request) (host.ContextResolver, error) {
			return site.ParseRequest(live, r.URL.Query())
		},
		CorrelationHeader: cfg.Server.Logging.CorrelationHeader,
	})
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := gen.Close(shutdownCtx); err != nil {
			logger.Error("cache shutdown failed", slog.Any("error", err))
		}
	}()

	group, groupCtx := errgroup.WithContext(ctx)

	if file := strings.TrimSpace(cfg.Site.File); file != "" {
		if cfg.Site.Watch {
			docs := make(chan *koanf.Koanf, 1)
			watcher, err := config.WatchDocument(groupCtx, file, func(k *koanf.Koanf) {
				select {
				case docs <- k:
				case <-groupCtx.Done():
				}
			}, func(err error) {
				logger.Error("site document watcher error", slog.Any("error", err))
			})
			if err != nil {
				return fmt.Errorf("watch site document: %w", err)
			}
			defer watcher.Stop()
			// The initial parse is delivered before WatchDocument returns.
			if !applySiteDocument(ctx, logger, live, gen, <-docs) {
				return fmt.Errorf("load site document: %s is invalid", file)
			}
			group.Go(func() error {
				for {
					select {
					case <-groupCtx.Done():
						return nil
					case k := <-docs:
						applySiteDocument(groupCtx, logger, live, gen, k)
					}
				}
			})
		} else {
			k, err := config.LoadDocument(file)
			if err != nil {
				return fmt.Errorf("load site document: %w", err)
			}
			if !applySiteDocument(ctx, logger, live, gen, k) {
				return fmt.Errorf("load site document: %s is invalid", file)
			}
		}
	}

	srv, err := newHTTPServer(cfg, logger, server.NewGeneratorHandler(gen, metricsRecorder.Handler()))
	if err != nil {
		return fmt.Errorf("construct server: %w", err)
	}
	group.Go(func() error {
		return srv.Run(groupCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server terminated unexpectedly", slog.Any("error", err))
		return err
	}
	logger.Info("server shutdown complete")
	return nil
}

// applySiteDocument installs k as the live site and invalidates whatever the
// change touched. An invalid document leaves the previous site in place.
func applySiteDocument(ctx context.Context, logger *slog.Logger, live *site.Live, gen *runtime.Generator, k *koanf.Koanf) bool {
	log := logger.With(slog.String("agent", "site_loader"))
	snap, err := site.Parse(k)
	if err != nil {
		log.Error("site document rejected", slog.Any("error", err))
		return false
	}
	events := live.Replace(snap)
	if err := gen.InvalidateAll(ctx, events); err != nil {
		log.Warn("site reload invalidation incomplete", slog.Any("error", err))
	}
	log.Info("site document applied", slog.Int("events", len(events)))
	return true
}

func buildSandbox(logger *slog.Logger, cfg config.TemplatesConfig) *templates.Sandbox {
	folder := strings.TrimSpace(cfg.TemplatesFolder)
	if folder == "" {
		return nil
	}
	sandbox, err := templates.NewSandbox(folder)
	if err != nil {
		logger.Warn("template sandbox setup failed", slog.String("templates_folder", folder), slog.Any("error", err))
		return nil
	}
	return sandbox
}

func buildCacheBackend(logger *slog.Logger, cfg config.ServerCacheConfig) cache.Backend {
	ttl := cfg.TTL()
	switch cfg.BackendName() {
	case config.CacheBackendDisabled:
		if logger != nil {
			logger.Info("description cache disabled")
		}
		return cache.NewNoop()
	case config.CacheBackendRedis:
		redisCache, err := cache.NewRedis(cache.RedisConfig{
			Address:  cfg.Redis.Address,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TLS: cache.RedisTLSConfig{
				Enabled: cfg.Redis.TLS.Enabled,
				CAFile:  cfg.Redis.TLS.CAFile,
			},
			TTL: ttl,
		})
		if err != nil {
			if logger != nil {
				logger.Error("redis cache initialization failed", slog.Any("error", err))
				logger.Info("falling back to memory cache")
			}
			return cache.NewMemory(ttl)
		}
		if logger != nil {
			logger.Info("using redis description cache", slog.String("address", cfg.Redis.Address))
		}
		return redisCache
	case config.CacheBackendMemory:
		if logger != nil {
			logger.Info("using memory description cache", slog.Duration("ttl", ttl))
		}
		return cache.NewMemory(ttl)
	default:
		if logger != nil {
			logger.Warn("unsupported cache backend, defaulting to memory", slog.String("backend", cfg.Backend))
		}
		return cache.NewMemory(ttl)
	}
}
