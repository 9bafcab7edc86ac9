package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	apihttp "titlevault/internal/api/http"
	"titlevault/internal/app"
	"titlevault/internal/enrich"
	"titlevault/internal/fetch"
	"titlevault/internal/metrics"
	"titlevault/internal/providers/jikan"
	"titlevault/internal/providers/mdl"
	"titlevault/internal/providers/omdb"
	"titlevault/internal/providers/tmdb"
	"titlevault/internal/providers/tvmaze"
	"titlevault/internal/region"
	"titlevault/internal/search"
	"titlevault/internal/suggestions"
	"titlevault/internal/telemetry"
)

var version = "dev"

func main() {
	cfg := app.LoadConfig()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), "titlevault", version)
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	tuning, err := app.LoadTuning(cfg.TuningFile)
	if err != nil {
		logger.Warn("tuning file ignored, using defaults",
			slog.String("path", cfg.TuningFile),
			slog.String("error", err.Error()),
		)
	}

	logger.Info("configuration loaded",
		slog.String("service", "titlevault"),
		slog.String("version", version),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("logLevel", cfg.LogLevel),
		slog.Duration("searchTimeout", cfg.SearchTimeout),
		slog.Duration("fetchTimeout", cfg.FetchTimeout),
		slog.Int("fetchRetries", cfg.FetchRetries),
		slog.String("cacheBackend", cfg.CacheBackend),
		slog.Duration("cacheTTL", cfg.CacheTTL),
		slog.Bool("hasTMDBKey", cfg.TMDBAPIKey != ""),
		slog.Bool("hasOMDBKey", cfg.OMDBAPIKey != ""),
		slog.Bool("hasRapidAPIKey", cfg.RapidAPIKey != ""),
		slog.Bool("hasMongo", strings.TrimSpace(cfg.MongoURI) != ""),
		slog.Int("privilegedCallers", len(cfg.PrivilegedCallers)),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeCache := buildCache(rootCtx, cfg, logger)
	defer closeCache()
	if cfg.CacheSweep {
		removed := store.EvictExpired(rootCtx)
		logger.Info("cache sweep completed",
			slog.String("backend", store.BackendName()),
			slog.Int("removed", removed),
		)
	}

	registry, closeRegistry := buildRegistry(rootCtx, cfg, logger)
	defer closeRegistry()

	fetcher := fetch.New(
		fetch.WithRetries(cfg.FetchRetries),
		fetch.WithTimeout(cfg.FetchTimeout),
		fetch.WithLogger(logger),
	)
	tmdbClient := tmdb.NewClient(tmdb.Config{APIKey: cfg.TMDBAPIKey, BaseURL: cfg.TMDBBaseURL, Fetch: fetcher})
	tvmazeClient := tvmaze.NewClient(tvmaze.Config{BaseURL: cfg.TVMazeBaseURL, Fetch: fetcher})
	omdbClient := omdb.NewClient(omdb.Config{APIKey: cfg.OMDBAPIKey, BaseURL: cfg.OMDBBaseURL, Fetch: fetcher})
	jikanClient := jikan.NewClient(jikan.Config{BaseURL: cfg.JikanBaseURL, Fetch: fetcher})
	mdlClient := mdl.NewClient(mdl.Config{APIKey: cfg.RapidAPIKey, Host: cfg.MDLHost, BaseURL: cfg.MDLBaseURL, Fetch: fetcher})

	searchService := search.NewService(
		[]search.Provider{tmdbClient, tvmazeClient, omdbClient, jikanClient, mdlClient},
		search.WithCache(store),
		search.WithWeights(tuning.Search),
		search.WithTimeout(cfg.SearchTimeout),
		search.WithProviderRateLimit(jikanClient.Name(), cfg.JikanRateLimit, 1),
		search.WithLogger(logger),
	)

	pipelineOpts := []enrich.Option{
		enrich.WithScheduleSource(tvmazeClient),
		enrich.WithAnimeResolver(jikanClient),
		enrich.WithRegistry(registry),
		enrich.WithClassifier(region.NewClassifier(tuning.Region)),
		enrich.WithCache(store),
		enrich.WithLogger(logger),
	}
	if omdbClient.Enabled() {
		pipelineOpts = append(pipelineOpts, enrich.WithBaseSource(omdbClient))
	}
	if tmdbClient.Enabled() {
		pipelineOpts = append(pipelineOpts, enrich.WithCatalogSource(tmdbClient))
	}
	if mdlClient.Enabled() {
		pipelineOpts = append(pipelineOpts, enrich.WithRegionalResolver(mdlClient))
	}
	pipeline := enrich.NewPipeline(pipelineOpts...)

	moderation := suggestions.NewService(registry, suggestions.WithLogger(logger))

	handler := apihttp.NewServer(searchService,
		apihttp.WithLogger(logger),
		apihttp.WithEnricher(pipeline),
		apihttp.WithSuggestions(moderation),
		apihttp.WithCache(store),
		apihttp.WithPrivilegedCallers(cfg.PrivilegedCallers),
		apihttp.WithRateLimit(cfg.APIRateLimit, cfg.APIRateBurst),
		apihttp.WithAnalyticsOptions(apihttp.AnalyticsOptions{
			Rating: tuning.Rating,
			Genre:  tuning.Genre,
			Actor:  tuning.Actor,
		}),
	).Handler()
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.SearchTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	logger.Info("titlevault service started",
		slog.String("addr", cfg.HTTPAddr),
		slog.String("cacheBackend", store.BackendName()),
	)

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", slog.String("error", err.Error()))
	}
	logger.Info("titlevault service stopped")
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	level := parseLogLevel(levelRaw)
	options := &slog.HandlerOptions{Level: level}
	format := strings.ToLower(strings.TrimSpace(formatRaw))
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, options))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, options))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
