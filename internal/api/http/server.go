package apihttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"titlevault/internal/cache"
	"titlevault/internal/domain"
	"titlevault/internal/normalize"
)

type SearchService interface {
	Search(ctx context.Context, query domain.Query) domain.SearchResponse
	Providers() []domain.ProviderInfo
	ProviderDiagnostics() []domain.ProviderDiagnostics
}

type EnrichService interface {
	Enrich(ctx context.Context, record domain.CanonicalRecord, caller domain.Caller, force bool) domain.CanonicalRecord
}

type SuggestionService interface {
	Submit(ctx context.Context, caller domain.Caller, suggestion domain.Suggestion) (domain.Suggestion, error)
	ListPending(ctx context.Context, caller domain.Caller) ([]domain.Suggestion, error)
	Approve(ctx context.Context, caller domain.Caller, id string) (domain.Suggestion, bool, error)
	Reject(ctx context.Context, caller domain.Caller, id string) (domain.Suggestion, bool, error)
}

type CacheService interface {
	Stats(ctx context.Context) cache.Stats
	EvictExpired(ctx context.Context) int
}

const (
	maxQueryLength = 500
	callerHeader   = "X-Caller-ID"
)

type Server struct {
	search      SearchService
	enrich      EnrichService
	suggestions SuggestionService
	cache       CacheService
	analytics   AnalyticsOptions
	privileged  map[string]struct{}
	posterHosts []string
	rateRPS     float64
	rateBurst   int
	logger      *slog.Logger
}

type ServerOption func(*Server)

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

func WithEnricher(enrich EnrichService) ServerOption {
	return func(s *Server) {
		s.enrich = enrich
	}
}

func WithSuggestions(suggestions SuggestionService) ServerOption {
	return func(s *Server) {
		s.suggestions = suggestions
	}
}

func WithCache(store CacheService) ServerOption {
	return func(s *Server) {
		s.cache = store
	}
}

func WithAnalyticsOptions(opts AnalyticsOptions) ServerOption {
	return func(s *Server) {
		s.analytics = opts
	}
}

// WithPrivilegedCallers lists the caller ids allowed to moderate
// suggestions and persist registry entries.
func WithPrivilegedCallers(ids []string) ServerOption {
	return func(s *Server) {
		for _, id := range ids {
			if id = strings.TrimSpace(id); id != "" {
				s.privileged[id] = struct{}{}
			}
		}
	}
}

func WithRateLimit(rps float64, burst int) ServerOption {
	return func(s *Server) {
		if rps > 0 && burst > 0 {
			s.rateRPS = rps
			s.rateBurst = burst
		}
	}
}

func NewServer(searchService SearchService, options ...ServerOption) *Server {
	server := &Server{
		search:      searchService,
		analytics:   DefaultAnalyticsOptions(),
		privileged:  make(map[string]struct{}),
		posterHosts: DefaultPosterHosts,
		rateRPS:     50,
		rateBurst:   100,
		logger:      slog.Default(),
	}
	for _, option := range options {
		if option != nil {
			option(server)
		}
	}
	if server.logger == nil {
		server.logger = slog.Default()
	}
	return server
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/search", s.handleSearch)
	mux.HandleFunc("/search/providers", s.handleProviders)
	mux.HandleFunc("/search/providers/health", s.handleProvidersHealth)
	mux.HandleFunc("/enrich", s.handleEnrich)
	mux.HandleFunc("/posters", s.handlePoster)
	mux.HandleFunc("/analytics/rating", s.handleRating)
	mux.HandleFunc("/analytics/progress", s.handleProgress)
	mux.HandleFunc("/analytics/resume", s.handleResume)
	mux.HandleFunc("/analytics/seasons", s.handleSeasons)
	mux.HandleFunc("/analytics/genres", s.handleGenres)
	mux.HandleFunc("/analytics/actors", s.handleActors)
	mux.HandleFunc("/cache/stats", s.handleCacheStats)
	mux.HandleFunc("/cache/sweep", s.handleCacheSweep)
	mux.HandleFunc("/suggestions", s.handleSuggestions)
	mux.HandleFunc("POST /suggestions/{id}/approve", s.handleApproveSuggestion)
	mux.HandleFunc("POST /suggestions/{id}/reject", s.handleRejectSuggestion)
	traced := otelhttp.NewHandler(loggingMiddleware(s.logger, mux), "titlevault",
		otelhttp.WithFilter(func(r *http.Request) bool {
			p := r.URL.Path
			return p != "/metrics" && p != "/health"
		}),
	)
	return recoveryMiddleware(s.logger, rateLimitMiddleware(s.rateRPS, s.rateBurst, metricsMiddleware(traced)))
}

// caller identifies the request by its X-Caller-ID header. Unknown or
// missing ids are unprivileged.
func (s *Server) caller(r *http.Request) domain.Caller {
	id := strings.TrimSpace(r.Header.Get(callerHeader))
	_, privileged := s.privileged[id]
	return domain.Caller{ID: id, Privileged: id != "" && privileged}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/search" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.search == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "search service is not configured")
		return
	}

	params := r.URL.Query()
	text := strings.TrimSpace(params.Get("q"))
	if text == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "query is required")
		return
	}
	if len(text) > maxQueryLength {
		writeError(w, http.StatusBadRequest, "invalid_request", "query too long (max 500 characters)")
		return
	}
	year := strings.TrimSpace(params.Get("year"))
	if year != "" && normalize.Year(year) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid year")
		return
	}

	query := domain.Query{
		Text: text,
		Year: year,
		Type: domain.ParseMediaType(params.Get("type")),
	}
	response := s.search.Search(r.Context(), query)

	failedProviders := make([]string, 0, len(response.Providers))
	for _, status := range response.Providers {
		if !status.OK {
			failedProviders = append(failedProviders, status.Name)
		}
	}
	s.logger.Info("search completed",
		slog.String("query", truncate(text, 80)),
		slog.String("type", string(query.Type)),
		slog.Int("items", len(response.Items)),
		slog.Int64("elapsedMs", response.ElapsedMS),
		slog.Bool("cached", response.Cached),
		slog.Int("failedProviders", len(failedProviders)),
	)
	if len(failedProviders) > 0 {
		s.logger.Warn("search providers partially failed",
			slog.String("query", truncate(text, 80)),
			slog.Any("failedProviders", failedProviders),
		)
	}

	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.search == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "search service is not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": s.search.Providers()})
}

func (s *Server) handleProvidersHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.search == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "search service is not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": s.search.ProviderDiagnostics()})
}

func (s *Server) handleEnrich(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.enrich == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "enrichment is not configured")
		return
	}

	var record domain.CanonicalRecord
	if err := decodeJSONBody(r, &record); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	record.Title = strings.TrimSpace(record.Title)
	record.UniversalID = strings.TrimSpace(record.UniversalID)
	if record.Title == "" && record.UniversalID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "title or imdbId is required")
		return
	}
	if record.Type == "" {
		record.Type = domain.MediaTypeMovie
	}

	caller := s.caller(r)
	enriched := s.enrich.Enrich(r.Context(), record, caller, parseOptionalBool(r.URL.Query().Get("force")))
	s.logger.Info("enrichment completed",
		slog.String("imdbId", enriched.UniversalID),
		slog.Bool("privileged", caller.Privileged),
		slog.Any("sources", enriched.EnrichmentSources),
	)
	writeJSON(w, http.StatusOK, enriched)
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.cache == nil {
		writeError(w, http.StatusServiceUnavailable, "service_unavailable", "cache is not configured")
		return
	}
	writeJSON(w, http.StatusOK, s.cache.Stats(r.Context()))
}

func (s *Server) handleCacheSweep(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.cache == nil {
		writeError(w, http.StatusServiceUnavailable, "service_unavailable", "cache is not configured")
		return
	}
	if !s.caller(r).Privileged {
		writeError(w, http.StatusForbidden, "forbidden", "privileged caller required")
		return
	}
	removed := s.cache.EvictExpired(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"removed": removed,
		"stats":   s.cache.Stats(r.Context()),
	})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "request failed")
	}
}

func decodeJSONBody(r *http.Request, dest any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read request body: %w", err)
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}

	decoder := json.NewDecoder(bytes.NewReader(payload))
	if err := decoder.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid json body: %w", err)
	}
	return nil
}

func parseOptionalBool(raw string) bool {
	parsed, err := strconv.ParseBool(strings.TrimSpace(raw))
	return err == nil && parsed
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
