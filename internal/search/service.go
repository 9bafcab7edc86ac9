package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"titlevault/internal/cache"
	"titlevault/internal/domain"
	"titlevault/internal/normalize"
)

// maxConcurrentRequests bounds how many source requests one search runs at once.
const maxConcurrentRequests = 8

const defaultSearchTimeout = 35 * time.Second

type Service struct {
	providers []Provider
	scorer    *Scorer
	cache     *cache.Store
	timeout   time.Duration
	logger    *slog.Logger
	now       func() time.Time

	sources  *sourceLedger
	throttle *throttle
}

type ServiceOption func(*Service)

func WithCache(store *cache.Store) ServiceOption {
	return func(s *Service) {
		s.cache = store
	}
}

func WithWeights(weights Weights) ServiceOption {
	return func(s *Service) {
		s.scorer = NewScorer(weights)
	}
}

func WithTimeout(timeout time.Duration) ServiceOption {
	return func(s *Service) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithProviderRateLimit caps outbound requests to one source.
func WithProviderRateLimit(name string, rps float64, burst int) ServiceOption {
	return func(s *Service) {
		s.throttle.set(name, rps, burst)
	}
}

func NewService(providers []Provider, opts ...ServiceOption) *Service {
	registered := make([]Provider, 0, len(providers))
	seen := make(map[string]struct{}, len(providers))
	for _, provider := range providers {
		if provider == nil {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(provider.Name()))
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		registered = append(registered, provider)
	}

	svc := &Service{
		providers: registered,
		scorer:    NewScorer(DefaultWeights()),
		timeout:   defaultSearchTimeout,
		logger:    slog.Default(),
		now:       time.Now,
		sources:   newSourceLedger(),
		throttle:  newThrottle(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func (s *Service) Providers() []domain.ProviderInfo {
	items := make([]domain.ProviderInfo, 0, len(s.providers))
	for _, provider := range s.providers {
		info := provider.Info()
		info.Name = strings.ToLower(strings.TrimSpace(provider.Name()))
		if info.Label == "" {
			info.Label = info.Name
		}
		items = append(items, info)
	}
	return items
}

// sourceRequest is one (source, kind) pair of the outbound request matrix.
type sourceRequest struct {
	provider Provider
	kind     domain.MediaType
}

// Search fans the query out to every applicable source, scores and
// reconciles what comes back and returns merged results ordered by
// confidence. It never fails: an empty query or a total outage yields an
// empty list.
func (s *Service) Search(ctx context.Context, query domain.Query) domain.SearchResponse {
	startedAt := s.now()
	query.Text = strings.TrimSpace(query.Text)
	query.Year = normalize.Year(query.Year)
	response := domain.SearchResponse{Query: query, Items: []domain.MergedResult{}}
	if query.Text == "" {
		return response
	}

	cacheKey := normalize.BuildCacheKey(string(query.Type), query.Text, query.Year)
	if s.cache != nil {
		var cached []domain.MergedResult
		if s.cache.Get(ctx, cacheKey, &cached) {
			s.logger.Debug("search cache hit", slog.String("key", cacheKey))
			response.Items = cached
			response.Cached = true
			response.ElapsedMS = s.now().Sub(startedAt).Milliseconds()
			return response
		}
	}

	candidates, statuses := s.collect(ctx, query)
	response.Providers = statuses

	scored := make([]domain.ScoredCandidate, 0, len(candidates))
	for index, candidate := range candidates {
		scored = append(scored, s.scorer.Score(candidate, query.Text, query.Year, index))
	}
	response.Items = MergeAll(Reconcile(scored))
	response.ElapsedMS = s.now().Sub(startedAt).Milliseconds()

	// A partial answer is served but not cached, so a recovered source is
	// asked again on the next search.
	if s.cache != nil && len(response.Items) > 0 && allProvidersOK(statuses) {
		s.cache.Set(ctx, cacheKey, response.Items)
	}
	return response
}

func allProvidersOK(statuses []domain.ProviderStatus) bool {
	for _, status := range statuses {
		if !status.OK {
			return false
		}
	}
	return true
}

func (s *Service) requestMatrix(queryType domain.MediaType) []sourceRequest {
	var requests []sourceRequest
	for _, provider := range s.providers {
		info := provider.Info()
		if !info.Enabled {
			continue
		}
		for _, kind := range info.Kinds {
			if queryType.Includes(kind) {
				requests = append(requests, sourceRequest{provider: provider, kind: kind})
			}
		}
	}
	return requests
}

// collect runs every request of the matrix and waits for all of them to
// settle. One source failing or stalling never cancels the others.
// Candidates come back in request order so positions are deterministic.
func (s *Service) collect(ctx context.Context, query domain.Query) ([]domain.RawCandidate, []domain.ProviderStatus) {
	requests := s.requestMatrix(query.Type)
	if len(requests) == 0 {
		return nil, nil
	}

	runCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && s.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	slots := make([][]domain.RawCandidate, len(requests))
	statuses := make([]domain.ProviderStatus, len(requests))
	sem := semaphore.NewWeighted(maxConcurrentRequests)

	var wg sync.WaitGroup
	for i, req := range requests {
		wg.Add(1)
		go func(index int, current sourceRequest) {
			defer wg.Done()
			name := strings.ToLower(strings.TrimSpace(current.provider.Name()))
			status := domain.ProviderStatus{Name: name, Type: current.kind}
			defer func() {
				if recovered := recover(); recovered != nil {
					s.logger.Error("search provider panicked",
						slog.String("provider", name),
						slog.Any("error", recovered),
					)
					status.OK = false
					status.Error = "internal error"
					slots[index] = nil
				}
				statuses[index] = status
			}()

			if err := sem.Acquire(runCtx, 1); err != nil {
				status.Error = "context cancelled"
				return
			}
			defer sem.Release(1)

			if until, lastErr, cooling := s.sources.cooling(name, s.now()); cooling {
				status.Error = fmt.Sprintf("%s catalog cooling down until %s after: %s", name, until.UTC().Format(time.RFC3339), lastErr)
				return
			}
			if err := s.throttle.wait(runCtx, name); err != nil {
				status.Error = errRateLimitWait.Error()
				return
			}

			startedAt := s.now()
			items, err := current.provider.Search(runCtx, query, current.kind)
			s.sources.record(name, sourceOutcome{
				kind:    current.kind,
				query:   query.Text,
				found:   len(items),
				err:     err,
				latency: s.now().Sub(startedAt),
			}, s.now())
			if err != nil {
				s.logger.Warn("search provider failed",
					slog.String("provider", name),
					slog.String("kind", string(current.kind)),
					slog.String("error", err.Error()),
				)
				status.Error = err.Error()
				return
			}
			status.OK = true
			status.Count = len(items)
			slots[index] = items
		}(i, req)
	}
	wg.Wait()

	var candidates []domain.RawCandidate
	for _, items := range slots {
		candidates = append(candidates, items...)
	}
	return candidates, statuses
}
