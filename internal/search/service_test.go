package search

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"titlevault/internal/cache"
	"titlevault/internal/domain"
)

type fakeProvider struct {
	name  string
	kinds []domain.MediaType
	items []domain.RawCandidate
	hits  atomic.Int32
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Info() domain.ProviderInfo {
	return domain.ProviderInfo{Name: p.name, Label: p.name, Kinds: p.kinds, Enabled: true}
}

func (p *fakeProvider) Search(_ context.Context, _ domain.Query, kind domain.MediaType) ([]domain.RawCandidate, error) {
	p.hits.Add(1)
	out := make([]domain.RawCandidate, 0, len(p.items))
	for _, item := range p.items {
		if item.Type == "" {
			item.Type = kind
		}
		out = append(out, item)
	}
	return out, nil
}

type failingProvider struct {
	name  string
	err   error
	calls atomic.Int32
}

func (p *failingProvider) Name() string { return p.name }

func (p *failingProvider) Info() domain.ProviderInfo {
	return domain.ProviderInfo{Name: p.name, Label: p.name, Kinds: []domain.MediaType{domain.MediaTypeMovie}, Enabled: true}
}

func (p *failingProvider) Search(context.Context, domain.Query, domain.MediaType) ([]domain.RawCandidate, error) {
	p.calls.Add(1)
	return nil, p.err
}

type slowProvider struct {
	name string
}

func (p *slowProvider) Name() string { return p.name }

func (p *slowProvider) Info() domain.ProviderInfo {
	return domain.ProviderInfo{Name: p.name, Label: p.name, Kinds: []domain.MediaType{domain.MediaTypeMovie}, Enabled: true}
}

func (p *slowProvider) Search(ctx context.Context, _ domain.Query, _ domain.MediaType) ([]domain.RawCandidate, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type disabledProvider struct {
	fakeProvider
}

func (p *disabledProvider) Info() domain.ProviderInfo {
	info := p.fakeProvider.Info()
	info.Enabled = false
	return info
}

type panickingProvider struct {
	name string
}

func (p *panickingProvider) Name() string { return p.name }

func (p *panickingProvider) Info() domain.ProviderInfo {
	return domain.ProviderInfo{Name: p.name, Kinds: []domain.MediaType{domain.MediaTypeMovie}, Enabled: true}
}

func (p *panickingProvider) Search(context.Context, domain.Query, domain.MediaType) ([]domain.RawCandidate, error) {
	panic("boom")
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func movie(title, year, imdbID string) domain.RawCandidate {
	return domain.RawCandidate{Title: title, Year: year, UniversalID: imdbID, Type: domain.MediaTypeMovie}
}

// -----------------------------------------------------------------------------
// Fan-out
// -----------------------------------------------------------------------------

func TestSearchEmptyQueryIssuesNoRequests(t *testing.T) {
	provider := &fakeProvider{name: "tmdb", kinds: []domain.MediaType{domain.MediaTypeMovie}}
	svc := NewService([]Provider{provider}, WithLogger(quietLogger()))

	resp := svc.Search(context.Background(), domain.Query{Text: "   "})
	if len(resp.Items) != 0 {
		t.Fatalf("expected no items, got %d", len(resp.Items))
	}
	if provider.hits.Load() != 0 {
		t.Fatal("expected no provider calls for an empty query")
	}
}

func TestSearchParasiteMergesAcrossSources(t *testing.T) {
	tmdb := &fakeProvider{name: "tmdb", kinds: []domain.MediaType{domain.MediaTypeMovie}, items: []domain.RawCandidate{
		{Source: "tmdb", Title: "Parasite", Year: "2019", UniversalID: "tt6751668", CatalogID: "496243", Popularity: ptr(0)},
	}}
	omdb := &fakeProvider{name: "omdb", kinds: []domain.MediaType{domain.MediaTypeMovie}, items: []domain.RawCandidate{
		{Source: "omdb", Title: "Parasite", Year: "2019", UniversalID: "tt6751668", Poster: "poster.jpg"},
		{Source: "omdb", Title: "Parasite Eve", Year: "1997", UniversalID: "tt0119868"},
	}}
	svc := NewService([]Provider{tmdb, omdb}, WithLogger(quietLogger()))

	resp := svc.Search(context.Background(), domain.Query{Text: "Parasite", Year: "2019", Type: domain.MediaTypeMovie})
	if len(resp.Items) != 2 {
		t.Fatalf("expected 2 merged results, got %d: %+v", len(resp.Items), resp.Items)
	}
	top := resp.Items[0]
	if top.UniversalID != "tt6751668" {
		t.Fatalf("unexpected top result %+v", top)
	}
	// tmdb: 50 + 35 + 25 + 5 authority; omdb: 50 + 35 + 25
	if top.Confidence != 115 {
		t.Fatalf("expected confidence of the higher candidate (115), got %d", top.Confidence)
	}
	if !slices.Contains(top.SourcesUsed, "tmdb") || !slices.Contains(top.SourcesUsed, "omdb") {
		t.Fatalf("expected both sources, got %v", top.SourcesUsed)
	}
	if top.Poster != "poster.jpg" || top.CatalogID != "496243" {
		t.Fatalf("expected fields from both members, got %+v", top)
	}
}

func TestSearchIsolatesTimedOutSource(t *testing.T) {
	a := &fakeProvider{name: "a", kinds: []domain.MediaType{domain.MediaTypeMovie}, items: []domain.RawCandidate{movie("Heat", "1995", "tt0113277")}}
	b := &fakeProvider{name: "b", kinds: []domain.MediaType{domain.MediaTypeMovie}, items: []domain.RawCandidate{movie("Heat", "1995", "")}}
	svc := NewService([]Provider{a, &slowProvider{name: "slow"}, b}, WithLogger(quietLogger()), WithTimeout(50*time.Millisecond))

	resp := svc.Search(context.Background(), domain.Query{Text: "Heat"})
	if len(resp.Items) != 2 {
		t.Fatalf("expected results from the two healthy sources, got %d", len(resp.Items))
	}
	if len(resp.Providers) != 3 {
		t.Fatalf("expected a status per request, got %d", len(resp.Providers))
	}
	if resp.Providers[1].OK || resp.Providers[1].Error == "" {
		t.Fatalf("expected slow source to report failure, got %+v", resp.Providers[1])
	}
	if !resp.Providers[0].OK || !resp.Providers[2].OK {
		t.Fatalf("expected healthy sources to report ok, got %+v", resp.Providers)
	}
}

func TestSearchAllSourcesFailingYieldsEmptyList(t *testing.T) {
	svc := NewService([]Provider{
		&failingProvider{name: "a", err: ErrSourceUnavailable},
		&failingProvider{name: "b", err: errors.New("boom")},
	}, WithLogger(quietLogger()))

	resp := svc.Search(context.Background(), domain.Query{Text: "Heat"})
	if resp.Items == nil || len(resp.Items) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", resp.Items)
	}
}

func TestSearchRecoversFromPanickingSource(t *testing.T) {
	healthy := &fakeProvider{name: "ok", kinds: []domain.MediaType{domain.MediaTypeMovie}, items: []domain.RawCandidate{movie("Heat", "1995", "")}}
	svc := NewService([]Provider{&panickingProvider{name: "bad"}, healthy}, WithLogger(quietLogger()))

	resp := svc.Search(context.Background(), domain.Query{Text: "Heat"})
	if len(resp.Items) != 1 {
		t.Fatalf("expected healthy result, got %d", len(resp.Items))
	}
	if resp.Providers[0].OK {
		t.Fatal("expected panicking source to be reported as failed")
	}
}

func TestSearchRequestMatrixFollowsType(t *testing.T) {
	both := &fakeProvider{name: "tmdb", kinds: []domain.MediaType{domain.MediaTypeMovie, domain.MediaTypeSeries}}
	anime := &fakeProvider{name: "jikan", kinds: []domain.MediaType{domain.MediaTypeAnime}}
	skipped := &disabledProvider{fakeProvider{name: "mdl", kinds: []domain.MediaType{domain.MediaTypeSeries}}}
	svc := NewService([]Provider{both, anime, skipped}, WithLogger(quietLogger()))

	svc.Search(context.Background(), domain.Query{Text: "x", Type: domain.MediaTypeMovie})
	if both.hits.Load() != 1 || anime.hits.Load() != 0 {
		t.Fatalf("movie search: tmdb=%d jikan=%d", both.hits.Load(), anime.hits.Load())
	}
	svc.Search(context.Background(), domain.Query{Text: "y", Type: domain.MediaTypeSeries})
	if both.hits.Load() != 2 || anime.hits.Load() != 1 {
		t.Fatalf("series search: tmdb=%d jikan=%d", both.hits.Load(), anime.hits.Load())
	}
	svc.Search(context.Background(), domain.Query{Text: "z"})
	if both.hits.Load() != 4 || anime.hits.Load() != 2 {
		t.Fatalf("any search: tmdb=%d jikan=%d", both.hits.Load(), anime.hits.Load())
	}
	if skipped.hits.Load() != 0 {
		t.Fatal("expected disabled provider to be skipped")
	}
}

// -----------------------------------------------------------------------------
// Cache
// -----------------------------------------------------------------------------

func TestSearchUsesCacheForEquivalentQueries(t *testing.T) {
	provider := &fakeProvider{name: "tmdb", kinds: []domain.MediaType{domain.MediaTypeMovie}, items: []domain.RawCandidate{movie("The Dark Knight", "2008", "tt0468569")}}
	store := cache.Open(context.Background(), nil, cache.WithLogger(quietLogger()))
	svc := NewService([]Provider{provider}, WithLogger(quietLogger()), WithCache(store))

	first := svc.Search(context.Background(), domain.Query{Text: "The Dark Knight", Type: domain.MediaTypeMovie})
	second := svc.Search(context.Background(), domain.Query{Text: "dark knight, the", Type: domain.MediaTypeMovie})
	if first.Cached || !second.Cached {
		t.Fatalf("expected second call to be served from cache (first=%v second=%v)", first.Cached, second.Cached)
	}
	if provider.hits.Load() != 1 {
		t.Fatalf("expected one upstream call, got %d", provider.hits.Load())
	}
	if len(second.Items) != 1 || second.Items[0].UniversalID != "tt0468569" {
		t.Fatalf("unexpected cached items %+v", second.Items)
	}
}

func TestSearchDoesNotCacheEmptyResults(t *testing.T) {
	provider := &fakeProvider{name: "tmdb", kinds: []domain.MediaType{domain.MediaTypeMovie}}
	store := cache.Open(context.Background(), nil, cache.WithLogger(quietLogger()))
	svc := NewService([]Provider{provider}, WithLogger(quietLogger()), WithCache(store))

	svc.Search(context.Background(), domain.Query{Text: "nothing"})
	svc.Search(context.Background(), domain.Query{Text: "nothing"})
	if provider.hits.Load() != 2 {
		t.Fatalf("expected empty results to bypass cache, got %d calls", provider.hits.Load())
	}
}

func TestSearchDoesNotCacheDegradedResults(t *testing.T) {
	healthy := &fakeProvider{name: "tmdb", kinds: []domain.MediaType{domain.MediaTypeMovie}, items: []domain.RawCandidate{movie("Parasite", "2019", "tt6751668")}}
	flaky := &failingProvider{name: "omdb", err: errors.New("upstream timeout")}
	store := cache.Open(context.Background(), nil, cache.WithLogger(quietLogger()))
	svc := NewService([]Provider{healthy, flaky}, WithLogger(quietLogger()), WithCache(store))
	query := domain.Query{Text: "Parasite", Year: "2019", Type: domain.MediaTypeMovie}

	first := svc.Search(context.Background(), query)
	if len(first.Items) != 1 || first.Cached {
		t.Fatalf("degraded search = %+v", first)
	}

	flaky.err = nil
	second := svc.Search(context.Background(), query)
	if second.Cached {
		t.Fatalf("degraded result was served from cache after the source recovered")
	}
	if flaky.calls.Load() != 2 {
		t.Fatalf("recovered source calls = %d, want 2", flaky.calls.Load())
	}

	third := svc.Search(context.Background(), query)
	if !third.Cached {
		t.Fatalf("expected complete result to be cached")
	}
	if healthy.hits.Load() != 2 {
		t.Fatalf("healthy source calls = %d, want 2", healthy.hits.Load())
	}
}

// -----------------------------------------------------------------------------
// Health
// -----------------------------------------------------------------------------

func TestCatalogCoolsDownAfterRepeatedFailures(t *testing.T) {
	failing := &failingProvider{name: "omdb", err: ErrSourceUnavailable}
	svc := NewService([]Provider{failing}, WithLogger(quietLogger()))

	var last domain.SearchResponse
	for i := 0; i < coolingStreak+2; i++ {
		last = svc.Search(context.Background(), domain.Query{Text: "q"})
	}
	if got := failing.calls.Load(); got != coolingStreak {
		t.Fatalf("expected calls to stop after %d failures, got %d", coolingStreak, got)
	}
	if len(last.Providers) != 1 || last.Providers[0].OK || !strings.Contains(last.Providers[0].Error, "omdb catalog cooling down") {
		t.Fatalf("unexpected status %+v", last.Providers)
	}

	diag := svc.ProviderDiagnostics()
	if len(diag) != 1 || diag[0].State != domain.SourceCooling || diag[0].CoolingUntil == nil {
		t.Fatalf("unexpected diagnostics %+v", diag)
	}
	if diag[0].FailureStreak != coolingStreak || diag[0].Searches != coolingStreak || diag[0].Failures != coolingStreak {
		t.Fatalf("unexpected counters %+v", diag[0])
	}
}

func TestCatalogRecoversOnceCooldownPasses(t *testing.T) {
	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	flaky := &failingProvider{name: "omdb", err: ErrSourceUnavailable}
	svc := NewService([]Provider{flaky}, WithLogger(quietLogger()))
	svc.now = func() time.Time { return clock }

	for i := 0; i < coolingStreak; i++ {
		svc.Search(context.Background(), domain.Query{Text: "q", Type: domain.MediaTypeMovie})
	}
	clock = clock.Add(coolingBase - time.Second)
	svc.Search(context.Background(), domain.Query{Text: "q", Type: domain.MediaTypeMovie})
	if got := flaky.calls.Load(); got != coolingStreak {
		t.Fatalf("catalog queried while cooling: %d calls", got)
	}

	clock = clock.Add(2 * time.Second)
	flaky.err = nil
	svc.Search(context.Background(), domain.Query{Text: "q", Type: domain.MediaTypeMovie})
	if got := flaky.calls.Load(); got != coolingStreak+1 {
		t.Fatalf("expected catalog to be asked again, got %d calls", got)
	}

	diag := svc.ProviderDiagnostics()[0]
	if diag.State != domain.SourceReady || diag.FailureStreak != 0 || diag.LastError != "" || diag.CoolingUntil != nil {
		t.Fatalf("expected recovered catalog, got %+v", diag)
	}
	if diag.Failures != coolingStreak || diag.LastFailureAt == nil || diag.LastSuccessAt == nil || !diag.LastSuccessAt.Equal(clock) {
		t.Fatalf("expected failure history kept, got %+v", diag)
	}
}

func TestDiagnosticsLabelEachCatalog(t *testing.T) {
	tmdb := &fakeProvider{
		name:  "tmdb",
		kinds: []domain.MediaType{domain.MediaTypeMovie},
		items: []domain.RawCandidate{
			{Source: "tmdb", SourceID: "1", Title: "Parasite", Year: "2019"},
			{Source: "tmdb", SourceID: "2", Title: "Parasite Eve", Year: "1997"},
		},
	}
	omdb := &failingProvider{name: "omdb", err: ErrSourceUnavailable}
	mdl := &disabledProvider{fakeProvider{name: "mdl", kinds: []domain.MediaType{domain.MediaTypeSeries}}}
	svc := NewService([]Provider{tmdb, omdb, mdl}, WithLogger(quietLogger()))

	svc.Search(context.Background(), domain.Query{Text: "parasite", Type: domain.MediaTypeMovie})

	diag := svc.ProviderDiagnostics()
	if len(diag) != 3 {
		t.Fatalf("expected 3 catalogs, got %+v", diag)
	}
	byName := make(map[string]domain.ProviderDiagnostics, len(diag))
	for _, item := range diag {
		byName[item.Name] = item
	}
	if got := byName["tmdb"]; got.State != domain.SourceReady || got.CandidatesServed != 2 || got.LastKind != domain.MediaTypeMovie || got.LastQuery != "parasite" {
		t.Fatalf("unexpected tmdb diagnostics %+v", got)
	}
	if got := byName["omdb"]; got.State != domain.SourceDegraded || got.FailureStreak != 1 || got.CoolingUntil != nil || got.LastError == "" {
		t.Fatalf("unexpected omdb diagnostics %+v", got)
	}
	if got := byName["mdl"]; got.State != domain.SourceNoCredentials || got.Searches != 0 {
		t.Fatalf("unexpected mdl diagnostics %+v", got)
	}
}

func TestCooldownAfter(t *testing.T) {
	if got := cooldownAfter(coolingStreak - 1); got != 0 {
		t.Fatalf("expected no cooldown below the streak, got %s", got)
	}
	if got := cooldownAfter(coolingStreak); got != coolingBase {
		t.Fatalf("expected base cooldown, got %s", got)
	}
	if got := cooldownAfter(coolingStreak + 1); got != 2*coolingBase {
		t.Fatalf("expected doubled cooldown, got %s", got)
	}
	if got := cooldownAfter(coolingStreak + 10); got != coolingCeiling {
		t.Fatalf("expected capped cooldown, got %s", got)
	}
}

func TestThrottleWaitHonoursContext(t *testing.T) {
	svc := NewService(nil, WithProviderRateLimit("jikan", 0.001, 1))
	ctx, cancel := context.WithCancel(context.Background())
	if err := svc.throttle.wait(ctx, "jikan"); err != nil {
		t.Fatalf("first token should be available: %v", err)
	}
	cancel()
	if err := svc.throttle.wait(ctx, "Jikan"); !errors.Is(err, errRateLimitWait) {
		t.Fatalf("expected cancelled wait to fail, got %v", err)
	}
	if err := svc.throttle.wait(context.Background(), "unlimited"); err != nil {
		t.Fatalf("unexpected error for unlimited catalog: %v", err)
	}
}
