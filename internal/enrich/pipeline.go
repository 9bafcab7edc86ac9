// Package enrich attaches optional metadata to an identified title by
// running a fixed sequence of independent stages.
package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"titlevault/internal/cache"
	"titlevault/internal/domain"
	"titlevault/internal/metrics"
	"titlevault/internal/providers/omdb"
	"titlevault/internal/providers/tmdb"
	"titlevault/internal/providers/tvmaze"
	"titlevault/internal/region"
)

const recordCachePrefix = "record|"

// BaseSource hydrates a record's descriptive fields by universal id.
type BaseSource interface {
	Detail(ctx context.Context, imdbID string) (omdb.Detail, bool)
}

// ScheduleSource serves episode lists and cast for series.
type ScheduleSource interface {
	Lookup(ctx context.Context, imdbID string) (tvmaze.Show, bool)
	Episodes(ctx context.Context, showID int) ([]tvmaze.Episode, bool)
	Cast(ctx context.Context, showID int) ([]tvmaze.CastCredit, bool)
}

// CatalogSource serves credits, details and images from the general
// catalog.
type CatalogSource interface {
	Find(ctx context.Context, imdbID string, series bool) (string, bool)
	Credits(ctx context.Context, id string, series bool) (tmdb.Credits, bool)
	Details(ctx context.Context, id string, series bool) (tmdb.Details, bool)
	Images(ctx context.Context, id string, series bool) (tmdb.Images, bool)
	ImageURL(size, path string) string
	ProfileURL(path string) string
}

// Resolver looks a title up live in a registry-backed source.
type Resolver interface {
	Source() string
	Resolve(ctx context.Context, title string) (domain.Resolution, bool)
}

// RegistryStore persists resolved payloads and id mappings.
type RegistryStore interface {
	LookupMapping(ctx context.Context, universalID, source string) (domain.IDMapping, error)
	GetEntry(ctx context.Context, source, sourceID string) (domain.RegistryEntry, error)
	UpsertEntry(ctx context.Context, entry domain.RegistryEntry) error
	UpsertMapping(ctx context.Context, mapping domain.IDMapping) error
}

// Contribution is what one stage adds to a record.
type Contribution struct {
	Keys  []string
	apply func(*domain.CanonicalRecord)
}

// StageResult is the outcome of one stage. A nil Contribution with no
// error means the stage had nothing to add.
type StageResult struct {
	Stage        string
	Contribution *Contribution
	Skipped      bool
	Err          error
}

type classification struct {
	series    bool
	animation bool
	asian     bool
}

type stage struct {
	name string
	run  func(ctx context.Context, record domain.CanonicalRecord, class classification, caller domain.Caller) StageResult
}

type Pipeline struct {
	base       BaseSource
	schedule   ScheduleSource
	catalog    CatalogSource
	anime      Resolver
	regional   Resolver
	registry   RegistryStore
	classifier *region.Classifier
	cache      *cache.Store
	logger     *slog.Logger
	now        func() time.Time
	stages     []stage
}

type Option func(*Pipeline)

func WithBaseSource(source BaseSource) Option {
	return func(p *Pipeline) { p.base = source }
}

func WithScheduleSource(source ScheduleSource) Option {
	return func(p *Pipeline) { p.schedule = source }
}

func WithCatalogSource(source CatalogSource) Option {
	return func(p *Pipeline) { p.catalog = source }
}

func WithAnimeResolver(resolver Resolver) Option {
	return func(p *Pipeline) { p.anime = resolver }
}

func WithRegionalResolver(resolver Resolver) Option {
	return func(p *Pipeline) { p.regional = resolver }
}

func WithRegistry(store RegistryStore) Option {
	return func(p *Pipeline) { p.registry = store }
}

func WithClassifier(classifier *region.Classifier) Option {
	return func(p *Pipeline) {
		if classifier != nil {
			p.classifier = classifier
		}
	}
}

func WithCache(store *cache.Store) Option {
	return func(p *Pipeline) { p.cache = store }
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{
		classifier: region.NewClassifier(region.DefaultWeights()),
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.stages = []stage{
		{name: "anime", run: p.animeStage},
		{name: "schedule", run: p.scheduleStage},
		{name: "regional", run: p.regionalStage},
		{name: "catalog", run: p.catalogStage},
	}
	return p
}

var animationPattern = regexp.MustCompile(`(?i)animation`)

// Enrich returns a copy of record with every applicable stage folded in.
// It never fails: a stage that errors contributes nothing and the others
// still run. A cached result is returned unless force is set; only
// privileged callers refresh the cache.
func (p *Pipeline) Enrich(ctx context.Context, record domain.CanonicalRecord, caller domain.Caller, force bool) domain.CanonicalRecord {
	cacheKey := ""
	if id := strings.TrimSpace(record.UniversalID); id != "" {
		cacheKey = recordCachePrefix + id
	}
	if p.cache != nil && cacheKey != "" && !force {
		var cached domain.CanonicalRecord
		if p.cache.Get(ctx, cacheKey, &cached) {
			p.logger.Debug("enrichment cache hit", slog.String("imdbId", record.UniversalID))
			return cached
		}
	}

	out := cloneRecord(record)
	var provenance []domain.Provenance
	fold := func(result StageResult) {
		if p.applyResult(&out, result) {
			provenance = append(provenance, domain.Provenance{Stage: result.Stage, Keys: result.Contribution.Keys})
		}
	}

	fold(p.runStage(ctx, stage{name: "base", run: p.baseStage}, out, classification{}, caller))

	class := p.classify(&out)
	for _, st := range p.stages {
		fold(p.runStage(ctx, st, out, class, caller))
	}

	sources := make([]string, 0, len(provenance))
	for _, entry := range provenance {
		sources = append(sources, entry.Keys...)
	}
	enrichedAt := p.now().UTC()
	out.EnrichmentSources = sources
	out.Provenance = provenance
	out.Enriched = true
	out.EnrichedAt = &enrichedAt

	// The cached record is served to every caller, so only privileged
	// callers may write it.
	if p.cache != nil && cacheKey != "" && caller.Privileged {
		p.cache.Set(ctx, cacheKey, out)
	}
	return out
}

// runStage shields the pipeline from a stage panicking.
func (p *Pipeline) runStage(ctx context.Context, st stage, record domain.CanonicalRecord, class classification, caller domain.Caller) (result StageResult) {
	defer func() {
		if recovered := recover(); recovered != nil {
			result = StageResult{Stage: st.name, Err: fmt.Errorf("stage panicked: %v", recovered)}
		}
	}()
	if err := ctx.Err(); err != nil {
		return StageResult{Stage: st.name, Err: err}
	}
	result = st.run(ctx, record, class, caller)
	result.Stage = st.name
	return result
}

// applyResult folds one stage outcome into out and reports whether it
// contributed.
func (p *Pipeline) applyResult(out *domain.CanonicalRecord, result StageResult) bool {
	switch {
	case result.Err != nil:
		metrics.EnrichmentStagesTotal.WithLabelValues(result.Stage, "failed").Inc()
		p.logger.Warn("enrichment stage failed",
			slog.String("stage", result.Stage),
			slog.String("imdbId", out.UniversalID),
			slog.String("error", result.Err.Error()),
		)
		return false
	case result.Skipped:
		metrics.EnrichmentStagesTotal.WithLabelValues(result.Stage, "skipped").Inc()
		return false
	case result.Contribution == nil:
		metrics.EnrichmentStagesTotal.WithLabelValues(result.Stage, "empty").Inc()
		return false
	}
	result.Contribution.apply(out)
	metrics.EnrichmentStagesTotal.WithLabelValues(result.Stage, "contributed").Inc()
	return true
}

func (p *Pipeline) classify(record *domain.CanonicalRecord) classification {
	verdict := p.classifier.Classify(record.Country, record.Language, record.Genre)
	record.Meta.Region = &verdict
	return classification{
		series:    record.Type == domain.MediaTypeSeries || record.Type == domain.MediaTypeAnime,
		animation: animationPattern.MatchString(record.Genre),
		asian:     verdict.Decision,
	}
}

func skipped() StageResult {
	return StageResult{Skipped: true}
}

func contributed(keys []string, apply func(*domain.CanonicalRecord)) StageResult {
	return StageResult{Contribution: &Contribution{Keys: keys, apply: apply}}
}

// cloneRecord copies the parts stages replace so the caller's record is
// never modified.
func cloneRecord(record domain.CanonicalRecord) domain.CanonicalRecord {
	out := record
	if record.Catalog != nil {
		catalog := *record.Catalog
		out.Catalog = &catalog
	}
	if record.Meta.Region != nil {
		verdict := *record.Meta.Region
		out.Meta.Region = &verdict
	}
	out.Ratings = append([]domain.ExternalRating(nil), record.Ratings...)
	out.EnrichmentSources = nil
	out.Provenance = nil
	return out
}
