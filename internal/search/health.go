package search

import (
	"sort"
	"strings"
	"sync"
	"time"

	"titlevault/internal/domain"
	"titlevault/internal/metrics"
)

// A catalog that fails coolingStreak searches in a row is skipped for
// coolingBase, doubled for every further failure up to coolingCeiling.
const (
	coolingStreak  = 3
	coolingBase    = 2 * time.Minute
	coolingCeiling = 15 * time.Minute
)

// sourceOutcome is what one catalog returned for one search of one kind.
type sourceOutcome struct {
	kind    domain.MediaType
	query   string
	found   int
	err     error
	latency time.Duration
}

type sourceRecord struct {
	streak     int
	coolUntil  time.Time
	lastErr    string
	lastOK     time.Time
	lastFail   time.Time
	latency    time.Duration
	lastQuery  string
	lastKind   domain.MediaType
	searches   int64
	failures   int64
	candidates int64
}

// sourceLedger keeps per-catalog outcomes for search fan-out.
type sourceLedger struct {
	mu      sync.Mutex
	records map[string]*sourceRecord
}

func newSourceLedger() *sourceLedger {
	return &sourceLedger{records: make(map[string]*sourceRecord)}
}

func ledgerKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// cooling reports whether the catalog is sitting out searches at now,
// with the deadline and the failure that put it there.
func (l *sourceLedger) cooling(name string, now time.Time) (time.Time, string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec := l.records[ledgerKey(name)]
	if rec == nil || rec.coolUntil.IsZero() || !now.Before(rec.coolUntil) {
		return time.Time{}, "", false
	}
	return rec.coolUntil, rec.lastErr, true
}

func (l *sourceLedger) record(name string, outcome sourceOutcome, now time.Time) {
	key := ledgerKey(name)
	if key == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	rec := l.records[key]
	if rec == nil {
		rec = &sourceRecord{}
		l.records[key] = rec
	}
	rec.searches++
	rec.lastQuery = strings.TrimSpace(outcome.query)
	rec.lastKind = outcome.kind
	if outcome.latency > 0 {
		rec.latency = outcome.latency
		metrics.ProviderRequestDuration.WithLabelValues(key).Observe(outcome.latency.Seconds())
	}

	if outcome.err == nil {
		*rec = sourceRecord{
			lastOK:     now,
			lastFail:   rec.lastFail,
			latency:    rec.latency,
			lastQuery:  rec.lastQuery,
			lastKind:   rec.lastKind,
			searches:   rec.searches,
			failures:   rec.failures,
			candidates: rec.candidates + int64(outcome.found),
		}
		metrics.ProviderRequestsTotal.WithLabelValues(key, "ok").Inc()
		metrics.ProviderAvailable.WithLabelValues(key).Set(1)
		return
	}

	rec.streak++
	rec.failures++
	rec.lastFail = now
	rec.lastErr = outcome.err.Error()
	metrics.ProviderRequestsTotal.WithLabelValues(key, "error").Inc()
	if cooldown := cooldownAfter(rec.streak); cooldown > 0 {
		rec.coolUntil = now.Add(cooldown)
		metrics.ProviderAvailable.WithLabelValues(key).Set(0)
	}
}

// cooldownAfter is zero below the streak threshold.
func cooldownAfter(streak int) time.Duration {
	if streak < coolingStreak {
		return 0
	}
	cooldown := coolingBase
	for extra := streak - coolingStreak; extra > 0; extra-- {
		cooldown *= 2
		if cooldown >= coolingCeiling {
			return coolingCeiling
		}
	}
	return cooldown
}

func (l *sourceLedger) diagnose(info domain.ProviderInfo, now time.Time) domain.ProviderDiagnostics {
	item := domain.ProviderDiagnostics{
		Name:    info.Name,
		Label:   info.Label,
		Enabled: info.Enabled,
		State:   domain.SourceReady,
	}
	if !info.Enabled {
		item.State = domain.SourceNoCredentials
	}

	l.mu.Lock()
	rec := l.records[ledgerKey(info.Name)]
	if rec == nil {
		l.mu.Unlock()
		return item
	}
	snapshot := *rec
	l.mu.Unlock()

	item.FailureStreak = snapshot.streak
	item.LastError = snapshot.lastErr
	item.LastLatencyMS = snapshot.latency.Milliseconds()
	item.LastQuery = snapshot.lastQuery
	item.LastKind = snapshot.lastKind
	item.Searches = snapshot.searches
	item.Failures = snapshot.failures
	item.CandidatesServed = snapshot.candidates
	item.LastSuccessAt = timePtr(snapshot.lastOK)
	item.LastFailureAt = timePtr(snapshot.lastFail)
	item.CoolingUntil = timePtr(snapshot.coolUntil)

	if item.State == domain.SourceNoCredentials {
		return item
	}
	switch {
	case !snapshot.coolUntil.IsZero() && now.Before(snapshot.coolUntil):
		item.State = domain.SourceCooling
	case snapshot.streak > 0:
		item.State = domain.SourceDegraded
	}
	return item
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// ProviderDiagnostics reports every registered catalog, sorted by name.
func (s *Service) ProviderDiagnostics() []domain.ProviderDiagnostics {
	infos := s.Providers()
	if len(infos) == 0 {
		return nil
	}
	now := s.now()
	items := make([]domain.ProviderDiagnostics, 0, len(infos))
	for _, info := range infos {
		items = append(items, s.sources.diagnose(info, now))
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Name < items[j].Name
	})
	return items
}
