// Package cache implements a versioned key-value cache with sliding TTL
// and least-recently-accessed eviction over a pluggable medium.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"titlevault/internal/metrics"
)

const (
	DefaultVersion    = "v1"
	DefaultPrefix     = "titlevault:cache:"
	DefaultTTL        = 30 * 24 * time.Hour
	DefaultMaxEntries = 500

	probeKey = "__storage_probe__"
)

// envelope is the stored form of every entry. Times are unix milliseconds.
type envelope struct {
	Version      string          `json:"v"`
	Value        json.RawMessage `json:"value"`
	ExpiresAt    int64           `json:"expiresAt"`
	LastAccessed int64           `json:"lastAccessed"`
}

type Stats struct {
	Backend        string `json:"backend"`
	TotalEntries   int    `json:"totalEntries"`
	ExpiredEntries int    `json:"expiredEntries"`
	MaxEntries     int    `json:"maxEntries"`
}

// Store is safe for concurrent use. Every read-modify-write cycle runs
// under one lock so sliding refreshes and evictions never interleave.
type Store struct {
	mu         sync.Mutex
	backend    Backend
	version    string
	prefix     string
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
	logger     *slog.Logger
}

type Option func(*Store)

func WithVersion(version string) Option {
	return func(s *Store) {
		if strings.TrimSpace(version) != "" {
			s.version = version
		}
	}
}

func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if strings.TrimSpace(prefix) != "" {
			s.prefix = prefix
		}
	}
}

func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithMaxEntries(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxEntries = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Open probes preferred with a write/read/delete round trip and falls back
// to an in-process map when the medium is nil or unusable.
func Open(ctx context.Context, preferred Backend, opts ...Option) *Store {
	s := &Store{
		version:    DefaultVersion,
		prefix:     DefaultPrefix,
		ttl:        DefaultTTL,
		maxEntries: DefaultMaxEntries,
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.backend = s.selectBackend(ctx, preferred)
	return s
}

func (s *Store) selectBackend(ctx context.Context, preferred Backend) Backend {
	if preferred == nil {
		return NewMemoryBackend()
	}
	if err := probe(ctx, preferred, s.prefix+probeKey); err != nil {
		s.logger.Warn("cache backend unavailable, using in-memory store",
			slog.String("backend", preferred.Name()),
			slog.String("error", err.Error()),
		)
		return NewMemoryBackend()
	}
	return preferred
}

func probe(ctx context.Context, backend Backend, key string) error {
	if err := backend.Ping(ctx); err != nil {
		return err
	}
	if err := backend.Set(ctx, key, []byte("1")); err != nil {
		return err
	}
	if _, _, err := backend.Get(ctx, key); err != nil {
		return err
	}
	return backend.Delete(ctx, key)
}

func (s *Store) BackendName() string {
	return s.backend.Name()
}

// Get decodes the live entry for key into out and slides its expiry.
// Expired, version-mismatched and corrupt entries are deleted and
// reported as absent.
func (s *Store) Get(ctx context.Context, key string, out any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	fullKey := s.prefix + key
	raw, ok, err := s.backend.Get(ctx, fullKey)
	if err != nil {
		s.logger.Warn("cache read failed", slog.String("key", key), slog.String("error", err.Error()))
		metrics.CacheMissesTotal.Inc()
		return false
	}
	if !ok {
		metrics.CacheMissesTotal.Inc()
		return false
	}

	now := s.now()
	var entry envelope
	if err := json.Unmarshal(raw, &entry); err != nil {
		s.purge(ctx, fullKey, "corrupt")
		metrics.CacheMissesTotal.Inc()
		return false
	}
	if reason := s.staleReason(entry, now); reason != "" {
		s.purge(ctx, fullKey, reason)
		metrics.CacheMissesTotal.Inc()
		return false
	}
	if err := json.Unmarshal(entry.Value, out); err != nil {
		s.purge(ctx, fullKey, "corrupt")
		metrics.CacheMissesTotal.Inc()
		return false
	}

	entry.ExpiresAt = now.Add(s.ttl).UnixMilli()
	entry.LastAccessed = now.UnixMilli()
	s.write(ctx, fullKey, entry)
	metrics.CacheHitsTotal.Inc()
	return true
}

// Set stores value under key with a fresh TTL, then trims the store back
// to its ceiling.
func (s *Store) Set(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("cache encode failed", slog.String("key", key), slog.String("error", err.Error()))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.write(ctx, s.prefix+key, envelope{
		Version:      s.version,
		Value:        data,
		ExpiresAt:    now.Add(s.ttl).UnixMilli(),
		LastAccessed: now.UnixMilli(),
	})
	s.evictOverflowLocked(ctx)
}

func (s *Store) Delete(ctx context.Context, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.backend.Delete(ctx, s.prefix+key); err != nil {
		s.logger.Warn("cache delete failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

// EvictOverflow removes least-recently-accessed entries until the store
// holds at most its configured ceiling. It returns how many were removed.
func (s *Store) EvictOverflow(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evictOverflowLocked(ctx)
}

// EvictExpired removes every expired, version-mismatched or corrupt entry.
func (s *Store) EvictExpired(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys, err := s.backend.Keys(ctx, s.prefix)
	if err != nil {
		s.logger.Warn("cache sweep failed", slog.String("error", err.Error()))
		return 0
	}
	now := s.now()
	removed := 0
	for _, key := range keys {
		entry, ok := s.load(ctx, key)
		reason := "corrupt"
		if ok {
			reason = s.staleReason(entry, now)
		}
		if reason == "" {
			continue
		}
		s.purge(ctx, key, reason)
		removed++
	}
	return removed
}

func (s *Store) Stats(ctx context.Context) Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Stats{Backend: s.backend.Name(), MaxEntries: s.maxEntries}
	keys, err := s.backend.Keys(ctx, s.prefix)
	if err != nil {
		s.logger.Warn("cache stats failed", slog.String("error", err.Error()))
		return stats
	}
	now := s.now()
	stats.TotalEntries = len(keys)
	for _, key := range keys {
		entry, ok := s.load(ctx, key)
		if !ok || now.UnixMilli() > entry.ExpiresAt {
			stats.ExpiredEntries++
		}
	}
	return stats
}

func (s *Store) evictOverflowLocked(ctx context.Context) int {
	keys, err := s.backend.Keys(ctx, s.prefix)
	if err != nil {
		s.logger.Warn("cache size check failed", slog.String("error", err.Error()))
		return 0
	}
	if len(keys) <= s.maxEntries {
		return 0
	}

	type aged struct {
		key          string
		lastAccessed int64
	}
	entries := make([]aged, 0, len(keys))
	for _, key := range keys {
		entry, ok := s.load(ctx, key)
		if !ok {
			entries = append(entries, aged{key: key})
			continue
		}
		entries = append(entries, aged{key: key, lastAccessed: entry.LastAccessed})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].lastAccessed < entries[j].lastAccessed
	})

	overflow := len(entries) - s.maxEntries
	for i := 0; i < overflow; i++ {
		s.purge(ctx, entries[i].key, "lru")
	}
	return overflow
}

func (s *Store) staleReason(entry envelope, now time.Time) string {
	if entry.Version != s.version {
		return "version"
	}
	if now.UnixMilli() > entry.ExpiresAt {
		return "expired"
	}
	return ""
}

func (s *Store) load(ctx context.Context, fullKey string) (envelope, bool) {
	raw, ok, err := s.backend.Get(ctx, fullKey)
	if err != nil || !ok {
		return envelope{}, false
	}
	var entry envelope
	if err := json.Unmarshal(raw, &entry); err != nil {
		return envelope{}, false
	}
	return entry, true
}

func (s *Store) write(ctx context.Context, fullKey string, entry envelope) {
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := s.backend.Set(ctx, fullKey, data); err != nil {
		s.logger.Warn("cache write failed",
			slog.String("key", strings.TrimPrefix(fullKey, s.prefix)),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Store) purge(ctx context.Context, fullKey, reason string) {
	if err := s.backend.Delete(ctx, fullKey); err != nil {
		s.logger.Warn("cache purge failed", slog.String("key", fullKey), slog.String("error", err.Error()))
		return
	}
	metrics.CacheEvictionsTotal.WithLabelValues(reason).Inc()
	s.logger.Debug("cache entry purged", slog.String("key", fullKey), slog.String("reason", reason))
}
