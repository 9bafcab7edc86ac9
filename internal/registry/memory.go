// Package registry holds the persistent side of the core: resolved
// external payloads, universal-id mappings and content suggestions.
package registry

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"titlevault/internal/domain"
)

// MemoryStore is an in-process registry used when no database is
// configured and in tests.
type MemoryStore struct {
	mu          sync.RWMutex
	entries     map[string]domain.RegistryEntry
	mappings    map[string]domain.IDMapping
	suggestions map[string]domain.Suggestion
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries:     make(map[string]domain.RegistryEntry),
		mappings:    make(map[string]domain.IDMapping),
		suggestions: make(map[string]domain.Suggestion),
	}
}

func entryKey(source, sourceID string) string {
	return strings.ToLower(strings.TrimSpace(source)) + "|" + strings.TrimSpace(sourceID)
}

func mappingKey(universalID, source string) string {
	return strings.TrimSpace(universalID) + "|" + strings.ToLower(strings.TrimSpace(source))
}

func (s *MemoryStore) LookupMapping(_ context.Context, universalID, source string) (domain.IDMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mapping, ok := s.mappings[mappingKey(universalID, source)]
	if !ok {
		return domain.IDMapping{}, domain.ErrNotFound
	}
	return mapping, nil
}

func (s *MemoryStore) GetEntry(_ context.Context, source, sourceID string) (domain.RegistryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[entryKey(source, sourceID)]
	if !ok {
		return domain.RegistryEntry{}, domain.ErrNotFound
	}
	entry.Payload = clonePayload(entry.Payload)
	return entry, nil
}

func (s *MemoryStore) UpsertEntry(_ context.Context, entry domain.RegistryEntry) error {
	if strings.TrimSpace(entry.Source) == "" || strings.TrimSpace(entry.SourceID) == "" {
		return domain.ErrInvalidInput
	}
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = time.Now().UTC()
	}
	entry.Payload = clonePayload(entry.Payload)
	s.mu.Lock()
	s.entries[entryKey(entry.Source, entry.SourceID)] = entry
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) UpsertMapping(_ context.Context, mapping domain.IDMapping) error {
	if strings.TrimSpace(mapping.UniversalID) == "" || strings.TrimSpace(mapping.Source) == "" {
		return domain.ErrInvalidInput
	}
	if mapping.UpdatedAt.IsZero() {
		mapping.UpdatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	s.mappings[mappingKey(mapping.UniversalID, mapping.Source)] = mapping
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) InsertSuggestion(_ context.Context, suggestion domain.Suggestion) error {
	if strings.TrimSpace(suggestion.ID) == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	s.suggestions[suggestion.ID] = suggestion
	s.mu.Unlock()
	return nil
}

// ListSuggestions returns suggestions with the given status, oldest first.
func (s *MemoryStore) ListSuggestions(_ context.Context, status domain.SuggestionStatus) ([]domain.Suggestion, error) {
	s.mu.RLock()
	items := make([]domain.Suggestion, 0, len(s.suggestions))
	for _, suggestion := range s.suggestions {
		if suggestion.Status == status {
			items = append(items, suggestion)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

func (s *MemoryStore) ReviewSuggestion(_ context.Context, id string, status domain.SuggestionStatus, reviewer string, at time.Time) (domain.Suggestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	suggestion, ok := s.suggestions[id]
	if !ok {
		return domain.Suggestion{}, domain.ErrNotFound
	}
	reviewedAt := at.UTC()
	suggestion.Status = status
	suggestion.ReviewedBy = reviewer
	suggestion.ReviewedAt = &reviewedAt
	s.suggestions[id] = suggestion
	return suggestion, nil
}

func clonePayload(payload map[string]any) map[string]any {
	if payload == nil {
		return nil
	}
	out := make(map[string]any, len(payload))
	for key, value := range payload {
		out[key] = value
	}
	return out
}
