package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"titlevault/internal/domain"
)

func TestMemoryStoreEntriesAndMappings(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if _, err := store.LookupMapping(ctx, "tt1", "mdl"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	entry := domain.RegistryEntry{Source: "mdl", SourceID: "42", Payload: map[string]any{"title": "Hometown"}}
	if err := store.UpsertEntry(ctx, entry); err != nil {
		t.Fatalf("UpsertEntry: %v", err)
	}
	if err := store.UpsertMapping(ctx, domain.IDMapping{UniversalID: "tt1", Source: "mdl", SourceID: "42"}); err != nil {
		t.Fatalf("UpsertMapping: %v", err)
	}

	mapping, err := store.LookupMapping(ctx, "tt1", "MDL")
	if err != nil || mapping.SourceID != "42" || mapping.UpdatedAt.IsZero() {
		t.Fatalf("unexpected mapping %+v err=%v", mapping, err)
	}
	if _, err := store.LookupMapping(ctx, "tt1", "mal"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected other source to miss, got %v", err)
	}

	got, err := store.GetEntry(ctx, "mdl", "42")
	if err != nil || got.Payload["title"] != "Hometown" {
		t.Fatalf("unexpected entry %+v err=%v", got, err)
	}
	got.Payload["title"] = "mutated"
	again, _ := store.GetEntry(ctx, "mdl", "42")
	if again.Payload["title"] != "Hometown" {
		t.Fatal("stored payload must not alias caller maps")
	}
}

func TestMemoryStoreRejectsIncompleteKeys(t *testing.T) {
	store := NewMemoryStore()
	if err := store.UpsertEntry(context.Background(), domain.RegistryEntry{Source: "mdl"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if err := store.UpsertMapping(context.Background(), domain.IDMapping{Source: "mdl"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestMemoryStoreSuggestions(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"b", "a", "c"} {
		s := domain.Suggestion{ID: id, Title: id, Status: domain.SuggestionPending, CreatedAt: base.Add(time.Duration(2-i) * time.Hour)}
		if err := store.InsertSuggestion(ctx, s); err != nil {
			t.Fatalf("InsertSuggestion: %v", err)
		}
	}

	pending, _ := store.ListSuggestions(ctx, domain.SuggestionPending)
	if len(pending) != 3 || pending[0].ID != "c" || pending[2].ID != "b" {
		t.Fatalf("expected oldest first, got %+v", pending)
	}

	reviewed, err := store.ReviewSuggestion(ctx, "a", domain.SuggestionApproved, "admin", base)
	if err != nil || reviewed.Status != domain.SuggestionApproved || reviewed.ReviewedBy != "admin" || reviewed.ReviewedAt == nil {
		t.Fatalf("unexpected review %+v err=%v", reviewed, err)
	}
	pending, _ = store.ListSuggestions(ctx, domain.SuggestionPending)
	if len(pending) != 2 {
		t.Fatalf("expected reviewed suggestion to leave the queue, got %d", len(pending))
	}
	if _, err := store.ReviewSuggestion(ctx, "missing", domain.SuggestionRejected, "admin", base); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
