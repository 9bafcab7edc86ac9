// Package suggestions moderates user-submitted content corrections.
package suggestions

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"titlevault/internal/domain"
)

// Store is the persistence the service needs. registry.MemoryStore and
// the mongo registry store both satisfy it.
type Store interface {
	InsertSuggestion(ctx context.Context, suggestion domain.Suggestion) error
	ListSuggestions(ctx context.Context, status domain.SuggestionStatus) ([]domain.Suggestion, error)
	ReviewSuggestion(ctx context.Context, id string, status domain.SuggestionStatus, reviewer string, at time.Time) (domain.Suggestion, error)
}

type Service struct {
	store  Store
	now    func() time.Time
	newID  func() string
	logger *slog.Logger
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		now:    time.Now,
		newID:  uuid.NewString,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit queues a suggestion for review. Any caller may submit.
func (s *Service) Submit(ctx context.Context, caller domain.Caller, suggestion domain.Suggestion) (domain.Suggestion, error) {
	suggestion.Title = strings.TrimSpace(suggestion.Title)
	suggestion.UniversalID = strings.TrimSpace(suggestion.UniversalID)
	if suggestion.Title == "" && suggestion.UniversalID == "" {
		return domain.Suggestion{}, fmt.Errorf("suggestion needs a title or imdb id: %w", domain.ErrInvalidInput)
	}

	suggestion.ID = s.newID()
	suggestion.Status = domain.SuggestionPending
	suggestion.CreatedAt = s.now().UTC()
	suggestion.SubmittedBy = strings.TrimSpace(caller.ID)
	suggestion.ReviewedAt = nil
	suggestion.ReviewedBy = ""

	if err := s.store.InsertSuggestion(ctx, suggestion); err != nil {
		return domain.Suggestion{}, fmt.Errorf("insert suggestion: %w", err)
	}
	s.logger.Info("suggestion submitted",
		slog.String("id", suggestion.ID),
		slog.String("submittedBy", suggestion.SubmittedBy),
	)
	return suggestion, nil
}

// ListPending returns the review queue oldest first. Unprivileged callers
// get an empty list.
func (s *Service) ListPending(ctx context.Context, caller domain.Caller) ([]domain.Suggestion, error) {
	if !caller.Privileged {
		return []domain.Suggestion{}, nil
	}
	items, err := s.store.ListSuggestions(ctx, domain.SuggestionPending)
	if err != nil {
		return nil, fmt.Errorf("list suggestions: %w", err)
	}
	if items == nil {
		items = []domain.Suggestion{}
	}
	return items, nil
}

// Approve marks a suggestion approved. For unprivileged callers it does
// nothing and reports applied=false.
func (s *Service) Approve(ctx context.Context, caller domain.Caller, id string) (domain.Suggestion, bool, error) {
	return s.review(ctx, caller, id, domain.SuggestionApproved)
}

// Reject mirrors Approve.
func (s *Service) Reject(ctx context.Context, caller domain.Caller, id string) (domain.Suggestion, bool, error) {
	return s.review(ctx, caller, id, domain.SuggestionRejected)
}

func (s *Service) review(ctx context.Context, caller domain.Caller, id string, status domain.SuggestionStatus) (domain.Suggestion, bool, error) {
	if !caller.Privileged {
		s.logger.Debug("suggestion review ignored for unprivileged caller",
			slog.String("id", id),
			slog.String("caller", caller.ID),
		)
		return domain.Suggestion{}, false, nil
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Suggestion{}, false, domain.ErrInvalidInput
	}
	updated, err := s.store.ReviewSuggestion(ctx, id, status, caller.ID, s.now())
	if err != nil {
		return domain.Suggestion{}, false, fmt.Errorf("review suggestion %s: %w", id, err)
	}
	s.logger.Info("suggestion reviewed",
		slog.String("id", id),
		slog.String("status", string(status)),
		slog.String("reviewedBy", caller.ID),
	)
	return updated, true, nil
}
