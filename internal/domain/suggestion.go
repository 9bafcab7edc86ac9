package domain

import "time"

type SuggestionStatus string

const (
	SuggestionPending  SuggestionStatus = "pending"
	SuggestionApproved SuggestionStatus = "approved"
	SuggestionRejected SuggestionStatus = "rejected"
)

// Suggestion is a user-submitted content correction awaiting moderation.
type Suggestion struct {
	ID          string           `json:"id"`
	UniversalID string           `json:"imdbId,omitempty"`
	Title       string           `json:"title"`
	Field       string           `json:"field,omitempty"`
	Value       string           `json:"value,omitempty"`
	Note        string           `json:"note,omitempty"`
	SubmittedBy string           `json:"submittedBy,omitempty"`
	Status      SuggestionStatus `json:"status"`
	CreatedAt   time.Time        `json:"createdAt"`
	ReviewedAt  *time.Time       `json:"reviewedAt,omitempty"`
	ReviewedBy  string           `json:"reviewedBy,omitempty"`
}
