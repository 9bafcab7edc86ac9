package domain

import "time"

// RegistryEntry is a persisted external payload for one source record.
type RegistryEntry struct {
	Source       string         `json:"source"`
	SourceID     string         `json:"sourceId"`
	Payload      map[string]any `json:"payload"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	OverriddenBy string         `json:"overriddenBy,omitempty"`
}

// IDMapping links a universal identifier to one source-specific record.
type IDMapping struct {
	UniversalID string    `json:"imdbId"`
	Source      string    `json:"source"`
	SourceID    string    `json:"sourceId"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Resolution is a live lookup result from a registry-backed source.
type Resolution struct {
	SourceID string
	Payload  map[string]any
}
