package domain

import "time"

type ProviderInfo struct {
	Name    string      `json:"name"`
	Label   string      `json:"label"`
	Kinds   []MediaType `json:"kinds"`
	Enabled bool        `json:"enabled"`
}

type ProviderStatus struct {
	Name  string    `json:"name"`
	Type  MediaType `json:"type,omitempty"`
	OK    bool      `json:"ok"`
	Count int       `json:"count"`
	Error string    `json:"error,omitempty"`
}

// SourceState summarizes whether a catalog is currently being queried.
type SourceState string

const (
	SourceReady SourceState = "ready"
	// SourceDegraded sources have failed recently but are still queried.
	SourceDegraded SourceState = "degraded"
	// SourceCooling sources are skipped until CoolingUntil passes.
	SourceCooling       SourceState = "cooling"
	SourceNoCredentials SourceState = "no-credentials"
)

type ProviderDiagnostics struct {
	Name             string      `json:"name"`
	Label            string      `json:"label"`
	Enabled          bool        `json:"enabled"`
	State            SourceState `json:"state"`
	FailureStreak    int         `json:"failureStreak"`
	CoolingUntil     *time.Time  `json:"coolingUntil,omitempty"`
	LastError        string      `json:"lastError,omitempty"`
	LastSuccessAt    *time.Time  `json:"lastSuccessAt,omitempty"`
	LastFailureAt    *time.Time  `json:"lastFailureAt,omitempty"`
	LastLatencyMS    int64       `json:"lastLatencyMs"`
	LastQuery        string      `json:"lastQuery,omitempty"`
	LastKind         MediaType   `json:"lastKind,omitempty"`
	Searches         int64       `json:"searches"`
	Failures         int64       `json:"failures"`
	CandidatesServed int64       `json:"candidatesServed"`
}
