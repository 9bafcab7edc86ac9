package domain

import (
	"encoding/json"
	"strings"
)

type MediaType string

const (
	MediaTypeAny    MediaType = ""
	MediaTypeMovie  MediaType = "movie"
	MediaTypeSeries MediaType = "series"
	MediaTypeAnime  MediaType = "anime"
)

// ParseMediaType maps loose caller input onto a MediaType. Unknown values
// mean "any".
func ParseMediaType(raw string) MediaType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "movie", "film":
		return MediaTypeMovie
	case "series", "tv", "show":
		return MediaTypeSeries
	case "anime":
		return MediaTypeAnime
	default:
		return MediaTypeAny
	}
}

// Includes reports whether a search restricted to t should issue requests
// to a source serving kind. Anime sources answer series searches too.
func (t MediaType) Includes(kind MediaType) bool {
	switch {
	case t == MediaTypeAny || t == kind:
		return true
	case t == MediaTypeSeries && kind == MediaTypeAnime:
		return true
	default:
		return false
	}
}

type Query struct {
	Text string    `json:"query"`
	Year string    `json:"year,omitempty"`
	Type MediaType `json:"type,omitempty"`
}

// RawCandidate is one normalized hit from one source.
type RawCandidate struct {
	Source      string          `json:"source"`
	SourceID    string          `json:"sourceId,omitempty"`
	CatalogID   string          `json:"catalogId,omitempty"`
	UniversalID string          `json:"imdbId,omitempty"`
	Title       string          `json:"title"`
	Year        string          `json:"year,omitempty"`
	Type        MediaType       `json:"type"`
	Plot        string          `json:"plot,omitempty"`
	Poster      string          `json:"poster,omitempty"`
	Popularity  *float64        `json:"popularity,omitempty"`
	Votes       *float64        `json:"votes,omitempty"`
	Raw         json.RawMessage `json:"raw,omitempty"`
}

type ScoredCandidate struct {
	RawCandidate
	Score   int      `json:"score"`
	Reasons []string `json:"reasons,omitempty"`
}

// Cluster holds candidates believed to denote the same title. Key is the
// shared universal identifier, empty for singletons.
type Cluster struct {
	Key     string            `json:"key,omitempty"`
	Members []ScoredCandidate `json:"members"`
}

type MergedResult struct {
	Title       string    `json:"title"`
	Year        string    `json:"year,omitempty"`
	UniversalID string    `json:"imdbId,omitempty"`
	CatalogID   string    `json:"catalogId,omitempty"`
	Type        MediaType `json:"type"`
	Plot        string    `json:"plot,omitempty"`
	Poster      string    `json:"poster,omitempty"`
	SourcesUsed []string  `json:"sourcesUsed"`
	Confidence  int       `json:"confidence"`
}

type SearchResponse struct {
	Query     Query            `json:"query"`
	Items     []MergedResult   `json:"items"`
	Providers []ProviderStatus `json:"providers,omitempty"`
	ElapsedMS int64            `json:"elapsedMs"`
	Cached    bool             `json:"cached,omitempty"`
}
