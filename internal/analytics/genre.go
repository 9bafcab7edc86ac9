package analytics

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"time"
)

type GenreOptions struct {
	UseRecency          bool    `toml:"use_recency" json:"useRecency"`
	RecencyHalfLifeDays float64 `toml:"recency_half_life_days" json:"recencyHalfLifeDays"`
	// Now anchors recency ages; zero means time.Now().
	Now time.Time `toml:"-" json:"-"`
}

func DefaultGenreOptions() GenreOptions {
	return GenreOptions{RecencyHalfLifeDays: 180}
}

// GenreList accepts either a JSON array of names or one comma-separated
// string and yields trimmed lowercase names.
type GenreList []string

func (g *GenreList) UnmarshalJSON(data []byte) error {
	*g = nil
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0:
		return nil
	case data[0] == '"':
		var joined string
		if err := json.Unmarshal(data, &joined); err != nil {
			return nil
		}
		*g = ParseGenres(strings.Split(joined, ","))
	case data[0] == '[':
		var raw []any
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil
		}
		names := make([]string, 0, len(raw))
		for _, item := range raw {
			if name, ok := item.(string); ok {
				names = append(names, name)
			}
		}
		*g = ParseGenres(names)
	}
	return nil
}

// ParseGenres lowercases, trims and drops empty names.
func ParseGenres(names []string) GenreList {
	out := make(GenreList, 0, len(names))
	for _, name := range names {
		if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
			out = append(out, name)
		}
	}
	return out
}

type WatchedItem struct {
	UniversalID    string     `json:"imdbId,omitempty"`
	Genres         GenreList  `json:"genres"`
	MinutesWatched Number     `json:"minutesWatched"`
	LastWatchedAt  *time.Time `json:"lastWatchedAt,omitempty"`
}

type GenreProfile struct {
	Distribution
	TotalWeight float64 `json:"totalWeight"`
}

// BuildGenreProfile spreads each item's log watch time evenly across its
// genres, optionally decayed by how long ago it was watched.
func BuildGenreProfile(items []WatchedItem, opts GenreOptions) GenreProfile {
	if opts.RecencyHalfLifeDays <= 0 {
		opts.RecencyHalfLifeDays = DefaultGenreOptions().RecencyHalfLifeDays
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	raw := make(map[string]float64)
	totalWeight := 0.0
	for _, item := range items {
		if len(item.Genres) == 0 {
			continue
		}
		if !item.MinutesWatched.Valid || item.MinutesWatched.Value <= 0 {
			continue
		}
		weight := math.Log1p(item.MinutesWatched.Value)
		if opts.UseRecency {
			weight *= recencyWeight(item.LastWatchedAt, now, opts.RecencyHalfLifeDays)
		}
		if weight == 0 {
			continue
		}

		totalWeight += weight
		fractional := weight / float64(len(item.Genres))
		for _, genre := range item.Genres {
			raw[genre] += fractional
		}
	}
	return GenreProfile{Distribution: newDistribution(raw), TotalWeight: totalWeight}
}

func recencyWeight(lastWatchedAt *time.Time, now time.Time, halfLifeDays float64) float64 {
	if lastWatchedAt == nil || lastWatchedAt.IsZero() {
		return 1
	}
	ageDays := now.Sub(*lastWatchedAt).Hours() / 24
	return math.Exp(-ageDays / halfLifeDays)
}
