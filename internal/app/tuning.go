package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"titlevault/internal/analytics"
	"titlevault/internal/region"
	"titlevault/internal/search"
)

// Tuning collects the heuristic constants that may be overridden from a
// TOML file. Keys missing from the file keep their defaults.
type Tuning struct {
	Search search.Weights          `toml:"search"`
	Region region.Weights          `toml:"region"`
	Rating analytics.RatingOptions `toml:"rating"`
	Genre  analytics.GenreOptions  `toml:"genre"`
	Actor  analytics.ActorOptions  `toml:"actor"`
}

func DefaultTuning() Tuning {
	return Tuning{
		Search: search.DefaultWeights(),
		Region: region.DefaultWeights(),
		Rating: analytics.DefaultRatingOptions(),
		Genre:  analytics.DefaultGenreOptions(),
		Actor:  analytics.DefaultActorOptions(),
	}
}

// LoadTuning reads path over the defaults. An empty path or a missing file
// yields the defaults.
func LoadTuning(path string) (Tuning, error) {
	tuning := DefaultTuning()
	path = strings.TrimSpace(path)
	if path == "" {
		return tuning, nil
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return tuning, nil
		}
		return tuning, fmt.Errorf("open tuning file: %w", err)
	}
	defer file.Close()

	decoder := toml.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&tuning); err != nil {
		return DefaultTuning(), fmt.Errorf("parse tuning file: %w", err)
	}
	if err := tuning.Validate(); err != nil {
		return DefaultTuning(), err
	}
	return tuning, nil
}

func (t Tuning) Validate() error {
	if t.Search.PopularityDivisor <= 0 {
		return errors.New("search.popularity_divisor must be positive")
	}
	if t.Rating.MinMinutes < 0 {
		return errors.New("rating.min_minutes must not be negative")
	}
	if t.Rating.ReferenceMinutes <= 0 {
		return errors.New("rating.reference_minutes must be positive")
	}
	if t.Genre.RecencyHalfLifeDays <= 0 {
		return errors.New("genre.recency_half_life_days must be positive")
	}
	if t.Actor.CompletionExponent <= 0 {
		return errors.New("actor.completion_exponent must be positive")
	}
	return nil
}
