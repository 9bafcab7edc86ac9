package search

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"titlevault/internal/domain"
	"titlevault/internal/normalize"
)

// Weights are the additive point values used to rank candidates. They are
// hand-tuned; only their relative ordering matters.
type Weights struct {
	ExactTitle           int      `toml:"exact_title"`
	FuzzyMax             int      `toml:"fuzzy_max"`
	ExactYear            int      `toml:"exact_year"`
	NearYear             int      `toml:"near_year"`
	PopularityMax        int      `toml:"popularity_max"`
	PopularityDivisor    float64  `toml:"popularity_divisor"`
	RankDecayBase        int      `toml:"rank_decay_base"`
	Authority            int      `toml:"authority"`
	AuthoritativeSources []string `toml:"authoritative_sources"`
}

func DefaultWeights() Weights {
	return Weights{
		ExactTitle:           50,
		FuzzyMax:             35,
		ExactYear:            25,
		NearYear:             15,
		PopularityMax:        10,
		PopularityDivisor:    100,
		RankDecayBase:        100,
		Authority:            5,
		AuthoritativeSources: []string{"tmdb", "tvmaze"},
	}
}

type Scorer struct {
	weights     Weights
	authorities map[string]struct{}
}

func NewScorer(weights Weights) *Scorer {
	if weights.PopularityDivisor <= 0 {
		weights.PopularityDivisor = DefaultWeights().PopularityDivisor
	}
	authorities := make(map[string]struct{}, len(weights.AuthoritativeSources))
	for _, source := range weights.AuthoritativeSources {
		authorities[strings.ToLower(strings.TrimSpace(source))] = struct{}{}
	}
	return &Scorer{weights: weights, authorities: authorities}
}

// Score rates candidate against the query text. targetYear is ignored
// unless it is a 4-digit year; index is the candidate's position in the
// combined result list and feeds the rank-decay popularity fallback.
func (s *Scorer) Score(candidate domain.RawCandidate, query, targetYear string, index int) domain.ScoredCandidate {
	scored := domain.ScoredCandidate{RawCandidate: candidate}
	add := func(points int, reason string) {
		scored.Score += points
		scored.Reasons = append(scored.Reasons, reason)
	}

	queryNorm := normalize.Title(query)
	titleNorm := normalize.Title(candidate.Title)
	if titleNorm != "" && titleNorm == queryNorm {
		add(s.weights.ExactTitle, "exact-title")
	}

	if similarity := tokenSimilarity(titleNorm, queryNorm); similarity > 0 {
		points := int(math.Round(similarity * float64(s.weights.FuzzyMax)))
		add(points, fmt.Sprintf("fuzzy(%d)", points))
	}

	if want, ok := parseYear(targetYear); ok {
		if got, ok := parseYear(candidate.Year); ok {
			switch diff := got - want; {
			case diff == 0:
				add(s.weights.ExactYear, "exact-year")
			case diff == 1 || diff == -1:
				add(s.weights.NearYear, "near-year")
			}
		}
	}

	if popularity := s.popularitySignal(candidate, index); popularity > 0 {
		points := int(math.Floor(popularity / s.weights.PopularityDivisor))
		if points > s.weights.PopularityMax {
			points = s.weights.PopularityMax
		}
		add(points, fmt.Sprintf("popularity(%d)", points))
	}

	if _, ok := s.authorities[strings.ToLower(candidate.Source)]; ok {
		add(s.weights.Authority, "authority")
	}
	return scored
}

// popularitySignal prefers an explicit popularity figure, then a vote
// count, then a rank decay by position.
func (s *Scorer) popularitySignal(candidate domain.RawCandidate, index int) float64 {
	switch {
	case candidate.Popularity != nil:
		return *candidate.Popularity
	case candidate.Votes != nil:
		return *candidate.Votes
	}
	decay := s.weights.RankDecayBase - index
	if decay < 0 {
		return 0
	}
	return float64(decay)
}

// tokenSimilarity is the intersection size over the larger token set.
func tokenSimilarity(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	shared := 0
	for token := range setA {
		if _, ok := setB[token]; ok {
			shared++
		}
	}
	return float64(shared) / float64(max(len(setA), len(setB)))
}

func tokenSet(normalized string) map[string]struct{} {
	fields := strings.Fields(normalized)
	set := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		set[field] = struct{}{}
	}
	return set
}

func parseYear(raw string) (int, bool) {
	y := normalize.Year(raw)
	if y == "" {
		return 0, false
	}
	value, err := strconv.Atoi(y)
	if err != nil {
		return 0, false
	}
	return value, true
}
