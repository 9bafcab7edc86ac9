package analytics

import "math"

type RatingOptions struct {
	// MinMinutes is the watch time below which a rating carries no weight.
	MinMinutes float64 `toml:"min_minutes" json:"minMinutes"`
	// MaxMinutesCap clamps watch time after the minimum check and before
	// weighting. Zero disables it.
	MaxMinutesCap float64 `toml:"max_minutes_cap" json:"maxMinutesCap"`
	// ReferenceMinutes is where confidence saturates at 1.
	ReferenceMinutes float64 `toml:"reference_minutes" json:"referenceMinutes"`
}

func DefaultRatingOptions() RatingOptions {
	return RatingOptions{MinMinutes: 20, ReferenceMinutes: 300}
}

type RatingEntry struct {
	UniversalID    string `json:"imdbId"`
	Rating         Number `json:"rating"`
	MinutesWatched Number `json:"minutesWatched"`
}

type RatingBreakdown struct {
	UniversalID    string  `json:"imdbId"`
	Rating         float64 `json:"rating"`
	MinutesWatched float64 `json:"minutesWatched"`
	Confidence     float64 `json:"confidence"`
	Weight         float64 `json:"weight"`
	Contribution   float64 `json:"contribution"`
}

type RatingResult struct {
	WeightedRating    float64           `json:"weightedRating"`
	ContributingItems int               `json:"contributingItems"`
	Breakdown         []RatingBreakdown `json:"breakdown"`
}

// WeightedRating averages ratings weighted by log watch time and a
// confidence that grows with it. Check ContributingItems before treating
// a zero result as meaningful.
func WeightedRating(entries []RatingEntry, opts RatingOptions) RatingResult {
	if opts.ReferenceMinutes <= 0 {
		opts.ReferenceMinutes = DefaultRatingOptions().ReferenceMinutes
	}

	var weightedSum, totalWeight float64
	result := RatingResult{Breakdown: []RatingBreakdown{}}

	for _, entry := range entries {
		if !entry.Rating.Valid || entry.Rating.Value < 1 || entry.Rating.Value > 10 {
			continue
		}
		if !entry.MinutesWatched.Valid || entry.MinutesWatched.Value <= 0 {
			continue
		}

		minutes := entry.MinutesWatched.Value
		if minutes < opts.MinMinutes {
			continue
		}
		if opts.MaxMinutesCap > 0 {
			minutes = math.Min(minutes, opts.MaxMinutesCap)
		}
		confidence := ratingConfidence(minutes, opts.ReferenceMinutes)

		weight := math.Log1p(minutes) * confidence
		contribution := entry.Rating.Value * weight
		weightedSum += contribution
		totalWeight += weight
		result.ContributingItems++

		result.Breakdown = append(result.Breakdown, RatingBreakdown{
			UniversalID:    entry.UniversalID,
			Rating:         entry.Rating.Value,
			MinutesWatched: minutes,
			Confidence:     round2(confidence),
			Weight:         round2(weight),
			Contribution:   round2(contribution),
		})
	}

	if totalWeight == 0 {
		return RatingResult{Breakdown: []RatingBreakdown{}}
	}
	result.WeightedRating = round2(weightedSum / totalWeight)
	return result
}

func ratingConfidence(minutes, referenceMinutes float64) float64 {
	return math.Min(1, math.Log1p(minutes)/math.Log1p(referenceMinutes))
}
