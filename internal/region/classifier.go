// Package region decides whether a title is an East or Southeast Asian
// production from its free-text country, language and genre fields.
package region

import (
	"regexp"
	"strings"

	"titlevault/internal/domain"
)

// Weights holds the evidence point values. They are provisional and
// meant to be tuned.
type Weights struct {
	AsianCountry    int `toml:"asian_country"`
	AsianLanguage   int `toml:"asian_language"`
	GenreHint       int `toml:"genre_hint"`
	WesternCountry  int `toml:"western_country"`
	WesternLanguage int `toml:"western_language"`
	AnimationBlock  int `toml:"animation_block"`
	Threshold       int `toml:"threshold"`
}

func DefaultWeights() Weights {
	return Weights{
		AsianCountry:    50,
		AsianLanguage:   40,
		GenreHint:       10,
		WesternCountry:  -60,
		WesternLanguage: -40,
		AnimationBlock:  -50,
		Threshold:       50,
	}
}

var (
	asianCountries = []string{
		"japan", "south korea", "north korea", "korea", "china", "hong kong", "taiwan",
		"thailand", "vietnam", "philippines", "malaysia", "indonesia", "singapore",
	}
	asianLanguages = []string{
		"japanese", "korean", "mandarin", "cantonese", "chinese", "thai", "vietnamese", "malay", "indonesian",
	}
	westernCountries = []string{
		"united states", "usa", "canada", "united kingdom", "uk", "england", "france", "germany", "spain", "australia",
	}
	westernLanguages = []string{
		"english", "french", "spanish", "german", "italian", "portuguese",
	}

	nonLetterPattern = regexp.MustCompile(`[^a-z\s]`)
	spacePattern     = regexp.MustCompile(`\s+`)
)

type Classifier struct {
	weights Weights
}

func NewClassifier(weights Weights) *Classifier {
	return &Classifier{weights: weights}
}

// Classify scores the evidence and reports the reasons that fired.
func (c *Classifier) Classify(country, language, genre string) domain.RegionVerdict {
	countryNorm := normalizeOrigin(country)
	languageNorm := normalizeOrigin(language)
	genreNorm := normalizeOrigin(genre)
	blob := countryNorm + " " + languageNorm

	var verdict domain.RegionVerdict
	add := func(points int, reason string) {
		verdict.Score += points
		verdict.Reasons = append(verdict.Reasons, reason)
	}

	if containsAny(countryNorm, asianCountries) {
		add(c.weights.AsianCountry, "asian-country")
	}
	if containsAny(languageNorm, asianLanguages) {
		add(c.weights.AsianLanguage, "asian-language")
	}
	if containsAny(genreNorm, []string{"drama", "anime"}) {
		add(c.weights.GenreHint, "genre-hint")
	}
	if containsAny(countryNorm, westernCountries) {
		add(c.weights.WesternCountry, "western-country")
	}
	if containsAny(languageNorm, westernLanguages) {
		add(c.weights.WesternLanguage, "western-language")
	}
	if containsAny(genreNorm, []string{"animation"}) &&
		(containsAny(blob, westernCountries) || containsAny(blob, westernLanguages)) {
		add(c.weights.AnimationBlock, "western-animation-block")
	}

	verdict.Decision = verdict.Score >= c.weights.Threshold
	return verdict
}

func (c *Classifier) IsAsian(country, language, genre string) bool {
	return c.Classify(country, language, genre).Decision
}

// normalizeOrigin lowercases and turns everything but letters into single
// spaces.
func normalizeOrigin(s string) string {
	s = nonLetterPattern.ReplaceAllString(strings.ToLower(s), " ")
	return strings.TrimSpace(spacePattern.ReplaceAllString(s, " "))
}

// containsAny matches whole words so "uk" never fires inside "ukraine"
// and "thai" never fires inside "thailand".
func containsAny(haystack string, needles []string) bool {
	if haystack == "" {
		return false
	}
	padded := " " + haystack + " "
	for _, needle := range needles {
		if strings.Contains(padded, " "+needle+" ") {
			return true
		}
	}
	return false
}
