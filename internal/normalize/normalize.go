// Package normalize holds the pure string canonicalization used for title
// matching and cache keys. Every function is total over arbitrary input.
package normalize

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonAlnumPattern      = regexp.MustCompile(`[^a-z0-9]+`)
	nonAlnumSpacePattern = regexp.MustCompile(`[^a-z0-9\s]+`)
	spacePattern         = regexp.MustCompile(`\s+`)
	htmlTagPattern       = regexp.MustCompile(`<[^>]+>`)
)

var articles = map[string]struct{}{
	"the": {},
	"a":   {},
	"an":  {},
}

// Loose lowercases s and drops every non-alphanumeric character.
func Loose(s string) string {
	return nonAlnumPattern.ReplaceAllString(strings.ToLower(s), "")
}

// Title lowercases s, strips diacritics and punctuation and collapses
// whitespace. Word order and articles are kept.
func Title(s string) string {
	value := nonAlnumSpacePattern.ReplaceAllString(StripDiacritics(strings.ToLower(s)), "")
	return strings.TrimSpace(spacePattern.ReplaceAllString(value, " "))
}

// TitleTokens splits s into canonical tokens: diacritics stripped,
// punctuation treated as a separator, standalone English articles dropped.
func TitleTokens(s string) []string {
	value := nonAlnumSpacePattern.ReplaceAllString(StripDiacritics(strings.ToLower(s)), " ")
	fields := strings.Fields(value)
	tokens := fields[:0]
	for _, field := range fields {
		if _, skip := articles[field]; skip {
			continue
		}
		tokens = append(tokens, field)
	}
	return tokens
}

// Query returns the article-free token form of s joined by single spaces.
func Query(s string) string {
	return strings.Join(TitleTokens(s), " ")
}

// CanonicalQuery returns the order-independent form of s, so that
// "The Dark Knight" and "Dark Knight, The" compare equal.
func CanonicalQuery(s string) string {
	tokens := TitleTokens(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// StripDiacritics decomposes s and removes combining marks.
func StripDiacritics(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// StripHTML removes markup tags from s.
func StripHTML(s string) string {
	return strings.TrimSpace(htmlTagPattern.ReplaceAllString(s, ""))
}

// Type maps loose type strings onto the canonical names used in keys.
// Unrecognized values pass through lowercased.
func Type(s string) string {
	t := strings.ToLower(strings.TrimSpace(s))
	switch t {
	case "tv", "series", "show":
		return "series"
	case "movie", "film":
		return "movie"
	case "anime":
		return "anime"
	default:
		return t
	}
}

// Year returns s when it is exactly four digits and "" otherwise.
func Year(s string) string {
	y := strings.TrimSpace(s)
	if len(y) != 4 {
		return ""
	}
	for _, c := range y {
		if c < '0' || c > '9' {
			return ""
		}
	}
	return y
}
