package normalize

import (
	"strconv"
	"strings"
	"unicode/utf16"
)

// KeyVersion prefixes every key built by BuildCacheKey. Bump it when the
// canonical form changes so old entries stop matching.
const KeyVersion = "v2"

// Hash32 is a fast non-cryptographic 32-bit string hash rendered as
// unsigned hex of its absolute value. It runs over UTF-16 code units so
// keys stay stable across clients that share the store.
func Hash32(s string) string {
	var h int32
	for _, unit := range utf16.Encode([]rune(s)) {
		h = (h << 5) - h + int32(unit)
	}
	abs := int64(h)
	if abs < 0 {
		abs = -abs
	}
	return strconv.FormatInt(abs, 16)
}

// BuildCacheKey composes a versioned pipe-delimited key from the
// normalized type, the canonical query, the 4-digit year and a hash of
// the semantic triple.
func BuildCacheKey(mediaType, query, year string) string {
	t := Type(mediaType)
	q := CanonicalQuery(query)
	y := Year(year)
	semantic := t + "|" + q + "|" + y
	return strings.Join([]string{KeyVersion, t, q, y, Hash32(semantic)}, "|")
}
