package normalize

import (
	"math"
	"strings"

	"github.com/spf13/cast"
)

// YearOf extracts a 4-digit year from loosely typed payload values such as
// 2019, "2019", "2019-05-30" or "2019–2021". It returns "" when none fits.
func YearOf(v any) string {
	raw := strings.TrimSpace(cast.ToString(v))
	if len(raw) < 4 {
		return ""
	}
	return Year(raw[:4])
}

// Number coerces JSON-ish values into a finite float. Strings may carry
// thousands separators ("1,234,567"). The second result reports whether
// a usable number was found.
func Number(v any) (float64, bool) {
	switch value := v.(type) {
	case nil:
		return 0, false
	case string:
		cleaned := strings.ReplaceAll(strings.TrimSpace(value), ",", "")
		if cleaned == "" || strings.EqualFold(cleaned, "n/a") {
			return 0, false
		}
		v = cleaned
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// NumberPtr is Number returning nil for absent values.
func NumberPtr(v any) *float64 {
	f, ok := Number(v)
	if !ok {
		return nil
	}
	return &f
}

// ID renders numeric or string identifiers as a string.
func ID(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case float64:
		if value == math.Trunc(value) {
			return cast.ToString(int64(value))
		}
	}
	return strings.TrimSpace(cast.ToString(v))
}
