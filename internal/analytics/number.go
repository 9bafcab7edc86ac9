// Package analytics holds the pure viewing-statistics engines: weighted
// rating, episode progress, genre and actor profiles. None of them does
// I/O and none of them fails; unusable input is skipped.
package analytics

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Number is a JSON field that must be a real number to count. Strings,
// booleans, null and NaN decode without error as an invalid Number.
type Number struct {
	Value float64
	Valid bool
}

func Num(v float64) Number {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Number{}
	}
	return Number{Value: v, Valid: true}
}

func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] == '"' || data[0] == 'n' || data[0] == 't' || data[0] == 'f' || data[0] == '{' || data[0] == '[' {
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return nil
	}
	*n = Num(v)
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Distribution is a raw score per key plus its share of the total in
// percent, rounded to two decimals.
type Distribution struct {
	Raw     map[string]float64 `json:"raw"`
	Percent map[string]float64 `json:"percent"`
}

func newDistribution(raw map[string]float64) Distribution {
	total := 0.0
	for _, v := range raw {
		total += v
	}
	percent := make(map[string]float64, len(raw))
	if total > 0 {
		for key, v := range raw {
			percent[key] = round2(v / total * 100)
		}
	}
	return Distribution{Raw: raw, Percent: percent}
}
