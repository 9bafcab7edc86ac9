package region

import (
	"slices"
	"testing"
)

func TestClassify(t *testing.T) {
	c := NewClassifier(DefaultWeights())

	tests := []struct {
		name     string
		country  string
		language string
		genre    string
		want     bool
		score    int
	}{
		{name: "korean drama", country: "South Korea", language: "Korean", genre: "Drama, Romance", want: true, score: 100},
		{name: "japanese anime", country: "Japan", language: "Japanese", genre: "Animation, Action", want: true, score: 90},
		{name: "us film", country: "United States", language: "English", genre: "Action", want: false, score: -100},
		{name: "us animation", country: "USA", language: "English", genre: "Animation, Comedy", want: false, score: -150},
		{name: "co-production", country: "South Korea, United States", language: "Korean, English", genre: "Drama", want: false, score: 0},
		{name: "language only", country: "", language: "Mandarin", genre: "", want: false, score: 40},
		{name: "genre hint alone", country: "", language: "", genre: "Drama", want: false, score: 10},
		{name: "empty", want: false, score: 0},
		{name: "ukraine is not uk", country: "Ukraine", language: "Ukrainian", genre: "", want: false, score: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.country, tt.language, tt.genre)
			if got.Decision != tt.want || got.Score != tt.score {
				t.Fatalf("Classify(%q, %q, %q) = %+v, want decision=%v score=%d",
					tt.country, tt.language, tt.genre, got, tt.want, tt.score)
			}
		})
	}
}

func TestClassifyReasons(t *testing.T) {
	got := NewClassifier(DefaultWeights()).Classify("Japan", "Japanese, English", "Animation")
	want := []string{"asian-country", "asian-language", "western-language", "western-animation-block"}
	if !slices.Equal(got.Reasons, want) {
		t.Fatalf("unexpected reasons %v", got.Reasons)
	}
	if got.Score != 0 || got.Decision {
		t.Fatalf("unexpected verdict %+v", got)
	}
}

func TestClassifyCustomThreshold(t *testing.T) {
	weights := DefaultWeights()
	weights.Threshold = 40
	if !NewClassifier(weights).IsAsian("", "Mandarin", "") {
		t.Fatal("expected language-only evidence to pass a lower threshold")
	}
}

func TestNormalizeOrigin(t *testing.T) {
	if got := normalizeOrigin("  Hong-Kong,  CHINA "); got != "hong kong china" {
		t.Fatalf("unexpected %q", got)
	}
}
