package domain

import "testing"

func TestParseMediaType(t *testing.T) {
	cases := map[string]MediaType{
		"":       MediaTypeAny,
		"all":    MediaTypeAny,
		"TV":     MediaTypeSeries,
		"series": MediaTypeSeries,
		"film":   MediaTypeMovie,
		"anime":  MediaTypeAnime,
	}
	for input, want := range cases {
		if got := ParseMediaType(input); got != want {
			t.Fatalf("ParseMediaType(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestMediaTypeIncludes(t *testing.T) {
	if !MediaTypeAny.Includes(MediaTypeMovie) || !MediaTypeAny.Includes(MediaTypeAnime) {
		t.Fatal("any should include every kind")
	}
	if !MediaTypeSeries.Includes(MediaTypeAnime) {
		t.Fatal("series searches should reach anime sources")
	}
	if MediaTypeMovie.Includes(MediaTypeSeries) || MediaTypeMovie.Includes(MediaTypeAnime) {
		t.Fatal("movie searches should only reach movie sources")
	}
}
