package analytics

import (
	"encoding/json"
	"slices"
	"testing"
	"time"

	"titlevault/internal/domain"
)

func intPtr(v int) *int { return &v }

// -----------------------------------------------------------------------------
// Genre profile
// -----------------------------------------------------------------------------

func TestBuildGenreProfileSplitsWeightFractionally(t *testing.T) {
	items := []WatchedItem{
		{Genres: GenreList{"drama", "crime"}, MinutesWatched: Num(100)},
		{Genres: GenreList{"drama"}, MinutesWatched: Num(100)},
	}
	got := BuildGenreProfile(items, DefaultGenreOptions())
	if got.Percent["drama"] != 75 || got.Percent["crime"] != 25 {
		t.Fatalf("unexpected percent %v", got.Percent)
	}
	if got.Raw["drama"] != 3*got.Raw["crime"] {
		t.Fatalf("unexpected raw %v", got.Raw)
	}
}

func TestBuildGenreProfileSkipsUnusableItems(t *testing.T) {
	var items []WatchedItem
	payload := `[
		{"genres":"Drama, Crime ,","minutesWatched":"100"},
		{"genres":["Drama"],"minutesWatched":0},
		{"genres":[],"minutesWatched":50},
		{"minutesWatched":50}
	]`
	if err := json.Unmarshal([]byte(payload), &items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	got := BuildGenreProfile(items, DefaultGenreOptions())
	if len(got.Percent) != 0 || got.TotalWeight != 0 || got.Percent == nil {
		t.Fatalf("expected empty non-nil profile, got %+v", got)
	}
}

func TestBuildGenreProfileRecency(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	old := now.Add(-180 * 24 * time.Hour)
	items := []WatchedItem{
		{Genres: GenreList{"comedy"}, MinutesWatched: Num(100), LastWatchedAt: &old},
		{Genres: GenreList{"horror"}, MinutesWatched: Num(100)},
	}

	flat := BuildGenreProfile(items, GenreOptions{RecencyHalfLifeDays: 180, Now: now})
	if flat.Percent["comedy"] != 50 {
		t.Fatalf("expected recency ignored by default, got %v", flat.Percent)
	}

	decayed := BuildGenreProfile(items, GenreOptions{UseRecency: true, RecencyHalfLifeDays: 180, Now: now})
	if decayed.Percent["comedy"] != 26.89 || decayed.Percent["horror"] != 73.11 {
		t.Fatalf("unexpected decayed percent %v", decayed.Percent)
	}
}

func TestGenreListDecoding(t *testing.T) {
	var g GenreList
	if err := json.Unmarshal([]byte(`["Action", 5, " SCI-FI "]`), &g); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !slices.Equal(g, GenreList{"action", "sci-fi"}) {
		t.Fatalf("unexpected genres %v", g)
	}
	if err := json.Unmarshal([]byte(`42`), &g); err != nil || len(g) != 0 {
		t.Fatalf("expected non-list input to yield nothing, got %v %v", g, err)
	}
}

// -----------------------------------------------------------------------------
// Actor profile
// -----------------------------------------------------------------------------

func TestBuildActorProfile(t *testing.T) {
	items := []ActorItem{
		{UniversalID: "a", Meta: domain.Meta{Cast: []domain.CastMember{
			{Name: "Lead Actor", Order: intPtr(0)},
			{Name: "Side Actor", Order: intPtr(5)},
		}}},
		{UniversalID: "b", Cast: []domain.CastMember{{Name: "  LEAD   actor ", Order: intPtr(2)}}},
		{UniversalID: "missing", Cast: []domain.CastMember{{Name: "Ghost"}}},
		{UniversalID: "unmeasured", Cast: []domain.CastMember{{Name: "Ghost"}}},
	}
	progress := map[string]TitleProgress{
		"a":          {IsCompleted: true, MinutesWatched: Num(100)},
		"b":          {WatchedEpisodes: Num(1), TotalEpisodes: Num(4), MinutesWatched: Num(100)},
		"unmeasured": {TotalEpisodes: Num(0), MinutesWatched: Num(100)},
	}

	got := BuildActorProfile(items, progress, DefaultActorOptions())
	if len(got.Percent) != 2 {
		t.Fatalf("expected two actors, got %v", got.Percent)
	}
	if got.Percent["lead actor"] != 66.16 || got.Percent["side actor"] != 33.84 {
		t.Fatalf("unexpected percent %v", got.Percent)
	}
}

func TestBuildActorProfileRequiresMinutes(t *testing.T) {
	items := []ActorItem{{UniversalID: "a", Cast: []domain.CastMember{{Name: "X"}}}}
	progress := map[string]TitleProgress{"a": {IsCompleted: true}}
	if got := BuildActorProfile(items, progress, DefaultActorOptions()); len(got.Raw) != 0 {
		t.Fatalf("expected empty profile, got %v", got.Raw)
	}
}

func TestRoleWeight(t *testing.T) {
	opts := DefaultActorOptions()
	tests := []struct {
		order *int
		want  float64
	}{
		{nil, 1},
		{intPtr(0), 1.5},
		{intPtr(3), 1.2},
		{intPtr(10), 1},
		{intPtr(11), 0.6},
	}
	for _, tt := range tests {
		if got := roleWeight(tt.order, opts); got != tt.want {
			t.Fatalf("roleWeight(%v) = %v, want %v", tt.order, got, tt.want)
		}
	}
}
