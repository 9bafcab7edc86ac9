package analytics

import (
	"testing"

	"titlevault/internal/domain"
)

func episodes(ids ...string) []domain.Episode {
	out := make([]domain.Episode, 0, len(ids))
	for i, id := range ids {
		out = append(out, domain.Episode{ID: id, Season: 1, Episode: i + 1})
	}
	return out
}

func TestResolveEpisodeState(t *testing.T) {
	history := domain.WatchHistory{
		"watched":  {Watched: true, Progress: 0.2},
		"partial":  {Progress: 0.4},
		"zero":     {Progress: 0},
		"finished": {Progress: 1},
	}
	tests := map[string]ResolvedState{
		"watched":  {Status: StatusWatched, Progress: 1},
		"partial":  {Status: StatusPartial, Progress: 0.4},
		"zero":     {Status: StatusUnwatched},
		"finished": {Status: StatusWatched, Progress: 1},
		"missing":  {Status: StatusUnwatched},
	}
	for id, want := range tests {
		if got := ResolveEpisodeState(id, history); got != want {
			t.Fatalf("%s: got %+v want %+v", id, got, want)
		}
	}
}

func TestCalculateEpisodeProgress(t *testing.T) {
	history := domain.WatchHistory{
		"e1": {Watched: true},
		"e3": {Watched: true},
		"e4": {Progress: 0.5},
	}
	got := CalculateEpisodeProgress(episodes("e1", "e2", "e3", "e4"), history)
	if got.WatchedCount != 2 || got.TotalCount != 4 || got.CompletionPercent != 50 {
		t.Fatalf("unexpected counts %+v", got)
	}
	if got.LastWatched == nil || got.LastWatched.EpisodeID != "e3" {
		t.Fatalf("unexpected last watched %+v", got.LastWatched)
	}
	if got.NextToWatch == nil || got.NextToWatch.EpisodeID != "e2" {
		t.Fatalf("unexpected next %+v", got.NextToWatch)
	}
	if !got.HasGaps || got.IsCompleted {
		t.Fatalf("expected gaps and not completed, got %+v", got)
	}
}

func TestCalculateEpisodeProgressNoGapBeforeFirstWatch(t *testing.T) {
	got := CalculateEpisodeProgress(episodes("e1", "e2"), domain.WatchHistory{"e2": {Watched: true}})
	if got.HasGaps {
		t.Fatal("unwatched episodes before the first watched one are not gaps")
	}
	if got.NextToWatch == nil || got.NextToWatch.EpisodeID != "e1" {
		t.Fatalf("unexpected next %+v", got.NextToWatch)
	}

	third := CalculateEpisodeProgress(episodes("e1", "e2", "e3"), domain.WatchHistory{"e1": {Watched: true}})
	if third.CompletionPercent != 33 {
		t.Fatalf("expected rounded percent 33, got %d", third.CompletionPercent)
	}
}

func TestCalculateEpisodeProgressCompletion(t *testing.T) {
	all := domain.WatchHistory{"e1": {Watched: true}, "e2": {Watched: true}}
	got := CalculateEpisodeProgress(episodes("e1", "e2"), all)
	if !got.IsCompleted || got.CompletionPercent != 100 || got.NextToWatch != nil {
		t.Fatalf("unexpected progress %+v", got)
	}

	empty := CalculateEpisodeProgress(nil, nil)
	if !empty.IsCompleted || empty.CompletionPercent != 0 || empty.TotalCount != 0 {
		t.Fatalf("unexpected empty progress %+v", empty)
	}
}

func TestGetResumeTarget(t *testing.T) {
	history := domain.WatchHistory{"e1": {Watched: true}, "e2": {Progress: 0.4}}
	got, ok := GetResumeTarget(episodes("e1", "e2", "e3"), history)
	if !ok || got.EpisodeID != "e2" || got.ResumeFrom != 0.4 {
		t.Fatalf("unexpected resume target %+v ok=%v", got, ok)
	}

	got, ok = GetResumeTarget(episodes("e1", "e3"), history)
	if !ok || got.EpisodeID != "e3" || got.ResumeFrom != 0 {
		t.Fatalf("expected unwatched episode from start, got %+v", got)
	}

	if _, ok := GetResumeTarget(episodes("e1"), history); ok {
		t.Fatal("expected no target when everything is watched")
	}
}

func TestCalculateSeasonProgress(t *testing.T) {
	eps := []domain.Episode{
		{ID: "s2e1", Season: 2, Episode: 1},
		{ID: "s1e1", Season: 1, Episode: 1},
		{ID: "s1e2", Season: 1, Episode: 2},
	}
	history := domain.WatchHistory{"s1e1": {Watched: true}, "s1e2": {Progress: 0.3}}
	got := CalculateSeasonProgress(eps, history)
	if len(got) != 2 || got[0].Season != 1 || got[1].Season != 2 {
		t.Fatalf("expected seasons in ascending order, got %+v", got)
	}
	if got[0] != (SeasonProgress{Season: 1, Watched: 1, Partial: 1, Total: 2, CompletionPercent: 50}) {
		t.Fatalf("unexpected season 1 %+v", got[0])
	}
	if got[1].CompletionPercent != 0 || got[1].Total != 1 {
		t.Fatalf("unexpected season 2 %+v", got[1])
	}
}

func TestHistoryUpdatesCopyOnWrite(t *testing.T) {
	original := domain.WatchHistory{"e1": {Progress: 0.5}}

	watched := WithEpisodeWatched(original, "e1", true)
	if original["e1"].Watched {
		t.Fatal("input history must not change")
	}
	if !watched["e1"].Watched {
		t.Fatal("expected copy to be updated")
	}

	progressed := WithEpisodeProgress(watched, "e2", 1.7)
	if _, ok := watched["e2"]; ok {
		t.Fatal("input history must not gain entries")
	}
	if state := progressed["e2"]; !state.Watched || state.Progress != 1 {
		t.Fatalf("expected clamped watched state, got %+v", state)
	}

	cleared := WithEpisodeWatched(progressed, "e2", false)
	if ResolveEpisodeState("e2", cleared).Status != StatusUnwatched {
		t.Fatal("expected cleared episode to be unwatched")
	}
	if fresh := WithEpisodeProgress(nil, "x", -1); fresh["x"].Progress != 0 {
		t.Fatalf("expected negative progress clamped, got %+v", fresh["x"])
	}
}
