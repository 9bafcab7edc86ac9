package analytics

import (
	"math"
	"sort"

	"titlevault/internal/domain"
)

type EpisodeStatus string

const (
	StatusUnwatched EpisodeStatus = "unwatched"
	StatusPartial   EpisodeStatus = "partial"
	StatusWatched   EpisodeStatus = "watched"
)

type ResolvedState struct {
	Status   EpisodeStatus `json:"state"`
	Progress float64       `json:"progress"`
}

type EpisodeRef struct {
	EpisodeID string `json:"episodeId"`
	Season    int    `json:"season"`
	Episode   int    `json:"episode"`
}

func refOf(ep domain.Episode) *EpisodeRef {
	return &EpisodeRef{EpisodeID: ep.ID, Season: ep.Season, Episode: ep.Episode}
}

type EpisodeProgress struct {
	WatchedCount      int         `json:"watchedCount"`
	TotalCount        int         `json:"totalCount"`
	CompletionPercent int         `json:"completionPercent"`
	LastWatched       *EpisodeRef `json:"lastWatched"`
	NextToWatch       *EpisodeRef `json:"nextToWatch"`
	IsCompleted       bool        `json:"isCompleted"`
	HasGaps           bool        `json:"hasGaps"`
}

type ResumeTarget struct {
	EpisodeRef
	ResumeFrom float64 `json:"resumeFrom"`
}

type SeasonProgress struct {
	Season            int `json:"season"`
	Watched           int `json:"watched"`
	Partial           int `json:"partial"`
	Total             int `json:"total"`
	CompletionPercent int `json:"completionPercent"`
}

// ResolveEpisodeState classifies one episode. Watched wins over any
// progress value; a progress of 1 or more also counts as watched.
func ResolveEpisodeState(id string, history domain.WatchHistory) ResolvedState {
	record, ok := history[id]
	switch {
	case !ok:
		return ResolvedState{Status: StatusUnwatched}
	case record.Watched || record.Progress >= 1:
		return ResolvedState{Status: StatusWatched, Progress: 1}
	case record.Progress > 0 && !math.IsNaN(record.Progress):
		return ResolvedState{Status: StatusPartial, Progress: record.Progress}
	default:
		return ResolvedState{Status: StatusUnwatched}
	}
}

// CalculateEpisodeProgress scans episodes in list order. HasGaps is set
// when an unfinished episode follows one that was watched.
func CalculateEpisodeProgress(episodes []domain.Episode, history domain.WatchHistory) EpisodeProgress {
	progress := EpisodeProgress{TotalCount: len(episodes)}
	for _, ep := range episodes {
		if ResolveEpisodeState(ep.ID, history).Status == StatusWatched {
			progress.WatchedCount++
			progress.LastWatched = refOf(ep)
			continue
		}
		if progress.WatchedCount > 0 {
			progress.HasGaps = true
		}
		if progress.NextToWatch == nil {
			progress.NextToWatch = refOf(ep)
		}
	}
	progress.CompletionPercent = percentOf(progress.WatchedCount, progress.TotalCount)
	progress.IsCompleted = progress.WatchedCount == progress.TotalCount
	return progress
}

// GetResumeTarget returns the first episode that is not fully watched.
func GetResumeTarget(episodes []domain.Episode, history domain.WatchHistory) (ResumeTarget, bool) {
	for _, ep := range episodes {
		state := ResolveEpisodeState(ep.ID, history)
		if state.Status == StatusWatched {
			continue
		}
		return ResumeTarget{EpisodeRef: *refOf(ep), ResumeFrom: state.Progress}, true
	}
	return ResumeTarget{}, false
}

// CalculateSeasonProgress buckets episodes by season number, ascending.
func CalculateSeasonProgress(episodes []domain.Episode, history domain.WatchHistory) []SeasonProgress {
	bySeason := make(map[int]*SeasonProgress)
	for _, ep := range episodes {
		season := bySeason[ep.Season]
		if season == nil {
			season = &SeasonProgress{Season: ep.Season}
			bySeason[ep.Season] = season
		}
		season.Total++
		switch ResolveEpisodeState(ep.ID, history).Status {
		case StatusWatched:
			season.Watched++
		case StatusPartial:
			season.Partial++
		}
	}

	seasons := make([]SeasonProgress, 0, len(bySeason))
	for _, season := range bySeason {
		season.CompletionPercent = percentOf(season.Watched, season.Total)
		seasons = append(seasons, *season)
	}
	sort.Slice(seasons, func(i, j int) bool { return seasons[i].Season < seasons[j].Season })
	return seasons
}

// WithEpisodeWatched returns a copy of history with id marked watched or
// cleared. The input map is never modified.
func WithEpisodeWatched(history domain.WatchHistory, id string, watched bool) domain.WatchHistory {
	next := cloneHistory(history)
	if watched {
		next[id] = domain.EpisodeState{Watched: true, Progress: 1}
	} else {
		next[id] = domain.EpisodeState{}
	}
	return next
}

// WithEpisodeProgress returns a copy of history with id's progress set,
// clamped to [0, 1]. Reaching 1 marks the episode watched.
func WithEpisodeProgress(history domain.WatchHistory, id string, progress float64) domain.WatchHistory {
	if math.IsNaN(progress) || progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	next := cloneHistory(history)
	next[id] = domain.EpisodeState{Watched: progress >= 1, Progress: progress}
	return next
}

func cloneHistory(history domain.WatchHistory) domain.WatchHistory {
	next := make(domain.WatchHistory, len(history)+1)
	for id, state := range history {
		next[id] = state
	}
	return next
}

func percentOf(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}
