package domain

// Episode identifies one episode in list order for progress tracking.
type Episode struct {
	ID      string `json:"id"`
	Season  int    `json:"season"`
	Episode int    `json:"episode"`
}

// EpisodeState is a caller-owned watch record. Watched is authoritative
// over Progress.
type EpisodeState struct {
	Watched  bool    `json:"watched"`
	Progress float64 `json:"progress,omitempty"`
}

// WatchHistory maps episode identifiers to their watch records.
type WatchHistory map[string]EpisodeState
