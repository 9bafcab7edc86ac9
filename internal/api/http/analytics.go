package apihttp

import (
	"net/http"

	"titlevault/internal/analytics"
	"titlevault/internal/domain"
)

// AnalyticsOptions carries the tuning the analytics endpoints run with.
type AnalyticsOptions struct {
	Rating analytics.RatingOptions
	Genre  analytics.GenreOptions
	Actor  analytics.ActorOptions
}

func DefaultAnalyticsOptions() AnalyticsOptions {
	return AnalyticsOptions{
		Rating: analytics.DefaultRatingOptions(),
		Genre:  analytics.DefaultGenreOptions(),
		Actor:  analytics.DefaultActorOptions(),
	}
}

type ratingRequest struct {
	Entries       []analytics.RatingEntry `json:"entries"`
	MinMinutes    *float64                `json:"minMinutes,omitempty"`
	MaxMinutesCap *float64                `json:"maxMinutesCap,omitempty"`
}

type episodesRequest struct {
	Episodes []domain.Episode    `json:"episodes"`
	History  domain.WatchHistory `json:"history"`
}

type genreRequest struct {
	Items      []analytics.WatchedItem `json:"items"`
	UseRecency *bool                   `json:"useRecency,omitempty"`
}

type actorRequest struct {
	Items    []analytics.ActorItem              `json:"items"`
	Progress map[string]analytics.TitleProgress `json:"progress"`
}

// decodeAnalytics accepts POST bodies only and reports whether the handler
// may continue.
func decodeAnalytics(w http.ResponseWriter, r *http.Request, dest any) bool {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	if err := decodeJSONBody(r, dest); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return false
	}
	return true
}

func (s *Server) handleRating(w http.ResponseWriter, r *http.Request) {
	var req ratingRequest
	if !decodeAnalytics(w, r, &req) {
		return
	}
	opts := s.analytics.Rating
	if req.MinMinutes != nil {
		if *req.MinMinutes < 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "minMinutes must not be negative")
			return
		}
		opts.MinMinutes = *req.MinMinutes
	}
	if req.MaxMinutesCap != nil {
		if *req.MaxMinutesCap < 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "maxMinutesCap must not be negative")
			return
		}
		opts.MaxMinutesCap = *req.MaxMinutesCap
	}
	writeJSON(w, http.StatusOK, analytics.WeightedRating(req.Entries, opts))
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	var req episodesRequest
	if !decodeAnalytics(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, analytics.CalculateEpisodeProgress(req.Episodes, req.History))
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	var req episodesRequest
	if !decodeAnalytics(w, r, &req) {
		return
	}
	target, ok := analytics.GetResumeTarget(req.Episodes, req.History)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"resumeTarget": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"resumeTarget": target})
}

func (s *Server) handleSeasons(w http.ResponseWriter, r *http.Request) {
	var req episodesRequest
	if !decodeAnalytics(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"seasons": analytics.CalculateSeasonProgress(req.Episodes, req.History),
	})
}

func (s *Server) handleGenres(w http.ResponseWriter, r *http.Request) {
	var req genreRequest
	if !decodeAnalytics(w, r, &req) {
		return
	}
	opts := s.analytics.Genre
	if req.UseRecency != nil {
		opts.UseRecency = *req.UseRecency
	}
	writeJSON(w, http.StatusOK, analytics.BuildGenreProfile(req.Items, opts))
}

func (s *Server) handleActors(w http.ResponseWriter, r *http.Request) {
	var req actorRequest
	if !decodeAnalytics(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, analytics.BuildActorProfile(req.Items, req.Progress, s.analytics.Actor))
}
