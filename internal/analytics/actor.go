package analytics

import (
	"math"
	"strings"

	"titlevault/internal/domain"
)

type ActorOptions struct {
	CompletionExponent float64 `toml:"completion_exponent" json:"completionExponent"`
	LeadWeight         float64 `toml:"lead_weight" json:"leadWeight"`
	MainWeight         float64 `toml:"main_weight" json:"mainWeight"`
	MainMaxOrder       int     `toml:"main_max_order" json:"mainMaxOrder"`
	SupportingWeight   float64 `toml:"supporting_weight" json:"supportingWeight"`
	SupportingMaxOrder int     `toml:"supporting_max_order" json:"supportingMaxOrder"`
	CameoWeight        float64 `toml:"cameo_weight" json:"cameoWeight"`
	UnbilledWeight     float64 `toml:"unbilled_weight" json:"unbilledWeight"`
}

func DefaultActorOptions() ActorOptions {
	return ActorOptions{
		CompletionExponent: 0.7,
		LeadWeight:         1.5,
		MainWeight:         1.2,
		MainMaxOrder:       3,
		SupportingWeight:   1,
		SupportingMaxOrder: 10,
		CameoWeight:        0.6,
		UnbilledWeight:     1,
	}
}

// ActorItem is a title with its cast, either under meta or at the root.
type ActorItem struct {
	UniversalID string              `json:"imdbId"`
	Meta        domain.Meta         `json:"meta"`
	Cast        []domain.CastMember `json:"cast,omitempty"`
}

func (i ActorItem) castList() []domain.CastMember {
	if len(i.Meta.Cast) > 0 {
		return i.Meta.Cast
	}
	return i.Cast
}

// TitleProgress is how far the viewer got through one title.
type TitleProgress struct {
	IsCompleted     bool   `json:"isCompleted"`
	WatchedEpisodes Number `json:"watchedEpisodes"`
	TotalEpisodes   Number `json:"totalEpisodes"`
	MinutesWatched  Number `json:"minutesWatched"`
}

// BuildActorProfile credits each cast member with the title's completion
// and log watch time, scaled by billing order. Titles with no progress
// entry or no measurable completion are skipped.
func BuildActorProfile(items []ActorItem, progress map[string]TitleProgress, opts ActorOptions) Distribution {
	raw := make(map[string]float64)
	for _, item := range items {
		p, ok := progress[item.UniversalID]
		if !ok {
			continue
		}
		completion := completionWeight(p, opts.CompletionExponent)
		if completion == 0 {
			continue
		}
		if !p.MinutesWatched.Valid || p.MinutesWatched.Value <= 0 {
			continue
		}

		itemWeight := completion * math.Log1p(p.MinutesWatched.Value)
		for _, member := range item.castList() {
			name := normalizeActor(member.Name)
			if name == "" {
				continue
			}
			raw[name] += itemWeight * roleWeight(member.Order, opts)
		}
	}
	return newDistribution(raw)
}

func completionWeight(p TitleProgress, exponent float64) float64 {
	if p.IsCompleted {
		return 1
	}
	if p.WatchedEpisodes.Valid && p.TotalEpisodes.Valid && p.TotalEpisodes.Value > 0 {
		ratio := p.WatchedEpisodes.Value / p.TotalEpisodes.Value
		if ratio <= 0 {
			return 0
		}
		return math.Pow(ratio, exponent)
	}
	return 0
}

func roleWeight(order *int, opts ActorOptions) float64 {
	switch {
	case order == nil:
		return opts.UnbilledWeight
	case *order == 0:
		return opts.LeadWeight
	case *order <= opts.MainMaxOrder:
		return opts.MainWeight
	case *order <= opts.SupportingMaxOrder:
		return opts.SupportingWeight
	default:
		return opts.CameoWeight
	}
}

func normalizeActor(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}
