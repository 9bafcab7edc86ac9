package domain

import "time"

// CanonicalRecord is the long-lived entity a caller persists after
// selecting a MergedResult. Re-enrichment updates it in place.
type CanonicalRecord struct {
	Title       string           `json:"title"`
	Year        string           `json:"year,omitempty"`
	UniversalID string           `json:"imdbId,omitempty"`
	Type        MediaType        `json:"type"`
	Plot        string           `json:"plot,omitempty"`
	Poster      string           `json:"poster,omitempty"`
	Genre       string           `json:"genre,omitempty"`
	Country     string           `json:"country,omitempty"`
	Language    string           `json:"language,omitempty"`
	Runtime     string           `json:"runtime,omitempty"`
	Ratings     []ExternalRating `json:"ratings,omitempty"`

	Meta              Meta         `json:"meta"`
	Catalog           *CatalogInfo `json:"catalog,omitempty"`
	EnrichmentSources []string     `json:"enrichmentSources"`
	Provenance        []Provenance `json:"provenance,omitempty"`
	Enriched          bool         `json:"enriched"`
	EnrichedAt        *time.Time   `json:"enrichedAt,omitempty"`
}

// RecordFromMerged seeds a CanonicalRecord from a selected search result.
func RecordFromMerged(m MergedResult) CanonicalRecord {
	record := CanonicalRecord{
		Title:       m.Title,
		Year:        m.Year,
		UniversalID: m.UniversalID,
		Type:        m.Type,
		Plot:        m.Plot,
		Poster:      m.Poster,
	}
	if m.CatalogID != "" {
		record.Catalog = &CatalogInfo{ID: m.CatalogID}
	}
	return record
}

type Meta struct {
	Director            []string         `json:"director,omitempty"`
	Genres              []string         `json:"genres,omitempty"`
	Cast                []CastMember     `json:"cast,omitempty"`
	Seasons             []SeasonInfo     `json:"seasons,omitempty"`
	Ratings             []ExternalRating `json:"ratings,omitempty"`
	Region              *RegionVerdict   `json:"region,omitempty"`
	ProductionCompanies []string         `json:"productionCompanies,omitempty"`
	TrailerKey          string           `json:"trailerKey,omitempty"`
	Backdrops           []string         `json:"backdrops,omitempty"`
	Anime               *AnimeInfo       `json:"anime,omitempty"`
	Schedule            *ScheduleInfo    `json:"schedule,omitempty"`
	Regional            *RegionalInfo    `json:"regional,omitempty"`
}

type CastMember struct {
	Name      string `json:"name"`
	Character string `json:"character,omitempty"`
	Photo     string `json:"photo,omitempty"`
	Order     *int   `json:"order,omitempty"`
}

type ExternalRating struct {
	Source string `json:"source"`
	Value  string `json:"value"`
}

type SeasonInfo struct {
	Number       int    `json:"number"`
	Name         string `json:"name,omitempty"`
	EpisodeCount int    `json:"episodeCount"`
	AirDate      string `json:"airDate,omitempty"`
	Poster       string `json:"poster,omitempty"`
}

type RegionVerdict struct {
	Decision bool     `json:"decision"`
	Score    int      `json:"score"`
	Reasons  []string `json:"reasons,omitempty"`
}

// RegistrySource tags where a registry-backed payload came from.
type RegistrySource string

const (
	RegistrySourceCache RegistrySource = "cache"
	RegistrySourceAPI   RegistrySource = "api"
)

type AnimeInfo struct {
	MALID          int            `json:"malId"`
	Score          float64        `json:"score,omitempty"`
	Studios        []string       `json:"studios"`
	Confidence     float64        `json:"confidence"`
	RegistrySource RegistrySource `json:"registrySource,omitempty"`
}

type ScheduleInfo struct {
	ShowID     int               `json:"id"`
	Episodes   []ScheduleEpisode `json:"episodes"`
	Cast       []CastMember      `json:"cast"`
	Confidence float64           `json:"confidence"`
}

type ScheduleEpisode struct {
	ID      int    `json:"id"`
	Season  int    `json:"season"`
	Number  int    `json:"number"`
	Name    string `json:"name,omitempty"`
	Airdate string `json:"airdate,omitempty"`
	Runtime int    `json:"runtime,omitempty"`
}

type RegionalInfo struct {
	SourceID       string         `json:"sourceId"`
	Title          string         `json:"title,omitempty"`
	Country        string         `json:"country,omitempty"`
	Rating         float64        `json:"rating,omitempty"`
	Episodes       int            `json:"episodes,omitempty"`
	Synopsis       string         `json:"synopsis,omitempty"`
	Genres         []string       `json:"genres,omitempty"`
	Payload        map[string]any `json:"payload,omitempty"`
	RegistrySource RegistrySource `json:"registrySource"`
}

// CatalogInfo is the detailed-catalog bag attached to a record.
type CatalogInfo struct {
	ID         string        `json:"id"`
	MediaType  string        `json:"mediaType,omitempty"`
	Cast       []CatalogCast `json:"cast,omitempty"`
	Director   []string      `json:"director,omitempty"`
	Seasons    []SeasonInfo  `json:"seasons,omitempty"`
	Backdrops  []string      `json:"backdrops,omitempty"`
	Confidence float64       `json:"confidence,omitempty"`
}

type CatalogCast struct {
	Name        string `json:"name"`
	Character   string `json:"character,omitempty"`
	ProfilePath string `json:"profilePath,omitempty"`
	Order       int    `json:"order"`
}

type Provenance struct {
	Stage string   `json:"stage"`
	Keys  []string `json:"keys"`
}
