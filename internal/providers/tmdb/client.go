package tmdb

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"titlevault/internal/domain"
	"titlevault/internal/fetch"
	"titlevault/internal/normalize"
	"titlevault/internal/search"
)

const (
	defaultBaseURL  = "https://api.themoviedb.org/3"
	defaultImageURL = "https://image.tmdb.org/t/p"
	posterSize      = "w500"
	profileSize     = "w185"
)

type Config struct {
	APIKey   string
	BaseURL  string
	ImageURL string
	Fetch    *fetch.Client
}

// Client talks to the general catalog service. It serves both search and
// the detail calls of the catalog enrichment stage.
type Client struct {
	apiKey   string
	baseURL  string
	imageURL string
	fetch    *fetch.Client
}

type SearchResult struct {
	ID           int      `json:"id"`
	Title        string   `json:"title,omitempty"`
	Name         string   `json:"name,omitempty"`
	Overview     string   `json:"overview,omitempty"`
	PosterPath   string   `json:"poster_path,omitempty"`
	Popularity   *float64 `json:"popularity,omitempty"`
	ReleaseDate  string   `json:"release_date,omitempty"`
	FirstAirDate string   `json:"first_air_date,omitempty"`
	MediaType    string   `json:"media_type,omitempty"`

	raw json.RawMessage
}

// UnmarshalJSON keeps the undecoded result alongside the typed fields.
func (r *SearchResult) UnmarshalJSON(data []byte) error {
	type plain SearchResult
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*r = SearchResult(decoded)
	r.raw = append(json.RawMessage(nil), data...)
	return nil
}

func (r SearchResult) DisplayTitle() string {
	if r.Title != "" {
		return r.Title
	}
	return r.Name
}

func (r SearchResult) Year() string {
	if year := normalize.YearOf(r.ReleaseDate); year != "" {
		return year
	}
	return normalize.YearOf(r.FirstAirDate)
}

type searchResponse struct {
	Results []SearchResult `json:"results"`
}

type findResponse struct {
	MovieResults []SearchResult `json:"movie_results"`
	TVResults    []SearchResult `json:"tv_results"`
}

type CastCredit struct {
	Name        string `json:"name"`
	Character   string `json:"character"`
	ProfilePath string `json:"profile_path"`
	Order       int    `json:"order"`
}

type CrewCredit struct {
	Name string `json:"name"`
	Job  string `json:"job"`
}

type Credits struct {
	Cast []CastCredit `json:"cast"`
	Crew []CrewCredit `json:"crew"`
}

// Directors lists crew members credited with the Director job.
func (c Credits) Directors() []string {
	var names []string
	for _, member := range c.Crew {
		if member.Job == "Director" && strings.TrimSpace(member.Name) != "" {
			names = append(names, member.Name)
		}
	}
	return names
}

type Season struct {
	SeasonNumber int    `json:"season_number"`
	Name         string `json:"name"`
	EpisodeCount int    `json:"episode_count"`
	AirDate      string `json:"air_date"`
	PosterPath   string `json:"poster_path"`
}

type Video struct {
	Key  string `json:"key"`
	Site string `json:"site"`
	Type string `json:"type"`
}

type Details struct {
	ID                  int      `json:"id"`
	BackdropPath        string   `json:"backdrop_path"`
	Seasons             []Season `json:"seasons"`
	Genres              []named  `json:"genres"`
	ProductionCompanies []named  `json:"production_companies"`
	Videos              struct {
		Results []Video `json:"results"`
	} `json:"videos"`
}

type named struct {
	Name string `json:"name"`
}

// TrailerKey returns the first YouTube trailer, falling back to any
// YouTube video.
func (d Details) TrailerKey() string {
	fallback := ""
	for _, video := range d.Videos.Results {
		if !strings.EqualFold(video.Site, "YouTube") || video.Key == "" {
			continue
		}
		if strings.EqualFold(video.Type, "Trailer") {
			return video.Key
		}
		if fallback == "" {
			fallback = video.Key
		}
	}
	return fallback
}

func (d Details) GenreNames() []string {
	return names(d.Genres)
}

func (d Details) CompanyNames() []string {
	return names(d.ProductionCompanies)
}

type Image struct {
	FilePath string `json:"file_path"`
}

type Images struct {
	Backdrops []Image `json:"backdrops"`
}

func NewClient(cfg Config) *Client {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	imageURL := strings.TrimSpace(cfg.ImageURL)
	if imageURL == "" {
		imageURL = defaultImageURL
	}
	client := cfg.Fetch
	if client == nil {
		client = fetch.New()
	}
	return &Client{
		apiKey:   strings.TrimSpace(cfg.APIKey),
		baseURL:  strings.TrimRight(baseURL, "/"),
		imageURL: strings.TrimRight(imageURL, "/"),
		fetch:    client,
	}
}

func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

func (c *Client) Name() string {
	return "tmdb"
}

func (c *Client) Info() domain.ProviderInfo {
	return domain.ProviderInfo{
		Name:    c.Name(),
		Label:   "TMDB",
		Kinds:   []domain.MediaType{domain.MediaTypeMovie, domain.MediaTypeSeries},
		Enabled: c.Enabled(),
	}
}

func (c *Client) Search(ctx context.Context, query domain.Query, kind domain.MediaType) ([]domain.RawCandidate, error) {
	if !c.Enabled() {
		return nil, nil
	}
	params := url.Values{"query": {strings.TrimSpace(query.Text)}}
	endpoint := "/search/movie"
	if kind == domain.MediaTypeSeries {
		endpoint = "/search/tv"
		if query.Year != "" {
			params.Set("first_air_date_year", query.Year)
		}
	} else if query.Year != "" {
		params.Set("year", query.Year)
	}

	var resp searchResponse
	if !c.fetch.JSON(ctx, c.url(endpoint, params), &resp) {
		return nil, search.ErrSourceUnavailable
	}

	items := make([]domain.RawCandidate, 0, len(resp.Results))
	for _, result := range resp.Results {
		title := strings.TrimSpace(result.DisplayTitle())
		if title == "" {
			continue
		}
		mediaType := domain.MediaTypeMovie
		if kind == domain.MediaTypeSeries || result.MediaType == "tv" || result.FirstAirDate != "" {
			mediaType = domain.MediaTypeSeries
		}
		items = append(items, domain.RawCandidate{
			Source:     c.Name(),
			SourceID:   strconv.Itoa(result.ID),
			CatalogID:  strconv.Itoa(result.ID),
			Title:      title,
			Year:       result.Year(),
			Type:       mediaType,
			Plot:       strings.TrimSpace(result.Overview),
			Poster:     c.ImageURL(posterSize, result.PosterPath),
			Raw:        result.raw,
			Popularity: result.Popularity,
		})
	}
	return items, nil
}

// Find resolves a universal identifier to a catalog id, looking only at
// the series or movie bucket.
func (c *Client) Find(ctx context.Context, imdbID string, series bool) (string, bool) {
	imdbID = strings.TrimSpace(imdbID)
	if !c.Enabled() || imdbID == "" {
		return "", false
	}
	var resp findResponse
	params := url.Values{"external_source": {"imdb_id"}}
	if !c.fetch.JSON(ctx, c.url("/find/"+url.PathEscape(imdbID), params), &resp) {
		return "", false
	}
	bucket := resp.MovieResults
	if series {
		bucket = resp.TVResults
	}
	if len(bucket) == 0 || bucket[0].ID == 0 {
		return "", false
	}
	return strconv.Itoa(bucket[0].ID), true
}

func (c *Client) Credits(ctx context.Context, id string, series bool) (Credits, bool) {
	var credits Credits
	ok := c.Enabled() && c.fetch.JSON(ctx, c.url(c.titlePath(id, series)+"/credits", nil), &credits)
	return credits, ok
}

func (c *Client) Details(ctx context.Context, id string, series bool) (Details, bool) {
	var details Details
	params := url.Values{"append_to_response": {"videos"}}
	ok := c.Enabled() && c.fetch.JSON(ctx, c.url(c.titlePath(id, series), params), &details)
	return details, ok
}

func (c *Client) Images(ctx context.Context, id string, series bool) (Images, bool) {
	var images Images
	ok := c.Enabled() && c.fetch.JSON(ctx, c.url(c.titlePath(id, series)+"/images", nil), &images)
	return images, ok
}

// ImageURL builds an absolute image reference; empty paths stay empty.
func (c *Client) ImageURL(size, path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	return c.imageURL + "/" + size + path
}

// ProfileURL is ImageURL at the portrait size used for cast photos.
func (c *Client) ProfileURL(path string) string {
	return c.ImageURL(profileSize, path)
}

func (c *Client) titlePath(id string, series bool) string {
	kind := "movie"
	if series {
		kind = "tv"
	}
	return "/" + kind + "/" + url.PathEscape(strings.TrimSpace(id))
}

func (c *Client) url(path string, params url.Values) string {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)
	return c.baseURL + path + "?" + params.Encode()
}

func names(items []named) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if name := strings.TrimSpace(item.Name); name != "" {
			out = append(out, name)
		}
	}
	return out
}
