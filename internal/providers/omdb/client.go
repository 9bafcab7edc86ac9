package omdb

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"titlevault/internal/domain"
	"titlevault/internal/fetch"
	"titlevault/internal/normalize"
	"titlevault/internal/search"
)

const defaultBaseURL = "https://www.omdbapi.com/"

type Config struct {
	APIKey  string
	BaseURL string
	Fetch   *fetch.Client
}

// Client serves keyword search and by-id detail lookups.
type Client struct {
	apiKey  string
	baseURL string
	fetch   *fetch.Client
}

type SearchResult struct {
	Title  string `json:"Title"`
	Year   string `json:"Year"`
	IMDBID string `json:"imdbID"`
	Type   string `json:"Type"`
	Poster string `json:"Poster"`

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

type searchResponse struct {
	Search   []SearchResult `json:"Search"`
	Response string         `json:"Response"`
	Error    string         `json:"Error"`
}

type Rating struct {
	Source string `json:"Source"`
	Value  string `json:"Value"`
}

type Detail struct {
	Title      string   `json:"Title"`
	Year       string   `json:"Year"`
	Runtime    string   `json:"Runtime"`
	Genre      string   `json:"Genre"`
	Director   string   `json:"Director"`
	Actors     string   `json:"Actors"`
	Plot       string   `json:"Plot"`
	Language   string   `json:"Language"`
	Country    string   `json:"Country"`
	Poster     string   `json:"Poster"`
	Ratings    []Rating `json:"Ratings"`
	IMDBRating string   `json:"imdbRating"`
	IMDBVotes  string   `json:"imdbVotes"`
	IMDBID     string   `json:"imdbID"`
	Type       string   `json:"Type"`
	Response   string   `json:"Response"`
}

func NewClient(cfg Config) *Client {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	client := cfg.Fetch
	if client == nil {
		client = fetch.New()
	}
	return &Client{apiKey: strings.TrimSpace(cfg.APIKey), baseURL: baseURL, fetch: client}
}

func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

func (c *Client) Name() string {
	return "omdb"
}

func (c *Client) Info() domain.ProviderInfo {
	return domain.ProviderInfo{
		Name:    c.Name(),
		Label:   "OMDb",
		Kinds:   []domain.MediaType{domain.MediaTypeMovie, domain.MediaTypeSeries},
		Enabled: c.Enabled(),
	}
}

func (c *Client) Search(ctx context.Context, query domain.Query, kind domain.MediaType) ([]domain.RawCandidate, error) {
	if !c.Enabled() {
		return nil, nil
	}
	params := url.Values{"s": {strings.TrimSpace(query.Text)}, "type": {"movie"}}
	if kind == domain.MediaTypeSeries {
		params.Set("type", "series")
	}
	if query.Year != "" {
		params.Set("y", query.Year)
	}

	var resp searchResponse
	if !c.fetch.JSON(ctx, c.url(params), &resp) {
		return nil, search.ErrSourceUnavailable
	}

	items := make([]domain.RawCandidate, 0, len(resp.Search))
	for _, result := range resp.Search {
		title := strings.TrimSpace(result.Title)
		if title == "" {
			continue
		}
		mediaType := domain.MediaTypeMovie
		if strings.EqualFold(result.Type, "series") {
			mediaType = domain.MediaTypeSeries
		}
		items = append(items, domain.RawCandidate{
			Source:      c.Name(),
			SourceID:    result.IMDBID,
			UniversalID: strings.TrimSpace(result.IMDBID),
			Title:       title,
			Year:        normalize.YearOf(result.Year),
			Type:        mediaType,
			Poster:      Value(result.Poster),
			Raw:         result.raw,
		})
	}
	return items, nil
}

// Detail fetches the full record for a universal identifier.
func (c *Client) Detail(ctx context.Context, imdbID string) (Detail, bool) {
	var detail Detail
	imdbID = strings.TrimSpace(imdbID)
	if !c.Enabled() || imdbID == "" {
		return detail, false
	}
	params := url.Values{"i": {imdbID}, "plot": {"full"}}
	if !c.fetch.JSON(ctx, c.url(params), &detail) || strings.EqualFold(detail.Response, "False") {
		return Detail{}, false
	}
	return detail, true
}

// Value maps the service's "N/A" placeholder to an empty string.
func Value(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "N/A") {
		return ""
	}
	return s
}

func (c *Client) url(params url.Values) string {
	params.Set("apikey", c.apiKey)
	sep := "?"
	if strings.Contains(c.baseURL, "?") {
		sep = "&"
	}
	return c.baseURL + sep + params.Encode()
}
