package tvmaze

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

const defaultBaseURL = "https://api.tvmaze.com"

type Config struct {
	BaseURL string
	Fetch   *fetch.Client
}

// Client reads the TV schedule service. No key is required.
type Client struct {
	baseURL string
	fetch   *fetch.Client
}

type Image struct {
	Medium   string `json:"medium"`
	Original string `json:"original"`
}

type Show struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Premiered string `json:"premiered"`
	Summary   string `json:"summary"`
	Image     *Image `json:"image"`
	Externals struct {
		IMDB string `json:"imdb"`
	} `json:"externals"`
}

type searchHit struct {
	Score float64 `json:"score"`
	Show  Show    `json:"show"`

	raw json.RawMessage
}

func (h *searchHit) UnmarshalJSON(data []byte) error {
	type plain searchHit
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*h = searchHit(decoded)
	h.raw = append(json.RawMessage(nil), data...)
	return nil
}

type Episode struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Season  int    `json:"season"`
	Number  *int   `json:"number"`
	Airdate string `json:"airdate"`
	Runtime *int   `json:"runtime"`
}

type Person struct {
	Name  string `json:"name"`
	Image *Image `json:"image"`
}

type Character struct {
	Name string `json:"name"`
}

type CastCredit struct {
	Person    Person    `json:"person"`
	Character Character `json:"character"`
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
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), fetch: client}
}

func (c *Client) Name() string {
	return "tvmaze"
}

func (c *Client) Info() domain.ProviderInfo {
	return domain.ProviderInfo{
		Name:    c.Name(),
		Label:   "TVmaze",
		Kinds:   []domain.MediaType{domain.MediaTypeSeries},
		Enabled: true,
	}
}

func (c *Client) Search(ctx context.Context, query domain.Query, _ domain.MediaType) ([]domain.RawCandidate, error) {
	var hits []searchHit
	endpoint := c.baseURL + "/search/shows?" + url.Values{"q": {strings.TrimSpace(query.Text)}}.Encode()
	if !c.fetch.JSON(ctx, endpoint, &hits) {
		return nil, search.ErrSourceUnavailable
	}

	items := make([]domain.RawCandidate, 0, len(hits))
	for _, hit := range hits {
		show := hit.Show
		title := strings.TrimSpace(show.Name)
		if title == "" {
			continue
		}
		poster := ""
		if show.Image != nil {
			poster = show.Image.Original
		}
		items = append(items, domain.RawCandidate{
			Source:      c.Name(),
			SourceID:    strconv.Itoa(show.ID),
			UniversalID: strings.TrimSpace(show.Externals.IMDB),
			Title:       title,
			Year:        normalize.YearOf(show.Premiered),
			Type:        domain.MediaTypeSeries,
			Plot:        normalize.StripHTML(show.Summary),
			Poster:      poster,
			Raw:         hit.raw,
		})
	}
	return items, nil
}

// Lookup finds a show by its universal identifier.
func (c *Client) Lookup(ctx context.Context, imdbID string) (Show, bool) {
	var show Show
	imdbID = strings.TrimSpace(imdbID)
	if imdbID == "" {
		return show, false
	}
	endpoint := c.baseURL + "/lookup/shows?" + url.Values{"imdb": {imdbID}}.Encode()
	if !c.fetch.JSON(ctx, endpoint, &show) || show.ID == 0 {
		return Show{}, false
	}
	return show, true
}

func (c *Client) Episodes(ctx context.Context, showID int) ([]Episode, bool) {
	var episodes []Episode
	ok := c.fetch.JSON(ctx, c.baseURL+"/shows/"+strconv.Itoa(showID)+"/episodes", &episodes)
	return episodes, ok
}

func (c *Client) Cast(ctx context.Context, showID int) ([]CastCredit, bool) {
	var cast []CastCredit
	ok := c.fetch.JSON(ctx, c.baseURL+"/shows/"+strconv.Itoa(showID)+"/cast", &cast)
	return cast, ok
}
