package jikan

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
	defaultBaseURL = "https://api.jikan.moe/v4"
	searchLimit    = 5
)

type Config struct {
	BaseURL string
	Fetch   *fetch.Client
}

// Client reads the anime catalog. It is the "mal" registry source.
type Client struct {
	baseURL string
	fetch   *fetch.Client
}

type Anime struct {
	MALID        int     `json:"mal_id"`
	Title        string  `json:"title"`
	TitleEnglish string  `json:"title_english"`
	Year         *int    `json:"year"`
	Synopsis     string  `json:"synopsis"`
	Members      float64 `json:"members"`
	Aired        struct {
		From string `json:"from"`
	} `json:"aired"`
	Images struct {
		JPG struct {
			ImageURL      string `json:"image_url"`
			LargeImageURL string `json:"large_image_url"`
		} `json:"jpg"`
	} `json:"images"`

	raw json.RawMessage
}

func (a *Anime) UnmarshalJSON(data []byte) error {
	type plain Anime
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*a = Anime(decoded)
	a.raw = append(json.RawMessage(nil), data...)
	return nil
}

type searchResponse struct {
	Data []Anime `json:"data"`
}

type rawSearchResponse struct {
	Data []map[string]any `json:"data"`
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
	return "jikan"
}

// Source is the registry name results are persisted under.
func (c *Client) Source() string {
	return "mal"
}

func (c *Client) Info() domain.ProviderInfo {
	return domain.ProviderInfo{
		Name:    c.Name(),
		Label:   "Jikan (MyAnimeList)",
		Kinds:   []domain.MediaType{domain.MediaTypeAnime},
		Enabled: true,
	}
}

func (c *Client) Search(ctx context.Context, query domain.Query, _ domain.MediaType) ([]domain.RawCandidate, error) {
	var resp searchResponse
	if !c.fetch.JSON(ctx, c.searchURL(query.Text, searchLimit), &resp) {
		return nil, search.ErrSourceUnavailable
	}

	items := make([]domain.RawCandidate, 0, len(resp.Data))
	for _, anime := range resp.Data {
		title := strings.TrimSpace(anime.Title)
		if title == "" {
			title = strings.TrimSpace(anime.TitleEnglish)
		}
		if title == "" {
			continue
		}
		year := normalize.YearOf(anime.Aired.From)
		if anime.Year != nil && *anime.Year > 0 {
			year = strconv.Itoa(*anime.Year)
		}
		poster := anime.Images.JPG.LargeImageURL
		if poster == "" {
			poster = anime.Images.JPG.ImageURL
		}
		var votes *float64
		if anime.Members > 0 {
			members := anime.Members
			votes = &members
		}
		items = append(items, domain.RawCandidate{
			Source:   c.Name(),
			SourceID: strconv.Itoa(anime.MALID),
			Title:    title,
			Year:     year,
			Type:     domain.MediaTypeSeries,
			Plot:     strings.TrimSpace(anime.Synopsis),
			Poster:   poster,
			Votes:    votes,
			Raw:      anime.raw,
		})
	}
	return items, nil
}

// Resolve returns the best match for title with its full payload.
func (c *Client) Resolve(ctx context.Context, title string) (domain.Resolution, bool) {
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.Resolution{}, false
	}
	var resp rawSearchResponse
	if !c.fetch.JSON(ctx, c.searchURL(title, 1), &resp) || len(resp.Data) == 0 {
		return domain.Resolution{}, false
	}
	payload := resp.Data[0]
	id := normalize.ID(payload["mal_id"])
	if id == "" {
		return domain.Resolution{}, false
	}
	return domain.Resolution{SourceID: id, Payload: payload}, true
}

func (c *Client) searchURL(query string, limit int) string {
	params := url.Values{
		"q":     {strings.TrimSpace(query)},
		"limit": {strconv.Itoa(limit)},
	}
	return c.baseURL + "/anime?" + params.Encode()
}
