package mdl

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/spf13/cast"

	"titlevault/internal/domain"
	"titlevault/internal/fetch"
	"titlevault/internal/normalize"
	"titlevault/internal/search"
)

const (
	defaultHost = "mydramalist-api.p.rapidapi.com"
)

type Config struct {
	APIKey string
	Host   string
	// BaseURL overrides https://<Host>.
	BaseURL string
	Fetch   *fetch.Client
}

// Client reads the regional drama catalog through the RapidAPI proxy.
// Its payloads are loosely typed so results stay as generic maps.
type Client struct {
	apiKey  string
	host    string
	baseURL string
	fetch   *fetch.Client
}

type searchResponse struct {
	Results []json.RawMessage `json:"results"`
}

type searchHit struct {
	fields map[string]any
	raw    json.RawMessage
}

func NewClient(cfg Config) *Client {
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = defaultHost
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = "https://" + host
	}
	client := cfg.Fetch
	if client == nil {
		client = fetch.New()
	}
	return &Client{
		apiKey:  strings.TrimSpace(cfg.APIKey),
		host:    host,
		baseURL: strings.TrimRight(baseURL, "/"),
		fetch:   client,
	}
}

func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

func (c *Client) Name() string {
	return "mdl"
}

// Source is the registry name results are persisted under.
func (c *Client) Source() string {
	return "mdl"
}

func (c *Client) Info() domain.ProviderInfo {
	return domain.ProviderInfo{
		Name:    c.Name(),
		Label:   "MyDramaList",
		Kinds:   []domain.MediaType{domain.MediaTypeSeries},
		Enabled: c.Enabled(),
	}
}

func (c *Client) Search(ctx context.Context, query domain.Query, _ domain.MediaType) ([]domain.RawCandidate, error) {
	if !c.Enabled() {
		return nil, nil
	}
	results, ok := c.search(ctx, query.Text)
	if !ok {
		return nil, search.ErrSourceUnavailable
	}

	items := make([]domain.RawCandidate, 0, len(results))
	for _, hit := range results {
		result := hit.fields
		title := firstString(result, "title", "name", "original_title")
		if title == "" {
			continue
		}
		items = append(items, domain.RawCandidate{
			Source:     c.Name(),
			SourceID:   normalize.ID(result["id"]),
			Title:      title,
			Year:       normalize.YearOf(firstValue(result, "year", "released", "aired")),
			Type:       domain.MediaTypeSeries,
			Plot:       normalize.StripHTML(firstString(result, "synopsis", "description")),
			Poster:     firstString(result, "poster", "thumb", "cover", "image"),
			Popularity: normalize.NumberPtr(result["popularity"]),
			Raw:        hit.raw,
		})
	}
	return items, nil
}

// Resolve searches by title and fetches the detail record of the first hit.
func (c *Client) Resolve(ctx context.Context, title string) (domain.Resolution, bool) {
	title = strings.TrimSpace(title)
	if !c.Enabled() || title == "" {
		return domain.Resolution{}, false
	}
	results, ok := c.search(ctx, title)
	if !ok || len(results) == 0 {
		return domain.Resolution{}, false
	}
	id := normalize.ID(results[0].fields["id"])
	if id == "" {
		return domain.Resolution{}, false
	}

	var detail map[string]any
	if !c.fetch.JSON(ctx, c.baseURL+"/title/"+url.PathEscape(id), &detail, fetch.RapidAPI(c.apiKey, c.host)) || len(detail) == 0 {
		return domain.Resolution{}, false
	}
	return domain.Resolution{SourceID: id, Payload: detail}, true
}

func (c *Client) search(ctx context.Context, query string) ([]searchHit, bool) {
	var resp searchResponse
	endpoint := c.baseURL + "/search/title?" + url.Values{"q": {strings.TrimSpace(query)}}.Encode()
	if !c.fetch.JSON(ctx, endpoint, &resp, fetch.RapidAPI(c.apiKey, c.host)) {
		return nil, false
	}
	hits := make([]searchHit, 0, len(resp.Results))
	for _, raw := range resp.Results {
		var fields map[string]any
		if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
			continue
		}
		hits = append(hits, searchHit{fields: fields, raw: raw})
	}
	return hits, true
}

func firstValue(bag map[string]any, keys ...string) any {
	for _, key := range keys {
		if value, ok := bag[key]; ok && value != nil {
			return value
		}
	}
	return nil
}

func firstString(bag map[string]any, keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(cast.ToString(bag[key])); value != "" {
			return value
		}
	}
	return ""
}
