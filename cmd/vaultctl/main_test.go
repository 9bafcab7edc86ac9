package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"titlevault/internal/cache"
	"titlevault/internal/domain"
)

type recordedRequest struct {
	method string
	path   string
	query  string
	caller string
	body   string
}

func newFakeServer(t *testing.T, routes map[string]func(w http.ResponseWriter, r *http.Request)) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	seen := make([]recordedRequest, 0)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		seen = append(seen, recordedRequest{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.RawQuery,
			caller: r.Header.Get("X-Caller-ID"),
			body:   string(body),
		})
		handler, ok := routes[r.Method+" "+r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		handler(w, r)
	}))
	t.Cleanup(server.Close)
	return server, &seen
}

func respondJSON(status int, payload any) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("TITLEVAULT_ADDR", "")
	t.Setenv("TITLEVAULT_CALLER", "")
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// ---------------------------------------------------------------------------
// search
// ---------------------------------------------------------------------------

func TestSearchCommandRendersTable(t *testing.T) {
	server, seen := newFakeServer(t, map[string]func(http.ResponseWriter, *http.Request){
		"GET /search": respondJSON(http.StatusOK, domain.SearchResponse{
			Items: []domain.MergedResult{{
				Title:       "Spirited Away",
				Year:        "2001",
				UniversalID: "tt0245429",
				Type:        domain.MediaTypeMovie,
				SourcesUsed: []string{"tmdb", "omdb"},
				Confidence:  80,
			}},
			Providers: []domain.ProviderStatus{{Name: "tmdb", OK: true}, {Name: "mdl", OK: false}},
			ElapsedMS: 42,
		}),
	})

	out, err := runCLI(t, "--addr", server.URL, "--caller", "alice", "search", "spirited", "away", "--year", "2001")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !strings.Contains(out, "Spirited Away") || !strings.Contains(out, "tt0245429") {
		t.Fatalf("expected result row, got:\n%s", out)
	}
	if !strings.Contains(out, "failed providers: mdl") {
		t.Fatalf("expected failed provider summary, got:\n%s", out)
	}
	if len(*seen) != 1 {
		t.Fatalf("expected 1 request, got %d", len(*seen))
	}
	req := (*seen)[0]
	if req.caller != "alice" {
		t.Fatalf("expected caller header alice, got %q", req.caller)
	}
	if !strings.Contains(req.query, "q=spirited+away") || !strings.Contains(req.query, "year=2001") {
		t.Fatalf("unexpected query %q", req.query)
	}
}

func TestSearchCommandJSONOutput(t *testing.T) {
	server, _ := newFakeServer(t, map[string]func(http.ResponseWriter, *http.Request){
		"GET /search": respondJSON(http.StatusOK, domain.SearchResponse{Items: []domain.MergedResult{}, Cached: true}),
	})

	out, err := runCLI(t, "--addr", server.URL, "--json", "search", "nothing")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	var decoded domain.SearchResponse
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("expected JSON output: %v\n%s", err, out)
	}
	if !decoded.Cached {
		t.Fatalf("expected cached flag to round-trip")
	}
}

func TestSearchCommandRequiresQuery(t *testing.T) {
	if _, err := runCLI(t, "search"); err == nil {
		t.Fatalf("expected argument error")
	}
}

// ---------------------------------------------------------------------------
// enrich
// ---------------------------------------------------------------------------

func TestEnrichCommandPostsRecord(t *testing.T) {
	server, seen := newFakeServer(t, map[string]func(http.ResponseWriter, *http.Request){
		"POST /enrich": respondJSON(http.StatusOK, domain.CanonicalRecord{
			Title:             "Parasite",
			UniversalID:       "tt6751668",
			Type:              domain.MediaTypeMovie,
			Country:           "South Korea",
			EnrichmentSources: []string{"base", "regional"},
			Meta: domain.Meta{
				Region: &domain.RegionVerdict{Decision: true, Score: 90},
			},
		}),
	})

	out, err := runCLI(t, "--addr", server.URL, "enrich", "tt6751668", "--title", "Parasite", "--force")
	if err != nil {
		t.Fatalf("enrich: %v", err)
	}
	if !strings.Contains(out, "South Korea") || !strings.Contains(out, "base, regional") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if !strings.Contains(out, "yes (score 90)") {
		t.Fatalf("expected regional verdict, got:\n%s", out)
	}

	req := (*seen)[0]
	if req.query != "force=true" {
		t.Fatalf("expected force param, got %q", req.query)
	}
	var sent domain.CanonicalRecord
	if err := json.Unmarshal([]byte(req.body), &sent); err != nil {
		t.Fatalf("decode request body: %v", err)
	}
	if sent.UniversalID != "tt6751668" || sent.Title != "Parasite" || sent.Type != domain.MediaTypeMovie {
		t.Fatalf("unexpected request body: %+v", sent)
	}
}

// ---------------------------------------------------------------------------
// cache
// ---------------------------------------------------------------------------

func TestCacheStatsCommand(t *testing.T) {
	server, _ := newFakeServer(t, map[string]func(http.ResponseWriter, *http.Request){
		"GET /cache/stats": respondJSON(http.StatusOK, cache.Stats{Backend: "sqlite", TotalEntries: 12, ExpiredEntries: 3, MaxEntries: 500}),
	})

	out, err := runCLI(t, "--addr", server.URL, "cache", "stats")
	if err != nil {
		t.Fatalf("cache stats: %v", err)
	}
	for _, want := range []string{"Backend: sqlite", "Entries: 12 / 500", "Expired: 3"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestCacheSweepForbiddenSurfacesServerError(t *testing.T) {
	server, _ := newFakeServer(t, map[string]func(http.ResponseWriter, *http.Request){
		"POST /cache/sweep": respondJSON(http.StatusForbidden, map[string]any{
			"error": map[string]string{"code": "forbidden", "message": "privileged caller required"},
		}),
	})

	_, err := runCLI(t, "--addr", server.URL, "cache", "sweep")
	var apiErr *apiError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected apiError, got %v", err)
	}
	if apiErr.Status != http.StatusForbidden || apiErr.Code != "forbidden" {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
}

// ---------------------------------------------------------------------------
// address handling
// ---------------------------------------------------------------------------

func TestBaseURLDefaults(t *testing.T) {
	t.Setenv("TITLEVAULT_ADDR", "")
	empty := ""
	ctx := newCommandContext(&empty, &empty, nil)
	if got := ctx.baseURL(); got != defaultAddr {
		t.Fatalf("expected default addr, got %q", got)
	}

	t.Setenv("TITLEVAULT_ADDR", "vault.internal:9000/")
	if got := ctx.baseURL(); got != "http://vault.internal:9000" {
		t.Fatalf("expected env addr with scheme, got %q", got)
	}

	flag := "https://vault.example"
	ctx = newCommandContext(&flag, &empty, nil)
	if got := ctx.baseURL(); got != "https://vault.example" {
		t.Fatalf("expected flag addr, got %q", got)
	}
}
