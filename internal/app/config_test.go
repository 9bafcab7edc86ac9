package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"HTTP_ADDR", "FETCH_TIMEOUT_MS", "FETCH_RETRIES", "CACHE_BACKEND", "CACHE_TTL_DAYS", "PRIVILEGED_CALLERS"} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()

	if cfg.HTTPAddr != ":8095" {
		t.Fatalf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.FetchTimeout != 10*time.Second || cfg.FetchRetries != 2 {
		t.Fatalf("fetch = %s/%d, want 10s/2", cfg.FetchTimeout, cfg.FetchRetries)
	}
	if cfg.CacheBackend != "memory" || cfg.CacheTTL != 30*24*time.Hour || cfg.CacheMaxEntries != 500 {
		t.Fatalf("cache = %q %s %d", cfg.CacheBackend, cfg.CacheTTL, cfg.CacheMaxEntries)
	}
	if len(cfg.PrivilegedCallers) != 0 {
		t.Fatalf("PrivilegedCallers = %v, want none", cfg.PrivilegedCallers)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("FETCH_TIMEOUT_MS", "2500")
	t.Setenv("FETCH_RETRIES", "-1")
	t.Setenv("SEARCH_TIMEOUT", "5s")
	t.Setenv("CACHE_BACKEND", "Redis")
	t.Setenv("CACHE_SWEEP_ON_START", "off")
	t.Setenv("JIKAN_RATE_LIMIT_RPS", "1.5")
	t.Setenv("PRIVILEGED_CALLERS", " admin-1, ,ops ")

	cfg := LoadConfig()

	if cfg.FetchTimeout != 2500*time.Millisecond {
		t.Fatalf("FetchTimeout = %s", cfg.FetchTimeout)
	}
	if cfg.FetchRetries != 2 {
		t.Fatalf("FetchRetries = %d, want fallback 2", cfg.FetchRetries)
	}
	if cfg.SearchTimeout != 5*time.Second || cfg.CacheBackend != "redis" || cfg.CacheSweep {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.JikanRateLimit != 1.5 {
		t.Fatalf("JikanRateLimit = %v", cfg.JikanRateLimit)
	}
	if !cfg.IsPrivileged("admin-1") || !cfg.IsPrivileged("ops") || cfg.IsPrivileged("") || cfg.IsPrivileged("user") {
		t.Fatalf("privileged callers = %v", cfg.PrivilegedCallers)
	}
}

// -----------------------------------------------------------------------------
// Tuning
// -----------------------------------------------------------------------------

func TestLoadTuningWithoutFileReturnsDefaults(t *testing.T) {
	for _, path := range []string{"", filepath.Join(t.TempDir(), "missing.toml")} {
		got, err := LoadTuning(path)
		if err != nil {
			t.Fatalf("LoadTuning(%q): %v", path, err)
		}
		if got.Region.Threshold != DefaultTuning().Region.Threshold {
			t.Fatalf("threshold = %d", got.Region.Threshold)
		}
	}
}

func TestLoadTuningOverridesOnlyGivenKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.toml")
	content := `
[region]
threshold = 70

[rating]
min_minutes = 45

[actor]
lead_weight = 2.0
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := LoadTuning(path)
	if err != nil {
		t.Fatalf("LoadTuning: %v", err)
	}
	defaults := DefaultTuning()
	if got.Region.Threshold != 70 || got.Region.AsianCountry != defaults.Region.AsianCountry {
		t.Fatalf("region = %+v", got.Region)
	}
	if got.Rating.MinMinutes != 45 || got.Rating.ReferenceMinutes != defaults.Rating.ReferenceMinutes {
		t.Fatalf("rating = %+v", got.Rating)
	}
	if got.Actor.LeadWeight != 2 || got.Actor.CompletionExponent != defaults.Actor.CompletionExponent {
		t.Fatalf("actor = %+v", got.Actor)
	}
	if got.Search.ExactTitle != defaults.Search.ExactTitle {
		t.Fatalf("search = %+v", got.Search)
	}
}

func TestLoadTuningRejectsInvalidFiles(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"unknown key", "[region]\nthreshhold = 3\n", "parse tuning file"},
		{"malformed", "[region\n", "parse tuning file"},
		{"invalid value", "[genre]\nrecency_half_life_days = 0\n", "recency_half_life_days"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "tuning.toml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			got, err := LoadTuning(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want containing %q", err, tt.wantErr)
			}
			if got.Region.Threshold != DefaultTuning().Region.Threshold {
				t.Fatalf("invalid file leaked values: %+v", got.Region)
			}
		})
	}
}
