package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr       string
	LogLevel       string
	LogFormat      string
	SearchTimeout  time.Duration
	FetchTimeout   time.Duration
	FetchRetries   int
	APIRateLimit   float64
	APIRateBurst   int
	JikanRateLimit float64

	TMDBAPIKey    string
	TMDBBaseURL   string
	OMDBAPIKey    string
	OMDBBaseURL   string
	TVMazeBaseURL string
	JikanBaseURL  string
	RapidAPIKey   string
	MDLHost       string
	MDLBaseURL    string

	CacheBackend    string
	RedisURL        string
	CacheSQLitePath string
	CacheTTL        time.Duration
	CacheMaxEntries int
	CacheSweep      bool

	MongoURI      string
	MongoDatabase string

	PrivilegedCallers []string
	TuningFile        string
}

func LoadConfig() Config {
	return Config{
		HTTPAddr:       getEnv("HTTP_ADDR", ":8095"),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:      strings.ToLower(getEnv("LOG_FORMAT", "text")),
		SearchTimeout:  getEnvDuration("SEARCH_TIMEOUT", 35*time.Second),
		FetchTimeout:   time.Duration(getEnvInt("FETCH_TIMEOUT_MS", 10000)) * time.Millisecond,
		FetchRetries:   getEnvInt("FETCH_RETRIES", 2),
		APIRateLimit:   getEnvFloat("API_RATE_LIMIT_RPS", 50),
		APIRateBurst:   getEnvInt("API_RATE_LIMIT_BURST", 100),
		JikanRateLimit: getEnvFloat("JIKAN_RATE_LIMIT_RPS", 3),

		TMDBAPIKey:    strings.TrimSpace(os.Getenv("TMDB_API_KEY")),
		TMDBBaseURL:   getEnv("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
		OMDBAPIKey:    strings.TrimSpace(os.Getenv("OMDB_API_KEY")),
		OMDBBaseURL:   getEnv("OMDB_BASE_URL", "https://www.omdbapi.com/"),
		TVMazeBaseURL: getEnv("TVMAZE_BASE_URL", "https://api.tvmaze.com"),
		JikanBaseURL:  getEnv("JIKAN_BASE_URL", "https://api.jikan.moe/v4"),
		RapidAPIKey:   strings.TrimSpace(os.Getenv("RAPIDAPI_KEY")),
		MDLHost:       getEnv("MDL_HOST", "mydramalist-api.p.rapidapi.com"),
		MDLBaseURL:    getEnv("MDL_BASE_URL", ""),

		CacheBackend:    strings.ToLower(getEnv("CACHE_BACKEND", "memory")),
		RedisURL:        getEnv("REDIS_URL", ""),
		CacheSQLitePath: getEnv("CACHE_SQLITE_PATH", "titlevault-cache.db"),
		CacheTTL:        time.Duration(getEnvInt("CACHE_TTL_DAYS", 30)) * 24 * time.Hour,
		CacheMaxEntries: getEnvInt("CACHE_MAX_ENTRIES", 500),
		CacheSweep:      getEnvBool("CACHE_SWEEP_ON_START", true),

		MongoURI:      getEnv("MONGO_URI", ""),
		MongoDatabase: getEnv("MONGO_DATABASE", "titlevault"),

		PrivilegedCallers: getEnvList("PRIVILEGED_CALLERS"),
		TuningFile:        getEnv("TUNING_FILE", ""),
	}
}

// IsPrivileged reports whether callerID is listed in PRIVILEGED_CALLERS.
func (c Config) IsPrivileged(callerID string) bool {
	callerID = strings.TrimSpace(callerID)
	if callerID == "" {
		return false
	}
	for _, id := range c.PrivilegedCallers {
		if id == callerID {
			return true
		}
	}
	return false
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
