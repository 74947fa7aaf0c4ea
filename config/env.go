package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	EnvAPIKey    = "API_KEY"
	EnvAPISecret = "API_SECRET"
	EnvBaseURL   = "GOMR_BASE_URL"
	EnvRateLimit = "GOMR_RATE_LIMIT"
	EnvLogLevel  = "GOMR_LOG_LEVEL"
	EnvLogFile   = "GOMR_LOG_FILE"
)

// DefaultBaseURL is the public Binance spot REST endpoint.
const DefaultBaseURL = "https://api.binance.com"

// Env carries process-level settings and credentials. It is loaded once at
// start-up and passed explicitly to the collaborators that need it.
type Env struct {
	APIKey    string
	APISecret string
	BaseURL   string
	RateLimit float64 // requests per second against the market-data API
	LogLevel  string
	LogFile   string
}

// LoadEnv merges the given dotenv files (default ".env") with the process
// environment. Values already present in the process environment win.
// Missing files are ignored; malformed ones are an error.
func LoadEnv(files ...string) (Env, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	vals := map[string]string{}
	for _, f := range files {
		m, err := godotenv.Read(f)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return Env{}, fmt.Errorf("read %s: %w", f, err)
		}
		for k, v := range m {
			if _, seen := vals[k]; !seen {
				vals[k] = v
			}
		}
	}
	get := func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return vals[key]
	}

	env := Env{
		APIKey:    get(EnvAPIKey),
		APISecret: get(EnvAPISecret),
		BaseURL:   get(EnvBaseURL),
		RateLimit: 10,
		LogLevel:  get(EnvLogLevel),
		LogFile:   get(EnvLogFile),
	}
	if env.BaseURL == "" {
		env.BaseURL = DefaultBaseURL
	}
	if env.LogLevel == "" {
		env.LogLevel = "info"
	}
	if raw := get(EnvRateLimit); raw != "" {
		r, err := strconv.ParseFloat(raw, 64)
		if err != nil || r <= 0 {
			return Env{}, fmt.Errorf("%s must be a positive number, got %q", EnvRateLimit, raw)
		}
		env.RateLimit = r
	}
	return env, nil
}
