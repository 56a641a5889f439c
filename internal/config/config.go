package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultImageBaseURL = "https://image.pollinations.ai"
	DefaultTextBaseURL  = "https://text.pollinations.ai"
	DefaultTextModel    = "llama"
	DefaultGeminiModel  = "gemini-2.0-flash"
	DefaultReferrer     = "imagine"

	ProviderPollinations = "pollinations"
	ProviderGemini       = "gemini"
	ProviderNone         = "none"
)

type Config struct {
	LogLevel string

	StagingDir       string
	BatchConcurrency int

	FetchInterval      time.Duration
	FetchRetries       int
	FetchRetryInterval time.Duration
	HTTPTimeout        time.Duration

	ImageBaseURL string
	TextBaseURL  string
	TextModel    string
	Referrer     string

	PollinationsToken      string
	PollinationsTokenParam string

	EnhancerProvider  string
	GeminiModel       string
	GeminiAPIKey      string
	GeminiAPIKeyParam string
	EnhanceCacheTTL   time.Duration

	PromptsParam string
}

// Load reads the configuration from the environment. A .env file in the
// working directory is applied first when present; real variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		StagingDir:             getEnv("STAGING_DIR", filepath.Join(os.TempDir(), "pollinations_output")),
		ImageBaseURL:           getEnv("IMAGE_BASE_URL", DefaultImageBaseURL),
		TextBaseURL:            getEnv("TEXT_BASE_URL", DefaultTextBaseURL),
		TextModel:              getEnv("TEXT_MODEL", DefaultTextModel),
		Referrer:               getEnv("REFERRER", DefaultReferrer),
		PollinationsToken:      getEnv("POLLINATIONS_TOKEN", ""),
		PollinationsTokenParam: getEnv("POLLINATIONS_TOKEN_PARAM", ""),
		EnhancerProvider:       getEnv("ENHANCER_PROVIDER", ProviderPollinations),
		GeminiModel:            getEnv("GEMINI_MODEL", DefaultGeminiModel),
		GeminiAPIKey:           getEnv("GEMINI_API_KEY", ""),
		GeminiAPIKeyParam:      getEnv("GEMINI_API_KEY_PARAM", ""),
		PromptsParam:           getEnv("PROMPTS_PARAM", ""),
	}

	var err error
	if cfg.BatchConcurrency, err = getEnvInt("BATCH_CONCURRENCY", 4); err != nil {
		return nil, err
	}
	if cfg.FetchRetries, err = getEnvInt("FETCH_RETRIES", 2); err != nil {
		return nil, err
	}
	if cfg.FetchInterval, err = getEnvDuration("FETCH_INTERVAL", 0); err != nil {
		return nil, err
	}
	if cfg.FetchRetryInterval, err = getEnvDuration("FETCH_RETRY_INTERVAL", time.Second); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getEnvDuration("HTTP_TIMEOUT", 120*time.Second); err != nil {
		return nil, err
	}
	if cfg.EnhanceCacheTTL, err = getEnvDuration("ENHANCE_CACHE_TTL", 10*time.Minute); err != nil {
		return nil, err
	}

	switch cfg.EnhancerProvider {
	case ProviderPollinations, ProviderGemini, ProviderNone:
	default:
		return nil, fmt.Errorf("ENHANCER_PROVIDER: unknown provider %q", cfg.EnhancerProvider)
	}
	if cfg.BatchConcurrency < 1 {
		return nil, fmt.Errorf("BATCH_CONCURRENCY: must be at least 1, got %d", cfg.BatchConcurrency)
	}
	if cfg.FetchRetries < 0 {
		return nil, fmt.Errorf("FETCH_RETRIES: must not be negative, got %d", cfg.FetchRetries)
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
