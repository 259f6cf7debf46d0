package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	ProviderGemini = "gemini"
	ProviderFlux   = "flux"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv        string
	Port          string
	DefaultLocale string
	GeoIPDBPath   string
	CORSOrigins   []string

	ImageProvider      string
	CreditsPerImage    int
	DefaultCredits     int
	TopUpEnabled       bool
	MaxUploadBytes     int64
	BreakerFailures    int
	BreakerOpenTimeout time.Duration

	GeminiAPIKey             string
	GeminiModel              string
	GeminiBaseURL            string
	GeminiTemperature        float64
	GeminiCustomTemperature  float64
	GeminiTopK               int
	GeminiTopP               float64
	GeminiMaxOutputTokens    int
	GeminiResponseModalities []string
	GeminiTimeout            time.Duration

	FluxAPIKey       string
	FluxBaseURL      string
	FluxModel        string
	FluxAspectRatio  string
	FluxPollInterval time.Duration
	FluxMaxAttempts  int
	FluxTimeout      time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:        getEnv("APP_ENV", "development"),
		Port:          getEnv("PORT", "3000"),
		DefaultLocale: getEnv("DEFAULT_LOCALE", "en"),
		GeoIPDBPath:   os.Getenv("GEOIP_DB_PATH"),
		CORSOrigins:   splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),

		ImageProvider:      normalizeProvider(getEnv("IMAGE_PROVIDER", ProviderGemini)),
		CreditsPerImage:    getEnvInt("CREDITS_PER_IMAGE", 2),
		DefaultCredits:     getEnvInt("MAX_CREDITS_PER_USER", 1000),
		TopUpEnabled:       getEnvBool("CREDITS_TOPUP_ENABLED", false),
		MaxUploadBytes:     int64(getEnvInt("MAX_UPLOAD_MB", 10)) << 20,
		BreakerFailures:    getEnvInt("PROVIDER_BREAKER_FAILURES", 5),
		BreakerOpenTimeout: getEnvDuration("PROVIDER_BREAKER_TIMEOUT", 30*time.Second),

		GeminiAPIKey:             firstEnv("GOOGLE_API_KEY", "GEMINI_API_KEY"),
		GeminiModel:              getEnv("GEMINI_MODEL", "gemini-2.5-flash-image-preview"),
		GeminiBaseURL:            getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		GeminiTemperature:        getEnvFloat("GEMINI_TEMPERATURE", 0.8),
		GeminiCustomTemperature:  getEnvFloat("GEMINI_CUSTOM_TEMPERATURE", 0.9),
		GeminiTopK:               getEnvInt("GEMINI_TOP_K", 40),
		GeminiTopP:               getEnvFloat("GEMINI_TOP_P", 0.95),
		GeminiMaxOutputTokens:    getEnvInt("GEMINI_MAX_TOKENS", 4096),
		GeminiResponseModalities: splitList(getEnv("GEMINI_RESPONSE_MODALITIES", "TEXT,IMAGE")),
		GeminiTimeout:            getEnvDuration("GEMINI_TIMEOUT", 60*time.Second),

		FluxAPIKey:       firstEnv("BFL_API_KEY", "FLUX_API_KEY"),
		FluxBaseURL:      getEnv("FLUX_BASE_URL", "https://api.bfl.ai/v1"),
		FluxModel:        getEnv("FLUX_MODEL", "flux-kontext-pro"),
		FluxAspectRatio:  getEnv("FLUX_ASPECT_RATIO", "1:1"),
		FluxPollInterval: getEnvDuration("FLUX_POLL_INTERVAL", 500*time.Millisecond),
		FluxMaxAttempts:  getEnvInt("FLUX_MAX_ATTEMPTS", 120),
		FluxTimeout:      getEnvDuration("FLUX_HTTP_TIMEOUT", 30*time.Second),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 30)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 90)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	switch cfg.ImageProvider {
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GOOGLE_API_KEY is required when IMAGE_PROVIDER=%s", ProviderGemini)
		}
	case ProviderFlux:
		if cfg.FluxAPIKey == "" {
			return nil, fmt.Errorf("BFL_API_KEY is required when IMAGE_PROVIDER=%s", ProviderFlux)
		}
	default:
		return nil, fmt.Errorf("unsupported IMAGE_PROVIDER %q", cfg.ImageProvider)
	}

	if cfg.CreditsPerImage <= 0 {
		return nil, fmt.Errorf("CREDITS_PER_IMAGE must be positive")
	}
	if cfg.FluxMaxAttempts <= 0 {
		return nil, fmt.Errorf("FLUX_MAX_ATTEMPTS must be positive")
	}

	return cfg, nil
}

// IsDevelopment reports whether the service runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func normalizeProvider(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "gemini", "nanobanana", "nano-banana", "google":
		return ProviderGemini
	case "flux", "bfl":
		return ProviderFlux
	default:
		return strings.ToLower(strings.TrimSpace(name))
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return ""
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("500ms") or bare milliseconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
