package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	TelegramToken string

	ImageProvider   string
	GoogleAPIKey    string
	StabilityAPIKey string

	LogLevel string
	Debug    bool

	PreferIPv4 bool

	WebAddr     string
	StoragePath string

	AlbumDebounce        time.Duration
	MaxConcurrent        int
	RequestTimeout       time.Duration
	HTTPTimeout          time.Duration
	GenerationClearAfter time.Duration

	GoogleBaseURL    string
	GoogleAPIVersion string
	GoogleModel      string
	StabilityBaseURL string
	StabilityEngine  string
}

func Load() (Config, error) {
	cfg := Config{
		LogLevel:             strings.ToLower(strings.TrimSpace(getEnv("LOG_LEVEL", "info"))),
		Debug:                getEnvBool("DEBUG", false),
		PreferIPv4:           getEnvBool("PREFER_IPV4", true),
		WebAddr:              strings.TrimSpace(getEnv("WEB_ADDR", ":8080")),
		StoragePath:          strings.TrimSpace(getEnv("STORAGE_PATH", "data/nano-banana.db")),
		ImageProvider:        strings.ToLower(strings.TrimSpace(getEnv("IMAGE_PROVIDER", "google"))),
		AlbumDebounce:        time.Duration(getEnvInt("ALBUM_DEBOUNCE_MS", 1200)) * time.Millisecond,
		MaxConcurrent:        getEnvInt("MAX_CONCURRENT", 4),
		RequestTimeout:       time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 180)) * time.Second,
		HTTPTimeout:          time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 180)) * time.Second,
		GenerationClearAfter: time.Duration(getEnvInt("GENERATION_CLEAR_SECONDS", 120)) * time.Second,
		GoogleBaseURL:        strings.TrimSpace(getEnv("GOOGLE_BASE_URL", "https://generativelanguage.googleapis.com")),
		GoogleAPIVersion:     strings.TrimSpace(getEnv("GOOGLE_API_VERSION", "v1beta")),
		GoogleModel:          strings.TrimSpace(getEnv("GOOGLE_IMAGE_MODEL", "imagen-3.0-fast-generate-001")),
		StabilityBaseURL:     strings.TrimSpace(getEnv("STABILITY_BASE_URL", "https://api.stability.ai")),
		StabilityEngine:      strings.TrimSpace(getEnv("STABILITY_ENGINE", "stable-diffusion-xl-1024-v1-0")),
	}

	cfg.TelegramToken = strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))
	cfg.GoogleAPIKey = strings.TrimSpace(os.Getenv("GOOGLE_API_KEY"))
	cfg.StabilityAPIKey = strings.TrimSpace(os.Getenv("STABILITY_API_KEY"))

	switch cfg.ImageProvider {
	case "google":
		if cfg.GoogleAPIKey == "" {
			return Config{}, errors.New("GOOGLE_API_KEY is required")
		}
	case "stability":
		if cfg.StabilityAPIKey == "" {
			return Config{}, errors.New("STABILITY_API_KEY is required")
		}
	default:
		return Config{}, fmt.Errorf("unknown IMAGE_PROVIDER %q", cfg.ImageProvider)
	}

	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 180 * time.Second
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 180 * time.Second
	}
	if cfg.GenerationClearAfter <= 0 {
		cfg.GenerationClearAfter = 120 * time.Second
	}

	return cfg, nil
}

// LoadBot validates the extra settings the Telegram surface needs.
func LoadBot() (Config, error) {
	cfg, err := Load()
	if err != nil {
		return Config{}, err
	}
	if cfg.TelegramToken == "" {
		return Config{}, errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
