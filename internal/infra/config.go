package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string

	// PublicBaseURL is the externally visible origin used when minting IIIF
	// identifiers. It must not end with a slash.
	PublicBaseURL string

	// Proxy destinations for the image delivery tiers.
	ImageServerRoot string
	ThumbsRoot      string
	FallbackRoot    string

	// PDFGeneratorURL is the playbook endpoint of the external PDF renderer.
	PDFGeneratorURL string

	// Local storage roots.
	OutputStoragePath string
	ThumbsStoragePath string

	// ControlFileStaleAfter is how long an in-process build may run before a
	// request is allowed to reclaim its key.
	ControlFileStaleAfter time.Duration

	AuthTokenTTL    time.Duration
	CacheTTL        time.Duration
	CanResizeThumbs bool

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	AllowedOrigins   []string
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:                getEnv("APP_ENV", "development"),
		Port:                  getEnv("PORT", "8080"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		PublicBaseURL:         getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		ImageServerRoot:       os.Getenv("IMAGE_SERVER_ROOT"),
		ThumbsRoot:            os.Getenv("THUMBS_ROOT"),
		FallbackRoot:          os.Getenv("FALLBACK_ROOT"),
		PDFGeneratorURL:       os.Getenv("PDF_GENERATOR_URL"),
		OutputStoragePath:     getEnv("OUTPUT_STORAGE_PATH", "./data/output"),
		ThumbsStoragePath:     getEnv("THUMBS_STORAGE_PATH", "./data/thumbs"),
		ControlFileStaleAfter: time.Second * time.Duration(getEnvInt("CONTROL_FILE_STALE_SECONDS", 600)),
		AuthTokenTTL:          time.Second * time.Duration(getEnvInt("AUTH_TOKEN_TTL_SECONDS", 600)),
		CacheTTL:              time.Second * time.Duration(getEnvInt("CACHE_TTL_SECONDS", 300)),
		CanResizeThumbs:       getEnvBool("CAN_RESIZE_THUMBS", true),
		HTTPReadTimeout:       time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:      time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:       time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:       getEnvInt("RATE_LIMIT_PER_MINUTE", 0),
		AllowedOrigins:        splitList(getEnv("ALLOWED_ORIGINS", "*")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.ImageServerRoot == "" {
		return nil, fmt.Errorf("IMAGE_SERVER_ROOT is required")
	}
	if cfg.ThumbsRoot == "" {
		return nil, fmt.Errorf("THUMBS_ROOT is required")
	}
	if cfg.FallbackRoot == "" {
		cfg.FallbackRoot = cfg.ImageServerRoot
	}
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
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

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
