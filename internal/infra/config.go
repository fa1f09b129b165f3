package infra

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv            string
	BaseURL           string
	PollInterval      time.Duration
	MaxPollFailures   int
	RequestTimeout    time.Duration
	UploadTimeout     time.Duration
	DownloadDir       string
	Port              string
	HTTPReadTimeout   time.Duration
	HTTPWriteTimeout  time.Duration
	HTTPIdleTimeout   time.Duration
	RateLimitPerHour  int
	FakePollsPerStage int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:            getEnv("APP_ENV", "development"),
		BaseURL:           strings.TrimRight(getEnv("FILEFORGE_BASE_URL", "http://localhost:8080"), "/"),
		PollInterval:      time.Millisecond * time.Duration(getEnvInt("POLL_INTERVAL_MS", 2000)),
		MaxPollFailures:   getEnvInt("MAX_POLL_FAILURES", 0),
		RequestTimeout:    time.Second * time.Duration(getEnvInt("HTTP_REQUEST_TIMEOUT_SECONDS", 15)),
		UploadTimeout:     time.Second * time.Duration(getEnvInt("UPLOAD_TIMEOUT_SECONDS", 0)),
		DownloadDir:       getEnv("DOWNLOAD_DIR", "./downloads"),
		Port:              getEnv("PORT", "8080"),
		HTTPReadTimeout:   time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 600)),
		HTTPWriteTimeout:  time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 600)),
		HTTPIdleTimeout:   time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 120)),
		RateLimitPerHour:  getEnvInt("RATE_LIMIT_PER_HOUR", 60),
		FakePollsPerStage: getEnvInt("FAKE_POLLS_PER_STAGE", 1),
	}

	u, err := url.Parse(cfg.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("FILEFORGE_BASE_URL must be an absolute http(s) URL, got %q", cfg.BaseURL)
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("POLL_INTERVAL_MS must be positive")
	}
	if cfg.MaxPollFailures < 0 {
		return nil, fmt.Errorf("MAX_POLL_FAILURES must not be negative")
	}
	if cfg.UploadTimeout < 0 {
		return nil, fmt.Errorf("UPLOAD_TIMEOUT_SECONDS must not be negative")
	}

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
