package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/example/pictech-gateway/internal/pictech"
	"github.com/example/pictech-gateway/internal/poller"
	"github.com/example/pictech-gateway/internal/storage"
)

// Config is everything the process needs, read once at startup.
type Config struct {
	HTTPAddr        string
	ShutdownTimeout time.Duration
	LogLevel        string

	Vendor  pictech.Config
	Polling poller.Config

	UploadDir      string
	DatabaseDSN    string
	RedisAddr      string
	AllowedOrigins []string

	// ObjectStorage is nil unless MINIO_ENDPOINT is set.
	ObjectStorage *storage.MinioConfig

	JWTSecret   string
	JWTAudience string
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	env := func(key, fallback string) string {
		if value := strings.TrimSpace(getenv(key)); value != "" {
			return value
		}
		return fallback
	}

	var errs []string
	required := func(key string) string {
		value := env(key, "")
		if value == "" {
			errs = append(errs, key+" is required")
		}
		return value
	}
	duration := func(key string, fallback time.Duration) time.Duration {
		raw := env(key, "")
		if raw == "" {
			return fallback
		}
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			errs = append(errs, fmt.Sprintf("%s: invalid duration %q", key, raw))
			return fallback
		}
		return d
	}
	integer := func(key string, fallback int) int {
		raw := env(key, "")
		if raw == "" {
			return fallback
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			errs = append(errs, fmt.Sprintf("%s: invalid positive integer %q", key, raw))
			return fallback
		}
		return n
	}

	defaults := pictech.DefaultEndpoints()
	cfg := Config{
		HTTPAddr:        env("HTTP_ADDR", ":8080"),
		ShutdownTimeout: duration("SHUTDOWN_TIMEOUT", 15*time.Second),
		LogLevel:        env("LOG_LEVEL", "info"),
		Vendor: pictech.Config{
			BaseURL:   required("PICTECH_API_BASE_URL"),
			AccountID: required("PICTECH_API_KEY"),
			SecretKey: required("PICTECH_API_SECRET"),
			Endpoints: pictech.Endpoints{
				TranslationSubmit: env("PICTECH_ENDPOINT_TRANSLATION_SUBMIT", defaults.TranslationSubmit),
				TranslationQuery:  env("PICTECH_ENDPOINT_TRANSLATION_QUERY", defaults.TranslationQuery),
				BackgroundSubmit:  env("PICTECH_ENDPOINT_BACKGROUND_SUBMIT", defaults.BackgroundSubmit),
				BackgroundQuery:   env("PICTECH_ENDPOINT_BACKGROUND_QUERY", defaults.BackgroundQuery),
				Inpaint:           env("PICTECH_ENDPOINT_INPAINT", defaults.Inpaint),
			},
			TimeZone:    env("PICTECH_TIMEZONE", pictech.DefaultTimeZone),
			HTTPTimeout: duration("PICTECH_HTTP_TIMEOUT", pictech.DefaultHTTPTimeout),
		},
		Polling: poller.Config{
			Interval:    duration("PICTECH_POLL_INTERVAL", poller.DefaultInterval),
			MaxAttempts: integer("PICTECH_POLL_MAX_ATTEMPTS", poller.DefaultMaxAttempts),
		},
		UploadDir:      env("UPLOAD_DIR", "./uploads"),
		DatabaseDSN:    env("DATABASE_DSN", "host=postgres user=postgres password=postgres dbname=pictech port=5432 sslmode=disable"),
		RedisAddr:      env("REDIS_ADDR", "redis:6379"),
		AllowedOrigins: splitList(env("CORS_ALLOWED_ORIGINS", "*")),
		JWTSecret:      env("JWT_SECRET", ""),
		JWTAudience:    env("JWT_AUDIENCE", ""),
	}

	if endpoint := env("MINIO_ENDPOINT", ""); endpoint != "" {
		cfg.ObjectStorage = &storage.MinioConfig{
			Endpoint:  endpoint,
			AccessKey: required("MINIO_ACCESS_KEY"),
			SecretKey: required("MINIO_SECRET_KEY"),
			Bucket:    required("MINIO_BUCKET"),
			Location:  env("MINIO_LOCATION", "us-east-1"),
			UseSSL:    env("MINIO_SSL", "") == "true",
			Prefix:    cfg.UploadDir,
		}
	}

	if len(errs) > 0 {
		return Config{}, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
