package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config is read from the environment, after an optional .env file.
type Config struct {
	Port           string `env:"PORT"            env-default:"5200"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS" env-default:"http://localhost:3000"`
	LogLevel       string `env:"LOG_LEVEL"       env-default:"info"`

	DBType      string `env:"DB_TYPE"      env-default:"postgres"`
	DatabaseURL string `env:"DATABASE_URL" env-required:"true"`

	ServiceToken  string `env:"SERVICE_TOKEN"`
	AuthJWTSecret string `env:"AUTH_JWT_SECRET"`

	R2 R2Config

	UploadDir     string `env:"UPLOAD_DIR"      env-default:"./uploads"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL" env-default:"/uploads"`

	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	GeminiModel  string `env:"GEMINI_MODEL" env-default:"gemini-1.5-flash"`

	DetectionEndpoint string `env:"OBJECT_DETECTION_API_ENDPOINT"`
	DetectionAPIKey   string `env:"OBJECT_DETECTION_API_KEY"`

	FlowRetention     time.Duration `env:"FLOW_RETENTION"      env-default:"720h"`
	LabelSyncInterval time.Duration `env:"LABEL_SYNC_INTERVAL" env-default:"1m"`
}

type R2Config struct {
	AccountID       string `env:"CLOUDFLARE_ACCOUNT_ID"`
	AccessKeyID     string `env:"R2_ACCESS_KEY_ID"`
	AccessKeySecret string `env:"R2_ACCESS_KEY_SECRET"`
	Bucket          string `env:"R2_BUCKET_NAME"`
	CDNBaseURL      string `env:"CDN_BASE_URL"`
}

// Enabled reports whether enough is set to talk to R2.
func (r R2Config) Enabled() bool {
	return r.AccountID != "" && r.AccessKeyID != "" && r.AccessKeySecret != "" && r.Bucket != ""
}

// Load reads .env when present, then the environment. The bool reports whether a .env file was found.
func Load() (*Config, bool, error) {
	foundDotEnv := true
	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, false, fmt.Errorf("config: read .env: %w", err)
		}
		foundDotEnv = false
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, foundDotEnv, fmt.Errorf("config: read env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, foundDotEnv, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, foundDotEnv, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	switch strings.ToLower(c.DBType) {
	case "postgres", "postgresql", "sqlite":
	default:
		return fmt.Errorf("DB_TYPE must be postgres or sqlite (got %q)", c.DBType)
	}
	if c.AuthJWTSecret != "" && len(c.AuthJWTSecret) < 32 {
		return fmt.Errorf("AUTH_JWT_SECRET must be at least 32 characters (got %d)", len(c.AuthJWTSecret))
	}
	if c.FlowRetention < 0 {
		return fmt.Errorf("FLOW_RETENTION must not be negative")
	}
	if c.LabelSyncInterval <= 0 {
		return fmt.Errorf("LABEL_SYNC_INTERVAL must be positive")
	}
	return nil
}

// Origins splits ALLOWED_ORIGINS and trims each entry.
func (c *Config) Origins() string {
	parts := strings.Split(c.AllowedOrigins, ",")
	kept := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ",")
}
