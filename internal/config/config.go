package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"ENV"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`
	RedisURL    string `mapstructure:"REDIS_URL"`

	JWTSecret  string        `mapstructure:"JWT_SECRET"`
	JWTIssuer  string        `mapstructure:"JWT_ISSUER"`
	TokenTTL   time.Duration `mapstructure:"TOKEN_TTL"`
	BcryptCost int           `mapstructure:"BCRYPT_COST"`

	CORSOrigins      []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS     float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst   int           `mapstructure:"RATE_LIMIT_BURST"`
	IngestRateLimit  int           `mapstructure:"INGEST_RATE_LIMIT"`
	IngestRateWindow time.Duration `mapstructure:"INGEST_RATE_WINDOW"`
	RequestTimeout   time.Duration `mapstructure:"REQUEST_TIMEOUT"`

	StorageBackend string `mapstructure:"STORAGE_BACKEND"`
	MediaDir       string `mapstructure:"MEDIA_DIR"`
	MediaURLPrefix string `mapstructure:"MEDIA_URL_PREFIX"`
	S3Endpoint     string `mapstructure:"S3_ENDPOINT"`
	S3Region       string `mapstructure:"S3_REGION"`
	S3Bucket       string `mapstructure:"S3_BUCKET"`
	S3AccessKey    string `mapstructure:"S3_ACCESS_KEY"`
	S3SecretKey    string `mapstructure:"S3_SECRET_KEY"`
	S3UsePathStyle bool   `mapstructure:"S3_USE_PATH_STYLE"`
	UploadMaxBytes int64  `mapstructure:"UPLOAD_MAX_BYTES"`

	ClassifierURL     string        `mapstructure:"CLASSIFIER_URL"`
	ClassifierTimeout time.Duration `mapstructure:"CLASSIFIER_TIMEOUT"`

	PhoneRegion string `mapstructure:"PHONE_REGION"`

	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	SMTPFrom     string `mapstructure:"SMTP_FROM"`

	NotifyMaxAttempts  int           `mapstructure:"NOTIFY_MAX_ATTEMPTS"`
	NotifyRetryBackoff time.Duration `mapstructure:"NOTIFY_RETRY_BACKOFF"`

	LogLevel     string `mapstructure:"LOG_LEVEL"`
	LogFile      string `mapstructure:"LOG_FILE"`
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
}

var keys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "REDIS_URL",
	"JWT_SECRET", "JWT_ISSUER", "TOKEN_TTL", "BCRYPT_COST",
	"CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "INGEST_RATE_LIMIT", "INGEST_RATE_WINDOW",
	"REQUEST_TIMEOUT",
	"STORAGE_BACKEND", "MEDIA_DIR", "MEDIA_URL_PREFIX",
	"S3_ENDPOINT", "S3_REGION", "S3_BUCKET", "S3_ACCESS_KEY", "S3_SECRET_KEY", "S3_USE_PATH_STYLE",
	"UPLOAD_MAX_BYTES", "CLASSIFIER_URL", "CLASSIFIER_TIMEOUT", "PHONE_REGION",
	"SMTP_HOST", "SMTP_PORT", "SMTP_USERNAME", "SMTP_PASSWORD", "SMTP_FROM",
	"NOTIFY_MAX_ATTEMPTS", "NOTIFY_RETRY_BACKOFF",
	"LOG_LEVEL", "LOG_FILE", "OTLP_ENDPOINT",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("JWT_ISSUER", "footcare")
	v.SetDefault("TOKEN_TTL", "168h")
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("INGEST_RATE_LIMIT", 120)
	v.SetDefault("INGEST_RATE_WINDOW", "1m")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("STORAGE_BACKEND", "local")
	v.SetDefault("MEDIA_DIR", "media")
	v.SetDefault("MEDIA_URL_PREFIX", "/media")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("UPLOAD_MAX_BYTES", 10<<20)
	v.SetDefault("CLASSIFIER_URL", "http://localhost:5000/predict")
	v.SetDefault("CLASSIFIER_TIMEOUT", "20s")
	v.SetDefault("PHONE_REGION", "US")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("NOTIFY_MAX_ATTEMPTS", 3)
	v.SetDefault("NOTIFY_RETRY_BACKOFF", "1s")
	v.SetDefault("LOG_LEVEL", "info")

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// The mapstructure decode splits on commas but keeps the spaces.
	if origins := v.GetString("CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = splitList(origins)
	} else {
		cfg.CORSOrigins = splitList(strings.Join(cfg.CORSOrigins, ","))
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// SMTPEnabled reports whether outbound notification mail is configured.
func (c *Config) SMTPEnabled() bool {
	return c.SMTPHost != ""
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.JWTSecret == "" && !c.IsDev() {
		return fmt.Errorf("JWT_SECRET is required when ENV=%q", c.Env)
	}
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("invalid pool sizing: DB_MIN_CONNS=%d DB_MAX_CONNS=%d", c.DBMinConns, c.DBMaxConns)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive, got %s", c.TokenTTL)
	}

	switch c.StorageBackend {
	case "local":
		if c.MediaDir == "" {
			return fmt.Errorf("MEDIA_DIR is required when STORAGE_BACKEND is \"local\"")
		}
	case "s3":
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when STORAGE_BACKEND is \"s3\"")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be \"local\" or \"s3\", got %q", c.StorageBackend)
	}

	if c.ClassifierURL == "" {
		return fmt.Errorf("CLASSIFIER_URL is required")
	}
	if c.ClassifierTimeout < time.Second || c.ClassifierTimeout > time.Minute {
		return fmt.Errorf("CLASSIFIER_TIMEOUT must be between 1s and 60s, got %s", c.ClassifierTimeout)
	}
	if c.IngestRateLimit <= 0 || c.IngestRateWindow <= 0 {
		return fmt.Errorf("INGEST_RATE_LIMIT and INGEST_RATE_WINDOW must be positive")
	}
	if c.RequestTimeout <= c.ClassifierTimeout {
		return fmt.Errorf("REQUEST_TIMEOUT (%s) must exceed CLASSIFIER_TIMEOUT (%s)", c.RequestTimeout, c.ClassifierTimeout)
	}
	if c.NotifyMaxAttempts < 1 || c.NotifyMaxAttempts > 10 {
		return fmt.Errorf("NOTIFY_MAX_ATTEMPTS must be between 1 and 10, got %d", c.NotifyMaxAttempts)
	}
	if c.SMTPEnabled() && c.SMTPFrom == "" {
		return fmt.Errorf("SMTP_FROM is required when SMTP_HOST is set")
	}

	return nil
}
