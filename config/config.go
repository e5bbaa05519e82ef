package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"submission-portal-api/utils"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config holds every setting of the submission portal, read from the
// environment (optionally seeded from a .env file).
type Config struct {
	Environment    string   `env:"ENVIRONMENT" env-default:"development"`
	GinMode        string   `env:"GIN_MODE" env-default:"debug"`
	ServerPort     string   `env:"SERVER_PORT" env-default:"5000"`
	AppVersion     string   `env:"APP_VERSION" env-default:"1.0.0"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" env-separator:"," env-default:"*"`
	TrustedProxies []string `env:"TRUSTED_PROXIES" env-separator:","`

	// StoreBackend selects the submission store: "sql" or "memory".
	StoreBackend string `env:"STORE_BACKEND" env-default:"sql"`
	// DuplicatePolicy is "exact" (case-sensitive) or "case-insensitive".
	DuplicatePolicy string `env:"DUPLICATE_TEAM_POLICY" env-default:"exact"`

	Database  DatabaseConfig
	RateLimit RateLimitConfig
	Storage   StorageConfig
	Kafka     KafkaConfig
	Mail      MailConfig
	Log       LogConfig
}

type DatabaseConfig struct {
	Driver         string        `env:"DB_DRIVER" env-default:"mysql"`
	Host           string        `env:"DB_HOST" env-default:"localhost"`
	Port           string        `env:"DB_PORT" env-default:"3306"`
	Database       string        `env:"DB_DATABASE" env-default:"submission_portal"`
	Username       string        `env:"DB_USERNAME" env-default:"root"`
	Password       string        `env:"DB_PASSWORD"`
	SSLMode        string        `env:"DB_SSLMODE" env-default:"disable"`
	MaxOpenConns   int           `env:"DB_MAX_POOL_SIZE" env-default:"10"`
	MaxIdleConns   int           `env:"DB_MIN_POOL_SIZE" env-default:"5"`
	MaxIdleTime    time.Duration `env:"DB_MAX_IDLE_TIME" env-default:"30s"`
	ConnectTimeout time.Duration `env:"DB_CONNECT_TIMEOUT" env-default:"5s"`
	SocketTimeout  time.Duration `env:"DB_SOCKET_TIMEOUT" env-default:"45s"`
	QueryTimeout   time.Duration `env:"DB_QUERY_TIMEOUT" env-default:"10s"`
	AutoMigrate    bool          `env:"DB_AUTO_MIGRATE" env-default:"true"`
	DebugSQL       bool          `env:"DEBUG_SQL" env-default:"false"`
}

type RateLimitConfig struct {
	Window         time.Duration `env:"RATE_LIMIT_WINDOW" env-default:"15m"`
	MaxSubmissions int           `env:"RATE_LIMIT_MAX_SUBMISSIONS" env-default:"5"`
	// MaxRequests applies to the whole /api group in production; 0 disables it.
	MaxRequests   int           `env:"RATE_LIMIT_MAX_REQUESTS" env-default:"100"`
	SweepEvery    time.Duration `env:"RATE_LIMIT_SWEEP_EVERY" env-default:"2m"`
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" env-default:"0"`
	RedisPrefix   string        `env:"REDIS_PREFIX" env-default:"ratelimit"`
}

type StorageConfig struct {
	Backend           string `env:"STORAGE_BACKEND" env-default:"disk"`
	UploadPath        string `env:"UPLOAD_PATH" env-default:"./uploads"`
	MaxUploadBytes    int64  `env:"MAX_UPLOAD_BYTES" env-default:"52428800"`
	S3Endpoint        string `env:"S3_ENDPOINT"`
	S3Region          string `env:"S3_REGION" env-default:"us-east-1"`
	S3Bucket          string `env:"S3_BUCKET"`
	S3AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`
}

type KafkaConfig struct {
	Brokers []string `env:"KAFKA_BROKERS" env-separator:","`
	Topic   string   `env:"KAFKA_SUBMISSIONS_TOPIC" env-default:"submissions.created"`
}

type MailConfig struct {
	SMTPHost      string   `env:"SMTP_HOST"`
	SMTPPort      int      `env:"SMTP_PORT" env-default:"587"`
	SMTPUser      string   `env:"SMTP_USER"`
	SMTPPass      string   `env:"SMTP_PASS"`
	SMTPFrom      string   `env:"SMTP_FROM"` // e.g. "Submission Portal <no-reply@your.org>"
	SkipTLSVerify bool     `env:"SMTP_SKIP_TLS_VERIFY" env-default:"false"`
	NotifyEmails  []string `env:"NOTIFY_EMAILS" env-separator:","`
}

type LogConfig struct {
	Level string `env:"LOG_LEVEL" env-default:"info"`
	File  string `env:"LOG_FILE" env-default:"logs/submission-api.log"`
}

// Load reads .env (when present) and the process environment into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.Environment = strings.ToLower(strings.TrimSpace(c.Environment))
	c.StoreBackend = strings.ToLower(strings.TrimSpace(c.StoreBackend))
	c.DuplicatePolicy = strings.ToLower(strings.TrimSpace(c.DuplicatePolicy))
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	c.AllowedOrigins = compact(c.AllowedOrigins)
	c.TrustedProxies = compact(c.TrustedProxies)
	c.Kafka.Brokers = compact(c.Kafka.Brokers)
	c.Mail.NotifyEmails = compact(c.Mail.NotifyEmails)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case "sql", "memory":
	default:
		return fmt.Errorf("STORE_BACKEND must be sql or memory, got %q", c.StoreBackend)
	}
	if c.StoreBackend == "sql" {
		switch c.Database.Driver {
		case "mysql", "postgres":
		default:
			return fmt.Errorf("DB_DRIVER must be mysql or postgres, got %q", c.Database.Driver)
		}
	}
	switch c.DuplicatePolicy {
	case "exact", "case-insensitive":
	default:
		return fmt.Errorf("DUPLICATE_TEAM_POLICY must be exact or case-insensitive, got %q", c.DuplicatePolicy)
	}
	switch c.Storage.Backend {
	case "disk":
	case "s3":
		if c.Storage.S3Bucket == "" {
			return errors.New("S3_BUCKET is required when STORAGE_BACKEND=s3")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be disk or s3, got %q", c.Storage.Backend)
	}
	if c.RateLimit.Window <= 0 {
		return errors.New("RATE_LIMIT_WINDOW must be > 0")
	}
	if c.RateLimit.MaxSubmissions <= 0 {
		return errors.New("RATE_LIMIT_MAX_SUBMISSIONS must be > 0")
	}
	if c.RateLimit.MaxRequests < 0 {
		return errors.New("RATE_LIMIT_MAX_REQUESTS must be >= 0")
	}
	if c.Storage.MaxUploadBytes <= 0 {
		return errors.New("MAX_UPLOAD_BYTES must be > 0")
	}
	if c.Database.QueryTimeout <= 0 {
		return errors.New("DB_QUERY_TIMEOUT must be > 0")
	}
	for _, addr := range c.Mail.NotifyEmails {
		if !utils.ValidateEmail(addr) {
			return fmt.Errorf("NOTIFY_EMAILS contains an invalid address: %q", addr)
		}
	}
	return nil
}

// IsProduction reports whether the service runs with production defaults.
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.GinMode == "release"
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
