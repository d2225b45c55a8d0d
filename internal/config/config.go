package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(NewConfig),
)

// Config holds all application configuration
type Config struct {
	// Server settings
	ServerPort    int    `env:"SERVER_PORT" envDefault:"3002"`
	ServerAddress string `env:"SERVER_ADDRESS" envDefault:"0.0.0.0"`
	Environment   string `env:"ENVIRONMENT" envDefault:"local"`
	Debug         bool   `env:"DEBUG" envDefault:"false"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`

	Database  DatabaseConfig
	Tasks     TasksConfig
	Site      SiteConfig
	Auth      AuthConfig
	Giles     GilesConfig
	Storage   StorageConfig
	Scheduler SchedulerConfig
	Relations RelationsConfig
	Otel      OtelConfig

	// Server timeouts
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"60s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host         string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port         int           `env:"POSTGRES_PORT" envDefault:"5432"`
	User         string        `env:"POSTGRES_USER" envDefault:"vogon"`
	Password     string        `env:"POSTGRES_PASSWORD" envDefault:""`
	Database     string        `env:"POSTGRES_DB" envDefault:"vogon"`
	SSLMode      string        `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	MaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	MaxIdleTime  time.Duration `env:"DB_MAX_IDLE_TIME" envDefault:"5m"`
	QueryDebug   bool          `env:"DB_QUERY_DEBUG" envDefault:"false"`
}

// DSN returns the PostgreSQL connection string
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Database, d.SSLMode,
	)
}

// TasksConfig configures the background task broker.
type TasksConfig struct {
	// RedisURL is both broker and result store.
	RedisURL string `env:"REDIS_URL" envDefault:"redis://localhost:6379/2"`
	// Stream is the Redis stream tasks are published to
	Stream string `env:"TASKS_STREAM" envDefault:"vogon:tasks"`
	// DeadLetterStream receives tasks that exhausted their attempts
	DeadLetterStream string `env:"TASKS_DLQ_STREAM" envDefault:"vogon:tasks:dlq"`
	// Group is the consumer group shared by all workers
	Group string `env:"TASKS_GROUP" envDefault:"vogon-workers"`
	// Consumer names this worker inside the group (defaults to hostname)
	Consumer    string        `env:"TASKS_CONSUMER" envDefault:""`
	MaxAttempts int           `env:"TASKS_MAX_ATTEMPTS" envDefault:"5"`
	BatchSize   int           `env:"TASKS_BATCH_SIZE" envDefault:"10"`
	Block       time.Duration `env:"TASKS_BLOCK" envDefault:"5s"`
	// ClaimIdle is how long a delivered but unacked task may sit before another worker claims it
	ClaimIdle time.Duration `env:"TASKS_CLAIM_IDLE" envDefault:"10m"`
	// MaxLen bounds the main stream length when trimmed by the scheduler
	MaxLen int64 `env:"TASKS_STREAM_MAX_LEN" envDefault:"100000"`
}

// SiteConfig holds values exposed to every rendered page.
type SiteConfig struct {
	AnalyticsID string `env:"GOOGLE_ANALYTICS_ID" envDefault:""`
	Version     string `env:"VOGON_VERSION" envDefault:""`
	BaseURL     string `env:"BASE_URL" envDefault:"http://localhost:3002"`
}

// AbsoluteURL joins path onto BaseURL.
func (s *SiteConfig) AbsoluteURL(path string) string {
	return strings.TrimRight(s.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// AuthConfig configures session and annotator tokens.
type AuthConfig struct {
	JWTSecret  string        `env:"JWT_SECRET" envDefault:""`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	// AnnotatorTTL bounds the credential embedded in the annotation page
	AnnotatorTTL time.Duration `env:"ANNOTATOR_TOKEN_TTL" envDefault:"2h"`
	CookieName   string        `env:"SESSION_COOKIE_NAME" envDefault:"vogon_session"`
	CookieSecure bool          `env:"SESSION_COOKIE_SECURE" envDefault:"false"`
}

// GilesConfig configures the Giles document import service.
type GilesConfig struct {
	URL      string `env:"GILES_URL" envDefault:"https://diging.asu.edu/giles"`
	AppToken string `env:"GILES_APP_TOKEN" envDefault:""`
	// RepositoryName is the repository imported texts are attached to
	RepositoryName string        `env:"GILES_REPOSITORY" envDefault:"Giles"`
	Timeout        time.Duration `env:"GILES_TIMEOUT" envDefault:"30s"`
	// RequestsPerSecond rate-limits outbound calls
	RequestsPerSecond float64 `env:"GILES_RPS" envDefault:"5"`
}

// IsConfigured returns true if an application token is set
func (g *GilesConfig) IsConfigured() bool {
	return g.URL != "" && g.AppToken != ""
}

// StorageConfig holds S3-compatible storage settings for profile images.
type StorageConfig struct {
	Endpoint  string `env:"STORAGE_ENDPOINT" envDefault:""`
	AccessKey string `env:"STORAGE_ACCESS_KEY" envDefault:""`
	SecretKey string `env:"STORAGE_SECRET_KEY" envDefault:""`
	Region    string `env:"STORAGE_REGION" envDefault:"us-east-1"`
	Bucket    string `env:"STORAGE_BUCKET_IMAGES" envDefault:"vogon-images"`
	// PublicURL prefixes object keys when building imagefile URLs
	PublicURL string `env:"STORAGE_PUBLIC_URL" envDefault:""`
}

// Enabled returns true if storage is properly configured
func (s *StorageConfig) Enabled() bool {
	return s.Endpoint != "" && s.AccessKey != "" && s.SecretKey != ""
}

// SchedulerConfig configures periodic maintenance tasks.
type SchedulerConfig struct {
	Enabled                  bool          `env:"SCHEDULER_ENABLED" envDefault:"true"`
	RepresentationInterval   time.Duration `env:"SCHEDULER_REPRESENTATION_INTERVAL" envDefault:"5m"`
	StreamTrimInterval       time.Duration `env:"SCHEDULER_STREAM_TRIM_INTERVAL" envDefault:"1h"`
	PendingRepresentationAge time.Duration `env:"SCHEDULER_PENDING_AGE" envDefault:"10m"`
	// RequeueBatch caps how many stale sets one run re-enqueues
	RequeueBatch int `env:"SCHEDULER_REQUEUE_BATCH" envDefault:"200"`
	// Cron overrides ("sec min hour dom month dow"); empty means use the interval
	RepresentationSchedule string `env:"SCHEDULER_REPRESENTATION_SCHEDULE" envDefault:""`
	StreamTrimSchedule     string `env:"SCHEDULER_STREAM_TRIM_SCHEDULE" envDefault:""`
}

// RelationsConfig names the concepts used for is/has predicates.
type RelationsConfig struct {
	IsConceptURI  string `env:"RELATIONS_IS_CONCEPT_URI" envDefault:"urn:vogon:concept:be"`
	HasConceptURI string `env:"RELATIONS_HAS_CONCEPT_URI" envDefault:"urn:vogon:concept:have"`
}

// NewConfig loads configuration from environment variables
func NewConfig(log *slog.Logger) (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Auth.JWTSecret == "" {
		if cfg.Environment == "production" {
			return nil, fmt.Errorf("JWT_SECRET is required in production")
		}
		secret, err := randomSecret()
		if err != nil {
			return nil, err
		}
		cfg.Auth.JWTSecret = secret
		log.Warn("JWT_SECRET not set, using a random per-process secret; tokens will not survive a restart")
	}

	log.Info("configuration loaded",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.ServerPort),
		slog.String("db_host", cfg.Database.Host),
		slog.String("giles_url", cfg.Giles.URL),
	)

	return cfg, nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate jwt secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
