package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"hermes/pkg/errors"
)

type Config struct {
	App           AppConfig
	Server        ServerConfig
	GreenAPI      GreenAPIConfig
	Access        AccessConfig
	Redis         RedisConfig
	Extractor     ExtractorConfig
	Glif          GlifConfig
	Wikipedia     WikipediaConfig
	Cricket       CricketConfig
	Session       SessionConfig
	Downloads     DownloadConfig
	ErrorTracking ErrorTrackingConfig
	Workers       WorkerConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"hermes"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
}

type ServerConfig struct {
	Port    int    `envconfig:"HTTP_PORT" default:"8080"`
	Version string `envconfig:"APP_VERSION" default:"dev"`
}

// GreenAPIConfig holds the WhatsApp provider instance credentials
type GreenAPIConfig struct {
	InstanceID  string        `envconfig:"GREENAPI_INSTANCE_ID" required:"true"`
	APIToken    string        `envconfig:"GREENAPI_API_TOKEN" required:"true"`
	APIURL      string        `envconfig:"GREENAPI_API_URL" required:"true"`
	MediaURL    string        `envconfig:"GREENAPI_MEDIA_URL"`
	Timeout     time.Duration `envconfig:"GREENAPI_TIMEOUT" default:"30s"`
	SendsPerSec float64       `envconfig:"GREENAPI_SENDS_PER_SEC" default:"2"`
}

// MediaBase returns the base URL for file-upload endpoints. The provider
// serves uploads from a separate host; fall back to the API host when a
// dedicated one is not configured.
func (c GreenAPIConfig) MediaBase() string {
	if c.MediaURL != "" {
		return c.MediaURL
	}
	return c.APIURL
}

// AccessConfig is the chat allow-list; empty means every chat is rejected
type AccessConfig struct {
	AllowedChats []string `envconfig:"ALLOWED_CHATS"`
	AdminSenders []string `envconfig:"ADMIN_SENDERS"`
}

type RedisConfig struct {
	Enabled  bool   `envconfig:"REDIS_ENABLED" default:"false"`
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ExtractorConfig points at the media-extraction service
type ExtractorConfig struct {
	BaseURL string        `envconfig:"EXTRACTOR_BASE_URL" required:"true"`
	APIKey  string        `envconfig:"EXTRACTOR_API_KEY"`
	Timeout time.Duration `envconfig:"EXTRACTOR_TIMEOUT" default:"5m"`
	TempDir string        `envconfig:"EXTRACTOR_TEMP_DIR" default:"/tmp/hermes"`
	MaxSize int64         `envconfig:"EXTRACTOR_MAX_SIZE_BYTES" default:"104857600"`
}

// GlifConfig points at the hosted AI thumbnail generation API
type GlifConfig struct {
	BaseURL string        `envconfig:"GLIF_BASE_URL" default:"https://simple-api.glif.app"`
	APIKey  string        `envconfig:"GLIF_API_KEY"`
	GlifID  string        `envconfig:"GLIF_ID"`
	Timeout time.Duration `envconfig:"GLIF_TIMEOUT" default:"60s"`
}

type WikipediaConfig struct {
	BaseURL string        `envconfig:"WIKIPEDIA_BASE_URL" default:"https://en.wikipedia.org"`
	Timeout time.Duration `envconfig:"WIKIPEDIA_TIMEOUT" default:"30s"`
}

type CricketConfig struct {
	ScoresURL string        `envconfig:"CRICKET_SCORES_URL" default:"https://www.cricbuzz.com/cricket-match/live-scores"`
	Timeout   time.Duration `envconfig:"CRICKET_TIMEOUT" default:"15s"`
}

// SessionConfig controls the pending-selection store
type SessionConfig struct {
	TTL time.Duration `envconfig:"SESSION_TTL" default:"10m"`
}

// DownloadConfig controls the background fetch queue
type DownloadConfig struct {
	Workers   int `envconfig:"DOWNLOAD_WORKERS" default:"3"`
	QueueSize int `envconfig:"DOWNLOAD_QUEUE_SIZE" default:"50"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"true"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// WorkerConfig contains intervals for all background workers
type WorkerConfig struct {
	SessionSweepInterval time.Duration `envconfig:"WORKER_SESSION_SWEEP_INTERVAL" default:"1m"`
	TempCleanInterval    time.Duration `envconfig:"WORKER_TEMP_CLEAN_INTERVAL" default:"10m"`
	TempMaxAge           time.Duration `envconfig:"WORKER_TEMP_MAX_AGE" default:"1h"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	return &cfg, nil
}
