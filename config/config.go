package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrMissingAPIKey is returned when LAW_API_OC is not configured.
var ErrMissingAPIKey = errors.New("LAW_API_OC is not set (check .env)")

// PostgresConfig holds connection settings for the row store
type PostgresConfig struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
}

// ConnectionString returns DATABASE_URL when set, otherwise builds one from the parts
func (c PostgresConfig) ConnectionString() string {
	if c.URL != "" {
		return c.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     "/" + c.Database,
		RawQuery: "sslmode=" + c.SSLMode,
	}
	return u.String()
}

// LawAPIConfig holds settings for the law.go.kr DRF API
type LawAPIConfig struct {
	OC      string
	BaseURL string
	Timeout time.Duration
	RPS     float64
}

// StorageConfig selects the raw archive backend
type StorageConfig struct {
	Type         string
	LocalPath    string
	S3Bucket     string
	S3Region     string
	AWSAccessKey string
	AWSSecretKey string
	ArchiveRaw   bool
}

// Config is the process configuration shared by the server and the ETL CLI
type Config struct {
	Postgres PostgresConfig
	ESHost   string
	LawAPI   LawAPIConfig
	Storage  StorageConfig
	Port     string
	LogLevel string
}

// LoadEnv loads .env from the working directory, then from the project root.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("../../.env"); err != nil {
			log.Debug().Msg("No .env file found, using environment variables")
		}
	}
}

// Load reads the configuration from the environment, applying defaults.
func Load() (*Config, error) {
	timeout, err := time.ParseDuration(envString("LAW_API_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid LAW_API_TIMEOUT: %w", err)
	}
	rps, err := strconv.ParseFloat(envString("LAW_API_RPS", "0"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid LAW_API_RPS: %w", err)
	}
	archive, err := strconv.ParseBool(envString("ARCHIVE_RAW", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid ARCHIVE_RAW: %w", err)
	}

	return &Config{
		Postgres: PostgresConfig{
			URL:      os.Getenv("DATABASE_URL"),
			Host:     envString("PG_HOST", "localhost"),
			Port:     envString("PG_PORT", "5432"),
			User:     envString("PG_USER", "wish"),
			Password: envString("PG_PASSWORD", "0000"),
			Database: envString("PG_DB", "lawchat"),
			SSLMode:  envString("PG_SSLMODE", "disable"),
		},
		ESHost: envString("ES_HOST", "http://localhost:9200"),
		LawAPI: LawAPIConfig{
			OC:      os.Getenv("LAW_API_OC"),
			BaseURL: strings.TrimRight(envString("LAW_API_BASE", "https://www.law.go.kr/DRF"), "/"),
			Timeout: timeout,
			RPS:     rps,
		},
		Storage: StorageConfig{
			Type:         envString("STORAGE_TYPE", "local"),
			LocalPath:    envString("STORAGE_LOCAL_PATH", "./storage/raw"),
			S3Bucket:     os.Getenv("AWS_S3_BUCKET"),
			S3Region:     envString("AWS_REGION", "us-east-1"),
			AWSAccessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
			AWSSecretKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			ArchiveRaw:   archive,
		},
		Port:     envString("PORT", "8080"),
		LogLevel: envString("LOG_LEVEL", "info"),
	}, nil
}

// RequireAPIKey fails when the ETL credential is absent.
func (c *Config) RequireAPIKey() error {
	if strings.TrimSpace(c.LawAPI.OC) == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// SetupLogger configures the global zerolog logger for console output.
func SetupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
