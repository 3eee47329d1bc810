package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

const (
	StorageSQLite = "sqlite"
	StorageFile   = "file"
	StorageRedis  = "redis"

	ProviderRemote = "remote"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

type Config struct {
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	Environment string `env:"APP_ENV" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFilePath string `env:"LOG_FILE_PATH" envDefault:"logs/zorgapp.log"`

	// Auth
	JWTSecret            string        `env:"JWT_SECRET"`
	TokenTTL             time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	OperatorUsername     string        `env:"OPERATOR_USERNAME" envDefault:"zorg"`
	OperatorPasswordHash string        `env:"OPERATOR_PASSWORD_HASH"`

	// Storage
	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"sqlite"`
	DatabaseURL    string `env:"DATABASE_URL" envDefault:"zorgapp.db"`
	DataDir        string `env:"DATA_DIR" envDefault:"data"`
	RedisURL       string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	RecordsSlot    string `env:"RECORDS_SLOT" envDefault:"zorg_data"`

	// Collaborators
	Provider                 string        `env:"COLLABORATOR_PROVIDER" envDefault:"remote"`
	BackendURL               string        `env:"BACKEND_URL" envDefault:"https://zorgappp.onrender.com"`
	OpenAIAPIKey             string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL            string        `env:"OPENAI_BASE_URL"`
	OpenAIModel              string        `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	OpenAITranscriptionModel string        `env:"OPENAI_TRANSCRIPTION_MODEL" envDefault:"whisper-1"`
	GeminiAPIKey             string        `env:"GEMINI_API_KEY"`
	GeminiModel              string        `env:"GEMINI_MODEL" envDefault:"gemini-1.5-flash-latest"`
	CallTimeout              time.Duration `env:"CALL_TIMEOUT" envDefault:"60s"`

	// Weekly summaries
	SummaryLanguage    string        `env:"SUMMARY_LANGUAGE" envDefault:"NL"`
	SummaryWindow      time.Duration `env:"SUMMARY_WINDOW" envDefault:"120h"`
	SummaryRefreshCron string        `env:"SUMMARY_REFRESH_CRON"`

	TimeZone string `env:"TIME_ZONE" envDefault:"Europe/Amsterdam"`
}

// Load reads .env (if present) and the process environment and validates the
// full server configuration.
func Load() (*Config, error) {
	cfg, err := parse()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadStorage is Load for offline tools that only open the record slot. Auth
// and collaborator settings are not required.
func LoadStorage() (*Config, error) {
	cfg, err := parse()
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateStorage(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parse() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

func (c *Config) ValidateStorage() error {
	switch c.StorageBackend {
	case StorageSQLite, StorageFile, StorageRedis:
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	if c.RecordsSlot == "" {
		return fmt.Errorf("RECORDS_SLOT must not be empty")
	}
	return nil
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}
	if c.OperatorPasswordHash == "" {
		return fmt.Errorf("OPERATOR_PASSWORD_HASH environment variable is required")
	}
	if err := c.ValidateStorage(); err != nil {
		return err
	}

	switch c.Provider {
	case ProviderRemote:
		if c.BackendURL == "" {
			return fmt.Errorf("BACKEND_URL is required for the remote provider")
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for the gemini provider")
		}
	default:
		return fmt.Errorf("unknown COLLABORATOR_PROVIDER %q", c.Provider)
	}

	if c.CallTimeout <= 0 {
		return fmt.Errorf("CALL_TIMEOUT must be positive")
	}
	if c.SummaryWindow <= 0 {
		return fmt.Errorf("SUMMARY_WINDOW must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// Location resolves TimeZone, falling back to the local zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		log.Printf("Unknown TIME_ZONE %q, using local time: %v", c.TimeZone, err)
		return time.Local
	}
	return loc
}
