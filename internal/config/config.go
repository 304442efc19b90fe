package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreDriverMongoDB  = "mongodb"
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
	StoreDriverMemory   = "memory"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Store     StoreConfig
	WhatsApp  WhatsAppConfig
	MetaApp   MetaAppConfig
	Webhook   WebhookConfig
	Scheduler SchedulerConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// LogConfig selects the log level and optional rotated file output.
type LogConfig struct {
	Level string
	File  string
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver  string
	MongoDB MongoDBConfig
	DSN     string
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// WhatsAppConfig contains the Graph API endpoint options shared by every tenant.
type WhatsAppConfig struct {
	BaseURL     string
	APIVersion  string
	HTTPTimeout time.Duration
}

// MetaAppConfig holds the system-level app credentials used by embedded signup.
type MetaAppConfig struct {
	AppID        string
	ClientID     string
	ClientSecret string
	ConfigID     string
	AppSecret    string
}

// HasSignupCredentials reports whether the guided flow can exchange codes.
func (m MetaAppConfig) HasSignupCredentials() bool {
	return m.ClientID != "" && m.ClientSecret != ""
}

// WebhookConfig holds the inbound webhook settings.
type WebhookConfig struct {
	CallbackBaseURL string
	VerifyToken     string
}

// SchedulerConfig holds the periodic template reconciliation settings.
type SchedulerConfig struct {
	TemplateSyncCron string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// missing .env files are fine when configuration comes from the environment
		_ = godotenv.Load()
	}

	timeout, err := time.ParseDuration(getenvWithDefault("WHATSAPP_HTTP_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("WHATSAPP_HTTP_TIMEOUT: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		Log: LogConfig{
			Level: getenvWithDefault("LOG_LEVEL", "info"),
			File:  os.Getenv("LOG_FILE"),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(getenvWithDefault("STORE_DRIVER", StoreDriverMongoDB)),
			MongoDB: MongoDBConfig{
				URI:    getenvWithDefault("MONGODB_URI", "mongodb://localhost:27017"),
				DBName: getenvWithDefault("MONGODB_DB_NAME", "wabahub"),
			},
			DSN: os.Getenv("DATABASE_DSN"),
		},
		WhatsApp: WhatsAppConfig{
			BaseURL:     getenvWithDefault("WHATSAPP_BASE_URL", "https://graph.facebook.com"),
			APIVersion:  getenvWithDefault("WHATSAPP_API_VERSION", "v21.0"),
			HTTPTimeout: timeout,
		},
		MetaApp: MetaAppConfig{
			AppID:        os.Getenv("META_APP_ID"),
			ClientID:     os.Getenv("META_CLIENT_ID"),
			ClientSecret: os.Getenv("META_CLIENT_SECRET"),
			ConfigID:     os.Getenv("META_CONFIG_ID"),
			AppSecret:    os.Getenv("META_APP_SECRET"),
		},
		Webhook: WebhookConfig{
			CallbackBaseURL: strings.TrimSuffix(os.Getenv("WEBHOOK_CALLBACK_BASE_URL"), "/"),
			VerifyToken:     os.Getenv("META_VERIFY_TOKEN"),
		},
		Scheduler: SchedulerConfig{
			TemplateSyncCron: os.Getenv("TEMPLATE_SYNC_CRON"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	if c.WhatsApp.BaseURL == "" {
		return errors.New("WHATSAPP_BASE_URL must not be empty")
	}

	if c.WhatsApp.APIVersion == "" {
		return errors.New("WHATSAPP_API_VERSION must not be empty")
	}

	switch c.Store.Driver {
	case StoreDriverMongoDB:
		if c.Store.MongoDB.URI == "" || c.Store.MongoDB.DBName == "" {
			return errors.New("MONGODB_URI and MONGODB_DB_NAME must be provided")
		}
	case StoreDriverPostgres, StoreDriverSQLite:
		if c.Store.DSN == "" {
			return fmt.Errorf("DATABASE_DSN must be provided for STORE_DRIVER=%s", c.Store.Driver)
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
