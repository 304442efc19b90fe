package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("APP_PORT", "")
	t.Setenv("WHATSAPP_API_VERSION", "")
	t.Setenv("WHATSAPP_HTTP_TIMEOUT", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.Server.Port)
	require.Equal(t, StoreDriverMemory, cfg.Store.Driver)
	require.Equal(t, "v21.0", cfg.WhatsApp.APIVersion)
	require.Equal(t, 30*time.Second, cfg.WhatsApp.HTTPTimeout)
}

func TestLoadFromEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := "STORE_DRIVER=sqlite\nDATABASE_DSN=file::memory:\nWEBHOOK_CALLBACK_BASE_URL=https://hooks.example.com/\nWHATSAPP_HTTP_TIMEOUT=5s\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))

	// godotenv does not override variables that are already set
	for _, key := range []string{"STORE_DRIVER", "DATABASE_DSN", "WEBHOOK_CALLBACK_BASE_URL", "WHATSAPP_HTTP_TIMEOUT"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := Load(envFile)
	require.NoError(t, err)
	require.Equal(t, StoreDriverSQLite, cfg.Store.Driver)
	require.Equal(t, "file::memory:", cfg.Store.DSN)
	require.Equal(t, "https://hooks.example.com", cfg.Webhook.CallbackBaseURL)
	require.Equal(t, 5*time.Second, cfg.WhatsApp.HTTPTimeout)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: "8080"},
			Store:    StoreConfig{Driver: StoreDriverMemory},
			WhatsApp: WhatsAppConfig{BaseURL: "https://graph.facebook.com", APIVersion: "v21.0"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid memory store", mutate: func(*Config) {}},
		{name: "missing port", mutate: func(c *Config) { c.Server.Port = "" }, wantErr: "APP_PORT"},
		{name: "missing api version", mutate: func(c *Config) { c.WhatsApp.APIVersion = "" }, wantErr: "WHATSAPP_API_VERSION"},
		{name: "unknown driver", mutate: func(c *Config) { c.Store.Driver = "redis" }, wantErr: "unknown STORE_DRIVER"},
		{name: "postgres without dsn", mutate: func(c *Config) { c.Store.Driver = StoreDriverPostgres }, wantErr: "DATABASE_DSN"},
		{name: "mongodb without uri", mutate: func(c *Config) { c.Store.Driver = StoreDriverMongoDB }, wantErr: "MONGODB_URI"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestHasSignupCredentials(t *testing.T) {
	require.False(t, MetaAppConfig{ClientID: "1"}.HasSignupCredentials())
	require.True(t, MetaAppConfig{ClientID: "1", ClientSecret: "s"}.HasSignupCredentials())
}
