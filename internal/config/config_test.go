package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	t.Setenv("TEST_RZP_KEY", "rzp_test_key")
	t.Setenv("TEST_RZP_SECRET", "shh")
	t.Setenv("TEST_PORT", "")

	yamlContent := `
payments:
  key_id: "${TEST_RZP_KEY}"
  key_secret: "${TEST_RZP_SECRET}"
database:
  path: "test.db"
api:
  http:
    port: ${TEST_PORT}
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0o644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "rzp_test_key", cfg.Payments.KeyID)
	assert.Equal(t, "shh", cfg.Payments.KeySecret)
	assert.Equal(t, 3001, cfg.API.HTTP.Port)
	assert.Equal(t, "https://api.razorpay.com/v1", cfg.Payments.BaseURL)
	assert.Equal(t, "configs/venues.yaml", cfg.Catalog.Path)
}

func TestLoadConfigFailsFastWithoutGatewayKeys(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv("TEST_MISSING_SECRET", "")

	yamlContent := `
payments:
  key_id: "rzp_test_key"
  key_secret: "${TEST_MISSING_SECRET}"
database:
  path: "test.db"
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0o644))

	_, err := Load(configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key_secret")
}

func TestValidateConfig(t *testing.T) {
	valid := func() Config {
		return Config{
			Payments: PaymentsConfig{KeyID: "id", KeySecret: "secret"},
			Database: DatabaseConfig{Path: "path"},
			Catalog:  CatalogConfig{Path: "venues.yaml"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid config", mutate: func(_ *Config) {}},
		{name: "missing key id", mutate: func(c *Config) { c.Payments.KeyID = "" }, wantErr: true},
		{name: "missing secret", mutate: func(c *Config) { c.Payments.KeySecret = " " }, wantErr: true},
		{name: "missing database", mutate: func(c *Config) { c.Database.Path = "" }, wantErr: true},
		{
			name: "admin without hash",
			mutate: func(c *Config) {
				c.Admin.Enabled = true
				c.Admin.SessionHashKey = strings.Repeat("ab", 32)
				c.Admin.SessionBlockKey = strings.Repeat("cd", 32)
			},
			wantErr: true,
		},
		{
			name: "admin with short block key",
			mutate: func(c *Config) {
				c.Admin.Enabled = true
				c.Admin.PasswordHash = "$2a$10$hash"
				c.Admin.SessionHashKey = strings.Repeat("ab", 32)
				c.Admin.SessionBlockKey = strings.Repeat("cd", 5)
			},
			wantErr: true,
		},
		{
			name: "admin valid",
			mutate: func(c *Config) {
				c.Admin.Enabled = true
				c.Admin.PasswordHash = "$2a$10$hash"
				c.Admin.SessionHashKey = strings.Repeat("ab", 32)
				c.Admin.SessionBlockKey = strings.Repeat("cd", 32)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateBot(t *testing.T) {
	cfg := Config{}
	assert.Error(t, cfg.ValidateBot())
	cfg.Telegram.BotToken = "YOUR_BOT_TOKEN_HERE"
	assert.Error(t, cfg.ValidateBot())
	cfg.Telegram.BotToken = "123:abc"
	assert.NoError(t, cfg.ValidateBot())
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.Database.Postgres.Host = "db"
	cfg.applyDefaults()

	assert.Equal(t, 3001, cfg.API.HTTP.Port)
	assert.Equal(t, 3002, cfg.API.GRPC.Port)
	assert.Equal(t, models.DefaultCurrency, cfg.Payments.Currency)
	assert.Equal(t, models.RateLimitMessages, cfg.Conversation.RateLimitMessages)
	assert.Equal(t, models.DefaultMaxBookingDays, cfg.Conversation.MaxBookingDays)
	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)
	assert.Equal(t, 24*60*60, int(cfg.Conversation.SessionTTL().Seconds()))
	assert.Equal(t, "x-api-key", cfg.API.Auth.HeaderAPIKey)
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{Host: "localhost", Port: 5432, User: "u", Password: "p", DBName: "museum", SSLMode: "disable"}
	assert.True(t, p.Enabled())
	assert.Equal(t, "host=localhost port=5432 user=u password=p dbname=museum sslmode=disable", p.DSN())
	assert.False(t, PostgresConfig{}.Enabled())
}
