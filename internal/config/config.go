package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App          AppConfig          `yaml:"app"`
	Payments     PaymentsConfig     `yaml:"payments"`
	Admin        AdminConfig        `yaml:"admin"`
	Catalog      CatalogConfig      `yaml:"catalog"`
	Conversation ConversationConfig `yaml:"conversation"`
	Telegram     TelegramConfig     `yaml:"telegram"`
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	Worker       WorkerConfig       `yaml:"worker"`
	Backup       BackupConfig       `yaml:"backup"`
	Monitoring   MonitoringConfig   `yaml:"monitoring"`
	Logging      LoggingConfig      `yaml:"logging"`
	API          APIConfig          `yaml:"api"`
	Exports      ExportConfig       `yaml:"exports"`
	Google       GoogleConfig       `yaml:"google"`
}

// PaymentsConfig holds the gateway credentials. KeySecret never leaves the
// server.
type PaymentsConfig struct {
	KeyID          string `yaml:"key_id"`
	KeySecret      string `yaml:"key_secret"`
	BaseURL        string `yaml:"base_url"`
	Currency       string `yaml:"currency"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	CheckoutURL    string `yaml:"checkout_url"`
}

func (p PaymentsConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

type AdminConfig struct {
	Enabled           bool   `yaml:"enabled"`
	Username          string `yaml:"username"`
	PasswordHash      string `yaml:"password_hash"`
	SessionHashKey    string `yaml:"session_hash_key"`
	SessionBlockKey   string `yaml:"session_block_key"`
	SessionTTLMinutes int    `yaml:"session_ttl_minutes"`
	SecureCookie      bool   `yaml:"secure_cookie"`
}

// Keys decodes the hex-encoded cookie keys.
func (a AdminConfig) Keys() (hashKey, blockKey []byte, err error) {
	hashKey, err = hex.DecodeString(a.SessionHashKey)
	if err != nil {
		return nil, nil, fmt.Errorf("admin.session_hash_key: %w", err)
	}
	blockKey, err = hex.DecodeString(a.SessionBlockKey)
	if err != nil {
		return nil, nil, fmt.Errorf("admin.session_block_key: %w", err)
	}
	return hashKey, blockKey, nil
}

func (a AdminConfig) SessionTTL() time.Duration {
	return time.Duration(a.SessionTTLMinutes) * time.Minute
}

type CatalogConfig struct {
	Path string `yaml:"path"`
}

type ConversationConfig struct {
	SessionTTLHours     int `yaml:"session_ttl_hours"`
	MaxBookingDays      int `yaml:"max_booking_days"`
	StoreTimeoutSeconds int `yaml:"store_timeout_seconds"`
	RateLimitMessages   int `yaml:"rate_limit_messages"`
	RateLimitWindow     int `yaml:"rate_limit_window"`
}

func (c ConversationConfig) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

func (c ConversationConfig) StoreTimeout() time.Duration {
	return time.Duration(c.StoreTimeoutSeconds) * time.Second
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	Debug    bool   `yaml:"debug"`
}

type DatabaseConfig struct {
	Path     string         `yaml:"path"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig configures the optional primary tier. When Host is empty
// the local SQLite database is the only store.
type PostgresConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	User           string `yaml:"user"`
	Password       string `yaml:"password"`
	DBName         string `yaml:"dbname"`
	SSLMode        string `yaml:"sslmode"`
	MaxConnections int    `yaml:"max_connections"`
}

func (p PostgresConfig) Enabled() bool {
	return strings.TrimSpace(p.Host) != ""
}

// DSN renders a lib/pq connection string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type WorkerConfig struct {
	Enabled             bool    `yaml:"enabled"`
	PollIntervalSeconds int     `yaml:"poll_interval_seconds"`
	BatchSize           int     `yaml:"batch_size"`
	MaxRetries          int     `yaml:"max_retries"`
	InitialDelaySeconds int     `yaml:"initial_delay_seconds"`
	MaxDelaySeconds     int     `yaml:"max_delay_seconds"`
	BackoffFactor       float64 `yaml:"backoff_factor"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	HTTP      APIHTTPConfig      `yaml:"http"`
	GRPC      APIGRPCConfig      `yaml:"grpc"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
	CORS      APICORSConfig      `yaml:"cors"`
}

type APIHTTPConfig struct {
	Port                  int `yaml:"port"`
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds"`
}

type APIGRPCConfig struct {
	Enabled    bool         `yaml:"enabled"`
	Port       int          `yaml:"port"`
	Reflection bool         `yaml:"reflection"`
	TLS        APITLSConfig `yaml:"tls"`
}

type APITLSConfig struct {
	Enabled           bool   `yaml:"enabled"`
	CertFile          string `yaml:"cert_file"`
	KeyFile           string `yaml:"key_file"`
	ClientCAFile      string `yaml:"client_ca_file"`
	RequireClientCert bool   `yaml:"require_client_cert"`
}

// APIAuthConfig guards machine clients of the gRPC service.
type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	HeaderExtra  string         `yaml:"header_extra"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Extra       string   `yaml:"extra"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type APICORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type GoogleConfig struct {
	GoogleCredentialsFile string `yaml:"credentials_file"`
	BookingSpreadSheetID  string `yaml:"bookings_spreadsheet_id"`
}

func (g GoogleConfig) Enabled() bool {
	return g.GoogleCredentialsFile != "" && g.BookingSpreadSheetID != ""
}

func Load(configPath string) (*Config, error) {
	// .env is optional; real environment variables win over it.
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Payments.KeyID) == "" {
		return errors.New("payments.key_id is required (RAZORPAY_KEY_ID)")
	}
	if strings.TrimSpace(c.Payments.KeySecret) == "" {
		return errors.New("payments.key_secret is required (RAZORPAY_KEY_SECRET)")
	}

	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if c.Catalog.Path == "" {
		return errors.New("catalog path is required")
	}

	if c.Admin.Enabled {
		if err := c.Admin.validate(); err != nil {
			return err
		}
	}

	return nil
}

// ValidateBot adds the checks only the Telegram front-end needs.
func (c *Config) ValidateBot() error {
	if c.Telegram.BotToken == "" || c.Telegram.BotToken == "YOUR_BOT_TOKEN_HERE" {
		return errors.New("telegram bot token is required")
	}
	return nil
}

func (a AdminConfig) validate() error {
	if a.PasswordHash == "" {
		return errors.New("admin.password_hash is required when admin is enabled")
	}
	hashKey, blockKey, err := a.Keys()
	if err != nil {
		return err
	}
	if len(hashKey) < 32 {
		return errors.New("admin.session_hash_key must decode to at least 32 bytes")
	}
	switch len(blockKey) {
	case 16, 24, 32:
	default:
		return errors.New("admin.session_block_key must decode to 16, 24 or 32 bytes")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 3001
	}
	if c.API.HTTP.RequestTimeoutSeconds == 0 {
		c.API.HTTP.RequestTimeoutSeconds = 15
	}
	if c.API.GRPC.Port == 0 {
		c.API.GRPC.Port = 3002
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.Auth.HeaderExtra == "" {
		c.API.Auth.HeaderExtra = "x-api-extra"
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}

	if c.Payments.BaseURL == "" {
		c.Payments.BaseURL = "https://api.razorpay.com/v1"
	}
	if c.Payments.Currency == "" {
		c.Payments.Currency = models.DefaultCurrency
	}
	if c.Payments.TimeoutSeconds == 0 {
		c.Payments.TimeoutSeconds = 10
	}

	if c.Admin.Username == "" {
		c.Admin.Username = "admin"
	}
	if c.Admin.SessionTTLMinutes == 0 {
		c.Admin.SessionTTLMinutes = 8 * 60
	}

	if c.Catalog.Path == "" {
		c.Catalog.Path = "configs/venues.yaml"
	}

	if c.Conversation.SessionTTLHours == 0 {
		c.Conversation.SessionTTLHours = int(models.DefaultSessionTTL / time.Hour)
	}
	if c.Conversation.MaxBookingDays == 0 {
		c.Conversation.MaxBookingDays = models.DefaultMaxBookingDays
	}
	if c.Conversation.StoreTimeoutSeconds == 0 {
		c.Conversation.StoreTimeoutSeconds = 5
	}
	if c.Conversation.RateLimitMessages == 0 {
		c.Conversation.RateLimitMessages = models.RateLimitMessages
	}
	if c.Conversation.RateLimitWindow == 0 {
		c.Conversation.RateLimitWindow = models.RateLimitWindow
	}

	if c.Database.Postgres.Enabled() {
		if c.Database.Postgres.Port == 0 {
			c.Database.Postgres.Port = 5432
		}
		if c.Database.Postgres.SSLMode == "" {
			c.Database.Postgres.SSLMode = "disable"
		}
	}

	if c.Worker.PollIntervalSeconds == 0 {
		c.Worker.PollIntervalSeconds = 2
	}
	if c.Worker.BatchSize == 0 {
		c.Worker.BatchSize = 20
	}
	if c.Worker.MaxRetries == 0 {
		c.Worker.MaxRetries = 8
	}
	if c.Worker.InitialDelaySeconds == 0 {
		c.Worker.InitialDelaySeconds = 2
	}
	if c.Worker.MaxDelaySeconds == 0 {
		c.Worker.MaxDelaySeconds = 300
	}
	if c.Worker.BackoffFactor == 0 {
		c.Worker.BackoffFactor = 2
	}

	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
}
