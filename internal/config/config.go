package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
// It is read-only after Load() returns and thread-safe for concurrent reads.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	WhatsApp   WhatsAppConfig   `yaml:"whatsapp"`
	API        APIConfig        `yaml:"api"`
	Transcribe TranscribeConfig `yaml:"transcribe"`
	Media      MediaConfig      `yaml:"media"`
	Worker     WorkerConfig     `yaml:"worker"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig contains conversation-store settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// CatalogConfig points at the command catalog file. An empty path uses
// the catalog embedded in the binary.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// WhatsAppConfig contains WhatsApp Cloud API settings.
type WhatsAppConfig struct {
	AccessToken   string `yaml:"-"` // env-only, never in YAML
	AppSecret     string `yaml:"-"` // env-only, never in YAML
	VerifyToken   string `yaml:"-"` // env-only, never in YAML
	PhoneNumberID string `yaml:"phone_number_id"`
	BaseURL       string `yaml:"base_url"`
}

// APIConfig contains settings for the Productif REST API that handlers
// record sessions, journal entries and check-ins against.
type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"-"` // env-only, never in YAML
}

// TranscribeConfig contains voice transcription settings.
type TranscribeConfig struct {
	APIKey string `yaml:"-"` // env-only, never in YAML
	Model  string `yaml:"model"`
}

// MediaConfig contains S3-compatible voice-note archive settings.
// An empty bucket disables archiving.
type MediaConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"-"` // env-only, never in YAML
	SecretKey string `yaml:"-"` // env-only, never in YAML
	UseSSL    bool   `yaml:"use_ssl"`
}

// WorkerConfig contains background worker settings.
type WorkerConfig struct {
	CheckInScanInterval Duration `yaml:"checkin_scan_interval"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Duration is a wrapper around time.Duration that supports YAML string parsing.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Load loads configuration with precedence: defaults → YAML file → env vars.
// Returns an immutable Config suitable for concurrent read access.
func Load() (*Config, error) {
	cfg := newDefaults()

	// Determine config path
	configPath := getEnv("ASSISTANT_CONFIG_PATH", "config/assistant.yaml")

	// Load YAML file if it exists (missing file is not an error)
	if err := loadYAMLFile(cfg, configPath); err != nil {
		return nil, err
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile loads configuration from a specific path.
// Used for testing and explicit path specification.
func LoadFromFile(path string) (*Config, error) {
	cfg := newDefaults()

	// Load YAML file (file must exist for this function)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// newDefaults returns a Config with all default values.
func newDefaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     Duration(30 * time.Second),
			WriteTimeout:    Duration(30 * time.Second),
			ShutdownTimeout: Duration(15 * time.Second),
		},
		Database: DatabaseConfig{
			Path: "data/assistant.db",
		},
		WhatsApp: WhatsAppConfig{
			BaseURL: "https://graph.facebook.com/v18.0",
		},
		Transcribe: TranscribeConfig{
			Model: "whisper-1",
		},
		Media: MediaConfig{
			Region: "us-east-1",
			UseSSL: true,
		},
		Worker: WorkerConfig{
			CheckInScanInterval: Duration(1 * time.Minute),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// loadYAMLFile loads configuration from a YAML file if it exists.
// Missing file is not an error; we just use defaults.
func loadYAMLFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Missing file is OK; use defaults
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Only non-empty env vars override config values.
func applyEnvOverrides(cfg *Config) {
	// Server
	if v := os.Getenv("ASSISTANT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("ASSISTANT_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = Duration(d)
		}
	}
	if v := os.Getenv("ASSISTANT_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = Duration(d)
		}
	}
	if v := os.Getenv("ASSISTANT_SHUTDOWN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ShutdownTimeout = Duration(d)
		}
	}

	// Database and catalog
	if v := os.Getenv("ASSISTANT_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("ASSISTANT_CATALOG_PATH"); v != "" {
		cfg.Catalog.Path = v
	}

	// WhatsApp
	if v := os.Getenv("WHATSAPP_ACCESS_TOKEN"); v != "" {
		cfg.WhatsApp.AccessToken = v
	}
	if v := os.Getenv("WHATSAPP_APP_SECRET"); v != "" {
		cfg.WhatsApp.AppSecret = v
	}
	if v := os.Getenv("WHATSAPP_VERIFY_TOKEN"); v != "" {
		cfg.WhatsApp.VerifyToken = v
	}
	if v := os.Getenv("WHATSAPP_PHONE_NUMBER_ID"); v != "" {
		cfg.WhatsApp.PhoneNumberID = v
	}
	if v := os.Getenv("WHATSAPP_BASE_URL"); v != "" {
		cfg.WhatsApp.BaseURL = v
	}

	// Productif REST API
	if v := os.Getenv("ASSISTANT_API_BASE_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("ASSISTANT_API_TOKEN"); v != "" {
		cfg.API.Token = v
	}

	// Transcription (OPENAI_API_KEY is industry convention)
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Transcribe.APIKey = v
	}
	if v := os.Getenv("ASSISTANT_TRANSCRIBE_MODEL"); v != "" {
		cfg.Transcribe.Model = v
	}

	// Media archive
	if v := os.Getenv("ASSISTANT_MEDIA_ENDPOINT"); v != "" {
		cfg.Media.Endpoint = v
	}
	if v := os.Getenv("ASSISTANT_MEDIA_REGION"); v != "" {
		cfg.Media.Region = v
	}
	if v := os.Getenv("ASSISTANT_MEDIA_BUCKET"); v != "" {
		cfg.Media.Bucket = v
	}
	if v := os.Getenv("ASSISTANT_MEDIA_ACCESS_KEY"); v != "" {
		cfg.Media.AccessKey = v
	}
	if v := os.Getenv("ASSISTANT_MEDIA_SECRET_KEY"); v != "" {
		cfg.Media.SecretKey = v
	}
	if v := os.Getenv("ASSISTANT_MEDIA_USE_SSL"); v != "" {
		cfg.Media.UseSSL = v == "true" || v == "1"
	}

	// Worker
	if v := os.Getenv("ASSISTANT_CHECKIN_SCAN_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Worker.CheckInScanInterval = Duration(d)
		}
	}

	// Log
	if v := os.Getenv("ASSISTANT_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("ASSISTANT_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// validate checks that required configuration values are set.
// In dev mode (ASSISTANT_DEV_MODE=true), credential validation is skipped.
func (c *Config) validate() error {
	// Dev mode bypasses credential validation
	if os.Getenv("ASSISTANT_DEV_MODE") == "true" {
		return nil
	}

	if c.WhatsApp.AccessToken == "" {
		return errors.New("WHATSAPP_ACCESS_TOKEN is required")
	}
	if c.WhatsApp.VerifyToken == "" {
		return errors.New("WHATSAPP_VERIFY_TOKEN is required")
	}
	if c.API.Token == "" {
		return errors.New("ASSISTANT_API_TOKEN is required")
	}
	return nil
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
