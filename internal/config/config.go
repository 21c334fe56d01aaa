package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Log        LogConfig        `yaml:"log"`
	Assistant  AssistantConfig  `yaml:"assistant"`
	Email      EmailConfig      `yaml:"email"`
	Push       PushConfig       `yaml:"push"`
	Session    SessionConfig    `yaml:"session"`
	Households HouseholdsConfig `yaml:"households"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Backup     BackupConfig     `yaml:"backup"`
	Timezone   string           `yaml:"timezone"`
}

type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	BaseURL        string        `yaml:"base_url"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"` // websocket origins; empty means same host only
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type AssistantConfig struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

type EmailConfig struct {
	PostmarkToken string `yaml:"postmark_token"`
	From          string `yaml:"from"`
}

type PushConfig struct {
	VAPIDPublicKey  string        `yaml:"vapid_public_key"`
	VAPIDPrivateKey string        `yaml:"vapid_private_key"`
	Subject         string        `yaml:"subject"`
	ReminderLead    time.Duration `yaml:"reminder_lead"`
}

type SessionConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// HouseholdsConfig holds defaults seeded into each new household's settings.
type HouseholdsConfig struct {
	RemoveMemberClearsPointer bool `yaml:"remove_member_clears_pointer"`
}

type RateLimitConfig struct {
	Auth      int           `yaml:"auth"`
	Assistant int           `yaml:"assistant"`
	Window    time.Duration `yaml:"window"`
}

// BackupConfig points at S3-compatible storage for encrypted database
// snapshots. Backups are off unless bucket, keys and passphrase are set.
type BackupConfig struct {
	Endpoint   string        `yaml:"endpoint"`
	Bucket     string        `yaml:"bucket"`
	Region     string        `yaml:"region"`
	AccessKey  string        `yaml:"access_key"`
	SecretKey  string        `yaml:"secret_key"`
	Prefix     string        `yaml:"prefix"`
	Passphrase string        `yaml:"passphrase"`
	Interval   time.Duration `yaml:"interval"`
	Retention  time.Duration `yaml:"retention"`
}

// Load reads .env if present, then the YAML file at path (optional, with
// ${VAR} expansion), then TIDYTAP_* environment overrides.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			BaseURL:      "http://localhost:8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Database: DatabaseConfig{Path: "tidytap.db"},
		Log:      LogConfig{Level: "info", Format: "text"},
		Assistant: AssistantConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-3.5-turbo",
			Timeout: 30 * time.Second,
		},
		Email: EmailConfig{From: "TidyTap <noreply@tidytap.app>"},
		Push: PushConfig{
			Subject:      "mailto:noreply@tidytap.app",
			ReminderLead: time.Hour,
		},
		Session:   SessionConfig{TTL: 30 * 24 * time.Hour},
		RateLimit: RateLimitConfig{Auth: 10, Assistant: 30, Window: time.Minute},
		Backup: BackupConfig{
			Region:    "us-east-1",
			Prefix:    "backups",
			Interval:  24 * time.Hour,
			Retention: 30 * 24 * time.Hour,
		},
		Timezone: "UTC",
	}
}

func applyEnvOverrides(cfg *Config) error {
	strs := map[string]*string{
		"TIDYTAP_HOST":              &cfg.Server.Host,
		"TIDYTAP_BASE_URL":          &cfg.Server.BaseURL,
		"TIDYTAP_DB_PATH":           &cfg.Database.Path,
		"TIDYTAP_LOG_LEVEL":         &cfg.Log.Level,
		"TIDYTAP_LOG_FORMAT":        &cfg.Log.Format,
		"TIDYTAP_ASSISTANT_API_KEY": &cfg.Assistant.APIKey,
		"TIDYTAP_ASSISTANT_URL":     &cfg.Assistant.BaseURL,
		"TIDYTAP_ASSISTANT_MODEL":   &cfg.Assistant.Model,
		"TIDYTAP_POSTMARK_TOKEN":    &cfg.Email.PostmarkToken,
		"TIDYTAP_EMAIL_FROM":        &cfg.Email.From,
		"TIDYTAP_VAPID_PUBLIC_KEY":  &cfg.Push.VAPIDPublicKey,
		"TIDYTAP_VAPID_PRIVATE_KEY": &cfg.Push.VAPIDPrivateKey,
		"TIDYTAP_TIMEZONE":          &cfg.Timezone,
		"TIDYTAP_BACKUP_ENDPOINT":   &cfg.Backup.Endpoint,
		"TIDYTAP_BACKUP_BUCKET":     &cfg.Backup.Bucket,
		"TIDYTAP_BACKUP_REGION":     &cfg.Backup.Region,
		"TIDYTAP_BACKUP_ACCESS_KEY": &cfg.Backup.AccessKey,
		"TIDYTAP_BACKUP_SECRET_KEY": &cfg.Backup.SecretKey,
		"TIDYTAP_BACKUP_PASSPHRASE": &cfg.Backup.Passphrase,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	if cfg.Assistant.APIKey == "" {
		cfg.Assistant.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	if v := os.Getenv("TIDYTAP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TIDYTAP_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("TIDYTAP_REMOVE_MEMBER_CLEARS_POINTER"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TIDYTAP_REMOVE_MEMBER_CLEARS_POINTER: %w", err)
		}
		cfg.Households.RemoveMemberClearsPointer = b
	}
	if v := os.Getenv("TIDYTAP_ALLOWED_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = strings.Split(v, ",")
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log format must be text or json, got %q", c.Log.Format)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Location returns the configured zone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
