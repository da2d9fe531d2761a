package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/mindmaps/internal/mapservice"
	"github.com/starford/mindmaps/internal/mindmap"
	"github.com/starford/mindmaps/internal/store"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Database DatabaseConfig    `yaml:"database"`
	Auth     AuthConfig        `yaml:"auth"`
	Mindmap  MindmapConfig     `yaml:"mindmap"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Auth.Validate(); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := c.Mindmap.Validate(); err != nil {
		return fmt.Errorf("mindmap: %w", err)
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// DatabaseConfig selects the SQL driver and its data source.
// For sqlite3 the DSN is a file path; for pgx it is a PostgreSQL URL.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// Validate validates the database configuration.
func (c *DatabaseConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required, validation.In(store.DriverSQLite, store.DriverPostgres)),
		validation.Field(&c.DSN, validation.Required),
	)
}

// AuthConfig holds credential and token settings.
//
// An empty SecretKey is allowed: the server then generates a random key at
// start, so issued tokens do not survive a restart.
type AuthConfig struct {
	SecretKey         string        `yaml:"secret_key"`
	AccessTokenTTL    time.Duration `yaml:"access_token_ttl"`
	BcryptCost        int           `yaml:"bcrypt_cost"`
	MinPasswordLength int           `yaml:"min_password_length"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.AccessTokenTTL, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.BcryptCost, validation.Required, validation.Min(4), validation.Max(31)),
		validation.Field(&c.MinPasswordLength, validation.Required, validation.Min(1)),
	)
}

// MindmapConfig holds document limits.
type MindmapConfig struct {
	MaxDescriptionLength int    `yaml:"max_description_length"`
	CopyPrefix           string `yaml:"copy_prefix"`
}

// Validate validates the mind-map configuration.
func (c *MindmapConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxDescriptionLength, validation.Required, validation.Min(1)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8000,
			},
		},
		Database: DatabaseConfig{
			Driver: store.DriverSQLite,
			DSN:    "./mindmaps.db",
		},
		Auth: AuthConfig{
			AccessTokenTTL:    30 * time.Minute,
			BcryptCost:        10,
			MinPasswordLength: 8,
		},
		Mindmap: MindmapConfig{
			MaxDescriptionLength: mindmap.DefaultMaxDescriptionLength,
			CopyPrefix:           mapservice.DefaultCopyPrefix,
		},
	}
}
