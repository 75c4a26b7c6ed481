package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/raido/internal/kv"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Store   StoreConfig       `yaml:"store"`
	Weather WeatherConfig     `yaml:"weather"`
	Blog    BlogConfig        `yaml:"blog"`
	Chat    ChatConfig        `yaml:"chat"`
	Auth    AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	if err := c.Weather.Validate(); err != nil {
		return err
	}
	if err := c.Blog.Validate(); err != nil {
		return err
	}
	if err := c.Chat.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
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

// StoreConfig holds record-store configuration: the SQLite path backing
// the durable backend, the namespace prefix, and the default backend.
type StoreConfig struct {
	Path           string `yaml:"path"`
	Prefix         string `yaml:"prefix"`
	DefaultBackend string `yaml:"default_backend"`
	MaxEntries     int    `yaml:"max_entries"`
	MaxValueBytes  int    `yaml:"max_value_bytes"`
}

// Validate validates the store configuration.
func (c *StoreConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Prefix, validation.Required),
		validation.Field(&c.DefaultBackend, validation.Required,
			validation.In(kv.BackendDurable, kv.BackendSession)),
		validation.Field(&c.MaxEntries, validation.Min(0)),
		validation.Field(&c.MaxValueBytes, validation.Min(0)),
	)
}

// WeatherConfig holds the weather lookup client configuration.
type WeatherConfig struct {
	BaseURL         string `yaml:"base_url"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
	CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
}

// Validate validates the weather configuration.
func (c *WeatherConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required),
		validation.Field(&c.TimeoutSeconds, validation.Min(1)),
		validation.Field(&c.CacheTTLSeconds, validation.Min(0)),
	)
}

// BlogConfig holds the blog viewer client configuration.
type BlogConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Validate validates the blog configuration.
func (c *BlogConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required),
		validation.Field(&c.TimeoutSeconds, validation.Min(1)),
	)
}

// ChatConfig holds the echo-chat client configuration.
type ChatConfig struct {
	ReconnectBackoffSeconds int `yaml:"reconnect_backoff_seconds"`
	MaxDialAttempts         int `yaml:"max_dial_attempts"`
}

// Validate validates the chat configuration.
func (c *ChatConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ReconnectBackoffSeconds, validation.Min(1)),
		validation.Field(&c.MaxDialAttempts, validation.Min(0)),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Store: StoreConfig{
			Path:           "./raido.db",
			Prefix:         "records/",
			DefaultBackend: kv.BackendDurable,
		},
		Weather: WeatherConfig{
			BaseURL:         "https://api.open-meteo.com/v1/forecast",
			TimeoutSeconds:  10,
			CacheTTLSeconds: 300,
		},
		Blog: BlogConfig{
			BaseURL:        "https://jsonplaceholder.typicode.com",
			TimeoutSeconds: 10,
		},
		Chat: ChatConfig{
			ReconnectBackoffSeconds: 2,
			MaxDialAttempts:         5,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
