package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config wraps the application's viper instance.
type Config struct {
	v *viper.Viper
}

// New loads configuration from config.yaml (searched in the usual
// locations), environment variables prefixed LISTSERV_TRIAGE, and the
// built-in defaults.
func New() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/listserv-triage/")
	v.AddConfigPath("$HOME/.listserv-triage")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvPrefix("LISTSERV_TRIAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// no config file, defaults + env apply
	}

	return &Config{v: v}, nil
}

// NewFromViper wraps an existing viper instance.
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper returns a viper instance carrying only the defaults.
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	// HTTP server
	v.SetDefault("server.http_enabled", true)
	v.SetDefault("server.listen_address", ":8080")
	v.SetDefault("server.webhook_secret", "")

	// SMTP ingestion listener
	v.SetDefault("server.smtp_enabled", false)
	v.SetDefault("server.smtp_listen_address", ":2525")
	v.SetDefault("server.smtp_domain", "localhost")

	// Storage
	v.SetDefault("storage.type", "sqlite")
	v.SetDefault("storage.sqlite_path", "/data/listserv-triage.db")
	v.SetDefault("storage.mysql_dsn", "user:password@tcp(localhost:3306)/listserv_triage")

	// Retention
	v.SetDefault("retention.max_age", "3600h") // 150 days
	v.SetDefault("retention.sweep_frequency", "6h")

	// Allowed listservs (SMTP path); empty accepts everything
	v.SetDefault("listservs.allowed", []string{})

	// Advisory review
	v.SetDefault("review.enabled", false)
	v.SetDefault("review.provider", "openai")

	// OpenAI
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model_name", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 500)
	v.SetDefault("openai.temperature", 0.1)
	v.SetDefault("openai.top_p", 0.9)
	v.SetDefault("openai.max_body_size", 4096)

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration.
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration.
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration.
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration.
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration.
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration parses a duration value from the configuration.
func (c *Config) GetDuration(key string) (time.Duration, error) {
	return time.ParseDuration(c.GetString(key))
}

// GetViper returns the underlying viper instance.
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
