package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/liliang-cn/askstream/internal/domain"
	"github.com/spf13/viper"
)

// Config holds all configuration for askstream
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Client    ClientConfig    `mapstructure:"client"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Log       LogConfig       `mapstructure:"log"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Responder ResponderConfig `mapstructure:"responder"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Sites     []domain.Site   `mapstructure:"sites"`
}

// ServerConfig holds development stream server configuration
type ServerConfig struct {
	Host         string   `mapstructure:"host"`
	Port         int      `mapstructure:"port"`
	BaseURL      string   `mapstructure:"base_url"`
	AllowOrigins []string `mapstructure:"allow_origins"`
	// APIKey protects the metrics endpoint when set
	APIKey string `mapstructure:"api_key"`
}

// ClientConfig holds the stream client connection settings
type ClientConfig struct {
	APIBase   string `mapstructure:"api_base"`
	Token     string `mapstructure:"token"`
	Mode      string `mapstructure:"mode"`
	Namespace string `mapstructure:"namespace"`
	// Timeout bounds a whole turn; zero means no limit
	Timeout time.Duration `mapstructure:"timeout"`
}

// StorageConfig selects where the client keeps the conversation identifier
type StorageConfig struct {
	// Driver is one of sqlite, memory or none
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	RequestsPerHour int  `mapstructure:"requests_per_hour"`
	Burst           int  `mapstructure:"burst"`
}

// ResponderConfig drives the scripted answers of the development server
type ResponderConfig struct {
	ChunkWords int           `mapstructure:"chunk_words"`
	Delay      time.Duration `mapstructure:"delay"`
	Fallback   string        `mapstructure:"fallback"`
	Scripts    []Script      `mapstructure:"scripts"`
}

// Script is one canned answer selected by keyword
type Script struct {
	Keywords []string       `mapstructure:"keywords"`
	Answer   string         `mapstructure:"answer"`
	Sources  []ScriptSource `mapstructure:"sources"`
	Steps    []ScriptStep   `mapstructure:"steps"`
}

// ScriptSource is a citation attached to a scripted answer
type ScriptSource struct {
	Title   string `mapstructure:"title"`
	URL     string `mapstructure:"url"`
	Snippet string `mapstructure:"snippet"`
}

// ScriptStep is a reasoning step reported before a scripted answer
type ScriptStep struct {
	Type    string `mapstructure:"type"`
	Title   string `mapstructure:"title"`
	Summary string `mapstructure:"summary"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// Load loads configuration from file and environment
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read config file if specified
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables, e.g. ASKSTREAM_CLIENT_TOKEN
	v.SetEnvPrefix("ASKSTREAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.allow_origins", []string{"*"})
	v.SetDefault("server.api_key", "")

	v.SetDefault("client.api_base", "http://localhost:8080")
	v.SetDefault("client.token", "demo")
	v.SetDefault("client.mode", "widget")
	v.SetDefault("client.namespace", "askstream")
	v.SetDefault("client.timeout", 0)

	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.path", "./data/session.db")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_hour", 100)
	v.SetDefault("rate_limit.burst", 10)

	v.SetDefault("responder.chunk_words", 3)
	v.SetDefault("responder.delay", 30*time.Millisecond)
	v.SetDefault("responder.fallback", "I could not find anything about that in the knowledge base.")
	v.SetDefault("responder.scripts", []map[string]any{
		{
			"keywords": []string{"refund", "return"},
			"answer":   "Refunds are available within 30 days of purchase [1]. Items must be unused and in their original packaging.",
			"sources": []map[string]any{
				{"title": "Refund policy", "url": "https://example.com/help/refunds", "snippet": "Refunds are accepted within 30 days."},
			},
			"steps": []map[string]any{
				{"type": "search", "title": "Searching documents"},
				{"type": "rank", "title": "Ranking results"},
			},
		},
	})

	v.SetDefault("database.path", "./data/askstream.db")
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case "sqlite", "memory", "none":
	default:
		return fmt.Errorf("%w: unknown storage driver %q", domain.ErrInvalidRequest, c.Storage.Driver)
	}
	switch c.Client.Mode {
	case "widget", "c":
	default:
		return fmt.Errorf("%w: unknown client mode %q", domain.ErrInvalidRequest, c.Client.Mode)
	}
	return nil
}

// Address returns the server address
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Site returns the configured site for token
func (c *Config) Site(token string) (domain.Site, bool) {
	for _, s := range c.Sites {
		if s.Token == token {
			return s, true
		}
	}
	return domain.Site{}, false
}
