package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the triage service
type Config struct {
	Backend struct {
		// Base URL of the collaborator backend hosting the analyze,
		// enrichment and report generation endpoints.
		BaseURL string `mapstructure:"base_url"`
		// AuthToken is attached as an opaque bearer token to every
		// collaborator call. Empty disables the header.
		AuthToken string        `mapstructure:"auth_token"`
		Timeout   time.Duration `mapstructure:"timeout"`
	} `mapstructure:"backend"`

	API struct {
		Port           int      `mapstructure:"port"`
		Host           string   `mapstructure:"host"`
		TLS            bool     `mapstructure:"tls"`
		CertFile       string   `mapstructure:"cert_file"`
		KeyFile        string   `mapstructure:"key_file"`
		AllowedOrigins []string `mapstructure:"allowed_origins"`
		RateLimit      struct {
			RequestsPerSecond int `mapstructure:"requests_per_second"`
			Burst             int `mapstructure:"burst"`
		} `mapstructure:"rate_limit"`
	} `mapstructure:"api"`

	Cache struct {
		Size int           `mapstructure:"size"`
		TTL  time.Duration `mapstructure:"ttl"`
	} `mapstructure:"cache"`

	Logging struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"logging"`
}

// Collaborator endpoint paths on the backend
const (
	AnalyzePath = "/analyze-urls"
	EnrichPath  = "/enrich-iocs"
	ReportPath  = "/generate-report-docx"
)

// AnalyzeURL returns the full analyze endpoint URL
func (c *Config) AnalyzeURL() string { return c.Backend.BaseURL + AnalyzePath }

// EnrichURL returns the full enrichment endpoint URL
func (c *Config) EnrichURL() string { return c.Backend.BaseURL + EnrichPath }

// ReportURL returns the full report generation endpoint URL
func (c *Config) ReportURL() string { return c.Backend.BaseURL + ReportPath }

func setDefaults() {
	viper.SetDefault("backend.base_url", "http://localhost:8888")
	viper.SetDefault("backend.auth_token", "")
	viper.SetDefault("backend.timeout", 60*time.Second)

	viper.SetDefault("api.port", 8081)
	viper.SetDefault("api.host", "0.0.0.0")
	viper.SetDefault("api.tls", false)
	viper.SetDefault("api.cert_file", "server.crt")
	viper.SetDefault("api.key_file", "server.key")
	viper.SetDefault("api.allowed_origins", []string{"http://localhost:3000"})
	viper.SetDefault("api.rate_limit.requests_per_second", 10)
	viper.SetDefault("api.rate_limit.burst", 20)

	viper.SetDefault("cache.size", 512)
	viper.SetDefault("cache.ttl", 15*time.Minute)

	viper.SetDefault("logging.level", "info")
}

func loadFromEnv() {
	viper.SetEnvPrefix("TRIAGE")
	viper.AutomaticEnv()

	// Explicit bindings for the settings most often set per deployment
	_ = viper.BindEnv("backend.base_url", "TRIAGE_BACKEND_URL")
	_ = viper.BindEnv("backend.auth_token", "TRIAGE_AUTH_TOKEN")
	_ = viper.BindEnv("api.port", "TRIAGE_API_PORT")
	_ = viper.BindEnv("logging.level", "TRIAGE_LOG_LEVEL")
}

// LoadConfig loads configuration from config.yaml, environment variables and
// defaults, in ascending precedence of defaults < file < env.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()
	loadFromEnv()

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, will use defaults and env vars
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func validate(config *Config) error {
	parsed, err := url.Parse(config.Backend.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("backend.base_url must be an absolute URL: %q", config.Backend.BaseURL)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("backend.base_url must use http or https, got %q", parsed.Scheme)
	}

	if config.API.Port < 1 || config.API.Port > 65535 {
		return fmt.Errorf("api.port out of range: %d", config.API.Port)
	}
	if config.Backend.Timeout <= 0 {
		return fmt.Errorf("backend.timeout must be positive")
	}
	if config.Cache.Size < 1 {
		return fmt.Errorf("cache.size must be at least 1")
	}
	if config.API.RateLimit.RequestsPerSecond < 1 {
		return fmt.Errorf("api.rate_limit.requests_per_second must be at least 1")
	}

	switch config.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}

	return nil
}
