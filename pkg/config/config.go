package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

var (
	once    sync.Once
	initErr error
)

// Init initializes the configuration system
// This should be called once at application startup
func Init() error {
	once.Do(func() {
		// Set default values
		setDefaults()

		// Set up environment variable reading for overrides
		viper.SetEnvPrefix("PODBRIEF")
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		viper.AutomaticEnv()

		// Load config from fixed location (cleaned for safety)
		configPath := filepath.Clean("./config/settings.yaml")
		viper.SetConfigFile(configPath)

		// Try to read the config file
		if err := viper.ReadInConfig(); err != nil {
			// If the config file doesn't exist, just use defaults and env vars
			if !os.IsNotExist(err) {
				initErr = fmt.Errorf("error reading config file %s: %w", configPath, err)
				return
			}
		}

		// Validate the configuration
		if err := validate(); err != nil {
			initErr = fmt.Errorf("invalid configuration: %w", err)
		}
	})

	return initErr
}

// GetConfig returns the current configuration as a struct
// Init() must be called before using this
func GetConfig() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &config, nil
}

// Get returns a config value by key using Viper directly
func Get(key string) any {
	return viper.Get(key)
}

// GetString returns a string config value
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration returns a time.Duration config value
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

// validate validates the configuration using Viper values
func validate() error {
	port := viper.GetInt("server.port")
	if port <= 0 || port > 65535 {
		return fmt.Errorf("invalid server port: %d", port)
	}

	if viper.GetString("database.path") == "" {
		fmt.Println("Warning: No database path configured")
	}

	if viper.GetString("transcriber.base_url") == "" {
		return fmt.Errorf("transcriber.base_url is required")
	}

	if err := validateAPIKeys(); err != nil {
		return err
	}

	// Auto-correct nonsensical gating and polling values
	if viper.GetInt("gating.max_client_chars") <= 0 {
		viper.Set("gating.max_client_chars", 1200)
	}
	if viper.GetDuration("transcriber.poll_interval") <= 0 {
		viper.Set("transcriber.poll_interval", 3*time.Second)
	}
	if viper.GetDuration("transcriber.job_timeout") <= 0 {
		viper.Set("transcriber.job_timeout", 15*time.Minute)
	}

	return nil
}

// validateAPIKeys validates that API keys are not using placeholder values
func validateAPIKeys() error {
	env := viper.GetString("environment")
	isProduction := env == "production" || env == "prod"

	placeholders := []string{
		"YOUR_KEY_HERE",
		"YOUR_API_KEY",
		"changeme",
		"CHANGEME",
		"",
	}

	summarizerKey := viper.GetString("summarizer.api_key")
	for _, placeholder := range placeholders {
		if summarizerKey == placeholder {
			if isProduction {
				return fmt.Errorf("invalid summarizer API key: cannot use placeholder values in production")
			}
			fmt.Println("Warning: summarizer API key is using a placeholder value")
			break
		}
	}

	return nil
}

// Validate validates a Config struct (for testing)
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Transcriber.BaseURL == "" {
		return fmt.Errorf("transcriber base URL is required")
	}

	if c.Gating.MaxClientChars <= 0 {
		c.Gating.MaxClientChars = 1200
	}
	if c.Transcriber.PollInterval <= 0 {
		c.Transcriber.PollInterval = 3 * time.Second
	}
	if c.Transcriber.JobTimeout <= 0 {
		c.Transcriber.JobTimeout = 15 * time.Minute
	}

	return nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Environment defaults
	viper.SetDefault("environment", "development")

	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 0*time.Second) // streaming responses manage their own deadlines
	viper.SetDefault("server.shutdown_timeout", 10*time.Second)
	viper.SetDefault("server.max_header_bytes", 1048576)
	viper.SetDefault("server.max_body_bytes", 10485760)

	// Database defaults
	viper.SetDefault("database.path", "./data/podbrief.db")
	viper.SetDefault("database.max_connections", 10)
	viper.SetDefault("database.max_idle_connections", 5)
	viper.SetDefault("database.connection_max_lifetime", 30*time.Minute)
	viper.SetDefault("database.enable_wal", true)
	viper.SetDefault("database.enable_foreign_keys", true)
	viper.SetDefault("database.log_queries", false)

	// Transcriber defaults
	viper.SetDefault("transcriber.base_url", "http://localhost:9090")
	viper.SetDefault("transcriber.timeout", 30*time.Second)
	viper.SetDefault("transcriber.poll_interval", 3*time.Second)
	viper.SetDefault("transcriber.job_timeout", 15*time.Minute)
	viper.SetDefault("transcriber.user_agent", "PodBriefAPI/1.0")

	// Summarizer defaults
	viper.SetDefault("summarizer.base_url", "https://api.openai.com/v1")
	viper.SetDefault("summarizer.model", "gpt-4o-mini")
	viper.SetDefault("summarizer.max_tokens", 2048)
	viper.SetDefault("summarizer.temperature", 0.3)
	viper.SetDefault("summarizer.timeout", 5*time.Minute)

	// Gating defaults
	viper.SetDefault("gating.max_client_chars", 1200)

	// Feed resolution defaults
	viper.SetDefault("feeds.timeout", 15*time.Second)
	viper.SetDefault("feeds.user_agent", "PodBriefAPI/1.0")

	// Rate limiting defaults
	viper.SetDefault("rate_limiting.enabled", true)
	viper.SetDefault("rate_limiting.endpoints", map[string]int{
		"generate": 10,
		"read":     120,
		"default":  60,
	})

	// Security defaults
	viper.SetDefault("security.enable_cors", true)
	viper.SetDefault("security.cors_origins", []string{"*"})
	viper.SetDefault("security.cors_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	viper.SetDefault("security.cors_headers", []string{"Content-Type", "Authorization", "X-Session-Tier"})
	viper.SetDefault("security.enable_request_id", true)
	viper.SetDefault("security.enable_recovery", true)
}
