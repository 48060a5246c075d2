package ratelimit

import (
	"time"

	"github.com/jonathan/luxury-studio/internal/config"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // exact path, or a prefix when it ends in "/"
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window; 0 is unlimited
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// LoadConfig loads rate limiting configuration from RATE_LIMIT_* environment variables.
func LoadConfig() *Config {
	if !config.EnvBool("RATE_LIMIT_ENABLED", true) {
		return &Config{Enabled: false}
	}
	return &Config{
		Enabled:         true,
		DefaultLimit:    config.EnvInt("RATE_LIMIT_DEFAULT_LIMIT", 1000),
		DefaultWindow:   config.EnvDuration("RATE_LIMIT_DEFAULT_WINDOW", time.Minute),
		CleanupInterval: config.EnvDuration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		Whitelist:       config.EnvSet("RATE_LIMIT_WHITELIST"),
		Blacklist:       config.EnvSet("RATE_LIMIT_BLACKLIST"),
		EndpointConfigs: DefaultEndpointConfigs(),
	}
}

// DefaultEndpointConfigs returns the default endpoint-specific configurations.
// Processing endpoints run the full pipeline per file and get the strictest limits.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		{
			Path:   "/process/",
			Method: "POST",
			Limit:  config.EnvInt("RATE_LIMIT_PROCESS_LIMIT", 20),
			Window: config.EnvDuration("RATE_LIMIT_PROCESS_WINDOW", time.Hour),
			Burst:  config.EnvInt("RATE_LIMIT_PROCESS_BURST", 2),
		},
		{Path: "/results/", Method: "GET", Limit: 300, Window: time.Minute, Burst: 30},
	}
}
