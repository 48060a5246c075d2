// Package config provides configuration loading and validation for the studio.
// Values come from the environment (optionally seeded from .env) and may be
// overridden by a JSON file; the result is validated once at startup.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Models maps each agent role to a model id.
type Models struct {
	Analyst  string `json:"analyst,omitempty"`
	Director string `json:"director,omitempty"`
	Producer string `json:"producer,omitempty"`
	Inpaint  string `json:"inpaint,omitempty"`
	Judge    string `json:"judge,omitempty"`
}

// Duration is a time.Duration that reads and writes strings such as "120s".
type Duration time.Duration

// UnmarshalJSON accepts a duration string or a number of seconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var seconds float64
	if err := json.Unmarshal(data, &seconds); err != nil {
		return fmt.Errorf("invalid duration %s", string(data))
	}
	*d = Duration(time.Duration(seconds * float64(time.Second)))
	return nil
}

// MarshalJSON writes the duration as a string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Config is the process configuration. It is read-only after Load.
type Config struct {
	APIKey string `json:"api_key,omitempty"`
	Models Models `json:"models"`

	// Acceptance and retry budget
	MinAcceptedScore int `json:"min_accepted_score"`
	MaxRetries       int `json:"max_retries"`

	// Paths
	InputDir  string `json:"input_dir,omitempty"`
	OutputDir string `json:"output_dir,omitempty"`

	// Generation
	CallTimeout       Duration `json:"call_timeout"`
	ImageWidth        int      `json:"image_width"`
	ImageHeight       int      `json:"image_height"`
	MaxImageDimension int      `json:"max_image_dimension"`
	DirectorRevision  string   `json:"director_revision,omitempty"`

	// Batch and service
	BatchConcurrency int   `json:"batch_concurrency"`
	MaxUploadBytes   int64 `json:"max_upload_bytes"`
	Port             int   `json:"port"`

	// Optional persistence
	DatabaseURL  string `json:"database_url,omitempty"`
	OutputBucket string `json:"output_bucket,omitempty"`
	OutputPrefix string `json:"output_prefix,omitempty"`

	// Logging
	LogLevel  string `json:"log_level,omitempty"`
	LogFormat string `json:"log_format,omitempty"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Models: Models{
			Analyst:  "gemini-2.5-pro",
			Director: "gemini-2.5-pro",
			Producer: "imagen-4.0-generate-001",
			Inpaint:  "gemini-2.5-flash-image",
			Judge:    "gemini-2.5-pro",
		},
		MinAcceptedScore:  90,
		MaxRetries:        3,
		InputDir:          filepath.Join("data", "input"),
		OutputDir:         filepath.Join("data", "output"),
		CallTimeout:       Duration(120 * time.Second),
		ImageWidth:        1024,
		ImageHeight:       1024,
		MaxImageDimension: 2048,
		DirectorRevision:  "notes",
		BatchConcurrency:  1,
		MaxUploadBytes:    20 << 20,
		Port:              8080,
		LogLevel:          "info",
		LogFormat:         "console",
	}
}

// FromEnv returns the defaults overridden by environment variables.
func FromEnv() *Config {
	d := Defaults()
	return &Config{
		APIKey: EnvString("GEMINI_API_KEY", ""),
		Models: Models{
			Analyst:  EnvString("ANALYST_MODEL", d.Models.Analyst),
			Director: EnvString("ART_DIRECTOR_MODEL", d.Models.Director),
			Producer: EnvString("PRODUCER_MODEL", d.Models.Producer),
			Inpaint:  EnvString("INPAINT_MODEL", d.Models.Inpaint),
			Judge:    EnvString("JUDGE_MODEL", d.Models.Judge),
		},
		MinAcceptedScore:  EnvInt("MIN_ACCEPTED_SCORE", d.MinAcceptedScore),
		MaxRetries:        EnvInt("MAX_RETRIES", d.MaxRetries),
		InputDir:          EnvString("INPUT_DIR", d.InputDir),
		OutputDir:         EnvString("OUTPUT_DIR", d.OutputDir),
		CallTimeout:       Duration(EnvDuration("CALL_TIMEOUT", time.Duration(d.CallTimeout))),
		ImageWidth:        EnvInt("IMAGE_WIDTH", d.ImageWidth),
		ImageHeight:       EnvInt("IMAGE_HEIGHT", d.ImageHeight),
		MaxImageDimension: EnvInt("MAX_IMAGE_DIMENSION", d.MaxImageDimension),
		DirectorRevision:  EnvString("DIRECTOR_REVISION", d.DirectorRevision),
		BatchConcurrency:  EnvInt("BATCH_CONCURRENCY", d.BatchConcurrency),
		MaxUploadBytes:    int64(EnvInt("MAX_UPLOAD_BYTES", int(d.MaxUploadBytes))),
		Port:              EnvInt("PORT", d.Port),
		DatabaseURL:       EnvString("DATABASE_URL", ""),
		OutputBucket:      EnvString("OUTPUT_BUCKET", ""),
		OutputPrefix:      EnvString("OUTPUT_PREFIX", ""),
		LogLevel:          EnvString("LOG_LEVEL", d.LogLevel),
		LogFormat:         EnvString("LOG_FORMAT", d.LogFormat),
	}
}

// Load builds the configuration from the environment and, when path is not
// empty, overlays the JSON file at path. Keys present in the file win.
func Load(path string) (*Config, error) {
	cfg := FromEnv()
	if path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) overlayFile(path string) error {
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config JSON: %w", err)
	}
	return nil
}

// Validate checks that the configuration has valid values.
// The API key is not checked here; commands that call the backend require it.
func (c *Config) Validate() error {
	if c.MinAcceptedScore < 0 || c.MinAcceptedScore > 100 {
		return fmt.Errorf("config error: 'min_accepted_score' must be between 0 and 100")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("config error: 'max_retries' must be non-negative")
	}
	if c.CallTimeout <= 0 {
		return fmt.Errorf("config error: 'call_timeout' must be positive")
	}
	if c.ImageWidth <= 0 || c.ImageHeight <= 0 {
		return fmt.Errorf("config error: 'image_width' and 'image_height' must be positive")
	}
	if c.MaxImageDimension <= 0 {
		return fmt.Errorf("config error: 'max_image_dimension' must be positive")
	}
	if c.BatchConcurrency < 1 {
		return fmt.Errorf("config error: 'batch_concurrency' must be at least 1")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("config error: 'max_upload_bytes' must be positive")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be a valid TCP port")
	}
	switch strings.ToLower(c.DirectorRevision) {
	case "notes", "model":
	default:
		return fmt.Errorf("config error: 'director_revision' must be notes or model")
	}
	switch strings.ToLower(c.LogFormat) {
	case "console", "json":
	default:
		return fmt.Errorf("config error: 'log_format' must be console or json")
	}
	if c.InputDir == "" || c.OutputDir == "" {
		return fmt.Errorf("config error: 'input_dir' and 'output_dir' are required")
	}
	return nil
}

// RequireAPIKey returns an error when no backend credential is configured.
func (c *Config) RequireAPIKey() error {
	if c.APIKey == "" {
		return fmt.Errorf("config error: GEMINI_API_KEY is required")
	}
	return nil
}

// Timeout returns CallTimeout as a time.Duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.CallTimeout)
}
