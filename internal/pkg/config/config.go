package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"` // text or json

	RawLogDir       string `env:"RAW_LOG_DIR" envDefault:"/var/log/app/raw"`
	SanitizedLogDir string `env:"SANITIZED_LOG_DIR" envDefault:"/var/log/app/sanitized"`
	BackupOutputDir string `env:"BACKUP_OUTPUT_DIR" envDefault:"/backups"`
	BackupEncoding  string `env:"BACKUP_ENCODING" envDefault:"base64"`
	ErrorLogPath    string `env:"ERROR_LOG_PATH" envDefault:"/var/log/app/processor_errors.log"`

	SanitizeWorkers   int   `env:"SANITIZE_WORKERS" envDefault:"4"`
	SanitizeRecursive bool  `env:"SANITIZE_RECURSIVE" envDefault:"true"`
	MaxLineBytes      int64 `env:"MAX_LINE_BYTES" envDefault:"1048576"` // 1MB

	// YAML file with extra detectors; see pii.LoadDetectorFile.
	DetectorsFile string `env:"DETECTORS_FILE"`

	MetricsTextfilePath string `env:"METRICS_TEXTFILE_PATH"`

	// Optional sinks. Empty disables them.
	RedisAddr       string `env:"REDIS_ADDR"`
	RunEventsStream string `env:"RUN_EVENTS_STREAM" envDefault:"logvault_runs"`
	PostgresURL     string `env:"POSTGRES_URL"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values env tags cannot express.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.RawLogDir) == "" {
		return fmt.Errorf("RAW_LOG_DIR must not be empty")
	}
	if strings.TrimSpace(c.SanitizedLogDir) == "" {
		return fmt.Errorf("SANITIZED_LOG_DIR must not be empty")
	}
	if strings.TrimSpace(c.BackupOutputDir) == "" {
		return fmt.Errorf("BACKUP_OUTPUT_DIR must not be empty")
	}
	if c.SanitizeWorkers < 1 {
		return fmt.Errorf("SANITIZE_WORKERS must be at least 1, got %d", c.SanitizeWorkers)
	}
	if c.MaxLineBytes < 1 {
		return fmt.Errorf("MAX_LINE_BYTES must be positive, got %d", c.MaxLineBytes)
	}
	return nil
}
