package config

import (
	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration.
type Config struct {
	// Logging
	LogLevel  string `env:"TPE_LOG_LEVEL"  envDefault:"warn"`
	LogFormat string `env:"TPE_LOG_FORMAT" envDefault:"console"`

	// Report
	ReportFormat string `env:"TPE_REPORT_FORMAT" envDefault:"csv"`

	// Metrics textfile (leave empty to disable)
	MetricsFile string `env:"TPE_METRICS_FILE" envDefault:""`

	// Processing
	Strict bool `env:"TPE_STRICT" envDefault:"false"`
	Verify bool `env:"TPE_VERIFY" envDefault:"false"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	err := env.Parse(cfg)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}
