package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete export configuration
type Config struct {
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Export    ExportConfig    `yaml:"export" envconfig:"EXPORT"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Format      string `yaml:"format" envconfig:"FORMAT"`
	Output      string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// ExportConfig controls the on-disk layout of an export
type ExportConfig struct {
	// DirPrefix is prepended to the patient id to name the patient directory.
	// Empty means the bare id.
	DirPrefix string `yaml:"dir_prefix" envconfig:"DIR_PREFIX" validate:"excludesall=/\\"`
	// QualityScore selects where a quality score goes: append, file or omit
	QualityScore string `yaml:"quality_score" envconfig:"QUALITY_SCORE" validate:"oneof=append file omit"`
	// Workbook is an optional XLSX summary path
	Workbook string `yaml:"workbook" envconfig:"WORKBOOK"`
	// Progress prints progress lines to stdout
	Progress bool `yaml:"progress" envconfig:"PROGRESS"`
}

// TelemetryConfig contains tracing and metrics output configuration
type TelemetryConfig struct {
	ServiceName string  `yaml:"service_name" envconfig:"SERVICE_NAME" validate:"required"`
	Environment string  `yaml:"environment" envconfig:"ENVIRONMENT"`
	TraceFile   string  `yaml:"trace_file" envconfig:"TRACE_FILE"`
	MetricsFile string  `yaml:"metrics_file" envconfig:"METRICS_FILE"`
	SampleRatio float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" validate:"gte=0,lte=1"`
}

// TracingEnabled reports whether spans should be recorded
func (t TelemetryConfig) TracingEnabled() bool {
	return t.TraceFile != ""
}

// MetricsEnabled reports whether metrics should be written at shutdown
func (t TelemetryConfig) MetricsEnabled() bool {
	return t.MetricsFile != ""
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/export.log",
		},
		Export: ExportConfig{
			DirPrefix:    "",
			QualityScore: QualityScoreAppend,
			Progress:     true,
		},
		Telemetry: TelemetryConfig{
			ServiceName: AppName,
			Environment: "development",
			SampleRatio: 1.0,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// ICARE_* environment variables, in increasing order of precedence.
func Load(configFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Only variables that are set override; envconfig leaves other fields alone
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays YAML file values onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate normalizes and validates the configuration
func (c *Config) Validate() error {
	c.Logging.Level = strings.ToLower(c.Logging.Level)
	c.Logging.Output = strings.ToLower(c.Logging.Output)
	c.Export.QualityScore = strings.ToLower(c.Export.QualityScore)

	// JSON is the only supported log format
	c.Logging.Format = "json"

	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/export.log"
	}

	if err := validator.New().Struct(c); err != nil {
		return err
	}
	return nil
}
