// Package config loads and validates bulklist's configuration: where the
// list service lives, how batches are cut and dispatched, and how the tool
// logs. Values come from defaults, an optional YAML file, and BULKLIST_*
// environment overrides, in that order.
package config

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/bulklist/bulklist/internal/batch"
)

// Configuration defaults.
const (
	// DefaultTimeoutSeconds bounds one service round trip.
	DefaultTimeoutSeconds = 30

	// DefaultLogLevel is the log level used when none is configured.
	DefaultLogLevel = "info"

	// DefaultLogFormat is the log format used when none is configured.
	DefaultLogFormat = "console"
)

// Common configuration errors.
var (
	ErrTimeoutNegative     = errors.New("service timeout_seconds must not be negative")
	ErrRetriesNegative     = errors.New("service retries must not be negative")
	ErrConcurrencyTooSmall = errors.New("dispatch concurrency must be at least 1")
	ErrLogFormatUnknown    = errors.New(`logging format must be "console" or "json"`)
	ErrLogLevelUnknown     = errors.New("logging level is not a known level")
)

// Config is bulklist's full configuration.
type Config struct {
	Service  ServiceConfig  `yaml:"service"  json:"service"`
	Dispatch DispatchConfig `yaml:"dispatch" json:"dispatch"`
	Logging  LoggingConfig  `yaml:"logging"  json:"logging"`
}

// ServiceConfig locates the list service and one list on it.
type ServiceConfig struct {
	BaseURL        string `yaml:"base_url"             json:"base_url"`
	List           string `yaml:"list"                 json:"list"`
	TimeoutSeconds int    `yaml:"timeout_seconds"      json:"timeout_seconds"`
	Retries        int    `yaml:"retries"              json:"retries"`
	UserAgent      string `yaml:"user_agent,omitempty" json:"user_agent,omitempty"`
}

// Validate checks the service section. The base URL and list name are
// allowed to be empty here; commands that need them supply or reject them.
func (c ServiceConfig) Validate() error {
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("%w: got %d", ErrTimeoutNegative, c.TimeoutSeconds)
	}
	if c.Retries < 0 {
		return fmt.Errorf("%w: got %d", ErrRetriesNegative, c.Retries)
	}
	return nil
}

// DispatchConfig shapes how the operation queue is cut into batches and how
// many batches may be in flight at once.
type DispatchConfig struct {
	BatchSize   int    `yaml:"batch_size"  json:"batch_size"`
	Concurrency int    `yaml:"concurrency" json:"concurrency"`
	OnError     string `yaml:"on_error"    json:"on_error"`
}

// Validate checks the dispatch section against the batching bounds.
func (c DispatchConfig) Validate() error {
	if c.BatchSize < batch.MinBatchSize || c.BatchSize > batch.MaxBatchSize {
		return fmt.Errorf("%w: got %d", batch.ErrInvalidBatchSize, c.BatchSize)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("%w: got %d", ErrConcurrencyTooSmall, c.Concurrency)
	}
	if _, err := batch.ParseDirective(c.OnError); err != nil {
		return err
	}
	return nil
}

// LoggingConfig controls log verbosity and destination.
type LoggingConfig struct {
	Level  string `yaml:"level"          json:"level"`
	Format string `yaml:"format"         json:"format"`
	File   string `yaml:"file,omitempty" json:"file,omitempty"`
}

// Validate checks the logging section.
func (c LoggingConfig) Validate() error {
	switch c.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("%w: got %q", ErrLogFormatUnknown, c.Format)
	}
	if c.Level != "" {
		if _, err := zerolog.ParseLevel(c.Level); err != nil {
			return fmt.Errorf("%w: got %q", ErrLogLevelUnknown, c.Level)
		}
	}
	return nil
}

// Default returns the configuration used when no file and no environment
// overrides are present.
func Default() *Config {
	return &Config{
		Service: ServiceConfig{
			TimeoutSeconds: DefaultTimeoutSeconds,
		},
		Dispatch: DispatchConfig{
			BatchSize:   batch.DefaultBatchSize,
			Concurrency: batch.DefaultConcurrency,
			OnError:     string(batch.Continue),
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// Validate checks every section and names the failing one.
func (c *Config) Validate() error {
	if err := c.Service.Validate(); err != nil {
		return fmt.Errorf("service: %w", err)
	}
	if err := c.Dispatch.Validate(); err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}
