package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/bulklist/bulklist/internal/batch"
)

// Environment variables recognized as configuration overrides. They apply
// after the file, so they win over it; command-line flags win over both.
const (
	EnvServiceURL  = "BULKLIST_SERVICE_URL"
	EnvList        = "BULKLIST_LIST"
	EnvBatchSize   = "BULKLIST_BATCH_SIZE"
	EnvConcurrency = "BULKLIST_CONCURRENCY"
	EnvOnError     = "BULKLIST_ON_ERROR"
	EnvLogLevel    = "BULKLIST_LOG_LEVEL"
	EnvLogFormat   = "BULKLIST_LOG_FORMAT"

	// EnvHome relocates the bulklist configuration directory.
	EnvHome = "BULKLIST_HOME"

	configFileName = "config.yaml"
)

// GetConfigDir returns the bulklist configuration directory, honoring the
// BULKLIST_HOME override.
func GetConfigDir() (string, error) {
	if home := os.Getenv(EnvHome); home != "" {
		return home, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".bulklist"), nil
}

// DefaultPath returns the path of the default configuration file. The file
// does not have to exist.
func DefaultPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// Load builds the effective configuration: defaults, overlaid by the YAML
// file at path when it exists, overlaid by BULKLIST_* environment variables.
// An empty path means the default location; a missing file at the default
// location is not an error, but an explicitly named file must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		defaultPath, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = defaultPath
	}

	if err := ShallowMergeYAML(cfg, path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

// applyEnv overlays BULKLIST_* environment variables onto cfg. Numeric
// variables that fail to parse are ignored; validation happens later, where
// the values are consumed.
func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvServiceURL); v != "" {
		cfg.Service.BaseURL = v
	}
	if v := os.Getenv(EnvList); v != "" {
		cfg.Service.List = v
	}
	if v := os.Getenv(EnvBatchSize); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Dispatch.BatchSize = n
		}
	}
	if v := os.Getenv(EnvConcurrency); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Dispatch.Concurrency = n
		}
	}
	if v := os.Getenv(EnvOnError); v != "" {
		if d, err := batch.ParseDirective(v); err == nil {
			cfg.Dispatch.OnError = string(d)
		}
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		cfg.Logging.Format = v
	}
}
