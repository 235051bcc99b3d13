package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bulklist/bulklist/internal/batch"
	"github.com/bulklist/bulklist/internal/config"
)

// writeConfig is a test helper that writes YAML content to a temp file and
// returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := config.Default()

	assert.Equal(t, config.DefaultTimeoutSeconds, cfg.Service.TimeoutSeconds)
	assert.Equal(t, batch.DefaultBatchSize, cfg.Dispatch.BatchSize)
	assert.Equal(t, batch.DefaultConcurrency, cfg.Dispatch.Concurrency)
	assert.Equal(t, string(batch.Continue), cfg.Dispatch.OnError)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)

	assert.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{
			name:   "DefaultsAreValid",
			mutate: func(*config.Config) {},
		},
		{
			name:    "NegativeTimeout",
			mutate:  func(c *config.Config) { c.Service.TimeoutSeconds = -1 },
			wantErr: "service:",
		},
		{
			name:    "NegativeRetries",
			mutate:  func(c *config.Config) { c.Service.Retries = -1 },
			wantErr: "service:",
		},
		{
			name:    "BatchSizeTooSmall",
			mutate:  func(c *config.Config) { c.Dispatch.BatchSize = 0 },
			wantErr: "batch size",
		},
		{
			name:    "BatchSizeTooLarge",
			mutate:  func(c *config.Config) { c.Dispatch.BatchSize = 1001 },
			wantErr: "batch size",
		},
		{
			name:    "ZeroConcurrency",
			mutate:  func(c *config.Config) { c.Dispatch.Concurrency = 0 },
			wantErr: "concurrency",
		},
		{
			name:    "UnknownDirective",
			mutate:  func(c *config.Config) { c.Dispatch.OnError = "halt" },
			wantErr: "error directive",
		},
		{
			name:    "UnknownLogFormat",
			mutate:  func(c *config.Config) { c.Logging.Format = "xml" },
			wantErr: "logging:",
		},
		{
			name:    "UnknownLogLevel",
			mutate:  func(c *config.Config) { c.Logging.Level = "chatty" },
			wantErr: "logging:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("MissingDefaultFileYieldsDefaults", func(t *testing.T) {
		t.Setenv(config.EnvHome, t.TempDir())

		cfg, err := config.Load("")
		require.NoError(t, err)
		assert.Equal(t, batch.DefaultBatchSize, cfg.Dispatch.BatchSize)
	})

	t.Run("ReadsDefaultLocation", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv(config.EnvHome, home)
		require.NoError(t, os.WriteFile(
			filepath.Join(home, "config.yaml"),
			[]byte("dispatch:\n  batch_size: 50\n  concurrency: 3\n  on_error: continue\n"),
			0600,
		))

		cfg, err := config.Load("")
		require.NoError(t, err)
		assert.Equal(t, 50, cfg.Dispatch.BatchSize)
		assert.Equal(t, 3, cfg.Dispatch.Concurrency)
	})

	t.Run("ExplicitMissingFileFails", func(t *testing.T) {
		_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reading config file")
	})

	t.Run("EnvOverridesFile", func(t *testing.T) {
		path := writeConfig(t, `
service:
  base_url: https://file.example.com
  list: from-file
dispatch:
  batch_size: 50
  concurrency: 3
  on_error: continue
`)
		t.Setenv(config.EnvServiceURL, "https://env.example.com")
		t.Setenv(config.EnvBatchSize, "75")
		t.Setenv(config.EnvOnError, "return")
		t.Setenv(config.EnvLogLevel, "debug")

		cfg, err := config.Load(path)
		require.NoError(t, err)
		assert.Equal(t, "https://env.example.com", cfg.Service.BaseURL)
		assert.Equal(t, "from-file", cfg.Service.List)
		assert.Equal(t, 75, cfg.Dispatch.BatchSize)
		assert.Equal(t, "return", cfg.Dispatch.OnError)
		assert.Equal(t, "debug", cfg.Logging.Level)
	})

	t.Run("UnparsableEnvNumbersIgnored", func(t *testing.T) {
		t.Setenv(config.EnvHome, t.TempDir())
		t.Setenv(config.EnvBatchSize, "lots")
		t.Setenv(config.EnvConcurrency, "2.5")

		cfg, err := config.Load("")
		require.NoError(t, err)
		assert.Equal(t, batch.DefaultBatchSize, cfg.Dispatch.BatchSize)
		assert.Equal(t, batch.DefaultConcurrency, cfg.Dispatch.Concurrency)
	})

	t.Run("UnknownEnvDirectiveIgnored", func(t *testing.T) {
		t.Setenv(config.EnvHome, t.TempDir())
		t.Setenv(config.EnvOnError, "explode")

		cfg, err := config.Load("")
		require.NoError(t, err)
		assert.Equal(t, string(batch.Continue), cfg.Dispatch.OnError)
	})
}

func TestDefaultPath(t *testing.T) {
	t.Setenv(config.EnvHome, "/opt/bulklist-home")

	path, err := config.DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/opt/bulklist-home", "config.yaml"), path)
}
