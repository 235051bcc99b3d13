package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bulklist/bulklist/internal/config"
	"github.com/bulklist/bulklist/internal/logging"
)

// setupLogging configures logging from the loaded config and CLI flags,
// then rebuilds the command context so it carries the logger, a trace ID,
// and the configuration for the command's RunE.
func setupLogging(cmd *cobra.Command, cfg *config.Config) *logging.Result {
	loggingCfg := logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
	}

	debug, _ := cmd.Flags().GetBool("debug")
	if debug {
		loggingCfg.Level = "debug"
		loggingCfg.Format = "console"
		loggingCfg.File = ""
	}
	if format, _ := cmd.Flags().GetString("log-format"); format != "" {
		loggingCfg.Format = format
	}

	// Ensure the log directory exists after all overrides have been applied.
	if loggingCfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(loggingCfg.File), 0700); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: could not create log directory: %v\n", err)
		}
	}

	result := logging.NewLogger(loggingCfg)
	logger = logging.ComponentLogger(result.Logger, "cli")

	if result.FallbackReason != "" {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: logging to file unavailable: %s\n", result.FallbackReason)
	}

	ctx := cmd.Context()
	traceID := logging.GetOrGenerateTraceID(ctx)
	ctx = logging.ContextWithTraceID(ctx, traceID)
	ctx = logger.WithContext(ctx)
	ctx = contextWithConfig(ctx, cfg)
	cmd.SetContext(ctx)

	logger.Info().Ctx(ctx).Str("command", cmd.Name()).Msg("command started")

	return &result
}

// cleanupLogging closes the log file handle, if one was opened.
func cleanupLogging(result *logging.Result) error {
	if result != nil {
		return result.Close()
	}
	return nil
}
