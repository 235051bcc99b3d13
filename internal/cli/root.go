package cli

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/bulklist/bulklist/internal/config"
	"github.com/bulklist/bulklist/internal/logging"
)

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// logger is the package-level logger for CLI operations.
var logger zerolog.Logger //nolint:gochecknoglobals // Required for zerolog context integration

// annotationToleratesMissingConfig marks commands that must run even when
// --config names a file that does not exist yet, such as config init.
const annotationToleratesMissingConfig = "bulklist.toleratesMissingConfig"

// configKey carries the loaded configuration through the command context.
type configKey struct{}

func contextWithConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// configFromContext returns the configuration loaded by the root command's
// PersistentPreRunE, or the defaults when a command runs without it, as
// subcommand-level tests do.
func configFromContext(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return cfg
	}
	return config.Default()
}

// NewRootCmd creates the root Cobra command for the bulklist CLI.
// It wires up configuration loading, logging, tracing, and the apply, plan,
// and ping subcommands.
func NewRootCmd(ver string) *cobra.Command {
	var logResult *logging.Result

	cmd := &cobra.Command{
		Use:          "bulklist",
		Short:        "Batch dispatcher for list services",
		Long:         "bulklist: apply large documents of list operations as size-limited, concurrently dispatched batches",
		Version:      ver,
		Example:      rootCmdExample,
		SilenceUsage: true, // Don't show usage on application errors
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Best-effort .env load for local development; absence is normal.
			_ = godotenv.Load()

			configPath, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(configPath)
			if err != nil {
				if cmd.Annotations[annotationToleratesMissingConfig] != "true" {
					return err
				}
				cfg = config.Default()
			}

			result := setupLogging(cmd, cfg)
			logResult = result
			return nil
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return cleanupLogging(logResult)
		},
	}

	cmd.PersistentFlags().String("config", "", "config file (default $BULKLIST_HOME/config.yaml or ~/.bulklist/config.yaml)")
	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	cmd.PersistentFlags().String("log-format", "", `log format override: "console" or "json"`)
	cmd.AddCommand(NewApplyCmd(), NewPlanCmd(), NewPingCmd(), newConfigCmd())

	return cmd
}

// newConfigCmd creates the config command group with configuration subcommands.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Configuration management commands"}
	cmd.AddCommand(NewConfigInitCmd(), NewConfigValidateCmd())
	return cmd
}

const rootCmdExample = `  # Apply a document of operations to the configured list
  bulklist apply --input ops.yaml

  # Apply to an explicit service and list, 250 operations per batch
  bulklist apply --input ops.yaml --service https://lists.example.com --list tasks --batch-size 250

  # Pipe operations through stdin and get machine-readable output
  cat ops.json | bulklist apply --input - --output json

  # Preview how a document would be cut into batches, without touching the network
  bulklist plan --input ops.yaml

  # Check service identity and protocol compatibility
  bulklist ping --service https://lists.example.com`
