package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bulklist/bulklist/internal/config"
)

// NewConfigValidateCmd creates the config validate command, which checks the
// effective configuration for values the other commands would reject.
func NewConfigValidateCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		Long: `Validates the effective configuration: the file (default location or
--config), with BULKLIST_* environment overrides applied. This checks the
service section, the dispatch bounds (batch size, concurrency, error
directive), and the logging settings.`,
		Example: `  # Validate the current configuration
  bulklist config validate

  # Validate and show the effective values
  bulklist config validate --verbose`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigValidate(cmd, verbose)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show the effective configuration values")

	return cmd
}

func runConfigValidate(cmd *cobra.Command, verbose bool) error {
	cfg := configFromContext(cmd.Context())

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	cmd.Println("Configuration is valid")

	if verbose {
		printConfigDetails(cmd, cfg)
	}

	return nil
}

// printConfigDetails prints the effective configuration values.
func printConfigDetails(cmd *cobra.Command, cfg *config.Config) {
	cmd.Println()
	cmd.Println("Effective configuration:")
	cmd.Printf("  Service URL: %s\n", orUnset(cfg.Service.BaseURL))
	cmd.Printf("  List: %s\n", orUnset(cfg.Service.List))
	cmd.Printf("  Timeout: %ds\n", cfg.Service.TimeoutSeconds)
	cmd.Printf("  Retries: %d\n", cfg.Service.Retries)
	cmd.Printf("  Batch size: %d\n", cfg.Dispatch.BatchSize)
	cmd.Printf("  Concurrency: %d\n", cfg.Dispatch.Concurrency)
	cmd.Printf("  On error: %s\n", cfg.Dispatch.OnError)
	cmd.Printf("  Log level: %s\n", cfg.Logging.Level)
	cmd.Printf("  Log format: %s\n", cfg.Logging.Format)
	if cfg.Logging.File != "" {
		cmd.Printf("  Log file: %s\n", cfg.Logging.File)
	}
}

func orUnset(s string) string {
	if s == "" {
		return "(unset)"
	}
	return s
}
