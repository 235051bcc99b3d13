package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bulklist/bulklist/internal/config"
)

// NewConfigInitCmd creates the config init command, which writes a starter
// configuration file with the default values.
func NewConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with default values",
		Long: `Creates a new configuration file populated with the defaults, at the
default location ($BULKLIST_HOME/config.yaml or ~/.bulklist/config.yaml)
unless --config names another path.`,
		// The file being initialized usually does not exist yet, so the root
		// command must not refuse to start when --config points at it.
		Annotations: map[string]string{annotationToleratesMissingConfig: "true"},
		Example: `  # Create the default configuration file
  bulklist config init

  # Re-create it, overwriting what is there
  bulklist config init --force

  # Create a configuration file somewhere else
  bulklist config init --config ./bulklist.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInit(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing configuration file")

	return cmd
}

func runConfigInit(cmd *cobra.Command, force bool) error {
	path, err := configTargetPath(cmd)
	if err != nil {
		return err
	}

	if !force {
		if _, statErr := os.Stat(path); statErr == nil {
			return errors.New("configuration file already exists, use --force to overwrite")
		} else if !os.IsNotExist(statErr) {
			return fmt.Errorf("cannot access config path %s: %w", path, statErr)
		}
	}

	if err := config.Save(config.Default(), path); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	cmd.Printf("Configuration initialized at %s\n", path)
	return nil
}

// configTargetPath resolves where config init and validate operate: the
// --config flag when given, the default location otherwise.
func configTargetPath(cmd *cobra.Command) (string, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return path, nil
	}
	return config.DefaultPath()
}
