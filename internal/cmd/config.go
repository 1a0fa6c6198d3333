package cmd

import (
	"fmt"
	"log/slog"

	"github.com/dionysius/venvpack/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
	Long:  `Commands for viewing and managing configuration.`,
}

// configShowCmd shows the current configuration
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Display the effective configuration with defaults applied. Without a
config file only the defaults are shown. The GitHub token is redacted.

Examples:
  venvpack config show              # Show parsed configuration in YAML format`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

func init() {
	configCmd.AddCommand(configShowCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return err
	}
	if cfg.File == "" {
		slog.Info("No config file found, showing defaults")
	} else {
		slog.Debug("Config loaded", "file", cfg.File)
	}

	output, err := yaml.Marshal(cfg.Redacted())
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	fmt.Fprint(cmd.OutOrStdout(), string(output))
	return nil
}
