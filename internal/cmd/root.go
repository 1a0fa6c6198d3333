package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/dionysius/venvpack/internal/log"
	"github.com/spf13/cobra"
)

var (
	cfgFile    string
	verbose    bool
	realStdout *os.File // Real stdout saved before redirection
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "venvpack",
	Short: "Version handling for packaged Python environments",
	Long: `venvpack parses, converts, orders and transforms version strings of
Debian, SemVer, PEP 440 and custom regex formats.

It resolves the version a package build should carry from a configured
source and checks it against the versions an APT archive already publishes.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Save the real stdout before redirecting
		realStdout = os.Stdout

		// Redirect os.Stdout to discard to suppress unwanted library output (e.g., aptly's fmt.Printf)
		os.Stdout, _ = os.Open(os.DevNull)

		// Configure logging based on verbose flag
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		// Logs go to stderr so results on stdout stay pipeable
		handler := log.NewHandler(os.Stderr, level)
		slog.SetDefault(slog.New(handler))

		// Set Cobra's output to real stdout (not redirected)
		cmd.SetOut(realStdout)
		cmd.SetErr(os.Stderr)
	},
}

// ExecuteContext runs the root command with context
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/venvpack/config.yaml or /etc/venvpack/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "", "v", false, "enable debug logging")

	// Add subcommands
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(bumpCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(sortCmd)
	rootCmd.AddCommand(formatsCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(latestCmd)
	rootCmd.AddCommand(nextCmd)
	rootCmd.AddCommand(versionsCmd)
	rootCmd.AddCommand(configCmd)
}
