package cmd

import (
	"fmt"
	"log/slog"

	"github.com/dionysius/venvpack/debversion"
	"github.com/dionysius/venvpack/internal/log"
	"github.com/dionysius/venvpack/version"
	"github.com/spf13/cobra"
)

var retainedOnly bool

// resolveCmd runs the configured versioner
var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve the version from the configured source",
	Long: `Read the version from the configured versioner source, parse it, convert
it to the target format and apply the configured actions.

Examples:
  venvpack resolve
  venvpack resolve --template '{{ .Parts.upstream }}'`,
	Args: cobra.NoArgs,
	RunE: runResolve,
}

// latestCmd prints the latest published version
var latestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Print the latest version published in the configured APT archive",
	Args:  cobra.NoArgs,
	RunE:  runLatest,
}

// nextCmd prints the next unused version
var nextCmd = &cobra.Command{
	Use:   "next <version>",
	Short: "Print the next version not yet published in the configured APT archive",
	Long: `Convert the version to Debian and bump its revision until it is not
published in the configured APT archive.

Examples:
  venvpack next 1.0-1                   # 1.0-1 if unpublished, otherwise 1.0-2, ...
  venvpack next -f pep440 2.0rc1        # Starts from 2.0~rc1`,
	Args: cobra.ExactArgs(1),
	RunE: runNext,
}

// versionsCmd lists published versions
var versionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "List versions published in the configured APT archive",
	Args:  cobra.NoArgs,
	RunE:  runVersions,
}

func init() {
	addTemplateFlag(resolveCmd)
	addTemplateFlag(latestCmd)
	addTemplateFlag(nextCmd)
	addFormatFlag(nextCmd, &formatName, version.FormatDebian)
	versionsCmd.Flags().BoolVar(&retainedOnly, "retained", false, "only versions kept by the retention policies")
}

func runResolve(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	application, err := newApplication(ctx)
	if err != nil {
		return err
	}
	defer application.Shutdown()

	v, err := application.Versioner()
	if err != nil {
		return err
	}
	c, err := v.Resolve(ctx)
	if err != nil {
		return err
	}

	slog.Debug("Version resolved", "version", c.String(), "format", c.ParsedBy, log.Success())
	return renderVersion(cmd.OutOrStdout(), templateText, c)
}

func runLatest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	application, err := newApplication(ctx)
	if err != nil {
		return err
	}
	defer application.Shutdown()

	s, err := application.Store()
	if err != nil {
		return err
	}
	latest, err := s.Latest(ctx)
	if err != nil {
		return err
	}
	return renderVersion(cmd.OutOrStdout(), templateText, debianContainer(latest))
}

func runNext(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	application, err := newApplication(ctx)
	if err != nil {
		return err
	}
	defer application.Shutdown()

	c, err := application.Registry.Parse(args[0], version.Format(formatName))
	if err != nil {
		return err
	}
	c, err = application.Registry.Convert(c, version.FormatDebian)
	if err != nil {
		return err
	}
	candidate, ok := c.Value.(version.DebianValue)
	if !ok {
		return fmt.Errorf("%w: expected a debian version", version.ErrFormatMismatch)
	}

	s, err := application.Store()
	if err != nil {
		return err
	}
	next, err := s.Next(ctx, candidate.V)
	if err != nil {
		return err
	}
	return renderVersion(cmd.OutOrStdout(), templateText, debianContainer(next))
}

func runVersions(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	application, err := newApplication(ctx)
	if err != nil {
		return err
	}
	defer application.Shutdown()

	s, err := application.Store()
	if err != nil {
		return err
	}

	var versions []*debversion.Version
	if retainedOnly {
		versions, err = s.Retained(ctx)
	} else {
		versions, err = s.Versions(ctx)
	}
	if err != nil {
		return err
	}

	for _, v := range versions {
		fmt.Fprintln(cmd.OutOrStdout(), v.String())
	}
	slog.Debug("Versions listed", "count", len(versions))
	return nil
}

func debianContainer(v *debversion.Version) version.Container {
	return version.Container{Value: version.DebianValue{V: v}, ParsedBy: version.FormatDebian}
}
