package cmd

import (
	"fmt"
	"slices"

	"github.com/dionysius/venvpack/version"
	"github.com/spf13/cobra"
)

var (
	targetFormat string
	actionNames  []string
	reverseSort  bool
)

// parseCmd parses a version and prints its canonical form
var parseCmd = &cobra.Command{
	Use:   "parse <version>",
	Short: "Parse a version and print its canonical form",
	Long: `Parse a version string in the given format and print it.

Examples:
  venvpack parse 1:2.0-3                            # Debian is the default format
  venvpack parse -f pep440 1.0RC1                   # Prints 1.0rc1
  venvpack parse -f semver 1.2.3 --template '{{ .Parts.major }}'`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

// convertCmd converts a version between formats
var convertCmd = &cobra.Command{
	Use:   "convert <version>",
	Short: "Convert a version to another format",
	Long: `Convert a version from one format to another. Conversions that have no
defined mapping fail as unconvertable.

Examples:
  venvpack convert -f semver -t debian 1.2.3-rc.1   # Prints 1.2.3~rc.1
  venvpack convert -f pep440 -t debian 1!2.0.post1  # Prints 1:2.0.post1`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

// bumpCmd applies actions to a version
var bumpCmd = &cobra.Command{
	Use:   "bump <version>",
	Short: "Apply actions to a version",
	Long: `Apply one or more actions to a version, in the given order.

Examples:
  venvpack bump -a bump-revision 1.0-1              # Prints 1.0-2
  venvpack bump -f semver -a increment-minor 1.2.3  # Prints 1.3.0`,
	Args: cobra.ExactArgs(1),
	RunE: runBump,
}

// compareCmd compares two versions
var compareCmd = &cobra.Command{
	Use:   "compare <a> <b>",
	Short: "Compare two versions",
	Long: `Compare two versions of the same format and print <, = or >.

Examples:
  venvpack compare 1.0~rc1 1.0                      # Prints <
  venvpack compare 0:1.0 1.0                        # Prints =`,
	Args: cobra.ExactArgs(2),
	RunE: runCompare,
}

// sortCmd sorts versions
var sortCmd = &cobra.Command{
	Use:   "sort [versions...]",
	Short: "Sort versions",
	Long: `Sort versions in ascending order. Without arguments the versions are read
from stdin, one per line.

Examples:
  venvpack sort 1.0 1.0~rc1 1.0-1
  apt-cache madison python3 | awk '{print $3}' | venvpack sort --reverse`,
	RunE: runSort,
}

// formatsCmd lists formats
var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List formats, their actions and conversions",
	Args:  cobra.NoArgs,
	RunE:  runFormats,
}

func init() {
	for _, cmd := range []*cobra.Command{parseCmd, convertCmd, bumpCmd, compareCmd, sortCmd} {
		addFormatFlag(cmd, &formatName, version.FormatDebian)
	}
	for _, cmd := range []*cobra.Command{parseCmd, convertCmd, bumpCmd} {
		addTemplateFlag(cmd)
	}

	convertCmd.Flags().StringVarP(&targetFormat, "to", "t", string(version.FormatDebian), "target format")
	bumpCmd.Flags().StringSliceVarP(&actionNames, "action", "a", nil, "action to apply, repeatable")
	_ = bumpCmd.MarkFlagRequired("action")
	sortCmd.Flags().BoolVar(&reverseSort, "reverse", false, "sort in descending order")
}

func runParse(cmd *cobra.Command, args []string) error {
	registry, _, err := loadRegistry()
	if err != nil {
		return err
	}

	c, err := registry.Parse(args[0], version.Format(formatName))
	if err != nil {
		return err
	}
	return renderVersion(cmd.OutOrStdout(), templateText, c)
}

func runConvert(cmd *cobra.Command, args []string) error {
	registry, _, err := loadRegistry()
	if err != nil {
		return err
	}

	c, err := registry.Parse(args[0], version.Format(formatName))
	if err != nil {
		return err
	}
	converted, err := registry.Convert(c, version.Format(targetFormat))
	if err != nil {
		return err
	}
	return renderVersion(cmd.OutOrStdout(), templateText, converted)
}

func runBump(cmd *cobra.Command, args []string) error {
	registry, _, err := loadRegistry()
	if err != nil {
		return err
	}

	c, err := registry.Parse(args[0], version.Format(formatName))
	if err != nil {
		return err
	}
	bumped, err := applyActions(registry, c, actionNames)
	if err != nil {
		return err
	}
	return renderVersion(cmd.OutOrStdout(), templateText, bumped)
}

func runCompare(cmd *cobra.Command, args []string) error {
	registry, _, err := loadRegistry()
	if err != nil {
		return err
	}

	cs, err := parseAll(registry, args, version.Format(formatName))
	if err != nil {
		return err
	}
	result, err := registry.Compare(cs[0], cs[1])
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), compareSymbol(result))
	return nil
}

func runSort(cmd *cobra.Command, args []string) error {
	registry, _, err := loadRegistry()
	if err != nil {
		return err
	}

	raws, err := argsOrLines(args, cmd.InOrStdin())
	if err != nil {
		return err
	}
	cs, err := parseAll(registry, raws, version.Format(formatName))
	if err != nil {
		return err
	}
	if err := registry.Sort(cs); err != nil {
		return err
	}
	if reverseSort {
		slices.Reverse(cs)
	}

	for _, c := range cs {
		fmt.Fprintln(cmd.OutOrStdout(), c.String())
	}
	return nil
}

func runFormats(cmd *cobra.Command, args []string) error {
	registry, _, err := loadRegistry()
	if err != nil {
		return err
	}
	return writeFormats(cmd.OutOrStdout(), registry)
}
