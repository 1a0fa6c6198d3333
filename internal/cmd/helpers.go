package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/dionysius/venvpack/internal/app"
	"github.com/dionysius/venvpack/internal/config"
	"github.com/dionysius/venvpack/version"
	"github.com/spf13/cobra"
)

const (
	// Flag names and descriptions for consistent usage across commands
	formatFlagName   = "format"
	formatFlagDesc   = "version format (debian, semver, pep440, regex)"
	templateFlagName = "template"
	templateFlagDesc = "Go template for the output, dot has .Version, .Format and .Parts"
	defaultTemplate  = "{{ .Version }}"
)

var (
	formatName   string
	templateText string
)

// addFormatFlag adds the --format/-f flag to a command
func addFormatFlag(cmd *cobra.Command, target *string, def version.Format) {
	cmd.Flags().StringVarP(target, formatFlagName, "f", string(def), formatFlagDesc)
}

// addTemplateFlag adds the --template flag to a command
func addTemplateFlag(cmd *cobra.Command) {
	cmd.Flags().StringVar(&templateText, templateFlagName, defaultTemplate, templateFlagDesc)
}

// loadRegistry builds the version registry from the optional config file
func loadRegistry() (*version.Registry, *config.Config, error) {
	cfg, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	registry, err := version.NewDefaultRegistry(cfg.Formats.RegistryOptions())
	if err != nil {
		return nil, nil, err
	}
	return registry, cfg, nil
}

// newApplication loads the config and initializes the application
func newApplication(ctx context.Context) (*app.Application, error) {
	cfg, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return nil, err
	}

	application, err := app.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize application: %w", err)
	}
	return application, nil
}

// templateData is the dot of --template
type templateData struct {
	Version string
	Format  string
	Parts   map[string]string
}

// renderVersion writes c through the given template followed by a newline
func renderVersion(w io.Writer, text string, c version.Container) error {
	tmpl, err := template.New("version").Funcs(sprig.TxtFuncMap()).Parse(text)
	if err != nil {
		return fmt.Errorf("invalid template: %w", err)
	}

	data := templateData{
		Version: c.String(),
		Format:  c.ParsedBy.String(),
	}
	if c.Value != nil {
		data.Parts = c.Value.Fields()
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return fmt.Errorf("failed to render template: %w", err)
	}
	_, err = fmt.Fprintln(w, b.String())
	return err
}

// compareSymbol renders a comparison result
func compareSymbol(c int) string {
	switch {
	case c < 0:
		return "<"
	case c > 0:
		return ">"
	}
	return "="
}

// argsOrLines returns args, or the non-empty trimmed lines of r when there are none
func argsOrLines(args []string, r io.Reader) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}

	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}

// parseAll parses every raw string in format f
func parseAll(registry *version.Registry, raws []string, f version.Format) ([]version.Container, error) {
	cs := make([]version.Container, 0, len(raws))
	for _, raw := range raws {
		c, err := registry.Parse(raw, f)
		if err != nil {
			return nil, err
		}
		cs = append(cs, c)
	}
	return cs, nil
}

// applyActions runs actions in order
func applyActions(registry *version.Registry, c version.Container, actions []string) (version.Container, error) {
	for _, action := range actions {
		next, err := registry.Execute(c, version.Action(action))
		if err != nil {
			return version.Container{}, err
		}
		c = next
	}
	return c, nil
}

// writeFormats lists the registered formats with their actions and the conversion matrix
func writeFormats(w io.Writer, registry *version.Registry) error {
	formats := registry.Formats()

	for _, f := range formats {
		actions, err := registry.SupportedActions(f)
		if err != nil {
			return err
		}
		names := make([]string, len(actions))
		for i, a := range actions {
			names[i] = a.String()
		}
		if len(names) == 0 {
			names = []string{"-"}
		}
		fmt.Fprintf(w, "%-8s actions: %s\n", f, strings.Join(names, ", "))
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-8s", "from\\to")
	for _, to := range formats {
		fmt.Fprintf(w, " %-8s", to)
	}
	fmt.Fprintln(w)

	for _, from := range formats {
		fmt.Fprintf(w, "%-8s", from)
		for _, to := range formats {
			capability, err := registry.Conversion(from, to)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, " %-8s", capabilitySymbol(capability))
		}
		fmt.Fprintln(w)
	}
	return nil
}

func capabilitySymbol(c version.Capability) string {
	switch {
	case !c.Supported:
		return "-"
	case c.Lossless:
		return "lossless"
	}
	return "lossy"
}
