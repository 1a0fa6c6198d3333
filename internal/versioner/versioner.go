// Package versioner resolves the version a build should use: it reads a raw
// version from a source, parses it, converts it to the target format and
// applies the configured actions.
package versioner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dionysius/venvpack/version"
)

// Options configures a Versioner
type Options struct {
	Source  SourceOptions    `yaml:"source"`
	Format  version.Format   `yaml:"format"`
	Target  version.Format   `yaml:"target,omitempty"`  // empty keeps the parsed format
	Actions []version.Action `yaml:"actions,omitempty"` // applied in order after conversion
}

// Versioner turns a source reading into a version container
type Versioner struct {
	registry *version.Registry
	source   Source
	options  Options
}

// New creates a Versioner reading from source
func New(registry *version.Registry, source Source, options Options) *Versioner {
	return &Versioner{
		registry: registry,
		source:   source,
		options:  options,
	}
}

// Resolve reads, parses, converts and transforms the version.
func (v *Versioner) Resolve(ctx context.Context) (version.Container, error) {
	raw, err := v.source.Read(ctx)
	if err != nil {
		return version.Container{}, fmt.Errorf("failed to read version: %w", err)
	}
	slog.Debug("Version read", "raw", raw, "source", v.options.Source.Type)

	c, err := v.registry.Parse(raw, v.options.Format)
	if err != nil {
		return version.Container{}, err
	}

	if v.options.Target != "" && v.options.Target != c.ParsedBy {
		converted, err := v.registry.Convert(c, v.options.Target)
		if err != nil {
			return version.Container{}, err
		}
		slog.Debug("Version converted", "from", c.String(), "to", converted.String(), "format", converted.ParsedBy)
		c = converted
	}

	for _, action := range v.options.Actions {
		next, err := v.registry.Execute(c, action)
		if err != nil {
			return version.Container{}, err
		}
		slog.Debug("Action applied", "action", action, "from", c.String(), "to", next.String())
		c = next
	}

	return c, nil
}
