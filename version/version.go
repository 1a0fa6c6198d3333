// Package version models version identifiers of several formats behind a
// common container, and converts, transforms and orders them.
package version

import (
	"fmt"
)

// Format identifies a version format and the parser handling it.
type Format string

const (
	FormatDebian Format = "debian"
	FormatSemVer Format = "semver"
	FormatPEP440 Format = "pep440"
	FormatRegex  Format = "regex"
)

func (f Format) String() string {
	return string(f)
}

// Action names a format-specific version transformation.
type Action string

const (
	ActionBumpEpoch      Action = "bump-epoch"
	ActionBumpRevision   Action = "bump-revision"
	ActionIncrementMajor Action = "increment-major"
	ActionIncrementMinor Action = "increment-minor"
	ActionIncrementPatch Action = "increment-patch"
)

func (a Action) String() string {
	return string(a)
}

// Value is the format-native representation held by a Container.
type Value interface {
	fmt.Stringer
	// Compare orders the receiver against a value of the same format.
	Compare(other Value) (int, error)
	// Fields returns the named components of the value.
	Fields() map[string]string
}

// Container pairs a parsed value with the format that produced it.
// Containers are never modified; conversions and actions return new ones.
type Container struct {
	Value    Value
	ParsedBy Format
}

func (c Container) String() string {
	if c.Value == nil {
		return ""
	}
	return c.Value.String()
}

// Capability describes whether a conversion exists and whether it loses information.
type Capability struct {
	Supported bool
	Lossless  bool
}

var (
	unsupported = Capability{}
	lossless    = Capability{Supported: true, Lossless: true}
)

// Parser is the capability set of one version format.
type Parser interface {
	Format() Format
	Parse(raw string) (Container, error)
	// Serialize and Deserialize round-trip a container through a string.
	Serialize(c Container) (string, error)
	Deserialize(raw string) (Container, error)
	CanConvertFrom(from Format) Capability
	CanConvertTo(to Format) Capability
	ConvertFrom(c Container) (Container, error)
	ConvertTo(c Container, to Format) (Container, error)
	SupportedActions() []Action
	ExecuteAction(c Container, action Action) (Container, error)
}

// identity is the conversion capability every format has towards itself.
func identity(self, other Format) Capability {
	if self == other {
		return lossless
	}
	return unsupported
}

// checkFormat fails when c was not produced by the expected format.
func checkFormat(c Container, expected Format) error {
	if c.ParsedBy != expected || c.Value == nil {
		return fmt.Errorf("%w: expected %s, got %s", ErrFormatMismatch, expected, c.ParsedBy)
	}
	return nil
}
