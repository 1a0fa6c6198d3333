package version

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// SemVerOptions relaxes the SemVer grammar.
type SemVerOptions struct {
	// AllowPartial accepts versions with missing minor/patch and a "v" prefix.
	AllowPartial bool `yaml:"allow_partial,omitempty"`
	// Coerce extracts the first version-like substring of arbitrary input.
	Coerce bool `yaml:"coerce,omitempty"`
}

// SemVerValue holds a parsed semantic version.
type SemVerValue struct {
	V *semver.Version
}

func (v SemVerValue) String() string {
	return v.V.String()
}

func (v SemVerValue) Compare(other Value) (int, error) {
	o, ok := other.(SemVerValue)
	if !ok {
		return 0, fmt.Errorf("%w: cannot compare %s with %T", ErrFormatMismatch, FormatSemVer, other)
	}
	return v.V.Compare(o.V), nil
}

func (v SemVerValue) Fields() map[string]string {
	return map[string]string{
		"major":      strconv.FormatUint(v.V.Major(), 10),
		"minor":      strconv.FormatUint(v.V.Minor(), 10),
		"patch":      strconv.FormatUint(v.V.Patch(), 10),
		"prerelease": v.V.Prerelease(),
		"metadata":   v.V.Metadata(),
	}
}

// coercePattern finds the leading major[.minor[.patch]] of arbitrary input.
var coercePattern = regexp.MustCompile(`[vV]?(0|[1-9][0-9]*)(?:\.(0|[1-9][0-9]*)(?:\.(0|[1-9][0-9]*))?)?`)

// SemVerParser handles semantic versions.
type SemVerParser struct {
	options SemVerOptions
}

func NewSemVerParser(options SemVerOptions) *SemVerParser {
	return &SemVerParser{options: options}
}

func (p *SemVerParser) Format() Format {
	return FormatSemVer
}

func (p *SemVerParser) Parse(raw string) (Container, error) {
	v, err := p.parse(raw)
	if err != nil {
		return Container{}, &InvalidVersionError{Format: FormatSemVer, Version: raw, Err: err}
	}
	return Container{Value: SemVerValue{V: v}, ParsedBy: FormatSemVer}, nil
}

func (p *SemVerParser) parse(raw string) (*semver.Version, error) {
	switch {
	case p.options.Coerce:
		return coerceSemVer(raw)
	case p.options.AllowPartial:
		return semver.NewVersion(raw)
	}
	return semver.StrictNewVersion(raw)
}

// coerceSemVer builds a version from the first version-like part of raw.
// A directly following prerelease or metadata suffix is kept when valid.
func coerceSemVer(raw string) (*semver.Version, error) {
	m := coercePattern.FindStringSubmatchIndex(raw)
	if m == nil {
		return nil, fmt.Errorf("no version number found")
	}

	parts := [3]string{"0", "0", "0"}
	for i := range parts {
		if start := m[2+2*i]; start >= 0 {
			parts[i] = raw[start:m[3+2*i]]
		}
	}
	base := strings.Join(parts[:], ".")

	if rest := raw[m[1]:]; strings.HasPrefix(rest, "-") || strings.HasPrefix(rest, "+") {
		if v, err := semver.StrictNewVersion(base + strings.Fields(rest)[0]); err == nil {
			return v, nil
		}
	}
	return semver.StrictNewVersion(base)
}

func (p *SemVerParser) Serialize(c Container) (string, error) {
	if err := checkFormat(c, FormatSemVer); err != nil {
		return "", err
	}
	return c.Value.String(), nil
}

func (p *SemVerParser) Deserialize(raw string) (Container, error) {
	v, err := semver.StrictNewVersion(raw)
	if err != nil {
		return Container{}, &InvalidVersionError{Format: FormatSemVer, Version: raw, Err: err}
	}
	return Container{Value: SemVerValue{V: v}, ParsedBy: FormatSemVer}, nil
}

func (p *SemVerParser) CanConvertFrom(from Format) Capability {
	return identity(FormatSemVer, from)
}

func (p *SemVerParser) CanConvertTo(to Format) Capability {
	return identity(FormatSemVer, to)
}

func (p *SemVerParser) ConvertFrom(c Container) (Container, error) {
	if c.ParsedBy == FormatSemVer {
		return c, nil
	}
	return Container{}, &UnconvertableError{From: c.ParsedBy, To: FormatSemVer}
}

func (p *SemVerParser) ConvertTo(c Container, to Format) (Container, error) {
	if to == FormatSemVer {
		return c, nil
	}
	return Container{}, &UnconvertableError{From: FormatSemVer, To: to}
}

func (p *SemVerParser) SupportedActions() []Action {
	return semverActions()
}

func (p *SemVerParser) ExecuteAction(c Container, action Action) (Container, error) {
	if err := checkFormat(c, FormatSemVer); err != nil {
		return Container{}, err
	}
	return incrementSemVer(c, action)
}

func semverActions() []Action {
	return []Action{ActionIncrementMajor, ActionIncrementMinor, ActionIncrementPatch}
}

// incrementSemVer applies a SemVer increment action, keeping the container's
// format. Build metadata is dropped. increment-patch on a prerelease yields
// the release it precedes (1.2.3-rc1 becomes 1.2.3) instead of raising the patch.
func incrementSemVer(c Container, action Action) (Container, error) {
	v := c.Value.(SemVerValue).V

	var next semver.Version
	switch action {
	case ActionIncrementMajor:
		next = v.IncMajor()
	case ActionIncrementMinor:
		next = v.IncMinor()
	case ActionIncrementPatch:
		next = v.IncPatch()
	default:
		return Container{}, &UnsupportedActionError{Format: c.ParsedBy, Action: action, Supported: semverActions()}
	}
	return Container{Value: SemVerValue{V: &next}, ParsedBy: c.ParsedBy}, nil
}

// semverOf extracts the semantic version of a SemVer or regex container.
func semverOf(c Container) (*semver.Version, error) {
	sv, ok := c.Value.(SemVerValue)
	if !ok {
		return nil, fmt.Errorf("%w: %s container holds %T", ErrFormatMismatch, c.ParsedBy, c.Value)
	}
	return sv.V, nil
}
