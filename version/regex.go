package version

import (
	"fmt"
	"regexp"
	"slices"
)

var (
	requiredGroups = []string{"major", "minor", "patch"}
	optionalGroups = []string{"prerelease", "metadata"}
)

// RegexParser extracts a semantic version from arbitrary strings using named
// capture groups major, minor, patch and optionally prerelease and metadata.
type RegexParser struct {
	pattern *regexp.Regexp
	semver  *SemVerParser
}

// NewRegexParser compiles pattern and checks it captures the required groups.
func NewRegexParser(pattern string, options SemVerOptions) (*RegexParser, error) {
	if pattern == "" {
		return nil, fmt.Errorf("%w: pattern is empty", ErrInvalidPattern)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}

	names := re.SubexpNames()
	for _, group := range requiredGroups {
		if !slices.Contains(names, group) {
			return nil, fmt.Errorf("%w: missing named group %q in %q", ErrInvalidPattern, group, pattern)
		}
	}

	return &RegexParser{pattern: re, semver: NewSemVerParser(options)}, nil
}

func (p *RegexParser) Format() Format {
	return FormatRegex
}

// Pattern returns the source of the configured expression.
func (p *RegexParser) Pattern() string {
	return p.pattern.String()
}

func (p *RegexParser) Parse(raw string) (Container, error) {
	m := p.pattern.FindStringSubmatch(raw)
	if m == nil {
		return Container{}, &InvalidVersionError{
			Format:  FormatRegex,
			Version: raw,
			Reason:  fmt.Sprintf("does not match %q", p.pattern.String()),
		}
	}

	group := func(name string) string {
		if idx := p.pattern.SubexpIndex(name); idx >= 0 {
			return m[idx]
		}
		return ""
	}

	s := group(requiredGroups[0]) + "." + group(requiredGroups[1]) + "." + group(requiredGroups[2])
	if pre := group(optionalGroups[0]); pre != "" {
		s += "-" + pre
	}
	if meta := group(optionalGroups[1]); meta != "" {
		s += "+" + meta
	}

	v, err := p.semver.parse(s)
	if err != nil {
		return Container{}, &InvalidVersionError{Format: FormatRegex, Version: raw, Err: fmt.Errorf("extracted %q: %w", s, err)}
	}
	return Container{Value: SemVerValue{V: v}, ParsedBy: FormatRegex}, nil
}

func (p *RegexParser) Serialize(c Container) (string, error) {
	if err := checkFormat(c, FormatRegex); err != nil {
		return "", err
	}
	return c.Value.String(), nil
}

// Deserialize reads the SemVer serialization back; the pattern is not applied.
func (p *RegexParser) Deserialize(raw string) (Container, error) {
	c, err := p.semver.Deserialize(raw)
	if err != nil {
		return Container{}, &InvalidVersionError{Format: FormatRegex, Version: raw, Err: err}
	}
	c.ParsedBy = FormatRegex
	return c, nil
}

func (p *RegexParser) CanConvertFrom(from Format) Capability {
	return identity(FormatRegex, from)
}

func (p *RegexParser) CanConvertTo(to Format) Capability {
	return identity(FormatRegex, to)
}

func (p *RegexParser) ConvertFrom(c Container) (Container, error) {
	if c.ParsedBy == FormatRegex {
		return c, nil
	}
	return Container{}, &UnconvertableError{From: c.ParsedBy, To: FormatRegex}
}

func (p *RegexParser) ConvertTo(c Container, to Format) (Container, error) {
	if to == FormatRegex {
		return c, nil
	}
	return Container{}, &UnconvertableError{From: FormatRegex, To: to}
}

func (p *RegexParser) SupportedActions() []Action {
	return semverActions()
}

func (p *RegexParser) ExecuteAction(c Container, action Action) (Container, error) {
	if err := checkFormat(c, FormatRegex); err != nil {
		return Container{}, err
	}
	return incrementSemVer(c, action)
}
