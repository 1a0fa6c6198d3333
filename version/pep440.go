package version

import (
	"fmt"

	pep440 "github.com/aquasecurity/go-pep440-version"
)

// PEP440Value holds a parsed Python package version.
type PEP440Value struct {
	V pep440.Version
}

// String returns the normalized form, e.g. "1.0a1" for "1.0-alpha.1".
func (v PEP440Value) String() string {
	return v.V.String()
}

func (v PEP440Value) Compare(other Value) (int, error) {
	o, ok := other.(PEP440Value)
	if !ok {
		return 0, fmt.Errorf("%w: cannot compare %s with %T", ErrFormatMismatch, FormatPEP440, other)
	}
	return v.V.Compare(o.V), nil
}

func (v PEP440Value) Fields() map[string]string {
	fields := map[string]string{"epoch": "0"}
	m := pep440Normalized.FindStringSubmatch(v.V.String())
	if m == nil {
		return fields
	}
	for i, name := range pep440Normalized.SubexpNames() {
		if name != "" && m[i] != "" {
			fields[name] = m[i]
		}
	}
	return fields
}

// PEP440Parser handles Python package versions.
type PEP440Parser struct{}

func NewPEP440Parser() *PEP440Parser {
	return &PEP440Parser{}
}

func (p *PEP440Parser) Format() Format {
	return FormatPEP440
}

func (p *PEP440Parser) Parse(raw string) (Container, error) {
	v, err := pep440.Parse(raw)
	if err != nil {
		return Container{}, &InvalidVersionError{Format: FormatPEP440, Version: raw, Err: err}
	}
	return Container{Value: PEP440Value{V: v}, ParsedBy: FormatPEP440}, nil
}

func (p *PEP440Parser) Serialize(c Container) (string, error) {
	if err := checkFormat(c, FormatPEP440); err != nil {
		return "", err
	}
	return c.Value.String(), nil
}

func (p *PEP440Parser) Deserialize(raw string) (Container, error) {
	return p.Parse(raw)
}

func (p *PEP440Parser) CanConvertFrom(from Format) Capability {
	return identity(FormatPEP440, from)
}

func (p *PEP440Parser) CanConvertTo(to Format) Capability {
	return identity(FormatPEP440, to)
}

func (p *PEP440Parser) ConvertFrom(c Container) (Container, error) {
	if c.ParsedBy == FormatPEP440 {
		return c, nil
	}
	return Container{}, &UnconvertableError{From: c.ParsedBy, To: FormatPEP440}
}

func (p *PEP440Parser) ConvertTo(c Container, to Format) (Container, error) {
	if to == FormatPEP440 {
		return c, nil
	}
	return Container{}, &UnconvertableError{From: FormatPEP440, To: to}
}

func (p *PEP440Parser) SupportedActions() []Action {
	return nil
}

func (p *PEP440Parser) ExecuteAction(c Container, action Action) (Container, error) {
	return Container{}, &UnsupportedActionError{Format: FormatPEP440, Action: action}
}
