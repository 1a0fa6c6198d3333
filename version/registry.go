package version

import (
	"fmt"
	"slices"
)

// Options configures the built-in parsers.
type Options struct {
	SemVer SemVerOptions
	// RegexPattern enables the regex format when set.
	RegexPattern string
}

// Registry holds the available parsers by format. It is populated once and
// only read afterwards, so it can be shared between goroutines.
type Registry struct {
	parsers map[Format]Parser
}

// NewRegistry creates a registry from explicitly given parsers.
func NewRegistry(parsers ...Parser) (*Registry, error) {
	r := &Registry{parsers: make(map[Format]Parser, len(parsers))}
	for _, p := range parsers {
		if err := r.register(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// NewDefaultRegistry creates a registry with the built-in Debian, SemVer and
// PEP 440 parsers, plus the regex parser when a pattern is configured.
func NewDefaultRegistry(options Options) (*Registry, error) {
	parsers := []Parser{
		NewDebianParser(),
		NewSemVerParser(options.SemVer),
		NewPEP440Parser(),
	}
	if options.RegexPattern != "" {
		rp, err := NewRegexParser(options.RegexPattern, options.SemVer)
		if err != nil {
			return nil, err
		}
		parsers = append(parsers, rp)
	}
	return NewRegistry(parsers...)
}

func (r *Registry) register(p Parser) error {
	if _, exists := r.parsers[p.Format()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateFormat, p.Format())
	}
	r.parsers[p.Format()] = p
	return nil
}

// Parser returns the parser of format f.
func (r *Registry) Parser(f Format) (Parser, error) {
	p, ok := r.parsers[f]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	return p, nil
}

// Formats returns the registered formats in sorted order.
func (r *Registry) Formats() []Format {
	formats := make([]Format, 0, len(r.parsers))
	for f := range r.parsers {
		formats = append(formats, f)
	}
	slices.Sort(formats)
	return formats
}

// Parse parses raw with the parser of format f.
func (r *Registry) Parse(raw string, f Format) (Container, error) {
	p, err := r.Parser(f)
	if err != nil {
		return Container{}, err
	}
	return p.Parse(raw)
}

// Serialize renders c so that Deserialize with the same format restores it.
func (r *Registry) Serialize(c Container) (string, error) {
	p, err := r.Parser(c.ParsedBy)
	if err != nil {
		return "", err
	}
	return p.Serialize(c)
}

// Deserialize restores a container rendered by Serialize.
func (r *Registry) Deserialize(raw string, f Format) (Container, error) {
	p, err := r.Parser(f)
	if err != nil {
		return Container{}, err
	}
	return p.Deserialize(raw)
}

// Compare orders two containers of the same format.
func (r *Registry) Compare(a, b Container) (int, error) {
	if a.ParsedBy != b.ParsedBy {
		return 0, fmt.Errorf("%w: %s and %s", ErrFormatMismatch, a.ParsedBy, b.ParsedBy)
	}
	if a.Value == nil || b.Value == nil {
		return 0, fmt.Errorf("%w: empty container", ErrFormatMismatch)
	}
	return a.Value.Compare(b.Value)
}

// Sort sorts containers of one format in ascending order. On error the slice
// is left untouched.
func (r *Registry) Sort(cs []Container) error {
	sorted := slices.Clone(cs)
	var sortErr error
	slices.SortStableFunc(sorted, func(a, b Container) int {
		c, err := r.Compare(a, b)
		if err != nil && sortErr == nil {
			sortErr = err
		}
		return c
	})
	if sortErr != nil {
		return sortErr
	}
	copy(cs, sorted)
	return nil
}

// Latest returns the greatest of the given containers.
func (r *Registry) Latest(cs []Container) (Container, bool, error) {
	if len(cs) == 0 {
		return Container{}, false, nil
	}
	latest := cs[0]
	for _, c := range cs[1:] {
		cmp, err := r.Compare(c, latest)
		if err != nil {
			return Container{}, false, err
		}
		if cmp > 0 {
			latest = c
		}
	}
	return latest, true, nil
}
