package version

import (
	"slices"
)

// Execute applies action to c. The action must be declared by the format of c.
func (r *Registry) Execute(c Container, action Action) (Container, error) {
	p, err := r.Parser(c.ParsedBy)
	if err != nil {
		return Container{}, err
	}

	supported := p.SupportedActions()
	if !slices.Contains(supported, action) {
		return Container{}, &UnsupportedActionError{Format: c.ParsedBy, Action: action, Supported: supported}
	}
	return p.ExecuteAction(c, action)
}

// SupportedActions returns the actions declared by format f.
func (r *Registry) SupportedActions(f Format) ([]Action, error) {
	p, err := r.Parser(f)
	if err != nil {
		return nil, err
	}
	return p.SupportedActions(), nil
}
