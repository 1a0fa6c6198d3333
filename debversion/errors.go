package debversion

import (
	"errors"
	"fmt"
)

// PolicyURL points to the Debian Policy section defining the version field.
const PolicyURL = "https://www.debian.org/doc/debian-policy/ch-controlfields.html#version"

// ErrInvalidVersion is matched by every *InvalidVersionError via errors.Is.
var ErrInvalidVersion = errors.New("invalid debian version")

// InvalidVersionError reports a version string violating the Debian grammar,
// or a string the comparator cannot order.
type InvalidVersionError struct {
	Version string // offending input
	Reason  string // violated rule
}

func (e *InvalidVersionError) Error() string {
	return fmt.Sprintf("invalid debian version %q: %s (see %s)", e.Version, e.Reason, PolicyURL)
}

// Is reports whether target is ErrInvalidVersion.
func (e *InvalidVersionError) Is(target error) bool {
	return target == ErrInvalidVersion
}

func invalid(version, format string, args ...any) error {
	return &InvalidVersionError{Version: version, Reason: fmt.Sprintf(format, args...)}
}
