package version

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidVersion    = errors.New("invalid version string")
	ErrUnconvertable     = errors.New("unconvertable version")
	ErrUnsupportedAction = errors.New("unsupported action")
	ErrUnknownFormat     = errors.New("unknown version format")
	ErrDuplicateFormat   = errors.New("version format already registered")
	ErrFormatMismatch    = errors.New("version formats differ")
	ErrInvalidPattern    = errors.New("invalid version pattern")
)

// InvalidVersionError reports a raw string rejected by a format's grammar.
type InvalidVersionError struct {
	Format  Format
	Version string
	Reason  string // set when there is no underlying parser error
	Err     error
}

func (e *InvalidVersionError) Error() string {
	reason := e.Reason
	if e.Err != nil {
		reason = e.Err.Error()
	}
	return fmt.Sprintf("invalid %s version %q: %s", e.Format, e.Version, reason)
}

func (e *InvalidVersionError) Is(target error) bool {
	return target == ErrInvalidVersion
}

func (e *InvalidVersionError) Unwrap() error {
	return e.Err
}

// UnconvertableError reports a missing or failed conversion between formats.
type UnconvertableError struct {
	From    Format
	To      Format
	Version string // set when a conversion was attempted and failed
	Err     error
}

func (e *UnconvertableError) Error() string {
	if e.Version == "" {
		return fmt.Sprintf("cannot convert %s version to %s", e.From, e.To)
	}
	return fmt.Sprintf("cannot convert %s version %q to %s: %v", e.From, e.Version, e.To, e.Err)
}

func (e *UnconvertableError) Is(target error) bool {
	return target == ErrUnconvertable
}

func (e *UnconvertableError) Unwrap() error {
	return e.Err
}

// UnsupportedActionError reports an action the format does not declare.
type UnsupportedActionError struct {
	Format    Format
	Action    Action
	Supported []Action
}

func (e *UnsupportedActionError) Error() string {
	supported := make([]string, len(e.Supported))
	for i, a := range e.Supported {
		supported[i] = string(a)
	}
	list := strings.Join(supported, ", ")
	if list == "" {
		list = "none"
	}
	return fmt.Sprintf("%s versions do not support action %q (supported: %s)", e.Format, e.Action, list)
}

func (e *UnsupportedActionError) Is(target error) bool {
	return target == ErrUnsupportedAction
}
