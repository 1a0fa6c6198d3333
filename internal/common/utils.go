package common

import (
	"fmt"
	"path/filepath"
	"strings"
)

// PackageFilter selects package names by glob patterns. A pattern prefixed
// with "!" excludes names; exclusions win over inclusions.
type PackageFilter struct {
	include []string
	exclude []string
}

// NewPackageFilter compiles patterns. Without any inclusion every name not
// excluded is selected.
func NewPackageFilter(patterns []string) (*PackageFilter, error) {
	f := &PackageFilter{}
	for _, pattern := range patterns {
		glob, negated := strings.CutPrefix(pattern, "!")
		if _, err := filepath.Match(glob, ""); err != nil {
			return nil, fmt.Errorf("package pattern %q: %w", pattern, err)
		}
		if negated {
			f.exclude = append(f.exclude, glob)
		} else {
			f.include = append(f.include, glob)
		}
	}
	return f, nil
}

// Match reports whether name is selected
func (f *PackageFilter) Match(name string) bool {
	if len(f.include) > 0 && !anyMatch(f.include, name) {
		return false
	}
	return !anyMatch(f.exclude, name)
}

func anyMatch(globs []string, name string) bool {
	for _, glob := range globs {
		if ok, _ := filepath.Match(glob, name); ok {
			return true
		}
	}
	return false
}
