package debext

import (
	"slices"

	"github.com/dionysius/venvpack/debversion"
)

// LatestVersion returns the highest version by the Debian comparator.
func LatestVersion(versions []*debversion.Version) (*debversion.Version, bool) {
	if len(versions) == 0 {
		return nil, false
	}
	latest := versions[0]
	for _, v := range versions[1:] {
		if latest.Less(v) {
			latest = v
		}
	}
	return latest, true
}

// ContainsVersion reports whether versions holds a version equal to v.
// Equality follows the comparator, so "0:1.0" matches "1.0".
func ContainsVersion(versions []*debversion.Version, v *debversion.Version) bool {
	return slices.ContainsFunc(versions, v.Equal)
}

// UniqueVersions sorts versions ascending and drops duplicates.
func UniqueVersions(versions []*debversion.Version) ([]*debversion.Version, error) {
	sorted := slices.Clone(versions)
	if err := debversion.Sort(sorted); err != nil {
		return nil, err
	}
	return slices.CompactFunc(sorted, func(a, b *debversion.Version) bool {
		return a.Equal(b)
	}), nil
}
