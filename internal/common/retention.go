package common

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/dionysius/venvpack/debversion"
)

// NoMatchBehavior defines how to handle versions that don't match any retention pattern
type NoMatchBehavior int

const (
	NoMatchKeep   NoMatchBehavior = iota // Keep versions that don't match any pattern
	NoMatchIgnore                        // Drop versions that don't match any pattern
	NoMatchError                         // Fail on versions that don't match any pattern
)

var (
	ErrEmptyPattern           = errors.New("empty pattern")
	ErrNoSegments             = errors.New("pattern must contain at least one segment (* or #)")
	ErrExpectedDelimiter      = errors.New("expected delimiter between segments")
	ErrAmountMismatch         = errors.New("amount count does not match tracked segment count")
	ErrVersionNotMatchPattern = errors.New("version does not match pattern")
	ErrNoMatchingPattern      = errors.New("version does not match any retention pattern")
)

// RetentionRule keeps the newest Amount[i] values of each tracked (#) segment
// of versions shaped like Pattern, e.g. "*.#.*" with [3] keeps three minor
// releases per major.
type RetentionRule struct {
	Pattern string `yaml:"pattern"`
	Amount  []int  `yaml:"amount"`
}

// RetentionPolicy applies a rule to the packages matching Packages (globs, "!" negates).
type RetentionPolicy struct {
	RetentionRule `yaml:",inline"`
	Packages      []string `yaml:"packages,omitempty"`
}

// RulesForPackage returns the rules of the policies matching packageName.
// A policy with a malformed package pattern matches nothing.
func RulesForPackage(policies []RetentionPolicy, packageName string) []RetentionRule {
	var rules []RetentionRule
	for _, policy := range policies {
		filter, err := NewPackageFilter(policy.Packages)
		if err == nil && filter.Match(packageName) {
			rules = append(rules, policy.RetentionRule)
		}
	}
	return rules
}

// ValidateRetentionRule checks a rule can be compiled.
func ValidateRetentionRule(rule RetentionRule) error {
	p, err := parsePattern(rule.Pattern)
	if err != nil {
		return fmt.Errorf("%q: %w", rule.Pattern, err)
	}
	if len(rule.Amount) != len(p.trackedIndices) {
		return fmt.Errorf("%q: %w", rule.Pattern, ErrAmountMismatch)
	}
	return nil
}

// RetentionFilter selects the versions to keep out of a list of items.
type RetentionFilter[T any] struct {
	rules           []RetentionRule
	patterns        []pattern
	getVersion      func(T) string
	noMatchBehavior NoMatchBehavior
}

type pattern struct {
	delimiters     []rune
	trackedIndices []int
	segmentCount   int
}

type splitVersion struct {
	raw      string
	segments []string
}

// NewRetentionFilter compiles rules; getVersion extracts the version string of an item.
func NewRetentionFilter[T any](rules []RetentionRule, getVersion func(T) string, noMatchBehavior NoMatchBehavior) (*RetentionFilter[T], error) {
	patterns := make([]pattern, len(rules))
	for i, rule := range rules {
		p, err := parsePattern(rule.Pattern)
		if err != nil {
			return nil, err
		}
		if len(rule.Amount) != len(p.trackedIndices) {
			return nil, ErrAmountMismatch
		}
		patterns[i] = p
	}

	return &RetentionFilter[T]{
		rules:           rules,
		patterns:        patterns,
		getVersion:      getVersion,
		noMatchBehavior: noMatchBehavior,
	}, nil
}

// Filter returns the items to keep, in their original order.
func (f *RetentionFilter[T]) Filter(items []T) ([]T, error) {
	ruleGroups := make(map[int][]splitVersion)
	keep := make(map[string]bool)

	for _, item := range items {
		raw := f.getVersion(item)
		applicable := f.findApplicableRules(raw)

		if len(applicable) == 0 {
			switch f.noMatchBehavior {
			case NoMatchKeep:
				keep[raw] = true
			case NoMatchError:
				return nil, fmt.Errorf("%w: version %q", ErrNoMatchingPattern, raw)
			}
			continue
		}

		for _, idx := range applicable {
			v, _ := splitByPattern(raw, f.patterns[idx])
			ruleGroups[idx] = append(ruleGroups[idx], v)
		}
	}

	for idx, versions := range ruleGroups {
		for _, kept := range retainLevel(versions, f.patterns[idx].trackedIndices, f.rules[idx].Amount, 0) {
			keep[kept] = true
		}
	}

	result := make([]T, 0, len(keep))
	for _, item := range items {
		if keep[f.getVersion(item)] {
			result = append(result, item)
		}
	}
	return result, nil
}

// findApplicableRules returns the rules matching raw. The patterns with the
// most segments win; ties return their union.
func (f *RetentionFilter[T]) findApplicableRules(raw string) []int {
	var (
		maxSegmentCount int
		applicable      []int
	)

	for i, p := range f.patterns {
		if _, err := splitByPattern(raw, p); err != nil {
			continue
		}

		switch {
		case p.segmentCount > maxSegmentCount:
			maxSegmentCount = p.segmentCount
			applicable = []int{i}
		case p.segmentCount == maxSegmentCount:
			applicable = append(applicable, i)
		}
	}

	return applicable
}

// retainLevel groups versions by the segments before the tracked one at
// level, keeps the newest amount values per group and recurses. Past the last
// tracked segment only the newest version survives.
func retainLevel(versions []splitVersion, trackedIndices, amounts []int, level int) []string {
	if len(versions) == 0 {
		return nil
	}
	if level >= len(trackedIndices) {
		best := versions[0]
		for _, v := range versions[1:] {
			if compareSplit(v, best) > 0 {
				best = v
			}
		}
		return []string{best.raw}
	}

	idx := trackedIndices[level]
	groups := make(map[string][]splitVersion)
	for _, v := range versions {
		key := strings.Join(v.segments[:idx], "\x00")
		groups[key] = append(groups[key], v)
	}

	var result []string
	for _, group := range groups {
		byValue := make(map[string][]splitVersion)
		for _, v := range group {
			byValue[v.segments[idx]] = append(byValue[v.segments[idx]], v)
		}

		values := slices.SortedFunc(maps.Keys(byValue), func(a, b string) int {
			return -compareSegments(a, b)
		})
		for _, value := range values[:min(amounts[level], len(values))] {
			result = append(result, retainLevel(byValue[value], trackedIndices, amounts, level+1)...)
		}
	}

	return result
}

func compareSplit(a, b splitVersion) int {
	for i := range a.segments {
		if c := compareSegments(a.segments[i], b.segments[i]); c != 0 {
			return c
		}
	}
	return 0
}

// compareSegments orders version segments the way dpkg orders upstream
// versions, falling back to byte order for characters it cannot order.
func compareSegments(a, b string) int {
	c, err := debversion.CompareParts(a, b)
	if err != nil {
		return strings.Compare(a, b)
	}
	return c
}

// parsePattern parses a pattern such as "*.#.*-*": '*' is an ignored
// segment, '#' a tracked one, anything else delimits.
func parsePattern(s string) (pattern, error) {
	if s == "" {
		return pattern{}, ErrEmptyPattern
	}

	var (
		delimiters     []rune
		trackedIndices []int
		delimBuf       []rune
		segmentCount   int
	)

	for _, r := range s {
		if r != '*' && r != '#' {
			delimBuf = append(delimBuf, r)
			continue
		}

		if segmentCount > 0 {
			if len(delimBuf) == 0 {
				return pattern{}, ErrExpectedDelimiter
			}
			delimiters = append(delimiters, delimBuf[0])
		}
		delimBuf = nil

		if r == '#' {
			trackedIndices = append(trackedIndices, segmentCount)
		}
		segmentCount++
	}

	if segmentCount == 0 {
		return pattern{}, ErrNoSegments
	}

	return pattern{
		delimiters:     delimiters,
		trackedIndices: trackedIndices,
		segmentCount:   segmentCount,
	}, nil
}

// splitByPattern splits s at the pattern's delimiters and checks the segment count.
func splitByPattern(s string, p pattern) (splitVersion, error) {
	segments := strings.FieldsFunc(s, func(r rune) bool {
		return slices.Contains(p.delimiters, r)
	})
	if len(segments) == 0 || len(segments) != p.segmentCount {
		return splitVersion{}, ErrVersionNotMatchPattern
	}
	return splitVersion{raw: s, segments: segments}, nil
}
