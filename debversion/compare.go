package debversion

import (
	"cmp"
	"slices"
	"strings"
)

// order is the sort order of characters inside non-digit segments. '^' stands
// for the end of a segment: it sorts after '~' and before everything else.
const order = "~^ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz+-.:"

const endOfSegment = '^'

// Compare orders two versions by epoch, then upstream version, then revision.
// The result is -1, 0 or +1. An error is returned only for characters the
// comparator has no order for, which a parsed Version cannot contain.
func Compare(a, b *Version) (int, error) {
	if c := cmp.Compare(a.epoch, b.epoch); c != 0 {
		return c, nil
	}
	if c, err := CompareParts(a.upstream, b.upstream); err != nil || c != 0 {
		return c, err
	}
	return CompareParts(a.revision, b.revision)
}

// Compare compares v with other, see Compare.
func (v *Version) Compare(other *Version) (int, error) {
	return Compare(v, other)
}

// Equal reports whether v and other sort equal. "0:1.0" equals "1.0".
func (v *Version) Equal(other *Version) bool {
	c, err := Compare(v, other)
	return err == nil && c == 0
}

// Less reports whether v sorts strictly before other.
func (v *Version) Less(other *Version) bool {
	c, err := Compare(v, other)
	return err == nil && c < 0
}

// CompareStrings parses both strings and compares them.
func CompareStrings(a, b string) (int, error) {
	va, err := Parse(a)
	if err != nil {
		return 0, err
	}
	vb, err := Parse(b)
	if err != nil {
		return 0, err
	}
	return Compare(va, vb)
}

// Sort sorts versions in ascending order. The slice is left untouched when an
// unorderable pair is found.
func Sort(versions []*Version) error {
	sorted := slices.Clone(versions)
	var sortErr error
	slices.SortStableFunc(sorted, func(a, b *Version) int {
		c, err := Compare(a, b)
		if err != nil && sortErr == nil {
			sortErr = err
		}
		return c
	})
	if sortErr != nil {
		return sortErr
	}
	copy(versions, sorted)
	return nil
}

// SplitParts splits s into alternating maximal runs of digits and non-digits.
// "a67bhgs89" yields ["a" "67" "bhgs" "89"]; the empty string yields [""].
func SplitParts(s string) []string {
	if s == "" {
		return []string{""}
	}

	var parts []string
	start := 0
	for i := 1; i <= len(s); i++ {
		if i == len(s) || isDigit(s[i]) != isDigit(s[i-1]) {
			parts = append(parts, s[start:i])
			start = i
		}
	}
	return parts
}

// CompareParts compares an upstream version or a revision segment by segment.
// Missing trailing segments compare as the empty string.
func CompareParts(a, b string) (int, error) {
	partsA, partsB := SplitParts(a), SplitParts(b)

	for i := range max(len(partsA), len(partsB)) {
		var segA, segB string
		if i < len(partsA) {
			segA = partsA[i]
		}
		if i < len(partsB) {
			segB = partsB[i]
		}

		if c, err := CompareSegment(segA, segB); err != nil || c != 0 {
			return c, err
		}
	}

	return 0, nil
}

// CompareSegment compares two segments produced by SplitParts. Numeric
// segments compare by integer value. Against a numeric segment, a non-numeric
// one sorts later unless it is empty or starts with '~'. Two non-numeric
// segments compare character by character in Debian order, the shorter one
// padded with the end-of-segment marker. The result is -1, 0 or +1.
func CompareSegment(a, b string) (int, error) {
	numA, numB := isNumeric(a), isNumeric(b)

	switch {
	case numA && numB:
		return compareNumeric(a, b), nil
	case numA:
		if sortsFirst(b) {
			return 1, nil
		}
		return -1, nil
	case numB:
		if sortsFirst(a) {
			return -1, nil
		}
		return 1, nil
	}

	for i := range max(len(a), len(b)) {
		ca, cb := byte(endOfSegment), byte(endOfSegment)
		if i < len(a) {
			ca = a[i]
		}
		if i < len(b) {
			cb = b[i]
		}

		ra, err := rank(a, ca)
		if err != nil {
			return 0, err
		}
		rb, err := rank(b, cb)
		if err != nil {
			return 0, err
		}
		if c := cmp.Compare(ra, rb); c != 0 {
			return c, nil
		}
	}

	return 0, nil
}

func rank(segment string, c byte) (int, error) {
	idx := strings.IndexByte(order, c)
	if idx == -1 {
		return 0, invalid(segment, "character %q cannot be ordered", c)
	}
	return idx, nil
}

func sortsFirst(segment string) bool {
	return segment == "" || segment[0] == '~'
}

// compareNumeric compares digit strings of any length by value.
func compareNumeric(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if c := cmp.Compare(len(a), len(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
