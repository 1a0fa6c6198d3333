package debversion

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	epochPattern    = regexp.MustCompile(`^[0-9]+$`)
	revisionPattern = regexp.MustCompile(`^[A-Za-z0-9+.~]+$`)

	// upstream character classes, indexed by [hasEpoch][hasRevision]
	upstreamPatterns = [2][2]*regexp.Regexp{
		{regexp.MustCompile(`^[A-Za-z0-9.+~]+$`), regexp.MustCompile(`^[A-Za-z0-9.+~-]+$`)},
		{regexp.MustCompile(`^[A-Za-z0-9.+~:]+$`), regexp.MustCompile(`^[A-Za-z0-9.+~:-]+$`)},
	}
)

// Version is a parsed Debian package version: [epoch:]upstream[-revision].
// A Version is immutable; transformations return a new value.
type Version struct {
	epoch    uint64
	upstream string
	revision string
	// explicitEpoch records a literal "0:" that must survive serialization
	// because the upstream version contains a colon.
	explicitEpoch bool
}

// Parse parses a Debian package version string into its components.
// The epoch is everything before the first ":", the revision everything after
// the last "-". An epoch of 0 is equivalent to no epoch.
func Parse(s string) (*Version, error) {
	rest := s
	epoch, hasEpoch := "", false
	if before, after, ok := strings.Cut(rest, ":"); ok {
		epoch, rest, hasEpoch = before, after, true
	}

	upstream, revision, hasRevision := rest, "", false
	if idx := strings.LastIndex(rest, "-"); idx != -1 {
		upstream, revision, hasRevision = rest[:idx], rest[idx+1:], true
	}

	return build(s, epoch, hasEpoch, upstream, revision, hasRevision)
}

// MustParse is like Parse but panics on invalid input. Meant for tests and constants.
func MustParse(s string) *Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// New builds a Version from its parts. An empty revision means no revision.
func New(epoch uint64, upstream, revision string) (*Version, error) {
	raw := upstream
	if revision != "" {
		raw += "-" + revision
	}
	epochStr := ""
	if epoch > 0 || strings.Contains(upstream, ":") {
		epochStr = strconv.FormatUint(epoch, 10)
		raw = epochStr + ":" + raw
	}
	return build(raw, epochStr, epochStr != "", upstream, revision, revision != "")
}

func build(raw, epoch string, hasEpoch bool, upstream, revision string, hasRevision bool) (*Version, error) {
	v := &Version{upstream: upstream, revision: revision}

	if hasEpoch {
		if !epochPattern.MatchString(epoch) {
			return nil, invalid(raw, "epoch %q must be a non-negative integer", epoch)
		}
		n, err := strconv.ParseUint(epoch, 10, 64)
		if err != nil {
			return nil, invalid(raw, "epoch %q is out of range", epoch)
		}
		v.epoch = n
	}

	if hasRevision && !revisionPattern.MatchString(revision) {
		if revision == "" {
			return nil, invalid(raw, "revision is empty")
		}
		return nil, invalid(raw, "revision %q may only contain letters, digits and + . ~", revision)
	}

	if upstream == "" {
		return nil, invalid(raw, "upstream version is empty")
	}
	if !upstreamPatterns[b2i(hasEpoch)][b2i(hasRevision)].MatchString(upstream) {
		allowed := "letters, digits and . + ~"
		if hasEpoch {
			allowed += " :"
		}
		if hasRevision {
			allowed += " -"
		}
		return nil, invalid(raw, "upstream version %q may only contain %s", upstream, allowed)
	}

	v.explicitEpoch = v.epoch == 0 && strings.Contains(upstream, ":")
	return v, nil
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Epoch returns the epoch, 0 when absent.
func (v *Version) Epoch() uint64 {
	return v.epoch
}

// Upstream returns the upstream version.
func (v *Version) Upstream() string {
	return v.upstream
}

// Revision returns the Debian revision, empty when absent.
func (v *Version) Revision() string {
	return v.revision
}

// String reconstructs the version as epoch:upstream-revision, omitting absent parts.
func (v *Version) String() string {
	var b strings.Builder
	if v.epoch > 0 || v.explicitEpoch {
		b.WriteString(strconv.FormatUint(v.epoch, 10))
		b.WriteByte(':')
	}
	b.WriteString(v.upstream)
	if v.revision != "" {
		b.WriteByte('-')
		b.WriteString(v.revision)
	}
	return b.String()
}
