package debversion

import (
	"math"
	"math/big"
	"regexp"
)

var digitRun = regexp.MustCompile(`[0-9]+`)

// BumpEpoch returns a copy of v with the epoch incremented. A missing epoch
// becomes 1; an epoch at the uint64 limit cannot be bumped.
func (v *Version) BumpEpoch() (*Version, error) {
	if v.epoch == math.MaxUint64 {
		return nil, invalid(v.String(), "epoch %d cannot be incremented", v.epoch)
	}
	return New(v.epoch+1, v.upstream, v.revision)
}

// BumpRevision returns a copy of v with the first number in the revision
// incremented. A missing revision becomes "1"; a revision without any digits
// cannot be bumped.
func (v *Version) BumpRevision() (*Version, error) {
	if v.revision == "" {
		return rebuild(v, "1")
	}

	loc := digitRun.FindStringIndex(v.revision)
	if loc == nil {
		return nil, invalid(v.String(), "revision %q has no number to increment", v.revision)
	}

	n, _ := new(big.Int).SetString(v.revision[loc[0]:loc[1]], 10)
	n.Add(n, big.NewInt(1))

	return rebuild(v, v.revision[:loc[0]]+n.String()+v.revision[loc[1]:])
}

func rebuild(v *Version, revision string) (*Version, error) {
	c := *v
	c.revision = revision
	return Parse(c.String())
}
