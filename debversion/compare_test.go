package debversion

import (
	"fmt"
	"math"
	"testing"

	"github.com/aptly-dev/aptly/deb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitParts(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"a67bhgs89", []string{"a", "67", "bhgs", "89"}},
		{"", []string{""}},
		{"~33a67bhgs89", []string{"~", "33", "a", "67", "bhgs", "89"}},
		{"1.0", []string{"1", ".", "0"}},
		{"123", []string{"123"}},
		{"~", []string{"~"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitParts(tt.input))
		})
	}
}

func TestCompareSegment(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "a", -1},
		{"09", "10", -1},
		{"9", "10", -1},
		{"~~", "~", -1},
		{"~~", "~~a", -1},
		{"~~", "~~", 0},
		{"~", "", -1},
		{"30", "30", 0},
		{"007", "7", 0},
		{"a", "", 1},
		{"Z", "a", -1},
		{"a", "+", -1},
		{"+", ".", -1},
		{".", ":", -1},
		{"", "1", -1},
		{"~rc", "1", -1},
		{"a", "1", 1},
		{"1", "", 1},
		{"123456789012345678901234567890", "123456789012345678901234567891", -1},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q vs %q", tt.a, tt.b), func(t *testing.T) {
			got, err := CompareSegment(tt.a, tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			reverse, err := CompareSegment(tt.b, tt.a)
			require.NoError(t, err)
			assert.Equal(t, -tt.want, reverse)
		})
	}
}

func TestCompareSegmentUnorderable(t *testing.T) {
	_, err := CompareSegment("a_b", "a_c")
	assert.ErrorIs(t, err, ErrInvalidVersion)

	_, err = CompareParts("1.0", "1.0é")
	assert.ErrorIs(t, err, ErrInvalidVersion)
}

func TestSort(t *testing.T) {
	input := []string{"~~a", "~", "~~", "a1", "1.0", "1.0-1", "1.0~bpo1", "1.0-1~bpo1"}
	want := []string{"~~", "~~a", "~", "1.0~bpo1", "1.0", "1.0-1~bpo1", "1.0-1", "a1"}

	versions := make([]*Version, len(input))
	for i, s := range input {
		versions[i] = MustParse(s)
	}

	require.NoError(t, Sort(versions))

	got := make([]string, len(versions))
	for i, v := range versions {
		got[i] = v.String()
	}
	assert.Equal(t, want, got)
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"0:1.0", "1.0", 0},
		{"1.0", "1.0", 0},
		{"1:1.0", "2.0", 1},
		{"1:1.0", "1:2.0", -1},
		{"1.0~rc1", "1.0", -1},
		{"1.0~rc1", "1.0~rc2", -1},
		{"1.0-1", "1.0-2", -1},
		{"1.0-2", "1.0-10", -1},
		{"1.0", "1.0-1", -1},
		{"1.2.3~1", "1.2.3~1.1", -1},
		{"1.2.3~1.1", "1.2.3", -1},
		{"2.30", "2.4", 1},
		{"1.0a", "1.0.1", -1},
	}

	for _, tt := range tests {
		t.Run(tt.a+" vs "+tt.b, func(t *testing.T) {
			got, err := CompareStrings(tt.a, tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			reverse, err := CompareStrings(tt.b, tt.a)
			require.NoError(t, err)
			assert.Equal(t, -tt.want, reverse)
		})
	}
}

func TestCompareStringsInvalid(t *testing.T) {
	_, err := CompareStrings("1.0:0", "1.0")
	assert.ErrorIs(t, err, ErrInvalidVersion)

	_, err = CompareStrings("1.0", "")
	assert.ErrorIs(t, err, ErrInvalidVersion)
}

// TestCompareMatchesAptly cross-checks well-formed versions against aptly's
// implementation of the dpkg algorithm.
func TestCompareMatchesAptly(t *testing.T) {
	versions := []string{
		"1.0", "1.0-1", "1.0-2", "1.0-10", "1.0~rc1", "1.0~rc1-1", "1.0+dfsg-1",
		"1.0.1", "1.0a", "1.0b", "1:0.9", "2:0.1", "1.0-1~bpo11+1", "1.0-0ubuntu1",
		"2.4", "2.30", "10.0", "1.0~~", "1.0~",
	}

	sign := func(n int) int {
		switch {
		case n < 0:
			return -1
		case n > 0:
			return 1
		}
		return 0
	}

	for _, a := range versions {
		for _, b := range versions {
			got, err := CompareStrings(a, b)
			require.NoError(t, err)
			assert.Equal(t, sign(deb.CompareVersions(a, b)), got, "%s vs %s", a, b)
		}
	}
}

func TestOrderingProperties(t *testing.T) {
	inputs := []string{
		"~~", "~~a", "~", "1.0~bpo1", "1.0", "1.0-1~bpo1", "1.0-1", "a1",
		"1:0.1", "0:1.0", "1.0+b1", "1.0.0", "2.0~rc1-3",
	}
	versions := make([]*Version, len(inputs))
	for i, s := range inputs {
		versions[i] = MustParse(s)
	}

	for _, a := range versions {
		for _, b := range versions {
			ab, err := Compare(a, b)
			require.NoError(t, err)
			ba, err := Compare(b, a)
			require.NoError(t, err)
			// exactly one of <, ==, > holds and it is antisymmetric
			assert.Equal(t, -ab, ba, "%s vs %s", a, b)

			for _, c := range versions {
				bc, err := Compare(b, c)
				require.NoError(t, err)
				if ab < 0 && bc < 0 {
					ac, err := Compare(a, c)
					require.NoError(t, err)
					assert.Negative(t, ac, "%s < %s < %s", a, b, c)
				}
			}
		}
	}
}

func TestBumpRevision(t *testing.T) {
	tests := []struct {
		version string
		want    string
	}{
		{"1.0", "1.0-1"},
		{"1.0-1", "1.0-2"},
		{"1.0-9", "1.0-10"},
		{"1.0-0ubuntu1", "1.0-1ubuntu1"},
		{"2:1.0-1~bpo11+1", "2:1.0-2~bpo11+1"},
		{"1.0-ubuntu3", "1.0-ubuntu4"},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			v, err := MustParse(tt.version).BumpRevision()
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.String())
		})
	}

	t.Run("repeated bump never resets", func(t *testing.T) {
		v, err := MustParse("1.0").BumpRevision()
		require.NoError(t, err)
		assert.Equal(t, "1", v.Revision())

		v, err = v.BumpRevision()
		require.NoError(t, err)
		assert.Equal(t, "2", v.Revision())
	})

	t.Run("revision without digits", func(t *testing.T) {
		_, err := MustParse("1.0-abc").BumpRevision()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidVersion)
		assert.Contains(t, err.Error(), `"abc"`)
	})

	t.Run("original is untouched", func(t *testing.T) {
		orig := MustParse("1.0-1")
		_, err := orig.BumpRevision()
		require.NoError(t, err)
		assert.Equal(t, "1.0-1", orig.String())
	})
}

func TestBumpEpoch(t *testing.T) {
	tests := []struct {
		version string
		want    string
	}{
		{"1.0", "1:1.0"},
		{"0:1.0-1", "1:1.0-1"},
		{"3:1.0-rc1-2", "4:1.0-rc1-2"},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			v, err := MustParse(tt.version).BumpEpoch()
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.String())
		})
	}
}

func TestBumpEpochOverflow(t *testing.T) {
	v, err := New(math.MaxUint64, "1.0", "1")
	require.NoError(t, err)

	_, err = v.BumpEpoch()
	require.ErrorIs(t, err, ErrInvalidVersion)
	assert.Contains(t, err.Error(), "cannot be incremented")
}
