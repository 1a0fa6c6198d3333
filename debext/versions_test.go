package debext

import (
	"testing"

	"github.com/dionysius/venvpack/debversion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseAll(t *testing.T, raw ...string) []*debversion.Version {
	t.Helper()
	versions := make([]*debversion.Version, len(raw))
	for i, s := range raw {
		v, err := debversion.Parse(s)
		require.NoError(t, err)
		versions[i] = v
	}
	return versions
}

func TestLatestVersion(t *testing.T) {
	latest, ok := LatestVersion(parseAll(t, "1.0-1", "1.0~rc1", "1.0-1+b1", "1.0"))
	require.True(t, ok)
	assert.Equal(t, "1.0-1+b1", latest.String())

	_, ok = LatestVersion(nil)
	assert.False(t, ok)
}

func TestContainsVersion(t *testing.T) {
	versions := parseAll(t, "1.0-1", "2.0")

	tests := []struct {
		version string
		want    bool
	}{
		{"1.0-1", true},
		{"0:1.0-1", true},
		{"2.0", true},
		{"2.0-0", false},
		{"1.0-2", false},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			assert.Equal(t, tt.want, ContainsVersion(versions, debversion.MustParse(tt.version)))
		})
	}
}

func TestUniqueVersions(t *testing.T) {
	input := parseAll(t, "2.0", "1.0", "0:1.0", "1.0~rc1", "2.0")

	unique, err := UniqueVersions(input)
	require.NoError(t, err)
	assert.Equal(t, []string{"1.0~rc1", "1.0", "2.0"}, versionStrings(unique))
	assert.Equal(t, "2.0", input[0].String(), "input order is kept")
}
