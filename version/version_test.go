package version

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPattern = `^release-(?P<major>\d+)_(?P<minor>\d+)_(?P<patch>\d+)(?:-(?P<prerelease>[0-9A-Za-z.]+))?$`

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewDefaultRegistry(Options{RegexPattern: testPattern})
	require.NoError(t, err)
	return r
}

func TestNewDefaultRegistry(t *testing.T) {
	r, err := NewDefaultRegistry(Options{})
	require.NoError(t, err)
	assert.Equal(t, []Format{FormatDebian, FormatPEP440, FormatSemVer}, r.Formats())

	_, err = r.Parser(FormatRegex)
	assert.ErrorIs(t, err, ErrUnknownFormat)

	r = newTestRegistry(t)
	assert.Equal(t, []Format{FormatDebian, FormatPEP440, FormatRegex, FormatSemVer}, r.Formats())
}

func TestNewRegistryDuplicate(t *testing.T) {
	_, err := NewRegistry(NewDebianParser(), NewDebianParser())
	assert.ErrorIs(t, err, ErrDuplicateFormat)
}

func TestIdentityCapability(t *testing.T) {
	r := newTestRegistry(t)
	for _, f := range r.Formats() {
		t.Run(f.String(), func(t *testing.T) {
			p, err := r.Parser(f)
			require.NoError(t, err)
			assert.Equal(t, lossless, p.CanConvertFrom(f))
			assert.Equal(t, lossless, p.CanConvertTo(f))
		})
	}
}

func TestParse(t *testing.T) {
	r := newTestRegistry(t)

	tests := []struct {
		name   string
		format Format
		input  string
		want   string
		fields map[string]string
	}{
		{
			name:   "debian full",
			format: FormatDebian,
			input:  "1:2.30-1ubuntu1",
			want:   "1:2.30-1ubuntu1",
			fields: map[string]string{"epoch": "1", "upstream": "2.30", "revision": "1ubuntu1"},
		},
		{
			name:   "debian zero epoch",
			format: FormatDebian,
			input:  "0:1.0",
			want:   "1.0",
			fields: map[string]string{"epoch": "0", "upstream": "1.0", "revision": ""},
		},
		{
			name:   "semver",
			format: FormatSemVer,
			input:  "1.2.3-rc.1+build.5",
			want:   "1.2.3-rc.1+build.5",
			fields: map[string]string{"major": "1", "minor": "2", "patch": "3", "prerelease": "rc.1", "metadata": "build.5"},
		},
		{
			name:   "pep440",
			format: FormatPEP440,
			input:  "1!2.0rc1",
			want:   "1!2.0rc1",
			fields: map[string]string{"epoch": "1", "release": "2.0", "pre": "rc1"},
		},
		{
			name:   "regex",
			format: FormatRegex,
			input:  "release-4_5_6-beta.2",
			want:   "4.5.6-beta.2",
			fields: map[string]string{"major": "4", "minor": "5", "patch": "6", "prerelease": "beta.2", "metadata": ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := r.Parse(tt.input, tt.format)
			require.NoError(t, err)
			assert.Equal(t, tt.format, c.ParsedBy)
			assert.Equal(t, tt.want, c.String())
			assert.Equal(t, tt.fields, c.Value.Fields())
		})
	}
}

func TestParseInvalid(t *testing.T) {
	r := newTestRegistry(t)

	tests := []struct {
		format Format
		input  string
	}{
		{FormatDebian, "1.0:0"},
		{FormatDebian, ""},
		{FormatDebian, "1.0-"},
		{FormatSemVer, "1.2"},
		{FormatSemVer, "v1.2.3"},
		{FormatSemVer, "not a version"},
		{FormatPEP440, "1.0-foo-bar"},
		{FormatRegex, "release-1.2.3"},
	}

	for _, tt := range tests {
		t.Run(tt.format.String()+"/"+tt.input, func(t *testing.T) {
			_, err := r.Parse(tt.input, tt.format)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidVersion)

			var invalidErr *InvalidVersionError
			require.True(t, errors.As(err, &invalidErr))
			assert.Equal(t, tt.format, invalidErr.Format)
			assert.Equal(t, tt.input, invalidErr.Version)
		})
	}
}

func TestParseUnknownFormat(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Parse("1.0", Format("rpm"))
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestSemVerOptions(t *testing.T) {
	tests := []struct {
		name    string
		options SemVerOptions
		input   string
		want    string
		wantErr bool
	}{
		{"strict rejects partial", SemVerOptions{}, "1.2", "", true},
		{"partial", SemVerOptions{AllowPartial: true}, "v1.2", "1.2.0", false},
		{"coerce tag", SemVerOptions{Coerce: true}, "app-v2.7", "2.7.0", false},
		{"coerce keeps prerelease", SemVerOptions{Coerce: true}, "build 3.1.4-rc.2 final", "3.1.4-rc.2", false},
		{"coerce nothing", SemVerOptions{Coerce: true}, "latest", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewSemVerParser(tt.options).Parse(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidVersion)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.String())
		})
	}
}

func TestNewRegexParser(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
	}{
		{"empty", ""},
		{"does not compile", `(?P<major>\d+`},
		{"missing patch", `(?P<major>\d+)\.(?P<minor>\d+)`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegexParser(tt.pattern, SemVerOptions{})
			assert.ErrorIs(t, err, ErrInvalidPattern)
		})
	}

	_, err := NewDefaultRegistry(Options{RegexPattern: `(?P<major>\d+)`})
	assert.ErrorIs(t, err, ErrInvalidPattern)
}

func TestSerializeRoundTrip(t *testing.T) {
	r := newTestRegistry(t)

	tests := []struct {
		format Format
		input  string
	}{
		{FormatDebian, "1:2.30-1ubuntu1"},
		{FormatDebian, "0:2:3"},
		{FormatDebian, "1.0~rc1"},
		{FormatSemVer, "1.2.3-rc.1+build.5"},
		{FormatPEP440, "1!2.0rc1.post2.dev3+local.7"},
		{FormatRegex, "release-4_5_6-beta.2"},
	}

	for _, tt := range tests {
		t.Run(tt.format.String()+"/"+tt.input, func(t *testing.T) {
			c, err := r.Parse(tt.input, tt.format)
			require.NoError(t, err)

			raw, err := r.Serialize(c)
			require.NoError(t, err)

			restored, err := r.Deserialize(raw, tt.format)
			require.NoError(t, err)
			assert.Equal(t, c.ParsedBy, restored.ParsedBy)
			assert.Equal(t, c.String(), restored.String())

			cmp, err := r.Compare(c, restored)
			require.NoError(t, err)
			assert.Equal(t, 0, cmp)
		})
	}
}

func TestSerializeWrongFormat(t *testing.T) {
	sv, err := NewSemVerParser(SemVerOptions{}).Parse("1.0.0")
	require.NoError(t, err)

	_, err = NewDebianParser().Serialize(sv)
	assert.ErrorIs(t, err, ErrFormatMismatch)
}

func TestCompare(t *testing.T) {
	r := newTestRegistry(t)

	tests := []struct {
		format Format
		a, b   string
		want   int
	}{
		{FormatDebian, "1.0~rc1", "1.0", -1},
		{FormatDebian, "1:0.1", "2.0", 1},
		{FormatDebian, "0:1.0", "1.0", 0},
		{FormatSemVer, "1.2.3-alpha", "1.2.3", -1},
		{FormatSemVer, "1.10.0", "1.9.0", 1},
		{FormatPEP440, "1.0.dev1", "1.0a1", -1},
		{FormatPEP440, "1.0", "1.0.post1", -1},
		{FormatRegex, "release-1_0_0", "release-1_0_0", 0},
	}

	for _, tt := range tests {
		t.Run(tt.format.String()+"/"+tt.a+"/"+tt.b, func(t *testing.T) {
			a, err := r.Parse(tt.a, tt.format)
			require.NoError(t, err)
			b, err := r.Parse(tt.b, tt.format)
			require.NoError(t, err)

			got, err := r.Compare(a, b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, sign(got))
		})
	}
}

func TestCompareFormatMismatch(t *testing.T) {
	r := newTestRegistry(t)

	deb, err := r.Parse("1.0", FormatDebian)
	require.NoError(t, err)
	sv, err := r.Parse("1.0.0", FormatSemVer)
	require.NoError(t, err)

	_, err = r.Compare(deb, sv)
	assert.ErrorIs(t, err, ErrFormatMismatch)
}

func TestSortAndLatest(t *testing.T) {
	r := newTestRegistry(t)

	var cs []Container
	for _, s := range []string{"1.0-1", "1.0~rc1", "1:0.5", "1.0", "1.0-1~bpo1"} {
		c, err := r.Parse(s, FormatDebian)
		require.NoError(t, err)
		cs = append(cs, c)
	}

	latest, ok, err := r.Latest(cs)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1:0.5", latest.String())

	require.NoError(t, r.Sort(cs))
	var got []string
	for _, c := range cs {
		got = append(got, c.String())
	}
	assert.Equal(t, []string{"1.0~rc1", "1.0", "1.0-1~bpo1", "1.0-1", "1:0.5"}, got)

	_, ok, err = r.Latest(nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSortMixedFormats(t *testing.T) {
	r := newTestRegistry(t)

	deb, err := r.Parse("2.0", FormatDebian)
	require.NoError(t, err)
	sv, err := r.Parse("1.0.0", FormatSemVer)
	require.NoError(t, err)

	cs := []Container{deb, sv}
	assert.ErrorIs(t, r.Sort(cs), ErrFormatMismatch)
	assert.Equal(t, FormatDebian, cs[0].ParsedBy)
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}
