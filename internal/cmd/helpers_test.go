package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/dionysius/venvpack/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T) *version.Registry {
	t.Helper()
	registry, err := version.NewDefaultRegistry(version.Options{})
	require.NoError(t, err)
	return registry
}

func TestRenderVersion(t *testing.T) {
	registry := newRegistry(t)
	c, err := registry.Parse("1:2.0-3", version.FormatDebian)
	require.NoError(t, err)

	tests := []struct {
		name     string
		template string
		want     string
	}{
		{"default", defaultTemplate, "1:2.0-3\n"},
		{"format", "{{ .Format }}", "debian\n"},
		{"parts", "{{ .Parts.upstream }}/{{ .Parts.revision }}", "2.0/3\n"},
		{"sprig", `{{ .Version | replace ":" "_" | upper }}`, "1_2.0-3\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, renderVersion(&buf, tt.template, c))
			assert.Equal(t, tt.want, buf.String())
		})
	}

	t.Run("invalid template", func(t *testing.T) {
		var buf bytes.Buffer
		err := renderVersion(&buf, "{{ .Version", c)
		assert.ErrorContains(t, err, "invalid template")
	})

	t.Run("failing template", func(t *testing.T) {
		var buf bytes.Buffer
		err := renderVersion(&buf, "{{ .Missing }}", c)
		assert.ErrorContains(t, err, "failed to render")
	})
}

func TestCompareSymbol(t *testing.T) {
	assert.Equal(t, "<", compareSymbol(-1))
	assert.Equal(t, "=", compareSymbol(0))
	assert.Equal(t, ">", compareSymbol(2))
}

func TestArgsOrLines(t *testing.T) {
	lines, err := argsOrLines([]string{"1.0", "2.0"}, strings.NewReader("ignored\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"1.0", "2.0"}, lines)

	lines, err = argsOrLines(nil, strings.NewReader("1.0\n\n  2.0~rc1 \n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"1.0", "2.0~rc1"}, lines)
}

func TestApplyActions(t *testing.T) {
	registry := newRegistry(t)
	c, err := registry.Parse("1.2.3", version.FormatSemVer)
	require.NoError(t, err)

	bumped, err := applyActions(registry, c, []string{"increment-major", "increment-patch"})
	require.NoError(t, err)
	assert.Equal(t, "2.0.1", bumped.String())

	_, err = applyActions(registry, c, []string{"bump-epoch"})
	assert.ErrorIs(t, err, version.ErrUnsupportedAction)
}

func TestParseAll(t *testing.T) {
	registry := newRegistry(t)

	cs, err := parseAll(registry, []string{"1.0", "1.0~rc1"}, version.FormatDebian)
	require.NoError(t, err)
	require.NoError(t, registry.Sort(cs))
	assert.Equal(t, "1.0~rc1", cs[0].String())

	_, err = parseAll(registry, []string{"1.0", "not valid"}, version.FormatDebian)
	assert.ErrorIs(t, err, version.ErrInvalidVersion)
}

func TestWriteFormats(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeFormats(&buf, newRegistry(t)))

	out := buf.String()
	assert.Contains(t, out, "debian   actions: bump-epoch, bump-revision")
	assert.Contains(t, out, "pep440   actions: -")
	assert.Contains(t, out, "from\\to  debian   pep440   semver")
	assert.NotContains(t, out, "regex")

	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "semver   ") && !strings.Contains(line, "actions") {
			assert.Equal(t, "semver   lossless -        lossless", strings.TrimRight(line, " "))
		}
	}
}

func TestCapabilitySymbol(t *testing.T) {
	assert.Equal(t, "-", capabilitySymbol(version.Capability{}))
	assert.Equal(t, "lossy", capabilitySymbol(version.Capability{Supported: true}))
	assert.Equal(t, "lossless", capabilitySymbol(version.Capability{Supported: true, Lossless: true}))
}
