package versioner

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/dionysius/venvpack/version"
	"github.com/google/go-github/v80/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSource struct{}

func (failingSource) Read(context.Context) (string, error) {
	return "", errors.New("boom")
}

func newRegistry(t *testing.T) *version.Registry {
	t.Helper()
	r, err := version.NewDefaultRegistry(version.Options{})
	require.NoError(t, err)
	return r
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		options Options
		want    string
		format  version.Format
	}{
		{
			name:    "parse only",
			raw:     "1.2.3",
			options: Options{Format: version.FormatSemVer},
			want:    "1.2.3",
			format:  version.FormatSemVer,
		},
		{
			name:    "same target",
			raw:     "1.2.3",
			options: Options{Format: version.FormatSemVer, Target: version.FormatSemVer},
			want:    "1.2.3",
			format:  version.FormatSemVer,
		},
		{
			name:    "semver to debian",
			raw:     "1.2.3-beta.1",
			options: Options{Format: version.FormatSemVer, Target: version.FormatDebian},
			want:    "1.2.3~beta.1",
			format:  version.FormatDebian,
		},
		{
			name: "pep440 to debian with revision",
			raw:  "1.2.3rc1",
			options: Options{
				Format:  version.FormatPEP440,
				Target:  version.FormatDebian,
				Actions: []version.Action{version.ActionBumpRevision},
			},
			want:   "1.2.3~rc1-1",
			format: version.FormatDebian,
		},
		{
			name: "actions in order",
			raw:  "1.2.3",
			options: Options{
				Format:  version.FormatSemVer,
				Actions: []version.Action{version.ActionIncrementMinor, version.ActionIncrementPatch},
			},
			want:   "1.3.1",
			format: version.FormatSemVer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New(newRegistry(t), &StaticSource{Value: tt.raw}, tt.options)

			c, err := v.Resolve(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.String())
			assert.Equal(t, tt.format, c.ParsedBy)
		})
	}
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name    string
		source  Source
		options Options
		wantErr error
	}{
		{
			name:    "invalid version",
			source:  &StaticSource{Value: "not a version"},
			options: Options{Format: version.FormatSemVer},
			wantErr: version.ErrInvalidVersion,
		},
		{
			name:    "unknown format",
			source:  &StaticSource{Value: "1.0"},
			options: Options{Format: "rpm"},
			wantErr: version.ErrUnknownFormat,
		},
		{
			name:    "unconvertable",
			source:  &StaticSource{Value: "1.0-1"},
			options: Options{Format: version.FormatDebian, Target: version.FormatPEP440},
			wantErr: version.ErrUnconvertable,
		},
		{
			name:    "unsupported action",
			source:  &StaticSource{Value: "1.0"},
			options: Options{Format: version.FormatPEP440, Actions: []version.Action{version.ActionBumpRevision}},
			wantErr: version.ErrUnsupportedAction,
		},
		{
			name:    "empty",
			source:  &StaticSource{Value: "  \n"},
			options: Options{Format: version.FormatSemVer},
			wantErr: ErrEmptyVersion,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(newRegistry(t), tt.source, tt.options).Resolve(context.Background())
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("source failure", func(t *testing.T) {
		_, err := New(newRegistry(t), failingSource{}, Options{Format: version.FormatSemVer}).Resolve(context.Background())
		assert.ErrorContains(t, err, "boom")
	})
}

func TestNewSource(t *testing.T) {
	tests := []struct {
		name    string
		options SourceOptions
		want    Source
		wantErr bool
	}{
		{"static", SourceOptions{Type: SourceStatic, Value: "1.0"}, &StaticSource{Value: "1.0"}, false},
		{"file", SourceOptions{Type: SourceFile, Path: "VERSION"}, &FileSource{Path: "VERSION"}, false},
		{"file without path", SourceOptions{Type: SourceFile}, nil, true},
		{"command", SourceOptions{Type: SourceCommand, Command: []string{"git", "describe"}}, &CommandSource{Command: []string{"git", "describe"}}, false},
		{"command without argv", SourceOptions{Type: SourceCommand}, nil, true},
		{"control default field", SourceOptions{Type: SourceControl, Path: "debian/control"}, &ControlSource{Path: "debian/control", Field: DefaultControlField}, false},
		{"control without path", SourceOptions{Type: SourceControl}, nil, true},
		{"github invalid repository", SourceOptions{Type: SourceGitHub, Repository: "owner"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSource(tt.options, nil, nil)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, s)
		})
	}

	t.Run("unknown", func(t *testing.T) {
		_, err := NewSource(SourceOptions{Type: "svn"}, nil, nil)
		assert.ErrorIs(t, err, ErrUnknownSource)
	})
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "VERSION")
	require.NoError(t, os.WriteFile(path, []byte("\n  2.1.0  \nignored\n"), 0o644))

	raw, err := (&FileSource{Path: path}).Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2.1.0", raw)

	_, err = (&FileSource{Path: filepath.Join(dir, "missing")}).Read(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCommandSource(t *testing.T) {
	raw, err := (&CommandSource{Command: []string{"sh", "-c", "echo; echo 3.4.5"}}).Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "3.4.5", raw)

	_, err = (&CommandSource{Command: []string{"sh", "-c", "echo failed >&2; exit 3"}}).Read(context.Background())
	assert.ErrorContains(t, err, "failed")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = (&CommandSource{Command: []string{"sh", "-c", "echo 1.0"}}).Read(ctx)
	assert.Error(t, err)
}

func TestControlSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "control")
	require.NoError(t, os.WriteFile(path, []byte("Package: python3-foo\nVersion: 1:2.0-3\nArchitecture: all\n"), 0o644))

	raw, err := (&ControlSource{Path: path, Field: DefaultControlField}).Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1:2.0-3", raw)

	_, err = (&ControlSource{Path: path, Field: "Source"}).Read(context.Background())
	assert.Error(t, err)
}

func TestGitHubSource(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/owner/project/releases/latest", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, `{"tag_name": "v1.4.0", "name": "Release 1.4.0"}`)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := github.NewClient(server.Client())
	baseURL, err := url.Parse(server.URL + "/")
	require.NoError(t, err)
	client.BaseURL = baseURL

	s, err := NewSource(SourceOptions{Type: SourceGitHub, Repository: "owner/project"}, client, nil)
	require.NoError(t, err)

	raw, err := s.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.4.0", raw)

	s, err = NewSource(SourceOptions{Type: SourceGitHub, Repository: "owner/missing"}, client, nil)
	require.NoError(t, err)
	_, err = s.Read(context.Background())
	assert.Error(t, err)
}
