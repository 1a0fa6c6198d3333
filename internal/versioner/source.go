package versioner

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/dionysius/venvpack/debext"
	"github.com/google/go-github/v80/github"
)

// SourceType selects where the raw version string is read from
type SourceType string

const (
	SourceStatic  SourceType = "static"
	SourceFile    SourceType = "file"
	SourceCommand SourceType = "command"
	SourceControl SourceType = "control"
	SourceGitHub  SourceType = "github"
)

// DefaultControlField is read by control sources without a configured field
const DefaultControlField = "Version"

var (
	ErrUnknownSource = errors.New("unknown version source")
	ErrEmptyVersion  = errors.New("version source returned an empty version")
)

// SourceOptions configures a Source. Only the fields of the selected type are used.
type SourceOptions struct {
	Type       SourceType `yaml:"type"`
	Value      string     `yaml:"value,omitempty"`      // static
	Path       string     `yaml:"path,omitempty"`       // file, control
	Command    []string   `yaml:"command,omitempty"`    // command argv
	Repository string     `yaml:"repository,omitempty"` // github owner/repo
	Field      string     `yaml:"field,omitempty"`      // control
}

// Source reads a raw version string
type Source interface {
	Read(ctx context.Context) (string, error)
}

// NewSource creates the source selected by options. The GitHub client is only
// needed for github sources, the verifier only for clearsigned control files.
func NewSource(options SourceOptions, client *github.Client, verifier *debext.Verifier) (Source, error) {
	switch options.Type {
	case SourceStatic:
		return &StaticSource{Value: options.Value}, nil
	case SourceFile:
		if options.Path == "" {
			return nil, errors.New("file source requires a path")
		}
		return &FileSource{Path: options.Path}, nil
	case SourceCommand:
		if len(options.Command) == 0 {
			return nil, errors.New("command source requires a command")
		}
		return &CommandSource{Command: options.Command}, nil
	case SourceControl:
		if options.Path == "" {
			return nil, errors.New("control source requires a path")
		}
		field := options.Field
		if field == "" {
			field = DefaultControlField
		}
		return &ControlSource{Path: options.Path, Field: field, verifier: verifier}, nil
	case SourceGitHub:
		owner, repo, ok := strings.Cut(options.Repository, "/")
		if !ok || owner == "" || repo == "" {
			return nil, fmt.Errorf("repository must be in format 'owner/repo', got: %s", options.Repository)
		}
		if client == nil {
			client = github.NewClient(nil)
		}
		return &GitHubSource{client: client, owner: owner, repo: repo}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, options.Type)
	}
}

// StaticSource returns a fixed value
type StaticSource struct {
	Value string
}

func (s *StaticSource) Read(context.Context) (string, error) {
	return firstLine([]byte(s.Value))
}

// FileSource reads the first non-empty line of a file
type FileSource struct {
	Path string
}

func (s *FileSource) Read(context.Context) (string, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return "", err
	}
	return firstLine(data)
}

// CommandSource runs a command and reads the first non-empty line of its output
type CommandSource struct {
	Command []string
}

func (s *CommandSource) Read(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, s.Command[0], s.Command[1:]...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%s: %w: %s", s.Command[0], err, msg)
		}
		return "", fmt.Errorf("%s: %w", s.Command[0], err)
	}
	return firstLine(out)
}

// ControlSource reads a field of the first stanza of a Debian control file
type ControlSource struct {
	Path     string
	Field    string
	verifier *debext.Verifier
}

func (s *ControlSource) Read(context.Context) (string, error) {
	value, err := debext.ReadControlField(s.Path, s.Field, s.verifier)
	if err != nil {
		return "", err
	}
	if value == "" {
		return "", fmt.Errorf("%w: field %s of %s", ErrEmptyVersion, s.Field, s.Path)
	}
	return value, nil
}

// GitHubSource reads the tag of the latest release of a repository
type GitHubSource struct {
	client *github.Client
	owner  string
	repo   string
}

func (s *GitHubSource) Read(ctx context.Context) (string, error) {
	release, _, err := s.client.Repositories.GetLatestRelease(ctx, s.owner, s.repo)
	if err != nil {
		return "", fmt.Errorf("latest release of %s/%s: %w", s.owner, s.repo, err)
	}

	tag := release.GetTagName()
	slog.Debug("Latest release found", "repository", s.owner+"/"+s.repo, "tag", tag)

	return firstLine([]byte(strings.TrimPrefix(tag, "v")))
}

func firstLine(data []byte) (string, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			return line, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", ErrEmptyVersion
}
