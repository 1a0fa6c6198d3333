// Package store looks up the versions a package already has in an APT archive.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"slices"

	"github.com/alitto/pond/v2"
	"github.com/aptly-dev/aptly/deb"
	"github.com/dionysius/venvpack/debext"
	"github.com/dionysius/venvpack/debversion"
	"github.com/dionysius/venvpack/internal/common"
)

// FlatDistribution selects a flat repository without a dists/ tree
const FlatDistribution = "/"

var (
	ErrNoVersions      = errors.New("no published versions found")
	ErrNoIndices       = errors.New("no package indices found in release")
	ErrNoUnusedVersion = errors.New("no unused version found")
)

// Options select the archive and the packages to look at
type Options struct {
	URL           *url.URL
	Distribution  string
	Components    []string // empty means all listed in Release
	Architectures []string // empty means all listed in Release, "source" for Sources
	Packages      []string // glob patterns, "!" negates
	Debug         bool     // include debug symbol packages
	Retention     []common.RetentionPolicy
}

// Apt reads published versions from an APT archive
type Apt struct {
	options  Options
	verifier *debext.Verifier
	storage  *common.Storage
	filter   *common.PackageFilter
	pool     pond.Pool
}

// NewApt creates an archive reader. Downloads are cached below storage in a
// directory derived from the archive URL and distribution.
func NewApt(storage *common.Storage, verifier *debext.Verifier, options Options, pool pond.Pool) (*Apt, error) {
	if options.URL == nil || options.URL.Scheme == "" || options.URL.Host == "" {
		return nil, fmt.Errorf("invalid archive URL %v", options.URL)
	}
	if options.Distribution == "" {
		options.Distribution = FlatDistribution
	}
	filter, err := common.NewPackageFilter(options.Packages)
	if err != nil {
		return nil, err
	}

	return &Apt{
		options:  options,
		verifier: verifier,
		storage:  storage.ScopeKey(options.URL.String() + " " + options.Distribution),
		filter:   filter,
		pool:     pool,
	}, nil
}

// Fetch downloads and parses the indices and returns the matching packages.
func (s *Apt) Fetch(ctx context.Context) (*debext.Repository, error) {
	release, err := s.fetchRelease(ctx)
	if err != nil {
		return nil, err
	}

	indices := s.selectIndices(release)
	if len(indices) == 0 {
		return nil, fmt.Errorf("%w: %s %s", ErrNoIndices, s.options.URL, s.options.Distribution)
	}

	repository := debext.NewRepository()

	indexPool := s.pool.NewSubpool(len(indices))
	defer indexPool.StopAndWait()

	group := indexPool.NewGroup()
	for _, idx := range indices {
		group.SubmitErr(func() error {
			if err := s.processIndex(ctx, release, idx, repository); err != nil {
				return fmt.Errorf("failed to process %s: %w", idx.path, err)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	slog.Debug("Archive indexed", "url", s.options.URL.String(), "distribution", s.options.Distribution, "packages", repository.NumPackages())
	return repository, nil
}

// Versions returns the distinct published versions of the matching packages in ascending order.
func (s *Apt) Versions(ctx context.Context) ([]*debversion.Version, error) {
	repository, err := s.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return collectVersions(repository, s.options.Architectures)
}

// Retained returns the published versions left after applying the retention
// policies per package, in ascending order.
func (s *Apt) Retained(ctx context.Context) ([]*debversion.Version, error) {
	repository, err := s.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	var retained []*debversion.Version
	for _, name := range repository.GetPackageNames() {
		versions, err := repository.Versions(name, s.options.Architectures...)
		if err != nil {
			return nil, err
		}

		rules := common.RulesForPackage(s.options.Retention, name)
		filter, err := common.NewRetentionFilter(rules, (*debversion.Version).String, common.NoMatchKeep)
		if err != nil {
			return nil, fmt.Errorf("retention for %s: %w", name, err)
		}
		kept, err := filter.Filter(versions)
		if err != nil {
			return nil, err
		}
		retained = append(retained, kept...)
	}

	return debext.UniqueVersions(retained)
}

// Latest returns the highest published version.
func (s *Apt) Latest(ctx context.Context) (*debversion.Version, error) {
	versions, err := s.Versions(ctx)
	if err != nil {
		return nil, err
	}
	latest, ok := debext.LatestVersion(versions)
	if !ok {
		return nil, ErrNoVersions
	}
	return latest, nil
}

// Next returns candidate if it is not published yet, otherwise the first
// unpublished version reached by bumping its revision.
func (s *Apt) Next(ctx context.Context, candidate *debversion.Version) (*debversion.Version, error) {
	versions, err := s.Versions(ctx)
	if err != nil {
		return nil, err
	}
	return NextUnused(versions, candidate)
}

// NextUnused bumps the revision of candidate until it is not in published.
// At most len(published)+1 probes are needed since every probe is distinct.
func NextUnused(published []*debversion.Version, candidate *debversion.Version) (*debversion.Version, error) {
	next := candidate
	for range len(published) + 1 {
		if !debext.ContainsVersion(published, next) {
			return next, nil
		}

		bumped, err := next.BumpRevision()
		if err != nil {
			return nil, err
		}
		slog.Debug("Version already published, bumping revision", "version", next.String(), "next", bumped.String())
		next = bumped
	}
	return nil, fmt.Errorf("%w: starting from %s", ErrNoUnusedVersion, candidate)
}

// collectVersions gathers the versions of all packages in repository.
func collectVersions(repository *debext.Repository, architectures []string) ([]*debversion.Version, error) {
	var all []*debversion.Version
	for _, name := range repository.GetPackageNames() {
		versions, err := repository.Versions(name, architectures...)
		if err != nil {
			return nil, err
		}
		all = append(all, versions...)
	}
	return debext.UniqueVersions(all)
}

// baseURL returns the archive path indices are relative to.
func (s *Apt) baseURL() *url.URL {
	if s.options.Distribution == FlatDistribution {
		return s.options.URL
	}
	return s.options.URL.JoinPath("dists", s.options.Distribution)
}

func (s *Apt) fetchRelease(ctx context.Context) (*debext.Release, error) {
	names := []string{"InRelease"}
	if s.verifier.AcceptUnsigned {
		names = append(names, "Release")
	}

	var errs []error
	for _, name := range names {
		// Release files change in place, a cached copy is never reused
		_ = os.Remove(s.storage.GetDownloadPath(name))
		group := s.storage.Download(ctx, &common.DownloadRequest{
			URL:         s.baseURL().JoinPath(name).String(),
			Destination: name,
		})
		if _, err := group.Wait(); err != nil {
			slog.Debug("Release file unavailable", "file", name, "error", err)
			errs = append(errs, err)
			continue
		}

		release, err := debext.ParseRelease(s.storage.GetDownloadPath(name), s.verifier)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		return release, nil
	}

	return nil, fmt.Errorf("failed to download release file: %w", errors.Join(errs...))
}

type index struct {
	path      string // uncompressed path relative to the distribution
	component string
	isSource  bool
}

// selectIndices returns the indices of the configured components and
// architectures which the release actually lists. Flat repositories without
// components keep their indices next to the release file.
func (s *Apt) selectIndices(release *debext.Release) []index {
	components := s.options.Components
	if len(components) == 0 {
		components = release.Components
	}
	architectures := s.options.Architectures
	if len(architectures) == 0 {
		architectures = release.Architectures
	}

	var candidates []index
	if len(components) == 0 && s.options.Distribution == FlatDistribution {
		candidates = append(candidates, index{path: debext.PackagesIndex})
		if slices.Contains(architectures, debext.SourceArchitecture) {
			candidates = append(candidates, index{path: debext.SourcesIndex, isSource: true})
		}
	}
	for _, component := range components {
		for _, arch := range architectures {
			if arch == debext.AllArchitecture {
				continue
			}
			candidates = append(candidates, index{
				path:      debext.IndexPath(component, arch),
				component: component,
				isSource:  arch == debext.SourceArchitecture,
			})
		}
	}

	var indices []index
	for _, idx := range candidates {
		if _, _, err := release.SelectIndexFile(idx.path); err != nil {
			slog.Debug("Index not published", "index", idx.path)
			continue
		}
		indices = append(indices, idx)
	}
	return indices
}

func (s *Apt) processIndex(ctx context.Context, release *debext.Release, idx index, repository *debext.Repository) error {
	compressedPath, compressedInfo, err := release.SelectIndexFile(idx.path)
	if err != nil {
		return err
	}
	uncompressedHash := release.Files[idx.path].SHA256
	downloadURL := s.baseURL().JoinPath(compressedPath).String()

	var localPath string
	if compressedPath == idx.path {
		localPath, err = s.storage.FileExistsOrDownload(ctx, "sha256", uncompressedHash, downloadURL, filepath.FromSlash(idx.path))
	} else {
		localPath, err = s.storage.UncompressedFileExistsOrDownloadAndDecompress(
			ctx, "sha256", uncompressedHash, compressedInfo.SHA256, downloadURL,
			common.DetectCompressionFormat(compressedPath), filepath.FromSlash(idx.path),
		)
	}
	if err != nil {
		return err
	}

	pkgs, err := debext.ParsePackageIndex(localPath, idx.isSource)
	if err != nil {
		return err
	}

	for _, pkg := range pkgs {
		if !s.matches(pkg) {
			continue
		}
		if err := repository.AddPackage(pkg, idx.component); err != nil {
			slog.Warn("Skipping package", "package", pkg.Name, "version", pkg.Version, "error", err)
		}
	}
	return nil
}

func (s *Apt) matches(pkg *deb.Package) bool {
	if !s.options.Debug && debext.IsDebugPackage(pkg) {
		return false
	}
	return s.filter.Match(pkg.Name)
}
