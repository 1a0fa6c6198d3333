package debext

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/aptly-dev/aptly/deb"
	"github.com/dionysius/venvpack/debversion"
)

const (
	MainComponent      = "main"
	AllArchitecture    = "all"
	SourceArchitecture = "source"
)

// Repository indexes the packages published in one distribution by component.
// It is safe for concurrent use.
type Repository struct {
	mu sync.RWMutex

	// packages[component] = PackageList
	packages map[string]*deb.PackageList

	// versions[packageName][arch] = versions seen, unsorted
	versions map[string]map[string][]*debversion.Version
}

// NewRepository creates a new empty repository
func NewRepository() *Repository {
	return &Repository{
		packages: make(map[string]*deb.PackageList),
		versions: make(map[string]map[string][]*debversion.Version),
	}
}

// AddPackage adds a package to the repository.
// If component is empty, it defaults to "main".
func (r *Repository) AddPackage(pkg *deb.Package, component string) error {
	if component == "" {
		component = MainComponent
	}

	v, err := debversion.Parse(pkg.Version)
	if err != nil {
		return fmt.Errorf("%s: %w", pkg.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.packages[component] == nil {
		r.packages[component] = deb.NewPackageList()
	}
	if err := r.packages[component].Add(pkg); err != nil {
		return err
	}

	arch := pkg.Architecture
	if pkg.IsSource {
		arch = SourceArchitecture
	}
	if r.versions[pkg.Name] == nil {
		r.versions[pkg.Name] = make(map[string][]*debversion.Version)
	}
	r.versions[pkg.Name][arch] = append(r.versions[pkg.Name][arch], v)

	return nil
}

// GetComponents returns the sorted components holding packages.
func (r *Repository) GetComponents() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Sorted(maps.Keys(r.packages))
}

// GetArchitectures returns all architectures available in component.
// "all" is always excluded, "source" only when includeSource is set.
func (r *Repository) GetArchitectures(component string, includeSource bool) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.packages[component] == nil {
		return nil
	}
	return r.packages[component].Architectures(includeSource)
}

// NumPackages returns the total number of packages across all components.
func (r *Repository) NumPackages() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := 0
	for _, list := range r.packages {
		total += list.Len()
	}
	return total
}

// GetPackageNames returns the sorted names of all packages.
func (r *Repository) GetPackageNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Sorted(maps.Keys(r.versions))
}

// Versions returns the distinct versions of packageName in ascending order.
// With no architectures given every architecture is considered; otherwise
// "all" packages are included alongside the requested ones.
func (r *Repository) Versions(packageName string, architectures ...string) ([]*debversion.Version, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var collected []*debversion.Version
	for arch, versions := range r.versions[packageName] {
		if len(architectures) > 0 && arch != AllArchitecture && !slices.Contains(architectures, arch) {
			continue
		}
		collected = append(collected, versions...)
	}

	return UniqueVersions(collected)
}

// GetLatest returns the latest version of packageName for arch, falling back
// to "all" for binary architectures.
func (r *Repository) GetLatest(packageName, arch string) (*debversion.Version, bool) {
	r.mu.RLock()
	byArch := r.versions[packageName]
	versions := byArch[arch]
	if len(versions) == 0 && arch != SourceArchitecture {
		versions = byArch[AllArchitecture]
	}
	r.mu.RUnlock()

	return LatestVersion(versions)
}
