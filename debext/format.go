package debext

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aptly-dev/aptly/deb"
	"github.com/aptly-dev/aptly/utils"
)

const (
	DebugPackageSuffix  = "-dbgsym"
	DebugPackageSection = "debug"
)

// Index base names listed in a Release file.
const (
	PackagesIndex = "Packages"
	SourcesIndex  = "Sources"
)

// indexExtensions are the compression variants an index can be published in.
var indexExtensions = []string{"", ".gz", ".bz2", ".xz"}

// Release holds the parts of a Release file needed to fetch its indices
type Release struct {
	Origin        string
	Label         string
	Suite         string
	Codename      string
	Date          time.Time
	Architectures []string
	Components    []string
	Description   string
	// Files maps paths relative to the distribution to their checksums
	Files map[string]utils.ChecksumInfo
}

// dateFormats are tried in order; RFC 1123 is the standard but not every archive follows it.
var dateFormats = []string{
	"Mon, 2 Jan 2006 15:04:05 MST",
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon Jan _2 15:04:05 2006",
	"Mon Jan _2 15:04:05 2006 MST",
	time.RFC1123Z,
	time.RFC1123,
}

// ParseRelease verifies an InRelease (or plain Release) file and extracts index metadata
func ParseRelease(releaseFile string, verifier *Verifier) (*Release, error) {
	file, err := os.Open(releaseFile)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", releaseFile, err)
	}
	defer func() { _ = file.Close() }()

	reader, keys, err := verifier.VerifyAndClear(file)
	if err != nil {
		return nil, fmt.Errorf("%s: signature verification failed: %w", releaseFile, err)
	}
	defer func() { _ = reader.Close() }()
	if len(keys) > 0 {
		slog.Debug("Signature verified", "file", filepath.Base(releaseFile), "with", keys)
	}

	return readRelease(releaseFile, reader)
}

func readRelease(name string, r io.Reader) (*Release, error) {
	stanza, err := deb.NewControlFileReader(r, false, false).ReadStanza()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse stanza: %w", name, err)
	}
	if stanza == nil {
		return nil, fmt.Errorf("%s: empty release file", name)
	}

	release := &Release{
		Origin:        stanza["Origin"],
		Label:         stanza["Label"],
		Suite:         stanza["Suite"],
		Codename:      stanza["Codename"],
		Architectures: strings.Fields(stanza["Architectures"]),
		Components:    strings.Fields(stanza["Components"]),
		Description:   strings.TrimSpace(stanza["Description"]),
		Files:         make(map[string]utils.ChecksumInfo),
	}

	if date := stanza["Date"]; date != "" {
		var parseErr error
		for _, format := range dateFormats {
			release.Date, parseErr = time.Parse(format, date)
			if parseErr == nil {
				release.Date = release.Date.UTC()
				break
			}
		}
		if parseErr != nil {
			return nil, fmt.Errorf("%s: invalid Date %q: %w", name, date, parseErr)
		}
	}

	// The control file reader joins continuation lines, leaving groups of
	// "hash size filename".
	sha256Section := stanza["SHA256"]
	if sha256Section == "" {
		return nil, fmt.Errorf("%s: missing SHA256 section", name)
	}
	parts := strings.Fields(sha256Section)
	if len(parts)%3 != 0 {
		return nil, fmt.Errorf("%s: invalid SHA256 section: expected multiple of 3 fields, got %d", name, len(parts))
	}

	for i := 0; i < len(parts); i += 3 {
		var size int64
		if _, err := fmt.Sscanf(parts[i+1], "%d", &size); err != nil {
			return nil, fmt.Errorf("%s: invalid size in SHA256 entry %d: %w", name, i/3+1, err)
		}
		release.Files[parts[i+2]] = utils.ChecksumInfo{
			Size:   size,
			SHA256: parts[i],
		}
	}

	return release, nil
}

// IndexPath returns the uncompressed path of an index, e.g. "main/binary-amd64/Packages".
func IndexPath(component, architecture string) string {
	if architecture == SourceArchitecture {
		return component + "/source/" + SourcesIndex
	}
	return component + "/binary-" + architecture + "/" + PackagesIndex
}

// SelectIndexFile returns the smallest published variant of the index at
// basePath together with its checksum.
func (r *Release) SelectIndexFile(basePath string) (string, utils.ChecksumInfo, error) {
	var (
		smallestPath string
		smallestInfo utils.ChecksumInfo
		found        bool
	)

	for _, ext := range indexExtensions {
		info, ok := r.Files[basePath+ext]
		if !ok {
			continue
		}
		if !found || info.Size < smallestInfo.Size {
			smallestPath = basePath + ext
			smallestInfo = info
			found = true
		}
	}

	if !found {
		return "", utils.ChecksumInfo{}, fmt.Errorf("no files found matching base path: %s", basePath)
	}
	return smallestPath, smallestInfo, nil
}

// ParsePackageIndex parses a Packages or Sources index file and returns packages
func ParsePackageIndex(path string, isSource bool) ([]*deb.Package, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	var packages []*deb.Package
	controlReader := deb.NewControlFileReader(file, false, false)

	for {
		stanza, err := controlReader.ReadStanza()
		if err != nil {
			return nil, fmt.Errorf("%s: failed to read stanza: %w", path, err)
		}
		if stanza == nil {
			break
		}

		var pkg *deb.Package
		if isSource {
			pkg, err = deb.NewSourcePackageFromControlFile(stanza)
			if err != nil {
				return nil, fmt.Errorf("%s: failed to parse source package: %w", path, err)
			}
		} else {
			pkg = deb.NewPackageFromControlFile(stanza)
		}

		packages = append(packages, pkg)
	}

	return packages, nil
}

// ReadControlField returns field from the first stanza of a control-format
// file such as debian/control, DEBIAN/control or a .dsc. Clearsigned files
// are read through verifier when one is given.
func ReadControlField(path, field string, verifier *Verifier) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	var reader io.Reader = file
	if verifier != nil {
		text, _, err := verifier.VerifyAndClear(file)
		if err != nil {
			return "", fmt.Errorf("%s: %w", path, err)
		}
		defer func() { _ = text.Close() }()
		reader = text
	}

	stanza, err := deb.NewControlFileReader(reader, false, false).ReadStanza()
	if err != nil {
		return "", fmt.Errorf("%s: failed to parse stanza: %w", path, err)
	}
	if stanza == nil {
		return "", fmt.Errorf("%s: no stanza found", path)
	}

	value, ok := stanza[field]
	if !ok {
		return "", fmt.Errorf("%s: field %q not found", path, field)
	}
	return strings.TrimSpace(value), nil
}

// GetSourceNameFromPackage returns the source package name for a given package.
// If a binary package has the same name as the source, it won't have the source field set.
func GetSourceNameFromPackage(pkg *deb.Package) string {
	if pkg.IsSource {
		return pkg.Name
	}
	if pkg.Source != "" {
		// "Source: name (version)" carries the source version when it differs
		name, _, _ := strings.Cut(pkg.Source, " ")
		return name
	}
	return pkg.Name
}

// IsDebugByName determines if a package a debug package by its name.
func IsDebugByName(input string) bool {
	return strings.HasSuffix(input, DebugPackageSuffix)
}

// IsDebugPackage determines if a package is a debug package.
func IsDebugPackage(pkg *deb.Package) bool {
	if pkg.IsSource {
		return false
	}
	if section, ok := pkg.Extra()["Section"]; ok && section == DebugPackageSection {
		return true
	}
	return IsDebugByName(pkg.Name)
}
