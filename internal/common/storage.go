package common

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/alitto/pond/v2"
	"github.com/zeebo/blake3"
)

// ErrChecksumMismatch indicates a decompressed file differs from its published checksum
var ErrChecksumMismatch = errors.New("checksum mismatch")

// Storage places downloads inside a cache directory
type Storage struct {
	downloadDir string
	downloader  *Downloader
}

// NewStorage creates a new storage manager rooted at downloadDir
func NewStorage(downloader *Downloader, downloadDir string, pathParts ...string) *Storage {
	return &Storage{
		downloadDir: filepath.Join(append([]string{downloadDir}, pathParts...)...),
		downloader:  downloader,
	}
}

// Scope creates a new Storage instance scoped to additional path parts
func (m *Storage) Scope(pathParts ...string) *Storage {
	return &Storage{
		downloadDir: filepath.Join(append([]string{m.downloadDir}, pathParts...)...),
		downloader:  m.downloader,
	}
}

// ScopeKey scopes the storage to a directory derived from key, so arbitrary
// strings such as URLs map to short, stable directory names.
func (m *Storage) ScopeKey(key string) *Storage {
	return m.Scope(ScopeName(key))
}

// ScopeName returns the directory name ScopeKey uses for key.
func ScopeName(key string) string {
	sum := blake3.Sum256([]byte(key))
	return hex.EncodeToString(sum[:8])
}

// GetDownloadPath returns the full path for a file in the download directory
func (m *Storage) GetDownloadPath(pathParts ...string) string {
	return filepath.Join(append([]string{m.downloadDir}, pathParts...)...)
}

// fileExistsWithHash checks if a file exists with the expected hash (hashMethod: "sha256")
func fileExistsWithHash(path, hashMethod, expectedHash string) bool {
	if expectedHash == "" {
		return false
	}

	if hashMethod != "sha256" {
		return false
	}

	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return false
	}

	actualHash := hex.EncodeToString(h.Sum(nil))

	return strings.EqualFold(actualHash, expectedHash)
}

// downloadFileExistsWithHash checks if a file exists in downloads folder with expected hash
func (m *Storage) downloadFileExistsWithHash(hashMethod, expectedHash string, pathParts ...string) bool {
	exists := fileExistsWithHash(m.GetDownloadPath(pathParts...), hashMethod, expectedHash)

	if exists {
		slog.Debug("Match exists, download skipped", "file", filepath.Join(pathParts...), "sha256", expectedHash)
	} else {
		slog.Debug("Doesn't match or exist, downloading", "file", filepath.Join(pathParts...), "sha256", expectedHash)
	}

	return exists
}

// Download downloads files to the downloads directory (destinations are relative paths)
func (m *Storage) Download(ctx context.Context, requests ...*DownloadRequest) pond.ResultTaskGroup[Result] {
	// Convert relative destinations to absolute paths
	for _, req := range requests {
		req.Destination = m.GetDownloadPath(req.Destination)
	}
	return m.downloader.Download(ctx, requests...)
}

// DownloadAndDecompress downloads and decompresses files based on extension (destinations are relative paths)
func (m *Storage) DownloadAndDecompress(ctx context.Context, requests ...*DownloadRequest) pond.ResultTaskGroup[Result] {
	// Convert relative destinations to absolute paths
	for _, req := range requests {
		req.Destination = m.GetDownloadPath(req.Destination)
	}
	return m.downloader.DownloadAndDecompress(ctx, requests...)
}

// FileExistsOrDownload returns path to file with expected hash, downloading if necessary
func (m *Storage) FileExistsOrDownload(ctx context.Context, hashMethod, expectedHash, downloadURL string, pathParts ...string) (string, error) {
	// Check if file exists in downloads with correct hash
	if m.downloadFileExistsWithHash(hashMethod, expectedHash, pathParts...) {
		return m.GetDownloadPath(pathParts...), nil
	}

	// Download file if not already present with correct digest
	group := m.Download(ctx, &DownloadRequest{
		URL:         downloadURL,
		Destination: filepath.Join(pathParts...),
		Checksum:    expectedHash,
	})
	results, err := group.Wait()
	if err != nil {
		return "", err
	}
	return results[0].Destination(), nil
}

// UncompressedFileExistsOrDownloadAndDecompress returns path to uncompressed file with expected hash, downloading and decompressing if necessary
func (m *Storage) UncompressedFileExistsOrDownloadAndDecompress(ctx context.Context, hashMethod, uncompressedHash, compressedHash, downloadURL string, compressionFormat CompressionFormat, pathParts ...string) (string, error) {
	// Check if uncompressed file exists in downloads
	if m.downloadFileExistsWithHash(hashMethod, uncompressedHash, pathParts...) {
		return m.GetDownloadPath(pathParts...), nil
	}

	// Check if compressed file exists with correct hash
	compressedParts := append([]string{}, pathParts...)
	compressedParts[len(compressedParts)-1] += compressionFormat.Extension()

	if compressionFormat != CompressionNone && m.downloadFileExistsWithHash(hashMethod, compressedHash, compressedParts...) {
		// Compressed file exists, decompress it
		compressedPath := m.GetDownloadPath(compressedParts...)
		group := m.downloader.decompressor.Decompress(ctx, compressedPath)
		results, err := group.Wait()
		if err != nil {
			return "", err
		}
		return verifyDecompressed(results[0].Destination(), hashMethod, uncompressedHash)
	}

	// Download and decompress file
	compressedFilePath := filepath.Join(pathParts...) + compressionFormat.Extension()

	group := m.DownloadAndDecompress(ctx, &DownloadRequest{
		URL:         downloadURL,
		Destination: compressedFilePath,
		Checksum:    compressedHash,
	})
	results, err := group.Wait()
	if err != nil {
		return "", err
	}
	return verifyDecompressed(results[0].Destination(), hashMethod, uncompressedHash)
}

// verifyDecompressed checks a decompressed file when its checksum is known
func verifyDecompressed(path, hashMethod, expectedHash string) (string, error) {
	if expectedHash != "" && !fileExistsWithHash(path, hashMethod, expectedHash) {
		return "", fmt.Errorf("%w: %s", ErrChecksumMismatch, filepath.Base(path))
	}
	return path, nil
}
