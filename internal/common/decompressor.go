package common

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/alitto/pond/v2"
	"github.com/dsnet/compress/bzip2"
	"github.com/ulikunitz/xz"
)

// ErrUnknownCompression is returned for a file without a supported compression extension
var ErrUnknownCompression = errors.New("unknown compression format")

// CompressionFormat is a compression variant an archive may publish an index in
type CompressionFormat string

const (
	CompressionNone  CompressionFormat = ""
	CompressionGzip  CompressionFormat = "gz"
	CompressionBzip2 CompressionFormat = "bz2"
	CompressionXZ    CompressionFormat = "xz"
)

// codecs opens a decompressing reader per supported format
var codecs = map[CompressionFormat]func(io.Reader) (io.Reader, error){
	CompressionGzip: func(r io.Reader) (io.Reader, error) {
		return gzip.NewReader(r)
	},
	CompressionBzip2: func(r io.Reader) (io.Reader, error) {
		return bzip2.NewReader(r, nil)
	},
	CompressionXZ: func(r io.Reader) (io.Reader, error) {
		return xz.NewReader(r)
	},
}

// DetectCompressionFormat returns the format named by the file extension
func DetectCompressionFormat(filename string) CompressionFormat {
	format := CompressionFormat(strings.TrimPrefix(filepath.Ext(filename), "."))
	if _, ok := codecs[format]; !ok {
		return CompressionNone
	}
	return format
}

// Extension returns the file extension including the dot
func (f CompressionFormat) Extension() string {
	if f == CompressionNone {
		return ""
	}
	return "." + string(f)
}

// DeCompressor expands downloaded indices on a worker pool
type DeCompressor struct {
	pool pond.ResultPool[Result]
}

// NewDeCompressor creates a decompressor running on the given worker pool
func NewDeCompressor(pool pond.ResultPool[Result]) *DeCompressor {
	return &DeCompressor{pool: pool}
}

// DeCompressResult is the path of a decompressed file
type DeCompressResult string

func (r *DeCompressResult) Destination() string {
	return string(*r)
}

// Decompress expands each file next to itself, dropping the compression
// extension. Call Wait on the returned group for the results.
func (d *DeCompressor) Decompress(ctx context.Context, sourcePaths ...string) pond.ResultTaskGroup[Result] {
	group := d.pool.NewGroupContext(ctx)
	for _, sourcePath := range sourcePaths {
		group.SubmitErr(func() (Result, error) {
			destPath, err := expand(sourcePath)
			if err != nil {
				return nil, err
			}
			result := DeCompressResult(destPath)
			return &result, nil
		})
	}
	return group
}

// expand writes the decompressed content to a temporary file and renames it
// into place, so readers never see a partial index.
func expand(sourcePath string) (string, error) {
	format := DetectCompressionFormat(sourcePath)
	if format == CompressionNone {
		return "", fmt.Errorf("%w: %s", ErrUnknownCompression, sourcePath)
	}
	destPath := strings.TrimSuffix(sourcePath, format.Extension())

	in, err := os.Open(sourcePath)
	if err != nil {
		return "", err
	}
	defer func() { _ = in.Close() }()

	reader, err := codecs[format](in)
	if err != nil {
		return "", fmt.Errorf("%s: %w", filepath.Base(sourcePath), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(destPath), filepath.Base(destPath)+".*")
	if err != nil {
		return "", err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := io.Copy(tmp, reader); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("%s: %w", filepath.Base(sourcePath), err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), destPath); err != nil {
		return "", err
	}
	return destPath, nil
}
