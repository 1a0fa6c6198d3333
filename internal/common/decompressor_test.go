package common

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/alitto/pond/v2"
	"github.com/dsnet/compress/bzip2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

func TestDetectCompressionFormat(t *testing.T) {
	tests := []struct {
		filename string
		want     CompressionFormat
	}{
		{"Packages.gz", CompressionGzip},
		{"Packages.bz2", CompressionBzip2},
		{"main/binary-amd64/Packages.xz", CompressionXZ},
		{"Packages", CompressionNone},
		{"Packages.diff", CompressionNone},
		{"Sources.zst", CompressionNone},
		{"", CompressionNone},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectCompressionFormat(tt.filename))
		})
	}
}

func TestCompressionFormat_Extension(t *testing.T) {
	assert.Equal(t, ".gz", CompressionGzip.Extension())
	assert.Equal(t, ".bz2", CompressionBzip2.Extension())
	assert.Equal(t, ".xz", CompressionXZ.Extension())
	assert.Equal(t, "", CompressionNone.Extension())
}

// compressFixture compresses data in the given format.
func compressFixture(t *testing.T, format CompressionFormat, data []byte) []byte {
	t.Helper()

	var (
		buf bytes.Buffer
		w   io.WriteCloser
		err error
	)
	switch format {
	case CompressionGzip:
		w = gzip.NewWriter(&buf)
	case CompressionBzip2:
		w, err = bzip2.NewWriter(&buf, nil)
	case CompressionXZ:
		w, err = xz.NewWriter(&buf)
	default:
		t.Fatalf("no fixture for format %q", format)
	}
	require.NoError(t, err)

	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestDecompress(t *testing.T) {
	content := []byte("Package: python3-foo\nVersion: 1.2.3-1\n\n")

	pool := pond.NewResultPool[Result](2, pond.WithContext(context.Background()))
	defer pool.StopAndWait()
	decompressor := NewDeCompressor(pool)

	for _, format := range []CompressionFormat{CompressionGzip, CompressionBzip2, CompressionXZ} {
		t.Run(string(format), func(t *testing.T) {
			source := filepath.Join(t.TempDir(), "Packages"+format.Extension())
			require.NoError(t, os.WriteFile(source, compressFixture(t, format, content), 0644))

			results, err := decompressor.Decompress(context.Background(), source).Wait()
			require.NoError(t, err)
			require.Len(t, results, 1)
			assert.Equal(t, filepath.Join(filepath.Dir(source), "Packages"), results[0].Destination())

			data, err := os.ReadFile(results[0].Destination())
			require.NoError(t, err)
			assert.Equal(t, content, data)
		})
	}

	t.Run("uncompressed", func(t *testing.T) {
		source := filepath.Join(t.TempDir(), "Packages")
		require.NoError(t, os.WriteFile(source, content, 0644))

		_, err := decompressor.Decompress(context.Background(), source).Wait()
		assert.Error(t, err)
	})
}

func TestDecompressCorrupt(t *testing.T) {
	pool := pond.NewResultPool[Result](1, pond.WithContext(context.Background()))
	defer pool.StopAndWait()
	decompressor := NewDeCompressor(pool)

	dir := t.TempDir()
	source := filepath.Join(dir, "Packages.xz")
	require.NoError(t, os.WriteFile(source, []byte("not xz at all"), 0644))

	_, err := decompressor.Decompress(context.Background(), source).Wait()
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "only the compressed file may remain")
	assert.Equal(t, "Packages.xz", entries[0].Name())
}

func TestDecompressUnknownFormat(t *testing.T) {
	_, err := expand(filepath.Join(t.TempDir(), "Packages.zst"))
	assert.ErrorIs(t, err, ErrUnknownCompression)
}
