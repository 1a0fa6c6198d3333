package common

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/alitto/pond/v2"
	"github.com/cavaliergopher/grab/v3"
)

// ErrDownloadConflict is returned when two concurrent requests target the
// same destination with a different source or checksum.
var ErrDownloadConflict = errors.New("conflicting download")

// DownloadRequest names an archive file and where to store it
type DownloadRequest struct {
	URL         string // absolute URL of the file in the archive
	Destination string // absolute local path
	Checksum    string // hex SHA256 from the Release file, empty if unknown
}

// DownloadResult is a completed download
type DownloadResult struct {
	*DownloadRequest
	Size int64
}

func (d *DownloadResult) Destination() string {
	return d.DownloadRequest.Destination
}

// flight is a download in progress that later requests for the same path join
type flight struct {
	request *DownloadRequest
	done    chan struct{}
	result  *DownloadResult
	err     error
}

// joinable reports whether req can share the download of f
func (f *flight) joinable(req *DownloadRequest) error {
	if req.Checksum != "" && req.Checksum != f.request.Checksum {
		return fmt.Errorf("%w: %s expects checksum %s, in flight with %s",
			ErrDownloadConflict, req.Destination, req.Checksum, f.request.Checksum)
	}
	if req.URL != f.request.URL {
		return fmt.Errorf("%w: %s requested from %s, in flight from %s",
			ErrDownloadConflict, req.Destination, req.URL, f.request.URL)
	}
	return nil
}

// Downloader fetches archive files with grab on a worker pool. Concurrent
// requests for the same destination share one transfer.
type Downloader struct {
	pool         pond.ResultPool[Result]
	client       *grab.Client
	decompressor *DeCompressor

	mu      sync.Mutex
	flights map[string]*flight
}

// NewDownloader creates a downloader running on the given worker pool
func NewDownloader(pool pond.ResultPool[Result], httpClient *http.Client, decompressor *DeCompressor) *Downloader {
	return &Downloader{
		pool: pool,
		client: &grab.Client{
			HTTPClient: httpClient,
			UserAgent:  userAgent(httpClient),
		},
		decompressor: decompressor,
		flights:      make(map[string]*flight),
	}
}

// userAgent returns the agent grab should announce. A transport setting its
// own header takes precedence, so grab's default is only kept without one.
func userAgent(httpClient *http.Client) string {
	if httpClient != nil {
		if t, ok := httpClient.Transport.(*UserAgentTransport); ok {
			return t.UserAgent
		}
	}
	return ""
}

// Download fetches the requested files in parallel. Call Wait on the
// returned group for the results.
func (m *Downloader) Download(ctx context.Context, requests ...*DownloadRequest) pond.ResultTaskGroup[Result] {
	group := m.pool.NewGroupContext(ctx)
	for _, req := range requests {
		group.SubmitErr(func() (Result, error) {
			return m.fetchShared(ctx, req)
		})
	}
	return group
}

// DownloadAndDecompress fetches compressed indices and decompresses them next
// to the download. Results point at the decompressed files; the compressed
// files are kept for later cache hits.
func (m *Downloader) DownloadAndDecompress(ctx context.Context, requests ...*DownloadRequest) pond.ResultTaskGroup[Result] {
	group := m.pool.NewGroupContext(ctx)
	for _, req := range requests {
		group.SubmitErr(func() (Result, error) {
			return m.fetchAndDecompress(ctx, req)
		})
	}
	return group
}

func (m *Downloader) fetchAndDecompress(ctx context.Context, req *DownloadRequest) (*DownloadResult, error) {
	if DetectCompressionFormat(req.Destination) == CompressionNone {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCompression, req.Destination)
	}

	// Runs on a download worker already, so fetch inline instead of
	// submitting to the same pool again.
	downloaded, err := m.fetchShared(ctx, req)
	if err != nil {
		return nil, err
	}

	results, err := m.decompressor.Decompress(ctx, downloaded.Destination()).Wait()
	if err != nil {
		return nil, err
	}

	return &DownloadResult{
		DownloadRequest: &DownloadRequest{
			URL:         req.URL,
			Destination: results[0].Destination(),
			Checksum:    req.Checksum,
		},
		Size: downloaded.Size,
	}, nil
}

// fetchShared runs one transfer per destination and hands its outcome to
// every request that joined while it was in flight.
func (m *Downloader) fetchShared(ctx context.Context, req *DownloadRequest) (*DownloadResult, error) {
	m.mu.Lock()
	if f, ok := m.flights[req.Destination]; ok {
		m.mu.Unlock()
		if err := f.joinable(req); err != nil {
			return nil, err
		}
		select {
		case <-f.done:
			return f.result, f.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f := &flight{request: req, done: make(chan struct{})}
	m.flights[req.Destination] = f
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.flights, req.Destination)
		m.mu.Unlock()
		close(f.done)
	}()

	f.result, f.err = m.fetch(ctx, req)
	return f.result, f.err
}

func (m *Downloader) fetch(ctx context.Context, req *DownloadRequest) (*DownloadResult, error) {
	if err := os.MkdirAll(filepath.Dir(req.Destination), 0755); err != nil {
		return nil, err
	}

	grabReq, err := newGrabRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	resp := m.client.Do(grabReq)
	if err := resp.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(req.Destination), err)
	}

	slog.Debug("Downloaded", "file", filepath.Base(req.Destination), "bytes", resp.Size())
	return &DownloadResult{DownloadRequest: req, Size: resp.Size()}, nil
}

// newGrabRequest builds the transfer. A known checksum is verified by grab
// and a mismatching file removed; without one a leftover partial file cannot
// be trusted, so the transfer starts over.
func newGrabRequest(ctx context.Context, req *DownloadRequest) (*grab.Request, error) {
	grabReq, err := grab.NewRequest(req.Destination, req.URL)
	if err != nil {
		return nil, err
	}
	grabReq = grabReq.WithContext(ctx)

	if req.Checksum == "" {
		grabReq.NoResume = true
		return grabReq, nil
	}

	sum, err := hex.DecodeString(req.Checksum)
	if err != nil {
		return nil, fmt.Errorf("checksum for %s: %w", filepath.Base(req.Destination), err)
	}
	grabReq.SetChecksum(sha256.New(), sum, true)
	return grabReq, nil
}
