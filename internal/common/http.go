package common

import (
	"net/http"
	"time"
)

// HTTPOptions tune the shared HTTP client
type HTTPOptions struct {
	UserAgent       string
	Timeout         time.Duration
	MaxIdleConns    int
	MaxConnsPerHost int
}

// NewHTTPClient builds the client shared by downloads and API clients
func NewHTTPClient(options HTTPOptions) *http.Client {
	baseTransport := http.DefaultTransport.(*http.Transport).Clone()
	if options.MaxIdleConns > 0 {
		baseTransport.MaxIdleConns = options.MaxIdleConns
		baseTransport.MaxIdleConnsPerHost = max(1, options.MaxIdleConns/10)
	}
	if options.MaxConnsPerHost > 0 {
		baseTransport.MaxConnsPerHost = options.MaxConnsPerHost
	}

	var transport http.RoundTripper = baseTransport
	if options.UserAgent != "" {
		transport = &UserAgentTransport{
			Base:      transport,
			UserAgent: options.UserAgent,
		}
	}

	return &http.Client{
		Transport: transport,
		Timeout:   options.Timeout,
	}
}

// UserAgentTransport wraps an http.RoundTripper to set a custom User-Agent header
type UserAgentTransport struct {
	Base      http.RoundTripper
	UserAgent string
}

// RoundTrip implements http.RoundTripper
func (t *UserAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clone the request to avoid modifying the original
	req = req.Clone(req.Context())

	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.UserAgent)
	}

	return t.Base.RoundTrip(req)
}
