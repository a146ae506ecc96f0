package source

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/vahanboard/vahanboard/pkg/types"
	"github.com/vahanboard/vahanboard/server/internal/config"
)

const (
	defaultFetchTimeout = 10 * time.Second

	// maxBodyBytes caps how much of a remote response is read.
	maxBodyBytes = 32 << 20
)

// ErrNoData is wrapped into Result.Err when a fetch succeeded at the transport
// level but yielded no usable records.
var ErrNoData = errors.New("no data available")

// Result is the output of one fetch of a single source.
type Result struct {
	SourceID   string
	SourceType string
	FetchedAt  time.Time

	// Records holds the fetched rows, dates truncated to quarter end.
	Records []types.Record

	// Err is non-nil if the fetch failed. Records must be ignored in that case.
	Err error
}

// Dataset converts a successful Result into a types.Dataset.
// It returns nil when the fetch failed.
func (r *Result) Dataset() *types.Dataset {
	if r == nil || r.Err != nil {
		return nil
	}
	return &types.Dataset{
		SourceID:  r.SourceID,
		FetchedAt: r.FetchedAt,
		Records:   r.Records,
	}
}

// Source is implemented by every registration data provider.
type Source interface {
	Fetch(ctx context.Context) (*Result, error)
}

// New returns the Source for the given configuration. The HTTP client is
// built once and reused across fetches.
func New(src config.Source) (Source, error) {
	switch src.Type {
	case "stub":
		return newStub(src), nil
	case "csv":
		return &csvSource{src: src}, nil
	}

	client, err := buildHTTPClient(src)
	if err != nil {
		return nil, fmt.Errorf("source %q: build http client: %w", src.ID, err)
	}
	switch src.Type {
	case "prometheus":
		return &promSource{src: src, client: client}, nil
	case "http":
		return &portalSource{src: src, client: client, fallback: newStub(src)}, nil
	default:
		return nil, fmt.Errorf("source: unsupported type %q", src.Type)
	}
}

// authRoundTripper injects authentication headers into every outgoing request.
type authRoundTripper struct {
	base http.RoundTripper
	src  config.Source
}

func (t *authRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	switch t.src.Auth.Mode {
	case "apikey":
		req = req.Clone(req.Context())
		req.Header.Set(t.src.Auth.Header, t.src.Auth.Key())
	case "bearer":
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+t.src.Auth.Token())
	case "basic":
		req = req.Clone(req.Context())
		req.SetBasicAuth(t.src.Auth.Username, t.src.Auth.Password())
	}
	return t.base.RoundTrip(req)
}

// buildHTTPClient constructs an http.Client for the source's auth and TLS settings.
func buildHTTPClient(src config.Source) (*http.Client, error) {
	tlsCfg := &tls.Config{
		InsecureSkipVerify: src.TLS.InsecureSkipVerify, //nolint:gosec // user-configured
	}

	if src.Auth.Mode == "mtls" {
		cert, err := tls.LoadX509KeyPair(src.Auth.CertFile, src.Auth.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client cert: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}

		if src.Auth.CAFile != "" {
			caPEM, err := os.ReadFile(src.Auth.CAFile)
			if err != nil {
				return nil, fmt.Errorf("read ca file: %w", err)
			}
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(caPEM) {
				return nil, fmt.Errorf("no valid certs found in ca file %q", src.Auth.CAFile)
			}
			tlsCfg.RootCAs = pool
		}
	}

	return &http.Client{
		Transport: &authRoundTripper{
			base: &http.Transport{TLSClientConfig: tlsCfg},
			src:  src,
		},
		Timeout: defaultFetchTimeout,
	}, nil
}

// get performs an HTTP GET and returns the response body. Non-200 responses
// are errors.
func get(ctx context.Context, client *http.Client, url string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// newResult initialises an empty Result stamped with the current time.
func newResult(sourceID, sourceType string) *Result {
	return &Result{
		SourceID:   sourceID,
		SourceType: sourceType,
		FetchedAt:  time.Now().UTC(),
	}
}
