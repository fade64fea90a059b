package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sandevgo/docportal/internal/core"
	"github.com/sandevgo/docportal/pkg/retry"
)

const (
	defaultTimeout      = 120 * time.Second
	defaultStreamBuffer = 16
	maxErrorBody        = 4 << 10
)

// Options configure a single provider instance.
type Options struct {
	BaseURL      string
	APIKey       string
	Model        string
	Timeout      time.Duration
	MaxRetries   int
	StreamBuffer int
	// RequireKey makes CheckCredentials fail when no key is available.
	RequireKey bool
}

type baseProvider struct {
	client       *http.Client
	baseURL      string
	apiKey       string
	model        string
	timeout      time.Duration
	retrier      *retry.Retrier
	streamBuffer int
	requireKey   bool
}

func newBaseProvider(opts Options) baseProvider {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	buffer := opts.StreamBuffer
	if buffer <= 0 {
		buffer = defaultStreamBuffer
	}
	retries := opts.MaxRetries
	if retries < 0 {
		retries = 0
	}

	// No overall client timeout: streams may legitimately outlive it.
	// Single-shot calls get a context deadline instead.
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = timeout

	return baseProvider{
		client:       &http.Client{Transport: transport},
		baseURL:      opts.BaseURL,
		apiKey:       opts.APIKey,
		model:        opts.Model,
		timeout:      timeout,
		retrier:      retry.NewRetrierWithAttempts(retries),
		streamBuffer: buffer,
		requireKey:   opts.RequireKey,
	}
}

// key prefers the per-session credential carried in ctx.
func (b *baseProvider) key(ctx context.Context) string {
	if k := core.APIKeyFromContext(ctx); k != "" {
		return k
	}
	return b.apiKey
}

func (b *baseProvider) CheckCredentials(ctx context.Context) error {
	if b.requireKey && b.key(ctx) == "" {
		return fmt.Errorf("%w: no API key configured", core.ErrConfiguration)
	}
	return nil
}

func (b *baseProvider) GetModel() string {
	return b.model
}

// doRequest sends a JSON request and returns a 2xx response.
// Network errors, 429 and 502-504 are retried before any body is read.
func (b *baseProvider) doRequest(ctx context.Context, method, path string, body any, headers map[string]string) (*http.Response, error) {
	var data []byte
	if body != nil {
		var err error
		data, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal: %w", err)
		}
	}

	var resp *http.Response
	err := b.retrier.Do(ctx, func() error {
		var bodyReader io.Reader
		if data != nil {
			bodyReader = bytes.NewReader(data)
		}

		req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, bodyReader)
		if err != nil {
			return retry.Permanent(fmt.Errorf("create request: %w", err))
		}

		for k, v := range headers {
			req.Header.Set(k, v)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", core.PortalUserAgent)

		r, err := b.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return retry.Permanent(ctx.Err())
			}
			return fmt.Errorf("request: %w", err)
		}

		if r.StatusCode < 200 || r.StatusCode > 299 {
			statusErr := newStatusError(r)
			if isRetryableStatus(r.StatusCode) {
				return statusErr
			}
			return retry.Permanent(statusErr)
		}

		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// StatusError is a non-2xx upstream response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Body)
}

// Unwrap maps authentication failures onto the configuration error.
func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		return core.ErrConfiguration
	}
	return nil
}

func newStatusError(resp *http.Response) error {
	defer resp.Body.Close()
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(data))}
}

func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// decodeJSON reads a successful response body into v.
func decodeJSON(resp *http.Response, v any) error {
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

var errStreamTruncated = errors.New("stream ended before completion")
