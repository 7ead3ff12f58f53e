package httpclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"time"
)

// DefaultUserAgent is sent when the caller does not set one.
const DefaultUserAgent = "checkurl/1.0"

// MaxBodySize bounds how much of a response body is read.
const MaxBodySize = 1 << 20

// Client wraps http.Client and provides methods for making traced requests
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// TimingInfo holds performance timing information for a request
type TimingInfo struct {
	ConnectStart time.Time
	ConnectDone  time.Time
	TLSStart     time.Time
	TLSDone      time.Time
	GotFirstByte time.Time
	RequestStart time.Time
	RequestDone  time.Time
}

// TTFB returns the time to first response byte.
func (t *TimingInfo) TTFB() time.Duration {
	if t == nil || t.GotFirstByte.IsZero() {
		return 0
	}
	return t.GotFirstByte.Sub(t.RequestStart)
}

// Total returns the full request duration.
func (t *TimingInfo) Total() time.Duration {
	if t == nil || t.RequestDone.IsZero() {
		return 0
	}
	return t.RequestDone.Sub(t.RequestStart)
}

// Response holds the HTTP response along with timing information
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Timings    *TimingInfo
}

// NewClient creates a new HTTP client with the pooled transport.
// timeout bounds each request end to end (0 means no client-side limit).
func NewClient(timeout time.Duration, userAgent string) *Client {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Client{
		httpClient: &http.Client{
			Transport: NewTransport(),
			Timeout:   timeout,
		},
		userAgent: userAgent,
	}
}

// HTTPClient exposes the underlying client for SDKs that take one.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// PostJSON sends body as a JSON POST with tracing enabled and returns the
// response with its body read (up to MaxBodySize).
func (c *Client) PostJSON(ctx context.Context, url string, header http.Header, body []byte) (*Response, error) {
	// Create timing info to capture performance metrics
	timings := &TimingInfo{
		RequestStart: time.Now(),
	}

	trace := &httptrace.ClientTrace{
		ConnectStart: func(_, _ string) {
			timings.ConnectStart = time.Now()
		},
		ConnectDone: func(_, _ string, _ error) {
			timings.ConnectDone = time.Now()
		},
		TLSHandshakeStart: func() {
			timings.TLSStart = time.Now()
		},
		TLSHandshakeDone: func(_ tls.ConnectionState, _ error) {
			timings.TLSDone = time.Now()
		},
		GotFirstResponseByte: func() {
			timings.GotFirstByte = time.Now()
		},
	}

	req, err := http.NewRequestWithContext(
		httptrace.WithClientTrace(ctx, trace),
		http.MethodPost,
		url,
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	// Record when request completed
	timings.RequestDone = time.Now()

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
		Timings:    timings,
	}, nil
}
