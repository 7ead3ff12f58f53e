package httpclient

import (
	"net/http"
	"time"
)

// NewTransport creates a configured HTTP transport.
// The transport is reused across requests for connection pooling
func NewTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,

		// Remote classifier calls go to one or two hosts
		MaxIdleConns:        32,
		MaxIdleConnsPerHost: 16,

		// How long an idle connection stays in the pool
		IdleConnTimeout: 90 * time.Second,

		TLSHandshakeTimeout: 5 * time.Second,

		// Timeout for expecting response headers after request is sent
		ResponseHeaderTimeout: 10 * time.Second,

		ForceAttemptHTTP2: true,
	}
}
