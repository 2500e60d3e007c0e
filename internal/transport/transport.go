// Package transport builds the gateway's outbound HTTP client, shared
// by the canister-call agent and the reverse proxy. Generalized from
// internal/proxy/upstream.go's NewUpstreamClient into one constructor
// instead of two copies, since both call sites need the same
// HTTPS-capable, HTTP/2-aware client (spec.md §4.7: "Use an
// HTTPS-capable outbound client").
package transport

import (
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"
)

// NewClient builds an *http.Client suitable for outbound calls to
// replicas and proxy targets: reasonable dial/idle timeouts, and HTTP/2
// over TLS enabled via golang.org/x/net/http2 (the gateway's own
// listener stays HTTP/1.1-only per spec.md §6, so http2.ConfigureTransport
// is used here purely for the outbound leg).
func NewClient() *http.Client {
	t := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       90 * time.Second,
	}
	// Best-effort: HTTP/2 is an optimization, not a correctness
	// requirement, so a failure to configure it is not fatal.
	_ = http2.ConfigureTransport(t)

	return &http.Client{Transport: t}
}
