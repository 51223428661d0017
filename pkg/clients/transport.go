package clients

import (
	"net"
	"net/http"
	"time"
)

// DefaultTransport returns the HTTP transport shared by the gateway's
// upstream clients. Porthole only ever talks to two small services, the
// Identity Service and the Lookout collector, so the per-host caps are
// tight: every media request costs one identity round trip, and a slow
// identity backend must queue cheaply rather than hold a connection per
// in-flight viewer.
func DefaultTransport() *http.Transport {
	return &http.Transport{
		MaxConnsPerHost: 32,

		// Session checks are constant traffic, keep a few warm.
		MaxIdleConnsPerHost: 8,
		MaxIdleConns:        16,
		IdleConnTimeout:     90 * time.Second,

		// Both upstreams sit on the same network segment; if dialing
		// takes longer than this the request's own deadline is next.
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,

		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
