package gateway

import (
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
)

// hopByHopHeaders are stripped before forwarding on the reverse-proxy
// path, per spec.md §4.7 and §6. Unlike the canister request pipeline
// (§4.6, which deliberately does NOT strip these), the admin
// pass-through is a textbook reverse proxy.
var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailers",
	"Transfer-Encoding",
	"Upgrade",
}

// newReverseProxy builds an httputil.ReverseProxy targeting targetURL,
// stripping hop-by-hop headers and appending the client IP to
// X-Forwarded-For, per spec.md §4.7.
func newReverseProxy(targetURL string, client *http.Client) (*httputil.ReverseProxy, error) {
	target, err := url.Parse(targetURL)
	if err != nil {
		return nil, err
	}

	proxy := &httputil.ReverseProxy{
		Transport: client.Transport,
		Rewrite: func(pr *httputil.ProxyRequest) {
			req := pr.Out
			for _, h := range hopByHopHeaders {
				req.Header.Del(h)
			}

			// Rewrite mode removes the inbound X-Forwarded-For from the
			// outbound request and adds none itself, so the prior value is
			// carried over here and extended exactly once.
			if prior := pr.In.Header.Values("X-Forwarded-For"); len(prior) > 0 {
				req.Header.Set("X-Forwarded-For", strings.Join(prior, ", "))
			}
			clientIP := clientIPFromRemoteAddr(pr.In.RemoteAddr)
			if clientIP != "" {
				appendForwardedFor(req.Header, clientIP)
			}

			req.URL.Scheme = target.Scheme
			req.URL.Host = target.Host
			req.Host = target.Host
			// The original path is appended to the target's base path; the
			// query string is kept as is.
			req.URL.Path = singleJoiningSlash(target.Path, req.URL.Path)
		},
	}
	return proxy, nil
}

// appendForwardedFor implements spec.md §8's X-Forwarded-For law:
// create the header if absent, otherwise concatenate "<old>, <ip>".
func appendForwardedFor(h http.Header, clientIP string) {
	if existing := h.Get("X-Forwarded-For"); existing != "" {
		h.Set("X-Forwarded-For", existing+", "+clientIP)
	} else {
		h.Set("X-Forwarded-For", clientIP)
	}
}

func clientIPFromRemoteAddr(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

func singleJoiningSlash(a, b string) string {
	aSlash := strings.HasSuffix(a, "/")
	bSlash := strings.HasPrefix(b, "/")
	switch {
	case aSlash && bSlash:
		return a + b[1:]
	case !aSlash && !bSlash && a != "":
		return a + "/" + b
	default:
		return a + b
	}
}
