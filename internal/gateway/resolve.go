package gateway

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/3cL1p5e7/icx-gateway/internal/canisterid"
	"github.com/3cL1p5e7/icx-gateway/internal/dns"
)

// resolveCanisterID implements spec.md §4.1: Host header first, then
// the request URI's canisterId query parameter, then the Referer
// header's query parameter. The first success wins; returning false
// means the caller must respond 400.
func resolveCanisterID(r *http.Request, cfg *dns.Config) (canisterid.ID, bool) {
	if host := r.Host; host != "" {
		if id, ok := resolveFromHost(host, cfg); ok {
			return id, true
		}
	}
	if id, ok := resolveFromQuery(r.URL); ok {
		return id, true
	}
	if referer := r.Header.Get("Referer"); referer != "" {
		if refURL, err := url.Parse(referer); err == nil {
			if id, ok := resolveFromQuery(refURL); ok {
				return id, true
			}
		}
	}
	return canisterid.ID{}, false
}

// resolveFromHost parses host as a URI authority (stripping any port),
// splits on '.', lower-cases, and resolves against cfg.
func resolveFromHost(host string, cfg *dns.Config) (canisterid.ID, bool) {
	hostOnly := host
	if h, _, err := splitHostPort(host); err == nil {
		hostOnly = h
	}
	if hostOnly == "" {
		return canisterid.ID{}, false
	}
	labels := strings.Split(strings.ToLower(hostOnly), ".")
	return cfg.Resolve(labels)
}

// splitHostPort strips an optional ":port" suffix without requiring
// one to be present, unlike net.SplitHostPort.
func splitHostPort(host string) (string, string, error) {
	if i := strings.LastIndex(host, ":"); i >= 0 && !strings.Contains(host[i+1:], "]") {
		// Guard against bare IPv6 literals without a port, which contain
		// colons but no trailing port segment worth stripping.
		if strings.Count(host, ":") == 1 {
			return host[:i], host[i+1:], nil
		}
	}
	return host, "", nil
}

// resolveFromQuery finds a "canisterId" query parameter and parses it.
func resolveFromQuery(u *url.URL) (canisterid.ID, bool) {
	if u == nil {
		return canisterid.ID{}, false
	}
	values := u.Query()
	raw := values.Get("canisterId")
	if raw == "" {
		return canisterid.ID{}, false
	}
	id, err := canisterid.Parse(raw)
	if err != nil {
		return canisterid.ID{}, false
	}
	return id, true
}
