package gateway

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"net/http/httputil"
	"strings"
	"sync"

	"github.com/3cL1p5e7/icx-gateway/internal/gwerror"
	"github.com/3cL1p5e7/icx-gateway/internal/replica"
)

// connKey is the context key a pinned replica URL is stored under, set
// once per connection via NewConnContext and read by Dispatcher for
// every request on that connection. Pinning per connection (rather
// than per request) keeps a client's query/update pair, and any
// streaming follow-up calls, talking to the same replica, per spec.md §9.
type connKey struct{}

// NewConnContext returns an http.Server.ConnContext hook that picks one
// replica from pool for the lifetime of the connection.
func NewConnContext(pool *replica.Pool) func(ctx context.Context, c net.Conn) context.Context {
	return func(ctx context.Context, c net.Conn) context.Context {
		return context.WithValue(ctx, connKey{}, pool.Pick())
	}
}

func replicaFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(connKey{}).(string)
	return v, ok
}

// Dispatcher is the gateway's top-level http.Handler: it classifies
// each request by path prefix (spec.md §4.8) and routes it to the
// replica API proxy, the configured admin proxy, or the canister
// request pipeline.
type Dispatcher struct {
	Forwarder  *Forwarder
	Client     *http.Client
	AdminProxy string // empty disables the /_/ admin pass-through
	Debug      bool
	Logger     *slog.Logger

	mu           sync.Mutex
	apiProxies   map[string]*httputil.ReverseProxy
	adminHandler *httputil.ReverseProxy
}

func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	switch {
	case strings.HasPrefix(path, "/api/"):
		d.serveAPIProxy(w, r)
	case strings.HasPrefix(path, "/_/") && !isRawPath(path):
		d.serveAdminProxy(w, r)
	default:
		d.serveCanister(w, r)
	}
}

// isRawPath reports whether path is "/_/raw" or a child of it: these
// bypass the admin proxy and flow to the canister pipeline like any
// other canister request, certification check included, per spec.md §6.
func isRawPath(path string) bool {
	return path == "/_/raw" || strings.HasPrefix(path, "/_/raw/")
}

// serveAPIProxy forwards /api/* verbatim to this connection's pinned
// replica, matching the original's transparent passthrough of the
// platform's own HTTP interface.
func (d *Dispatcher) serveAPIProxy(w http.ResponseWriter, r *http.Request) {
	target, ok := replicaFromContext(r.Context())
	if !ok {
		d.writeError(w, r, gwerror.Internal("no replica pinned to connection", nil))
		return
	}
	proxy := d.apiProxyFor(target)
	if proxy == nil {
		d.writeError(w, r, gwerror.Internal("building replica proxy", nil))
		return
	}
	proxy.ServeHTTP(w, r)
}

func (d *Dispatcher) apiProxyFor(target string) *httputil.ReverseProxy {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.apiProxies == nil {
		d.apiProxies = make(map[string]*httputil.ReverseProxy)
	}
	if p, ok := d.apiProxies[target]; ok {
		return p
	}
	p, err := newReverseProxy(target, d.Client)
	if err != nil {
		d.Logger.Error("invalid replica URL", "replica", target, "error", err)
		return nil
	}
	d.apiProxies[target] = p
	return p
}

// serveAdminProxy forwards /_/* (other than /_/raw) to the configured
// admin target, or answers 404 when none is configured.
func (d *Dispatcher) serveAdminProxy(w http.ResponseWriter, r *http.Request) {
	if d.AdminProxy == "" {
		d.writeError(w, r, gwerror.NotFound("Not found"))
		return
	}
	d.mu.Lock()
	if d.adminHandler == nil {
		p, err := newReverseProxy(d.AdminProxy, d.Client)
		if err != nil {
			d.mu.Unlock()
			d.writeError(w, r, gwerror.Internal("building admin proxy", err))
			return
		}
		d.adminHandler = p
	}
	handler := d.adminHandler
	d.mu.Unlock()
	handler.ServeHTTP(w, r)
}

// serveCanister runs the canister request pipeline (§4.1-§4.6),
// constructing a fresh Agent bound to this connection's pinned replica.
func (d *Dispatcher) serveCanister(w http.ResponseWriter, r *http.Request) {
	target, ok := replicaFromContext(r.Context())
	if !ok {
		d.writeError(w, r, gwerror.Internal("no replica pinned to connection", nil))
		return
	}
	a := d.Forwarder.newAgent(target, d.Client)
	if err := d.Forwarder.ServeCanisterRequest(w, r, a, d.Logger); err != nil {
		d.writeError(w, r, err)
	}
}

// writeError projects any error to the HTTP status/body contract, per
// spec.md §7: debug mode additionally reveals KindInternal detail.
func (d *Dispatcher) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ge := gwerror.As(err)
	d.Logger.Error("request failed", "path", r.URL.Path, "kind", ge.Kind, "error", ge.Err)
	http.Error(w, ge.Body(d.Debug), ge.Status())
}
