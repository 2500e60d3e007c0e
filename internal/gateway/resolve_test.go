package gateway

import (
	"net/http/httptest"
	"testing"

	"github.com/3cL1p5e7/icx-gateway/internal/canisterid"
	"github.com/3cL1p5e7/icx-gateway/internal/dns"
)

func mustDNS(t *testing.T, aliases, suffixes []string) *dns.Config {
	t.Helper()
	cfg, err := dns.New(aliases, suffixes)
	if err != nil {
		t.Fatalf("dns.New: %v", err)
	}
	return cfg
}

func TestResolveCanisterIDFromHost(t *testing.T) {
	id := canisterid.FromBytes([]byte{1, 2, 3})
	cfg := mustDNS(t, []string{"app.example.com:" + id.String()}, nil)

	req := httptest.NewRequest("GET", "/", nil)
	req.Host = "app.example.com"

	got, ok := resolveCanisterID(req, cfg)
	if !ok {
		t.Fatal("expected resolution from Host header")
	}
	if !got.Equal(id) {
		t.Fatalf("got %v, want %v", got, id)
	}
}

func TestResolveCanisterIDFromQueryParam(t *testing.T) {
	id := canisterid.FromBytes([]byte{4, 5, 6})
	cfg := mustDNS(t, nil, []string{"ic0.app"})

	req := httptest.NewRequest("GET", "/?canisterId="+id.String(), nil)
	req.Host = "gateway.example.com"

	got, ok := resolveCanisterID(req, cfg)
	if !ok {
		t.Fatal("expected resolution from query parameter")
	}
	if !got.Equal(id) {
		t.Fatalf("got %v, want %v", got, id)
	}
}

func TestResolveCanisterIDFromReferer(t *testing.T) {
	id := canisterid.FromBytes([]byte{7, 8, 9})
	cfg := mustDNS(t, nil, []string{"ic0.app"})

	req := httptest.NewRequest("GET", "/asset.js", nil)
	req.Host = "gateway.example.com"
	req.Header.Set("Referer", "https://gateway.example.com/?canisterId="+id.String())

	got, ok := resolveCanisterID(req, cfg)
	if !ok {
		t.Fatal("expected resolution from Referer query parameter")
	}
	if !got.Equal(id) {
		t.Fatalf("got %v, want %v", got, id)
	}
}

func TestResolveCanisterIDHostTakesPriorityOverQuery(t *testing.T) {
	hostID := canisterid.FromBytes([]byte{1})
	queryID := canisterid.FromBytes([]byte{2})
	cfg := mustDNS(t, []string{"app.example.com:" + hostID.String()}, nil)

	req := httptest.NewRequest("GET", "/?canisterId="+queryID.String(), nil)
	req.Host = "app.example.com"

	got, ok := resolveCanisterID(req, cfg)
	if !ok {
		t.Fatal("expected resolution")
	}
	if !got.Equal(hostID) {
		t.Fatal("Host header resolution should take priority over the query parameter")
	}
}

func TestResolveCanisterIDNoneFound(t *testing.T) {
	cfg := mustDNS(t, nil, []string{"ic0.app"})
	req := httptest.NewRequest("GET", "/", nil)
	req.Host = "unrelated.example.com"

	if _, ok := resolveCanisterID(req, cfg); ok {
		t.Fatal("expected no resolution")
	}
}

func TestSplitHostPortStripsPort(t *testing.T) {
	host, port, err := splitHostPort("example.com:8080")
	if err != nil {
		t.Fatalf("splitHostPort: %v", err)
	}
	if host != "example.com" || port != "8080" {
		t.Fatalf("got host=%q port=%q", host, port)
	}
}

func TestSplitHostPortNoPort(t *testing.T) {
	host, port, err := splitHostPort("example.com")
	if err != nil {
		t.Fatalf("splitHostPort: %v", err)
	}
	if host != "example.com" || port != "" {
		t.Fatalf("got host=%q port=%q", host, port)
	}
}
