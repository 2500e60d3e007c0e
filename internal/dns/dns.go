// Package dns resolves canister identities from HTTP request hosts, per
// the gateway's alias-map and host-suffix configuration. It is built
// once at startup and shared read-only for the process lifetime.
package dns

import (
	"fmt"
	"strings"

	"github.com/3cL1p5e7/icx-gateway/internal/canisterid"
)

// Config is the immutable DNS resolution configuration: an alias map
// from dotted host to canister id, plus an ordered list of host
// suffixes that grant canister-from-subdomain parsing.
type Config struct {
	aliases  map[string]canisterid.ID
	suffixes [][]string
}

// New builds a Config from "domain.name:canister-id" alias entries and
// bare host-suffix entries (e.g. "localhost"). A duplicate alias key is
// a fatal configuration error, per the invariant in spec.md §3.
func New(aliasEntries, suffixEntries []string) (*Config, error) {
	aliases := make(map[string]canisterid.ID, len(aliasEntries))
	for _, entry := range aliasEntries {
		domain, idText, ok := strings.Cut(entry, ":")
		if !ok {
			return nil, fmt.Errorf("dns: malformed alias %q, want domain.name:canister-id", entry)
		}
		id, err := canisterid.Parse(idText)
		if err != nil {
			return nil, fmt.Errorf("dns: alias %q: %w", entry, err)
		}
		key := normalizedKey(domain)
		if _, dup := aliases[key]; dup {
			return nil, fmt.Errorf("dns: duplicate alias key %q", key)
		}
		aliases[key] = id
	}

	suffixes := make([][]string, 0, len(suffixEntries))
	for _, s := range suffixEntries {
		suffixes = append(suffixes, splitLabels(s))
	}

	return &Config{aliases: aliases, suffixes: suffixes}, nil
}

func splitLabels(host string) []string {
	labels := strings.Split(host, ".")
	for i, l := range labels {
		labels[i] = strings.ToLower(l)
	}
	return labels
}

func normalizedKey(host string) string {
	return strings.Join(splitLabels(host), ".")
}

// Resolve implements spec.md §4.1 step 1 against already-split,
// already-lower-cased host labels: alias lookup against progressively
// shorter prefixes (longest match first), then suffix match, then the
// hardcoded localhost/leading-label fallbacks.
func (c *Config) Resolve(labels []string) (canisterid.ID, bool) {
	if id, ok := c.resolveAlias(labels); ok {
		return id, true
	}
	if id, ok := c.resolveSuffix(labels); ok {
		return id, true
	}
	return c.resolveFallback(labels)
}

// resolveAlias tries progressively shorter label prefixes against the
// alias map, longest first, so a more specific alias wins over a
// shorter one that happens to also match.
func (c *Config) resolveAlias(labels []string) (canisterid.ID, bool) {
	for n := len(labels); n > 0; n-- {
		key := strings.Join(labels[:n], ".")
		if id, ok := c.aliases[key]; ok {
			return id, true
		}
	}
	return canisterid.ID{}, false
}

// resolveSuffix checks whether the trailing labels equal any configured
// suffix; if so, the label immediately to its left is parsed as a
// canister id.
func (c *Config) resolveSuffix(labels []string) (canisterid.ID, bool) {
	for _, suffix := range c.suffixes {
		if !hasSuffix(labels, suffix) {
			continue
		}
		idx := len(labels) - len(suffix) - 1
		if idx < 0 {
			continue
		}
		if id, err := canisterid.Parse(labels[idx]); err == nil {
			return id, true
		}
	}
	return canisterid.ID{}, false
}

func hasSuffix(labels, suffix []string) bool {
	if len(suffix) > len(labels) {
		return false
	}
	offset := len(labels) - len(suffix)
	for i, s := range suffix {
		if labels[offset+i] != s {
			return false
		}
	}
	return true
}

// resolveFallback implements the hardcoded fallbacks: if the trailing
// label is "localhost", parse the preceding label; otherwise parse the
// leading label. Invalid parses fall through silently (return false).
func (c *Config) resolveFallback(labels []string) (canisterid.ID, bool) {
	if len(labels) == 0 {
		return canisterid.ID{}, false
	}
	if labels[len(labels)-1] == "localhost" && len(labels) >= 2 {
		if id, err := canisterid.Parse(labels[len(labels)-2]); err == nil {
			return id, true
		}
		return canisterid.ID{}, false
	}
	if id, err := canisterid.Parse(labels[0]); err == nil {
		return id, true
	}
	return canisterid.ID{}, false
}
