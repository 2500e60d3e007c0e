// Package config loads the gateway's semantic configuration. CLI
// parsing itself is an external collaborator per spec.md §1; this
// package only specifies the options it produces.
package config

import (
	"flag"
	"fmt"
	"log/slog"
	"strings"
)

// Config is the gateway's semantic configuration, built once at
// startup and shared read-only. See spec.md §6 "Operator configuration".
type Config struct {
	Address      string
	Replicas     []string
	Proxy        string
	FetchRootKey bool
	DNSAlias     []string
	DNSSuffix    []string
	Debug        bool
	LogLevel     slog.Level
}

// stringList collects a repeated flag's values in order.
type stringList struct {
	values *[]string
}

func (s stringList) String() string {
	if s.values == nil {
		return ""
	}
	return strings.Join(*s.values, ",")
}

func (s stringList) Set(v string) error {
	*s.values = append(*s.values, v)
	return nil
}

// Load parses args (typically os.Args[1:]) into a Config.
func Load(args []string) (Config, error) {
	fs := flag.NewFlagSet("icgateway", flag.ContinueOnError)

	cfg := Config{}
	var logLevel string

	fs.StringVar(&cfg.Address, "address", "127.0.0.1:3000", "address to bind to")
	fs.Var(stringList{&cfg.Replicas}, "replica", "replica URL to use as backend (repeatable; round-robin)")
	fs.StringVar(&cfg.Proxy, "proxy", "", "address to forward /_/ requests to")
	fs.BoolVar(&cfg.FetchRootKey, "fetch-root-key", false, "fetch the root key from the replica before serving (never use against mainnet)")
	fs.Var(stringList{&cfg.DNSAlias}, "dns-alias", "domain.name:canister-id mapping (repeatable)")
	fs.Var(stringList{&cfg.DNSSuffix}, "dns-suffix", "host suffix granting canister-from-subdomain parsing (repeatable)")
	fs.BoolVar(&cfg.Debug, "debug", false, "return full error detail in response bodies")
	fs.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if len(cfg.Replicas) == 0 {
		cfg.Replicas = []string{"http://localhost:8000/"}
	}
	if len(cfg.DNSSuffix) == 0 {
		cfg.DNSSuffix = []string{"localhost"}
	}
	cfg.LogLevel = parseLogLevel(logLevel)

	return cfg, nil
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Validate reports a descriptive error for configuration that would be
// a fatal startup error downstream: it rejects an empty replica list
// (which Load never returns, since it fills in a default replica).
// Duplicate aliases are not checked here; dns.New rejects them.
func (c Config) Validate() error {
	if len(c.Replicas) == 0 {
		return fmt.Errorf("config: at least one -replica is required")
	}
	return nil
}
