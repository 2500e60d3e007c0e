// Command icgateway is the HTTP entry point: it binds a listener,
// resolves canisters from incoming hostnames, forwards requests to a
// pool of replicas, and certifies the responses it returns to
// browsers. See SPEC_FULL.md for the full component design.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/3cL1p5e7/icx-gateway/internal/agent"
	"github.com/3cL1p5e7/icx-gateway/internal/config"
	"github.com/3cL1p5e7/icx-gateway/internal/dns"
	"github.com/3cL1p5e7/icx-gateway/internal/gateway"
	"github.com/3cL1p5e7/icx-gateway/internal/gwerror"
	"github.com/3cL1p5e7/icx-gateway/internal/replica"
	"github.com/3cL1p5e7/icx-gateway/internal/rootkey"
	"github.com/3cL1p5e7/icx-gateway/internal/transport"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := replica.New(cfg.Replicas)
	if err != nil {
		logger.Error("failed to build replica pool", "error", err)
		os.Exit(1)
	}

	dnsConfig, err := dns.New(cfg.DNSAlias, cfg.DNSSuffix)
	if err != nil {
		logger.Error("failed to build DNS resolution config", "error", err)
		os.Exit(1)
	}

	client := transport.NewClient()

	var rootKeyBytes []byte
	if cfg.FetchRootKey {
		bootstrap := agent.New(pool.Pick(), client, nil)
		rootKeyBytes, err = bootstrap.FetchRootKey(ctx)
		if err != nil {
			ge := gwerror.RootKey(err)
			logger.Error(ge.Message, "error", ge.Err)
			os.Exit(1)
		}
		logger.Info("fetched root key from replica")
	}

	verifier := rootkey.New(rootKeyBytes)

	forwarder := &gateway.Forwarder{
		DNS:      dnsConfig,
		Verifier: verifier,
		RootKey:  rootKeyBytes,
	}

	dispatcher := &gateway.Dispatcher{
		Forwarder:  forwarder,
		Client:     client,
		AdminProxy: cfg.Proxy,
		Debug:      cfg.Debug,
		Logger:     logger,
	}

	handler := gateway.LoggingMiddleware(logger, dispatcher)

	server := &http.Server{
		Addr:        cfg.Address,
		Handler:     handler,
		ConnContext: gateway.NewConnContext(pool),
	}

	go func() {
		logger.Info("starting server", "addr", cfg.Address, "replicas", cfg.Replicas, "fetch_root_key", cfg.FetchRootKey)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
