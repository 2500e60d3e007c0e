// Package gateway implements the request-processing pipeline described
// in spec.md §4: canister resolution, request translation/dispatch,
// response certification, and streaming body assembly.
package gateway

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/3cL1p5e7/icx-gateway/internal/agent"
	"github.com/3cL1p5e7/icx-gateway/internal/dns"
	"github.com/3cL1p5e7/icx-gateway/internal/gwerror"
	"github.com/3cL1p5e7/icx-gateway/internal/rootkey"
)

// updateFirstDelay and updateTimeout are the polling parameters for an
// upgraded (consensus-bound) call, per spec.md §4.6 step 4.
const (
	updateFirstDelay = 500 * time.Millisecond
	updateTimeout    = 15 * time.Second
)

// maxLoggedBodyBytes caps trace-level request body logging,
// supplementing the spec from original_source/src/main.rs's
// MAX_LOG_BODY_SIZE. Response bodies are not logged.
const maxLoggedBodyBytes = 100

// Forwarder orchestrates one canister-served request: resolve, call,
// verify, stream, translate to an HTTP response. See spec.md §4.6.
type Forwarder struct {
	DNS      *dns.Config
	Verifier *rootkey.Verifier
	RootKey  []byte
}

// newAgent builds a fresh Agent bound to replicaURL, matching the
// original's per-request Agent::builder()...build(), per spec.md §9.
func (f *Forwarder) newAgent(replicaURL string, client *http.Client) *agent.Agent {
	return agent.New(replicaURL, client, f.RootKey)
}

// ServeCanisterRequest implements the non-proxied request path. a is
// the Agent bound to this connection's pinned replica, constructed
// fresh per request per spec.md §9 ("Agents are per-request").
func (f *Forwarder) ServeCanisterRequest(w http.ResponseWriter, r *http.Request, a *agent.Agent, logger *slog.Logger) error {
	canister, ok := resolveCanisterID(r, f.DNS)
	if !ok {
		return gwerror.BadRequest("Could not find a canister id to forward to.")
	}
	logger = logger.With("canister", canister.String())

	headers := collectRequestHeaders(r)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return gwerror.Internal("reading request body", err)
	}

	logTraceRequest(logger, r, body)

	req := agent.HTTPRequest{
		Method:  r.Method,
		URI:     r.URL.RequestURI(),
		Headers: headers,
		Body:    body,
	}

	resp, err := a.Query(r.Context(), canister, req)
	if err != nil {
		return mapCallError(err)
	}

	if resp.Upgrade != nil && *resp.Upgrade {
		resp, err = a.Update(r.Context(), canister, req, updateFirstDelay, updateTimeout)
		if err != nil {
			return mapCallError(err)
		}
	}

	for _, h := range resp.Headers {
		w.Header().Add(h.Name, h.Value)
	}

	headersData := extractHeadersData(resp.Headers, logger)

	if resp.StreamingStrategy != nil {
		w.WriteHeader(int(resp.StatusCode))
		flusher, _ := w.(http.Flusher)
		streamResponse(r.Context(), w, flusher, a, resp.Body, resp.StreamingStrategy, logger)
		return nil
	}

	digest, err := hashBody(resp.Body, headersData.Encoding)
	if err != nil {
		if verr := handleVerificationFailure(logger, gwerror.Verification(bodyDoesNotVerify)); verr != nil {
			return verr
		}
	} else if err := verifyResponseBody(headersData, canister, f.Verifier, r.URL.Path, digest); err != nil {
		if verr := handleVerificationFailure(logger, gwerror.Verification(err.Error())); verr != nil {
			return verr
		}
	}

	w.WriteHeader(int(resp.StatusCode))
	_, _ = w.Write(resp.Body)
	return nil
}

// collectRequestHeaders converts net/http's header map into the flat
// HeaderField list the canister's entry point expects.
func collectRequestHeaders(r *http.Request) []agent.HeaderField {
	fields := make([]agent.HeaderField, 0, len(r.Header))
	for name, values := range r.Header {
		for _, v := range values {
			fields = append(fields, agent.HeaderField{Name: name, Value: v})
		}
	}
	return fields
}

// mapCallError implements spec.md §4.6 step 3/4's error mapping: a
// replica reject surfaces verbatim; anything else is an internal error
// for the dispatcher to categorize.
func mapCallError(err error) error {
	var reject *agent.RejectError
	if errors.As(err, &reject) {
		return gwerror.ReplicaReject(reject.Code, reject.Message)
	}
	return gwerror.Internal("calling canister", err)
}

func logTraceRequest(logger *slog.Logger, r *http.Request, body []byte) {
	if !logger.Enabled(r.Context(), slog.LevelDebug-4) { // trace-ish: below Debug
		return
	}
	n := len(body)
	if n > maxLoggedBodyBytes {
		n = maxLoggedBodyBytes
	}
	logger.Log(r.Context(), slog.LevelDebug-4, "request body", "method", r.Method, "uri", r.URL.String(), "body", string(body[:n]), "truncated", len(body) > maxLoggedBodyBytes)
}
