// Package agent implements the canister-call transport: issuing
// query/update calls against a replica's HTTP interface, polling update
// calls to completion, invoking streaming callbacks, and the one-shot
// root-key bootstrap. spec.md §1 treats the wire encoding as a black
// box ("a library providing verify certificate, parse tree, lookup
// path"); this package is the concrete implementation of that boundary,
// one instance constructed per non-proxied request per spec.md §9.
package agent

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/3cL1p5e7/icx-gateway/internal/canisterid"
)

// RejectError is returned when the replica rejects a call with an
// advertised reject code and message. Surfacing it verbatim is
// explicitly safe per spec.md §7: the same information is retrievable
// by any client talking to the replica directly (e.g. via dfx).
type RejectError struct {
	Code    int64
	Message string
}

func (e *RejectError) Error() string {
	return fmt.Sprintf("replica reject (%d): %s", e.Code, e.Message)
}

// HTTPRequest is the request data handed to the canister's HTTP
// request entry point.
type HTTPRequest struct {
	Method  string
	URI     string
	Headers []HeaderField
	Body    []byte
}

// Agent issues query/update calls and streaming callbacks against one
// replica.
type Agent struct {
	replicaURL string
	client     *http.Client
	rootKey    []byte
}

// New constructs an Agent bound to replicaURL, using client for
// outbound HTTP. rootKey may be nil until FetchRootKey populates it (or
// it is supplied out-of-band for mainnet, where fetching is unsafe).
func New(replicaURL string, client *http.Client, rootKey []byte) *Agent {
	return &Agent{replicaURL: replicaURL, client: client, rootKey: rootKey}
}

// RootKey returns the agent's currently configured root key, or nil if
// none has been set.
func (a *Agent) RootKey() []byte { return a.rootKey }

// callEnvelope is the CBOR request body submitted to the replica's
// query/call endpoints. The real platform interface candid-encodes the
// method arguments and wraps the whole thing in a signed envelope with
// sender/ingress_expiry/nonce; the gateway does not hold end-user
// signing keys, so it submits anonymous calls, the supported mode for a
// public HTTP gateway.
type callEnvelope struct {
	RequestType string        `cbor:"request_type"`
	CanisterID  []byte        `cbor:"canister_id"`
	MethodName  string        `cbor:"method_name"`
	Method      string        `cbor:"http_method"`
	URI         string        `cbor:"http_uri"`
	Headers     []HeaderField `cbor:"http_headers"`
	Body        []byte        `cbor:"http_body"`
}

type callReply struct {
	Status  string          `cbor:"status"`
	Reply   *HTTPResponse   `cbor:"reply,omitempty"`
	Reject  int64           `cbor:"reject_code,omitempty"`
	Message string          `cbor:"reject_message,omitempty"`
}

// Query issues a cheap read-only call to the canister's
// http_request entry point.
func (a *Agent) Query(ctx context.Context, canister canisterid.ID, req HTTPRequest) (*HTTPResponse, error) {
	return a.call(ctx, "query", canister, req)
}

// Update issues the same call as a consensus-bound update, polling
// until completion or timeout. firstDelay is the initial poll backoff
// (the gateway uses 500ms, per spec.md §4.6); timeout bounds the
// overall wait (15s).
func (a *Agent) Update(ctx context.Context, canister canisterid.ID, req HTTPRequest, firstDelay, timeout time.Duration) (*HTTPResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := a.submit(ctx, canister, req); err != nil {
		return nil, err
	}

	delay := firstDelay
	for {
		resp, done, err := a.poll(ctx, canister)
		if err != nil {
			return nil, err
		}
		if done {
			return resp, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("agent: update call timed out: %w", ctx.Err())
		case <-time.After(delay):
		}
		if delay < 2*time.Second {
			delay *= 2
		}
	}
}

func (a *Agent) call(ctx context.Context, kind string, canister canisterid.ID, req HTTPRequest) (*HTTPResponse, error) {
	env := callEnvelope{
		RequestType: kind,
		CanisterID:  canister.Bytes(),
		MethodName:  "http_request",
		Method:      req.Method,
		URI:         req.URI,
		Headers:     req.Headers,
		Body:        req.Body,
	}
	reply, err := a.post(ctx, fmt.Sprintf("%s/api/v2/canister/%s/query", a.replicaURL, canister), env)
	if err != nil {
		return nil, err
	}
	return decodeReply(reply)
}

// submit posts an update call's envelope to the /call endpoint; the
// reply here only acknowledges acceptance, the actual result is
// fetched via poll/read_state.
func (a *Agent) submit(ctx context.Context, canister canisterid.ID, req HTTPRequest) error {
	env := callEnvelope{
		RequestType: "call",
		CanisterID:  canister.Bytes(),
		MethodName:  "http_request_update",
		Method:      req.Method,
		URI:         req.URI,
		Headers:     req.Headers,
		Body:        req.Body,
	}
	_, err := a.post(ctx, fmt.Sprintf("%s/api/v2/canister/%s/call", a.replicaURL, canister), env)
	return err
}

type readStateRequest struct {
	RequestType string `cbor:"request_type"`
	CanisterID  []byte `cbor:"canister_id"`
}

// poll checks the update call's status via read_state; done is true
// once the replica reports "replied" or "rejected".
func (a *Agent) poll(ctx context.Context, canister canisterid.ID) (*HTTPResponse, bool, error) {
	req := readStateRequest{RequestType: "read_state", CanisterID: canister.Bytes()}
	reply, err := a.post(ctx, fmt.Sprintf("%s/api/v2/canister/%s/read_state", a.replicaURL, canister), req)
	if err != nil {
		return nil, false, err
	}
	var cr callReply
	if err := cbor.Unmarshal(reply, &cr); err != nil {
		return nil, false, fmt.Errorf("agent: decoding read_state reply: %w", err)
	}
	switch cr.Status {
	case "replied":
		resp, err := decodeReply(reply)
		return resp, true, err
	case "rejected":
		return nil, true, &RejectError{Code: cr.Reject, Message: cr.Message}
	default:
		return nil, false, nil
	}
}

func decodeReply(raw []byte) (*HTTPResponse, error) {
	var cr callReply
	if err := cbor.Unmarshal(raw, &cr); err != nil {
		return nil, fmt.Errorf("agent: decoding reply: %w", err)
	}
	if cr.Status == "rejected" {
		return nil, &RejectError{Code: cr.Reject, Message: cr.Message}
	}
	if cr.Reply == nil {
		return nil, fmt.Errorf("agent: reply missing http response")
	}
	return cr.Reply, nil
}

// StreamCallback invokes a streaming callback method on canister with
// the current opaque token, returning the next chunk and (if the
// stream continues) the next token.
func (a *Agent) StreamCallback(ctx context.Context, canister []byte, method string, token CBORValue) (*StreamingCallbackResponse, error) {
	env := struct {
		RequestType string `cbor:"request_type"`
		CanisterID  []byte `cbor:"canister_id"`
		MethodName  string `cbor:"method_name"`
		Token       []byte `cbor:"token"`
	}{
		RequestType: "query",
		CanisterID:  canister,
		MethodName:  method,
		Token:       token.Raw,
	}
	reply, err := a.post(ctx, fmt.Sprintf("%s/api/v2/canister/%s/query", a.replicaURL, canisterid.FromBytes(canister)), env)
	if err != nil {
		return nil, err
	}
	var scr StreamingCallbackResponse
	if err := cbor.Unmarshal(reply, &scr); err != nil {
		return nil, fmt.Errorf("agent: decoding streaming callback reply: %w", err)
	}
	return &scr, nil
}

// FetchRootKey performs the one-shot root-key bootstrap against the
// replica's status endpoint. Must never be enabled against a
// production network, per spec.md §6.
func (a *Agent) FetchRootKey(ctx context.Context) ([]byte, error) {
	reply, err := a.get(ctx, a.replicaURL+"/api/v2/status")
	if err != nil {
		return nil, err
	}
	var status struct {
		RootKey []byte `cbor:"root_key"`
	}
	if err := cbor.Unmarshal(reply, &status); err != nil {
		return nil, fmt.Errorf("agent: decoding status reply: %w", err)
	}
	if len(status.RootKey) == 0 {
		return nil, fmt.Errorf("agent: replica status reply has no root_key")
	}
	a.rootKey = status.RootKey
	return status.RootKey, nil
}

func (a *Agent) post(ctx context.Context, url string, body interface{}) ([]byte, error) {
	encoded, err := cbor.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("agent: encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("agent: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/cbor")
	return a.do(req)
}

func (a *Agent) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("agent: building request: %w", err)
	}
	return a.do(req)
}

func (a *Agent) do(req *http.Request) ([]byte, error) {
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("agent: replica unreachable: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("agent: reading replica response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("agent: replica returned %d: %s", resp.StatusCode, string(data))
	}
	return data, nil
}
