package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/fxamacker/cbor/v2"

	"github.com/3cL1p5e7/icx-gateway/internal/agent"
)

// fakeStreamReplica scripts a replica's query responses for successive
// StreamCallback invocations, mirroring the CBOR shape
// agent.Agent.StreamCallback decodes directly (no call-reply envelope,
// unlike http_request's query/update path).
func fakeStreamReplica(t *testing.T, responses func(call int) agent.StreamingCallbackResponse) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(atomic.AddInt32(&calls, 1)) - 1
		encoded, err := cbor.Marshal(responses(n))
		if err != nil {
			t.Fatalf("cbor.Marshal streaming response: %v", err)
		}
		w.Write(encoded)
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func drainChunks(chunks <-chan []byte) [][]byte {
	var out [][]byte
	for c := range chunks {
		out = append(out, append([]byte{}, c...))
	}
	return out
}

func TestRunCallbackLoopTerminatesOnNilToken(t *testing.T) {
	server, calls := fakeStreamReplica(t, func(call int) agent.StreamingCallbackResponse {
		if call == 0 {
			return agent.StreamingCallbackResponse{Body: []byte("chunk-1"), Token: &agent.CBORValue{Raw: []byte("next")}}
		}
		return agent.StreamingCallbackResponse{Body: []byte("chunk-2")}
	})

	a := agent.New(server.URL, server.Client(), nil)
	cb := &agent.Callback{Canister: []byte{1, 2, 3}, Method: "stream"}

	chunks := make(chan []byte, streamChunkBuffer)
	done := make(chan struct{})

	resultCh := make(chan [][]byte, 1)
	go func() { resultCh <- drainChunks(chunks) }()

	runCallbackLoop(context.Background(), a, cb, chunks, done, discardLogger())
	got := <-resultCh

	if len(got) != 2 {
		t.Fatalf("got %d chunks, want 2: %v", len(got), got)
	}
	if string(got[0]) != "chunk-1" || string(got[1]) != "chunk-2" {
		t.Fatalf("chunks = %q, %q", got[0], got[1])
	}
	if got := atomic.LoadInt32(calls); got != 2 {
		t.Fatalf("replica called %d times, want 2", got)
	}
}

func TestRunCallbackLoopStopsAtCeiling(t *testing.T) {
	server, calls := fakeStreamReplica(t, func(call int) agent.StreamingCallbackResponse {
		// Never terminates on its own: every reply carries a next token.
		return agent.StreamingCallbackResponse{Body: []byte("x"), Token: &agent.CBORValue{Raw: []byte("more")}}
	})

	a := agent.New(server.URL, server.Client(), nil)
	cb := &agent.Callback{Canister: []byte{1, 2, 3}, Method: "stream"}

	chunks := make(chan []byte, streamChunkBuffer)
	done := make(chan struct{})

	resultCh := make(chan [][]byte, 1)
	go func() { resultCh <- drainChunks(chunks) }()

	runCallbackLoop(context.Background(), a, cb, chunks, done, discardLogger())
	got := <-resultCh

	if len(got) != maxStreamCallbacks {
		t.Fatalf("got %d chunks, want the %d-call ceiling", len(got), maxStreamCallbacks)
	}
	if gotCalls := atomic.LoadInt32(calls); gotCalls != int32(maxStreamCallbacks) {
		t.Fatalf("replica called %d times, want %d", gotCalls, maxStreamCallbacks)
	}
}

func TestStreamResponseWritesInitialBodyAndChunks(t *testing.T) {
	server, _ := fakeStreamReplica(t, func(call int) agent.StreamingCallbackResponse {
		if call == 0 {
			return agent.StreamingCallbackResponse{Body: []byte("chunk-1"), Token: &agent.CBORValue{Raw: []byte("next")}}
		}
		return agent.StreamingCallbackResponse{Body: []byte("chunk-2")}
	})

	a := agent.New(server.URL, server.Client(), nil)
	strategy := &agent.StreamingStrategy{
		Callback: &agent.Callback{Canister: []byte{1, 2, 3}, Method: "stream"},
	}

	rec := httptest.NewRecorder()
	streamResponse(context.Background(), rec, nil, a, []byte("initial-"), strategy, discardLogger())

	want := "initial-chunk-1chunk-2"
	if rec.Body.String() != want {
		t.Fatalf("body = %q, want %q", rec.Body.String(), want)
	}
}
