package gateway

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/3cL1p5e7/icx-gateway/internal/agent"
)

// maxStreamCallbacks bounds the continuation-token loop, per spec.md §4.5.
const maxStreamCallbacks = 1000

// streamChunkBuffer bounds the channel between the assembler and the
// client writer, giving the streaming loop natural back-pressure: once
// the client stalls, the next send blocks the assembler, throttling
// canister callbacks (spec.md §5).
const streamChunkBuffer = 4

// streamResponse writes the initial body immediately, then drives the
// continuation-token loop described in spec.md §4.5, writing each
// chunk to w as it arrives. Streamed bodies are never certified — see
// the Design Note in spec.md §9; this is a deliberate trust boundary,
// not an oversight.
func streamResponse(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, a *agent.Agent, initial []byte, strategy *agent.StreamingStrategy, logger *slog.Logger) {
	if _, err := w.Write(initial); err != nil {
		return
	}
	if flusher != nil {
		flusher.Flush()
	}
	if strategy == nil || strategy.Callback == nil {
		return
	}

	chunks := make(chan []byte, streamChunkBuffer)
	done := make(chan struct{})

	go runCallbackLoop(ctx, a, strategy.Callback, chunks, done, logger)

	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				return
			}
			if _, err := w.Write(chunk); err != nil {
				// Client gone: stop draining and close done, which
				// runCallbackLoop selects on before its next send.
				close(done)
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		case <-ctx.Done():
			close(done)
			return
		}
	}
}

// runCallbackLoop issues continuation calls until the canister returns
// no next token, a callback errors, the 1000-call ceiling is hit, or
// done is closed (the client went away). It always closes chunks on
// exit so the writer loop terminates.
func runCallbackLoop(ctx context.Context, a *agent.Agent, cb *agent.Callback, chunks chan<- []byte, done <-chan struct{}, logger *slog.Logger) {
	defer close(chunks)

	token := cb.Token
	for count := 0; count < maxStreamCallbacks; count++ {
		resp, err := a.StreamCallback(ctx, cb.Canister, cb.Method, token)
		if err != nil {
			logger.Debug("error happened during streaming", "error", err)
			return
		}

		select {
		case chunks <- resp.Body:
		case <-done:
			return
		}

		if resp.Token == nil {
			return
		}
		token = *resp.Token
	}
	logger.Debug("streaming callback ceiling reached, aborting", "limit", maxStreamCallbacks)
}
