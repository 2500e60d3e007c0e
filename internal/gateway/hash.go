package gateway

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"crypto/sha256"
	"fmt"
	"io"
)

// maxDecompressedBytes caps decompression at 10MB, per spec.md §4.3.
// Exceeding the cap truncates the hashed content rather than erroring.
const maxDecompressedBytes = 10_000_000

// hashBody produces a 32-byte SHA-256 digest of body, decompressing
// first when encoding is "gzip" or "deflate". A decompression error is
// returned rather than panicking, resolving the Open Question in
// spec.md §9: the verifier surfaces it as a validation failure, not a
// crashed worker.
func hashBody(body []byte, encoding string) ([32]byte, error) {
	switch encoding {
	case "gzip":
		decoded, err := decompress(func(r io.Reader) (io.Reader, error) { return gzip.NewReader(r) }, body)
		if err != nil {
			return [32]byte{}, fmt.Errorf("gateway: gzip decompression failed: %w", err)
		}
		return sha256.Sum256(decoded), nil
	case "deflate":
		decoded, err := decompress(func(r io.Reader) (io.Reader, error) { return flate.NewReader(r), nil }, body)
		if err != nil {
			return [32]byte{}, fmt.Errorf("gateway: deflate decompression failed: %w", err)
		}
		return sha256.Sum256(decoded), nil
	default:
		return sha256.Sum256(body), nil
	}
}

// decompress reads up to maxDecompressedBytes from the decoder built by
// newReader over body. Reaching the cap is a truncation, not an error:
// the caller hashes whatever was read.
func decompress(newReader func(io.Reader) (io.Reader, error), body []byte) ([]byte, error) {
	r, err := newReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if closer, ok := r.(io.Closer); ok {
		defer closer.Close()
	}
	limited := io.LimitReader(r, maxDecompressedBytes)
	decoded, err := io.ReadAll(limited)
	if err != nil {
		return nil, err
	}
	return decoded, nil
}
