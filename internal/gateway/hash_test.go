package gateway

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"testing"
)

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

func TestHashBodyIdentity(t *testing.T) {
	body := []byte("hello world")
	want := sha256.Sum256(body)
	got, err := hashBody(body, "")
	if err != nil {
		t.Fatalf("hashBody: %v", err)
	}
	if got != want {
		t.Fatalf("hashBody() = %x, want %x", got, want)
	}
}

func TestHashBodyGzipDecompressesFirst(t *testing.T) {
	original := []byte("the quick brown fox")
	compressed := gzipBytes(t, original)
	want := sha256.Sum256(original)

	got, err := hashBody(compressed, "gzip")
	if err != nil {
		t.Fatalf("hashBody: %v", err)
	}
	if got != want {
		t.Fatalf("hashBody() = %x, want %x", got, want)
	}
}

func TestHashBodyGzipInvalidReturnsError(t *testing.T) {
	if _, err := hashBody([]byte("not gzip data"), "gzip"); err == nil {
		t.Fatal("expected error decompressing invalid gzip data")
	}
}

func TestHashBodyUnknownEncodingHashesRaw(t *testing.T) {
	body := []byte("raw bytes")
	want := sha256.Sum256(body)
	got, err := hashBody(body, "br")
	if err != nil {
		t.Fatalf("hashBody: %v", err)
	}
	if got != want {
		t.Fatalf("hashBody() = %x, want %x (unknown encodings are not decompressed)", got, want)
	}
}
