package certtree

import (
	"testing"

	"github.com/fxamacker/cbor/v2"
)

func encodeCertificate(t *testing.T, rc rawCertificate) []byte {
	t.Helper()
	raw, err := cbor.Marshal(rc)
	if err != nil {
		t.Fatalf("cbor.Marshal: %v", err)
	}
	return raw
}

func TestParseCertificateMinimal(t *testing.T) {
	tree := encodeTree(t, leafNode([]byte("payload")))
	raw := encodeCertificate(t, rawCertificate{
		Tree:      tree,
		Signature: []byte{1, 2, 3},
	})

	cert, err := ParseCertificate(raw)
	if err != nil {
		t.Fatalf("ParseCertificate: %v", err)
	}
	if string(cert.Signature) != "\x01\x02\x03" {
		t.Fatalf("Signature = %v, want %v", cert.Signature, []byte{1, 2, 3})
	}
	if cert.Delegation != nil {
		t.Fatal("expected no delegation")
	}
	value, ok := cert.Tree.LookupPath(nil)
	if !ok || string(value) != "payload" {
		t.Fatalf("tree not parsed correctly: value=%q ok=%v", value, ok)
	}
}

func TestParseCertificateWithDelegation(t *testing.T) {
	innerTree := encodeTree(t, leafNode([]byte("inner")))
	inner := encodeCertificate(t, rawCertificate{
		Tree:      innerTree,
		Signature: []byte{9, 9, 9},
	})

	outerTree := encodeTree(t, leafNode([]byte("outer")))
	outer := encodeCertificate(t, rawCertificate{
		Tree:      outerTree,
		Signature: []byte{1, 1, 1},
		Delegation: &rawDelegation{
			Subnet:      []byte("subnet-a"),
			Certificate: inner,
		},
	})

	cert, err := ParseCertificate(outer)
	if err != nil {
		t.Fatalf("ParseCertificate: %v", err)
	}
	if cert.Delegation == nil {
		t.Fatal("expected a delegation")
	}
	if string(cert.Delegation.Subnet) != "subnet-a" {
		t.Fatalf("Subnet = %q, want %q", cert.Delegation.Subnet, "subnet-a")
	}
	value, ok := cert.Delegation.Certificate.Tree.LookupPath(nil)
	if !ok || string(value) != "inner" {
		t.Fatalf("delegation tree not parsed correctly: value=%q ok=%v", value, ok)
	}
}

func TestParseCertificateRejectsMissingTree(t *testing.T) {
	raw := encodeCertificate(t, rawCertificate{Signature: []byte{1}})
	if _, err := ParseCertificate(raw); err == nil {
		t.Fatal("expected error for certificate missing a tree")
	}
}

func TestParseCertificateRejectsMissingSignature(t *testing.T) {
	tree := encodeTree(t, leafNode([]byte("x")))
	raw := encodeCertificate(t, rawCertificate{Tree: tree})
	if _, err := ParseCertificate(raw); err == nil {
		t.Fatal("expected error for certificate missing a signature")
	}
}

func TestLabelsWithBytes(t *testing.T) {
	got := LabelsWithBytes([]byte{1, 2}, "a", "b")
	want := [][]byte{{1, 2}, []byte("a"), []byte("b")}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if string(got[i]) != string(want[i]) {
			t.Fatalf("segment %d = %q, want %q", i, got[i], want[i])
		}
	}
}
