package certtree

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Delegation binds a subnet's own certificate (signed by the root key)
// to the subnet public key that, in turn, signs the outer certificate.
// The platform uses this to let the root key delegate signing authority
// to individual subnets without re-signing every certificate at the
// root.
type Delegation struct {
	Subnet      []byte
	Certificate *Certificate
}

// Certificate is the parsed certificate envelope: the signed hash tree
// plus its BLS signature, and an optional delegation chain.
type Certificate struct {
	Tree       *HashTree
	Signature  []byte
	Delegation *Delegation
}

type rawCertificate struct {
	Tree       cbor.RawMessage `cbor:"tree"`
	Signature  []byte          `cbor:"signature"`
	Delegation *rawDelegation  `cbor:"delegation,omitempty"`
}

type rawDelegation struct {
	Subnet      []byte          `cbor:"subnet_id"`
	Certificate cbor.RawMessage `cbor:"certificate"`
}

// ParseCertificate decodes raw CBOR bytes into a Certificate, including
// any nested delegation certificate.
func ParseCertificate(raw []byte) (*Certificate, error) {
	var rc rawCertificate
	if err := cbor.Unmarshal(raw, &rc); err != nil {
		return nil, fmt.Errorf("certtree: invalid certificate CBOR: %w", err)
	}
	if len(rc.Tree) == 0 {
		return nil, fmt.Errorf("certtree: certificate missing tree")
	}
	if len(rc.Signature) == 0 {
		return nil, fmt.Errorf("certtree: certificate missing signature")
	}

	tree, err := ParseTree(rc.Tree)
	if err != nil {
		return nil, err
	}

	cert := &Certificate{Tree: tree, Signature: rc.Signature}

	if rc.Delegation != nil {
		inner, err := ParseCertificate(rc.Delegation.Certificate)
		if err != nil {
			return nil, fmt.Errorf("certtree: delegation certificate: %w", err)
		}
		cert.Delegation = &Delegation{Subnet: rc.Delegation.Subnet, Certificate: inner}
	}

	return cert, nil
}

// Labels converts string path segments to byte labels for LookupPath.
func Labels(segments ...string) [][]byte {
	out := make([][]byte, len(segments))
	for i, s := range segments {
		out[i] = []byte(s)
	}
	return out
}

// LabelsWithBytes is Labels but allows the first segment's raw bytes
// (e.g. a canister id) to be passed directly instead of as a string.
func LabelsWithBytes(first []byte, rest ...string) [][]byte {
	out := make([][]byte, 0, len(rest)+1)
	out = append(out, first)
	for _, s := range rest {
		out = append(out, []byte(s))
	}
	return out
}
