// Package rootkey implements the platform's certificate-signature
// verification: a BLS12-381 pairing check binding a certificate's
// signature (and any delegation chain) to the configured root public
// key. spec.md §1 treats this algorithm as a black box the certification
// verifier calls; this package is that concrete boundary.
package rootkey

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	bls12381 "github.com/kilic/bls12-381"

	"github.com/3cL1p5e7/icx-gateway/internal/certtree"
)

// derPrefix is the fixed ASN.1 DER prefix the platform wraps its
// 96-byte compressed G2 public key in. Root keys are always published
// with this prefix; it is stripped before constructing the G2 point.
var derPrefix = []byte{
	0x30, 0x81, 0x82, 0x30, 0x1d, 0x06, 0x0d, 0x2b,
	0x06, 0x01, 0x04, 0x01, 0x82, 0xdc, 0x7c, 0x05,
	0x03, 0x01, 0x02, 0x01, 0x06, 0x0c, 0x2b, 0x06,
	0x01, 0x04, 0x01, 0x82, 0xdc, 0x7c, 0x05, 0x03,
	0x02, 0x01, 0x03, 0x61, 0x00,
}

const sigDomainSeparator = "ic-state-root"

// Verifier validates certificates against a configured root public key.
type Verifier struct {
	rootKey []byte // DER-wrapped, as published by the platform
}

// New builds a Verifier bound to rootKey (DER-wrapped compressed G2
// point bytes, e.g. fetched once via a one-shot bootstrap call or baked
// in as the platform's well-known mainnet root key).
func New(rootKey []byte) *Verifier {
	return &Verifier{rootKey: rootKey}
}

// SetRootKey replaces the verifier's root key. cmd/icgateway does not
// call it; it passes a fetched root key to New instead.
func (v *Verifier) SetRootKey(rootKey []byte) {
	v.rootKey = rootKey
}

// VerifyCertificate checks cert's signature against v's root key,
// walking any delegation chain first. Returns a non-nil error on any
// failure (invalid point encoding, pairing mismatch, delegation subnet
// not covered by its parent certificate's tree).
func (v *Verifier) VerifyCertificate(cert *certtree.Certificate) error {
	signingKey := v.rootKey

	if cert.Delegation != nil {
		if err := v.VerifyCertificate(cert.Delegation.Certificate); err != nil {
			return fmt.Errorf("rootkey: delegation certificate: %w", err)
		}
		subnetKey, err := lookupSubnetPublicKey(cert.Delegation.Certificate, cert.Delegation.Subnet)
		if err != nil {
			return fmt.Errorf("rootkey: delegation subnet key: %w", err)
		}
		signingKey = subnetKey
	}

	digest := cert.Tree.Digest()
	return verifyBLS(signingKey, digest[:], cert.Signature)
}

// lookupSubnetPublicKey finds the delegated subnet's public key inside
// the (already-verified) parent certificate's tree, under
// ["subnet", <subnet-id>, "public_key"]. The returned bytes are the raw
// DER-wrapped key as stored in the tree; verifyBLS is the only place
// that strips the DER prefix.
func lookupSubnetPublicKey(parent *certtree.Certificate, subnet []byte) ([]byte, error) {
	path := certtree.LabelsWithBytes(subnet, "public_key")
	path = append([][]byte{[]byte("subnet")}, path...)
	key, ok := parent.Tree.LookupPath(path)
	if !ok {
		return nil, fmt.Errorf("subnet public key not found in delegation certificate")
	}
	return key, nil
}

func stripDERPrefix(der []byte) ([]byte, error) {
	if len(der) <= len(derPrefix) {
		return nil, fmt.Errorf("public key too short to carry the DER prefix")
	}
	if !bytes.HasPrefix(der, derPrefix) {
		// Some subnet keys omit the exact ASN.1 prefix bytes; fall back
		// to taking the trailing 96 bytes, the compressed G2 point size.
		if len(der) < 96 {
			return nil, fmt.Errorf("public key shorter than a compressed G2 point")
		}
		return der[len(der)-96:], nil
	}
	return der[len(derPrefix):], nil
}

// verifyBLS checks that signature is a valid BLS signature over
// message, produced by the private key corresponding to pubkeyDER (a
// possibly DER-wrapped compressed G2 point).
func verifyBLS(pubkeyDER, message, signature []byte) error {
	pubBytes, err := stripDERPrefix(pubkeyDER)
	if err != nil {
		return fmt.Errorf("rootkey: public key: %w", err)
	}

	g1 := bls12381.NewG1()
	g2 := bls12381.NewG2()

	pub, err := g2.FromCompressed(pubBytes)
	if err != nil {
		return fmt.Errorf("rootkey: decoding public key point: %w", err)
	}
	sig, err := g1.FromCompressed(signature)
	if err != nil {
		return fmt.Errorf("rootkey: decoding signature point: %w", err)
	}

	msgPoint, err := hashToG1(g1, message)
	if err != nil {
		return fmt.Errorf("rootkey: hashing message to curve: %w", err)
	}

	engine := bls12381.NewEngine()
	engine.AddPair(sig, g2.One())
	engine.AddPairInv(msgPoint, pub)
	if !engine.Check() {
		return fmt.Errorf("rootkey: BLS pairing check failed")
	}
	return nil
}

// hashToG1 maps message (domain-separated) onto a G1 curve point.
func hashToG1(g1 *bls12381.G1, message []byte) (*bls12381.PointG1, error) {
	h := sha256.New()
	h.Write([]byte(sigDomainSeparator))
	h.Write(message)
	return g1.HashToCurveFT(h.Sum(nil), []byte(sigDomainSeparator))
}
