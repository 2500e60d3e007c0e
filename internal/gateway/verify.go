package gateway

import (
	"bytes"
	"fmt"

	"github.com/3cL1p5e7/icx-gateway/internal/agent"
	"github.com/3cL1p5e7/icx-gateway/internal/canisterid"
	"github.com/3cL1p5e7/icx-gateway/internal/certtree"
	"github.com/3cL1p5e7/icx-gateway/internal/rootkey"
)

// bodyDoesNotVerify is the fixed message for every §4.4 rejection
// except a certificate or tree parse error (a failed signature check
// uses it too), matching the original's
// single "Body does not pass verification" wording for the boolean-ish
// outcomes of the decision matrix.
const bodyDoesNotVerify = "Body does not pass verification"

// verifyResponseBody implements spec.md §4.4's decision matrix and
// verification algorithm. requestPath is the original request's URI
// path, used for the http_assets lookup (with "/index.html" SPA
// fallback).
func verifyResponseBody(headers agent.HeadersData, canister canisterid.ID, verifier *rootkey.Verifier, requestPath string, bodyDigest [32]byte) error {
	switch {
	case !headers.Certificate.Present && !headers.Tree.Present:
		// Uncertified content is permitted.
		return nil
	case headers.Certificate.Present && headers.Tree.Present &&
		headers.Certificate.Err == nil && headers.Tree.Err == nil:
		return runVerification(headers.Certificate.Bytes, headers.Tree.Bytes, canister, verifier, requestPath, bodyDigest)
	default:
		// One present without the other, or either is a decode error.
		return fmt.Errorf("%s", bodyDoesNotVerify)
	}
}

func runVerification(certBytes, treeBytes []byte, canister canisterid.ID, verifier *rootkey.Verifier, requestPath string, bodyDigest [32]byte) error {
	cert, err := certtree.ParseCertificate(certBytes)
	if err != nil {
		return fmt.Errorf("certificate validation failed: %w", err)
	}
	suppTree, err := certtree.ParseTree(treeBytes)
	if err != nil {
		return fmt.Errorf("certificate validation failed: %w", err)
	}

	if err := verifier.VerifyCertificate(cert); err != nil {
		return fmt.Errorf("%s", bodyDoesNotVerify)
	}

	certifiedDataPath := certtree.LabelsWithBytes(canister.Bytes(), "certified_data")
	certifiedDataPath = append([][]byte{[]byte("canister")}, certifiedDataPath...)
	witness, ok := cert.Tree.LookupPath(certifiedDataPath)
	if !ok {
		return fmt.Errorf("%s", bodyDoesNotVerify)
	}

	digest := suppTree.Digest()
	if !bytes.Equal(witness, digest[:]) {
		return fmt.Errorf("%s", bodyDoesNotVerify)
	}

	leaf, ok := suppTree.LookupPath(certtree.Labels("http_assets", requestPath))
	if !ok {
		leaf, ok = suppTree.LookupPath(certtree.Labels("http_assets", "/index.html"))
		if !ok {
			return fmt.Errorf("%s", bodyDoesNotVerify)
		}
	}

	if !bytes.Equal(leaf, bodyDigest[:]) {
		return fmt.Errorf("%s", bodyDoesNotVerify)
	}
	return nil
}
