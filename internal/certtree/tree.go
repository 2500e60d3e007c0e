// Package certtree parses the CBOR-encoded certificate and hash-tree
// structures returned in canister response headers, and implements the
// proof-of-inclusion lookups and root-digest computation the
// certification verifier needs. The concrete signature algorithm is
// delegated to internal/rootkey; this package only understands the
// tree/certificate shape, per spec.md §1 ("parse certificate", "parse
// tree", "lookup path" treated as library calls).
package certtree

import (
	"crypto/sha256"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// variant tags for the 5-variant labeled hash tree CBOR array encoding.
const (
	tagEmpty   = 0
	tagFork    = 1
	tagLabeled = 2
	tagLeaf    = 3
	tagPruned  = 4
)

// domain separators for the tree's domain-separated SHA-256 hashing,
// each prefixed with its own length byte when hashed.
var (
	sepEmpty   = []byte("ic-hashtree-empty")
	sepFork    = []byte("ic-hashtree-fork")
	sepLabeled = []byte("ic-hashtree-labeled")
	sepLeaf    = []byte("ic-hashtree-leaf")
)

// HashTree is a parsed node of the platform's labeled Merkle-style hash
// tree. Which fields are populated depends on kind: label and left for
// Labeled, left and right for Fork, value for Leaf and Pruned.
type HashTree struct {
	kind  int
	label []byte
	value []byte // Leaf content or Pruned digest
	left  *HashTree
	right *HashTree
}

// ParseTree decodes raw CBOR bytes into a HashTree.
func ParseTree(raw []byte) (*HashTree, error) {
	var generic interface{}
	if err := cbor.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("certtree: invalid tree CBOR: %w", err)
	}
	return parseNode(generic)
}

func parseNode(v interface{}) (*HashTree, error) {
	arr, ok := v.([]interface{})
	if !ok || len(arr) == 0 {
		return nil, fmt.Errorf("certtree: tree node is not a non-empty array")
	}
	tag, err := asInt(arr[0])
	if err != nil {
		return nil, fmt.Errorf("certtree: tree node tag: %w", err)
	}

	switch tag {
	case tagEmpty:
		return &HashTree{kind: tagEmpty}, nil
	case tagFork:
		if len(arr) != 3 {
			return nil, fmt.Errorf("certtree: fork node wants 3 elements, got %d", len(arr))
		}
		left, err := parseNode(arr[1])
		if err != nil {
			return nil, err
		}
		right, err := parseNode(arr[2])
		if err != nil {
			return nil, err
		}
		return &HashTree{kind: tagFork, left: left, right: right}, nil
	case tagLabeled:
		if len(arr) != 3 {
			return nil, fmt.Errorf("certtree: labeled node wants 3 elements, got %d", len(arr))
		}
		label, err := asBytes(arr[1])
		if err != nil {
			return nil, fmt.Errorf("certtree: labeled node label: %w", err)
		}
		sub, err := parseNode(arr[2])
		if err != nil {
			return nil, err
		}
		return &HashTree{kind: tagLabeled, label: label, left: sub}, nil
	case tagLeaf:
		if len(arr) != 2 {
			return nil, fmt.Errorf("certtree: leaf node wants 2 elements, got %d", len(arr))
		}
		value, err := asBytes(arr[1])
		if err != nil {
			return nil, fmt.Errorf("certtree: leaf node value: %w", err)
		}
		return &HashTree{kind: tagLeaf, value: value}, nil
	case tagPruned:
		if len(arr) != 2 {
			return nil, fmt.Errorf("certtree: pruned node wants 2 elements, got %d", len(arr))
		}
		value, err := asBytes(arr[1])
		if err != nil {
			return nil, fmt.Errorf("certtree: pruned node digest: %w", err)
		}
		return &HashTree{kind: tagPruned, value: value}, nil
	default:
		return nil, fmt.Errorf("certtree: unknown tree node tag %d", tag)
	}
}

func asInt(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case uint64:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("not an integer: %T", v)
	}
}

func asBytes(v interface{}) ([]byte, error) {
	b, ok := v.([]byte)
	if !ok {
		return nil, fmt.Errorf("not a byte string: %T", v)
	}
	return b, nil
}

// Digest computes the tree's domain-separated SHA-256 root digest, the
// value a certificate's certified_data commits to.
func (t *HashTree) Digest() [32]byte {
	switch t.kind {
	case tagEmpty:
		return hashWithSep(sepEmpty)
	case tagFork:
		l := t.left.Digest()
		r := t.right.Digest()
		return hashWithSep(sepFork, l[:], r[:])
	case tagLabeled:
		sub := t.left.Digest()
		return hashWithSep(sepLabeled, t.label, sub[:])
	case tagLeaf:
		return hashWithSep(sepLeaf, t.value)
	case tagPruned:
		var out [32]byte
		copy(out[:], t.value)
		return out
	default:
		return [32]byte{}
	}
}

func hashWithSep(sep []byte, parts ...[]byte) [32]byte {
	h := sha256.New()
	h.Write([]byte{byte(len(sep))})
	h.Write(sep)
	for _, p := range parts {
		h.Write(p)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// LookupPath descends labels in order, matching each against Labeled
// children, and returns the bytes of the Leaf found at the end of the
// path. Returns false if any segment is missing (including through a
// Pruned subtree, which conservatively counts as "not provided").
func (t *HashTree) LookupPath(path [][]byte) ([]byte, bool) {
	node := t
	for _, label := range path {
		next, ok := findLabel(node, label)
		if !ok {
			return nil, false
		}
		node = next
	}
	if node.kind != tagLeaf {
		return nil, false
	}
	return node.value, true
}

func findLabel(node *HashTree, label []byte) (*HashTree, bool) {
	switch node.kind {
	case tagLabeled:
		if bytesEqual(node.label, label) {
			return node.left, true
		}
		return nil, false
	case tagFork:
		if sub, ok := findLabel(node.left, label); ok {
			return sub, true
		}
		return findLabel(node.right, label)
	default:
		return nil, false
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
