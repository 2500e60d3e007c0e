// Package canisterid implements the platform's opaque canister
// identifier: parsing from and rendering to its canonical textual form,
// with equality and hashing byte-wise on the canonical bytes.
package canisterid

import (
	"encoding/base32"
	"fmt"
	"hash/crc32"
	"strings"
)

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// ID is an opaque canister identifier. The zero value is not valid; use
// Parse to construct one.
type ID struct {
	raw string // canonical bytes, as a string for cheap comparison/hashing
}

// Parse decodes the canonical textual form: groups of five lower-case
// base32 characters separated by '-', where the first four decoded
// bytes are a CRC32 checksum over the remaining bytes.
func Parse(text string) (ID, error) {
	cleaned := strings.ToUpper(strings.ReplaceAll(text, "-", ""))
	if cleaned == "" {
		return ID{}, fmt.Errorf("canisterid: empty identifier")
	}
	decoded, err := encoding.DecodeString(cleaned)
	if err != nil {
		return ID{}, fmt.Errorf("canisterid: invalid base32: %w", err)
	}
	if len(decoded) < 4 {
		return ID{}, fmt.Errorf("canisterid: too short to carry a checksum")
	}
	checksum, body := decoded[:4], decoded[4:]
	want := crc32.ChecksumIEEE(body)
	got := uint32(checksum[0])<<24 | uint32(checksum[1])<<16 | uint32(checksum[2])<<8 | uint32(checksum[3])
	if want != got {
		return ID{}, fmt.Errorf("canisterid: checksum mismatch")
	}
	return ID{raw: string(body)}, nil
}

// FromBytes wraps raw canonical bytes (e.g. already validated upstream)
// into an ID without re-checking a checksum.
func FromBytes(raw []byte) ID {
	return ID{raw: string(raw)}
}

// Bytes returns the canonical byte form, used as the path component in
// certified-tree lookups ([]string{"canister", id.Bytes(), ...}).
func (id ID) Bytes() []byte {
	return []byte(id.raw)
}

// String renders the canonical dash-grouped, lower-case base32 form.
func (id ID) String() string {
	body := []byte(id.raw)
	sum := crc32.ChecksumIEEE(body)
	checksum := []byte{byte(sum >> 24), byte(sum >> 16), byte(sum >> 8), byte(sum)}
	encoded := strings.ToLower(encoding.EncodeToString(append(checksum, body...)))

	var b strings.Builder
	for i := 0; i < len(encoded); i += 5 {
		if i > 0 {
			b.WriteByte('-')
		}
		end := i + 5
		if end > len(encoded) {
			end = len(encoded)
		}
		b.WriteString(encoded[i:end])
	}
	return b.String()
}

// Equal reports whether id and other share the same canonical bytes.
func (id ID) Equal(other ID) bool {
	return id.raw == other.raw
}

// IsZero reports whether id is the unset zero value.
func (id ID) IsZero() bool {
	return id.raw == ""
}
