// Package types defines core primitive types for txroot.
package types

import (
	"encoding/hex"
	"errors"
	"fmt"
)

// HashSize is the length of a binary hash in bytes.
const HashSize = 32

// ErrBadHash is returned when a digest is not the hex form of a Hash.
var ErrBadHash = errors.New("digest is not a 32-byte hex hash")

// Hash is the raw output of a cryptographic hash function. Hashers expose it
// to the Merkle engine only through its hex Digest.
type Hash [HashSize]byte

// IsZero returns true if the hash is all zeros.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// String returns the lowercase hex form.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Digest returns the hex form of the hash as a Digest.
func (h Hash) Digest() Digest {
	return Digest(h.String())
}

// ParseHash decodes a digest produced by Hash.Digest. Text-encoded digests
// and anything other than 64 hex characters fail with ErrBadHash.
func ParseHash(d Digest) (Hash, error) {
	if len(d) != 2*HashSize {
		return Hash{}, fmt.Errorf("%w: length %d", ErrBadHash, len(d))
	}
	var h Hash
	if _, err := hex.Decode(h[:], []byte(d)); err != nil {
		return Hash{}, fmt.Errorf("%w: %w", ErrBadHash, err)
	}
	return h, nil
}
