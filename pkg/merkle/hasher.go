package merkle

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Klingon-tech/txroot/pkg/crypto"
	"github.com/Klingon-tech/txroot/pkg/types"
)

// Hasher turns item fields into leaf digests and folds pairs of digests.
//
// Implementations must be deterministic and safe to call concurrently.
// Combine must be order-sensitive: Combine(a, b) is generally != Combine(b, a).
type Hasher interface {
	// Name identifies the algorithm (stored alongside persisted blocks).
	Name() string
	// HashFields returns the leaf digest of the ordered field values.
	HashFields(fields ...string) types.Digest
	// Combine returns the parent digest of left and right.
	Combine(left, right types.Digest) types.Digest
}

// Registered hasher names.
const (
	NameText   = "text"
	NameBlake3 = "blake3"
	NameSHA256 = "sha256"
	NameSHA3   = "sha3"
)

// Domain separation bytes for the binary encodings.
const (
	leafPrefix byte = 0x00
	nodePrefix byte = 0x01
)

// Text field and node separators.
const (
	FieldSeparator = "-"
	NodeSeparator  = "|"
)

// ErrUnknownHasher is returned by HasherByName for unregistered names.
var ErrUnknownHasher = errors.New("unknown hasher")

// TextHasher is the human-readable reference encoding: leaf = fields joined
// with "-", parent = "left|right".
//
// It does not escape separators, so ("A-B", "C") and ("A", "B-C") collide.
// Use it to reproduce reference roots and in diagnostics, never as a commitment.
type TextHasher struct{}

// Text returns the reference text hasher.
func Text() Hasher { return TextHasher{} }

// Name implements Hasher.
func (TextHasher) Name() string { return NameText }

// HashFields implements Hasher.
func (TextHasher) HashFields(fields ...string) types.Digest {
	return types.Digest(strings.Join(fields, FieldSeparator))
}

// Combine implements Hasher.
func (TextHasher) Combine(left, right types.Digest) types.Digest {
	return left + NodeSeparator + right
}

// DigestHasher hashes a length-prefixed, domain-separated encoding with a
// 256-bit hash function and renders the result as lowercase hex.
//
//	leaf   = H(0x00 || uvarint(len(f0)) || f0 || uvarint(len(f1)) || f1 ...)
//	parent = H(0x01 || uvarint(len(l)) || l || uvarint(len(r)) || r)
type DigestHasher struct {
	name string
	fn   crypto.HashFunc
}

// NewDigestHasher wraps fn under the given name.
func NewDigestHasher(name string, fn crypto.HashFunc) *DigestHasher {
	return &DigestHasher{name: name, fn: fn}
}

// Blake3 returns the BLAKE3-256 hasher (the default).
func Blake3() Hasher { return NewDigestHasher(NameBlake3, crypto.Hash) }

// SHA256 returns the SHA-256 hasher.
func SHA256() Hasher { return NewDigestHasher(NameSHA256, crypto.SHA256) }

// SHA3 returns the SHA3-256 hasher.
func SHA3() Hasher { return NewDigestHasher(NameSHA3, crypto.SHA3) }

// Name implements Hasher.
func (h *DigestHasher) Name() string { return h.name }

// HashFields implements Hasher.
func (h *DigestHasher) HashFields(fields ...string) types.Digest {
	size := 1
	for _, f := range fields {
		size += binary.MaxVarintLen64 + len(f)
	}
	buf := make([]byte, 0, size)
	buf = append(buf, leafPrefix)
	for _, f := range fields {
		buf = appendField(buf, f)
	}
	return h.fn(buf).Digest()
}

// Combine implements Hasher.
func (h *DigestHasher) Combine(left, right types.Digest) types.Digest {
	buf := make([]byte, 0, 1+2*binary.MaxVarintLen64+len(left)+len(right))
	buf = append(buf, nodePrefix)
	buf = appendField(buf, string(left))
	buf = appendField(buf, string(right))
	return h.fn(buf).Digest()
}

func appendField(buf []byte, s string) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(s)))
	return append(buf, s...)
}

var registry = map[string]func() Hasher{
	NameText:   Text,
	NameBlake3: Blake3,
	NameSHA256: SHA256,
	NameSHA3:   SHA3,
}

// HasherByName returns the registered hasher with the given name.
// An empty name selects the default (blake3).
func HasherByName(name string) (Hasher, error) {
	if name == "" {
		return Blake3(), nil
	}
	ctor, ok := registry[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q (want one of %s)", ErrUnknownHasher, name, strings.Join(Names(), ", "))
	}
	return ctor(), nil
}

// Names returns the registered hasher names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
