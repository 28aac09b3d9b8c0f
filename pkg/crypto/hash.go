// Package crypto provides the hash primitives behind txroot digests.
package crypto

import (
	"github.com/Klingon-tech/txroot/pkg/types"
	sha256 "github.com/minio/sha256-simd"
	"github.com/zeebo/blake3"
	"golang.org/x/crypto/sha3"
)

// HashFunc computes a 256-bit hash of its input.
type HashFunc func(data []byte) types.Hash

// Hash computes a BLAKE3-256 hash of the input data.
func Hash(data []byte) types.Hash {
	return blake3.Sum256(data)
}

// SHA256 computes a SHA-256 hash of the input data.
// Uses the SIMD-accelerated implementation when the CPU supports it.
func SHA256(data []byte) types.Hash {
	return sha256.Sum256(data)
}

// SHA3 computes a SHA3-256 (FIPS 202) hash of the input data.
func SHA3(data []byte) types.Hash {
	return sha3.Sum256(data)
}
