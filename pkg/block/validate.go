package block

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/txroot/pkg/merkle"
)

// Validation errors.
var (
	ErrNilBlock       = errors.New("block is nil")
	ErrNoTransactions = errors.New("block has no transactions")
	ErrBadMerkleRoot  = errors.New("merkle root mismatch")
)

// Validator recomputes block roots with a fixed tree.
// It holds no mutable state and may be shared across goroutines.
type Validator struct {
	tree *merkle.Tree
}

// NewValidator returns a validator that folds with t (Default when nil).
func NewValidator(t *merkle.Tree) *Validator {
	if t == nil {
		t = merkle.Default
	}
	return &Validator{tree: t}
}

// Tree returns the validator's tree.
func (v *Validator) Tree() *merkle.Tree {
	return v.tree
}

// Validate checks that the stored root equals the root recomputed from the
// block's digests. A block without digests is never valid, whatever its
// stored root.
func (v *Validator) Validate(b *Block) error {
	if b == nil {
		return ErrNilBlock
	}
	computed, ok := b.ComputeMerkleRoot(v.tree)
	if !ok {
		return ErrNoTransactions
	}
	if computed != b.MerkleRoot {
		return fmt.Errorf("%w: stored=%s computed=%s", ErrBadMerkleRoot, b.MerkleRoot, computed)
	}
	return nil
}

// IsValid reports whether Validate succeeds.
func (v *Validator) IsValid(b *Block) bool {
	return v.Validate(b) == nil
}

var defaultValidator = NewValidator(merkle.Default)

// Validate checks the block with the default (BLAKE3) tree.
func (b *Block) Validate() error {
	return defaultValidator.Validate(b)
}

// IsValid reports whether the block is valid under the default tree.
func (b *Block) IsValid() bool {
	return defaultValidator.IsValid(b)
}
