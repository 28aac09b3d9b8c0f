// Package block binds a set of transaction digests to a Merkle root and
// checks that binding.
package block

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/txroot/config"
	"github.com/Klingon-tech/txroot/pkg/merkle"
	"github.com/Klingon-tech/txroot/pkg/tx"
	"github.com/Klingon-tech/txroot/pkg/types"
)

// Assembly errors.
var (
	ErrTooManyTxs = errors.New("too many transactions in block")
	ErrInvalidTx  = errors.New("invalid transaction in block")
)

// Block holds the ordered leaf digests of its transactions and the root
// claimed for them. The claim is checked by a Validator, not at construction.
type Block struct {
	TxHashes   []types.Digest `json:"tx_hashes"`
	MerkleRoot types.Digest   `json:"merkle_root"`
}

// New creates a block from caller-supplied digests. The slice is copied.
func New(txHashes []types.Digest, merkleRoot types.Digest) *Block {
	hashes := make([]types.Digest, len(txHashes))
	copy(hashes, txHashes)
	return &Block{
		TxHashes:   hashes,
		MerkleRoot: merkleRoot,
	}
}

// Assemble hashes txs with the tree's hasher and builds a block whose
// root is computed from those digests.
func Assemble(t *merkle.Tree, txs []*tx.Transaction) (*Block, error) {
	if len(txs) == 0 {
		return nil, ErrNoTransactions
	}
	if len(txs) > config.MaxBlockTxs {
		return nil, fmt.Errorf("%w: %d txs, max %d", ErrTooManyTxs, len(txs), config.MaxBlockTxs)
	}
	for i, t := range txs {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("%w: tx %d: %w", ErrInvalidTx, i, err)
		}
	}

	hashes := tx.Hashes(t.Hasher(), txs)
	root, _ := t.Root(hashes)
	return &Block{TxHashes: hashes, MerkleRoot: root}, nil
}

// TxCount returns the number of leaf digests.
func (b *Block) TxCount() int {
	return len(b.TxHashes)
}

// ComputeMerkleRoot recomputes the root of the block's digests with t.
// Returns ("", false) when the block has no digests.
func (b *Block) ComputeMerkleRoot(t *merkle.Tree) (types.Digest, bool) {
	return t.Root(b.TxHashes)
}

// Hash returns the stored root, which identifies the block.
func (b *Block) Hash() types.Digest {
	if b == nil {
		return ""
	}
	return b.MerkleRoot
}
