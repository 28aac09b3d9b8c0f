// Package miner turns pending transactions into validated, stored blocks.
package miner

import (
	"errors"
	"fmt"
	"time"

	"github.com/Klingon-tech/txroot/config"
	"github.com/Klingon-tech/txroot/internal/blockstore"
	"github.com/Klingon-tech/txroot/pkg/block"
	"github.com/Klingon-tech/txroot/pkg/merkle"
	"github.com/Klingon-tech/txroot/pkg/tx"
	"github.com/Klingon-tech/txroot/pkg/types"
)

// Miner errors.
var (
	ErrNothingToMine = errors.New("no pending transactions")
	ErrInvalidBlock  = errors.New("assembled block failed validation")
)

// MempoolSelector hands out pending transactions for block inclusion.
type MempoolSelector interface {
	Drain(limit int) []*tx.Transaction
}

// BlockValidator checks an assembled block before it is stored.
type BlockValidator interface {
	Validate(b *block.Block) error
}

// BlockSink stores accepted blocks.
type BlockSink interface {
	Put(rec *blockstore.Record) error
	Get(root types.Digest) (*blockstore.Record, error)
}

// Miner produces new blocks.
type Miner struct {
	tree        *merkle.Tree
	validator   BlockValidator
	pool        MempoolSelector
	sink        BlockSink
	maxBlockTxs int
	now         func() time.Time
}

// New creates a block producer that folds with tree and stores into sink.
// Blocks are checked by a validator bound to the same tree.
func New(tree *merkle.Tree, pool MempoolSelector, sink BlockSink) *Miner {
	if tree == nil {
		tree = merkle.Default
	}
	return &Miner{
		tree:        tree,
		validator:   block.NewValidator(tree),
		pool:        pool,
		sink:        sink,
		maxBlockTxs: config.MaxBlockTxs,
		now:         time.Now,
	}
}

// SetMaxBlockTxs caps the number of transactions per block.
// Values outside [1, config.MaxBlockTxs] are clamped.
func (m *Miner) SetMaxBlockTxs(n int) {
	if n < 1 {
		n = 1
	}
	if n > config.MaxBlockTxs {
		n = config.MaxBlockTxs
	}
	m.maxBlockTxs = n
}

// Tree returns the tree blocks are assembled with.
func (m *Miner) Tree() *merkle.Tree {
	return m.tree
}

// ProduceBlock drains up to the block limit from the pool, assembles a
// block, validates it, and stores it. Drained transactions are consumed
// even when the block is rejected.
//
// Blocks carry no link to a parent, so a root that is already stored
// names the same block: the stored record is returned instead of an error.
func (m *Miner) ProduceBlock() (*blockstore.Record, error) {
	txs := m.pool.Drain(m.maxBlockTxs)
	if len(txs) == 0 {
		return nil, ErrNothingToMine
	}

	blk, err := block.Assemble(m.tree, txs)
	if err != nil {
		return nil, fmt.Errorf("assemble block: %w", err)
	}
	if err := m.validator.Validate(blk); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBlock, err)
	}

	rec := &blockstore.Record{
		Block:     blk,
		Hasher:    m.tree.Hasher().Name(),
		CreatedAt: m.now().UTC(),
	}
	if m.sink != nil {
		err := m.sink.Put(rec)
		if errors.Is(err, blockstore.ErrExists) {
			stored, gerr := m.sink.Get(blk.MerkleRoot)
			if gerr != nil {
				return nil, fmt.Errorf("load stored block: %w", gerr)
			}
			return stored, nil
		}
		if err != nil {
			return nil, fmt.Errorf("store block: %w", err)
		}
	}
	return rec, nil
}
