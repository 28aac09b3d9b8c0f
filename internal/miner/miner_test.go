package miner

import (
	"errors"
	"testing"

	"github.com/Klingon-tech/txroot/internal/blockstore"
	"github.com/Klingon-tech/txroot/internal/mempool"
	"github.com/Klingon-tech/txroot/internal/storage"
	"github.com/Klingon-tech/txroot/pkg/block"
	"github.com/Klingon-tech/txroot/pkg/merkle"
	"github.com/Klingon-tech/txroot/pkg/tx"
	"github.com/Klingon-tech/txroot/pkg/types"
)

func setup(t *testing.T, h merkle.Hasher) (*Miner, *mempool.Pool, *blockstore.Store) {
	t.Helper()
	pool := mempool.New(h, 100)
	store, err := blockstore.New(storage.NewMemory())
	if err != nil {
		t.Fatalf("blockstore.New: %v", err)
	}
	return New(merkle.New(h), pool, store), pool, store
}

func fill(t *testing.T, pool *mempool.Pool, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if _, err := pool.Add(tx.New("Alice", "Bob", uint64(101+i))); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
}

func TestProduceBlock(t *testing.T) {
	m, pool, store := setup(t, merkle.Text())
	fill(t, pool, 3)

	rec, err := m.ProduceBlock()
	if err != nil {
		t.Fatalf("ProduceBlock: %v", err)
	}
	want := "Alice-Bob-101|Alice-Bob-102|Alice-Bob-103|Alice-Bob-103"
	if string(rec.Block.MerkleRoot) != want {
		t.Errorf("root = %q, want %q", rec.Block.MerkleRoot, want)
	}
	if rec.Hasher != merkle.NameText {
		t.Errorf("hasher = %q", rec.Hasher)
	}
	if pool.Count() != 0 {
		t.Errorf("pool not drained: %d left", pool.Count())
	}
	if store.Count() != 1 {
		t.Errorf("store count = %d, want 1", store.Count())
	}
	if _, err := store.Verify(rec.Block.MerkleRoot, nil); err != nil {
		t.Errorf("stored block does not verify: %v", err)
	}
}

func TestProduceBlock_AlreadyStored(t *testing.T) {
	m, pool, store := setup(t, merkle.Blake3())

	fill(t, pool, 4)
	first, err := m.ProduceBlock()
	if err != nil {
		t.Fatalf("first ProduceBlock: %v", err)
	}

	// The same transactions again fold to the same root.
	fill(t, pool, 4)
	again, err := m.ProduceBlock()
	if err != nil {
		t.Fatalf("second ProduceBlock: %v", err)
	}
	if again.Block.MerkleRoot != first.Block.MerkleRoot || again.Seq != first.Seq {
		t.Errorf("got seq %d root %s, want stored seq %d root %s",
			again.Seq, again.Block.MerkleRoot.Short(16), first.Seq, first.Block.MerkleRoot.Short(16))
	}
	if store.Count() != 1 {
		t.Errorf("store count = %d, want 1", store.Count())
	}
	if pool.Count() != 0 {
		t.Errorf("pool has %d left, want 0", pool.Count())
	}
}

// failingSink rejects every write.
type failingSink struct{}

func (failingSink) Put(*blockstore.Record) error { return errors.New("disk full") }

func (failingSink) Get(types.Digest) (*blockstore.Record, error) {
	return nil, blockstore.ErrNotFound
}

func TestProduceBlock_StoreError(t *testing.T) {
	pool := mempool.New(merkle.Text(), 10)
	m := New(merkle.New(merkle.Text()), pool, failingSink{})
	fill(t, pool, 2)

	if _, err := m.ProduceBlock(); err == nil || errors.Is(err, ErrInvalidBlock) {
		t.Errorf("expected store error, got: %v", err)
	}
}

func TestProduceBlock_Empty(t *testing.T) {
	m, _, store := setup(t, merkle.Blake3())
	if _, err := m.ProduceBlock(); !errors.Is(err, ErrNothingToMine) {
		t.Errorf("expected ErrNothingToMine, got: %v", err)
	}
	if store.Count() != 0 {
		t.Error("empty pool should not store a block")
	}
}

func TestProduceBlock_Limit(t *testing.T) {
	m, pool, _ := setup(t, merkle.SHA256())
	m.SetMaxBlockTxs(2)
	fill(t, pool, 5)

	rec, err := m.ProduceBlock()
	if err != nil {
		t.Fatalf("ProduceBlock: %v", err)
	}
	if rec.Block.TxCount() != 2 {
		t.Errorf("block has %d txs, want 2", rec.Block.TxCount())
	}
	if pool.Count() != 3 {
		t.Errorf("pool has %d left, want 3", pool.Count())
	}
}

func TestProduceBlock_InvalidNotStored(t *testing.T) {
	m, pool, store := setup(t, merkle.SHA256())
	// A validator bound to another hasher rejects every block.
	m.validator = block.NewValidator(merkle.New(merkle.SHA3()))
	fill(t, pool, 4)

	_, err := m.ProduceBlock()
	if !errors.Is(err, ErrInvalidBlock) || !errors.Is(err, block.ErrBadMerkleRoot) {
		t.Fatalf("expected ErrInvalidBlock wrapping ErrBadMerkleRoot, got: %v", err)
	}
	if store.Count() != 0 {
		t.Errorf("invalid block was stored")
	}
}

func TestSetMaxBlockTxs_Clamp(t *testing.T) {
	m, _, _ := setup(t, nil)
	m.SetMaxBlockTxs(0)
	if m.maxBlockTxs != 1 {
		t.Errorf("maxBlockTxs = %d, want 1", m.maxBlockTxs)
	}
	m.SetMaxBlockTxs(1 << 30)
	if m.maxBlockTxs <= 1 {
		t.Errorf("maxBlockTxs = %d after large value", m.maxBlockTxs)
	}
	if m.Tree().Hasher().Name() != merkle.NameBlake3 {
		t.Errorf("nil hasher should default to blake3")
	}
}
