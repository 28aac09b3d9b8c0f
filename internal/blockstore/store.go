// Package blockstore persists assembled blocks together with the hasher
// they were built with, so they can be re-validated later.
package blockstore

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Klingon-tech/txroot/internal/log"
	"github.com/Klingon-tech/txroot/internal/storage"
	"github.com/Klingon-tech/txroot/pkg/block"
	"github.com/Klingon-tech/txroot/pkg/crypto"
	"github.com/Klingon-tech/txroot/pkg/merkle"
	"github.com/Klingon-tech/txroot/pkg/types"
)

// Key prefixes for the block store.
var (
	prefixRecord = []byte("b/") // b/<blake3(root)(32)> -> record JSON
	prefixSeq    = []byte("h/") // h/<seq(8)> -> root
	keyNextSeq   = []byte("s/seq")
)

// Store errors.
var (
	ErrNotFound     = errors.New("block not found")
	ErrExists       = errors.New("block already stored")
	ErrNilRecord    = errors.New("record has no block")
	ErrCorruptIndex = errors.New("corrupt block index")
)

// Record is a stored block plus the metadata needed to re-check it.
type Record struct {
	Block     *block.Block `json:"block"`
	Hasher    string       `json:"hasher"`
	CreatedAt time.Time    `json:"created_at"`
	Seq       uint64       `json:"seq"`
}

// HasherLookup resolves a hasher name recorded with a block.
type HasherLookup func(name string) (merkle.Hasher, error)

// Store persists records to a storage.DB.
type Store struct {
	db storage.DB

	mu   sync.Mutex // serializes sequence allocation
	next uint64
}

// New opens a block store on db and restores its sequence counter.
func New(db storage.DB) (*Store, error) {
	s := &Store{db: db}

	data, err := db.Get(keyNextSeq)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("read sequence: %w", err)
	case len(data) != 8:
		return nil, fmt.Errorf("%w: sequence is %d bytes", ErrCorruptIndex, len(data))
	default:
		s.next = binary.BigEndian.Uint64(data)
	}
	return s, nil
}

// Put stores rec under its block's root and appends it to the sequence
// index. Seq is assigned by the store; CreatedAt defaults to now.
func (s *Store) Put(rec *Record) error {
	if rec == nil || rec.Block == nil {
		return ErrNilRecord
	}
	root := rec.Block.MerkleRoot

	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := s.db.Has(recordKey(root))
	if err != nil {
		return fmt.Errorf("block has: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrExists, root.Short(16))
	}

	rec.Seq = s.next
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("record marshal: %w", err)
	}

	var nextBuf [8]byte
	binary.BigEndian.PutUint64(nextBuf[:], s.next+1)

	batch := storage.NewBatch(s.db)
	batch.Put(recordKey(root), data)
	batch.Put(seqKey(rec.Seq), []byte(root))
	batch.Put(keyNextSeq, nextBuf[:])
	if err := batch.Commit(); err != nil {
		return fmt.Errorf("block put: %w", err)
	}
	s.next++

	log.Storage.Debug().
		Uint64("seq", rec.Seq).
		Str("root", root.Short(16)).
		Int("txs", rec.Block.TxCount()).
		Msg("Block stored")
	return nil
}

// Get retrieves a record by block root.
func (s *Store) Get(root types.Digest) (*Record, error) {
	data, err := s.db.Get(recordKey(root))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, root.Short(16))
	}
	if err != nil {
		return nil, fmt.Errorf("block get: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("record unmarshal: %w", err)
	}
	return &rec, nil
}

// Has checks if a block with the given root is stored.
func (s *Store) Has(root types.Digest) (bool, error) {
	return s.db.Has(recordKey(root))
}

// GetBySeq retrieves the record stored at the given sequence number.
func (s *Store) GetBySeq(seq uint64) (*Record, error) {
	root, err := s.db.Get(seqKey(seq))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: seq %d", ErrNotFound, seq)
	}
	if err != nil {
		return nil, fmt.Errorf("seq index get: %w", err)
	}
	return s.Get(types.Digest(root))
}

// Count returns the number of stored blocks.
func (s *Store) Count() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

// List returns up to limit records, newest first. A limit <= 0 returns all.
func (s *Store) List(limit int) ([]*Record, error) {
	var roots []types.Digest
	err := s.db.ForEach(prefixSeq, func(_, value []byte) error {
		roots = append(roots, types.Digest(value))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("seq index scan: %w", err)
	}

	n := len(roots)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*Record, 0, n)
	for i := len(roots) - 1; i >= 0 && len(out) < n; i-- {
		rec, err := s.Get(roots[i])
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorruptIndex, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Verification is what Verify learned about a stored block.
type Verification struct {
	Record   *Record
	Hasher   string
	Computed types.Digest // Root refolded from the stored leaves.
}

// Verify re-validates a stored block with the hasher it was assembled with.
// The returned error is the validator's verdict when the record could be
// loaded; the Verification is non-nil in that case even if the block is
// invalid.
func (s *Store) Verify(root types.Digest, lookup HasherLookup) (*Verification, error) {
	rec, err := s.Get(root)
	if err != nil {
		return nil, err
	}
	if lookup == nil {
		lookup = merkle.HasherByName
	}
	h, err := lookup(rec.Hasher)
	if err != nil {
		return nil, fmt.Errorf("block %s: %w", root.Short(16), err)
	}

	tree := merkle.New(h)
	v := &Verification{Record: rec, Hasher: h.Name()}
	v.Computed, _ = rec.Block.ComputeMerkleRoot(tree)
	return v, block.NewValidator(tree).Validate(rec.Block)
}

// recordKey hashes the root so keys stay fixed-size whatever the hasher.
// Text roots grow with the number of leaves.
func recordKey(root types.Digest) []byte {
	h := crypto.Hash([]byte(root))
	key := make([]byte, len(prefixRecord)+types.HashSize)
	copy(key, prefixRecord)
	copy(key[len(prefixRecord):], h[:])
	return key
}

func seqKey(seq uint64) []byte {
	key := make([]byte, len(prefixSeq)+8)
	copy(key, prefixSeq)
	binary.BigEndian.PutUint64(key[len(prefixSeq):], seq)
	return key
}
