// Package mempool manages pending transactions waiting for block inclusion.
package mempool

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/Klingon-tech/txroot/internal/log"
	"github.com/Klingon-tech/txroot/pkg/merkle"
	"github.com/Klingon-tech/txroot/pkg/tx"
	"github.com/Klingon-tech/txroot/pkg/types"
)

// DefaultMaxSize is used when New is given a non-positive size.
const DefaultMaxSize = 5000

// Mempool errors.
var (
	ErrInvalidTx     = errors.New("transaction failed validation")
	ErrAlreadyExists = errors.New("transaction already in mempool")
	ErrPoolFull      = errors.New("mempool is full")
)

// entry wraps a transaction with its digest and arrival time.
type entry struct {
	tx     *tx.Transaction
	txHash types.Digest
	added  time.Time
}

// Pool holds pending transactions in arrival order.
type Pool struct {
	mu      sync.RWMutex
	order   []*entry                // FIFO
	index   map[types.Digest]*entry // txHash -> entry
	maxSize int
	hasher  merkle.Hasher
	policy  *Policy
	logger  zerolog.Logger

	// received counts every Add call, accepted or not.
	received atomic.Uint64
}

// New creates a pool that identifies transactions by their digest under h
// (blake3 when nil) and holds at most maxSize of them.
func New(h merkle.Hasher, maxSize int) *Pool {
	if h == nil {
		h = merkle.Blake3()
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Pool{
		index:   make(map[types.Digest]*entry),
		maxSize: maxSize,
		hasher:  h,
		policy:  DefaultPolicy(),
		logger:  log.Mempool,
	}
}

// SetPolicy replaces the acceptance policy.
func (p *Pool) SetPolicy(policy *Policy) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.policy = policy
	if policy != nil {
		p.logger.Debug().
			Uint64("min_amount", policy.MinAmount).
			Int("max_field_length", policy.MaxFieldLength).
			Bool("allow_self_send", policy.AllowSelfSend).
			Msg("Policy updated")
	}
}

// CheckPolicy runs the structural and policy checks Add would run,
// without touching the pool.
func (p *Pool) CheckPolicy(transaction *tx.Transaction) error {
	if err := transaction.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTx, err)
	}
	p.mu.RLock()
	policy := p.policy
	p.mu.RUnlock()
	if policy != nil {
		if err := policy.Check(transaction); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidTx, err)
		}
	}
	return nil
}

// Hasher returns the hasher used to identify transactions.
func (p *Pool) Hasher() merkle.Hasher {
	return p.hasher
}

// Add validates and appends a transaction. It returns the transaction's
// digest. Rejects invalid transactions, duplicates, and additions beyond
// the pool's capacity.
func (p *Pool) Add(transaction *tx.Transaction) (types.Digest, error) {
	p.received.Add(1)

	if err := transaction.Validate(); err != nil {
		return "", p.reject(transaction, fmt.Errorf("%w: %w", ErrInvalidTx, err))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.policy != nil {
		if err := p.policy.Check(transaction); err != nil {
			return "", p.reject(transaction, fmt.Errorf("%w: %w", ErrInvalidTx, err))
		}
	}

	txHash := transaction.Hash(p.hasher)
	if _, exists := p.index[txHash]; exists {
		return txHash, ErrAlreadyExists
	}
	if len(p.order) >= p.maxSize {
		return txHash, p.reject(transaction, fmt.Errorf("%w: %d transactions", ErrPoolFull, p.maxSize))
	}

	e := &entry{tx: transaction, txHash: txHash, added: time.Now()}
	p.order = append(p.order, e)
	p.index[txHash] = e
	return txHash, nil
}

func (p *Pool) reject(transaction *tx.Transaction, err error) error {
	p.logger.Debug().Err(err).Str("tx", transaction.String()).Msg("Transaction not accepted")
	return err
}

// Remove removes a transaction from the mempool by digest.
func (p *Pool) Remove(txHash types.Digest) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removeLocked(txHash)
}

func (p *Pool) removeLocked(txHash types.Digest) {
	if _, exists := p.index[txHash]; !exists {
		return
	}
	delete(p.index, txHash)
	for i, e := range p.order {
		if e.txHash == txHash {
			p.order = append(p.order[:i], p.order[i+1:]...)
			return
		}
	}
}

// Has checks if a transaction exists in the mempool.
func (p *Pool) Has(txHash types.Digest) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, exists := p.index[txHash]
	return exists
}

// Get retrieves a transaction from the mempool.
func (p *Pool) Get(txHash types.Digest) *tx.Transaction {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, exists := p.index[txHash]
	if !exists {
		return nil
	}
	return e.tx
}

// Count returns the number of transactions in the mempool.
func (p *Pool) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.order)
}

// Received returns how many transactions were offered to the pool.
func (p *Pool) Received() uint64 {
	return p.received.Load()
}

// Snapshot returns the pending transactions in arrival order.
func (p *Pool) Snapshot() []*tx.Transaction {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*tx.Transaction, len(p.order))
	for i, e := range p.order {
		out[i] = e.tx
	}
	return out
}

// Drain removes and returns up to limit of the oldest transactions.
// A limit <= 0 drains everything.
func (p *Pool) Drain(limit int) []*tx.Transaction {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.order)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*tx.Transaction, n)
	for i, e := range p.order[:n] {
		out[i] = e.tx
		delete(p.index, e.txHash)
	}
	rest := make([]*entry, len(p.order)-n)
	copy(rest, p.order[n:])
	p.order = rest
	return out
}
