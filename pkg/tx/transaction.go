// Package tx defines the transaction type and its hashing adapter.
package tx

import (
	"fmt"
	"math"
	"strconv"

	"github.com/Klingon-tech/txroot/pkg/merkle"
	"github.com/Klingon-tech/txroot/pkg/types"
)

// Transaction moves Amount from one party to another.
type Transaction struct {
	From   string `json:"from"   cbor:"from"`
	To     string `json:"to"     cbor:"to"`
	Amount uint64 `json:"amount" cbor:"amount"`
}

// New creates a transaction.
func New(from, to string, amount uint64) *Transaction {
	return &Transaction{From: from, To: to, Amount: amount}
}

// Fields returns the hashed field values in their fixed order:
// from, to, decimal amount.
func (tx *Transaction) Fields() []string {
	return []string{tx.From, tx.To, strconv.FormatUint(tx.Amount, 10)}
}

// Hash returns the leaf digest of the transaction under h.
// Identical (from, to, amount) triples always produce identical digests.
func (tx *Transaction) Hash(h merkle.Hasher) types.Digest {
	return h.HashFields(tx.Fields()...)
}

// ID returns the transaction digest under the default hasher.
func (tx *Transaction) ID() types.Digest {
	return tx.Hash(merkle.Default.Hasher())
}

// String renders the transaction in its line form (from,to,amount).
func (tx *Transaction) String() string {
	return fmt.Sprintf("%s%s%s%s%d", tx.From, lineSeparator, tx.To, lineSeparator, tx.Amount)
}

// Hashes returns the leaf digests of txs under h, in order.
func Hashes(h merkle.Hasher, txs []*Transaction) []types.Digest {
	return merkle.Leaves(h, txs)
}

// TotalAmount returns the sum of all amounts.
// Returns an error if the sum overflows uint64.
func TotalAmount(txs []*Transaction) (uint64, error) {
	var total uint64
	for i, t := range txs {
		if total > math.MaxUint64-t.Amount {
			return 0, fmt.Errorf("tx %d: %w", i, ErrAmountOverflow)
		}
		total += t.Amount
	}
	return total, nil
}

// FilterMinAmount returns the transactions whose amount is at least min,
// preserving order.
func FilterMinAmount(txs []*Transaction, min uint64) []*Transaction {
	var out []*Transaction
	for _, t := range txs {
		if t.Amount >= min {
			out = append(out, t)
		}
	}
	return out
}
