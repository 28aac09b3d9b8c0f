package mempool

import (
	"fmt"

	"github.com/Klingon-tech/txroot/config"
	"github.com/Klingon-tech/txroot/pkg/tx"
)

// DefaultMaxFieldLength is the policy limit on party names. It is tighter
// than the structural limit enforced by Transaction.Validate.
const DefaultMaxFieldLength = config.DefaultPolicyFieldLength

// Policy defines node-local acceptance rules applied on top of
// Transaction.Validate.
type Policy struct {
	MinAmount      uint64 // Smallest accepted amount (0 = any).
	MaxFieldLength int    // Maximum party name length in bytes.
	AllowSelfSend  bool   // Accept transfers where From == To.
}

// DefaultPolicy returns a policy with sensible defaults.
func DefaultPolicy() *Policy {
	return &Policy{
		MaxFieldLength: DefaultMaxFieldLength,
		AllowSelfSend:  true,
	}
}

// PolicyFromConfig builds the policy described by the intake settings.
// A zero MaxFieldLength leaves only the structural limit in force.
func PolicyFromConfig(cfg config.IntakeConfig) *Policy {
	return &Policy{
		MinAmount:      cfg.MinAmount,
		MaxFieldLength: cfg.MaxFieldLength,
		AllowSelfSend:  cfg.AllowSelfSend,
	}
}

// Check validates a transaction against policy rules.
func (p *Policy) Check(transaction *tx.Transaction) error {
	if transaction.Amount < p.MinAmount {
		return fmt.Errorf("amount %d below minimum %d", transaction.Amount, p.MinAmount)
	}
	if p.MaxFieldLength > 0 {
		if len(transaction.From) > p.MaxFieldLength || len(transaction.To) > p.MaxFieldLength {
			return fmt.Errorf("party name too long: max %d bytes", p.MaxFieldLength)
		}
	}
	if !p.AllowSelfSend && transaction.From == transaction.To {
		return fmt.Errorf("self-send from %q not allowed", transaction.From)
	}
	return nil
}
