package tx

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/txroot/config"
)

// Validation errors.
var (
	ErrNilTx          = errors.New("transaction is nil")
	ErrEmptyFrom      = errors.New("transaction has empty sender")
	ErrEmptyTo        = errors.New("transaction has empty receiver")
	ErrFieldTooLong   = errors.New("transaction field too long")
	ErrAmountOverflow = errors.New("amount sum overflows")
)

// Validate checks the transaction structure.
func (tx *Transaction) Validate() error {
	if tx == nil {
		return ErrNilTx
	}
	if tx.From == "" {
		return ErrEmptyFrom
	}
	if tx.To == "" {
		return ErrEmptyTo
	}
	if len(tx.From) > config.MaxFieldLength {
		return fmt.Errorf("%w: from is %d bytes, max %d", ErrFieldTooLong, len(tx.From), config.MaxFieldLength)
	}
	if len(tx.To) > config.MaxFieldLength {
		return fmt.Errorf("%w: to is %d bytes, max %d", ErrFieldTooLong, len(tx.To), config.MaxFieldLength)
	}
	return nil
}
