package tx

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const lineSeparator = ","

// Parse errors.
var (
	ErrNotEnoughParts = errors.New("not enough parts")
	ErrInvalidAmount  = errors.New("invalid amount")
)

// ParseLine parses "from,to,amount". Fields are taken verbatim; parts after
// the third are ignored.
func ParseLine(line string) (*Transaction, error) {
	parts := strings.Split(line, lineSeparator)
	if len(parts) < 3 {
		return nil, fmt.Errorf("%w: got %d, want 3", ErrNotEnoughParts, len(parts))
	}
	amount, err := strconv.ParseUint(parts[2], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAmount, err)
	}
	return &Transaction{From: parts[0], To: parts[1], Amount: amount}, nil
}

// ParseLines parses one transaction per line. Lines are trimmed and blank
// lines are skipped. The first malformed line aborts parsing.
func ParseLines(input string) ([]*Transaction, error) {
	var txs []*Transaction
	scanner := bufio.NewScanner(strings.NewReader(input))
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		t, err := ParseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		txs = append(txs, t)
	}
	if err := scanner.Err(); err != nil {
		// The scanner stops on the line it could not read.
		return nil, fmt.Errorf("line %d: %w", lineNum+1, err)
	}
	return txs, nil
}
