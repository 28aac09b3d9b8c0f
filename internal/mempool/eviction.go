package mempool

import "time"

// Expire removes transactions that have waited longer than ttl and returns
// how many were dropped. A non-positive ttl disables expiry.
func (p *Pool) Expire(ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	cutoff := time.Now().Add(-ttl)

	p.mu.Lock()
	defer p.mu.Unlock()

	// Entries are in arrival order, so expired ones form a prefix.
	n := 0
	for n < len(p.order) && p.order[n].added.Before(cutoff) {
		e := p.order[n]
		delete(p.index, e.txHash)
		p.logger.Debug().
			Str("hash", e.txHash.Short(16)).
			Dur("waited", time.Since(e.added)).
			Msg("Transaction expired")
		n++
	}
	if n > 0 {
		rest := make([]*entry, len(p.order)-n)
		copy(rest, p.order[n:])
		p.order = rest
	}
	return n
}
