package engine

import (
	"math/big"
	"sync"
)

// FeeLedger accumulates the actual fee paid per wallet across all
// confirmed transactions. Entries only ever grow; there is no removal.
type FeeLedger struct {
	mu   sync.Mutex
	fees map[int]*big.Int
}

func NewFeeLedger() *FeeLedger {
	return &FeeLedger{fees: make(map[int]*big.Int)}
}

// Add accumulates fee wei for the wallet. Nil or negative fees are
// ignored so a ledger entry can never decrease.
func (l *FeeLedger) Add(walletIndex int, fee *big.Int) {
	if fee == nil || fee.Sign() < 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	cur, ok := l.fees[walletIndex]
	if !ok {
		cur = new(big.Int)
		l.fees[walletIndex] = cur
	}
	cur.Add(cur, fee)
}

// Get returns the accumulated fee for the wallet, zero if none has
// been recorded. The returned value is a copy.
func (l *FeeLedger) Get(walletIndex int) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cur, ok := l.fees[walletIndex]; ok {
		return new(big.Int).Set(cur)
	}
	return new(big.Int)
}

// Snapshot returns a copy of every wallet's accumulated fee.
func (l *FeeLedger) Snapshot() map[int]*big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[int]*big.Int, len(l.fees))
	for w, f := range l.fees {
		out[w] = new(big.Int).Set(f)
	}
	return out
}

// Total returns the sum across all wallets.
func (l *FeeLedger) Total() *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := new(big.Int)
	for _, f := range l.fees {
		total.Add(total, f)
	}
	return total
}
