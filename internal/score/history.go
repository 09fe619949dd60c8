package score

import (
	"sync"
	"time"
)

// Sample is one wallet's score delta for one orchestration iteration.
type Sample struct {
	Iteration    int
	PointsEarned float64
	TotalPoints  float64
	Rank         int
	RankChange   int
	At           time.Time
}

// History keeps per-wallet score samples, append-only.
type History struct {
	mu      sync.Mutex
	samples map[int][]Sample
}

func NewHistory() *History {
	return &History{samples: make(map[int][]Sample)}
}

func (h *History) Append(walletIndex int, s Sample) {
	if s.At.IsZero() {
		s.At = time.Now()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.samples[walletIndex] = append(h.samples[walletIndex], s)
}

// Samples returns a copy of the wallet's recorded history.
func (h *History) Samples(walletIndex int) []Sample {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Sample, len(h.samples[walletIndex]))
	copy(out, h.samples[walletIndex])
	return out
}

// All returns a copy of every wallet's history.
func (h *History) All() map[int][]Sample {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[int][]Sample, len(h.samples))
	for w, ss := range h.samples {
		cp := make([]Sample, len(ss))
		copy(cp, ss)
		out[w] = cp
	}
	return out
}
