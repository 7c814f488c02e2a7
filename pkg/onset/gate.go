package onset

import "sync"

// Gate turns buffer wraparounds into mode-change signals, one per n wraps.
type Gate struct {
	n     int
	count int
	mu    sync.Mutex
}

// NewGate creates a gate that fires every n wraparounds. n < 1 is treated as 1.
func NewGate(n int) *Gate {
	if n < 1 {
		n = 1
	}
	return &Gate{n: n}
}

// Observe records one append. It returns true when the wraparound count
// reaches n, and resets the count.
func (g *Gate) Observe(wrapped bool) bool {
	if !wrapped {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	g.count++
	if g.count >= g.n {
		g.count = 0
		return true
	}
	return false
}
