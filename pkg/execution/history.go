package execution

import (
	"sync"

	"github.com/ormasoftchile/playrec/pkg/api"
)

// DisplayLimit is how many execution results stay on screen.
const DisplayLimit = 10

// History is a fixed-capacity ring of execution results. The oldest entry
// is evicted when a result is pushed at capacity.
type History struct {
	mu       sync.Mutex
	entries  []api.ExecutionResult
	capacity int
	head     int // index of the next write
	total    int64
}

// NewHistory creates a ring holding capacity results (DisplayLimit if <= 0).
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DisplayLimit
	}
	return &History{
		entries:  make([]api.ExecutionResult, 0, capacity),
		capacity: capacity,
	}
}

// Push records r as the most recent result.
func (h *History) Push(r api.ExecutionResult) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) < h.capacity {
		h.entries = append(h.entries, r)
	} else {
		h.entries[h.head] = r
	}
	h.head = (h.head + 1) % h.capacity
	h.total++
}

// Snapshot returns the retained results, most recent first.
func (h *History) Snapshot() []api.ExecutionResult {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := len(h.entries)
	out := make([]api.ExecutionResult, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, h.entries[(h.head-i+h.capacity)%h.capacity])
	}
	return out
}

// Len returns the number of retained results.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Total returns how many results were ever pushed.
func (h *History) Total() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.total
}
