package tform

import (
	"sync"
	"time"
)

// Report is a non-fatal problem recorded in a form's or tracker's history.
type Report struct {
	Op      string
	FieldID string
	Err     error
	At      time.Time
}

func (r Report) Error() string {
	if r.FieldID == "" {
		return r.Op + ": " + r.Err.Error()
	}
	return r.Op + " " + r.FieldID + ": " + r.Err.Error()
}

func (r Report) Unwrap() error { return r.Err }

// reportRing is a thread-safe ring buffer of recent reports.
type reportRing struct {
	mu      sync.RWMutex
	reports []Report
	size    int
	head    int
	count   int
}

// newReportRing creates a ring with the given capacity.
// If size is 0, the ring is disabled.
func newReportRing(size int) *reportRing {
	if size <= 0 {
		return nil
	}
	return &reportRing{
		reports: make([]Report, size),
		size:    size,
	}
}

func (r *reportRing) push(rep Report) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.reports[r.head] = rep
	r.head = (r.head + 1) % r.size
	if r.count < r.size {
		r.count++
	}
}

func (r *reportRing) clear() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.reports {
		r.reports[i] = Report{}
	}
	r.head = 0
	r.count = 0
}

// all returns the reports, oldest first.
func (r *reportRing) all() []Report {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.count == 0 {
		return nil
	}

	result := make([]Report, r.count)
	start := (r.head - r.count + r.size) % r.size
	for i := 0; i < r.count; i++ {
		result[i] = r.reports[(start+i)%r.size]
	}
	return result
}
