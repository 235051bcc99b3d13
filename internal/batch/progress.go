package batch

import (
	"sync"
	"time"
)

// percentMultiplier converts a ratio to a percentage (0-100).
const percentMultiplier = 100

// ProgressFunc is an optional callback invoked after each batch completes.
// It receives an immutable snapshot for UI updates or logging.
type ProgressFunc func(ProgressSnapshot)

// Progress tracks how far a dispatch has gotten. It is safe for concurrent
// use: completions from multiple in-flight submissions update it.
type Progress struct {
	// TotalOps is the total number of operations being dispatched.
	TotalOps int

	// DoneOps is the number of operations in completed batches.
	DoneOps int

	// TotalBatches is the total number of batches that will be built.
	TotalBatches int

	// DoneBatches is the number of batches that have completed.
	DoneBatches int

	// StartTime is when the dispatch started.
	StartTime time.Time

	// mu protects the counters.
	mu sync.RWMutex
}

// NewProgress creates a progress tracker for a dispatch of totalOps
// operations across totalBatches batches.
func NewProgress(totalOps, totalBatches int) *Progress {
	return &Progress{
		TotalOps:     totalOps,
		TotalBatches: totalBatches,
		StartTime:    time.Now(),
	}
}

// Add records one completed batch of the given operation count.
func (p *Progress) Add(ops int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.DoneOps += ops
	p.DoneBatches++
}

// PercentComplete returns the completion percentage (0-100).
func (p *Progress) PercentComplete() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.percentCompleteLocked()
}

// IsComplete reports whether every batch has completed.
func (p *Progress) IsComplete() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.DoneBatches >= p.TotalBatches
}

// Snapshot returns an immutable copy of the current state.
func (p *Progress) Snapshot() ProgressSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return ProgressSnapshot{
		TotalOps:        p.TotalOps,
		DoneOps:         p.DoneOps,
		TotalBatches:    p.TotalBatches,
		DoneBatches:     p.DoneBatches,
		PercentComplete: p.percentCompleteLocked(),
		Elapsed:         time.Since(p.StartTime),
	}
}

// percentCompleteLocked calculates percent complete. Callers must hold mu.
func (p *Progress) percentCompleteLocked() float64 {
	if p.TotalOps == 0 {
		return 0
	}
	return (float64(p.DoneOps) / float64(p.TotalOps)) * percentMultiplier
}

// ProgressSnapshot is an immutable view of dispatch progress.
type ProgressSnapshot struct {
	TotalOps        int
	DoneOps         int
	TotalBatches    int
	DoneBatches     int
	PercentComplete float64
	Elapsed         time.Duration
}
