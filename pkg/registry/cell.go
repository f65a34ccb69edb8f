// Package registry implements the rotate-and-merge protocol (C4) and the
// per-thread buffer registry (C5) that sit between application writers and
// the descriptor accumulators in pkg/farm.
//
// The Design Notes section of the specification this module implements
// explicitly allows a reader-writer lock in place of RCU/epoch reclamation
// "if gather frequency is low", which is the case here: gather runs on a
// collector-driven interval, not per request. RotatableCell takes that
// option: writers hold a read lock for the duration of one increment or
// observe call, and Rotate takes the write lock, which cannot be granted
// until every in-flight writer has released its read lock — that wait is
// exactly the grace period the spec calls for.
package registry

import (
	"fmt"
	"sync"

	"github.com/nicktill/gometrics/pkg/metrics"
)

// RotatableCell holds one SafeMetrics generation. Writers access it via
// Access for the plain-add fast path; the gatherer calls Rotate to retire
// the current generation and begin a fresh accumulation interval.
type RotatableCell struct {
	mu      sync.RWMutex
	current *metrics.SafeMetrics
}

// NewRotatableCell wraps the given generation.
func NewRotatableCell(initial *metrics.SafeMetrics) *RotatableCell {
	return &RotatableCell{current: initial}
}

// Access runs fn with the cell's current generation, holding the read side
// of the lock for fn's duration. fn must not block: it is meant for a
// single CounterCell.Increment / HistogramCell.Observe / shape lookup.
func (rc *RotatableCell) Access(fn func(sm *metrics.SafeMetrics)) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	fn(rc.current)
}

// Rotate swaps in a freshly allocated, equally-shaped generation and
// returns the displaced one for the caller to merge into descriptor
// accumulators. It blocks until every Access call in flight at the moment
// Rotate is called has returned — the grace period required by the
// rotate-and-merge contract.
//
// If allocating the fresh generation fails, the current generation is left
// untouched and an error is returned; accumulated values are not lost and
// writers remain functional, per the allocation-failure handling the spec
// requires of the gatherer.
func (rc *RotatableCell) Rotate() (old *metrics.SafeMetrics, err error) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("registry: allocate next generation: %v", r)
		}
	}()

	fresh := rc.current.Fresh()
	old = rc.current
	rc.current = fresh
	return old, nil
}
