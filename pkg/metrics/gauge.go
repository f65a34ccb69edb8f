package metrics

import "sync/atomic"

// GaugeCell is a last-write-wins scalar shared across every writer of a
// descriptor. Unlike CounterCell and HistogramCell it lives directly on the
// descriptor rather than per-thread, so it is backed by an atomic int64
// with relaxed-equivalent semantics: readers may observe any recently
// written value, and there is no ordering guarantee between updates from
// different goroutines.
type GaugeCell struct {
	bits atomic.Int64
}

// Update stores v, discarding whatever value was there before.
func (g *GaugeCell) Update(v int64) {
	g.bits.Store(v)
}

// Get returns the most recently stored value.
func (g *GaugeCell) Get() int64 {
	return g.bits.Load()
}
