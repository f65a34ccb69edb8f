package metrics

// SafeMetrics is a fixed-shape block of counter and histogram cells: one
// generation of a single writer's accumulated values for a group. Its
// shape (n_c counters, n_h histograms) is fixed for the lifetime of the
// block; only a rotate (pkg/registry.RotatableCell) replaces it with a
// fresh, equally-shaped instance.
type SafeMetrics struct {
	counters   []CounterCell
	histograms []HistogramCell
	buckets    []int64
}

// NewSafeMetrics allocates a zeroed block with nCounters counter cells and
// nHistograms histogram cells, each histogram built over buckets.
func NewSafeMetrics(nCounters, nHistograms int, buckets []int64) *SafeMetrics {
	sm := &SafeMetrics{
		counters:   make([]CounterCell, nCounters),
		histograms: make([]HistogramCell, nHistograms),
		buckets:    buckets,
	}
	for i := range sm.histograms {
		sm.histograms[i] = HistogramCell{
			boundaries: buckets,
			freq:       make([]int64, len(buckets)+1),
		}
	}
	return sm
}

// Shape returns (n_c, n_h).
func (sm *SafeMetrics) Shape() (int, int) {
	return len(sm.counters), len(sm.histograms)
}

// Counter returns the i-th counter cell. Panics if i is out of range: an
// out-of-range index here is a programmer contract violation (§7), not a
// recoverable runtime condition.
func (sm *SafeMetrics) Counter(i int) *CounterCell {
	return &sm.counters[i]
}

// Histogram returns the i-th histogram cell.
func (sm *SafeMetrics) Histogram(i int) *HistogramCell {
	return &sm.histograms[i]
}

// Fresh returns a new, zeroed SafeMetrics with the same shape and bucket
// boundaries as sm. Used by the rotatable cell to build the next generation.
func (sm *SafeMetrics) Fresh() *SafeMetrics {
	return NewSafeMetrics(len(sm.counters), len(sm.histograms), sm.buckets)
}

// MergeInto adds every cell of sm into the corresponding descriptor
// accumulator, via the supplied callbacks. visitCounter/visitHistogram are
// invoked once per index with this block's cell; the caller owns the
// locking around the descriptor accumulators.
func (sm *SafeMetrics) MergeInto(visitCounter func(i int, c *CounterCell), visitHistogram func(i int, h *HistogramCell)) {
	for i := range sm.counters {
		visitCounter(i, &sm.counters[i])
	}
	for i := range sm.histograms {
		visitHistogram(i, &sm.histograms[i])
	}
}
