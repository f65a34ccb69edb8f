package metrics

// DefaultBuckets are the mandatory interop bucket boundaries, in
// microseconds, for latency-shaped histograms. 27 boundaries yield 28
// slots: 27 "at most Bound[i]" slots plus one overflow slot.
var DefaultBuckets = []int64{
	300, 450, 750, 1000, 3000, 5000, 7000, 9000, 11000, 13000, 15000, 17000,
	19000, 21000, 32000, 45000, 75000, 110000, 160000, 240000, 360000, 540000,
	800000, 1200000, 1800000, 2700000, 4000000,
}

// HistogramCell is a single-writer accumulator over a fixed set of bucket
// boundaries. freq has len(boundaries)+1 slots: freq[i] for i < len(boundaries)
// counts observations <= boundaries[i] not already counted by a lower slot;
// the last slot is overflow (> the highest boundary).
type HistogramCell struct {
	boundaries []int64
	freq       []int64
	sum        int64
}

// NewHistogramCell builds a zeroed cell over the given ascending boundaries.
// Passing a nil or empty slice yields a single overflow-only bucket.
func NewHistogramCell(boundaries []int64) *HistogramCell {
	return &HistogramCell{
		boundaries: boundaries,
		freq:       make([]int64, len(boundaries)+1),
	}
}

// Slots returns the number of frequency slots (len(boundaries)+1).
func (h *HistogramCell) Slots() int { return len(h.freq) }

// Observe locates the smallest boundary >= v (or the overflow slot if none)
// and increments it, then adds v to the running sum.
func (h *HistogramCell) Observe(v int64) {
	h.sum += v
	for i, b := range h.boundaries {
		if v <= b {
			h.freq[i]++
			return
		}
	}
	h.freq[len(h.freq)-1]++
}

// Merge adds other's frequency slots and sum into h. Both cells must share
// the same boundary set; this is the caller's responsibility, as it is for
// every other merge in this package.
func (h *HistogramCell) Merge(other *HistogramCell) {
	for i := range h.freq {
		h.freq[i] += other.freq[i]
	}
	h.sum += other.sum
}

// Reset zeroes the cell in place, keeping its allocation. Rotation does
// not use it: RotatableCell.Rotate always allocates a fresh generation.
func (h *HistogramCell) Reset() {
	for i := range h.freq {
		h.freq[i] = 0
	}
	h.sum = 0
}

// Count returns the total number of observations recorded.
func (h *HistogramCell) Count() int64 {
	var n int64
	for _, f := range h.freq {
		n += f
	}
	return n
}

// Sum returns the running sum of observed values.
func (h *HistogramCell) Sum() int64 { return h.sum }

// Average is sum/count using integer division, 0 when count is 0.
func (h *HistogramCell) Average() int64 {
	n := h.Count()
	if n == 0 {
		return 0
	}
	return h.sum / n
}

// Percentile reconstructs the p-th percentile (0 < p <= 100) from the
// bucketed frequencies. The interpolation step multiplies by the bucket
// index rather than bucket width; this reproduces the source
// implementation's formula verbatim for behavioral parity (see DESIGN.md,
// Open Question 1) rather than the more usual width-based interpolation.
func (h *HistogramCell) Percentile(p float64) int64 {
	n := h.Count()
	if n == 0 {
		return 0
	}

	target := int64(float64(n) * p / 100)

	var cum int64
	idx := -1
	for i, f := range h.freq {
		cum += f
		if cum >= target {
			idx = i
			break
		}
	}
	if idx == -1 {
		idx = len(h.freq) - 1
	}

	if h.freq[idx] == 0 {
		return 0
	}

	cumPrev := cum - h.freq[idx]
	var yLower int64
	if idx > 0 && idx-1 < len(h.boundaries) {
		yLower = h.boundaries[idx-1]
	}

	return yLower + (target-cumPrev)*int64(idx)/h.freq[idx]
}
