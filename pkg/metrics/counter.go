package metrics

// CounterCell is a signed 64-bit accumulator. It is a plain int64, not an
// atomic: safety comes from the fact that exactly one goroutine ever holds
// a reference to the SafeMetrics block it lives in (see pkg/registry).
type CounterCell struct {
	value int64
}

// Increment adds n (which may be negative) to the cell.
func (c *CounterCell) Increment(n int64) {
	c.value += n
}

// Decrement subtracts n from the cell.
func (c *CounterCell) Decrement(n int64) {
	c.value -= n
}

// Value returns the cell's current value.
func (c *CounterCell) Value() int64 { return c.value }

// Reset zeroes the cell.
func (c *CounterCell) Reset() { c.value = 0 }
