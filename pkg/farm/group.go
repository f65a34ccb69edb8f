package farm

import (
	"errors"
	"fmt"
	"sync"

	"github.com/nicktill/gometrics/pkg/metrics"
	"github.com/nicktill/gometrics/pkg/registry"
)

type groupState int

const (
	stateBuilding groupState = iota
	stateSealed
	stateTornDown
)

// Group bundles related counters, gauges, and histograms that share a
// lifetime (C7). Descriptors are registered while the group is building;
// Farm.Register seals it, fixing the shape of every per-thread SafeMetrics
// it will allocate from then on.
type Group struct {
	mu    sync.Mutex
	state groupState

	counters   []*ReportCounter
	gauges     []*ReportGauge
	histograms []*ReportHistogram

	buckets  []int64
	registry *registry.ThreadRegistry
}

// NewGroup creates a group in the building state, using metrics.DefaultBuckets
// for any histogram registered without explicit boundaries.
func NewGroup() *Group {
	return &Group{buckets: metrics.DefaultBuckets}
}

// RegisterCounter appends a counter descriptor and returns its index,
// which is permanent and is the offset used on the hot path by Counter(i).
// Calling it on a non-building group is a programmer contract violation.
func (g *Group) RegisterCounter(name, desc, subType string, kind metrics.PublishKind) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.mustBuilding("register_counter")
	idx := len(g.counters)
	g.counters = append(g.counters, newReportCounter(name, desc, subType, kind))
	return idx
}

// RegisterGauge appends a gauge descriptor and returns its index. Gauge
// indices are dense independently of counter/histogram indices: a gauge's
// cell lives on the descriptor, never in a per-thread SafeMetrics.
func (g *Group) RegisterGauge(name, desc, subType string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.mustBuilding("register_gauge")
	idx := len(g.gauges)
	g.gauges = append(g.gauges, newReportGauge(name, desc, subType))
	return idx
}

// RegisterHistogram appends a histogram descriptor and returns its index.
// Passing a nil buckets slice uses metrics.DefaultBuckets.
func (g *Group) RegisterHistogram(name, desc, subType string, buckets []int64) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.mustBuilding("register_histogram")
	if buckets == nil {
		buckets = g.buckets
	}
	idx := len(g.histograms)
	g.histograms = append(g.histograms, newReportHistogram(name, desc, subType, buckets))
	return idx
}

func (g *Group) mustBuilding(op string) {
	if g.state != stateBuilding {
		panic(fmt.Sprintf("farm: %s called on a group that is not building", op))
	}
}

// seal transitions the group to sealed and allocates its thread-buffer
// registry with the shape fixed by however many counters/histograms were
// registered. Called only by Farm.Register, under the farm lock.
func (g *Group) seal() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != stateBuilding {
		panic("farm: register called on an already-registered group")
	}
	g.state = stateSealed
	g.registry = registry.NewThreadRegistry(len(g.counters), len(g.histograms), g.buckets)
}

// tearDown transitions the group to torn-down. Called only by
// Farm.Deregister; the caller is responsible for ensuring no writer is
// still touching the group (§4.7 invariant).
func (g *Group) tearDown() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = stateTornDown
}

func (g *Group) mustSealed(op string) {
	g.mu.Lock()
	state := g.state
	g.mu.Unlock()
	if state != stateSealed {
		panic(fmt.Sprintf("farm: %s called on a group that is not sealed", op))
	}
}

// CounterRef, GaugeRef, and HistogramRef are the hot-path handles the spec
// hands back from counter(i)/gauge(i)/histogram(i). They are zero-allocation
// value types: Increment/Decrement/Observe still pay one goroutine-local
// lookup per call, exactly as the concurrency model in §5 describes, while
// Update writes the shared gauge cell directly.

// CounterRef is a hot-path handle to one counter slot of a sealed group.
type CounterRef struct {
	group *Group
	index int
}

// Increment adds n to this goroutine's current generation of the counter.
// n has no default: a single increment passes 1.
func (r CounterRef) Increment(n int64) {
	cell := r.group.registry.AccessLocal()
	cell.Access(func(sm *metrics.SafeMetrics) { sm.Counter(r.index).Increment(n) })
}

// Decrement subtracts n from this goroutine's current generation.
func (r CounterRef) Decrement(n int64) {
	cell := r.group.registry.AccessLocal()
	cell.Access(func(sm *metrics.SafeMetrics) { sm.Counter(r.index).Decrement(n) })
}

// HistogramRef is a hot-path handle to one histogram slot of a sealed group.
type HistogramRef struct {
	group *Group
	index int
}

// Observe records v into this goroutine's current generation.
func (r HistogramRef) Observe(v int64) {
	cell := r.group.registry.AccessLocal()
	cell.Access(func(sm *metrics.SafeMetrics) { sm.Histogram(r.index).Observe(v) })
}

// GaugeRef is a handle to a shared gauge cell.
type GaugeRef struct {
	group *Group
	index int
}

// Update stores v, last-writer-wins.
func (r GaugeRef) Update(v int64) { r.group.gauges[r.index].Update(v) }

// Get returns the most recently stored value.
func (r GaugeRef) Get() int64 { return r.group.gauges[r.index].Value() }

// Counter returns a handle to counter slot i. The group must be sealed.
func (g *Group) Counter(i int) CounterRef {
	g.mustSealed("counter")
	if i < 0 || i >= len(g.counters) {
		panic("farm: counter index out of range")
	}
	return CounterRef{group: g, index: i}
}

// Histogram returns a handle to histogram slot i. The group must be sealed.
func (g *Group) Histogram(i int) HistogramRef {
	g.mustSealed("histogram")
	if i < 0 || i >= len(g.histograms) {
		panic("farm: histogram index out of range")
	}
	return HistogramRef{group: g, index: i}
}

// Gauge returns a handle to gauge slot i. The group must be sealed.
func (g *Group) Gauge(i int) GaugeRef {
	g.mustSealed("gauge")
	if i < 0 || i >= len(g.gauges) {
		panic("farm: gauge index out of range")
	}
	return GaugeRef{group: g, index: i}
}

// ReleaseCurrentGoroutine merges the calling goroutine's final counts into
// the descriptor accumulators and drops its per-thread cell from the
// registry. Writer goroutines with a bounded lifetime (a worker pool
// goroutine about to exit, a request handler about to return) should defer
// this call; it is this module's realization of the "last counts merged"
// answer to the open question on thread-exit handling (see DESIGN.md).
func (g *Group) ReleaseCurrentGoroutine() {
	g.mustSealed("release")
	final, ok := g.registry.ReleaseLocal()
	if !ok {
		return
	}
	g.mergeGeneration(final)
}

// Gather merges every live thread's current generation into the
// descriptor accumulators and rotates each cell to start a fresh
// accumulation interval. The returned Snapshot's Close is a no-op here:
// this module satisfies the grace-period requirement synchronously, inside
// RotatableCell.Rotate, rather than deferring reclamation to snapshot
// disposal (see DESIGN.md, Open Question on reclamation strategy).
func (g *Group) Gather() (*Snapshot, error) {
	g.mustSealed("gather")

	var errs []error
	g.registry.ForEachThread(func(cell *registry.RotatableCell) {
		old, err := cell.Rotate()
		if err != nil {
			errs = append(errs, err)
			return
		}
		g.mergeGeneration(old)
	})

	return &Snapshot{}, errors.Join(errs...)
}

func (g *Group) mergeGeneration(sm *metrics.SafeMetrics) {
	sm.MergeInto(
		func(i int, c *metrics.CounterCell) { g.counters[i].Merge(c) },
		func(i int, h *metrics.HistogramCell) { g.histograms[i].Merge(h) },
	)
}

// Snapshot marks the quiescent point a gather declares on disposal.
type Snapshot struct{}

// Close declares the quiescent point reached by the gather that produced
// this snapshot. It is safe to call multiple times.
func (s *Snapshot) Close() {}
