package farm

import (
	"sync"

	"github.com/nicktill/gometrics/pkg/metrics"
	"github.com/nicktill/gometrics/pkg/sink"
)

// noneName is the sentinel that keeps a descriptor out of the external
// sink while still aggregating and rendering it in JSON (§4.6, scenario 6).
const noneName = "none"

// descriptorKey builds the JSON-object key a Report* descriptor renders
// under: name + desc, with " - " + sub_type appended when sub_type is set.
func descriptorKey(name, desc, subType string) string {
	key := name + desc
	if subType != "" {
		key += " - " + subType
	}
	return key
}

// ReportCounter pairs a counter's metadata with the cumulative value merged
// across every writer thread since the group was created. It is mutated
// only through Merge, under its own lock: by the gatherer, or by a writer
// goroutine calling Group.ReleaseCurrentGoroutine.
type ReportCounter struct {
	name, desc, subType string
	publishKind         metrics.PublishKind

	mu    sync.Mutex
	value int64
}

func newReportCounter(name, desc, subType string, publishKind metrics.PublishKind) *ReportCounter {
	return &ReportCounter{name: name, desc: desc, subType: subType, publishKind: publishKind}
}

// Merge folds a per-thread cell's value into the cumulative accumulator.
func (r *ReportCounter) Merge(cell *metrics.CounterCell) {
	r.mu.Lock()
	r.value += cell.Value()
	r.mu.Unlock()
}

// Value returns the current cumulative value.
func (r *ReportCounter) Value() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.value
}

func (r *ReportCounter) key() string { return descriptorKey(r.name, r.desc, r.subType) }

// Publish forwards the current cumulative value to s, unless name is the
// "none" sentinel.
func (r *ReportCounter) Publish(s sink.Sink) error {
	if r.name == noneName {
		return nil
	}
	return s.PublishCounter(sink.CounterSample{
		Name:        r.name,
		Desc:        r.desc,
		SubType:     r.subType,
		PublishKind: r.publishKind,
		Value:       r.Value(),
	})
}

// ReportGauge pairs a gauge's metadata with its single shared cell. Unlike
// counters and histograms, a gauge has no per-thread generations to merge:
// the descriptor's cell is the only cell, written directly by every caller.
type ReportGauge struct {
	name, desc, subType string
	cell                metrics.GaugeCell
}

func newReportGauge(name, desc, subType string) *ReportGauge {
	return &ReportGauge{name: name, desc: desc, subType: subType}
}

// Update stores v, last-writer-wins.
func (r *ReportGauge) Update(v int64) { r.cell.Update(v) }

// Value returns the most recently stored value.
func (r *ReportGauge) Value() int64 { return r.cell.Get() }

func (r *ReportGauge) key() string { return descriptorKey(r.name, r.desc, r.subType) }

// Publish forwards the current value to s, unless name is "none".
func (r *ReportGauge) Publish(s sink.Sink) error {
	if r.name == noneName {
		return nil
	}
	return s.PublishGauge(sink.GaugeSample{
		Name:    r.name,
		Desc:    r.desc,
		SubType: r.subType,
		Value:   r.Value(),
	})
}

// ReportHistogram pairs a histogram's metadata with the cumulative
// HistogramCell merged across every writer thread since the group was
// created.
type ReportHistogram struct {
	name, desc, subType string

	mu   sync.Mutex
	cell *metrics.HistogramCell
}

func newReportHistogram(name, desc, subType string, buckets []int64) *ReportHistogram {
	return &ReportHistogram{
		name: name, desc: desc, subType: subType,
		cell: metrics.NewHistogramCell(buckets),
	}
}

// Merge folds a per-thread cell's frequencies and sum into the accumulator.
func (r *ReportHistogram) Merge(cell *metrics.HistogramCell) {
	r.mu.Lock()
	r.cell.Merge(cell)
	r.mu.Unlock()
}

// Snapshot returns count, sum, average, and the p50/p95/p99 percentiles
// under a single lock acquisition, so the JSON renderer sees one
// consistent view.
func (r *ReportHistogram) Snapshot() (count, sum, avg, p50, p95, p99 int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cell.Count(), r.cell.Sum(), r.cell.Average(),
		r.cell.Percentile(50), r.cell.Percentile(95), r.cell.Percentile(99)
}

func (r *ReportHistogram) key() string { return descriptorKey(r.name, r.desc, r.subType) }

// Publish forwards the current average and p50/p95/p99 to s, unless name
// is "none". The bucket frequencies themselves are not forwarded.
func (r *ReportHistogram) Publish(s sink.Sink) error {
	if r.name == noneName {
		return nil
	}
	_, _, avg, p50, p95, p99 := r.Snapshot()
	return s.PublishHistogram(sink.HistogramSample{
		Name: r.name, Desc: r.desc, SubType: r.subType,
		Average: avg, P50: p50, P95: p95, P99: p99,
	})
}
