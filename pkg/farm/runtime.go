package farm

import (
	"context"
	"runtime"
	"time"

	"github.com/nicktill/gometrics/pkg/metrics"
)

// RuntimeGroup is a ready-made Group that reports Go runtime self-metrics
// (goroutine count, heap/stack/sys bytes, GC cycles and pause time) through
// the same C1-C7 path as any application-defined group, rather than a
// side-channel collector. It is the replacement for the teacher SDK's
// runtime.Collector, rebuilt on this module's own primitives.
type RuntimeGroup struct {
	*Group

	goroutines, cpuCount           int
	heapBytes, stackBytes, sysBytes int
	gcCount, gcPauseNanos           int

	// lastGCCount/lastGCPauseNanos track runtime.MemStats' cumulative
	// totals so Sample can report them as counter deltas. Sample is meant
	// to be called from a single collector goroutine (see Start); these
	// fields are not synchronized.
	lastGCCount     int64
	lastGCPauseNanos int64
}

// NewRuntimeGroup builds and registers (but does not seal) a runtime group.
// Call farm.Register(rg.Group) before Start.
func NewRuntimeGroup() *RuntimeGroup {
	g := NewGroup()
	rg := &RuntimeGroup{Group: g}

	rg.goroutines = g.RegisterGauge("go_goroutines", " live goroutines", "")
	rg.cpuCount = g.RegisterGauge("go_cpu_count", " logical CPUs available", "")
	rg.heapBytes = g.RegisterGauge("go_memory_heap_bytes", " heap bytes in use", "")
	rg.stackBytes = g.RegisterGauge("go_memory_stack_bytes", " stack bytes in use", "")
	rg.sysBytes = g.RegisterGauge("go_memory_sys_bytes", " bytes obtained from the OS", "")
	rg.gcCount = g.RegisterCounter("go_gc_count", " completed GC cycles", "", metrics.PublishAsCounter)
	rg.gcPauseNanos = g.RegisterCounter("go_gc_pause_nanoseconds", " cumulative GC pause time", "", metrics.PublishAsCounter)

	return rg
}

// Sample reads the current runtime stats and updates every gauge, and
// increments each counter by the delta since the previous Sample.
func (rg *RuntimeGroup) Sample() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	rg.Gauge(rg.goroutines).Update(int64(runtime.NumGoroutine()))
	rg.Gauge(rg.cpuCount).Update(int64(runtime.NumCPU()))
	rg.Gauge(rg.heapBytes).Update(int64(m.HeapAlloc))
	rg.Gauge(rg.stackBytes).Update(int64(m.StackInuse))
	rg.Gauge(rg.sysBytes).Update(int64(m.Sys))

	gcCount := int64(m.NumGC)
	rg.Counter(rg.gcCount).Increment(gcCount - rg.lastGCCount)
	rg.lastGCCount = gcCount

	pauseNanos := int64(m.PauseTotalNs)
	rg.Counter(rg.gcPauseNanos).Increment(pauseNanos - rg.lastGCPauseNanos)
	rg.lastGCPauseNanos = pauseNanos
}

// Start samples immediately, then every interval until ctx is canceled. It
// is meant to run in its own goroutine and is the only goroutine expected
// to call Sample on this group.
func (rg *RuntimeGroup) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Second
	}

	rg.Sample()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rg.Sample()
		}
	}
}
