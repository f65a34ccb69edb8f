package farm

import (
	"sync"
	"testing"

	"github.com/nicktill/gometrics/pkg/metrics"
)

func TestRegisterCounterAfterSealPanics(t *testing.T) {
	g := NewGroup()
	f := New()
	f.Register(g)

	defer func() {
		if recover() == nil {
			t.Fatal("expected register_counter on a sealed group to panic")
		}
	}()
	g.RegisterCounter("c", " desc", "", metrics.PublishAsCounter)
}

func TestCounterBeforeSealPanics(t *testing.T) {
	g := NewGroup()
	idx := g.RegisterCounter("c", " desc", "", metrics.PublishAsCounter)

	defer func() {
		if recover() == nil {
			t.Fatal("expected counter(i) on a building group to panic")
		}
	}()
	g.Counter(idx)
}

func TestSingleThreadCounterMillionIncrements(t *testing.T) {
	g := NewGroup()
	idx := g.RegisterCounter("req_total", "requests", "", metrics.PublishAsCounter)

	f := New()
	f.Register(g)

	c := g.Counter(idx)
	for i := 0; i < 1_000_000; i++ {
		c.Increment(1)
	}

	if _, err := g.Gather(); err != nil {
		t.Fatalf("gather: %v", err)
	}
	if got := g.counters[idx].Value(); got != 1_000_000 {
		t.Fatalf("value = %d, want 1000000", got)
	}
}

func TestMultiThreadCounterConsistency(t *testing.T) {
	g := NewGroup()
	idx := g.RegisterCounter("c", "", "", metrics.PublishAsCounter)

	f := New()
	f.Register(g)

	const writers = 8
	const perWriter = 100000

	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			c := g.Counter(idx)
			for j := 0; j < perWriter; j++ {
				c.Increment(1)
			}
		}()
	}
	wg.Wait()

	if _, err := g.Gather(); err != nil {
		t.Fatalf("gather: %v", err)
	}
	if got := g.counters[idx].Value(); got != writers*perWriter {
		t.Fatalf("value = %d, want %d", got, writers*perWriter)
	}
}

func TestGatherIsCumulativeAcrossCalls(t *testing.T) {
	g := NewGroup()
	idx := g.RegisterCounter("c", "", "", metrics.PublishAsCounter)

	f := New()
	f.Register(g)

	g.Counter(idx).Increment(5)
	if _, err := g.Gather(); err != nil {
		t.Fatalf("gather: %v", err)
	}
	if got := g.counters[idx].Value(); got != 5 {
		t.Fatalf("value after first gather = %d, want 5", got)
	}

	// No further writes: a second gather reports the same cumulative value.
	if _, err := g.Gather(); err != nil {
		t.Fatalf("gather: %v", err)
	}
	if got := g.counters[idx].Value(); got != 5 {
		t.Fatalf("value after second gather = %d, want 5", got)
	}
}

func TestGaugeLastWriterWins(t *testing.T) {
	g := NewGroup()
	idx := g.RegisterGauge("g", "", "")

	f := New()
	f.Register(g)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); g.Gauge(idx).Update(7) }()
	go func() { defer wg.Done(); g.Gauge(idx).Update(9) }()
	wg.Wait()

	got := g.Gauge(idx).Get()
	if got != 7 && got != 9 {
		t.Fatalf("gauge value = %d, want 7 or 9", got)
	}
}

func TestReleaseCurrentGoroutineMergesFinalCounts(t *testing.T) {
	g := NewGroup()
	idx := g.RegisterCounter("c", "", "", metrics.PublishAsCounter)

	f := New()
	f.Register(g)

	done := make(chan struct{})
	go func() {
		defer close(done)
		g.Counter(idx).Increment(3)
		g.ReleaseCurrentGoroutine()
	}()
	<-done

	if got := g.counters[idx].Value(); got != 3 {
		t.Fatalf("value = %d, want 3 after ReleaseCurrentGoroutine", got)
	}

	// Gather afterward finds nothing left to merge for that goroutine.
	if _, err := g.Gather(); err != nil {
		t.Fatalf("gather: %v", err)
	}
	if got := g.counters[idx].Value(); got != 3 {
		t.Fatalf("value = %d, want 3 unchanged", got)
	}
}
