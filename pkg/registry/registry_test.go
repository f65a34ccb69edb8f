package registry

import (
	"sync"
	"testing"

	"github.com/nicktill/gometrics/pkg/metrics"
)

func TestAccessLocalIsLazyAndStableWithinAGoroutine(t *testing.T) {
	tr := NewThreadRegistry(1, 0, nil)

	cell1 := tr.AccessLocal()
	cell2 := tr.AccessLocal()
	if cell1 != cell2 {
		t.Fatal("AccessLocal returned two different cells for the same goroutine")
	}
}

func TestForEachThreadSumsAllWriters(t *testing.T) {
	const writers = 8
	const perWriter = 100000

	tr := NewThreadRegistry(1, 0, nil)

	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			cell := tr.AccessLocal()
			for j := 0; j < perWriter; j++ {
				cell.Access(func(sm *metrics.SafeMetrics) { sm.Counter(0).Increment(1) })
			}
		}()
	}
	wg.Wait()

	var total int64
	tr.ForEachThread(func(cell *RotatableCell) {
		old, err := cell.Rotate()
		if err != nil {
			t.Fatalf("rotate: %v", err)
		}
		total += old.Counter(0).Value()
	})

	if total != writers*perWriter {
		t.Fatalf("total = %d, want %d", total, writers*perWriter)
	}
}

func TestReleaseLocalReturnsFinalCountsAndDropsTheCell(t *testing.T) {
	tr := NewThreadRegistry(1, 0, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		cell := tr.AccessLocal()
		cell.Access(func(sm *metrics.SafeMetrics) { sm.Counter(0).Increment(7) })

		final, ok := tr.ReleaseLocal()
		if !ok {
			t.Error("ReleaseLocal: expected ok=true")
			return
		}
		if got := final.Counter(0).Value(); got != 7 {
			t.Errorf("released generation counter = %d, want 7", got)
		}
	}()
	<-done

	// A second ReleaseLocal from a goroutine that never wrote has nothing
	// to release.
	done2 := make(chan struct{})
	go func() {
		defer close(done2)
		if _, ok := tr.ReleaseLocal(); ok {
			t.Error("ReleaseLocal: expected ok=false for a goroutine with no cell")
		}
	}()
	<-done2
}
