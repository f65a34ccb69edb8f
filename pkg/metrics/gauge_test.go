package metrics

import (
	"sync"
	"testing"
)

func TestGaugeCellUpdateGet(t *testing.T) {
	var g GaugeCell
	g.Update(42)

	if got := g.Get(); got != 42 {
		t.Fatalf("get = %d, want 42", got)
	}

	g.Update(-7)
	if got := g.Get(); got != -7 {
		t.Fatalf("get = %d, want -7", got)
	}
}

func TestGaugeCellLastWriterWins(t *testing.T) {
	var g GaugeCell

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); g.Update(7) }()
	go func() { defer wg.Done(); g.Update(9) }()
	wg.Wait()

	got := g.Get()
	if got != 7 && got != 9 {
		t.Fatalf("get = %d, want 7 or 9", got)
	}
}
