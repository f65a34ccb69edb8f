package registry

import (
	"testing"

	"github.com/nicktill/gometrics/pkg/metrics"
)

func TestRotateIsolation(t *testing.T) {
	cell := NewRotatableCell(metrics.NewSafeMetrics(1, 0, nil))

	cell.Access(func(sm *metrics.SafeMetrics) { sm.Counter(0).Increment(5) })

	old, err := cell.Rotate()
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if got := old.Counter(0).Value(); got != 5 {
		t.Fatalf("displaced generation counter = %d, want 5", got)
	}

	var fresh int64 = -1
	cell.Access(func(sm *metrics.SafeMetrics) { fresh = sm.Counter(0).Value() })
	if fresh != 0 {
		t.Fatalf("new generation counter = %d, want 0", fresh)
	}
}

func TestRotateTwiceNoInterveningWritesYieldsZeroDelta(t *testing.T) {
	cell := NewRotatableCell(metrics.NewSafeMetrics(1, 0, nil))
	cell.Access(func(sm *metrics.SafeMetrics) { sm.Counter(0).Increment(5) })

	if _, err := cell.Rotate(); err != nil {
		t.Fatalf("first rotate: %v", err)
	}

	second, err := cell.Rotate()
	if err != nil {
		t.Fatalf("second rotate: %v", err)
	}
	if got := second.Counter(0).Value(); got != 0 {
		t.Fatalf("second rotate's displaced generation = %d, want 0", got)
	}
}
