// Package farm implements the descriptor layer (C6), the group that binds
// descriptors to per-thread slots (C7), and the process-singleton registry
// that drives gathering and JSON rendering across every group (C8).
package farm

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/nicktill/gometrics/pkg/sink"
)

// Farm is a registry of groups. Writers never touch a Farm directly; they
// hold onto the Group they registered metrics with. A Farm only matters to
// whatever drives gather() — typically a single collector goroutine.
type Farm struct {
	mu     sync.Mutex
	groups map[*Group]struct{}
}

// New creates an empty, independent Farm. Most applications want the
// process-wide Instance instead; New exists for tests and for libraries
// that want their own isolated registry.
func New() *Farm {
	return &Farm{groups: make(map[*Group]struct{})}
}

var (
	instance     *Farm
	instanceOnce sync.Once
)

// Instance returns the lazily-initialized process-singleton Farm.
func Instance() *Farm {
	instanceOnce.Do(func() { instance = New() })
	return instance
}

// Register seals g and adds it to the farm. Registering the same group
// twice, or a group from another farm a second time, is a programmer
// contract violation.
func (f *Farm) Register(g *Group) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.groups[g]; exists {
		panic("farm: group already registered")
	}
	g.seal()
	f.groups[g] = struct{}{}
}

// Deregister removes g from the farm and tears it down. The caller must
// ensure no writer is still touching g; recording into a torn-down group
// is undefined behavior (§4.7).
func (f *Farm) Deregister(g *Group) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.groups[g]; !exists {
		return
	}
	delete(f.groups, g)
	g.tearDown()
}

// document is the three-key JSON shape §4.8 specifies.
type document struct {
	Counters   map[string]int64  `json:"Counters"`
	Gauges     map[string]int64  `json:"Gauges"`
	Histograms map[string]string `json:"Histograms percentiles (usecs) avg/50/95/99"`
}

// Gather walks every registered group under the farm lock, merging each
// one's live thread cells into its descriptors and rotating them, then
// renders a JSON document with the aggregated state. Writers never wait on
// the farm lock, which only a concurrent Gather does; a writer waits only
// while its own cell is being rotated (RotatableCell.Rotate holds that
// cell's write lock).
//
// A per-cell rotation failure (allocation failure building the next
// generation) is collected and returned as a non-nil error alongside the
// JSON document, which still reflects every successfully merged value —
// gather never discards already-aggregated data because one cell's
// rotation failed.
func (f *Farm) Gather() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc := document{
		Counters:   make(map[string]int64),
		Gauges:     make(map[string]int64),
		Histograms: make(map[string]string),
	}

	var errs []error
	for g := range f.groups {
		snap, err := g.Gather()
		if err != nil {
			errs = append(errs, err)
		}
		if snap != nil {
			snap.Close()
		}

		for _, c := range g.counters {
			doc.Counters[c.key()] = c.Value()
		}
		for _, gg := range g.gauges {
			doc.Gauges[gg.key()] = gg.Value()
		}
		for _, h := range g.histograms {
			_, _, avg, p50, p95, p99 := h.Snapshot()
			doc.Histograms[h.key()] = fmt.Sprintf("%d / %d / %d / %d", avg, p50, p95, p99)
		}
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("farm: render snapshot: %w", err)
	}
	return string(body), errors.Join(errs...)
}

// Publish forwards every non-sentinel descriptor's current value to s.
// Publish failures are the sink's concern (§7): every descriptor is still
// attempted, and all failures are returned joined with errors.Join.
func (f *Farm) Publish(s sink.Sink) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var errs []error
	for g := range f.groups {
		for _, c := range g.counters {
			if err := c.Publish(s); err != nil {
				errs = append(errs, err)
			}
		}
		for _, gg := range g.gauges {
			if err := gg.Publish(s); err != nil {
				errs = append(errs, err)
			}
		}
		for _, h := range g.histograms {
			if err := h.Publish(s); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
