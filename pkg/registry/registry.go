package registry

import (
	"sync"

	"github.com/nicktill/gometrics/pkg/internal/gid"
	"github.com/nicktill/gometrics/pkg/metrics"
)

// numShards controls how many independent lock-protected maps back the
// registry. Go gives us no real thread-local storage, so AccessLocal keys
// off the calling goroutine's id (pkg/internal/gid) the way a
// native implementation would key off an OS thread id; sharding that
// lookup the way the teacher's badger layer shards series keys keeps
// lazily-created-cell contention low under many concurrent writer
// goroutines.
const numShards = 32

type shard struct {
	mu    sync.Mutex
	cells map[int64]*RotatableCell
}

// ThreadRegistry enumerates every live per-goroutine SafeMetrics cell for
// one group. New cells are created lazily, on a goroutine's first write.
type ThreadRegistry struct {
	shards      [numShards]*shard
	nCounters   int
	nHistograms int
	buckets     []int64
}

// NewThreadRegistry builds an empty registry for cells of the given shape.
func NewThreadRegistry(nCounters, nHistograms int, buckets []int64) *ThreadRegistry {
	tr := &ThreadRegistry{
		nCounters:   nCounters,
		nHistograms: nHistograms,
		buckets:     buckets,
	}
	for i := range tr.shards {
		tr.shards[i] = &shard{cells: make(map[int64]*RotatableCell)}
	}
	return tr
}

func (tr *ThreadRegistry) shardFor(id int64) *shard {
	return tr.shards[gid.Shard(id, numShards)]
}

// AccessLocal returns the calling goroutine's cell, creating it on first
// use with the registry's shape.
func (tr *ThreadRegistry) AccessLocal() *RotatableCell {
	id := gid.Current()
	sh := tr.shardFor(id)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	if cell, ok := sh.cells[id]; ok {
		return cell
	}
	cell := NewRotatableCell(metrics.NewSafeMetrics(tr.nCounters, tr.nHistograms, tr.buckets))
	sh.cells[id] = cell
	return cell
}

// ForEachThread invokes visit once per live cell. The set of cells visited
// is a consistent snapshot taken at the start of the call; a cell created
// by a goroutine after the snapshot is taken is picked up by the next
// gather cycle, never silently dropped.
func (tr *ThreadRegistry) ForEachThread(visit func(cell *RotatableCell)) {
	for _, sh := range tr.shards {
		sh.mu.Lock()
	}
	var snapshot []*RotatableCell
	for _, sh := range tr.shards {
		for _, cell := range sh.cells {
			snapshot = append(snapshot, cell)
		}
	}
	for _, sh := range tr.shards {
		sh.mu.Unlock()
	}

	for _, cell := range snapshot {
		visit(cell)
	}
}

// ReleaseLocal removes the calling goroutine's cell from the registry and
// returns its final, un-rotated generation so the caller can merge it into
// descriptor accumulators before discarding it. This is this module's
// answer to the thread-exit question the spec leaves open: a departing
// writer's last counts are merged, never dropped, provided it calls
// ReleaseLocal (typically via defer) before exiting. A writer that never
// calls it keeps its cell reachable — and its counts included — in every
// ForEachThread sweep until the group itself is torn down.
func (tr *ThreadRegistry) ReleaseLocal() (*metrics.SafeMetrics, bool) {
	id := gid.Current()
	sh := tr.shardFor(id)

	sh.mu.Lock()
	cell, ok := sh.cells[id]
	if ok {
		delete(sh.cells, id)
	}
	sh.mu.Unlock()

	if !ok {
		return nil, false
	}

	// The cell is already unreachable from the registry, so there is no
	// fresh generation to allocate: just hand back what it holds.
	var final *metrics.SafeMetrics
	cell.Access(func(sm *metrics.SafeMetrics) { final = sm })
	return final, true
}
