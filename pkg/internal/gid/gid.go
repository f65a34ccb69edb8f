// Package gid extracts the calling goroutine's numeric id, the same trick
// net/http's server and several tracing libraries use when they need a
// cheap, unique-enough key to shard per-goroutine state without threading
// an explicit handle through every call site.
package gid

import (
	"bytes"
	"runtime"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Current returns the calling goroutine's id by parsing the header line of
// its own stack trace ("goroutine 123 [running]:"). It is a few hundred
// nanoseconds slower than a real thread-local read would be; pkg/registry
// calls it once per AccessLocal, so every increment or observe pays it.
func Current() int64 {
	buf := make([]byte, 64)
	n := runtime.Stack(buf, false)
	buf = buf[:n]

	const prefix = "goroutine "
	buf = bytes.TrimPrefix(buf, []byte(prefix))

	idx := bytes.IndexByte(buf, ' ')
	if idx < 0 {
		return 0
	}

	id, err := strconv.ParseInt(string(buf[:idx]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// Shard hashes a goroutine id into [0, n) using xxhash, the same hashing
// primitive the teacher's badger-backed storage layer uses to turn a series
// key into a lookup key. n must be > 0.
func Shard(id int64, n int) int {
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(id >> (8 * i))
	}
	return int(xxhash.Sum64(b[:]) % uint64(n))
}
