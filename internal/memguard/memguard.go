// Package memguard estimates a safe high-water mark for the point buffer
// cache's resident tile memory and watches a running byte count against
// it, logging once when the cache crosses the line.
//
// Per spec.md §1's non-goals, deciding which tiles to evict is the
// hierarchy/frustum LOD policy's job, external to this system — so
// unlike the teacher's disk-spilling tile store, a Guard never evicts or
// blocks a caller. It only tells the cache owner "you are over budget,"
// the same role internal/tile/memlimit.go played for that store's
// spill-to-disk decision, minus the actual spilling.
package memguard

import (
	"log"
	"runtime"
	"sync"
	"sync/atomic"
)

// DefaultPressureFraction is the fraction of total RAM at which the
// cache is considered over budget. 0.90 = 90%.
const DefaultPressureFraction = 0.90

// ComputeThreshold returns the number of bytes the point buffer cache
// should stay under, given fraction of total system RAM minus current Go
// runtime overhead and a fixed headroom reservation for everything else
// in the process (decoders, worker pool buffers, etc).
//
// Returns 0 if RAM detection fails or the computed threshold is
// unreasonably small, both of which disable the guard.
func ComputeThreshold(fraction float64, verbose bool) int64 {
	totalRAM, err := totalSystemRAM()
	if err != nil {
		if verbose {
			log.Printf("memguard: cannot detect system RAM: %v; high-water warnings disabled", err)
		}
		return 0
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	overhead := m.Sys + 512*1024*1024 // current usage + 512 MB headroom

	threshold := int64(float64(totalRAM)*fraction) - int64(overhead)
	if threshold < 64*1024*1024 { // minimum 64 MB
		if verbose {
			log.Printf("memguard: computed threshold too small (%.0f MB); high-water warnings disabled",
				float64(threshold)/(1024*1024))
		}
		return 0
	}

	if verbose {
		log.Printf("memguard: point buffer cache high-water mark: %.1f GB (%.0f%% of %.1f GB RAM minus %.1f GB overhead)",
			float64(threshold)/(1024*1024*1024), fraction*100,
			float64(totalRAM)/(1024*1024*1024), float64(overhead)/(1024*1024*1024))
	}
	return threshold
}

// Guard tracks an estimated resident byte count against a threshold and
// logs once per crossing in either direction. It never evicts or blocks;
// it is advisory only.
type Guard struct {
	threshold int64
	bytes     atomic.Int64

	mu    sync.Mutex
	over  bool
	onLog func(format string, args ...any) // overridable for tests
}

// NewGuard creates a Guard watching threshold bytes. A threshold <= 0
// disables warnings (Add never logs).
func NewGuard(threshold int64) *Guard {
	return &Guard{threshold: threshold, onLog: log.Printf}
}

// Add adjusts the tracked byte count by delta (positive on tile insert,
// negative on remove/flush) and logs if this crossed the threshold.
func (g *Guard) Add(delta int64) {
	total := g.bytes.Add(delta)
	if g.threshold <= 0 {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	switch {
	case total >= g.threshold && !g.over:
		g.over = true
		g.onLog("memguard: point buffer cache at %.1f GB, over the %.1f GB high-water mark",
			float64(total)/(1024*1024*1024), float64(g.threshold)/(1024*1024*1024))
	case total < g.threshold && g.over:
		g.over = false
		g.onLog("memguard: point buffer cache back under the %.1f GB high-water mark (%.1f GB)",
			float64(g.threshold)/(1024*1024*1024), float64(total)/(1024*1024*1024))
	}
}

// Bytes returns the current tracked byte count.
func (g *Guard) Bytes() int64 { return g.bytes.Load() }

// Over reports whether the tracked count is currently at or above the
// threshold. Always false when the guard is disabled (threshold <= 0).
func (g *Guard) Over() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.over
}

// TileBytes estimates a tile's resident footprint: its input and output
// buffers plus a fixed overhead for schema/stats/staging bookkeeping.
func TileBytes(inputLen, outputLen int) int64 {
	const perTileOverhead = 512
	return int64(inputLen+outputLen)*4 + perTileOverhead
}
