// Package recolor implements the serial FIFO recolor queue (§4.6, C6):
// when a push invalidates another cached tile's coloring, the cache
// enqueues it here instead of recoloring inline, and a single driver
// drains the queue, coalescing repeat impacts on the same path into one
// entry moved to the tail.
//
// Grounded on internal/tile/generator.go's worker-dispatch loop for the
// prepare/dispatch/unprepare shape, generalized from "one goroutine per
// zoom level" to "one driver goroutine draining a path-keyed queue",
// and on internal/tile/diskstore.go's single-owner-goroutine pattern for
// why a `running` flag rather than always-on polling is the right shape
// here: the queue is usually empty and a park/wake driver avoids a busy
// loop.
package recolor

import (
	"runtime"
	"sync"

	"github.com/hobu/plasio-go/internal/brush"
	"github.com/hobu/plasio-go/internal/colorworker"
	"github.com/hobu/plasio-go/internal/stats"
	"github.com/hobu/plasio-go/internal/tile"
	"github.com/hobu/plasio-go/internal/tilelock"
)

// Store is the cache-side lookup surface the scheduler needs: find a
// tile by path, find its neighbors for prepare's parent/children
// staging, and read the current pipeline-wide stats. internal/cache
// implements this without recolor ever importing it, so the two
// packages can depend on each other's capabilities without an import
// cycle.
type Store interface {
	Lookup(path string) (*tile.Tile, bool)
	Neighbors(path string) (parent *tile.Tile, children [8]*tile.Tile)
	GlobalStats() stats.Histogram
}

// entry is one queued tile's pending recolor: the brush slots that
// still need to run, keyed by slot index so repeat impacts merge by
// key instead of piling up duplicate work for the same slot.
type entry struct {
	tile  *tile.Tile
	slots map[int]brush.Brush
}

// Scheduler is the FIFO recolor queue plus its single driver (§4.6,
// §5's "single driver task runs at a time").
type Scheduler struct {
	mu      sync.Mutex
	order   []string
	byPath  map[string]*entry
	running bool

	store    Store
	pool     *colorworker.Pool
	locks    *tilelock.Table
	onRender func()
}

// New creates a recolor scheduler. onRender may be nil.
func New(store Store, pool *colorworker.Pool, locks *tilelock.Table, onRender func()) *Scheduler {
	return &Scheduler{
		byPath:   make(map[string]*entry),
		store:    store,
		pool:     pool,
		locks:    locks,
		onRender: onRender,
	}
}

// Enqueue adds (or merges into an existing entry for) t's pending
// recolor. Per §3 invariant 5 and §4.6, an existing entry for the same
// path has the new slots spliced in and is moved to the tail.
func (s *Scheduler) Enqueue(t *tile.Tile, slots map[int]brush.Brush) {
	if len(slots) == 0 {
		return
	}
	s.mu.Lock()
	if e, ok := s.byPath[t.Path]; ok {
		for i, b := range slots {
			e.slots[i] = b
		}
		e.tile = t
		s.moveToTailLocked(t.Path)
	} else {
		merged := make(map[int]brush.Brush, len(slots))
		for i, b := range slots {
			merged[i] = b
		}
		s.byPath[t.Path] = &entry{tile: t, slots: merged}
		s.order = append(s.order, t.Path)
	}
	needStart := !s.running
	if needStart {
		s.running = true
	}
	s.mu.Unlock()

	if needStart {
		go s.run()
	}
}

func (s *Scheduler) moveToTailLocked(path string) {
	for i, p := range s.order {
		if p == path {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.order = append(s.order, path)
}

// Cancel scrubs path from the queue, matching remove(path)'s contract
// of cancelling any pending recolor for a deleted tile (§4.5 remove,
// §8 scenario 3).
func (s *Scheduler) Cancel(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byPath, path)
	for i, p := range s.order {
		if p == path {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Clear empties the queue (§4.5 flush, §8 "flush totality").
func (s *Scheduler) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byPath = make(map[string]*entry)
	s.order = nil
}

// Len reports the number of distinct paths currently queued.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// Contains reports whether path currently has a pending recolor entry.
func (s *Scheduler) Contains(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byPath[path]
	return ok
}

func (s *Scheduler) run() {
	for {
		s.mu.Lock()
		if len(s.order) == 0 {
			s.running = false
			s.mu.Unlock()
			return
		}
		path := s.order[0]
		s.order = s.order[1:]
		e := s.byPath[path]
		delete(s.byPath, path)
		s.mu.Unlock()

		// The await-delay(0) fairness hint before tile-lock acquisition
		// (§5, §9): yield once so a burst of enqueues from within the
		// same push doesn't starve other goroutines waiting on the same
		// lock table.
		runtime.Gosched()
		s.recolorNode(e)
	}
}

// recolorNode repeats §4.5 steps 3-8 against an already-cached tile,
// reusing its existing input/output buffers rather than allocating new
// ones, and only for the brush slots named in e.slots.
func (s *Scheduler) recolorNode(e *entry) {
	t := e.tile
	if _, ok := s.store.Lookup(t.Path); !ok {
		return // removed before the driver reached it; Cancel should have caught this, but guard anyway
	}

	bp := brush.BufferParams{
		Schema:            t.Schema,
		Stats:             s.store.GlobalStats(),
		TotalPoints:       t.TotalPoints,
		RenderSpaceBounds: t.RenderSpaceBounds,
		GeoTransform:      t.GeoTransform,
	}
	parent, children := s.store.Neighbors(t.Path)

	var wg sync.WaitGroup
	for i, b := range e.slots {
		wg.Add(1)
		go func(i int, b brush.Brush) {
			defer wg.Done()
			parentStaging, childrenStaging := neighborStaging(i, parent, children)
			b.Prepare(bp, parentStaging, childrenStaging)
		}(i, b)
	}
	wg.Wait()

	s.locks.Lock(t.Path)
	colorFn := partialColorFunc(e.slots)
	resultCh := s.pool.Push(colorworker.Params{
		TotalPoints:     t.TotalPoints,
		InputBuffer:     t.InputBuffer,
		OutputBuffer:    t.OutputBuffer,
		OutputPointSize: t.OutputPointSize,
		Color:           colorFn,
	})
	res := <-resultCh
	s.locks.Unlock(t.Path)

	// §9 open question: flush/remove don't abort an in-flight job. Only
	// write results back if the tile is still the one we started with.
	if current, ok := s.store.Lookup(t.Path); !ok || current != t {
		return
	}

	if res.Err == nil {
		t.InputBuffer = res.InputBuffer
		t.OutputBuffer = res.OutputBuffer
	}

	for i, b := range e.slots {
		parentStaging, childrenStaging := neighborStaging(i, parent, children)
		if i < len(t.StagingAttributes) {
			t.StagingAttributes[i] = b.StagingAttributes(bp, parentStaging, childrenStaging)
		}
	}

	var uwg sync.WaitGroup
	for _, b := range e.slots {
		uwg.Add(1)
		go func(b brush.Brush) {
			defer uwg.Done()
			b.Unprepare(bp)
		}(b)
	}
	uwg.Wait()

	t.Update = true
	if s.onRender != nil {
		s.onRender()
	}
}

func neighborStaging(slot int, parent *tile.Tile, children [8]*tile.Tile) (parentStaging any, childrenStaging [8]any) {
	if parent != nil && slot < len(parent.StagingAttributes) {
		parentStaging = parent.StagingAttributes[slot]
	}
	for o := 0; o < 8; o++ {
		if children[o] != nil && slot < len(children[o].StagingAttributes) {
			childrenStaging[o] = children[o].StagingAttributes[slot]
		}
	}
	return parentStaging, childrenStaging
}

// partialColorFunc writes only the recolored slots' output channels,
// leaving x,y,z and every other brush's channel in OutputBuffer
// untouched — a recolor, unlike a fresh push, must not disturb channels
// it wasn't asked to repaint.
func partialColorFunc(slots map[int]brush.Brush) func(pointIndex int, out, in []float32, stride int) {
	scratch := make([]float64, 3)
	return func(_ int, out []float32, in []float32, _ int) {
		for i, b := range slots {
			if 3+i >= len(out) {
				continue
			}
			out[3+i] = brush.ColorPointInto(b, scratch, in)
		}
	}
}
