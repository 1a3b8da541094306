// Package cache implements the point buffer cache (§4.5, C5): the
// tile map, the push/remove/flush lifecycle, neighbor lookup, the
// prepare/dispatch/unprepare pipeline for a freshly pushed tile, and
// impact-set computation that feeds the recolor scheduler (C6).
//
// Grounded on internal/tile/generator.go's control-loop shape (a single
// owner dispatching work to a bounded pool and awaiting results before
// updating shared state) and internal/tile/diskstore.go's single
// exclusive-owner-of-shared-map pattern, generalized from a raster tile
// pyramid to an octree point buffer cache.
package cache

import (
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/hobu/plasio-go/internal/brush"
	"github.com/hobu/plasio-go/internal/colorworker"
	"github.com/hobu/plasio-go/internal/geoproj"
	"github.com/hobu/plasio-go/internal/memguard"
	"github.com/hobu/plasio-go/internal/octree"
	"github.com/hobu/plasio-go/internal/recolor"
	"github.com/hobu/plasio-go/internal/schema"
	"github.com/hobu/plasio-go/internal/stats"
	"github.com/hobu/plasio-go/internal/tile"
	"github.com/hobu/plasio-go/internal/tilelock"
)

// PushParams is the loader-facing payload of push (§6 "Inbound from the
// loader"): one decoded tile plus everything its schema/stats/geo
// context requires.
type PushParams struct {
	Data              []float32
	TotalPoints       int
	Schema            schema.Schema
	TreePath          string
	RenderSpaceBounds [6]float32
	BufferStats       stats.Histogram
	GeoTransform      geoproj.GeoTransform
}

// PushResult is push's return value: the freshly colored output buffer,
// with Update always false (the caller performs the initial upload
// itself, per §4.5 step 11).
type PushResult struct {
	OutputBuffer []float32
	Update       bool
}

// Cache is the point buffer cache (§4.5). One instance is meant to be
// shared by the whole viewer session (§9 "singleton cache" — modeled
// here as an explicit value rather than ambient global state).
type Cache struct {
	mu      sync.Mutex
	tiles   map[string]*tile.Tile
	brushes []brush.Brush

	stats *stats.Accumulator
	pool  *colorworker.Pool
	locks *tilelock.Table

	scheduler *recolor.Scheduler
	guard     *memguard.Guard

	renderRequest func()
}

// Config bundles the collaborators a Cache needs (§4.5 "a reference to
// C3 and C7"). Pool and Locks default to fresh instances when nil, and
// the stats accumulator is always created fresh, so a caller only needs
// to supply RenderRequest and, optionally, a memory guard threshold.
type Config struct {
	Pool          *colorworker.Pool
	Locks         *tilelock.Table
	Workers       int // used to build a default Pool when Pool is nil
	MemoryWarnAt  int64
	RenderRequest func()
}

// New constructs a Cache and its internal C6 recolor scheduler.
func New(cfg Config) *Cache {
	pool := cfg.Pool
	if pool == nil {
		pool = colorworker.New(cfg.Workers)
	}
	locks := cfg.Locks
	if locks == nil {
		locks = tilelock.New()
	}

	c := &Cache{
		tiles:         make(map[string]*tile.Tile),
		stats:         stats.New(),
		pool:          pool,
		locks:         locks,
		guard:         memguard.NewGuard(cfg.MemoryWarnAt),
		renderRequest: cfg.RenderRequest,
	}
	c.scheduler = recolor.New(c, pool, locks, cfg.RenderRequest)
	return c
}

// Lookup implements recolor.Store.
func (c *Cache) Lookup(path string) (*tile.Tile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tiles[path]
	return t, ok
}

// Neighbors implements recolor.Store: the same parent/children lookup
// push uses in its own step 1.
func (c *Cache) Neighbors(path string) (parent *tile.Tile, children [8]*tile.Tile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.neighborsLocked(path)
}

func (c *Cache) neighborsLocked(path string) (parent *tile.Tile, children [8]*tile.Tile) {
	if p, ok := octree.Parent(path); ok {
		parent = c.tiles[p]
	}
	for o := 0; o < 8; o++ {
		children[o] = c.tiles[octree.Child(path, o)]
	}
	return parent, children
}

// GlobalStats implements recolor.Store.
func (c *Cache) GlobalStats() stats.Histogram {
	return c.stats.Snapshot()
}

// Len reports how many tiles are currently cached.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tiles)
}

// Close shuts down the cache's color worker pool, including a Pool that
// was supplied via Config.
func (c *Cache) Close() {
	c.pool.Close()
}

// Push ingests a freshly decoded tile (§4.5 push). brushes is the
// pipeline's current ordered brush list (nil slots are no-op); the same
// slice is retained for later impact-set and recolor work, matching the
// single shared-pipeline model §9 "polymorphic brushes" describes.
func (c *Cache) Push(params PushParams, brushes []brush.Brush) (*PushResult, error) {
	if !octree.Valid(params.TreePath) {
		return nil, fmt.Errorf("cache: invalid tree path %q", params.TreePath)
	}

	c.mu.Lock()
	parent, children := c.neighborsLocked(params.TreePath)
	c.brushes = brushes
	c.stats.Push(params.BufferStats) // step 2: merge stats before prepare
	bp := brush.BufferParams{
		Schema:            params.Schema,
		Stats:             c.stats.Snapshot(),
		TotalPoints:       params.TotalPoints,
		RenderSpaceBounds: params.RenderSpaceBounds,
		GeoTransform:      params.GeoTransform,
	}
	c.mu.Unlock()

	// Step 3: per-brush prepare, in parallel.
	parentStaging, childrenStaging := stagingFor(parent, children, len(brushes))
	runPrepare(brushes, bp, parentStaging, childrenStaging)

	// Step 4: allocate output.
	outputPointSize := 3 + len(brushes)
	outputBuffer := make([]float32, params.TotalPoints*outputPointSize)

	// Steps 5-6: lock, dispatch, await, unlock.
	colorFn := fullColorFunc(params.Schema, brushes)
	c.locks.Lock(params.TreePath)
	resultCh := c.pool.Push(colorworker.Params{
		TotalPoints:     params.TotalPoints,
		InputBuffer:     params.Data,
		OutputBuffer:    outputBuffer,
		OutputPointSize: outputPointSize,
		Color:           colorFn,
	})
	res := <-resultCh
	c.locks.Unlock(params.TreePath)

	inputBuffer := params.Data
	if res.Err == nil {
		inputBuffer = res.InputBuffer
		outputBuffer = res.OutputBuffer
	} else {
		log.Printf("cache: coloring %s failed: %v", params.TreePath, res.Err)
		clear(outputBuffer)
	}
	// §7 WorkerFailed: the tile is still inserted, with a zero-filled
	// output buffer, rather than dropped, so the renderer can show it
	// unpainted instead of hiding it.

	// Step 7: snapshot staging attributes with the same inputs used for prepare.
	staging := make([]any, len(brushes))
	for i, b := range brushes {
		if b == nil {
			continue
		}
		staging[i] = b.StagingAttributes(bp, parentStaging[i], childrenStaging[i])
	}

	// Step 8: per-brush unprepare, in parallel.
	runUnprepare(brushes, bp)

	t := &tile.Tile{
		Path:              params.TreePath,
		InputBuffer:       inputBuffer,
		Schema:            params.Schema,
		BufferStats:       params.BufferStats,
		RenderSpaceBounds: params.RenderSpaceBounds,
		TotalPoints:       params.TotalPoints,
		GeoTransform:      params.GeoTransform,
		OutputBuffer:      outputBuffer,
		OutputPointSize:   outputPointSize,
		StagingAttributes: staging,
	}

	// Step 9: insert.
	c.mu.Lock()
	c.tiles[params.TreePath] = t
	c.guard.Add(memguard.TileBytes(len(inputBuffer), len(outputBuffer)))
	c.mu.Unlock()

	// Step 10: compute impact set and enqueue recolors.
	c.enqueueImpactSet(t, bp, brushes)

	return &PushResult{OutputBuffer: outputBuffer, Update: false}, nil
}

// Remove deletes path from the cache and scrubs any pending recolor for
// it (§4.5 remove, §8 scenario 3).
func (c *Cache) Remove(path string) {
	c.mu.Lock()
	t, ok := c.tiles[path]
	if ok {
		delete(c.tiles, path)
		c.guard.Add(-memguard.TileBytes(len(t.InputBuffer), len(t.OutputBuffer)))
	}
	c.mu.Unlock()
	c.scheduler.Cancel(path)
}

// Flush clears the tile map, the recolor queue, and the pipeline-wide
// stats (§4.5 flush, §8 "flush totality"). In-flight coloring jobs are
// left to complete; internal/recolor checks the tile is still present
// before writing results back.
func (c *Cache) Flush() {
	c.mu.Lock()
	for _, t := range c.tiles {
		c.guard.Add(-memguard.TileBytes(len(t.InputBuffer), len(t.OutputBuffer)))
	}
	c.tiles = make(map[string]*tile.Tile)
	c.mu.Unlock()
	c.scheduler.Clear()
	c.stats.Flush()
}

func (c *Cache) enqueueImpactSet(t *tile.Tile, bp brush.BufferParams, brushes []brush.Brush) {
	impacted := make(map[string]map[int]brush.Brush)
	var order []string // paths in the order their candidates were evaluated

	for i, b := range brushes {
		if b == nil {
			continue
		}
		strategy, strategyParams := b.NodeSelectionStrategy(bp)
		candidates := c.impactCandidates(t.Path, strategy)
		for _, path := range candidates {
			c.mu.Lock()
			other, ok := c.tiles[path]
			c.mu.Unlock()
			if !ok {
				continue
			}

			var otherStaging any
			absent := i >= len(other.StagingAttributes)
			if !absent {
				otherStaging = other.StagingAttributes[i]
			}
			if absent || b.BufferNeedsRecolor(bp, strategyParams, otherStaging) {
				slots, ok := impacted[path]
				if !ok {
					slots = make(map[int]brush.Brush)
					impacted[path] = slots
					order = append(order, path)
				}
				slots[i] = b
			}
		}
	}

	for _, path := range order {
		slots := impacted[path]
		c.mu.Lock()
		other := c.tiles[path]
		c.mu.Unlock()
		if other == nil {
			continue
		}
		c.scheduler.Enqueue(other, slots)
	}
}

// impactCandidates resolves a brush's declared strategy (§4.5 step 10)
// into a concrete, ordered list of other cached paths.
func (c *Cache) impactCandidates(path string, strategy brush.Strategy) []string {
	switch strategy {
	case brush.StrategyNone:
		return nil
	case brush.StrategyAncestors:
		return octree.Ancestors(path)
	case brush.StrategyAll:
		c.mu.Lock()
		paths := make([]string, 0, len(c.tiles))
		for p := range c.tiles {
			if p != path {
				paths = append(paths, p)
			}
		}
		c.mu.Unlock()
		sort.Strings(paths) // lexicographic == depth-first for this key alphabet
		return paths
	default:
		return nil
	}
}

func stagingFor(parent *tile.Tile, children [8]*tile.Tile, numBrushes int) (parentStaging []any, childrenStaging [][8]any) {
	parentStaging = make([]any, numBrushes)
	childrenStaging = make([][8]any, numBrushes)
	for i := 0; i < numBrushes; i++ {
		if parent != nil && i < len(parent.StagingAttributes) {
			parentStaging[i] = parent.StagingAttributes[i]
		}
		for o := 0; o < 8; o++ {
			if children[o] != nil && i < len(children[o].StagingAttributes) {
				childrenStaging[i][o] = children[o].StagingAttributes[i]
			}
		}
	}
	return parentStaging, childrenStaging
}

func runPrepare(brushes []brush.Brush, bp brush.BufferParams, parentStaging []any, childrenStaging [][8]any) {
	var wg sync.WaitGroup
	for i, b := range brushes {
		if b == nil {
			continue
		}
		wg.Add(1)
		go func(i int, b brush.Brush) {
			defer wg.Done()
			b.Prepare(bp, parentStaging[i], childrenStaging[i])
		}(i, b)
	}
	wg.Wait()
}

func runUnprepare(brushes []brush.Brush, bp brush.BufferParams) {
	var wg sync.WaitGroup
	for _, b := range brushes {
		if b == nil {
			continue
		}
		wg.Add(1)
		go func(b brush.Brush) {
			defer wg.Done()
			b.Unprepare(bp)
		}(b)
	}
	wg.Wait()
}

// fullColorFunc builds a fresh tile's per-point coloring closure: x,y,z
// passthrough into the first three output channels, then one packed
// color per brush slot (nil slots leave their channel zero).
func fullColorFunc(sch schema.Schema, brushes []brush.Brush) func(pointIndex int, out, in []float32, stride int) {
	idxX, idxY, idxZ := sch.IndexOf("x"), sch.IndexOf("y"), sch.IndexOf("z")
	scratch := make([]float64, 3)
	return func(_ int, out []float32, in []float32, _ int) {
		if idxX >= 0 && idxX < len(in) {
			out[0] = in[idxX]
		}
		if idxY >= 0 && idxY < len(in) {
			out[1] = in[idxY]
		}
		if idxZ >= 0 && idxZ < len(in) {
			out[2] = in[idxZ]
		}
		for i, b := range brushes {
			if b == nil || 3+i >= len(out) {
				continue
			}
			out[3+i] = brush.ColorPointInto(b, scratch, in)
		}
	}
}
