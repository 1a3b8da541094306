// Package tile defines the cached unit of the point buffer cache (§3's
// "Tile (cached node)"): one octree node's decoded points, its per-brush
// coloring output, and the staging snapshots the recolor scheduler reads
// to decide whether that output has gone stale.
//
// This package used to hold the teacher's raster COG-tile pipeline
// (tiledata.go/resample.go/downsample.go/zoom.go/generator.go); none of
// that survives, since this system caches decoded point buffers, not
// raster image tiles. What's kept is the name and role: the one shared
// leaf type both internal/cache and internal/recolor depend on, without
// either depending on the other.
package tile

import (
	"github.com/hobu/plasio-go/internal/geoproj"
	"github.com/hobu/plasio-go/internal/schema"
	"github.com/hobu/plasio-go/internal/stats"
)

// Tile is one cached octree node (§3). Fields are exported and mutated
// directly by internal/cache and internal/recolor, which are the only
// two packages ever allowed to touch a tile in place. A coloring job
// writes OutputBuffer only while holding that tile path's lock
// (internal/tilelock); the buffer handles, StagingAttributes and Update
// are reassigned after the job returns and the lock is released.
type Tile struct {
	// Path is this tile's tree-path key, e.g. "R121" (§3 "Tree path").
	Path string

	// InputBuffer is the raw decoded point-interleaved buffer, one
	// float32 per schema field per point. Immutable after insert except
	// when a coloring job hands back a new backing slice under
	// transfer semantics (§4.3).
	InputBuffer []float32
	Schema      schema.Schema

	// BufferStats is this tile's own per-field histogram, never the
	// merged pipeline-wide one (that lives in the cache's
	// stats.Accumulator).
	BufferStats       stats.Histogram
	RenderSpaceBounds [6]float32
	TotalPoints       int
	GeoTransform      geoproj.GeoTransform

	// OutputBuffer is float32 length TotalPoints*OutputPointSize, laid
	// out x,y,z,c0,c1,...,c_{k-1} per point (§3).
	OutputBuffer    []float32
	OutputPointSize int

	// StagingAttributes holds one entry per brush slot: whatever prepare
	// computed that bufferNeedsRecolor later compares against. Its key
	// set must always equal exactly {0..numBrushes-1} (§3 invariant 2).
	StagingAttributes []any

	// Update is set true by a completed recolor so the renderer knows to
	// re-upload this tile's OutputBuffer.
	Update bool
}

// NumBrushes returns the pipeline width this tile was colored with.
func (t *Tile) NumBrushes() int {
	return len(t.StagingAttributes)
}
