// Package brush implements the pluggable per-point coloring pipeline
// (§4.1, C1) and its factory/registry (§4.2, C2).
//
// A brush is a polymorphic variant — Color, Ramp, FieldColor, Imagery —
// all satisfying the single Brush contract below. Go has no tagged-union
// "variant" construct, so each kind is its own struct implementing the
// interface, the same "replace runtime dispatch with an interface table"
// translation spec.md §9 calls out explicitly.
package brush

import (
	"errors"
	"fmt"

	"github.com/hobu/plasio-go/internal/geoproj"
	"github.com/hobu/plasio-go/internal/schema"
	"github.com/hobu/plasio-go/internal/stats"
)

// Direction names which side of the worker boundary a transfer is
// moving toward (§4.1 beginTransfer/endTransfer). Per spec.md §9's
// recorded open question, no brush actually differentiates between the
// two directions today; the parameter is kept for future asymmetric
// brushes.
type Direction int

const (
	MainToWorker Direction = iota
	WorkerToMain
)

// Strategy is a brush's declaration of which other cached tiles a newly
// inserted tile may invalidate (§4.1 nodeSelectionStrategy).
type Strategy int

const (
	StrategyNone Strategy = iota
	StrategyAncestors
	StrategyAll
)

func (s Strategy) String() string {
	switch s {
	case StrategyNone:
		return "NONE"
	case StrategyAncestors:
		return "ANCESTORS"
	case StrategyAll:
		return "ALL"
	default:
		return "UNKNOWN"
	}
}

// RampSelector names which GPU color-ramp uniform a brush contributes to
// (§4.1 rampConfiguration).
type RampSelector int

const (
	RampNone RampSelector = iota
	RampZRange
	RampIntensityRange
)

// RampConfig is the result of Brush.RampConfiguration.
type RampConfig struct {
	Selector   RampSelector
	Start, End float64
}

// BufferParams is the per-tile context handed to a brush's
// prepare/colorPoint/stagingAttributes/nodeSelectionStrategy calls: the
// tile's schema, the process-wide running stats (already merged with
// this tile's own bufferStats, per §4.5 step 2), its point count,
// render-space bounds, and the opaque geo transform (§6).
type BufferParams struct {
	Schema            schema.Schema
	Stats             stats.Histogram
	TotalPoints       int
	RenderSpaceBounds [6]float32
	GeoTransform      geoproj.GeoTransform
}

// Brush is the single contract every coloring variant implements (§4.1).
type Brush interface {
	// RequiredSchemaFields names the fields this brush needs present in
	// a tile's schema to be usable.
	RequiredSchemaFields() map[string]struct{}

	// Serialize returns an opaque value-copy payload that must round
	// trip through Deserialize (§8 "idempotent serialize" law).
	Serialize() (any, error)
	Deserialize(payload any) error

	// BeginTransfer prepares this brush for a cross-thread (here:
	// cross-goroutine) dispatch: params is a value copy, transferList
	// enumerates backing storages moved rather than copied.
	BeginTransfer(direction Direction) (params any, transferList []any)
	EndTransfer(direction Direction, params any) error

	// Prepare computes per-tile coloring parameters from aggregate
	// stats, parent, and children staging. Must be paired with
	// Unprepare. childrenStaging holds one entry per octant (nil where
	// absent).
	Prepare(bp BufferParams, parentStaging any, childrenStaging [8]any) error
	Unprepare(bp BufferParams)

	// StagingAttributes snapshots the prepare-computed state so a later
	// bufferNeedsRecolor call can detect drift. Must compare correctly
	// with reflect.DeepEqual / ==.
	StagingAttributes(bp BufferParams, parentStaging any, childrenStaging [8]any) any

	// NodeSelectionStrategy declares which other cached tiles this
	// insert may invalidate.
	NodeSelectionStrategy(bp BufferParams) (Strategy, any)

	// BufferNeedsRecolor is a predicate on another tile's cached
	// staging attributes: true means that tile must be re-queued.
	BufferNeedsRecolor(bp BufferParams, strategyParams any, otherStaging any) bool

	// ColorPoint writes an RGB triple (each in [0,255]) for one point.
	// point is that point's full interleaved field row.
	ColorPoint(colorOut []float64, point []float32)

	// RampConfiguration selects this brush's GPU color-ramp uniform
	// contribution, if any.
	RampConfiguration() RampConfig

	// URI returns the brush's canonical configuration URI, used in the
	// factory's error messages and recorded by SerializeBrushes so
	// DeserializeBrushes can reconstruct the brush.
	URI() string
}

// Sentinel error kinds (§7 taxonomy). Wrap with fmt.Errorf("...: %w", ...)
// so callers can errors.Is/As against these.
var (
	// ErrUnknownBrush is returned when a URI names an unregistered
	// (scheme,name) pair.
	ErrUnknownBrush = errors.New("brush: unknown brush")
	// ErrSchemaMismatch is returned when a tile's schema is missing a
	// field a brush requires.
	ErrSchemaMismatch = errors.New("brush: schema mismatch")
)

// UnknownBrushError wraps ErrUnknownBrush with the offending URI.
type UnknownBrushError struct{ URI string }

func (e *UnknownBrushError) Error() string { return fmt.Sprintf("brush: unknown brush %q", e.URI) }
func (e *UnknownBrushError) Unwrap() error { return ErrUnknownBrush }

// SchemaMismatchError wraps ErrSchemaMismatch with the offending field.
type SchemaMismatchError struct{ Field string }

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("brush: schema missing required field %q", e.Field)
}
func (e *SchemaMismatchError) Unwrap() error { return ErrSchemaMismatch }

// CheckSchema is a helper the Ramp, FieldColor and Imagery Prepare
// methods use to validate their required fields are present, returning a *SchemaMismatchError (not
// failing prepare outright — per §4.1, the brush instead goes quiescent)
// if not.
func CheckSchema(s schema.Schema, required map[string]struct{}) error {
	missing, ok := s.HasAll(required)
	if !ok {
		return &SchemaMismatchError{Field: missing}
	}
	return nil
}
