package brush

import (
	"fmt"
	"sync"
)

// Constructor builds a brush instance from a parsed configuration URI
// (§4.2, C2).
type Constructor func(parsed ParsedURI) (Brush, error)

// Factory is the process-wide brush registry: scheme+name pairs mapped
// to constructors, used to turn a brush URI into a live Brush and to
// batch (de)serialize/transfer whole ordered lists of brushes the way
// the cache and recolor scheduler pass them around.
type Factory struct {
	mu    sync.RWMutex
	ctors map[string]Constructor
}

func registryKey(scheme, name string) string { return scheme + "://" + name }

// NewFactory returns an empty registry.
func NewFactory() *Factory {
	return &Factory{ctors: make(map[string]Constructor)}
}

// defaultFactory is pre-registered with the four stock variants (§4.1),
// mirroring how a real deployment's brush module self-registers at
// import time.
var defaultFactory = func() *Factory {
	f := NewFactory()
	f.Register("local", "color", func(p ParsedURI) (Brush, error) { return NewColor(p) })
	f.Register("local", "ramp", func(p ParsedURI) (Brush, error) { return NewRamp(p) })
	f.Register("local", "field-color", func(p ParsedURI) (Brush, error) { return NewFieldColor(p) })
	f.Register("remote", "imagery", func(p ParsedURI) (Brush, error) { return NewImagery(p) })
	return f
}()

// Default returns the process-wide factory pre-registered with the
// stock brush variants.
func Default() *Factory { return defaultFactory }

// Register adds or replaces the constructor for scheme://name.
func (f *Factory) Register(scheme, name string, ctor Constructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ctors[registryKey(scheme, name)] = ctor
}

// Deregister removes scheme://name from the registry, if present.
func (f *Factory) Deregister(scheme, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.ctors, registryKey(scheme, name))
}

// Available lists every registered scheme://name pair.
func (f *Factory) Available() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, 0, len(f.ctors))
	for k := range f.ctors {
		out = append(out, k)
	}
	return out
}

// Create parses uri and constructs the named brush, or returns
// *UnknownBrushError if no constructor is registered for its scheme+name.
func (f *Factory) Create(uri string) (Brush, error) {
	parsed, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	f.mu.RLock()
	ctor, ok := f.ctors[registryKey(parsed.Scheme, parsed.Name)]
	f.mu.RUnlock()
	if !ok {
		return nil, &UnknownBrushError{URI: uri}
	}
	return ctor(parsed)
}

// SerializedBrush is one slot of a serialized brush list: Payload is
// nil for a null slot (§4.2 batch helpers preserve null slots and
// ordering so a brush list's positions stay meaningful across a
// transfer).
type SerializedBrush struct {
	URI     string
	Payload any
}

// SerializeBrushes serializes an ordered list of brushes, preserving
// nil slots.
func SerializeBrushes(brushes []Brush) ([]*SerializedBrush, error) {
	out := make([]*SerializedBrush, len(brushes))
	for i, b := range brushes {
		if b == nil {
			continue
		}
		payload, err := b.Serialize()
		if err != nil {
			return nil, fmt.Errorf("brush: serializing slot %d (%s): %w", i, b.URI(), err)
		}
		out[i] = &SerializedBrush{URI: b.URI(), Payload: payload}
	}
	return out, nil
}

// DeserializeBrushes reconstructs an ordered brush list from its
// serialized form using f's registry, preserving nil slots.
func (f *Factory) DeserializeBrushes(serialized []*SerializedBrush) ([]Brush, error) {
	out := make([]Brush, len(serialized))
	for i, s := range serialized {
		if s == nil {
			continue
		}
		b, err := f.Create(s.URI)
		if err != nil {
			return nil, err
		}
		if err := b.Deserialize(s.Payload); err != nil {
			return nil, fmt.Errorf("brush: deserializing slot %d (%s): %w", i, s.URI, err)
		}
		out[i] = b
	}
	return out, nil
}

// BeginTransferBrushes packages a whole brush list into one
// worker-bound record: one params slot (nil for null brushes) and the
// concatenation of every brush's own transfer list, in order.
func BeginTransferBrushes(brushes []Brush, direction Direction) (params []any, transferList []any) {
	params = make([]any, len(brushes))
	for i, b := range brushes {
		if b == nil {
			continue
		}
		p, tl := b.BeginTransfer(direction)
		params[i] = p
		transferList = append(transferList, tl...)
	}
	return params, transferList
}

// EndTransferOntoBrushes applies a BeginTransferBrushes params slice back
// onto an existing brush list (e.g. on the worker side, after
// reconstructing brushes via DeserializeBrushes).
func EndTransferOntoBrushes(brushes []Brush, direction Direction, params []any) error {
	if len(params) != len(brushes) {
		return fmt.Errorf("brush: endTransfer: %d brushes but %d params", len(brushes), len(params))
	}
	for i, b := range brushes {
		if b == nil {
			continue
		}
		if err := b.EndTransfer(direction, params[i]); err != nil {
			return fmt.Errorf("brush: endTransfer slot %d (%s): %w", i, b.URI(), err)
		}
	}
	return nil
}
