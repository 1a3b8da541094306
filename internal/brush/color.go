package brush

import (
	"fmt"
)

// Color is the simplest brush variant: copies fields straight into RGB
// (clamped to [0,255]) with no stats-dependent preparation, so it never
// goes stale and never invalidates other tiles. A channel with no field
// named is painted 0; Constant is carried through serialization but is
// not used when coloring.
type Color struct {
	uri      string
	FieldR   string
	FieldG   string
	FieldB   string
	Constant [3]float64
	hasField bool
	idxR     int
	idxG     int
	idxB     int
}

// NewColor constructs a Color brush from local://color?r=f&g=f&b=f, or
// local://color?field=f to replicate one scalar field across all three
// channels (e.g. passthrough grayscale intensity).
func NewColor(parsed ParsedURI) (*Color, error) {
	c := &Color{uri: parsed.String()}
	if field := parsed.Query.Get("field"); field != "" {
		c.FieldR, c.FieldG, c.FieldB = field, field, field
		c.hasField = true
		return c, nil
	}
	r, g, b := parsed.Query.Get("r"), parsed.Query.Get("g"), parsed.Query.Get("b")
	if r == "" && g == "" && b == "" {
		return nil, fmt.Errorf("brush: color requires field= or r=/g=/b=")
	}
	c.FieldR, c.FieldG, c.FieldB = r, g, b
	c.hasField = true
	return c, nil
}

func (c *Color) URI() string { return c.uri }

func (c *Color) RequiredSchemaFields() map[string]struct{} {
	req := map[string]struct{}{}
	for _, f := range []string{c.FieldR, c.FieldG, c.FieldB} {
		if f != "" {
			req[f] = struct{}{}
		}
	}
	return req
}

type colorPayload struct {
	URI                    string
	FieldR, FieldG, FieldB string
	Constant               [3]float64
}

func (c *Color) Serialize() (any, error) {
	return colorPayload{URI: c.uri, FieldR: c.FieldR, FieldG: c.FieldG, FieldB: c.FieldB, Constant: c.Constant}, nil
}

func (c *Color) Deserialize(payload any) error {
	p, ok := payload.(colorPayload)
	if !ok {
		return fmt.Errorf("brush: color deserialize: unexpected payload type %T", payload)
	}
	c.uri, c.FieldR, c.FieldG, c.FieldB, c.Constant = p.URI, p.FieldR, p.FieldG, p.FieldB, p.Constant
	c.hasField = c.FieldR != "" || c.FieldG != "" || c.FieldB != ""
	return nil
}

func (c *Color) BeginTransfer(direction Direction) (any, []any) {
	payload, _ := c.Serialize()
	return payload, nil
}

func (c *Color) EndTransfer(direction Direction, params any) error {
	return c.Deserialize(params)
}

func (c *Color) Prepare(bp BufferParams, parentStaging any, childrenStaging [8]any) error {
	c.idxR, c.idxG, c.idxB = -1, -1, -1
	if c.FieldR != "" {
		c.idxR = bp.Schema.IndexOf(c.FieldR)
	}
	if c.FieldG != "" {
		c.idxG = bp.Schema.IndexOf(c.FieldG)
	}
	if c.FieldB != "" {
		c.idxB = bp.Schema.IndexOf(c.FieldB)
	}
	return nil
}

func (c *Color) Unprepare(bp BufferParams) {}

// StagingAttributes is a constant value: a Color brush's output never
// depends on running stats, so there is nothing that can go stale.
func (c *Color) StagingAttributes(bp BufferParams, parentStaging any, childrenStaging [8]any) any {
	return struct{}{}
}

func (c *Color) NodeSelectionStrategy(bp BufferParams) (Strategy, any) {
	return StrategyNone, nil
}

func (c *Color) BufferNeedsRecolor(bp BufferParams, strategyParams any, otherStaging any) bool {
	return false
}

func (c *Color) ColorPoint(out []float64, point []float32) {
	read := func(idx int) float64 {
		if idx < 0 || idx >= len(point) {
			return 0
		}
		v := float64(point[idx])
		if v < 0 {
			v = 0
		}
		if v > 255 {
			v = 255
		}
		return v
	}
	out[0] = read(c.idxR)
	out[1] = read(c.idxG)
	out[2] = read(c.idxB)
}

func (c *Color) RampConfiguration() RampConfig {
	return RampConfig{Selector: RampNone}
}
