package brush

import (
	"fmt"
	"image/color"
	"net/url"
	"strconv"

	"github.com/hobu/plasio-go/internal/stats"
)

// rampStaging is the value StagingAttributes returns for a Ramp brush:
// the exact scalef/min/max triple that made it into the last coloring
// pass, so BufferNeedsRecolor can detect drift by plain equality.
type rampStaging struct {
	NoColor bool
	Min     float64
	Max     float64
	ScaleF  float64
}

// Ramp is the stock scalar-field-to-grayscale-ramp brush, concretely
// specified by spec.md §4.1: scalef = 255/(step*(max-min)), h =
// floor(scalef*(v-min))*step, color = (h,h,h). When the histogram range
// is empty it goes quiescent ("no color", paints black, strategy NONE).
type Ramp struct {
	uri   string
	Field string
	Step  int
	Start color.RGBA
	End   color.RGBA

	fieldIndex int
	prepared   rampStaging
}

// NewRamp constructs a Ramp brush from parsed query parameters
// (local://ramp?field=z&step=1&start=%23000000&end=%23ffffff).
func NewRamp(parsed ParsedURI) (*Ramp, error) {
	field := parsed.Query.Get("field")
	if field == "" {
		field = "z"
	}
	if field != "z" && field != "intensity" {
		return nil, fmt.Errorf("brush: ramp field must be z or intensity, got %q", field)
	}

	step := 1
	if s := parsed.Query.Get("step"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("brush: invalid ramp step %q: %w", s, err)
		}
		step = n
	}
	if step <= 0 {
		step = 1
	}

	start, err := parseHexColor(parsed.Query.Get("start"), color.RGBA{0, 0, 0, 255})
	if err != nil {
		return nil, err
	}
	end, err := parseHexColor(parsed.Query.Get("end"), color.RGBA{255, 255, 255, 255})
	if err != nil {
		return nil, err
	}

	return &Ramp{uri: parsed.String(), Field: field, Step: step, Start: start, End: end}, nil
}

func parseHexColor(s string, fallback color.RGBA) (color.RGBA, error) {
	if s == "" {
		return fallback, nil
	}
	unescaped, err := url.QueryUnescape(s)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("brush: invalid color %q: %w", s, err)
	}
	if len(unescaped) != 7 || unescaped[0] != '#' {
		return color.RGBA{}, fmt.Errorf("brush: invalid color %q, want #rrggbb", s)
	}
	v, err := strconv.ParseUint(unescaped[1:], 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("brush: invalid color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8 & 0xFF), B: uint8(v & 0xFF), A: 255}, nil
}

func (r *Ramp) URI() string { return r.uri }

func (r *Ramp) RequiredSchemaFields() map[string]struct{} {
	return map[string]struct{}{r.Field: {}}
}

type rampPayload struct {
	URI   string
	Field string
	Step  int
	Start color.RGBA
	End   color.RGBA
}

func (r *Ramp) Serialize() (any, error) {
	return rampPayload{URI: r.uri, Field: r.Field, Step: r.Step, Start: r.Start, End: r.End}, nil
}

func (r *Ramp) Deserialize(payload any) error {
	p, ok := payload.(rampPayload)
	if !ok {
		return fmt.Errorf("brush: ramp deserialize: unexpected payload type %T", payload)
	}
	r.uri, r.Field, r.Step, r.Start, r.End = p.URI, p.Field, p.Step, p.Start, p.End
	return nil
}

func (r *Ramp) BeginTransfer(direction Direction) (any, []any) {
	payload, _ := r.Serialize()
	return payload, nil // no transferable backing storage for a ramp config
}

func (r *Ramp) EndTransfer(direction Direction, params any) error {
	return r.Deserialize(params)
}

func (r *Ramp) Prepare(bp BufferParams, parentStaging any, childrenStaging [8]any) error {
	if err := CheckSchema(bp.Schema, r.RequiredSchemaFields()); err != nil {
		r.prepared = rampStaging{NoColor: true}
		return nil
	}
	r.fieldIndex = bp.Schema.IndexOf(r.Field)

	min, max, ok := stats.FieldRange(bp.Stats, r.Field, stats.DefaultBucketWidth)
	if !ok || min >= max {
		r.prepared = rampStaging{NoColor: true}
		return nil
	}
	scalef := 255.0 / (float64(r.Step) * (max - min))
	r.prepared = rampStaging{Min: min, Max: max, ScaleF: scalef}
	return nil
}

func (r *Ramp) Unprepare(bp BufferParams) {}

func (r *Ramp) StagingAttributes(bp BufferParams, parentStaging any, childrenStaging [8]any) any {
	return r.prepared
}

func (r *Ramp) NodeSelectionStrategy(bp BufferParams) (Strategy, any) {
	if r.prepared.NoColor {
		return StrategyNone, nil
	}
	return StrategyAll, r.prepared
}

func (r *Ramp) BufferNeedsRecolor(bp BufferParams, strategyParams any, otherStaging any) bool {
	other, ok := otherStaging.(rampStaging)
	if !ok {
		return true
	}
	current, ok := strategyParams.(rampStaging)
	if !ok {
		current = r.prepared
	}
	return other != current
}

func (r *Ramp) ColorPoint(out []float64, point []float32) {
	if r.prepared.NoColor || r.fieldIndex < 0 || r.fieldIndex >= len(point) {
		out[0], out[1], out[2] = 0, 0, 0
		return
	}
	v := float64(point[r.fieldIndex])
	h := float64(int(r.prepared.ScaleF*(v-r.prepared.Min))) * float64(r.Step)
	if h < 0 {
		h = 0
	}
	if h > 255 {
		h = 255
	}
	out[0], out[1], out[2] = h, h, h
}

func (r *Ramp) RampConfiguration() RampConfig {
	if r.prepared.NoColor {
		return RampConfig{Selector: RampNone}
	}
	selector := RampZRange
	if r.Field == "intensity" {
		selector = RampIntensityRange
	}
	return RampConfig{Selector: selector, Start: r.prepared.Min, End: r.prepared.Max}
}
