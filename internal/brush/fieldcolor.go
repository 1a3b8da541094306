package brush

import (
	"fmt"
	"image/color"
	"net/url"
	"strings"
)

// FieldColor maps a categorical field's integer value onto a fixed
// palette, cycling by modulus. Unlike Ramp it does not depend on the
// field's numeric range, only on how many distinct categories the
// caller's palette covers, so it is never invalidated by new stats —
// its staging is the field's observed cardinality, purely for debug
// visibility, and NodeSelectionStrategy is always NONE.
type FieldColor struct {
	uri     string
	Field   string
	Palette []color.RGBA

	fieldIndex int
	categories int
}

// NewFieldColor constructs local://field-color?field=classification&colors=%23ff0000,%2300ff00
func NewFieldColor(parsed ParsedURI) (*FieldColor, error) {
	field := parsed.Query.Get("field")
	if field == "" {
		return nil, fmt.Errorf("brush: field-color requires field=")
	}
	raw := parsed.Query.Get("colors")
	if raw == "" {
		raw = "#ff0000,#00ff00,#0000ff"
	}
	unescaped, err := url.QueryUnescape(raw)
	if err != nil {
		return nil, fmt.Errorf("brush: invalid colors %q: %w", raw, err)
	}
	parts := strings.Split(unescaped, ",")
	palette := make([]color.RGBA, 0, len(parts))
	for _, p := range parts {
		c, err := parseHexColor(url.QueryEscape(p), color.RGBA{})
		if err != nil {
			return nil, err
		}
		palette = append(palette, c)
	}
	if len(palette) == 0 {
		return nil, fmt.Errorf("brush: field-color requires at least one color")
	}
	return &FieldColor{uri: parsed.String(), Field: field, Palette: palette}, nil
}

func (f *FieldColor) URI() string { return f.uri }

func (f *FieldColor) RequiredSchemaFields() map[string]struct{} {
	return map[string]struct{}{f.Field: {}}
}

type fieldColorPayload struct {
	URI     string
	Field   string
	Palette []color.RGBA
}

func (f *FieldColor) Serialize() (any, error) {
	return fieldColorPayload{URI: f.uri, Field: f.Field, Palette: append([]color.RGBA(nil), f.Palette...)}, nil
}

func (f *FieldColor) Deserialize(payload any) error {
	p, ok := payload.(fieldColorPayload)
	if !ok {
		return fmt.Errorf("brush: field-color deserialize: unexpected payload type %T", payload)
	}
	f.uri, f.Field, f.Palette = p.URI, p.Field, p.Palette
	return nil
}

func (f *FieldColor) BeginTransfer(direction Direction) (any, []any) {
	payload, _ := f.Serialize()
	return payload, nil
}

func (f *FieldColor) EndTransfer(direction Direction, params any) error {
	return f.Deserialize(params)
}

func (f *FieldColor) Prepare(bp BufferParams, parentStaging any, childrenStaging [8]any) error {
	if err := CheckSchema(bp.Schema, f.RequiredSchemaFields()); err != nil {
		f.fieldIndex = -1
		return nil
	}
	f.fieldIndex = bp.Schema.IndexOf(f.Field)
	if buckets, ok := bp.Stats[f.Field]; ok {
		f.categories = len(buckets)
	}
	return nil
}

func (f *FieldColor) Unprepare(bp BufferParams) {}

func (f *FieldColor) StagingAttributes(bp BufferParams, parentStaging any, childrenStaging [8]any) any {
	return f.categories
}

func (f *FieldColor) NodeSelectionStrategy(bp BufferParams) (Strategy, any) {
	return StrategyNone, nil
}

func (f *FieldColor) BufferNeedsRecolor(bp BufferParams, strategyParams any, otherStaging any) bool {
	return false
}

func (f *FieldColor) ColorPoint(out []float64, point []float32) {
	if f.fieldIndex < 0 || f.fieldIndex >= len(point) || len(f.Palette) == 0 {
		out[0], out[1], out[2] = 0, 0, 0
		return
	}
	category := int(point[f.fieldIndex])
	if category < 0 {
		category = -category
	}
	c := f.Palette[category%len(f.Palette)]
	out[0], out[1], out[2] = float64(c.R), float64(c.G), float64(c.B)
}

func (f *FieldColor) RampConfiguration() RampConfig {
	return RampConfig{Selector: RampNone}
}
