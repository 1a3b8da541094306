package brush

import (
	"fmt"

	"github.com/hobu/plasio-go/internal/brush/imgcache"
	"github.com/hobu/plasio-go/internal/colorenc"
	"github.com/hobu/plasio-go/internal/geoproj"
)

// Imagery is the external-texture-sampler brush variant (§3 "a brush
// exposes the contract"; §13 supplements the concrete treatment the
// distilled spec names but does not flesh out). It decodes a
// geo-referenced texture once (cached by URI in imgcache) and samples it
// bilinearly for each point by projecting the point's render-space x/y
// through the tile's geoTransform into the texture's pixel space.
//
// Imagery never goes stale: once a texture is decoded it does not
// change, so NodeSelectionStrategy is always NONE and StagingAttributes
// is a constant.
type Imagery struct {
	uri    string
	Path   string
	Format string

	idxX, idxY int
	transform  geoproj.GeoTransform
	tex        *imgcache.Texture
}

// NewImagery constructs remote://imagery?path=...&format=png|jpeg|webp
func NewImagery(parsed ParsedURI) (*Imagery, error) {
	path := parsed.Query.Get("path")
	if path == "" {
		return nil, fmt.Errorf("brush: imagery requires path=")
	}
	format := parsed.Query.Get("format")
	if format == "" {
		format = "png"
	}
	return &Imagery{uri: parsed.String(), Path: path, Format: format}, nil
}

func (im *Imagery) URI() string { return im.uri }

func (im *Imagery) RequiredSchemaFields() map[string]struct{} {
	return map[string]struct{}{"x": {}, "y": {}}
}

type imageryPayload struct {
	URI, Path, Format string
}

func (im *Imagery) Serialize() (any, error) {
	return imageryPayload{URI: im.uri, Path: im.Path, Format: im.Format}, nil
}

func (im *Imagery) Deserialize(payload any) error {
	p, ok := payload.(imageryPayload)
	if !ok {
		return fmt.Errorf("brush: imagery deserialize: unexpected payload type %T", payload)
	}
	im.uri, im.Path, im.Format = p.URI, p.Path, p.Format
	return nil
}

func (im *Imagery) BeginTransfer(direction Direction) (any, []any) {
	payload, _ := im.Serialize()
	return payload, nil // the decoded texture itself stays in imgcache, not transferred per-job
}

func (im *Imagery) EndTransfer(direction Direction, params any) error {
	return im.Deserialize(params)
}

func (im *Imagery) Prepare(bp BufferParams, parentStaging any, childrenStaging [8]any) error {
	if err := CheckSchema(bp.Schema, im.RequiredSchemaFields()); err != nil {
		im.tex = nil
		return nil
	}
	im.idxX = bp.Schema.IndexOf("x")
	im.idxY = bp.Schema.IndexOf("y")
	im.transform = bp.GeoTransform

	tex, err := imgcache.Load(im.Path, im.Format)
	if err != nil {
		im.tex = nil // quiescent, matches §4.1: "prepare on an unsuitable ... puts the brush into a quiescent no-color mode"
		return nil
	}
	im.tex = tex
	return nil
}

func (im *Imagery) Unprepare(bp BufferParams) {}

func (im *Imagery) StagingAttributes(bp BufferParams, parentStaging any, childrenStaging [8]any) any {
	return im.Path
}

func (im *Imagery) NodeSelectionStrategy(bp BufferParams) (Strategy, any) {
	return StrategyNone, nil
}

func (im *Imagery) BufferNeedsRecolor(bp BufferParams, strategyParams any, otherStaging any) bool {
	return false
}

func (im *Imagery) ColorPoint(out []float64, point []float32) {
	if im.tex == nil || im.idxX < 0 || im.idxY < 0 {
		out[0], out[1], out[2] = 0, 0, 0
		return
	}
	px, py, ok := im.transform.ImagePixel(float64(point[im.idxX]), float64(point[im.idxY]), im.tex.Image.Bounds().Dx(), im.tex.Image.Bounds().Dy())
	if !ok {
		out[0], out[1], out[2] = 0, 0, 0
		return
	}
	r, g, b, _ := colorenc.SampleBilinear(im.tex.Image, px, py)
	out[0], out[1], out[2] = float64(r), float64(g), float64(b)
}

func (im *Imagery) RampConfiguration() RampConfig {
	return RampConfig{Selector: RampNone}
}
