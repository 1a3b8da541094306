// Package imgcache decodes and caches the textures the Imagery brush
// variant samples from. Decoding is the expensive step (format
// detection, pure-Go WebP decode through a WASM runtime), so textures
// are kept by path+format and shared across every tile that references
// the same texture, evicting the least recently loaded entry once the
// cache is full.
//
// Grounded on the teacher's COG tile cache (map + insertion-order
// slice, lock around both), generalized from per-(file,level,col,row)
// COG tiles to whole decoded textures keyed by path.
package imgcache

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"
	"os"
	"sync"

	"github.com/gen2brain/webp"
)

// Texture is a decoded, RGBA-converted image ready for bilinear
// sampling.
type Texture struct {
	Image *image.RGBA
}

type cacheKey struct {
	path   string
	format string
}

// Cache is a bounded store for decoded textures. Entries are evicted in
// the order they were loaded; a cache hit does not refresh an entry's
// position.
type Cache struct {
	mu      sync.Mutex
	entries map[cacheKey]*Texture
	order   []cacheKey
	maxSize int
}

// New creates a texture cache holding at most maxEntries decoded
// images. A non-positive maxEntries falls back to a sensible default,
// matching the teacher's NewTileCache.
func New(maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = 64
	}
	return &Cache{
		entries: make(map[cacheKey]*Texture, maxEntries),
		order:   make([]cacheKey, 0, maxEntries),
		maxSize: maxEntries,
	}
}

// shared is the process-wide cache the Imagery brush variant draws
// from. A brush only needs decode-once-share-everywhere semantics, not
// a caller-supplied cache lifetime, so one package-level instance is
// enough.
var shared = New(64)

// Load decodes the texture at path (png, jpeg, or webp) or returns the
// already-cached copy. format is one of "png", "jpeg"/"jpg", "webp".
func Load(path, format string) (*Texture, error) {
	return shared.Load(path, format)
}

// Load decodes or retrieves a cached texture.
func (c *Cache) Load(path, format string) (*Texture, error) {
	key := cacheKey{path: path, format: format}

	c.mu.Lock()
	if tex, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return tex, nil
	}
	c.mu.Unlock()

	tex, err := decode(path, format)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entries[key]; ok {
		return existing, nil // lost the race to another loader, keep the winner
	}
	for len(c.entries) >= c.maxSize && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.entries[key] = tex
	c.order = append(c.order, key)
	return tex, nil
}

func decode(path, format string) (*Texture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("imgcache: reading %s: %w", path, err)
	}

	var img image.Image
	switch format {
	case "webp":
		img, err = webp.Decode(bytes.NewReader(data))
	case "jpeg", "jpg":
		img, err = jpeg.Decode(bytes.NewReader(data))
	case "png", "":
		img, err = png.Decode(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("imgcache: unsupported format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("imgcache: decoding %s as %s: %w", path, format, err)
	}

	return &Texture{Image: toRGBA(img)}, nil
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)
	return rgba
}
