package cache

import (
	"testing"

	"github.com/hobu/plasio-go/internal/brush"
	"github.com/hobu/plasio-go/internal/schema"
)

func testSchema() schema.Schema {
	return schema.Schema{
		{Name: "x", Type: schema.Floating, Size: 4},
		{Name: "y", Type: schema.Floating, Size: 4},
		{Name: "z", Type: schema.Floating, Size: 4},
	}
}

func mustColorBrush(t *testing.T, uri string) brush.Brush {
	t.Helper()
	b, err := brush.Default().Create(uri)
	if err != nil {
		t.Fatalf("Create(%q): %v", uri, err)
	}
	return b
}

func TestPushColorsWithColorBrush(t *testing.T) {
	c := New(Config{Workers: 2})
	defer c.pool.Close()

	color := mustColorBrush(t, "local://color?field=z")

	params := PushParams{
		Data:              []float32{1, 2, 10, 3, 4, 20},
		TotalPoints:       2,
		Schema:            testSchema(),
		TreePath:          "R",
		RenderSpaceBounds: [6]float32{0, 0, 0, 100, 100, 100},
	}

	res, err := c.Push(params, []brush.Brush{color})
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if res.Update {
		t.Fatalf("expected fresh push Update=false")
	}
	// output point size is 3 (x,y,z) + 1 brush slot.
	if len(res.OutputBuffer) != 2*4 {
		t.Fatalf("expected output buffer len 8, got %d", len(res.OutputBuffer))
	}
	if res.OutputBuffer[0] != 1 || res.OutputBuffer[1] != 2 || res.OutputBuffer[2] != 10 {
		t.Fatalf("expected point 0 coords passed through, got %v", res.OutputBuffer[:3])
	}
	if res.OutputBuffer[3] == 0 {
		t.Fatalf("expected point 0 color channel nonzero for z=10, got 0")
	}

	if c.Len() != 1 {
		t.Fatalf("expected 1 cached tile, got %d", c.Len())
	}
}

func TestPushThenRemoveCancelsRecolor(t *testing.T) {
	c := New(Config{Workers: 1})
	defer c.pool.Close()

	ramp := mustColorBrush(t, "local://ramp?field=z")

	params := PushParams{
		Data:              []float32{1, 2, 10},
		TotalPoints:       1,
		Schema:            testSchema(),
		TreePath:          "R",
		RenderSpaceBounds: [6]float32{0, 0, 0, 100, 100, 100},
		BufferStats:       stats(10),
	}
	if _, err := c.Push(params, []brush.Brush{ramp}); err != nil {
		t.Fatalf("Push: %v", err)
	}

	child := params
	child.TreePath = "R0"
	child.Data = []float32{5, 5, 50}
	child.BufferStats = stats(50)
	if _, err := c.Push(child, []brush.Brush{ramp}); err != nil {
		t.Fatalf("Push child: %v", err)
	}

	// The second push should have widened the ramp's histogram range and
	// queued (or already drained) a recolor against "R", since a
	// StrategyAll brush with a changed staging value recolors every
	// other cached tile. Remove must cancel whatever is still queued.
	c.Remove("R")
	if c.Len() != 1 {
		t.Fatalf("expected 1 tile remaining after remove, got %d", c.Len())
	}
	if c.scheduler.Contains("R") {
		t.Fatalf("expected Remove to cancel any pending recolor for R")
	}
}

func TestFlushClearsTilesAndStats(t *testing.T) {
	c := New(Config{Workers: 1})
	defer c.pool.Close()

	color := mustColorBrush(t, "local://color?field=z")
	params := PushParams{
		Data:        []float32{1, 2, 10},
		TotalPoints: 1,
		Schema:      testSchema(),
		TreePath:    "R",
		BufferStats: stats(10),
	}
	if _, err := c.Push(params, []brush.Brush{color}); err != nil {
		t.Fatalf("Push: %v", err)
	}

	c.Flush()

	if c.Len() != 0 {
		t.Fatalf("expected 0 tiles after flush, got %d", c.Len())
	}
	if len(c.GlobalStats()) != 0 {
		t.Fatalf("expected stats cleared after flush, got %v", c.GlobalStats())
	}
}

func TestNeighborsResolvesParent(t *testing.T) {
	c := New(Config{Workers: 1})
	defer c.pool.Close()

	// None of the stock brushes declares StrategyAncestors, so this test
	// covers the lookup an ancestor impact relies on: after pushing "R",
	// Neighbors("R0") must resolve "R" as the parent and report no
	// cached children.
	parentParams := PushParams{
		Data:        []float32{1, 1, 1},
		TotalPoints: 1,
		Schema:      testSchema(),
		TreePath:    "R",
	}
	color := mustColorBrush(t, "local://color?field=z")
	if _, err := c.Push(parentParams, []brush.Brush{color}); err != nil {
		t.Fatalf("Push parent: %v", err)
	}

	parent, children := c.Neighbors("R0")
	if parent == nil || parent.Path != "R" {
		t.Fatalf("expected Neighbors(\"R0\") to resolve parent R, got %v", parent)
	}
	for _, ch := range children {
		if ch != nil {
			t.Fatalf("expected no cached children of R yet")
		}
	}
}

func TestWorkerFailureStillInsertsTile(t *testing.T) {
	c := New(Config{Workers: 1})
	defer c.pool.Close()

	crashBrush := &crashingBrush{}
	params := PushParams{
		Data:        []float32{1, 2, 10},
		TotalPoints: 1,
		Schema:      testSchema(),
		TreePath:    "R",
	}
	res, err := c.Push(params, []brush.Brush{crashBrush})
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if res == nil {
		t.Fatalf("expected a push result even when the worker crashes")
	}
	if c.Len() != 1 {
		t.Fatalf("expected the tile to still be cached after a worker failure")
	}
}

func stats(z float64) map[string]map[int]int64 {
	return map[string]map[int]int64{
		"z": {int(z) / 10 * 10: 1},
	}
}

// crashingBrush panics during ColorPoint to exercise the worker pool's
// per-job panic isolation (§7 WorkerFailed) from the cache's side.
type crashingBrush struct{}

func (c *crashingBrush) URI() string                               { return "local://crash" }
func (c *crashingBrush) RequiredSchemaFields() map[string]struct{} { return nil }
func (c *crashingBrush) Serialize() (any, error)                   { return nil, nil }
func (c *crashingBrush) Deserialize(payload any) error              { return nil }
func (c *crashingBrush) BeginTransfer(direction brush.Direction) (any, []any)    { return nil, nil }
func (c *crashingBrush) EndTransfer(direction brush.Direction, params any) error { return nil }
func (c *crashingBrush) Prepare(bp brush.BufferParams, parentStaging any, childrenStaging [8]any) error {
	return nil
}
func (c *crashingBrush) Unprepare(bp brush.BufferParams) {}
func (c *crashingBrush) StagingAttributes(bp brush.BufferParams, parentStaging any, childrenStaging [8]any) any {
	return nil
}
func (c *crashingBrush) NodeSelectionStrategy(bp brush.BufferParams) (brush.Strategy, any) {
	return brush.StrategyNone, nil
}
func (c *crashingBrush) BufferNeedsRecolor(bp brush.BufferParams, strategyParams any, otherStaging any) bool {
	return false
}
func (c *crashingBrush) ColorPoint(out []float64, point []float32) {
	panic("simulated worker crash")
}
func (c *crashingBrush) RampConfiguration() brush.RampConfig {
	return brush.RampConfig{Selector: brush.RampNone}
}
