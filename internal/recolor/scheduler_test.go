package recolor

import (
	"sync"
	"testing"
	"time"

	"github.com/hobu/plasio-go/internal/brush"
	"github.com/hobu/plasio-go/internal/colorworker"
	"github.com/hobu/plasio-go/internal/schema"
	"github.com/hobu/plasio-go/internal/stats"
	"github.com/hobu/plasio-go/internal/tile"
	"github.com/hobu/plasio-go/internal/tilelock"
)

// fakeStore is a minimal in-memory Store for exercising the scheduler
// without pulling in internal/cache.
type fakeStore struct {
	mu    sync.Mutex
	tiles map[string]*tile.Tile
}

func newFakeStore(tiles ...*tile.Tile) *fakeStore {
	s := &fakeStore{tiles: make(map[string]*tile.Tile)}
	for _, t := range tiles {
		s.tiles[t.Path] = t
	}
	return s
}

func (s *fakeStore) Lookup(path string) (*tile.Tile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tiles[path]
	return t, ok
}

func (s *fakeStore) Neighbors(path string) (*tile.Tile, [8]*tile.Tile) {
	return nil, [8]*tile.Tile{}
}

func (s *fakeStore) GlobalStats() stats.Histogram { return nil }

func (s *fakeStore) remove(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tiles, path)
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func newTestTile(path string, numBrushes int) *tile.Tile {
	sch := schema.Schema{{Name: "x", Type: schema.Floating, Size: 4}, {Name: "z", Type: schema.Floating, Size: 4}}
	return &tile.Tile{
		Path:              path,
		Schema:            sch,
		InputBuffer:       []float32{1, 10, 2, 20},
		TotalPoints:       2,
		OutputPointSize:   3 + numBrushes,
		OutputBuffer:      make([]float32, 2*(3+numBrushes)),
		StagingAttributes: make([]any, numBrushes),
	}
}

func TestEnqueueAndDrainRunsRecolor(t *testing.T) {
	tl := newTestTile("R", 1)
	store := newFakeStore(tl)
	pool := colorworker.New(2)
	defer pool.Close()
	locks := tilelock.New()

	var rendered int
	var mu sync.Mutex
	s := New(store, pool, locks, func() { mu.Lock(); rendered++; mu.Unlock() })

	color, err := brush.NewColor(mustParse(t, "local://color?field=z"))
	if err != nil {
		t.Fatalf("NewColor: %v", err)
	}

	s.Enqueue(tl, map[int]brush.Brush{0: color})

	waitUntil(t, func() bool { return tl.Update })

	mu.Lock()
	gotRendered := rendered
	mu.Unlock()
	if gotRendered != 1 {
		t.Fatalf("expected render callback exactly once, got %d", gotRendered)
	}
	if tl.OutputBuffer[3] == 0 {
		t.Fatalf("expected point 0's color channel to be colored from z=10, got 0")
	}
}

func TestEnqueueCoalescesSamePath(t *testing.T) {
	tl := newTestTile("R", 2)
	store := newFakeStore(tl)
	pool := colorworker.New(1)
	defer pool.Close()
	locks := tilelock.New()
	s := New(store, pool, locks, nil)

	color, _ := brush.NewColor(mustParse(t, "local://color?field=z"))
	ramp, _ := brush.NewRamp(mustParse(t, "local://ramp?field=z"))

	s.mu.Lock()
	s.running = true // prevent the driver from racing ahead of both enqueues
	s.mu.Unlock()

	s.Enqueue(tl, map[int]brush.Brush{0: color})
	s.Enqueue(tl, map[int]brush.Brush{1: ramp})

	if s.Len() != 1 {
		t.Fatalf("expected coalesced entry count 1, got %d", s.Len())
	}

	s.mu.Lock()
	e := s.byPath["R"]
	s.mu.Unlock()
	if e == nil || len(e.slots) != 2 {
		t.Fatalf("expected merged entry with 2 slots, got %+v", e)
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	go s.run()
	waitUntil(t, func() bool { return tl.Update })
}

func TestCancelRemovesQueuedEntry(t *testing.T) {
	tl := newTestTile("R", 1)
	store := newFakeStore(tl)
	pool := colorworker.New(1)
	defer pool.Close()
	locks := tilelock.New()
	s := New(store, pool, locks, nil)

	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	color, _ := brush.NewColor(mustParse(t, "local://color?field=z"))
	s.Enqueue(tl, map[int]brush.Brush{0: color})
	if !s.Contains("R") {
		t.Fatalf("expected queue to contain R")
	}

	s.Cancel("R")
	if s.Contains("R") {
		t.Fatalf("expected Cancel to remove the queued entry")
	}
	if s.Len() != 0 {
		t.Fatalf("expected empty queue after cancel, got %d", s.Len())
	}
}

func TestRecolorNodeSkipsRemovedTile(t *testing.T) {
	tl := newTestTile("R", 1)
	store := newFakeStore(tl)
	pool := colorworker.New(1)
	defer pool.Close()
	locks := tilelock.New()
	s := New(store, pool, locks, nil)

	store.remove("R")

	color, _ := brush.NewColor(mustParse(t, "local://color?field=z"))
	s.Enqueue(tl, map[int]brush.Brush{0: color})

	time.Sleep(50 * time.Millisecond)
	if tl.Update {
		t.Fatalf("expected a removed tile's recolor to be skipped")
	}
}

func mustParse(t *testing.T, uri string) brush.ParsedURI {
	t.Helper()
	p, err := brush.ParseURI(uri)
	if err != nil {
		t.Fatalf("ParseURI(%q): %v", uri, err)
	}
	return p
}
