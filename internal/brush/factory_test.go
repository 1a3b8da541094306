package brush

import (
	"errors"
	"testing"
)

func TestDefaultFactoryHasStockVariants(t *testing.T) {
	available := Default().Available()
	want := map[string]bool{
		"local://color":       false,
		"local://ramp":        false,
		"local://field-color": false,
		"remote://imagery":    false,
	}
	for _, uri := range available {
		if _, ok := want[uri]; ok {
			want[uri] = true
		}
	}
	for uri, found := range want {
		if !found {
			t.Fatalf("expected %q to be registered in the default factory", uri)
		}
	}
}

func TestCreateUnknownBrush(t *testing.T) {
	f := NewFactory()
	_, err := f.Create("local://nope")
	var unknown *UnknownBrushError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected *UnknownBrushError, got %v", err)
	}
	if !errors.Is(err, ErrUnknownBrush) {
		t.Fatalf("expected errors.Is(err, ErrUnknownBrush) to hold")
	}
}

func TestRegisterDeregister(t *testing.T) {
	f := NewFactory()
	f.Register("local", "color", func(p ParsedURI) (Brush, error) { return NewColor(p) })
	if _, err := f.Create("local://color?field=z"); err != nil {
		t.Fatalf("Create after Register: %v", err)
	}

	f.Deregister("local", "color")
	if _, err := f.Create("local://color?field=z"); err == nil {
		t.Fatalf("expected Create to fail after Deregister")
	}
}

func TestSerializeDeserializeBrushesPreservesNullSlotsAndOrder(t *testing.T) {
	f := Default()
	color, err := f.Create("local://color?field=z")
	if err != nil {
		t.Fatalf("Create color: %v", err)
	}
	ramp, err := f.Create("local://ramp?field=intensity")
	if err != nil {
		t.Fatalf("Create ramp: %v", err)
	}

	brushes := []Brush{color, nil, ramp}
	serialized, err := SerializeBrushes(brushes)
	if err != nil {
		t.Fatalf("SerializeBrushes: %v", err)
	}
	if len(serialized) != 3 || serialized[1] != nil {
		t.Fatalf("expected null slot preserved at index 1, got %+v", serialized)
	}

	restored, err := f.DeserializeBrushes(serialized)
	if err != nil {
		t.Fatalf("DeserializeBrushes: %v", err)
	}
	if len(restored) != 3 || restored[1] != nil {
		t.Fatalf("expected restored null slot at index 1, got %+v", restored)
	}
	if restored[0] == nil || restored[0].URI() != color.URI() {
		t.Fatalf("expected slot 0 to round trip the color brush, got %+v", restored[0])
	}
	if restored[2] == nil || restored[2].URI() != ramp.URI() {
		t.Fatalf("expected slot 2 to round trip the ramp brush, got %+v", restored[2])
	}
}

func TestBeginEndTransferBrushesRoundTrip(t *testing.T) {
	f := Default()
	color, err := f.Create("local://color?field=z")
	if err != nil {
		t.Fatalf("Create color: %v", err)
	}
	brushes := []Brush{color, nil}

	params, _ := BeginTransferBrushes(brushes, MainToWorker)
	if len(params) != 2 || params[1] != nil {
		t.Fatalf("expected a nil params slot at index 1, got %+v", params)
	}

	if err := EndTransferOntoBrushes(brushes, WorkerToMain, params); err != nil {
		t.Fatalf("EndTransferOntoBrushes: %v", err)
	}
}

func TestEndTransferOntoBrushesLengthMismatch(t *testing.T) {
	f := Default()
	color, err := f.Create("local://color?field=z")
	if err != nil {
		t.Fatalf("Create color: %v", err)
	}
	if err := EndTransferOntoBrushes([]Brush{color}, MainToWorker, nil); err == nil {
		t.Fatalf("expected a length-mismatch error")
	}
}
