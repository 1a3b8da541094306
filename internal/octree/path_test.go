package octree

import (
	"reflect"
	"testing"
)

func TestValid(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"R", true},
		{"R0", true},
		{"R121", true},
		{"R8", false},
		{"", false},
		{"X", false},
		{"Rx", false},
	}
	for _, tt := range tests {
		if got := Valid(tt.path); got != tt.want {
			t.Errorf("Valid(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestParent(t *testing.T) {
	if p, ok := Parent("R"); ok {
		t.Errorf("Parent(R) = (%q, %v), want (_, false)", p, ok)
	}
	p, ok := Parent("R12")
	if !ok || p != "R1" {
		t.Errorf("Parent(R12) = (%q, %v), want (R1, true)", p, ok)
	}
}

func TestChildren(t *testing.T) {
	want := [8]string{"R0", "R1", "R2", "R3", "R4", "R5", "R6", "R7"}
	if got := Children("R"); got != want {
		t.Errorf("Children(R) = %v, want %v", got, want)
	}
}

func TestAncestors(t *testing.T) {
	// Scenario 5 from spec.md §8: cache contains R, R1, R12; push R123 with
	// ANCESTORS strategy must evaluate candidates in order R12, R1, R.
	got := Ancestors("R123")
	want := []string{"R12", "R1", "R"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Ancestors(R123) = %v, want %v", got, want)
	}
	if got := Ancestors("R"); got != nil {
		t.Errorf("Ancestors(R) = %v, want nil", got)
	}
}

func TestIsAncestorOf(t *testing.T) {
	if !IsAncestorOf("R1", "R123") {
		t.Error("R1 should be an ancestor of R123")
	}
	if IsAncestorOf("R123", "R1") {
		t.Error("R123 should not be an ancestor of R1")
	}
	if IsAncestorOf("R1", "R1") {
		t.Error("a path is not its own ancestor")
	}
}

func TestSortDepthFirst(t *testing.T) {
	paths := []string{"R1", "R07", "R", "R0", "R12"}
	SortDepthFirst(paths)
	want := []string{"R", "R0", "R07", "R1", "R12"}
	if !reflect.DeepEqual(paths, want) {
		t.Errorf("SortDepthFirst = %v, want %v", paths, want)
	}
}
