// Package octree implements arithmetic over tree-path keys of the form
// "R121": R is the root, each appended digit 0-7 names a child octant.
package octree

import (
	"fmt"
	"sort"
	"strings"
)

// Root is the path of the tree's root node.
const Root = "R"

// Valid reports whether path is a well-formed tree path over the alphabet
// {R,0..7}: it must start with 'R' and every following byte must be a
// digit 0-7.
func Valid(path string) bool {
	if len(path) == 0 || path[0] != 'R' {
		return false
	}
	for i := 1; i < len(path); i++ {
		if path[i] < '0' || path[i] > '7' {
			return false
		}
	}
	return true
}

// Depth returns the number of octant digits in path (0 for "R").
func Depth(path string) int {
	return len(path) - 1
}

// Parent returns the path's parent and true, or ("", false) if path is the
// root (the root has no parent).
func Parent(path string) (string, bool) {
	if path == Root || len(path) <= 1 {
		return "", false
	}
	return path[:len(path)-1], true
}

// Child returns the path of the octant-th child of path. octant must be in
// [0,7]; Child panics otherwise, matching the closed alphabet invariant.
func Child(path string, octant int) string {
	if octant < 0 || octant > 7 {
		panic(fmt.Sprintf("octree: invalid octant %d", octant))
	}
	return path + string(rune('0'+octant))
}

// Children returns the 8 possible child paths of path, in octant order.
func Children(path string) [8]string {
	var out [8]string
	for i := 0; i < 8; i++ {
		out[i] = Child(path, i)
	}
	return out
}

// Ancestors returns the chain path[..-1], path[..-2], ..., "R" — the root
// included, the path itself excluded — in order from nearest to farthest,
// matching §4.5 step 10's ANCESTORS impact-set strategy.
func Ancestors(path string) []string {
	if path == Root {
		return nil
	}
	out := make([]string, 0, len(path)-1)
	for p := path; ; {
		parent, ok := Parent(p)
		if !ok {
			break
		}
		out = append(out, parent)
		p = parent
	}
	return out
}

// IsAncestorOf reports whether ancestor is a strict prefix of path.
func IsAncestorOf(ancestor, path string) bool {
	return len(ancestor) < len(path) && strings.HasPrefix(path, ancestor)
}

// SortDepthFirst sorts paths lexicographically, which for the {R,0..7}
// alphabet is exactly depth-first pre-order traversal: "R" sorts before
// "R0", "R0" before "R00"..."R07", "R07" before "R1", and so on.
//
// This mirrors internal/coord/hilbert.go's approach of precomputing a
// sortable key once and running a single sort.Sort pass rather than
// comparing paths character-by-character inside the comparator on every
// call — here the "key" is the path string itself, so no precompute step
// is needed, but the shape (a small sort.Interface type) is kept the same.
func SortDepthFirst(paths []string) {
	sort.Sort(byDepthFirst(paths))
}

type byDepthFirst []string

func (s byDepthFirst) Len() int           { return len(s) }
func (s byDepthFirst) Less(i, j int) bool { return s[i] < s[j] }
func (s byDepthFirst) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }
