// Package stats implements the process-wide per-field histogram (C7):
// a merge function plus the pointCloudBufferStats running total
// described in spec.md §4.7 and §3.
package stats

// Histogram is a per-field bucket-key -> count map, exactly the shape
// push's bufferStats parameter carries per tile (§6).
type Histogram map[string]map[int]int64

// Clone returns a deep copy of h.
func (h Histogram) Clone() Histogram {
	out := make(Histogram, len(h))
	for field, buckets := range h {
		b := make(map[int]int64, len(buckets))
		for k, v := range buckets {
			b[k] = v
		}
		out[field] = b
	}
	return out
}

// Accumulate merges incoming into running, field-wise and bucket-wise by
// addition, and returns running, which it mutates in place (§4.7's merge
// contract). running may be nil, in which case a fresh histogram is
// allocated and returned.
func Accumulate(running, incoming Histogram) Histogram {
	if running == nil {
		running = make(Histogram)
	}
	for field, buckets := range incoming {
		dst, ok := running[field]
		if !ok {
			dst = make(map[int]int64, len(buckets))
			running[field] = dst
		}
		for bucket, count := range buckets {
			dst[bucket] += count
		}
	}
	return running
}

// Equal reports whether two histograms hold identical bucket counts,
// used by tests to check invariant 3 of §3 (pointCloudBufferStats equals
// the bucket-wise sum of all cached tiles' bufferStats).
func Equal(a, b Histogram) bool {
	if len(a) != len(b) {
		return false
	}
	for field, bucketsA := range a {
		bucketsB, ok := b[field]
		if !ok || len(bucketsA) != len(bucketsB) {
			return false
		}
		for k, v := range bucketsA {
			if bucketsB[k] != v {
				return false
			}
		}
	}
	return true
}

// DefaultBucketWidth is the width, in field units, each histogram bucket
// key is assumed to span: a bucket keyed k covers [k, k+DefaultBucketWidth).
// The distilled spec's bucket keys are opaque integers supplied by the
// external loader (§6); it never states their width explicitly, but §8
// scenario 1 works a concrete example (keys 0,10,20,30, "max=30+10=40")
// that only holds together if the bucket width is 10. We fix it as a
// system-wide constant rather than threading a width through every
// bufferStats map, and document the choice as an Open Question
// resolution in DESIGN.md.
const DefaultBucketWidth = 10

// FieldRange returns [min, max) for field: min is the lowest bucket key
// with a nonzero count, max is the upper edge of the highest such
// bucket (bucketWidth per DefaultBucketWidth), per §8 scenario 1's
// "max=30+10=40". ok is false if field has no data, which per §4.1 puts
// a Ramp brush in quiescent "no color" mode.
func FieldRange(h Histogram, field string, bucketWidth int) (min, max float64, ok bool) {
	buckets, present := h[field]
	if !present || len(buckets) == 0 {
		return 0, 0, false
	}
	first := true
	var lo, hi int
	for k, count := range buckets {
		if count <= 0 {
			continue
		}
		if first {
			lo, hi = k, k
			first = false
			continue
		}
		if k < lo {
			lo = k
		}
		if k > hi {
			hi = k
		}
	}
	if first {
		return 0, 0, false
	}
	return float64(lo), float64(hi) + float64(bucketWidth), true
}

// Accumulator merges histograms across pushes into a running
// process-wide total. Unlike Accumulate, which works on a histogram the
// caller owns, Accumulator owns its running state and is the type
// internal/cache holds.
//
// Per spec.md §9's recorded open question, Remove does not have a
// corresponding Subtract: pointCloudBufferStats only shrinks on Flush.
type Accumulator struct {
	running Histogram
}

// New returns an empty Accumulator.
func New() *Accumulator {
	return &Accumulator{running: make(Histogram)}
}

// Push merges incoming into the running total.
func (a *Accumulator) Push(incoming Histogram) {
	a.running = Accumulate(a.running, incoming)
}

// Snapshot returns a deep copy of the current running total, safe for the
// caller to retain or mutate.
func (a *Accumulator) Snapshot() Histogram {
	return a.running.Clone()
}

// Flush clears the running total. This is the only operation that
// shrinks pointCloudBufferStats (§9, §4.5 flush).
func (a *Accumulator) Flush() {
	a.running = make(Histogram)
}

// Range returns the [min,max) range for field, or ok=false if field has
// no data yet — which per §4.1 puts a Ramp brush in quiescent "no color"
// mode.
func (a *Accumulator) Range(field string) (min, max float64, ok bool) {
	return FieldRange(a.running, field, DefaultBucketWidth)
}
