package track

import "math"

// Boxes are axis-aligned and encoded as the low edges followed by the
// high edges: [left, top, right, bottom] for the usual 2D case
// (ndim = 4). The encoding generalises to any even ndim as
// [min_0..min_{k-1}, max_0..max_{k-1}] with k = ndim/2.

// boxArea returns the area of a box, clamping inverted edges to zero
// extent so degenerate boxes have zero area.
func boxArea(box []float64) float64 {
	k := len(box) / 2
	area := 1.0
	for i := 0; i < k; i++ {
		area *= math.Max(0, box[k+i]-box[i])
	}
	return area
}

// boxCost returns the association cost between two boxes:
// 1 - intersection/max(area(a), area(b)). The denominator is the larger
// of the two areas, not the union, so full containment of an
// equal-area box scores 0 and disjoint boxes score 1. Pairs where both
// boxes are degenerate (zero area) score 1.
func boxCost(a, b []float64) float64 {
	k := len(a) / 2

	inter := 1.0
	for i := 0; i < k; i++ {
		lo := math.Max(a[i], b[i])
		hi := math.Min(a[k+i], b[k+i])
		inter *= math.Max(0, hi-lo)
	}

	larger := math.Max(boxArea(a), boxArea(b))
	if larger <= 0 {
		return 1
	}
	return 1 - inter/larger
}
