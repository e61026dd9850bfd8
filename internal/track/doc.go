// Package track assigns persistent identities to objects detected
// independently in each frame of a stream.
//
// Responsibilities: constant-velocity Kalman filtering (FilterModel),
// per-object state and bounded history (Track), and the per-frame
// registry loop of prediction, greedy nearest-match association,
// track creation, and timeout eviction (Tracker).
// Key types: FilterModel, Track, Tracker, Detection.
//
// The association cost divides the intersection area by the larger of
// the two box areas rather than the union, and the matcher is a greedy
// minimum-cost-first heuristic rather than an optimal assignment; both
// are load-bearing behaviours, not simplifications to be fixed.
package track
