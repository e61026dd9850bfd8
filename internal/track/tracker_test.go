package track

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func testTrackerConfig() TrackerConfig {
	return TrackerConfig{
		NDim:            4,
		SigmaZ:          []float64{0.05, 0.05, 0.05, 0.05},
		SigmaV:          []float64{0.5, 0.5, 0.5, 0.5},
		Timeout:         2.0,
		Cutoff:          0.2,
		HistoryCapacity: 250,
	}
}

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()
	tk, err := NewTracker(testTrackerConfig())
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}
	return tk
}

func mustUpdate(t *testing.T, tk *Tracker, at float64, dets []Detection) ([]int64, map[int64]*Track) {
	t.Helper()
	ids, evicted, err := tk.Update(at, dets)
	if err != nil {
		t.Fatalf("Update(t=%g): %v", at, err)
	}
	return ids, evicted
}

func TestDefaultTrackerConfig(t *testing.T) {
	cfg := DefaultTrackerConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.NDim != 4 || cfg.Cutoff != 0.2 || cfg.Timeout != 2.0 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestNewTrackerRejectsInvalidConfig(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*TrackerConfig)
	}{
		{"zero ndim", func(c *TrackerConfig) { c.NDim = 0; c.SigmaZ = nil; c.SigmaV = nil }},
		{"odd ndim", func(c *TrackerConfig) { c.NDim = 3; c.SigmaZ = c.SigmaZ[:3]; c.SigmaV = c.SigmaV[:3] }},
		{"sigma length mismatch", func(c *TrackerConfig) { c.SigmaZ = c.SigmaZ[:2] }},
		{"negative sigma", func(c *TrackerConfig) { c.SigmaZ[0] = -1 }},
		{"zero timeout", func(c *TrackerConfig) { c.Timeout = 0 }},
		{"cutoff above one", func(c *TrackerConfig) { c.Cutoff = 1.5 }},
		{"zero history", func(c *TrackerConfig) { c.HistoryCapacity = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testTrackerConfig()
			tc.mutate(&cfg)
			if _, err := NewTracker(cfg); err == nil {
				t.Fatal("expected config error, got nil")
			}
		})
	}
}

// TestTrackerLifecycle walks a track through creation, a matched
// update, and timeout eviction.
func TestTrackerLifecycle(t *testing.T) {
	tk := newTestTracker(t)

	ids, evicted := mustUpdate(t, tk, 0, []Detection{{Label: "car", Box: []float64{0, 0, 10, 10}}})
	if diff := cmp.Diff([]int64{0}, ids); diff != "" {
		t.Fatalf("frame 0 ids mismatch (-want +got):\n%s", diff)
	}
	if len(evicted) != 0 {
		t.Fatalf("frame 0 evicted %d tracks, want 0", len(evicted))
	}

	// High overlap at t=1: cost 0.1 < cutoff 0.2, so the detection
	// matches track 0 instead of spawning a new track.
	ids, evicted = mustUpdate(t, tk, 1, []Detection{{Label: "car", Box: []float64{1, 0, 11, 10}}})
	if diff := cmp.Diff([]int64{0}, ids); diff != "" {
		t.Fatalf("frame 1 ids mismatch (-want +got):\n%s", diff)
	}
	if len(evicted) != 0 {
		t.Fatalf("frame 1 evicted %d tracks, want 0", len(evicted))
	}

	// t=4 with no detections: 4 > 1 + 2, so track 0 times out.
	ids, evicted = mustUpdate(t, tk, 4, nil)
	if len(ids) != 0 {
		t.Fatalf("frame 2 ids = %v, want empty", ids)
	}
	tr, ok := evicted[0]
	if !ok {
		t.Fatalf("track 0 not evicted; evicted = %v", evicted)
	}
	if got := len(tr.History()); got != 2 {
		t.Errorf("evicted track history length = %d, want 2", got)
	}
	if tk.Len() != 0 {
		t.Errorf("tracker still holds %d tracks", tk.Len())
	}
}

func TestTrackerMatchableFrameBeforeTimeout(t *testing.T) {
	tk := newTestTracker(t)
	mustUpdate(t, tk, 0, []Detection{{Label: "car", Box: []float64{0, 0, 10, 10}}})

	// At t=2.5 the track is 2.5s stale, past the 2s timeout, but
	// eviction runs after matching: a close detection rescues it.
	ids, evicted := mustUpdate(t, tk, 2.5, []Detection{{Label: "car", Box: []float64{0.5, 0, 10.5, 10}}})
	if diff := cmp.Diff([]int64{0}, ids); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}
	if len(evicted) != 0 {
		t.Fatalf("evicted %d tracks, want 0", len(evicted))
	}
}

func TestTrackerLabelGatesMatching(t *testing.T) {
	tk := newTestTracker(t)
	mustUpdate(t, tk, 0, []Detection{{Label: "car", Box: []float64{0, 0, 10, 10}}})

	// Identical geometry, different label: always a new track.
	ids, _ := mustUpdate(t, tk, 1, []Detection{{Label: "person", Box: []float64{0, 0, 10, 10}}})
	if diff := cmp.Diff([]int64{1}, ids); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}
	if tk.Len() != 2 {
		t.Errorf("tracker holds %d tracks, want 2", tk.Len())
	}
}

func TestTrackerCutoffGatesMatching(t *testing.T) {
	tk := newTestTracker(t)
	mustUpdate(t, tk, 0, []Detection{{Label: "car", Box: []float64{0, 0, 10, 10}}})

	// Overlap of 50% gives cost 0.5, above the 0.2 cutoff.
	ids, _ := mustUpdate(t, tk, 1, []Detection{{Label: "car", Box: []float64{5, 0, 15, 10}}})
	if diff := cmp.Diff([]int64{1}, ids); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}
}

// TestTrackerGreedyTakesGlobalMinimumFirst pins the greedy matcher's
// minimum-cost-first order: the globally cheapest pair wins even when a
// detection earlier in the frame would also accept that track.
func TestTrackerGreedyTakesGlobalMinimumFirst(t *testing.T) {
	tk := newTestTracker(t)
	mustUpdate(t, tk, 0, []Detection{
		{Label: "car", Box: []float64{0, 0, 10, 10}},  // track 0
		{Label: "car", Box: []float64{2, 0, 12, 10}},  // track 1
	})

	// Detection 0's own best match is track 1 (cost 0.05 vs 0.15), but
	// the exact pair (det 1, track 1) has cost 0 and must be taken
	// first, pushing detection 0 to track 0. A per-detection greedy in
	// input order would instead give detection 0 track 1 and spawn a
	// new track for detection 1.
	ids, _ := mustUpdate(t, tk, 1, []Detection{
		{Label: "car", Box: []float64{1.5, 0, 11.5, 10}},
		{Label: "car", Box: []float64{2, 0, 12, 10}},
	})
	if diff := cmp.Diff([]int64{0, 1}, ids); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}
}

func TestTrackerDeterministicAssignments(t *testing.T) {
	frames := []struct {
		t    float64
		dets []Detection
	}{
		{0, []Detection{
			{Label: "car", Box: []float64{0, 0, 10, 10}},
			{Label: "car", Box: []float64{1, 0, 11, 10}},
		}},
		{1, []Detection{
			{Label: "car", Box: []float64{0.5, 0, 10.5, 10}},
			{Label: "car", Box: []float64{1.5, 0, 11.5, 10}},
		}},
		{2, []Detection{
			{Label: "car", Box: []float64{1, 0, 11, 10}},
			{Label: "car", Box: []float64{2, 0, 12, 10}},
		}},
	}

	run := func() [][]int64 {
		tk := newTestTracker(t)
		var out [][]int64
		for _, f := range frames {
			ids, _ := mustUpdate(t, tk, f.t, f.dets)
			out = append(out, ids)
		}
		return out
	}

	first := run()
	for i := 0; i < 10; i++ {
		if diff := cmp.Diff(first, run()); diff != "" {
			t.Fatalf("run %d diverged (-first +got):\n%s", i, diff)
		}
	}
}

func TestTrackerIdentifiersNeverReused(t *testing.T) {
	tk := newTestTracker(t)

	ids, _ := mustUpdate(t, tk, 0, []Detection{{Label: "car", Box: []float64{0, 0, 10, 10}}})
	if ids[0] != 0 {
		t.Fatalf("first id = %d, want 0", ids[0])
	}

	// Let the track time out, then detect in the same place: the new
	// track must get a fresh id.
	mustUpdate(t, tk, 5, nil)
	ids, _ = mustUpdate(t, tk, 6, []Detection{{Label: "car", Box: []float64{0, 0, 10, 10}}})
	if ids[0] != 1 {
		t.Fatalf("post-eviction id = %d, want 1", ids[0])
	}

	// Remove explicitly and detect again: still strictly increasing.
	if _, err := tk.Remove(1); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	ids, _ = mustUpdate(t, tk, 7, []Detection{{Label: "car", Box: []float64{0, 0, 10, 10}}})
	if ids[0] != 2 {
		t.Fatalf("post-removal id = %d, want 2", ids[0])
	}
}

func TestTrackerAddAndRemove(t *testing.T) {
	tk := newTestTracker(t)

	id := tk.Add("car", 0, []float64{0, 0, 10, 10})
	if id != 0 {
		t.Fatalf("Add returned %d, want 0", id)
	}
	if tk.Get(id) == nil {
		t.Fatal("Get returned nil for live track")
	}

	tr, err := tk.Remove(id)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if tr.ID() != id {
		t.Errorf("removed track id = %d, want %d", tr.ID(), id)
	}

	if _, err := tk.Remove(id); !errors.Is(err, ErrTrackNotFound) {
		t.Errorf("second Remove error = %v, want ErrTrackNotFound", err)
	}
	if _, err := tk.Remove(99); !errors.Is(err, ErrTrackNotFound) {
		t.Errorf("Remove(99) error = %v, want ErrTrackNotFound", err)
	}
}

func TestTrackerReset(t *testing.T) {
	tk := newTestTracker(t)
	tk.Add("car", 0, []float64{0, 0, 10, 10})
	tk.Add("car", 0, []float64{20, 0, 30, 10})

	tk.Reset()

	if tk.Len() != 0 {
		t.Fatalf("Len after Reset = %d, want 0", tk.Len())
	}
	if id := tk.Add("car", 1, []float64{0, 0, 10, 10}); id != 0 {
		t.Errorf("id after Reset = %d, want 0", id)
	}
}

// TestTrackerFrameAtomicity forces a numerical failure mid-frame and
// verifies nothing committed: no track mutated, none created, none
// evicted.
func TestTrackerFrameAtomicity(t *testing.T) {
	cfg := testTrackerConfig()
	cfg.SigmaZ = []float64{0, 0, 0, 0} // singular S at dt=0
	tk, err := NewTracker(cfg)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}

	mustUpdate(t, tk, 0, []Detection{{Label: "car", Box: []float64{0, 0, 10, 10}}})

	// Same timestamp again: the match succeeds (cost 0) but the Kalman
	// update hits a singular innovation covariance.
	_, _, err = tk.Update(0, []Detection{
		{Label: "car", Box: []float64{0, 0, 10, 10}},
		{Label: "person", Box: []float64{50, 50, 60, 60}},
	})
	if !errors.Is(err, ErrSingularInnovation) {
		t.Fatalf("Update error = %v, want ErrSingularInnovation", err)
	}

	if tk.Len() != 1 {
		t.Fatalf("tracker holds %d tracks after failed frame, want 1", tk.Len())
	}
	tr := tk.Get(0)
	if tr == nil {
		t.Fatal("track 0 missing after failed frame")
	}
	if len(tr.History()) != 1 || tr.LastSeen() != 0 {
		t.Error("failed frame mutated surviving track")
	}
}

func TestTrackerEvictionTransfersOwnership(t *testing.T) {
	tk := newTestTracker(t)
	mustUpdate(t, tk, 0, []Detection{{Label: "car", Box: []float64{0, 0, 10, 10}}})

	_, evicted := mustUpdate(t, tk, 5, nil)
	if len(evicted) != 1 {
		t.Fatalf("evicted %d tracks, want 1", len(evicted))
	}
	if tk.Get(0) != nil {
		t.Error("tracker still holds evicted track")
	}
	if evicted[0].Label() != "car" {
		t.Errorf("evicted label = %q, want car", evicted[0].Label())
	}
}
