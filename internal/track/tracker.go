package track

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"gonum.org/v1/gonum/mat"
)

// ErrTrackNotFound is returned by Remove for an unknown identifier.
var ErrTrackNotFound = errors.New("track not found")

// Detection is one detector output for a frame: a category label and a
// box measurement of length NDim.
type Detection struct {
	Label string
	Box   []float64
}

// Tracker assigns persistent identities to per-frame detections. It
// owns the set of live tracks keyed by a strictly increasing identifier
// and a shared FilterModel; each frame it predicts every track forward,
// greedily matches same-label detections by box overlap, updates the
// matched tracks, spawns tracks for unmatched detections, and evicts
// tracks that have gone unmatched for longer than the timeout.
//
// A Tracker is not safe for concurrent use; the driving loop must call
// Update from a single goroutine or serialise access externally.
type Tracker struct {
	cfg    TrackerConfig
	model  *FilterModel
	tracks map[int64]*Track
	nextID int64
}

// NewTracker creates a tracker with the given configuration.
func NewTracker(cfg TrackerConfig) (*Tracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tracker config: %w", err)
	}
	model, err := NewFilterModel(cfg.NDim, cfg.SigmaZ, cfg.SigmaV)
	if err != nil {
		return nil, err
	}
	return &Tracker{
		cfg:    cfg,
		model:  model,
		tracks: make(map[int64]*Track),
	}, nil
}

// Config returns the tracker's configuration.
func (tk *Tracker) Config() TrackerConfig { return tk.cfg }

// Reset drops every live track and restarts identifier assignment.
func (tk *Tracker) Reset() {
	tk.tracks = make(map[int64]*Track)
	tk.nextID = 0
}

// Len returns the number of live tracks.
func (tk *Tracker) Len() int { return len(tk.tracks) }

// Add creates and registers a new track from a first detection,
// returning its identifier.
func (tk *Tracker) Add(label string, t float64, z []float64) int64 {
	id := tk.nextID
	tk.nextID++
	tk.tracks[id] = newTrack(tk.model, tk.cfg.HistoryCapacity, id, label, t, z)
	return id
}

// Get returns a live track by id, or nil if absent.
func (tk *Tracker) Get(id int64) *Track {
	return tk.tracks[id]
}

// Remove detaches and returns a track by id.
func (tk *Tracker) Remove(id int64) (*Track, error) {
	tr, ok := tk.tracks[id]
	if !ok {
		return nil, fmt.Errorf("remove track %d: %w", id, ErrTrackNotFound)
	}
	delete(tk.tracks, id)
	return tr, nil
}

// Tracks returns the live tracks in ascending id order.
func (tk *Tracker) Tracks() []*Track {
	out := make([]*Track, 0, len(tk.tracks))
	for _, id := range tk.sortedIDs() {
		out = append(out, tk.tracks[id])
	}
	return out
}

func (tk *Tracker) sortedIDs() []int64 {
	ids := make([]int64, 0, len(tk.tracks))
	for id := range tk.tracks {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// candidate is a (detection, track) pair whose labels match and whose
// association cost fell below the cutoff.
type candidate struct {
	det  int
	id   int64
	cost float64
}

// Update processes one frame of detections taken at time t. It returns
// one track id per detection, aligned with the input order, and the
// tracks evicted this frame keyed by id (ownership of which passes to
// the caller).
//
// The frame commits all-or-nothing: if any matched track's Kalman
// update fails numerically, the error is returned and the tracker is
// left exactly as it was before the call.
func (tk *Tracker) Update(t float64, detections []Detection) ([]int64, map[int64]*Track, error) {
	for k, det := range detections {
		if len(det.Box) != tk.cfg.NDim {
			return nil, nil, fmt.Errorf("detection %d: measurement must have length %d, got %d", k, tk.cfg.NDim, len(det.Box))
		}
	}

	// Predict every live track to time t, in ascending id order so the
	// candidate list (and therefore tie-breaking) is deterministic for
	// a fixed input. Predictions are read-only and last only this call.
	ids := tk.sortedIDs()
	predicted := make(map[int64][]float64, len(ids))
	for _, id := range ids {
		x1, _ := tk.tracks[id].Predict(t)
		box := make([]float64, tk.cfg.NDim)
		for i := range box {
			box[i] = x1.AtVec(i)
		}
		predicted[id] = box
	}

	// Collect candidate pairs below the cutoff for same-label pairs.
	var cands []candidate
	for k, det := range detections {
		for _, id := range ids {
			if tk.tracks[id].label != det.Label {
				continue
			}
			c := boxCost(det.Box, predicted[id])
			if c < tk.cfg.Cutoff {
				cands = append(cands, candidate{det: k, id: id, cost: c})
			}
		}
	}

	// Greedy minimum-cost-first matching. A stable sort by cost then a
	// single scan skipping already-taken detections and tracks is
	// equivalent to repeatedly taking the global arg-min with
	// first-encountered tie-breaking.
	slices.SortStableFunc(cands, func(a, b candidate) int {
		return cmp.Compare(a.cost, b.cost)
	})
	detTaken := make(map[int]bool)
	trkTaken := make(map[int64]bool)
	var matches []candidate
	for _, c := range cands {
		if detTaken[c.det] || trkTaken[c.id] {
			continue
		}
		detTaken[c.det] = true
		trkTaken[c.id] = true
		matches = append(matches, c)
	}

	// Run every matched Kalman update before mutating anything so a
	// numerical failure leaves the whole frame uncommitted.
	type result struct {
		candidate
		x *mat.VecDense
		p *mat.Dense
	}
	pending := make([]result, 0, len(matches))
	for _, m := range matches {
		tr := tk.tracks[m.id]
		z := detections[m.det].Box
		x2, p2, err := tk.model.Update(tr.x, tr.p, z, t-tr.t)
		if err != nil {
			return nil, nil, fmt.Errorf("update track %d: %w", m.id, err)
		}
		pending = append(pending, result{candidate: m, x: x2, p: p2})
	}

	assigned := make([]int64, len(detections))
	matched := make(map[int]int64, len(pending))
	for _, r := range pending {
		tk.tracks[r.id].commit(t, detections[r.det].Box, r.x, r.p)
		matched[r.det] = r.id
	}

	// Unmatched detections spawn new tracks, in input order.
	for k, det := range detections {
		if id, ok := matched[k]; ok {
			assigned[k] = id
			continue
		}
		assigned[k] = tk.Add(det.Label, t, det.Box)
	}

	// Eviction runs last so a track can still be matched in the frame
	// before it would otherwise time out.
	evicted := make(map[int64]*Track)
	for id, tr := range tk.tracks {
		if t > tr.t+tk.cfg.Timeout {
			evicted[id] = tr
			delete(tk.tracks, id)
		}
	}

	return assigned, evicted, nil
}
