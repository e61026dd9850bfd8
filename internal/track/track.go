package track

import (
	"gonum.org/v1/gonum/mat"
)

// Track is the persistent state of one tracked object: its identity,
// label, the time it was last updated, the current filtered state and
// covariance, and a bounded history of samples. A Track never mutates
// the FilterModel it shares with its siblings, and is only mutated
// through Update (or the Tracker committing a frame on its behalf).
type Track struct {
	id    int64
	label string
	model *FilterModel

	t    float64
	x    *mat.VecDense
	p    *mat.Dense
	hist *history
}

func newTrack(model *FilterModel, capacity int, id int64, label string, t float64, z []float64) *Track {
	x, p := model.Start(z)
	tr := &Track{
		id:    id,
		label: label,
		model: model,
		t:     t,
		x:     x,
		p:     p,
		hist:  newHistory(capacity),
	}
	tr.record(t, z)
	return tr
}

// ID returns the track's identifier, assigned once and never reused.
func (tr *Track) ID() int64 { return tr.id }

// Label returns the detection category this track belongs to.
func (tr *Track) Label() string { return tr.label }

// LastSeen returns the timestamp of the most recent update.
func (tr *Track) LastSeen() float64 { return tr.t }

// State returns copies of the current filtered state and covariance.
func (tr *Track) State() (*mat.VecDense, *mat.Dense) {
	return mat.VecDenseCopyOf(tr.x), mat.DenseCopyOf(tr.p)
}

// Position returns the position components of the current state.
func (tr *Track) Position() []float64 {
	ndim := tr.model.NDim()
	pos := make([]float64, ndim)
	for i := 0; i < ndim; i++ {
		pos[i] = tr.x.AtVec(i)
	}
	return pos
}

// Velocity returns the velocity components of the current state.
func (tr *Track) Velocity() []float64 {
	ndim := tr.model.NDim()
	vel := make([]float64, ndim)
	for i := 0; i < ndim; i++ {
		vel[i] = tr.x.AtVec(ndim + i)
	}
	return vel
}

// Predict returns the state and covariance propagated to time t without
// mutating the track. Used for association-cost computation before any
// match is committed.
func (tr *Track) Predict(t float64) (*mat.VecDense, *mat.Dense) {
	return tr.model.Predict(tr.x, tr.p, t-tr.t)
}

// Update fuses measurement z taken at time t. On a numerical failure
// the track is left unchanged and the error is returned.
func (tr *Track) Update(t float64, z []float64) error {
	x2, p2, err := tr.model.Update(tr.x, tr.p, z, t-tr.t)
	if err != nil {
		return err
	}
	tr.commit(t, z, x2, p2)
	return nil
}

// commit installs an already-computed filter result. Split from Update
// so the Tracker can run every matched update for a frame before
// mutating anything.
func (tr *Track) commit(t float64, z []float64, x *mat.VecDense, p *mat.Dense) {
	tr.t = t
	tr.x = x
	tr.p = p
	tr.record(t, z)
}

func (tr *Track) record(t float64, z []float64) {
	zc := make([]float64, len(z))
	copy(zc, z)
	tr.hist.push(Sample{
		T: t,
		Z: zc,
		X: mat.VecDenseCopyOf(tr.x),
		P: mat.DenseCopyOf(tr.p),
	})
}

// History returns the bounded sample history oldest-first. The returned
// slice is a copy; samples themselves are immutable once recorded.
func (tr *Track) History() []Sample {
	return tr.hist.samples()
}

// NDim returns the measurement dimensionality of the track's model.
func (tr *Track) NDim() int { return tr.model.NDim() }
