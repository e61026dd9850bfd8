package track

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrSingularInnovation is returned when the Kalman gain solve encounters
// a singular innovation covariance. The update that triggered it commits
// nothing; the caller sees the track exactly as it was before the call.
var ErrSingularInnovation = errors.New("singular innovation covariance")

// FilterModel holds the fixed matrices of a constant-velocity Kalman
// filter over an ndim-dimensional measurement. The state vector is
// length 2*ndim: position components first, velocity components last.
// The model carries no process noise and no control input; covariance
// growth during prediction comes only from propagating the existing
// uncertainty through the transition matrix.
//
// A FilterModel is immutable after construction and is shared read-only
// by every Track created from the same configuration.
type FilterModel struct {
	ndim int
	h    *mat.Dense // measurement matrix [I | 0], ndim x 2*ndim
	r    *mat.Dense // measurement noise diag(sigmaZ^2), ndim x ndim
	p0   *mat.Dense // initial covariance blockdiag(R, diag(sigmaV^2))
}

// NewFilterModel builds a FilterModel for ndim-dimensional measurements.
// sigmaZ is the per-dimension measurement-noise standard deviation and
// sigmaV the per-dimension prior standard deviation on the unobserved
// velocity components; both must have length ndim.
func NewFilterModel(ndim int, sigmaZ, sigmaV []float64) (*FilterModel, error) {
	if ndim <= 0 {
		return nil, fmt.Errorf("ndim must be positive, got %d", ndim)
	}
	if len(sigmaZ) != ndim {
		return nil, fmt.Errorf("sigmaZ must have length %d, got %d", ndim, len(sigmaZ))
	}
	if len(sigmaV) != ndim {
		return nil, fmt.Errorf("sigmaV must have length %d, got %d", ndim, len(sigmaV))
	}

	h := mat.NewDense(ndim, 2*ndim, nil)
	for i := 0; i < ndim; i++ {
		h.Set(i, i, 1)
	}

	r := mat.NewDense(ndim, ndim, nil)
	p0 := mat.NewDense(2*ndim, 2*ndim, nil)
	for i := 0; i < ndim; i++ {
		r.Set(i, i, sigmaZ[i]*sigmaZ[i])
		p0.Set(i, i, sigmaZ[i]*sigmaZ[i])
		p0.Set(ndim+i, ndim+i, sigmaV[i]*sigmaV[i])
	}

	return &FilterModel{ndim: ndim, h: h, r: r, p0: p0}, nil
}

// NDim returns the measurement dimensionality of the model.
func (m *FilterModel) NDim() int { return m.ndim }

// Start initialises a state from a first measurement: position set to z,
// velocity zero, covariance set to the configured initial covariance.
func (m *FilterModel) Start(z []float64) (*mat.VecDense, *mat.Dense) {
	x := mat.NewVecDense(2*m.ndim, nil)
	for i := 0; i < m.ndim; i++ {
		x.SetVec(i, z[i])
	}
	return x, mat.DenseCopyOf(m.p0)
}

// transition builds the constant-velocity state transition matrix
// F = [[I, dt*I], [0, I]] for the given time step.
func (m *FilterModel) transition(dt float64) *mat.Dense {
	f := mat.NewDense(2*m.ndim, 2*m.ndim, nil)
	for i := 0; i < 2*m.ndim; i++ {
		f.Set(i, i, 1)
	}
	for i := 0; i < m.ndim; i++ {
		f.Set(i, m.ndim+i, dt)
	}
	return f
}

// Predict propagates state and covariance forward by dt under the
// constant-velocity model: x' = F*x, P' = F*P*F^T. It is a pure
// function of its inputs; the arguments are not modified.
func (m *FilterModel) Predict(x mat.Vector, p mat.Matrix, dt float64) (*mat.VecDense, *mat.Dense) {
	f := m.transition(dt)

	x1 := mat.NewVecDense(2*m.ndim, nil)
	x1.MulVec(f, x)

	p1 := mat.NewDense(2*m.ndim, 2*m.ndim, nil)
	p1.Product(f, p, f.T())

	return x1, p1
}

// Update runs a predict step over dt followed by a measurement fusion
// with z. The Kalman gain is obtained from a linear solve against the
// innovation covariance S = H*P'*H^T + R rather than an explicit
// inverse; if S is singular the update fails with ErrSingularInnovation
// and neither input is modified.
func (m *FilterModel) Update(x mat.Vector, p mat.Matrix, z []float64, dt float64) (*mat.VecDense, *mat.Dense, error) {
	if len(z) != m.ndim {
		return nil, nil, fmt.Errorf("measurement must have length %d, got %d", m.ndim, len(z))
	}

	x1, p1 := m.Predict(x, p, dt)

	// S = H*P'*H^T + R
	s := mat.NewDense(m.ndim, m.ndim, nil)
	s.Product(m.h, p1, m.h.T())
	s.Add(s, m.r)

	// B = P'*H^T; the gain K satisfies K*S = B, solved transposed as
	// S^T * K^T = B^T since gonum solves on the left.
	b := mat.NewDense(2*m.ndim, m.ndim, nil)
	b.Mul(p1, m.h.T())

	var kt mat.Dense
	if err := kt.Solve(s.T(), b.T()); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrSingularInnovation, err)
	}
	k := kt.T()

	// G = I - K*H
	g := mat.NewDense(2*m.ndim, 2*m.ndim, nil)
	g.Mul(k, m.h)
	g.Scale(-1, g)
	for i := 0; i < 2*m.ndim; i++ {
		g.Set(i, i, g.At(i, i)+1)
	}

	// x'' = G*x' + K*z
	x2 := mat.NewVecDense(2*m.ndim, nil)
	x2.MulVec(g, x1)
	kz := mat.NewVecDense(2*m.ndim, nil)
	kz.MulVec(k, mat.NewVecDense(m.ndim, z))
	x2.AddVec(x2, kz)

	// P'' = G*P'
	p2 := mat.NewDense(2*m.ndim, 2*m.ndim, nil)
	p2.Mul(g, p1)

	return x2, p2, nil
}
