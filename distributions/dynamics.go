package distributions

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/lucasmaystre/gosvgp/kernels"
	"github.com/lucasmaystre/gosvgp/utils"
)

// ErrNotChronological is returned when times are not strictly increasing.
var ErrNotChronological = errors.New("times are not in chronological order")

// NewMarkovGaussianFromDynamics builds the marginals of the linear-Gaussian
// chain x_{n+1} = A_n x_n + w_n, w_n ~ N(0, Q_n), started at N(m0, P0).
// The chain has len(a)+1 steps.
func NewMarkovGaussianFromDynamics(m0 *mat.VecDense, p0 mat.Symmetric,
	a []*mat.Dense, q []mat.Symmetric) (*MarkovGaussian, error) {
	d := m0.Len()
	if p0.SymmetricDim() != d {
		return nil, utils.Shapef("dynamics: initial covariance is %dx%d, want %dx%d",
			p0.SymmetricDim(), p0.SymmetricDim(), d, d)
	}
	if len(a) != len(q) {
		return nil, utils.Shapef("dynamics: %d transitions, %d noise covariances", len(a), len(q))
	}
	for i := range a {
		if r, c := a[i].Dims(); r != d || c != d {
			return nil, utils.Shapef("dynamics: transition %d is %dx%d, want %dx%d", i, r, c, d, d)
		}
		if q[i].SymmetricDim() != d {
			return nil, utils.Shapef("dynamics: noise covariance %d has dimension %d, want %d",
				i, q[i].SymmetricDim(), d)
		}
	}
	t := len(a) + 1
	mu := mat.NewDense(t, d, nil)
	cov := make([]*mat.SymDense, t)
	cross := make([]*mat.Dense, t-1)

	mu.SetRow(0, m0.RawVector().Data)
	cov[0] = mat.NewSymDense(d, nil)
	cov[0].CopySym(p0)

	var m_p mat.VecDense
	var P_p mat.Dense
	// Forward pass (prediction only).
	for i := 1; i < t; i++ {
		A := a[i-1]
		m_p.MulVec(A, mu.RowView(i-1))
		mu.SetRow(i, m_p.RawVector().Data)
		// P_p = A P A^T + Q
		P_p.Product(A, cov[i-1], A.T())
		P_p.Add(&P_p, q[i-1])
		cov[i] = utils.Symmetrize(&P_p)
		// Cov(x_{i-1}, x_i) = P_{i-1} A^T
		cross[i-1] = mat.NewDense(d, d, nil)
		cross[i-1].Mul(cov[i-1], A.T())
	}
	return NewMarkovGaussian(mu, cov, cross)
}

// NewMarkovGaussianFromKernel returns the prior over the SDE state of k at the
// given times, started at the stationary distribution.
func NewMarkovGaussianFromKernel(k kernels.StateSpace, times []float64) (*MarkovGaussian, error) {
	if len(times) < 2 {
		return nil, utils.Shapef("dynamics: need at least 2 times, got %d", len(times))
	}
	a := make([]*mat.Dense, len(times)-1)
	q := make([]mat.Symmetric, len(times)-1)
	for i := 1; i < len(times); i++ {
		delta := times[i] - times[i-1]
		if delta <= 0 {
			return nil, fmt.Errorf("time %g follows %g: %w", times[i], times[i-1], ErrNotChronological)
		}
		a[i-1] = k.Transition(delta)
		q[i-1] = k.NoiseCov(delta)
	}
	m0 := mat.NewVecDense(k.StateDim(), nil)
	return NewMarkovGaussianFromDynamics(m0, k.StationaryCov(), a, q)
}
