package kernels

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/lucasmaystre/gosvgp/utils"
)

// StateSpace is a kernel on a single input (time) with an exact linear SDE
// representation. The state is Markov in time and the function value is the
// measurement vector applied to the state.
type StateSpace interface {
	Kernel

	// Dimension :math:`m` of the state vector.
	StateDim() int

	// Stationary covariance of the state vector, :math:`\mathbf{P}_\infty`.
	StationaryCov() *mat.SymDense

	// Measurement vector :math:`\mathbf{h}`.
	Measurement() *mat.VecDense

	// Transition matrix :math:`\mathbf{A}` for a given time interval.
	Transition(delta float64) *mat.Dense

	// Noise covariance matrix :math:`\mathbf{Q}` for a given time interval.
	NoiseCov(delta float64) *mat.SymDense
}

var (
	_ StateSpace = matern12
	_ StateSpace = matern32
	_ StateSpace = (*Constant)(nil)
	_ StateSpace = (*stateSum)(nil)
)

// AsStateSpace returns the SDE form of k. Sums are supported when every part
// has one; the state is then the concatenation of the parts' states.
func AsStateSpace(k Kernel) (StateSpace, bool) {
	switch k := k.(type) {
	case StateSpace:
		return k, true
	case *Sum:
		parts := make([]StateSpace, len(k.Parts))
		for i, part := range k.Parts {
			ss, ok := AsStateSpace(part)
			if !ok {
				return nil, false
			}
			parts[i] = ss
		}
		s := &stateSum{Sum: k, parts: parts}
		for _, part := range parts {
			s.dim += part.StateDim()
		}
		return s, true
	}
	return nil, false
}

func (k *Matern12) StateDim() int { return 1 }

func (k *Matern12) StationaryCov() *mat.SymDense {
	return mat.NewSymDense(1, []float64{k.Variance})
}

func (k *Matern12) Measurement() *mat.VecDense {
	return mat.NewVecDense(1, []float64{1})
}

func (k *Matern12) Transition(delta float64) *mat.Dense {
	return mat.NewDense(1, 1, []float64{math.Exp(-delta / k.Lengthscale(0))})
}

func (k *Matern12) NoiseCov(delta float64) *mat.SymDense {
	val := k.Variance * (1 - math.Exp(-2*delta/k.Lengthscale(0)))
	return mat.NewSymDense(1, []float64{val})
}

// The Matern 3/2 state is (f, f').
func (k *Matern32) StateDim() int { return 2 }

func (k *Matern32) lambda() float64 {
	return math.Sqrt(3) / k.Lengthscale(0)
}

func (k *Matern32) StationaryCov() *mat.SymDense {
	a := k.lambda()
	return mat.NewSymDense(2, []float64{k.Variance, 0, 0, k.Variance * a * a})
}

func (k *Matern32) Measurement() *mat.VecDense {
	return mat.NewVecDense(2, []float64{1, 0})
}

func (k *Matern32) Transition(delta float64) *mat.Dense {
	d := delta
	a := k.lambda()
	out := mat.NewDense(2, 2, []float64{d*a + 1, d, -d * a * a, 1 - d*a})
	out.Scale(math.Exp(-d*a), out)
	return out
}

func (k *Matern32) NoiseCov(delta float64) *mat.SymDense {
	a := k.lambda()
	da := delta * a
	c := math.Exp(-2 * da)
	off := c * (2 * da * da * a)
	out := mat.NewSymDense(2, []float64{
		1 - c*(2*da*da+2*da+1), off,
		off, a * a * (1 - c*(2*da*da-2*da+1)),
	})
	out.ScaleSym(k.Variance, out)
	return out
}

func (k *Constant) StateDim() int { return 1 }

func (k *Constant) StationaryCov() *mat.SymDense {
	return mat.NewSymDense(1, []float64{k.Variance})
}

func (k *Constant) Measurement() *mat.VecDense {
	return mat.NewVecDense(1, []float64{1})
}

func (k *Constant) Transition(delta float64) *mat.Dense {
	return mat.NewDense(1, 1, []float64{1})
}

func (k *Constant) NoiseCov(delta float64) *mat.SymDense {
	return mat.NewSymDense(1, nil)
}

// stateSum stacks the states of its parts; the matrices are block diagonal.
type stateSum struct {
	*Sum
	parts []StateSpace
	dim   int
}

func (k *stateSum) StateDim() int { return k.dim }

func (k *stateSum) StationaryCov() *mat.SymDense {
	mats := make([]mat.Matrix, len(k.parts))
	for i, part := range k.parts {
		mats[i] = part.StationaryCov()
	}
	return utils.Symmetrize(utils.BlockDiag(k.dim, mats...))
}

func (k *stateSum) Measurement() *mat.VecDense {
	out := mat.NewVecDense(k.dim, nil)
	offset := 0
	for _, part := range k.parts {
		h := part.Measurement()
		for i := 0; i < h.Len(); i++ {
			out.SetVec(offset+i, h.AtVec(i))
		}
		offset += part.StateDim()
	}
	return out
}

func (k *stateSum) Transition(delta float64) *mat.Dense {
	mats := make([]mat.Matrix, len(k.parts))
	for i, part := range k.parts {
		mats[i] = part.Transition(delta)
	}
	return utils.BlockDiag(k.dim, mats...)
}

func (k *stateSum) NoiseCov(delta float64) *mat.SymDense {
	mats := make([]mat.Matrix, len(k.parts))
	for i, part := range k.parts {
		mats[i] = part.NoiseCov(delta)
	}
	return utils.Symmetrize(utils.BlockDiag(k.dim, mats...))
}
