package kernels

import (
	"gonum.org/v1/gonum/mat"
)

var (
	linear   *Linear
	constant *Constant
	_        Kernel = linear   // Check that Linear respects the Kernel interface.
	_        Kernel = constant // Check that Constant respects the Kernel interface.
)

// Linear kernel :math:`k(x, y) = \sum_d v_d x_d y_d`.
type Linear struct {
	Active
	Variances []float64 // One per active dimension, or a single shared value.
}

func NewLinear(variances ...float64) *Linear {
	return &Linear{
		Variances: variances,
	}
}

func (k *Linear) OnDims(dims ...int) *Linear {
	k.Dims = dims
	return k
}

// Variance of active dimension d.
func (k *Linear) Variance(d int) float64 {
	return param(k.Variances, d)
}

// Weights returns the diagonal matrix V of per-dimension variances.
func (k *Linear) Weights(dim int) *mat.DiagDense {
	v := make([]float64, dim)
	for d := range v {
		v[d] = k.Variance(d)
	}
	return mat.NewDiagDense(dim, v)
}

func (k *Linear) K(x, y mat.Matrix) *mat.Dense {
	x, y = k.Slice(x), k.Slice(y)
	_, dim := x.Dims()
	// K = dot(dot(X, V), Y.T)
	var out mat.Dense
	out.Product(x, k.Weights(dim), y.T())
	return &out
}

func (k *Linear) KSym(x mat.Matrix) *mat.SymDense {
	return symFrom(k.K(x, x))
}

func (k *Linear) KDiag(x mat.Matrix) *mat.VecDense {
	x = k.Slice(x)
	n, dim := x.Dims()
	out := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		val := 0.0
		for d := 0; d < dim; d++ {
			val += k.Variance(d) * x.At(i, d) * x.At(i, d)
		}
		out.SetVec(i, val)
	}
	return out
}

// Constant kernel :math:`k(x, y) = \sigma^2`.
type Constant struct {
	Active
	Variance float64
}

func NewConstant(variance float64) *Constant {
	return &Constant{
		Variance: variance,
	}
}

func (k *Constant) K(x, y mat.Matrix) *mat.Dense {
	n, _ := x.Dims()
	m, _ := y.Dims()
	out := mat.NewDense(n, m, nil)
	out.Apply(func(i, j int, v float64) float64 {
		return k.Variance
	}, out)
	return out
}

func (k *Constant) KSym(x mat.Matrix) *mat.SymDense {
	return symFrom(k.K(x, x))
}

func (k *Constant) KDiag(x mat.Matrix) *mat.VecDense {
	n, _ := x.Dims()
	out := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		out.SetVec(i, k.Variance)
	}
	return out
}
