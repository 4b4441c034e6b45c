package kernels

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	rbf      *RBF
	matern12 *Matern12
	matern32 *Matern32
	_        Kernel = rbf      // Check that RBF respects the Kernel interface.
	_        Kernel = matern12 // Check that Matern12 respects the Kernel interface.
	_        Kernel = matern32 // Check that Matern32 respects the Kernel interface.
)

// Stationary holds the parameters shared by kernels that depend on the
// lengthscale-scaled distance between points.
type Stationary struct {
	Active
	Variance     float64
	Lengthscales []float64 // One per active dimension, a single shared value, or none for 1.
}

// Lengthscale of active dimension d.
func (k *Stationary) Lengthscale(d int) float64 {
	return param(k.Lengthscales, d)
}

// Squared scaled distances :math:`r^2_{ij} = \sum_d (x_{id} - y_{jd})^2 / \ell_d^2`.
func (k *Stationary) scaledSqDist(x, y mat.Matrix) *mat.Dense {
	x, y = k.Slice(x), k.Slice(y)
	n, dim := x.Dims()
	m, _ := y.Dims()
	out := mat.NewDense(n, m, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			r2 := 0.0
			for d := 0; d < dim; d++ {
				diff := (x.At(i, d) - y.At(j, d)) / k.Lengthscale(d)
				r2 += diff * diff
			}
			out.Set(i, j, r2)
		}
	}
	return out
}

func (k *Stationary) kdiag(x mat.Matrix) *mat.VecDense {
	n, _ := x.Dims()
	out := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		out.SetVec(i, k.Variance)
	}
	return out
}

// Squared-exponential kernel :math:`\sigma^2 \exp(-r^2 / 2)`.
type RBF struct {
	Stationary
}

func NewRBF(variance float64, lengthscales ...float64) *RBF {
	return &RBF{
		Stationary: Stationary{
			Variance:     variance,
			Lengthscales: lengthscales,
		},
	}
}

// OnDims restricts the kernel to the given input columns.
func (k *RBF) OnDims(dims ...int) *RBF {
	k.Dims = dims
	return k
}

func (k *RBF) K(x, y mat.Matrix) *mat.Dense {
	out := k.scaledSqDist(x, y)
	out.Apply(func(i, j int, r2 float64) float64 {
		return k.Variance * math.Exp(-0.5*r2)
	}, out)
	return out
}

func (k *RBF) KSym(x mat.Matrix) *mat.SymDense {
	return symFrom(k.K(x, x))
}

func (k *RBF) KDiag(x mat.Matrix) *mat.VecDense {
	return k.kdiag(x)
}

// Matern 1/2 (exponential) kernel :math:`\sigma^2 \exp(-r)`.
type Matern12 struct {
	Stationary
}

func NewMatern12(variance float64, lengthscales ...float64) *Matern12 {
	return &Matern12{
		Stationary: Stationary{
			Variance:     variance,
			Lengthscales: lengthscales,
		},
	}
}

func (k *Matern12) OnDims(dims ...int) *Matern12 {
	k.Dims = dims
	return k
}

func (k *Matern12) K(x, y mat.Matrix) *mat.Dense {
	out := k.scaledSqDist(x, y)
	out.Apply(func(i, j int, r2 float64) float64 {
		return k.Variance * math.Exp(-math.Sqrt(r2))
	}, out)
	return out
}

func (k *Matern12) KSym(x mat.Matrix) *mat.SymDense {
	return symFrom(k.K(x, x))
}

func (k *Matern12) KDiag(x mat.Matrix) *mat.VecDense {
	return k.kdiag(x)
}

// Matern 3/2 kernel :math:`\sigma^2 (1 + \sqrt{3} r) \exp(-\sqrt{3} r)`.
type Matern32 struct {
	Stationary
}

func NewMatern32(variance float64, lengthscales ...float64) *Matern32 {
	return &Matern32{
		Stationary: Stationary{
			Variance:     variance,
			Lengthscales: lengthscales,
		},
	}
}

func (k *Matern32) OnDims(dims ...int) *Matern32 {
	k.Dims = dims
	return k
}

func (k *Matern32) K(x, y mat.Matrix) *mat.Dense {
	out := k.scaledSqDist(x, y)
	out.Apply(func(i, j int, r2 float64) float64 {
		a := math.Sqrt(3 * r2)
		return k.Variance * (1 + a) * math.Exp(-a)
	}, out)
	return out
}

func (k *Matern32) KSym(x mat.Matrix) *mat.SymDense {
	return symFrom(k.K(x, x))
}

func (k *Matern32) KDiag(x mat.Matrix) *mat.VecDense {
	return k.kdiag(x)
}
