package kernels

import (
	"gonum.org/v1/gonum/mat"

	"github.com/lucasmaystre/gosvgp/utils"
)

type Kernel interface {
	// Cross-covariance matrix :math:`K(X, Y)`, of size N×M.
	K(x, y mat.Matrix) *mat.Dense

	// Covariance matrix :math:`K(X, X)`, of size N×N.
	KSym(x mat.Matrix) *mat.SymDense

	// Marginal variances :math:`diag K(X, X)`, of length N.
	KDiag(x mat.Matrix) *mat.VecDense

	// Input columns the kernel acts on; nil means all of them.
	ActiveDims() []int
}

// Active restricts a kernel to a subset of the input columns.
type Active struct {
	Dims []int
}

func (a Active) ActiveDims() []int {
	return a.Dims
}

// Slice selects the active columns of x.
func (a Active) Slice(x mat.Matrix) mat.Matrix {
	return utils.Columns(x, a.Dims)
}

// OnSeparateDims reports whether both kernels declare active dimensions and
// these do not overlap.
func OnSeparateDims(a, b Kernel) bool {
	da, db := a.ActiveDims(), b.ActiveDims()
	if len(da) == 0 || len(db) == 0 {
		return false
	}
	seen := make(map[int]bool, len(da))
	for _, d := range da {
		seen[d] = true
	}
	for _, d := range db {
		if seen[d] {
			return false
		}
	}
	return true
}

// SameDims reports whether both kernels act on the same columns.
func SameDims(a, b Kernel) bool {
	da, db := a.ActiveDims(), b.ActiveDims()
	if len(da) != len(db) {
		return false
	}
	for i := range da {
		if da[i] != db[i] {
			return false
		}
	}
	return true
}

// Symmetric covariance built from a square cross-covariance.
func symFrom(k *mat.Dense) *mat.SymDense {
	return utils.Symmetrize(k)
}

// Diagonal of a square cross-covariance.
func diagFrom(k *mat.Dense) *mat.VecDense {
	return mat.NewVecDense(len(utils.Diag(k)), utils.Diag(k))
}

// param broadcasts a single value across dimensions. No value means 1.
func param(vals []float64, d int) float64 {
	if len(vals) == 0 {
		return 1
	}
	if len(vals) == 1 {
		return vals[0]
	}
	return vals[d]
}
