package utils

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/lapack/lapack64"
	"gonum.org/v1/gonum/mat"
)

// Cholesky returns the lower triangular factor L such that a = L Lᵀ.
func Cholesky(a mat.Symmetric) (*mat.TriDense, error) {
	n := a.SymmetricDim()
	if n == 0 {
		return nil, Shapef("cholesky of empty matrix")
	}
	sym := blas64.Symmetric{
		N:      n,
		Stride: n,
		Data:   make([]float64, n*n),
		Uplo:   blas.Lower,
	}
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			sym.Data[i*n+j] = a.At(i, j)
		}
	}
	// L = cholesky(a) (lower triangular, upper part left at zero)
	t, ok := lapack64.Potrf(sym)
	if !ok {
		return nil, fmt.Errorf("cholesky of %dx%d matrix: %w", n, n, ErrNotPositiveDefinite)
	}
	return mat.NewTriDense(n, mat.Lower, t.Data), nil
}

// SolveLower solves L X = B (or Lᵀ X = B when trans is set) and returns X.
func SolveLower(l *mat.TriDense, trans bool, b mat.Matrix) *mat.Dense {
	out := mat.DenseCopyOf(b)
	tA := blas.NoTrans
	if trans {
		tA = blas.Trans
	}
	blas64.Trsm(blas.Left, tA, 1.0, l.RawTriangular(), out.RawMatrix())
	return out
}

// LowerTriangle returns a copy of the lower triangle of a (diagonal included).
func LowerTriangle(a mat.Matrix) *mat.TriDense {
	n, _ := a.Dims()
	out := mat.NewTriDense(n, mat.Lower, nil)
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			out.SetTri(i, j, a.At(i, j))
		}
	}
	return out
}
