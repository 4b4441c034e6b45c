package utils

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrShape               = errors.New("shape mismatch")
	ErrNotPositiveDefinite = errors.New("matrix is not positive definite")
)

// Shapef wraps ErrShape with a description of the offending operand.
func Shapef(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrShape)
}

// Make a block diagonal matrix.
func BlockDiag(size int, mats ...mat.Matrix) *mat.Dense {
	out := mat.NewDense(size, size, nil)
	offset := 0
	var r, c int
	for _, matrix := range mats {
		r, c = matrix.Dims()
		slice := out.Slice(offset, offset+r, offset, offset+c)
		slice.(*mat.Dense).Copy(matrix)
		offset += r
	}
	return out
}

// Identity Matrix.
func Eye(n int) *mat.Dense {
	out := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		out.Set(i, i, 1)
	}
	return out
}

// Symmetric matrix with vec on its diagonal.
func DiagEmbed(vec []float64) *mat.SymDense {
	n := len(vec)
	out := mat.NewSymDense(n, nil)
	for i, v := range vec {
		out.SetSym(i, i, v)
	}
	return out
}

// AddJitter returns a copy of a with jitter added to its diagonal.
func AddJitter(a mat.Symmetric, jitter float64) *mat.SymDense {
	n := a.SymmetricDim()
	out := mat.NewSymDense(n, nil)
	out.CopySym(a)
	for i := 0; i < n; i++ {
		out.SetSym(i, i, out.At(i, i)+jitter)
	}
	return out
}

// Diag returns the diagonal of a square matrix.
func Diag(a mat.Matrix) []float64 {
	n, _ := a.Dims()
	out := make([]float64, n)
	for i := range out {
		out[i] = a.At(i, i)
	}
	return out
}

// Symmetrize returns (a + aᵀ) / 2 as a SymDense.
func Symmetrize(a mat.Matrix) *mat.SymDense {
	n, _ := a.Dims()
	out := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			out.SetSym(i, j, 0.5*(a.At(i, j)+a.At(j, i)))
		}
	}
	return out
}

// Columns returns the submatrix of x made of the given columns, or x itself
// when cols is empty.
func Columns(x mat.Matrix, cols []int) mat.Matrix {
	if len(cols) == 0 {
		return x
	}
	n, _ := x.Dims()
	out := mat.NewDense(n, len(cols), nil)
	for i := 0; i < n; i++ {
		for j, c := range cols {
			out.Set(i, j, x.At(i, c))
		}
	}
	return out
}
