package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestCholesky(t *testing.T) {
	a := mat.NewSymDense(3, []float64{
		4, 2, 0.4,
		2, 5, 1,
		0.4, 1, 3,
	})
	l, err := Cholesky(a)
	require.NoError(t, err)

	var llt mat.Dense
	llt.Mul(l, l.T())
	assert.True(t, mat.EqualApprox(&llt, a, 1e-12))
	assert.Equal(t, 0.0, l.At(0, 1))
	assert.Equal(t, 0.0, l.At(1, 2))
}

func TestCholeskyNotPositiveDefinite(t *testing.T) {
	a := mat.NewSymDense(2, []float64{1, 2, 2, 1})
	_, err := Cholesky(a)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotPositiveDefinite))
}

func TestSolveLower(t *testing.T) {
	l := mat.NewTriDense(2, mat.Lower, []float64{2, 0, 1, 3})
	b := mat.NewDense(2, 1, []float64{4, 11})

	x := SolveLower(l, false, b)
	assert.InDelta(t, 2.0, x.At(0, 0), 1e-12)
	assert.InDelta(t, 3.0, x.At(1, 0), 1e-12)

	// Lᵀ x = b
	y := SolveLower(l, true, b)
	var check mat.Dense
	check.Mul(l.T(), y)
	assert.True(t, mat.EqualApprox(&check, b, 1e-12))
}

func TestAddJitter(t *testing.T) {
	a := mat.NewSymDense(2, []float64{1, 0.5, 0.5, 1})
	out := AddJitter(a, 0.1)
	assert.InDelta(t, 1.1, out.At(0, 0), 1e-15)
	assert.InDelta(t, 0.5, out.At(0, 1), 1e-15)
	assert.Equal(t, 1.0, a.At(0, 0))
}

func TestBlockDiag(t *testing.T) {
	a := mat.NewDense(1, 1, []float64{2})
	b := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	out := BlockDiag(3, a, b)
	expected := mat.NewDense(3, 3, []float64{
		2, 0, 0,
		0, 1, 2,
		0, 3, 4,
	})
	assert.True(t, mat.Equal(out, expected))
}

func TestColumns(t *testing.T) {
	x := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})
	assert.Same(t, x, Columns(x, nil))
	sub := Columns(x, []int{2, 0})
	assert.True(t, mat.Equal(sub, mat.NewDense(2, 2, []float64{3, 1, 6, 4})))
}

func TestBatch(t *testing.T) {
	rows := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})
	b := BatchFromRows(rows)
	require.Len(t, b, 2)
	assert.True(t, mat.Equal(b.Rows(), rows))

	outer, err := Outer(b, b)
	require.NoError(t, err)
	assert.Equal(t, 20.0, outer[1].At(1, 0))

	tr := outer.Transpose()
	assert.Equal(t, outer[1].At(2, 0), tr[1].At(0, 2))

	scaled := b.Scale(2)
	require.NoError(t, scaled.Accumulate(b))
	assert.Equal(t, 18.0, scaled[1].At(0, 2))

	err = b.Accumulate(NewBatch(3, 1, 3))
	assert.True(t, errors.Is(err, ErrShape))
}

func TestTensor(t *testing.T) {
	x := NewTensor(2, 3, 4)
	x.Set(7, 1, 2, 3)
	assert.Equal(t, 7.0, x.At(1, 2, 3))
	assert.Equal(t, 7.0, x.Data()[len(x.Data())-1])
	assert.Equal(t, 7.0, x.Sub(1).At(2, 3))
	assert.Equal(t, []int{2, 3, 4}, x.Shape())
	assert.Panics(t, func() { x.At(2, 0, 0) })
	assert.Panics(t, func() { x.Matrix() })
}
