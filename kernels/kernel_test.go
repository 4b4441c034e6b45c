package kernels

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

var (
	xs = mat.NewDense(3, 2, []float64{
		0.0, 0.0,
		1.0, 0.5,
		-0.5, 2.0,
	})
	ys = mat.NewDense(2, 2, []float64{
		0.5, -1.0,
		1.0, 1.0,
	})
)

func TestStationaryKernels(t *testing.T) {
	r2 := func(i, j int, ls float64) float64 {
		d0 := (xs.At(i, 0) - ys.At(j, 0)) / ls
		d1 := (xs.At(i, 1) - ys.At(j, 1)) / ls
		return d0*d0 + d1*d1
	}
	tests := []struct {
		name     string
		kernel   Kernel
		expected func(r2 float64) float64
	}{
		{"rbf", NewRBF(2.0, 1.5), func(r2 float64) float64 {
			return 2.0 * math.Exp(-0.5*r2)
		}},
		{"matern12", NewMatern12(2.0, 1.5), func(r2 float64) float64 {
			return 2.0 * math.Exp(-math.Sqrt(r2))
		}},
		{"matern32", NewMatern32(2.0, 1.5), func(r2 float64) float64 {
			a := math.Sqrt(3 * r2)
			return 2.0 * (1 + a) * math.Exp(-a)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := tt.kernel.K(xs, ys)
			rows, cols := k.Dims()
			require.Equal(t, 3, rows)
			require.Equal(t, 2, cols)
			for i := 0; i < rows; i++ {
				for j := 0; j < cols; j++ {
					assert.InDelta(t, tt.expected(r2(i, j, 1.5)), k.At(i, j), 1e-12)
				}
			}
			diag := tt.kernel.KDiag(xs)
			sym := tt.kernel.KSym(xs)
			for i := 0; i < 3; i++ {
				assert.InDelta(t, 2.0, diag.AtVec(i), 1e-12)
				assert.InDelta(t, sym.At(i, i), diag.AtVec(i), 1e-12)
			}
		})
	}
}

func TestRBFARDAndActiveDims(t *testing.T) {
	k := NewRBF(1.0, 0.5, 2.0)
	expected := math.Exp(-0.5 * (1.0/0.25 + 0.25/4.0))
	assert.InDelta(t, expected, k.K(xs, xs).At(0, 1), 1e-12)

	k1 := NewRBF(1.0, 2.0).OnDims(1)
	assert.InDelta(t, math.Exp(-0.5*0.25/4.0), k1.K(xs, xs).At(0, 1), 1e-12)
}

func TestUnitParameterDefaults(t *testing.T) {
	tests := []struct {
		name     string
		kern     Kernel
		expected Kernel
	}{
		{"rbf", NewRBF(1.5), NewRBF(1.5, 1)},
		{"matern12", NewMatern12(1.5), NewMatern12(1.5, 1, 1)},
		{"matern32", NewMatern32(1.5), NewMatern32(1.5, 1)},
		{"linear", NewLinear(), NewLinear(1, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, mat.Equal(tt.expected.K(xs, ys), tt.kern.K(xs, ys)))
			assert.True(t, mat.Equal(tt.expected.KDiag(xs), tt.kern.KDiag(xs)))
		})
	}
}

func TestLinear(t *testing.T) {
	k := NewLinear(2.0, 3.0)
	kxy := k.K(xs, ys)
	// x_1 = (1, 0.5), y_1 = (1, 1): 2*1 + 3*0.5
	assert.InDelta(t, 3.5, kxy.At(1, 1), 1e-12)
	diag := k.KDiag(xs)
	assert.InDelta(t, 2*0.25+3*4.0, diag.AtVec(2), 1e-12)
	assert.InDelta(t, k.KSym(xs).At(2, 2), diag.AtVec(2), 1e-12)

	k0 := NewLinear(2.0).OnDims(0)
	assert.InDelta(t, 2*1*1.0, k0.K(xs, ys).At(1, 1), 1e-12)
}

func TestConstant(t *testing.T) {
	k := NewConstant(0.7)
	assert.True(t, mat.Equal(k.K(xs, ys), mat.NewDense(3, 2, []float64{0.7, 0.7, 0.7, 0.7, 0.7, 0.7})))
	assert.Equal(t, 0.7, k.KDiag(xs).AtVec(1))
}

func TestSumAndProduct(t *testing.T) {
	a := NewRBF(1.0, 1.0)
	b := NewLinear(0.5)
	c := NewConstant(0.2)

	s := NewSum(NewSum(a, b), c)
	require.Len(t, s.Parts, 3)
	var expected mat.Dense
	expected.Add(a.K(xs, ys), b.K(xs, ys))
	expected.Add(&expected, c.K(xs, ys))
	assert.True(t, mat.EqualApprox(s.K(xs, ys), &expected, 1e-12))
	assert.InDelta(t, 1.0+0.5*(0.25+4)+0.2, s.KDiag(xs).AtVec(2), 1e-12)

	p := NewProduct(a, NewProduct(b, c))
	require.Len(t, p.Parts, 3)
	expected.MulElem(a.K(xs, ys), b.K(xs, ys))
	expected.Scale(0.2, &expected)
	assert.True(t, mat.EqualApprox(p.K(xs, ys), &expected, 1e-12))
	assert.InDelta(t, 1.0*0.5*(0.25+4)*0.2, p.KDiag(xs).AtVec(2), 1e-12)
}

func TestDims(t *testing.T) {
	a := NewRBF(1.0, 1.0).OnDims(0)
	b := NewLinear(1.0).OnDims(1)
	c := NewRBF(1.0, 1.0)

	assert.True(t, OnSeparateDims(a, b))
	assert.False(t, OnSeparateDims(a, a))
	assert.False(t, OnSeparateDims(a, c))

	assert.True(t, NewProduct(a, b).PartsOnSeparateDims())
	assert.False(t, NewProduct(a, c).PartsOnSeparateDims())
	assert.Equal(t, []int{0, 1}, NewSum(b, a).ActiveDims())
	assert.Nil(t, NewSum(a, c).ActiveDims())
	assert.True(t, SameDims(a, NewLinear(1.0).OnDims(0)))
	assert.False(t, SameDims(a, c))
}
