package utils

import (
	"gonum.org/v1/gonum/mat"
)

// Tensor is a dense row-major array of arbitrary rank.
type Tensor struct {
	shape   []int
	strides []int
	data    []float64
}

func NewTensor(shape ...int) *Tensor {
	size := 1
	strides := make([]int, len(shape))
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = size
		size *= shape[i]
	}
	return &Tensor{
		shape:   append([]int(nil), shape...),
		strides: strides,
		data:    make([]float64, size),
	}
}

// TensorFromMatrix copies a matrix into a rank-2 tensor.
func TensorFromMatrix(m mat.Matrix) *Tensor {
	r, c := m.Dims()
	t := NewTensor(r, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			t.data[i*c+j] = m.At(i, j)
		}
	}
	return t
}

func (t *Tensor) Shape() []int {
	return append([]int(nil), t.shape...)
}

func (t *Tensor) Rank() int {
	return len(t.shape)
}

func (t *Tensor) Data() []float64 {
	return t.data
}

func (t *Tensor) offset(idx []int) int {
	if len(idx) != len(t.shape) {
		panic(Shapef("index of rank %d into tensor of rank %d", len(idx), len(t.shape)))
	}
	off := 0
	for i, k := range idx {
		if k < 0 || k >= t.shape[i] {
			panic(Shapef("index %d out of range [0,%d) on axis %d", k, t.shape[i], i))
		}
		off += k * t.strides[i]
	}
	return off
}

func (t *Tensor) At(idx ...int) float64 {
	return t.data[t.offset(idx)]
}

func (t *Tensor) Set(v float64, idx ...int) {
	t.data[t.offset(idx)] = v
}

// Matrix returns a rank-2 tensor as a matrix sharing the same data.
func (t *Tensor) Matrix() *mat.Dense {
	if len(t.shape) != 2 {
		panic(Shapef("matrix view of rank %d tensor", len(t.shape)))
	}
	return mat.NewDense(t.shape[0], t.shape[1], t.data)
}

// Sub returns the matrix at leading index i of a rank-3 tensor, sharing data.
func (t *Tensor) Sub(i int) *mat.Dense {
	if len(t.shape) != 3 {
		panic(Shapef("sub-matrix of rank %d tensor", len(t.shape)))
	}
	size := t.shape[1] * t.shape[2]
	return mat.NewDense(t.shape[1], t.shape[2], t.data[i*size:(i+1)*size])
}
