package utils

import (
	"gonum.org/v1/gonum/mat"
)

// Batch is a stack of per-point matrices, one entry per input point.
type Batch []*mat.Dense

// NewBatch allocates n zero matrices of size r×c.
func NewBatch(n, r, c int) Batch {
	b := make(Batch, n)
	for i := range b {
		b[i] = mat.NewDense(r, c, nil)
	}
	return b
}

// BatchFromRows turns an N×K matrix into N entries of size 1×K.
func BatchFromRows(m mat.Matrix) Batch {
	n, k := m.Dims()
	b := make(Batch, n)
	for i := range b {
		row := make([]float64, k)
		mat.Row(row, i, m)
		b[i] = mat.NewDense(1, k, row)
	}
	return b
}

// Dims returns the size of the per-point entries.
func (b Batch) Dims() (r, c int) {
	if len(b) == 0 {
		return 0, 0
	}
	return b[0].Dims()
}

// Rows stacks 1×K entries into an N×K matrix.
func (b Batch) Rows() *mat.Dense {
	_, k := b.Dims()
	out := mat.NewDense(len(b), k, nil)
	for i, m := range b {
		out.SetRow(i, m.RawRowView(0))
	}
	return out
}

// Vec collects 1×1 entries into a vector of length N.
func (b Batch) Vec() *mat.VecDense {
	out := mat.NewVecDense(len(b), nil)
	for i, m := range b {
		out.SetVec(i, m.At(0, 0))
	}
	return out
}

// Transpose transposes every entry.
func (b Batch) Transpose() Batch {
	out := make(Batch, len(b))
	for i, m := range b {
		out[i] = mat.DenseCopyOf(m.T())
	}
	return out
}

// Scale multiplies every entry by f.
func (b Batch) Scale(f float64) Batch {
	out := make(Batch, len(b))
	for i, m := range b {
		var scaled mat.Dense
		scaled.Scale(f, m)
		out[i] = &scaled
	}
	return out
}

// Accumulate adds o into b entry by entry.
func (b Batch) Accumulate(o Batch) error {
	if len(b) != len(o) {
		return Shapef("batch length %d != %d", len(b), len(o))
	}
	for i := range b {
		r1, c1 := b[i].Dims()
		r2, c2 := o[i].Dims()
		if r1 != r2 || c1 != c2 {
			return Shapef("batch entry %dx%d != %dx%d", r1, c1, r2, c2)
		}
		b[i].Add(b[i], o[i])
	}
	return nil
}

// MulElem multiplies b by o entry by entry, in place.
func (b Batch) MulElem(o Batch) error {
	if len(b) != len(o) {
		return Shapef("batch length %d != %d", len(b), len(o))
	}
	for i := range b {
		r1, c1 := b[i].Dims()
		r2, c2 := o[i].Dims()
		if r1 != r2 || c1 != c2 {
			return Shapef("batch entry %dx%d != %dx%d", r1, c1, r2, c2)
		}
		b[i].MulElem(b[i], o[i])
	}
	return nil
}

// Outer combines two single-row batches: out[n] = aᵀ[n] b[n].
func Outer(a, b Batch) (Batch, error) {
	if len(a) != len(b) {
		return nil, Shapef("batch length %d != %d", len(a), len(b))
	}
	out := make(Batch, len(a))
	for i := range a {
		ra, ca := a[i].Dims()
		rb, cb := b[i].Dims()
		if ra != 1 || rb != 1 {
			return nil, Shapef("outer of %dx%d and %dx%d entries", ra, ca, rb, cb)
		}
		out[i] = mat.NewDense(ca, cb, nil)
		out[i].Mul(a[i].T(), b[i])
	}
	return out, nil
}
