// Package meanfuncs defines the closed set of GP mean functions.
//
// Identity is a sibling of Linear rather than a special case of it, so that a
// handler registered for one never catches the other.
package meanfuncs

import (
	"gonum.org/v1/gonum/mat"

	"github.com/lucasmaystre/gosvgp/utils"
)

type MeanFunction interface {
	// Evaluate the mean function at the rows of X, returning an N×Q matrix.
	Evaluate(x mat.Matrix) *mat.Dense

	// Output dimension Q for inputs of dimension dim.
	OutputDim(dim int) int

	meanFunction()
}

var (
	zero     *Zero
	constant *Constant
	linear   *Linear
	identity *Identity
	_        MeanFunction = zero
	_        MeanFunction = constant
	_        MeanFunction = linear
	_        MeanFunction = identity
)

// Zero mean with Q outputs.
type Zero struct {
	Outputs int
}

func NewZero(outputs int) *Zero {
	return &Zero{Outputs: outputs}
}

func (m *Zero) Evaluate(x mat.Matrix) *mat.Dense {
	n, _ := x.Dims()
	return mat.NewDense(n, m.Outputs, nil)
}

func (m *Zero) OutputDim(int) int { return m.Outputs }
func (*Zero) meanFunction()       {}

// Constant mean m(x) = c.
type Constant struct {
	C *mat.VecDense
}

func NewConstant(c ...float64) *Constant {
	return &Constant{C: mat.NewVecDense(len(c), c)}
}

func (m *Constant) Evaluate(x mat.Matrix) *mat.Dense {
	n, _ := x.Dims()
	q := m.C.Len()
	out := mat.NewDense(n, q, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < q; j++ {
			out.Set(i, j, m.C.AtVec(j))
		}
	}
	return out
}

func (m *Constant) OutputDim(int) int { return m.C.Len() }
func (*Constant) meanFunction()       {}

// Linear mean m(x) = Aᵀ x + b, with A of size D×Q.
type Linear struct {
	A *mat.Dense
	B *mat.VecDense
}

func NewLinear(a *mat.Dense, b *mat.VecDense) (*Linear, error) {
	_, q := a.Dims()
	if b == nil {
		b = mat.NewVecDense(q, nil)
	}
	if b.Len() != q {
		return nil, utils.Shapef("linear mean: A has %d outputs, b has %d", q, b.Len())
	}
	return &Linear{A: a, B: b}, nil
}

func (m *Linear) Evaluate(x mat.Matrix) *mat.Dense {
	n, _ := x.Dims()
	_, q := m.A.Dims()
	// dot(X, A) + b
	out := mat.NewDense(n, q, nil)
	out.Mul(x, m.A)
	for i := 0; i < n; i++ {
		row := out.RawRowView(i)
		for j := range row {
			row[j] += m.B.AtVec(j)
		}
	}
	return out
}

func (m *Linear) OutputDim(int) int {
	_, q := m.A.Dims()
	return q
}

func (*Linear) meanFunction() {}

// Identity mean m(x) = x.
type Identity struct {
	Dim int
}

func NewIdentity(dim int) *Identity {
	return &Identity{Dim: dim}
}

func (m *Identity) Evaluate(x mat.Matrix) *mat.Dense {
	return mat.DenseCopyOf(x)
}

func (m *Identity) OutputDim(dim int) int {
	if m.Dim > 0 {
		return m.Dim
	}
	return dim
}

func (*Identity) meanFunction() {}
