// Package distributions holds the input distributions that expectations are
// taken under. All variants are plain values: constructors check shapes, but
// positive semi-definiteness is left to whatever factorizes them later.
package distributions

import (
	"gonum.org/v1/gonum/mat"

	"github.com/lucasmaystre/gosvgp/utils"
)

type Distribution interface {
	// Number of points N (time steps for Markov chains).
	Len() int
	// Dimension D of each point.
	Dim() int

	distribution()
}

var (
	gaussian     *Gaussian
	diagGaussian *DiagonalGaussian
	markov       *MarkovGaussian
	_            Distribution = gaussian
	_            Distribution = diagGaussian
	_            Distribution = markov
)

// Gaussian with independent points, each with a full covariance.
type Gaussian struct {
	Mu  *mat.Dense
	Cov []*mat.SymDense
}

func NewGaussian(mu *mat.Dense, cov []*mat.SymDense) (*Gaussian, error) {
	n, d := mu.Dims()
	if len(cov) != n {
		return nil, utils.Shapef("gaussian: %d means, %d covariances", n, len(cov))
	}
	for i, c := range cov {
		if c.SymmetricDim() != d {
			return nil, utils.Shapef("gaussian: covariance %d is %dx%d, want %dx%d",
				i, c.SymmetricDim(), c.SymmetricDim(), d, d)
		}
	}
	return &Gaussian{Mu: mu, Cov: cov}, nil
}

func (p *Gaussian) Len() int {
	n, _ := p.Mu.Dims()
	return n
}

func (p *Gaussian) Dim() int {
	_, d := p.Mu.Dims()
	return d
}

// Mean returns a view of the mean of point n.
func (p *Gaussian) Mean(n int) *mat.VecDense {
	return p.Mu.RowView(n).(*mat.VecDense)
}

// Slice restricts the distribution to the given input dimensions. An empty
// dims leaves it unchanged.
func (p *Gaussian) Slice(dims []int) *Gaussian {
	if len(dims) == 0 {
		return p
	}
	cov := make([]*mat.SymDense, len(p.Cov))
	for i, c := range p.Cov {
		cov[i] = pickSym(c, dims)
	}
	return &Gaussian{Mu: pickCols(p.Mu, dims), Cov: cov}
}

func (*Gaussian) distribution() {}

// DiagonalGaussian with independent points and per-dimension variances.
type DiagonalGaussian struct {
	Mu  *mat.Dense
	Var *mat.Dense
}

func NewDiagonalGaussian(mu, variance *mat.Dense) (*DiagonalGaussian, error) {
	n, d := mu.Dims()
	vn, vd := variance.Dims()
	if n != vn || d != vd {
		return nil, utils.Shapef("diagonal gaussian: mean is %dx%d, variance is %dx%d", n, d, vn, vd)
	}
	return &DiagonalGaussian{Mu: mu, Var: variance}, nil
}

func (p *DiagonalGaussian) Len() int {
	n, _ := p.Mu.Dims()
	return n
}

func (p *DiagonalGaussian) Dim() int {
	_, d := p.Mu.Dims()
	return d
}

// ToGaussian embeds the variances on the diagonal of full covariances.
func (p *DiagonalGaussian) ToGaussian() *Gaussian {
	n := p.Len()
	cov := make([]*mat.SymDense, n)
	for i := 0; i < n; i++ {
		cov[i] = utils.DiagEmbed(p.Var.RawRowView(i))
	}
	return &Gaussian{Mu: p.Mu, Cov: cov}
}

func (p *DiagonalGaussian) Slice(dims []int) *DiagonalGaussian {
	if len(dims) == 0 {
		return p
	}
	return &DiagonalGaussian{Mu: pickCols(p.Mu, dims), Var: pickCols(p.Var, dims)}
}

func (*DiagonalGaussian) distribution() {}

// MarkovGaussian is a chain x_0, ..., x_{T-1} with adjacent dependence.
// Cross[n] is Cov(x_n, x_{n+1}).
type MarkovGaussian struct {
	Mu    *mat.Dense
	Cov   []*mat.SymDense
	Cross []*mat.Dense
}

func NewMarkovGaussian(mu *mat.Dense, cov []*mat.SymDense, cross []*mat.Dense) (*MarkovGaussian, error) {
	t, d := mu.Dims()
	if t < 2 {
		return nil, utils.Shapef("markov gaussian: need at least 2 steps, got %d", t)
	}
	if _, err := NewGaussian(mu, cov); err != nil {
		return nil, err
	}
	if len(cross) != t-1 {
		return nil, utils.Shapef("markov gaussian: %d steps need %d cross-covariances, got %d", t, t-1, len(cross))
	}
	for i, c := range cross {
		if r, cc := c.Dims(); r != d || cc != d {
			return nil, utils.Shapef("markov gaussian: cross-covariance %d is %dx%d, want %dx%d", i, r, cc, d, d)
		}
	}
	return &MarkovGaussian{Mu: mu, Cov: cov, Cross: cross}, nil
}

func (p *MarkovGaussian) Len() int {
	t, _ := p.Mu.Dims()
	return t
}

func (p *MarkovGaussian) Dim() int {
	_, d := p.Mu.Dims()
	return d
}

// Head drops the last step and the cross-time covariances.
func (p *MarkovGaussian) Head() *Gaussian {
	t, d := p.Mu.Dims()
	return &Gaussian{
		Mu:  p.Mu.Slice(0, t-1, 0, d).(*mat.Dense),
		Cov: p.Cov[:t-1],
	}
}

// Tail drops the first step and the cross-time covariances.
func (p *MarkovGaussian) Tail() *Gaussian {
	t, d := p.Mu.Dims()
	return &Gaussian{
		Mu:  p.Mu.Slice(1, t, 0, d).(*mat.Dense),
		Cov: p.Cov[1:],
	}
}

func (p *MarkovGaussian) Slice(dims []int) *MarkovGaussian {
	if len(dims) == 0 {
		return p
	}
	g := (&Gaussian{Mu: p.Mu, Cov: p.Cov}).Slice(dims)
	cross := make([]*mat.Dense, len(p.Cross))
	for i, c := range p.Cross {
		cross[i] = pick(c, dims, dims)
	}
	return &MarkovGaussian{Mu: g.Mu, Cov: g.Cov, Cross: cross}
}

func (*MarkovGaussian) distribution() {}

func pick(a mat.Matrix, rows, cols []int) *mat.Dense {
	out := mat.NewDense(len(rows), len(cols), nil)
	for i, r := range rows {
		for j, c := range cols {
			out.Set(i, j, a.At(r, c))
		}
	}
	return out
}

func pickCols(a mat.Matrix, cols []int) *mat.Dense {
	n, _ := a.Dims()
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return pick(a, rows, cols)
}

func pickSym(a mat.Symmetric, dims []int) *mat.SymDense {
	out := mat.NewSymDense(len(dims), nil)
	for i, r := range dims {
		for j := i; j < len(dims); j++ {
			out.SetSym(i, j, a.At(r, dims[j]))
		}
	}
	return out
}
