package expectations

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/integrate/quad"
	"gonum.org/v1/gonum/mat"

	"github.com/lucasmaystre/gosvgp/dispatch"
	"github.com/lucasmaystre/gosvgp/distributions"
	"github.com/lucasmaystre/gosvgp/kernels"
	"github.com/lucasmaystre/gosvgp/meanfuncs"
	"github.com/lucasmaystre/gosvgp/utils"
)

func quadratureHandler(e *Evaluator, p distributions.Distribution, t1, t2 Term) (utils.Batch, error) {
	return e.Quadrature(p, t1, t2)
}

// Quadrature evaluates <t1 t2ᵀ> with a tensor-product Gauss-Hermite rule of
// e.points nodes per dimension. Its cost grows as points^D, which limits it
// to low-dimensional inputs.
func (e *Evaluator) Quadrature(p distributions.Distribution, t1, t2 Term) (utils.Batch, error) {
	if t1.IsNone() && t2.IsNone() {
		return nil, utils.Shapef("expectation of no term")
	}
	switch p := p.(type) {
	case *distributions.Gaussian:
		if t1.IsNone() {
			t1, t2 = t2, Term{}
		}
		out := make(utils.Batch, p.Len())
		for n := range out {
			x, w, err := e.nodes(mean(p, n), p.Cov[n])
			if err != nil {
				return nil, err
			}
			if out[n], err = e.integrate(t1, x, t2, x, w); err != nil {
				return nil, err
			}
		}
		return out, nil
	case *distributions.DiagonalGaussian:
		return e.Quadrature(p.ToGaussian(), t1, t2)
	case *distributions.MarkovGaussian:
		switch {
		case t2.IsNone():
			return e.Quadrature(p.Head(), t1, t2)
		case t1.IsNone():
			return e.Quadrature(p.Tail(), t2, t1)
		}
		return e.markovQuadrature(p, t1, t2)
	}
	o1, f1 := t1.args()
	o2, f2 := t2.args()
	return nil, dispatch.NoMatch("quadrature", p, o1, f1, o2, f2)
}

// Integrates over the joint of (x_n, x_{n+1}), with t1 seeing the first half
// of every node and t2 the second.
func (e *Evaluator) markovQuadrature(p *distributions.MarkovGaussian, t1, t2 Term) (utils.Batch, error) {
	dim := p.Dim()
	out := make(utils.Batch, p.Len()-1)
	for n := range out {
		mu := append(append([]float64(nil), p.Mu.RawRowView(n)...), p.Mu.RawRowView(n+1)...)
		cov := mat.NewSymDense(2*dim, nil)
		for i := 0; i < dim; i++ {
			for j := 0; j < dim; j++ {
				cov.SetSym(i, j, p.Cov[n].At(i, j))
				cov.SetSym(dim+i, dim+j, p.Cov[n+1].At(i, j))
				cov.SetSym(i, dim+j, p.Cross[n].At(i, j))
			}
		}
		x, w, err := e.nodes(mu, cov)
		if err != nil {
			return nil, err
		}
		k, _ := x.Dims()
		x1 := x.Slice(0, k, 0, dim).(*mat.Dense)
		x2 := x.Slice(0, k, dim, 2*dim).(*mat.Dense)
		if out[n], err = e.integrate(t1, x1, t2, x2, w); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// integrate returns Σ_k w_k v1(x1_k)ᵀ v2(x2_k), or Σ_k w_k v1(x1_k) as a
// single row when t2 is absent.
func (e *Evaluator) integrate(t1 Term, x1 *mat.Dense, t2 Term, x2 *mat.Dense, w []float64) (*mat.Dense, error) {
	v1, err := e.evalTerm(t1, x1)
	if err != nil {
		return nil, err
	}
	k, c1 := v1.Dims()
	if t2.IsNone() {
		out := mat.NewDense(1, c1, nil)
		out.Mul(mat.NewDense(1, k, w), v1)
		return out, nil
	}
	v2, err := e.evalTerm(t2, x2)
	if err != nil {
		return nil, err
	}
	weighted := mat.DenseCopyOf(v1)
	for i := 0; i < k; i++ {
		row := weighted.RawRowView(i)
		for j := range row {
			row[j] *= w[i]
		}
	}
	var out mat.Dense
	out.Mul(weighted.T(), v2)
	return &out, nil
}

// evalTerm evaluates a term at the rows of x, returning one row per node.
func (e *Evaluator) evalTerm(t Term, x *mat.Dense) (*mat.Dense, error) {
	switch obj := t.Object.(type) {
	case kernels.Kernel:
		if t.Feature == nil {
			diag := obj.KDiag(x)
			return mat.NewDense(diag.Len(), 1, diag.RawVector().Data), nil
		}
		feats := e.Features()
		if feats == nil {
			return nil, errors.New("quadrature: no covariance catalog for inducing features")
		}
		kuf, err := feats.Kuf(t.Feature, obj, x)
		if err != nil {
			return nil, err
		}
		return mat.DenseCopyOf(kuf.T()), nil
	case meanfuncs.MeanFunction:
		if t.Feature != nil {
			return nil, dispatch.NoMatch("quadrature", obj, t.Feature)
		}
		_, dim := x.Dims()
		if err := checkMean(obj, dim); err != nil {
			return nil, err
		}
		return obj.Evaluate(x), nil
	}
	return nil, dispatch.NoMatch("quadrature", t.Object, t.Feature)
}

// MaxQuadratureNodes bounds the size of a tensor-product grid.
const MaxQuadratureNodes = 1 << 20

// nodes returns the quadrature nodes for N(mu, cov), one per row, and their
// weights. With cov = V diag(λ) Vᵀ the nodes are μ + √2 V diag(√λ) t for t
// on the Gauss-Hermite grid; zero eigenvalues collapse their dimension.
func (e *Evaluator) nodes(mu []float64, cov mat.Symmetric) (*mat.Dense, []float64, error) {
	dim := len(mu)
	var eig mat.EigenSym
	if !eig.Factorize(cov, true) {
		return nil, nil, utils.ErrNotPositiveDefinite
	}
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)
	for j, v := range vals {
		s := math.Sqrt2 * math.Sqrt(math.Max(v, 0))
		for i := 0; i < dim; i++ {
			vecs.Set(i, j, vecs.At(i, j)*s)
		}
	}

	total := 1
	for i := 0; i < dim; i++ {
		total *= e.points
		if total > MaxQuadratureNodes {
			return nil, nil, utils.Shapef("quadrature: %d points in %d dimensions exceed %d nodes",
				e.points, dim, MaxQuadratureNodes)
		}
	}
	t, w := hermite(e.points)
	norm := math.Pow(math.Pi, -float64(dim)/2)
	x := mat.NewDense(total, dim, nil)
	weights := make([]float64, total)
	grid := make([]float64, dim)
	for k := 0; k < total; k++ {
		weight, idx := norm, k
		for d := range grid {
			grid[d] = t[idx%len(t)]
			weight *= w[idx%len(t)]
			idx /= len(t)
		}
		row := x.RawRowView(k)
		for i := range row {
			row[i] = mu[i]
			for d, g := range grid {
				row[i] += vecs.At(i, d) * g
			}
		}
		weights[k] = weight
	}
	return x, weights, nil
}

// hermite returns the n-point Gauss-Hermite rule for the weight exp(-t²).
func hermite(n int) ([]float64, []float64) {
	t, w := make([]float64, n), make([]float64, n)
	quad.Hermite{}.FixedLocations(t, w, math.Inf(-1), math.Inf(1))
	return t, w
}
