package expectations

import (
	"gonum.org/v1/gonum/mat"

	"github.com/lucasmaystre/gosvgp/distributions"
	"github.com/lucasmaystre/gosvgp/kernels"
	"github.com/lucasmaystre/gosvgp/meanfuncs"
	"github.com/lucasmaystre/gosvgp/utils"
)

func registerConstant(b *Builder) {
	b.Register("constant eKdiag", constantKdiag, gaussian, constantKernel, none, none, none)
	b.Register("constant eKxz", constantKxz, gaussian, constantKernel, anyFeature, none, none)
	b.Register("constant exKxz", constantXKxz, gaussian, constantKernel, anyFeature, identityMean, none)
	b.Register("constant exKxz markov", constantXKxz, markov, constantKernel, anyFeature, identityMean, none)
	b.Register("constant-kernel eKzxKxz", constantLeft, gaussian, constantKernel, anyFeature, anyKernel, anyFeature)
	b.Register("kernel-constant eKzxKxz", transposed, gaussian, anyKernel, anyFeature, constantKernel, anyFeature)
}

func constantKdiag(e *Evaluator, p distributions.Distribution, t1, _ Term) (utils.Batch, error) {
	k := t1.Object.(*kernels.Constant)
	out := utils.NewBatch(p.Len(), 1, 1)
	for _, m := range out {
		m.Set(0, 0, k.Variance)
	}
	return out, nil
}

func constantKxz(e *Evaluator, p distributions.Distribution, t1, _ Term) (utils.Batch, error) {
	k := t1.Object.(*kernels.Constant)
	out := utils.NewBatch(p.Len(), 1, t1.Feature.Len())
	for _, m := range out {
		for j := 0; j < t1.Feature.Len(); j++ {
			m.Set(0, j, k.Variance)
		}
	}
	return out, nil
}

// σ² 1 μᵀ, with μ the mean of x_{n+1} for Markov chains.
func constantXKxz(e *Evaluator, p distributions.Distribution, t1, t2 Term) (utils.Batch, error) {
	k := t1.Object.(*kernels.Constant)
	if err := identityDim(t2.Object.(*meanfuncs.Identity), p.Dim()); err != nil {
		return nil, err
	}
	var means [][]float64
	switch p := p.(type) {
	case *distributions.Gaussian:
		for n := 0; n < p.Len(); n++ {
			means = append(means, mean(p, n))
		}
	case *distributions.MarkovGaussian:
		for n := 1; n < p.Len(); n++ {
			means = append(means, p.Mu.RawRowView(n))
		}
	}
	m := t1.Feature.Len()
	out := utils.NewBatch(len(means), m, p.Dim())
	for n, mu := range means {
		for j := 0; j < m; j++ {
			for i, v := range mu {
				out[n].Set(j, i, k.Variance*v)
			}
		}
	}
	return out, nil
}

// <σ² K_{x, Z'}> repeated on every row, M×M' per point.
func constantLeft(e *Evaluator, p distributions.Distribution, t1, t2 Term) (utils.Batch, error) {
	k := t1.Object.(*kernels.Constant)
	kxz, err := e.Expectation(p, t2, Term{})
	if err != nil {
		return nil, err
	}
	m := t1.Feature.Len()
	out := make(utils.Batch, len(kxz))
	for n, row := range kxz {
		_, m2 := row.Dims()
		out[n] = mat.NewDense(m, m2, nil)
		for j := 0; j < m; j++ {
			for i := 0; i < m2; i++ {
				out[n].Set(j, i, k.Variance*row.At(0, i))
			}
		}
	}
	return out, nil
}
