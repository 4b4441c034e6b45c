package expectations

import (
	"gonum.org/v1/gonum/mat"

	"github.com/lucasmaystre/gosvgp/distributions"
	"github.com/lucasmaystre/gosvgp/features"
	"github.com/lucasmaystre/gosvgp/kernels"
	"github.com/lucasmaystre/gosvgp/meanfuncs"
	"github.com/lucasmaystre/gosvgp/utils"
)

// dimsOf returns the active dimensions of k, or all dim of them.
func dimsOf(k kernels.Kernel, dim int) []int {
	if dims := k.ActiveDims(); len(dims) > 0 {
		return dims
	}
	out := make([]int, dim)
	for i := range out {
		out[i] = i
	}
	return out
}

// inducingInputs returns Z, checking that it lives in the input space of p.
func inducingInputs(feat features.InducingFeature, dim int) (*mat.Dense, error) {
	z := feat.(*features.InducingPoints).Z
	if _, d := z.Dims(); d != dim {
		return nil, utils.Shapef("inducing points have %d columns, distribution has %d dimensions", d, dim)
	}
	return z, nil
}

// identityDim checks that an identity mean maps the input space onto itself.
func identityDim(m *meanfuncs.Identity, dim int) error {
	if q := m.OutputDim(dim); q != dim {
		return utils.Shapef("identity mean of dimension %d on %d-dimensional inputs", q, dim)
	}
	return nil
}

// checkMean checks that m accepts dim-dimensional inputs.
func checkMean(m meanfuncs.MeanFunction, dim int) error {
	switch m := m.(type) {
	case *meanfuncs.Linear:
		if r, _ := m.A.Dims(); r != dim {
			return utils.Shapef("linear mean on %d inputs, distribution has %d dimensions", r, dim)
		}
	case *meanfuncs.Identity:
		return identityDim(m, dim)
	}
	return nil
}

func mean(p *distributions.Gaussian, n int) []float64 {
	return p.Mu.RawRowView(n)
}

// secondMoment returns E[x xᵀ] = Σ + μ μᵀ.
func secondMoment(mu []float64, cov mat.Symmetric) *mat.Dense {
	d := len(mu)
	out := mat.NewDense(d, d, nil)
	for i := 0; i < d; i++ {
		for j := 0; j < d; j++ {
			out.Set(i, j, cov.At(i, j)+mu[i]*mu[j])
		}
	}
	return out
}

// crossMoment returns E[x_n x_{n+1}ᵀ] = C_n + μ_n μ_{n+1}ᵀ.
func crossMoment(p *distributions.MarkovGaussian, n int) *mat.Dense {
	mu0, mu1 := p.Mu.RawRowView(n), p.Mu.RawRowView(n+1)
	d := len(mu0)
	out := mat.NewDense(d, d, nil)
	for i := 0; i < d; i++ {
		for j := 0; j < d; j++ {
			out.Set(i, j, p.Cross[n].At(i, j)+mu0[i]*mu1[j])
		}
	}
	return out
}

func pickVec(v []float64, dims []int) []float64 {
	out := make([]float64, len(dims))
	for i, d := range dims {
		out[i] = v[d]
	}
	return out
}

func pickSym(a mat.Symmetric, dims []int) *mat.SymDense {
	out := mat.NewSymDense(len(dims), nil)
	for i := range dims {
		for j := i; j < len(dims); j++ {
			out.SetSym(i, j, a.At(dims[i], dims[j]))
		}
	}
	return out
}

// transposed swaps the terms, evaluates and transposes the result.
func transposed(e *Evaluator, p distributions.Distribution, t1, t2 Term) (utils.Batch, error) {
	out, err := e.Expectation(p, t2, t1)
	if err != nil {
		return nil, err
	}
	return out.Transpose(), nil
}
