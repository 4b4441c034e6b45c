package expectations

import (
	"gonum.org/v1/gonum/mat"

	"github.com/lucasmaystre/gosvgp/distributions"
	"github.com/lucasmaystre/gosvgp/kernels"
	"github.com/lucasmaystre/gosvgp/meanfuncs"
	"github.com/lucasmaystre/gosvgp/utils"
)

func registerLinear(b *Builder) {
	b.Register("linear eKdiag", linearKdiag, gaussian, linearKernel, none, none, none)
	b.Register("linear eKxz", linearKxz, gaussian, linearKernel, inducing, none, none)
	b.Register("linear exKxz", linearXKxz, gaussian, linearKernel, inducing, identityMean, none)
	b.Register("linear exKxz markov", linearXKxzMarkov, markov, linearKernel, inducing, identityMean, none)
	b.Register("linear eKzxKxz", linearKzxKxz, gaussian, linearKernel, inducing, linearKernel, inducing)
}

// weighted returns the M×D matrix Z V restricted to the active rows, so that
// row j is V z_j on the kernel's dimensions and zero elsewhere.
func weighted(k *kernels.Linear, z *mat.Dense) *mat.Dense {
	m, dim := z.Dims()
	out := mat.NewDense(m, dim, nil)
	for b, d := range dimsOf(k, dim) {
		v := k.Variance(b)
		for j := 0; j < m; j++ {
			out.Set(j, d, v*z.At(j, d))
		}
	}
	return out
}

// Σ_d v_d (μ_d² + Σ_dd), 1×1 per point.
func linearKdiag(e *Evaluator, p distributions.Distribution, t1, _ Term) (utils.Batch, error) {
	g, k := p.(*distributions.Gaussian), t1.Object.(*kernels.Linear)
	out := utils.NewBatch(g.Len(), 1, 1)
	for n := range out {
		mu, val := mean(g, n), 0.0
		for b, d := range dimsOf(k, g.Dim()) {
			val += k.Variance(b) * (mu[d]*mu[d] + g.Cov[n].At(d, d))
		}
		out[n].Set(0, 0, val)
	}
	return out, nil
}

// μᵀ V Zᵀ, 1×M per point.
func linearKxz(e *Evaluator, p distributions.Distribution, t1, _ Term) (utils.Batch, error) {
	g, k := p.(*distributions.Gaussian), t1.Object.(*kernels.Linear)
	z, err := inducingInputs(t1.Feature, g.Dim())
	if err != nil {
		return nil, err
	}
	zv := weighted(k, z)
	m, _ := z.Dims()
	out := utils.NewBatch(g.Len(), 1, m)
	for n := range out {
		mu := mat.NewDense(1, g.Dim(), mean(g, n))
		out[n].Mul(mu, zv.T())
	}
	return out, nil
}

// Z V (Σ + μ μᵀ), M×D per point.
func linearXKxz(e *Evaluator, p distributions.Distribution, t1, t2 Term) (utils.Batch, error) {
	g, k := p.(*distributions.Gaussian), t1.Object.(*kernels.Linear)
	if err := identityDim(t2.Object.(*meanfuncs.Identity), g.Dim()); err != nil {
		return nil, err
	}
	z, err := inducingInputs(t1.Feature, g.Dim())
	if err != nil {
		return nil, err
	}
	zv := weighted(k, z)
	out := make(utils.Batch, g.Len())
	for n := range out {
		out[n] = new(mat.Dense)
		out[n].Mul(zv, secondMoment(mean(g, n), g.Cov[n]))
	}
	return out, nil
}

// Z V (C_n + μ_n μ_{n+1}ᵀ), M×D for each of the T-1 transitions.
func linearXKxzMarkov(e *Evaluator, p distributions.Distribution, t1, t2 Term) (utils.Batch, error) {
	mg, k := p.(*distributions.MarkovGaussian), t1.Object.(*kernels.Linear)
	if err := identityDim(t2.Object.(*meanfuncs.Identity), mg.Dim()); err != nil {
		return nil, err
	}
	z, err := inducingInputs(t1.Feature, mg.Dim())
	if err != nil {
		return nil, err
	}
	zv := weighted(k, z)
	out := make(utils.Batch, mg.Len()-1)
	for n := range out {
		out[n] = new(mat.Dense)
		out[n].Mul(zv, crossMoment(mg, n))
	}
	return out, nil
}

// Z V (Σ + μ μᵀ) V' Z'ᵀ, M×M' per point. The kernels may act on different
// dimensions.
func linearKzxKxz(e *Evaluator, p distributions.Distribution, t1, t2 Term) (utils.Batch, error) {
	g := p.(*distributions.Gaussian)
	k1, k2 := t1.Object.(*kernels.Linear), t2.Object.(*kernels.Linear)
	z1, err := inducingInputs(t1.Feature, g.Dim())
	if err != nil {
		return nil, err
	}
	z2, err := inducingInputs(t2.Feature, g.Dim())
	if err != nil {
		return nil, err
	}
	zv1, zv2 := weighted(k1, z1), weighted(k2, z2)
	out := make(utils.Batch, g.Len())
	for n := range out {
		out[n] = new(mat.Dense)
		out[n].Product(zv1, secondMoment(mean(g, n), g.Cov[n]), zv2.T())
	}
	return out, nil
}
