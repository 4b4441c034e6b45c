package expectations

import (
	"gonum.org/v1/gonum/mat"

	"github.com/lucasmaystre/gosvgp/dispatch"
	"github.com/lucasmaystre/gosvgp/distributions"
	"github.com/lucasmaystre/gosvgp/meanfuncs"
	"github.com/lucasmaystre/gosvgp/utils"
)

func registerMeanFunctions(b *Builder) {
	constants := dispatch.OneOf(constantMean, zeroMean)
	affines := dispatch.OneOf(linearMean, identityMean)

	b.Register("mean", meanSingle, gaussian, anyMean, none, none, none)
	b.Register("constant-mean", constantMeanLeft, gaussian, constants, none, anyMean, none)
	b.Register("mean-constant", transposed, gaussian, anyMean, none, constants, none)
	b.Register("affine-affine", affinePair, gaussian, affines, none, affines, none)

	b.Register("constant-kernel", constantMeanLeft, gaussian, constantMean, none, anyKernel, anyFeature)
	b.Register("zero-kernel", zeroMeanKernel, gaussian, zeroMean, none, anyKernel, anyFeature)
	b.Register("linear-kernel", linearMeanKernel, gaussian, linearMean, none, anyKernel, anyFeature)
	b.Register("kernel-mean", transposed, gaussian, anyKernel, anyFeature, anyMean, none)

	// Identity is a special case of the linear mean, but the linear handler
	// goes through <x K_{x, Z}> itself. Each kernel supporting the identity
	// mean needs an exact entry; every other kernel hits identityGuard.
	b.Register("identity-kernel", identityGuard, gaussian, identityMean, none, anyKernel, anyFeature)
	b.Register("identity-rbf", transposed, gaussian, identityMean, none, rbfKernel, inducing)
	b.Register("identity-linear", transposed, gaussian, identityMean, none, linearKernel, inducing)
	b.Register("identity-constant", transposed, gaussian, identityMean, none, constantKernel, anyFeature)

	// <K_{Z,x_n} x_{n+1}ᵀ>ᵀ across consecutive Markov steps.
	b.Register("identity-kernel markov", transposed, markov, identityMean, none,
		dispatch.OneOf(rbfKernel, linearKernel), inducing)
	b.Register("identity-combination markov", transposed, markov, identityMean, none,
		dispatch.OneOf(constantKernel, sumKernel), anyFeature)
}

// evaluateAt evaluates m at the mean of every point, one row per point.
func evaluateAt(m meanfuncs.MeanFunction, g *distributions.Gaussian) (utils.Batch, error) {
	if err := checkMean(m, g.Dim()); err != nil {
		return nil, err
	}
	return utils.BatchFromRows(m.Evaluate(g.Mu)), nil
}

// Mean functions are affine, so E[m(x)] = m(μ).
func meanSingle(e *Evaluator, p distributions.Distribution, t1, _ Term) (utils.Batch, error) {
	return evaluateAt(t1.Object.(meanfuncs.MeanFunction), p.(*distributions.Gaussian))
}

// c ⊗ <t2>, for a constant (or zero) mean in the first term.
func constantMeanLeft(e *Evaluator, p distributions.Distribution, t1, t2 Term) (utils.Batch, error) {
	c, err := evaluateAt(t1.Object.(meanfuncs.MeanFunction), p.(*distributions.Gaussian))
	if err != nil {
		return nil, err
	}
	other, err := e.Expectation(p, t2, Term{})
	if err != nil {
		return nil, err
	}
	return utils.Outer(c, other)
}

// affine returns (A, b) with m(x) = Aᵀ x + b.
func affine(m meanfuncs.MeanFunction, dim int) (*mat.Dense, error) {
	switch m := m.(type) {
	case *meanfuncs.Linear:
		if r, _ := m.A.Dims(); r != dim {
			return nil, utils.Shapef("linear mean on %d inputs, distribution has %d dimensions", r, dim)
		}
		return m.A, nil
	case *meanfuncs.Identity:
		if err := identityDim(m, dim); err != nil {
			return nil, err
		}
		return utils.Eye(dim), nil
	}
	return nil, utils.Shapef("%T is not affine", m)
}

// E[m1(x) m2(x)ᵀ] = A1ᵀ Σ A2 + m1(μ) m2(μ)ᵀ, Q1×Q2 per point.
func affinePair(e *Evaluator, p distributions.Distribution, t1, t2 Term) (utils.Batch, error) {
	g := p.(*distributions.Gaussian)
	m1, m2 := t1.Object.(meanfuncs.MeanFunction), t2.Object.(meanfuncs.MeanFunction)
	a1, err := affine(m1, g.Dim())
	if err != nil {
		return nil, err
	}
	a2, err := affine(m2, g.Dim())
	if err != nil {
		return nil, err
	}
	v1, err := evaluateAt(m1, g)
	if err != nil {
		return nil, err
	}
	v2, err := evaluateAt(m2, g)
	if err != nil {
		return nil, err
	}
	out, err := utils.Outer(v1, v2)
	if err != nil {
		return nil, err
	}
	for n := range out {
		var cov mat.Dense
		cov.Product(a1.T(), g.Cov[n], a2)
		out[n].Add(out[n], &cov)
	}
	return out, nil
}

func zeroMeanKernel(e *Evaluator, p distributions.Distribution, t1, t2 Term) (utils.Batch, error) {
	q := t1.Object.(*meanfuncs.Zero).OutputDim(p.Dim())
	return utils.NewBatch(p.Len(), q, t2.Feature.Len()), nil
}

// <m(x) K_{x, Z}> = Aᵀ <x K_{x, Z}> + b <K_{x, Z}>, Q×M per point.
func linearMeanKernel(e *Evaluator, p distributions.Distribution, t1, t2 Term) (utils.Batch, error) {
	g := p.(*distributions.Gaussian)
	m := t1.Object.(*meanfuncs.Linear)
	a, err := affine(m, g.Dim())
	if err != nil {
		return nil, err
	}
	xKxz, err := e.Expectation(p, Alone(meanfuncs.NewIdentity(g.Dim())), t2)
	if err != nil {
		return nil, err
	}
	kxz, err := e.Expectation(p, t2, Term{})
	if err != nil {
		return nil, err
	}
	b := make(utils.Batch, g.Len())
	for n := range b {
		b[n] = mat.NewDense(1, m.B.Len(), m.B.RawVector().Data)
	}
	out, err := utils.Outer(b, kxz)
	if err != nil {
		return nil, err
	}
	for n := range out {
		var ax mat.Dense
		ax.Mul(a.T(), xKxz[n])
		out[n].Add(out[n], &ax)
	}
	return out, nil
}

func identityGuard(e *Evaluator, p distributions.Distribution, t1, t2 Term) (utils.Batch, error) {
	return e.unsupported(p, t1, t2, "no closed form for the identity mean with this kernel")
}
