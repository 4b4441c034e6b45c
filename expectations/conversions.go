package expectations

import (
	"github.com/lucasmaystre/gosvgp/dispatch"
	"github.com/lucasmaystre/gosvgp/distributions"
	"github.com/lucasmaystre/gosvgp/kernels"
	"github.com/lucasmaystre/gosvgp/utils"
)

func registerConversions(b *Builder) {
	b.Register("diagonal to full", fromDiagonal, diagonal, dispatch.Any, featureOrNone, dispatch.Any, featureOrNone)
	b.Register("diagonal separable", diagonalSeparable, diagonal, anyKernel, inducing, anyKernel, inducing)
	b.Register("markov marginals", fromMarkov, markov, dispatch.Any, featureOrNone, dispatch.Any, featureOrNone)
}

func fromDiagonal(e *Evaluator, p distributions.Distribution, t1, t2 Term) (utils.Batch, error) {
	return e.Expectation(p.(*distributions.DiagonalGaussian).ToGaussian(), t1, t2)
}

// Under a diagonal Gaussian, kernels on separate dimensions are independent:
// <K_{Z, x} K_{x, Z'}> = <K_{Z, x}> <K_{x, Z'}>.
func diagonalSeparable(e *Evaluator, p distributions.Distribution, t1, t2 Term) (utils.Batch, error) {
	k1, k2 := t1.Object.(kernels.Kernel), t2.Object.(kernels.Kernel)
	if !kernels.OnSeparateDims(k1, k2) {
		return fromDiagonal(e, p, t1, t2)
	}
	a, err := e.Expectation(p, t1, Term{})
	if err != nil {
		return nil, err
	}
	b, err := e.Expectation(p, t2, Term{})
	if err != nil {
		return nil, err
	}
	return utils.Outer(a, b)
}

// A single term only sees one marginal per transition: x_n for the first
// term, x_{n+1} for the second. Pairs need a dedicated handler.
func fromMarkov(e *Evaluator, p distributions.Distribution, t1, t2 Term) (utils.Batch, error) {
	mg := p.(*distributions.MarkovGaussian)
	switch {
	case t1.IsNone() && t2.IsNone():
		return nil, utils.Shapef("expectation of no term")
	case t2.IsNone():
		return e.Expectation(mg.Head(), t1, Term{})
	case t1.IsNone():
		return e.Expectation(mg.Tail(), t2, Term{})
	}
	return e.unsupported(p, t1, t2, "no closed form across consecutive Markov steps")
}
