package expectations

import (
	"github.com/lucasmaystre/gosvgp/distributions"
	"github.com/lucasmaystre/gosvgp/kernels"
	"github.com/lucasmaystre/gosvgp/utils"
)

func registerCombinations(b *Builder) {
	b.Register("sum", sumLeft, gaussian, sumKernel, featureOrNone, none, none)
	b.Register("sum-sum", sumSum, gaussian, sumKernel, anyFeature, sumKernel, anyFeature)
	b.Register("sum-kernel", sumLeft, gaussian, sumKernel, anyFeature, anyKernel, anyFeature)
	b.Register("kernel-sum", sumRight, gaussian, anyKernel, anyFeature, sumKernel, anyFeature)
	b.Register("sum-identity", sumLeft, gaussian, sumKernel, anyFeature, identityMean, none)
	b.Register("sum-identity markov", sumLeft, markov, sumKernel, anyFeature, identityMean, none)
	for _, mean := range exactMeans {
		b.Register("mean-sum", sumRight, gaussian, mean, none, sumKernel, anyFeature)
	}

	b.Register("product", productSingle, diagonal, productKernel, featureOrNone, none, none)
	b.Register("product-product", productProduct, diagonal, productKernel, anyFeature, productKernel, anyFeature)
}

// accumulate sums the expectations of the given term pairs.
func accumulate(e *Evaluator, p distributions.Distribution, pairs [][2]Term) (utils.Batch, error) {
	var total utils.Batch
	for _, pair := range pairs {
		part, err := e.Expectation(p, pair[0], pair[1])
		if err != nil {
			return nil, err
		}
		if total == nil {
			total = part
			continue
		}
		if err := total.Accumulate(part); err != nil {
			return nil, err
		}
	}
	return total, nil
}

// Expectation of a sum kernel in the first term: the sum over its parts.
func sumLeft(e *Evaluator, p distributions.Distribution, t1, t2 Term) (utils.Batch, error) {
	parts := t1.Object.(*kernels.Sum).Parts
	pairs := make([][2]Term, len(parts))
	for i, part := range parts {
		pairs[i] = [2]Term{On(part, t1.Feature), t2}
	}
	return accumulate(e, p, pairs)
}

func sumRight(e *Evaluator, p distributions.Distribution, t1, t2 Term) (utils.Batch, error) {
	parts := t2.Object.(*kernels.Sum).Parts
	pairs := make([][2]Term, len(parts))
	for i, part := range parts {
		pairs[i] = [2]Term{t1, On(part, t2.Feature)}
	}
	return accumulate(e, p, pairs)
}

func sumSum(e *Evaluator, p distributions.Distribution, t1, t2 Term) (utils.Batch, error) {
	parts1, parts2 := t1.Object.(*kernels.Sum).Parts, t2.Object.(*kernels.Sum).Parts
	pairs := make([][2]Term, 0, len(parts1)*len(parts2))
	for _, a := range parts1 {
		for _, b := range parts2 {
			pairs = append(pairs, [2]Term{On(a, t1.Feature), On(b, t2.Feature)})
		}
	}
	return accumulate(e, p, pairs)
}

// multiply takes the elementwise product of the expectations of the given
// term pairs.
func multiply(e *Evaluator, p distributions.Distribution, pairs [][2]Term) (utils.Batch, error) {
	var total utils.Batch
	for _, pair := range pairs {
		part, err := e.Expectation(p, pair[0], pair[1])
		if err != nil {
			return nil, err
		}
		if total == nil {
			total = part
			continue
		}
		if err := total.MulElem(part); err != nil {
			return nil, err
		}
	}
	return total, nil
}

// Under a diagonal Gaussian, parts of a product acting on separate
// dimensions are independent and their expectations factorize.
func productSingle(e *Evaluator, p distributions.Distribution, t1, t2 Term) (utils.Batch, error) {
	k := t1.Object.(*kernels.Product)
	if !k.PartsOnSeparateDims() {
		return e.Expectation(p.(*distributions.DiagonalGaussian).ToGaussian(), t1, t2)
	}
	pairs := make([][2]Term, len(k.Parts))
	for i, part := range k.Parts {
		pairs[i] = [2]Term{{Object: part, Feature: t1.Feature}, {}}
	}
	return multiply(e, p, pairs)
}

// <K_{Z, x} K_{x, Z'}> for the same product kernel on both sides.
func productProduct(e *Evaluator, p distributions.Distribution, t1, t2 Term) (utils.Batch, error) {
	k1, k2 := t1.Object.(*kernels.Product), t2.Object.(*kernels.Product)
	if k1 != k2 || !k1.PartsOnSeparateDims() {
		return e.Expectation(p.(*distributions.DiagonalGaussian).ToGaussian(), t1, t2)
	}
	pairs := make([][2]Term, len(k1.Parts))
	for i, part := range k1.Parts {
		pairs[i] = [2]Term{On(part, t1.Feature), On(part, t2.Feature)}
	}
	return multiply(e, p, pairs)
}
