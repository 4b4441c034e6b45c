package conditionals

import (
	"gonum.org/v1/gonum/mat"

	"github.com/lucasmaystre/gosvgp/utils"
)

// QSqrt is the square root of the covariance over the function values, one
// factor per output. Exactly one of Diag (M×R standard deviations) and Tril
// (R lower triangular M×M factors) is set.
type QSqrt struct {
	Diag *mat.Dense
	Tril []*mat.TriDense
}

// NewDiagQSqrt wraps M×R standard deviations.
func NewDiagQSqrt(diag *mat.Dense) *QSqrt {
	return &QSqrt{Diag: diag}
}

// NewTrilQSqrt keeps the lower triangle of each M×M factor.
func NewTrilQSqrt(factors ...mat.Matrix) *QSqrt {
	tril := make([]*mat.TriDense, len(factors))
	for i, f := range factors {
		tril[i] = utils.LowerTriangle(f)
	}
	return &QSqrt{Tril: tril}
}

func (q *QSqrt) check(m, r int) error {
	switch {
	case q.Diag != nil && q.Tril != nil:
		return utils.Shapef("q_sqrt has both diagonal and triangular factors")
	case q.Diag != nil:
		if qm, qr := q.Diag.Dims(); qm != m || qr != r {
			return utils.Shapef("q_sqrt is %dx%d, want %dx%d", qm, qr, m, r)
		}
	case q.Tril != nil:
		if len(q.Tril) != r {
			return utils.Shapef("q_sqrt has %d factors for %d outputs", len(q.Tril), r)
		}
		for i, l := range q.Tril {
			if n, _ := l.Dims(); n != m {
				return utils.Shapef("q_sqrt factor %d is %dx%d, want %dx%d", i, n, n, m, m)
			}
		}
	default:
		return utils.Shapef("empty q_sqrt")
	}
	return nil
}

// project returns Lqᵀ A for output r, with Lq the r-th factor.
func (q *QSqrt) project(r int, a *mat.Dense) *mat.Dense {
	var out mat.Dense
	if q.Diag != nil {
		m, n := a.Dims()
		out.ReuseAs(m, n)
		for i := 0; i < m; i++ {
			s := q.Diag.At(i, r)
			for j := 0; j < n; j++ {
				out.Set(i, j, s*a.At(i, j))
			}
		}
		return &out
	}
	out.Mul(q.Tril[r].T(), a)
	return &out
}

// Options control a conditional computation.
type Options struct {
	// Return the full N×N covariance per output instead of variances.
	FullCov bool
	// Return covariances between outputs. Only used by Catalog.Conditional.
	FullOutputCov bool
	// f and QSqrt are given in the whitened basis.
	White bool
	QSqrt *QSqrt
}

// BaseConditional computes the mean and variance of g(Xnew) given f = g(Z),
// or q(f) = N(f, QSqrt QSqrtᵀ) when QSqrt is set.
//
// kmn is M×N, kmm is M×M (jitter already added by the caller) and f is M×R.
// knn is N×N when opts.FullCov is set; otherwise either an N×1 vector of prior
// variances or the full N×N matrix, of which only the diagonal is read.
// The mean is N×R; the variance is N×R, or R×N×N when opts.FullCov is set.
func BaseConditional(kmn mat.Matrix, kmm mat.Symmetric, knn mat.Matrix, f mat.Matrix,
	opts Options) (*mat.Dense, *utils.Tensor, error) {
	m, n := kmn.Dims()
	fm, r := f.Dims()
	if kmm.SymmetricDim() != m {
		return nil, nil, utils.Shapef("Kmm is %dx%d but Kmn has %d rows",
			kmm.SymmetricDim(), kmm.SymmetricDim(), m)
	}
	if fm != m {
		return nil, nil, utils.Shapef("f has %d rows, want %d", fm, m)
	}
	prior, err := priorVariance(knn, n, opts.FullCov)
	if err != nil {
		return nil, nil, err
	}
	if opts.QSqrt != nil {
		if err := opts.QSqrt.check(m, r); err != nil {
			return nil, nil, err
		}
	}

	// L = chol(Kmm), A = L⁻¹ Kmn
	lm, err := utils.Cholesky(kmm)
	if err != nil {
		return nil, nil, err
	}
	a := utils.SolveLower(lm, false, kmn)

	// fvar = Knn - AᵀA
	var fvar mat.Dense
	if opts.FullCov {
		fvar.Mul(a.T(), a)
		fvar.Sub(prior, &fvar)
	} else {
		fvar.CloneFrom(prior)
		for j := 0; j < n; j++ {
			fvar.Set(j, 0, fvar.At(j, 0)-colSquares(a, j))
		}
	}

	// A = L⁻ᵀ A
	if !opts.White {
		a = utils.SolveLower(lm, true, a)
	}

	// mean = Aᵀ f
	mean := mat.NewDense(n, r, nil)
	mean.Mul(a.T(), f)

	var variance *utils.Tensor
	if opts.FullCov {
		variance = utils.NewTensor(r, n, n)
	} else {
		variance = utils.NewTensor(n, r)
	}
	for k := 0; k < r; k++ {
		var lta *mat.Dense
		if opts.QSqrt != nil {
			lta = opts.QSqrt.project(k, a)
		}
		if opts.FullCov {
			out := variance.Sub(k)
			out.Copy(&fvar)
			if lta != nil {
				var extra mat.Dense
				extra.Mul(lta.T(), lta)
				out.Add(out, &extra)
			}
			for j := 0; j < n; j++ {
				out.Set(j, j, clamp(out.At(j, j)))
			}
			continue
		}
		for j := 0; j < n; j++ {
			v := fvar.At(j, 0)
			if lta != nil {
				v += colSquares(lta, j)
			}
			variance.Set(clamp(v), j, k)
		}
	}
	return mean, variance, nil
}

// priorVariance returns Knn as N×N for full covariances, or as an N×1 column
// of variances otherwise.
func priorVariance(knn mat.Matrix, n int, full bool) (*mat.Dense, error) {
	r, c := knn.Dims()
	switch {
	case full && r == n && c == n:
		return mat.DenseCopyOf(knn), nil
	case full:
		return nil, utils.Shapef("Knn is %dx%d, want %dx%d for full covariance", r, c, n, n)
	case r == n && c == 1:
		return mat.DenseCopyOf(knn), nil
	case r == n && c == n:
		return mat.NewDense(n, 1, utils.Diag(knn)), nil
	}
	return nil, utils.Shapef("Knn is %dx%d, want %dx1 or %dx%d", r, c, n, n, n)
}

func colSquares(a mat.Matrix, j int) float64 {
	m, _ := a.Dims()
	s := 0.0
	for i := 0; i < m; i++ {
		v := a.At(i, j)
		s += v * v
	}
	return s
}

// Round-off can push variances slightly below zero.
func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
