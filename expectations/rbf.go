package expectations

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/lucasmaystre/gosvgp/distributions"
	"github.com/lucasmaystre/gosvgp/kernels"
	"github.com/lucasmaystre/gosvgp/meanfuncs"
	"github.com/lucasmaystre/gosvgp/utils"
)

func registerRBF(b *Builder) {
	b.Register("rbf eKdiag", rbfKdiag, gaussian, rbfKernel, none, none, none)
	b.Register("rbf eKxz", rbfKxz, gaussian, rbfKernel, inducing, none, none)
	b.Register("rbf exKxz", rbfXKxz, gaussian, rbfKernel, inducing, identityMean, none)
	b.Register("rbf exKxz markov", rbfXKxzMarkov, markov, rbfKernel, inducing, identityMean, none)
	b.Register("rbf eKzxKxz", rbfKzxKxz, gaussian, rbfKernel, inducing, rbfKernel, inducing)
	b.Register("rbf-linear eKzxKxz", rbfLinearKzxKxz, gaussian, rbfKernel, inducing, linearKernel, inducing)
	b.Register("linear-rbf eKzxKxz", transposed, gaussian, linearKernel, inducing, rbfKernel, inducing)
}

// rbfTilt integrates an RBF bump against the distribution of one point. On
// the kernel's active dimensions, with Λ = diag(ℓ²):
//
//	E[k(z, x)] = σ² sqrt(|Λ| / |Λ + Σ|) exp(-½ (z - μ)ᵀ (Λ + Σ)⁻¹ (z - μ))
type rbfTilt struct {
	dims  []int
	mu    []float64
	chol  *mat.TriDense // chol(Λ + Σ)
	scale float64       // σ² sqrt(|Λ| / |Λ + Σ|)
}

func newRBFTilt(k *kernels.RBF, mu []float64, cov mat.Symmetric) (*rbfTilt, error) {
	dims := dimsOf(k, len(mu))
	b := pickSym(cov, dims)
	scale := k.Variance
	for i := range dims {
		l := k.Lengthscale(i)
		b.SetSym(i, i, b.At(i, i)+l*l)
		scale *= l
	}
	chol, err := utils.Cholesky(b)
	if err != nil {
		return nil, err
	}
	for i := range dims {
		scale /= chol.At(i, i)
	}
	return &rbfTilt{dims: dims, mu: pickVec(mu, dims), chol: chol, scale: scale}, nil
}

// solve returns the columns (Λ + Σ)⁻¹ (z_j - μ) for every row z_j of Z,
// together with E[k(z_j, x)].
func (r *rbfTilt) solve(z *mat.Dense) (*mat.Dense, []float64) {
	m, _ := z.Dims()
	diff := mat.NewDense(len(r.dims), m, nil)
	for j := 0; j < m; j++ {
		for a, d := range r.dims {
			diff.Set(a, j, z.At(j, d)-r.mu[a])
		}
	}
	half := utils.SolveLower(r.chol, false, diff)
	vals := make([]float64, m)
	for j := range vals {
		vals[j] = r.scale * math.Exp(-0.5*sqNorm(half, j))
	}
	return utils.SolveLower(r.chol, true, half), vals
}

// shift returns Σ_{i,dims} (Λ + Σ)⁻¹ (z_j - μ) for output coordinate i,
// where cross(i, d) is the covariance between that coordinate and x_d.
func (r *rbfTilt) shift(sol *mat.Dense, j int, cross func(d int) float64) float64 {
	s := 0.0
	for a, d := range r.dims {
		s += cross(d) * sol.At(a, j)
	}
	return s
}

func sqNorm(a mat.Matrix, j int) float64 {
	r, _ := a.Dims()
	s := 0.0
	for i := 0; i < r; i++ {
		v := a.At(i, j)
		s += v * v
	}
	return s
}

func rbfKdiag(e *Evaluator, p distributions.Distribution, t1, _ Term) (utils.Batch, error) {
	k := t1.Object.(*kernels.RBF)
	out := utils.NewBatch(p.Len(), 1, 1)
	for _, m := range out {
		m.Set(0, 0, k.Variance)
	}
	return out, nil
}

// <K_{x, Z}>, 1×M per point.
func rbfKxz(e *Evaluator, p distributions.Distribution, t1, _ Term) (utils.Batch, error) {
	g, k := p.(*distributions.Gaussian), t1.Object.(*kernels.RBF)
	z, err := inducingInputs(t1.Feature, g.Dim())
	if err != nil {
		return nil, err
	}
	m, _ := z.Dims()
	out := utils.NewBatch(g.Len(), 1, m)
	for n := range out {
		tilt, err := newRBFTilt(k, mean(g, n), g.Cov[n])
		if err != nil {
			return nil, err
		}
		_, vals := tilt.solve(z)
		out[n].SetRow(0, vals)
	}
	return out, nil
}

// <K_{Z, x} xᵀ>, M×D per point.
func rbfXKxz(e *Evaluator, p distributions.Distribution, t1, t2 Term) (utils.Batch, error) {
	g, k := p.(*distributions.Gaussian), t1.Object.(*kernels.RBF)
	dim := g.Dim()
	if err := identityDim(t2.Object.(*meanfuncs.Identity), dim); err != nil {
		return nil, err
	}
	z, err := inducingInputs(t1.Feature, dim)
	if err != nil {
		return nil, err
	}
	m, _ := z.Dims()
	out := utils.NewBatch(g.Len(), m, dim)
	for n := range out {
		mu, cov := mean(g, n), g.Cov[n]
		tilt, err := newRBFTilt(k, mu, cov)
		if err != nil {
			return nil, err
		}
		sol, vals := tilt.solve(z)
		for j := 0; j < m; j++ {
			for i := 0; i < dim; i++ {
				// tilted mean: μ + Σ_{:,dims} (Λ + Σ)⁻¹ (z - μ)
				s := mu[i] + tilt.shift(sol, j, func(d int) float64 { return cov.At(i, d) })
				out[n].Set(j, i, vals[j]*s)
			}
		}
	}
	return out, nil
}

// <K_{Z, x_n} x_{n+1}ᵀ>, M×D for each of the T-1 transitions.
func rbfXKxzMarkov(e *Evaluator, p distributions.Distribution, t1, t2 Term) (utils.Batch, error) {
	mg, k := p.(*distributions.MarkovGaussian), t1.Object.(*kernels.RBF)
	dim := mg.Dim()
	if err := identityDim(t2.Object.(*meanfuncs.Identity), dim); err != nil {
		return nil, err
	}
	z, err := inducingInputs(t1.Feature, dim)
	if err != nil {
		return nil, err
	}
	m, _ := z.Dims()
	out := utils.NewBatch(mg.Len()-1, m, dim)
	for n := range out {
		tilt, err := newRBFTilt(k, mg.Mu.RawRowView(n), mg.Cov[n])
		if err != nil {
			return nil, err
		}
		next, cross := mg.Mu.RawRowView(n+1), mg.Cross[n]
		sol, vals := tilt.solve(z)
		for j := 0; j < m; j++ {
			for i := 0; i < dim; i++ {
				// Cov(x_{n+1,i}, x_{n,d}) = C_n[d, i]
				s := next[i] + tilt.shift(sol, j, func(d int) float64 { return cross.At(d, i) })
				out[n].Set(j, i, vals[j]*s)
			}
		}
	}
	return out, nil
}

// <K_{Z, x} K_{x, Z'}> for two RBF kernels on the same dimensions, M×M' per
// point. The product of the two bumps is a bump of precision
// P = Λ1⁻¹ + Λ2⁻¹ centred at c = P⁻¹ (Λ1⁻¹ z + Λ2⁻¹ z'), scaled by
// exp(-½ (z - z')ᵀ (Λ1 + Λ2)⁻¹ (z - z')).
func rbfKzxKxz(e *Evaluator, p distributions.Distribution, t1, t2 Term) (utils.Batch, error) {
	g := p.(*distributions.Gaussian)
	k1, k2 := t1.Object.(*kernels.RBF), t2.Object.(*kernels.RBF)
	if !kernels.SameDims(k1, k2) {
		return e.unsupported(p, t1, t2, "rbf kernels on different active dimensions")
	}
	dim := g.Dim()
	z1, err := inducingInputs(t1.Feature, dim)
	if err != nil {
		return nil, err
	}
	z2, err := inducingInputs(t2.Feature, dim)
	if err != nil {
		return nil, err
	}
	m1, _ := z1.Dims()
	m2, _ := z2.Dims()
	dims := dimsOf(k1, dim)
	nd := len(dims)

	pinv := make([]float64, nd)
	w1, w2 := make([]float64, nd), make([]float64, nd)
	sumL := make([]float64, nd)
	prefactor := k1.Variance * k2.Variance
	for a := range dims {
		l1, l2 := k1.Lengthscale(a), k2.Lengthscale(a)
		l1, l2 = l1*l1, l2*l2
		pinv[a] = l1 * l2 / (l1 + l2)
		w1[a], w2[a] = 1/l1, 1/l2
		sumL[a] = l1 + l2
		prefactor *= math.Sqrt(pinv[a])
	}

	// Centres and the z-z' factor do not depend on the point.
	centres := mat.NewDense(nd, m1*m2, nil)
	between := make([]float64, m1*m2)
	for i := 0; i < m1; i++ {
		for j := 0; j < m2; j++ {
			col := i*m2 + j
			for a, d := range dims {
				za, zb := z1.At(i, d), z2.At(j, d)
				centres.Set(a, col, pinv[a]*(w1[a]*za+w2[a]*zb))
				between[col] += (za - zb) * (za - zb) / sumL[a]
			}
		}
	}

	out := utils.NewBatch(g.Len(), m1, m2)
	for n := range out {
		mu := pickVec(mean(g, n), dims)
		s := pickSym(g.Cov[n], dims)
		for a := range dims {
			s.SetSym(a, a, s.At(a, a)+pinv[a])
		}
		chol, err := utils.Cholesky(s)
		if err != nil {
			return nil, err
		}
		norm := prefactor
		for a := range dims {
			norm /= chol.At(a, a)
		}
		diff := mat.NewDense(nd, m1*m2, nil)
		diff.Apply(func(a, col int, c float64) float64 {
			return mu[a] - c
		}, centres)
		half := utils.SolveLower(chol, false, diff)
		for i := 0; i < m1; i++ {
			for j := 0; j < m2; j++ {
				col := i*m2 + j
				out[n].Set(i, j, norm*math.Exp(-0.5*(between[col]+sqNorm(half, col))))
			}
		}
	}
	return out, nil
}

// <K_{Z, x} K_{x, Z'}> for an RBF and a linear kernel, M×M' per point. The
// linear kernel is evaluated at the RBF-tilted mean of x.
func rbfLinearKzxKxz(e *Evaluator, p distributions.Distribution, t1, t2 Term) (utils.Batch, error) {
	g := p.(*distributions.Gaussian)
	k1, k2 := t1.Object.(*kernels.RBF), t2.Object.(*kernels.Linear)
	dim := g.Dim()
	z1, err := inducingInputs(t1.Feature, dim)
	if err != nil {
		return nil, err
	}
	z2, err := inducingInputs(t2.Feature, dim)
	if err != nil {
		return nil, err
	}
	m1, _ := z1.Dims()
	m2, _ := z2.Dims()
	dims2 := dimsOf(k2, dim)

	out := utils.NewBatch(g.Len(), m1, m2)
	tilted := make([]float64, len(dims2))
	for n := range out {
		mu, cov := mean(g, n), g.Cov[n]
		tilt, err := newRBFTilt(k1, mu, cov)
		if err != nil {
			return nil, err
		}
		sol, vals := tilt.solve(z1)
		for i := 0; i < m1; i++ {
			for b, d := range dims2 {
				tilted[b] = mu[d] + tilt.shift(sol, i, func(c int) float64 { return cov.At(d, c) })
			}
			for j := 0; j < m2; j++ {
				s := 0.0
				for b, d := range dims2 {
					s += k2.Variance(b) * tilted[b] * z2.At(j, d)
				}
				out[n].Set(i, j, vals[i]*s)
			}
		}
	}
	return out, nil
}
