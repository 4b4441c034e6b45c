package conditionals

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/lucasmaystre/gosvgp/config"
	"github.com/lucasmaystre/gosvgp/dispatch"
	"github.com/lucasmaystre/gosvgp/features"
	"github.com/lucasmaystre/gosvgp/kernels"
	"github.com/lucasmaystre/gosvgp/utils"
)

// fixedKernel returns precomputed covariances for 3 reference and 5 query
// points. Kmm = L Lᵀ with L = [[2,0,0],[1,1,0],[0,1,3]], and Kmn = L A with
// a simple 0/1 matrix A, so that every quantity can be worked out by hand.
type fixedKernel struct{}

var (
	fixedKmm = mat.NewSymDense(3, []float64{
		4, 2, 0,
		2, 2, 1,
		0, 1, 10,
	})
	fixedKmn = mat.NewDense(3, 5, []float64{
		2, 0, 0, 2, 0,
		1, 1, 0, 1, 1,
		0, 1, 3, 3, 1,
	})
	fixedKnn = []float64{2, 2, 2, 3, 2}
)

func (fixedKernel) K(x, y mat.Matrix) *mat.Dense { return mat.DenseCopyOf(fixedKmn) }

func (fixedKernel) KSym(x mat.Matrix) *mat.SymDense {
	if n, _ := x.Dims(); n == 3 {
		return utils.AddJitter(fixedKmm, 0)
	}
	return utils.DiagEmbed(fixedKnn)
}

func (fixedKernel) KDiag(x mat.Matrix) *mat.VecDense {
	return mat.NewVecDense(5, append([]float64(nil), fixedKnn...))
}

func (fixedKernel) ActiveDims() []int { return nil }

func newCatalog(t *testing.T, jitter float64) *Catalog {
	t.Helper()
	feats, err := features.NewBuilder().Build()
	require.NoError(t, err)
	settings := config.Default()
	settings.Jitter = jitter
	c, err := NewBuilder(feats, settings, nil).Build()
	require.NoError(t, err)
	return c
}

func TestHandComputedConditional(t *testing.T) {
	c := newCatalog(t, 0)
	z := mat.NewDense(3, 2, nil)
	xnew := mat.NewDense(5, 2, nil)
	f := mat.NewDense(3, 1, []float64{1, 2, 3})

	mean, fvar, err := c.Conditional(xnew, z, fixedKernel{}, f, Options{})
	require.NoError(t, err)
	// mean = Kmnᵀ Kmm⁻¹ f = Aᵀ y with L y = f, so y = (0.5, 1.5, 0.5).
	assert.True(t, mat.EqualApprox(mean, mat.NewDense(5, 1, []float64{0.5, 1.5, 0.5, 1, 1.5}), 1e-12))

	var alpha, direct mat.Dense
	require.NoError(t, alpha.Solve(fixedKmm, f))
	direct.Mul(fixedKmn.T(), &alpha)
	assert.True(t, mat.EqualApprox(mean, &direct, 1e-12))
	// Knn - colsum(A²) = (2, 2, 2, 3, 2) - (1, 1, 1, 2, 1).
	assert.Equal(t, []int{5, 1}, fvar.Shape())
	for i, v := range fvar.Data() {
		assert.InDelta(t, 1.0, v, 1e-12, "point %d", i)
		assert.GreaterOrEqual(t, v, 0.0)
	}
}

func TestBaseConditionalShapes(t *testing.T) {
	f := mat.NewDense(3, 1, []float64{1, 2, 3})
	knn := mat.NewVecDense(5, fixedKnn)
	tests := []struct {
		name string
		kmn  mat.Matrix
		kmm  mat.Symmetric
		knn  mat.Matrix
		f    mat.Matrix
		opts Options
	}{
		{"kmm", fixedKmn, mat.NewSymDense(2, nil), knn, f, Options{}},
		{"f", fixedKmn, fixedKmm, knn, mat.NewDense(2, 1, nil), Options{}},
		{"knn", fixedKmn, fixedKmm, mat.NewVecDense(4, nil), f, Options{}},
		{"full knn", fixedKmn, fixedKmm, knn, f, Options{FullCov: true}},
		{"q_sqrt", fixedKmn, fixedKmm, knn, f, Options{QSqrt: NewDiagQSqrt(mat.NewDense(3, 2, nil))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := BaseConditional(tt.kmn, tt.kmm, tt.knn, tt.f, tt.opts)
			assert.True(t, errors.Is(err, utils.ErrShape), "got %v", err)
		})
	}
}

func TestNotPositiveDefinite(t *testing.T) {
	kmm := mat.NewSymDense(3, []float64{
		1, 1, 0,
		1, 1, 0,
		0, 0, -1,
	})
	_, _, err := BaseConditional(fixedKmn, kmm, mat.NewVecDense(5, fixedKnn),
		mat.NewDense(3, 1, nil), Options{})
	assert.True(t, errors.Is(err, utils.ErrNotPositiveDefinite))
}

type problem struct {
	z, xnew, f *mat.Dense
	kern       kernels.Kernel
	qsqrt      []mat.Matrix
}

func newProblem() problem {
	return problem{
		z: mat.NewDense(3, 2, []float64{
			0, 0,
			1, 0.5,
			-1, 1,
		}),
		xnew: mat.NewDense(5, 2, []float64{
			0.2, 0.1,
			0.8, 0.4,
			-0.5, 0.5,
			2, -1,
			0, 1,
		}),
		f:    mat.NewDense(3, 2, []float64{1, -1, 0.5, 2, -0.3, 0.7}),
		kern: kernels.NewRBF(1.3, 0.9, 1.4),
		qsqrt: []mat.Matrix{
			mat.NewDense(3, 3, []float64{0.5, 0, 0, 0.1, 0.4, 0, -0.2, 0.1, 0.3}),
			mat.NewDense(3, 3, []float64{0.2, 0, 0, 0.05, 0.6, 0, 0.1, -0.1, 0.2}),
		},
	}
}

func TestWhiteAgreesWithNonWhite(t *testing.T) {
	c := newCatalog(t, 1e-6)
	p := newProblem()
	kmm := utils.AddJitter(p.kern.KSym(p.z), c.Jitter())
	l, err := utils.Cholesky(kmm)
	require.NoError(t, err)

	// Whitened values v = L⁻¹ f, whitened factors chol(L⁻¹ S Sᵀ L⁻ᵀ).
	fw := utils.SolveLower(l, false, p.f)
	white := make([]mat.Matrix, len(p.qsqrt))
	for i, s := range p.qsqrt {
		ls := utils.SolveLower(l, false, s)
		var cov mat.Dense
		cov.Mul(ls, ls.T())
		lw, err := utils.Cholesky(utils.Symmetrize(&cov))
		require.NoError(t, err)
		white[i] = lw
	}

	for _, full := range []bool{false, true} {
		opts := Options{FullCov: full, QSqrt: NewTrilQSqrt(p.qsqrt...)}
		mean, fvar, err := c.Conditional(p.xnew, p.z, p.kern, p.f, opts)
		require.NoError(t, err)

		wopts := Options{FullCov: full, White: true, QSqrt: NewTrilQSqrt(white...)}
		wmean, wvar, err := c.Conditional(p.xnew, p.z, p.kern, fw, wopts)
		require.NoError(t, err)

		assert.True(t, mat.EqualApprox(mean, wmean, 1e-8))
		assert.Equal(t, fvar.Shape(), wvar.Shape())
		assert.InDeltaSlice(t, fvar.Data(), wvar.Data(), 1e-8)
	}
}

func TestDiagonalMatchesFull(t *testing.T) {
	c := newCatalog(t, 1e-6)
	p := newProblem()
	for _, q := range []*QSqrt{nil, NewTrilQSqrt(p.qsqrt...), NewDiagQSqrt(mat.NewDense(3, 2, []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6}))} {
		for _, fullOutput := range []bool{false, true} {
			dmean, dvar, err := c.Conditional(p.xnew, p.z, p.kern, p.f,
				Options{FullOutputCov: fullOutput, QSqrt: q})
			require.NoError(t, err)
			fmean, fvar, err := c.Conditional(p.xnew, p.z, p.kern, p.f,
				Options{FullCov: true, FullOutputCov: fullOutput, QSqrt: q})
			require.NoError(t, err)
			assert.True(t, mat.EqualApprox(dmean, fmean, 1e-12))

			for n := 0; n < 5; n++ {
				for r := 0; r < 2; r++ {
					if fullOutput {
						assert.Equal(t, []int{5, 2, 2}, dvar.Shape())
						assert.Equal(t, []int{5, 2, 5, 2}, fvar.Shape())
						for s := 0; s < 2; s++ {
							assert.InDelta(t, fvar.At(n, r, n, s), dvar.At(n, r, s), 1e-10)
						}
					} else {
						assert.Equal(t, []int{5, 2}, dvar.Shape())
						assert.Equal(t, []int{2, 5, 5}, fvar.Shape())
						assert.InDelta(t, fvar.At(r, n, n), dvar.At(n, r), 1e-10)
						assert.GreaterOrEqual(t, dvar.At(n, r), 0.0)
					}
				}
			}
		}
	}
}

func TestFeatureMatchesInputs(t *testing.T) {
	c := newCatalog(t, 1e-6)
	p := newProblem()
	opts := Options{FullCov: true, QSqrt: NewTrilQSqrt(p.qsqrt...)}
	mean, fvar, err := c.Conditional(p.xnew, p.z, p.kern, p.f, opts)
	require.NoError(t, err)
	fmean, ffvar, err := c.Conditional(p.xnew, features.NewInducingPoints(p.z), p.kern, p.f, opts)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(mean, fmean, 1e-12))
	assert.InDeltaSlice(t, fvar.Data(), ffvar.Data(), 1e-12)
}

func TestConditionalErrors(t *testing.T) {
	c := newCatalog(t, 1e-6)
	p := newProblem()

	_, _, err := c.Conditional(p.xnew, nil, p.kern, p.f, Options{})
	assert.True(t, errors.Is(err, dispatch.ErrNoMatch))
	assert.True(t, dispatch.IsDispatchError(err))

	_, _, err = c.Conditional(mat.NewDense(5, 3, nil), p.z, p.kern, p.f, Options{})
	assert.True(t, errors.Is(err, utils.ErrShape))

	ms, err := features.NewMultiscale(p.z, mat.NewDense(3, 2, nil))
	require.NoError(t, err)
	_, _, err = c.Conditional(p.xnew, ms, kernels.NewLinear(1), p.f, Options{})
	assert.True(t, errors.Is(err, dispatch.ErrNoMatch))
}

func TestPosteriorAtReferenceInputs(t *testing.T) {
	// Without q_sqrt the conditional at Z interpolates f with no variance.
	c := newCatalog(t, 1e-10)
	p := newProblem()
	mean, fvar, err := c.Conditional(p.z, p.z, p.kern, p.f, Options{})
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(mean, p.f, 1e-6))
	for _, v := range fvar.Data() {
		assert.InDelta(t, 0.0, v, 1e-6)
	}
}
