package features

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/lucasmaystre/gosvgp/dispatch"
	"github.com/lucasmaystre/gosvgp/kernels"
	"github.com/lucasmaystre/gosvgp/utils"
)

// KuuFunc computes the M×M covariance between inducing variables, with jitter
// added to the diagonal.
type KuuFunc func(feat InducingFeature, kern kernels.Kernel, jitter float64) (*mat.SymDense, error)

// KufFunc computes the M×N cross-covariance between inducing variables and
// function values at the rows of X.
type KufFunc func(feat InducingFeature, kern kernels.Kernel, x mat.Matrix) (*mat.Dense, error)

// Builder collects Kuu and Kuf implementations keyed on (feature, kernel).
type Builder struct {
	Kuu *dispatch.Builder[KuuFunc]
	Kuf *dispatch.Builder[KufFunc]
}

// NewBuilder returns a builder holding the built-in implementations. Further
// (feature, kernel) pairs can be registered before calling Build.
func NewBuilder(opts ...dispatch.Option) *Builder {
	b := &Builder{
		Kuu: dispatch.NewBuilder[KuuFunc]("Kuu", 2, opts...),
		Kuf: dispatch.NewBuilder[KufFunc]("Kuf", 2, opts...),
	}
	points := dispatch.Type[*InducingPoints]()
	b.Kuu.Register("inducing-points", kuuInducingPoints, points, dispatch.Type[kernels.Kernel]())
	b.Kuf.Register("inducing-points", kufInducingPoints, points, dispatch.Type[kernels.Kernel]())

	ms := dispatch.Type[*Multiscale]()
	b.Kuu.Register("multiscale-rbf", kuuMultiscale, ms, dispatch.Type[*kernels.RBF]())
	b.Kuf.Register("multiscale-rbf", kufMultiscale, ms, dispatch.Type[*kernels.RBF]())
	return b
}

func (b *Builder) Build() (*Catalog, error) {
	kuu, err := b.Kuu.Build()
	if err != nil {
		return nil, err
	}
	kuf, err := b.Kuf.Build()
	if err != nil {
		return nil, err
	}
	return &Catalog{kuu: kuu, kuf: kuf}, nil
}

// Catalog resolves feature covariances by the runtime types of the feature
// and the kernel.
type Catalog struct {
	kuu *dispatch.Table[KuuFunc]
	kuf *dispatch.Table[KufFunc]
}

func (c *Catalog) Kuu(feat InducingFeature, kern kernels.Kernel, jitter float64) (*mat.SymDense, error) {
	fn, _, err := c.kuu.Resolve(feat, kern)
	if err != nil {
		return nil, err
	}
	return fn(feat, kern, jitter)
}

func (c *Catalog) Kuf(feat InducingFeature, kern kernels.Kernel, x mat.Matrix) (*mat.Dense, error) {
	fn, _, err := c.kuf.Resolve(feat, kern)
	if err != nil {
		return nil, err
	}
	return fn(feat, kern, x)
}

// Tables exposes the underlying dispatch tables for introspection.
func (c *Catalog) Tables() (*dispatch.Table[KuuFunc], *dispatch.Table[KufFunc]) {
	return c.kuu, c.kuf
}

func kuuInducingPoints(feat InducingFeature, kern kernels.Kernel, jitter float64) (*mat.SymDense, error) {
	z := feat.(*InducingPoints).Z
	return utils.AddJitter(kern.KSym(z), jitter), nil
}

func kufInducingPoints(feat InducingFeature, kern kernels.Kernel, x mat.Matrix) (*mat.Dense, error) {
	z := feat.(*InducingPoints).Z
	if err := checkCols(z, x); err != nil {
		return nil, err
	}
	return kern.K(z, x), nil
}

func kuuMultiscale(feat InducingFeature, kern kernels.Kernel, jitter float64) (*mat.SymDense, error) {
	f, k := feat.(*Multiscale), kern.(*kernels.RBF)
	z, s := k.Slice(f.Z), k.Slice(f.Scales)
	m, dim := z.Dims()
	out := mat.NewSymDense(m, nil)
	for i := 0; i < m; i++ {
		for j := i; j < m; j++ {
			// sc = sqrt((l + s_i)^2 + (l + s_j)^2 - l^2)
			d2, prod := 0.0, 1.0
			for d := 0; d < dim; d++ {
				l := k.Lengthscale(d)
				li, lj := l+s.At(i, d), l+s.At(j, d)
				sc := math.Sqrt(li*li + lj*lj - l*l)
				diff := (z.At(i, d) - z.At(j, d)) / sc
				d2 += diff * diff
				prod *= l / sc
			}
			out.SetSym(i, j, k.Variance*math.Exp(-0.5*d2)*prod)
		}
	}
	return utils.AddJitter(out, jitter), nil
}

func kufMultiscale(feat InducingFeature, kern kernels.Kernel, x mat.Matrix) (*mat.Dense, error) {
	f, k := feat.(*Multiscale), kern.(*kernels.RBF)
	if err := checkCols(f.Z, x); err != nil {
		return nil, err
	}
	z, s, x := k.Slice(f.Z), k.Slice(f.Scales), k.Slice(x)
	m, dim := z.Dims()
	n, _ := x.Dims()
	out := mat.NewDense(m, n, nil)
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			d2, prod := 0.0, 1.0
			for d := 0; d < dim; d++ {
				l := k.Lengthscale(d)
				sc := l + s.At(i, d)
				diff := (x.At(j, d) - z.At(i, d)) / sc
				d2 += diff * diff
				prod *= l / sc
			}
			out.Set(i, j, k.Variance*math.Exp(-0.5*d2)*prod)
		}
	}
	return out, nil
}

func checkCols(z, x mat.Matrix) error {
	_, dz := z.Dims()
	_, dx := x.Dims()
	if dz != dx {
		return utils.Shapef("inducing inputs have %d columns, X has %d", dz, dx)
	}
	return nil
}
