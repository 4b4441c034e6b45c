// Package conditionals computes GP conditionals p(g(Xnew) | f) where f are
// function values (or a Gaussian over them) at a set of reference locations.
package conditionals

import (
	"log/slog"

	"gonum.org/v1/gonum/mat"

	"github.com/lucasmaystre/gosvgp/config"
	"github.com/lucasmaystre/gosvgp/dispatch"
	"github.com/lucasmaystre/gosvgp/features"
	"github.com/lucasmaystre/gosvgp/kernels"
	"github.com/lucasmaystre/gosvgp/utils"
)

// Handler computes a conditional for one (reference, kernel) combination.
type Handler func(c *Catalog, xnew mat.Matrix, ref interface{}, kern kernels.Kernel,
	f mat.Matrix, opts Options) (*mat.Dense, *utils.Tensor, error)

type Builder struct {
	*dispatch.Builder[Handler]
	features *features.Catalog
	jitter   float64
	logger   *slog.Logger
}

// NewBuilder returns a builder holding the feature-keyed and the array-keyed
// conditionals. The jitter is read from settings once, here.
func NewBuilder(feats *features.Catalog, settings config.Settings, logger *slog.Logger,
	opts ...dispatch.Option) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Builder{
		Builder:  dispatch.NewBuilder[Handler]("conditional", 2, opts...),
		features: feats,
		jitter:   settings.Jitter,
		logger:   logger,
	}
	b.Register("inducing-feature", featureConditional,
		dispatch.Type[features.InducingFeature](), dispatch.Type[kernels.Kernel]())
	b.Register("inducing-inputs", arrayConditional,
		dispatch.Type[mat.Matrix](), dispatch.Type[kernels.Kernel]())
	return b
}

func (b *Builder) Build() (*Catalog, error) {
	table, err := b.Builder.Build()
	if err != nil {
		return nil, err
	}
	return &Catalog{
		table:    table,
		features: b.features,
		jitter:   b.jitter,
		logger:   b.logger,
	}, nil
}

// Catalog is the immutable set of conditional implementations. It is safe
// for concurrent use.
type Catalog struct {
	table    *dispatch.Table[Handler]
	features *features.Catalog
	jitter   float64
	logger   *slog.Logger
}

func (c *Catalog) Table() *dispatch.Table[Handler] { return c.table }
func (c *Catalog) Features() *features.Catalog     { return c.features }
func (c *Catalog) Jitter() float64                 { return c.jitter }

// Conditional returns the mean (N×R) and variance of g(Xnew) given f at ref,
// where ref is either an inducing feature or an M×D matrix of inputs. The
// variance shape follows ExpandIndependentOutputs.
func (c *Catalog) Conditional(xnew mat.Matrix, ref interface{}, kern kernels.Kernel,
	f mat.Matrix, opts Options) (*mat.Dense, *utils.Tensor, error) {
	h, _, err := c.table.Resolve(ref, kern)
	if err != nil {
		return nil, nil, err
	}
	return h(c, xnew, ref, kern, f, opts)
}

func featureConditional(c *Catalog, xnew mat.Matrix, ref interface{}, kern kernels.Kernel,
	f mat.Matrix, opts Options) (*mat.Dense, *utils.Tensor, error) {
	c.logger.Debug("conditional: inducing feature - kernel")
	feat := ref.(features.InducingFeature)
	kmm, err := c.features.Kuu(feat, kern, c.jitter)
	if err != nil {
		return nil, nil, err
	}
	kmn, err := c.features.Kuf(feat, kern, xnew)
	if err != nil {
		return nil, nil, err
	}
	return finish(kmn, kmm, prior(kern, xnew, opts.FullCov), f, opts)
}

func arrayConditional(c *Catalog, xnew mat.Matrix, ref interface{}, kern kernels.Kernel,
	f mat.Matrix, opts Options) (*mat.Dense, *utils.Tensor, error) {
	c.logger.Debug("conditional: inducing inputs - kernel")
	x := ref.(mat.Matrix)
	_, d := x.Dims()
	if _, dn := xnew.Dims(); dn != d {
		return nil, nil, utils.Shapef("Xnew has %d columns, reference inputs have %d", dn, d)
	}
	kmm := utils.AddJitter(kern.KSym(x), c.jitter)
	kmn := kern.K(x, xnew)
	return finish(kmn, kmm, prior(kern, xnew, opts.FullCov), f, opts)
}

func prior(kern kernels.Kernel, xnew mat.Matrix, full bool) mat.Matrix {
	if full {
		return kern.KSym(xnew)
	}
	return kern.KDiag(xnew)
}

func finish(kmn mat.Matrix, kmm mat.Symmetric, knn mat.Matrix, f mat.Matrix,
	opts Options) (*mat.Dense, *utils.Tensor, error) {
	mean, fvar, err := BaseConditional(kmn, kmm, knn, f, opts)
	if err != nil {
		return nil, nil, err
	}
	fvar, err = ExpandIndependentOutputs(fvar, opts.FullCov, opts.FullOutputCov)
	if err != nil {
		return nil, nil, err
	}
	return mean, fvar, nil
}
