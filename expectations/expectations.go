// Package expectations evaluates expectations of kernel and mean function
// terms under Gaussian input distributions.
//
// Every closed form is a handler in a dispatch table keyed on the types of
// (distribution, object 1, feature 1, object 2, feature 2). Absent terms and
// features take part in dispatch as dispatch.NoneType. Distribution families
// without a dedicated handler are converted (diagonal to full, Markov to its
// head or tail) and looked up again.
package expectations

import (
	"fmt"
	"log/slog"

	"github.com/lucasmaystre/gosvgp/config"
	"github.com/lucasmaystre/gosvgp/dispatch"
	"github.com/lucasmaystre/gosvgp/distributions"
	"github.com/lucasmaystre/gosvgp/features"
	"github.com/lucasmaystre/gosvgp/kernels"
	"github.com/lucasmaystre/gosvgp/meanfuncs"
	"github.com/lucasmaystre/gosvgp/utils"
)

// Term is one factor of an expectation: a kernel or a mean function, either
// alone or evaluated against an inducing feature. The zero Term is absent.
type Term struct {
	Object  interface{}
	Feature features.InducingFeature
}

// Alone evaluates a kernel (its variance) or a mean function on its own.
func Alone(obj interface{}) Term {
	return Term{Object: obj}
}

// On evaluates a kernel against the inducing variables of feat.
func On(obj interface{}, feat features.InducingFeature) Term {
	return Term{Object: obj, Feature: feat}
}

func (t Term) IsNone() bool {
	return t.Object == nil
}

// dispatch arguments, with a nil feature interface passed as untyped nil.
func (t Term) args() (interface{}, interface{}) {
	if t.Feature == nil {
		return t.Object, nil
	}
	return t.Object, t.Feature
}

func (t Term) String() string {
	switch {
	case t.IsNone():
		return "None"
	case t.Feature == nil:
		return fmt.Sprintf("%T", t.Object)
	}
	return fmt.Sprintf("(%T, %T)", t.Object, t.Feature)
}

// Handler evaluates one expectation. The result holds one matrix per point:
// 1×1 for a kernel alone, 1×M for a kernel on M inducing variables, 1×Q for a
// mean function with Q outputs, and dim1×dim2 when both terms are present.
type Handler func(e *Evaluator, p distributions.Distribution, t1, t2 Term) (utils.Batch, error)

type Option func(*Evaluator)

// WithQuadraturePoints overrides the number of Gauss-Hermite points per
// dimension for quadrature evaluated during this call.
func WithQuadraturePoints(n int) Option {
	return func(e *Evaluator) {
		if n > 0 {
			e.points = n
		}
	}
}

// Builder collects expectation handlers. Further handlers, for instance for
// kernels defined outside this module, can be registered before Build.
type Builder struct {
	*dispatch.Builder[Handler]
	features *features.Catalog
	settings config.Settings
	logger   *slog.Logger
}

// NewBuilder returns a builder holding every built-in closed form and the
// distribution conversions. When settings.QuadratureFallback is set, a
// catch-all quadrature entry is registered as well.
func NewBuilder(feats *features.Catalog, settings config.Settings, logger *slog.Logger,
	opts ...dispatch.Option) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Builder{
		Builder:  dispatch.NewBuilder[Handler]("expectation", 5, opts...),
		features: feats,
		settings: settings,
		logger:   logger,
	}
	registerRBF(b)
	registerLinear(b)
	registerConstant(b)
	registerCombinations(b)
	registerMeanFunctions(b)
	registerConversions(b)
	if settings.QuadratureFallback {
		b.Register("quadrature", quadratureHandler, gaussian, dispatch.Any, featureOrNone, dispatch.Any, featureOrNone)
	}
	return b
}

func (b *Builder) Build() (*Catalog, error) {
	table, err := b.Builder.Build()
	if err != nil {
		return nil, err
	}
	points := b.settings.QuadraturePoints
	if points < 1 {
		points = config.DefaultQuadraturePoints
	}
	return &Catalog{
		table:    table,
		features: b.features,
		points:   points,
		fallback: b.settings.QuadratureFallback,
		logger:   b.logger,
	}, nil
}

// Catalog is the immutable expectation table. It is safe for concurrent use.
type Catalog struct {
	table    *dispatch.Table[Handler]
	features *features.Catalog
	points   int
	fallback bool
	logger   *slog.Logger
}

func (c *Catalog) Table() *dispatch.Table[Handler] { return c.table }

func (c *Catalog) evaluator(opts []Option) *Evaluator {
	e := &Evaluator{catalog: c, points: c.points}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Expectation computes <t1 t2ᵀ> under p. Pass Term{} as t2 for a single term.
// For Markov chains t1 is evaluated at x_n and t2 at x_{n+1}.
func (c *Catalog) Expectation(p distributions.Distribution, t1, t2 Term, opts ...Option) (utils.Batch, error) {
	return c.evaluator(opts).Expectation(p, t1, t2)
}

// Quadrature computes the same quantity as Expectation by Gauss-Hermite
// quadrature, for any kernel and mean function.
func (c *Catalog) Quadrature(p distributions.Distribution, t1, t2 Term, opts ...Option) (utils.Batch, error) {
	return c.evaluator(opts).Quadrature(p, t1, t2)
}

// Evaluator carries the options of one top-level call through the handlers
// it recursively invokes.
type Evaluator struct {
	catalog *Catalog
	points  int
}

func (e *Evaluator) Expectation(p distributions.Distribution, t1, t2 Term) (utils.Batch, error) {
	if t1.IsNone() && !t2.IsNone() {
		if _, ok := p.(*distributions.MarkovGaussian); !ok {
			t1, t2 = t2, Term{}
		}
	}
	o1, f1 := t1.args()
	o2, f2 := t2.args()
	h, entry, err := e.catalog.table.Resolve(p, o1, f1, o2, f2)
	if err != nil {
		return nil, err
	}
	e.catalog.logger.Debug("expectation", "handler", entry.Name, "term1", t1.String(), "term2", t2.String())
	return h(e, p, t1, t2)
}

func (e *Evaluator) Features() *features.Catalog {
	return e.catalog.features
}

// unsupported is returned by handlers whose types matched but whose values
// have no closed form. It falls back to quadrature when that is enabled.
func (e *Evaluator) unsupported(p distributions.Distribution, t1, t2 Term, reason string) (utils.Batch, error) {
	o1, f1 := t1.args()
	o2, f2 := t2.args()
	err := fmt.Errorf("%s: %w", reason, dispatch.NoMatch("expectation", p, o1, f1, o2, f2))
	if !e.catalog.fallback {
		return nil, err
	}
	e.catalog.logger.Warn("expectation: no closed form, using quadrature",
		"reason", reason, "term1", t1.String(), "term2", t2.String())
	return e.Quadrature(p, t1, t2)
}

// Dispatch slots shared by the handler files.
var (
	gaussian      = dispatch.Type[*distributions.Gaussian]()
	diagonal      = dispatch.Type[*distributions.DiagonalGaussian]()
	markov        = dispatch.Type[*distributions.MarkovGaussian]()
	none          = dispatch.None
	anyKernel     = dispatch.Type[kernels.Kernel]()
	anyMean       = dispatch.Type[meanfuncs.MeanFunction]()
	anyFeature    = dispatch.Type[features.InducingFeature]()
	inducing      = dispatch.Type[*features.InducingPoints]()
	featureOrNone = dispatch.OneOf(anyFeature, none)

	rbfKernel      = dispatch.Type[*kernels.RBF]()
	linearKernel   = dispatch.Type[*kernels.Linear]()
	constantKernel = dispatch.Type[*kernels.Constant]()
	sumKernel      = dispatch.Type[*kernels.Sum]()
	productKernel  = dispatch.Type[*kernels.Product]()

	identityMean = dispatch.Type[*meanfuncs.Identity]()
	linearMean   = dispatch.Type[*meanfuncs.Linear]()
	constantMean = dispatch.Type[*meanfuncs.Constant]()
	zeroMean     = dispatch.Type[*meanfuncs.Zero]()
	exactMeans   = []dispatch.Slot{identityMean, linearMean, constantMean, zeroMean}
)
