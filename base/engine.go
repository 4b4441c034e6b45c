// Package base wires the feature, conditional and expectation catalogs into
// a single Engine built once from the process settings.
package base

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"gonum.org/v1/gonum/mat"

	"github.com/lucasmaystre/gosvgp/conditionals"
	"github.com/lucasmaystre/gosvgp/config"
	"github.com/lucasmaystre/gosvgp/dispatch"
	"github.com/lucasmaystre/gosvgp/distributions"
	"github.com/lucasmaystre/gosvgp/expectations"
	"github.com/lucasmaystre/gosvgp/features"
	"github.com/lucasmaystre/gosvgp/kernels"
	"github.com/lucasmaystre/gosvgp/utils"
)

type Engine struct {
	settings     config.Settings
	logger       *slog.Logger
	features     *features.Catalog
	conditionals *conditionals.Catalog
	expectations *expectations.Catalog
}

// NewEngine validates the settings and builds every catalog. Dispatch
// counters are registered with reg unless it is nil.
func NewEngine(settings config.Settings, logger *slog.Logger, reg prometheus.Registerer) (*Engine, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	opts := []dispatch.Option{dispatch.WithLogger(logger)}
	if reg != nil {
		metrics, err := dispatch.NewMetrics(reg)
		if err != nil {
			return nil, fmt.Errorf("registering dispatch metrics: %w", err)
		}
		opts = append(opts, dispatch.WithMetrics(metrics))
	}

	feats, err := features.NewBuilder(opts...).Build()
	if err != nil {
		return nil, err
	}
	conds, err := conditionals.NewBuilder(feats, settings, logger, opts...).Build()
	if err != nil {
		return nil, err
	}
	exps, err := expectations.NewBuilder(feats, settings, logger, opts...).Build()
	if err != nil {
		return nil, err
	}
	e := &Engine{
		settings:     settings,
		logger:       logger,
		features:     feats,
		conditionals: conds,
		expectations: exps,
	}
	logger.Info("engine ready",
		"jitter", settings.Jitter,
		"quadrature_points", settings.QuadraturePoints,
		"quadrature_fallback", settings.QuadratureFallback)
	return e, nil
}

func (e *Engine) Settings() config.Settings           { return e.settings }
func (e *Engine) Features() *features.Catalog         { return e.features }
func (e *Engine) Conditionals() *conditionals.Catalog { return e.conditionals }
func (e *Engine) Expectations() *expectations.Catalog { return e.expectations }

func (e *Engine) Conditional(xnew mat.Matrix, ref interface{}, kern kernels.Kernel,
	f mat.Matrix, opts conditionals.Options) (*mat.Dense, *utils.Tensor, error) {
	return e.conditionals.Conditional(xnew, ref, kern, f, opts)
}

func (e *Engine) Expectation(p distributions.Distribution, t1, t2 expectations.Term,
	opts ...expectations.Option) (utils.Batch, error) {
	return e.expectations.Expectation(p, t1, t2, opts...)
}

func (e *Engine) Quadrature(p distributions.Distribution, t1, t2 expectations.Term,
	opts ...expectations.Option) (utils.Batch, error) {
	return e.expectations.Quadrature(p, t1, t2, opts...)
}

// TableInfo lists the entries of one dispatch table.
type TableInfo struct {
	Name    string
	Entries []dispatch.Entry
}

// Tables returns the entries of every table held by the engine, in the
// order they are consulted.
func (e *Engine) Tables() []TableInfo {
	kuu, kuf := e.features.Tables()
	return []TableInfo{
		{Name: e.conditionals.Table().Name(), Entries: e.conditionals.Table().Entries()},
		{Name: kuu.Name(), Entries: kuu.Entries()},
		{Name: kuf.Name(), Entries: kuf.Entries()},
		{Name: e.expectations.Table().Name(), Entries: e.expectations.Table().Entries()},
	}
}
