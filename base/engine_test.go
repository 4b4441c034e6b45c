package base

import (
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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

func newEngine(t *testing.T, reg prometheus.Registerer) *Engine {
	t.Helper()
	e, err := NewEngine(config.Default(), nil, reg)
	require.NoError(t, err)
	return e
}

func grid(n, d int, offset float64) *mat.Dense {
	x := mat.NewDense(n, d, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			x.Set(i, j, offset+0.3*float64(i)-0.2*float64(j))
		}
	}
	return x
}

func TestInvalidSettings(t *testing.T) {
	settings := config.Default()
	settings.Jitter = -1
	_, err := NewEngine(settings, nil, nil)
	assert.True(t, errors.Is(err, config.ErrInvalidConfig))
}

func TestEngineCountsLookups(t *testing.T) {
	reg := prometheus.NewRegistry()
	e := newEngine(t, reg)
	z := grid(3, 2, -0.5)
	kern := kernels.NewRBF(1, 0.8)

	_, _, err := e.Conditional(grid(4, 2, 0), features.NewInducingPoints(z), kern,
		mat.NewDense(3, 1, []float64{1, 0, -1}), conditionals.Options{})
	require.NoError(t, err)

	g, err := distributions.NewGaussian(grid(2, 2, 0), []*mat.SymDense{
		mat.NewSymDense(2, []float64{0.1, 0, 0, 0.1}),
		mat.NewSymDense(2, []float64{0.2, 0, 0, 0.2}),
	})
	require.NoError(t, err)
	_, err = e.Expectation(g, expectations.On(kernels.NewMatern32(1, 1), features.NewInducingPoints(z)), expectations.Term{})
	assert.True(t, dispatch.IsDispatchError(err))

	// A second engine on the same registry shares the counters.
	newEngine(t, reg)
	metrics, err := dispatch.NewMetrics(reg)
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Resolutions("conditional", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Resolutions("expectation", "miss")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(metrics.Resolutions("Kuu", "hit")), 1.0)
}

func TestTables(t *testing.T) {
	e := newEngine(t, nil)
	names := []string{}
	for _, table := range e.Tables() {
		names = append(names, table.Name)
		assert.NotEmpty(t, table.Entries, table.Name)
	}
	assert.Equal(t, []string{"conditional", "Kuu", "Kuf", "expectation"}, names)
}

func TestConditionalAllMatchesSerial(t *testing.T) {
	e := newEngine(t, nil)
	kern := kernels.NewSum(kernels.NewRBF(1.2, 0.7), kernels.NewLinear(0.3))
	jobs := make([]Job, 24)
	for i := range jobs {
		z := grid(4, 2, -1+0.1*float64(i))
		f := mat.NewDense(4, 2, nil)
		for j := 0; j < 4; j++ {
			f.Set(j, 0, float64(i+j))
			f.Set(j, 1, float64(i-j))
		}
		var ref interface{} = z
		if i%2 == 0 {
			ref = features.NewInducingPoints(z)
		}
		jobs[i] = Job{
			XNew:   grid(5, 2, 0.05*float64(i)),
			Ref:    ref,
			Kernel: kern,
			F:      f,
			Options: conditionals.Options{
				FullCov: i%3 == 0,
				White:   i%4 == 0,
				QSqrt:   conditionals.NewDiagQSqrt(mat.NewDense(4, 2, []float64{1, 0.5, 0.2, 0.1, 0.3, 0.3, 1, 2})),
			},
		}
	}

	results, err := e.ConditionalAll(jobs, 4)
	require.NoError(t, err)
	require.Len(t, results, len(jobs))
	for i, job := range jobs {
		mean, fvar, err := e.Conditional(job.XNew, job.Ref, job.Kernel, job.F, job.Options)
		require.NoError(t, err)
		assert.True(t, mat.Equal(mean, results[i].Mean), "job %d", i)
		assert.Equal(t, fvar.Shape(), results[i].Var.Shape(), "job %d", i)
		assert.Equal(t, fvar.Data(), results[i].Var.Data(), "job %d", i)
	}
}

func TestConditionalAllReportsFirstFailure(t *testing.T) {
	e := newEngine(t, nil)
	kern := kernels.NewRBF(1, 1)
	good := Job{XNew: grid(2, 2, 0), Ref: grid(3, 2, 0.5), Kernel: kern, F: mat.NewDense(3, 1, nil)}
	bad := good
	bad.F = mat.NewDense(2, 1, nil)

	results, err := e.ConditionalAll([]Job{good, bad, good, bad}, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrShape))
	assert.Contains(t, err.Error(), fmt.Sprintf("job %d", 1))
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[3].Err)
}
