package features

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/lucasmaystre/gosvgp/dispatch"
	"github.com/lucasmaystre/gosvgp/kernels"
	"github.com/lucasmaystre/gosvgp/utils"
)

var (
	z = mat.NewDense(3, 2, []float64{
		0, 0,
		1, -1,
		-0.5, 0.5,
	})
	x = mat.NewDense(4, 2, []float64{
		0.1, 0.2,
		1, 1,
		-1, 0,
		2, -2,
	})
)

func catalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := NewBuilder().Build()
	require.NoError(t, err)
	return c
}

func TestInducingPoints(t *testing.T) {
	c := catalog(t)
	kern := kernels.NewRBF(1.5, 0.8)
	feat := NewInducingPoints(z)
	assert.Equal(t, 3, feat.Len())

	kuu, err := c.Kuu(feat, kern, 0.01)
	require.NoError(t, err)
	expected := utils.AddJitter(kern.KSym(z), 0.01)
	assert.True(t, mat.EqualApprox(kuu, expected, 1e-12))

	kuf, err := c.Kuf(feat, kern, x)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(kuf, kern.K(z, x), 1e-12))

	_, err = c.Kuf(feat, kern, mat.NewDense(2, 3, nil))
	assert.True(t, errors.Is(err, utils.ErrShape))
}

func TestMultiscaleReducesToInducingPoints(t *testing.T) {
	c := catalog(t)
	kern := kernels.NewRBF(1.5, 0.8, 1.2)
	ms, err := NewMultiscale(z, mat.NewDense(3, 2, nil))
	require.NoError(t, err)

	kuu, err := c.Kuu(ms, kern, 0)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(kuu, kern.KSym(z), 1e-12))

	kuf, err := c.Kuf(ms, kern, x)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(kuf, kern.K(z, x), 1e-12))
}

func TestMultiscaleWidths(t *testing.T) {
	c := catalog(t)
	kern := kernels.NewRBF(1.0, 1.0)
	scales := mat.NewDense(3, 2, []float64{0.5, 0.5, 0.1, 0.2, 0, 1})
	ms, err := NewMultiscale(z, scales)
	require.NoError(t, err)

	kuu, err := c.Kuu(ms, kern, 0)
	require.NoError(t, err)
	_, err = utils.Cholesky(kuu)
	require.NoError(t, err)
	// Wider features have smaller prior variance.
	assert.Less(t, kuu.At(0, 0), 1.0)
	assert.Less(t, kuu.At(0, 0), kuu.At(1, 1))

	_, err = NewMultiscale(z, mat.NewDense(2, 2, nil))
	assert.True(t, errors.Is(err, utils.ErrShape))
}

func TestUnsupportedPair(t *testing.T) {
	c := catalog(t)
	ms, err := NewMultiscale(z, mat.NewDense(3, 2, nil))
	require.NoError(t, err)
	_, err = c.Kuu(ms, kernels.NewLinear(1.0), 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, dispatch.ErrNoMatch))
}
