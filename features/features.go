package features

import (
	"gonum.org/v1/gonum/mat"

	"github.com/lucasmaystre/gosvgp/utils"
)

// InducingFeature is a finite set of reference locations summarizing a GP.
type InducingFeature interface {
	// Number of inducing variables M.
	Len() int
}

var (
	inducingPoints *InducingPoints
	multiscale     *Multiscale
	_              InducingFeature = inducingPoints
	_              InducingFeature = multiscale
)

// InducingPoints are real-space inducing locations, one per row of Z.
type InducingPoints struct {
	Z *mat.Dense
}

func NewInducingPoints(z *mat.Dense) *InducingPoints {
	return &InducingPoints{Z: z}
}

func (f *InducingPoints) Len() int {
	m, _ := f.Z.Dims()
	return m
}

// Multiscale inducing features: Gaussian-blurred inducing points with a
// per-point, per-dimension width. Only defined for the RBF kernel.
type Multiscale struct {
	Z      *mat.Dense
	Scales *mat.Dense
}

func NewMultiscale(z, scales *mat.Dense) (*Multiscale, error) {
	mz, dz := z.Dims()
	ms, ds := scales.Dims()
	if mz != ms || dz != ds {
		return nil, utils.Shapef("multiscale: Z is %dx%d, scales are %dx%d", mz, dz, ms, ds)
	}
	return &Multiscale{Z: z, Scales: scales}, nil
}

func (f *Multiscale) Len() int {
	m, _ := f.Z.Dims()
	return m
}
