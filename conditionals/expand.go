package conditionals

import (
	"github.com/lucasmaystre/gosvgp/utils"
)

// ExpandIndependentOutputs turns per-output variances into the shape asked
// for by fullCov and fullOutputCov:
//
//	fullCov  fullOutputCov  input   output
//	false    false          N×R     N×R
//	true     false          R×N×N   R×N×N
//	false    true           N×R     N×R×R
//	true     true           R×N×N   N×R×N×R
//
// Outputs are independent, so the blocks between distinct outputs are zero.
func ExpandIndependentOutputs(fvar *utils.Tensor, fullCov, fullOutputCov bool) (*utils.Tensor, error) {
	want := 2
	if fullCov {
		want = 3
	}
	if fvar.Rank() != want {
		return nil, utils.Shapef("variance has rank %d, want %d (full_cov=%v)", fvar.Rank(), want, fullCov)
	}
	if !fullOutputCov {
		return fvar, nil
	}
	shape := fvar.Shape()
	if !fullCov {
		n, r := shape[0], shape[1]
		out := utils.NewTensor(n, r, r)
		for i := 0; i < n; i++ {
			for k := 0; k < r; k++ {
				out.Set(fvar.At(i, k), i, k, k)
			}
		}
		return out, nil
	}
	r, n := shape[0], shape[1]
	out := utils.NewTensor(n, r, n, r)
	for k := 0; k < r; k++ {
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				out.Set(fvar.At(k, i, j), i, k, j, k)
			}
		}
	}
	return out, nil
}
