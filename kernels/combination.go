package kernels

import (
	"sort"

	"gonum.org/v1/gonum/mat"
)

var (
	sum     *Sum
	product *Product
	_       Kernel = sum     // Check that Sum respects the Kernel interface.
	_       Kernel = product // Check that Product respects the Kernel interface.
)

// Sum of kernels. Nested sums are flattened.
type Sum struct {
	Parts []Kernel
}

func NewSum(kernels ...Kernel) *Sum {
	parts := make([]Kernel, 0, len(kernels))
	for _, k := range kernels {
		switch k := k.(type) {
		case *Sum:
			parts = append(parts, k.Parts...)
		default:
			parts = append(parts, k)
		}
	}
	return &Sum{
		Parts: parts,
	}
}

func (k *Sum) K(x, y mat.Matrix) *mat.Dense {
	out := k.Parts[0].K(x, y)
	for _, part := range k.Parts[1:] {
		out.Add(out, part.K(x, y))
	}
	return out
}

func (k *Sum) KSym(x mat.Matrix) *mat.SymDense {
	return symFrom(k.K(x, x))
}

func (k *Sum) KDiag(x mat.Matrix) *mat.VecDense {
	out := k.Parts[0].KDiag(x)
	for _, part := range k.Parts[1:] {
		out.AddVec(out, part.KDiag(x))
	}
	return out
}

func (k *Sum) ActiveDims() []int {
	return unionDims(k.Parts)
}

// Product of kernels. Nested products are flattened.
type Product struct {
	Parts []Kernel
}

func NewProduct(kernels ...Kernel) *Product {
	parts := make([]Kernel, 0, len(kernels))
	for _, k := range kernels {
		switch k := k.(type) {
		case *Product:
			parts = append(parts, k.Parts...)
		default:
			parts = append(parts, k)
		}
	}
	return &Product{
		Parts: parts,
	}
}

func (k *Product) K(x, y mat.Matrix) *mat.Dense {
	out := k.Parts[0].K(x, y)
	for _, part := range k.Parts[1:] {
		out.MulElem(out, part.K(x, y))
	}
	return out
}

func (k *Product) KSym(x mat.Matrix) *mat.SymDense {
	return symFrom(k.K(x, x))
}

func (k *Product) KDiag(x mat.Matrix) *mat.VecDense {
	out := k.Parts[0].KDiag(x)
	for _, part := range k.Parts[1:] {
		out.MulElemVec(out, part.KDiag(x))
	}
	return out
}

func (k *Product) ActiveDims() []int {
	return unionDims(k.Parts)
}

// PartsOnSeparateDims reports whether no two parts share an input column.
func (k *Product) PartsOnSeparateDims() bool {
	for i := range k.Parts {
		for j := i + 1; j < len(k.Parts); j++ {
			if !OnSeparateDims(k.Parts[i], k.Parts[j]) {
				return false
			}
		}
	}
	return true
}

// Union of the parts' active dimensions, or nil if any part uses all of them.
func unionDims(parts []Kernel) []int {
	seen := make(map[int]bool)
	for _, part := range parts {
		dims := part.ActiveDims()
		if len(dims) == 0 {
			return nil
		}
		for _, d := range dims {
			seen[d] = true
		}
	}
	out := make([]int, 0, len(seen))
	for d := range seen {
		out = append(out, d)
	}
	sort.Ints(out)
	return out
}
