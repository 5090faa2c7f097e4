package tensor

import (
	"cmp"
	"math"
	"slices"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// EigSym computes the eigendecomposition of the symmetric rank-2 tensor a,
// and returns the k eigenvalues of largest magnitude together with their
// eigenvectors as the columns of an (n, k) tensor. Eigenpairs are ordered
// by descending magnitude; ties keep a stable order.
//
// Any floating point asymmetry of a is cancelled by averaging with its
// transpose before factorizing.
func EigSym(a *Dense, k int) ([]float64, *Dense, error) {
	if len(a.shape) != 2 || a.shape[0] != a.shape[1] {
		return nil, nil, errors.Errorf("%#v", a.shape)
	}
	n := a.shape[0]
	if k < 1 || k > n {
		return nil, nil, errors.Errorf("%d %d", k, n)
	}
	if a.HasNaN() {
		return nil, nil, errors.Errorf("not finite")
	}

	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, (a.data[i*n+j]+a.data[j*n+i])/2)
		}
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(sym, true); !ok {
		return nil, nil, errors.Errorf("eigendecomposition failed")
	}
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(i, j int) int {
		return cmp.Compare(math.Abs(vals[j]), math.Abs(vals[i]))
	})

	kVals := make([]float64, k)
	kVecs := Zeros(n, k)
	for j := 0; j < k; j++ {
		kVals[j] = vals[order[j]]
		for i := 0; i < n; i++ {
			kVecs.data[i*k+j] = vecs.At(i, order[j])
		}
	}
	return kVals, kVecs, nil
}

// SqrtPSD returns the principal square root of the symmetric
// positive-definite rank-2 tensor a. It fails if a has a non-positive
// eigenvalue.
func SqrtPSD(a *Dense) (*Dense, error) {
	if len(a.shape) != 2 || a.shape[0] != a.shape[1] {
		return nil, errors.Errorf("%#v", a.shape)
	}
	n := a.shape[0]

	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, (a.data[i*n+j]+a.data[j*n+i])/2)
		}
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(sym, true); !ok {
		return nil, errors.Errorf("eigendecomposition failed")
	}
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	root := Zeros(n, n)
	for _, v := range vals {
		if v <= 0 {
			return nil, errors.Errorf("not positive-definite: %f", v)
		}
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			var s float64
			for p := 0; p < n; p++ {
				s += vecs.At(i, p) * math.Sqrt(vals[p]) * vecs.At(j, p)
			}
			root.data[i*n+j] = s
		}
	}
	return root, nil
}
