// Package tensor implements dense float64 tensors of arbitrary rank,
// together with the pairwise contractions and symmetric decompositions
// needed by tensor network algorithms.
//
// Contractions are evaluated by permuting the contracted axes to the
// boundary of each operand and delegating the remaining matrix product to
// gonum.
package tensor

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Dense is a dense tensor in row-major order.
type Dense struct {
	shape []int
	data  []float64
}

// Zeros returns a zero tensor of the given shape.
func Zeros(shape ...int) *Dense {
	n := 1
	for _, d := range shape {
		if d <= 0 {
			panic(fmt.Sprintf("%#v", shape))
		}
		n *= d
	}
	return &Dense{shape: slices.Clone(shape), data: make([]float64, n)}
}

// T2 creates a rank-2 tensor from a nested slice.
func T2(rows [][]float64) *Dense {
	t := Zeros(len(rows), len(rows[0]))
	for i, row := range rows {
		if len(row) != len(rows[0]) {
			panic(fmt.Sprintf("%d %d", len(row), len(rows[0])))
		}
		copy(t.data[i*len(row):(i+1)*len(row)], row)
	}
	return t
}

// Shape returns the dimensions of t.
func (t *Dense) Shape() []int {
	return slices.Clone(t.shape)
}

// Size returns the total number of entries of t.
func (t *Dense) Size() int {
	return len(t.data)
}

// At returns the entry at the given indices.
func (t *Dense) At(ix ...int) float64 {
	return t.data[t.flat(ix)]
}

// SetAt sets the entry at the given indices.
func (t *Dense) SetAt(ix []int, v float64) {
	t.data[t.flat(ix)] = v
}

func (t *Dense) flat(ix []int) int {
	if len(ix) != len(t.shape) {
		panic(fmt.Sprintf("%#v %#v", ix, t.shape))
	}
	f := 0
	for i, x := range ix {
		if x < 0 || x >= t.shape[i] {
			panic(fmt.Sprintf("%#v %#v", ix, t.shape))
		}
		f = f*t.shape[i] + x
	}
	return f
}

// All iterates over all entries of t in row-major order.
// The yielded index slice is reused between iterations.
func (t *Dense) All() func(yield func([]int, float64) bool) {
	return func(yield func([]int, float64) bool) {
		ix := make([]int, len(t.shape))
		for _, v := range t.data {
			if !yield(ix, v) {
				return
			}
			for i := len(ix) - 1; i >= 0; i-- {
				ix[i]++
				if ix[i] < t.shape[i] {
					break
				}
				ix[i] = 0
			}
		}
	}
}

// Clone returns a deep copy of t.
func (t *Dense) Clone() *Dense {
	return &Dense{shape: slices.Clone(t.shape), data: slices.Clone(t.data)}
}

// Reshape changes the shape of t in place and returns t.
// At most one dimension may be -1, in which case it is inferred.
func (t *Dense) Reshape(shape ...int) *Dense {
	n, infer := 1, -1
	for i, d := range shape {
		switch {
		case d == -1:
			if infer != -1 {
				panic(fmt.Sprintf("%#v", shape))
			}
			infer = i
		case d > 0:
			n *= d
		default:
			panic(fmt.Sprintf("%#v", shape))
		}
	}
	shape = slices.Clone(shape)
	if infer != -1 {
		if len(t.data)%n != 0 {
			panic(fmt.Sprintf("%#v %d", shape, len(t.data)))
		}
		shape[infer] = len(t.data) / n
		n *= shape[infer]
	}
	if n != len(t.data) {
		panic(fmt.Sprintf("%#v %d", shape, len(t.data)))
	}
	t.shape = shape
	return t
}

// Transpose returns a copy of t with its axes permuted.
func (t *Dense) Transpose(perm ...int) *Dense {
	if len(perm) != len(t.shape) {
		panic(fmt.Sprintf("%#v %#v", perm, t.shape))
	}
	seen := make([]bool, len(perm))
	shape := make([]int, len(perm))
	for i, p := range perm {
		if p < 0 || p >= len(perm) || seen[p] {
			panic(fmt.Sprintf("%#v", perm))
		}
		seen[p] = true
		shape[i] = t.shape[p]
	}

	out := Zeros(shape...)
	ox := make([]int, len(perm))
	for ix, v := range t.All() {
		for i, p := range perm {
			ox[i] = ix[p]
		}
		out.data[out.flat(ox)] = v
	}
	return out
}

// Scale multiplies every entry of t by c in place and returns t.
func (t *Dense) Scale(c float64) *Dense {
	for i := range t.data {
		t.data[i] *= c
	}
	return t
}

// MaxAbs returns the entry of t with the largest absolute value.
// The sign of the entry is kept.
func (t *Dense) MaxAbs() float64 {
	v := t.data[0]
	for _, w := range t.data[1:] {
		if math.Abs(w) > math.Abs(v) {
			v = w
		}
	}
	return v
}

// HasNaN reports whether t contains a NaN or infinite entry.
func (t *Dense) HasNaN() bool {
	for _, v := range t.data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return false
}

// Add returns a + b as a new tensor.
func Add(a, b *Dense) *Dense {
	if !slices.Equal(a.shape, b.shape) {
		panic(fmt.Sprintf("%#v %#v", a.shape, b.shape))
	}
	out := a.Clone()
	for i, v := range b.data {
		out.data[i] += v
	}
	return out
}

// EqualApprox reports whether a and b have the same shape and their
// entries differ by at most tol.
func EqualApprox(a, b *Dense, tol float64) bool {
	if !slices.Equal(a.shape, b.shape) {
		return false
	}
	for i, v := range a.data {
		if math.Abs(v-b.data[i]) > tol {
			return false
		}
	}
	return true
}

// Product contracts a with b along the given axis pairs. An axis pair
// {i, j} contracts axis i of a with axis j of b. The shape of the result
// is the free axes of a followed by the free axes of b, in their original
// order. A full contraction yields a tensor of shape (1).
func Product(a, b *Dense, axes [][2]int) *Dense {
	aContr := make([]int, 0, len(axes))
	bContr := make([]int, 0, len(axes))
	k := 1
	for _, ax := range axes {
		if a.shape[ax[0]] != b.shape[ax[1]] {
			panic(fmt.Sprintf("%#v %#v %#v", a.shape, b.shape, axes))
		}
		if slices.Contains(aContr, ax[0]) || slices.Contains(bContr, ax[1]) {
			panic(fmt.Sprintf("%#v", axes))
		}
		aContr = append(aContr, ax[0])
		bContr = append(bContr, ax[1])
		k *= a.shape[ax[0]]
	}

	aFree, m := free(a.shape, aContr)
	bFree, n := free(b.shape, bContr)

	// Permute the contracted axes of a to the back, and those of b to the
	// front, both in pair order, so that the contraction is a matrix product.
	ta := a.Transpose(append(slices.Clone(aFree), aContr...)...)
	tb := b.Transpose(append(slices.Clone(bContr), bFree...)...)

	var c mat.Dense
	c.Mul(mat.NewDense(m, k, ta.data), mat.NewDense(k, n, tb.data))

	shape := make([]int, 0, len(aFree)+len(bFree))
	for _, ax := range aFree {
		shape = append(shape, a.shape[ax])
	}
	for _, ax := range bFree {
		shape = append(shape, b.shape[ax])
	}
	if len(shape) == 0 {
		shape = []int{1}
	}
	return &Dense{shape: shape, data: c.RawMatrix().Data}
}

func free(shape, contracted []int) ([]int, int) {
	axes := make([]int, 0, len(shape)-len(contracted))
	n := 1
	for i, d := range shape {
		if slices.Contains(contracted, i) {
			continue
		}
		axes = append(axes, i)
		n *= d
	}
	return axes, n
}

type denseJSON struct {
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
}

// MarshalJSON implements json.Marshaler.
func (t *Dense) MarshalJSON() ([]byte, error) {
	return json.Marshal(denseJSON{Shape: t.shape, Data: t.data})
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Dense) UnmarshalJSON(b []byte) error {
	var dj denseJSON
	if err := json.Unmarshal(b, &dj); err != nil {
		return errors.Wrap(err, "")
	}
	n := 1
	for _, d := range dj.Shape {
		if d <= 0 {
			return errors.Errorf("%#v", dj.Shape)
		}
		n *= d
	}
	if n != len(dj.Data) {
		return errors.Errorf("%#v %d", dj.Shape, len(dj.Data))
	}
	t.shape, t.data = dj.Shape, dj.Data
	return nil
}
