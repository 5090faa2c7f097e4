// Package ctm evaluates the partition function and thermodynamic
// observables of two-dimensional classical spin lattices with the Corner
// Transfer Matrix Renormalization Group method.
//
// References:
//   - Corner Transfer Matrix Renormalization Group Method, T. Nishino and K. Okunishi, J. Phys. Soc. Jpn. 65, 891 (1996).
//   - Exactly Solved Models in Statistical Mechanics, R. J. Baxter, chapter 13.
package ctm

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/pkg/errors"

	"github.com/fumin/ctm/tensor"
)

// Model is a supported lattice model.
type Model int

const (
	// Ising is the two-state spin model with ±1 coupling.
	Ising Model = iota
	// BlumeCapel is the three-state spin-1 model with a crystal field
	// coupling and an external field.
	BlumeCapel
)

// String implements fmt.Stringer.
func (m Model) String() string {
	switch m {
	case Ising:
		return "ising"
	case BlumeCapel:
		return "blume_capel"
	default:
		return "unknown"
	}
}

// ModelSpec describes a lattice model at a fixed inverse temperature.
type ModelSpec struct {
	Model Model
	// Beta is the inverse temperature, and must be positive.
	Beta float64
	// Coupling is the Blume-Capel crystal field coupling.
	Coupling float64
	// Field is the Blume-Capel external field.
	Field float64
}

// States returns the local state count d of the model.
func (s ModelSpec) States() int {
	switch s.Model {
	case BlumeCapel:
		return 3
	default:
		return 2
	}
}

// spins returns the spin value of each local state.
func (s ModelSpec) spins() []float64 {
	switch s.Model {
	case BlumeCapel:
		return []float64{-1, 0, 1}
	default:
		return []float64{1, -1}
	}
}

func (s ModelSpec) validate() error {
	if s.Model != Ising && s.Model != BlumeCapel {
		return errors.Wrapf(ErrConfiguration, "model %d", s.Model)
	}
	if !(s.Beta > 0) || math.IsInf(s.Beta, 0) {
		return errors.Wrapf(ErrConfiguration, "beta %f", s.Beta)
	}
	if s.Model == Ising && (s.Coupling != 0 || s.Field != 0) {
		return errors.Wrapf(ErrConfiguration, "ising does not take coupling %f field %f", s.Coupling, s.Field)
	}
	return nil
}

// energy is the pair interaction energy between two adjacent spins.
func (s ModelSpec) energy(si, sj float64) float64 {
	switch s.Model {
	case BlumeCapel:
		return -si*sj + s.Coupling*(si*si+sj*sj)/2 - s.Field*(si+sj)/2
	default:
		return -si * sj
	}
}

// Tensors holds the lattice tensors of a model, shared read-only by every
// run over the same ModelSpec.
type Tensors struct {
	Spec ModelSpec

	// Q is the square-root-factorized Boltzmann weight matrix of shape (d, d).
	Q *tensor.Dense
	// A is the site tensor of shape (d, d, d, d).
	A *tensor.Dense
	// B is the site tensor weighted by the order parameter.
	B *tensor.Dense

	// C0 and T0 are the exact corner and edge tensors of an
	// unrenormalized lattice patch, used in boundary-condition mode.
	C0 *tensor.Dense
	T0 *tensor.Dense
	// C0Fixed and T0Fixed pin the boundary spin to its first state.
	C0Fixed *tensor.Dense
	T0Fixed *tensor.Dense
}

// BuildTensors constructs the lattice tensors of a model.
func BuildTensors(spec ModelSpec) (*Tensors, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}
	d := spec.States()
	spins := spec.spins()

	// The raw Boltzmann weight between two adjacent spins.
	w := tensor.Zeros(d, d)
	for i := 0; i < d; i++ {
		for j := 0; j < d; j++ {
			w.SetAt([]int{i, j}, math.Exp(-spec.Beta*spec.energy(spins[i], spins[j])))
		}
	}
	q, err := tensor.SqrtPSD(w)
	if err != nil {
		return nil, errors.Wrapf(ErrConfiguration, "weight matrix: %s", err)
	}

	ts := &Tensors{Spec: spec, Q: q}
	ts.A = ts.site(deltaWeights(d, false))
	ts.B = ts.site(orderWeights(spec))
	ts.C0 = ts.corner(deltaWeights(d, false))
	ts.C0Fixed = ts.corner(deltaWeights(d, true))
	ts.T0 = ts.edge(deltaWeights(d, false))
	ts.T0Fixed = ts.edge(deltaWeights(d, true))
	return ts, nil
}

// deltaWeights is the diagonal of the generalized Kronecker delta: entry p
// weighs the all-indices-equal-p slice of the delta tensor. The adjusted
// variant keeps only the all-zero entry, pinning the spin to its first state.
func deltaWeights(d int, adjusted bool) []float64 {
	w := make([]float64, d)
	w[0] = 1
	if !adjusted {
		for p := 1; p < d; p++ {
			w[p] = 1
		}
	}
	return w
}

// orderWeights signs the delta diagonal with the order parameter of each
// spin state.
func orderWeights(spec ModelSpec) []float64 {
	w := deltaWeights(spec.States(), false)
	switch spec.Model {
	case BlumeCapel:
		// Two-charge order parameter: the s=-1 slice is negated, the s=0
		// slice is dropped.
		w[0], w[1] = -1, 0
	default:
		w[1] = -1
	}
	return w
}

// site contracts four copies of Q with a weighted rank-4 delta tensor,
// giving the per-site weight a[i,j,k,l] = sum_p w_p Q[i,p]Q[j,p]Q[k,p]Q[l,p].
func (ts *Tensors) site(weights []float64) *tensor.Dense {
	d := ts.Q.Shape()[0]
	a := tensor.Zeros(d, d, d, d)
	ix := make([]int, 4)
	for p, w := range weights {
		if w == 0 {
			continue
		}
		for i := 0; i < d; i++ {
			for j := 0; j < d; j++ {
				for k := 0; k < d; k++ {
					for l := 0; l < d; l++ {
						ix[0], ix[1], ix[2], ix[3] = i, j, k, l
						v := a.At(i, j, k, l) + w*ts.Q.At(i, p)*ts.Q.At(j, p)*ts.Q.At(k, p)*ts.Q.At(l, p)
						a.SetAt(ix, v)
					}
				}
			}
		}
	}
	return a
}

// corner contracts two copies of Q with a weighted rank-2 delta tensor.
func (ts *Tensors) corner(weights []float64) *tensor.Dense {
	d := ts.Q.Shape()[0]
	c := tensor.Zeros(d, d)
	ix := make([]int, 2)
	for p, w := range weights {
		if w == 0 {
			continue
		}
		for i := 0; i < d; i++ {
			for j := 0; j < d; j++ {
				ix[0], ix[1] = i, j
				c.SetAt(ix, c.At(i, j)+w*ts.Q.At(p, i)*ts.Q.At(p, j))
			}
		}
	}
	return c
}

// edge contracts three copies of Q with a weighted rank-3 delta tensor.
func (ts *Tensors) edge(weights []float64) *tensor.Dense {
	d := ts.Q.Shape()[0]
	t := tensor.Zeros(d, d, d)
	ix := make([]int, 3)
	for p, w := range weights {
		if w == 0 {
			continue
		}
		for i := 0; i < d; i++ {
			for j := 0; j < d; j++ {
				for k := 0; k < d; k++ {
					ix[0], ix[1], ix[2] = i, j, k
					t.SetAt(ix, t.At(i, j, k)+w*ts.Q.At(i, p)*ts.Q.At(j, p)*ts.Q.At(k, p))
				}
			}
		}
	}
	return t
}

// RandState returns a random corner and edge tensor of bond dimension chi.
// Entries are uniform in [0, 1) and both tensors are symmetrized over
// their first two axes. A nil rng uses the global source.
func RandState(chi, d int, rng *rand.Rand) (*tensor.Dense, *tensor.Dense) {
	uniform := rand.Float64
	if rng != nil {
		uniform = rng.Float64
	}

	c := tensor.Zeros(chi, chi)
	for ix := range c.All() {
		c.SetAt(ix, uniform())
	}
	t := tensor.Zeros(chi, chi, d)
	for ix := range t.All() {
		t.SetAt(ix, uniform())
	}
	return symmetrize(c), symmetrize(t)
}

// normalize divides every entry of t by the entry with the largest
// magnitude, so that the maximum-magnitude entry of the result is 1.
func normalize(t *tensor.Dense) *tensor.Dense {
	return t.Scale(1 / t.MaxAbs())
}

// symmetrize averages t with its own transpose over the first two axes.
func symmetrize(t *tensor.Dense) *tensor.Dense {
	var perm []int
	switch len(t.Shape()) {
	case 2:
		perm = []int{1, 0}
	case 3:
		perm = []int{1, 0, 2}
	default:
		panic(fmt.Sprintf("%#v", t.Shape()))
	}
	return tensor.Add(t, t.Transpose(perm...)).Scale(0.5)
}
