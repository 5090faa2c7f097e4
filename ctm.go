package ctm

import (
	"math"
	"math/rand/v2"

	"github.com/pkg/errors"

	"github.com/fumin/ctm/tensor"
)

// Options are options for a renormalization run.
type Options struct {
	chi      int
	tol      float64
	count    int
	maxSteps int
	boundary bool
	fixed    bool
	cInit    *tensor.Dense
	tInit    *tensor.Dense
	rng      *rand.Rand
}

// NewOptions returns the default options.
func NewOptions() Options {
	opt := Options{}
	opt.chi = 2
	opt.tol = 1e-7
	opt.count = 10
	opt.maxSteps = 10000
	return opt
}

// Chi sets the bond dimension. In boundary-condition mode it is the
// maximum bond dimension the growing system is truncated to.
func (opt Options) Chi(chi int) Options {
	opt.chi = chi
	return opt
}

// Tol sets the tolerance on the change of the convergence signal.
func (opt Options) Tol(tol float64) Options {
	opt.tol = tol
	return opt
}

// Count sets the number of consecutive sub-tolerance steps required
// before the run is declared converged.
func (opt Options) Count(count int) Options {
	opt.count = count
	return opt
}

// MaxSteps sets the maximum number of renormalization steps.
func (opt Options) MaxSteps(n int) Options {
	opt.maxSteps = n
	return opt
}

// Boundary initializes the system from the exact tensors of a finite
// lattice patch instead of random tensors, and grows the bond dimension
// geometrically until it reaches Chi.
func (opt Options) Boundary(b bool) Options {
	opt.boundary = b
	return opt
}

// Fixed additionally tracks an edge tensor whose boundary spin is pinned
// to a fixed value. Only valid in boundary-condition mode.
func (opt Options) Fixed(f bool) Options {
	opt.fixed = f
	return opt
}

// Warm sets the initial corner and edge tensors, typically the converged
// tensors of a neighbouring point in a parameter sweep. Either may be nil,
// in which case it is initialized randomly.
func (opt Options) Warm(c, t *tensor.Dense) Options {
	opt.cInit, opt.tInit = c, t
	return opt
}

// Rand sets the source of randomness for the initial tensors.
func (opt Options) Rand(rng *rand.Rand) Options {
	opt.rng = rng
	return opt
}

// Result is the terminal state of a renormalization run.
// The tensors are owned by the Alg that produced them, and remain valid
// until its next Step.
type Result struct {
	C      *tensor.Dense
	T      *tensor.Dense
	TFixed *tensor.Dense

	Iterations int
	// Converged reports whether the run satisfied the convergence
	// predicate. If false, the tensors are best-effort approximations.
	Converged bool
}

// Alg runs the corner transfer matrix renormalization group algorithm.
// It exclusively owns its corner and edge tensors; the lattice tensors it
// was built from are read-only and may be shared between runs.
type Alg struct {
	tensors *Tensors
	opt     Options

	chi    int
	d      int
	c      *tensor.Dense
	t      *tensor.Dense
	tFixed *tensor.Dense

	// trace records the sum of the retained eigenvalue magnitudes of
	// every step, seeded with 0.
	trace []float64
}

// New prepares a renormalization run over the given lattice tensors.
func New(ts *Tensors, options ...Options) (*Alg, error) {
	opt := NewOptions()
	if len(options) > 0 {
		opt = options[0]
	}
	if opt.chi < 2 || opt.tol <= 0 || opt.count < 1 || opt.maxSteps < 1 {
		return nil, errors.Wrapf(ErrConfiguration, "chi %d tol %g count %d maxSteps %d", opt.chi, opt.tol, opt.count, opt.maxSteps)
	}
	if opt.fixed && !opt.boundary {
		return nil, errors.Wrap(ErrConfiguration, "fixed edge requires boundary-condition mode")
	}

	d := ts.Spec.States()
	a := &Alg{tensors: ts, opt: opt, d: d, trace: []float64{0}}
	if opt.boundary {
		a.chi = d
		a.c = ts.C0.Clone()
		if opt.fixed {
			a.c = ts.C0Fixed.Clone()
			a.tFixed = ts.T0Fixed.Clone()
		}
		a.t = ts.T0.Clone()
		return a, nil
	}

	a.chi = opt.chi
	if opt.cInit == nil || opt.tInit == nil {
		a.c, a.t = RandState(opt.chi, d, opt.rng)
	}
	if opt.cInit != nil {
		if err := checkShape(opt.cInit, opt.chi, opt.chi); err != nil {
			return nil, errors.Wrap(err, "corner")
		}
		a.c = opt.cInit.Clone()
	}
	if opt.tInit != nil {
		if err := checkShape(opt.tInit, opt.chi, opt.chi, d); err != nil {
			return nil, errors.Wrap(err, "edge")
		}
		a.t = opt.tInit.Clone()
	}
	return a, nil
}

func checkShape(t *tensor.Dense, shape ...int) error {
	s := t.Shape()
	if len(s) != len(shape) {
		return errors.Wrapf(ErrConfiguration, "rank %d, expected %d", len(s), len(shape))
	}
	for i, d := range shape {
		if s[i] != d {
			return errors.Wrapf(ErrConfiguration, "shape %#v, expected %#v", s, shape)
		}
	}
	return nil
}

// Chi returns the current bond dimension.
func (a *Alg) Chi() int {
	return a.chi
}

// Trace returns the convergence trace recorded so far.
func (a *Alg) Trace() []float64 {
	return append([]float64(nil), a.trace...)
}

// Run iterates renormalization steps until the convergence signal stays
// within tolerance for Count consecutive steps, or MaxSteps is exhausted.
// On a numerical failure the returned result holds the last valid tensors.
func (a *Alg) Run() (Result, error) {
	mon := monitor{tol: a.opt.tol, count: a.opt.count}
	for i := 0; i < a.opt.maxSteps; i++ {
		if err := a.Step(); err != nil {
			return a.result(i, false), errors.Wrapf(err, "step %d", i)
		}
		n := len(a.trace)
		if mon.observe(math.Abs(a.trace[n-1] - a.trace[n-2])) {
			return a.result(i+1, true), nil
		}
	}
	return a.result(a.opt.maxSteps, false), nil
}

func (a *Alg) result(iterations int, converged bool) Result {
	return Result{C: a.c, T: a.t, TFixed: a.tFixed, Iterations: iterations, Converged: converged}
}

// monitor tracks the consecutive-small-change stopping rule. The counter
// grows only on consecutive sub-tolerance steps and resets on any step
// that exceeds tolerance, guarding against spurious single-step plateaus.
type monitor struct {
	tol   float64
	count int
	small int
}

func (m *monitor) observe(delta float64) bool {
	if delta < m.tol {
		m.small++
	} else {
		m.small = 0
	}
	return m.small >= m.count
}

// Step performs one renormalization step: insert a site tensor into the
// corner, truncate its eigendecomposition into an isometry, project the
// corner and edge tensors through it, then normalize and symmetrize.
// Failed or non-finite decompositions abort with ErrNumerical, leaving the
// previous tensors in place.
func (a *Alg) Step() error {
	m := enlarge(a.c, a.t, a.tensors.A)

	// While a boundary-condition system is below its target bond
	// dimension, keep the full decomposition and let chi grow by a factor
	// of d. Afterwards, truncation pins chi at the target.
	var k int
	switch {
	case a.opt.boundary && a.chi*a.d <= a.opt.chi:
		k = a.chi * a.d
	default:
		k = min(a.opt.chi, a.chi*a.d)
	}

	vals, vecs, err := tensor.EigSym(m.Clone().Reshape(a.chi*a.d, a.chi*a.d), k)
	if err != nil {
		return errors.Wrapf(ErrNumerical, "decompose: %s", err)
	}
	largest := math.Abs(vals[0])
	if largest == 0 {
		return errors.Wrap(ErrNumerical, "degenerate corner")
	}
	var svSum float64
	for _, v := range vals {
		svSum += math.Abs(v) / largest
	}
	u := vecs.Reshape(a.chi, a.d, k)

	newC := project(m, u)
	newT := projectEdge(a.t, a.tensors.A, u)
	var newTFixed *tensor.Dense
	if a.tFixed != nil {
		newTFixed = projectEdge(a.tFixed, a.tensors.A, u)
	}
	newC = symmetrize(normalize(newC))
	newT = symmetrize(normalize(newT))
	if newTFixed != nil {
		newTFixed = symmetrize(normalize(newTFixed))
	}
	// An all-zero projection normalizes to NaN, so this also rejects
	// vanishing tensors.
	if newC.HasNaN() || newT.HasNaN() || (newTFixed != nil && newTFixed.HasNaN()) {
		return errors.Wrap(ErrNumerical, "non-finite tensors")
	}

	a.c, a.t = newC, newT
	if newTFixed != nil {
		a.tFixed = newTFixed
	}
	a.chi = k
	a.trace = append(a.trace, svSum)
	return nil
}

// enlarge contracts the corner with two edge tensors and one site tensor,
// forming the one-site-enlarged corner
// M[i,j,k,l] = sum C[p,q] T[i,p,r] T[q,k,s] a[j,r,s,l] of shape (chi,d,chi,d).
func enlarge(c, t, site *tensor.Dense) *tensor.Dense {
	// ct is of shape {q, i, r}.
	ct := tensor.Product(c, t, [][2]int{{0, 1}})
	// ctt is of shape {i, r, k, s}.
	ctt := tensor.Product(ct, t, [][2]int{{0, 0}})
	// m is of shape {i, k, j, l}.
	m := tensor.Product(ctt, site, [][2]int{{1, 1}, {3, 2}})
	return m.Transpose(0, 2, 1, 3)
}

// project renormalizes the enlarged corner through the isometry u on both
// sides, C' = u^T M u.
func project(m, u *tensor.Dense) *tensor.Dense {
	// mu is of shape {i, j, beta}.
	mu := tensor.Product(m, u, [][2]int{{2, 0}, {3, 1}})
	return tensor.Product(u, mu, [][2]int{{0, 0}, {1, 1}})
}

// projectEdge forms the one-site-enlarged edge and renormalizes it through
// the isometry u on both sides, giving a tensor of shape (chi', chi', d).
func projectEdge(t, site, u *tensor.Dense) *tensor.Dense {
	// mt is of shape {i, q, j, l, m}.
	mt := tensor.Product(t, site, [][2]int{{2, 0}})
	// x is of shape {alpha, q, l, m}.
	x := tensor.Product(u, mt, [][2]int{{0, 0}, {1, 2}})
	// out is of shape {beta, alpha, m}.
	out := tensor.Product(u, x, [][2]int{{0, 1}, {1, 2}})
	return out.Transpose(1, 0, 2)
}
