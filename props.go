package ctm

import (
	"math"

	"github.com/pkg/errors"

	"github.com/fumin/ctm/tensor"
)

// Prop is a physical quantity extractable from a converged system.
type Prop int

const (
	// Z is the partition function.
	Z Prop = iota
	// M is the magnetization.
	M
	// F is the free energy per site.
	F
	// Es is the internal energy per site.
	Es
	// Xi is the correlation length.
	Xi
	// ZFixed is the partition function with one fixed boundary edge.
	ZFixed
	// MFixed is the magnetization with one fixed boundary edge.
	MFixed
	// XiFixed is the correlation length with one fixed boundary edge.
	XiFixed
)

// String implements fmt.Stringer.
func (p Prop) String() string {
	switch p {
	case Z:
		return "Z"
	case M:
		return "m"
	case F:
		return "f"
	case Es:
		return "Es"
	case Xi:
		return "xi"
	case ZFixed:
		return "Z_fixed"
	case MFixed:
		return "m_fixed"
	case XiFixed:
		return "xi_fixed"
	default:
		return "unknown"
	}
}

// Compute extracts the given property from the terminal state of a run
// over the lattice tensors ts. Fixed-boundary properties require a run
// that tracked a fixed edge tensor.
func Compute(p Prop, ts *Tensors, r Result) (float64, error) {
	if p >= ZFixed && p <= XiFixed && r.TFixed == nil {
		return 0, errors.Wrapf(ErrConfiguration, "%s without a fixed edge tensor", p)
	}
	switch p {
	case Z:
		return PartitionFunction(r.C, r.T, ts.A), nil
	case M:
		return Magnetization(r.C, r.T, ts.A, ts.B), nil
	case F:
		return FreeEnergy(r.C, r.T, ts.A, ts.Spec.Beta), nil
	case Es:
		return InternalEnergy(r.C, r.T, ts.A, ts.B), nil
	case Xi:
		return CorrelationLength(r.T)
	case ZFixed:
		return PartitionFunctionFixed(r.C, r.T, r.TFixed, ts.A), nil
	case MFixed:
		return MagnetizationFixed(r.C, r.T, r.TFixed, ts.A, ts.B), nil
	case XiFixed:
		return CorrelationLengthFixed(r.T, r.TFixed)
	default:
		return 0, errors.Wrapf(ErrConfiguration, "prop %d", p)
	}
}

// PartitionFunction contracts the closed network of four corners, four
// edges and one site tensor, the partition function of one lattice site
// embedded in its renormalized environment.
func PartitionFunction(c, t, site *tensor.Dense) float64 {
	return siteNetwork(c, t, t, site)
}

// Magnetization is the site network with the order-parameter tensor b
// inserted, divided by the partition function. The sign of the order
// parameter is a gauge choice, so the absolute value is returned.
func Magnetization(c, t, a, b *tensor.Dense) float64 {
	return math.Abs(siteNetwork(c, t, t, b) / siteNetwork(c, t, t, a))
}

// FreeEnergy returns the free energy per site,
// f = -ln(Z*corners/denom^2) / beta, where corners is a loop of four bare
// corner tensors and denom the bipartite normalization network of four
// corners and two edges. The combination cancels the extensive scaling of
// the partition function.
func FreeEnergy(c, t, a *tensor.Dense, beta float64) float64 {
	z := siteNetwork(c, t, t, a)

	y1 := tensor.Product(c, c, [][2]int{{0, 0}})
	y2 := tensor.Product(y1, c, [][2]int{{1, 0}})
	corners := tensor.Product(y2, c, [][2]int{{1, 0}, {0, 1}}).At(0)

	z1 := tensor.Product(c, c, [][2]int{{0, 0}})
	z2 := tensor.Product(z1, t, [][2]int{{0, 0}})
	z3 := tensor.Product(z2, t, [][2]int{{0, 0}, {2, 2}})
	z4 := tensor.Product(z3, c, [][2]int{{0, 0}})
	denom := tensor.Product(z4, c, [][2]int{{0, 0}, {1, 1}}).At(0)

	return -math.Log(z*corners/(denom*denom)) / beta
}

// InternalEnergy returns the energy per site, the ratio of the thickened
// corner networks built from the energy-weighted and the plain site
// tensor, scaled by the lattice coordination factor.
func InternalEnergy(c, t, a, b *tensor.Dense) float64 {
	num := thickened(enlarge(c, t, b), c, t)
	denom := thickened(enlarge(c, t, a), c, t)
	return -2 * num / denom
}

// CorrelationLength returns the correlation length obtained from the two
// leading eigenvalues of the row-to-row transfer matrix of two edge
// tensors.
func CorrelationLength(t *tensor.Dense) (float64, error) {
	return correlation(t, t)
}

// PartitionFunctionFixed is PartitionFunction with one edge tensor
// replaced by the fixed-boundary edge.
func PartitionFunctionFixed(c, t, tFixed, site *tensor.Dense) float64 {
	return siteNetwork(c, tFixed, t, site)
}

// MagnetizationFixed is Magnetization with one edge tensor replaced by
// the fixed-boundary edge.
func MagnetizationFixed(c, t, tFixed, a, b *tensor.Dense) float64 {
	return math.Abs(siteNetwork(c, tFixed, t, b) / siteNetwork(c, tFixed, t, a))
}

// CorrelationLengthFixed is CorrelationLength with one edge tensor of the
// transfer matrix replaced by the fixed-boundary edge.
func CorrelationLengthFixed(t, tFixed *tensor.Dense) (float64, error) {
	return correlation(t, tFixed)
}

// siteNetwork contracts one site tensor with its environment of four
// corners and four edges. first takes the place of one of the edges, which
// for the fixed-boundary properties is the fixed edge tensor.
func siteNetwork(c, first, t, site *tensor.Dense) float64 {
	x1 := tensor.Product(c, first, [][2]int{{0, 0}})
	x2 := tensor.Product(x1, t, [][2]int{{0, 0}})
	x3 := tensor.Product(x2, c, [][2]int{{0, 0}})
	x4 := tensor.Product(x3, site, [][2]int{{0, 0}, {2, 2}})
	x5 := tensor.Product(x4, c, [][2]int{{0, 0}})
	x6 := tensor.Product(x5, t, [][2]int{{0, 0}, {1, 2}})
	x7 := tensor.Product(x6, t, [][2]int{{0, 2}, {1, 1}})
	return tensor.Product(x7, c, [][2]int{{0, 0}, {1, 1}}).At(0)
}

// thickened closes an enlarged corner against its mirror image and the
// six-tensor environment of two corner pairs and two edges.
func thickened(corner, c, t *tensor.Dense) float64 {
	e1 := tensor.Product(corner, corner, [][2]int{{0, 0}, {1, 1}})
	e2 := tensor.Product(e1, c, [][2]int{{0, 0}})
	e3 := tensor.Product(e2, t, [][2]int{{3, 0}, {0, 2}})
	e4 := tensor.Product(e3, t, [][2]int{{2, 0}, {1, 2}})
	return tensor.Product(e4, c, [][2]int{{0, 1}, {1, 0}}).At(0)
}

func correlation(t1, t2 *tensor.Dense) (float64, error) {
	chi := t1.Shape()[0]
	m := tensor.Product(t1, t2, [][2]int{{2, 2}}).Transpose(0, 2, 1, 3)
	vals, _, err := tensor.EigSym(m.Reshape(chi*chi, chi*chi), 2)
	if err != nil {
		return 0, errors.Wrapf(ErrNumerical, "transfer matrix: %s", err)
	}
	l1, l2 := math.Abs(vals[0]), math.Abs(vals[1])
	if l2 == 0 || l1 == l2 {
		return 0, errors.Wrapf(ErrNumerical, "degenerate transfer spectrum %g %g", l1, l2)
	}
	return 1 / math.Log(l1/l2), nil
}
