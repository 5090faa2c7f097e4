package ctm

import (
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/pkg/errors"
)

// converge builds the lattice tensors of spec and runs the algorithm to
// convergence.
func converge(t *testing.T, spec ModelSpec, opt Options) (*Tensors, Result) {
	t.Helper()
	ts, err := BuildTensors(spec)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	alg, err := New(ts, opt)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	res, err := alg.Run()
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if !res.Converged {
		t.Fatalf("not converged after %d iterations", res.Iterations)
	}
	return ts, res
}

func TestMagnetization(t *testing.T) {
	t.Parallel()
	tests := []struct {
		beta float64
		want float64
		tol  float64
	}{
		// The spontaneous magnetization (1-sinh(2*beta)^-4)^(1/8).
		{beta: 0.5, want: 0.911319, tol: 1e-6},
		{beta: 0.6, want: 0.973609, tol: 1e-6},
		// Above the critical temperature the magnetization vanishes.
		{beta: 0.25, want: 0, tol: 1e-3},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%f", test.beta), func(t *testing.T) {
			t.Parallel()
			opt := NewOptions().Chi(8).Tol(1e-7).Count(10).Rand(rand.New(rand.NewPCG(1, 1)))
			ts, res := converge(t, ModelSpec{Model: Ising, Beta: test.beta}, opt)
			m, err := Compute(M, ts, res)
			if err != nil {
				t.Fatalf("%+v", err)
			}
			if math.Abs(m-test.want) > test.tol {
				t.Fatalf("%f, expected %f", m, test.want)
			}
		})
	}
}

func TestThermodynamics(t *testing.T) {
	t.Parallel()
	opt := NewOptions().Chi(8).Tol(1e-7).Count(10).Rand(rand.New(rand.NewPCG(1, 1)))
	ts, res := converge(t, ModelSpec{Model: Ising, Beta: 1}, opt)

	z, err := Compute(Z, ts, res)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if !(z > 0) {
		t.Fatalf("%f", z)
	}

	// Exact values from the closed-form solution of the square lattice.
	es, err := Compute(Es, ts, res)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if math.Abs(es-(-1.99710)) > 5e-3 {
		t.Fatalf("%f", es)
	}
	f, err := Compute(F, ts, res)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if math.Abs(f-(-2.00035)) > 5e-3 {
		t.Fatalf("%f", f)
	}

	// f = u - T*s with non-negative entropy.
	if f > es+1e-9 {
		t.Fatalf("f %f > es %f", f, es)
	}
}

func TestCorrelationLength(t *testing.T) {
	t.Parallel()
	betaC := math.Log(1+math.Sqrt(2)) / 2
	opt := NewOptions().Chi(12).Tol(1e-9).Count(10).MaxSteps(100000).
		Rand(rand.New(rand.NewPCG(1, 1)))
	ts, res := converge(t, ModelSpec{Model: Ising, Beta: betaC}, opt)

	// At criticality the correlation length is limited by the finite bond
	// dimension.
	xi, err := Compute(Xi, ts, res)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if xi < 100 || xi > 140 {
		t.Fatalf("%f", xi)
	}
}

func TestFixedBoundary(t *testing.T) {
	t.Parallel()
	opt := NewOptions().Chi(8).Tol(1e-7).Count(10).Boundary(true).Fixed(true).MaxSteps(100000)
	ts, res := converge(t, ModelSpec{Model: Ising, Beta: 0.5}, opt)

	mFixed, err := Compute(MFixed, ts, res)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if math.Abs(mFixed-0.911319) > 1e-5 {
		t.Fatalf("%f", mFixed)
	}
	zFixed, err := Compute(ZFixed, ts, res)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if !(zFixed > 0) {
		t.Fatalf("%f", zFixed)
	}
	xiFixed, err := Compute(XiFixed, ts, res)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if !(xiFixed > 0) {
		t.Fatalf("%f", xiFixed)
	}
}

func TestFixedWithoutFixedEdge(t *testing.T) {
	t.Parallel()
	opt := NewOptions().Chi(4).Rand(rand.New(rand.NewPCG(1, 1)))
	ts, res := converge(t, ModelSpec{Model: Ising, Beta: 0.3}, opt)
	for _, p := range []Prop{ZFixed, MFixed, XiFixed} {
		if _, err := Compute(p, ts, res); !errors.Is(err, ErrConfiguration) {
			t.Fatalf("%s %+v", p, err)
		}
	}
}

func TestBlumeCapel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		spec    ModelSpec
		ordered bool
	}{
		// A large crystal field coupling favors the zero state.
		{spec: ModelSpec{Model: BlumeCapel, Beta: 2, Coupling: 3}, ordered: false},
		// A negative coupling suppresses the zero state, deep in the
		// ordered phase the magnetization saturates.
		{spec: ModelSpec{Model: BlumeCapel, Beta: 1.2, Coupling: -1}, ordered: true},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%+v", test.spec), func(t *testing.T) {
			t.Parallel()
			opt := NewOptions().Chi(8).Tol(1e-7).Count(10).MaxSteps(100000).
				Rand(rand.New(rand.NewPCG(1, 1)))
			ts, res := converge(t, test.spec, opt)
			m, err := Compute(M, ts, res)
			if err != nil {
				t.Fatalf("%+v", err)
			}
			if test.ordered && m < 0.99 {
				t.Fatalf("%f", m)
			}
			if !test.ordered && m > 1e-3 {
				t.Fatalf("%f", m)
			}
		})
	}
}

func TestPropString(t *testing.T) {
	t.Parallel()
	wants := map[Prop]string{
		Z: "Z", M: "m", F: "f", Es: "Es", Xi: "xi",
		ZFixed: "Z_fixed", MFixed: "m_fixed", XiFixed: "xi_fixed",
	}
	for p, want := range wants {
		if got := p.String(); got != want {
			t.Fatalf("%s, expected %s", got, want)
		}
	}
}
