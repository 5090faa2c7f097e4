package sweep

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fumin/ctm/tensor"
)

func TestRun(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	// A short grid above the critical temperature, where convergence is fast.
	cfg.Chis = []int{4}
	cfg.TMin, cfg.TMax, cfg.TStep = 2.8, 3.05, 0.1
	cfg.Seed = 1

	points, err := Run(cfg, 4)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if len(points) != 3 {
		t.Fatalf("%d", len(points))
	}
	for i, p := range points {
		if !p.Converged {
			t.Fatalf("%d %+v", i, p)
		}
		if p.Model != "ising" || p.Chi != 4 {
			t.Fatalf("%d %+v", i, p)
		}
		// Disordered phase.
		if p.M > 1e-3 {
			t.Fatalf("%d m=%f", i, p.M)
		}
		if !(p.Z > 0) || !(p.Xi > 0) {
			t.Fatalf("%d %+v", i, p)
		}
		if i > 0 && points[i-1].Temperature >= p.Temperature {
			t.Fatalf("%f %f", points[i-1].Temperature, p.Temperature)
		}
		if p.C == nil || p.T == nil {
			t.Fatalf("%d %+v", i, p)
		}
	}
}

func TestRunFixed(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.Chis = []int{4}
	cfg.TMin, cfg.TMax, cfg.TStep = 2.0, 2.05, 0.1
	cfg.UsePrev = false
	cfg.Boundary = true
	cfg.Fixed = true

	points, err := Run(cfg, 4)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if len(points) != 1 {
		t.Fatalf("%d", len(points))
	}
	// Below the critical temperature the fixed boundary selects the ordered
	// state.
	if points[0].MFixed < 0.7 {
		t.Fatalf("%f", points[0].MFixed)
	}
}

func TestStore(t *testing.T) {
	t.Parallel()
	dir, err := os.MkdirTemp("", "")
	if err != nil {
		t.Fatalf("%+v", err)
	}
	defer os.RemoveAll(dir)

	store, err := Open(filepath.Join(dir, "results.db"))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	defer store.Close()

	c := tensor.T2([][]float64{{1, 0.5}, {0.5, 1}})
	edge := tensor.Zeros(2, 2, 2)
	edge.SetAt([]int{0, 1, 1}, 0.25)
	points := []Point{
		{Model: "ising", Chi: 4, Temperature: 2.3, Iterations: 17, Converged: true, Z: 1.5, M: 0.4, F: -2.1, Es: -1.2, Xi: 3.4, C: c, T: edge},
		{Model: "ising", Chi: 4, Temperature: 2.2, Iterations: 25, Converged: false, Z: 1.6, M: 0.6, F: -2.2, Es: -1.4, Xi: 5.6, MFixed: 0.55, C: c, T: edge},
		{Model: "ising", Chi: 8, Temperature: 2.3, Iterations: 11, Converged: true, Z: 1.7, M: 0.5, F: -2.3, Es: -1.3, Xi: 4.5, C: c, T: edge},
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	for _, p := range points {
		if err := store.Put(ctx, p); err != nil {
			t.Fatalf("%+v", err)
		}
	}

	// Points come back in ascending temperature order, filtered by chi.
	got, err := store.Points(ctx, "ising", 4)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if len(got) != 2 {
		t.Fatalf("%d", len(got))
	}
	if got[0].Temperature != 2.2 || got[1].Temperature != 2.3 {
		t.Fatalf("%+v", got)
	}
	if got[0].Iterations != 25 || got[0].Converged || got[0].MFixed != 0.55 {
		t.Fatalf("%+v", got[0])
	}
	if !tensor.EqualApprox(got[0].C, c, 0) || !tensor.EqualApprox(got[0].T, edge, 0) {
		t.Fatalf("%+v", got[0])
	}

	// Re-putting a point overwrites it.
	points[0].M = 0.45
	if err := store.Put(ctx, points[0]); err != nil {
		t.Fatalf("%+v", err)
	}
	got, err = store.Points(ctx, "ising", 4)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if len(got) != 2 || got[1].M != 0.45 {
		t.Fatalf("%+v", got)
	}
}
