// Package sweep executes CTMRG runs over a temperature grid and persists
// the extracted observables.
package sweep

import (
	"log"
	"math/rand/v2"
	"time"

	"github.com/pkg/errors"

	"github.com/fumin/ctm"
	"github.com/fumin/ctm/sweep/util"
	"github.com/fumin/ctm/tensor"
)

// Point holds the outcome of one sweep point.
type Point struct {
	Model       string
	Chi         int
	Temperature float64
	Iterations  int
	Converged   bool

	// Z, M, F, Es and Xi are the partition function, magnetization, free
	// energy per site, internal energy per site and correlation length.
	Z  float64
	M  float64
	F  float64
	Es float64
	Xi float64

	// MFixed is the fixed-boundary magnetization, zero unless the sweep
	// tracked a fixed edge tensor.
	MFixed float64

	// C and T are the terminal corner and edge tensors.
	C *tensor.Dense
	T *tensor.Dense
}

// Run executes the sweep for one bond dimension. Points along the
// temperature axis run strictly in order, since with UsePrev every point
// seeds the next.
func Run(cfg Config, chi int) ([]Point, error) {
	if err := cfg.validate(); err != nil {
		return nil, errors.Wrap(err, "")
	}
	var rng *rand.Rand
	if cfg.Seed != 0 {
		rng = rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))
	}

	points := make([]Point, 0)
	var warmC, warmT *tensor.Dense
	throttler := util.NewSkipThrottler(10 * time.Second)
	for _, temperature := range cfg.temperatures() {
		spec, err := cfg.spec(temperature)
		if err != nil {
			return points, errors.Wrap(err, "")
		}
		ts, err := ctm.BuildTensors(spec)
		if err != nil {
			return points, errors.Wrapf(err, "T=%f", temperature)
		}

		opt := ctm.NewOptions().
			Chi(chi).Tol(cfg.Tol).Count(cfg.Count).MaxSteps(cfg.MaxSteps).
			Boundary(cfg.Boundary).Fixed(cfg.Fixed).
			Warm(warmC, warmT).Rand(rng)
		alg, err := ctm.New(ts, opt)
		if err != nil {
			return points, errors.Wrapf(err, "T=%f", temperature)
		}
		res, err := alg.Run()
		if err != nil {
			return points, errors.Wrapf(err, "T=%f", temperature)
		}
		if cfg.UsePrev {
			warmC, warmT = res.C, res.T
		}

		p, err := extract(ts, res)
		if err != nil {
			return points, errors.Wrapf(err, "T=%f", temperature)
		}
		p.Model, p.Chi, p.Temperature = cfg.Model, chi, temperature
		points = append(points, p)

		if throttler.Ok() {
			log.Printf("chi=%d T=%f m=%f iterations=%d converged=%t", chi, temperature, p.M, p.Iterations, p.Converged)
		}
	}
	return points, nil
}

func extract(ts *ctm.Tensors, res ctm.Result) (Point, error) {
	xi, err := ctm.CorrelationLength(res.T)
	if err != nil {
		return Point{}, errors.Wrap(err, "")
	}
	p := Point{
		Iterations: res.Iterations,
		Converged:  res.Converged,
		Z:          ctm.PartitionFunction(res.C, res.T, ts.A),
		M:          ctm.Magnetization(res.C, res.T, ts.A, ts.B),
		F:          ctm.FreeEnergy(res.C, res.T, ts.A, ts.Spec.Beta),
		Es:         ctm.InternalEnergy(res.C, res.T, ts.A, ts.B),
		Xi:         xi,
		C:          res.C,
		T:          res.T,
	}
	if res.TFixed != nil {
		p.MFixed = ctm.MagnetizationFixed(res.C, res.T, res.TFixed, ts.A, ts.B)
	}
	return p, nil
}
