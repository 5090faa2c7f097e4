package ctm_test

import (
	"fmt"
	"log"
	"math/rand/v2"

	"github.com/fumin/ctm"
)

func Example() {
	// Build the lattice tensors of the Ising model at inverse temperature 0.5.
	ts, err := ctm.BuildTensors(ctm.ModelSpec{Model: ctm.Ising, Beta: 0.5})
	if err != nil {
		log.Fatalf("%+v", err)
	}

	// Renormalize with bond dimension 8 until convergence.
	opt := ctm.NewOptions().Chi(8).Tol(1e-7).Count(10).Rand(rand.New(rand.NewPCG(1, 1)))
	alg, err := ctm.New(ts, opt)
	if err != nil {
		log.Fatalf("%+v", err)
	}
	res, err := alg.Run()
	if err != nil {
		log.Fatalf("%+v", err)
	}

	// Compute the spontaneous magnetization of the converged system.
	m, err := ctm.Compute(ctm.M, ts, res)
	if err != nil {
		log.Fatalf("%+v", err)
	}
	fmt.Printf("m = %.6f\n", m)

	// Output:
	// m = 0.911319
}
