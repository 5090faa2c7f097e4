// Command run sweeps a spin lattice model over a temperature grid with
// the CTMRG algorithm, stores the results, and prints a CSV summary.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/fumin/ctm/sweep"
)

const fnameResults = "results.db"

var (
	configPath = flag.String("c", "", "sweep configuration file, empty for the default sweep")
	runDir     = flag.String("d", filepath.Join("runs", "ctm"), "run directory")
)

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds | log.Llongfile | log.LstdFlags)

	if err := mainWithErr(); err != nil {
		log.Fatalf("%+v", err)
	}
}

func mainWithErr() error {
	cfg := sweep.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = sweep.LoadConfig(*configPath); err != nil {
			return errors.Wrap(err, "")
		}
	}

	if err := os.MkdirAll(*runDir, os.ModePerm); err != nil {
		return errors.Wrap(err, "")
	}
	store, err := sweep.Open(filepath.Join(*runDir, fnameResults))
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer store.Close()

	for _, chi := range cfg.Chis {
		points, err := sweep.Run(cfg, chi)
		if err != nil {
			return errors.Wrapf(err, "chi %d", chi)
		}
		for _, p := range points {
			if err := put(store, p); err != nil {
				return errors.Wrap(err, "")
			}
		}
		log.Printf("chi=%d %d points", chi, len(points))
	}

	// Gather results and print them.
	fmt.Printf("model,chi,temperature,iterations,converged,m,f,es,xi\n")
	for _, chi := range cfg.Chis {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		points, err := store.Points(ctx, cfg.Model, chi)
		cancel()
		if err != nil {
			return errors.Wrap(err, "")
		}
		for _, p := range points {
			fmt.Printf("%s,%d,%f,%d,%t,%f,%f,%f,%f\n", p.Model, p.Chi, p.Temperature, p.Iterations, p.Converged, p.M, p.F, p.Es, p.Xi)
		}
	}
	return nil
}

func put(store *sweep.Store, p sweep.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := store.Put(ctx, p); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}
