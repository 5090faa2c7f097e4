package sweep

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/fumin/ctm"
)

// Config describes a temperature sweep.
type Config struct {
	// Model is "ising" or "blume_capel".
	Model string `yaml:"model"`
	// Coupling is the Blume-Capel crystal field coupling.
	Coupling float64 `yaml:"coupling"`
	// Field is the Blume-Capel external field.
	Field float64 `yaml:"field"`

	// Chis are the bond dimensions to sweep, each in its own pass.
	Chis []int `yaml:"chis"`

	// TMin, TMax and TStep define the temperature grid, swept in
	// ascending order.
	TMin  float64 `yaml:"t_min"`
	TMax  float64 `yaml:"t_max"`
	TStep float64 `yaml:"t_step"`

	Tol      float64 `yaml:"tol"`
	Count    int     `yaml:"count"`
	MaxSteps int     `yaml:"max_steps"`

	// UsePrev warm-starts every point from the converged tensors of the
	// previous temperature. Points then run strictly in order.
	UsePrev bool `yaml:"use_prev"`
	// Boundary initializes from exact finite-patch tensors.
	Boundary bool `yaml:"boundary"`
	// Fixed additionally evolves a fixed-boundary edge tensor.
	Fixed bool `yaml:"fixed"`

	// Seed seeds the random initial tensors. Zero means unseeded.
	Seed uint64 `yaml:"seed"`
}

// DefaultConfig returns a sweep around the Ising critical temperature.
func DefaultConfig() Config {
	return Config{
		Model:    "ising",
		Chis:     []int{4, 8, 12},
		TMin:     2.1,
		TMax:     2.4,
		TStep:    0.01,
		Tol:      1e-7,
		Count:    10,
		MaxSteps: 100000,
		UsePrev:  true,
	}
}

// LoadConfig reads a YAML sweep configuration. Missing fields keep their
// default values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "")
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, errors.Wrap(err, path)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, errors.Wrap(err, path)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if _, err := c.model(); err != nil {
		return err
	}
	if len(c.Chis) == 0 {
		return errors.Errorf("no bond dimensions")
	}
	if !(c.TMin > 0) || !(c.TMax > c.TMin) || !(c.TStep > 0) {
		return errors.Errorf("temperature grid %f %f %f", c.TMin, c.TMax, c.TStep)
	}
	return nil
}

func (c Config) model() (ctm.Model, error) {
	switch c.Model {
	case "ising":
		return ctm.Ising, nil
	case "blume_capel":
		return ctm.BlumeCapel, nil
	default:
		return 0, errors.Errorf("unknown model %q", c.Model)
	}
}

// spec returns the model specification at temperature t.
func (c Config) spec(t float64) (ctm.ModelSpec, error) {
	model, err := c.model()
	if err != nil {
		return ctm.ModelSpec{}, err
	}
	spec := ctm.ModelSpec{Model: model, Beta: 1 / t}
	if model == ctm.BlumeCapel {
		spec.Coupling = c.Coupling
		spec.Field = c.Field
	}
	return spec, nil
}

// temperatures returns the ascending temperature grid.
func (c Config) temperatures() []float64 {
	ts := make([]float64, 0)
	for t := c.TMin; t < c.TMax; t += c.TStep {
		ts = append(ts, t)
	}
	return ts
}
