package ekf

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrConfiguration is returned on bad or missing driver configuration.
// Configuration errors are fatal: they abort before the first cycle.
var ErrConfiguration = errors.New("invalid configuration")

// SolverConfig selects how the analysis step solves the innovation
// covariance system when computing the Kalman gain.
type SolverConfig struct {
	// Iterative selects the symmetric QMR solver instead of a direct
	// factorization. Useful when the innovation covariance is large or
	// ill-conditioned.
	Iterative bool `yaml:"iterative"`
	// Preconditioner is "identity" or "jacobi"
	Preconditioner string `yaml:"preconditioner"`
	// Tolerance is the relative residual tolerance of the iterative solver
	Tolerance float64 `yaml:"tolerance"`
	// MaxIterations caps the iterative solver
	MaxIterations int `yaml:"maxIterations"`
}

// Config holds the driver parameters.
type Config struct {
	// Solver configures the gain computation
	Solver SolverConfig `yaml:"solver"`
	// Symmetrize applies the (P+P^T)/2 correction after each analysis
	Symmetrize bool `yaml:"symmetrize"`
}

// DefaultConfig returns the configuration used when no file is supplied.
func DefaultConfig() Config {
	return Config{
		Solver: SolverConfig{
			Preconditioner: "identity",
			Tolerance:      1e-10,
			MaxIterations:  200,
		},
		Symmetrize: true,
	}
}

// LoadConfig reads a YAML configuration file, overlaying the defaults.
// It fails with ErrConfiguration if the file cannot be read, parsed or
// validated.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: parsing %q: %v", ErrConfiguration, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate checks the configuration values.
func (c Config) Validate() error {
	if c.Solver.Tolerance <= 0 {
		return fmt.Errorf("%w: solver tolerance must be positive, got %g", ErrConfiguration, c.Solver.Tolerance)
	}
	if c.Solver.MaxIterations <= 0 {
		return fmt.Errorf("%w: solver iteration cap must be positive, got %d", ErrConfiguration, c.Solver.MaxIterations)
	}
	switch c.Solver.Preconditioner {
	case "", "identity", "jacobi":
	default:
		return fmt.Errorf("%w: unknown preconditioner %q", ErrConfiguration, c.Solver.Preconditioner)
	}
	return nil
}
