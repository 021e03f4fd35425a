package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	assim "github.com/assimlab/go-assim"
	"github.com/assimlab/go-assim/ekf"
	"github.com/assimlab/go-assim/sim"
	"github.com/assimlab/go-assim/storage"
)

var cli struct {
	Verbose bool   `short:"v" help:"Enable debug logging."`
	Run     RunCmd `cmd:"" help:"Run an assimilation cycle described by a YAML configuration file."`
}

// RunConfig describes one assimilation run. Matrix entries name files in
// the storage package formats: text by default, binary when the file
// name ends in .bin. Relative paths resolve against the configuration
// file directory.
type RunConfig struct {
	// Horizon is the number of forecast steps to run
	Horizon int `yaml:"horizon"`
	System  struct {
		// A is the state transition matrix file
		A string `yaml:"a"`
		// B is the optional control input matrix file
		B string `yaml:"b"`
		// C is the observation matrix file
		C string `yaml:"c"`
		// D is the optional feedthrough matrix file
		D string `yaml:"d"`
	} `yaml:"system"`
	Initial struct {
		// State is the initial state vector, inline
		State []float64 `yaml:"state"`
		// Covariance is the initial state error covariance matrix file
		Covariance string `yaml:"covariance"`
	} `yaml:"initial"`
	// ProcessNoise is the optional model error covariance matrix file
	ProcessNoise string `yaml:"processNoise"`
	// Input is an optional constant control input vector, inline
	Input       []float64 `yaml:"input"`
	Observation struct {
		// Covariance is the observation error covariance matrix file
		Covariance string `yaml:"covariance"`
		// Series is a text file with one observation row per time step
		Series string `yaml:"series"`
	} `yaml:"observation"`
	// Filter holds the driver parameters, overlaying the defaults
	Filter ekf.Config `yaml:"filter"`
	Output struct {
		// State receives the final state estimate, one value per line
		State string `yaml:"state"`
		// Covariance receives the final state error covariance
		Covariance string `yaml:"covariance"`
	} `yaml:"output"`
}

// RunCmd runs the full assimilation cycle for one configuration.
type RunCmd struct {
	Config string `arg:"" type:"existingfile" help:"Run configuration file (YAML)."`
}

func (r *RunCmd) Run(log *slog.Logger) error {
	cfg, err := loadRunConfig(r.Config)
	if err != nil {
		return err
	}
	dir := filepath.Dir(r.Config)

	drv, err := buildDriver(cfg, dir, log)
	if err != nil {
		return err
	}

	est, err := drv.Run()
	if err != nil {
		return fmt.Errorf("assimilation failed: %w", err)
	}
	log.Info("assimilation finished", "steps", drv.Step()+1)

	return writeOutputs(cfg, dir, est)
}

func loadRunConfig(path string) (*RunConfig, error) {
	cfg := &RunConfig{Filter: ekf.DefaultConfig()}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ekf.ErrConfiguration, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing %q: %v", ekf.ErrConfiguration, path, err)
	}

	if cfg.Horizon <= 0 {
		return nil, fmt.Errorf("%w: horizon must be positive, got %d", ekf.ErrConfiguration, cfg.Horizon)
	}
	if cfg.System.A == "" {
		return nil, fmt.Errorf("%w: system matrix file missing", ekf.ErrConfiguration)
	}
	if cfg.System.C == "" {
		return nil, fmt.Errorf("%w: observation matrix file missing", ekf.ErrConfiguration)
	}
	if len(cfg.Initial.State) == 0 {
		return nil, fmt.Errorf("%w: initial state missing", ekf.ErrConfiguration)
	}
	if cfg.Initial.Covariance == "" {
		return nil, fmt.Errorf("%w: initial covariance file missing", ekf.ErrConfiguration)
	}
	if cfg.Observation.Covariance == "" {
		return nil, fmt.Errorf("%w: observation covariance file missing", ekf.ErrConfiguration)
	}
	if cfg.Observation.Series == "" {
		return nil, fmt.Errorf("%w: observation series file missing", ekf.ErrConfiguration)
	}
	if err := cfg.Filter.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func buildDriver(cfg *RunConfig, dir string, log *slog.Logger) (*ekf.Driver, error) {
	a, err := loadDense(dir, cfg.System.A)
	if err != nil {
		return nil, err
	}
	var b, c, d *mat.Dense
	if cfg.System.B != "" {
		if b, err = loadDense(dir, cfg.System.B); err != nil {
			return nil, err
		}
	}
	if c, err = loadDense(dir, cfg.System.C); err != nil {
		return nil, err
	}
	if cfg.System.D != "" {
		if d, err = loadDense(dir, cfg.System.D); err != nil {
			return nil, err
		}
	}

	sys, err := sim.NewDiscrete(a, b, c, d, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ekf.ErrConfiguration, err)
	}

	p0, err := loadSym(dir, cfg.Initial.Covariance)
	if err != nil {
		return nil, err
	}
	x0 := mat.NewVecDense(len(cfg.Initial.State), cfg.Initial.State)

	var q mat.Symmetric
	if cfg.ProcessNoise != "" {
		if q, err = loadSym(dir, cfg.ProcessNoise); err != nil {
			return nil, err
		}
	}

	model, err := sim.NewModel(sys, sim.NewInitCond(x0, p0), q, cfg.Horizon)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ekf.ErrConfiguration, err)
	}
	if len(cfg.Input) > 0 {
		model.SetInput(mat.NewVecDense(len(cfg.Input), cfg.Input))
	}

	rCov, err := loadSym(dir, cfg.Observation.Covariance)
	if err != nil {
		return nil, err
	}
	obs, err := sim.NewObservationSource(c, rCov)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ekf.ErrConfiguration, err)
	}
	if err := loadSeries(obs, dir, cfg.Observation.Series, rCov.SymmetricDim()); err != nil {
		return nil, err
	}

	drv, err := ekf.New(model, obs, cfg.Filter)
	if err != nil {
		return nil, err
	}
	drv.SetLogger(log)
	return drv, nil
}

// loadDense reads a matrix file into a gonum dense matrix, taking over
// the storage buffer.
func loadDense(dir, path string) (*mat.Dense, error) {
	m, err := storage.NewDense(0, 0)
	if err != nil {
		return nil, err
	}
	if err := readLayout(m, resolve(dir, path)); err != nil {
		return nil, err
	}
	rows, cols := m.Dims()
	return mat.NewDense(rows, cols, m.Nullify()), nil
}

// loadSym reads a square matrix file through the symmetric layout,
// which validates squareness and mirrors the upper triangle.
func loadSym(dir, path string) (*mat.SymDense, error) {
	m, err := storage.NewSymmetric(0)
	if err != nil {
		return nil, err
	}
	if err := readLayout(m, resolve(dir, path)); err != nil {
		return nil, err
	}
	n := m.SymmetricDim()
	s := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			s.SetSym(i, j, m.At(i, j))
		}
	}
	return s, nil
}

// loadSeries reads the observation series file, one row per time step,
// and registers each row with its step index.
func loadSeries(obs *sim.ObservationSource, dir, path string, ny int) error {
	m, err := storage.NewDense(0, 0)
	if err != nil {
		return err
	}
	if err := readLayout(m, resolve(dir, path)); err != nil {
		return err
	}
	steps, cols := m.Dims()
	if cols != ny {
		return fmt.Errorf("%w: observation series has %d columns, want %d", ekf.ErrConfiguration, cols, ny)
	}
	data := m.Nullify()
	for i := 0; i < steps; i++ {
		y := mat.NewVecDense(ny, data[i*ny:(i+1)*ny])
		if err := obs.Add(i, y, nil); err != nil {
			return fmt.Errorf("%w: observation at step %d: %v", ekf.ErrConfiguration, i, err)
		}
	}
	return nil
}

func readLayout(m storage.Layout, path string) error {
	if strings.HasSuffix(path, ".bin") {
		return storage.ReadFile(m, path)
	}
	return storage.ReadTextFile(m, path)
}

func writeOutputs(cfg *RunConfig, dir string, est assim.Estimate) error {
	x := est.Val()
	if cfg.Output.State != "" {
		out, err := storage.NewDense(x.Len(), 1)
		if err != nil {
			return err
		}
		for i := 0; i < x.Len(); i++ {
			out.Set(i, 0, x.AtVec(i))
		}
		if err := writeLayout(out, resolve(dir, cfg.Output.State)); err != nil {
			return err
		}
	} else {
		fmt.Printf("final state:\n%v\n", mat.Formatted(x, mat.Prefix(""), mat.Squeeze()))
	}

	if cfg.Output.Covariance != "" {
		p := est.Cov()
		n := p.SymmetricDim()
		out, err := storage.NewSymmetric(n)
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			for j := i; j < n; j++ {
				out.Set(i, j, p.At(i, j))
			}
		}
		if err := writeLayout(out, resolve(dir, cfg.Output.Covariance)); err != nil {
			return err
		}
	}
	return nil
}

func writeLayout(m storage.Layout, path string) error {
	if strings.HasSuffix(path, ".bin") {
		return storage.WriteFile(m, path)
	}
	return storage.WriteTextFile(m, path)
}

func resolve(dir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("assim"),
		kong.Description("Sequential data assimilation runner."),
		kong.HelpOptions{Compact: true},
		kong.UsageOnError(),
	)

	level := slog.LevelInfo
	if cli.Verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := ctx.Run(log); err != nil {
		fmt.Fprintln(os.Stderr, "assim:", err)
		os.Exit(1)
	}
}
