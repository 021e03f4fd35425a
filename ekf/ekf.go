// Package ekf implements the Extended Kalman Filter assimilation
// driver: the Initialize -> {InitializeStep -> Forward -> Analyze ->
// FinalizeStep}* -> Finalize cycle that propagates a model state and
// its error covariance and corrects them against observations.
package ekf

import (
	"errors"
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/mat"

	assim "github.com/assimlab/go-assim"
	"github.com/assimlab/go-assim/estimate"
	"github.com/assimlab/go-assim/matrix"
	"github.com/assimlab/go-assim/solver"
)

// ErrCycleOrder is returned when a cycle method is called out of order.
var ErrCycleOrder = errors.New("invalid cycle order")

// Status is the driver state machine position.
type Status int

const (
	// Uninitialized is the state before Initialize
	Uninitialized Status = iota
	// Ready is the state after Initialize, before the first step
	Ready
	// Forecasting is the state between InitializeStep and Analyze
	Forecasting
	// Corrected is the state after Analyze, before the next step
	Corrected
	// Finished is the state after Finalize
	Finished
)

// String implements the Stringer interface.
func (s Status) String() string {
	switch s {
	case Uninitialized:
		return "Uninitialized"
	case Ready:
		return "Ready"
	case Forecasting:
		return "Forecasting"
	case Corrected:
		return "Corrected"
	case Finished:
		return "Finished"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Driver runs the Extended Kalman Filter assimilation cycle over a
// model and an observation manager. It is strictly sequential: each
// step must complete before the next begins, in the fixed order
// InitializeStep, Forward, Analyze, FinalizeStep.
type Driver struct {
	// m is the forward model
	m assim.Model
	// om is the observation manager
	om assim.ObservationManager
	// cfg is the driver configuration
	cfg Config
	// log records per-cycle progress
	log *slog.Logger

	// status is the state machine position
	status Status
	// forwarded marks that the current step's forecast has run
	forwarded bool
	// step is the cycle time index, -1 before the first step
	step int
	// x is the view of the model state
	x *mat.VecDense
	// p is the view of the state error covariance
	p *mat.SymDense
	// inn is the last innovation vector
	inn *mat.VecDense
	// k is the last Kalman gain
	k *mat.Dense
}

// New creates a driver for the given model and observation manager.
// It returns error if either is nil or the configuration is invalid.
func New(m assim.Model, om assim.ObservationManager, cfg Config) (*Driver, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil model", ErrConfiguration)
	}
	if om == nil {
		return nil, fmt.Errorf("%w: nil observation manager", ErrConfiguration)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Driver{
		m:      m,
		om:     om,
		cfg:    cfg,
		log:    slog.Default(),
		status: Uninitialized,
		step:   -1,
	}, nil
}

// SetLogger replaces the driver logger.
func (d *Driver) SetLogger(log *slog.Logger) {
	if log != nil {
		d.log = log
	}
}

// Initialize pulls the initial state and covariance views from the
// model. The driver holds these views for the whole run and mutates
// them in place during analysis.
func (d *Driver) Initialize() error {
	if d.status != Uninitialized {
		return fmt.Errorf("%w: Initialize in state %v", ErrCycleOrder, d.status)
	}

	d.x = d.m.State()
	d.p = d.m.StateErrorVariance()
	if d.x == nil || d.p == nil {
		return fmt.Errorf("%w: model returned no state or covariance", ErrConfiguration)
	}
	if d.x.Len() != d.p.SymmetricDim() {
		return fmt.Errorf("%w: state dimension %d does not match covariance dimension %d",
			ErrConfiguration, d.x.Len(), d.p.SymmetricDim())
	}

	d.status = Ready
	d.log.Debug("driver initialized", "n", d.x.Len())

	return nil
}

// InitializeStep advances the cycle time index and prepares the
// forecast.
func (d *Driver) InitializeStep() error {
	if d.status != Ready && d.status != Corrected {
		return fmt.Errorf("%w: InitializeStep in state %v", ErrCycleOrder, d.status)
	}

	d.step++
	d.status = Forecasting
	d.forwarded = false

	return nil
}

// Forward advances the model by one step and propagates the error
// covariance through the tangent linear operator:
//
//	P <- F*P*F^T + Q
func (d *Driver) Forward() error {
	if d.status != Forecasting || d.forwarded {
		return fmt.Errorf("%w: Forward in state %v", ErrCycleOrder, d.status)
	}
	d.forwarded = true

	if err := d.m.Forward(); err != nil {
		return fmt.Errorf("forecast failed at step %d: %w", d.step, err)
	}

	f := d.m.TangentLinearOperator()

	cov := &mat.Dense{}
	cov.Mul(f, d.p)
	cov.Mul(cov, f.T())

	if q := d.m.ErrorVariance(); q != nil && q.SymmetricDim() > 0 {
		cov.Add(cov, q)
	}

	// the product drifts off exact symmetry in floating point
	matrix.Symmetrize(d.p, cov)

	return nil
}

// Analyze corrects the state and covariance against the observation at
// the current step, if one exists:
//
//	K = P*H^T * (H*P*H^T + R)^-1
//	x <- x + K*d
//	P <- (I - K*H)*P
//
// A step without an observation leaves state and covariance at their
// forecast values. A failed gain computation aborts the cycle with the
// time index attached: a silently skipped correction would degrade the
// filter with no visible signal.
func (d *Driver) Analyze() error {
	if d.status != Forecasting || !d.forwarded {
		return fmt.Errorf("%w: Analyze in state %v", ErrCycleOrder, d.status)
	}

	if !d.om.HasObservation(d.step) {
		d.log.Debug("no observation", "step", d.step)
		d.status = Corrected
		return nil
	}

	inn, err := d.om.Innovation(d.x)
	if err != nil {
		return fmt.Errorf("analysis failed at step %d: %w", d.step, err)
	}

	h := d.om.TangentLinearOperator()
	ny, nx := h.Dims()
	if nx != d.x.Len() {
		return fmt.Errorf("analysis failed at step %d: observation operator columns %d do not match state %d",
			d.step, nx, d.x.Len())
	}

	// P*H^T
	pht := &mat.Dense{}
	pht.Mul(d.p, h.T())

	// S = H*P*H^T + R
	s := &mat.Dense{}
	s.Mul(h, pht)
	if r := d.om.ErrorVariance(); r != nil && r.SymmetricDim() > 0 {
		s.Add(s, r)
	}

	gain, err := d.gain(pht, s, ny, nx)
	if err != nil {
		return fmt.Errorf("analysis failed at step %d: %w", d.step, err)
	}

	// x <- x + K*d
	corr := mat.NewVecDense(nx, nil)
	corr.MulVec(gain, inn)
	d.x.AddVec(d.x, corr)

	// P <- (I - K*H)*P
	a := &mat.Dense{}
	a.Mul(gain, h)
	a.Sub(matrix.Identity(nx), a)
	ap := &mat.Dense{}
	ap.Mul(a, d.p)

	if d.cfg.Symmetrize {
		matrix.Symmetrize(d.p, ap)
	} else {
		for i := 0; i < nx; i++ {
			for j := i; j < nx; j++ {
				d.p.SetSym(i, j, ap.At(i, j))
			}
		}
	}

	d.inn = inn
	d.k = gain
	d.status = Corrected
	d.log.Debug("analysis", "step", d.step, "innovation", mat.Norm(inn, 2))

	return nil
}

// gain computes K = pht * s^-1 either directly or, when configured,
// column by column with the symmetric QMR solver.
func (d *Driver) gain(pht, s *mat.Dense, ny, nx int) (*mat.Dense, error) {
	k := mat.NewDense(nx, ny, nil)

	if !d.cfg.Solver.Iterative {
		sInv := &mat.Dense{}
		if err := sInv.Inverse(s); err != nil {
			return nil, fmt.Errorf("innovation covariance inversion failed: %v", err)
		}
		k.Mul(pht, sInv)
		return k, nil
	}

	var pre solver.Preconditioner = solver.Identity{}
	if d.cfg.Solver.Preconditioner == "jacobi" {
		pre = solver.Jacobi{}
	}

	// K^T column i solves S * col = (P*H^T) row i, S symmetric
	col := mat.NewVecDense(ny, nil)
	for i := 0; i < nx; i++ {
		it := solver.NewIteration(d.cfg.Solver.Tolerance, d.cfg.Solver.MaxIterations)
		if err := solver.QMRSym(s, col, pht.RowView(i), pre, it); err != nil {
			return nil, fmt.Errorf("gain solve for state component %d: %w", i, err)
		}
		for j := 0; j < ny; j++ {
			k.Set(i, j, col.AtVec(j))
		}
	}

	return k, nil
}

// FinalizeStep commits the step results and reports progress.
func (d *Driver) FinalizeStep() error {
	if d.status != Corrected {
		return fmt.Errorf("%w: FinalizeStep in state %v", ErrCycleOrder, d.status)
	}

	d.log.Info("step finished", "step", d.step, "trace", matrix.Trace(d.p), "finished", d.m.HasFinished())

	return nil
}

// Finalize releases the driver views and closes the run.
func (d *Driver) Finalize() error {
	d.x = nil
	d.p = nil
	d.status = Finished

	return nil
}

// HasFinished reports whether the model reached its time horizon.
func (d *Driver) HasFinished() bool {
	return d.m.HasFinished()
}

// Run executes the full assimilation cycle in the contract order:
//
//	Initialize -> while !HasFinished { InitializeStep; Forward; Analyze; FinalizeStep } -> Finalize
//
// It returns the final estimate. On a step failure the cycle is aborted
// and the error is returned with the time index attached by the failing
// step.
func (d *Driver) Run() (assim.Estimate, error) {
	if err := d.Initialize(); err != nil {
		return nil, err
	}

	for !d.HasFinished() {
		if err := d.InitializeStep(); err != nil {
			return nil, err
		}
		if err := d.Forward(); err != nil {
			return nil, err
		}
		if err := d.Analyze(); err != nil {
			return nil, err
		}
		if err := d.FinalizeStep(); err != nil {
			return nil, err
		}
	}

	est, err := d.Estimate()
	if err != nil {
		return nil, err
	}
	if err := d.Finalize(); err != nil {
		return nil, err
	}

	return est, nil
}

// Estimate returns a snapshot of the current state and covariance.
func (d *Driver) Estimate() (*estimate.Base, error) {
	if d.x == nil || d.p == nil {
		return nil, fmt.Errorf("%w: Estimate in state %v", ErrCycleOrder, d.status)
	}
	return estimate.New(d.x, d.p, d.step)
}

// Status returns the state machine position.
func (d *Driver) Status() Status { return d.status }

// Step returns the current cycle time index.
func (d *Driver) Step() int { return d.step }

// Innovation returns the innovation vector of the last analysis, or nil
// if no analysis has run yet.
func (d *Driver) Innovation() mat.Vector {
	if d.inn == nil {
		return nil
	}
	inn := &mat.VecDense{}
	inn.CloneFromVec(d.inn)
	return inn
}

// Gain returns the Kalman gain of the last analysis, or nil if no
// analysis has run yet.
func (d *Driver) Gain() mat.Matrix {
	if d.k == nil {
		return nil
	}
	gain := &mat.Dense{}
	gain.CloneFrom(d.k)
	return gain
}
