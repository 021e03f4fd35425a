// Package solver implements the symmetric Quasi-Minimal Residual (SQMR)
// Krylov method for symmetric, possibly indefinite linear systems. The
// matrix enters only through matrix-vector products, so any mat.Matrix,
// including the packed layouts of the storage package, can be solved
// without factorization.
package solver

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Error codes recorded by Iteration. Zero means converged; the breakdown
// codes match the order in which the pivots appear in the recurrence.
const (
	CodeConverged     = 0
	CodeRhoBreakdown  = 1
	CodeDeltaZero     = 3
	CodeEpsilonZero   = 4
	CodeBetaZero      = 5
	CodeGammaZero     = 6
	CodeMaxIterations = -2
)

// BreakdownError is an exact zero pivot in the iterative recurrence.
// Breakdown is an expected numerical outcome, not a program defect: the
// last valid iterate is left in the solution vector.
type BreakdownError struct {
	// Code is the numeric status code of the breakdown
	Code int
	// Pivot names the scalar that vanished
	Pivot string
}

// Error implements the error interface.
func (e *BreakdownError) Error() string {
	return fmt.Sprintf("solver breakdown #%d: %s is zero", e.Code, e.Pivot)
}

// Named breakdown conditions, one per zero-pivot site.
var (
	ErrRhoBreakdown = &BreakdownError{Code: CodeRhoBreakdown, Pivot: "rho"}
	ErrDeltaZero    = &BreakdownError{Code: CodeDeltaZero, Pivot: "delta"}
	ErrEpsilonZero  = &BreakdownError{Code: CodeEpsilonZero, Pivot: "epsilon"}
	ErrBetaZero     = &BreakdownError{Code: CodeBetaZero, Pivot: "beta"}
	ErrGammaZero    = &BreakdownError{Code: CodeGammaZero, Pivot: "gamma"}
)

// ErrMaxIterations is returned when the iteration cap is reached before
// the residual criterion.
var ErrMaxIterations = errors.New("solver: maximum number of iterations reached")

// Iteration holds the convergence parameters of a solve and accumulates
// its iteration counter and error code. It is mutated only by the
// solver; callers read it to detect failure and inspect progress.
type Iteration struct {
	// Tolerance is the relative residual tolerance
	Tolerance float64
	// MaxIterations caps the number of iterations
	MaxIterations int

	n             int
	errCode       int
	initGuessNull bool
	normB         float64
}

// NewIteration creates iteration parameters with the given relative
// tolerance and iteration cap. The initial guess is treated as zero
// until SetInitGuess is called.
func NewIteration(tol float64, maxIterations int) *Iteration {
	return &Iteration{
		Tolerance:     tol,
		MaxIterations: maxIterations,
		initGuessNull: true,
	}
}

// Init prepares the iteration for a new right-hand side b.
func (it *Iteration) Init(b mat.Vector) {
	it.n = 0
	it.errCode = CodeConverged
	it.normB = mat.Norm(b, 2)
	if it.normB == 0 {
		it.normB = 1
	}
}

// SetInitGuess declares whether the caller supplies a nonzero initial
// guess in the solution vector.
func (it *Iteration) SetInitGuess(nonzero bool) {
	it.initGuessNull = !nonzero
}

// IsInitGuessNull reports whether the initial guess is defined to be zero.
func (it *Iteration) IsInitGuessNull() bool { return it.initGuessNull }

// First reports whether the current iteration is the first one.
func (it *Iteration) First() bool { return it.n == 0 }

// Next advances the iteration counter.
func (it *Iteration) Next() { it.n++ }

// N returns the number of iterations performed.
func (it *Iteration) N() int { return it.n }

// ErrorCode returns the status of the last solve: zero when converged,
// a breakdown code or CodeMaxIterations otherwise.
func (it *Iteration) ErrorCode() int { return it.errCode }

// Fail records a breakdown and returns it.
func (it *Iteration) Fail(err *BreakdownError) error {
	it.errCode = err.Code
	return err
}

// Finished reports whether the iteration should stop: either the
// relative residual dropped below the tolerance or the iteration cap
// was reached.
func (it *Iteration) Finished(r mat.Vector) bool {
	if mat.Norm(r, 2) <= it.Tolerance*it.normB {
		return true
	}
	if it.n >= it.MaxIterations {
		it.errCode = CodeMaxIterations
		return true
	}
	return false
}
