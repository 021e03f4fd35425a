package assim

import "gonum.org/v1/gonum/mat"

// Model is the forward model driven by the assimilation cycle.
// The model owns its state vector and state error variance; the driver
// holds the returned views across a cycle and mutates them in place
// during the analysis step.
type Model interface {
	// State returns a view of the current model state
	State() *mat.VecDense
	// StateErrorVariance returns a view of the state error covariance
	StateErrorVariance() *mat.SymDense
	// Forward advances the model state by one time step
	Forward() error
	// TangentLinearOperator returns the model Jacobian at the current state
	TangentLinearOperator() mat.Matrix
	// ErrorVariance returns the process noise covariance, or nil if none
	ErrorVariance() mat.Symmetric
	// HasFinished reports whether the model reached its time horizon
	HasFinished() bool
}

// ObservationManager provides observations and their error statistics
// to the assimilation cycle.
type ObservationManager interface {
	// HasObservation reports whether an observation exists at the given step
	HasObservation(step int) bool
	// Innovation returns the innovation d = y - H(x) for the given state
	Innovation(x mat.Vector) (*mat.VecDense, error)
	// TangentLinearOperator returns the linearized observation operator H
	TangentLinearOperator() mat.Matrix
	// ErrorVariance returns the observation noise covariance R
	ErrorVariance() mat.Symmetric
}

// Estimate is a state estimate snapshot
type Estimate interface {
	// Val returns estimate value
	Val() mat.Vector
	// Cov returns estimate covariance
	Cov() mat.Symmetric
}

// InitCond is initial state condition of the assimilation
type InitCond interface {
	// State returns initial state
	State() mat.Vector
	// Cov returns initial state covariance
	Cov() mat.Symmetric
}

// Noise is dynamical system noise
type Noise interface {
	// Mean returns noise mean
	Mean() []float64
	// Cov returns covariance matrix of the noise
	Cov() mat.Symmetric
	// Sample returns a sample of the noise
	Sample() mat.Vector
	// Reset resets the noise
	Reset()
}
