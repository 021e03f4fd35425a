package sim

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	assim "github.com/assimlab/go-assim"
)

// Model binds a linear discrete-time system to a state, an error
// covariance and a time horizon, implementing assim.Model. The model
// owns both the state vector and the covariance; the driver mutates
// them in place through the returned views.
type Model struct {
	sys *Discrete
	// x is the model state
	x *mat.VecDense
	// p is the state error covariance
	p *mat.SymDense
	// q is the process noise covariance, nil for a perfect model
	q mat.Symmetric
	// u is a constant control input, nil for an autonomous system
	u *mat.VecDense
	// horizon is the number of steps the model runs for
	horizon int
	// step counts the Forward calls so far
	step int
}

// NewModel creates a model from the system sys, initial condition ic
// and process noise covariance q, running for horizon steps.
// It returns error if the dimensions disagree or horizon is not positive.
func NewModel(sys *Discrete, ic assim.InitCond, q mat.Symmetric, horizon int) (*Model, error) {
	if sys == nil || ic == nil {
		return nil, fmt.Errorf("invalid system or initial condition")
	}
	if horizon <= 0 {
		return nil, fmt.Errorf("invalid horizon: %d", horizon)
	}

	nx, _, _, _ := sys.SystemDims()
	if ic.State().Len() != nx || ic.Cov().SymmetricDim() != nx {
		return nil, fmt.Errorf("initial condition does not match state dimension %d", nx)
	}
	if q != nil && q.SymmetricDim() != nx {
		return nil, fmt.Errorf("invalid process noise dimension: %d", q.SymmetricDim())
	}

	x := &mat.VecDense{}
	x.CloneFromVec(ic.State())

	p := mat.NewSymDense(nx, nil)
	p.CopySym(ic.Cov())

	return &Model{
		sys:     sys,
		x:       x,
		p:       p,
		q:       q,
		horizon: horizon,
	}, nil
}

// SetInput sets a constant control input applied on every Forward step.
func (m *Model) SetInput(u mat.Vector) {
	if u == nil {
		m.u = nil
		return
	}
	m.u = &mat.VecDense{}
	m.u.CloneFromVec(u)
}

// State returns a view of the model state.
func (m *Model) State() *mat.VecDense { return m.x }

// StateErrorVariance returns a view of the state error covariance.
func (m *Model) StateErrorVariance() *mat.SymDense { return m.p }

// Forward advances the model state by one time step.
func (m *Model) Forward() error {
	// m.u must not enter the interface parameter as a typed nil
	var u mat.Vector
	if m.u != nil {
		u = m.u
	}

	next, err := m.sys.Propagate(m.x, u, nil)
	if err != nil {
		return fmt.Errorf("state propagation failed: %v", err)
	}
	m.x.CopyVec(next)
	m.step++

	return nil
}

// TangentLinearOperator returns the model Jacobian, which for a linear
// system is the state matrix A itself.
func (m *Model) TangentLinearOperator() mat.Matrix { return m.sys.SystemMatrix() }

// ErrorVariance returns the process noise covariance, or nil if none.
func (m *Model) ErrorVariance() mat.Symmetric { return m.q }

// HasFinished reports whether the model reached its time horizon.
func (m *Model) HasFinished() bool { return m.step >= m.horizon }

// Step returns the number of steps taken so far.
func (m *Model) Step() int { return m.step }
