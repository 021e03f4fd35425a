package sim

import (
	"fmt"

	"github.com/milosgajdos/matrix"
	"gonum.org/v1/gonum/mat"
)

// Continuous is a basic model of a linear, continuous-time, dynamical system
type Continuous struct {
	System
}

// NewContinuous creates a linear continuous-time model based on the control theory equations.
//
//	dx/dt = A*x + B*u + E*z (disturbances E not implemented yet)
//	y = C*x + D*u
func NewContinuous(A, B, C, D, E *mat.Dense) (*Continuous, error) {
	if A == nil {
		return nil, fmt.Errorf("system matrix must be defined for a model")
	}
	return &Continuous{System: newSystem(A, B, C, D, E)}, nil
}

// ToDiscrete creates a discrete-time model from the continuous-time
// model using Ts as the sampling time.
//
// The transition matrix is the exponential exp(A*Ts); the input matrix
// follows Ogata, Discrete-Time Control Systems, Eq. (5-74).
func (ct *Continuous) ToDiscrete(Ts float64) (*Discrete, error) {
	nx, _, _, _ := ct.SystemDims()
	dsys := newSystem(ct.A, ct.B, ct.C, ct.D, ct.E)
	dsys.A.Scale(Ts, dsys.A)
	dsys.A.Exp(dsys.A)

	if dsys.B == nil {
		return &Discrete{dsys}, nil
	}

	// Bd(Ts) = (exp(A*Ts) - I)*inv(A)*B when A is not singular
	Bd := dsys.B
	Aaux := mat.NewDense(nx, nx, nil)
	eye, _ := matrix.NewDenseValIdentity(nx, 1.0)

	Aaux.Sub(dsys.A, eye)
	Ainv := mat.NewDense(nx, nx, nil)
	if err := Ainv.Inverse(ct.A); err == nil {
		Aaux.Mul(Aaux, Ainv)
		Bd.Mul(Aaux, ct.B)
		return &Discrete{dsys}, nil
	}

	// A is singular: integrate Bd = integrate(exp(A*t)dt, 0, Ts) * B
	Asum := Ainv
	Asum.Scale(0, Asum)
	const n = 100
	dt := Ts / float64(n-1)
	for i := 0; i < n; i++ {
		Aaux.Scale(dt*float64(i), ct.A)
		Aaux.Exp(Aaux)
		Aaux.Scale(dt, Aaux)
		Asum.Add(Asum, Aaux)
	}
	Bd.Mul(Asum, ct.B)
	return &Discrete{dsys}, nil
}

// Propagate integrates the system by one timestep dt from state x with
// input u and process noise sample wd, using the forward Euler rule.
func (ct *Continuous) Propagate(x, u, wd mat.Vector, dt float64) (mat.Vector, error) {
	nx, nu, _, _ := ct.SystemDims()
	if u != nil && u.Len() != nu {
		return nil, fmt.Errorf("invalid input vector")
	}

	if x.Len() != nx {
		return nil, fmt.Errorf("invalid state vector")
	}

	out := new(mat.Dense)
	out.Mul(ct.A, x)
	if u != nil && ct.B != nil {
		outU := new(mat.Dense)
		outU.Mul(ct.B, u)

		out.Add(out, outU)
	}

	if wd != nil && wd.Len() == nx {
		out.Add(out, wd)
	}

	// dx/dt = A*x + B*u + wd
	out.Scale(dt, out)
	out.Add(x, out)
	return out.ColView(0), nil
}
