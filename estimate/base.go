package estimate

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Base is a snapshot of the assimilation state at one cycle step: the
// state estimate, its error covariance and the time index it was taken
// at. It copies both, so later cycles do not mutate it.
type Base struct {
	// val is the estimated state
	val *mat.VecDense
	// cov is the estimate covariance
	cov *mat.SymDense
	// step is the cycle time index
	step int
}

// New returns a snapshot of val and cov taken at the given step.
// It returns error if the dimensions of val and cov do not match.
func New(val mat.Vector, cov mat.Symmetric, step int) (*Base, error) {
	rv, _ := val.Dims()
	rc := cov.SymmetricDim()

	if rv != rc {
		return nil, fmt.Errorf("invalid dimensions, val: %d, cov: %d x %d", rv, rc, rc)
	}

	v := &mat.VecDense{}
	v.CloneFromVec(val)

	c := mat.NewSymDense(rc, nil)
	c.CopySym(cov)

	return &Base{
		val:  v,
		cov:  c,
		step: step,
	}, nil
}

// Val returns the estimated state
func (b *Base) Val() mat.Vector {
	v := &mat.VecDense{}
	v.CloneFromVec(b.val)

	return v
}

// Cov returns the covariance estimate
func (b *Base) Cov() mat.Symmetric {
	cov := mat.NewSymDense(b.cov.SymmetricDim(), nil)
	cov.CopySym(b.cov)

	return cov
}

// Step returns the cycle time index the snapshot was taken at
func (b *Base) Step() int {
	return b.step
}
