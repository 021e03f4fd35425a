package noise

import (
	"gonum.org/v1/gonum/mat"
)

// None is the absence of noise: its mean vector has length 0 and its
// covariance matrix is zero sized. Filters treat it as "no noise term".
type None struct{}

// NewNone creates new None noise and returns it
func NewNone() (*None, error) {
	return &None{}, nil
}

// Sample returns a zero size vector.
func (n *None) Sample() mat.Vector {
	return &mat.VecDense{}
}

// Cov returns a zero size covariance matrix.
func (n *None) Cov() mat.Symmetric {
	return &mat.SymDense{}
}

// Mean returns a nil mean.
func (n *None) Mean() []float64 {
	return nil
}

// Reset does nothing.
func (n *None) Reset() {}

// String implements the Stringer interface.
func (n *None) String() string {
	return "None{}"
}
