package noise

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Zero is zero-mean, zero-covariance noise of a fixed dimension. Its
// samples are always the zero vector.
type Zero struct {
	dim int
}

// NewZero creates new zero noise of the given dimension.
// It returns error if dim is negative.
func NewZero(dim int) (*Zero, error) {
	if dim < 0 {
		return nil, fmt.Errorf("invalid noise dimension: %d", dim)
	}

	return &Zero{dim: dim}, nil
}

// Sample returns the zero vector.
func (z *Zero) Sample() mat.Vector {
	return mat.NewVecDense(z.dim, nil)
}

// Cov returns the zero covariance matrix.
func (z *Zero) Cov() mat.Symmetric {
	return mat.NewSymDense(z.dim, nil)
}

// Mean returns the zero mean.
func (z *Zero) Mean() []float64 {
	return make([]float64, z.dim)
}

// Reset does nothing.
func (z *Zero) Reset() {}

// String implements the Stringer interface.
func (z *Zero) String() string {
	return fmt.Sprintf("Zero{dim=%d}", z.dim)
}
