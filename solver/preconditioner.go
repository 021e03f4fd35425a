package solver

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Preconditioner approximates the inverse of the system matrix. Solve
// stores M^-1 * r into z; a and r must not be mutated.
type Preconditioner interface {
	Solve(a mat.Matrix, r mat.Vector, z *mat.VecDense) error
}

// Identity is the no-op preconditioner.
type Identity struct{}

// Solve copies r into z.
func (Identity) Solve(_ mat.Matrix, r mat.Vector, z *mat.VecDense) error {
	z.CloneFromVec(r)
	return nil
}

// Jacobi is the diagonal preconditioner: z_i = r_i / a_ii.
type Jacobi struct{}

// Solve divides r by the diagonal of a. It fails if a diagonal entry
// is zero.
func (Jacobi) Solve(a mat.Matrix, r mat.Vector, z *mat.VecDense) error {
	n := r.Len()
	if z.IsEmpty() {
		z.ReuseAsVec(n)
	} else if z.Len() != n {
		return fmt.Errorf("jacobi preconditioner: dimension mismatch %d != %d", z.Len(), n)
	}
	for i := 0; i < n; i++ {
		d := a.At(i, i)
		if d == 0 {
			return fmt.Errorf("jacobi preconditioner: zero diagonal entry at %d", i)
		}
		z.SetVec(i, r.AtVec(i)/d)
	}
	return nil
}
