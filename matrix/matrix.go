package matrix

import (
	"gonum.org/v1/gonum/mat"
)

// Identity returns the n x n identity matrix.
// It panics if n is not positive.
func Identity(n int) *mat.DiagDense {
	if n <= 0 {
		panic("matrix: non-positive dimension")
	}
	eye := mat.NewDiagDense(n, nil)
	for i := 0; i < n; i++ {
		eye.SetDiag(i, 1.0)
	}

	return eye
}

// Symmetrize stores (a + a^T)/2 into dst, damping the numerical drift a
// square matrix accumulates away from exact symmetry.
// It panics if a is not square or does not match the dimension of dst.
func Symmetrize(dst *mat.SymDense, a mat.Matrix) {
	r, c := a.Dims()
	if r != c {
		panic("matrix: matrix is not square")
	}
	if dst.SymmetricDim() != r {
		panic("matrix: dimension mismatch")
	}

	for i := 0; i < r; i++ {
		for j := i; j < r; j++ {
			dst.SetSym(i, j, 0.5*(a.At(i, j)+a.At(j, i)))
		}
	}
}

// Trace returns the sum of the diagonal entries of m.
func Trace(m mat.Matrix) float64 {
	r, c := m.Dims()
	n := min(r, c)

	sum := 0.0
	for i := 0; i < n; i++ {
		sum += m.At(i, i)
	}

	return sum
}
