package noise

import (
	"fmt"
	"math"

	rnd "math/rand"

	"gonum.org/v1/gonum/mat"
)

// WithCovN draws n zero-mean Gaussian samples with covariance cov and
// returns them stored in the columns of the result. The covariance is
// factorized by SVD, so a singular (positive semi-definite) cov is
// accepted where a Cholesky-based sampler would fail.
// It returns error if n is not positive or the SVD factorization fails.
func WithCovN(cov mat.Symmetric, n int) (*mat.Dense, error) {
	if n <= 0 {
		return nil, fmt.Errorf("invalid number of samples requested: %d", n)
	}

	var svd mat.SVD
	if ok := svd.Factorize(cov, mat.SVDFull); !ok {
		return nil, fmt.Errorf("SVD factorization failed")
	}

	u := new(mat.Dense)
	svd.UTo(u)
	vals := svd.Values(nil)
	for i := range vals {
		vals[i] = math.Sqrt(vals[i])
	}
	u.Mul(u, mat.NewDiagDense(len(vals), vals))

	rows := cov.SymmetricDim()
	data := make([]float64, rows*n)
	for i := range data {
		data[i] = rnd.NormFloat64()
	}
	samples := mat.NewDense(rows, n, data)
	samples.Mul(u, samples)

	return samples, nil
}
