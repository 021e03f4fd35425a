package noise

import (
	"fmt"
	"time"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// Gaussian is multivariate Gaussian noise
type Gaussian struct {
	// dist is a multivariate normal distribution, nil when cov is singular
	dist *distmv.Normal
	// mean is Gaussian mean
	mean []float64
	// cov is Gaussian covariance
	cov mat.Symmetric
}

// NewGaussian creates new Gaussian noise with given mean and covariance.
// A singular covariance is accepted: sampling then falls back to the SVD
// sampler in WithCovN.
// It returns error if the dimensions do not agree.
func NewGaussian(mean []float64, cov mat.Symmetric) (*Gaussian, error) {
	if cov == nil || len(mean) != cov.SymmetricDim() {
		return nil, fmt.Errorf("invalid noise dimensions: mean %d", len(mean))
	}

	// NewNormal requires a positive definite covariance
	dist, _ := distmv.NewNormal(mean, cov, newSource())

	return &Gaussian{
		dist: dist,
		mean: mean,
		cov:  cov,
	}, nil
}

// Sample draws a sample from the noise distribution and returns it.
func (g *Gaussian) Sample() mat.Vector {
	if g.dist != nil {
		r := g.dist.Rand(nil)
		return mat.NewVecDense(len(r), r)
	}

	s, err := WithCovN(g.cov, 1)
	if err != nil {
		return mat.NewVecDense(len(g.mean), nil)
	}
	v := mat.NewVecDense(len(g.mean), nil)
	v.CopyVec(s.ColView(0))
	for i, m := range g.mean {
		v.SetVec(i, v.AtVec(i)+m)
	}
	return v
}

// Cov returns covariance matrix of the noise.
func (g *Gaussian) Cov() mat.Symmetric {
	return g.cov
}

// Mean returns the noise mean.
func (g *Gaussian) Mean() []float64 {
	return g.mean
}

// Reset re-seeds the noise distribution.
func (g *Gaussian) Reset() {
	if dist, ok := distmv.NewNormal(g.mean, g.cov, newSource()); ok {
		g.dist = dist
	}
}

func newSource() *rand.Rand {
	return rand.New(rand.NewSource(uint64(time.Now().UnixNano())))
}

// String implements the Stringer interface.
func (g *Gaussian) String() string {
	return fmt.Sprintf("Gaussian{\nMean=%v\nCov=%v\n}", g.mean, mat.Formatted(g.cov, mat.Prefix("    "), mat.Squeeze()))
}
