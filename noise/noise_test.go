package noise

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestNewGaussian(t *testing.T) {
	assert := assert.New(t)

	mean := []float64{2, 3}
	cov := mat.NewSymDense(2, []float64{1, 0.1, 0.1, 1})

	g, err := NewGaussian(mean, cov)
	assert.NotNil(g)
	assert.NoError(err)
	assert.Equal(mean, g.Mean())
	assert.Equal(2, g.Cov().SymmetricDim())

	// mismatched dimensions
	g, err = NewGaussian([]float64{1}, cov)
	assert.Nil(g)
	assert.Error(err)

	// nil covariance
	g, err = NewGaussian(mean, nil)
	assert.Nil(g)
	assert.Error(err)
}

func TestGaussianSample(t *testing.T) {
	assert := assert.New(t)

	mean := []float64{2, 3}
	cov := mat.NewSymDense(2, []float64{1, 0.1, 0.1, 1})

	g, err := NewGaussian(mean, cov)
	assert.NoError(err)

	sample := g.Sample()
	assert.Equal(2, sample.Len())

	g.Reset()
	sample = g.Sample()
	assert.Equal(2, sample.Len())
}

func TestGaussianSingularCov(t *testing.T) {
	assert := assert.New(t)

	// rank deficient covariance: second component is deterministic
	mean := []float64{2, 3}
	cov := mat.NewSymDense(2, []float64{1, 0, 0, 0})

	g, err := NewGaussian(mean, cov)
	assert.NotNil(g)
	assert.NoError(err)

	sample := g.Sample()
	assert.Equal(2, sample.Len())
	assert.InDelta(3.0, sample.AtVec(1), 1e-12)
}

func TestWithCovN(t *testing.T) {
	assert := assert.New(t)

	cov := mat.NewSymDense(2, []float64{1, 0, 0, 1})

	s, err := WithCovN(cov, -3)
	assert.Error(err)
	assert.Nil(s)

	s, err = WithCovN(cov, 2)
	assert.NoError(err)
	r, c := s.Dims()
	assert.Equal(2, r)
	assert.Equal(2, c)
}

func TestZero(t *testing.T) {
	assert := assert.New(t)

	z, err := NewZero(3)
	assert.NotNil(z)
	assert.NoError(err)

	sample := z.Sample()
	assert.Equal(3, sample.Len())
	for i := 0; i < 3; i++ {
		assert.Equal(0.0, sample.AtVec(i))
	}
	assert.Equal(3, z.Cov().SymmetricDim())
	assert.Equal([]float64{0, 0, 0}, z.Mean())

	z, err = NewZero(-1)
	assert.Nil(z)
	assert.Error(err)
}

func TestNone(t *testing.T) {
	assert := assert.New(t)

	n, err := NewNone()
	assert.NotNil(n)
	assert.NoError(err)

	assert.Equal(0, n.Sample().Len())
	assert.Equal(0, n.Cov().SymmetricDim())
	assert.Nil(n.Mean())
}
