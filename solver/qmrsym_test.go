package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"

	"github.com/assimlab/go-assim/storage"
)

// spd returns a small symmetric positive-definite test matrix.
func spd() *mat.SymDense {
	return mat.NewSymDense(4, []float64{
		10, 1, 0.5, 0,
		1, 8, 1, 0.5,
		0.5, 1, 6, 1,
		0, 0.5, 1, 4,
	})
}

func residual(a mat.Matrix, x, b mat.Vector) float64 {
	n := b.Len()
	r := mat.NewVecDense(n, nil)
	r.MulVec(a, x)
	r.SubVec(b, r)
	return mat.Norm(r, 2)
}

func TestQMRSymConverges(t *testing.T) {
	assert := assert.New(t)

	a := spd()
	b := mat.NewVecDense(4, []float64{1, -2, 3, 0.5})
	x := mat.NewVecDense(4, nil)

	it := NewIteration(1e-12, 100)
	err := QMRSym(a, x, b, Identity{}, it)
	assert.NoError(err)
	assert.Equal(CodeConverged, it.ErrorCode())
	assert.LessOrEqual(residual(a, x, b), 1e-12*mat.Norm(b, 2))
	assert.Greater(it.N(), 0)
}

func TestQMRSymIndefinite(t *testing.T) {
	assert := assert.New(t)

	// symmetric but indefinite: SQMR does not require definiteness
	a := mat.NewSymDense(3, []float64{
		2, 1, 0,
		1, -3, 1,
		0, 1, 1,
	})
	b := mat.NewVecDense(3, []float64{1, 1, 1})
	x := mat.NewVecDense(3, nil)

	it := NewIteration(1e-10, 100)
	assert.NoError(QMRSym(a, x, b, Identity{}, it))
	assert.LessOrEqual(residual(a, x, b), 1e-10*mat.Norm(b, 2))
}

func TestQMRSymPackedStorage(t *testing.T) {
	assert := assert.New(t)

	// the packed symmetric layout enters through its mat.Matrix surface
	a, err := storage.NewPackedSymmetric(3, storage.Lower)
	assert.NoError(err)
	a.Set(0, 0, 5)
	a.Set(1, 1, 4)
	a.Set(2, 2, 3)
	a.Set(0, 1, 1)
	a.Set(1, 2, 0.5)

	b := mat.NewVecDense(3, []float64{1, 2, 3})
	x := mat.NewVecDense(3, nil)

	it := NewIteration(1e-10, 50)
	assert.NoError(QMRSym(a, x, b, Identity{}, it))
	assert.LessOrEqual(residual(a, x, b), 1e-10*mat.Norm(b, 2))
}

func TestQMRSymJacobi(t *testing.T) {
	assert := assert.New(t)

	a := mat.NewSymDense(3, []float64{4, 0, 0, 0, 2, 0, 0, 0, 8})
	b := mat.NewVecDense(3, []float64{4, 2, 8})
	x := mat.NewVecDense(3, nil)

	it := NewIteration(1e-12, 10)
	assert.NoError(QMRSym(a, x, b, Jacobi{}, it))
	for i := 0; i < 3; i++ {
		assert.InDelta(1.0, x.AtVec(i), 1e-10)
	}
}

func TestQMRSymInitGuess(t *testing.T) {
	assert := assert.New(t)

	a := spd()
	want := mat.NewVecDense(4, []float64{1, 2, 3, 4})
	b := mat.NewVecDense(4, nil)
	b.MulVec(a, want)

	// exact solution supplied as the initial guess: converged before
	// the first iteration
	x := mat.NewVecDense(4, nil)
	x.CopyVec(want)
	it := NewIteration(1e-10, 100)
	it.SetInitGuess(true)
	assert.NoError(QMRSym(a, x, b, Identity{}, it))
	assert.Equal(0, it.N())
}

func TestQMRSymBreakdown(t *testing.T) {
	assert := assert.New(t)

	// a singular (zero) matrix produces an exact zero pivot epsilon
	a := mat.NewSymDense(3, nil)
	b := mat.NewVecDense(3, []float64{1, 1, 1})
	x := mat.NewVecDense(3, nil)

	it := NewIteration(1e-10, 50)
	err := QMRSym(a, x, b, Identity{}, it)
	assert.Error(err)

	var breakdown *BreakdownError
	assert.ErrorAs(err, &breakdown)
	assert.Equal(CodeEpsilonZero, breakdown.Code)
	assert.Equal(CodeEpsilonZero, it.ErrorCode())
}

// scalePre scales the residual by a constant, standing in for a badly
// scaled preconditioner.
type scalePre struct{ c float64 }

func (p scalePre) Solve(_ mat.Matrix, r mat.Vector, z *mat.VecDense) error {
	z.ScaleVec(p.c, r)
	return nil
}

// matPre applies a fixed matrix to the residual.
type matPre struct{ m mat.Matrix }

func (p matPre) Solve(_ mat.Matrix, r mat.Vector, z *mat.VecDense) error {
	z.MulVec(p.m, r)
	return nil
}

func TestQMRSymRhoBreakdown(t *testing.T) {
	assert := assert.New(t)

	// a vanishing preconditioned residual zeroes rho while the true
	// residual is still nonzero
	a := spd()
	b := mat.NewVecDense(4, []float64{1, 1, 1, 1})
	x := mat.NewVecDense(4, nil)

	it := NewIteration(1e-10, 50)
	err := QMRSym(a, x, b, scalePre{0}, it)

	var breakdown *BreakdownError
	assert.ErrorAs(err, &breakdown)
	assert.Equal(CodeRhoBreakdown, breakdown.Code)
	assert.Equal(CodeRhoBreakdown, it.ErrorCode())
}

func TestQMRSymDeltaBreakdown(t *testing.T) {
	assert := assert.New(t)

	// a rotation by 90 degrees keeps the preconditioned direction
	// orthogonal to the Lanczos vector, so delta vanishes exactly
	a := mat.NewSymDense(2, []float64{2, 0, 0, 2})
	rot := mat.NewDense(2, 2, []float64{0, 1, -1, 0})
	b := mat.NewVecDense(2, []float64{1, 0})
	x := mat.NewVecDense(2, nil)

	it := NewIteration(1e-10, 50)
	err := QMRSym(a, x, b, matPre{rot}, it)

	var breakdown *BreakdownError
	assert.ErrorAs(err, &breakdown)
	assert.Equal(CodeDeltaZero, breakdown.Code)
	assert.Equal(CodeDeltaZero, it.ErrorCode())
}

func TestQMRSymBetaBreakdown(t *testing.T) {
	assert := assert.New(t)

	// delta blown up by a tiny preconditioner scale against a tiny
	// system makes epsilon/delta underflow to an exact zero beta while
	// epsilon itself stays nonzero
	a := mat.NewSymDense(2, []float64{1e-30, 0, 0, 1e-30})
	b := mat.NewVecDense(2, []float64{1, 0})
	x := mat.NewVecDense(2, nil)

	it := NewIteration(1e-10, 50)
	err := QMRSym(a, x, b, scalePre{1e-300}, it)

	var breakdown *BreakdownError
	assert.ErrorAs(err, &breakdown)
	assert.Equal(CodeBetaZero, breakdown.Code)
	assert.Equal(CodeBetaZero, it.ErrorCode())
}

func TestQMRSymMaxIterations(t *testing.T) {
	assert := assert.New(t)

	a := spd()
	b := mat.NewVecDense(4, []float64{1, -2, 3, 0.5})
	x := mat.NewVecDense(4, nil)

	it := NewIteration(1e-16, 1)
	err := QMRSym(a, x, b, Identity{}, it)
	assert.ErrorIs(err, ErrMaxIterations)
	assert.Equal(CodeMaxIterations, it.ErrorCode())
	assert.Equal(1, it.N())
}

func TestQMRSymDimensionChecks(t *testing.T) {
	assert := assert.New(t)

	a := spd()
	b := mat.NewVecDense(3, []float64{1, 2, 3})
	x := mat.NewVecDense(3, nil)
	it := NewIteration(1e-10, 10)
	assert.Error(QMRSym(a, x, b, Identity{}, it))
}
