package ekf

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"

	"github.com/assimlab/go-assim/matrix"
	"github.com/assimlab/go-assim/sim"
	"github.com/assimlab/go-assim/solver"
)

var (
	horizon = 8
	truth   = []float64{2.0, -1.0}
)

// staticSetup builds a fully observed static system (A = I, H = I) with
// a noise-free observation of the constant truth at every step.
func staticSetup(t *testing.T) (*sim.Model, *sim.ObservationSource) {
	t.Helper()

	A := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	C := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	sys, err := sim.NewDiscrete(A, nil, C, nil, nil)
	assert.NoError(t, err)

	ic := sim.NewInitCond(
		mat.NewVecDense(2, []float64{0.0, 0.0}),
		mat.NewSymDense(2, []float64{1.0, 0, 0, 1.0}),
	)
	m, err := sim.NewModel(sys, ic, nil, horizon)
	assert.NoError(t, err)

	om, err := sim.NewObservationSource(C, mat.NewSymDense(2, []float64{0.01, 0, 0, 0.01}))
	assert.NoError(t, err)
	y := mat.NewVecDense(2, truth)
	for step := 0; step < horizon; step++ {
		assert.NoError(t, om.Add(step, y, nil))
	}

	return m, om
}

func TestMain(m *testing.M) {
	os.Exit(m.Run())
}

func TestNew(t *testing.T) {
	assert := assert.New(t)

	m, om := staticSetup(t)

	d, err := New(m, om, DefaultConfig())
	assert.NotNil(d)
	assert.NoError(err)
	assert.Equal(Uninitialized, d.Status())

	d, err = New(nil, om, DefaultConfig())
	assert.Nil(d)
	assert.ErrorIs(err, ErrConfiguration)

	d, err = New(m, nil, DefaultConfig())
	assert.Nil(d)
	assert.ErrorIs(err, ErrConfiguration)

	bad := DefaultConfig()
	bad.Solver.Tolerance = -1
	d, err = New(m, om, bad)
	assert.Nil(d)
	assert.ErrorIs(err, ErrConfiguration)
}

func TestCycleOrder(t *testing.T) {
	assert := assert.New(t)

	m, om := staticSetup(t)
	d, err := New(m, om, DefaultConfig())
	assert.NoError(err)

	// every step method demands its predecessor
	assert.ErrorIs(d.InitializeStep(), ErrCycleOrder)
	assert.ErrorIs(d.Forward(), ErrCycleOrder)
	assert.ErrorIs(d.Analyze(), ErrCycleOrder)
	assert.ErrorIs(d.FinalizeStep(), ErrCycleOrder)

	assert.NoError(d.Initialize())
	assert.ErrorIs(d.Initialize(), ErrCycleOrder)
	assert.ErrorIs(d.Forward(), ErrCycleOrder)

	assert.NoError(d.InitializeStep())
	assert.ErrorIs(d.InitializeStep(), ErrCycleOrder)
	// the analysis needs this step's forecast first
	assert.ErrorIs(d.Analyze(), ErrCycleOrder)

	assert.NoError(d.Forward())
	assert.ErrorIs(d.Forward(), ErrCycleOrder)

	assert.NoError(d.Analyze())
	assert.ErrorIs(d.Analyze(), ErrCycleOrder)

	assert.NoError(d.FinalizeStep())

	// the guards reset per step
	assert.NoError(d.InitializeStep())
	assert.ErrorIs(d.Analyze(), ErrCycleOrder)
	assert.NoError(d.Forward())
	assert.ErrorIs(d.Forward(), ErrCycleOrder)
	assert.NoError(d.Analyze())
}

func TestStaticConvergence(t *testing.T) {
	assert := assert.New(t)

	m, om := staticSetup(t)
	d, err := New(m, om, DefaultConfig())
	assert.NoError(err)

	assert.NoError(d.Initialize())

	prevTrace := matrix.Trace(m.StateErrorVariance())
	steps := 0
	for !d.HasFinished() {
		assert.NoError(d.InitializeStep())
		assert.NoError(d.Forward())
		assert.NoError(d.Analyze())
		assert.NoError(d.FinalizeStep())

		// identity observation operator: trace(P) never grows
		tr := matrix.Trace(m.StateErrorVariance())
		assert.LessOrEqual(tr, prevTrace+1e-12)
		prevTrace = tr
		steps++
	}
	assert.Equal(horizon, steps)
	assert.Equal(horizon-1, d.Step())

	est, err := d.Estimate()
	assert.NoError(err)
	for i, want := range truth {
		assert.InDelta(want, est.Val().AtVec(i), 0.05)
	}

	assert.NoError(d.Finalize())
	assert.Equal(Finished, d.Status())

	// views are released after Finalize
	_, err = d.Estimate()
	assert.Error(err)
}

func TestRun(t *testing.T) {
	assert := assert.New(t)

	m, om := staticSetup(t)
	d, err := New(m, om, DefaultConfig())
	assert.NoError(err)

	est, err := d.Run()
	assert.NoError(err)
	assert.NotNil(est)
	assert.Equal(Finished, d.Status())
	for i, want := range truth {
		assert.InDelta(want, est.Val().AtVec(i), 0.05)
	}

	assert.NotNil(d.Gain())
	assert.NotNil(d.Innovation())
}

func TestIterativeGainMatchesDirect(t *testing.T) {
	assert := assert.New(t)

	direct, omd := staticSetup(t)
	dd, err := New(direct, omd, DefaultConfig())
	assert.NoError(err)
	wantEst, err := dd.Run()
	assert.NoError(err)

	iterative, omi := staticSetup(t)
	cfg := DefaultConfig()
	cfg.Solver.Iterative = true
	cfg.Solver.Preconditioner = "jacobi"
	di, err := New(iterative, omi, cfg)
	assert.NoError(err)
	gotEst, err := di.Run()
	assert.NoError(err)

	for i := 0; i < 2; i++ {
		assert.InDelta(wantEst.Val().AtVec(i), gotEst.Val().AtVec(i), 1e-8)
	}
}

func TestNoObservationStep(t *testing.T) {
	assert := assert.New(t)

	m, _ := staticSetup(t)
	// an observation source with no recorded measurements
	om, err := sim.NewObservationSource(
		mat.NewDense(2, 2, []float64{1, 0, 0, 1}),
		mat.NewSymDense(2, []float64{0.01, 0, 0, 0.01}),
	)
	assert.NoError(err)

	d, err := New(m, om, DefaultConfig())
	assert.NoError(err)
	assert.NoError(d.Initialize())
	assert.NoError(d.InitializeStep())
	assert.NoError(d.Forward())

	before := matrix.Trace(m.StateErrorVariance())
	assert.NoError(d.Analyze())
	assert.Equal(Corrected, d.Status())

	// without an observation the forecast values stand
	assert.Equal(before, matrix.Trace(m.StateErrorVariance()))
	assert.Nil(d.Gain())
}

func TestAnalyzeSingularGain(t *testing.T) {
	assert := assert.New(t)

	m, _ := staticSetup(t)
	// a zero observation operator with zero noise makes the innovation
	// covariance singular by construction
	om, err := sim.NewObservationSource(
		mat.NewDense(2, 2, nil),
		mat.NewSymDense(2, nil),
	)
	assert.NoError(err)
	assert.NoError(om.Add(0, mat.NewVecDense(2, []float64{1, 1}), nil))

	d, err := New(m, om, DefaultConfig())
	assert.NoError(err)

	assert.NoError(d.Initialize())
	assert.NoError(d.InitializeStep())
	assert.NoError(d.Forward())

	err = d.Analyze()
	assert.Error(err)
	// the failing cycle's time index is attached and the cycle is
	// aborted, not silently skipped
	assert.Contains(err.Error(), "step 0")
	assert.Equal(Forecasting, d.Status())
}

func TestGainSolveBreakdown(t *testing.T) {
	assert := assert.New(t)

	m, om := staticSetup(t)
	cfg := DefaultConfig()
	cfg.Solver.Iterative = true
	d, err := New(m, om, cfg)
	assert.NoError(err)
	assert.NoError(d.Initialize())

	// an inconsistent singular system breaks the Lanczos recurrence
	s := mat.NewDense(2, 2, []float64{1, 0, 0, 0})
	pht := mat.NewDense(2, 2, []float64{0, 1, 0, 0})
	_, err = d.gain(pht, s, 2, 2)
	assert.Error(err)

	var breakdown *solver.BreakdownError
	assert.True(errors.As(err, &breakdown))
	assert.Equal(solver.CodeEpsilonZero, breakdown.Code)
}
