package sim

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	assim "github.com/assimlab/go-assim"
)

// ObservationSource serves a recorded sequence of measurements through
// the assim.ObservationManager contract. Observations are indexed by
// the cycle step; steps without a recorded measurement report no
// observation. HasObservation positions the source at the queried step,
// matching the driver's call order.
type ObservationSource struct {
	// h is the linearized observation operator
	h *mat.Dense
	// r is the observation error covariance
	r *mat.SymDense
	// obs holds one measurement per step, nil for none
	obs map[int]*mat.VecDense
	// step is the step HasObservation was last asked about
	step int
}

// NewObservationSource creates an observation source with operator h
// and error covariance r.
// It returns error if either is nil or their dimensions disagree.
func NewObservationSource(h mat.Matrix, r mat.Symmetric) (*ObservationSource, error) {
	if h == nil || r == nil {
		return nil, fmt.Errorf("invalid observation operator or covariance")
	}
	ny, _ := h.Dims()
	if r.SymmetricDim() != ny {
		return nil, fmt.Errorf("observation covariance dimension %d does not match operator rows %d", r.SymmetricDim(), ny)
	}

	rc := mat.NewSymDense(ny, nil)
	rc.CopySym(r)

	return &ObservationSource{
		h:   mat.DenseCopyOf(h),
		r:   rc,
		obs: make(map[int]*mat.VecDense),
	}, nil
}

// Add records the measurement y at the given step, optionally corrupted
// by a sample of wn.
// It returns error if the measurement dimension does not match the operator.
func (o *ObservationSource) Add(step int, y mat.Vector, wn assim.Noise) error {
	ny, _ := o.h.Dims()
	if y.Len() != ny {
		return fmt.Errorf("invalid measurement dimension: %d", y.Len())
	}

	v := &mat.VecDense{}
	v.CloneFromVec(y)
	if wn != nil {
		if sample := wn.Sample(); sample.Len() == ny {
			v.AddVec(v, sample)
		}
	}
	o.obs[step] = v

	return nil
}

// HasObservation reports whether a measurement exists at the given step
// and positions the source there for the following Innovation call.
func (o *ObservationSource) HasObservation(step int) bool {
	o.step = step
	_, ok := o.obs[step]
	return ok
}

// Innovation returns d = y - H*x for the current step.
// It returns error if no measurement exists at the current step or the
// state dimension does not match the operator.
func (o *ObservationSource) Innovation(x mat.Vector) (*mat.VecDense, error) {
	y, ok := o.obs[o.step]
	if !ok {
		return nil, fmt.Errorf("no observation at step %d", o.step)
	}

	_, nx := o.h.Dims()
	if x.Len() != nx {
		return nil, fmt.Errorf("invalid state dimension: %d", x.Len())
	}

	hx := mat.NewVecDense(y.Len(), nil)
	hx.MulVec(o.h, x)

	d := mat.NewVecDense(y.Len(), nil)
	d.SubVec(y, hx)

	return d, nil
}

// TangentLinearOperator returns the linearized observation operator H.
func (o *ObservationSource) TangentLinearOperator() mat.Matrix { return o.h }

// ErrorVariance returns the observation noise covariance R.
func (o *ObservationSource) ErrorVariance() mat.Symmetric { return o.r }
