package solver

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// QMRSym solves the symmetric linear system a*x = b using the
// Quasi-Minimal Residual method with the short Lanczos recurrence, so
// no Krylov basis is stored.
//
// See: R. W. Freund and N. M. Nachtigal, A quasi-minimal residual
// method for non-Hermitian linear systems, Numer. Math. 60 (1991).
//
// On input x holds the initial guess unless it.IsInitGuessNull(), in
// which case it is zeroed; on output it holds the solution, or the last
// valid iterate when the solve fails. The returned error is nil on
// convergence, a *BreakdownError on an exact zero pivot, or
// ErrMaxIterations when the iteration cap is reached; it.ErrorCode()
// carries the matching numeric status.
func QMRSym(a mat.Matrix, x *mat.VecDense, b mat.Vector, m Preconditioner, it *Iteration) error {
	ar, ac := a.Dims()
	n := b.Len()
	if ar != ac || ar != n {
		return fmt.Errorf("dimension mismatch: a is [%d x %d], b has %d entries", ar, ac, n)
	}
	if n == 0 {
		return nil
	}
	if x.Len() != n {
		return fmt.Errorf("dimension mismatch: x has %d entries, want %d", x.Len(), n)
	}
	if m == nil {
		m = Identity{}
	}

	r := mat.NewVecDense(n, nil)
	y := mat.NewVecDense(n, nil)
	v := mat.NewVecDense(n, nil)
	pTld := mat.NewVecDense(n, nil)
	p := mat.NewVecDense(n, nil)
	d := mat.NewVecDense(n, nil)
	s := mat.NewVecDense(n, nil)

	it.Init(b)

	// r = b - a*x
	if it.IsInitGuessNull() {
		x.Zero()
		r.CopyVec(b)
	} else {
		r.MulVec(a, x)
		r.SubVec(b, r)
	}

	v.CopyVec(r)
	if err := m.Solve(a, v, y); err != nil {
		return err
	}
	rho := mat.Norm(y, 2)

	theta, gamma, eta := 0.0, 1.0, -1.0
	ep := 0.0

	for !it.Finished(r) {
		if rho == 0 {
			return it.Fail(ErrRhoBreakdown)
		}

		v.ScaleVec(1/rho, v)
		y.ScaleVec(1/rho, y)

		delta := mat.Dot(v, y)
		if delta == 0 {
			return it.Fail(ErrDeltaZero)
		}

		if it.First() {
			p.CopyVec(y)
		} else {
			// p = y - (rho*delta/ep) * p
			p.ScaleVec(-rho*delta/ep, p)
			p.AddVec(p, y)
		}

		pTld.MulVec(a, p)
		ep = mat.Dot(p, pTld)
		if ep == 0 {
			return it.Fail(ErrEpsilonZero)
		}

		beta := ep / delta
		if beta == 0 {
			return it.Fail(ErrBetaZero)
		}

		// v = pTld - beta*v
		v.ScaleVec(-beta, v)
		v.AddVec(v, pTld)
		if err := m.Solve(a, v, y); err != nil {
			return err
		}

		rho1 := rho
		rho = mat.Norm(y, 2)

		gamma1, theta1 := gamma, theta
		theta = rho / (gamma1 * beta)
		gamma = 1 / math.Sqrt(1+theta*theta)
		if gamma == 0 {
			return it.Fail(ErrGammaZero)
		}

		eta = -eta * rho1 * gamma * gamma / (beta * gamma1 * gamma1)

		if it.First() {
			d.ScaleVec(eta, p)
			s.ScaleVec(eta, pTld)
		} else {
			scale := theta1 * theta1 * gamma * gamma
			d.ScaleVec(scale, d)
			d.AddScaledVec(d, eta, p)
			s.ScaleVec(scale, s)
			s.AddScaledVec(s, eta, pTld)
		}
		x.AddVec(x, d)
		r.SubVec(r, s)

		it.Next()
	}

	if it.ErrorCode() == CodeMaxIterations {
		return ErrMaxIterations
	}
	return nil
}
