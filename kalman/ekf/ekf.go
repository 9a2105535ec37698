// Package ekf implements an Extended Kalman Filter for manifold valued
// states. The state belief lives on the manifold while its covariance
// lives in the tangent space at the current estimate: predictions and
// corrections move the state through retraction rather than vector
// addition, and both the system and the measurement model are
// linearized numerically in tangent coordinates.
package ekf

import (
	"fmt"

	filter "github.com/milosgajdos/go-estimate-lie"
	"github.com/milosgajdos/go-estimate-lie/estimate"
	"github.com/milosgajdos/go-estimate-lie/noise"
	"gonum.org/v1/gonum/mat"
)

// EKF is Extended Kalman Filter
type EKF struct {
	// sm is the system model
	sm filter.SystemModel
	// mm is the measurement model
	mm filter.MeasurementModel
	// q is state noise a.k.a. process noise
	q filter.Noise
	// r is output noise a.k.a. measurement noise
	r filter.Noise
	// p is the EKF covariance matrix
	p *mat.SymDense
	// pNext is the EKF predicted covariance matrix
	pNext *mat.SymDense
	// inn is the innovation vector
	inn *mat.VecDense
	// k is the Kalman gain
	k *mat.Dense
}

// New creates new EKF and returns it.
// It accepts the following parameters:
// - sm:   system a.k.a. state transition model
// - mm:   measurement a.k.a. observation model
// - init: initial condition of the filter
// - q:    state a.k.a. process noise
// - r:    output a.k.a. measurement noise
// It returns error if either of the following conditions is met:
// - invalid model dimensions are given, or the models disagree on the state tangent dimension
// - invalid state or output noise is given: noise covariance must either be nil or match the model dimensions
func New(sm filter.SystemModel, mm filter.MeasurementModel, init filter.InitCond, q, r filter.Noise) (*EKF, error) {
	nx, nxOut := sm.Dims()
	if nx <= 0 || nxOut <= 0 {
		return nil, fmt.Errorf("invalid system model dimensions: [%d x %d]", nx, nxOut)
	}

	hIn, ny := mm.Dims()
	if ny <= 0 {
		return nil, fmt.Errorf("invalid measurement model dimensions: [%d x %d]", hIn, ny)
	}

	if hIn != nx {
		return nil, fmt.Errorf("system and measurement model dimensions disagree: %d vs %d", nx, hIn)
	}

	if init.Cov().SymmetricDim() != nx {
		return nil, fmt.Errorf("invalid initial covariance dimension: %d", init.Cov().SymmetricDim())
	}

	if q != nil {
		if q.Cov().SymmetricDim() != nx {
			return nil, fmt.Errorf("invalid state noise dimension: %d", q.Cov().SymmetricDim())
		}
	} else {
		q, _ = noise.NewNone()
	}

	if r != nil {
		if r.Cov().SymmetricDim() != ny {
			return nil, fmt.Errorf("invalid output noise dimension: %d", r.Cov().SymmetricDim())
		}
	} else {
		r, _ = noise.NewNone()
	}

	// initialize covariance matrix to initial condition covariance
	p := mat.NewSymDense(init.Cov().SymmetricDim(), nil)
	p.CopySym(init.Cov())

	// predicted state covariance
	pNext := mat.NewSymDense(init.Cov().SymmetricDim(), nil)

	return &EKF{
		sm:    sm,
		mm:    mm,
		q:     q,
		r:     r,
		p:     p,
		pNext: pNext,
		inn:   mat.NewVecDense(ny, nil),
		k:     mat.NewDense(nx, ny, nil),
	}, nil
}

// Predict propagates the state x to the next step given the control
// input u and returns the predicted estimate. Process noise is sampled
// in the tangent space and retracted onto the propagated state.
// It returns error if the state fails to propagate or linearize.
func (k *EKF) Predict(x filter.Manifold, u mat.Vector) (filter.Estimate, error) {
	xNext, err := k.sm.Propagate(x, u)
	if err != nil {
		return nil, fmt.Errorf("system state propagation failed: %v", err)
	}

	if _, ok := k.q.(*noise.None); !ok {
		xNext, err = xNext.Retract(k.q.Sample())
		if err != nil {
			return nil, fmt.Errorf("failed to apply process noise: %v", err)
		}
	}

	// linearize the state transition around the prior state
	if err := k.sm.Linearize(x); err != nil {
		return nil, fmt.Errorf("failed to linearize system model: %v", err)
	}
	f := k.sm.Jacobian()

	cov := &mat.Dense{}
	cov.Mul(f, k.p)
	cov.Mul(cov, f.T())

	if _, ok := k.q.(*noise.None); !ok {
		cov.Add(cov, k.q.Cov())
	}

	// update EKF predicted covariance matrix
	n := k.pNext.SymmetricDim()
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			k.pNext.SetSym(i, j, cov.At(i, j))
		}
	}

	return estimate.NewBaseWithCov(xNext, k.pNext)
}

// Update corrects the state x using the measurement z and returns the
// corrected estimate. The correction is computed in the tangent space
// and retracted onto x. It returns error if the measurement has the
// wrong dimension or if the model fails to observe or linearize.
func (k *EKF) Update(x filter.Manifold, z mat.Vector) (filter.Estimate, error) {
	nx, _ := k.sm.Dims()
	_, ny := k.mm.Dims()

	if z.Len() != ny {
		return nil, fmt.Errorf("invalid measurement supplied: %v", z)
	}

	// predicted system output
	y, err := k.mm.Observe(x, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to observe system output: %v", err)
	}

	// re-linearize the measurement model around the current state
	if err := k.mm.Linearize(x); err != nil {
		return nil, fmt.Errorf("failed to linearize measurement model: %v", err)
	}
	h := k.mm.Jacobian()
	v := k.mm.NoiseCoupling()

	pxy := mat.NewDense(nx, ny, nil)
	pyy := mat.NewDense(ny, ny, nil)

	// P*H'
	pxy.Mul(k.pNext, h.T())

	// Note: pxy = P * H' so we reuse the result here
	// H*P*H'
	pyy.Mul(h, pxy)
	// couple measurement noise into the innovation covariance: V*R*V'
	if _, ok := k.r.(*noise.None); !ok {
		vrv := &mat.Dense{}
		vrv.Mul(v, k.r.Cov())
		vrv.Mul(vrv, v.T())
		pyy.Add(pyy, vrv)
	}

	// calculate Kalman gain
	pyyInv := &mat.Dense{}
	if err := pyyInv.Inverse(pyy); err != nil {
		return nil, fmt.Errorf("failed to calculate Pyy inverse: %v", err)
	}
	gain := &mat.Dense{}
	gain.Mul(pxy, pyyInv)

	// innovation vector
	inn := &mat.VecDense{}
	inn.SubVec(z, y)

	// tangent space correction retracted onto the state
	corr := &mat.Dense{}
	corr.Mul(gain, inn)
	xUpd, err := x.Retract(corr.ColView(0))
	if err != nil {
		return nil, fmt.Errorf("failed to apply state correction: %v", err)
	}

	pCorr := josephUpdate(k.pNext, gain, h, v, k.r)

	// update EKF innovation vector and gain
	k.inn.CopyVec(inn)
	k.k.Copy(gain)
	// update EKF covariance matrix
	for i := 0; i < nx; i++ {
		for j := i; j < nx; j++ {
			k.p.SetSym(i, j, pCorr.At(i, j))
		}
	}

	return estimate.NewBaseWithCov(xUpd, k.p)
}

// josephUpdate returns the Joseph form corrected covariance
// (I-K*H)*P*(I-K*H)' + K*V*R*V'*K'.
func josephUpdate(p mat.Symmetric, gain, h, v mat.Matrix, r filter.Noise) *mat.Dense {
	n := p.SymmetricDim()

	eye := mat.NewDiagDense(n, nil)
	for i := 0; i < n; i++ {
		eye.SetDiag(i, 1.0)
	}

	a := &mat.Dense{}
	// K*H
	a.Mul(gain, h)
	// I - K*H
	a.Sub(eye, a)

	pCorr := &mat.Dense{}
	pCorr.Mul(a, p)
	pCorr.Mul(pCorr, a.T())

	// K*V*R*V'*K', skipped when there is no output noise
	if _, ok := r.(*noise.None); !ok {
		kvr := &mat.Dense{}
		kvr.Mul(gain, v)
		kvr.Mul(kvr, r.Cov())
		kvr.Mul(kvr, v.T())
		// the final product changes shape, so it needs a fresh receiver
		kvrk := &mat.Dense{}
		kvrk.Mul(kvr, gain.T())
		pCorr.Add(pCorr, kvrk)
	}

	return pCorr
}

// Run runs one step of EKF for given state x, input u and measurement z.
// It corrects system state x using measurement z and returns new system estimate.
// It returns error if it either fails to propagate or correct state x.
func (k *EKF) Run(x filter.Manifold, u mat.Vector, z mat.Vector) (filter.Estimate, error) {
	pred, err := k.Predict(x, u)
	if err != nil {
		return nil, err
	}

	est, err := k.Update(pred.State(), z)
	if err != nil {
		return nil, err
	}

	return est, nil
}

// SystemModel returns the EKF system model
func (k *EKF) SystemModel() filter.SystemModel {
	return k.sm
}

// MeasurementModel returns the EKF measurement model
func (k *EKF) MeasurementModel() filter.MeasurementModel {
	return k.mm
}

// StateNoise returns state noise
func (k *EKF) StateNoise() filter.Noise {
	return k.q
}

// OutputNoise returns output noise
func (k *EKF) OutputNoise() filter.Noise {
	return k.r
}

// Cov returns EKF covariance
func (k *EKF) Cov() mat.Symmetric {
	cov := mat.NewSymDense(k.p.SymmetricDim(), nil)
	cov.CopySym(k.p)

	return cov
}

// SetCov sets EKF covariance matrix to cov.
// It returns error if either cov is nil or its dimensions differ from the EKF covariance dimensions.
func (k *EKF) SetCov(cov mat.Symmetric) error {
	if cov == nil {
		return fmt.Errorf("invalid covariance matrix: %v", cov)
	}

	if cov.SymmetricDim() != k.p.SymmetricDim() {
		return fmt.Errorf("invalid covariance matrix dims: [%d x %d]", cov.SymmetricDim(), cov.SymmetricDim())
	}

	k.p.CopySym(cov)

	return nil
}

// Gain returns Kalman gain
func (k *EKF) Gain() mat.Matrix {
	gain := &mat.Dense{}
	gain.CloneFrom(k.k)

	return gain
}
