package ekf

import (
	"fmt"

	filter "github.com/milosgajdos/go-estimate-lie"
	"github.com/milosgajdos/go-estimate-lie/estimate"
	"github.com/milosgajdos/go-estimate-lie/noise"
	"gonum.org/v1/gonum/mat"
)

// IEKF is Iterated Extended Kalman Filter
type IEKF struct {
	// ekf.EKF is extended Kalman filter
	*EKF
	// n is number of update iterations
	n int
}

// NewIter creates new Iterated EKF and returns it.
// It accepts the following parameters:
// - sm:   system a.k.a. state transition model
// - mm:   measurement a.k.a. observation model
// - init: initial condition of the filter
// - q:    state a.k.a. process noise
// - r:    output a.k.a. measurement noise
// - n:    number of update iterations
// It returns error if either the EKF fails to be created or n is not positive.
func NewIter(sm filter.SystemModel, mm filter.MeasurementModel, init filter.InitCond, q, r filter.Noise, n int) (*IEKF, error) {
	if n <= 0 {
		return nil, fmt.Errorf("invalid number of update iterations: %d", n)
	}

	// IEKF is EKF which iterates the update
	f, err := New(sm, mm, init, q, r)
	if err != nil {
		return nil, err
	}

	return &IEKF{
		EKF: f,
		n:   n,
	}, nil
}

// Update corrects the state x using the measurement z and returns the
// corrected estimate. The measurement model is re-linearized around
// each intermediate corrected state, which tightens the linearization
// point when the measurement function curves over the correction.
// It returns error if the measurement has the wrong dimension or if the
// model fails to observe or linearize.
func (k *IEKF) Update(x filter.Manifold, z mat.Vector) (filter.Estimate, error) {
	nx, _ := k.sm.Dims()
	_, ny := k.mm.Dims()

	if z.Len() != ny {
		return nil, fmt.Errorf("invalid measurement supplied: %v", z)
	}

	pxy := mat.NewDense(nx, ny, nil)
	pyy := mat.NewDense(ny, ny, nil)

	gain := &mat.Dense{}
	corr := &mat.Dense{}
	inn := &mat.VecDense{}

	var h, v mat.Matrix
	xUpd := x

	// iterate the update, re-linearizing around each corrected state
	for i := 0; i < k.n; i++ {
		y, err := k.mm.Observe(xUpd, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to observe system output: %v", err)
		}

		if err := k.mm.Linearize(xUpd); err != nil {
			return nil, fmt.Errorf("failed to linearize measurement model: %v", err)
		}
		h = k.mm.Jacobian()
		v = k.mm.NoiseCoupling()

		// P*H'
		pxy.Mul(k.pNext, h.T())

		// Note: pxy = P * H' so we reuse the result here
		// H*P*H'
		pyy.Mul(h, pxy)
		if _, ok := k.r.(*noise.None); !ok {
			vrv := &mat.Dense{}
			vrv.Mul(v, k.r.Cov())
			vrv.Mul(vrv, v.T())
			pyy.Add(pyy, vrv)
		}

		pyyInv := &mat.Dense{}
		if err := pyyInv.Inverse(pyy); err != nil {
			return nil, fmt.Errorf("failed to calculate Pyy inverse: %v", err)
		}
		gain.Mul(pxy, pyyInv)

		inn.SubVec(z, y)

		corr.Mul(gain, inn)
		xUpd, err = xUpd.Retract(corr.ColView(0))
		if err != nil {
			return nil, fmt.Errorf("failed to apply state correction: %v", err)
		}
	}

	pCorr := josephUpdate(k.pNext, gain, h, v, k.r)

	k.inn.CopyVec(inn)
	k.k.Copy(gain)
	for i := 0; i < nx; i++ {
		for j := i; j < nx; j++ {
			k.p.SetSym(i, j, pCorr.At(i, j))
		}
	}

	return estimate.NewBaseWithCov(xUpd, k.p)
}

// Run runs one step of IEKF for given state x, input u and measurement z.
// It corrects system state x using measurement z and returns new system estimate.
// It returns error if it either fails to propagate or correct state x.
func (k *IEKF) Run(x filter.Manifold, u mat.Vector, z mat.Vector) (filter.Estimate, error) {
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
