package sim

import (
	"fmt"

	"github.com/milosgajdos/go-estimate-lie/lie"
	"github.com/milosgajdos/go-estimate-lie/model"
	"gonum.org/v1/gonum/mat"
)

// Trajectory generates ground truth rigid body states moving along a
// constant twist screw motion starting from the identity pose: the pose
// at time t is the SE(3) exponential of t times the twist. The state
// velocity is set to the twist itself, so a constant velocity filter
// model tracks the trajectory up to chart curvature.
type Trajectory struct {
	// xi is the twist per unit time (angular, linear)
	xi *mat.VecDense
	// dt is the sampling period
	dt float64
}

// NewTrajectory creates a new screw motion Trajectory sampled every dt
// along the twist xi. It returns error if xi is not a 6-vector or dt is
// not positive.
func NewTrajectory(xi mat.Vector, dt float64) (*Trajectory, error) {
	if xi.Len() != lie.PoseDim {
		return nil, fmt.Errorf("invalid twist length: %d", xi.Len())
	}

	if dt <= 0 {
		return nil, fmt.Errorf("invalid sampling period: %f", dt)
	}

	x := mat.NewVecDense(lie.PoseDim, nil)
	x.CopyVec(xi)

	return &Trajectory{xi: x, dt: dt}, nil
}

// States returns the first n+1 trajectory states, sampled at times
// 0, dt, ..., n*dt. It returns error if n is negative.
func (t *Trajectory) States(n int) ([]*model.State, error) {
	if n < 0 {
		return nil, fmt.Errorf("invalid number of steps: %d", n)
	}

	states := make([]*model.State, n+1)
	scaled := mat.NewVecDense(lie.PoseDim, nil)
	for k := 0; k <= n; k++ {
		scaled.ScaleVec(float64(k)*t.dt, t.xi)

		r, p := lie.ExpSE3(scaled)

		pose := mat.NewVecDense(lie.PoseDim, nil)
		w := lie.LogSO3(r)
		for i := 0; i < 3; i++ {
			pose.SetVec(i, w.AtVec(i))
			pose.SetVec(3+i, p.AtVec(i))
		}

		s, err := model.New(pose, t.xi)
		if err != nil {
			return nil, err
		}
		states[k] = s
	}

	return states, nil
}
