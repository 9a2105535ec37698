package model

import (
	"fmt"

	filter "github.com/milosgajdos/go-estimate-lie"
	"github.com/milosgajdos/go-estimate-lie/numdiff"
	"gonum.org/v1/gonum/mat"
)

// Kinematics is a constant velocity system model: over one time step
// the pose moves along the current velocity through the manifold chart
// and the velocity stays put. The model has no control input.
type Kinematics struct {
	// dt is the length of one time step
	dt float64
	// f is the state transition Jacobian
	f *mat.Dense
	// settings configure the differentiation engine
	settings *numdiff.Settings
}

// NewKinematics creates a new constant velocity Kinematics model with
// time step dt. Nil settings use the differentiation engine defaults.
// It returns error if dt is not positive.
func NewKinematics(dt float64, settings *numdiff.Settings) (*Kinematics, error) {
	if dt <= 0 {
		return nil, fmt.Errorf("invalid time step: %f", dt)
	}

	return &Kinematics{
		dt:       dt,
		f:        mat.NewDense(StateDim, StateDim, nil),
		settings: settings,
	}, nil
}

// Propagate propagates the state x to the next time step. The control
// input u is ignored: the model is purely kinematic.
// It returns error if x does not have compatible coordinates.
func (k *Kinematics) Propagate(x filter.Manifold, u mat.Vector) (filter.Manifold, error) {
	s, err := stateFrom(x)
	if err != nil {
		return nil, fmt.Errorf("invalid state: %v", err)
	}

	return s.Retract(k.twist(s))
}

// twist returns the tangent space step the state takes over dt:
// velocity scaled by dt in the pose block, zero in the velocity block.
func (k *Kinematics) twist(s *State) mat.Vector {
	d := mat.NewVecDense(StateDim, nil)
	for i := 0; i < VelDim; i++ {
		d.SetVec(i, s.vel.AtVec(i)*k.dt)
	}

	return d
}

// propagateFunc evaluates the state transition coordinates at a tangent
// space perturbation of a fixed base state.
type propagateFunc struct {
	base *State
	k    *Kinematics
}

func (f *propagateFunc) Inputs() int { return StateDim }

func (f *propagateFunc) Values() int { return StateDim }

func (f *propagateFunc) Eval(delta mat.Vector) (mat.Vector, error) {
	x, err := f.base.Retract(delta)
	if err != nil {
		return nil, err
	}

	next, err := f.k.Propagate(x, nil)
	if err != nil {
		return nil, err
	}

	return next.Coords(), nil
}

// Linearize recomputes the state transition Jacobian around the state x.
// It returns error if x does not have compatible coordinates or if the
// differentiation engine fails.
func (k *Kinematics) Linearize(x filter.Manifold) error {
	s, err := stateFrom(x)
	if err != nil {
		return fmt.Errorf("invalid state: %v", err)
	}

	delta := mat.NewVecDense(StateDim, nil)

	return numdiff.Jacobian(k.f, &propagateFunc{base: s, k: k}, delta, k.settings)
}

// Jacobian returns a copy of the most recently computed state
// transition Jacobian.
func (k *Kinematics) Jacobian() mat.Matrix {
	f := &mat.Dense{}
	f.CloneFrom(k.f)

	return f
}

// Dims returns tangent and state coordinate dimensions of the model.
func (k *Kinematics) Dims() (int, int) {
	return StateDim, StateDim
}
