package model

import (
	"fmt"

	filter "github.com/milosgajdos/go-estimate-lie"
	"github.com/milosgajdos/go-estimate-lie/numdiff"
	"gonum.org/v1/gonum/mat"
)

// Position is a measurement model for a sensor observing the pose of
// the rigid body directly, pre-reduced to pose chart coordinates (for
// instance distances to known landmarks resolved by a visual
// localization front end). The predicted measurement is the pose block
// of the state; the velocity block is unobserved.
//
// The observation Jacobian is estimated numerically in the tangent
// space: Linearize must be called at the current state before Jacobian
// is read. Reading the Jacobian after the state has moved without
// re-linearizing returns a stale matrix, which is not detected.
type Position struct {
	// h is the observation Jacobian
	h *mat.Dense
	// v is the output noise coupling matrix
	v *mat.Dense
	// settings configure the differentiation engine
	settings *numdiff.Settings
}

// NewPosition creates a new Position measurement model. The supplied
// settings configure the numerical differentiation of the observation
// function; nil settings use the engine defaults.
func NewPosition(settings *numdiff.Settings) *Position {
	// noise enters additively and independently in each output
	// component, so the coupling matrix is identity once and for all
	v := mat.NewDense(MeasurementDim, MeasurementDim, nil)
	for i := 0; i < MeasurementDim; i++ {
		v.Set(i, i, 1)
	}

	return &Position{
		h:        mat.NewDense(MeasurementDim, StateDim, nil),
		v:        v,
		settings: settings,
	}
}

// Observe returns the predicted sensor measurement for the state x,
// optionally perturbed by output noise r. The measurement is a fresh
// MeasurementDim vector owned by the caller.
// It returns error if x does not have compatible coordinates.
func (p *Position) Observe(x filter.Manifold, r mat.Vector) (mat.Vector, error) {
	s, err := stateFrom(x)
	if err != nil {
		return nil, fmt.Errorf("invalid state: %v", err)
	}

	y := mat.NewVecDense(MeasurementDim, nil)
	y.CopyVec(s.pose)

	if r != nil && r.Len() == MeasurementDim {
		y.AddVec(y, r)
	}

	return y, nil
}

// observeFunc evaluates the position observation at a tangent space
// perturbation of a fixed base state. The velocity of the perturbed
// state is zeroed before evaluation.
type observeFunc struct {
	base *State
}

func (f *observeFunc) Inputs() int { return StateDim }

func (f *observeFunc) Values() int { return MeasurementDim }

func (f *observeFunc) Eval(delta mat.Vector) (mat.Vector, error) {
	x, err := f.base.Retract(delta)
	if err != nil {
		return nil, err
	}

	s, err := stateFrom(x)
	if err != nil {
		return nil, err
	}
	s.vel = mat.NewVecDense(VelDim, nil)

	y := mat.NewVecDense(MeasurementDim, nil)
	y.CopyVec(s.pose)

	return y, nil
}

// Linearize recomputes the observation Jacobian around the state x by
// differentiating the observation through the tangent space of x.
// It returns error if x does not have compatible coordinates or if the
// differentiation engine fails.
func (p *Position) Linearize(x filter.Manifold) error {
	s, err := stateFrom(x)
	if err != nil {
		return fmt.Errorf("invalid state: %v", err)
	}

	delta := mat.NewVecDense(StateDim, nil)

	return numdiff.Jacobian(p.h, &observeFunc{base: s}, delta, p.settings)
}

// Jacobian returns a copy of the most recently computed observation
// Jacobian.
func (p *Position) Jacobian() mat.Matrix {
	h := &mat.Dense{}
	h.CloneFrom(p.h)

	return h
}

// NoiseCoupling returns a copy of the output noise coupling matrix.
func (p *Position) NoiseCoupling() mat.Matrix {
	v := &mat.Dense{}
	v.CloneFrom(p.v)

	return v
}

// Dims returns tangent and measurement dimensions of the model.
func (p *Position) Dims() (int, int) {
	return StateDim, MeasurementDim
}
