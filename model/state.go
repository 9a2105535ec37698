// Package model implements the rigid body state representation and the
// models defined on it: a position measurement model observing the pose
// chart coordinates directly and a constant velocity kinematics model.
// Both are linearized numerically in the tangent space of the state.
package model

import (
	"fmt"

	filter "github.com/milosgajdos/go-estimate-lie"
	"github.com/milosgajdos/go-estimate-lie/lie"
	"gonum.org/v1/gonum/mat"
)

const (
	// PoseDim is the dimension of the pose chart coordinates
	PoseDim = lie.PoseDim
	// VelDim is the dimension of the velocity vector
	VelDim = 6
	// StateDim is the tangent space dimension of the full state
	StateDim = PoseDim + VelDim
	// MeasurementDim is the dimension of the position measurement
	MeasurementDim = PoseDim
)

// State is a rigid body state: a pose on SO(3) x R3 held as chart
// coordinates (rotation vector, translation) plus a flat velocity
// vector (angular, linear). State values are immutable: accessors
// return copies and Retract returns a new state.
type State struct {
	pose *mat.VecDense
	vel  *mat.VecDense
}

// New creates a new State from pose chart coordinates and velocity.
// It returns error if either vector has the wrong length.
func New(pose, vel mat.Vector) (*State, error) {
	if pose.Len() != PoseDim {
		return nil, fmt.Errorf("invalid pose length: %d", pose.Len())
	}

	if vel.Len() != VelDim {
		return nil, fmt.Errorf("invalid velocity length: %d", vel.Len())
	}

	p := mat.NewVecDense(PoseDim, nil)
	p.CopyVec(pose)

	v := mat.NewVecDense(VelDim, nil)
	v.CopyVec(vel)

	return &State{pose: p, vel: v}, nil
}

// NewZero creates a new State at the identity pose with zero velocity.
func NewZero() *State {
	return &State{
		pose: mat.NewVecDense(PoseDim, nil),
		vel:  mat.NewVecDense(VelDim, nil),
	}
}

// Pose returns a copy of the pose chart coordinates.
func (s *State) Pose() mat.Vector {
	p := mat.NewVecDense(PoseDim, nil)
	p.CopyVec(s.pose)

	return p
}

// Vel returns a copy of the velocity vector.
func (s *State) Vel() mat.Vector {
	v := mat.NewVecDense(VelDim, nil)
	v.CopyVec(s.vel)

	return v
}

// Coords returns the flat coordinates of the state: pose chart
// coordinates followed by the velocity.
func (s *State) Coords() mat.Vector {
	c := mat.NewVecDense(StateDim, nil)
	for i := 0; i < PoseDim; i++ {
		c.SetVec(i, s.pose.AtVec(i))
	}
	for i := 0; i < VelDim; i++ {
		c.SetVec(PoseDim+i, s.vel.AtVec(i))
	}

	return c
}

// TangentDim returns the tangent space dimension of the state.
func (s *State) TangentDim() int {
	return StateDim
}

// Retract moves the state along the tangent perturbation delta and
// returns the resulting state. The pose block goes through the manifold
// chart, the velocity block adds. It returns error if delta is not a
// StateDim vector.
func (s *State) Retract(delta mat.Vector) (filter.Manifold, error) {
	if delta.Len() != StateDim {
		return nil, fmt.Errorf("invalid perturbation length: %d", delta.Len())
	}

	dPose := mat.NewVecDense(PoseDim, nil)
	for i := 0; i < PoseDim; i++ {
		dPose.SetVec(i, delta.AtVec(i))
	}

	pose, err := lie.Retract(s.pose, dPose)
	if err != nil {
		return nil, err
	}

	vel := mat.NewVecDense(VelDim, nil)
	for i := 0; i < VelDim; i++ {
		vel.SetVec(i, s.vel.AtVec(i)+delta.AtVec(PoseDim+i))
	}

	return &State{pose: pose, vel: vel}, nil
}

// stateFrom adapts an arbitrary manifold point with compatible
// coordinates into a State.
func stateFrom(x filter.Manifold) (*State, error) {
	if s, ok := x.(*State); ok {
		return s, nil
	}

	c := x.Coords()
	if c.Len() != StateDim {
		return nil, fmt.Errorf("invalid state coordinates length: %d", c.Len())
	}

	pose := mat.NewVecDense(PoseDim, nil)
	vel := mat.NewVecDense(VelDim, nil)
	for i := 0; i < PoseDim; i++ {
		pose.SetVec(i, c.AtVec(i))
	}
	for i := 0; i < VelDim; i++ {
		vel.SetVec(i, c.AtVec(PoseDim+i))
	}

	return &State{pose: pose, vel: vel}, nil
}
