// Package numdiff estimates Jacobians of vector valued functions by
// finite differences. It knows nothing about any particular model: it
// only consumes the Func contract, so the same engine linearizes both
// system and measurement functions.
package numdiff

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrDimensionMismatch is returned when the dimensions declared by a
// Func disagree with the vectors actually supplied or produced. It
// indicates a wiring bug, not a transient numerical problem.
var ErrDimensionMismatch = errors.New("dimension mismatch")

// Func is a vector valued function of a vector argument with fixed
// input and output dimensions.
type Func interface {
	// Inputs returns the dimension of the function domain
	Inputs() int
	// Values returns the dimension of the function range
	Values() int
	// Eval evaluates the function at x and returns the result
	Eval(x mat.Vector) (mat.Vector, error)
}

// Formula is a finite difference stencil.
type Formula int

const (
	// Forward estimates each column as (f(x0 + step*e_i) - f(x0)) / step.
	// It costs n+1 evaluations of f per Jacobian.
	Forward Formula = iota
	// Central estimates each column as
	// (f(x0 + step*e_i) - f(x0 - step*e_i)) / (2*step).
	// It costs 2n evaluations but its truncation error is second order.
	Central
)

// Settings configures a Jacobian estimate.
type Settings struct {
	// Formula is the finite difference stencil to use
	Formula Formula
	// Step is the perturbation magnitude applied to every coordinate.
	// If zero, a formula dependent default is used. The step is fixed,
	// not scaled to the base point: callers whose coordinates vary over
	// many orders of magnitude should supply their own.
	Step float64
}

// default steps balance truncation against rounding error for
// coordinates of order one
var (
	defaultForwardStep = math.Sqrt(2.2e-16)
	defaultCentralStep = math.Cbrt(2.2e-16)
)

func (s *Settings) step() float64 {
	if s != nil && s.Step > 0 {
		return s.Step
	}
	if s != nil && s.Formula == Central {
		return defaultCentralStep
	}

	return defaultForwardStep
}

func (s *Settings) formula() Formula {
	if s == nil {
		return Forward
	}

	return s.Formula
}

// Jacobian estimates the Jacobian of f at the base point x0 and stores
// it into dst, which must be Values x Inputs. A nil settings uses the
// Forward formula with the default step.
//
// The estimate is purely numerical: no exactness is guaranteed, and the
// accuracy silently degrades when the step is poorly scaled for the
// magnitudes involved.
//
// It returns ErrDimensionMismatch (wrapped) if x0 is not an Inputs
// vector, if dst is not Values x Inputs, or if any evaluation of f
// returns a vector which is not a Values vector.
func Jacobian(dst *mat.Dense, f Func, x0 mat.Vector, s *Settings) error {
	n, m := f.Inputs(), f.Values()

	if x0.Len() != n {
		return fmt.Errorf("%w: base point length %d, function inputs %d", ErrDimensionMismatch, x0.Len(), n)
	}

	if r, c := dst.Dims(); r != m || c != n {
		return fmt.Errorf("%w: destination [%d x %d], function [%d x %d]", ErrDimensionMismatch, r, c, m, n)
	}

	step := s.step()

	switch s.formula() {
	case Central:
		return central(dst, f, x0, step)
	default:
		return forward(dst, f, x0, step)
	}
}

func forward(dst *mat.Dense, f Func, x0 mat.Vector, step float64) error {
	y0, err := eval(f, x0)
	if err != nil {
		return err
	}

	x := mat.VecDenseCopyOf(x0)
	for i := 0; i < f.Inputs(); i++ {
		x.SetVec(i, x0.AtVec(i)+step)

		y, err := eval(f, x)
		if err != nil {
			return err
		}

		for j := 0; j < f.Values(); j++ {
			dst.Set(j, i, (y.AtVec(j)-y0.AtVec(j))/step)
		}

		x.SetVec(i, x0.AtVec(i))
	}

	return nil
}

func central(dst *mat.Dense, f Func, x0 mat.Vector, step float64) error {
	x := mat.VecDenseCopyOf(x0)
	for i := 0; i < f.Inputs(); i++ {
		x.SetVec(i, x0.AtVec(i)+step)
		yp, err := eval(f, x)
		if err != nil {
			return err
		}

		x.SetVec(i, x0.AtVec(i)-step)
		ym, err := eval(f, x)
		if err != nil {
			return err
		}

		for j := 0; j < f.Values(); j++ {
			dst.Set(j, i, (yp.AtVec(j)-ym.AtVec(j))/(2*step))
		}

		x.SetVec(i, x0.AtVec(i))
	}

	return nil
}

func eval(f Func, x mat.Vector) (mat.Vector, error) {
	y, err := f.Eval(x)
	if err != nil {
		return nil, err
	}

	if y.Len() != f.Values() {
		return nil, fmt.Errorf("%w: evaluation length %d, function values %d", ErrDimensionMismatch, y.Len(), f.Values())
	}

	return y, nil
}
