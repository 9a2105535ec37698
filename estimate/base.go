package estimate

import (
	"fmt"

	filter "github.com/milosgajdos/go-estimate-lie"
	"gonum.org/v1/gonum/mat"
)

// Base is base estimate: a manifold state together with its covariance
// expressed in the tangent space at that state.
type Base struct {
	// state is the estimated state
	state filter.Manifold
	// cov is the tangent space covariance of the estimate
	cov *mat.SymDense
}

// NewBase returns base estimate of the state x with zero covariance.
// It returns error if x is nil.
func NewBase(x filter.Manifold) (*Base, error) {
	if x == nil {
		return nil, fmt.Errorf("invalid state: %v", x)
	}

	return &Base{
		state: x,
		cov:   mat.NewSymDense(x.TangentDim(), nil),
	}, nil
}

// NewBaseWithCov returns base estimate of the state x with the given
// tangent space covariance. It returns error if x is nil or if the
// covariance dimension does not match the tangent space dimension of x.
func NewBaseWithCov(x filter.Manifold, cov mat.Symmetric) (*Base, error) {
	if x == nil {
		return nil, fmt.Errorf("invalid state: %v", x)
	}

	if cov.SymmetricDim() != x.TangentDim() {
		return nil, fmt.Errorf("invalid dimensions: tangent %d, cov %d x %d",
			x.TangentDim(), cov.SymmetricDim(), cov.SymmetricDim())
	}

	c := mat.NewSymDense(cov.SymmetricDim(), nil)
	c.CopySym(cov)

	return &Base{
		state: x,
		cov:   c,
	}, nil
}

// State returns the estimated state.
// States are immutable values, so no copy is made.
func (b *Base) State() filter.Manifold {
	return b.state
}

// Cov returns a copy of the estimate covariance.
func (b *Base) Cov() mat.Symmetric {
	cov := mat.NewSymDense(b.cov.SymmetricDim(), nil)
	cov.CopySym(b.cov)

	return cov
}
