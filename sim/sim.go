// Package sim provides ground truth generation and plotting helpers for
// exercising the filters: screw motion trajectories on the rigid body
// manifold and 2D track plots of simulation results.
package sim

import (
	filter "github.com/milosgajdos/go-estimate-lie"
	"gonum.org/v1/gonum/mat"
)

// InitCond implements filter.InitCond
type InitCond struct {
	state filter.Manifold
	cov   *mat.SymDense
}

// NewInitCond creates new InitCond and returns it
func NewInitCond(state filter.Manifold, cov mat.Symmetric) *InitCond {
	c := mat.NewSymDense(cov.SymmetricDim(), nil)
	c.CopySym(cov)

	return &InitCond{
		state: state,
		cov:   c,
	}
}

// State returns initial state
func (c *InitCond) State() filter.Manifold {
	return c.state
}

// Cov returns initial covariance
func (c *InitCond) Cov() mat.Symmetric {
	cov := mat.NewSymDense(c.cov.SymmetricDim(), nil)
	cov.CopySym(c.cov)

	return cov
}
