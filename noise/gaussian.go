// Package noise implements the noise models consumed by the filters:
// Gaussian noise for realistic process and measurement disturbances,
// Zero noise for noiseless components of matching dimension and None
// for components with no noise at all. Process noise is expressed in
// the tangent space of the state, measurement noise in measurement
// coordinates.
package noise

import (
	"fmt"
	"time"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// Gaussian is multivariate Gaussian noise
type Gaussian struct {
	// dist is the underlying normal distribution
	dist *distmv.Normal
	// mean is the noise mean
	mean []float64
	// cov is the noise covariance
	cov *mat.SymDense
}

// NewGaussian creates new Gaussian noise with the given mean and
// covariance. It returns error if the mean and covariance dimensions
// disagree or if the covariance is not positive definite.
func NewGaussian(mean []float64, cov mat.Symmetric) (*Gaussian, error) {
	if len(mean) != cov.SymmetricDim() {
		return nil, fmt.Errorf("invalid noise dimensions: mean %d, cov %d", len(mean), cov.SymmetricDim())
	}

	c := mat.NewSymDense(cov.SymmetricDim(), nil)
	c.CopySym(cov)

	m := make([]float64, len(mean))
	copy(m, mean)

	dist, ok := newDist(m, c)
	if !ok {
		return nil, fmt.Errorf("failed to create Gaussian noise")
	}

	return &Gaussian{
		dist: dist,
		mean: m,
		cov:  c,
	}, nil
}

func newDist(mean []float64, cov mat.Symmetric) (*distmv.Normal, bool) {
	src := rand.New(rand.NewSource(uint64(time.Now().UnixNano())))

	return distmv.NewNormal(mean, cov, src)
}

// Sample draws a sample from the noise distribution and returns it.
func (g *Gaussian) Sample() mat.Vector {
	s := g.dist.Rand(nil)

	return mat.NewVecDense(len(s), s)
}

// Mean returns a copy of the noise mean.
func (g *Gaussian) Mean() []float64 {
	m := make([]float64, len(g.mean))
	copy(m, g.mean)

	return m
}

// Cov returns a copy of the noise covariance matrix.
func (g *Gaussian) Cov() mat.Symmetric {
	cov := mat.NewSymDense(g.cov.SymmetricDim(), nil)
	cov.CopySym(g.cov)

	return cov
}

// Reset reseeds the noise distribution.
func (g *Gaussian) Reset() {
	if dist, ok := newDist(g.mean, g.cov); ok {
		g.dist = dist
	}
}

// String implements the Stringer interface.
func (g *Gaussian) String() string {
	return fmt.Sprintf("Gaussian{\nMean=%v\nCov=%v\n}", g.mean, mat.Formatted(g.cov, mat.Prefix("    "), mat.Squeeze()))
}
