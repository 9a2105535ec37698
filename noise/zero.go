package noise

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Zero is zero noise of a fixed dimension: zero mean and zero
// covariance. Its samples are zero vectors of that dimension.
type Zero struct {
	// dim is the noise dimension
	dim int
}

// NewZero creates new Zero noise of the given dimension.
// It returns error if dim is negative.
func NewZero(dim int) (*Zero, error) {
	if dim < 0 {
		return nil, fmt.Errorf("invalid noise dimension: %d", dim)
	}

	return &Zero{dim: dim}, nil
}

// Sample returns a zero vector.
func (z *Zero) Sample() mat.Vector {
	return mat.NewVecDense(z.dim, nil)
}

// Mean returns a zero mean slice.
func (z *Zero) Mean() []float64 {
	return make([]float64, z.dim)
}

// Cov returns a zero covariance matrix.
func (z *Zero) Cov() mat.Symmetric {
	return mat.NewSymDense(z.dim, nil)
}

// Reset does nothing: it is here to implement filter.Noise.
func (z *Zero) Reset() {}

// String implements the Stringer interface.
func (z *Zero) String() string {
	return fmt.Sprintf("Zero{\nMean=%v\nCov=%v\n}", z.Mean(), mat.Formatted(z.Cov(), mat.Prefix("    "), mat.Squeeze()))
}
