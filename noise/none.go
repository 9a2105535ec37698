package noise

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// None is the absence of noise. Unlike Zero its mean has length 0 and
// its covariance matrix has zero size: filters treat it as a marker
// that a noise term should be skipped entirely.
type None struct{}

// NewNone creates new None noise and returns it.
func NewNone() (*None, error) {
	return &None{}, nil
}

// Sample returns a zero size vector.
func (n *None) Sample() mat.Vector {
	return &mat.VecDense{}
}

// Mean returns a nil mean.
func (n *None) Mean() []float64 {
	return nil
}

// Cov returns a zero size covariance matrix.
func (n *None) Cov() mat.Symmetric {
	return &mat.SymDense{}
}

// Reset does nothing: it is here to implement filter.Noise.
func (n *None) Reset() {}

// String implements the Stringer interface.
func (n *None) String() string {
	return fmt.Sprintf("None{\nMean=%v\nCov=%v\n}", n.Mean(), mat.Formatted(n.Cov(), mat.Prefix("    "), mat.Squeeze()))
}
