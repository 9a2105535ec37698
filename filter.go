package filter

import "gonum.org/v1/gonum/mat"

// Filter is a dynamical system filter.
type Filter interface {
	// Predict estimates the next internal state of the system
	Predict(x Manifold, u mat.Vector) (Estimate, error)
	// Update updates the system state based on external measurement
	Update(x Manifold, z mat.Vector) (Estimate, error)
}

// Manifold is a point on a smooth manifold with a locally flat parametrization.
type Manifold interface {
	// Retract moves the point along a tangent space perturbation and
	// returns the resulting point. Retracting by the zero perturbation
	// returns a point equal to the receiver.
	Retract(delta mat.Vector) (Manifold, error)
	// Coords returns the flat coordinates of the point in its local chart
	Coords() mat.Vector
	// TangentDim returns the dimension of the tangent space
	TangentDim() int
}

// Propagator propagates internal state of the system to the next step
type Propagator interface {
	// Propagate propagates internal state of the system to the next step
	Propagate(x Manifold, u mat.Vector) (Manifold, error)
}

// Observer observes external state (output) of the system
type Observer interface {
	// Observe returns the system output for the given state,
	// optionally perturbed by output noise r
	Observe(x Manifold, r mat.Vector) (mat.Vector, error)
}

// Linearized is a model which maintains a tangent space Jacobian of its
// defining function. The Jacobian is only valid for the state it was most
// recently linearized at: reading it after the state has changed without
// calling Linearize again is a caller contract violation which is not
// detected.
type Linearized interface {
	// Linearize recomputes the model Jacobian around x
	Linearize(x Manifold) error
	// Jacobian returns the most recently computed Jacobian
	Jacobian() mat.Matrix
}

// MeasurementModel is a linearized sensor model of a dynamical system
type MeasurementModel interface {
	// Observer is system observer
	Observer
	// Linearized maintains the observation Jacobian
	Linearized
	// NoiseCoupling returns the matrix coupling output noise into the measurement
	NoiseCoupling() mat.Matrix
	// Dims returns tangent (input) and measurement (output) dimensions of the model
	Dims() (in int, out int)
}

// SystemModel is a linearized state transition model of a dynamical system
type SystemModel interface {
	// Propagator is system propagator
	Propagator
	// Linearized maintains the state transition Jacobian
	Linearized
	// Dims returns tangent (input) and state coordinate (output) dimensions of the model
	Dims() (in int, out int)
}

// InitCond is initial state condition of the filter
type InitCond interface {
	// State returns initial filter state
	State() Manifold
	// Cov returns initial state covariance in tangent space coordinates
	Cov() mat.Symmetric
}

// Estimate is dynamical system filter estimate
type Estimate interface {
	// State returns estimated system state
	State() Manifold
	// Cov returns estimate covariance in tangent space coordinates
	Cov() mat.Symmetric
}

// Noise is dynamical system noise
type Noise interface {
	// Mean returns noise mean
	Mean() []float64
	// Cov returns covariance matrix of the noise
	Cov() mat.Symmetric
	// Sample returns a sample of the noise
	Sample() mat.Vector
	// Reset resets the noise
	Reset()
}
