package model

import (
	"testing"

	"github.com/milosgajdos/go-estimate-lie/lie"
	"github.com/milosgajdos/go-estimate-lie/numdiff"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

// analyticJacobian returns the closed form observation Jacobian at the
// given state: the rotation block is the inverse right Jacobian of
// SO(3) at the pose rotation, the translation block is identity and
// the velocity block is zero.
func analyticJacobian(s *State) *mat.Dense {
	h := mat.NewDense(MeasurementDim, StateDim, nil)

	w := mat.NewVecDense(3, nil)
	for i := 0; i < 3; i++ {
		w.SetVec(i, s.Pose().AtVec(i))
	}

	jr := lie.InvRightJacobianSO3(w)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			h.Set(i, j, jr.At(i, j))
		}
		h.Set(3+i, 3+i, 1.0)
	}

	return h
}

func maxAbsDiff(a, b mat.Matrix) float64 {
	ra, ca := a.Dims()
	max := 0.0
	for i := 0; i < ra; i++ {
		for j := 0; j < ca; j++ {
			if d := a.At(i, j) - b.At(i, j); d > max {
				max = d
			} else if -d > max {
				max = -d
			}
		}
	}

	return max
}

func newState(t *testing.T, pose, vel []float64) *State {
	t.Helper()

	s, err := New(mat.NewVecDense(PoseDim, pose), mat.NewVecDense(VelDim, vel))
	if err != nil {
		t.Fatalf("failed to create state: %v", err)
	}

	return s
}

func TestPositionObserve(t *testing.T) {
	assert := assert.New(t)

	pm := NewPosition(nil)

	in, out := pm.Dims()
	assert.Equal(StateDim, in)
	assert.Equal(MeasurementDim, out)

	// identity state observes as the zero vector
	y, err := pm.Observe(NewZero(), nil)
	assert.NoError(err)
	assert.Equal(MeasurementDim, y.Len())
	for i := 0; i < y.Len(); i++ {
		assert.Equal(0.0, y.AtVec(i))
	}

	// the observation is the pose block of the state, velocity free
	pose := []float64{0.1, -0.2, 0.3, 5.0, -1.0, 2.0}
	s := newState(t, pose, []float64{9, 9, 9, 9, 9, 9})
	y, err = pm.Observe(s, nil)
	assert.NoError(err)
	for i := 0; i < MeasurementDim; i++ {
		assert.Equal(pose[i], y.AtVec(i))
	}

	// supplied output noise perturbs the observation additively
	r := mat.NewVecDense(MeasurementDim, []float64{1, 1, 1, 1, 1, 1})
	y, err = pm.Observe(s, r)
	assert.NoError(err)
	for i := 0; i < MeasurementDim; i++ {
		assert.Equal(pose[i]+1, y.AtVec(i))
	}

	// every call returns a fresh vector
	y1, err := pm.Observe(s, nil)
	assert.NoError(err)
	y1.(*mat.VecDense).SetVec(0, 100.0)
	y2, err := pm.Observe(s, nil)
	assert.NoError(err)
	assert.Equal(pose[0], y2.AtVec(0))
}

func TestPositionObserveDeterminism(t *testing.T) {
	assert := assert.New(t)

	pm := NewPosition(nil)
	s := newState(t, []float64{0.3, -0.1, 0.2, 1.0, 2.0, 3.0}, []float64{0.1, 0, 0, 1, 0, 0})

	y1, err := pm.Observe(s, nil)
	assert.NoError(err)
	y2, err := pm.Observe(s, nil)
	assert.NoError(err)
	assert.True(mat.Equal(y1, y2))

	// repeated linearizations at the same state are bit identical
	assert.NoError(pm.Linearize(s))
	h1 := pm.Jacobian()
	assert.NoError(pm.Linearize(s))
	h2 := pm.Jacobian()
	assert.True(mat.Equal(h1, h2))
}

func TestPositionRetractAtZero(t *testing.T) {
	assert := assert.New(t)

	pm := NewPosition(nil)
	s := newState(t, []float64{0.3, -0.1, 0.2, 10.0, -5.0, 2.0}, []float64{0, 0, 0.5, 1, 0, 0})

	// observing the state retracted by a zero perturbation yields
	// exactly the observation of the state itself
	sz, err := s.Retract(mat.NewVecDense(StateDim, nil))
	assert.NoError(err)

	y, err := pm.Observe(s, nil)
	assert.NoError(err)
	yz, err := pm.Observe(sz, nil)
	assert.NoError(err)
	assert.True(mat.Equal(y, yz))
}

func TestPositionLinearizeIdentity(t *testing.T) {
	assert := assert.New(t)

	pm := NewPosition(nil)

	assert.NoError(pm.Linearize(NewZero()))
	h := pm.Jacobian()

	r, c := h.Dims()
	assert.Equal(MeasurementDim, r)
	assert.Equal(StateDim, c)

	// pose block is identity, velocity block is zero
	for i := 0; i < MeasurementDim; i++ {
		for j := 0; j < StateDim; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			assert.InDelta(want, h.At(i, j), 1e-4)
		}
	}
}

func TestPositionLinearizeBaseStates(t *testing.T) {
	assert := assert.New(t)

	pm := NewPosition(nil)

	for _, test := range []struct {
		desc string
		pose []float64
		vel  []float64
	}{
		{desc: "identity", pose: []float64{0, 0, 0, 0, 0, 0}, vel: []float64{0, 0, 0, 0, 0, 0}},
		{desc: "small rotation", pose: []float64{1e-5, -2e-5, 1e-5, 0, 0, 0}, vel: []float64{0, 0, 0, 1, 0, 0}},
		{desc: "small translation", pose: []float64{0, 0, 0, 0.01, -0.02, 0.01}, vel: []float64{0, 0, 0, 0, 0, 0}},
		{desc: "large translation", pose: []float64{0, 0, 0, 100.0, -250.0, 75.0}, vel: []float64{0, 0, 1, 0, 0, 0}},
		{desc: "rotation and translation", pose: []float64{0.3, -0.1, 0.2, 10.0, -5.0, 2.0}, vel: []float64{0.1, 0, 0, 1, 0, 0}},
	} {
		s := newState(t, test.pose, test.vel)

		assert.NoError(pm.Linearize(s))
		h := pm.Jacobian()

		want := analyticJacobian(s)
		assert.InDelta(0.0, maxAbsDiff(h, want), 1e-4, test.desc)
	}
}

func TestPositionLinearizeConvergence(t *testing.T) {
	assert := assert.New(t)

	// at a rotated base state the Jacobian is genuinely curved: the
	// forward difference error must shrink monotonically with the step
	// across several orders of magnitude
	s := newState(t, []float64{0.5, -0.3, 0.8, 1.0, 2.0, 3.0}, []float64{0, 0, 0, 0, 0, 0})
	want := analyticJacobian(s)

	prev := -1.0
	for _, step := range []float64{1e-2, 1e-3, 1e-4, 1e-5} {
		pm := NewPosition(&numdiff.Settings{Formula: numdiff.Forward, Step: step})

		assert.NoError(pm.Linearize(s))
		err := maxAbsDiff(pm.Jacobian(), want)

		if prev >= 0 {
			assert.Less(err, prev, "step %g", step)
		}
		prev = err
	}
}

func TestPositionNoiseCoupling(t *testing.T) {
	assert := assert.New(t)

	pm := NewPosition(nil)

	isIdentity := func(v mat.Matrix) {
		r, c := v.Dims()
		assert.Equal(MeasurementDim, r)
		assert.Equal(MeasurementDim, c)
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				want := 0.0
				if i == j {
					want = 1.0
				}
				assert.Equal(want, v.At(i, j))
			}
		}
	}

	isIdentity(pm.NoiseCoupling())

	// the coupling matrix is static: linearization never touches it
	s := newState(t, []float64{0.3, -0.1, 0.2, 1.0, 2.0, 3.0}, []float64{0, 0, 0, 0, 0, 0})
	assert.NoError(pm.Linearize(s))
	isIdentity(pm.NoiseCoupling())
}
