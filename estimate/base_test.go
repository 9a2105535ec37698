package estimate

import (
	"testing"

	"github.com/milosgajdos/go-estimate-lie/model"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestNewBase(t *testing.T) {
	assert := assert.New(t)

	x := model.NewZero()
	cov := mat.NewSymDense(model.StateDim, nil)
	for i := 0; i < model.StateDim; i++ {
		cov.SetSym(i, i, 0.5)
	}

	b, err := NewBase(x)
	assert.NotNil(b)
	assert.NoError(err)

	b, err = NewBaseWithCov(x, cov)
	assert.NotNil(b)
	assert.NoError(err)

	// covariance dimension disagrees with the state tangent dimension
	b, err = NewBaseWithCov(x, mat.NewSymDense(3, nil))
	assert.Nil(b)
	assert.Error(err)

	// nil state
	b, err = NewBase(nil)
	assert.Nil(b)
	assert.Error(err)
}

func TestBaseStateCov(t *testing.T) {
	assert := assert.New(t)

	x := model.NewZero()
	cov := mat.NewSymDense(model.StateDim, nil)
	for i := 0; i < model.StateDim; i++ {
		cov.SetSym(i, i, 0.5)
	}

	b, err := NewBaseWithCov(x, cov)
	assert.NotNil(b)
	assert.NoError(err)

	assert.True(mat.Equal(x.Coords(), b.State().Coords()))

	bCov := b.Cov()
	assert.Equal(cov.SymmetricDim(), bCov.SymmetricDim())
	for i := 0; i < cov.SymmetricDim(); i++ {
		for j := 0; j < cov.SymmetricDim(); j++ {
			assert.Equal(cov.At(i, j), bCov.At(i, j))
		}
	}

	// the returned covariance is a copy
	bCov.(*mat.SymDense).SetSym(0, 0, 100.0)
	assert.Equal(0.5, b.Cov().At(0, 0))
}
