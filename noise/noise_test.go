package noise

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestNewGaussian(t *testing.T) {
	assert := assert.New(t)

	mean := []float64{2, 3}
	cov := mat.NewSymDense(2, []float64{1, 0.1, 0.1, 1})

	g, err := NewGaussian(mean, cov)
	assert.NotNil(g)
	assert.NoError(err)

	// mean and covariance dimensions disagree
	g, err = NewGaussian([]float64{1}, cov)
	assert.Nil(g)
	assert.Error(err)
}

func TestGaussianMeanCov(t *testing.T) {
	assert := assert.New(t)

	mean := []float64{2, 3}
	cov := mat.NewSymDense(2, []float64{1, 0.1, 0.1, 1})

	g, err := NewGaussian(mean, cov)
	assert.NotNil(g)
	assert.NoError(err)

	gCov := g.Cov()
	assert.Equal(cov.SymmetricDim(), gCov.SymmetricDim())

	rows, cols := gCov.Dims()
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			assert.Equal(cov.At(r, c), gCov.At(r, c))
		}
	}

	assert.EqualValues(mean, g.Mean())

	// the returned mean is a copy
	g.Mean()[0] = 100.0
	assert.EqualValues(mean, g.Mean())
}

func TestGaussianSampleReset(t *testing.T) {
	assert := assert.New(t)

	mean := []float64{2, 3}
	cov := mat.NewSymDense(2, []float64{1, 0.1, 0.1, 1})

	g, err := NewGaussian(mean, cov)
	assert.NotNil(g)
	assert.NoError(err)

	sample1 := g.Sample()
	assert.Equal(len(mean), sample1.Len())

	g.Reset()

	sample2 := g.Sample()
	assert.Equal(len(mean), sample2.Len())
	assert.NotEqual(sample1, sample2)
}

func TestGaussianString(t *testing.T) {
	assert := assert.New(t)

	str := `Gaussian{
Mean=[2 3]
Cov=⎡  1  0.1⎤
    ⎣0.1    1⎦
}`
	g, err := NewGaussian([]float64{2, 3}, mat.NewSymDense(2, []float64{1, 0.1, 0.1, 1}))
	assert.NotNil(g)
	assert.NoError(err)
	assert.Equal(str, g.String())
}

func TestNewZero(t *testing.T) {
	assert := assert.New(t)

	z, err := NewZero(2)
	assert.NotNil(z)
	assert.NoError(err)

	z, err = NewZero(-10)
	assert.Nil(z)
	assert.Error(err)
}

func TestZeroMeanCovSample(t *testing.T) {
	assert := assert.New(t)

	size := 2
	z, err := NewZero(size)
	assert.NotNil(z)
	assert.NoError(err)

	assert.EqualValues(make([]float64, size), z.Mean())
	assert.Equal(size, z.Cov().SymmetricDim())

	sample1 := z.Sample()
	assert.Equal(size, sample1.Len())
	for i := 0; i < size; i++ {
		assert.Equal(0.0, sample1.AtVec(i))
	}

	// zero noise samples are identical before and after Reset
	z.Reset()
	assert.Equal(sample1, z.Sample())
}

func TestNewNone(t *testing.T) {
	assert := assert.New(t)

	n, err := NewNone()
	assert.NotNil(n)
	assert.NoError(err)

	assert.Equal(0, len(n.Mean()))
	assert.Equal(0, n.Cov().SymmetricDim())
	assert.Equal(0, n.Sample().Len())

	n.Reset()
}
