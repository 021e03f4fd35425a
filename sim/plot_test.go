package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestNew2DPlot(t *testing.T) {
	assert := assert.New(t)

	model := mat.NewDense(3, 2, []float64{1, 1, 2, 2, 3, 3})
	measure := mat.NewDense(3, 2, []float64{1.1, 0.9, 2.1, 1.9, 3.1, 2.9})
	filter := mat.NewDense(3, 2, []float64{1, 1, 2, 2, 3, 3})

	p, err := New2DPlot(model, measure, filter)
	assert.NotNil(p)
	assert.NoError(err)

	p, err = New2DPlot(nil, measure, filter)
	assert.Nil(p)
	assert.Error(err)

	narrow := mat.NewDense(3, 1, []float64{1, 2, 3})
	p, err = New2DPlot(narrow, measure, filter)
	assert.Nil(p)
	assert.Error(err)
}

func TestNewTracePlot(t *testing.T) {
	assert := assert.New(t)

	p, err := NewTracePlot([]float64{3.0, 2.1, 1.5, 1.2})
	assert.NotNil(p)
	assert.NoError(err)

	p, err = NewTracePlot(nil)
	assert.Nil(p)
	assert.Error(err)
}
