package common

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeanOfRows(t *testing.T) {
	assert.InDelta(t, 2.5, MeanOfRows([][]float64{{1, 2}, {3, 4}}), 1e-12)
	assert.InDelta(t, 2.0, MeanOfRows([][]float64{{1, 2, 3}, {}}), 1e-12)
	assert.Equal(t, 0.0, MeanOfRows(nil))
}

func TestMaxOfRows(t *testing.T) {
	assert.Equal(t, 7.0, MaxOfRows([][]float64{{1, 7}, {}, {3}}))
	assert.Equal(t, -1.0, MaxOfRows([][]float64{{-3, -1}}))
	assert.Equal(t, 0.0, MaxOfRows([][]float64{}))
}

func TestRoundHalfEven(t *testing.T) {
	assert.Equal(t, 0, RoundHalfEven(0.5))
	assert.Equal(t, 2, RoundHalfEven(1.5))
	assert.Equal(t, 2, RoundHalfEven(2.5))
	assert.Equal(t, 1, RoundHalfEven(0.62))
}

func TestClampAndFinite(t *testing.T) {
	assert.Equal(t, 1.0, Clamp(3, 0, 1))
	assert.Equal(t, 0.0, Clamp(-3, 0, 1))
	assert.True(t, IsFinite(1))
	assert.False(t, IsFinite(math.NaN()))
	assert.False(t, IsFinite(math.Inf(-1)))
	assert.Equal(t, 1.5, Mean([]float64{1, 2}))
	assert.Equal(t, 0.0, Mean(nil))
}
