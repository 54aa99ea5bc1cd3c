package common

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Numeric helpers shared by the spectral and rendering code

// Mean calculates the arithmetic mean of a slice using gonum
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return stat.Mean(data, nil)
}

// MeanOfRows averages every value of a matrix, treating all rows as one population
func MeanOfRows(matrix [][]float64) float64 {
	total := 0.0
	count := 0
	for _, row := range matrix {
		total += floats.Sum(row)
		count += len(row)
	}
	if count == 0 {
		return 0.0
	}
	return total / float64(count)
}

// MaxOfRows returns the largest value of a matrix, or 0 for an empty matrix
func MaxOfRows(matrix [][]float64) float64 {
	found := false
	best := 0.0
	for _, row := range matrix {
		if len(row) == 0 {
			continue
		}
		m := floats.Max(row)
		if !found || m > best {
			best = m
			found = true
		}
	}
	return best
}

// Clamp constrains a value to a range
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// Lerp performs linear interpolation between two values
func Lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

// RoundHalfEven rounds to the nearest integer, ties to even (banker's rounding)
func RoundHalfEven(x float64) int {
	return int(math.RoundToEven(x))
}

// IsFinite reports whether x is neither NaN nor infinite
func IsFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
