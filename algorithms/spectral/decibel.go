package spectral

import (
	"math"

	"github.com/RyanBlaney/sonido-genre/algorithms/common"
)

const (
	// DefaultPowerAmin floors power values before the log
	DefaultPowerAmin = 1e-10
	// DefaultAmplitudeAmin floors magnitudes before the log
	DefaultAmplitudeAmin = 1e-5
	// DefaultTopDB is how far below the matrix peak values are clipped
	DefaultTopDB = 80.0
)

// PowerToDB converts a power matrix to decibels relative to ref:
// 10*log10(max(amin, x)) - 10*log10(max(amin, ref)). When topDB > 0 every value
// is raised to at least (matrix max - topDB), so the result is always finite.
func PowerToDB(power [][]float64, ref, amin, topDB float64) [][]float64 {
	if amin <= 0 {
		amin = DefaultPowerAmin
	}

	refDB := 10 * math.Log10(math.Max(amin, math.Abs(ref)))

	out := make([][]float64, len(power))
	for t, row := range power {
		out[t] = make([]float64, len(row))
		for f, v := range row {
			if math.IsNaN(v) {
				v = 0
			}
			out[t][f] = 10*math.Log10(math.Max(amin, v)) - refDB
		}
	}

	if topDB > 0 {
		floor := common.MaxOfRows(out) - topDB
		for _, row := range out {
			for f, v := range row {
				if v < floor {
					row[f] = floor
				}
			}
		}
	}

	return out
}

// AmplitudeToDB converts a magnitude matrix to decibels relative to ref:
// 20*log10(max(amin, |x|)) - 20*log10(max(amin, ref)), clipped at topDB below the peak.
func AmplitudeToDB(magnitude [][]float64, ref, amin, topDB float64) [][]float64 {
	if amin <= 0 {
		amin = DefaultAmplitudeAmin
	}

	power := make([][]float64, len(magnitude))
	for t, row := range magnitude {
		power[t] = make([]float64, len(row))
		for f, v := range row {
			power[t][f] = v * v
		}
	}

	return PowerToDB(power, ref*ref, amin*amin, topDB)
}

// AmplitudeToDBRefMax converts magnitudes to decibels relative to the matrix's own
// maximum, so the loudest cell is 0 dB. An all-zero matrix maps to 0 dB everywhere.
func AmplitudeToDBRefMax(magnitude [][]float64, topDB float64) [][]float64 {
	ref := 0.0
	for _, row := range magnitude {
		for _, v := range row {
			if a := math.Abs(v); a > ref {
				ref = a
			}
		}
	}
	return AmplitudeToDB(magnitude, ref, DefaultAmplitudeAmin, topDB)
}
