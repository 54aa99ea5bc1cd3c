package spectral

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// SpectralShape computes the first two magnitude-weighted moments of frequency
// per frame: the centroid (mean) and the bandwidth (standard deviation around
// the centroid).
type SpectralShape struct {
	sampleRate int
	freqs      []float64
}

// NewSpectralShape creates a shape calculator for spectra sampled at sampleRate
func NewSpectralShape(sampleRate int) *SpectralShape {
	return &SpectralShape{sampleRate: sampleRate}
}

func (s *SpectralShape) frequencies(numBins int) []float64 {
	if len(s.freqs) != numBins {
		s.freqs = binFrequencies(s.sampleRate, numBins)
	}
	return s.freqs
}

// Frame returns the centroid and bandwidth in Hz of one magnitude spectrum.
// Both are 0 for a spectrum with no energy.
func (s *SpectralShape) Frame(spectrum []float64) (centroid, bandwidth float64) {
	if len(spectrum) == 0 {
		return 0, 0
	}

	total := floats.Sum(spectrum)
	if total == 0 {
		return 0, 0
	}

	freqs := s.frequencies(len(spectrum))
	centroid = floats.Dot(freqs, spectrum) / total

	spread := 0.0
	for i, mag := range spectrum {
		d := freqs[i] - centroid
		spread += d * d * mag
	}

	return centroid, math.Sqrt(spread / total)
}

// ComputeFrames returns per-frame centroids and bandwidths of a time x frequency spectrogram
func (s *SpectralShape) ComputeFrames(spectrogram [][]float64) (centroids, bandwidths []float64) {
	centroids = make([]float64, len(spectrogram))
	bandwidths = make([]float64, len(spectrogram))

	for t, spectrum := range spectrogram {
		centroids[t], bandwidths[t] = s.Frame(spectrum)
	}

	return centroids, bandwidths
}
