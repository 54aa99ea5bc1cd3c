package spectral

import (
	"math"
	"slices"

	"github.com/RyanBlaney/sonido-genre/algorithms/common"
	"gonum.org/v1/gonum/floats"
)

const (
	// DefaultContrastBands is the number of octave bands above the lowest sub-band
	DefaultContrastBands = 6
	// DefaultContrastFMin is the upper edge of the lowest sub-band in Hz
	DefaultContrastFMin = 200.0
	// DefaultContrastQuantile is the fraction of bins averaged for peaks and valleys
	DefaultContrastQuantile = 0.02
)

// SpectralContrast measures the decibel gap between peaks and valleys in
// octave sub-bands of a magnitude spectrogram.
//
// Sub-band k spans [edge_k, edge_k+1] with edges 0, fmin, 2*fmin, ... and also
// takes the bin just below its lower edge. The top sub-band runs to Nyquist;
// every other sub-band drops its highest bin. Octaves starting at or above
// Nyquist are not used.
type SpectralContrast struct {
	sampleRate  int
	numBands    int
	fmin        float64
	quantile    float64
	freqBins    []float64
	bands       []contrastBand
	initialized bool
}

type contrastBand struct {
	low, high float64 // nominal edges in Hz
	start     int     // first bin, inclusive
	end       int     // last bin, exclusive
	alpha     int     // bins averaged for peak and valley
}

// NewSpectralContrast creates a contrast calculator with the default fmin and quantile
func NewSpectralContrast(sampleRate int, numBands int) *SpectralContrast {
	return NewSpectralContrastWithParams(sampleRate, numBands, DefaultContrastFMin, DefaultContrastQuantile)
}

// NewSpectralContrastWithParams creates a contrast calculator with explicit parameters
func NewSpectralContrastWithParams(sampleRate, numBands int, fmin, quantile float64) *SpectralContrast {
	if numBands <= 0 {
		numBands = DefaultContrastBands
	}
	if fmin <= 0 {
		fmin = DefaultContrastFMin
	}
	if quantile <= 0 || quantile >= 1 {
		quantile = DefaultContrastQuantile
	}
	return &SpectralContrast{
		sampleRate: sampleRate,
		numBands:   numBands,
		fmin:       fmin,
		quantile:   quantile,
	}
}

// ComputeFrames returns a frames x sub-bands contrast matrix in dB.
// Peak and valley energies are each converted with PowerToDB (ref 1, top-dB 80
// over the whole matrix) before subtracting.
func (sc *SpectralContrast) ComputeFrames(spectrogram [][]float64) [][]float64 {
	if len(spectrogram) == 0 || len(spectrogram[0]) == 0 {
		return [][]float64{}
	}

	if !sc.initialized || len(sc.freqBins) != len(spectrogram[0]) {
		sc.initializeBands(len(spectrogram[0]))
	}

	peaks := make([][]float64, len(spectrogram))
	valleys := make([][]float64, len(spectrogram))

	var sorted []float64
	for t, spectrum := range spectrogram {
		peaks[t] = make([]float64, len(sc.bands))
		valleys[t] = make([]float64, len(sc.bands))

		for b, band := range sc.bands {
			end := min(band.end, len(spectrum))
			if band.start >= end {
				continue
			}

			sorted = append(sorted[:0], spectrum[band.start:end]...)
			slices.Sort(sorted)

			alpha := min(band.alpha, len(sorted))
			valleys[t][b] = floats.Sum(sorted[:alpha]) / float64(alpha)
			peaks[t][b] = floats.Sum(sorted[len(sorted)-alpha:]) / float64(alpha)
		}
	}

	peakDB := PowerToDB(peaks, 1.0, DefaultPowerAmin, DefaultTopDB)
	valleyDB := PowerToDB(valleys, 1.0, DefaultPowerAmin, DefaultTopDB)

	contrast := make([][]float64, len(spectrogram))
	for t := range contrast {
		contrast[t] = make([]float64, len(sc.bands))
		for b := range contrast[t] {
			contrast[t][b] = peakDB[t][b] - valleyDB[t][b]
		}
	}

	return contrast
}

// ComputeMean averages contrast over every sub-band and frame
func (sc *SpectralContrast) ComputeMean(spectrogram [][]float64) float64 {
	return common.MeanOfRows(sc.ComputeFrames(spectrogram))
}

// initializeBands lays out the octave sub-bands for a one-sided spectrum of numBins bins
func (sc *SpectralContrast) initializeBands(numBins int) {
	sc.freqBins = binFrequencies(sc.sampleRate, numBins)
	nyquist := float64(sc.sampleRate) / 2.0

	// Edges 0, fmin, 2*fmin, ..., fmin*2^numBands; keep octaves that start below Nyquist
	edges := []float64{0}
	for i := 0; i <= sc.numBands; i++ {
		edges = append(edges, sc.fmin*math.Pow(2, float64(i)))
	}
	numSubBands := 0
	for k := 0; k+1 < len(edges); k++ {
		if edges[k] >= nyquist {
			break
		}
		numSubBands++
	}

	sc.bands = make([]contrastBand, 0, numSubBands)
	for k := range numSubBands {
		low, high := edges[k], edges[k+1]
		last := k == numSubBands-1

		first, final := -1, -1
		for i, f := range sc.freqBins {
			if f >= low && f <= high {
				if first < 0 {
					first = i
				}
				final = i
			}
		}

		band := contrastBand{low: low, high: high}
		if first < 0 {
			// Too few bins to land one inside this octave
			sc.bands = append(sc.bands, band)
			continue
		}

		start := first
		if k > 0 && start > 0 {
			start--
		}
		end := final + 1
		if last {
			end = numBins
		}

		// alpha counts the bins before the top one is dropped
		band.alpha = max(1, common.RoundHalfEven(sc.quantile*float64(end-start)))

		if !last && end-start > 1 {
			end--
		}

		band.start, band.end = start, end
		sc.bands = append(sc.bands, band)
	}

	sc.initialized = true
}

// GetBandFrequencies returns the nominal [low, high] edges of each sub-band in Hz
func (sc *SpectralContrast) GetBandFrequencies() [][2]float64 {
	if !sc.initialized {
		return nil
	}

	freqs := make([][2]float64, len(sc.bands))
	for i, band := range sc.bands {
		freqs[i] = [2]float64{band.low, band.high}
	}
	return freqs
}
