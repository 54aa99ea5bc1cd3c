package spectral

// DefaultRolloffPercent is the conventional fraction of spectral mass below the rolloff
const DefaultRolloffPercent = 0.85

// SpectralRolloff computes the frequency below which a fixed fraction of a
// frame's cumulative magnitude lies
type SpectralRolloff struct {
	sampleRate  int
	freqBins    []float64 // Pre-calculated frequency bins
	initialized bool
}

// NewSpectralRolloff creates a new spectral rolloff calculator
func NewSpectralRolloff(sampleRate int) *SpectralRolloff {
	return &SpectralRolloff{
		sampleRate: sampleRate,
	}
}

// Compute returns the lowest bin frequency at which the running sum of
// magnitudes reaches percent of the frame total. Silent frames return 0.
func (sr *SpectralRolloff) Compute(spectrum []float64, percent float64) float64 {
	if len(spectrum) == 0 {
		return 0.0
	}

	if !sr.initialized || len(sr.freqBins) != len(spectrum) {
		sr.freqBins = binFrequencies(sr.sampleRate, len(spectrum))
		sr.initialized = true
	}

	total := 0.0
	for _, mag := range spectrum {
		total += mag
	}

	target := percent * total
	cumulative := 0.0

	for i, mag := range spectrum {
		cumulative += mag
		if cumulative >= target {
			return sr.freqBins[i]
		}
	}

	// Rounding can leave the running sum a hair under the target
	return sr.freqBins[len(sr.freqBins)-1]
}

// ComputeFrames processes every frame of a time x frequency spectrogram
func (sr *SpectralRolloff) ComputeFrames(spectrogram [][]float64, percent float64) []float64 {
	rolloffs := make([]float64, len(spectrogram))

	for t, spectrum := range spectrogram {
		rolloffs[t] = sr.Compute(spectrum, percent)
	}

	return rolloffs
}
