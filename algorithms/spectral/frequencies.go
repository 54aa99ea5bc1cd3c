package spectral

// FFTFrequencies returns the center frequency in Hz of each non-negative bin
// of an nFFT-point transform: k * sampleRate / nFFT for k = 0..nFFT/2.
func FFTFrequencies(sampleRate, nFFT int) []float64 {
	if sampleRate <= 0 || nFFT <= 0 {
		return nil
	}
	freqs := make([]float64, nFFT/2+1)
	for k := range freqs {
		freqs[k] = float64(k) * float64(sampleRate) / float64(nFFT)
	}
	return freqs
}

// binFrequencies derives the bin centers for a one-sided spectrum of numBins bins.
func binFrequencies(sampleRate, numBins int) []float64 {
	if numBins <= 1 {
		return make([]float64, max(numBins, 0))
	}
	return FFTFrequencies(sampleRate, (numBins-1)*2)
}
