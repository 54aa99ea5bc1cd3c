package spectral

import (
	"fmt"
	"math/cmplx"
	"runtime"
	"sync"

	"github.com/mjibson/go-dsp/fft"

	"github.com/RyanBlaney/sonido-genre/algorithms/windowing"
	"github.com/RyanBlaney/sonido-genre/logging"
)

// STFT provides Short-Time Fourier Transform functionality
type STFT struct {
	logger logging.Logger
}

// STFTResult holds a magnitude spectrogram. Phase is not retained.
type STFTResult struct {
	Magnitude      [][]float64 `json:"magnitude"`       // Time x Frequency magnitude matrix
	TimeFrames     int         `json:"time_frames"`     // Number of time frames
	FreqBins       int         `json:"freq_bins"`       // Number of frequency bins
	SampleRate     int         `json:"sample_rate"`     // Sample rate
	WindowSize     int         `json:"window_size"`     // FFT window size
	HopSize        int         `json:"hop_size"`        // Hop size between frames
	FreqResolution float64     `json:"freq_resolution"` // Frequency resolution (Hz/bin)
	TimeResolution float64     `json:"time_resolution"` // Time resolution (seconds/frame)
}

// At returns the magnitude at (frequency bin, time frame)
func (r *STFTResult) At(bin, frame int) float64 {
	return r.Magnitude[frame][bin]
}

// FrameTime returns the start time in seconds of a frame's analysis hop
func (r *STFTResult) FrameTime(frame int) float64 {
	if r.SampleRate <= 0 {
		return 0
	}
	return float64(frame*r.HopSize) / float64(r.SampleRate)
}

// Nyquist returns half the sample rate
func (r *STFTResult) Nyquist() float64 {
	return float64(r.SampleRate) / 2.0
}

// Window tapers one analysis frame in place
type Window interface {
	Apply(frame []float64) error
}

// NewSTFT creates a new STFT calculator
func NewSTFT() *STFT {
	return &STFT{
		logger: logging.WithFields(logging.Fields{
			"component": "stft",
		}),
	}
}

// Compute computes a centered magnitude STFT with a periodic Hann window.
// The signal is zero-padded by windowSize/2 on both sides so frame t is
// centered on sample t*hopSize; the frame count is 1 + len(signal)/hopSize.
func (s *STFT) Compute(signal []float64, windowSize int, hopSize int, sampleRate int) (*STFTResult, error) {
	if windowSize <= 0 {
		return nil, fmt.Errorf("window size must be positive")
	}
	return s.ComputeWithWindow(signal, windowSize, hopSize, sampleRate, windowing.Hann(windowSize), true)
}

// ComputeWithWindow computes the STFT with parallel processing and a custom window.
// With center=false frames start at sample 0 and only whole windows are used.
func (s *STFT) ComputeWithWindow(signal []float64, windowSize int, hopSize int, sampleRate int, window Window, center bool) (*STFTResult, error) {
	if len(signal) == 0 {
		return nil, fmt.Errorf("empty signal")
	}

	if windowSize <= 0 {
		return nil, fmt.Errorf("window size must be positive")
	}

	if hopSize <= 0 {
		return nil, fmt.Errorf("hop size must be positive")
	}

	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive")
	}

	padded := signal
	if center {
		pad := windowSize / 2
		padded = make([]float64, len(signal)+2*pad)
		copy(padded[pad:], signal)
	}

	if len(padded) < windowSize {
		return nil, fmt.Errorf("signal too short for given window size and hop size")
	}

	numFrames := (len(padded)-windowSize)/hopSize + 1

	// Positive frequencies only
	freqBins := windowSize/2 + 1

	magnitude := make([][]float64, numFrames)
	for i := range numFrames {
		magnitude[i] = make([]float64, freqBins)
	}

	numWorkers := workersFor(numFrames)
	chunk := (numFrames + numWorkers - 1) / numWorkers

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		frameErr error
	)

	// each worker owns a contiguous run of frames and its own frame buffer
	for lo := 0; lo < numFrames; lo += chunk {
		hi := min(lo+chunk, numFrames)
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()

			frame := make([]float64, windowSize)
			for t := lo; t < hi; t++ {
				copy(frame, padded[t*hopSize:t*hopSize+windowSize])

				if window != nil {
					if err := window.Apply(frame); err != nil {
						errOnce.Do(func() { frameErr = fmt.Errorf("frame %d: %w", t, err) })
						return
					}
				}

				// go-dsp takes the radix-2 path for power-of-two windows
				spectrum := fft.FFTReal(frame)
				row := magnitude[t]
				for k := range row {
					row[k] = cmplx.Abs(spectrum[k])
				}
			}
		}(lo, hi)
	}
	wg.Wait()

	if frameErr != nil {
		return nil, fmt.Errorf("failed to window frame: %w", frameErr)
	}

	s.logger.Debug("STFT computed", logging.Fields{
		"function":    "ComputeWithWindow",
		"frames":      numFrames,
		"freq_bins":   freqBins,
		"window_size": windowSize,
		"hop_size":    hopSize,
		"workers":     numWorkers,
	})

	return &STFTResult{
		Magnitude:      magnitude,
		TimeFrames:     numFrames,
		FreqBins:       freqBins,
		SampleRate:     sampleRate,
		WindowSize:     windowSize,
		HopSize:        hopSize,
		FreqResolution: float64(sampleRate) / float64(windowSize),
		TimeResolution: float64(hopSize) / float64(sampleRate),
	}, nil
}

// minimum frames handed to one worker
const minFramesPerWorker = 64

// workersFor splits numFrames across at most GOMAXPROCS workers
func workersFor(numFrames int) int {
	return max(1, min(runtime.GOMAXPROCS(0), numFrames/minFramesPerWorker))
}
