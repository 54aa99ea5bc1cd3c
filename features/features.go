// Package features turns an audio file into the four spectral summary
// statistics the genre classifier is tuned against.
package features

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-genre/algorithms/common"
	"github.com/RyanBlaney/sonido-genre/algorithms/spectral"
	"github.com/RyanBlaney/sonido-genre/apperr"
	"github.com/RyanBlaney/sonido-genre/logging"
	"github.com/RyanBlaney/sonido-genre/transcode"
)

const (
	// DefaultMaxDuration is how much of a file is analyzed when no limit is given
	DefaultMaxDuration = 10.0

	// MatrixWindowSize and MatrixHopSize shape the spectral matrix shared with the renderer
	MatrixWindowSize = 1024
	MatrixHopSize    = 256

	// StatWindowSize and StatHopSize shape the transform behind centroid, rolloff and bandwidth
	StatWindowSize = 2048
	StatHopSize    = 512
)

// Vector holds the frame-averaged spectral statistics in classifier order
type Vector struct {
	Centroid  float64 `json:"centroid"`  // Hz
	Rolloff   float64 `json:"rolloff"`   // Hz
	Bandwidth float64 `json:"bandwidth"` // Hz
	Contrast  float64 `json:"contrast"`  // dB
}

// Slice returns the values as centroid, rolloff, bandwidth, contrast
func (v Vector) Slice() [4]float64 {
	return [4]float64{v.Centroid, v.Rolloff, v.Bandwidth, v.Contrast}
}

// IsFinite reports whether no value is NaN or infinite
func (v Vector) IsFinite() bool {
	for _, x := range v.Slice() {
		if !common.IsFinite(x) {
			return false
		}
	}
	return true
}

func (v Vector) String() string {
	return fmt.Sprintf("centroid=%.1fHz rolloff=%.1fHz bandwidth=%.1fHz contrast=%.2fdB",
		v.Centroid, v.Rolloff, v.Bandwidth, v.Contrast)
}

// Extractor decodes audio and computes its spectral matrix and feature vector
type Extractor struct {
	decoder transcode.Decoder
	stft    *spectral.STFT
	logger  logging.Logger
}

// NewExtractor creates an extractor. A nil decoder selects the native decoder.
func NewExtractor(decoder transcode.Decoder) *Extractor {
	if decoder == nil {
		decoder = transcode.NewNativeDecoder()
	}
	return &Extractor{
		decoder: decoder,
		stft:    spectral.NewSTFT(),
		logger: logging.WithFields(logging.Fields{
			"component": "feature_extractor",
		}),
	}
}

// Extract decodes at most maxDurationSeconds of path and returns the native
// sample rate, the 1024/256 magnitude matrix and the feature vector.
// maxDurationSeconds <= 0 uses DefaultMaxDuration.
func (e *Extractor) Extract(path string, maxDurationSeconds float64) (int, *spectral.STFTResult, Vector, error) {
	if maxDurationSeconds <= 0 || math.IsNaN(maxDurationSeconds) {
		maxDurationSeconds = DefaultMaxDuration
	}

	logger := e.logger.WithFields(logging.Fields{
		"function": "Extract",
		"filename": path,
	})

	audio, err := e.decoder.DecodeFile(path, maxDurationSeconds)
	if err != nil {
		return 0, nil, Vector{}, err
	}

	matrix, vec, err := e.ExtractSignal(audio.PCM, audio.SampleRate)
	if err != nil {
		logger.Error(err, "Feature extraction failed")
		return 0, nil, Vector{}, err
	}

	logger.Debug("Features extracted", logging.Fields{
		"sample_rate": audio.SampleRate,
		"samples":     len(audio.PCM),
		"frames":      matrix.TimeFrames,
		"centroid":    vec.Centroid,
		"rolloff":     vec.Rolloff,
		"bandwidth":   vec.Bandwidth,
		"contrast":    vec.Contrast,
	})

	return audio.SampleRate, matrix, vec, nil
}

// ExtractSignal computes the spectral matrix and feature vector of a mono signal
func (e *Extractor) ExtractSignal(signal []float64, sampleRate int) (*spectral.STFTResult, Vector, error) {
	if len(signal) == 0 {
		return nil, Vector{}, apperr.EmptySignal("")
	}

	matrix, err := e.stft.Compute(signal, MatrixWindowSize, MatrixHopSize, sampleRate)
	if err != nil {
		return nil, Vector{}, fmt.Errorf("spectral matrix: %w", err)
	}

	stats, err := e.stft.Compute(signal, StatWindowSize, StatHopSize, sampleRate)
	if err != nil {
		return nil, Vector{}, fmt.Errorf("statistics transform: %w", err)
	}

	centroids, bandwidths := spectral.NewSpectralShape(sampleRate).ComputeFrames(stats.Magnitude)
	rolloffs := spectral.NewSpectralRolloff(sampleRate).ComputeFrames(stats.Magnitude, spectral.DefaultRolloffPercent)
	contrast := spectral.NewSpectralContrast(sampleRate, spectral.DefaultContrastBands).ComputeMean(matrix.Magnitude)

	vec := Vector{
		Centroid:  common.Mean(centroids),
		Rolloff:   common.Mean(rolloffs),
		Bandwidth: common.Mean(bandwidths),
		Contrast:  contrast,
	}

	if !vec.IsFinite() {
		return nil, Vector{}, fmt.Errorf("non-finite feature vector: %s", vec)
	}

	return matrix, vec, nil
}
