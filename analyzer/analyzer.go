// Package analyzer runs the full pipeline for one file: decode, extract
// features, classify and render. Results are all-or-nothing.
package analyzer

import (
	"image"
	"path/filepath"
	"time"

	"github.com/RyanBlaney/sonido-genre/features"
	"github.com/RyanBlaney/sonido-genre/genre"
	"github.com/RyanBlaney/sonido-genre/logging"
	"github.com/RyanBlaney/sonido-genre/render"
	"github.com/RyanBlaney/sonido-genre/transcode"
)

// Result is a completed analysis
type Result struct {
	Label      genre.Label     `json:"genre"`
	Rule       string          `json:"rule"`
	Image      *image.RGBA     `json:"-"`
	Features   features.Vector `json:"features"`
	SampleRate int             `json:"sample_rate"`
	Elapsed    time.Duration   `json:"elapsed"`
}

// Analyzer wires the extractor, classifier and renderer together
type Analyzer struct {
	extractor *features.Extractor
	renderer  *render.Renderer
	logger    logging.Logger
}

// New creates an analyzer. A nil decoder selects the native decoder.
func New(decoder transcode.Decoder, opts render.Options) *Analyzer {
	return &Analyzer{
		extractor: features.NewExtractor(decoder),
		renderer:  render.NewRenderer(opts),
		logger: logging.WithFields(logging.Fields{
			"component": "analyzer",
		}),
	}
}

// NewDefault creates an analyzer with the native decoder and default image options
func NewDefault() *Analyzer {
	return New(nil, render.DefaultOptions())
}

// Analyze classifies at most maxDurationSeconds of path and renders its
// spectrogram. maxDurationSeconds <= 0 uses features.DefaultMaxDuration.
func (a *Analyzer) Analyze(path string, maxDurationSeconds float64) (*Result, error) {
	start := time.Now()
	logger := a.logger.WithFields(logging.Fields{
		"function": "Analyze",
		"file":     filepath.Base(path),
	})

	logger.Info("Analyzing...")

	sampleRate, matrix, vec, err := a.extractor.Extract(path, maxDurationSeconds)
	if err != nil {
		logger.Error(err, "Analysis failed")
		return nil, err
	}

	label, rule := genre.Explain(vec)

	img, err := a.renderer.Render(matrix)
	if err != nil {
		logger.Error(err, "Analysis failed")
		return nil, err
	}

	result := &Result{
		Label:      label,
		Rule:       rule.Name,
		Image:      img,
		Features:   vec,
		SampleRate: sampleRate,
		Elapsed:    time.Since(start),
	}

	logger.Info("Analysis complete", logging.Fields{
		"genre":       label,
		"rule":        rule.Name,
		"sample_rate": sampleRate,
		"elapsed_ms":  result.Elapsed.Milliseconds(),
	})

	return result, nil
}

// Analyze runs a default analyzer once
func Analyze(path string, maxDurationSeconds float64) (*Result, error) {
	return NewDefault().Analyze(path, maxDurationSeconds)
}
