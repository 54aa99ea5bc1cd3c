// Package render draws a magnitude spectrogram as a fixed-size image:
// decibels relative to the loudest cell, inferno colors, time across and
// frequency up a base-2 symmetric-log axis.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/RyanBlaney/sonido-genre/algorithms/common"
	"github.com/RyanBlaney/sonido-genre/algorithms/spectral"
	"github.com/RyanBlaney/sonido-genre/apperr"
	"github.com/RyanBlaney/sonido-genre/logging"
)

const (
	DefaultWidth  = 820
	DefaultHeight = 340
	DefaultTitle  = "Spectrogram (STFT)"
)

// Plot margins in pixels
const (
	marginLeft   = 52
	marginRight  = 14
	marginTop    = 24
	marginBottom = 34
	tickLength   = 4
)

// Options controls the output image
type Options struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	TopDB  float64 `json:"top_db"` // dynamic range below the loudest cell
	Title  string  `json:"title"`
}

// DefaultOptions returns an 820x340 image with an 80 dB range
func DefaultOptions() Options {
	return Options{
		Width:  DefaultWidth,
		Height: DefaultHeight,
		TopDB:  spectral.DefaultTopDB,
		Title:  DefaultTitle,
	}
}

// Renderer turns spectral matrices into images
type Renderer struct {
	opts   Options
	face   font.Face
	logger logging.Logger
}

// NewRenderer creates a renderer. Zero-valued options fall back to the defaults.
func NewRenderer(opts Options) *Renderer {
	def := DefaultOptions()
	if opts.Width <= 0 {
		opts.Width = def.Width
	}
	if opts.Height <= 0 {
		opts.Height = def.Height
	}
	if opts.TopDB <= 0 {
		opts.TopDB = def.TopDB
	}

	return &Renderer{
		opts: opts,
		face: basicfont.Face7x13,
		logger: logging.WithFields(logging.Fields{
			"component": "spectrogram_renderer",
		}),
	}
}

// Options returns the effective options
func (r *Renderer) Options() Options {
	return r.opts
}

// Render draws the matrix. Silent input yields a uniform 0 dB plane.
func (r *Renderer) Render(matrix *spectral.STFTResult) (*image.RGBA, error) {
	if err := validateMatrix(matrix); err != nil {
		return nil, err
	}

	if r.opts.Width-marginLeft-marginRight < 2 || r.opts.Height-marginTop-marginBottom < 2 {
		return nil, apperr.Render(fmt.Sprintf("image %dx%d leaves no room for the plot", r.opts.Width, r.opts.Height))
	}
	plot := image.Rect(marginLeft, marginTop, r.opts.Width-marginRight, r.opts.Height-marginBottom)

	db := spectral.AmplitudeToDBRefMax(matrix.Magnitude, r.opts.TopDB)
	heat := r.heatmap(db, matrix, plot.Dy())

	canvas := image.NewRGBA(image.Rect(0, 0, r.opts.Width, r.opts.Height))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)
	draw.BiLinear.Scale(canvas, plot, heat, heat.Bounds(), draw.Src, nil)

	duration := matrix.FrameTime(matrix.TimeFrames)
	r.drawAxes(canvas, plot, duration, matrix.Nyquist())

	r.logger.Debug("Spectrogram rendered", logging.Fields{
		"function": "Render",
		"frames":   matrix.TimeFrames,
		"bins":     matrix.FreqBins,
		"width":    r.opts.Width,
		"height":   r.opts.Height,
		"duration": duration,
	})

	return canvas, nil
}

func validateMatrix(matrix *spectral.STFTResult) error {
	switch {
	case matrix == nil:
		return apperr.Render("spectral matrix is nil")
	case matrix.TimeFrames == 0 || len(matrix.Magnitude) == 0:
		return apperr.Render("spectral matrix has no frames")
	case matrix.FreqBins < 2 || len(matrix.Magnitude[0]) < 2:
		return apperr.Render("spectral matrix has fewer than two frequency bins")
	case matrix.SampleRate <= 0:
		return apperr.Render(fmt.Sprintf("invalid sample rate %d", matrix.SampleRate))
	case matrix.HopSize <= 0:
		return apperr.Render(fmt.Sprintf("invalid hop size %d", matrix.HopSize))
	}
	return nil
}

// heatmap colors one column per frame and height rows laid out on the symlog
// frequency axis, top row highest. Each row takes its nearest bin.
func (r *Renderer) heatmap(db [][]float64, matrix *spectral.STFTResult, height int) *image.RGBA {
	frames := len(db)
	bins := len(db[0])
	nyquist := matrix.Nyquist()
	binWidth := nyquist / float64(bins-1)

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, row := range db {
		for _, v := range row {
			lo = min(lo, v)
			hi = max(hi, v)
		}
	}
	span := hi - lo

	rowBin := make([]int, height)
	top := symlog(nyquist)
	for y := range height {
		f := symexp(top * (1 - (float64(y)+0.5)/float64(height)))
		rowBin[y] = int(common.Clamp(math.Round(f/binWidth), 0, float64(bins-1)))
	}

	heat := image.NewRGBA(image.Rect(0, 0, frames, height))
	for x, row := range db {
		for y, k := range rowBin {
			t := 0.0
			if span > 0 {
				t = (row[k] - lo) / span
			}
			heat.SetRGBA(x, y, Inferno(t))
		}
	}
	return heat
}

func (r *Renderer) drawAxes(canvas *image.RGBA, plot image.Rectangle, duration, nyquist float64) {
	ink := color.RGBA{0x22, 0x22, 0x22, 0xff}

	// Frame
	hline(canvas, plot.Min.X-1, plot.Max.X, plot.Min.Y-1, ink)
	hline(canvas, plot.Min.X-1, plot.Max.X, plot.Max.Y, ink)
	vline(canvas, plot.Min.X-1, plot.Min.Y-1, plot.Max.Y, ink)
	vline(canvas, plot.Max.X, plot.Min.Y-1, plot.Max.Y, ink)

	lineHeight := r.face.Metrics().Height.Ceil()

	// Frequency ticks, skipping labels that would overlap the previous one
	top := symlog(nyquist)
	lastY := math.MaxInt
	for _, tk := range frequencyTicks(nyquist) {
		y := plot.Max.Y - 1 - int(math.Round(symlog(tk.value)/top*float64(plot.Dy()-1)))
		if lastY-y < lineHeight {
			continue
		}
		lastY = y
		hline(canvas, plot.Min.X-1-tickLength, plot.Min.X-1, y, ink)
		w := r.textWidth(tk.label)
		r.drawText(canvas, tk.label, plot.Min.X-tickLength-4-w, y+lineHeight/2-2, ink)
	}

	// Time ticks
	maxTicks := max(2, plot.Dx()/60)
	for _, tk := range timeTicks(duration, maxTicks) {
		x := plot.Min.X
		if duration > 0 {
			x += int(math.Round(tk.value / duration * float64(plot.Dx()-1)))
		}
		vline(canvas, x, plot.Max.Y, plot.Max.Y+tickLength, ink)
		w := r.textWidth(tk.label)
		r.drawText(canvas, tk.label, x-w/2, plot.Max.Y+tickLength+lineHeight-1, ink)
	}

	// Axis labels and title
	r.drawText(canvas, "Time", plot.Min.X+(plot.Dx()-r.textWidth("Time"))/2, canvas.Bounds().Max.Y-3, ink)
	r.drawText(canvas, "Hz", 4, plot.Min.Y+plot.Dy()/2+lineHeight/2, ink)
	if r.opts.Title != "" {
		r.drawText(canvas, r.opts.Title, plot.Min.X+(plot.Dx()-r.textWidth(r.opts.Title))/2, plot.Min.Y-8, ink)
	}
}

func (r *Renderer) textWidth(s string) int {
	return font.MeasureString(r.face, s).Ceil()
}

// drawText draws s with its baseline at y
func (r *Renderer) drawText(dst draw.Image, s string, x, y int, c color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: r.face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func hline(img *image.RGBA, x0, x1, y int, c color.RGBA) {
	for x := x0; x <= x1; x++ {
		if (image.Point{x, y}).In(img.Rect) {
			img.SetRGBA(x, y, c)
		}
	}
}

func vline(img *image.RGBA, x, y0, y1 int, c color.RGBA) {
	for y := y0; y <= y1; y++ {
		if (image.Point{x, y}).In(img.Rect) {
			img.SetRGBA(x, y, c)
		}
	}
}

// EncodePNG encodes an image as PNG bytes
func EncodePNG(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, apperr.Render("nil image")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, apperr.Wrap(err, apperr.KindRender, "png encoding failed")
	}
	return buf.Bytes(), nil
}
