// Package windowing provides taper windows for frame-based analysis.
package windowing

import (
	"fmt"
	"math"
	"sync"
)

// Window is an immutable set of taper coefficients
type Window struct {
	name   string
	coeffs []float64
}

// periodic Hann windows by size
var hannCache sync.Map

// Hann returns the periodic Hann window of the given size. It divides by N
// rather than N-1, which is the form used for STFT analysis. Windows are
// cached and shared between goroutines.
func Hann(size int) *Window {
	if w, ok := hannCache.Load(size); ok {
		return w.(*Window)
	}
	w, _ := hannCache.LoadOrStore(size, newHann(size))
	return w.(*Window)
}

func newHann(size int) *Window {
	w := &Window{name: "hann", coeffs: make([]float64, max(size, 0))}
	switch {
	case size == 1:
		w.coeffs[0] = 1
	case size > 1:
		for n := range w.coeffs {
			w.coeffs[n] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(n)/float64(size))
		}
	}
	return w
}

// Apply multiplies frame by the window in place
func (w *Window) Apply(frame []float64) error {
	if len(frame) != len(w.coeffs) {
		return fmt.Errorf("%s window: frame length %d, want %d", w.name, len(frame), len(w.coeffs))
	}
	for n, c := range w.coeffs {
		frame[n] *= c
	}
	return nil
}

// At returns coefficient n
func (w *Window) At(n int) float64 {
	return w.coeffs[n]
}

// Len returns the window size
func (w *Window) Len() int {
	return len(w.coeffs)
}

// Name returns the window family, "hann"
func (w *Window) Name() string {
	return w.name
}

// Sum returns the coefficient total, i.e. the window's gain on a constant signal
func (w *Window) Sum() float64 {
	total := 0.0
	for _, c := range w.coeffs {
		total += c
	}
	return total
}
