// Package testaudio writes small WAV and FLAC fixtures for tests.
package testaudio

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
)

const (
	bitDepth      = 16
	flacBlockSize = 4096
	// STREAMINFO rejects blocks shorter than this
	flacMinBlockSize = 16
)

// Sine returns n samples of a sine at freq Hz with the given amplitude
func Sine(freq, amplitude float64, sampleRate, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}

// Noise returns n samples of uniform white noise from a fixed seed
func Noise(amplitude float64, n int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = amplitude * (2*rng.Float64() - 1)
	}
	return out
}

// Mix sums signals sample by sample; the result has the length of the shortest input
func Mix(signals ...[]float64) []float64 {
	if len(signals) == 0 {
		return nil
	}
	n := len(signals[0])
	for _, s := range signals[1:] {
		n = min(n, len(s))
	}
	out := make([]float64, n)
	for _, s := range signals {
		for i := range out {
			out[i] += s[i]
		}
	}
	return out
}

// Interleave zips per-channel signals into one interleaved slice
func Interleave(channels ...[]float64) []float64 {
	if len(channels) == 0 {
		return nil
	}
	n := len(channels[0])
	out := make([]float64, 0, n*len(channels))
	for i := range n {
		for _, ch := range channels {
			out = append(out, ch[i])
		}
	}
	return out
}

// WriteWAV writes interleaved samples in [-1, 1] as 16-bit PCM into dir/name
// and returns the file path.
func WriteWAV(tb testing.TB, dir, name string, interleaved []float64, sampleRate, channels int) string {
	tb.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		tb.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	data := make([]int, len(interleaved))
	for i, v := range interleaved {
		data[i] = int(quantize(v))
	}

	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		tb.Fatalf("encode %s: %v", path, err)
	}
	if err := enc.Close(); err != nil {
		tb.Fatalf("finalize %s: %v", path, err)
	}

	return path
}

// WriteFLAC writes interleaved samples in [-1, 1] as 16-bit verbatim FLAC
// into dir/name and returns the file path. The last block may be shorter than
// the others but not shorter than 16 frames.
func WriteFLAC(tb testing.TB, dir, name string, interleaved []float64, sampleRate, channels int) string {
	tb.Helper()

	var layout frame.Channels
	switch channels {
	case 1:
		layout = frame.ChannelsMono
	case 2:
		layout = frame.ChannelsLR
	default:
		tb.Fatalf("flac fixture: unsupported channel count %d", channels)
	}

	frames := len(interleaved) / channels
	if tail := frames % flacBlockSize; frames == 0 || (tail > 0 && tail < flacMinBlockSize) {
		tb.Fatalf("flac fixture: %d frames leaves a block shorter than %d", frames, flacMinBlockSize)
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		tb.Fatalf("create %s: %v", path, err)
	}

	info := &meta.StreamInfo{
		BlockSizeMin:  flacBlockSize,
		BlockSizeMax:  flacBlockSize,
		SampleRate:    uint32(sampleRate),
		NChannels:     uint8(channels),
		BitsPerSample: bitDepth,
		NSamples:      uint64(frames),
	}
	enc, err := flac.NewEncoder(f, info)
	if err != nil {
		f.Close()
		tb.Fatalf("encode %s: %v", path, err)
	}

	for start := 0; start < frames; start += flacBlockSize {
		n := min(flacBlockSize, frames-start)
		subframes := make([]*frame.Subframe, channels)
		for c := range subframes {
			samples := make([]int32, n)
			for i := range samples {
				samples[i] = quantize(interleaved[(start+i)*channels+c])
			}
			subframes[c] = &frame.Subframe{
				SubHeader: frame.SubHeader{Pred: frame.PredVerbatim},
				Samples:   samples,
				NSamples:  n,
			}
		}

		block := &frame.Frame{
			Header: frame.Header{
				HasFixedBlockSize: true,
				BlockSize:         uint16(n),
				SampleRate:        uint32(sampleRate),
				Channels:          layout,
				BitsPerSample:     bitDepth,
			},
			Subframes: subframes,
		}
		if err := enc.WriteFrame(block); err != nil {
			enc.Close()
			tb.Fatalf("encode %s: %v", path, err)
		}
	}

	// Close rewrites STREAMINFO and closes f
	if err := enc.Close(); err != nil {
		tb.Fatalf("finalize %s: %v", path, err)
	}

	return path
}

func quantize(v float64) int32 {
	v = max(-1, min(1, v))
	return int32(math.Round(v * math.MaxInt16))
}

// WriteMonoWAV is WriteWAV for a single channel
func WriteMonoWAV(tb testing.TB, dir, name string, samples []float64, sampleRate int) string {
	tb.Helper()
	return WriteWAV(tb, dir, name, samples, sampleRate, 1)
}

// WriteFile writes raw bytes, for fixtures that are not valid audio
func WriteFile(tb testing.TB, dir, name string, content []byte) string {
	tb.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		tb.Fatalf("write %s: %v", path, err)
	}
	return path
}
