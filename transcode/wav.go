package transcode

import (
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const wavFormatIEEEFloat = 3

// wavReader streams integer PCM from a RIFF/WAVE container
type wavReader struct {
	dec   *wav.Decoder
	buf   *audio.IntBuffer
	scale float64
	// 8-bit WAV is unsigned around 128
	offset int
}

func newWAVReader(r io.ReadSeeker) (PCMReader, error) {
	dec := wav.NewDecoder(r)
	dec.ReadInfo()
	if err := dec.Err(); err != nil {
		return nil, fmt.Errorf("invalid wav header: %w", err)
	}
	if dec.NumChans < 1 {
		return nil, fmt.Errorf("invalid wav header: %d channels", dec.NumChans)
	}
	if dec.WavAudioFormat == wavFormatIEEEFloat {
		return nil, fmt.Errorf("floating point wav is not supported by the native decoder")
	}

	reader := &wavReader{dec: dec}
	switch dec.BitDepth {
	case 8:
		reader.scale, reader.offset = 1<<7, 128
	case 16:
		reader.scale = 1 << 15
	case 24:
		reader.scale = 1 << 23
	case 32:
		reader.scale = 1 << 31
	default:
		return nil, fmt.Errorf("unsupported wav bit depth %d", dec.BitDepth)
	}

	return reader, nil
}

func (w *wavReader) ReadChunk(numFrames int) ([]float64, error) {
	size := numFrames * int(w.dec.NumChans)
	if w.buf == nil || len(w.buf.Data) != size {
		w.buf = &audio.IntBuffer{
			Format: w.dec.Format(),
			Data:   make([]int, size),
		}
	}

	n, err := w.dec.PCMBuffer(w.buf)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, io.EOF
	}

	out := make([]float64, n)
	for i, v := range w.buf.Data[:n] {
		out[i] = float64(v-w.offset) / w.scale
	}
	return out, nil
}

func (w *wavReader) SampleRate() int  { return int(w.dec.SampleRate) }
func (w *wavReader) NumChannels() int { return int(w.dec.NumChans) }
