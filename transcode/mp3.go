package transcode

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/hajimehoshi/go-mp3"
)

// go-mp3 always emits 16-bit little-endian stereo
const (
	mp3Channels       = 2
	mp3BytesPerSample = 2
)

type mp3Reader struct {
	dec *mp3.Decoder
	buf []byte
}

func newMP3Reader(r io.ReadSeeker) (PCMReader, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, err
	}
	return &mp3Reader{dec: dec}, nil
}

func (m *mp3Reader) ReadChunk(numFrames int) ([]float64, error) {
	size := numFrames * mp3Channels * mp3BytesPerSample
	if len(m.buf) != size {
		m.buf = make([]byte, size)
	}

	n, err := io.ReadFull(m.dec, m.buf)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = io.EOF
	}
	if n == 0 && err == nil {
		err = io.EOF
	}

	out := make([]float64, n/mp3BytesPerSample)
	for i := range out {
		out[i] = float64(int16(binary.LittleEndian.Uint16(m.buf[i*2:]))) / (1 << 15)
	}
	return out, err
}

func (m *mp3Reader) SampleRate() int  { return m.dec.SampleRate() }
func (m *mp3Reader) NumChannels() int { return mp3Channels }
