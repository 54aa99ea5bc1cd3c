package transcode

import (
	"io"

	"github.com/jfreymuth/oggvorbis"
)

type oggReader struct {
	dec *oggvorbis.Reader
	buf []float32
}

func newOggReader(r io.ReadSeeker) (PCMReader, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, err
	}
	return &oggReader{dec: dec}, nil
}

func (o *oggReader) ReadChunk(numFrames int) ([]float64, error) {
	size := numFrames * o.dec.Channels()
	if len(o.buf) != size {
		o.buf = make([]float32, size)
	}

	// Read returns at most one packet's worth, so fill until full or EOF
	total := 0
	var err error
	for total < size {
		var n int
		n, err = o.dec.Read(o.buf[total:])
		total += n
		if err != nil {
			break
		}
		if n == 0 {
			err = io.EOF
			break
		}
	}

	out := make([]float64, total)
	for i, v := range o.buf[:total] {
		out[i] = float64(v)
	}
	return out, err
}

func (o *oggReader) SampleRate() int  { return o.dec.SampleRate() }
func (o *oggReader) NumChannels() int { return o.dec.Channels() }
