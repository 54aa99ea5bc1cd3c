package transcode

import (
	"fmt"
	"io"

	"github.com/mewkiz/flac"
)

type flacReader struct {
	stream  *flac.Stream
	scale   float64
	pending []float64 // interleaved samples decoded but not yet returned
}

func newFLACReader(r io.ReadSeeker) (PCMReader, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, err
	}
	if stream.Info.BitsPerSample == 0 || stream.Info.BitsPerSample > 32 {
		return nil, fmt.Errorf("unsupported flac bit depth %d", stream.Info.BitsPerSample)
	}
	return &flacReader{
		stream: stream,
		scale:  float64(uint64(1) << (stream.Info.BitsPerSample - 1)),
	}, nil
}

func (f *flacReader) ReadChunk(numFrames int) ([]float64, error) {
	channels := f.NumChannels()
	want := numFrames * channels

	var err error
	for len(f.pending) < want {
		frame, perr := f.stream.ParseNext()
		if perr != nil {
			err = perr
			break
		}
		if len(frame.Subframes) != channels {
			err = fmt.Errorf("flac frame has %d channels, stream declares %d", len(frame.Subframes), channels)
			break
		}

		blockSize := len(frame.Subframes[0].Samples)
		for i := range blockSize {
			for _, sub := range frame.Subframes {
				f.pending = append(f.pending, float64(sub.Samples[i])/f.scale)
			}
		}
	}

	n := min(want, len(f.pending))
	out := make([]float64, n)
	copy(out, f.pending[:n])
	f.pending = f.pending[n:]

	if n > 0 && err == io.EOF {
		// Report EOF on the next call once buffered samples are drained
		if len(f.pending) == 0 {
			return out, io.EOF
		}
		return out, nil
	}
	return out, err
}

func (f *flacReader) SampleRate() int  { return int(f.stream.Info.SampleRate) }
func (f *flacReader) NumChannels() int { return int(f.stream.Info.NChannels) }
