package transcode

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/RyanBlaney/sonido-genre/apperr"
	"github.com/RyanBlaney/sonido-genre/logging"
)

// Format is a supported audio container
type Format string

const (
	FormatWAV  Format = "wav"
	FormatMP3  Format = "mp3"
	FormatFLAC Format = "flac"
	FormatOGG  Format = "ogg"
)

var extensionFormats = map[string]Format{
	".wav":  FormatWAV,
	".wave": FormatWAV,
	".mp3":  FormatMP3,
	".flac": FormatFLAC,
	".ogg":  FormatOGG,
	".oga":  FormatOGG,
}

// AudioData represents a decoded, mono, possibly truncated signal
type AudioData struct {
	PCM        []float64     `json:"-"` // Mono samples in [-1, 1]
	SampleRate int           `json:"sample_rate"`
	Channels   int           `json:"channels"` // Channel count of the source before downmix
	Duration   time.Duration `json:"duration"`
	Format     Format        `json:"format"`
	Path       string        `json:"path"`
	Truncated  bool          `json:"truncated"`
}

// Decoder turns an audio file into mono PCM at its native sample rate,
// reading at most maxSeconds from the start (maxSeconds <= 0 reads everything).
type Decoder interface {
	DecodeFile(path string, maxSeconds float64) (*AudioData, error)
}

// PCMReader streams interleaved float samples from one container format
type PCMReader interface {
	// ReadChunk reads up to numFrames frames of interleaved samples.
	// It returns io.EOF once the stream is exhausted and no samples were read.
	ReadChunk(numFrames int) ([]float64, error)

	SampleRate() int
	NumChannels() int
}

type readerFactory func(r io.ReadSeeker) (PCMReader, error)

// DetectFormat maps a path's extension to a Format without touching the file
func DetectFormat(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if format, ok := extensionFormats[ext]; ok {
		return format, nil
	}
	return "", apperr.UnsupportedFormat(path, ext).
		WithDetail("supported", strings.Join(SupportedExtensions(), " "))
}

// SupportedExtensions lists the primary extension of each supported format
func SupportedExtensions() []string {
	return []string{".wav", ".mp3", ".flac", ".ogg"}
}

// NativeDecoder decodes WAV, MP3, FLAC and Ogg Vorbis in-process
type NativeDecoder struct {
	readers   map[Format]readerFactory
	chunkSize int
	logger    logging.Logger
}

// NewNativeDecoder creates a decoder backed by pure-Go codecs
func NewNativeDecoder() *NativeDecoder {
	return &NativeDecoder{
		readers: map[Format]readerFactory{
			FormatWAV:  newWAVReader,
			FormatMP3:  newMP3Reader,
			FormatFLAC: newFLACReader,
			FormatOGG:  newOggReader,
		},
		chunkSize: 4096,
		logger: logging.WithFields(logging.Fields{
			"component": "audio_decoder",
			"backend":   "native",
		}),
	}
}

// DecodeFile decodes an audio file and returns mono PCM data
func (d *NativeDecoder) DecodeFile(path string, maxSeconds float64) (*AudioData, error) {
	logger := d.logger.WithFields(logging.Fields{
		"function": "DecodeFile",
		"filename": path,
	})

	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	newReader, ok := d.readers[format]
	if !ok {
		return nil, apperr.UnsupportedFormat(path, string(format))
	}

	logger.Debug("Starting audio file decode", logging.Fields{
		"format":      format,
		"max_seconds": maxSeconds,
	})

	file, err := os.Open(path)
	if err != nil {
		return nil, apperr.Decode(path, err)
	}
	defer file.Close()

	reader, err := newReader(file)
	if err != nil {
		logger.Error(err, "Failed to open audio stream")
		return nil, apperr.Decode(path, err)
	}

	sampleRate := reader.SampleRate()
	channels := reader.NumChannels()
	if sampleRate <= 0 || channels <= 0 {
		return nil, apperr.Decode(path, fmt.Errorf("invalid stream parameters: %d Hz, %d channels", sampleRate, channels))
	}

	maxFrames := maxFramesFor(maxSeconds, sampleRate)

	var mono, pending []float64
	truncated := false
	for {
		chunk, err := reader.ReadChunk(d.chunkSize)

		// Readers may split a frame across chunks; keep the partial tail
		pending = append(pending, chunk...)
		whole := len(pending) / channels * channels
		mono = append(mono, Downmix(pending[:whole], channels)...)
		pending = append(pending[:0], pending[whole:]...)

		if maxFrames >= 0 && len(mono) >= maxFrames {
			truncated = len(mono) > maxFrames || len(pending) > 0
			if !truncated && err == nil {
				more, _ := reader.ReadChunk(1)
				truncated = len(more) > 0
			}
			mono = mono[:maxFrames]
			break
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			logger.Error(err, "Failed to read audio samples", logging.Fields{
				"samples_read": len(mono),
			})
			return nil, apperr.Decode(path, err)
		}
	}

	if len(mono) == 0 {
		return nil, apperr.EmptySignal(path)
	}

	data := newAudioData(path, format, mono, sampleRate, channels, truncated)

	logger.Debug("Audio decode completed", logging.Fields{
		"sample_rate": sampleRate,
		"channels":    channels,
		"samples":     len(mono),
		"duration":    data.Duration.Seconds(),
		"truncated":   truncated,
	})

	return data, nil
}

func newAudioData(path string, format Format, mono []float64, sampleRate, channels int, truncated bool) *AudioData {
	return &AudioData{
		PCM:        mono,
		SampleRate: sampleRate,
		Channels:   channels,
		Duration:   time.Duration(len(mono)) * time.Second / time.Duration(sampleRate),
		Format:     format,
		Path:       path,
		Truncated:  truncated,
	}
}

// maxFramesFor converts a duration limit to a frame count, truncating toward
// zero. It returns -1 when there is no limit; a positive limit shorter than one
// sample yields 0 frames.
func maxFramesFor(maxSeconds float64, sampleRate int) int {
	if maxSeconds <= 0 || math.IsNaN(maxSeconds) || math.IsInf(maxSeconds, 0) {
		return -1
	}
	return int(maxSeconds * float64(sampleRate))
}

// Downmix averages interleaved channels into one. A trailing partial frame is dropped.
func Downmix(interleaved []float64, channels int) []float64 {
	if channels <= 1 {
		out := make([]float64, len(interleaved))
		copy(out, interleaved)
		return out
	}

	frames := len(interleaved) / channels
	out := make([]float64, frames)
	scale := 1.0 / float64(channels)
	for i := range frames {
		sum := 0.0
		for c := range channels {
			sum += interleaved[i*channels+c]
		}
		out[i] = sum * scale
	}
	return out
}

// NewDecoder selects a decoder backend by name: "native" (default) or "ffmpeg"
func NewDecoder(backend string, ffmpegConfig *FFmpegConfig) (Decoder, error) {
	switch strings.ToLower(backend) {
	case "", "native":
		return NewNativeDecoder(), nil
	case "ffmpeg":
		d := NewFFmpegDecoder(ffmpegConfig)
		if !d.Available() {
			d.logger.Warn("ffmpeg or ffprobe not found in PATH, decoding will fail", logging.Fields{
				"ffmpeg":  d.config.FFmpegPath,
				"ffprobe": d.config.FFprobePath,
			})
		}
		return d, nil
	default:
		return nil, fmt.Errorf("unknown decoder backend %q", backend)
	}
}
