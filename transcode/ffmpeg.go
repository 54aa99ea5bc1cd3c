package transcode

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/RyanBlaney/sonido-genre/apperr"
	"github.com/RyanBlaney/sonido-genre/logging"
)

// FFmpegConfig holds settings for the ffmpeg decoder backend
type FFmpegConfig struct {
	FFmpegPath  string        `json:"ffmpeg_path"`  // Path to ffmpeg binary
	FFprobePath string        `json:"ffprobe_path"` // Path to ffprobe binary
	Timeout     time.Duration `json:"timeout"`      // Timeout for each ffmpeg invocation
}

// DefaultFFmpegConfig returns binaries from PATH with a 30 second timeout
func DefaultFFmpegConfig() *FFmpegConfig {
	return &FFmpegConfig{
		FFmpegPath:  "ffmpeg",
		FFprobePath: "ffprobe",
		Timeout:     30 * time.Second,
	}
}

// FFmpegDecoder decodes audio by shelling out to ffmpeg. The stream is kept
// at its native sample rate and channel layout; downmixing happens in-process
// so both backends produce the same mono signal.
type FFmpegDecoder struct {
	config *FFmpegConfig
	logger logging.Logger
}

// streamInfo is what ffprobe reports about the first audio stream
type streamInfo struct {
	SampleRate int
	Channels   int
	Codec      string
	Duration   float64 // 0 when the container does not say
}

// layouts beyond 7.1 are rejected
const maxProbeChannels = 8

// NewFFmpegDecoder creates a new ffmpeg-backed decoder
func NewFFmpegDecoder(config *FFmpegConfig) *FFmpegDecoder {
	if config == nil {
		config = DefaultFFmpegConfig()
	}
	return &FFmpegDecoder{
		config: config,
		logger: logging.WithFields(logging.Fields{
			"component": "audio_decoder",
			"backend":   "ffmpeg",
		}),
	}
}

// Available reports whether the configured ffmpeg and ffprobe binaries can be found
func (d *FFmpegDecoder) Available() bool {
	if _, err := exec.LookPath(d.config.FFmpegPath); err != nil {
		return false
	}
	_, err := exec.LookPath(d.config.FFprobePath)
	return err == nil
}

// DecodeFile decodes an audio file and returns mono PCM data
func (d *FFmpegDecoder) DecodeFile(path string, maxSeconds float64) (*AudioData, error) {
	ctx := context.Background()
	if d.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.Timeout)
		defer cancel()
	}
	return d.DecodeFileContext(ctx, path, maxSeconds)
}

// DecodeFileContext is DecodeFile bounded by ctx
func (d *FFmpegDecoder) DecodeFileContext(ctx context.Context, path string, maxSeconds float64) (*AudioData, error) {
	logger := d.logger.WithFields(logging.Fields{
		"function": "DecodeFile",
		"filename": path,
	})

	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); err != nil {
		return nil, apperr.Decode(path, err)
	}

	logger.Debug("Starting audio file decode")

	info, err := d.probe(ctx, path)
	if err != nil {
		logger.Error(err, "Failed to probe audio file")
		return nil, apperr.Decode(path, err)
	}

	logger.Debug("Audio stream detected", logging.Fields{
		"codec":       info.Codec,
		"sample_rate": info.SampleRate,
		"channels":    info.Channels,
		"duration":    info.Duration,
	})

	args := d.buildFFmpegArgs(path, info, maxSeconds)
	logger.Debug("Running ffmpeg", logging.Fields{"args": strings.Join(args, " ")})

	output, err := exec.CommandContext(ctx, d.config.FFmpegPath, args...).Output()
	if err != nil {
		err = commandError("ffmpeg", err)
		logger.Error(err, "FFmpeg decode failed")
		return nil, apperr.Decode(path, err)
	}

	mono := Downmix(bytesToFloat64(output), info.Channels)

	// -t is applied at packet granularity, so trim to the exact frame count
	truncated := false
	if maxFrames := maxFramesFor(maxSeconds, info.SampleRate); maxFrames >= 0 && len(mono) >= maxFrames {
		truncated = len(mono) > maxFrames || info.Duration > maxSeconds
		mono = mono[:maxFrames]
	}

	if len(mono) == 0 {
		return nil, apperr.EmptySignal(path)
	}

	data := newAudioData(path, format, mono, info.SampleRate, info.Channels, truncated)

	logger.Debug("Audio decode completed", logging.Fields{
		"samples":   len(mono),
		"duration":  data.Duration.Seconds(),
		"truncated": truncated,
	})

	return data, nil
}

// probe asks ffprobe for the first audio stream's layout
func (d *FFmpegDecoder) probe(ctx context.Context, path string) (*streamInfo, error) {
	output, err := exec.CommandContext(ctx, d.config.FFprobePath,
		"-v", "error",
		"-select_streams", "a:0",
		"-show_entries", "stream=codec_type,codec_name,sample_rate,channels,duration",
		"-of", "json",
		path,
	).Output()
	if err != nil {
		return nil, commandError("ffprobe", err)
	}
	return parseFFprobeOutput(output)
}

// ffprobe prints numbers as strings and "N/A" when a field is unknown
type ffprobeStream struct {
	CodecType  string `json:"codec_type"`
	CodecName  string `json:"codec_name"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
	Duration   string `json:"duration"`
}

func parseFFprobeOutput(data []byte) (*streamInfo, error) {
	var out struct {
		Streams []ffprobeStream `json:"streams"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decoding ffprobe output: %w", err)
	}

	if len(out.Streams) == 0 || out.Streams[0].CodecType != "audio" {
		return nil, errors.New("no audio stream")
	}
	s := out.Streams[0]

	// every frequency downstream is measured against the native rate, so an
	// unknown rate cannot be defaulted
	rate, err := strconv.Atoi(s.SampleRate)
	if err != nil || rate <= 0 {
		return nil, fmt.Errorf("unusable sample rate %q", s.SampleRate)
	}
	if s.Channels < 1 || s.Channels > maxProbeChannels {
		return nil, fmt.Errorf("unusable channel count %d", s.Channels)
	}

	info := &streamInfo{SampleRate: rate, Channels: s.Channels, Codec: s.CodecName}
	if seconds, err := strconv.ParseFloat(s.Duration, 64); err == nil && seconds > 0 {
		info.Duration = seconds
	}
	return info, nil
}

// commandError folds a failed tool's stderr into the error
func commandError(tool string, err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
		return fmt.Errorf("%s: %w: %s", tool, err, strings.TrimSpace(string(exitErr.Stderr)))
	}
	return fmt.Errorf("%s: %w", tool, err)
}

// buildFFmpegArgs decodes the first audio stream to interleaved f64le at the native layout
func (d *FFmpegDecoder) buildFFmpegArgs(path string, info *streamInfo, maxSeconds float64) []string {
	args := []string{"-v", "error", "-i", path}

	if maxSeconds > 0 {
		// Slightly over-read; the exact cut happens on the decoded frames
		args = append(args, "-t", strconv.FormatFloat(maxSeconds+0.1, 'f', 3, 64))
	}

	return append(args,
		"-map", "0:a:0",
		"-vn",
		"-f", "f64le",
		"-ac", strconv.Itoa(info.Channels),
		"-ar", strconv.Itoa(info.SampleRate),
		"pipe:1",
	)
}

// bytesToFloat64 converts raw little-endian float64 bytes to samples
func bytesToFloat64(data []byte) []float64 {
	out := make([]float64, len(data)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
	}
	return out
}
