package analyzer

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/RyanBlaney/sonido-genre/apperr"
	"github.com/RyanBlaney/sonido-genre/genre"
	"github.com/RyanBlaney/sonido-genre/internal/testaudio"
	"github.com/RyanBlaney/sonido-genre/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rate = 22050

func TestMain(m *testing.M) {
	logging.SetGlobalLogger(nil)
	m.Run()
}

func TestAnalyzeTone(t *testing.T) {
	dir := t.TempDir()
	path := testaudio.WriteMonoWAV(t, dir, "tone.wav", testaudio.Sine(800, 0.5, rate, 3*rate), rate)

	result, err := NewDefault().Analyze(path, 10)
	require.NoError(t, err)

	assert.Equal(t, genre.Classical, result.Label)
	assert.Equal(t, "classical", result.Rule)
	assert.Equal(t, rate, result.SampleRate)
	require.NotNil(t, result.Image)
	assert.Equal(t, 820, result.Image.Bounds().Dx())
	assert.Equal(t, 340, result.Image.Bounds().Dy())
}

func TestAnalyzeNoise(t *testing.T) {
	dir := t.TempDir()
	path := testaudio.WriteMonoWAV(t, dir, "noise.wav", testaudio.Noise(0.5, 3*rate, 11), rate)

	result, err := Analyze(path, 10)
	require.NoError(t, err)
	assert.Equal(t, genre.Rock, result.Label)
	assert.Greater(t, result.Features.Rolloff, 7000.0)
}

func TestAnalyzeSilence(t *testing.T) {
	dir := t.TempDir()
	path := testaudio.WriteMonoWAV(t, dir, "silence.wav", make([]float64, 2*rate), rate)

	result, err := NewDefault().Analyze(path, 10)
	require.NoError(t, err)
	assert.True(t, result.Label.Valid())
	assert.True(t, result.Features.IsFinite())
	assert.NotNil(t, result.Image)
}

func TestAnalyzeFailuresReturnNoResult(t *testing.T) {
	dir := t.TempDir()
	corrupt := testaudio.WriteFile(t, dir, "corrupt.flac", []byte("nope"))
	empty := testaudio.WriteMonoWAV(t, dir, "empty.wav", nil, rate)

	tests := []struct {
		name string
		path string
		want error
	}{
		// never opened, so a missing .txt still reports the format
		{name: "txt", path: filepath.Join(dir, "does-not-exist.txt"), want: apperr.ErrUnsupportedFormat},
		{name: "corrupt", path: corrupt, want: apperr.ErrDecode},
		{name: "empty", path: empty, want: apperr.ErrEmptySignal},
	}

	a := NewDefault()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := a.Analyze(tt.path, 10)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, result)
		})
	}
}

func TestPoolRunsJobs(t *testing.T) {
	dir := t.TempDir()
	path := testaudio.WriteMonoWAV(t, dir, "tone.wav", testaudio.Sine(600, 0.5, rate, rate), rate)

	pool := NewPool(NewDefault(), 2, 4)
	pool.Start()
	defer pool.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	good, err := pool.Submit(ctx, NewJob(path, 10))
	require.NoError(t, err)
	bad, err := pool.Submit(ctx, Job{Path: filepath.Join(dir, "x.txt")})
	require.NoError(t, err)
	assert.NotEmpty(t, bad.ID)

	result, err := good.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, genre.Classical, result.Label)

	result, err = bad.Wait(ctx)
	assert.ErrorIs(t, err, apperr.ErrUnsupportedFormat)
	assert.Nil(t, result)

	select {
	case <-good.Done():
	default:
		t.Fatal("Done should be closed after Wait returns")
	}
}

func TestPoolQueueFull(t *testing.T) {
	pool := NewPool(NewDefault(), 1, 1)
	ctx := context.Background()

	// Not started, so the single slot stays occupied
	first, err := pool.Submit(ctx, NewJob("a.txt", 10))
	require.NoError(t, err)

	_, err = pool.Submit(ctx, NewJob("b.txt", 10))
	assert.ErrorIs(t, err, ErrQueueFull)

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = first.Wait(waitCtx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	pool.Start()
	_, err = first.Wait(ctx)
	assert.ErrorIs(t, err, apperr.ErrUnsupportedFormat)
	pool.Stop()
}

func TestPoolStop(t *testing.T) {
	pool := NewPool(nil, 1, 2)
	ctx := context.Background()

	queued, err := pool.Submit(ctx, NewJob("a.wav", 10))
	require.NoError(t, err)

	pool.Stop()
	pool.Stop()

	_, err = queued.Wait(ctx)
	assert.ErrorIs(t, err, ErrPoolStopped)

	_, err = pool.Submit(ctx, NewJob("b.wav", 10))
	assert.ErrorIs(t, err, ErrPoolStopped)
}

func TestSubmitHonorsCanceledContext(t *testing.T) {
	pool := NewPool(nil, 1, 1)
	defer pool.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pool.Submit(ctx, NewJob("a.wav", 10))
	assert.ErrorIs(t, err, context.Canceled)
}
