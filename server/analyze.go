package server

import (
	"encoding/base64"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/RyanBlaney/sonido-genre/analyzer"
	"github.com/RyanBlaney/sonido-genre/apperr"
	"github.com/RyanBlaney/sonido-genre/features"
	"github.com/RyanBlaney/sonido-genre/genre"
	"github.com/RyanBlaney/sonido-genre/logging"
	"github.com/RyanBlaney/sonido-genre/render"
	"github.com/RyanBlaney/sonido-genre/transcode"
)

// AnalyzeResponse is the JSON body of a successful analysis
type AnalyzeResponse struct {
	ID             string          `json:"id"`
	Genre          genre.Label     `json:"genre"`
	Rule           string          `json:"rule"`
	SampleRate     int             `json:"sample_rate"`
	Features       features.Vector `json:"features"`
	ElapsedMS      int64           `json:"elapsed_ms"`
	SpectrogramPNG string          `json:"spectrogram_png"` // base64
}

// ErrorResponse is the JSON body of a failed request
type ErrorResponse struct {
	Status string      `json:"status"`
	Kind   apperr.Kind `json:"kind,omitempty"`
	Error  string      `json:"error"`
}

func (s *Server) analyze(c *gin.Context) {
	logger := s.logger.WithContext(c.Request.Context()).WithFields(logging.Fields{
		"function": "analyze",
	})

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			abortWithError(c, http.StatusRequestEntityTooLarge, "", "upload exceeds "+strconv.Itoa(s.cfg.Server.MaxUploadMB)+" MB")
			return
		}
		abortWithError(c, http.StatusBadRequest, "", "multipart field \"file\" is required")
		return
	}

	maxDuration := s.cfg.Analysis.MaxDuration
	if raw := c.DefaultPostForm("duration", c.Query("duration")); raw != "" {
		d, err := strconv.ParseFloat(raw, 64)
		if err != nil || d <= 0 {
			abortWithError(c, http.StatusBadRequest, "", "duration must be a positive number of seconds")
			return
		}
		maxDuration = d
	}

	// Reject by extension before anything touches disk
	if _, err := transcode.DetectFormat(fh.Filename); err != nil {
		respondAnalysisError(c, err)
		return
	}

	path, err := s.stageUpload(fh.Filename)
	if err != nil {
		logger.Error(err, "Failed to stage upload")
		abortWithError(c, http.StatusInternalServerError, "", "failed to store upload")
		return
	}
	if err := c.SaveUploadedFile(fh, path); err != nil {
		os.Remove(path)
		logger.Error(err, "Failed to stage upload")
		abortWithError(c, http.StatusInternalServerError, "", "failed to store upload")
		return
	}

	job := analyzer.NewJob(path, maxDuration)
	future, err := s.pool.Submit(c.Request.Context(), job)
	if err != nil {
		os.Remove(path)
		if errors.Is(err, analyzer.ErrQueueFull) {
			c.Header("Retry-After", "1")
		}
		abortWithError(c, http.StatusServiceUnavailable, "", err.Error())
		return
	}

	// The job may outlive this request; remove the file once it is done
	go func() {
		<-future.Done()
		os.Remove(path)
	}()

	result, err := future.Wait(c.Request.Context())
	if err != nil {
		if c.Request.Context().Err() != nil {
			logger.Warn("Client went away before analysis finished", logging.Fields{"job_id": job.ID})
			abortWithError(c, http.StatusServiceUnavailable, "", "request canceled")
			return
		}
		respondAnalysisError(c, err)
		return
	}

	png, err := render.EncodePNG(result.Image)
	if err != nil {
		respondAnalysisError(c, err)
		return
	}

	if strings.EqualFold(c.Query("format"), "png") {
		c.Header("X-Genre", string(result.Label))
		c.Header("X-Genre-Rule", result.Rule)
		c.Data(http.StatusOK, "image/png", png)
		return
	}

	c.JSON(http.StatusOK, AnalyzeResponse{
		ID:             job.ID,
		Genre:          result.Label,
		Rule:           result.Rule,
		SampleRate:     result.SampleRate,
		Features:       result.Features,
		ElapsedMS:      result.Elapsed.Milliseconds(),
		SpectrogramPNG: base64.StdEncoding.EncodeToString(png),
	})
}

// stageUpload reserves a temp path that keeps the upload's extension, which
// is what selects the decoder.
func (s *Server) stageUpload(filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	f, err := os.CreateTemp(s.uploadDir, "sonido-upload-*"+ext)
	if err != nil {
		return "", err
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

func respondAnalysisError(c *gin.Context, err error) {
	abortWithError(c, apperr.HTTPStatus(err), apperr.GetKind(err), err.Error())
}

func abortWithError(c *gin.Context, status int, kind apperr.Kind, msg string) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Status: "error",
		Kind:   kind,
		Error:  msg,
	})
}
