// Package apperr defines the failure taxonomy reported by an analysis request.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies a class of analysis failure
type Kind string

const (
	KindDecode            Kind = "DECODE_ERROR"
	KindUnsupportedFormat Kind = "UNSUPPORTED_FORMAT"
	KindEmptySignal       Kind = "EMPTY_SIGNAL"
	KindRender            Kind = "RENDER_ERROR"
)

// Sentinels for errors.Is. Any *Error of the same kind matches.
var (
	ErrDecode            = &Error{Kind: KindDecode, Message: "audio could not be decoded"}
	ErrUnsupportedFormat = &Error{Kind: KindUnsupportedFormat, Message: "unsupported audio format"}
	ErrEmptySignal       = &Error{Kind: KindEmptySignal, Message: "decoded signal is empty"}
	ErrRender            = &Error{Kind: KindRender, Message: "spectrogram rendering failed"}
)

// Error is a tagged analysis failure carrying a human-readable message
type Error struct {
	Kind    Kind           `json:"kind"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Cause   error          `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// WithDetail adds a detail to the error
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates an error of the given kind
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an error of the given kind around cause
func Wrap(cause error, kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Decode reports a file that could not be read or parsed as audio
func Decode(path string, cause error) *Error {
	return Wrap(cause, KindDecode, fmt.Sprintf("failed to decode %q", path)).
		WithDetail("path", path)
}

// UnsupportedFormat reports a file whose extension is not an accepted audio format
func UnsupportedFormat(path, ext string) *Error {
	if ext == "" {
		ext = "(none)"
	}
	return New(KindUnsupportedFormat, fmt.Sprintf("unsupported audio format %s for %q", ext, path)).
		WithDetail("path", path).
		WithDetail("extension", ext)
}

// EmptySignal reports a file that decoded to zero samples
func EmptySignal(path string) *Error {
	return New(KindEmptySignal, fmt.Sprintf("no audio samples decoded from %q", path)).
		WithDetail("path", path)
}

// Render reports a spectrogram that could not be produced
func Render(reason string) *Error {
	return New(KindRender, reason)
}

// GetKind extracts the kind from an error chain, or "" when err is not an *Error
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// HTTPStatus maps an error chain to a response status for the HTTP surface
func HTTPStatus(err error) int {
	switch GetKind(err) {
	case KindUnsupportedFormat:
		return http.StatusUnsupportedMediaType
	case KindDecode, KindEmptySignal:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
