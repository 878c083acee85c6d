package dynamic

import (
	"errors"
	"net/http"
)

// Input validation errors. These are always answered with 400 and never
// retried.
var (
	ErrMalformedSize = errors.New("size is not an integer")
	ErrSizeTooSmall  = errors.New("size must be positive")
	ErrSizeTooLarge  = errors.New("size exceeds ceiling")
	ErrInvalidBase64 = errors.New("value is not valid base64")
	ErrInvalidDelay  = errors.New("delay must be a non-negative integer")
	ErrDelayTooLong  = errors.New("delay exceeds ceiling")
	ErrBodyTooLarge  = errors.New("request body exceeds limit")
)

// ErrInterrupted is returned when a delay is cancelled before it elapses.
var ErrInterrupted = errors.New("delay interrupted")

// Labels used in the error field of an ErrorEnvelope
const (
	LabelInvalidSize   = "Invalid size"
	LabelSizeTooLarge  = "Size too large"
	LabelInvalidBase64 = "Invalid Base64"
	LabelInvalidDelay  = "Invalid delay"
	LabelDelayTooLong  = "Delay too long"
	LabelBodyTooLarge  = "Body too large"
	LabelInterrupted   = "Interrupted"
	LabelInternal      = "Internal Server Error"
)

// errorStatus maps an error returned by this package to an HTTP status and
// the short label written to the client.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ErrMalformedSize), errors.Is(err, ErrSizeTooSmall):
		return http.StatusBadRequest, LabelInvalidSize
	case errors.Is(err, ErrSizeTooLarge):
		return http.StatusBadRequest, LabelSizeTooLarge
	case errors.Is(err, ErrInvalidBase64):
		return http.StatusBadRequest, LabelInvalidBase64
	case errors.Is(err, ErrInvalidDelay):
		return http.StatusBadRequest, LabelInvalidDelay
	case errors.Is(err, ErrDelayTooLong):
		return http.StatusBadRequest, LabelDelayTooLong
	case errors.Is(err, ErrBodyTooLarge):
		return http.StatusRequestEntityTooLarge, LabelBodyTooLarge
	case errors.Is(err, ErrInterrupted):
		return http.StatusInternalServerError, LabelInterrupted
	default:
		return http.StatusInternalServerError, LabelInternal
	}
}
