package dynamic

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ParleSec/MirrorBin/internal/lookingglass"
	"github.com/ParleSec/MirrorBin/pkg/models"
	"github.com/go-chi/chi/v5"
)

func (p *Plugin) handleUUID(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.UUIDResponse{UUID: NewID()})
}

func (p *Plugin) handleBase64(w http.ResponseWriter, r *http.Request) {
	// The standard alphabet contains '/', so the value is a wildcard segment.
	raw := chi.URLParam(r, "*")
	token, err := url.PathUnescape(raw)
	if err != nil {
		token = raw
	}

	decoded, err := DecodeBase64(token)
	if err != nil {
		p.reject(w, r, err, "The provided value is not valid Base64")
		return
	}
	lookingglass.Annotate(r.Context(), "decoded_bytes", len(decoded))
	writeJSON(w, http.StatusOK, models.Base64Response{Decoded: decoded})
}

func (p *Plugin) handleDelay(w http.ResponseWriter, r *http.Request) {
	seconds, err := ParseDelay(chi.URLParam(r, "seconds"), p.delay.MaxSeconds())
	if err != nil {
		p.reject(w, r, err, delayMessage(err, p.delay.MaxSeconds()))
		return
	}

	lookingglass.Annotate(r.Context(), "delay_seconds", seconds)
	result, err := p.delay.Serve(r.Context(), r, seconds)
	if err != nil {
		p.reject(w, r, err, delayMessage(err, p.delay.MaxSeconds()))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (p *Plugin) handleBytes(w http.ResponseWriter, r *http.Request) {
	n, err := ParseSize(chi.URLParam(r, "n"), p.limits.MaxBytes)
	if err != nil {
		p.reject(w, r, err, sizeMessage(err, "bytes", p.limits.MaxBytes))
		return
	}

	data, err := p.generator.Bytes(int(n))
	if err != nil {
		p.reject(w, r, err, "Unable to generate random bytes")
		return
	}
	p.metrics.AddGenerated("bytes", len(data))
	lookingglass.Annotate(r.Context(), "generated_bytes", len(data))
	writeBody(w, "application/octet-stream", data)
}

func (p *Plugin) handleChars(w http.ResponseWriter, r *http.Request) {
	n, err := ParseSize(chi.URLParam(r, "n"), p.limits.MaxChars)
	if err != nil {
		p.reject(w, r, err, sizeMessage(err, "characters", p.limits.MaxChars))
		return
	}

	data, err := p.generator.Chars(int(n))
	if err != nil {
		p.reject(w, r, err, "Unable to generate random characters")
		return
	}
	p.metrics.AddGenerated("chars", len(data))
	lookingglass.Annotate(r.Context(), "generated_chars", len(data))
	writeBody(w, "text/plain; charset=utf-8", data)
}

// reject logs err and answers with the matching status and error envelope.
func (p *Plugin) reject(w http.ResponseWriter, r *http.Request, err error, message string) {
	status, label := errorStatus(err)
	lookingglass.Annotate(r.Context(), "rejected", label)
	logger := p.Logger().With("method", r.Method, "path", r.URL.Path, "error", err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status)
	} else {
		logger.Debug("request rejected", "status", status)
	}
	writeError(w, status, label, message)
}

func sizeMessage(err error, unit string, upper int64) string {
	if errors.Is(err, ErrSizeTooLarge) {
		return fmt.Sprintf("Maximum size is %d %s", upper, unit)
	}
	return fmt.Sprintf("Number of %s must be a positive integer", unit)
}

func delayMessage(err error, maxSeconds int) string {
	switch {
	case errors.Is(err, ErrDelayTooLong):
		return fmt.Sprintf("Maximum delay is %d seconds", maxSeconds)
	case errors.Is(err, ErrInvalidDelay):
		return "Delay must be a non-negative whole number of seconds"
	case errors.Is(err, ErrBodyTooLarge):
		return "Request body is too large to echo"
	case errors.Is(err, ErrInterrupted):
		return "Request was interrupted"
	default:
		return "Unable to echo the request"
	}
}

// Helper functions
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, label, message string) {
	writeJSON(w, status, models.ErrorEnvelope{Error: label, Message: message})
}

func writeBody(w http.ResponseWriter, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
