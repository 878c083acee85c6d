package dynamic

import (
	"encoding/base64"
	"strings"

	"github.com/google/uuid"
)

// DecodeBase64 decodes a token in the standard, padded base64 alphabet.
// Empty or malformed input yields ErrInvalidBase64 and no partial output.
func DecodeBase64(token string) (string, error) {
	if token == "" {
		return "", ErrInvalidBase64
	}
	decoded, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", ErrInvalidBase64
	}
	return string(decoded), nil
}

// NewID returns a random (version 4) UUID in canonical lowercase form.
func NewID() string {
	return uuid.NewString()
}

// LooksLikeJSON is a best-effort syntax sniff: it reports whether the body,
// ignoring surrounding whitespace, opens like a JSON object or array. It does
// not validate the document.
func LooksLikeJSON(body string) bool {
	trimmed := strings.TrimSpace(body)
	return strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")
}
