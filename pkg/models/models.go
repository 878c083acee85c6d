package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ErrorEnvelope is the body of every 4xx/5xx response
type ErrorEnvelope struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// UUIDResponse is returned by /uuid
type UUIDResponse struct {
	UUID string `json:"uuid"`
}

// Base64Response is returned by /base64/{value}
type Base64Response struct {
	Decoded string `json:"decoded"`
}

// ArgValue holds the value(s) of one query parameter. A parameter seen once
// is a scalar; a parameter seen two or more times is a sequence in the order
// the transport delivered it.
type ArgValue struct {
	values []string
}

// Scalar returns a single-valued argument
func Scalar(v string) ArgValue {
	return ArgValue{values: []string{v}}
}

// Sequence returns a multi-valued argument. Passing a single value still
// yields a scalar so the one-occurrence rule cannot be bypassed.
func Sequence(vs ...string) ArgValue {
	copied := make([]string, len(vs))
	copy(copied, vs)
	return ArgValue{values: copied}
}

// IsSequence reports whether the argument had more than one occurrence
func (a ArgValue) IsSequence() bool {
	return len(a.values) > 1
}

// String returns the scalar value, or the first value of a sequence
func (a ArgValue) String() string {
	if len(a.values) == 0 {
		return ""
	}
	return a.values[0]
}

// Values returns a copy of every value in transport order
func (a ArgValue) Values() []string {
	out := make([]string, len(a.values))
	copy(out, a.values)
	return out
}

// MarshalJSON encodes a scalar as a JSON string and a sequence as an array
func (a ArgValue) MarshalJSON() ([]byte, error) {
	if a.IsSequence() {
		return json.Marshal(a.values)
	}
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts either a JSON string or an array of strings
func (a *ArgValue) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var vs []string
		if err := json.Unmarshal(trimmed, &vs); err != nil {
			return fmt.Errorf("decode arg sequence: %w", err)
		}
		a.values = vs
		return nil
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return fmt.Errorf("decode arg scalar: %w", err)
	}
	a.values = []string{s}
	return nil
}

// RequestSnapshot describes what the server observed about an inbound request
type RequestSnapshot struct {
	Args    map[string]ArgValue `json:"args"`
	Headers map[string]string   `json:"headers"`
	Origin  string              `json:"origin"`
	URL     string              `json:"url"`
}

// DelayEchoResult is the body returned by /delay/{seconds}
type DelayEchoResult struct {
	RequestSnapshot
	Method string  `json:"method"`
	Data   *string `json:"data,omitempty"` // Raw request body (POST/PUT only)
	JSON   *string `json:"json,omitempty"` // Same text as Data when it looks like JSON
}
