package dynamic

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ValidateSize checks a requested count against the exclusive lower bound of
// zero and the inclusive upper bound.
func ValidateSize(n, upper int64) (int64, error) {
	if n <= 0 {
		return 0, ErrSizeTooSmall
	}
	if n > upper {
		return 0, fmt.Errorf("%w: %d > %d", ErrSizeTooLarge, n, upper)
	}
	return n, nil
}

// ParseSize parses a count taken from a URL path segment and validates it.
func ParseSize(raw string, upper int64) (int64, error) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			if strings.HasPrefix(raw, "-") {
				return 0, ErrSizeTooSmall
			}
			return 0, fmt.Errorf("%w: %s", ErrSizeTooLarge, raw)
		}
		return 0, fmt.Errorf("%w: %q", ErrMalformedSize, raw)
	}
	return ValidateSize(n, upper)
}

// ParseDelay parses and validates the seconds segment of /delay/{seconds}.
func ParseDelay(raw string, maxSeconds int) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) && !strings.HasPrefix(raw, "-") {
			return 0, fmt.Errorf("%w: %s", ErrDelayTooLong, raw)
		}
		return 0, fmt.Errorf("%w: %q", ErrInvalidDelay, raw)
	}
	return ValidateDelay(n, maxSeconds)
}

// ValidateDelay rejects delays above the ceiling. It must run before any
// suspension happens.
func ValidateDelay(seconds, maxSeconds int) (int, error) {
	if seconds < 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidDelay, seconds)
	}
	if seconds > maxSeconds {
		return 0, fmt.Errorf("%w: %d > %d", ErrDelayTooLong, seconds, maxSeconds)
	}
	return seconds, nil
}
