package event

import (
	"fmt"
	"strings"
	"time"
)

// Accepted timestamp layouts after normalization. The reservation system
// emits ISO-8601 with or without a zone designator.
var timestampLayouts = []string{
	"2006-01-02T15:04:05.999999Z07:00",
	"2006-01-02T15:04:05.999999",
}

// ParseTimestamp parses an ISO-8601 timestamp as emitted by the reservation
// system. Fractional seconds of arbitrary precision are truncated (not
// rounded) to microseconds before parsing; a trailing Z and explicit offsets
// are both accepted, as is a zoneless timestamp, which is read as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	normalized := truncateFraction(s)

	var lastErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, normalized)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, &ValidationError{
		Reason: fmt.Sprintf("invalid timestamp format: %q", s),
		cause:  lastErr,
	}
}

// truncateFraction cuts fractional seconds down to six digits. The
// reservation system emits nanosecond precision in some events, which is
// more than we need and more than the comparison logic cares about.
func truncateFraction(s string) string {
	dot := strings.IndexByte(s, '.')
	if dot < 0 {
		return s
	}

	rest := s[dot+1:]
	end := len(rest)
	for i, r := range rest {
		if r < '0' || r > '9' {
			end = i
			break
		}
	}

	digits := rest[:end]
	if len(digits) > 6 {
		digits = digits[:6]
	}
	return s[:dot+1] + digits + rest[end:]
}
