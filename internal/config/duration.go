package config

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// durationTerm matches one "<number><unit>" term, e.g. "600ms", "1.5 s", "2 minutes".
var durationTerm = regexp.MustCompile(`^([0-9]+(?:\.[0-9]+)?)\s*([a-zµμ]*)\s*`)

// unitScale maps accepted unit spellings to their duration.
var unitScale = map[string]time.Duration{
	"ns": time.Nanosecond, "nsec": time.Nanosecond, "nanosecond": time.Nanosecond, "nanoseconds": time.Nanosecond,
	"us": time.Microsecond, "µs": time.Microsecond, "μs": time.Microsecond, "usec": time.Microsecond,
	"microsecond": time.Microsecond, "microseconds": time.Microsecond,
	"ms": time.Millisecond, "msec": time.Millisecond, "msecs": time.Millisecond,
	"millisecond": time.Millisecond, "milliseconds": time.Millisecond,
	"": time.Second, "s": time.Second, "sec": time.Second, "secs": time.Second,
	"second": time.Second, "seconds": time.Second,
	"m": time.Minute, "min": time.Minute, "mins": time.Minute, "minute": time.Minute, "minutes": time.Minute,
	"h": time.Hour, "hr": time.Hour, "hrs": time.Hour, "hour": time.Hour, "hours": time.Hour,
	"d": 24 * time.Hour, "day": 24 * time.Hour, "days": 24 * time.Hour,
}

// ParseDebounce parses a human-readable duration such as "600ms", "2s",
// "1m30s" or "1 min 30 sec". A bare number is read as seconds.
// Terms are summed. Malformed or negative input is a *ConfigError.
func ParseDebounce(s string) (time.Duration, error) {
	input := strings.ToLower(strings.TrimSpace(s))
	if input == "" {
		return 0, &ConfigError{Type: InvalidDuration, Message: "empty duration"}
	}
	if strings.HasPrefix(input, "-") {
		return 0, &ConfigError{Type: InvalidDuration, Message: "duration must not be negative: " + s}
	}
	input = strings.TrimPrefix(input, "+")

	var total time.Duration
	for input != "" {
		m := durationTerm.FindStringSubmatch(input)
		if m == nil {
			return 0, &ConfigError{Type: InvalidDuration, Message: "cannot parse " + strconv.Quote(s)}
		}
		scale, ok := unitScale[m[2]]
		if !ok {
			return 0, &ConfigError{Type: InvalidDuration, Message: "unknown unit " + strconv.Quote(m[2]) + " in " + strconv.Quote(s)}
		}
		value, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, &ConfigError{Type: InvalidDuration, Message: err.Error()}
		}
		scaled := value * float64(scale)
		if scaled >= math.MaxInt64 {
			return 0, &ConfigError{Type: InvalidDuration, Message: "duration out of range: " + s}
		}
		term := time.Duration(scaled)
		if total+term < total {
			return 0, &ConfigError{Type: InvalidDuration, Message: "duration out of range: " + s}
		}
		total += term
		input = input[len(m[0]):]
	}

	return total, nil
}
