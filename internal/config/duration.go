package config

import (
	"fmt"
	"time"
)

// Duration is a custom time.Duration type that provides improved marshaling.
// It is decoded from TOML strings such as "30m" or "1h30m".
type Duration time.Duration

// MarshalText implements encoding.TextMarshaler for Duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// String returns a human-readable string representation of the duration,
// using the largest unit that represents it exactly.
func (d Duration) String() string {
	duration := time.Duration(d)
	if duration == 0 {
		return "0s"
	}

	// List of duration units in descending order.
	units := []struct {
		unit   time.Duration
		suffix string
	}{
		{time.Hour, "h"},
		{time.Minute, "m"},
		{time.Second, "s"},
		{time.Millisecond, "ms"},
		{time.Microsecond, "µs"},
		{time.Nanosecond, "ns"},
	}

	for _, u := range units {
		if duration%u.unit == 0 {
			return fmt.Sprintf("%d%s", duration/u.unit, u.suffix)
		}
	}

	// Fallback to nanoseconds if no exact match.
	return fmt.Sprintf("%dns", duration)
}

// UnmarshalText implements encoding.TextUnmarshaler for Duration.
func (d *Duration) UnmarshalText(text []byte) error {
	duration, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(duration)
	return nil
}

// Std returns the duration as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}
