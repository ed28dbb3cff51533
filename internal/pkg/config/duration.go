package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Duration is a time.Duration that marshals to the human-readable string
// format (e.g. "1m30s") so it reads naturally in YAML config files.
type Duration time.Duration

// ParseDuration parses the human-readable string format into a Duration.
func ParseDuration(value string) (Duration, error) {
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}

	return Duration(parsed), nil
}

// String returns the human-readable form of the duration.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalJSON implements the json.Marshaler interface.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON implements the json.Unmarshaler interface. Both the numeric
// (nanoseconds) and string forms are accepted.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case nil:
		*d = 0
		return nil
	case float64:
		*d = Duration(value)
		return nil
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(parsed)
		return nil
	default:
		return fmt.Errorf("invalid duration: unsupported type %T", value)
	}
}
