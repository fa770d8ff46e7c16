// Package models provides request and response models for the CarbonTrack API.
package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"
)

// HealthStatus grades a probe, a subsystem or a provider.
type HealthStatus string

const (
	HealthStatusOK       HealthStatus = "OK"
	HealthStatusDegraded HealthStatus = "DEGRADED"
	HealthStatusFail     HealthStatus = "FAIL"
)

// Timestamp is a time encoded as RFC 3339 in UTC, to the second.
type Timestamp time.Time

func (t Timestamp) MarshalJSON() ([]byte, error) {
	b := make([]byte, 0, len(time.RFC3339)+2)
	b = append(b, '"')
	b = time.Time(t).UTC().AppendFormat(b, time.RFC3339)
	return append(b, '"'), nil
}

// UnmarshalJSON accepts any RFC 3339 string. A JSON null leaves t unchanged.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var parsed time.Time
	if err := parsed.UnmarshalJSON(data); err != nil {
		return err
	}
	*t = Timestamp(parsed)
	return nil
}

func (t Timestamp) Time() time.Time {
	return time.Time(t)
}

// ErrInvalidRawValue is returned when a value is neither a string nor a number.
var ErrInvalidRawValue = errors.New("value must be a string or a number")

// RawValue is an input value sent either as a JSON string or a JSON number.
// Numbers keep their literal text so "2.50" and 2.50 store the same thing.
type RawValue string

// UnmarshalJSON implements json.Unmarshaler for RawValue.
func (v *RawValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*v = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = RawValue(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return ErrInvalidRawValue
		}
		*v = RawValue(n.String())
		return nil
	}
}
