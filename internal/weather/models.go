// Package weather provides the current weather reading for the tracked city.
package weather

import (
	"errors"
	"time"
)

var (
	ErrProviderUnavailable = errors.New("weather provider unavailable")
	ErrMalformedResponse   = errors.New("malformed weather response")
	ErrNoObservation       = errors.New("no weather observation yet")
)

// Observation is the weather for a city at one point in time. Temperature is
// in degrees Celsius and Humidity in percent.
type Observation struct {
	City        string
	Temperature float64
	Humidity    float64
	Condition   Condition
	Description string
	ObservedAt  time.Time
	FetchedAt   time.Time
}

// Condition is the broad weather group reported alongside the description.
type Condition string

const (
	ConditionThunderstorm Condition = "THUNDERSTORM"
	ConditionDrizzle      Condition = "DRIZZLE"
	ConditionRain         Condition = "RAIN"
	ConditionSnow         Condition = "SNOW"
	ConditionAtmosphere   Condition = "ATMOSPHERE"
	ConditionClear        Condition = "CLEAR"
	ConditionClouds       Condition = "CLOUDS"
	ConditionUnknown      Condition = "UNKNOWN"
)

// ConditionForCode groups a numeric weather condition code: 2xx storms,
// 3xx drizzle, 5xx rain, 6xx snow, 7xx haze or fog, 800 clear, 80x clouds.
func ConditionForCode(code int) Condition {
	switch {
	case code == 800:
		return ConditionClear
	case code > 800 && code < 900:
		return ConditionClouds
	}
	switch code / 100 {
	case 2:
		return ConditionThunderstorm
	case 3:
		return ConditionDrizzle
	case 5:
		return ConditionRain
	case 6:
		return ConditionSnow
	case 7:
		return ConditionAtmosphere
	default:
		return ConditionUnknown
	}
}
