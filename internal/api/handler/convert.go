package handler

import (
	"math"
	"time"

	"github.com/carbontrack/carbontrack/internal/airquality"
	"github.com/carbontrack/carbontrack/internal/api/models"
	"github.com/carbontrack/carbontrack/internal/environment"
	"github.com/carbontrack/carbontrack/internal/session"
	"github.com/carbontrack/carbontrack/internal/weather"
)

func toSessionModel(sess *session.Session) models.Session {
	return models.Session{
		ID: sess.ID,
		Activity: models.Activity{
			Car:         sess.Activity.Car,
			AC:          sess.Activity.AC,
			Bike:        sess.Activity.Bike,
			Electricity: sess.Activity.Electricity,
			Meat:        sess.Activity.Meat,
		},
		Reduction: models.Reduction{
			Trees:     sess.Reduction.Trees,
			EarthHour: sess.Reduction.EarthHour,
			LEDLights: sess.Reduction.LEDLights,
		},
		Footprint: models.Footprint{
			Total:         jsonNumber(sess.Footprint.Total),
			Offset:        jsonNumber(sess.Footprint.Offset),
			TotalDisplay:  sess.Footprint.TotalDisplay(),
			OffsetDisplay: sess.Footprint.OffsetDisplay(),
		},
		CreatedAt: models.Timestamp(sess.CreatedAt),
		UpdatedAt: models.Timestamp(sess.UpdatedAt),
		ExpiresAt: models.Timestamp(sess.ExpiresAt),
	}
}

func toEnvironmentModel(snap environment.Snapshot) models.Environment {
	return models.Environment{
		City:       snap.City,
		Weather:    toWeatherModel(snap.Weather),
		AirQuality: toAirQualityModel(snap.AirQuality),
	}
}

func toWeatherModel(obs *weather.Observation) *models.Weather {
	if obs == nil {
		return nil
	}
	return &models.Weather{
		City:        obs.City,
		Temperature: obs.Temperature,
		Humidity:    obs.Humidity,
		Condition:   string(obs.Condition),
		Description: obs.Description,
		ObservedAt:  optionalTimestamp(obs.ObservedAt),
		FetchedAt:   models.Timestamp(obs.FetchedAt),
	}
}

func toAirQualityModel(snap *airquality.AQSnapshot) *models.AirQuality {
	if snap == nil {
		return nil
	}

	readings := make([]models.PollutantReading, 0, len(snap.Readings))
	for _, r := range snap.Readings {
		readings = append(readings, models.PollutantReading{
			Pollutant: r.Pollutant,
			Value:     r.Value,
		})
	}

	return &models.AirQuality{
		City:       snap.City,
		Station:    snap.StationName,
		AQI:        snap.AQI,
		Readings:   readings,
		ObservedAt: optionalTimestamp(snap.ObservedAt),
		FetchedAt:  models.Timestamp(snap.FetchedAt),
	}
}

func toFetchStatus(err error) models.FetchStatus {
	if err == nil {
		return models.FetchStatus{Status: models.HealthStatusOK}
	}
	msg := err.Error()
	return models.FetchStatus{Status: models.HealthStatusFail, Message: &msg}
}

// jsonNumber returns nil for values JSON cannot carry.
func jsonNumber(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func optionalTimestamp(t time.Time) *models.Timestamp {
	if t.IsZero() {
		return nil
	}
	ts := models.Timestamp(t)
	return &ts
}
