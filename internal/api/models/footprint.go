package models

// Activity is the reported daily activity of a session.
type Activity struct {
	Car         bool   `json:"car"`
	AC          bool   `json:"ac"`
	Bike        bool   `json:"bike"`
	Electricity string `json:"electricity"`
	Meat        string `json:"meat"`
}

// Reduction is the reported mitigation of a session.
type Reduction struct {
	Trees     int  `json:"trees"`
	EarthHour int  `json:"earthHour"`
	LEDLights bool `json:"ledLights"`
}

// Footprint is the current estimate in kgCO2. Total and Offset are null when
// the estimate is not a number; the display strings always carry a value.
type Footprint struct {
	Total         *float64 `json:"total"`
	Offset        *float64 `json:"offset"`
	TotalDisplay  string   `json:"totalDisplay"`
	OffsetDisplay string   `json:"offsetDisplay"`
}

// Session is a tracker session.
type Session struct {
	ID        string    `json:"id"`
	Activity  Activity  `json:"activity"`
	Reduction Reduction `json:"reduction"`
	Footprint Footprint `json:"footprint"`
	CreatedAt Timestamp `json:"createdAt"`
	UpdatedAt Timestamp `json:"updatedAt"`
	ExpiresAt Timestamp `json:"expiresAt"`
}

// SessionCreated is returned when a session is started.
type SessionCreated struct {
	Session   Session `json:"session"`
	Token     string  `json:"token"`
	TokenType string  `json:"tokenType"`
}

// ToggleFlagRequest names the activity flag to flip.
type ToggleFlagRequest struct {
	Flag string `json:"flag"`
}

// ValueRequest carries a single raw input value.
type ValueRequest struct {
	Value RawValue `json:"value"`
}
