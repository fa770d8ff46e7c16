package models

// Environment is the weather and air quality data currently held. A nil
// section has not been fetched successfully.
type Environment struct {
	City       string      `json:"city"`
	Weather    *Weather    `json:"weather"`
	AirQuality *AirQuality `json:"airQuality"`
}

// Weather is the current weather observation.
type Weather struct {
	City        string     `json:"city"`
	Temperature float64    `json:"temperature"`
	Humidity    float64    `json:"humidity"`
	Condition   string     `json:"condition"`
	Description string     `json:"description"`
	ObservedAt  *Timestamp `json:"observedAt,omitempty"`
	FetchedAt   Timestamp  `json:"fetchedAt"`
}

// AirQuality is the current per-pollutant air quality.
type AirQuality struct {
	City       string             `json:"city"`
	Station    string             `json:"station,omitempty"`
	AQI        *float64           `json:"aqi"`
	Readings   []PollutantReading `json:"readings"`
	ObservedAt *Timestamp         `json:"observedAt,omitempty"`
	FetchedAt  Timestamp          `json:"fetchedAt"`
}

// PollutantReading is one pollutant value in provider order.
type PollutantReading struct {
	Pollutant string   `json:"pollutant"`
	Value     *float64 `json:"value"`
}

// FetchStatus is the outcome of one fetch in a refresh.
type FetchStatus struct {
	Status  HealthStatus `json:"status"`
	Message *string      `json:"message,omitempty"`
}

// EnvironmentRefresh is returned by a manual refresh.
type EnvironmentRefresh struct {
	Weather     FetchStatus `json:"weather"`
	AirQuality  FetchStatus `json:"airQuality"`
	Environment Environment `json:"environment"`
}
