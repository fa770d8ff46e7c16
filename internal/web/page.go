// Package web renders the server-side tracker page.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strconv"

	"github.com/carbontrack/carbontrack/internal/environment"
	"github.com/carbontrack/carbontrack/internal/footprint"
	"github.com/carbontrack/carbontrack/internal/session"
)

// Title is the page heading.
const Title = "Real Time AQI ML Driven with API End Points and Carbon Footprint Tracker"

//go:embed templates/*.html.tmpl
var templateFS embed.FS

// PageData is everything the page template shows.
type PageData struct {
	Title         string
	City          string
	Activity      footprint.Activity
	Reduction     footprint.Reduction
	TotalDisplay  string
	OffsetDisplay string

	// Weather and AirQuality are nil until their fetch has succeeded.
	Weather    *WeatherView
	AirQuality *AirQualityView
}

// WeatherView is the weather block.
type WeatherView struct {
	Temperature string
	Humidity    string
	Description string
}

// AirQualityView is the AQI block, one line per pollutant in provider order.
type AirQualityView struct {
	Readings []ReadingView
}

// ReadingView is one pollutant line. Value is empty when the provider sent
// no usable number.
type ReadingView struct {
	Pollutant string
	Value     string
}

// NewPageData builds the page for a session and the current environment.
func NewPageData(sess *session.Session, env environment.Snapshot) PageData {
	data := PageData{
		Title:         Title,
		City:          env.City,
		Activity:      sess.Activity,
		Reduction:     sess.Reduction,
		TotalDisplay:  sess.Footprint.TotalDisplay(),
		OffsetDisplay: sess.Footprint.OffsetDisplay(),
	}

	if w := env.Weather; w != nil {
		data.Weather = &WeatherView{
			Temperature: formatNumber(w.Temperature),
			Humidity:    formatNumber(w.Humidity),
			Description: w.Description,
		}
	}

	if aq := env.AirQuality; aq != nil {
		view := &AirQualityView{Readings: make([]ReadingView, 0, len(aq.Readings))}
		for _, r := range aq.Readings {
			line := ReadingView{Pollutant: r.Pollutant}
			if r.Value != nil {
				line.Value = formatNumber(*r.Value)
			}
			view.Readings = append(view.Readings, line)
		}
		data.AirQuality = view
	}

	return data
}

// Renderer renders the tracker page.
type Renderer struct {
	page *template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	page, err := template.ParseFS(templateFS, "templates/page.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse page template: %w", err)
	}
	return &Renderer{page: page}, nil
}

// Render writes the page to w.
func (r *Renderer) Render(w io.Writer, data PageData) error {
	if err := r.page.Execute(w, data); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	return nil
}

// formatNumber prints the shortest text that reads back as v.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
