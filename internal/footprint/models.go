// Package footprint provides the carbon footprint calculator and the
// reduction ledger. All state types are values; every operation returns a
// new value and leaves its receiver untouched.
package footprint

import (
	"errors"
	"math"
	"strconv"
)

// Footprint errors.
var (
	ErrUnknownFlag     = errors.New("unknown activity flag")
	ErrUnknownQuantity = errors.New("unknown activity quantity")
)

// Flag names a boolean activity.
type Flag string

const (
	FlagCar  Flag = "car"
	FlagAC   Flag = "ac"
	FlagBike Flag = "bike"
)

// Flags lists every activity flag in display order.
var Flags = []Flag{FlagCar, FlagAC, FlagBike}

// Quantity names a numeric activity.
type Quantity string

const (
	QuantityElectricity Quantity = "electricity" // kWh/day
	QuantityMeat        Quantity = "meat"        // kg/day
)

// Quantities lists every activity quantity in display order.
var Quantities = []Quantity{QuantityElectricity, QuantityMeat}

// Emission factors in kgCO2.
const (
	CarEmission         = 2.0
	ACEmission          = 5.8
	BikeEmission        = 0.33
	ElectricityFactor   = 15.0
	MeatFactor          = 15.0
	InitialOffsetFactor = 0.5
)

// Reduction factors in kgCO2.
const (
	TreeReduction      = 0.058
	EarthHourReduction = 1.6
	LEDReduction       = 0.5
)

// Activity holds the user-reported daily habits.
//
// Electricity and Meat keep the raw text the input control produced; they are
// only coerced to numbers when the footprint is calculated.
type Activity struct {
	Car         bool
	AC          bool
	Bike        bool
	Electricity string
	Meat        string
}

// Reduction holds the user-reported mitigation actions.
type Reduction struct {
	Trees     int
	EarthHour int
	LEDLights bool
}

// State is the current footprint estimate.
type State struct {
	Total  float64
	Offset float64
}

// TotalDisplay formats the total to two decimals.
func (s State) TotalDisplay() string {
	return formatKg(s.Total)
}

// OffsetDisplay formats the offset to two decimals.
func (s State) OffsetDisplay() string {
	return formatKg(s.Offset)
}

func formatKg(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// ParseFlag validates a flag name.
func ParseFlag(name string) (Flag, error) {
	for _, f := range Flags {
		if string(f) == name {
			return f, nil
		}
	}
	return "", ErrUnknownFlag
}

// ParseQuantity validates a quantity name.
func ParseQuantity(name string) (Quantity, error) {
	for _, q := range Quantities {
		if string(q) == name {
			return q, nil
		}
	}
	return "", ErrUnknownQuantity
}
