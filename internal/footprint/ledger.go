package footprint

import "math"

// SetTreeCount returns a copy of r with the tree count parsed from raw.
func (r Reduction) SetTreeCount(raw string) Reduction {
	r.Trees = ParseCount(raw)
	return r
}

// SetEarthHours returns a copy of r with the Earth Hour count parsed from raw.
func (r Reduction) SetEarthHours(raw string) Reduction {
	r.EarthHour = ParseCount(raw)
	return r
}

// ToggleLED returns a copy of r with the LED flag flipped.
func (r Reduction) ToggleLED() Reduction {
	r.LEDLights = !r.LEDLights
	return r
}

// Amount returns the kgCO2 mitigated by the reported actions. The LED bonus
// is flat.
func (r Reduction) Amount() float64 {
	amount := float64(r.Trees)*TreeReduction + float64(r.EarthHour)*EarthHourReduction
	if r.LEDLights {
		amount += LEDReduction
	}
	return amount
}

// ApplyReduction subtracts the reduction amount from the offset, never going
// below zero. The total is left as is.
func ApplyReduction(s State, r Reduction) State {
	s.Offset = math.Max(0, s.Offset-r.Amount())
	return s
}
