package footprint

// ToggleFlag returns a copy of a with the named flag flipped.
func (a Activity) ToggleFlag(f Flag) (Activity, error) {
	switch f {
	case FlagCar:
		a.Car = !a.Car
	case FlagAC:
		a.AC = !a.AC
	case FlagBike:
		a.Bike = !a.Bike
	default:
		return a, ErrUnknownFlag
	}
	return a, nil
}

// FlagValue reports whether the named flag is set.
func (a Activity) FlagValue(f Flag) bool {
	switch f {
	case FlagCar:
		return a.Car
	case FlagAC:
		return a.AC
	case FlagBike:
		return a.Bike
	default:
		return false
	}
}

// SetQuantity returns a copy of a with the raw value stored for q. The value
// is kept exactly as entered.
func (a Activity) SetQuantity(q Quantity, raw string) (Activity, error) {
	switch q {
	case QuantityElectricity:
		a.Electricity = raw
	case QuantityMeat:
		a.Meat = raw
	default:
		return a, ErrUnknownQuantity
	}
	return a, nil
}

// QuantityValue returns the raw value stored for q.
func (a Activity) QuantityValue(q Quantity) string {
	switch q {
	case QuantityElectricity:
		return a.Electricity
	case QuantityMeat:
		return a.Meat
	default:
		return ""
	}
}

// Emissions returns the daily kgCO2 for the reported activities. Non-numeric
// quantities make the result NaN.
func (a Activity) Emissions() float64 {
	var total float64
	if a.Car {
		total += CarEmission
	}
	if a.AC {
		total += ACEmission
	}
	if a.Bike {
		total += BikeEmission
	}
	total += Coerce(a.Electricity) * ElectricityFactor
	total += Coerce(a.Meat) * MeatFactor
	return total
}

// Calculate recomputes the footprint from a. The offset restarts at half the
// total, floored at zero for negative quantities; earlier reductions are
// discarded. NaN passes through the floor.
func Calculate(a Activity) State {
	total := a.Emissions()
	return State{
		Total:  total,
		Offset: max(0, total*InitialOffsetFactor),
	}
}
