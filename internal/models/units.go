package models

// Unit tags carried alongside raw provider values. The conversion functions
// are pure and total: an unrecognized tag passes the value through unchanged
// on the assumption the provider already reports the canonical unit.

type TemperatureUnit string

const (
	Celsius    TemperatureUnit = "C"
	Fahrenheit TemperatureUnit = "F"
	Kelvin     TemperatureUnit = "K"
)

type SpeedUnit string

const (
	MetersPerSecond   SpeedUnit = "m/s"
	KilometersPerHour SpeedUnit = "km/h"
	MilesPerHour      SpeedUnit = "mph"
	Knots             SpeedUnit = "kn"
)

type PressureUnit string

const (
	Hectopascals  PressureUnit = "hPa"
	InchesMercury PressureUnit = "inHg"
	Pascals       PressureUnit = "Pa"
)

type DistanceUnit string

const (
	Meters     DistanceUnit = "m"
	Kilometers DistanceUnit = "km"
	Miles      DistanceUnit = "mi"
	Feet       DistanceUnit = "ft"
)

// ToCelsius converts a temperature to Celsius.
func ToCelsius(v float64, unit TemperatureUnit) float64 {
	switch unit {
	case Fahrenheit:
		return (v - 32) * 5 / 9
	case Kelvin:
		return v - 273.15
	default:
		return v
	}
}

// ToMetersPerSecond converts a speed to m/s.
func ToMetersPerSecond(v float64, unit SpeedUnit) float64 {
	switch unit {
	case KilometersPerHour:
		return v / 3.6
	case MilesPerHour:
		return v * 0.44704
	case Knots:
		return v * 0.514444
	default:
		return v
	}
}

// ToHectopascals converts a pressure to hPa.
func ToHectopascals(v float64, unit PressureUnit) float64 {
	switch unit {
	case InchesMercury:
		return v * 33.8639
	case Pascals:
		return v / 100
	default:
		return v
	}
}

// ToMeters converts a distance to meters.
func ToMeters(v float64, unit DistanceUnit) float64 {
	switch unit {
	case Kilometers:
		return v * 1000
	case Miles:
		return v * 1609.344
	case Feet:
		return v * 0.3048
	default:
		return v
	}
}

// CelsiusToFahrenheit is used by the comparison analyzer, which reports
// temperatures in display units.
func CelsiusToFahrenheit(c float64) float64 {
	return c*9/5 + 32
}

// MetersPerSecondToMph is used by the comparison analyzer for wind series.
func MetersPerSecondToMph(ms float64) float64 {
	return ms * 2.23694
}
