// Package kinetics derives the conversion ratio, rate constant, log rate and
// inverse temperature of a reduced sample, each with its first-order uncertainty.
//
// Every stage is a pure function. Out-of-domain input never produces an error
// or a panic: the value degrades to NaN and a Flag records why, so the caller
// can keep processing the remaining conditions.
package kinetics

import (
	"math"
	"strings"
)

// SaturatedConversion replaces conversion ratios at or above 100 %.
const SaturatedConversion = 99.99999

// ZeroCelsius is 0 °C in kelvin.
const ZeroCelsius = 273.15

// Flag records a recovered numeric condition.
type Flag uint8

const (
	// FlagSaturated means the conversion ratio was clamped to SaturatedConversion.
	FlagSaturated Flag = 1 << iota
	// FlagDomain means a logarithm or division was out of domain; the value is NaN.
	FlagDomain
	// FlagUndefined means an input (sample or temperature) was missing.
	FlagUndefined
)

// Has reports whether all bits of o are set.
func (f Flag) Has(o Flag) bool { return f&o == o }

func (f Flag) String() string {
	if f == 0 {
		return "ok"
	}
	var parts []string
	if f.Has(FlagSaturated) {
		parts = append(parts, "saturated")
	}
	if f.Has(FlagDomain) {
		parts = append(parts, "domain")
	}
	if f.Has(FlagUndefined) {
		parts = append(parts, "undefined")
	}
	return strings.Join(parts, "|")
}

// Value is a derived quantity with its absolute uncertainty.
type Value struct {
	V     float64
	Err   float64
	Flags Flag
}

func nan(flags Flag) Value {
	return Value{V: math.NaN(), Err: math.NaN(), Flags: flags}
}

// OK reports whether V is a finite number.
func (v Value) OK() bool { return !math.IsNaN(v.V) && !math.IsInf(v.V, 0) }

// Conversion returns X = (1 - c/c0)*100 in percent and δX = |dc/c0*100|,
// with the background c0 treated as exact. X >= 100 saturates.
func Conversion(c, dc, c0 float64) Value {
	if c0 == 0 || math.IsNaN(c) || math.IsNaN(c0) {
		return nan(FlagDomain)
	}
	out := Value{
		V:   (1 - c/c0) * 100,
		Err: math.Abs(dc / c0 * 100),
	}
	if out.V >= 100 {
		out.V = SaturatedConversion
		out.Flags |= FlagSaturated
	}
	return out
}

// residual returns 1 - X/100, the unconverted fraction.
func residual(x Value) float64 { return 1 - x.V/100 }

// InverseTemperature returns 1/(273.15 + T) for T in °C, or NaN when the
// temperature is undefined.
func InverseTemperature(celsius float64, defined bool) float64 {
	if !defined || math.IsNaN(celsius) {
		return math.NaN()
	}
	k := ZeroCelsius + celsius
	if k <= 0 {
		return math.NaN()
	}
	return 1 / k
}
