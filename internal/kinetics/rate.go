package kinetics

import "math"

// MolarVolume is the molar volume of an ideal gas at STP, in L/mol.
const MolarVolume = 22.4

// RateModel turns a conversion ratio into a rate constant.
type RateModel interface {
	// Rate returns k and δk. c is the measured limiting-reagent concentration
	// of the condition, used by surface-normalised models; flow models ignore it.
	Rate(x Value, c float64) Value
	// Unit is the report unit of k.
	Unit() string
}

// FlowModel is a plug-flow reactor of volume Volume (ml) fed at FlowRate (ml/min):
// k = -(F/V)*ln(1-X)/60 in s-1.
type FlowModel struct {
	FlowRate float64
	Volume   float64
}

// Rate implements RateModel.
func (m FlowModel) Rate(x Value, _ float64) Value {
	return firstOrder(x, m.FlowRate/m.Volume/60)
}

// Unit implements RateModel.
func (FlowModel) Unit() string { return "s-1" }

// SurfaceModel normalises the molar flow by catalyst mass (g) and BET surface
// area (m2/g): k = -(F*1e-3/60/22.4)/(m*S)*ln(1-X)*C in mol s-1 m-2.
type SurfaceModel struct {
	FlowRate    float64
	Mass        float64
	SurfaceArea float64
	// Concentration fixes C for every condition. Zero means use the c passed to Rate.
	Concentration float64
}

// Rate implements RateModel.
func (m SurfaceModel) Rate(x Value, c float64) Value {
	if m.Concentration != 0 {
		c = m.Concentration
	}
	molarFlow := m.FlowRate * 1e-3 / 60 / MolarVolume
	return firstOrder(x, molarFlow/(m.Mass*m.SurfaceArea)*c)
}

// Unit implements RateModel.
func (SurfaceModel) Unit() string { return "mol s-1 m-2" }

// firstOrder computes k = -scale*ln(1-X/100) and
// δk = |scale/(1-X/100) * δX/100|.
func firstOrder(x Value, scale float64) Value {
	if !x.OK() || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return nan(x.Flags | FlagDomain)
	}
	r := residual(x)
	if r <= 0 {
		return nan(x.Flags | FlagDomain)
	}
	k := -scale * math.Log(r)
	if k == 0 {
		k = 0 // drop the sign of -0
	}
	return Value{
		V:     k,
		Err:   math.Abs(-scale / r * x.Err / 100),
		Flags: x.Flags,
	}
}

// LogErrFunc propagates an uncertainty onto ln k.
type LogErrFunc func(x, k Value) float64

// LogRateErrFromConversionErr is the reported uncertainty of ln k:
// |δX/100 / ((1-δX/100) * ln(1-δX/100))|. It takes the uncertainty of the
// conversion ratio, not of k. NaN when δX is 0 or at least 100.
func LogRateErrFromConversionErr(dx float64) float64 {
	f := dx / 100
	if math.IsNaN(f) || f <= 0 || f >= 1 {
		return math.NaN()
	}
	return math.Abs(f / ((1 - f) * math.Log(1-f)))
}

// LogRateErrFromRateErr is the first-order uncertainty δk/k.
func LogRateErrFromRateErr(k, dk float64) float64 {
	if k <= 0 || math.IsNaN(k) || math.IsNaN(dk) {
		return math.NaN()
	}
	return math.Abs(dk / k)
}

// ConversionLogErr adapts LogRateErrFromConversionErr to LogErrFunc.
func ConversionLogErr(x, _ Value) float64 { return LogRateErrFromConversionErr(x.Err) }

// RateLogErr adapts LogRateErrFromRateErr to LogErrFunc.
func RateLogErr(_, k Value) float64 { return LogRateErrFromRateErr(k.V, k.Err) }

// LogRate returns ln k, NaN when k <= 0. The uncertainty comes from errFn;
// nil selects ConversionLogErr.
func LogRate(k, x Value, errFn LogErrFunc) Value {
	if errFn == nil {
		errFn = ConversionLogErr
	}
	if !k.OK() || k.V <= 0 {
		return nan(k.Flags | FlagDomain)
	}
	return Value{
		V:     math.Log(k.V),
		Err:   errFn(x, k),
		Flags: k.Flags,
	}
}
