package kinetics

import (
	"math"

	"github.com/Li-Kezhi/Exp-ReactionRateCalc/internal/reduce"
)

// Record is the kinetics result for one condition. It is built once by
// Chain.Apply and not modified afterwards.
type Record struct {
	Conversion Value
	Rate       Value
	LogRate    Value
	InvT       float64
	Flags      Flag
}

// Chain wires the stages together for one experiment.
type Chain struct {
	Model RateModel
	// LogErr propagates uncertainty onto ln k; nil selects ConversionLogErr.
	LogErr LogErrFunc
	// SkipRate stops after the conversion ratio; Rate and LogRate stay NaN.
	SkipRate bool
}

// Apply runs the chain on the limiting-reagent sample. c0 is its background;
// celsius/defined describe the condition temperature. The sample mean is the
// concentration handed to the rate model.
func (ch Chain) Apply(s reduce.Sample, c0 float64, celsius float64, defined bool) Record {
	var rec Record
	if math.IsNaN(s.Mean) {
		rec.Conversion = nan(FlagUndefined)
	} else {
		rec.Conversion = Conversion(s.Mean, s.Std, c0)
	}
	if ch.SkipRate || ch.Model == nil {
		rec.Rate = nan(0)
		rec.LogRate = nan(0)
	} else {
		rec.Rate = ch.Model.Rate(rec.Conversion, s.Mean)
		rec.LogRate = LogRate(rec.Rate, rec.Conversion, ch.LogErr)
	}
	rec.InvT = InverseTemperature(celsius, defined)
	rec.Flags = rec.Conversion.Flags | rec.Rate.Flags | rec.LogRate.Flags
	if math.IsNaN(rec.InvT) {
		rec.Flags |= FlagUndefined
	}
	return rec
}

// RateUnit returns the unit of k for the configured model.
func (ch Chain) RateUnit() string {
	if ch.Model == nil {
		return ""
	}
	return ch.Model.Unit()
}
