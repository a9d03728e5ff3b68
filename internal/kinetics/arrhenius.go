package kinetics

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"
)

// GasConstant in J mol-1 K-1.
const GasConstant = 8.314462618

// ErrTooFewPoints is returned when fewer than two usable points remain.
var ErrTooFewPoints = errors.New("arrhenius fit: need at least 2 points with finite ln k and 1/T")

// Arrhenius is the least-squares line ln k = Intercept + Slope/T.
type Arrhenius struct {
	Slope     float64 // K
	Intercept float64
	R2        float64
	N         int
	Ea        float64 // apparent activation energy, J/mol
	A         float64 // pre-exponential factor, unit of k
}

// FitArrhenius regresses ln k on 1/T over records with finite values.
func FitArrhenius(records []Record) (Arrhenius, error) {
	var xs, ys []float64
	for _, r := range records {
		if !r.LogRate.OK() || math.IsNaN(r.InvT) || math.IsInf(r.InvT, 0) {
			continue
		}
		xs = append(xs, r.InvT)
		ys = append(ys, r.LogRate.V)
	}
	if len(xs) < 2 {
		return Arrhenius{N: len(xs)}, ErrTooFewPoints
	}
	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	fit := Arrhenius{
		Slope:     beta,
		Intercept: alpha,
		R2:        stat.RSquared(xs, ys, nil, alpha, beta),
		N:         len(xs),
		Ea:        -beta * GasConstant,
		A:         math.Exp(alpha),
	}
	return fit, nil
}
