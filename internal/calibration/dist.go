// Package calibration turns a point forecast plus an optional live reading
// into a Gaussian model of the day's high temperature, discretized into
// labeled probability brackets and confidence intervals.
package calibration

import (
	"errors"
	"fmt"
	"math"
)

// ErrQuantileDomain is returned when NormalQuantile is called with a
// probability outside the open interval (0, 1).
var ErrQuantileDomain = errors.New("quantile probability outside (0,1)")

// Abramowitz and Stegun 7.1.26 rational approximation coefficients for erf,
// accurate to about 1.5e-7.
const (
	erfA1 = 0.254829592
	erfA2 = -0.284496736
	erfA3 = 1.421413741
	erfA4 = -1.453152027
	erfA5 = 1.061405429
	erfP  = 0.3275911
)

// Erf approximates the error function. Odd symmetry holds by construction:
// Erf(-x) == -Erf(x).
func Erf(x float64) float64 {
	sign := 1.0
	if x < 0 {
		sign = -1.0
	}
	x = math.Abs(x)

	t := 1.0 / (1.0 + erfP*x)
	y := 1.0 - (((((erfA5*t+erfA4)*t)+erfA3)*t+erfA2)*t+erfA1)*t*math.Exp(-x*x)
	return sign * y
}

// NormalCDF returns P(X <= x) for X ~ N(mu, sigma^2). A non-positive sigma
// degenerates to a step function at mu rather than dividing by zero.
func NormalCDF(x, mu, sigma float64) float64 {
	if sigma <= 0 {
		if x >= mu {
			return 1.0
		}
		return 0.0
	}
	return 0.5 * (1 + Erf((x-mu)/(sigma*math.Sqrt2)))
}

// Beasley-Springer-Moro / Acklam rational approximation coefficients for the
// inverse normal CDF. The central region covers p in [0.02425, 0.97575]; the
// tail expansions handle the rest.
var (
	quantA = [6]float64{
		-3.969683028665376e+01, 2.209460984245205e+02, -2.759285104469687e+02,
		1.383577518672690e+02, -3.066479806614716e+01, 2.506628277459239e+00,
	}
	quantB = [5]float64{
		-5.447609879822406e+01, 1.615858368580409e+02, -1.556989798598866e+02,
		6.680131188771972e+01, -1.328068155288572e+01,
	}
	quantC = [6]float64{
		-7.784894002430293e-03, -3.223964580411365e-01, -2.400758277161838e+00,
		-2.549732539343734e+00, 4.374664141464968e+00, 2.938163982698783e+00,
	}
	quantD = [4]float64{
		7.784695709041462e-03, 3.224671290700398e-01, 2.445134137142996e+00,
		3.754408661907416e+00,
	}
)

const quantileTailSplit = 0.02425

// NormalQuantile returns the value x such that NormalCDF(x, mu, sigma) == p,
// to within numerical tolerance. p must lie strictly in (0, 1); anything else
// returns ErrQuantileDomain rather than silently extrapolating.
func NormalQuantile(p, mu, sigma float64) (float64, error) {
	if math.IsNaN(p) || p <= 0 || p >= 1 {
		return 0, fmt.Errorf("%w: p=%v", ErrQuantileDomain, p)
	}

	var z float64
	switch {
	case p < quantileTailSplit:
		q := math.Sqrt(-2 * math.Log(p))
		z = (((((quantC[0]*q+quantC[1])*q+quantC[2])*q+quantC[3])*q+quantC[4])*q + quantC[5]) /
			((((quantD[0]*q+quantD[1])*q+quantD[2])*q+quantD[3])*q + 1)
	case p > 1-quantileTailSplit:
		q := math.Sqrt(-2 * math.Log(1-p))
		z = -(((((quantC[0]*q+quantC[1])*q+quantC[2])*q+quantC[3])*q+quantC[4])*q + quantC[5]) /
			((((quantD[0]*q+quantD[1])*q+quantD[2])*q+quantD[3])*q + 1)
	default:
		q := p - 0.5
		r := q * q
		z = (((((quantA[0]*r+quantA[1])*r+quantA[2])*r+quantA[3])*r+quantA[4])*r + quantA[5]) * q /
			(((((quantB[0]*r+quantB[1])*r+quantB[2])*r+quantB[3])*r+quantB[4])*r + 1)
	}

	return mu + sigma*z, nil
}
