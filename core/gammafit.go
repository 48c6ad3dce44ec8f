package core

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrDistributionFit reports a sample set no distribution can be fitted to.
var ErrDistributionFit = errors.New("cannot fit distribution")

// ---------- fitting ----------

// GammaFit is a three-parameter gamma distribution (shape, scale, location)
// fitted to a non-negative sample.
type GammaFit struct {
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
	Loc   float64 `json:"loc"`
}

// FitGamma estimates gamma parameters by the method of moments. The
// location is anchored just below the sample minimum so the shifted data
// stays strictly positive; shape and scale then follow from the shifted
// mean and population variance, floored at 0.1 to keep the density
// evaluable for near-degenerate samples.
func FitGamma(samples []float64) (GammaFit, error) {
	if len(samples) < 2 {
		return GammaFit{}, fmt.Errorf("%w: need at least 2 samples, got %d", ErrDistributionFit, len(samples))
	}

	minV := math.Inf(1)
	for _, v := range samples {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return GammaFit{}, fmt.Errorf("%w: sample values must be finite", ErrDistributionFit)
		}
		if v < 0 {
			return GammaFit{}, fmt.Errorf("%w: sample values must be non-negative, got %g", ErrDistributionFit, v)
		}
		if v < minV {
			minV = v
		}
	}

	loc := minV * 0.9
	var sum, sumSq float64
	for _, v := range samples {
		s := v - loc
		sum += s
		sumSq += s * s
	}
	n := float64(len(samples))
	mean := sum / n
	variance := sumSq/n - mean*mean
	if variance <= 0 {
		return GammaFit{}, fmt.Errorf("%w: sample variance is zero", ErrDistributionFit)
	}

	alpha := mean * mean / variance
	beta := variance / mean
	if alpha < 0.1 {
		alpha = 0.1
	}
	if beta < 0.1 {
		beta = 0.1
	}
	return GammaFit{Alpha: alpha, Beta: beta, Loc: loc}, nil
}

// Mean returns the distribution mean, loc + alpha*beta.
func (f GammaFit) Mean() float64 {
	return f.Loc + f.Alpha*f.Beta
}

// PDF evaluates the fitted density at x. Points at or below the location
// have zero density. The computation runs in log space to survive large
// shape parameters.
func (f GammaFit) PDF(x float64) float64 {
	s := x - f.Loc
	if s <= 0 {
		return 0
	}
	lg, _ := math.Lgamma(f.Alpha)
	logPdf := (f.Alpha-1)*math.Log(s) - s/f.Beta - lg - f.Alpha*math.Log(f.Beta)
	return math.Exp(logPdf)
}

// CDF evaluates the fitted cumulative distribution at x via the
// regularized lower incomplete gamma function.
func (f GammaFit) CDF(x float64) float64 {
	s := x - f.Loc
	if s <= 0 {
		return 0
	}
	return regularizedLowerGamma(f.Alpha, s/f.Beta)
}

// regularizedLowerGamma computes P(a, x) with the standard power series
// P(a,x) = x^a e^-x / Gamma(a+1) * sum_k x^k / ((a+1)...(a+k)), truncated
// at 100 terms with an early exit once terms stop contributing. The series
// converges quickly for the x/beta magnitudes the fits produce.
func regularizedLowerGamma(a, x float64) float64 {
	if x <= 0 {
		return 0
	}

	term := 1.0
	sum := 1.0
	for k := 1; k <= 100; k++ {
		term *= x / (a + float64(k))
		sum += term
		if term < sum*1e-10 {
			break
		}
	}

	lg, _ := math.Lgamma(a + 1)
	p := sum * math.Exp(a*math.Log(x)-x-lg)
	return Clamp(p, 0, 1)
}

// ---------- empirical summaries ----------

// EmpiricalCDF returns the sorted sample values with cumulative
// probabilities (i+1)/n, suitable for plotting against a fitted CDF.
func EmpiricalCDF(samples []float64) (xs, ps []float64) {
	xs = make([]float64, len(samples))
	copy(xs, samples)
	sort.Float64s(xs)

	ps = make([]float64, len(xs))
	n := float64(len(xs))
	for i := range ps {
		ps[i] = float64(i+1) / n
	}
	return xs, ps
}

// HistogramBin is one bar of a density-normalised histogram.
type HistogramBin struct {
	LowerEdge float64 `json:"lower_edge"`
	UpperEdge float64 `json:"upper_edge"`
	Count     int     `json:"count"`
	Density   float64 `json:"density"`
}

// Histogram bins the samples over [min, max] into equal-width bins with
// density normalised so the bar areas sum to one. The top edge is
// inclusive. A non-positive bin count falls back to 40; a constant sample
// is spread over a unit-wide range centred on its value.
func Histogram(samples []float64, bins int) []HistogramBin {
	if len(samples) == 0 {
		return nil
	}
	if bins <= 0 {
		bins = 40
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range samples {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if lo == hi {
		lo -= 0.5
		hi += 0.5
	}
	width := (hi - lo) / float64(bins)

	out := make([]HistogramBin, bins)
	for i := range out {
		out[i].LowerEdge = lo + float64(i)*width
		out[i].UpperEdge = lo + float64(i+1)*width
	}
	for _, v := range samples {
		i := int((v - lo) / width)
		if i >= bins {
			i = bins - 1
		}
		out[i].Count++
	}
	norm := float64(len(samples)) * width
	for i := range out {
		out[i].Density = float64(out[i].Count) / norm
	}
	return out
}
