package boundary

// One-Step Boundary-Crossing Estimate
//
// Approximates how likely the path leaves its potential well within one step of size h,
// with a quadratic-exponential closed form in the style of first-passage-time
// (Fokker-Planck) estimates. With x0 the start, xh the Heun step, x1 the Euler step and
// xb = xh - π the reference boundary point:
//
//	F(x)  = sin(x),  Fb = F(xb),  Fb' = cos(xb)
//	part1 = -Fb' / (2D·(e^{2h·Fb'} - 1))
//	part2 = (xh - xb + (x0 - xb)·e^{h·Fb'} - Fb/Fb')²
//	part3 = (x1 - (x0 + h·(F(x0) + F(xh))/2))² / (4D·h)
//	p     = exp(part1·part2 + part3)
//
// The three exponent terms are kept exactly as written. The result is a score, not a
// normalised probability: it can exceed 1. NaN and Inf are returned as they arise.

import (
	"math"

	"bifurcation/integrator"
	"bifurcation/models"
)

// Terms exposes the pieces of one estimate for diagnostics.
type Terms struct {
	XH          float64 `json:"xh"`
	X1          float64 `json:"x1"`
	XB          float64 `json:"xb"`
	Part1       float64 `json:"part1"`
	Part2       float64 `json:"part2"`
	Part3       float64 `json:"part3"`
	Probability float64 `json:"probability"`
}

// HitBoundaryProbability evaluates the estimate. A zero diffusion d defaults to h;
// a negative one is rejected.
func HitBoundaryProbability(xInit, h, ft, alpha, d float64) (float64, error) {
	terms, err := Evaluate(xInit, h, ft, alpha, d)
	if err != nil {
		return 0, err
	}
	return terms.Probability, nil
}

// HitBoundaryProbabilityDefault evaluates the estimate with diffusion D = h.
func HitBoundaryProbabilityDefault(xInit, h, ft, alpha float64) (float64, error) {
	return HitBoundaryProbability(xInit, h, ft, alpha, h)
}

// field is a drift F and its derivative F'.
type field struct {
	drift      func(float64) float64
	derivative func(float64) float64
}

var sineField = field{drift: math.Sin, derivative: math.Cos}

// Evaluate computes every term of the estimate.
func Evaluate(xInit, h, ft, alpha, d float64) (Terms, error) {
	return evaluate(sineField, xInit, h, ft, alpha, d)
}

func evaluate(fd field, xInit, h, ft, alpha, d float64) (Terms, error) {
	if !(d >= 0) {
		return Terms{}, models.InvalidArgument("diffusion must not be negative, got %v", d)
	}
	if d == 0 {
		d = h
	}

	x0 := xInit
	xh := integrator.Advance(x0, h, ft, alpha)
	x1 := integrator.EulerStep(x0, h, ft, alpha)
	xb := xh - math.Pi

	fb := fd.drift(xb)
	fbDeriv := fd.derivative(xb)
	f0 := fd.drift(x0)
	fh := fd.drift(xh)

	if fbDeriv == 0 {
		return Terms{}, models.Degenerate("drift derivative is zero at boundary point %v", xb)
	}
	decay := 2 * d * (math.Exp(2*h*fbDeriv) - 1)
	if decay == 0 {
		return Terms{}, models.Degenerate("decay normalisation vanishes (D=%v, h=%v)", d, h)
	}
	if d*h == 0 {
		return Terms{}, models.Degenerate("discretisation term has zero denominator (D=%v, h=%v)", d, h)
	}

	part1 := -fbDeriv / decay
	part2 := math.Pow(xh-xb+(x0-xb)*math.Exp(h*fbDeriv)-(fb/fbDeriv), 2)
	part3 := (1 / (4 * d * h)) * math.Pow(x1-(x0+(h*(f0+fh)/2)), 2)

	return Terms{
		XH:          xh,
		X1:          x1,
		XB:          xb,
		Part1:       part1,
		Part2:       part2,
		Part3:       part3,
		Probability: math.Exp(part1*part2 + part3),
	}, nil
}

// SweepPoint is one step size of a sweep.
type SweepPoint struct {
	StepSize    float64 `json:"stepSize"`
	Probability float64 `json:"probability"`
	Err         string  `json:"error,omitempty"`
}

// SweepStepSizes evaluates the estimate for each candidate step size with D = h. A
// degenerate step size leaves Probability at 0 and records the error in its point; only an
// empty candidate list fails the sweep.
func SweepStepSizes(xInit, ft, alpha float64, steps []float64) ([]SweepPoint, error) {
	if len(steps) == 0 {
		return nil, models.InvalidArgument("no step sizes to sweep")
	}

	points := make([]SweepPoint, len(steps))
	for i, h := range steps {
		points[i].StepSize = h
		p, err := HitBoundaryProbabilityDefault(xInit, h, ft, alpha)
		if err != nil {
			points[i].Err = err.Error()
			continue
		}
		points[i].Probability = p
	}
	return points, nil
}

// GeometricSteps returns n step sizes from lo to hi spaced evenly on a log scale.
func GeometricSteps(lo, hi float64, n int) ([]float64, error) {
	if n < 1 || lo <= 0 || hi < lo {
		return nil, models.InvalidArgument("invalid step range [%v, %v] with %d points", lo, hi, n)
	}
	if n == 1 {
		return []float64{lo}, nil
	}
	steps := make([]float64, n)
	ratio := math.Pow(hi/lo, 1/float64(n-1))
	h := lo
	for i := range steps {
		steps[i] = h
		h *= ratio
	}
	steps[n-1] = hi
	return steps, nil
}
