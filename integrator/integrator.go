package integrator

// Heun Step for dx/dt = sin(x) + α·f
//
// One step of size h is a two-evaluation predictor-corrector (improved Euler):
//
//	d0 = sin(x) + α·f
//	x1 = x + h·d0                (predictor)
//	d1 = sin(x1) + α·f
//	x' = x + (h/2)·(d0 + d1)     (trapezoidal corrector)
//
// The forcing sample f is held constant over the step; it is not interpolated between
// the two stages. The scheme is second order and must stay exactly two evaluations,
// since regression baselines are computed with it.

import "math"

const (
	// DefaultAlpha is the noise multiplier used when none is configured.
	DefaultAlpha = 1.0
	// DefaultStepSize is the integration step used by the experiments.
	DefaultStepSize = 0.1
)

// Derivative returns sin(x) + alpha·f.
func Derivative(x, f, alpha float64) float64 {
	return math.Sin(x) + alpha*f
}

// Advance performs one Heun step of size h from x under forcing f.
func Advance(x, h, f, alpha float64) float64 {
	d0 := Derivative(x, f, alpha)
	x1 := x + h*d0
	return x + (h/2)*(d0+Derivative(x1, f, alpha))
}

// EulerStep performs one explicit Euler step, the linearized state used by the
// boundary-crossing estimator.
func EulerStep(x, h, f, alpha float64) float64 {
	return x + h*Derivative(x, f, alpha)
}
