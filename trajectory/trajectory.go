package trajectory

import (
	"bifurcation/integrator"
	"bifurcation/models"
	"bifurcation/noise"
)

// Options bundles the parameters of one trajectory.
type Options struct {
	Length   int
	XInit    float64
	Seed     int64
	StepSize float64
	Alpha    float64
}

// DefaultOptions returns the parameters of the reference experiment.
func DefaultOptions() Options {
	return Options{
		Length:   5000,
		XInit:    0,
		Seed:     0,
		StepSize: integrator.DefaultStepSize,
		Alpha:    integrator.DefaultAlpha,
	}
}

// GetSamples integrates the oscillator for length steps from xInit.
//
// src is reseeded to seed when non-nil; nothing here draws from it, the reseed keeps the
// generator in the same state whether or not a caller synthesized noise beforehand.
// A nil noise series means no forcing. Step i uses noise sample i:
//
//	x[0] = xInit,              d[0] = sin(xInit) + α·f[0]
//	x[i] = Advance(x[i-1], h, f[i], α),  d[i] = sin(x[i]) + α·f[i]
func GetSamples(src *noise.Source, length int, xInit float64, seed int64, f models.NoiseSeries, h, alpha float64) (models.Trajectory, error) {
	if length < 1 {
		return models.Trajectory{}, models.InvalidArgument("trajectory length must be at least 1, got %d", length)
	}
	if src != nil {
		src.Reseed(seed)
	}
	if f == nil {
		f = make(models.NoiseSeries, length)
	}
	if len(f) < length {
		return models.Trajectory{}, models.InvalidArgument("noise has %d samples, need %d", len(f), length)
	}

	states := make([]float64, length)
	derivatives := make([]float64, length)

	x := xInit
	states[0] = x
	derivatives[0] = integrator.Derivative(x, f[0], alpha)
	for i := 1; i < length; i++ {
		x = integrator.Advance(x, h, f[i], alpha)
		states[i] = x
		derivatives[i] = integrator.Derivative(x, f[i], alpha)
	}

	return models.Trajectory{States: states, Derivatives: derivatives}, nil
}

// Generate is GetSamples driven by an Options value.
func Generate(src *noise.Source, f models.NoiseSeries, opts Options) (models.Trajectory, error) {
	return GetSamples(src, opts.Length, opts.XInit, opts.Seed, f, opts.StepSize, opts.Alpha)
}
