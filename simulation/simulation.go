// Package simulation runs single simulations on behalf of the HTTP, socket and CLI surfaces.
package simulation

import (
	"math"
	"time"

	"bifurcation/boundary"
	"bifurcation/config"
	"bifurcation/integrator"
	"bifurcation/models"
	"bifurcation/noise"
	"bifurcation/trajectory"
	"bifurcation/transitions"
)

const (
	// MaxLength bounds the length of a single interactive simulation.
	MaxLength = 200_000
	// MaxBand bounds the number of frequencies a single simulation may superpose.
	MaxBand = 10_000
)

// Resolve fills the zero-valued fields of req from defaults. XInit and Seed are taken
// as given since zero is a meaningful value for both. A nil Alpha takes the configured value.
func Resolve(req models.SimulationRequest, defaults config.SimulationConfig) models.SimulationRequest {
	if req.Length == 0 {
		req.Length = defaults.Length
	}
	if req.StepSize == 0 {
		req.StepSize = defaults.StepSize
	}
	if req.Alpha == nil {
		alpha := defaults.Alpha
		req.Alpha = &alpha
	}
	if req.FreqLo == 0 && req.FreqHi == 0 {
		req.FreqLo, req.FreqHi = defaults.FreqLo, defaults.FreqHi
	}
	if req.Spectrum == "" {
		req.Spectrum = defaults.Spectrum
	}
	return req
}

// Simulate synthesizes the noise, integrates the trajectory and detects its transitions.
// Gaps are durations when scale is set and step counts otherwise.
func Simulate(src *noise.Source, req models.SimulationRequest, scale bool) (models.SimulationResult, error) {
	if req.Length < 1 || req.Length > MaxLength {
		return models.SimulationResult{}, models.InvalidArgument("length must be within [1, %d], got %d", MaxLength, req.Length)
	}
	if req.StepSize <= 0 {
		return models.SimulationResult{}, models.InvalidArgument("step size must be positive, got %g", req.StepSize)
	}
	if !req.WithoutNoise {
		if req.FreqLo < 0 || req.FreqHi < req.FreqLo {
			return models.SimulationResult{}, models.InvalidArgument("frequency band must satisfy 0 <= lo <= hi, got [%d, %d]", req.FreqLo, req.FreqHi)
		}
		if req.FreqHi-req.FreqLo >= MaxBand {
			return models.SimulationResult{}, models.InvalidArgument("frequency band may hold at most %d frequencies, got [%d, %d]", MaxBand, req.FreqLo, req.FreqHi)
		}
	}

	started := time.Now()

	var f models.NoiseSeries
	var err error
	if req.WithoutNoise {
		f, err = noise.Zero(req.Length)
	} else {
		var amplitude noise.AmplitudeFunc
		amplitude, err = noise.AmplitudeByName(req.Spectrum)
		if err != nil {
			return models.SimulationResult{}, err
		}
		f, err = noise.GenerateNoise(src, req.Length, amplitude, noise.Frequencies(req.FreqLo, req.FreqHi), req.Seed)
	}
	if err != nil {
		return models.SimulationResult{}, err
	}

	traj, err := trajectory.GetSamples(src, req.Length, req.XInit, req.Seed, f, req.StepSize, alphaOr(req.Alpha, integrator.DefaultAlpha))
	if err != nil {
		return models.SimulationResult{}, err
	}
	markers, err := transitions.MarkTransitions(traj.States)
	if err != nil {
		return models.SimulationResult{}, err
	}
	gaps, err := transitions.TransitionGaps(traj.States, req.StepSize, scale)
	if err != nil {
		return models.SimulationResult{}, err
	}

	return models.SimulationResult{
		Trajectory:  traj,
		Markers:     markers,
		Gaps:        gaps,
		Transitions: markers.Count(),
		LatencyMs:   time.Since(started).Seconds() * 1000,
	}, nil
}

// Probability evaluates the boundary-crossing estimate for req.
// Terms that overflow to Inf or NaN cannot be sent as JSON and are reported as a
// numerical degeneracy.
func Probability(req models.ProbabilityRequest) (boundary.Terms, error) {
	terms, err := boundary.Evaluate(req.XInit, req.StepSize, req.Noise, alphaOr(req.Alpha, 1), req.Diffusion)
	if err != nil {
		return boundary.Terms{}, err
	}
	for _, v := range []float64{terms.Part1, terms.Part2, terms.Part3, terms.Probability} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return terms, models.Degenerate("estimate is not finite for x0=%v h=%v", req.XInit, req.StepSize)
		}
	}
	return terms, nil
}

func alphaOr(alpha *float64, fallback float64) float64 {
	if alpha == nil {
		return fallback
	}
	return *alpha
}
