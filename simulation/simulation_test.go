package simulation

import (
	"errors"
	"math"
	"testing"

	"bifurcation/boundary"
	"bifurcation/config"
	"bifurcation/models"
	"bifurcation/noise"
	"bifurcation/trajectory"
)

func TestResolveFillsDefaults(t *testing.T) {
	t.Parallel()

	defaults := config.DefaultConfig().Simulation
	got := Resolve(models.SimulationRequest{XInit: 1.5, Seed: 3}, defaults)

	if got.Length != 5000 || got.StepSize != 0.1 || got.Alpha == nil || *got.Alpha != 1 {
		t.Fatalf("expected defaults to be applied, got %+v", got)
	}
	if got.FreqLo != 1 || got.FreqHi != 1000 || got.Spectrum != "white" {
		t.Fatalf("expected default band and spectrum, got %+v", got)
	}
	if got.XInit != 1.5 || got.Seed != 3 {
		t.Fatalf("expected explicit values to survive, got %+v", got)
	}

	kept := Resolve(models.SimulationRequest{Length: 10, StepSize: 0.5, Alpha: ptr(2), FreqLo: 3, FreqHi: 4, Spectrum: "pink"}, defaults)
	if kept.Length != 10 || kept.StepSize != 0.5 || *kept.Alpha != 2 || kept.FreqLo != 3 || kept.FreqHi != 4 || kept.Spectrum != "pink" {
		t.Fatalf("expected request values to be kept, got %+v", kept)
	}

	zero := Resolve(models.SimulationRequest{Alpha: ptr(0)}, defaults)
	if zero.Alpha == nil || *zero.Alpha != 0 {
		t.Fatalf("expected an explicit zero alpha to be kept, got %v", zero.Alpha)
	}
}

func ptr(v float64) *float64 { return &v }

func TestSimulateWithoutNoiseStaysAtRest(t *testing.T) {
	t.Parallel()

	req := models.SimulationRequest{Length: 500, StepSize: 0.1, Alpha: ptr(1), WithoutNoise: true}
	res, err := Simulate(noise.NewSource(0), req, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Trajectory.Len() != 500 {
		t.Fatalf("expected 500 states, got %d", res.Trajectory.Len())
	}
	for i, x := range res.Trajectory.States {
		if x != 0 {
			t.Fatalf("expected state %d to be 0, got %v", i, x)
		}
	}
	if res.Transitions != 0 || len(res.Gaps) != 0 {
		t.Fatalf("expected no transitions, got %d and gaps %v", res.Transitions, res.Gaps)
	}
}

func TestSimulateMatchesPipeline(t *testing.T) {
	t.Parallel()

	req := models.SimulationRequest{Length: 800, StepSize: 0.1, Alpha: ptr(2), Seed: 5, FreqLo: 1, FreqHi: 30, Spectrum: "white"}
	res, err := Simulate(noise.NewSource(42), req, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	src := noise.NewSource(0)
	f, err := noise.GenerateNoise(src, 800, noise.White, noise.Frequencies(1, 30), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want, err := trajectory.GetSamples(src, 800, 0, 5, f, 0.1, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range want.States {
		if res.Trajectory.States[i] != want.States[i] {
			t.Fatalf("expected state %d = %v, got %v", i, want.States[i], res.Trajectory.States[i])
		}
	}

	sum := 0
	for _, g := range res.Gaps {
		if g != math.Trunc(g) {
			t.Fatalf("expected unscaled gaps to be whole steps, got %v", g)
		}
		sum += int(g)
	}
	if len(res.Gaps) != res.Transitions {
		t.Fatalf("expected one gap per transition, got %d gaps for %d transitions", len(res.Gaps), res.Transitions)
	}
	if sum > 799 {
		t.Fatalf("expected gaps to fit within the trajectory, got total %d", sum)
	}
}

func TestSimulateRejectsBadRequests(t *testing.T) {
	t.Parallel()

	cases := []models.SimulationRequest{
		{Length: 0, StepSize: 0.1},
		{Length: MaxLength + 1, StepSize: 0.1},
		{Length: 10, StepSize: 0},
		{Length: 10, StepSize: 0.1, Spectrum: "violet"},
		{Length: 10, StepSize: 0.1, Spectrum: "white", FreqLo: 50, FreqHi: 10},
		{Length: 10, StepSize: 0.1, Spectrum: "white", FreqLo: -1, FreqHi: 10},
		{Length: 10, StepSize: 0.1, Spectrum: "white", FreqLo: 0, FreqHi: MaxBand},
		{Length: 10, StepSize: 0.1, Spectrum: "white", FreqLo: 1, FreqHi: math.MaxInt},
	}
	for _, req := range cases {
		if _, err := Simulate(noise.NewSource(0), req, true); !errors.Is(err, models.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument for %+v, got %v", req, err)
		}
	}
}

func TestSimulateAcceptsWidestBand(t *testing.T) {
	t.Parallel()

	req := models.SimulationRequest{Length: 10, StepSize: 0.1, Spectrum: "white", FreqLo: 1, FreqHi: MaxBand}
	if _, err := Simulate(noise.NewSource(0), req, true); err != nil {
		t.Fatalf("expected a band of %d frequencies to be accepted, got %v", MaxBand, err)
	}
}

func TestSimulateZeroAlphaDisablesForcing(t *testing.T) {
	t.Parallel()

	req := models.SimulationRequest{Length: 300, StepSize: 0.1, Alpha: ptr(0), Seed: 9, FreqLo: 1, FreqHi: 40, Spectrum: "white"}
	res, err := Simulate(noise.NewSource(0), req, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, x := range res.Trajectory.States {
		if x != 0 {
			t.Fatalf("expected state %d to stay at 0 without forcing, got %v", i, x)
		}
	}

	req.Alpha = nil
	forced, err := Simulate(noise.NewSource(0), req, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	moved := false
	for _, x := range forced.Trajectory.States {
		if x != 0 {
			moved = true
			break
		}
	}
	if !moved {
		t.Fatalf("expected the default alpha to move the state")
	}
}

func TestProbability(t *testing.T) {
	t.Parallel()

	terms, err := Probability(models.ProbabilityRequest{XInit: 0.3, StepSize: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want, err := boundary.HitBoundaryProbabilityDefault(0.3, 1, 0, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if terms.Probability != want {
		t.Fatalf("expected %v, got %v", want, terms.Probability)
	}

	unforced, err := Probability(models.ProbabilityRequest{XInit: 0.3, StepSize: 1, Noise: 0.5, Alpha: ptr(0)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantUnforced, err := boundary.HitBoundaryProbabilityDefault(0.3, 1, 0.5, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if unforced.Probability != wantUnforced {
		t.Fatalf("expected a zero alpha to be honored: %v, got %v", wantUnforced, unforced.Probability)
	}

	if _, err := Probability(models.ProbabilityRequest{XInit: 0.3, StepSize: 0}); !errors.Is(err, models.ErrNumericalDegeneracy) {
		t.Fatalf("expected ErrNumericalDegeneracy, got %v", err)
	}
}
