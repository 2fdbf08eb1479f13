package trajectory

import (
	"errors"
	"math"
	"testing"

	"bifurcation/integrator"
	"bifurcation/models"
	"bifurcation/noise"
)

func TestGetSamplesUnforcedFromOriginStaysAtRest(t *testing.T) {
	t.Parallel()

	zero, _ := noise.Zero(5000)
	traj, err := GetSamples(noise.NewSource(0), 5000, 0, 0, zero, 0.1, 1)
	if err != nil {
		t.Fatalf("GetSamples returned error: %v", err)
	}
	if traj.Len() != 5000 || len(traj.Derivatives) != 5000 {
		t.Fatalf("expected 5000 aligned samples, got %d/%d", len(traj.States), len(traj.Derivatives))
	}
	for i := range traj.States {
		if traj.States[i] != 0 || traj.Derivatives[i] != 0 {
			t.Fatalf("step %d: expected rest at 0, got x=%v d=%v", i, traj.States[i], traj.Derivatives[i])
		}
	}
}

func TestGetSamplesUnforcedReferenceTrajectory(t *testing.T) {
	t.Parallel()

	const h = 0.1
	traj, err := GetSamples(nil, 5000, 0.5, 0, nil, h, 1)
	if err != nil {
		t.Fatalf("GetSamples returned error: %v", err)
	}

	// Reference recurrence computed independently of GetSamples.
	x := 0.5
	for i := 1; i < 5000; i++ {
		d0 := math.Sin(x)
		d1 := math.Sin(x + h*d0)
		x = x + (h/2)*(d0+d1)
		if math.Abs(traj.States[i]-x) > 1e-12 {
			t.Fatalf("step %d: expected %v, got %v", i, x, traj.States[i])
		}
	}

	pinned := map[int]float64{
		10:  1.2124255525608234,
		50:  3.08845547385784,
		100: 3.14123130271502,
	}
	for i, want := range pinned {
		if math.Abs(traj.States[i]-want) > 1e-12 {
			t.Fatalf("x[%d]: expected %v, got %v", i, want, traj.States[i])
		}
	}

	// Against the closed form x(t) = 2·atan(tan(x0/2)·e^t) at t = 1.
	exact := 2 * math.Atan(math.Tan(0.25)*math.E)
	if math.Abs(traj.States[10]-exact) > 5e-3 {
		t.Fatalf("x(1): expected ~%v, got %v", exact, traj.States[10])
	}

	// The stable fixed point of sin(x) above 0.5 is π.
	if math.Abs(traj.Last()-math.Pi) > 1e-12 {
		t.Fatalf("expected convergence to π, got %v", traj.Last())
	}
	for i := 1; i < traj.Len(); i++ {
		if traj.States[i] < traj.States[i-1] {
			t.Fatalf("unforced trajectory decreased at step %d", i)
		}
		if math.Abs(traj.Derivatives[i]-math.Sin(traj.States[i])) > 1e-15 {
			t.Fatalf("derivative at step %d does not match sin(x)", i)
		}
	}
}

func TestGetSamplesUsesNoiseSampleOfCurrentIndex(t *testing.T) {
	t.Parallel()

	const spike = 3
	f := make(models.NoiseSeries, 8)
	f[spike] = 1

	forced, err := GetSamples(nil, 8, 0, 0, f, 0.1, 1)
	if err != nil {
		t.Fatalf("GetSamples returned error: %v", err)
	}

	for i := 0; i < spike; i++ {
		if forced.States[i] != 0 {
			t.Fatalf("state %d moved before the spike: %v", i, forced.States[i])
		}
	}
	if forced.States[spike] == 0 {
		t.Fatalf("state %d must respond to noise sample %d", spike, spike)
	}
	want := integrator.Advance(0, 0.1, 1, 1)
	if forced.States[spike] != want {
		t.Fatalf("expected x[%d]=%v, got %v", spike, want, forced.States[spike])
	}
	if forced.Derivatives[spike] != integrator.Derivative(want, 1, 1) {
		t.Fatalf("derivative at spike must use the same noise sample")
	}
	if forced.Derivatives[0] != 0 {
		t.Fatalf("d[0] must use f[0]=0, got %v", forced.Derivatives[0])
	}
}

func TestGetSamplesAlphaScalesForcing(t *testing.T) {
	t.Parallel()

	f := models.NoiseSeries{0.2, 0.2, 0.2, 0.2}
	silent, _ := GetSamples(nil, 4, 0, 0, f, 0.1, 0)
	for i, x := range silent.States {
		if x != 0 {
			t.Fatalf("alpha=0 must ignore forcing, state %d = %v", i, x)
		}
	}
	loud, _ := GetSamples(nil, 4, 0, 0, f, 0.1, 2)
	if loud.States[3] <= 0 {
		t.Fatalf("positive forcing must push the state up, got %v", loud.States[3])
	}
}

func TestGetSamplesSingleSample(t *testing.T) {
	t.Parallel()

	traj, err := GetSamples(nil, 1, 1.25, 0, models.NoiseSeries{0.5}, 0.1, 1)
	if err != nil {
		t.Fatalf("GetSamples returned error: %v", err)
	}
	if traj.Len() != 1 || traj.States[0] != 1.25 {
		t.Fatalf("expected the initial condition only, got %v", traj.States)
	}
	if traj.Derivatives[0] != math.Sin(1.25)+0.5 {
		t.Fatalf("unexpected initial derivative %v", traj.Derivatives[0])
	}
}

func TestGetSamplesValidatesArguments(t *testing.T) {
	t.Parallel()

	if _, err := GetSamples(nil, 0, 0, 0, nil, 0.1, 1); !errors.Is(err, models.ErrInvalidArgument) {
		t.Fatalf("length 0: expected ErrInvalidArgument, got %v", err)
	}
	short := make(models.NoiseSeries, 3)
	if _, err := GetSamples(nil, 4, 0, 0, short, 0.1, 1); !errors.Is(err, models.ErrInvalidArgument) {
		t.Fatalf("short noise: expected ErrInvalidArgument, got %v", err)
	}
}

func TestGenerateMatchesGetSamples(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	opts.Length = 300
	src := noise.NewSource(0)
	f, err := noise.GenerateNoise(src, opts.Length, noise.White, noise.Frequencies(1, 30), opts.Seed)
	if err != nil {
		t.Fatalf("GenerateNoise returned error: %v", err)
	}

	a, err := Generate(src, f, opts)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	b, _ := GetSamples(src, opts.Length, opts.XInit, opts.Seed, f, opts.StepSize, opts.Alpha)
	for i := range a.States {
		if a.States[i] != b.States[i] {
			t.Fatalf("step %d differs: %v vs %v", i, a.States[i], b.States[i])
		}
	}
}
