package noise

// Multi-frequency Noise Synthesis
//
// The forcing term f(t) of the oscillator is built as a superposition of sinusoids:
//
//	f(x) = Σ_f A(f) · sin(2π·f·x/N + φ_f),   x = 0..N-1
//
// 1. Phases:
//    - One phase φ_f per frequency, drawn uniformly from [0, 2π)
//    - Drawn in frequency order from a Source reseeded on entry, so a seed and a
//      frequency set always reproduce the same series
//
// 2. Spectrum:
//    - A(f) shapes the spectrum; the constant 1 gives a flat ("white") band
//    - Pink (1/√f) and brown (1/f) amplitudes give power falling as 1/f and 1/f²
//
// 3. Accumulation:
//    - All contributions are summed into one buffer sized N up front

import (
	"math"
	"strings"

	"bifurcation/models"
)

// AmplitudeFunc maps an integer frequency to the weight of its sinusoid. It must be pure.
type AmplitudeFunc func(freq int) float64

// Default frequency band used by the long-run experiments.
const (
	DefaultFreqLo = 1
	DefaultFreqHi = 1000
)

// White weights every frequency equally.
func White(int) float64 { return 1 }

// Pink weights frequency f by 1/√f, so power falls as 1/f.
func Pink(freq int) float64 {
	if freq <= 0 {
		return 1
	}
	return 1 / math.Sqrt(float64(freq))
}

// Brown weights frequency f by 1/f, so power falls as 1/f².
func Brown(freq int) float64 {
	if freq <= 0 {
		return 1
	}
	return 1 / float64(freq)
}

// AmplitudeByName resolves a spectrum name ("white", "pink", "brown").
func AmplitudeByName(name string) (AmplitudeFunc, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "white":
		return White, nil
	case "pink":
		return Pink, nil
	case "brown", "red":
		return Brown, nil
	default:
		return nil, models.InvalidArgument("unknown spectrum %q", name)
	}
}

// Frequencies returns the contiguous range lo..hi inclusive.
func Frequencies(lo, hi int) []int {
	if hi < lo {
		return nil
	}
	freqs := make([]int, 0, hi-lo+1)
	for f := lo; f <= hi; f++ {
		freqs = append(freqs, f)
	}
	return freqs
}

// GenerateNoise synthesizes a series of the given length. src is reseeded to seed before
// the first phase is drawn. A nil amplitude means White.
func GenerateNoise(src *Source, length int, amplitude AmplitudeFunc, frequencies []int, seed int64) (models.NoiseSeries, error) {
	if length <= 0 {
		return nil, models.InvalidArgument("noise length must be positive, got %d", length)
	}
	if src == nil {
		return nil, models.InvalidArgument("nil random source")
	}
	if amplitude == nil {
		amplitude = White
	}

	src.Reseed(seed)

	series := make(models.NoiseSeries, length)
	n := float64(length)
	for _, f := range frequencies {
		phase := src.Uniform(0, 2*math.Pi)
		a := amplitude(f)
		for x := range series {
			series[x] += a * math.Sin(2*math.Pi*float64(f)*float64(x)/n+phase)
		}
	}

	return series, nil
}

// Zero returns a series of zeros, the forcing of an unperturbed trajectory.
func Zero(length int) (models.NoiseSeries, error) {
	if length <= 0 {
		return nil, models.InvalidArgument("noise length must be positive, got %d", length)
	}
	return make(models.NoiseSeries, length), nil
}
