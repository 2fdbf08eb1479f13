package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"bifurcation/boundary"
	"bifurcation/noise"
)

// Evaluates the one-step boundary-crossing estimate to help pick a step size. The noise
// sample defaults to the first value of a one-sample white noise series.
func main() {
	xInit := flag.Float64("x0", 0, "Initial state")
	alpha := flag.Float64("alpha", 1, "Noise multiplier")
	seed := flag.Int64("seed", 0, "Seed for the noise sample")
	ft := flag.Float64("f", 0, "Noise sample; ignored unless -use-f is set")
	useF := flag.Bool("use-f", false, "Use -f instead of a synthesized noise sample")
	lo := flag.Float64("lo", 0.05, "Smallest step size")
	hi := flag.Float64("hi", 2, "Largest step size")
	points := flag.Int("n", 12, "Number of step sizes")
	flag.Parse()

	sample := *ft
	if !*useF {
		f, err := noise.GenerateNoise(noise.NewSource(*seed), 1, noise.White,
			noise.Frequencies(noise.DefaultFreqLo, noise.DefaultFreqHi), *seed)
		if err != nil {
			log.Fatalf("failed to synthesize noise: %v", err)
		}
		sample = f[0]
	}
	fmt.Printf("x0=%g alpha=%g f=%.6f\n\n", *xInit, *alpha, sample)

	steps, err := boundary.GeometricSteps(*lo, *hi, *points)
	if err != nil {
		log.Fatalf("invalid step range: %v", err)
	}

	fmt.Printf("%10s %14s %14s %14s %14s\n", "h", "part1", "part2", "part3", "p")
	for _, h := range steps {
		terms, err := boundary.Evaluate(*xInit, h, sample, *alpha, h)
		if err != nil {
			fmt.Printf("%10.4f %s\n", h, err)
			continue
		}
		fmt.Printf("%10.4f %14.6g %14.6g %14.6g %14.6g\n", h, terms.Part1, terms.Part2, terms.Part3, terms.Probability)
	}

	sweep, err := boundary.SweepStepSizes(*xInit, sample, *alpha, steps)
	if err != nil {
		log.Fatalf("sweep failed: %v", err)
	}
	best := -1
	for i, p := range sweep {
		if p.Err == "" && p.Probability > 0 && (best < 0 || p.Probability < sweep[best].Probability) {
			best = i
		}
	}
	if best >= 0 {
		fmt.Printf("\nsmallest non-zero estimate at h=%.4f (p=%.6g)\n", sweep[best].StepSize, sweep[best].Probability)
	}

	if path := os.Getenv("SWEEP_OUT"); path != "" {
		data, err := json.MarshalIndent(sweep, "", "  ")
		if err != nil {
			log.Fatalf("failed to encode sweep: %v", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			log.Fatalf("failed to write %s: %v", path, err)
		}
	}
}
