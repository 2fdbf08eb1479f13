package main

import (
	"flag"
	"fmt"
	"log"
	"math"

	"bifurcation/config"
	"bifurcation/models"
	"bifurcation/noise"
	"bifurcation/simulation"

	"github.com/joho/godotenv"
)

// Reruns noise synthesis and integration with one seed and reports any drift between runs.
func main() {
	configPath := flag.String("config", "config.toml", "Configuration file")
	runs := flag.Int("runs", 5, "Number of repeated simulations")
	seed := flag.Int64("seed", 0, "Noise seed")
	length := flag.Int("n", 0, "Number of samples (0 uses the configured length)")
	flag.Parse()
	_ = godotenv.Load()

	if *runs < 2 {
		log.Fatal("need at least two runs to compare")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	req := simulation.Resolve(models.SimulationRequest{Length: *length, Seed: *seed}, cfg.Simulation)
	log.Printf("Checking determinism: length=%d spectrum=%s seed=%d runs=%d\n", req.Length, req.Spectrum, req.Seed, *runs)

	// The source is shared and advanced between runs; every run must reseed it.
	src := noise.NewSource(*seed)
	var results []models.SimulationResult
	for i := 0; i < *runs; i++ {
		res, err := simulation.Simulate(src, req, cfg.Simulation.ScaleByStep)
		if err != nil {
			log.Fatalf("Run %d failed: %v", i+1, err)
		}
		results = append(results, res)
		src.Uniform(0, 1)
		log.Printf("Run %d: final state %.12f, transitions %d", i+1, res.Trajectory.Last(), res.Transitions)
	}

	fmt.Println("\n=== Determinism Check ===")
	identical := true
	maxDiff := 0.0
	for i := 1; i < len(results); i++ {
		for j, x := range results[0].Trajectory.States {
			diff := math.Abs(x - results[i].Trajectory.States[j])
			if diff > maxDiff {
				maxDiff = diff
			}
			if diff != 0 && identical {
				identical = false
				fmt.Printf("State %d differs between run 1 and run %d: %.15f vs %.15f\n",
					j, i+1, x, results[i].Trajectory.States[j])
			}
		}
		if results[i].Transitions != results[0].Transitions {
			identical = false
			fmt.Printf("Run %d found %d transitions, run 1 found %d\n", i+1, results[i].Transitions, results[0].Transitions)
		}
	}

	if identical {
		fmt.Println("All runs produced IDENTICAL trajectories")
	} else {
		fmt.Printf("Trajectories are NON-DETERMINISTIC (max diff: %e)\n", maxDiff)
	}
}
