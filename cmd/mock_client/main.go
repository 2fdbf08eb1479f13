package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"bifurcation/models"
)

func main() {
	endpoint := flag.String("url", "http://localhost:5000/api/simulate", "Simulation endpoint")
	count := flag.Int("count", 1, "Number of requests, each with the next seed")
	seed := flag.Int64("seed", 0, "First seed")
	length := flag.Int("n", 0, "Samples per simulation (0 uses the server default)")
	spectrum := flag.String("spectrum", "", "Noise spectrum")
	alpha := flag.Float64("alpha", 0, "Noise multiplier (omit to use the server default)")
	delay := flag.Duration("delay", time.Second, "Delay between requests")
	flag.Parse()

	fmt.Printf("Sending %d simulation request(s) to %s\n\n", *count, *endpoint)
	for i := 0; i < *count; i++ {
		req := models.SimulationRequest{
			Length:   *length,
			Seed:     *seed + int64(i),
			Spectrum: *spectrum,
		}
		flag.Visit(func(f *flag.Flag) {
			if f.Name == "alpha" {
				req.Alpha = alpha
			}
		})
		if err := requestSimulation(*endpoint, req); err != nil {
			log.Printf("simulation with seed %d failed: %v\n", req.Seed, err)
		}

		if i < *count-1 && *delay > 0 {
			time.Sleep(*delay)
		}
	}
}

func requestSimulation(endpoint string, simReq models.SimulationRequest) error {
	fmt.Printf("→ seed %d\n", simReq.Seed)

	payload, err := json.Marshal(simReq)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("post simulation request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
	}

	var result models.SimulationResult
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("decode simulation response: %w", err)
	}

	fmt.Printf("   samples=%d transitions=%d final=%.4f latency=%.2fms\n",
		result.Trajectory.Len(), result.Transitions, result.Trajectory.Last(), result.LatencyMs)
	return nil
}
