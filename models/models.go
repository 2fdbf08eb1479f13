package models

import (
	"encoding/json"
	"time"
)

// NoiseSeries is f(t) sampled at equally spaced points. Consumers must not mutate it.
type NoiseSeries []float64

// Trajectory holds the state x(t) and its derivative x'(t), index-aligned by time step.
type Trajectory struct {
	States      []float64 `json:"states"`
	Derivatives []float64 `json:"derivatives"`
}

// Len returns the number of time steps in the trajectory.
func (t Trajectory) Len() int {
	return len(t.States)
}

// Last returns the final state value, or 0 for an empty trajectory.
func (t Trajectory) Last() float64 {
	if len(t.States) == 0 {
		return 0
	}
	return t.States[len(t.States)-1]
}

// Level is the index of the width-π basin a state value belongs to.
type Level int

// TransitionMarkers flags with 1 every index whose level differs from the previous sample's.
type TransitionMarkers []int

// Count returns the number of transitions marked.
func (m TransitionMarkers) Count() int {
	n := 0
	for _, v := range m {
		n += v
	}
	return n
}

// TransitionGaps are the distances between consecutive transitions, in steps or in time units.
type TransitionGaps []float64

// Run describes one long-run generation persisted by a run store.
type Run struct {
	ID          string          `json:"id"`
	CreatedAt   time.Time       `json:"createdAt"`
	SeriesPath  string          `json:"seriesPath,omitempty"`
	Spectrum    string          `json:"spectrum"`
	Seed        int64           `json:"seed"`
	StepSize    float64         `json:"stepSize"`
	Alpha       float64         `json:"alpha"`
	Samples     int             `json:"samples"`
	Transitions int             `json:"transitions"`
	FinalState  float64         `json:"finalState"`
	Stats       json.RawMessage `json:"stats,omitempty"`
}

// SimulationRequest is the payload accepted by the HTTP and socket simulate endpoints.
// A nil Alpha selects the configured multiplier; an explicit zero turns the forcing off.
type SimulationRequest struct {
	Length       int      `json:"length"`
	StepSize     float64  `json:"stepSize"`
	Alpha        *float64 `json:"alpha,omitempty"`
	XInit        float64  `json:"xInit"`
	Seed         int64    `json:"seed"`
	FreqLo       int      `json:"freqLo"`
	FreqHi       int      `json:"freqHi"`
	Spectrum     string   `json:"spectrum"`
	WithoutNoise bool     `json:"withoutNoise"`
}

// SimulationResult is what the visualization client receives for one simulation.
type SimulationResult struct {
	Trajectory  Trajectory        `json:"trajectory"`
	Markers     TransitionMarkers `json:"markers"`
	Gaps        TransitionGaps    `json:"gaps"`
	Transitions int               `json:"transitions"`
	LatencyMs   float64           `json:"latencyMs"`
}

// ProbabilityRequest is the payload for the boundary-crossing estimator endpoint.
// A nil Alpha means 1.
type ProbabilityRequest struct {
	XInit     float64  `json:"xInit"`
	StepSize  float64  `json:"stepSize"`
	Noise     float64  `json:"noise"`
	Alpha     *float64 `json:"alpha,omitempty"`
	Diffusion float64  `json:"diffusion"`
}
