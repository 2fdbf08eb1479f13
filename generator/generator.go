package generator

// Long-run generation
//
// A long series is produced in fixed-size chunks. Chunk k draws its noise with
// seed + k·stride and starts from the last state of chunk k-1, so its first sample repeats
// that state and never carries a marker. Markers are appended to the series file chunk by
// chunk and fed to a gap counter that carries the open run across chunk boundaries, so
// memory holds one chunk of noise and states plus one gap per transition.

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"bifurcation/config"
	"bifurcation/db"
	"bifurcation/models"
	"bifurcation/noise"
	"bifurcation/series"
	"bifurcation/trajectory"
	"bifurcation/transitions"
	"bifurcation/utils"

	"github.com/google/uuid"
	"github.com/mdobak/go-xerrors"
)

// Summary reports what a Run produced.
type Summary struct {
	RunID       string                `json:"runId"`
	SeriesPath  string                `json:"seriesPath"`
	Chunks      int                   `json:"chunks"`
	Samples     int                   `json:"samples"`
	Transitions int                   `json:"transitions"`
	FinalState  float64               `json:"finalState"`
	Gaps        []float64             `json:"-"`
	Stats       *transitions.GapStats `json:"stats,omitempty"`
	Elapsed     time.Duration         `json:"elapsed"`
}

// Run generates cfg.Run.TotalLength samples and appends their transition markers to the
// series file. The last chunk is shortened so exactly TotalLength markers are written.
// store may be nil. Cancelling ctx stops generation between chunks; chunks already
// written stay in the file.
func Run(ctx context.Context, src *noise.Source, cfg *config.Config, store db.RunStore) (Summary, error) {
	if src == nil {
		return Summary{}, models.InvalidArgument("nil random source")
	}
	if err := cfg.Validate(); err != nil {
		return Summary{}, err
	}

	logger := utils.GetLogger()
	sim := cfg.Simulation
	runCfg := cfg.Run

	amplitude, err := noise.AmplitudeByName(sim.Spectrum)
	if err != nil {
		return Summary{}, err
	}
	frequencies := noise.Frequencies(sim.FreqLo, sim.FreqHi)

	summary := Summary{
		RunID:      uuid.NewString(),
		SeriesPath: series.SeriesPath(runCfg.OutputDir, runCfg.SeriesName),
	}
	started := time.Now()
	logger.InfoContext(ctx, "starting long run",
		slog.String("run_id", summary.RunID),
		slog.String("series", summary.SeriesPath),
		slog.Int("total", runCfg.TotalLength),
		slog.Int("chunk", runCfg.ChunkLength),
		slog.String("spectrum", sim.Spectrum),
	)

	var counter transitions.GapCounter
	state := sim.XInit
	for produced := 0; produced < runCfg.TotalLength; summary.Chunks++ {
		if err := ctx.Err(); err != nil {
			logger.WarnContext(ctx, "long run cancelled",
				slog.String("run_id", summary.RunID),
				slog.Int("samples", produced),
			)
			return summary, err
		}

		length := runCfg.ChunkLength
		if remaining := runCfg.TotalLength - produced; remaining < length {
			length = remaining
		}
		seed := sim.Seed + int64(summary.Chunks)*runCfg.SeedStride

		f, err := noise.GenerateNoise(src, length, amplitude, frequencies, seed)
		if err != nil {
			return summary, err
		}
		traj, err := trajectory.GetSamples(src, length, state, seed, f, sim.StepSize, sim.Alpha)
		if err != nil {
			return summary, err
		}
		chunkMarkers, err := transitions.MarkTransitions(traj.States)
		if err != nil {
			return summary, err
		}
		if err := series.AppendSeries(summary.SeriesPath, chunkMarkers); err != nil {
			return summary, err
		}

		if err := counter.Add(chunkMarkers); err != nil {
			return summary, err
		}

		state = traj.Last()
		produced += length
		summary.Samples = produced
		summary.Transitions += chunkMarkers.Count()

		logger.DebugContext(ctx, "chunk written",
			slog.Int("chunk", summary.Chunks),
			slog.Int64("seed", seed),
			slog.Int("transitions", chunkMarkers.Count()),
		)
	}
	summary.FinalState = state

	steps := counter.Gaps()
	unit := 1.0
	if sim.ScaleByStep {
		unit = sim.StepSize
	}
	summary.Gaps = transitions.IntsToFloats(steps)
	for i := range summary.Gaps {
		summary.Gaps[i] *= unit
	}
	if len(summary.Gaps) > 0 {
		stats, err := transitions.Summarize(summary.Gaps)
		if err != nil {
			return summary, err
		}
		summary.Stats = &stats
	}
	summary.Elapsed = time.Since(started)

	if store != nil {
		if err := persist(ctx, store, cfg, summary); err != nil {
			logger.ErrorContext(ctx, "failed to persist run", slog.Any("error", xerrors.New(err)))
			return summary, err
		}
	}

	logger.InfoContext(ctx, "long run finished",
		slog.String("run_id", summary.RunID),
		slog.Int("samples", summary.Samples),
		slog.Int("transitions", summary.Transitions),
		slog.Duration("elapsed", summary.Elapsed),
	)
	return summary, nil
}

func persist(ctx context.Context, store db.RunStore, cfg *config.Config, summary Summary) error {
	run := models.Run{
		ID:          summary.RunID,
		CreatedAt:   time.Now().UTC(),
		SeriesPath:  summary.SeriesPath,
		Spectrum:    cfg.Simulation.Spectrum,
		Seed:        cfg.Simulation.Seed,
		StepSize:    cfg.Simulation.StepSize,
		Alpha:       cfg.Simulation.Alpha,
		Samples:     summary.Samples,
		Transitions: summary.Transitions,
		FinalState:  summary.FinalState,
	}
	if summary.Stats != nil {
		raw, err := json.Marshal(summary.Stats)
		if err != nil {
			return err
		}
		run.Stats = raw
	}

	if err := store.SaveRun(ctx, run); err != nil {
		return err
	}
	return store.SaveGaps(ctx, run.ID, summary.Gaps)
}

// IsCancelled reports whether err came from a cancelled or expired context.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
