package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"bifurcation/boundary"
	"bifurcation/config"
	"bifurcation/db"
	"bifurcation/generator"
	"bifurcation/models"
	"bifurcation/noise"
	"bifurcation/series"
	"bifurcation/simulation"
	"bifurcation/transitions"
	"bifurcation/utils"

	"github.com/joho/godotenv"
	"github.com/mdobak/go-xerrors"
)

const usage = "Expected one of 'simulate', 'generate', 'gaps', 'probability' or 'serve' subcommands"

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}
	_ = godotenv.Load()

	var err error
	switch os.Args[1] {
	case "simulate":
		err = simulateCmd(os.Args[2:])
	case "generate":
		err = generateCmd(os.Args[2:])
	case "gaps":
		err = gapsCmd(os.Args[2:])
	case "probability":
		err = probabilityCmd(os.Args[2:])
	case "serve":
		serveCmd := flag.NewFlagSet("serve", flag.ExitOnError)
		protocol := serveCmd.String("proto", "", "Protocol to use (http or https)")
		port := serveCmd.String("p", "", "Port to use")
		configPath := serveCmd.String("config", defaultConfigPath(), "Configuration file")
		serveCmd.Parse(os.Args[2:])
		serve(*configPath, *protocol, *port)
	default:
		fmt.Println(usage)
		os.Exit(1)
	}

	if err != nil {
		logger := utils.GetLogger()
		logger.ErrorContext(context.Background(), "command failed",
			slog.String("command", os.Args[1]),
			slog.Any("error", xerrors.New(err)),
		)
		os.Exit(exitCode(err))
	}
}

func defaultConfigPath() string {
	return utils.GetEnv("CONFIG_PATH", "config.toml")
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidArgument):
		return 2
	case generator.IsCancelled(err):
		return 130
	default:
		return 1
	}
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func simulateCmd(args []string) error {
	fs := flag.NewFlagSet("simulate", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath(), "Configuration file")
	length := fs.Int("n", 0, "Number of samples (0 uses the configured length)")
	step := fs.Float64("h", 0, "Step size (0 uses the configured step)")
	alpha := fs.Float64("alpha", 0, "Noise multiplier (omit to use the configured alpha)")
	xInit := fs.Float64("x0", 0, "Initial state")
	seed := fs.Int64("seed", 0, "Noise seed")
	spectrum := fs.String("spectrum", "", "Noise spectrum: white, pink or brown")
	freqLo := fs.Int("freq-lo", 0, "Lowest noise frequency")
	freqHi := fs.Int("freq-hi", 0, "Highest noise frequency")
	withoutNoise := fs.Bool("no-noise", false, "Integrate without forcing")
	full := fs.Bool("full", false, "Print the whole trajectory instead of a summary")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	req := simulation.Resolve(models.SimulationRequest{
		Length:       *length,
		StepSize:     *step,
		Alpha:        setFloat(fs, "alpha", alpha),
		XInit:        *xInit,
		Seed:         *seed,
		FreqLo:       *freqLo,
		FreqHi:       *freqHi,
		Spectrum:     *spectrum,
		WithoutNoise: *withoutNoise,
	}, cfg.Simulation)

	result, err := simulation.Simulate(noise.NewSource(req.Seed), req, cfg.Simulation.ScaleByStep)
	if err != nil {
		return err
	}
	if *full {
		return printJSON(result)
	}

	out := struct {
		Samples     int                   `json:"samples"`
		Transitions int                   `json:"transitions"`
		FinalState  float64               `json:"finalState"`
		FinalLevel  models.Level          `json:"finalLevel"`
		Stats       *transitions.GapStats `json:"stats,omitempty"`
		LatencyMs   float64               `json:"latencyMs"`
	}{
		Samples:     result.Trajectory.Len(),
		Transitions: result.Transitions,
		FinalState:  result.Trajectory.Last(),
		FinalLevel:  transitions.LevelOf(result.Trajectory.Last()),
		LatencyMs:   result.LatencyMs,
	}
	if len(result.Gaps) > 0 {
		stats, err := transitions.Summarize(result.Gaps)
		if err != nil {
			return err
		}
		out.Stats = &stats
	}
	return printJSON(out)
}

func generateCmd(args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath(), "Configuration file")
	reset := fs.Bool("reset", false, "Remove the existing series file before generating")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *reset {
		if err := series.Reset(series.SeriesPath(cfg.Run.OutputDir, cfg.Run.SeriesName)); err != nil {
			return err
		}
	}

	store, err := db.NewDBClient(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	summary, err := generator.Run(ctx, noise.NewSource(cfg.Simulation.Seed), cfg, store)
	if err != nil {
		return err
	}
	return printJSON(summary)
}

func gapsCmd(args []string) error {
	fs := flag.NewFlagSet("gaps", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath(), "Configuration file")
	file := fs.String("file", "", "Series file (defaults to the configured series)")
	runID := fs.String("run", "", "Read gaps of a stored run instead of a series file")
	bins := fs.Int("bins", 0, "Also print a histogram with this many bins")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	var gaps []float64
	if *runID != "" {
		ctx := context.Background()
		store, err := db.NewDBClient(ctx, cfg.Storage)
		if err != nil {
			return err
		}
		if store == nil {
			return models.InvalidArgument("storage is disabled, cannot look up run %s", *runID)
		}
		defer store.Close()

		if _, ok, err := store.GetRun(ctx, *runID); err != nil {
			return err
		} else if !ok {
			return models.InvalidArgument("unknown run %s", *runID)
		}
		if gaps, err = store.GetGaps(ctx, *runID); err != nil {
			return err
		}
	} else {
		path := *file
		if path == "" {
			path = series.SeriesPath(cfg.Run.OutputDir, cfg.Run.SeriesName)
		}
		markers, err := series.ReadSeries(path)
		if err != nil {
			return err
		}
		steps, err := transitions.GapsFromMarkers(markers)
		if err != nil {
			return err
		}
		gaps = transitions.IntsToFloats(steps)
	}

	stats, err := transitions.Summarize(gaps)
	if err != nil {
		return err
	}
	out := map[string]interface{}{"stats": stats}
	if *bins > 0 {
		edges, counts, err := transitions.Histogram(gaps, *bins)
		if err != nil {
			return err
		}
		out["edges"] = edges
		out["counts"] = counts
	}
	return printJSON(out)
}

func probabilityCmd(args []string) error {
	fs := flag.NewFlagSet("probability", flag.ExitOnError)
	xInit := fs.Float64("x0", 0, "Initial state")
	step := fs.Float64("h", 0.1, "Step size")
	ft := fs.Float64("f", 0, "Noise sample")
	alpha := fs.Float64("alpha", 1, "Noise multiplier")
	diffusion := fs.Float64("d", 0, "Diffusion coefficient (0 uses the step size, negative is rejected)")
	sweep := fs.String("sweep", "", "Sweep step sizes as lo:hi:n instead of a single estimate")
	fs.Parse(args)

	if *sweep != "" {
		lo, hi, n, err := parseSweep(*sweep)
		if err != nil {
			return err
		}
		steps, err := boundary.GeometricSteps(lo, hi, n)
		if err != nil {
			return err
		}
		points, err := boundary.SweepStepSizes(*xInit, *ft, *alpha, steps)
		if err != nil {
			return err
		}
		return printJSON(points)
	}

	terms, err := simulation.Probability(models.ProbabilityRequest{
		XInit:     *xInit,
		StepSize:  *step,
		Noise:     *ft,
		Alpha:     alpha,
		Diffusion: *diffusion,
	})
	if err != nil {
		return err
	}
	return printJSON(terms)
}

// setFloat returns value only when the named flag was given on the command line.
func setFloat(fs *flag.FlagSet, name string, value *float64) *float64 {
	var set bool
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	if !set {
		return nil
	}
	return value
}

func parseSweep(value string) (float64, float64, int, error) {
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return 0, 0, 0, models.InvalidArgument("sweep must look like lo:hi:n, got %q", value)
	}
	lo, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, 0, 0, models.InvalidArgument("sweep lower bound %q", parts[0])
	}
	hi, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, 0, 0, models.InvalidArgument("sweep upper bound %q", parts[1])
	}
	n, err := strconv.Atoi(parts[2])
	if err != nil {
		return 0, 0, 0, models.InvalidArgument("sweep point count %q", parts[2])
	}
	return lo, hi, n, nil
}
