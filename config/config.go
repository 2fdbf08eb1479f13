// Package config holds simulation, long-run, storage and server settings.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"bifurcation/models"
	"bifurcation/noise"
	"bifurcation/utils"
)

// Config is the full set of tunables for the simulator and its surfaces.
type Config struct {
	mu sync.RWMutex `toml:"-" json:"-" yaml:"-"`

	Simulation SimulationConfig `toml:"simulation" json:"simulation" yaml:"simulation"`
	Run        RunConfig        `toml:"run" json:"run" yaml:"run"`
	Storage    StorageConfig    `toml:"storage" json:"storage" yaml:"storage"`
	Server     ServerConfig     `toml:"server" json:"server" yaml:"server"`
}

// SimulationConfig parameterizes a single trajectory.
type SimulationConfig struct {
	Length      int     `toml:"length" json:"length" yaml:"length"`
	StepSize    float64 `toml:"step_size" json:"step_size" yaml:"step_size"`
	Alpha       float64 `toml:"alpha" json:"alpha" yaml:"alpha"`
	XInit       float64 `toml:"x_init" json:"x_init" yaml:"x_init"`
	Seed        int64   `toml:"seed" json:"seed" yaml:"seed"`
	FreqLo      int     `toml:"freq_lo" json:"freq_lo" yaml:"freq_lo"`
	FreqHi      int     `toml:"freq_hi" json:"freq_hi" yaml:"freq_hi"`
	Spectrum    string  `toml:"spectrum" json:"spectrum" yaml:"spectrum"`
	ScaleByStep bool    `toml:"scale_by_step" json:"scale_by_step" yaml:"scale_by_step"`
}

// RunConfig controls chunked long-run generation.
type RunConfig struct {
	TotalLength int    `toml:"total_length" json:"total_length" yaml:"total_length"`
	ChunkLength int    `toml:"chunk_length" json:"chunk_length" yaml:"chunk_length"`
	SeedStride  int64  `toml:"seed_stride" json:"seed_stride" yaml:"seed_stride"`
	OutputDir   string `toml:"output_dir" json:"output_dir" yaml:"output_dir"`
	SeriesName  string `toml:"series_name" json:"series_name" yaml:"series_name"`
}

// StorageConfig selects the run store.
type StorageConfig struct {
	Driver        string `toml:"driver" json:"driver" yaml:"driver"`
	SQLitePath    string `toml:"sqlite_path" json:"sqlite_path" yaml:"sqlite_path"`
	MongoURI      string `toml:"mongo_uri" json:"mongo_uri" yaml:"mongo_uri"`
	MongoDatabase string `toml:"mongo_database" json:"mongo_database" yaml:"mongo_database"`
}

// ServerConfig configures the HTTP and socket.io server.
type ServerConfig struct {
	Protocol string `toml:"protocol" json:"protocol" yaml:"protocol"`
	Port     int    `toml:"port" json:"port" yaml:"port"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() *Config {
	return &Config{
		Simulation: SimulationConfig{
			Length:      5000,
			StepSize:    0.1,
			Alpha:       1.0,
			XInit:       0,
			Seed:        0,
			FreqLo:      noise.DefaultFreqLo,
			FreqHi:      noise.DefaultFreqHi,
			Spectrum:    "white",
			ScaleByStep: true,
		},
		Run: RunConfig{
			TotalLength: 1_000_000,
			ChunkLength: 10_000,
			SeedStride:  1,
			OutputDir:   "output",
			SeriesName:  "white_transitions",
		},
		Storage: StorageConfig{
			Driver:        "sqlite",
			SQLitePath:    "db/runs.sqlite3",
			MongoURI:      "mongodb://localhost:27017",
			MongoDatabase: "bifurcation",
		},
		Server: ServerConfig{
			Protocol: "http",
			Port:     5000,
		},
	}
}

// Clone returns a deep copy safe to hand to another goroutine.
func (c *Config) Clone() *Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return &Config{
		Simulation: c.Simulation,
		Run:        c.Run,
		Storage:    c.Storage,
		Server:     c.Server,
	}
}

// ApplyEnvOverrides applies SIM_*, RUN_*, DB_* and PORT variables.
// Unparseable numbers are ignored.
func (c *Config) ApplyEnvOverrides() {
	c.mu.Lock()
	defer c.mu.Unlock()

	envInt(&c.Simulation.Length, "SIM_LENGTH")
	envFloat(&c.Simulation.StepSize, "SIM_STEP_SIZE")
	envFloat(&c.Simulation.Alpha, "SIM_ALPHA")
	envFloat(&c.Simulation.XInit, "SIM_X_INIT")
	envInt64(&c.Simulation.Seed, "SIM_SEED")
	envInt(&c.Simulation.FreqLo, "SIM_FREQ_LO")
	envInt(&c.Simulation.FreqHi, "SIM_FREQ_HI")
	c.Simulation.Spectrum = utils.GetEnv("SIM_SPECTRUM", c.Simulation.Spectrum)
	if v := utils.GetEnv("SIM_SCALE_BY_STEP", ""); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Simulation.ScaleByStep = b
		}
	}

	envInt(&c.Run.TotalLength, "RUN_TOTAL_LENGTH")
	envInt(&c.Run.ChunkLength, "RUN_CHUNK_LENGTH")
	envInt64(&c.Run.SeedStride, "RUN_SEED_STRIDE")
	c.Run.OutputDir = utils.GetEnv("RUN_OUTPUT_DIR", c.Run.OutputDir)
	c.Run.SeriesName = utils.GetEnv("RUN_SERIES_NAME", c.Run.SeriesName)

	c.Storage.Driver = utils.GetEnv("DB_TYPE", c.Storage.Driver)
	c.Storage.SQLitePath = utils.GetEnv("DB_PATH", c.Storage.SQLitePath)
	c.Storage.MongoURI = utils.GetEnv("MONGO_URI", c.Storage.MongoURI)
	c.Storage.MongoDatabase = utils.GetEnv("MONGO_DB", c.Storage.MongoDatabase)

	envInt(&c.Server.Port, "PORT")
	c.Server.Protocol = utils.GetEnv("PROTOCOL", c.Server.Protocol)
}

func envInt(dst *int, key string) {
	if v := utils.GetEnv(key, ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envInt64(dst *int64, key string) {
	if v := utils.GetEnv(key, ""); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func envFloat(dst *float64, key string) {
	if v := utils.GetEnv(key, ""); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

// ValidationError names one offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors collects every problem found by Validate.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Is makes a ValidationErrors match models.ErrInvalidArgument.
func (e ValidationErrors) Is(target error) bool {
	return target == models.ErrInvalidArgument
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var errs ValidationErrors
	add := func(field, format string, args ...interface{}) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	sim := c.Simulation
	if sim.Length < 1 {
		add("simulation.length", "must be positive, got %d", sim.Length)
	}
	if sim.StepSize <= 0 {
		add("simulation.step_size", "must be positive, got %g", sim.StepSize)
	}
	if sim.FreqLo < 0 || sim.FreqHi < sim.FreqLo {
		add("simulation.freq_lo", "invalid frequency range [%d, %d]", sim.FreqLo, sim.FreqHi)
	}
	if _, err := noise.AmplitudeByName(sim.Spectrum); err != nil {
		add("simulation.spectrum", "unknown spectrum %q", sim.Spectrum)
	}

	run := c.Run
	if run.ChunkLength < 1 {
		add("run.chunk_length", "must be positive, got %d", run.ChunkLength)
	}
	if run.TotalLength < 1 {
		add("run.total_length", "must be positive, got %d", run.TotalLength)
	}
	if run.SeriesName == "" {
		add("run.series_name", "must not be empty")
	}

	switch strings.ToLower(c.Storage.Driver) {
	case "sqlite", "mongo", "mongodb", "none":
	default:
		add("storage.driver", "unsupported driver %q", c.Storage.Driver)
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		add("server.port", "out of range: %d", c.Server.Port)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
