package main

import (
	"context"
	"encoding/json"
	"log/slog"

	"bifurcation/config"
	"bifurcation/models"
	"bifurcation/noise"
	"bifurcation/simulation"
	"bifurcation/utils"

	socketio "github.com/googollee/go-socket.io"
	"github.com/mdobak/go-xerrors"
)

// emitter is the part of socketio.Conn the controller writes to.
type emitter interface {
	ID() string
	Emit(event string, v ...interface{})
}

var _ emitter = socketio.Conn(nil)

type socketController struct {
	settings func() *config.Config
}

func newSocketController(settings func() *config.Config) *socketController {
	return &socketController{settings: settings}
}

func (c *socketController) emitDefaults(socket emitter) {
	socket.Emit("defaults", c.settings().Simulation)
}

// handleSimulate runs one simulation per event. Each call owns its random source, so
// concurrent sockets never share generator state.
func (c *socketController) handleSimulate(socket emitter, payload string) {
	logger := utils.GetLogger()
	ctx := context.Background()

	var req models.SimulationRequest
	if payload != "" {
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			logger.ErrorContext(ctx, "failed to parse simulate payload", slog.Any("error", xerrors.New(err)))
			socket.Emit("simulationError", apiError{Message: "invalid simulation payload"})
			return
		}
	}

	cfg := c.settings()
	req = simulation.Resolve(req, cfg.Simulation)
	result, err := simulation.Simulate(noise.NewSource(req.Seed), req, cfg.Simulation.ScaleByStep)
	if err != nil {
		logger.ErrorContext(ctx, "simulation failed",
			slog.String("socketID", socket.ID()),
			slog.Any("error", xerrors.New(err)),
		)
		socket.Emit("simulationError", apiError{Message: err.Error()})
		return
	}

	logger.InfoContext(ctx, "emitting simulation result",
		slog.String("socketID", socket.ID()),
		slog.Int("length", req.Length),
		slog.Int("transitions", result.Transitions),
		slog.Float64("latency_ms", result.LatencyMs),
	)
	socket.Emit("simulation", result)
}
