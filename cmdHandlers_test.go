package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"bifurcation/boundary"
	"bifurcation/config"
	"bifurcation/db"
	"bifurcation/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSettings() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Simulation.Length = 300
	cfg.Simulation.FreqHi = 25
	return cfg
}

func newTestServer(t *testing.T, store db.RunStore) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(newMux(nil, testSettings, store))
	t.Cleanup(srv.Close)
	return srv
}

func TestSimulateEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := http.Post(srv.URL+"/api/simulate", "application/json", strings.NewReader(`{"seed":2,"alpha":2}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	var result models.SimulationResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Len(t, result.Trajectory.States, 300)
	assert.Len(t, result.Markers, 300)
	assert.Equal(t, result.Markers.Count(), result.Transitions)
	assert.Len(t, result.Gaps, result.Transitions)
}

func TestSimulateEndpoint_ZeroAlphaDisablesForcing(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := http.Post(srv.URL+"/api/simulate", "application/json", strings.NewReader(`{"seed":2,"alpha":0,"xInit":0}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result models.SimulationResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	require.Len(t, result.Trajectory.States, 300)
	for i, x := range result.Trajectory.States {
		require.Zero(t, x, "state %d", i)
	}
	assert.Zero(t, result.Transitions)
}

func TestSimulateEndpointErrors(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		name   string
		method string
		body   string
		status int
	}{
		{"malformed body", http.MethodPost, `{"length":`, http.StatusBadRequest},
		{"negative length", http.MethodPost, `{"length":-5}`, http.StatusBadRequest},
		{"unknown spectrum", http.MethodPost, `{"spectrum":"blue"}`, http.StatusBadRequest},
		{"inverted band", http.MethodPost, `{"freqLo":50,"freqHi":10}`, http.StatusBadRequest},
		{"negative band", http.MethodPost, `{"freqLo":-3,"freqHi":10}`, http.StatusBadRequest},
		{"oversized band", http.MethodPost, `{"freqLo":1,"freqHi":9223372036854775807}`, http.StatusBadRequest},
		{"wrong method", http.MethodGet, ``, http.StatusMethodNotAllowed},
		{"preflight", http.MethodOptions, ``, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, srv.URL+"/api/simulate", strings.NewReader(tt.body))
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestProbabilityEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := http.Post(srv.URL+"/api/probability", "application/json", strings.NewReader(`{"xInit":0.3,"stepSize":1}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var terms boundary.Terms
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&terms))
	want, err := boundary.HitBoundaryProbabilityDefault(0.3, 1, 0, 1)
	require.NoError(t, err)
	assert.InDelta(t, want, terms.Probability, 1e-15)

	degenerate, err := http.Post(srv.URL+"/api/probability", "application/json", strings.NewReader(`{"xInit":0.3,"stepSize":0}`))
	require.NoError(t, err)
	degenerate.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, degenerate.StatusCode)

	negative, err := http.Post(srv.URL+"/api/probability", "application/json", strings.NewReader(`{"xInit":0.3,"stepSize":1,"diffusion":-1}`))
	require.NoError(t, err)
	negative.Body.Close()
	assert.Equal(t, http.StatusBadRequest, negative.StatusCode)
}

func TestRunsEndpoint(t *testing.T) {
	unavailable := newTestServer(t, nil)
	resp, err := http.Get(unavailable.URL + "/api/runs")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	store, err := db.NewSQLiteClient(filepath.Join(t.TempDir(), "runs.sqlite3"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()
	require.NoError(t, store.SaveRun(ctx, models.Run{ID: "r1", Spectrum: "white", Samples: 10}))
	require.NoError(t, store.SaveGaps(ctx, "r1", []float64{0.4, 0.2}))

	srv := newTestServer(t, store)

	resp, err = http.Get(srv.URL + "/api/runs")
	require.NoError(t, err)
	var runs []models.Run
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&runs))
	resp.Body.Close()
	require.Len(t, runs, 1)
	assert.Equal(t, "r1", runs[0].ID)

	resp, err = http.Get(srv.URL + "/api/runs?id=r1")
	require.NoError(t, err)
	var one runResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&one))
	resp.Body.Close()
	assert.Equal(t, 10, one.Run.Samples)
	assert.Equal(t, []float64{0.4, 0.2}, one.Gaps)

	resp, err = http.Get(srv.URL + "/api/runs?id=missing")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTicksEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/api/ticks?start=-1&stop=3")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var ticks ticksResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ticks))
	assert.Equal(t, []string{"-π", "0", "π", "2π"}, ticks.Labels)
	assert.Len(t, ticks.Ticks, 4)

	bad, err := http.Get(srv.URL + "/api/ticks?step=0")
	require.NoError(t, err)
	bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestTicksEndpoint_RejectsOversizedRanges(t *testing.T) {
	srv := newTestServer(t, nil)

	for _, query := range []string{
		"start=-5000000000000000000&stop=5000000000000000000",
		"start=0&stop=10001",
		"start=3&stop=1",
		"start=9223372036854775000&stop=9223372036854775807",
	} {
		resp, err := http.Get(srv.URL + "/api/ticks?" + query)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, query)
	}
}

type recordingSocket struct {
	mu     sync.Mutex
	events []string
	values []interface{}
}

func (s *recordingSocket) ID() string { return "test-socket" }

func (s *recordingSocket) Emit(event string, v ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	if len(v) > 0 {
		s.values = append(s.values, v[0])
	} else {
		s.values = append(s.values, nil)
	}
}

func TestSocketControllerSimulate(t *testing.T) {
	controller := newSocketController(testSettings)
	socket := &recordingSocket{}

	controller.handleSimulate(socket, `{"withoutNoise":true,"xInit":0.5,"length":50}`)
	require.Equal(t, []string{"simulation"}, socket.events)
	result, ok := socket.values[0].(models.SimulationResult)
	require.True(t, ok)
	assert.Len(t, result.Trajectory.States, 50)
	assert.Greater(t, result.Trajectory.Last(), 0.5)

	controller.handleSimulate(socket, `not json`)
	controller.handleSimulate(socket, `{"length":-1}`)
	assert.Equal(t, []string{"simulation", "simulationError", "simulationError"}, socket.events)
}

func TestSocketControllerDefaults(t *testing.T) {
	controller := newSocketController(testSettings)
	socket := &recordingSocket{}

	controller.emitDefaults(socket)
	require.Equal(t, []string{"defaults"}, socket.events)
	assert.Equal(t, testSettings().Simulation, socket.values[0])
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(models.InvalidArgument("x")))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(models.Degenerate("x")))
	assert.Equal(t, http.StatusInternalServerError, statusFor(models.IOFailure("read", assert.AnError)))
}

func TestParseSweep(t *testing.T) {
	lo, hi, n, err := parseSweep("0.01:1:5")
	require.NoError(t, err)
	assert.Equal(t, 0.01, lo)
	assert.Equal(t, 1.0, hi)
	assert.Equal(t, 5, n)

	_, _, _, err = parseSweep("0.01:1")
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}
