package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"bifurcation/config"
	"bifurcation/db"
	"bifurcation/models"
	"bifurcation/noise"
	"bifurcation/simulation"
	"bifurcation/transitions"
	"bifurcation/utils"

	socketio "github.com/googollee/go-socket.io"
	"github.com/googollee/go-socket.io/engineio"
	"github.com/googollee/go-socket.io/engineio/transport"
	"github.com/googollee/go-socket.io/engineio/transport/polling"
	"github.com/googollee/go-socket.io/engineio/transport/websocket"
	"github.com/mdobak/go-xerrors"
)

type apiError struct {
	Message string `json:"message"`
}

type runResponse struct {
	Run  models.Run `json:"run"`
	Gaps []float64  `json:"gaps"`
}

type ticksResponse struct {
	Ticks  []float64 `json:"ticks"`
	Labels []string  `json:"labels"`
}

// maxBodyBytes bounds request payloads; every request type is a handful of numbers.
const maxBodyBytes = 1 << 16

// maxTickSpan bounds the number of π multiples a ticks request may cover.
const maxTickSpan = 10_000

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("failed to encode JSON response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, apiError{Message: message})
}

// statusFor maps error kinds onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNumericalDegeneracy):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// preflight sets the CORS headers and reports whether the request was fully handled.
func preflight(w http.ResponseWriter, r *http.Request, method string) bool {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Access-Control-Allow-Methods", method+", OPTIONS")
	w.Header().Set("Access-Control-Allow-Credentials", "true")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return true
	}
	if r.Method != method {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return true
	}
	return false
}

func newSimulateHandler(settings func() *config.Config) http.HandlerFunc {
	logger := utils.GetLogger()
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if preflight(w, r, http.MethodPost) {
			return
		}

		var req models.SimulationRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
			logger.ErrorContext(ctx, "failed to parse request body", slog.Any("error", err))
			writeJSONError(w, http.StatusBadRequest, "invalid request payload")
			return
		}

		cfg := settings()
		req = simulation.Resolve(req, cfg.Simulation)
		result, err := simulation.Simulate(noise.NewSource(req.Seed), req, cfg.Simulation.ScaleByStep)
		if err != nil {
			status := statusFor(err)
			if status == http.StatusInternalServerError {
				logger.ErrorContext(ctx, "simulation failed", slog.Any("error", xerrors.New(err)))
			}
			writeJSONError(w, status, err.Error())
			return
		}

		logger.InfoContext(ctx, "simulation complete",
			slog.Int("length", req.Length),
			slog.String("spectrum", req.Spectrum),
			slog.Int("transitions", result.Transitions),
			slog.Float64("latency_ms", result.LatencyMs),
		)
		writeJSON(w, http.StatusOK, result)
	}
}

func newProbabilityHandler() http.HandlerFunc {
	logger := utils.GetLogger()
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if preflight(w, r, http.MethodPost) {
			return
		}

		var req models.ProbabilityRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
			logger.ErrorContext(ctx, "failed to parse request body", slog.Any("error", err))
			writeJSONError(w, http.StatusBadRequest, "invalid request payload")
			return
		}

		terms, err := simulation.Probability(req)
		if err != nil {
			writeJSONError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, terms)
	}
}

// newRunsHandler lists stored runs, or returns one run with its gaps when ?id= is given.
func newRunsHandler(store db.RunStore) http.HandlerFunc {
	logger := utils.GetLogger()
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if preflight(w, r, http.MethodGet) {
			return
		}
		if store == nil {
			writeJSONError(w, http.StatusServiceUnavailable, "run storage is disabled")
			return
		}

		id := strings.TrimSpace(r.URL.Query().Get("id"))
		if id == "" {
			runs, err := store.ListRuns(ctx)
			if err != nil {
				logger.ErrorContext(ctx, "failed to list runs", slog.Any("error", xerrors.New(err)))
				writeJSONError(w, http.StatusInternalServerError, "failed to list runs")
				return
			}
			writeJSON(w, http.StatusOK, runs)
			return
		}

		run, ok, err := store.GetRun(ctx, id)
		if err != nil {
			logger.ErrorContext(ctx, "failed to load run", slog.String("id", id), slog.Any("error", xerrors.New(err)))
			writeJSONError(w, http.StatusInternalServerError, "failed to load run")
			return
		}
		if !ok {
			writeJSONError(w, http.StatusNotFound, "run not found")
			return
		}
		gaps, err := store.GetGaps(ctx, id)
		if err != nil {
			logger.ErrorContext(ctx, "failed to load gaps", slog.String("id", id), slog.Any("error", xerrors.New(err)))
			writeJSONError(w, http.StatusInternalServerError, "failed to load gaps")
			return
		}
		writeJSON(w, http.StatusOK, runResponse{Run: run, Gaps: gaps})
	}
}

func newTicksHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if preflight(w, r, http.MethodGet) {
			return
		}

		query := r.URL.Query()
		bounds := map[string]int{"start": -3, "stop": 4, "step": 1}
		for key := range bounds {
			raw := query.Get(key)
			if raw == "" {
				continue
			}
			v, err := strconv.Atoi(raw)
			if err != nil {
				writeJSONError(w, http.StatusBadRequest, "invalid "+key)
				return
			}
			bounds[key] = v
		}
		start, stop := bounds["start"], bounds["stop"]
		if bounds["step"] <= 0 || stop < start || stop > start+maxTickSpan {
			writeJSONError(w, http.StatusBadRequest, "invalid tick range")
			return
		}

		ticks, labels := transitions.LevelTicks(start, stop, bounds["step"])
		if ticks == nil {
			ticks, labels = []float64{}, []string{}
		}
		writeJSON(w, http.StatusOK, ticksResponse{Ticks: ticks, Labels: labels})
	}
}

func newMux(socketServer http.Handler, settings func() *config.Config, store db.RunStore) *http.ServeMux {
	mux := http.NewServeMux()
	if socketServer != nil {
		mux.Handle("/socket.io/", socketServer)
	}
	mux.HandleFunc("/api/simulate", newSimulateHandler(settings))
	mux.HandleFunc("/api/probability", newProbabilityHandler())
	mux.HandleFunc("/api/runs", newRunsHandler(store))
	mux.HandleFunc("/api/ticks", newTicksHandler())
	mux.Handle("/", http.FileServer(http.Dir("static")))
	return mux
}

func serve(configPath, protocol, port string) {
	logger := utils.GetLogger()
	ctx := context.Background()

	var allowOriginFunc = func(r *http.Request) bool {
		return true
	}

	loader := config.NewLoader(configPath)
	cfg, err := loader.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if _, err := os.Stat(configPath); err == nil {
		loader.OnChange(func(c *config.Config) {
			logger.InfoContext(ctx, "configuration reloaded",
				slog.Int("length", c.Simulation.Length),
				slog.Float64("step_size", c.Simulation.StepSize),
				slog.String("spectrum", c.Simulation.Spectrum),
			)
		})
		if err := loader.Watch(); err != nil {
			logger.WarnContext(ctx, "config hot reload disabled", slog.Any("error", err))
		} else {
			go func() {
				for err := range loader.Errors() {
					logger.WarnContext(ctx, "config reload failed", slog.Any("error", err))
				}
			}()
		}
	}
	defer loader.Close()

	if protocol == "" {
		protocol = cfg.Server.Protocol
	}
	protocol = strings.ToLower(protocol)
	if port == "" {
		port = strconv.Itoa(cfg.Server.Port)
	}

	store, err := db.NewDBClient(ctx, cfg.Storage)
	if err != nil {
		logger.WarnContext(ctx, "run storage unavailable", slog.Any("error", xerrors.New(err)))
		store = nil
	}
	if store != nil {
		defer store.Close()
	}

	controller := newSocketController(loader.Config)

	server := socketio.NewServer(&engineio.Options{
		PingTimeout:  60 * time.Second,
		PingInterval: 25 * time.Second,
		Transports: []transport.Transport{
			&websocket.Transport{
				CheckOrigin: allowOriginFunc,
			},
			&polling.Transport{
				CheckOrigin: allowOriginFunc,
			},
		},
	})

	server.OnConnect("/", func(socket socketio.Conn) error {
		socket.SetContext("")
		connURL := socket.URL()
		log.Printf("CONNECTED: %s, transport: %s, remote addr: %s\n", socket.ID(), connURL.String(), socket.RemoteAddr())
		controller.emitDefaults(socket)
		return nil
	})

	server.OnEvent("/", "requestDefaults", func(socket socketio.Conn) {
		controller.emitDefaults(socket)
	})

	server.OnEvent("/", "simulate", func(socket socketio.Conn, msg string) {
		go func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("panic in handleSimulate for socket %s: %v\n", socket.ID(), r)
					socket.Emit("simulationError", apiError{Message: "internal server error during simulation"})
				}
			}()
			controller.handleSimulate(socket, msg)
		}()
	})

	server.OnError("/", func(s socketio.Conn, e error) {
		log.Println("meet error:", e)
	})

	server.OnDisconnect("/", func(s socketio.Conn, reason string) {
		log.Printf("Socket disconnected - ID: %s, Reason: %s\n", s.ID(), reason)
	})

	go func() {
		if err := server.Serve(); err != nil {
			log.Fatalf("socketio listen error: %s\n", err)
		}
	}()
	defer server.Close()

	serveHTTP(protocol == "https", port, newMux(server, loader.Config, store))
}

func serveHTTP(serveHTTPS bool, port string, handler http.Handler) {
	if serveHTTPS {
		httpsServer := &http.Server{
			Addr: ":" + port,
			TLSConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
			Handler: handler,
		}

		certKey := utils.GetEnv("CERT_KEY", "")
		certFile := utils.GetEnv("CERT_FILE", "")
		if certKey == "" || certFile == "" {
			log.Fatal("Missing cert: set CERT_KEY and CERT_FILE")
		}

		log.Printf("Starting HTTPS server on %s\n", httpsServer.Addr)
		if err := httpsServer.ListenAndServeTLS(certFile, certKey); err != nil {
			log.Fatalf("HTTPS server ListenAndServeTLS: %v", err)
		}
		return
	}

	log.Printf("Starting HTTP server on port %v", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatalf("HTTP server ListenAndServe: %v", err)
	}
}
