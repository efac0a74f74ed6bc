// Package server exposes the agent's command registry over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"runtime"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/MockingJay1710/buddyai/internal/bus"
	"github.com/MockingJay1710/buddyai/internal/command"
	btel "github.com/MockingJay1710/buddyai/internal/otel"
	"github.com/MockingJay1710/buddyai/internal/shared"
	"github.com/MockingJay1710/buddyai/internal/store"
)

type Config struct {
	Registry *command.Registry
	Store    *store.Store
	Bus      *bus.Bus
	Logger   *slog.Logger

	Tracer  trace.Tracer
	Metrics *btel.Metrics

	// ConfigFingerprint is the hash of the active config exposed in /healthz.
	ConfigFingerprint string
}

type Server struct {
	cfg     Config
	started time.Time
}

func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = nooptrace.NewTracerProvider().Tracer(btel.TracerName)
	}
	return &Server{cfg: cfg, started: time.Now()}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/commands_schema", s.handleCommandsSchema)
	mux.HandleFunc("/execute", s.handleExecute)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/events", s.handleEvents)
	return mux
}

type executeRequest struct {
	CommandName string         `json:"command_name"`
	Params      map[string]any `json:"params"`
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"service":  "buddyai-agent",
		"status":   "running",
		"commands": s.cfg.Registry.Len(),
	})
}

func (s *Server) handleCommandsSchema(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, s.cfg.Registry.WireSchema())
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		writeError(w, http.StatusBadRequest, "request body must be application/json")
		return
	}

	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if req.CommandName == "" {
		writeError(w, http.StatusBadRequest, "missing command_name")
		return
	}

	ctx := shared.WithRequestID(r.Context(), "")
	ctx, span := btel.StartServerSpan(ctx, s.cfg.Tracer, "execute",
		btel.AttrCommand.String(req.CommandName),
		btel.AttrRequestID.String(shared.RequestID(ctx)),
	)
	defer span.End()

	start := time.Now()
	result, err := s.cfg.Registry.Dispatch(ctx, req.CommandName, req.Params)
	duration := time.Since(start)

	s.record(ctx, req.CommandName, req.Params, err, duration)

	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, command.ErrUnknownCommand):
			status = http.StatusNotFound
		case command.IsInvalidParams(err):
			status = http.StatusBadRequest
		}
		s.cfg.Logger.Warn("command failed",
			"command", req.CommandName,
			"status", status,
			"duration_ms", duration.Milliseconds(),
			"request_id", shared.RequestID(ctx),
			"error", err)
		writeError(w, status, err.Error())
		return
	}

	s.cfg.Logger.Info("command executed",
		"command", req.CommandName,
		"duration_ms", duration.Milliseconds(),
		"request_id", shared.RequestID(ctx))
	writeJSON(w, http.StatusOK, result)
}

// record persists the dispatch outcome and fans it out to the bus and
// metric instruments. Best effort, dispatch results are not affected.
func (s *Server) record(ctx context.Context, name string, params map[string]any, dispatchErr error, duration time.Duration) {
	event := bus.CommandEvent{
		Command:    name,
		DurationMS: duration.Milliseconds(),
	}
	status := store.CommandOK
	topic := bus.TopicCommandExecuted
	errText := ""
	if dispatchErr != nil {
		status = store.CommandFailed
		topic = bus.TopicCommandFailed
		errText = dispatchErr.Error()
		event.Error = errText
	}

	if s.cfg.Store != nil {
		entry := store.CommandLogEntry{
			Command:  name,
			Params:   params,
			Status:   status,
			Error:    errText,
			Duration: duration,
		}
		if err := s.cfg.Store.RecordCommand(ctx, entry); err != nil {
			s.cfg.Logger.Warn("command log write failed", "command", name, "error", err)
		}
	}
	if s.cfg.Bus != nil {
		s.cfg.Bus.Publish(topic, event)
	}
	if s.cfg.Metrics != nil {
		if dispatchErr != nil {
			s.cfg.Metrics.CommandsFailed.Add(ctx, 1)
		} else {
			s.cfg.Metrics.CommandsExecuted.Add(ctx, 1)
		}
		s.cfg.Metrics.CommandDuration.Record(ctx, duration.Seconds())
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	dbOK := true
	var pending int64
	if s.cfg.Store != nil {
		n, err := s.cfg.Store.PendingReminderCount(ctx)
		if err != nil {
			dbOK = false
		}
		pending = n
	}

	payload := map[string]any{
		"healthy":            dbOK,
		"db_ok":              dbOK,
		"commands":           s.cfg.Registry.Len(),
		"pending_reminders":  pending,
		"config_fingerprint": s.cfg.ConfigFingerprint,
		"uptime_seconds":     int64(time.Since(s.started).Seconds()),
	}
	status := http.StatusOK
	if !dbOK {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, payload)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	mem := &runtime.MemStats{}
	runtime.ReadMemStats(mem)

	payload := map[string]any{
		"alloc_bytes": mem.Alloc,
		"goroutines":  runtime.NumGoroutine(),
		"commands":    s.cfg.Registry.Len(),
	}
	if s.cfg.Store != nil {
		if counts, err := s.cfg.Store.TotalCommandCounts(ctx); err == nil {
			payload["commands_executed"] = counts.Executed
			payload["commands_failed"] = counts.Failed
		}
		if breakdown, err := s.cfg.Store.CommandBreakdown(ctx); err == nil {
			payload["per_command"] = breakdown
		}
	}
	if s.cfg.Bus != nil {
		payload["event_subscribers"] = s.cfg.Bus.SubscriberCount()
	}
	writeJSON(w, http.StatusOK, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Status: "error", Message: message})
}
