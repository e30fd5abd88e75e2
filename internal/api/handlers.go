package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/nerrad567/relay-sequencer/internal/controller"
	"github.com/nerrad567/relay-sequencer/internal/speed"
)

// healthCheckTimeout bounds each dependency check in /api/v1/health.
const healthCheckTimeout = 2 * time.Second

// handleStatus returns the current {sequenceID, speed}.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.ctrl.Status(r.Context())
	if err != nil {
		s.writeControllerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleRPC executes a setDefault or setSequence command.
func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeBadRequest(w, "reading request body: "+err.Error())
		return
	}

	cmd, err := controller.ParseCommand(body)
	if err != nil {
		var fieldErr *controller.FieldError
		if errors.As(err, &fieldErr) {
			writeBadRequest(w, fieldErr.Error())
			return
		}
		writeBadRequest(w, "request body must be a JSON object")
		return
	}

	result, err := s.ctrl.Execute(r.Context(), cmd, controller.SourceHTTP)
	if err != nil {
		s.writeControllerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// writeControllerError maps controller errors onto HTTP responses.
func (s *Server) writeControllerError(w http.ResponseWriter, r *http.Request, err error) {
	var reject *controller.RejectError
	switch {
	case errors.As(err, &reject):
		writeText(w, http.StatusUnprocessableEntity, reject.Reason)
	case errors.Is(err, controller.ErrStopped):
		writeUnavailable(w, "sequencer is shutting down")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeUnavailable(w, "request cancelled")
	default:
		s.logger.Error("command failed",
			"error", err,
			"path", r.URL.Path,
			"request_id", r.Context().Value(ctxKeyRequestID),
		)
		writeInternalError(w, "command failed")
	}
}

// sequenceInfo describes one catalog entry.
type sequenceInfo struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// speedInfo describes one supported interval.
type speedInfo struct {
	Name string `json:"name"`
	MS   int    `json:"ms"`
}

// handleListSequences returns the catalog and the supported speeds.
func (s *Server) handleListSequences(w http.ResponseWriter, _ *http.Request) {
	names := s.ctrl.Names()
	sequences := make([]sequenceInfo, len(names))
	for i, name := range names {
		sequences[i] = sequenceInfo{ID: i, Name: name}
	}

	values := speed.Values()
	speeds := make([]speedInfo, len(values))
	for i, v := range values {
		speeds[i] = speedInfo{Name: v.String(), MS: v.Milliseconds()}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sequences": sequences,
		"speeds":    speeds,
		"count":     len(sequences),
	})
}

// handleHealth reports overall health and each optional dependency.
// The sequencer keeps playing without MQTT or InfluxDB, so only a failed
// database check marks the service degraded.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	status := "ok"

	checkDep := func(name string, c HealthChecker) error {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		if err := c.HealthCheck(ctx); err != nil {
			checks[name] = err.Error()
			return err
		}
		checks[name] = "ok"
		return nil
	}

	if s.db != nil {
		if err := checkDep("database", s.db); err != nil {
			status = "degraded"
		}
	}
	if s.mqtt != nil {
		//nolint:errcheck // reported in checks only
		checkDep("mqtt", s.mqtt)
	}
	if s.influx != nil {
		//nolint:errcheck // reported in checks only
		checkDep("influxdb", s.influx)
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":  status,
		"version": s.version,
		"checks":  checks,
	})
}
