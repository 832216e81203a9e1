package gateway

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"hedgefund-systemv1/internal/errs"
)

// setCORS sets CORS headers for REST endpoints.
func setCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// statusRecorder captures the response status for the request log and the
// api_calls_total counter.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// instrument wraps a handler with CORS, OPTIONS short-circuit, request
// logging, and per-path call counters.
func (s *Server) instrument(path string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setCORS(w)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next(rec, r)
		elapsed := time.Since(start)

		if s.prom != nil {
			s.prom.APICalls.WithLabelValues(path, httpStatusLabel(rec.status)).Inc()
			s.prom.APILatency.WithLabelValues(path).Observe(elapsed.Seconds())
		}
		s.log.Info("request",
			slog.String("method", r.Method),
			slog.String("path", path),
			slog.Int("status", rec.status),
			slog.Duration("elapsed", elapsed),
		)
	}
}

func httpStatusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	default:
		return "2xx"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps a classified error to an HTTP status and writes the
// uniform envelope. Every failure gets a fresh error ID for log correlation.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var resp errorResponse
	resp.Error.ID = uuid.NewString()
	resp.Error.Code = string(errs.CodeOf(err))
	resp.Error.Message = err.Error()

	var classified *errs.Error
	if errors.As(err, &classified) {
		resp.Error.Details = classified.Details
	}

	status := statusFor(errs.CodeOf(err))
	s.log.Warn("request failed",
		slog.String("error_id", resp.Error.ID),
		slog.String("code", resp.Error.Code),
		slog.String("error", err.Error()),
	)
	writeJSON(w, status, resp)
}

func statusFor(code errs.Code) int {
	switch code {
	case errs.CodeValidation:
		return http.StatusBadRequest
	case errs.CodeTrading:
		return http.StatusUnprocessableEntity
	case errs.CodeNotFound:
		return http.StatusNotFound
	case errs.CodeService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
