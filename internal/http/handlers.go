package http

import (
	"context"
	"net/http"
	"time"
)

const readyTimeout = 2 * time.Second

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Payload(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := s.deps.Ready.Ping(ctx); err != nil {
			s.logFailure(r, "Readiness check failed", err, "ready")
			ErrorResponse(http.StatusServiceUnavailable, "storage not ready").Write(w)
			return
		}
	}
	NewJSONResponse().Payload(map[string]string{"status": "ready"}).Write(w)
}

// handleCurrentTime exposes the server clock for remote clock readers.
func (s *Server) handleCurrentTime(w http.ResponseWriter, r *http.Request) {
	reading, degraded := s.deps.Clock.Today(r.Context())
	resp := NewJSONResponse().Payload(reading.Response())
	if degraded {
		resp.Header("X-Clock-Degraded", "true")
	}
	resp.Write(w)
}
