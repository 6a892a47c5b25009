package api

import (
	"errors"
	"net/http"

	"github.com/nerrad567/irrigation-core/internal/engine"
)

// handleRunCycle runs one decision cycle synchronously and returns its report.
func (s *Server) handleRunCycle(w http.ResponseWriter, r *http.Request) {
	report, err := s.engine.RunCycle(s.baseCtx)
	switch {
	case errors.Is(err, engine.ErrCycleInProgress):
		writeError(w, http.StatusConflict, ErrCodeConflict, "a decision cycle is already running")
	case err != nil:
		s.logger.Error("manual cycle failed", "request_id", requestIDFrom(r.Context()), "error", err)
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, err.Error())
	default:
		writeJSON(w, http.StatusOK, report)
	}
}

// handleLastCycle returns the report of the most recent finished cycle.
func (s *Server) handleLastCycle(w http.ResponseWriter, _ *http.Request) {
	report := s.engine.LastReport()
	if report == nil {
		writeNotFound(w, "no cycle has run yet")
		return
	}
	writeJSON(w, http.StatusOK, report)
}
