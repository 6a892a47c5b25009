package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/irrigation-core/internal/device"
)

// defaultDecisionWindow is used when ?since is omitted.
const defaultDecisionWindow = 24 * time.Hour

// handleListDevices returns every registered device.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.devices.List(r.Context())
	if err != nil {
		s.logger.Error("listing devices", "error", err)
		writeInternalError(w, "failed to list devices")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"devices": devices,
		"count":   len(devices),
	})
}

// handleGetDevice returns one device.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	dev, ok := s.lookupDevice(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, dev)
}

// handleListDecisions returns a device's ledger entries, oldest first.
func (s *Server) handleListDecisions(w http.ResponseWriter, r *http.Request) {
	dev, ok := s.lookupDevice(w, r)
	if !ok {
		return
	}

	since := time.Now().Add(-defaultDecisionWindow)
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeBadRequest(w, "since must be an RFC3339 timestamp")
			return
		}
		since = parsed
	}

	decisions, err := s.decisions.List(r.Context(), dev.ID, since)
	if err != nil {
		s.logger.Error("listing decisions", "device_id", dev.ID, "error", err)
		writeInternalError(w, "failed to list decisions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": dev.ID,
		"since":     since.UTC().Format(time.RFC3339),
		"decisions": decisions,
		"count":     len(decisions),
	})
}

// lookupDevice resolves {id} and writes the error response itself.
func (s *Server) lookupDevice(w http.ResponseWriter, r *http.Request) (*device.Device, bool) {
	id := chi.URLParam(r, "id")
	dev, err := s.devices.Get(r.Context(), id)
	if errors.Is(err, device.ErrDeviceNotFound) {
		writeNotFound(w, "device not found")
		return nil, false
	}
	if err != nil {
		s.logger.Error("getting device", "device_id", id, "error", err)
		writeInternalError(w, "failed to get device")
		return nil, false
	}
	return dev, true
}
