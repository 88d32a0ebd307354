package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/autopeer-io/motwatch/internal/dvsa"
	"github.com/autopeer-io/motwatch/internal/mot"
	"github.com/autopeer-io/motwatch/internal/poller"
	"github.com/autopeer-io/motwatch/pkg/log"
)

type errorResponse struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

type snapshotResponse struct {
	UpdatedAt *time.Time              `json:"updatedAt,omitempty"`
	Status    poller.Status           `json:"status"`
	Vehicles  map[string]mot.Document `json:"vehicles"`
}

type refreshResponse struct {
	Status poller.Status `json:"status"`
	Error  string        `json:"error,omitempty"`
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	if !s.poller.Ready() {
		http.Error(w, "no poll cycle has settled yet", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) listVehicles(w http.ResponseWriter, _ *http.Request) {
	reports := s.poller.Snapshot().Reports(s.clock.Now(), s.warnDays)
	writeJSON(w, http.StatusOK, reports)
}

func (s *Server) getVehicle(w http.ResponseWriter, r *http.Request) {
	reg := dvsa.Normalize(mux.Vars(r)["registration"])

	doc, ok := s.poller.Snapshot().Vehicle(reg)
	if !ok {
		writeError(w, "vehicle "+reg+" is not tracked", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, mot.BuildReport(reg, doc, s.clock.Now(), s.warnDays))
}

func (s *Server) getSnapshot(w http.ResponseWriter, _ *http.Request) {
	snap := s.poller.Snapshot()

	resp := snapshotResponse{
		Status:   s.poller.Status(),
		Vehicles: snap.Vehicles(),
	}
	if at := snap.UpdatedAt(); !at.IsZero() {
		resp.UpdatedAt = &at
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	err := s.poller.Refresh(r.Context())

	resp := refreshResponse{Status: s.poller.Status()}
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, resp)
	case r.Context().Err() != nil:
		// The client went away; the cycle carries on without it.
		log.Debug("Refresh request cancelled", "error", err)
	default:
		resp.Error = err.Error()
		writeJSON(w, http.StatusBadGateway, resp)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error(err, "Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, errorResponse{Message: message, Status: status})
}
