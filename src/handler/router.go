package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/KyleKCarter/stock-bot/src/orb"
)

// ControlPlane exposes the operational endpoints: liquidation, status,
// health, and metrics. State-touching requests go through the coordinator,
// which serializes them against the sweep.
type ControlPlane struct {
	coordinator *orb.Coordinator
	calendar    orb.SessionCalendar
	now         func() time.Time
}

func NewControlPlane(coordinator *orb.Coordinator, calendar orb.SessionCalendar) *ControlPlane {
	return &ControlPlane{
		coordinator: coordinator,
		calendar:    calendar,
		now:         time.Now,
	}
}

// Router builds the mux router with all control-plane routes attached.
func (p *ControlPlane) Router() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/api/sell-all-positions", p.SellAllPositions).Methods(http.MethodPost)
	router.HandleFunc("/api/sell-position", p.SellPosition).Methods(http.MethodPost)
	router.HandleFunc("/api/status", p.Status).Methods(http.MethodGet)
	router.HandleFunc("/api/health", p.Health).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler())

	return router
}

// SellAllPositions liquidates every tracked symbol.
func (p *ControlPlane) SellAllPositions(w http.ResponseWriter, r *http.Request) {
	log.Warn("SellAllPositions: manual liquidation requested")

	p.coordinator.CloseAll(r.Context())

	writeJSON(w, http.StatusOK, map[string]string{"status": "all positions closed"})
}

type sellPositionRequest struct {
	Symbol string `json:"symbol"`
}

// SellPosition liquidates a single symbol's position.
func (p *ControlPlane) SellPosition(w http.ResponseWriter, r *http.Request) {
	var req sellPositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Symbol == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "symbol is required"})
		return
	}

	log.Warnf("SellPosition: manual liquidation requested for %s", req.Symbol)

	if err := p.coordinator.ClosePosition(r.Context(), req.Symbol); err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": fmt.Sprintf("position closed for %s", req.Symbol)})
}

// Status renders the per-symbol table as plain text.
func (p *ControlPlane) Status(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, orb.RenderStatus(p.coordinator.Status(), p.coordinator.Counters()))
}

type healthResponse struct {
	Status    string `json:"status"`
	LastSweep string `json:"last_sweep,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

// Health reports sweep recency against market-hours-aware thresholds. A
// stale sweep during market hours degrades the status; outside them a quiet
// engine is healthy.
func (p *ControlPlane) Health(w http.ResponseWriter, r *http.Request) {
	now := p.now()
	last := p.coordinator.LastSweep()

	resp := healthResponse{Status: "ok"}
	if !last.IsZero() {
		resp.LastSweep = last.Format(time.RFC3339)
	}

	if p.calendar.IsTradingDay(now) && now.Before(p.calendar.SessionClose(now)) {
		switch {
		case last.IsZero():
			resp.Detail = "no sweep yet this session"
		case now.Sub(last) > 5*time.Minute:
			resp.Status = "degraded"
			resp.Detail = fmt.Sprintf("last sweep %s ago", now.Sub(last).Round(time.Second))
		}
	}

	code := http.StatusOK
	if resp.Status != "ok" {
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, resp)
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Errorf("writeJSON: %v", err)
	}
}
