package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/uptimewatcher/watcher/internal/analytics"
	"github.com/uptimewatcher/watcher/internal/domain"
	"github.com/uptimewatcher/watcher/internal/sitewriter"
)

// commandFacade is the slice of internal/orchestrator.Orchestrator's API
// the HTTP layer dispatches to; narrowed to an interface so handler tests
// can substitute a fake orchestrator.
type commandFacade interface {
	AddSite(site domain.Site) (domain.Site, error)
	UpdateSite(identifier string, partial sitewriter.SitePartial) (domain.Site, error)
	RemoveSite(identifier string) (bool, error)
	GetSites() []domain.Site
	StartMonitoringForSite(siteID, monitorID string) error
	StopMonitoringForSite(siteID, monitorID string) error
	StartMonitoring() error
	StopMonitoring() error
	CheckMonitorNow(siteID, monitorID string) error
	GetHistoryLimit() (int, error)
	SetHistoryLimit(newLimit int) error
	ExportData() ([]byte, error)
	ImportData(data []byte) error
	GetMonitorAnalytics(monitorID string) (analytics.Summary, error)
}

// commandHandlers implements the REST command surface over a commandFacade.
type commandHandlers struct {
	cmd commandFacade
	log zerolog.Logger
}

func newCommandHandlers(cmd commandFacade, log zerolog.Logger) *commandHandlers {
	return &commandHandlers{cmd: cmd, log: log.With().Str("handler", "commands").Logger()}
}

func (h *commandHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("failed to encode JSON response")
	}
}

func (h *commandHandlers) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrSiteNotFound), errors.Is(err, domain.ErrMonitorNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	}
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// listSites handles GET /api/sites.
func (h *commandHandlers) listSites(w http.ResponseWriter, r *http.Request) {
	sites := h.cmd.GetSites()
	out := make([]siteResponse, len(sites))
	for i, s := range sites {
		out[i] = toSiteResponse(s)
	}
	h.writeJSON(w, http.StatusOK, out)
}

// createSite handles POST /api/sites.
func (h *commandHandlers) createSite(w http.ResponseWriter, r *http.Request) {
	var req createSiteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, domain.ErrValidation)
		return
	}

	created, err := h.cmd.AddSite(req.toDomain())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, toSiteResponse(created))
}

// updateSite handles PUT /api/sites/{siteID}.
func (h *commandHandlers) updateSite(w http.ResponseWriter, r *http.Request) {
	siteID := chi.URLParam(r, "siteID")

	var req updateSiteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, domain.ErrValidation)
		return
	}

	partial := sitewriter.SitePartial{
		Name:       req.Name,
		Monitoring: req.Monitoring,
		Monitors:   req.toDomainMonitors(),
	}
	updated, err := h.cmd.UpdateSite(siteID, partial)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toSiteResponse(updated))
}

// deleteSite handles DELETE /api/sites/{siteID}.
func (h *commandHandlers) deleteSite(w http.ResponseWriter, r *http.Request) {
	siteID := chi.URLParam(r, "siteID")

	deleted, err := h.cmd.RemoveSite(siteID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !deleted {
		h.writeError(w, domain.ErrSiteNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// startSite handles POST /api/sites/{siteID}/start. An optional
// monitorID query parameter narrows the command to a single monitor.
func (h *commandHandlers) startSite(w http.ResponseWriter, r *http.Request) {
	siteID := chi.URLParam(r, "siteID")
	if err := h.cmd.StartMonitoringForSite(siteID, r.URL.Query().Get("monitorId")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// stopSite handles POST /api/sites/{siteID}/stop, mirroring startSite.
func (h *commandHandlers) stopSite(w http.ResponseWriter, r *http.Request) {
	siteID := chi.URLParam(r, "siteID")
	if err := h.cmd.StopMonitoringForSite(siteID, r.URL.Query().Get("monitorId")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// startAllMonitoring handles POST /api/monitoring/start.
func (h *commandHandlers) startAllMonitoring(w http.ResponseWriter, r *http.Request) {
	if err := h.cmd.StartMonitoring(); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// stopAllMonitoring handles POST /api/monitoring/stop.
func (h *commandHandlers) stopAllMonitoring(w http.ResponseWriter, r *http.Request) {
	if err := h.cmd.StopMonitoring(); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// checkMonitorNow handles POST /api/sites/{siteID}/monitors/{monitorID}/check.
func (h *commandHandlers) checkMonitorNow(w http.ResponseWriter, r *http.Request) {
	siteID := chi.URLParam(r, "siteID")
	monitorID := chi.URLParam(r, "monitorID")
	if err := h.cmd.CheckMonitorNow(siteID, monitorID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// getHistoryLimit handles GET /api/settings/history-limit.
func (h *commandHandlers) getHistoryLimit(w http.ResponseWriter, r *http.Request) {
	limit, err := h.cmd.GetHistoryLimit()
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]int{"historyLimit": limit})
}

// setHistoryLimit handles PUT /api/settings/history-limit.
func (h *commandHandlers) setHistoryLimit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		HistoryLimit int `json:"historyLimit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, domain.ErrValidation)
		return
	}
	if err := h.cmd.SetHistoryLimit(req.HistoryLimit); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// exportData handles GET /api/export.
func (h *commandHandlers) exportData(w http.ResponseWriter, r *http.Request) {
	data, err := h.cmd.ExportData()
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="uptime-watcher-export.json"`)
	_, _ = w.Write(data)
}

// importData handles POST /api/import.
func (h *commandHandlers) importData(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, domain.ErrValidation)
		return
	}
	if err := h.cmd.ImportData(data); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// monitorAnalytics handles GET /api/monitors/{monitorID}/analytics.
func (h *commandHandlers) monitorAnalytics(w http.ResponseWriter, r *http.Request) {
	monitorID := chi.URLParam(r, "monitorID")
	summary, err := h.cmd.GetMonitorAnalytics(monitorID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toAnalyticsResponse(summary))
}
