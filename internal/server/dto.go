package server

import (
	"time"

	"github.com/uptimewatcher/watcher/internal/analytics"
	"github.com/uptimewatcher/watcher/internal/domain"
)

// siteResponse/monitorResponse/historyEntryResponse give the wire format
// explicit camelCase JSON tags, the same convention
// internal/importexport.SiteSnapshot uses for the export/import format —
// domain.Site/Monitor/HistoryEntry themselves carry no JSON tags since
// they are meant to stay a pure, transport-agnostic model.
type siteResponse struct {
	Identifier string            `json:"identifier"`
	Name       string            `json:"name"`
	Monitoring bool              `json:"monitoring"`
	Monitors   []monitorResponse `json:"monitors"`
}

type monitorResponse struct {
	ID             string                 `json:"id"`
	SiteID         string                 `json:"siteId"`
	Type           domain.MonitorType     `json:"type"`
	Status         domain.MonitorStatus   `json:"status"`
	Monitoring     bool                   `json:"monitoring"`
	CheckInterval  int64                  `json:"checkIntervalMs"`
	Timeout        int64                  `json:"timeoutMs"`
	RetryAttempts  int                    `json:"retryAttempts"`
	ResponseTimeMS int                    `json:"responseTimeMs"`
	LastChecked    *time.Time             `json:"lastChecked,omitempty"`
	URL            string                 `json:"url,omitempty"`
	Host           string                 `json:"host,omitempty"`
	Port           int                    `json:"port,omitempty"`
	History        []historyEntryResponse `json:"history,omitempty"`
}

type historyEntryResponse struct {
	ID             int64                `json:"id"`
	MonitorID      string               `json:"monitorId"`
	Status         domain.MonitorStatus `json:"status"`
	ResponseTimeMS int                  `json:"responseTimeMs"`
	Timestamp      time.Time            `json:"timestamp"`
	Details        string               `json:"details,omitempty"`
}

func toSiteResponse(site domain.Site) siteResponse {
	monitors := make([]monitorResponse, len(site.Monitors))
	for i, m := range site.Monitors {
		monitors[i] = toMonitorResponse(m)
	}
	return siteResponse{
		Identifier: site.Identifier,
		Name:       site.Name,
		Monitoring: site.Monitoring,
		Monitors:   monitors,
	}
}

func toMonitorResponse(m domain.Monitor) monitorResponse {
	history := make([]historyEntryResponse, len(m.History))
	for i, h := range m.History {
		history[i] = historyEntryResponse{
			ID:             h.ID,
			MonitorID:      h.MonitorID,
			Status:         h.Status,
			ResponseTimeMS: h.ResponseTimeMS,
			Timestamp:      h.Timestamp,
			Details:        h.Details,
		}
	}
	return monitorResponse{
		ID:             m.ID,
		SiteID:         m.SiteID,
		Type:           m.Type,
		Status:         m.Status,
		Monitoring:     m.Monitoring,
		CheckInterval:  m.CheckInterval.Milliseconds(),
		Timeout:        m.Timeout.Milliseconds(),
		RetryAttempts:  m.RetryAttempts,
		ResponseTimeMS: m.ResponseTimeMS,
		LastChecked:    m.LastChecked,
		URL:            m.URL,
		Host:           m.Host,
		Port:           m.Port,
		History:        history,
	}
}

// createSiteRequest is the POST /api/sites body: a full site with its
// initial monitors.
type createSiteRequest struct {
	Name       string           `json:"name"`
	Monitoring bool             `json:"monitoring"`
	Monitors   []monitorRequest `json:"monitors"`
}

type monitorRequest struct {
	Type          domain.MonitorType `json:"type"`
	Monitoring    bool               `json:"monitoring"`
	CheckInterval int64              `json:"checkIntervalMs"`
	Timeout       int64              `json:"timeoutMs"`
	RetryAttempts int                `json:"retryAttempts"`
	URL           string             `json:"url,omitempty"`
	Host          string             `json:"host,omitempty"`
	Port          int                `json:"port,omitempty"`
}

func (r createSiteRequest) toDomain() domain.Site {
	monitors := make([]domain.Monitor, len(r.Monitors))
	for i, m := range r.Monitors {
		monitors[i] = m.toDomain()
	}
	return domain.Site{
		Name:       r.Name,
		Monitoring: r.Monitoring,
		Monitors:   monitors,
	}
}

func (r monitorRequest) toDomain() domain.Monitor {
	return domain.Monitor{
		Type:          r.Type,
		Monitoring:    r.Monitoring,
		CheckInterval: time.Duration(r.CheckInterval) * time.Millisecond,
		Timeout:       time.Duration(r.Timeout) * time.Millisecond,
		RetryAttempts: r.RetryAttempts,
		URL:           r.URL,
		Host:          r.Host,
		Port:          r.Port,
	}
}

// updateSiteRequest is the PUT /api/sites/{id} body. nil fields are left
// untouched; Monitors replaces the whole list when present, matching
// sitewriter.SitePartial's semantics.
type updateSiteRequest struct {
	Name       *string          `json:"name,omitempty"`
	Monitoring *bool            `json:"monitoring,omitempty"`
	Monitors   []monitorRequest `json:"monitors,omitempty"`
}

func (r updateSiteRequest) toDomainMonitors() []domain.Monitor {
	if r.Monitors == nil {
		return nil
	}
	monitors := make([]domain.Monitor, len(r.Monitors))
	for i, m := range r.Monitors {
		monitors[i] = m.toDomain()
	}
	return monitors
}

// analyticsResponse mirrors analytics.Summary with explicit JSON tags.
type analyticsResponse struct {
	MonitorID   string    `json:"monitorId"`
	SampleCount int       `json:"sampleCount"`
	MeanMS      float64   `json:"meanMs"`
	StdDevMS    float64   `json:"stdDevMs"`
	P95MS       float64   `json:"p95Ms"`
	Trend       []float64 `json:"trend,omitempty"`
	UptimeRatio float64   `json:"uptimeRatio"`
}

func toAnalyticsResponse(s analytics.Summary) analyticsResponse {
	return analyticsResponse{
		MonitorID:   s.MonitorID,
		SampleCount: s.SampleCount,
		MeanMS:      s.MeanMS,
		StdDevMS:    s.StdDevMS,
		P95MS:       s.P95MS,
		Trend:       s.Trend,
		UptimeRatio: s.UptimeRatio,
	}
}
