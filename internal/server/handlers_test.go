package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uptimewatcher/watcher/internal/analytics"
	"github.com/uptimewatcher/watcher/internal/domain"
	"github.com/uptimewatcher/watcher/internal/sitewriter"
)

func withChiContext(r *http.Request, rctx *chi.Context) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

type fakeFacade struct {
	sites      []domain.Site
	addErr     error
	removeErr  error
	removed    bool
	limit      int
	limitErr   error
	exportData []byte
	importErr  error
	summary    analytics.Summary
	summaryErr error
}

func (f *fakeFacade) AddSite(site domain.Site) (domain.Site, error) { return site, f.addErr }
func (f *fakeFacade) UpdateSite(identifier string, partial sitewriter.SitePartial) (domain.Site, error) {
	return domain.Site{Identifier: identifier}, nil
}
func (f *fakeFacade) RemoveSite(identifier string) (bool, error)  { return f.removed, f.removeErr }
func (f *fakeFacade) GetSites() []domain.Site                     { return f.sites }
func (f *fakeFacade) StartMonitoringForSite(siteID, monitorID string) error { return nil }
func (f *fakeFacade) StopMonitoringForSite(siteID, monitorID string) error  { return nil }
func (f *fakeFacade) StartMonitoring() error                      { return nil }
func (f *fakeFacade) StopMonitoring() error                       { return nil }
func (f *fakeFacade) CheckMonitorNow(siteID, monitorID string) error { return nil }
func (f *fakeFacade) GetHistoryLimit() (int, error)                { return f.limit, f.limitErr }
func (f *fakeFacade) SetHistoryLimit(newLimit int) error           { return nil }
func (f *fakeFacade) ExportData() ([]byte, error)                  { return f.exportData, nil }
func (f *fakeFacade) ImportData(data []byte) error                 { return f.importErr }
func (f *fakeFacade) GetMonitorAnalytics(monitorID string) (analytics.Summary, error) {
	return f.summary, f.summaryErr
}

func newTestHandlers(f *fakeFacade) *commandHandlers {
	return newCommandHandlers(f, zerolog.Nop())
}

func TestListSites_ReturnsEveryConfiguredSite(t *testing.T) {
	facade := &fakeFacade{sites: []domain.Site{{Identifier: "s1", Name: "example"}}}
	h := newTestHandlers(facade)

	req := httptest.NewRequest("GET", "/api/sites", nil)
	rec := httptest.NewRecorder()
	h.listSites(rec, req)

	require.Equal(t, 200, rec.Code)
	var out []siteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "s1", out[0].Identifier)
}

func TestCreateSite_RejectsMalformedBody(t *testing.T) {
	h := newTestHandlers(&fakeFacade{})

	req := httptest.NewRequest("POST", "/api/sites", bytes.NewBufferString("not json"))
	rec := httptest.NewRecorder()
	h.createSite(rec, req)

	assert.Equal(t, 400, rec.Code)
}

func TestDeleteSite_UnknownIdentifierReturns404(t *testing.T) {
	h := newTestHandlers(&fakeFacade{removed: false})

	req := httptest.NewRequest("DELETE", "/api/sites/missing", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("siteID", "missing")
	req = withChiContext(req, rctx)

	rec := httptest.NewRecorder()
	h.deleteSite(rec, req)

	assert.Equal(t, 404, rec.Code)
}

func TestMonitorAnalytics_PropagatesFacadeError(t *testing.T) {
	h := newTestHandlers(&fakeFacade{summaryErr: domain.ErrMonitorNotFound})

	req := httptest.NewRequest("GET", "/api/monitors/m1/analytics", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("monitorID", "m1")
	req = withChiContext(req, rctx)

	rec := httptest.NewRecorder()
	h.monitorAnalytics(rec, req)

	assert.Equal(t, 404, rec.Code)
}
