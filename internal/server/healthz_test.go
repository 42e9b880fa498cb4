package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHealthChecker struct {
	quickErr  error
	healthErr error
}

func (f *fakeHealthChecker) QuickCheck(ctx context.Context) error  { return f.quickErr }
func (f *fakeHealthChecker) HealthCheck(ctx context.Context) error { return f.healthErr }

func TestHealthzHandler_OKWhenDatabaseHealthy(t *testing.T) {
	handler := healthzHandler(&fakeHealthChecker{}, zerolog.Nop())

	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	require.Equal(t, 200, rec.Code)
	var resp healthzResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestHealthzHandler_ServiceUnavailableWhenHealthCheckFails(t *testing.T) {
	handler := healthzHandler(&fakeHealthChecker{healthErr: errors.New("disk full")}, zerolog.Nop())

	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, 503, rec.Code)
}

func TestHealthzHandler_DegradedButStill200WhenOnlyQuickCheckFails(t *testing.T) {
	handler := healthzHandler(&fakeHealthChecker{quickErr: errors.New("busy")}, zerolog.Nop())

	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	require.Equal(t, 200, rec.Code)
	var resp healthzResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
}
