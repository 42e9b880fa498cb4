package monitors

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uptimewatcher/watcher/internal/domain"
)

func TestHTTPService_Check_2xxIsUp(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	svc := NewHTTPService()
	result, err := svc.Check(context.Background(), domain.Monitor{Type: domain.MonitorTypeHTTP, URL: server.URL})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusUp, result.Status)
	assert.Equal(t, "200", result.Details)
}

func TestHTTPService_Check_NonTwoXXIsDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	svc := NewHTTPService()
	result, err := svc.Check(context.Background(), domain.Monitor{Type: domain.MonitorTypeHTTP, URL: server.URL})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDown, result.Status)
	assert.Equal(t, strconv.Itoa(http.StatusServiceUnavailable), result.Details)
}

func TestHTTPService_Check_NetworkErrorIsDown(t *testing.T) {
	svc := NewHTTPService()
	result, err := svc.Check(context.Background(), domain.Monitor{Type: domain.MonitorTypeHTTP, URL: "http://127.0.0.1:1"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDown, result.Status)
	assert.Equal(t, "network_error", result.Details)
}

func TestHTTPService_Check_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	svc := NewHTTPService()
	result, err := svc.Check(ctx, domain.Monitor{Type: domain.MonitorTypeHTTP, URL: server.URL})
	require.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, domain.StatusDown, result.Status)
}
