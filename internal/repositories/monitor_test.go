package repositories

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uptimewatcher/watcher/internal/domain"
)

func createTestSite(t *testing.T, tr *testRepos, identifier string) {
	t.Helper()
	require.NoError(t, tr.sites.CreateExternal(domain.Site{Identifier: identifier, Name: identifier, Monitoring: true}))
}

func TestMonitorRepository_CreateExternal_AssignsID(t *testing.T) {
	tr := newTestRepos(t)
	createTestSite(t, tr, "site-1")

	created, err := tr.monitors.CreateExternal("site-1", domain.Monitor{
		Type: domain.MonitorTypeHTTP, Monitoring: true, URL: "https://example.com",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, domain.NeverChecked, created.ResponseTimeMS)
}

func TestMonitorRepository_CreateExternal_AppliesDefaultsForZeroDurations(t *testing.T) {
	tr := newTestRepos(t)
	createTestSite(t, tr, "site-1")

	created, err := tr.monitors.CreateExternal("site-1", domain.Monitor{Type: domain.MonitorTypeHTTP, URL: "https://example.com"})
	require.NoError(t, err)

	found, err := tr.monitors.FindByID(created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultCheckInterval, found.CheckInterval)
	assert.Equal(t, domain.DefaultTimeout, found.Timeout)
}

func TestMonitorRepository_BulkCreateExternal(t *testing.T) {
	tr := newTestRepos(t)
	createTestSite(t, tr, "site-1")

	created, err := tr.monitors.BulkCreateExternal("site-1", []domain.Monitor{
		{Type: domain.MonitorTypeHTTP, Monitoring: true, URL: "https://a.example.com"},
		{Type: domain.MonitorTypePort, Monitoring: true, Host: "b.example.com", Port: 443},
	})
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.NotEqual(t, created[0].ID, created[1].ID)
}

func TestMonitorRepository_TypeSpecificFieldsPersistSeparately(t *testing.T) {
	tr := newTestRepos(t)
	createTestSite(t, tr, "site-1")

	httpMon, err := tr.monitors.CreateExternal("site-1", domain.Monitor{Type: domain.MonitorTypeHTTP, URL: "https://a.example.com"})
	require.NoError(t, err)
	portMon, err := tr.monitors.CreateExternal("site-1", domain.Monitor{Type: domain.MonitorTypePort, Host: "b.example.com", Port: 22})
	require.NoError(t, err)

	foundHTTP, err := tr.monitors.FindByID(httpMon.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://a.example.com", foundHTTP.URL)
	assert.Empty(t, foundHTTP.Host)

	foundPort, err := tr.monitors.FindByID(portMon.ID)
	require.NoError(t, err)
	assert.Equal(t, "b.example.com", foundPort.Host)
	assert.Equal(t, 22, foundPort.Port)
	assert.Empty(t, foundPort.URL)
}

func TestMonitorRepository_UpdateExternal_PartialOnlyTouchesGivenFields(t *testing.T) {
	tr := newTestRepos(t)
	createTestSite(t, tr, "site-1")
	created, err := tr.monitors.CreateExternal("site-1", domain.Monitor{Type: domain.MonitorTypeHTTP, Monitoring: true, URL: "https://a.example.com"})
	require.NoError(t, err)

	newStatus := domain.StatusUp
	responseTime := 42
	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, tr.monitors.UpdateExternal(created.ID, MonitorPartial{
		Status:         &newStatus,
		ResponseTimeMS: &responseTime,
		LastChecked:    &now,
	}))

	found, err := tr.monitors.FindByID(created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusUp, found.Status)
	assert.Equal(t, 42, found.ResponseTimeMS)
	assert.Equal(t, "https://a.example.com", found.URL, "url untouched by an unrelated partial")
	require.NotNil(t, found.LastChecked)
	assert.WithinDuration(t, now, *found.LastChecked, time.Second)
}

func TestMonitorRepository_DeleteExternal(t *testing.T) {
	tr := newTestRepos(t)
	createTestSite(t, tr, "site-1")
	created, err := tr.monitors.CreateExternal("site-1", domain.Monitor{Type: domain.MonitorTypeHTTP, URL: "https://a.example.com"})
	require.NoError(t, err)

	existed, err := tr.monitors.DeleteExternal(created.ID)
	require.NoError(t, err)
	assert.True(t, existed)

	found, err := tr.monitors.FindByID(created.ID)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestMonitorRepository_FindBySiteIdentifier(t *testing.T) {
	tr := newTestRepos(t)
	createTestSite(t, tr, "site-1")
	createTestSite(t, tr, "site-2")

	_, err := tr.monitors.CreateExternal("site-1", domain.Monitor{Type: domain.MonitorTypeHTTP, URL: "https://a.example.com"})
	require.NoError(t, err)
	_, err = tr.monitors.CreateExternal("site-2", domain.Monitor{Type: domain.MonitorTypeHTTP, URL: "https://b.example.com"})
	require.NoError(t, err)

	found, err := tr.monitors.FindBySiteIdentifier("site-1")
	require.NoError(t, err)
	assert.Len(t, found, 1)
}
