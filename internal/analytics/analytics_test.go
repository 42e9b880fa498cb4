package analytics

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uptimewatcher/watcher/internal/domain"
)

type fakeHistory struct {
	entries []domain.HistoryEntry
	err     error
}

func (f *fakeHistory) FindByMonitorID(monitorID string, limit int) ([]domain.HistoryEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.entries, nil
}

func entriesWithResponseTimes(times ...int) []domain.HistoryEntry {
	out := make([]domain.HistoryEntry, len(times))
	for i, ms := range times {
		out[i] = domain.HistoryEntry{Status: domain.StatusUp, ResponseTimeMS: ms}
	}
	return out
}

func TestCalculator_Summarize_ComputesMeanAndStdDev(t *testing.T) {
	history := &fakeHistory{entries: entriesWithResponseTimes(100, 100, 100, 100, 100, 100)}
	c := New(history, zerolog.Nop())

	summary, err := c.Summarize("m1", 0)
	require.NoError(t, err)

	assert.Equal(t, 6, summary.SampleCount)
	assert.InDelta(t, 100, summary.MeanMS, 0.001)
	assert.InDelta(t, 0, summary.StdDevMS, 0.001)
}

func TestCalculator_Summarize_ProducesTrendAboveMinimumSamples(t *testing.T) {
	history := &fakeHistory{entries: entriesWithResponseTimes(50, 60, 70, 80, 90, 100)}
	c := New(history, zerolog.Nop())

	summary, err := c.Summarize("m1", 0)
	require.NoError(t, err)
	assert.NotEmpty(t, summary.Trend)
}

func TestCalculator_Summarize_SkipsTrendBelowMinimumSamples(t *testing.T) {
	history := &fakeHistory{entries: entriesWithResponseTimes(50, 60)}
	c := New(history, zerolog.Nop())

	summary, err := c.Summarize("m1", 0)
	require.NoError(t, err)
	assert.Empty(t, summary.Trend)
}

func TestCalculator_Summarize_ComputesUptimeRatio(t *testing.T) {
	entries := entriesWithResponseTimes(100, 100, 100, 100)
	entries[0].Status = domain.StatusDown
	history := &fakeHistory{entries: entries}
	c := New(history, zerolog.Nop())

	summary, err := c.Summarize("m1", 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, summary.UptimeRatio, 0.001)
}

func TestCalculator_Summarize_EmptyHistoryReturnsZeroSummary(t *testing.T) {
	history := &fakeHistory{}
	c := New(history, zerolog.Nop())

	summary, err := c.Summarize("m1", 0)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.SampleCount)
}

func TestCalculator_Summarize_PropagatesRepositoryError(t *testing.T) {
	history := &fakeHistory{err: errors.New("db down")}
	c := New(history, zerolog.Nop())

	_, err := c.Summarize("m1", 0)
	assert.Error(t, err)
}
