// Package analytics computes response-time statistics and trend smoothing
// over a monitor's history window. It is read-only and pure: nothing here
// touches the status state machine or writes to the database: a
// calculator constructed with its data source and a logger, exposing
// one compute method per subject.
package analytics

import (
	"fmt"
	"sort"

	"github.com/markcheno/go-talib"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/uptimewatcher/watcher/internal/domain"
)

// minSamplesRequired is the fewest response-time samples a window needs
// before a trend line is meaningful. Below this, Trend is left empty
// rather than reporting a noisy smoothing over a handful of points.
const minSamplesRequired = 5

// smaPeriod is the simple-moving-average window fed to go-talib when
// smoothing a monitor's response-time series.
const smaPeriod = 5

// historyProvider is the slice of internal/repositories.HistoryRepository
// the calculator reads from.
type historyProvider interface {
	FindByMonitorID(monitorID string, limit int) ([]domain.HistoryEntry, error)
}

// Summary is the computed statistics for one monitor's response-time
// history over the window it was built from.
type Summary struct {
	MonitorID    string
	SampleCount  int
	MeanMS       float64
	StdDevMS     float64
	P95MS        float64
	Trend        []float64 // SMA-smoothed response times, oldest first; empty if too few samples
	UptimeRatio  float64   // fraction of samples with Status == StatusUp
}

// Calculator computes response-time statistics for a monitor's recent
// history.
type Calculator struct {
	history historyProvider
	log     zerolog.Logger
}

// New creates a Calculator.
func New(history historyProvider, log zerolog.Logger) *Calculator {
	return &Calculator{
		history: history,
		log:     log.With().Str("component", "analytics").Logger(),
	}
}

// Summarize computes a Summary for a monitor over its most recent `window`
// history entries (0 means the entire stored history).
func (c *Calculator) Summarize(monitorID string, window int) (Summary, error) {
	entries, err := c.history.FindByMonitorID(monitorID, window)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize monitor %s: %w", monitorID, err)
	}
	if len(entries) == 0 {
		return Summary{MonitorID: monitorID}, nil
	}

	// entries arrive newest-first; stats want chronological order, and
	// talib's SMA expects oldest-to-newest input.
	responseTimes := make([]float64, len(entries))
	for i, e := range entries {
		responseTimes[len(entries)-1-i] = float64(e.ResponseTimeMS)
	}

	mean, stddev := stat.MeanStdDev(responseTimes, nil)

	sorted := append([]float64(nil), responseTimes...)
	sort.Float64s(sorted)
	p95 := stat.Quantile(0.95, stat.Empirical, sorted, nil)

	var trend []float64
	if len(responseTimes) >= minSamplesRequired {
		trend = talib.Sma(responseTimes, smaPeriod)
		trend = trend[smaPeriod-1:] // talib pads the warm-up period with zeros
	}

	upCount := 0
	for _, e := range entries {
		if e.Status == domain.StatusUp {
			upCount++
		}
	}

	c.log.Debug().
		Str("monitor_id", monitorID).
		Int("samples", len(entries)).
		Float64("mean_ms", mean).
		Msg("computed response-time summary")

	return Summary{
		MonitorID:   monitorID,
		SampleCount: len(entries),
		MeanMS:      mean,
		StdDevMS:    stddev,
		P95MS:       p95,
		Trend:       trend,
		UptimeRatio: float64(upCount) / float64(len(entries)),
	}, nil
}
