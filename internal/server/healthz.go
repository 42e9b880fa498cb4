package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// healthzTimeout bounds how long the database checks inside healthz are
// allowed to take before the endpoint reports unhealthy rather than hang.
const healthzTimeout = 2 * time.Second

// healthChecker is the slice of internal/database.DB's API healthz needs.
type healthChecker interface {
	QuickCheck(ctx context.Context) error
	HealthCheck(ctx context.Context) error
}

// healthzResponse is the /healthz body: database status plus host
// resource usage.
type healthzResponse struct {
	Status     string  `json:"status"`
	Database   string  `json:"database"`
	CPUPercent float64 `json:"cpuPercent,omitempty"`
	MemUsedPct float64 `json:"memUsedPercent,omitempty"`
	MemUsedMB  uint64  `json:"memUsedMb,omitempty"`
	MemTotalMB uint64  `json:"memTotalMb,omitempty"`
}

// healthzHandler serves /healthz.
func healthzHandler(db healthChecker, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthzTimeout)
		defer cancel()

		resp := healthzResponse{Status: "ok", Database: "ok"}

		if err := db.QuickCheck(ctx); err != nil {
			log.Warn().Err(err).Msg("healthz: database quick check failed")
			resp.Status = "degraded"
			resp.Database = "degraded"
		}
		if err := db.HealthCheck(ctx); err != nil {
			log.Error().Err(err).Msg("healthz: database health check failed")
			resp.Status = "unhealthy"
			resp.Database = "unhealthy"
		}

		if pct, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pct) > 0 {
			resp.CPUPercent = pct[0]
		}
		if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
			resp.MemUsedPct = vm.UsedPercent
			resp.MemUsedMB = vm.Used / (1024 * 1024)
			resp.MemTotalMB = vm.Total / (1024 * 1024)
		}

		status := http.StatusOK
		if resp.Status == "unhealthy" {
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
