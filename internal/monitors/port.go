package monitors

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/uptimewatcher/watcher/internal/domain"
)

// PortService probes a monitor's host:port by opening and immediately
// closing a TCP connection; success means up, any failure means down.
type PortService struct{}

// NewPortService creates a PortService.
func NewPortService() *PortService {
	return &PortService{}
}

// Check implements Service.
func (s *PortService) Check(ctx context.Context, monitor domain.Monitor) (Result, error) {
	start := time.Now()

	address := net.JoinHostPort(monitor.Host, fmt.Sprintf("%d", monitor.Port))
	dialer := net.Dialer{}

	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		if ctx.Err() != nil {
			return elapsedDownResult(start, "cancelled"), ErrCancelled
		}
		return Result{Status: domain.StatusDown, ResponseTime: time.Since(start), Details: "connection_failed"}, nil
	}
	_ = conn.Close()

	return Result{Status: domain.StatusUp, ResponseTime: time.Since(start)}, nil
}
