package monitors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/uptimewatcher/watcher/internal/domain"
)

// HTTPService probes a monitor.URL with a GET request. Any non-2xx
// response, or a network-level failure, is reported as down; ctx carries
// the deadline (internal/checker derives it from monitor.Timeout).
type HTTPService struct {
	client *http.Client
}

// NewHTTPService creates an HTTPService. A fresh http.Client per service
// (not per request) reuses connections across checks of the same monitor.
func NewHTTPService() *HTTPService {
	return &HTTPService{client: &http.Client{}}
}

// Check implements Service.
func (s *HTTPService) Check(ctx context.Context, monitor domain.Monitor) (Result, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, monitor.URL, nil)
	if err != nil {
		return Result{Status: domain.StatusDown, ResponseTime: time.Since(start), Details: "invalid_url"}, nil
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return elapsedDownResult(start, "cancelled"), ErrCancelled
		}
		return Result{Status: domain.StatusDown, ResponseTime: time.Since(start), Details: classifyHTTPError(err)}, nil
	}
	defer resp.Body.Close()

	elapsed := time.Since(start)
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return Result{Status: domain.StatusUp, ResponseTime: elapsed, Details: fmt.Sprintf("%d", resp.StatusCode)}, nil
	}
	return Result{Status: domain.StatusDown, ResponseTime: elapsed, Details: fmt.Sprintf("%d", resp.StatusCode)}, nil
}

// classifyHTTPError turns a transport error into a short, stable details
// string rather than the raw (often verbose, host-specific) error text.
func classifyHTTPError(err error) string {
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	return "network_error"
}
