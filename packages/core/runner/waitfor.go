package runner

import (
	"context"
	"fmt"
	"net/http"
	"time"

	hsthttp "github.com/abdul-hamid-achik/hitstep/packages/http"
)

const (
	DefaultWaitTimeout  = 30 * time.Second
	DefaultWaitInterval = 500 * time.Millisecond
)

// WaitFor describes a readiness probe run before any feature.
type WaitFor struct {
	URL      string
	Status   int
	Timeout  time.Duration
	Interval time.Duration
}

// WaitForService polls cfg.URL until it returns the expected status code,
// the timeout passes or ctx is done.
func (r *Runner) WaitForService(ctx context.Context, cfg *WaitFor) error {
	if cfg == nil || cfg.URL == "" {
		return nil
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultWaitInterval
	}
	expectedStatus := cfg.Status
	if expectedStatus == 0 {
		expectedStatus = http.StatusOK
	}

	r.logger.Debug("waiting for service", "url", cfg.URL, "status", expectedStatus, "timeout", timeout)

	// Separate client so probes stay out of the latency metrics.
	client := hsthttp.NewClient(
		hsthttp.WithTimeout(5*time.Second),
		hsthttp.WithValidateSSL(!r.config.Insecure),
		hsthttp.WithLogger(r.logger),
	)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastErr error
	var lastStatus int

	for {
		resp, err := client.Get(ctx, cfg.URL, nil)
		if err != nil {
			lastErr = err
		} else {
			lastStatus = resp.StatusCode
			if resp.StatusCode == expectedStatus {
				r.logger.Debug("service is ready", "url", cfg.URL, "status", resp.StatusCode)
				return nil
			}
		}

		select {
		case <-ctx.Done():
			if lastStatus != 0 {
				return fmt.Errorf("service %s not ready after %v: got status %d, expected %d",
					cfg.URL, timeout, lastStatus, expectedStatus)
			}
			return fmt.Errorf("service %s not ready after %v: %v", cfg.URL, timeout, lastErr)
		case <-ticker.C:
		}
	}
}
