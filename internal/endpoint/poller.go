// Package endpoint polls a to-be-assigned public endpoint until it is
// reachable.
package endpoint

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Endpoint is a confirmed public address. Once Reachable is set the endpoint
// is never re-checked; load balancer provisioning does not flap.
type Endpoint struct {
	URL           string
	Reachable     bool
	LastCheckedAt time.Time
}

// TimeoutError reports that the endpoint never became reachable within the
// deadline. Distinct from hard errors so callers may extend and retry.
type TimeoutError struct {
	Timeout  time.Duration
	Attempts int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("endpoint not reachable after %v (%d probes)", e.Timeout, e.Attempts)
}

// Probe checks once whether the endpoint is assigned and responding. Probes
// are read-only; they must not mutate external systems.
type Probe func(ctx context.Context) (url string, reachable bool, err error)

// WaitForEndpoint invokes probe at fixed intervals until it reports reachable
// or timeout elapses. The first probe fires immediately. Probe errors count
// as "not yet reachable" since the address usually does not resolve while the
// load balancer is provisioning.
func WaitForEndpoint(ctx context.Context, probe Probe, timeout, interval time.Duration) (*Endpoint, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	attempts := 0
	for {
		attempts++
		url, reachable, err := probe(ctx)
		if err == nil && reachable {
			return &Endpoint{URL: url, Reachable: true, LastCheckedAt: time.Now()}, nil
		}

		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return nil, &TimeoutError{Timeout: timeout, Attempts: attempts}
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// HTTPProbe returns a probe that resolves a URL via resolve and then checks
// that path answers with any HTTP status. A served error page still means the
// listener exists, which is all "reachable" asks.
func HTTPProbe(resolve func(ctx context.Context) (string, error), path string) Probe {
	client := &http.Client{Timeout: 5 * time.Second}

	return func(ctx context.Context) (string, bool, error) {
		url, err := resolve(ctx)
		if err != nil {
			return "", false, err
		}
		if url == "" {
			return "", false, nil
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url+path, nil)
		if err != nil {
			return url, false, err
		}

		resp, err := client.Do(req)
		if err != nil {
			return url, false, nil
		}
		defer resp.Body.Close()

		return url, resp.StatusCode < http.StatusInternalServerError, nil
	}
}
