// Package jenkins is a minimal REST client for the CI server's API: session
// auth with CSRF crumbs, job and credential management, build triggering and
// status polling.
package jenkins

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/greenswitch/greenswitch/internal/util/retry"
)

// AuthError is a rejected authentication against the CI server API.
// Credentials are operator-supplied and not self-healing, so callers report
// instead of retrying.
type AuthError struct {
	Status int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("ci server rejected credentials (HTTP %d)", e.Status)
}

// APIError is a non-auth API failure with the response body as diagnostic.
type APIError struct {
	Op     string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("ci server %s failed: HTTP %d", e.Op, e.Status)
	if body := strings.TrimSpace(e.Body); body != "" {
		msg += ": " + body
	}
	return msg
}

// crumb is the CSRF token Jenkins requires on mutating requests.
type crumb struct {
	Value string `json:"crumb"`
	Field string `json:"crumbRequestField"`
}

// Client talks to one CI server.
type Client struct {
	baseURL  string
	username string
	token    string

	http  *http.Client
	crumb *crumb
}

// NewClient creates a client for the server at baseURL. The cookie jar keeps
// the session alive so the crumb stays valid across requests.
func NewClient(baseURL, username, token string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		token:    token,
		http: &http.Client{
			Jar:     jar,
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Version returns the server version from the X-Jenkins response header.
// Doubles as the connectivity check.
func (c *Client) Version(ctx context.Context) (string, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/json", nil, "")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := c.checkStatus("version", resp); err != nil {
		return "", err
	}

	return resp.Header.Get("X-Jenkins"), nil
}

// WaitForAPI retries the connectivity check with backoff. The API often lags
// pod readiness while the server finishes its internal startup.
func (c *Client) WaitForAPI(ctx context.Context, maxAttempts int, initialDelay time.Duration) (string, error) {
	var version string
	err := retry.WithExponentialBackoff(ctx, func() error {
		v, err := c.Version(ctx)
		if err != nil {
			var authErr *AuthError
			if errors.As(err, &authErr) {
				return retry.Fatal(err)
			}
			return err
		}
		version = v
		return nil
	},
		retry.WithMaxRetries(maxAttempts),
		retry.WithInitialDelay(initialDelay))
	if err != nil {
		return "", fmt.Errorf("ci server api not reachable: %w", err)
	}
	return version, nil
}

// do issues an authenticated request, fetching a CSRF crumb first for
// mutating verbs.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	if method != http.MethodGet && method != http.MethodHead {
		if err := c.ensureCrumb(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	req.SetBasicAuth(c.username, c.token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.crumb != nil && method != http.MethodGet && method != http.MethodHead {
		req.Header.Set(c.crumb.Field, c.crumb.Value)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to ci server failed: %w", err)
	}

	return resp, nil
}

// ensureCrumb fetches the CSRF crumb once per session.
func (c *Client) ensureCrumb(ctx context.Context) error {
	if c.crumb != nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/crumbIssuer/api/json", nil)
	if err != nil {
		return fmt.Errorf("failed to build crumb request: %w", err)
	}
	req.SetBasicAuth(c.username, c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch crumb: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		// CSRF protection disabled on this server
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &AuthError{Status: resp.StatusCode}
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(resp.Body)
		return &APIError{Op: "fetch crumb", Status: resp.StatusCode, Body: string(body)}
	}

	var cr crumb
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return fmt.Errorf("failed to decode crumb: %w", err)
	}

	c.crumb = &cr
	return nil
}

// checkStatus drains error responses into typed errors.
func (c *Client) checkStatus(op string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return &AuthError{Status: resp.StatusCode}
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &APIError{Op: op, Status: resp.StatusCode, Body: string(body)}
}
