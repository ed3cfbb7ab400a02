package jenkins

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestServer builds a server that issues a crumb and delegates everything
// else to handler.
func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/crumbIssuer/api/json" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"crumb":"abc123","crumbRequestField":"Jenkins-Crumb"}`))
			return
		}
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(srv.URL, "admin", "token")
	require.NoError(t, err)

	return srv, client
}

func TestVersion(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/json", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "admin", user)
		assert.Equal(t, "token", pass)
		w.Header().Set("X-Jenkins", "2.479.1")
		w.WriteHeader(http.StatusOK)
	})

	version, err := client.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2.479.1", version)
}

func TestVersionAuthError(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{name: "unauthorized", status: http.StatusUnauthorized},
		{name: "forbidden", status: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})

			_, err := client.Version(context.Background())
			var authErr *AuthError
			require.ErrorAs(t, err, &authErr)
			assert.Equal(t, tt.status, authErr.Status)
		})
	}
}

func TestWaitForAPIFatalOnAuthError(t *testing.T) {
	calls := 0
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.WaitForAPI(context.Background(), 5, time.Millisecond)
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, 1, calls, "auth failures should not be retried")
}

func TestWaitForAPIRetriesUntilReady(t *testing.T) {
	calls := 0
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("X-Jenkins", "2.479.1")
		w.WriteHeader(http.StatusOK)
	})

	version, err := client.WaitForAPI(context.Background(), 5, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "2.479.1", version)
	assert.Equal(t, 3, calls)
}

func TestMutatingRequestCarriesCrumb(t *testing.T) {
	var gotCrumb string
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotCrumb = r.Header.Get("Jenkins-Crumb")
		w.WriteHeader(http.StatusOK)
	})

	err := client.CreateJob(context.Background(), "demo", "<flow-definition/>")
	require.NoError(t, err)
	assert.Equal(t, "abc123", gotCrumb)
}

func TestCrumbIssuerDisabled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/crumbIssuer/api/json" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, "admin", "token")
	require.NoError(t, err)

	err = client.CreateJob(context.Background(), "demo", "<flow-definition/>")
	assert.NoError(t, err)
}

func TestAPIErrorIncludesBody(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("something broke"))
	})

	_, err := client.Version(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Contains(t, apiErr.Error(), "something broke")
}

func TestContextCancellation(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Version(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestErrorTypes(t *testing.T) {
	authErr := &AuthError{Status: 401}
	assert.Contains(t, authErr.Error(), "401")

	apiErr := &APIError{Op: "version", Status: 500, Body: "boom"}
	assert.Contains(t, apiErr.Error(), "version")

	var target *AuthError
	assert.False(t, errors.As(error(apiErr), &target))
}
