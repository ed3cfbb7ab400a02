package jenkins

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobExists(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/job/present/api/json" {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"name":"present"}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	exists, err := client.JobExists(context.Background(), "present")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = client.JobExists(context.Background(), "absent")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCreateJob(t *testing.T) {
	var gotName, gotBody, gotContentType string
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/createItem", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		gotName = r.URL.Query().Get("name")
		gotContentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	})

	err := client.CreateJob(context.Background(), "blue-green-pipeline", "<flow-definition/>")
	require.NoError(t, err)
	assert.Equal(t, "blue-green-pipeline", gotName)
	assert.Equal(t, "<flow-definition/>", gotBody)
	assert.Equal(t, "application/xml", gotContentType)
}

func TestReconfigureJob(t *testing.T) {
	var gotPath string
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	})

	err := client.ReconfigureJob(context.Background(), "blue-green-pipeline", "<flow-definition/>")
	require.NoError(t, err)
	assert.Equal(t, "/job/blue-green-pipeline/config.xml", gotPath)
}

func TestCredentialLifecycle(t *testing.T) {
	var created, updated string
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/credentials/store/system/domain/_/credential/repo-token/api/json":
			w.WriteHeader(http.StatusNotFound)
		case "/credentials/store/system/domain/_/createCredentials":
			body, _ := io.ReadAll(r.Body)
			created = string(body)
			w.WriteHeader(http.StatusOK)
		case "/credentials/store/system/domain/_/credential/repo-token/config.xml":
			body, _ := io.ReadAll(r.Body)
			updated = string(body)
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	exists, err := client.CredentialExists(context.Background(), "repo-token")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, client.CreateCredential(context.Background(), "<credentials/>"))
	assert.Equal(t, "<credentials/>", created)

	require.NoError(t, client.UpdateCredential(context.Background(), "repo-token", "<credentials v2/>"))
	assert.Equal(t, "<credentials v2/>", updated)
}
