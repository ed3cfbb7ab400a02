package jenkins

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTriggerJob(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/job/demo/build", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		w.Header().Set("Location", "http://"+r.Host+"/queue/item/42/")
		w.WriteHeader(http.StatusCreated)
	})

	id, err := client.TriggerJob(context.Background(), "demo")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestTriggerJobBadLocation(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "http://example/nothing-here")
		w.WriteHeader(http.StatusCreated)
	})

	_, err := client.TriggerJob(context.Background(), "demo")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
}

func TestParseQueueID(t *testing.T) {
	tests := []struct {
		name     string
		location string
		want     int64
		wantErr  bool
	}{
		{name: "trailing slash", location: "http://ci/queue/item/17/", want: 17},
		{name: "no trailing slash", location: "http://ci/queue/item/17", want: 17},
		{name: "missing", location: "http://ci/somewhere", wantErr: true},
		{name: "non numeric", location: "http://ci/queue/item/abc/", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseQueueID(tt.location)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQueueExecutable(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		want      int64
		wantFound bool
	}{
		{name: "still queued", status: http.StatusOK, body: `{"why":"waiting"}`, want: 0, wantFound: true},
		{name: "started", status: http.StatusOK, body: `{"executable":{"number":7}}`, want: 7, wantFound: true},
		{name: "item expired", status: http.StatusNotFound, want: 0, wantFound: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/queue/item/42/api/json", r.URL.Path)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			got, found, err := client.QueueExecutable(context.Background(), 42)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantFound, found)
		})
	}
}

func TestBuildInfo(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/job/demo/7/api/json", r.URL.Path)
		_, _ = w.Write([]byte(`{"number":7,"building":false,"result":"SUCCESS"}`))
	})

	build, err := client.BuildInfo(context.Background(), "demo", 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), build.Number)
	assert.False(t, build.Building)
	assert.Equal(t, "SUCCESS", build.Result)
}

func TestLastBuildNumber(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int64
	}{
		{name: "never built", body: `{"name":"demo"}`, want: 0},
		{name: "has builds", body: `{"lastBuild":{"number":3}}`, want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})

			got, err := client.LastBuildNumber(context.Background(), "demo")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPendingInput(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   *InputAction
	}{
		{name: "no wfapi", status: http.StatusNotFound, want: nil},
		{name: "no pending input", status: http.StatusOK, body: `[]`, want: nil},
		{
			name:   "paused at input",
			status: http.StatusOK,
			body:   `[{"id":"DeployGate","message":"Deploy to green?","proceedUrl":"/job/demo/7/input/DeployGate/proceedEmpty"}]`,
			want:   &InputAction{ID: "DeployGate", Message: "Deploy to green?", ProceedURL: "/job/demo/7/input/DeployGate/proceedEmpty"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/job/demo/7/wfapi/pendingInputActions", r.URL.Path)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			got, err := client.PendingInput(context.Background(), "demo", 7)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProceedInput(t *testing.T) {
	var gotPath string
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.Equal(t, http.MethodPost, r.Method)
		w.WriteHeader(http.StatusOK)
	})

	input := &InputAction{ID: "DeployGate"}
	err := client.ProceedInput(context.Background(), "demo", 7, input)
	require.NoError(t, err)
	assert.Equal(t, "/job/demo/7/input/DeployGate/proceedEmpty", gotPath)
}
