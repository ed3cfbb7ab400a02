package handlers

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenswitch/greenswitch/internal/teardown"
)

type fakeTeardownController struct {
	calls int
	cfg   teardown.Config
}

func (f *fakeTeardownController) Teardown(context.Context) error {
	f.calls++
	return nil
}

func stubCleanupDeps(t *testing.T) *fakeTeardownController {
	t.Helper()

	origCloud := newCloudClient
	origCtrl := newTeardownController
	t.Cleanup(func() {
		newCloudClient = origCloud
		newTeardownController = origCtrl
	})

	newCloudClient = func(context.Context, string) (cloudClient, error) {
		return &fakeCloudClient{}, nil
	}

	ctrl := &fakeTeardownController{}
	newTeardownController = func(cfg teardown.Config) interface {
		Teardown(ctx context.Context) error
	} {
		ctrl.cfg = cfg
		return ctrl
	}

	return ctrl
}

func TestCleanupWiresController(t *testing.T) {
	ctrl := stubCleanupDeps(t)

	path := filepath.Join(t.TempDir(), "greenswitch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
account_id: "123456789012"
namespace: custom-ns
release_name: ci
work_dir: /tmp/gs-work
`), 0o644))

	require.NoError(t, Cleanup(context.Background(), path))

	assert.Equal(t, 1, ctrl.calls)
	assert.Equal(t, "custom-ns", ctrl.cfg.Namespace)
	assert.Equal(t, "ci", ctrl.cfg.ReleaseName)
	assert.Equal(t, filepath.Join("/tmp/gs-work", "kubeconfig"), ctrl.cfg.KubeconfigPath)
	assert.NotNil(t, ctrl.cfg.Infra)
	assert.NotNil(t, ctrl.cfg.Registry)
	assert.NotNil(t, ctrl.cfg.Uninstall)
	assert.NotNil(t, ctrl.cfg.NewClusterClient)
}

func TestCleanupWorksWithoutConfigFile(t *testing.T) {
	ctrl := stubCleanupDeps(t)

	// Run from a directory without a greenswitch.yaml so defaults apply.
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	require.NoError(t, Cleanup(context.Background(), ""))
	assert.Equal(t, 1, ctrl.calls)
	assert.Equal(t, "blue-green-demo", ctrl.cfg.Namespace)
	assert.Equal(t, "jenkins", ctrl.cfg.ReleaseName)
}

func TestDeployCleanupOnlyDelegates(t *testing.T) {
	ctrl := stubCleanupDeps(t)

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	require.NoError(t, Deploy(context.Background(), DeployOptions{CleanupOnly: true}))
	assert.Equal(t, 1, ctrl.calls)
}
