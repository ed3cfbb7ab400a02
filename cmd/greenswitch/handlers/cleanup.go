package handlers

import (
	"context"
	"log"
	"path/filepath"

	"github.com/greenswitch/greenswitch/internal/config"
	"github.com/greenswitch/greenswitch/internal/install"
	"github.com/greenswitch/greenswitch/internal/k8s"
	"github.com/greenswitch/greenswitch/internal/platform/terraform"
	"github.com/greenswitch/greenswitch/internal/teardown"
)

// newTeardownController builds the teardown controller - replaced in tests.
var newTeardownController = func(cfg teardown.Config) interface {
	Teardown(ctx context.Context) error
} {
	return teardown.NewController(cfg)
}

// Cleanup tears down everything a deployment created. Unlike Deploy it does
// not require account or repository settings: destroying whatever the local
// Terraform state describes must work even with a minimal config.
func Cleanup(ctx context.Context, configPath string) error {
	cfg := &config.Config{}

	path := configPath
	if path == "" {
		if found, err := findConfigFile(); err == nil {
			path = found
		}
	}
	if path != "" {
		loaded, err := loadConfigFile(path)
		if err != nil {
			return err
		}
		log.Printf("Using config: %s", path)
		cfg = loaded
	}
	cfg.ApplyDefaults()

	log.Printf("Cleaning up deployment in %s", cfg.Region)

	cloud, err := newCloudClient(ctx, cfg.Region)
	if err != nil {
		return err
	}

	timeouts := config.LoadTimeouts()
	installer := install.NewInstaller(timeouts.Install)

	ctrl := newTeardownController(teardown.Config{
		Infra:     terraform.NewProvisioner(cfg.TerraformDir),
		Registry:  cloud,
		Uninstall: installer.Uninstall,
		NewClusterClient: func(kubeconfigPath string) (teardown.ClusterAPI, error) {
			return k8s.NewClient(kubeconfigPath)
		},
		KubeconfigPath: filepath.Join(cfg.WorkDir, "kubeconfig"),
		Namespace:      cfg.Namespace,
		ReleaseName:    cfg.ReleaseName,
		DestroyTimeout: timeouts.Provision,
	})

	return ctrl.Teardown(ctx)
}
