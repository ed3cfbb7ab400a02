// Package handlers implements the business logic for CLI commands.
//
// This package contains handler functions that are called by command
// definitions in the commands package. Handlers are framework-agnostic and
// can be tested independently of the CLI framework.
package handlers

import (
	"context"
	"log"

	"github.com/greenswitch/greenswitch/internal/config"
	"github.com/greenswitch/greenswitch/internal/install"
	"github.com/greenswitch/greenswitch/internal/k8s"
	"github.com/greenswitch/greenswitch/internal/orchestration"
	"github.com/greenswitch/greenswitch/internal/pipeline"
	"github.com/greenswitch/greenswitch/internal/platform/aws"
	"github.com/greenswitch/greenswitch/internal/platform/jenkins"
	"github.com/greenswitch/greenswitch/internal/platform/terraform"
	"github.com/greenswitch/greenswitch/internal/util/prerequisites"
)

// DeployOptions carries the deploy command's flag values.
type DeployOptions struct {
	ConfigPath string
	AccountID  string
	RepoURL    string
	Branch     string

	CleanupOnly    bool
	SkipProvision  bool
	GreenOnly      bool
	NonInteractive bool
	AutoCommit     bool
}

// cloudClient is the AWS surface the handlers need.
type cloudClient interface {
	ValidateAccount(ctx context.Context, accountID string) error
	ConfigureAccess(ctx context.Context, clusterName, workDir string) (string, error)
	PurgeRegistry(ctx context.Context, registryURI string) error
}

// Factory function variables - can be replaced in tests for dependency injection.
var (
	// loadConfigFile loads config from file.
	loadConfigFile = config.LoadFile

	// findConfigFile finds the default config file.
	findConfigFile = config.FindConfigFile

	// checkDefaultPrereqs runs prerequisite checks.
	checkDefaultPrereqs = prerequisites.CheckDefault

	// newCloudClient creates an AWS client for the region.
	newCloudClient = func(ctx context.Context, region string) (cloudClient, error) {
		return aws.NewClient(ctx, region)
	}

	// runDeploy executes the deployment state machine.
	runDeploy = func(octx *orchestration.Context) error {
		return orchestration.NewOrchestrator().Deploy(octx)
	}
)

// Deploy runs the blue-green deployment end to end, or hands off to Cleanup
// when --cleanup-only is set.
func Deploy(ctx context.Context, opts DeployOptions) error {
	if opts.CleanupOnly {
		return Cleanup(ctx, opts.ConfigPath)
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	if err := checkPrerequisites(cfg); err != nil {
		return err
	}

	log.Printf("Deploying to account %s in %s", cfg.AccountID, cfg.Region)

	cloud, err := newCloudClient(ctx, cfg.Region)
	if err != nil {
		return err
	}

	octx := orchestration.NewContext(ctx, cfg, orchestration.Options{
		SkipProvision:  opts.SkipProvision,
		GreenOnly:      opts.GreenOnly,
		NonInteractive: opts.NonInteractive,
		AutoCommit:     opts.AutoCommit,
	})

	octx.Infra = terraform.NewProvisioner(cfg.TerraformDir)
	octx.Cloud = cloud
	octx.Installer = install.NewInstaller(octx.Timeouts.Install)
	octx.Updater = orchestration.GitUpdater{}
	octx.Prompt = orchestration.ConsolePrompt{}
	octx.NewClusterClient = func(kubeconfigPath string) (orchestration.ClusterClient, error) {
		return k8s.NewClient(kubeconfigPath)
	}
	octx.ConnectCI = func(baseURL, username, password string) (orchestration.CISession, error) {
		client, err := jenkins.NewClient(baseURL, username, password)
		if err != nil {
			return nil, err
		}
		return pipeline.NewSession(client, cfg.JobName), nil
	}

	return runDeploy(octx)
}

// loadConfig merges the config file (when present) with the command flags.
// Flags win so a config file can hold the static pieces while account and
// repository come from the command line.
func loadConfig(opts DeployOptions) (*config.Config, error) {
	cfg := &config.Config{}

	path := opts.ConfigPath
	if path == "" {
		if found, err := findConfigFile(); err == nil {
			path = found
		}
	}
	if path != "" {
		loaded, err := loadConfigFile(path)
		if err != nil {
			return nil, err
		}
		log.Printf("Using config: %s", path)
		cfg = loaded
	}

	if opts.AccountID != "" {
		cfg.AccountID = opts.AccountID
	}
	if opts.RepoURL != "" {
		cfg.RepoURL = opts.RepoURL
	}
	if opts.Branch != "" {
		cfg.Branch = opts.Branch
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// checkPrerequisites verifies required client tools are installed, unless
// the config disables the check.
func checkPrerequisites(cfg *config.Config) error {
	if cfg.PrerequisitesCheckEnabled != nil && !*cfg.PrerequisitesCheckEnabled {
		return nil
	}

	results := checkDefaultPrereqs()
	for _, tool := range results.Missing {
		if !tool.Required {
			log.Printf("Warning: %s not found: %s", tool.Name, tool.Description)
		}
	}
	return results.Error()
}
