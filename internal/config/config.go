// Package config defines the deployment configuration and its loaders.
package config

import (
	"fmt"
	"regexp"
)

// Config holds the orchestrator configuration.
//
// Account and repository are operator-supplied; everything else has a
// sensible default so a minimal config file (or flags alone) is enough.
type Config struct {
	// AccountID is the cloud account the infrastructure is provisioned in.
	AccountID string `mapstructure:"account_id" yaml:"account_id"`

	// Region is the cloud region. Provisioner outputs take precedence once
	// infrastructure exists; this value seeds the initial API calls.
	Region string `mapstructure:"region" yaml:"region"`

	// RepoURL is the source repository the pipeline job builds from.
	RepoURL string `mapstructure:"repo_url" yaml:"repo_url"`

	// Branch is the branch the pipeline job tracks.
	Branch string `mapstructure:"branch" yaml:"branch"`

	// Namespace is the cluster namespace the CI server is installed into.
	Namespace string `mapstructure:"namespace" yaml:"namespace"`

	// ReleaseName is the Helm release name for the CI server.
	ReleaseName string `mapstructure:"release_name" yaml:"release_name"`

	// JobName is the pipeline job name on the CI server.
	JobName string `mapstructure:"job_name" yaml:"job_name"`

	// TerraformDir is the directory holding the infrastructure definitions.
	TerraformDir string `mapstructure:"terraform_dir" yaml:"terraform_dir"`

	// AppRepoDir is a local checkout of RepoURL, used for the version bump
	// between the blue and green runs. Empty disables the automatic bump.
	AppRepoDir string `mapstructure:"app_repo_dir" yaml:"app_repo_dir"`

	// AppFilePath is the file inside AppRepoDir carrying the version constant.
	AppFilePath string `mapstructure:"app_file_path" yaml:"app_file_path"`

	// WorkDir is where the orchestrator writes derived files (kubeconfig).
	WorkDir string `mapstructure:"work_dir" yaml:"work_dir"`

	// PrerequisitesCheckEnabled toggles the client tool check (default on).
	PrerequisitesCheckEnabled *bool `mapstructure:"prerequisites_check_enabled" yaml:"prerequisites_check_enabled"`
}

var accountIDRe = regexp.MustCompile(`^\d{12}$`)

// Validate checks the configuration for completeness.
func (c *Config) Validate() error {
	if c.AccountID == "" {
		return fmt.Errorf("account_id is required")
	}
	if !accountIDRe.MatchString(c.AccountID) {
		return fmt.Errorf("account_id must be a 12-digit account number, got %q", c.AccountID)
	}
	if c.RepoURL == "" {
		return fmt.Errorf("repo_url is required")
	}
	if c.Region == "" {
		return fmt.Errorf("region is required")
	}
	return nil
}

// ApplyDefaults fills unset optional fields.
func (c *Config) ApplyDefaults() {
	if c.Region == "" {
		c.Region = "us-east-1"
	}
	if c.Branch == "" {
		c.Branch = "main"
	}
	if c.Namespace == "" {
		c.Namespace = "blue-green-demo"
	}
	if c.ReleaseName == "" {
		c.ReleaseName = "jenkins"
	}
	if c.JobName == "" {
		c.JobName = "blue-green-pipeline"
	}
	if c.TerraformDir == "" {
		c.TerraformDir = "terraform"
	}
	if c.AppFilePath == "" {
		c.AppFilePath = "app/app.js"
	}
	if c.WorkDir == "" {
		c.WorkDir = ".greenswitch"
	}
}
