package commands

import (
	"github.com/spf13/cobra"

	"github.com/greenswitch/greenswitch/cmd/greenswitch/handlers"
)

// Deploy returns the command for running the blue-green deployment.
//
// Required flags:
//
//	--account: 12-digit AWS account id the infrastructure is provisioned in
//	--repo-url: source repository the pipeline builds from
//
// Optional flags:
//
//	--branch: branch the pipeline tracks (default: main)
//	--config, -c: path to configuration YAML (default: auto-detect greenswitch.yaml)
//	--cleanup-only: tear everything down instead of deploying
//	--skip-provision: reuse existing infrastructure
//	--green-only: resume a paused deployment with the green run
//	--non-interactive: pause after blue instead of prompting
//	--auto-commit: commit the version bump automatically
func Deploy() *cobra.Command {
	var opts handlers.DeployOptions

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Run the blue-green deployment",
		Long: `Run the blue-green deployment end to end.

This command provisions an EKS cluster and an ECR registry with Terraform,
installs Jenkins via Helm, waits for its load balancer, configures the
deployment pipeline, and triggers the blue deployment. After the blue run
succeeds it pauses so you can update the application, then triggers the
green deployment.

Examples:
  # Full deployment
  greenswitch deploy --account 123456789012 --repo-url https://github.com/acme/demo.git

  # Resume a paused deployment with the green run
  greenswitch deploy --green-only --account 123456789012 --repo-url https://github.com/acme/demo.git

  # Reuse infrastructure from an earlier run
  greenswitch deploy --skip-provision --account 123456789012 --repo-url https://github.com/acme/demo.git`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Deploy(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.AccountID, "account", "", "AWS account id (12 digits)")
	cmd.Flags().StringVar(&opts.RepoURL, "repo-url", "", "Source repository URL")
	cmd.Flags().StringVar(&opts.Branch, "branch", "", "Branch the pipeline tracks (default: main)")
	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to configuration file (default: greenswitch.yaml)")
	cmd.Flags().BoolVar(&opts.CleanupOnly, "cleanup-only", false, "Tear everything down instead of deploying")
	cmd.Flags().BoolVar(&opts.SkipProvision, "skip-provision", false, "Reuse existing infrastructure")
	cmd.Flags().BoolVar(&opts.GreenOnly, "green-only", false, "Resume with the green run only")
	cmd.Flags().BoolVar(&opts.NonInteractive, "non-interactive", false, "Pause after blue instead of prompting")
	cmd.Flags().BoolVar(&opts.AutoCommit, "auto-commit", false, "Commit the version bump automatically")

	return cmd
}
