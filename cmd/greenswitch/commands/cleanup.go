package commands

import (
	"github.com/spf13/cobra"

	"github.com/greenswitch/greenswitch/cmd/greenswitch/handlers"
)

// Cleanup returns the command for tearing the deployment down.
func Cleanup() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Tear down everything a deployment created",
		Long: `Tear down everything a deployment created.

Removes the Jenkins release and any remaining load balancer services, purges
the container registry, then destroys the Terraform-managed infrastructure.
Each step tolerates its target being already gone, so cleanup can be re-run
after a partial failure.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Cleanup(cmd.Context(), configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: greenswitch.yaml)")

	return cmd
}
