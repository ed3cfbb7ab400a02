// Package teardown releases every resource a deployment created, in an
// order that avoids orphaning cloud load balancers.
package teardown

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/greenswitch/greenswitch/internal/platform/terraform"
)

// infraAPI is the slice of the provisioner teardown needs.
type infraAPI interface {
	HasState(ctx context.Context) bool
	Outputs(ctx context.Context) (*terraform.Outputs, error)
	Destroy(ctx context.Context, timeout time.Duration) error
}

// registryAPI purges container images so the repository can be destroyed.
type registryAPI interface {
	PurgeRegistry(ctx context.Context, registryURI string) error
}

// ClusterAPI removes in-cluster services that hold cloud load balancers.
type ClusterAPI interface {
	DeleteLoadBalancerServices(ctx context.Context, namespace string) error
}

// Config wires the collaborators and names of the deployment being removed.
type Config struct {
	Infra    infraAPI
	Registry registryAPI

	// Uninstall removes the CI server release. No-op when absent.
	Uninstall func(kubeconfig []byte, namespace, releaseName string) error

	// NewClusterClient builds a cluster client from a kubeconfig path.
	NewClusterClient func(kubeconfigPath string) (ClusterAPI, error)

	KubeconfigPath string
	Namespace      string
	ReleaseName    string
	DestroyTimeout time.Duration
}

// Controller tears a deployment down. Every step tolerates its target being
// already gone, so a second invocation is a clean no-op.
type Controller struct {
	cfg Config
}

func NewController(cfg Config) *Controller {
	return &Controller{cfg: cfg}
}

// Teardown releases resources in dependency order: in-cluster load
// balancers first (the cloud provider will not delete a VPC that still has
// LBs attached), then registry images, then the infrastructure itself.
func (c *Controller) Teardown(ctx context.Context) error {
	if !c.cfg.Infra.HasState(ctx) {
		log.Println("No infrastructure state found, nothing to tear down")
		return nil
	}

	c.releaseClusterResources(ctx)

	if err := c.purgeRegistry(ctx); err != nil {
		return err
	}

	log.Println("Destroying infrastructure")
	if err := c.cfg.Infra.Destroy(ctx, c.cfg.DestroyTimeout); err != nil {
		return fmt.Errorf("failed to destroy infrastructure: %w", err)
	}

	log.Println("Teardown complete")
	return nil
}

// releaseClusterResources is best-effort: a cluster that is unreachable or
// never finished provisioning must not block the destroy.
func (c *Controller) releaseClusterResources(ctx context.Context) {
	kubeconfig, err := os.ReadFile(c.cfg.KubeconfigPath)
	if err != nil {
		log.Printf("No kubeconfig at %s, skipping in-cluster cleanup", c.cfg.KubeconfigPath)
		return
	}

	log.Printf("Uninstalling release %s", c.cfg.ReleaseName)
	if err := c.cfg.Uninstall(kubeconfig, c.cfg.Namespace, c.cfg.ReleaseName); err != nil {
		log.Printf("Failed to uninstall release %s: %v", c.cfg.ReleaseName, err)
	}

	client, err := c.cfg.NewClusterClient(c.cfg.KubeconfigPath)
	if err != nil {
		log.Printf("Cluster unreachable, skipping load balancer cleanup: %v", err)
		return
	}

	log.Printf("Deleting load balancer services in namespace %s", c.cfg.Namespace)
	if err := client.DeleteLoadBalancerServices(ctx, c.cfg.Namespace); err != nil {
		log.Printf("Failed to delete load balancer services: %v", err)
	}
}

func (c *Controller) purgeRegistry(ctx context.Context) error {
	outputs, err := c.cfg.Infra.Outputs(ctx)
	if err != nil {
		// State exists but outputs are incomplete, e.g. a provision that
		// failed half way. Destroy still has to run.
		log.Printf("Could not read infrastructure outputs, skipping registry purge: %v", err)
		return nil
	}

	if outputs.RegistryURI == "" {
		return nil
	}

	log.Printf("Purging registry %s", outputs.RegistryURI)
	if err := c.cfg.Registry.PurgeRegistry(ctx, outputs.RegistryURI); err != nil {
		return fmt.Errorf("failed to purge registry: %w", err)
	}
	return nil
}
