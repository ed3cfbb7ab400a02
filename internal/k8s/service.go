package k8s

import (
	"context"
	"fmt"
	"log"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// LoadBalancerAddress returns the external address of a LoadBalancer service,
// or "" if the cloud has not assigned one yet.
func (c *Client) LoadBalancerAddress(ctx context.Context, namespace, name string) (string, error) {
	svc, err := c.clientset.CoreV1().Services(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to get service %s/%s: %w", namespace, name, err)
	}

	for _, ingress := range svc.Status.LoadBalancer.Ingress {
		if ingress.Hostname != "" {
			return ingress.Hostname, nil
		}
		if ingress.IP != "" {
			return ingress.IP, nil
		}
	}

	return "", nil
}

// ServicePort returns the first port of a service.
func (c *Client) ServicePort(ctx context.Context, namespace, name string) (int32, error) {
	svc, err := c.clientset.CoreV1().Services(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to get service %s/%s: %w", namespace, name, err)
	}

	if len(svc.Spec.Ports) == 0 {
		return 0, fmt.Errorf("service %s/%s has no ports", namespace, name)
	}

	return svc.Spec.Ports[0].Port, nil
}

// DeleteLoadBalancerServices deletes every LoadBalancer service in the
// namespace. Workload-created load balancers hold cloud resources that block
// infrastructure deletion, so they must be released before destroy runs.
// A missing namespace is a no-op.
func (c *Client) DeleteLoadBalancerServices(ctx context.Context, namespace string) error {
	services, err := c.clientset.CoreV1().Services(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return fmt.Errorf("failed to list services in %s: %w", namespace, err)
	}

	for _, svc := range services.Items {
		if svc.Spec.Type != corev1.ServiceTypeLoadBalancer {
			continue
		}

		log.Printf("Deleting LoadBalancer service %s/%s", namespace, svc.Name)
		if err := c.clientset.CoreV1().Services(namespace).Delete(ctx, svc.Name, metav1.DeleteOptions{}); err != nil {
			return fmt.Errorf("failed to delete service %s/%s: %w", namespace, svc.Name, err)
		}
	}

	return nil
}
