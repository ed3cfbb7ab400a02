package aws

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/service/eks"
	"k8s.io/client-go/tools/clientcmd"
	clientcmdapi "k8s.io/client-go/tools/clientcmd/api"
)

// ConfigureAccess resolves the cluster endpoint and CA and writes a kubeconfig
// into workDir. Re-running rewrites the same context, so the call is
// idempotent. The kubeconfig uses the aws CLI exec plugin for tokens; no
// static credentials are written.
func (c *Client) ConfigureAccess(ctx context.Context, clusterName, workDir string) (string, error) {
	out, err := c.eks.DescribeCluster(ctx, &eks.DescribeClusterInput{Name: &clusterName})
	if err != nil {
		return "", &AccessError{Op: "describe cluster", Err: err}
	}

	cluster := out.Cluster
	if cluster == nil || cluster.Endpoint == nil || cluster.CertificateAuthority == nil || cluster.CertificateAuthority.Data == nil {
		return "", &AccessError{Op: "describe cluster", Err: fmt.Errorf("cluster %s has no endpoint yet", clusterName)}
	}

	caData, err := base64.StdEncoding.DecodeString(*cluster.CertificateAuthority.Data)
	if err != nil {
		return "", &AccessError{Op: "decode certificate authority", Err: err}
	}

	kubeconfig := buildKubeconfig(clusterName, *cluster.Endpoint, caData, c.region)

	if err := os.MkdirAll(workDir, 0o700); err != nil {
		return "", &AccessError{Op: "create work dir", Err: err}
	}

	path := filepath.Join(workDir, "kubeconfig")
	if err := clientcmd.WriteToFile(*kubeconfig, path); err != nil {
		return "", &AccessError{Op: "write kubeconfig", Err: err}
	}
	if err := os.Chmod(path, 0o600); err != nil {
		return "", &AccessError{Op: "chmod kubeconfig", Err: err}
	}

	return path, nil
}

// buildKubeconfig assembles a single-context kubeconfig around the aws
// exec-credential plugin.
func buildKubeconfig(clusterName, endpoint string, caData []byte, region string) *clientcmdapi.Config {
	contextName := fmt.Sprintf("%s@%s", clusterName, region)

	cfg := clientcmdapi.NewConfig()
	cfg.Clusters[clusterName] = &clientcmdapi.Cluster{
		Server:                   endpoint,
		CertificateAuthorityData: caData,
	}
	cfg.AuthInfos[clusterName] = &clientcmdapi.AuthInfo{
		Exec: &clientcmdapi.ExecConfig{
			APIVersion:      "client.authentication.k8s.io/v1beta1",
			Command:         "aws",
			Args:            []string{"eks", "get-token", "--cluster-name", clusterName, "--region", region},
			InteractiveMode: clientcmdapi.NeverExecInteractiveMode,
		},
	}
	cfg.Contexts[contextName] = &clientcmdapi.Context{
		Cluster:  clusterName,
		AuthInfo: clusterName,
	}
	cfg.CurrentContext = contextName

	return cfg
}
