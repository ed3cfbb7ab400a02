// Package install manages the CI server's Helm release in the cluster.
package install

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/discovery/cached/memory"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/restmapper"
	"k8s.io/client-go/tools/clientcmd"
	clientcmdapi "k8s.io/client-go/tools/clientcmd/api"
	sigsyaml "sigs.k8s.io/yaml"

	"helm.sh/helm/v3/pkg/action"
	"helm.sh/helm/v3/pkg/chart/loader"
	"helm.sh/helm/v3/pkg/cli"
	"helm.sh/helm/v3/pkg/getter"
	"helm.sh/helm/v3/pkg/repo"
	"helm.sh/helm/v3/pkg/storage/driver"
)

const (
	chartRepoName = "jenkins"
	chartRepoURL  = "https://charts.jenkins.io"
	chartName     = "jenkins"
)

// Error is a CI server install/uninstall failure.
type Error struct {
	Release string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("ci server release %s: %v", e.Release, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Values is the chart configuration the orchestrator controls. The role ARN
// annotation makes the CI pods assume a delegated cloud role; no static keys
// land in cluster state.
type Values struct {
	Controller struct {
		ServiceType string `json:"serviceType"`
	} `json:"controller"`
	ServiceAccount struct {
		Annotations map[string]string `json:"annotations"`
	} `json:"serviceAccount"`
}

// renderValues produces the helm values map for the CI server chart.
func renderValues(roleARN string) (map[string]interface{}, error) {
	var v Values
	v.Controller.ServiceType = "LoadBalancer"
	v.ServiceAccount.Annotations = map[string]string{
		"eks.amazonaws.com/role-arn": roleARN,
	}

	data, err := sigsyaml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to render values: %w", err)
	}

	var values map[string]interface{}
	if err := sigsyaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to render values: %w", err)
	}

	return values, nil
}

// Installer handles the CI server's Helm lifecycle.
type Installer struct {
	settings *cli.EnvSettings
	timeout  time.Duration
}

// NewInstaller creates a new Installer with the given install timeout.
func NewInstaller(timeout time.Duration) *Installer {
	return &Installer{
		settings: cli.New(),
		timeout:  timeout,
	}
}

// Install installs or upgrades the CI server release. Re-running upgrades an
// existing installation rather than erroring.
func (i *Installer) Install(kubeconfig []byte, roleARN, namespace, releaseName string) error {
	values, err := renderValues(roleARN)
	if err != nil {
		return &Error{Release: releaseName, Err: err}
	}

	actionConfig, err := i.actionConfig(kubeconfig, namespace)
	if err != nil {
		return &Error{Release: releaseName, Err: err}
	}

	if err := i.addRepo(chartRepoName, chartRepoURL); err != nil {
		return &Error{Release: releaseName, Err: fmt.Errorf("failed to add chart repo: %w", err)}
	}

	cp := &action.ChartPathOptions{RepoURL: chartRepoURL}
	chartPath, err := cp.LocateChart(chartName, i.settings)
	if err != nil {
		return &Error{Release: releaseName, Err: fmt.Errorf("failed to locate chart: %w", err)}
	}

	chart, err := loader.Load(chartPath)
	if err != nil {
		return &Error{Release: releaseName, Err: fmt.Errorf("failed to load chart: %w", err)}
	}

	// Existing release means upgrade, not a duplicate install
	histClient := action.NewHistory(actionConfig)
	histClient.Max = 1
	if _, err := histClient.Run(releaseName); err == nil {
		log.Printf("Release %s exists, upgrading", releaseName)
		upgrade := action.NewUpgrade(actionConfig)
		upgrade.Namespace = namespace
		upgrade.Wait = true
		upgrade.Timeout = i.timeout
		if _, err := upgrade.Run(releaseName, chart, values); err != nil {
			return &Error{Release: releaseName, Err: fmt.Errorf("helm upgrade failed: %w", err)}
		}
		return nil
	}

	install := action.NewInstall(actionConfig)
	install.Namespace = namespace
	install.ReleaseName = releaseName
	install.CreateNamespace = true
	install.Wait = true
	install.Timeout = i.timeout
	if _, err := install.Run(chart, values); err != nil {
		return &Error{Release: releaseName, Err: fmt.Errorf("helm install failed: %w", err)}
	}

	return nil
}

// Uninstall removes the CI server release. A missing release is a no-op so
// teardown stays idempotent.
func (i *Installer) Uninstall(kubeconfig []byte, namespace, releaseName string) error {
	actionConfig, err := i.actionConfig(kubeconfig, namespace)
	if err != nil {
		return &Error{Release: releaseName, Err: err}
	}

	uninstall := action.NewUninstall(actionConfig)
	uninstall.Timeout = i.timeout
	uninstall.Wait = true

	if _, err := uninstall.Run(releaseName); err != nil {
		if strings.Contains(err.Error(), driver.ErrReleaseNotFound.Error()) {
			return nil
		}
		return &Error{Release: releaseName, Err: fmt.Errorf("helm uninstall failed: %w", err)}
	}

	return nil
}

// actionConfig builds a helm action configuration against the cluster.
func (i *Installer) actionConfig(kubeconfig []byte, namespace string) (*action.Configuration, error) {
	restConfig, err := clientcmd.RESTConfigFromKubeConfig(kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create rest config: %w", err)
	}

	actionConfig := new(action.Configuration)
	clientGetter := &genericRESTClientGetter{
		config:    restConfig,
		namespace: namespace,
	}

	if err := actionConfig.Init(clientGetter, namespace, os.Getenv("HELM_DRIVER"), log.Printf); err != nil {
		return nil, fmt.Errorf("failed to init action config: %w", err)
	}

	return actionConfig, nil
}

// addRepo adds a repository to the helm settings.
func (i *Installer) addRepo(name, url string) error {
	f, err := repo.LoadFile(i.settings.RepositoryConfig)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if os.IsNotExist(err) {
		f = repo.NewFile()
	}

	c := repo.Entry{
		Name: name,
		URL:  url,
	}

	r, err := repo.NewChartRepository(&c, getter.All(i.settings))
	if err != nil {
		return err
	}

	if _, err := r.DownloadIndexFile(); err != nil {
		return err
	}

	f.Update(&c)
	return f.WriteFile(i.settings.RepositoryConfig, 0644)
}

// genericRESTClientGetter implements basic RESTClientGetter for Helm.
type genericRESTClientGetter struct {
	config    *rest.Config
	namespace string
}

func (g *genericRESTClientGetter) ToRESTConfig() (*rest.Config, error) {
	return g.config, nil
}

func (g *genericRESTClientGetter) ToDiscoveryClient() (discovery.CachedDiscoveryInterface, error) {
	discoveryClient, err := discovery.NewDiscoveryClientForConfig(g.config)
	if err != nil {
		return nil, err
	}
	return memory.NewMemCacheClient(discoveryClient), nil
}

func (g *genericRESTClientGetter) ToRESTMapper() (meta.RESTMapper, error) {
	discoveryClient, err := g.ToDiscoveryClient()
	if err != nil {
		return nil, err
	}
	return restmapper.NewDeferredDiscoveryRESTMapper(discoveryClient), nil
}

func (g *genericRESTClientGetter) ToRawKubeConfigLoader() clientcmd.ClientConfig {
	return clientcmd.NewDefaultClientConfig(*clientcmdapi.NewConfig(), &clientcmd.ConfigOverrides{})
}
