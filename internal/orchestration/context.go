// Package orchestration drives a blue-green deployment end to end: it
// provisions infrastructure, installs and configures the CI server, runs the
// blue deployment, pauses for the operator's application update, then runs
// the green deployment.
package orchestration

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/greenswitch/greenswitch/internal/config"
	"github.com/greenswitch/greenswitch/internal/pipeline"
	"github.com/greenswitch/greenswitch/internal/platform/terraform"
)

// PhaseID identifies a stage of the deployment state machine.
type PhaseID string

const (
	PhaseInit                  PhaseID = "INIT"
	PhaseProvisioning          PhaseID = "PROVISIONING"
	PhaseConfiguringAccess     PhaseID = "CONFIGURING_ACCESS"
	PhaseInstallingCI          PhaseID = "INSTALLING_CI"
	PhaseWaitingForEndpoint    PhaseID = "WAITING_FOR_ENDPOINT"
	PhaseConfiguringPipeline   PhaseID = "CONFIGURING_PIPELINE"
	PhaseTriggeringBlue        PhaseID = "TRIGGERING_BLUE"
	PhaseAwaitingBlueResult    PhaseID = "AWAITING_BLUE_RESULT"
	PhaseAwaitingOperatorInput PhaseID = "AWAITING_OPERATOR_UPDATE"
	PhaseTriggeringGreen       PhaseID = "TRIGGERING_GREEN"
	PhaseAwaitingGreenResult   PhaseID = "AWAITING_GREEN_RESULT"
	PhaseDone                  PhaseID = "DONE"
	PhaseFailed                PhaseID = "FAILED"

	PhaseCleanup      PhaseID = "CLEANUP"
	PhaseTeardownDone PhaseID = "TEARDOWN_DONE"
)

// State holds the shared results of deployment phases. It is progressively
// populated as each phase completes.
type State struct {
	Phase          PhaseID
	Outputs        *terraform.Outputs
	KubeconfigPath string
	EndpointURL    string
	JobName        string
	LastRunColor   pipeline.Color
}

func NewState() *State {
	return &State{Phase: PhaseInit, LastRunColor: pipeline.ColorNone}
}

// InfraProvisioner creates and reads back the cloud infrastructure.
type InfraProvisioner interface {
	Apply(ctx context.Context, timeout time.Duration) (*terraform.Outputs, error)
	Outputs(ctx context.Context) (*terraform.Outputs, error)
	HasState(ctx context.Context) bool
}

// CloudAccess validates the target account and writes cluster credentials.
type CloudAccess interface {
	ValidateAccount(ctx context.Context, accountID string) error
	ConfigureAccess(ctx context.Context, clusterName, workDir string) (string, error)
}

// CIInstaller installs and removes the CI server release.
type CIInstaller interface {
	Install(kubeconfig []byte, roleARN, namespace, releaseName string) error
}

// ClusterClient is the slice of the Kubernetes client the phases need.
type ClusterClient interface {
	SecretValue(ctx context.Context, namespace, name, key string) (string, error)
	LoadBalancerAddress(ctx context.Context, namespace, name string) (string, error)
	ServicePort(ctx context.Context, namespace, name string) (int32, error)
	WaitForPodsReady(ctx context.Context, namespace, labelSelector string, timeout time.Duration) error
}

// CISession is an authenticated connection to the CI server.
type CISession interface {
	WaitForReady(ctx context.Context, maxAttempts int, initialDelay time.Duration) (string, error)
	EnsureCredentials(ctx context.Context, spec pipeline.CredentialSpec) error
	EnsureJob(ctx context.Context, name, repoURL, branch, credentialsID string) (string, error)
	Trigger(ctx context.Context, color pipeline.Color) (*pipeline.Run, error)
	AwaitCompletion(ctx context.Context, run *pipeline.Run, timeout, interval time.Duration) (*pipeline.Run, error)
}

// AppUpdater edits the demo application between blue and green.
type AppUpdater interface {
	BumpVersion(repoDir, filePath, version string) error
	IsDirty(repoDir string) (bool, error)
	CommitAll(repoDir, message string) error
}

// OperatorPrompt asks the operator to confirm the green deployment.
type OperatorPrompt interface {
	ConfirmGreen(ctx context.Context, message string) (bool, error)
}

// Options adjust which phases run and how the operator pause behaves.
type Options struct {
	SkipProvision  bool
	GreenOnly      bool
	NonInteractive bool
	AutoCommit     bool
}

// Context wraps all dependencies and state needed by deployment phases.
type Context struct {
	context.Context

	RunID    uuid.UUID
	Config   *config.Config
	Timeouts *config.Timeouts
	State    *State
	Options  Options
	Observer Observer

	Infra     InfraProvisioner
	Cloud     CloudAccess
	Installer CIInstaller
	Updater   AppUpdater
	Prompt    OperatorPrompt

	// NewClusterClient builds a cluster client once a kubeconfig exists.
	NewClusterClient func(kubeconfigPath string) (ClusterClient, error)

	// ConnectCI builds a CI session once the endpoint and the admin
	// password are known.
	ConnectCI func(baseURL, username, password string) (CISession, error)

	// Set by the access and pipeline phases respectively.
	Cluster ClusterClient
	CI      CISession
}

// NewContext creates a deployment context with a fresh run id and state.
func NewContext(ctx context.Context, cfg *config.Config, opts Options) *Context {
	return &Context{
		Context:  ctx,
		RunID:    uuid.New(),
		Config:   cfg,
		Timeouts: config.LoadTimeouts(),
		State:    NewState(),
		Options:  opts,
		Observer: NewConsoleObserver(),
	}
}
