package orchestration

import (
	"context"
	"fmt"
	"os"

	"github.com/greenswitch/greenswitch/internal/endpoint"
	"github.com/greenswitch/greenswitch/internal/pipeline"
)

const (
	adminUser            = "admin"
	adminPasswordSecret  = "jenkins-admin-password"
	registryCredentialID = "registry-url"
	ciControllerSelector = "app.kubernetes.io/component=jenkins-controller"
	greenVersion         = "2.0 (GREEN)"
)

// initStep validates the target account and prepares the working directory.
type initStep struct{}

func (initStep) ID() PhaseID { return PhaseInit }

func (initStep) Run(ctx *Context) error {
	if err := ctx.Cloud.ValidateAccount(ctx, ctx.Config.AccountID); err != nil {
		return err
	}

	if err := os.MkdirAll(ctx.Config.WorkDir, 0o755); err != nil {
		return fmt.Errorf("failed to create work directory %s: %w", ctx.Config.WorkDir, err)
	}

	return nil
}

// provisionStep creates the infrastructure, or reads it back when the
// operator chose to reuse what already exists.
type provisionStep struct{}

func (provisionStep) ID() PhaseID { return PhaseProvisioning }

func (provisionStep) Run(ctx *Context) error {
	if ctx.Options.SkipProvision {
		ctx.Observer.Printf("Reusing existing infrastructure")
		outputs, err := ctx.Infra.Outputs(ctx)
		if err != nil {
			return fmt.Errorf("no reusable infrastructure found: %w", err)
		}
		ctx.State.Outputs = outputs
		return nil
	}

	outputs, err := ctx.Infra.Apply(ctx, ctx.Timeouts.Provision)
	if err != nil {
		return err
	}

	ctx.State.Outputs = outputs
	ctx.Observer.Event(Event{
		Type:     EventPhaseCompleted,
		Phase:    PhaseProvisioning,
		Message:  "infrastructure ready",
		Resource: outputs.ClusterName,
	})
	return nil
}

// accessStep writes the kubeconfig and connects to the cluster.
type accessStep struct{}

func (accessStep) ID() PhaseID { return PhaseConfiguringAccess }

func (accessStep) Run(ctx *Context) error {
	path, err := ctx.Cloud.ConfigureAccess(ctx, ctx.State.Outputs.ClusterName, ctx.Config.WorkDir)
	if err != nil {
		return err
	}
	ctx.State.KubeconfigPath = path

	client, err := ctx.NewClusterClient(path)
	if err != nil {
		return fmt.Errorf("failed to connect to cluster: %w", err)
	}
	ctx.Cluster = client
	return nil
}

// installStep installs the CI server release into the cluster and waits for
// its controller pods to report ready before the endpoint wait starts.
type installStep struct{}

func (installStep) ID() PhaseID { return PhaseInstallingCI }

func (installStep) Run(ctx *Context) error {
	kubeconfig, err := os.ReadFile(ctx.State.KubeconfigPath)
	if err != nil {
		return fmt.Errorf("failed to read kubeconfig: %w", err)
	}

	if err := ctx.Installer.Install(kubeconfig, ctx.State.Outputs.RoleARN, ctx.Config.Namespace, ctx.Config.ReleaseName); err != nil {
		return err
	}

	if err := ctx.Cluster.WaitForPodsReady(ctx, ctx.Config.Namespace, ciControllerSelector, ctx.Timeouts.Install); err != nil {
		return fmt.Errorf("ci server pods not ready: %w", err)
	}
	ctx.Observer.Printf("CI server pods ready")
	return nil
}

// endpointStep waits for the CI server's load balancer to become reachable.
type endpointStep struct{}

func (endpointStep) ID() PhaseID { return PhaseWaitingForEndpoint }

func (s endpointStep) Run(ctx *Context) error {
	ep, err := endpoint.WaitForEndpoint(ctx, s.probe(ctx), ctx.Timeouts.Endpoint, ctx.Timeouts.EndpointInterval)
	if err != nil {
		return err
	}

	ctx.State.EndpointURL = ep.URL
	ctx.Observer.Printf("CI server reachable at %s", ep.URL)
	return nil
}

func (endpointStep) probe(ctx *Context) endpoint.Probe {
	resolve := func(probeCtx context.Context) (string, error) {
		address, err := ctx.Cluster.LoadBalancerAddress(probeCtx, ctx.Config.Namespace, ctx.Config.ReleaseName)
		if err != nil || address == "" {
			return "", err
		}
		port, err := ctx.Cluster.ServicePort(probeCtx, ctx.Config.Namespace, ctx.Config.ReleaseName)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("http://%s:%d", address, port), nil
	}
	return endpoint.HTTPProbe(resolve, "/login")
}

// pipelineStep authenticates against the CI server and upserts the
// deployment job and its credentials.
type pipelineStep struct{}

func (pipelineStep) ID() PhaseID { return PhaseConfiguringPipeline }

func (pipelineStep) Run(ctx *Context) error {
	password, err := ctx.Cluster.SecretValue(ctx, ctx.Config.Namespace, ctx.Config.ReleaseName, adminPasswordSecret)
	if err != nil {
		return fmt.Errorf("failed to read admin password: %w", err)
	}

	ci, err := ctx.ConnectCI(ctx.State.EndpointURL, adminUser, password)
	if err != nil {
		return err
	}

	version, err := ci.WaitForReady(ctx, ctx.Timeouts.RetryMaxAttempts, ctx.Timeouts.RetryInitialDelay)
	if err != nil {
		return err
	}
	ctx.Observer.Printf("CI server version %s ready", version)

	err = ci.EnsureCredentials(ctx, pipeline.CredentialSpec{
		ID:          registryCredentialID,
		Kind:        pipeline.CredentialSecretText,
		Description: "container registry for pipeline pushes",
		Secret:      ctx.State.Outputs.RegistryURI,
	})
	if err != nil {
		return err
	}

	jobName, err := ci.EnsureJob(ctx, ctx.Config.JobName, ctx.Config.RepoURL, ctx.Config.Branch, "")
	if err != nil {
		return err
	}

	ctx.CI = ci
	ctx.State.JobName = jobName
	return nil
}

// runStep triggers one colored run and waits for its result.
type runStep struct {
	color        pipeline.Color
	triggerPhase PhaseID
	awaitPhase   PhaseID
}

func newBlueStep() runStep {
	return runStep{color: pipeline.ColorBlue, triggerPhase: PhaseTriggeringBlue, awaitPhase: PhaseAwaitingBlueResult}
}

func newGreenStep() runStep {
	return runStep{color: pipeline.ColorGreen, triggerPhase: PhaseTriggeringGreen, awaitPhase: PhaseAwaitingGreenResult}
}

func (s runStep) ID() PhaseID { return s.triggerPhase }

func (s runStep) Run(ctx *Context) error {
	run, err := ctx.CI.Trigger(ctx, s.color)
	if err != nil {
		return err
	}
	ctx.Observer.Event(Event{
		Type:     EventRunTriggered,
		Phase:    s.triggerPhase,
		Message:  fmt.Sprintf("%s run queued", s.color),
		Resource: ctx.State.JobName,
	})

	ctx.State.Phase = s.awaitPhase
	run, err = ctx.CI.AwaitCompletion(ctx, run, ctx.Timeouts.Pipeline, ctx.Timeouts.PipelineInterval)
	if err != nil {
		return err
	}

	switch run.Status {
	case pipeline.StatusSucceeded:
		ctx.State.LastRunColor = s.color
		ctx.Observer.Event(Event{
			Type:    EventRunFinished,
			Phase:   s.awaitPhase,
			Message: fmt.Sprintf("%s run succeeded", s.color),
		})
		return nil
	case pipeline.StatusTimedOut:
		return fmt.Errorf("%s run did not finish within %v; the build may still be executing, raise GREENSWITCH_TIMEOUT_PIPELINE to wait longer", s.color, ctx.Timeouts.Pipeline)
	default:
		return fmt.Errorf("%s run finished with status %s", s.color, run.Status)
	}
}

// operatorStep is the pause between blue and green: the application gets its
// version bump, and the operator decides when the green run starts.
type operatorStep struct{}

func (operatorStep) ID() PhaseID { return PhaseAwaitingOperatorInput }

func (s operatorStep) Run(ctx *Context) error {
	instructions, err := s.updateApplication(ctx)
	if err != nil {
		return err
	}

	if ctx.Options.NonInteractive {
		ctx.Observer.Printf("Blue deployment complete. %s", instructions)
		ctx.Observer.Printf("Resume with: greenswitch deploy --green-only --account %s --repo-url %s", ctx.Config.AccountID, ctx.Config.RepoURL)
		return ErrPaused
	}

	proceed, err := ctx.Prompt.ConfirmGreen(ctx, instructions)
	if err != nil {
		return fmt.Errorf("operator prompt failed: %w", err)
	}
	if !proceed {
		ctx.Observer.Printf("Resume with: greenswitch deploy --green-only --account %s --repo-url %s", ctx.Config.AccountID, ctx.Config.RepoURL)
		return ErrPaused
	}
	return nil
}

// updateApplication bumps the version constant in the local checkout and
// either commits it or tells the operator to. Without a local checkout the
// operator updates the application entirely by hand.
func (operatorStep) updateApplication(ctx *Context) (string, error) {
	if ctx.Config.AppRepoDir == "" {
		return fmt.Sprintf("Update the application to %q and push to %s before the green run.", greenVersion, ctx.Config.RepoURL), nil
	}

	if err := ctx.Updater.BumpVersion(ctx.Config.AppRepoDir, ctx.Config.AppFilePath, greenVersion); err != nil {
		return "", err
	}
	ctx.Observer.Printf("Bumped %s to %q", ctx.Config.AppFilePath, greenVersion)

	if ctx.Options.AutoCommit {
		if err := ctx.Updater.CommitAll(ctx.Config.AppRepoDir, "bump version for green deployment"); err != nil {
			return "", err
		}
		return "Version bump committed; push it before the green run.", nil
	}

	dirty, err := ctx.Updater.IsDirty(ctx.Config.AppRepoDir)
	if err != nil {
		return "", err
	}
	if dirty {
		return fmt.Sprintf("Commit and push the version bump in %s before the green run.", ctx.Config.AppRepoDir), nil
	}
	return "Push the version bump before the green run.", nil
}
