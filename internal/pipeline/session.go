package pipeline

import (
	"context"
	"time"

	"github.com/greenswitch/greenswitch/internal/platform/jenkins"
)

// Session bundles an authenticated CI client with the configurator and
// trigger for one deployment job.
type Session struct {
	client       *jenkins.Client
	configurator *Configurator
	trigger      *Trigger
}

func NewSession(client *jenkins.Client, job string) *Session {
	return &Session{
		client:       client,
		configurator: NewConfigurator(client),
		trigger:      NewTrigger(client, job),
	}
}

func (s *Session) WaitForReady(ctx context.Context, maxAttempts int, initialDelay time.Duration) (string, error) {
	return s.client.WaitForAPI(ctx, maxAttempts, initialDelay)
}

func (s *Session) EnsureCredentials(ctx context.Context, spec CredentialSpec) error {
	return s.configurator.EnsureCredentials(ctx, spec)
}

func (s *Session) EnsureJob(ctx context.Context, name, repoURL, branch, credentialsID string) (string, error) {
	return s.configurator.EnsureJob(ctx, name, repoURL, branch, credentialsID)
}

func (s *Session) Trigger(ctx context.Context, color Color) (*Run, error) {
	return s.trigger.Trigger(ctx, color)
}

func (s *Session) AwaitCompletion(ctx context.Context, run *Run, timeout, interval time.Duration) (*Run, error) {
	return s.trigger.AwaitCompletion(ctx, run, timeout, interval)
}
