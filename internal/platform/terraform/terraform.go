// Package terraform adapts the terraform CLI as the infrastructure provisioner.
//
// The declarative resource definitions live outside this binary; this package
// only drives their apply/destroy lifecycle and parses the resulting outputs.
// Apply converges existing infrastructure instead of re-creating it, and
// destroy is a no-op when the state is already empty, so both verbs are safe
// to re-run.
package terraform

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Error is a provisioning failure with the captured tool output.
type Error struct {
	Verb   string // terraform verb that failed (init, apply, destroy, output)
	Output string // combined stdout/stderr from the tool
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("terraform %s failed: %v", e.Verb, e.Err)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += "\n" + out
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Outputs are the typed provisioner outputs consumed by every downstream step.
type Outputs struct {
	ClusterName string // EKS cluster name
	Region      string // cloud region the cluster lives in
	RoleARN     string // IAM role the CI server pods assume
	RegistryURI string // container registry the pipeline pushes to
}

// Validate requires every output to be present before downstream steps run.
func (o *Outputs) Validate() error {
	missing := []string{}
	if o.ClusterName == "" {
		missing = append(missing, "cluster_name")
	}
	if o.Region == "" {
		missing = append(missing, "region")
	}
	if o.RoleARN == "" {
		missing = append(missing, "ci_role_arn")
	}
	if o.RegistryURI == "" {
		missing = append(missing, "registry_url")
	}
	if len(missing) > 0 {
		return fmt.Errorf("provisioner outputs incomplete, missing: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Runner executes a terraform command in a working directory.
// Injectable so tests can run against a fake tool.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	fullArgs := append([]string{"-chdir=" + dir}, args...)
	// #nosec G204 - args are fixed terraform verbs, dir comes from config
	cmd := exec.CommandContext(ctx, "terraform", fullArgs...)
	return cmd.CombinedOutput()
}

// Provisioner drives terraform apply/destroy for a fixed resource graph.
type Provisioner struct {
	dir    string
	runner Runner
}

// NewProvisioner creates a provisioner for the given terraform directory.
func NewProvisioner(dir string) *Provisioner {
	return &Provisioner{dir: dir, runner: execRunner{}}
}

// NewProvisionerWithRunner creates a provisioner with a custom runner.
func NewProvisionerWithRunner(dir string, runner Runner) *Provisioner {
	return &Provisioner{dir: dir, runner: runner}
}

// Apply converges the infrastructure to the desired state and returns the
// provisioner outputs. Safe to call when infrastructure already exists.
func (p *Provisioner) Apply(ctx context.Context, timeout time.Duration) (*Outputs, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if out, err := p.runner.Run(ctx, p.dir, "init", "-input=false", "-no-color"); err != nil {
		return nil, &Error{Verb: "init", Output: string(out), Err: err}
	}

	if out, err := p.runner.Run(ctx, p.dir, "apply", "-auto-approve", "-input=false", "-no-color"); err != nil {
		return nil, &Error{Verb: "apply", Output: string(out), Err: err}
	}

	return p.Outputs(ctx)
}

// Destroy removes the infrastructure. Already-absent resources are a no-op;
// terraform skips anything not present in its state.
func (p *Provisioner) Destroy(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if out, err := p.runner.Run(ctx, p.dir, "init", "-input=false", "-no-color"); err != nil {
		return &Error{Verb: "init", Output: string(out), Err: err}
	}

	if out, err := p.runner.Run(ctx, p.dir, "destroy", "-auto-approve", "-input=false", "-no-color"); err != nil {
		return &Error{Verb: "destroy", Output: string(out), Err: err}
	}

	return nil
}

// Outputs reads the current provisioner outputs without mutating anything.
func (p *Provisioner) Outputs(ctx context.Context) (*Outputs, error) {
	out, err := p.runner.Run(ctx, p.dir, "output", "-json", "-no-color")
	if err != nil {
		return nil, &Error{Verb: "output", Output: string(out), Err: err}
	}

	outputs, err := parseOutputs(out)
	if err != nil {
		return nil, &Error{Verb: "output", Output: string(out), Err: err}
	}

	if err := outputs.Validate(); err != nil {
		return nil, &Error{Verb: "output", Err: err}
	}

	return outputs, nil
}

// HasState reports whether terraform already tracks provisioned resources.
// Used for state re-derivation across invocations; best effort.
func (p *Provisioner) HasState(ctx context.Context) bool {
	out, err := p.runner.Run(ctx, p.dir, "output", "-json", "-no-color")
	if err != nil {
		return false
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(out, &raw); err != nil {
		return false
	}

	return len(raw) > 0
}

// parseOutputs decodes `terraform output -json` into typed outputs.
func parseOutputs(data []byte) (*Outputs, error) {
	var raw map[string]struct {
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse outputs: %w", err)
	}

	stringOutput := func(name string) string {
		entry, ok := raw[name]
		if !ok {
			return ""
		}
		var s string
		if err := json.Unmarshal(entry.Value, &s); err != nil {
			return ""
		}
		return s
	}

	return &Outputs{
		ClusterName: stringOutput("cluster_name"),
		Region:      stringOutput("region"),
		RoleARN:     stringOutput("ci_role_arn"),
		RegistryURI: stringOutput("registry_url"),
	}, nil
}
