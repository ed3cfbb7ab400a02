package pipeline

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"strings"
	"text/template"
)

// configAPI is the slice of the CI client the configurator needs.
type configAPI interface {
	JobExists(ctx context.Context, name string) (bool, error)
	CreateJob(ctx context.Context, name, configXML string) error
	ReconfigureJob(ctx context.Context, name, configXML string) error
	CredentialExists(ctx context.Context, id string) (bool, error)
	CreateCredential(ctx context.Context, configXML string) error
	UpdateCredential(ctx context.Context, id, configXML string) error
}

// CredentialKind selects the credential implementation to create.
type CredentialKind string

const (
	CredentialSecretText       CredentialKind = "secret-text"
	CredentialUsernamePassword CredentialKind = "username-password"
)

// CredentialSpec describes a credential in the system store.
type CredentialSpec struct {
	ID          string
	Kind        CredentialKind
	Description string
	Username    string
	Secret      string
}

// Configurator upserts the deployment job and its credentials. Every
// operation is idempotent: repeating a call leaves exactly one job or
// credential with the given name.
type Configurator struct {
	ci configAPI
}

func NewConfigurator(ci configAPI) *Configurator {
	return &Configurator{ci: ci}
}

// EnsureJob creates or reconfigures the pipeline-from-SCM job and returns
// its name as the job id.
func (c *Configurator) EnsureJob(ctx context.Context, name, repoURL, branch, credentialsID string) (string, error) {
	configXML, err := renderJobXML(repoURL, branch, credentialsID)
	if err != nil {
		return "", err
	}

	exists, err := c.ci.JobExists(ctx, name)
	if err != nil {
		return "", fmt.Errorf("failed to check job %s: %w", name, err)
	}

	if exists {
		if err := c.ci.ReconfigureJob(ctx, name, configXML); err != nil {
			return "", fmt.Errorf("failed to reconfigure job %s: %w", name, err)
		}
	} else {
		if err := c.ci.CreateJob(ctx, name, configXML); err != nil {
			return "", fmt.Errorf("failed to create job %s: %w", name, err)
		}
	}

	return name, nil
}

// EnsureCredentials creates or updates a credential in the system store.
func (c *Configurator) EnsureCredentials(ctx context.Context, spec CredentialSpec) error {
	configXML, err := renderCredentialXML(spec)
	if err != nil {
		return err
	}

	exists, err := c.ci.CredentialExists(ctx, spec.ID)
	if err != nil {
		return fmt.Errorf("failed to check credential %s: %w", spec.ID, err)
	}

	if exists {
		if err := c.ci.UpdateCredential(ctx, spec.ID, configXML); err != nil {
			return fmt.Errorf("failed to update credential %s: %w", spec.ID, err)
		}
		return nil
	}

	if err := c.ci.CreateCredential(ctx, configXML); err != nil {
		return fmt.Errorf("failed to create credential %s: %w", spec.ID, err)
	}
	return nil
}

var jobTemplate = template.Must(template.New("job").Parse(`<?xml version='1.1' encoding='UTF-8'?>
<flow-definition plugin="workflow-job">
  <description>Blue-green deployment pipeline</description>
  <keepDependencies>false</keepDependencies>
  <definition class="org.jenkinsci.plugins.workflow.cps.CpsScmFlowDefinition" plugin="workflow-cps">
    <scm class="hudson.plugins.git.GitSCM" plugin="git">
      <configVersion>2</configVersion>
      <userRemoteConfigs>
        <hudson.plugins.git.UserRemoteConfig>
          <url>{{.RepoURL}}</url>{{if .CredentialsID}}
          <credentialsId>{{.CredentialsID}}</credentialsId>{{end}}
        </hudson.plugins.git.UserRemoteConfig>
      </userRemoteConfigs>
      <branches>
        <hudson.plugins.git.BranchSpec>
          <name>*/{{.Branch}}</name>
        </hudson.plugins.git.BranchSpec>
      </branches>
      <doGenerateSubmoduleConfigurations>false</doGenerateSubmoduleConfigurations>
    </scm>
    <scriptPath>Jenkinsfile</scriptPath>
    <lightweight>true</lightweight>
  </definition>
  <triggers/>
  <disabled>false</disabled>
</flow-definition>
`))

func renderJobXML(repoURL, branch, credentialsID string) (string, error) {
	var buf bytes.Buffer
	err := jobTemplate.Execute(&buf, struct {
		RepoURL       string
		Branch        string
		CredentialsID string
	}{
		RepoURL:       escapeXML(repoURL),
		Branch:        escapeXML(branch),
		CredentialsID: escapeXML(credentialsID),
	})
	if err != nil {
		return "", fmt.Errorf("failed to render job config: %w", err)
	}
	return buf.String(), nil
}

var credentialTemplates = map[CredentialKind]*template.Template{
	CredentialSecretText: template.Must(template.New("secret-text").Parse(`<org.jenkinsci.plugins.plaincredentials.impl.StringCredentialsImpl>
  <scope>GLOBAL</scope>
  <id>{{.ID}}</id>
  <description>{{.Description}}</description>
  <secret>{{.Secret}}</secret>
</org.jenkinsci.plugins.plaincredentials.impl.StringCredentialsImpl>
`)),
	CredentialUsernamePassword: template.Must(template.New("username-password").Parse(`<com.cloudbees.plugins.credentials.impl.UsernamePasswordCredentialsImpl>
  <scope>GLOBAL</scope>
  <id>{{.ID}}</id>
  <description>{{.Description}}</description>
  <username>{{.Username}}</username>
  <password>{{.Secret}}</password>
</com.cloudbees.plugins.credentials.impl.UsernamePasswordCredentialsImpl>
`)),
}

func renderCredentialXML(spec CredentialSpec) (string, error) {
	tmpl, ok := credentialTemplates[spec.Kind]
	if !ok {
		return "", fmt.Errorf("unknown credential kind %q", spec.Kind)
	}

	var buf bytes.Buffer
	err := tmpl.Execute(&buf, CredentialSpec{
		ID:          escapeXML(spec.ID),
		Description: escapeXML(spec.Description),
		Username:    escapeXML(spec.Username),
		Secret:      escapeXML(spec.Secret),
	})
	if err != nil {
		return "", fmt.Errorf("failed to render credential config: %w", err)
	}
	return buf.String(), nil
}

func escapeXML(s string) string {
	var buf strings.Builder
	// xml.EscapeText only fails on writer errors, which a Builder never has.
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
