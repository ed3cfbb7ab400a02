// Package aws wraps the cloud API operations the orchestrator needs:
// cluster access configuration, account identity validation, and registry
// cleanup during teardown.
package aws

import (
	"context"
	"errors"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	"github.com/aws/aws-sdk-go-v2/service/eks"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
)

// AccessError is a cluster access or identity failure.
type AccessError struct {
	Op  string
	Err error
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("cluster access: %s: %v", e.Op, e.Err)
}

func (e *AccessError) Unwrap() error {
	return e.Err
}

// Client bundles the AWS service clients used across phases.
type Client struct {
	eks eksAPI
	sts stsAPI
	ecr ecrAPI

	region string
}

// eksAPI is the subset of the EKS client the configurator uses.
type eksAPI interface {
	DescribeCluster(ctx context.Context, params *eks.DescribeClusterInput, optFns ...func(*eks.Options)) (*eks.DescribeClusterOutput, error)
}

// stsAPI is the subset of the STS client used for identity validation.
type stsAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// ecrAPI is the subset of the ECR client used for registry cleanup.
type ecrAPI interface {
	ListImages(ctx context.Context, params *ecr.ListImagesInput, optFns ...func(*ecr.Options)) (*ecr.ListImagesOutput, error)
	BatchDeleteImage(ctx context.Context, params *ecr.BatchDeleteImageInput, optFns ...func(*ecr.Options)) (*ecr.BatchDeleteImageOutput, error)
}

// NewClient creates a client using the default credential chain.
func NewClient(ctx context.Context, region string) (*Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, &AccessError{Op: "load credentials", Err: err}
	}

	return &Client{
		eks:    eks.NewFromConfig(cfg),
		sts:    sts.NewFromConfig(cfg),
		ecr:    ecr.NewFromConfig(cfg),
		region: region,
	}, nil
}

// NewClientWithAPIs creates a client with injected service APIs (for tests).
func NewClientWithAPIs(eksClient eksAPI, stsClient stsAPI, ecrClient ecrAPI, region string) *Client {
	return &Client{eks: eksClient, sts: stsClient, ecr: ecrClient, region: region}
}

// IsNotFound reports whether err is an AWS API response for a resource that
// does not exist. Teardown treats these as already done.
func IsNotFound(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "ResourceNotFoundException", "RepositoryNotFoundException":
		return true
	}
	return false
}

// ValidateAccount checks that the active credentials belong to the account
// the operator named. A mismatch means the wrong profile is active; failing
// early beats provisioning into the wrong account.
func (c *Client) ValidateAccount(ctx context.Context, accountID string) error {
	identity, err := c.sts.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return &AccessError{Op: "get caller identity", Err: err}
	}

	if identity.Account == nil || *identity.Account != accountID {
		got := "<none>"
		if identity.Account != nil {
			got = *identity.Account
		}
		return &AccessError{
			Op:  "validate account",
			Err: fmt.Errorf("credentials belong to account %s, expected %s", got, accountID),
		}
	}

	return nil
}
