package aws

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	ecrtypes "github.com/aws/aws-sdk-go-v2/service/ecr/types"
	"github.com/aws/aws-sdk-go-v2/service/eks"
	ekstypes "github.com/aws/aws-sdk-go-v2/service/eks/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEKS struct {
	cluster *ekstypes.Cluster
	err     error
}

func (f *fakeEKS) DescribeCluster(_ context.Context, _ *eks.DescribeClusterInput, _ ...func(*eks.Options)) (*eks.DescribeClusterOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &eks.DescribeClusterOutput{Cluster: f.cluster}, nil
}

type fakeSTS struct {
	account string
	err     error
}

func (f *fakeSTS) GetCallerIdentity(_ context.Context, _ *sts.GetCallerIdentityInput, _ ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &sts.GetCallerIdentityOutput{Account: aws.String(f.account)}, nil
}

type fakeECR struct {
	images        []ecrtypes.ImageIdentifier
	listErr       error
	deletedCalls  int
	deletedImages int
}

func (f *fakeECR) ListImages(_ context.Context, _ *ecr.ListImagesInput, _ ...func(*ecr.Options)) (*ecr.ListImagesOutput, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return &ecr.ListImagesOutput{ImageIds: f.images}, nil
}

func (f *fakeECR) BatchDeleteImage(_ context.Context, params *ecr.BatchDeleteImageInput, _ ...func(*ecr.Options)) (*ecr.BatchDeleteImageOutput, error) {
	f.deletedCalls++
	f.deletedImages += len(params.ImageIds)
	f.images = nil
	return &ecr.BatchDeleteImageOutput{}, nil
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"ecr repository missing", &ecrtypes.RepositoryNotFoundException{}, true},
		{"eks cluster missing", &ekstypes.ResourceNotFoundException{}, true},
		{"wrapped", fmt.Errorf("listing: %w", &ecrtypes.RepositoryNotFoundException{}), true},
		{"other api error", &ecrtypes.RepositoryNotEmptyException{}, false},
		{"plain error", errors.New("throttled"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNotFound(tt.err))
		})
	}
}

func TestValidateAccount(t *testing.T) {
	client := NewClientWithAPIs(nil, &fakeSTS{account: "123456789012"}, nil, "us-east-1")
	require.NoError(t, client.ValidateAccount(context.Background(), "123456789012"))
}

func TestValidateAccount_Mismatch(t *testing.T) {
	client := NewClientWithAPIs(nil, &fakeSTS{account: "999999999999"}, nil, "us-east-1")
	err := client.ValidateAccount(context.Background(), "123456789012")

	var accessErr *AccessError
	require.ErrorAs(t, err, &accessErr)
	assert.Contains(t, err.Error(), "999999999999")
}

func TestConfigureAccess(t *testing.T) {
	ca := base64.StdEncoding.EncodeToString([]byte("fake-ca-bundle"))
	eksClient := &fakeEKS{cluster: &ekstypes.Cluster{
		Endpoint:             aws.String("https://ABCDEF.gr7.us-east-1.eks.amazonaws.com"),
		CertificateAuthority: &ekstypes.Certificate{Data: aws.String(ca)},
	}}
	client := NewClientWithAPIs(eksClient, nil, nil, "us-east-1")

	workDir := t.TempDir()
	path, err := client.ConfigureAccess(context.Background(), "blue-green-demo", workDir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(workDir, "kubeconfig"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ABCDEF.gr7.us-east-1.eks.amazonaws.com")
	assert.Contains(t, string(data), "get-token")
	assert.Contains(t, string(data), "blue-green-demo")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// re-running rewrites the same context without error
	again, err := client.ConfigureAccess(context.Background(), "blue-green-demo", workDir)
	require.NoError(t, err)
	assert.Equal(t, path, again)
}

func TestConfigureAccess_ClusterNotReady(t *testing.T) {
	client := NewClientWithAPIs(&fakeEKS{cluster: &ekstypes.Cluster{}}, nil, nil, "us-east-1")

	_, err := client.ConfigureAccess(context.Background(), "blue-green-demo", t.TempDir())
	var accessErr *AccessError
	require.ErrorAs(t, err, &accessErr)
}

func TestPurgeRegistry(t *testing.T) {
	ecrClient := &fakeECR{images: []ecrtypes.ImageIdentifier{
		{ImageTag: aws.String("blue")},
		{ImageTag: aws.String("green")},
	}}
	client := NewClientWithAPIs(nil, nil, ecrClient, "us-east-1")

	err := client.PurgeRegistry(context.Background(), "123456789012.dkr.ecr.us-east-1.amazonaws.com/demo-app")
	require.NoError(t, err)
	assert.Equal(t, 1, ecrClient.deletedCalls)
	assert.Equal(t, 2, ecrClient.deletedImages)
}

func TestPurgeRegistry_RepositoryAlreadyGone(t *testing.T) {
	ecrClient := &fakeECR{listErr: &ecrtypes.RepositoryNotFoundException{}}
	client := NewClientWithAPIs(nil, nil, ecrClient, "us-east-1")

	err := client.PurgeRegistry(context.Background(), "123456789012.dkr.ecr.us-east-1.amazonaws.com/demo-app")
	require.NoError(t, err)
	assert.Equal(t, 0, ecrClient.deletedCalls)
}

func TestPurgeRegistry_EmptyRepository(t *testing.T) {
	ecrClient := &fakeECR{}
	client := NewClientWithAPIs(nil, nil, ecrClient, "us-east-1")

	require.NoError(t, client.PurgeRegistry(context.Background(), "123456789012.dkr.ecr.us-east-1.amazonaws.com/demo-app"))
	assert.Equal(t, 0, ecrClient.deletedCalls)
}

func TestPurgeRegistry_BadURI(t *testing.T) {
	client := NewClientWithAPIs(nil, nil, &fakeECR{}, "us-east-1")
	err := client.PurgeRegistry(context.Background(), "no-repository-path")
	require.Error(t, err)
}

func TestPurgeRegistry_ListFailure(t *testing.T) {
	ecrClient := &fakeECR{listErr: errors.New("throttled")}
	client := NewClientWithAPIs(nil, nil, ecrClient, "us-east-1")

	err := client.PurgeRegistry(context.Background(), "123456789012.dkr.ecr.us-east-1.amazonaws.com/demo-app")
	require.Error(t, err)
}
