package aws

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/ecr"
)

// PurgeRegistry deletes all images from the registry repository so the
// provisioner can destroy it. A repository holding images refuses deletion,
// which would leave the teardown half done. Missing repositories are a no-op.
func (c *Client) PurgeRegistry(ctx context.Context, registryURI string) error {
	repoName, err := repositoryName(registryURI)
	if err != nil {
		return err
	}

	var nextToken *string
	for {
		list, err := c.ecr.ListImages(ctx, &ecr.ListImagesInput{
			RepositoryName: &repoName,
			NextToken:      nextToken,
		})
		if err != nil {
			if IsNotFound(err) {
				return nil
			}
			return fmt.Errorf("failed to list registry images: %w", err)
		}

		if len(list.ImageIds) == 0 {
			return nil
		}

		log.Printf("Deleting %d images from registry repository %s", len(list.ImageIds), repoName)
		if _, err := c.ecr.BatchDeleteImage(ctx, &ecr.BatchDeleteImageInput{
			RepositoryName: &repoName,
			ImageIds:       list.ImageIds,
		}); err != nil {
			return fmt.Errorf("failed to delete registry images: %w", err)
		}

		if list.NextToken == nil {
			return nil
		}
		nextToken = list.NextToken
	}
}

// repositoryName extracts the repository from a registry URI like
// 123456789012.dkr.ecr.us-east-1.amazonaws.com/demo-app.
func repositoryName(registryURI string) (string, error) {
	_, repo, found := strings.Cut(registryURI, "/")
	if !found || repo == "" {
		return "", fmt.Errorf("registry URI %q has no repository path", registryURI)
	}
	return repo, nil
}
