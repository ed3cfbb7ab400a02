package orchestration

import "github.com/greenswitch/greenswitch/internal/gitutil"

// GitUpdater edits the application checkout through gitutil.
type GitUpdater struct{}

func (GitUpdater) BumpVersion(repoDir, filePath, version string) error {
	return gitutil.BumpVersion(repoDir, filePath, version)
}

func (GitUpdater) IsDirty(repoDir string) (bool, error) {
	return gitutil.IsDirty(repoDir)
}

func (GitUpdater) CommitAll(repoDir, message string) error {
	return gitutil.CommitAll(repoDir, message)
}
